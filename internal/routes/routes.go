package routes

import (
	"github.com/gin-gonic/gin"

	"facility-access-control/internal/appointments"
	"facility-access-control/internal/config"
	"facility-access-control/internal/ledger"
	"facility-access-control/internal/loans"
	"facility-access-control/internal/notify"
	"facility-access-control/internal/readers"
	"facility-access-control/internal/storage"
	"facility-access-control/internal/tap"
)

// App bundles the wired components the routes need.
type App struct {
	Cfg         *config.Config
	Storage     storage.Provider
	Dispatcher  *tap.Dispatcher
	Ledger      *ledger.Ledger
	Guard       *loans.Guard
	Lifecycle   *appointments.Lifecycle
	Broadcaster *notify.Broadcaster
	Tokens      *readers.TokenService
}

func securityHeaders(c *gin.Context) {
	c.Header("X-Content-Type-Options", "nosniff")
	c.Header("X-Frame-Options", "DENY")

	// Disable caching; every response here is live state
	c.Header("Cache-Control", "no-store, no-cache, must-revalidate, proxy-revalidate")
	c.Header("Pragma", "no-cache")
	c.Header("Expires", "0")
	c.Next()
}

// RegisterRoutes wires the API surface onto the engine.
func RegisterRoutes(r *gin.Engine, app *App) {
	r.Use(securityHeaders)
	r.Use(ErrorHandler())

	HealthRoute(r, app)

	api := r.Group("/api")

	TapRoutes(api.Group("/taps"), app)
	EventRoutes(api.Group("/events"), app)
	LoanRoutes(api.Group("/loans"), app)
	AppointmentRoutes(api.Group("/appointments"), app)
	BookRoutes(api.Group("/books"), app)
	ReaderRoutes(api.Group("/readers"), app)
}
