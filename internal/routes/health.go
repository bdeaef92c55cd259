package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func HealthRoute(r *gin.Engine, app *App) {
	r.GET("/healthz", func(c *gin.Context) {
		version, err := app.Storage.SchemaVersion(c.Request.Context())
		if err != nil {
			AbortWithError(c, ErrDatabaseError)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":         "ok",
			"schema_version": version,
			"subscribers":    app.Broadcaster.Subscribers(),
		})
	})
}
