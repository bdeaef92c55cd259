package routes

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cast"

	"facility-access-control/internal/storage"
)

type tapRequest struct {
	CardUID string `json:"card_uid" binding:"required"`
}

// readerAuth gates the tap endpoint behind a provisioned reader token
// when the deployment requires it.
func readerAuth(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !app.Cfg.RequireReaderToken {
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		claim, err := app.Tokens.Decode(token)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		device, err := app.Storage.GetReaderDevice(c.Request.Context(), claim.ReaderID)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		if device.Status != storage.ReaderApproved {
			AbortWithError(c, ErrReaderNotApproved)
			return
		}

		c.Set("ReaderID", device.ID)
		c.Next()
	}
}

func TapRoutes(r *gin.RouterGroup, app *App) {
	r.POST("", readerAuth(app), func(c *gin.Context) {
		var req tapRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), app.Cfg.OpTimeout())
		defer cancel()

		event, err := app.Dispatcher.HandleTap(ctx, req.CardUID)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{"success": true, "event": event})
	})

	// Most recent tap, recognized or not. Reader bridges poll this to
	// confirm their last read arrived.
	r.GET("/last", func(c *gin.Context) {
		event, err := app.Ledger.Last(c.Request.Context())
		if errors.Is(err, storage.ErrNotFound) {
			AbortWithError(c, NewHTTPError(http.StatusNotFound, err, "No taps recorded yet"))
			return
		} else if err != nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "event": event})
	})

	r.GET("", func(c *gin.Context) {
		limit := cast.ToInt(c.Query("limit"))
		events, err := app.Ledger.Recent(c.Request.Context(), limit)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "events": events})
	})

	// Administrative bulk purge of the whole ledger.
	r.DELETE("", operatorAuth(app), func(c *gin.Context) {
		n, err := app.Ledger.Purge(c.Request.Context())
		if err != nil {
			AbortWithError(c, err)
			return
		}
		slog.Warn("Ledger purged via API", "events_deleted", n)
		c.JSON(http.StatusOK, gin.H{"success": true, "deleted": n})
	})
}
