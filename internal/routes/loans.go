package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"facility-access-control/internal/storage"
)

type loanRequest struct {
	ResourceKind string `json:"resource_kind" binding:"required"`
	ResourceID   int64  `json:"resource_id" binding:"required"`
	PersonID     int64  `json:"person_id"`
}

func parseResourceKind(s string) (storage.EntityKind, bool) {
	switch storage.EntityKind(s) {
	case storage.KindBook:
		return storage.KindBook, true
	case storage.KindComputer:
		return storage.KindComputer, true
	default:
		return "", false
	}
}

// LoanRoutes is the explicit, operator-driven loan surface. Tap-driven
// reservation goes through the dispatcher; both paths share the guard.
func LoanRoutes(r *gin.RouterGroup, app *App) {
	r.POST("", func(c *gin.Context) {
		var req loanRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
		kind, ok := parseResourceKind(req.ResourceKind)
		if !ok || req.PersonID == 0 {
			AbortWithError(c, ErrInvalidRequest)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), app.Cfg.OpTimeout())
		defer cancel()

		loan, err := app.Guard.Reserve(ctx, kind, req.ResourceID, req.PersonID, time.Now().UTC())
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"success": true, "loan": loan})
	})

	r.POST("/release", func(c *gin.Context) {
		var req loanRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
		kind, ok := parseResourceKind(req.ResourceKind)
		if !ok {
			AbortWithError(c, ErrInvalidRequest)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), app.Cfg.OpTimeout())
		defer cancel()

		loan, err := app.Guard.Release(ctx, kind, req.ResourceID, time.Now().UTC())
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "loan": loan})
	})

	r.GET("", func(c *gin.Context) {
		details, err := app.Storage.ListActiveLoans(c.Request.Context(), time.Now().UTC())
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "loans": details})
	})
}
