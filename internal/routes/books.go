package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func BookRoutes(r *gin.RouterGroup, app *App) {
	// Accent-insensitive title/author search for the front desk.
	r.GET("/search", func(c *gin.Context) {
		query := c.Query("q")
		if query == "" {
			AbortWithError(c, ErrMissingParameter)
			return
		}
		books, err := app.Storage.SearchBooks(c.Request.Context(), query)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "books": books})
	})
}
