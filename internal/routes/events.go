package routes

import (
	"io"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"
)

// EventRoutes exposes the live access event stream over SSE.
func EventRoutes(r *gin.RouterGroup, app *App) {
	r.GET("", func(c *gin.Context) {
		id, ch := app.Broadcaster.Subscribe()
		defer app.Broadcaster.Unsubscribe(id)

		c.Header("Content-Type", "text/event-stream")
		c.Header("Connection", "keep-alive")

		c.Stream(func(w io.Writer) bool {
			select {
			case event, ok := <-ch:
				if !ok {
					return false
				}
				if err := sse.Encode(w, event); err != nil {
					return false
				}
				return true
			case <-c.Request.Context().Done():
				return false
			}
		})
	})
}
