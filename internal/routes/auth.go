package routes

import (
	"errors"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"facility-access-control/internal/storage"
)

// operatorAuth protects administrative endpoints with operator
// credentials over HTTP basic auth.
func operatorAuth(app *App) gin.HandlerFunc {
	return func(c *gin.Context) {
		email, password, ok := c.Request.BasicAuth()
		if !ok {
			c.Header("WWW-Authenticate", `Basic realm="facility"`)
			AbortWithError(c, ErrUnauthorized)
			return
		}

		operator, err := app.Storage.OperatorByEmail(c.Request.Context(), email)
		if errors.Is(err, storage.ErrNotFound) {
			AbortWithError(c, ErrUnauthorized)
			return
		} else if err != nil {
			AbortWithError(c, err)
			return
		}

		if bcrypt.CompareHashAndPassword([]byte(operator.PasswordHash), []byte(password)) != nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		c.Set("OperatorID", operator.ID)
		c.Next()
	}
}
