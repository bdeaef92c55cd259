package routes

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	qrcode "github.com/skip2/go-qrcode"

	"facility-access-control/internal/storage"
)

const qrImageSize = 512

type readerRequest struct {
	Name string `json:"name" binding:"required"`
}

// ReaderRoutes manages the card reader devices that submit taps. A reader
// registers, an operator approves it, and the reader then fetches its
// token (or scans it as a QR code during setup).
func ReaderRoutes(r *gin.RouterGroup, app *App) {
	r.POST("", func(c *gin.Context) {
		var req readerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}

		device := storage.ReaderDevice{
			ID:     uuid.NewString(),
			Name:   req.Name,
			Status: storage.ReaderPending,
		}
		if err := app.Storage.CreateReaderDevice(c.Request.Context(), device); err != nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"success": true, "reader_id": device.ID, "status": device.Status})
	})

	r.POST("/:id/approve", func(c *gin.Context) {
		id := c.Param("id")
		if err := app.Storage.UpdateReaderStatus(c.Request.Context(), id, storage.ReaderApproved); err != nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "reader_id": id, "status": storage.ReaderApproved})
	})

	r.POST("/:id/revoke", func(c *gin.Context) {
		id := c.Param("id")
		if err := app.Storage.UpdateReaderStatus(c.Request.Context(), id, storage.ReaderRevoked); err != nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "reader_id": id, "status": storage.ReaderRevoked})
	})

	r.GET("/:id/token", func(c *gin.Context) {
		token, err := approvedReaderToken(c, app)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "token": token})
	})

	// Provisioning payload rendered as a QR image for scanning during
	// reader setup: the tap endpoint URL with the token in the fragment.
	r.GET("/:id/qr", func(c *gin.Context) {
		token, err := approvedReaderToken(c, app)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		png, err := qrcode.Encode(provisioningURL(c, app, token), qrcode.Medium, qrImageSize)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.Data(http.StatusOK, "image/png", png)
	})
}

// provisioningURL builds the address a reader posts taps to. The
// configured base URL wins; without one the request host is used. The
// token rides in the fragment so it stays out of access logs.
func provisioningURL(c *gin.Context, app *App, token string) string {
	base := app.Cfg.BaseURL
	if base == "" || base == "/" {
		scheme := "http"
		if c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https" {
			scheme = "https"
		}
		base = fmt.Sprintf("%s://%s", scheme, c.Request.Host)
	}
	return fmt.Sprintf("%s/api/taps#%s", strings.TrimSuffix(base, "/"), token)
}

func approvedReaderToken(c *gin.Context, app *App) (string, error) {
	device, err := app.Storage.GetReaderDevice(c.Request.Context(), c.Param("id"))
	if err != nil {
		return "", err
	}
	if device.Status != storage.ReaderApproved {
		return "", ErrReaderNotApproved
	}
	return app.Tokens.NewToken(device.ID)
}
