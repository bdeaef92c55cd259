package routes

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"facility-access-control/internal/appointments"
	"facility-access-control/internal/storage"
)

type appointmentRequest struct {
	PersonID  int64  `json:"person_id" binding:"required"`
	Day       string `json:"day" binding:"required"`
	StartTime string `json:"start_time" binding:"required"`
	Area      string `json:"area"`
}

func AppointmentRoutes(r *gin.RouterGroup, app *App) {
	r.POST("", func(c *gin.Context) {
		var req appointmentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
		if _, err := time.Parse(appointments.DayFormat, req.Day); err != nil {
			AbortWithError(c, NewHTTPError(http.StatusBadRequest, err, "Day must be YYYY-MM-DD"))
			return
		}
		if _, err := time.Parse("15:04", req.StartTime); err != nil {
			AbortWithError(c, NewHTTPError(http.StatusBadRequest, err, "Start time must be HH:MM"))
			return
		}

		if _, err := app.Storage.PersonByID(c.Request.Context(), req.PersonID); err != nil {
			AbortWithError(c, err)
			return
		}

		appointment := &storage.Appointment{
			PersonID:  req.PersonID,
			Day:       req.Day,
			StartTime: req.StartTime,
			Area:      req.Area,
			Status:    storage.AppointmentScheduled,
		}
		if err := app.Storage.CreateAppointment(c.Request.Context(), appointment); err != nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"success": true, "appointment": appointment})
	})

	r.GET("", func(c *gin.Context) {
		list, err := app.Storage.ListAppointments(c.Request.Context())
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "appointments": list})
	})

	// Manual sweep trigger for operators; the server also sweeps on a timer.
	r.POST("/sweep", func(c *gin.Context) {
		stats, err := app.Lifecycle.Sweep(c.Request.Context(), time.Now().UTC())
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "completed": stats.Completed, "missed": stats.Missed})
	})
}
