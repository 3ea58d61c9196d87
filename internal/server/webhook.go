package server

import (
	"net/http"

	scheduledomain "github.com/boxlane/boxlane/internal/schedule/domain"
	"github.com/gin-gonic/gin"
)

// scheduleWebhookBody accepts both a bare schedule message and the enveloped
// form some senders use.
type scheduleWebhookBody struct {
	scheduledomain.ScheduleMessage
	Schedule *scheduledomain.ScheduleMessage `json:"schedule"`
}

func (s *Server) handleScheduleWebhook(c *gin.Context) {
	var body scheduleWebhookBody
	if err := c.ShouldBindJSON(&body); err != nil {
		AbortWithError(c, ValidationErrors{{Field: "body", Message: "must be a JSON schedule message"}})
		return
	}

	msg := body.ScheduleMessage
	if body.Schedule != nil {
		msg = *body.Schedule
	}

	if err := msg.Validate(); err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.ingest.ProcessSchedule(c.Request.Context(), msg); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"carrier_name": scheduledomain.NormalizeCarrierName(msg.CarrierName),
	})
}
