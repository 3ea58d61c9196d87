package server

import (
	"net/http"

	"github.com/boxlane/boxlane/internal/observability/metrics"
	"github.com/gin-gonic/gin"
)

// handleScheduleSources reports which sources answered recent departure
// resolutions.
func (s *Server) handleScheduleSources(c *gin.Context) {
	breakdown := s.sources.Snapshot(s.clock.Now())
	if breakdown == nil {
		breakdown = []metrics.SourceBreakdown{}
	}

	total := 0
	for _, entry := range breakdown {
		total += entry.Count
	}

	c.JSON(http.StatusOK, gin.H{
		"window_hours": 24,
		"total":        total,
		"sources":      breakdown,
	})
}
