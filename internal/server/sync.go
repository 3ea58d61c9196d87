package server

import (
	"net/http"
	"strings"

	ingestdomain "github.com/boxlane/boxlane/internal/ingest/domain"
	"github.com/gin-gonic/gin"
)

func (s *Server) handleCarrierSync(c *gin.Context) {
	carrierName := strings.TrimSpace(c.Param("carrier"))
	if carrierName == "" {
		AbortWithError(c, ValidationErrors{{Field: "carrier", Message: "is required"}})
		return
	}

	var req ingestdomain.SyncRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, ValidationErrors{{Field: "body", Message: "must be a JSON sync request"}})
			return
		}
	}
	req.CarrierName = carrierName

	result, err := s.ingest.SyncCarrierSchedules(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) handleCarrierServiceSync(c *gin.Context) {
	carrierName := strings.TrimSpace(c.Param("carrier"))
	if carrierName == "" {
		AbortWithError(c, ValidationErrors{{Field: "carrier", Message: "is required"}})
		return
	}

	count, err := s.ingest.SyncCarrierServices(c.Request.Context(), carrierName)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"carrier_name":    carrierName,
		"services_synced": count,
	})
}
