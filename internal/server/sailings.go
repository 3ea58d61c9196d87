package server

import (
	"net/http"
	"time"

	scheduledomain "github.com/boxlane/boxlane/internal/schedule/domain"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const defaultSailingLimit = 4

type sailing struct {
	scheduledomain.NextDeparture
	PortCalls []scheduledomain.VoyagePortCall `json:"port_calls"`
}

// handleNextSailings lists upcoming departures out of a port with each
// voyage's full port-call itinerary attached.
func (s *Server) handleNextSailings(c *gin.Context) {
	var errs ValidationErrors

	port, vErr := requireParam(c, "port")
	if vErr != nil {
		errs = append(errs, *vErr)
	}
	dateFrom, vErr := parseTimeParam(c, "date_from")
	if vErr != nil {
		errs = append(errs, *vErr)
	}
	limit, vErr := parseIntParam(c, "limit")
	if vErr != nil {
		errs = append(errs, *vErr)
	}

	if len(errs) > 0 {
		AbortWithError(c, errs)
		return
	}

	if dateFrom.IsZero() {
		now := s.clock.Now().UTC()
		dateFrom = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	}
	if limit <= 0 {
		limit = defaultSailingLimit
	}

	carrierName := scheduledomain.NormalizeCarrierName(c.Query("carrier"))
	serviceCode := scheduledomain.NormalizeServiceCode(c.Query("service_code"))

	rows, err := s.repo.FindNextDepartures(c.Request.Context(), s.db, scheduledomain.NextDepartureQuery{
		UNLocode:      scheduledomain.NormalizeUNLocode(port),
		DepartureFrom: dateFrom,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	sailings := make([]sailing, 0, limit)
	for _, row := range rows {
		if carrierName != "" && scheduledomain.NormalizeCarrierName(row.CarrierName) != carrierName {
			continue
		}
		if serviceCode != "" && scheduledomain.NormalizeServiceCode(row.ServiceCode) != serviceCode {
			continue
		}

		portCalls, err := s.repo.FindVoyagePortCalls(c.Request.Context(), s.db, row.VoyageID)
		if err != nil {
			// An itinerary lookup failing degrades one entry, not the list.
			s.log.Warn("voyage itinerary lookup failed",
				zap.Int64("voyage_id", row.VoyageID.Int64()),
				zap.Error(err),
			)
			portCalls = nil
		}
		if portCalls == nil {
			portCalls = []scheduledomain.VoyagePortCall{}
		}

		sailings = append(sailings, sailing{NextDeparture: row, PortCalls: portCalls})
		if len(sailings) >= limit {
			break
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"port":     scheduledomain.NormalizeUNLocode(port),
		"sailings": sailings,
	})
}
