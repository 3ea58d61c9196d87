package server

import (
	"net/http"

	resolverdomain "github.com/boxlane/boxlane/internal/resolver/domain"
	"github.com/gin-gonic/gin"
)

// handleEarliestDeparture resolves the earliest departure for a carrier out
// of an origin port, walking the canonical store, the carrier's live API and
// the aggregator feed in that order.
func (s *Server) handleEarliestDeparture(c *gin.Context) {
	var errs ValidationErrors

	origin, vErr := requireParam(c, "origin")
	if vErr != nil {
		errs = append(errs, *vErr)
	}
	carrierName, vErr := requireParam(c, "carrier")
	if vErr != nil {
		errs = append(errs, *vErr)
	}

	cargoReadyDate, vErr := parseTimeParam(c, "cargo_ready_date")
	if vErr != nil {
		errs = append(errs, *vErr)
	}
	rateValidTo, vErr := parseTimeParam(c, "rate_valid_to")
	if vErr != nil {
		errs = append(errs, *vErr)
	}
	includeUpcoming, vErr := parseBoolParam(c, "include_upcoming")
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

	result, err := s.resolver.GetEarliestDeparture(c.Request.Context(), resolverdomain.DepartureQuery{
		OriginUNLocode:      origin,
		CarrierName:         carrierName,
		DestinationUNLocode: c.Query("destination"),
		CargoReadyDate:      cargoReadyDate,
		IncludeUpcoming:     includeUpcoming,
		UpcomingLimit:       limit,
		RateValidTo:         rateValidTo,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
