package server

import (
	"fmt"
	"net/http"

	routingdomain "github.com/boxlane/boxlane/internal/routing/domain"
	"github.com/gin-gonic/gin"
)

func (s *Server) handleRoutes(c *gin.Context) {
	var errs ValidationErrors

	pol, vErr := requireParam(c, "origin")
	if vErr != nil {
		errs = append(errs, *vErr)
	}
	pod, vErr := requireParam(c, "destination")
	if vErr != nil {
		errs = append(errs, *vErr)
	}
	departureFrom, vErr := parseTimeParam(c, "departure_from")
	if vErr != nil {
		errs = append(errs, *vErr)
	}
	departureTo, vErr := parseTimeParam(c, "departure_to")
	if vErr != nil {
		errs = append(errs, *vErr)
	}
	minConnectionHours, vErr := parseIntParam(c, "min_connection_hours")
	if vErr != nil {
		errs = append(errs, *vErr)
	}
	sameCarrierOnly, vErr := parseBoolParam(c, "same_carrier_only")
	if vErr != nil {
		errs = append(errs, *vErr)
	}

	preference := c.Query("preference")
	switch preference {
	case "", routingdomain.PreferenceDirect, routingdomain.PreferenceTransshipment:
	default:
		errs = append(errs, ValidationError{
			Field:   "preference",
			Message: "must be direct or transshipment",
		})
	}

	if len(errs) > 0 {
		AbortWithError(c, errs)
		return
	}

	itineraries, err := s.routing.FindRoutes(c.Request.Context(), routingdomain.RouteQuery{
		POL:                pol,
		POD:                pod,
		CarrierName:        c.Query("carrier"),
		ServiceCode:        c.Query("service_code"),
		DepartureFrom:      departureFrom,
		DepartureTo:        departureTo,
		MinConnectionHours: minConnectionHours,
		SameCarrierOnly:    sameCarrierOnly,
		Preference:         preference,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	response := gin.H{
		"found":       len(itineraries) > 0,
		"itineraries": itineraries,
	}
	if len(itineraries) == 0 {
		response["itineraries"] = []routingdomain.Itinerary{}
		response["message"] = fmt.Sprintf("no routes found from %s to %s", pol, pod)
	}

	c.JSON(http.StatusOK, response)
}
