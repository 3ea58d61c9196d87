package domain

import (
	"context"
	"time"
)

const (
	// DefaultMinConnectionHours is the minimum layover between the first
	// leg's arrival and the second leg's departure at a transshipment port.
	DefaultMinConnectionHours = 24

	PreferenceDirect        = "direct"
	PreferenceTransshipment = "transshipment"
)

// RouteQuery searches itineraries between a port of loading and a port of
// discharge. Preference narrows the search to one itinerary kind; empty
// returns both.
type RouteQuery struct {
	POL                string
	POD                string
	CarrierName        string
	ServiceCode        string
	DepartureFrom      time.Time
	DepartureTo        time.Time
	MinConnectionHours int
	SameCarrierOnly    bool
	Preference         string
}

// Leg is one voyage segment of an itinerary.
type Leg struct {
	CarrierName         string    `json:"carrier_name"`
	ServiceCode         string    `json:"service_code"`
	VoyageNumber        string    `json:"voyage_number"`
	VesselName          string    `json:"vessel_name,omitempty"`
	VesselIMO           string    `json:"vessel_imo,omitempty"`
	OriginUNLocode      string    `json:"origin_unlocode"`
	DestinationUNLocode string    `json:"destination_unlocode"`
	Departure           time.Time `json:"departure"`
	Arrival             time.Time `json:"arrival"`
}

// Itinerary is a ranked route option, either direct or via exactly one
// transshipment hop.
type Itinerary struct {
	RoutePreference   string   `json:"route_preference"`
	Legs              []Leg    `json:"legs"`
	TransshipmentPort string   `json:"transshipment_port,omitempty"`
	ConnectionHours   *float64 `json:"connection_hours,omitempty"`
	TransitTimeDays   *int     `json:"transit_time_days,omitempty"`
}

type Service interface {
	// FindRoutes returns direct itineraries before transshipment
	// itineraries, each group sorted by departure ascending.
	FindRoutes(ctx context.Context, q RouteQuery) ([]Itinerary, error)
}
