package domain

import (
	"context"
	"time"
)

// Default number of upcoming departures returned alongside the earliest.
const DefaultUpcomingLimit = 4

// SuspiciousTransitDays is the sanity threshold: a computed port-to-port
// transit under this many days is implausible for an ocean leg and triggers
// the next source.
const SuspiciousTransitDays = 5

// DepartureQuery asks for the earliest (and next N) departures for a carrier
// out of an origin port, optionally towards a destination.
type DepartureQuery struct {
	OriginUNLocode      string
	CarrierName         string
	DestinationUNLocode string
	CargoReadyDate      time.Time
	IncludeUpcoming     bool
	UpcomingLimit       int
	RateValidTo         time.Time
}

// Departure is a discriminated result: callers must branch on Found and
// never assume the success fields are present.
type Departure struct {
	Found              bool       `json:"found"`
	Message            string     `json:"message,omitempty"`
	Source             string     `json:"source,omitempty"`
	ETD                *time.Time `json:"etd,omitempty"`
	PlannedDeparture   *time.Time `json:"planned_departure,omitempty"`
	EstimatedDeparture *time.Time `json:"estimated_departure,omitempty"`
	ServiceCode        string     `json:"service_code,omitempty"`
	VoyageNumber       string     `json:"voyage_number,omitempty"`
	VesselName         string     `json:"vessel_name,omitempty"`
	VesselIMO          string     `json:"vessel_imo,omitempty"`
	TransitTimeDays    *int       `json:"transit_time_days,omitempty"`
	Suspicious         bool       `json:"suspicious,omitempty"`
}

// Result bundles the earliest departure with the remaining matches from the
// same source. Upcoming is never mixed across sources.
type Result struct {
	Earliest Departure   `json:"earliest"`
	Upcoming []Departure `json:"upcoming"`
}

type Service interface {
	GetEarliestDeparture(ctx context.Context, q DepartureQuery) (Result, error)
}
