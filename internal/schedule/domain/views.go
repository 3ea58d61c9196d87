package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// PortToPortRoute is one row of the port_to_port_routes view: every
// (origin call with a departure, later destination call with an arrival)
// pair within one voyage.
type PortToPortRoute struct {
	VoyageID            snowflake.ID `json:"voyage_id"`
	CarrierName         string       `json:"carrier_name"`
	ServiceCode         string       `json:"service_code"`
	VoyageNumber        string       `json:"voyage_number"`
	VesselName          string       `json:"vessel_name"`
	VesselIMO           string       `json:"vessel_imo" gorm:"column:vessel_imo"`
	OriginUNLocode      string       `json:"origin_unlocode" gorm:"column:origin_unlocode"`
	OriginSequence      int          `json:"origin_sequence"`
	DestinationUNLocode string       `json:"destination_unlocode" gorm:"column:destination_unlocode"`
	DestinationSequence int          `json:"destination_sequence"`
	PlannedDeparture    *time.Time   `json:"planned_departure"`
	EstimatedDeparture  *time.Time   `json:"estimated_departure"`
	ActualDeparture     *time.Time   `json:"actual_departure"`
	BestDeparture       time.Time    `json:"best_departure"`
	PlannedArrival      *time.Time   `json:"planned_arrival"`
	EstimatedArrival    *time.Time   `json:"estimated_arrival"`
	ActualArrival       *time.Time   `json:"actual_arrival"`
	BestArrival         time.Time    `json:"best_arrival"`
}

// NextDeparture is one row of the next_departures view: every transport call
// that has at least one departure time.
type NextDeparture struct {
	VoyageID           snowflake.ID `json:"voyage_id"`
	TransportCallID    snowflake.ID `json:"transport_call_id"`
	CarrierName        string       `json:"carrier_name"`
	ServiceCode        string       `json:"service_code"`
	VoyageNumber       string       `json:"voyage_number"`
	VesselName         string       `json:"vessel_name"`
	VesselIMO          string       `json:"vessel_imo" gorm:"column:vessel_imo"`
	UNLocode           string       `json:"unlocode" gorm:"column:unlocode"`
	Sequence           int          `json:"sequence"`
	PlannedDeparture   *time.Time   `json:"planned_departure"`
	EstimatedDeparture *time.Time   `json:"estimated_departure"`
	ActualDeparture    *time.Time   `json:"actual_departure"`
	BestDeparture      time.Time    `json:"best_departure"`
}

// VoyagePortCall is one row of the voyage_port_calls view: the full itinerary
// of a voyage with all six timestamps pivoted onto the call.
type VoyagePortCall struct {
	VoyageID           snowflake.ID `json:"voyage_id"`
	TransportCallID    snowflake.ID `json:"transport_call_id"`
	Sequence           int          `json:"sequence"`
	UNLocode           string       `json:"unlocode" gorm:"column:unlocode"`
	LocationName       string       `json:"location_name"`
	FacilitySMDGCode   string       `json:"facility_smdg_code" gorm:"column:facility_smdg_code"`
	PlannedArrival     *time.Time   `json:"planned_arrival"`
	EstimatedArrival   *time.Time   `json:"estimated_arrival"`
	ActualArrival      *time.Time   `json:"actual_arrival"`
	PlannedDeparture   *time.Time   `json:"planned_departure"`
	EstimatedDeparture *time.Time   `json:"estimated_departure"`
	ActualDeparture    *time.Time   `json:"actual_departure"`
}

// DestinationETA is one row of the destination_etas view: the best known
// arrival of a voyage at a location.
type DestinationETA struct {
	VoyageID         snowflake.ID `json:"voyage_id"`
	UNLocode         string       `json:"unlocode" gorm:"column:unlocode"`
	Sequence         int          `json:"sequence"`
	PlannedArrival   *time.Time   `json:"planned_arrival"`
	EstimatedArrival *time.Time   `json:"estimated_arrival"`
	ActualArrival    *time.Time   `json:"actual_arrival"`
	BestArrival      time.Time    `json:"best_arrival"`
}
