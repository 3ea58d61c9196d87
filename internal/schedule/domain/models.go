package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Event types and time kinds for port call times.
const (
	EventArrival   = "ARRIVAL"
	EventDeparture = "DEPARTURE"

	KindPlanned   = "PLANNED"
	KindEstimated = "ESTIMATED"
	KindActual    = "ACTUAL"
)

// NormalizeCarrierName returns the canonical stored form of a carrier name.
func NormalizeCarrierName(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

// NormalizeUNLocode returns the canonical form of a UN/LOCODE.
func NormalizeUNLocode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// NormalizeServiceCode returns the canonical form of a carrier service code.
func NormalizeServiceCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Carrier is an ocean carrier. Exactly one row per normalized name.
type Carrier struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey"`
	Name      string       `json:"name" gorm:"type:text;not null;uniqueIndex:ux_carriers_name"`
	CreatedAt time.Time    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time    `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Carrier) TableName() string { return "carriers" }

// Vessel is keyed by IMO number. The name may be corrected on re-ingestion,
// the IMO never changes.
type Vessel struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey"`
	IMONumber string       `json:"imo_number" gorm:"column:imo_number;type:text;not null;uniqueIndex:ux_vessels_imo"`
	Name      string       `json:"name" gorm:"type:text"`
	CreatedAt time.Time    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time    `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Vessel) TableName() string { return "vessels" }

// Service is a carrier-assigned service code, unique per carrier.
type Service struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey"`
	CarrierID snowflake.ID `json:"carrier_id" gorm:"not null;uniqueIndex:ux_services_carrier_code,priority:1"`
	Code      string       `json:"code" gorm:"type:text;not null;uniqueIndex:ux_services_carrier_code,priority:2"`
	Name      string       `json:"name" gorm:"type:text"`
	CreatedAt time.Time    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time    `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Service) TableName() string { return "services" }

// Voyage is a carrier-assigned voyage number, unique per service. The vessel
// reference is mutable so a voyage can be reassigned on correction.
type Voyage struct {
	ID           snowflake.ID  `json:"id" gorm:"primaryKey"`
	ServiceID    snowflake.ID  `json:"service_id" gorm:"not null;uniqueIndex:ux_voyages_service_number,priority:1"`
	VoyageNumber string        `json:"voyage_number" gorm:"type:text;not null;uniqueIndex:ux_voyages_service_number,priority:2"`
	VesselID     *snowflake.ID `json:"vessel_id" gorm:"index"`
	CreatedAt    time.Time     `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt    time.Time     `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Voyage) TableName() string { return "voyages" }

// Location is UN/LOCODE reference data. Never created by ingestion.
type Location struct {
	ID          snowflake.ID `json:"id" gorm:"primaryKey"`
	UNLocode    string       `json:"unlocode" gorm:"column:unlocode;type:text;not null;uniqueIndex:ux_locations_unlocode"`
	Name        string       `json:"name" gorm:"type:text"`
	CountryCode string       `json:"country_code" gorm:"type:text"`
	CreatedAt   time.Time    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Location) TableName() string { return "locations" }

// Facility is a terminal/berth (SMDG code) scoped to a location. Created lazily.
type Facility struct {
	ID         snowflake.ID `json:"id" gorm:"primaryKey"`
	LocationID snowflake.ID `json:"location_id" gorm:"not null;uniqueIndex:ux_facilities_location_smdg,priority:1"`
	SMDGCode   string       `json:"smdg_code" gorm:"column:smdg_code;type:text;not null;uniqueIndex:ux_facilities_location_smdg,priority:2"`
	Name       string       `json:"name" gorm:"type:text"`
	CreatedAt  time.Time    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Facility) TableName() string { return "facilities" }

// TransportCall is one scheduled stop of a voyage, unique per (voyage, sequence).
type TransportCall struct {
	ID                 snowflake.ID  `json:"id" gorm:"primaryKey"`
	VoyageID           snowflake.ID  `json:"voyage_id" gorm:"not null;uniqueIndex:ux_transport_calls_voyage_seq,priority:1"`
	Sequence           int           `json:"sequence" gorm:"not null;uniqueIndex:ux_transport_calls_voyage_seq,priority:2"`
	LocationID         snowflake.ID  `json:"location_id" gorm:"not null;index"`
	FacilityID         *snowflake.ID `json:"facility_id"`
	ImportVoyageNumber string        `json:"import_voyage_number" gorm:"type:text"`
	ExportVoyageNumber string        `json:"export_voyage_number" gorm:"type:text"`
	CreatedAt          time.Time     `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt          time.Time     `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (TransportCall) TableName() string { return "transport_calls" }

// PortCallTime holds one timestamp per (transport call, event type, time kind)
// triple. Later ingestion overwrites the prior value, last write wins.
type PortCallTime struct {
	ID              snowflake.ID `json:"id" gorm:"primaryKey"`
	TransportCallID snowflake.ID `json:"transport_call_id" gorm:"not null;uniqueIndex:ux_port_call_times_triple,priority:1"`
	EventType       string       `json:"event_type" gorm:"type:text;not null;uniqueIndex:ux_port_call_times_triple,priority:2"`
	TimeKind        string       `json:"time_kind" gorm:"type:text;not null;uniqueIndex:ux_port_call_times_triple,priority:3"`
	Timestamp       time.Time    `json:"timestamp" gorm:"not null"`
	UpdatedAt       time.Time    `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (PortCallTime) TableName() string { return "port_call_times" }

// ScheduleSourceAudit is the append-only provenance record for every
// successfully processed schedule message. Not used by queries.
type ScheduleSourceAudit struct {
	ID           snowflake.ID   `json:"id" gorm:"primaryKey"`
	CarrierName  string         `json:"carrier_name" gorm:"type:text;not null;index"`
	SourceSystem string         `json:"source_system" gorm:"type:text;not null"`
	Payload      datatypes.JSON `json:"payload"`
	CreatedAt    time.Time      `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (ScheduleSourceAudit) TableName() string { return "schedule_source_audits" }

// AggregatedSchedule is a row from the carrier-agnostic third-party feed,
// queried as the resolver's last-resort source.
type AggregatedSchedule struct {
	ID                  snowflake.ID `json:"id" gorm:"primaryKey"`
	CarrierName         string       `json:"carrier_name" gorm:"type:text;not null;index"`
	CarrierCode         string       `json:"carrier_code" gorm:"type:text;index"`
	OriginUNLocode      string       `json:"origin_unlocode" gorm:"column:origin_unlocode;type:text;not null;index"`
	DestinationUNLocode string       `json:"destination_unlocode" gorm:"column:destination_unlocode;type:text;not null;index"`
	ServiceCode         string       `json:"service_code" gorm:"type:text"`
	VoyageNumber        string       `json:"voyage_number" gorm:"type:text"`
	VesselName          string       `json:"vessel_name" gorm:"type:text"`
	VesselIMO           string       `json:"vessel_imo" gorm:"column:vessel_imo;type:text"`
	DepartureTime       time.Time    `json:"departure_time" gorm:"not null;index"`
	ArrivalTime         *time.Time   `json:"arrival_time"`
	TransitTimeDays     *int         `json:"transit_time_days"`
	SourceFeed          string       `json:"source_feed" gorm:"type:text"`
	CreatedAt           time.Time    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt           time.Time    `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (AggregatedSchedule) TableName() string { return "aggregated_schedules" }
