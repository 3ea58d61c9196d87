package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// RouteQuery filters the port_to_port_routes view. Carrier matching is done
// in-process by the callers because the view's carrier field needs a
// case-insensitive exact match the view itself does not provide.
type RouteQuery struct {
	OriginUNLocode      string
	DestinationUNLocode string
	DepartureFrom       time.Time
	DepartureTo         time.Time
	ExcludeVoyageID     snowflake.ID
	Limit               int
}

// NextDepartureQuery filters the next_departures view.
type NextDepartureQuery struct {
	UNLocode      string
	DepartureFrom time.Time
	Limit         int
}

// AggregatedScheduleQuery filters the third-party aggregator table.
type AggregatedScheduleQuery struct {
	OriginUNLocode      string
	DestinationUNLocode string
	Carrier             string
	DepartureFrom       time.Time
	DepartureTo         time.Time
	Limit               int
}

// Repository is the canonical store access layer. The ingestion pipeline is
// the sole writer; the resolver and route finder are read-only consumers.
type Repository interface {
	// Carriers. FindCarrierByName matches the exact stored form;
	// FindCarrierByNameFold matches case-insensitively and returns the
	// oldest row when several case variants exist.
	FindCarrierByName(ctx context.Context, db *gorm.DB, name string) (*Carrier, error)
	FindCarrierByNameFold(ctx context.Context, db *gorm.DB, name string) (*Carrier, error)
	InsertCarrier(ctx context.Context, db *gorm.DB, carrier *Carrier) error
	UpdateCarrierName(ctx context.Context, db *gorm.DB, id snowflake.ID, name string) error

	// Vessels, keyed by IMO number.
	FindVesselByIMO(ctx context.Context, db *gorm.DB, imo string) (*Vessel, error)
	InsertVessel(ctx context.Context, db *gorm.DB, vessel *Vessel) error
	UpdateVesselName(ctx context.Context, db *gorm.DB, id snowflake.ID, name string) error

	// Services, keyed by (carrier, code).
	FindServiceByCode(ctx context.Context, db *gorm.DB, carrierID snowflake.ID, code string) (*Service, error)
	InsertService(ctx context.Context, db *gorm.DB, service *Service) error
	UpdateServiceName(ctx context.Context, db *gorm.DB, id snowflake.ID, name string) error

	// Voyages, keyed by (service, voyage number).
	FindVoyageByNumber(ctx context.Context, db *gorm.DB, serviceID snowflake.ID, voyageNumber string) (*Voyage, error)
	InsertVoyage(ctx context.Context, db *gorm.DB, voyage *Voyage) error
	UpdateVoyageVessel(ctx context.Context, db *gorm.DB, id snowflake.ID, vesselID *snowflake.ID) error

	// Locations are reference data, read by ingestion and written only by
	// the seeder.
	FindLocationByUNLocode(ctx context.Context, db *gorm.DB, unlocode string) (*Location, error)
	InsertLocation(ctx context.Context, db *gorm.DB, location *Location) error

	// Facilities, keyed by (location, SMDG code), created lazily.
	FindFacility(ctx context.Context, db *gorm.DB, locationID snowflake.ID, smdgCode string) (*Facility, error)
	InsertFacility(ctx context.Context, db *gorm.DB, facility *Facility) error

	// Transport calls, keyed by (voyage, sequence).
	FindTransportCall(ctx context.Context, db *gorm.DB, voyageID snowflake.ID, sequence int) (*TransportCall, error)
	InsertTransportCall(ctx context.Context, db *gorm.DB, call *TransportCall) error
	UpdateTransportCall(ctx context.Context, db *gorm.DB, call *TransportCall) error

	// Port call times, keyed by (transport call, event type, time kind).
	FindPortCallTime(ctx context.Context, db *gorm.DB, transportCallID snowflake.ID, eventType, timeKind string) (*PortCallTime, error)
	InsertPortCallTime(ctx context.Context, db *gorm.DB, t *PortCallTime) error
	UpdatePortCallTime(ctx context.Context, db *gorm.DB, id snowflake.ID, timestamp, updatedAt time.Time) error

	// Audit writes are append-only.
	InsertAudit(ctx context.Context, db *gorm.DB, audit *ScheduleSourceAudit) error

	// Read views.
	FindPortToPortRoutes(ctx context.Context, db *gorm.DB, q RouteQuery) ([]PortToPortRoute, error)
	FindNextDepartures(ctx context.Context, db *gorm.DB, q NextDepartureQuery) ([]NextDeparture, error)
	FindVoyagePortCalls(ctx context.Context, db *gorm.DB, voyageID snowflake.ID) ([]VoyagePortCall, error)
	FindDestinationETA(ctx context.Context, db *gorm.DB, voyageID snowflake.ID, unlocode string) (*DestinationETA, error)

	// Aggregator feed, the resolver's last-resort source.
	FindAggregatedSchedules(ctx context.Context, db *gorm.DB, q AggregatedScheduleQuery) ([]AggregatedSchedule, error)
}
