package domain

import (
	"context"
	"errors"
	"net/http"
	"time"

	scheduledomain "github.com/boxlane/boxlane/internal/schedule/domain"
)

var (
	ErrAdapterNotFound = errors.New("carrier adapter not found")
	ErrInvalidConfig   = errors.New("invalid carrier adapter config")
)

// AdapterConfig carries one carrier's connection settings, sourced from the
// hot-reloadable carrier config file.
type AdapterConfig struct {
	CarrierName  string
	BaseURL      string
	APIKey       string
	RateLimitRPS float64
	Timeout      time.Duration
}

// ScheduleRequest selects which vessel schedules to fetch.
type ScheduleRequest struct {
	ServiceCode  string
	VoyageNumber string
	DateFrom     time.Time
	DateTo       time.Time
	Cursor       string
	Limit        int
}

// PointToPointRequest is a live origin/destination lookup. Both ends are
// required.
type PointToPointRequest struct {
	OriginUNLocode      string
	DestinationUNLocode string
	FromDate            time.Time
	Limit               int
}

// PointToPointRoute is one leg option returned by a carrier's point-to-point
// endpoint. Arrival and the carrier-reported transit figure may be absent.
type PointToPointRoute struct {
	ServiceCode         string
	VoyageNumber        string
	VesselName          string
	VesselIMO           string
	OriginUNLocode      string
	DestinationUNLocode string
	Departure           time.Time
	Arrival             *time.Time
	TransitTimeDays     int
}

// ServiceInfo is one (service code, service name) pair from discovery.
type ServiceInfo struct {
	Code string
	Name string
}

// Adapter is the per-carrier capability interface. Implementations never
// suppress transport errors; classifying and recovering is the ingestion
// pipeline's job.
type Adapter interface {
	CarrierName() string
	FetchSchedules(ctx context.Context, req ScheduleRequest) ([]scheduledomain.ScheduleMessage, error)
	FetchPointToPoint(ctx context.Context, req PointToPointRequest) ([]PointToPointRoute, error)
	DiscoverServices(ctx context.Context) ([]ServiceInfo, error)
}

// Factory builds an adapter for one carrier API flavour.
type Factory interface {
	Provider() string
	NewAdapter(cfg AdapterConfig) (Adapter, error)
}

// StatusError preserves an upstream non-success HTTP status.
type StatusError struct {
	StatusCode int
	Status     string
}

func (e StatusError) Error() string {
	if e.Status != "" {
		return e.Status
	}
	return http.StatusText(e.StatusCode)
}

// Class buckets the status for logging and metrics.
func (e StatusError) Class() string {
	switch {
	case e.StatusCode >= 500:
		return "server_error"
	case e.StatusCode >= 400:
		return "client_error"
	default:
		return "unexpected_status"
	}
}
