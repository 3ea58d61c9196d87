package domain

import (
	"context"
	"errors"
	"time"

	scheduledomain "github.com/boxlane/boxlane/internal/schedule/domain"
)

// ErrNoLiveAdapter means the carrier has no enabled live adapter configured.
var ErrNoLiveAdapter = errors.New("no live adapter configured for carrier")

// ErrSyncInProgress means another sync already holds the carrier's lock.
var ErrSyncInProgress = errors.New("carrier sync already in progress")

// SyncRequest selects which schedules to pull from a carrier's live API.
type SyncRequest struct {
	CarrierName  string    `json:"carrier_name"`
	ServiceCode  string    `json:"service_code,omitempty"`
	VoyageNumber string    `json:"voyage_number,omitempty"`
	DateFrom     time.Time `json:"date_from,omitempty"`
	DateTo       time.Time `json:"date_to,omitempty"`
}

// SyncResult counts one batch sync. Per-message failures are counted and
// logged, never aborting the batch.
type SyncResult struct {
	CarrierName string `json:"carrier_name"`
	Fetched     int    `json:"fetched"`
	Ingested    int    `json:"ingested"`
	Failed      int    `json:"failed"`
}

type Service interface {
	// ProcessSchedule upserts one schedule message into the canonical
	// store. Fails only on missing required fields or storage errors;
	// everything else is best-effort.
	ProcessSchedule(ctx context.Context, msg scheduledomain.ScheduleMessage) error

	// SyncCarrierSchedules fetches from the carrier's live adapter and
	// ingests each returned message independently.
	SyncCarrierSchedules(ctx context.Context, req SyncRequest) (SyncResult, error)

	// SyncCarrierServices bootstraps the (service code, name) pairs
	// visible in a broad discovery query. Returns how many services were
	// upserted.
	SyncCarrierServices(ctx context.Context, carrierName string) (int, error)
}
