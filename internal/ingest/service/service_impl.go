package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/boxlane/boxlane/internal/carrier"
	carrierdomain "github.com/boxlane/boxlane/internal/carrier/domain"
	"github.com/boxlane/boxlane/internal/clock"
	ingestdomain "github.com/boxlane/boxlane/internal/ingest/domain"
	"github.com/boxlane/boxlane/internal/observability/logger"
	"github.com/boxlane/boxlane/internal/observability/metrics"
	"github.com/boxlane/boxlane/internal/ratelimit"
	scheduledomain "github.com/boxlane/boxlane/internal/schedule/domain"
	"github.com/boxlane/boxlane/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Repo     scheduledomain.Repository
	Carriers *carrier.Provider
	Clock    clock.Clock
	Metrics  *metrics.Metrics
	Limiter  *ratelimit.IngestLimiter `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	repo     scheduledomain.Repository
	carriers *carrier.Provider
	clock    clock.Clock
	metrics  *metrics.Metrics
	limiter  *ratelimit.IngestLimiter
}

func New(p Params) ingestdomain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("ingest.service"),
		genID:    p.GenID,
		repo:     p.Repo,
		carriers: p.Carriers,
		clock:    p.Clock,
		metrics:  p.Metrics,
		limiter:  p.Limiter,
	}
}

// ProcessSchedule runs the five-stage upsert: carrier, vessel, service,
// voyage, then every port call. Each stage needs the previous stage's id, so
// the order is fixed. Concurrent ingestion of the same natural key is
// recovered by re-reading after a uniqueness conflict instead of failing.
func (s *Service) ProcessSchedule(ctx context.Context, msg scheduledomain.ScheduleMessage) error {
	if err := msg.Validate(); err != nil {
		s.metrics.RecordIngestFailure(msg.CarrierName, "missing_required_field")
		return err
	}

	log := logger.FromContext(ctx).Named("ingest")

	carrierRow, err := s.ensureCarrier(ctx, msg.CarrierName)
	if err != nil {
		s.metrics.RecordIngestFailure(msg.CarrierName, "carrier_upsert")
		return fmt.Errorf("ensure carrier: %w", err)
	}

	var vesselID *snowflake.ID
	if strings.TrimSpace(msg.VesselIMO) != "" {
		vessel, err := s.ensureVessel(ctx, msg.VesselIMO, msg.VesselName)
		if err != nil {
			s.metrics.RecordIngestFailure(msg.CarrierName, "vessel_upsert")
			return fmt.Errorf("ensure vessel: %w", err)
		}
		vesselID = &vessel.ID
	}

	serviceRow, err := s.ensureService(ctx, carrierRow.ID, msg.ServiceCode, msg.ServiceName)
	if err != nil {
		s.metrics.RecordIngestFailure(msg.CarrierName, "service_upsert")
		return fmt.Errorf("ensure service: %w", err)
	}

	voyage, err := s.ensureVoyage(ctx, serviceRow.ID, msg.VoyageNumber, vesselID)
	if err != nil {
		s.metrics.RecordIngestFailure(msg.CarrierName, "voyage_upsert")
		return fmt.Errorf("ensure voyage: %w", err)
	}

	for _, call := range msg.PortCalls {
		if err := s.upsertPortCall(ctx, voyage.ID, call, log); err != nil {
			s.metrics.RecordIngestFailure(msg.CarrierName, "port_call_upsert")
			return fmt.Errorf("upsert port call %d: %w", call.Sequence, err)
		}
	}

	s.recordAudit(ctx, msg, log)
	s.metrics.RecordScheduleIngested(msg.CarrierName, "ok")
	return nil
}

func (s *Service) SyncCarrierSchedules(ctx context.Context, req ingestdomain.SyncRequest) (ingestdomain.SyncResult, error) {
	carrierName := scheduledomain.NormalizeCarrierName(req.CarrierName)
	result := ingestdomain.SyncResult{CarrierName: carrierName}

	adapter, ok := s.carriers.AdapterFor(carrierName)
	if !ok {
		return result, ingestdomain.ErrNoLiveAdapter
	}

	// One sync per carrier at a time, across instances. Redis being down
	// must not stop ingestion, so lock errors degrade to a lockless sync.
	if s.limiter.Enabled() {
		token, acquired, err := s.limiter.TryLockCarrierSync(ctx, carrierName)
		if err != nil {
			s.log.Warn("carrier sync lock unavailable, continuing without it",
				zap.String("carrier", carrierName),
				zap.Error(err),
			)
		} else if !acquired {
			return result, ingestdomain.ErrSyncInProgress
		} else {
			defer func() {
				if err := s.limiter.ReleaseCarrierSync(context.WithoutCancel(ctx), carrierName, token); err != nil {
					s.log.Warn("carrier sync lock release failed", zap.String("carrier", carrierName), zap.Error(err))
				}
			}()
		}
	}

	messages, err := adapter.FetchSchedules(ctx, carrierAdapterRequest(req))
	if err != nil {
		return result, fmt.Errorf("fetch schedules from %s: %w", carrierName, err)
	}
	result.Fetched = len(messages)

	log := logger.FromContext(ctx).Named("ingest")
	for _, msg := range messages {
		if err := s.ProcessSchedule(ctx, msg); err != nil {
			result.Failed++
			log.Warn("schedule message failed, continuing batch",
				zap.String("carrier", carrierName),
				zap.String("service_code", msg.ServiceCode),
				zap.String("voyage_number", msg.VoyageNumber),
				zap.Error(err),
			)
			continue
		}
		result.Ingested++
	}

	log.Info("carrier sync finished",
		zap.String("carrier", carrierName),
		zap.Int("fetched", result.Fetched),
		zap.Int("ingested", result.Ingested),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

func (s *Service) SyncCarrierServices(ctx context.Context, carrierName string) (int, error) {
	normalized := scheduledomain.NormalizeCarrierName(carrierName)

	adapter, ok := s.carriers.AdapterFor(normalized)
	if !ok {
		return 0, ingestdomain.ErrNoLiveAdapter
	}

	services, err := adapter.DiscoverServices(ctx)
	if err != nil {
		return 0, fmt.Errorf("discover services for %s: %w", normalized, err)
	}

	carrierRow, err := s.ensureCarrier(ctx, normalized)
	if err != nil {
		return 0, fmt.Errorf("ensure carrier: %w", err)
	}

	count := 0
	for _, info := range services {
		if strings.TrimSpace(info.Code) == "" {
			continue
		}
		if _, err := s.ensureService(ctx, carrierRow.ID, info.Code, info.Name); err != nil {
			return count, fmt.Errorf("ensure service %s: %w", info.Code, err)
		}
		count++
	}
	return count, nil
}

// ensureCarrier resolves the carrier row for a name. The canonical stored
// form is the upper-cased trimmed name; when only a case variant exists the
// variant is renamed, unless the rename would collide with a normalized row
// that appeared concurrently, in which case that row wins.
func (s *Service) ensureCarrier(ctx context.Context, name string) (*scheduledomain.Carrier, error) {
	normalized := scheduledomain.NormalizeCarrierName(name)

	row, err := s.repo.FindCarrierByName(ctx, s.db, normalized)
	if err != nil {
		return nil, err
	}
	if row != nil {
		return row, nil
	}

	variant, err := s.repo.FindCarrierByNameFold(ctx, s.db, normalized)
	if err != nil {
		return nil, err
	}
	if variant != nil {
		if variant.Name == normalized {
			return variant, nil
		}
		if err := s.repo.UpdateCarrierName(ctx, s.db, variant.ID, normalized); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return s.requeryCarrier(ctx, normalized, err)
			}
			return nil, err
		}
		variant.Name = normalized
		return variant, nil
	}

	now := s.clock.Now()
	created := &scheduledomain.Carrier{
		ID:        s.genID.Generate(),
		Name:      normalized,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.InsertCarrier(ctx, s.db, created); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return s.requeryCarrier(ctx, normalized, err)
		}
		return nil, err
	}
	return created, nil
}

func (s *Service) requeryCarrier(ctx context.Context, normalized string, cause error) (*scheduledomain.Carrier, error) {
	row, err := s.repo.FindCarrierByName(ctx, s.db, normalized)
	if err != nil {
		return nil, err
	}
	if row == nil {
		row, err = s.repo.FindCarrierByNameFold(ctx, s.db, normalized)
		if err != nil {
			return nil, err
		}
	}
	if row == nil {
		return nil, cause
	}
	return row, nil
}

func (s *Service) ensureVessel(ctx context.Context, imo, name string) (*scheduledomain.Vessel, error) {
	imo = strings.TrimSpace(imo)
	name = strings.TrimSpace(name)

	row, err := s.repo.FindVesselByIMO(ctx, s.db, imo)
	if err != nil {
		return nil, err
	}
	if row != nil {
		if name != "" && row.Name != name {
			if err := s.repo.UpdateVesselName(ctx, s.db, row.ID, name); err != nil {
				return nil, err
			}
			row.Name = name
		}
		return row, nil
	}

	now := s.clock.Now()
	created := &scheduledomain.Vessel{
		ID:        s.genID.Generate(),
		IMONumber: imo,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.InsertVessel(ctx, s.db, created); err != nil {
		if db.IsDuplicateKeyErr(err) {
			row, ferr := s.repo.FindVesselByIMO(ctx, s.db, imo)
			if ferr != nil {
				return nil, ferr
			}
			if row != nil {
				return row, nil
			}
		}
		return nil, err
	}
	return created, nil
}

func (s *Service) ensureService(ctx context.Context, carrierID snowflake.ID, code, name string) (*scheduledomain.Service, error) {
	code = strings.TrimSpace(code)
	name = strings.TrimSpace(name)

	row, err := s.repo.FindServiceByCode(ctx, s.db, carrierID, code)
	if err != nil {
		return nil, err
	}
	if row != nil {
		if name != "" && row.Name != name {
			if err := s.repo.UpdateServiceName(ctx, s.db, row.ID, name); err != nil {
				return nil, err
			}
			row.Name = name
		}
		return row, nil
	}

	now := s.clock.Now()
	created := &scheduledomain.Service{
		ID:        s.genID.Generate(),
		CarrierID: carrierID,
		Code:      code,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.InsertService(ctx, s.db, created); err != nil {
		if db.IsDuplicateKeyErr(err) {
			row, ferr := s.repo.FindServiceByCode(ctx, s.db, carrierID, code)
			if ferr != nil {
				return nil, ferr
			}
			if row != nil {
				return row, nil
			}
		}
		return nil, err
	}
	return created, nil
}

func (s *Service) ensureVoyage(ctx context.Context, serviceID snowflake.ID, voyageNumber string, vesselID *snowflake.ID) (*scheduledomain.Voyage, error) {
	voyageNumber = strings.TrimSpace(voyageNumber)

	row, err := s.repo.FindVoyageByNumber(ctx, s.db, serviceID, voyageNumber)
	if err != nil {
		return nil, err
	}
	if row != nil {
		if vesselID != nil && (row.VesselID == nil || *row.VesselID != *vesselID) {
			if err := s.repo.UpdateVoyageVessel(ctx, s.db, row.ID, vesselID); err != nil {
				return nil, err
			}
			row.VesselID = vesselID
		}
		return row, nil
	}

	now := s.clock.Now()
	created := &scheduledomain.Voyage{
		ID:           s.genID.Generate(),
		ServiceID:    serviceID,
		VoyageNumber: voyageNumber,
		VesselID:     vesselID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.InsertVoyage(ctx, s.db, created); err != nil {
		if db.IsDuplicateKeyErr(err) {
			row, ferr := s.repo.FindVoyageByNumber(ctx, s.db, serviceID, voyageNumber)
			if ferr != nil {
				return nil, ferr
			}
			if row != nil {
				return row, nil
			}
		}
		return nil, err
	}
	return created, nil
}

// upsertPortCall resolves the call's location, lazily creates the facility,
// upserts the transport call and finally its time triples. A call whose
// UN/LOCODE is unknown is skipped; the rest of the voyage still ingests.
func (s *Service) upsertPortCall(ctx context.Context, voyageID snowflake.ID, call scheduledomain.PortCallMessage, log *zap.Logger) error {
	location, err := s.repo.FindLocationByUNLocode(ctx, s.db, call.UNLocode)
	if err != nil {
		return err
	}
	if location == nil {
		log.Warn("skipping port call with unknown location",
			zap.String("unlocode", call.UNLocode),
			zap.Int("sequence", call.Sequence),
		)
		return nil
	}

	var facilityID *snowflake.ID
	if strings.TrimSpace(call.FacilitySMDGCode) != "" {
		facility, err := s.ensureFacility(ctx, location.ID, call.FacilitySMDGCode)
		if err != nil {
			return err
		}
		facilityID = &facility.ID
	}

	transportCall, err := s.ensureTransportCall(ctx, voyageID, call, location.ID, facilityID)
	if err != nil {
		return err
	}

	for _, t := range call.Times {
		if t.Timestamp.IsZero() {
			continue
		}
		if err := s.upsertPortCallTime(ctx, transportCall.ID, t); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) ensureFacility(ctx context.Context, locationID snowflake.ID, smdgCode string) (*scheduledomain.Facility, error) {
	smdgCode = strings.ToUpper(strings.TrimSpace(smdgCode))

	row, err := s.repo.FindFacility(ctx, s.db, locationID, smdgCode)
	if err != nil {
		return nil, err
	}
	if row != nil {
		return row, nil
	}

	created := &scheduledomain.Facility{
		ID:         s.genID.Generate(),
		LocationID: locationID,
		SMDGCode:   smdgCode,
		CreatedAt:  s.clock.Now(),
	}
	if err := s.repo.InsertFacility(ctx, s.db, created); err != nil {
		if db.IsDuplicateKeyErr(err) {
			row, ferr := s.repo.FindFacility(ctx, s.db, locationID, smdgCode)
			if ferr != nil {
				return nil, ferr
			}
			if row != nil {
				return row, nil
			}
		}
		return nil, err
	}
	return created, nil
}

func (s *Service) ensureTransportCall(ctx context.Context, voyageID snowflake.ID, call scheduledomain.PortCallMessage, locationID snowflake.ID, facilityID *snowflake.ID) (*scheduledomain.TransportCall, error) {
	row, err := s.repo.FindTransportCall(ctx, s.db, voyageID, call.Sequence)
	if err != nil {
		return nil, err
	}
	if row != nil {
		changed := row.LocationID != locationID ||
			!equalID(row.FacilityID, facilityID) ||
			row.ImportVoyageNumber != call.ImportVoyageNumber ||
			row.ExportVoyageNumber != call.ExportVoyageNumber
		if changed {
			row.LocationID = locationID
			row.FacilityID = facilityID
			row.ImportVoyageNumber = call.ImportVoyageNumber
			row.ExportVoyageNumber = call.ExportVoyageNumber
			row.UpdatedAt = s.clock.Now()
			if err := s.repo.UpdateTransportCall(ctx, s.db, row); err != nil {
				return nil, err
			}
		}
		return row, nil
	}

	now := s.clock.Now()
	created := &scheduledomain.TransportCall{
		ID:                 s.genID.Generate(),
		VoyageID:           voyageID,
		Sequence:           call.Sequence,
		LocationID:         locationID,
		FacilityID:         facilityID,
		ImportVoyageNumber: call.ImportVoyageNumber,
		ExportVoyageNumber: call.ExportVoyageNumber,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.repo.InsertTransportCall(ctx, s.db, created); err != nil {
		if db.IsDuplicateKeyErr(err) {
			row, ferr := s.repo.FindTransportCall(ctx, s.db, voyageID, call.Sequence)
			if ferr != nil {
				return nil, ferr
			}
			if row != nil {
				return row, nil
			}
		}
		return nil, err
	}
	return created, nil
}

// upsertPortCallTime is per (event type, time kind) triple: update in place
// if present, insert otherwise. Triples absent from the message stay as they
// are.
func (s *Service) upsertPortCallTime(ctx context.Context, transportCallID snowflake.ID, t scheduledomain.PortCallTimeMessage) error {
	row, err := s.repo.FindPortCallTime(ctx, s.db, transportCallID, t.EventType, t.TimeKind)
	if err != nil {
		return err
	}
	if row != nil {
		if row.Timestamp.Equal(t.Timestamp) {
			return nil
		}
		return s.repo.UpdatePortCallTime(ctx, s.db, row.ID, t.Timestamp, s.clock.Now())
	}

	created := &scheduledomain.PortCallTime{
		ID:              s.genID.Generate(),
		TransportCallID: transportCallID,
		EventType:       t.EventType,
		TimeKind:        t.TimeKind,
		Timestamp:       t.Timestamp,
		UpdatedAt:       s.clock.Now(),
	}
	if err := s.repo.InsertPortCallTime(ctx, s.db, created); err != nil {
		if db.IsDuplicateKeyErr(err) {
			row, ferr := s.repo.FindPortCallTime(ctx, s.db, transportCallID, t.EventType, t.TimeKind)
			if ferr != nil {
				return ferr
			}
			if row != nil {
				return s.repo.UpdatePortCallTime(ctx, s.db, row.ID, t.Timestamp, s.clock.Now())
			}
		}
		return err
	}
	return nil
}

// recordAudit is fire-and-forget: its failure is logged and swallowed, never
// propagated to the caller.
func (s *Service) recordAudit(ctx context.Context, msg scheduledomain.ScheduleMessage, log *zap.Logger) {
	payload, err := json.Marshal(msg)
	if err != nil {
		log.Warn("audit payload marshal failed", zap.Error(err))
		return
	}

	audit := &scheduledomain.ScheduleSourceAudit{
		ID:           s.genID.Generate(),
		CarrierName:  scheduledomain.NormalizeCarrierName(msg.CarrierName),
		SourceSystem: msg.SourceSystem,
		Payload:      payload,
		CreatedAt:    s.clock.Now(),
	}
	if err := s.repo.InsertAudit(ctx, s.db, audit); err != nil {
		log.Warn("schedule audit write failed",
			zap.String("carrier", audit.CarrierName),
			zap.Error(err),
		)
	}
}

func carrierAdapterRequest(req ingestdomain.SyncRequest) carrierdomain.ScheduleRequest {
	return carrierdomain.ScheduleRequest{
		ServiceCode:  strings.TrimSpace(req.ServiceCode),
		VoyageNumber: strings.TrimSpace(req.VoyageNumber),
		DateFrom:     req.DateFrom,
		DateTo:       req.DateTo,
	}
}

func equalID(a, b *snowflake.ID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
