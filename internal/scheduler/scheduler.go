package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/boxlane/boxlane/internal/clock"
	"github.com/boxlane/boxlane/internal/config"
	ingestdomain "github.com/boxlane/boxlane/internal/ingest/domain"
	"github.com/boxlane/boxlane/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrInvalidConfig = errors.New("scheduler: missing dependency")

type Params struct {
	fx.In

	Log     *zap.Logger
	Ingest  ingestdomain.Service
	Holder  *config.CarrierConfigHolder
	Clock   clock.Clock
	Metrics *metrics.Metrics
	Config  Config `optional:"true"`
}

// Scheduler pulls schedules from every enabled carrier on a fixed interval.
// The carrier list is re-read from the config holder on each run, so
// enabling a carrier in carriers.yml takes effect without a restart.
type Scheduler struct {
	log     *zap.Logger
	ingest  ingestdomain.Service
	holder  *config.CarrierConfigHolder
	clock   clock.Clock
	metrics *metrics.Metrics
	cfg     Config

	discovered map[string]bool
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.Ingest == nil || p.Holder == nil || p.Clock == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		log:        p.Log.Named("scheduler"),
		ingest:     p.Ingest,
		holder:     p.Holder,
		clock:      p.Clock,
		metrics:    p.Metrics,
		cfg:        p.Config.withDefaults(),
		discovered: make(map[string]bool),
	}, nil
}

// RunOnce syncs every enabled carrier. One carrier failing never blocks the
// others; the joined error reports all of them.
func (s *Scheduler) RunOnce(parent context.Context) error {
	carriersCfg := s.holder.Get()

	var err error
	for _, carrier := range carriersCfg.Enabled() {
		err = errors.Join(err, s.syncCarrier(parent, carrier, carriersCfg.Sync))
	}
	return err
}

func (s *Scheduler) syncCarrier(parent context.Context, carrier config.CarrierConfig, sync config.SyncConfig) error {
	ctx, cancel := context.WithTimeout(parent, s.cfg.SyncTimeout)
	defer cancel()

	log := s.log.With(zap.String("carrier", carrier.Name))
	start := s.clock.Now()

	if s.cfg.DiscoverServices && !s.discovered[carrier.Name] {
		count, err := s.ingest.SyncCarrierServices(ctx, carrier.Name)
		if err != nil {
			log.Warn("service discovery failed", zap.Error(err))
		} else {
			s.discovered[carrier.Name] = true
			log.Info("services discovered", zap.Int("count", count))
		}
	}

	now := s.clock.Now().UTC()
	dateFrom := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	result, err := s.ingest.SyncCarrierSchedules(ctx, ingestdomain.SyncRequest{
		CarrierName: carrier.Name,
		DateFrom:    dateFrom,
		DateTo:      dateFrom.AddDate(0, 0, sync.WindowDays),
	})
	if err != nil {
		if errors.Is(err, ingestdomain.ErrNoLiveAdapter) {
			// Enabled in carriers.yml but the adapter name is unknown;
			// config problem, not a sync failure.
			log.Warn("no adapter for enabled carrier", zap.String("adapter", carrier.Adapter))
			return nil
		}
		if errors.Is(err, ingestdomain.ErrSyncInProgress) {
			// Another instance or a manual trigger holds the carrier's
			// sync lock. The next tick picks it up.
			log.Info("carrier sync already running elsewhere, skipping")
			return nil
		}
		s.metrics.RecordSyncRun(carrier.Name, "error")
		log.Warn("carrier sync failed", zap.Error(err))
		return fmt.Errorf("sync %s: %w", carrier.Name, err)
	}

	s.metrics.RecordSyncRun(carrier.Name, "ok")
	log.Info("carrier sync completed",
		zap.Int("fetched", result.Fetched),
		zap.Int("ingested", result.Ingested),
		zap.Int("failed", result.Failed),
		zap.Duration("duration", s.clock.Now().Sub(start)),
	)
	return nil
}

// RunForever loops RunOnce until ctx is canceled.
func (s *Scheduler) RunForever(ctx context.Context) {
	interval := s.cfg.RunInterval
	if interval <= 0 {
		interval = s.holder.Get().Sync.Interval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
