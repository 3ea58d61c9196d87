package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/boxlane/boxlane/internal/clock"
	"github.com/boxlane/boxlane/internal/config"
	ingestdomain "github.com/boxlane/boxlane/internal/ingest/domain"
	"github.com/boxlane/boxlane/internal/observability/metrics"
	scheduledomain "github.com/boxlane/boxlane/internal/schedule/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubIngest struct {
	syncRequests    []ingestdomain.SyncRequest
	serviceCarriers []string
	syncErr         map[string]error
}

func (s *stubIngest) ProcessSchedule(context.Context, scheduledomain.ScheduleMessage) error {
	return nil
}

func (s *stubIngest) SyncCarrierSchedules(_ context.Context, req ingestdomain.SyncRequest) (ingestdomain.SyncResult, error) {
	s.syncRequests = append(s.syncRequests, req)
	if err := s.syncErr[req.CarrierName]; err != nil {
		return ingestdomain.SyncResult{CarrierName: req.CarrierName}, err
	}
	return ingestdomain.SyncResult{CarrierName: req.CarrierName, Fetched: 3, Ingested: 3}, nil
}

func (s *stubIngest) SyncCarrierServices(_ context.Context, carrierName string) (int, error) {
	s.serviceCarriers = append(s.serviceCarriers, carrierName)
	return 2, nil
}

func holderWith(carriers ...config.CarrierConfig) *config.CarrierConfigHolder {
	return config.NewStaticCarrierConfigHolder(config.CarriersConfig{
		Sync:     config.SyncConfig{Interval: time.Minute, WindowDays: 45},
		Carriers: carriers,
	})
}

func newTestScheduler(t *testing.T, ingest *stubIngest, holder *config.CarrierConfigHolder) (*Scheduler, *clock.FakeClock) {
	t.Helper()
	fake := clock.NewFakeClock(time.Date(2026, 9, 1, 6, 30, 0, 0, time.UTC))
	sched, err := New(Params{
		Log:     zap.NewNop(),
		Ingest:  ingest,
		Holder:  holder,
		Clock:   fake,
		Metrics: metrics.New(),
	})
	require.NoError(t, err)
	return sched, fake
}

func TestRunOnce_SyncsEnabledCarriersOnly(t *testing.T) {
	ingest := &stubIngest{}
	holder := holderWith(
		config.CarrierConfig{Name: "MAERSK", Adapter: "maersk", Enabled: true},
		config.CarrierConfig{Name: "HAPAG-LLOYD", Adapter: "hapag", Enabled: false},
	)
	sched, _ := newTestScheduler(t, ingest, holder)

	require.NoError(t, sched.RunOnce(context.Background()))

	require.Len(t, ingest.syncRequests, 1)
	req := ingest.syncRequests[0]
	assert.Equal(t, "MAERSK", req.CarrierName)
	assert.True(t, req.DateFrom.Equal(time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, req.DateTo.Equal(time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)))
}

func TestRunOnce_DiscoversServicesOncePerCarrier(t *testing.T) {
	ingest := &stubIngest{}
	holder := holderWith(config.CarrierConfig{Name: "MAERSK", Adapter: "maersk", Enabled: true})
	sched, _ := newTestScheduler(t, ingest, holder)

	require.NoError(t, sched.RunOnce(context.Background()))
	require.NoError(t, sched.RunOnce(context.Background()))

	assert.Equal(t, []string{"MAERSK"}, ingest.serviceCarriers)
	assert.Len(t, ingest.syncRequests, 2)
}

func TestRunOnce_OneCarrierFailingDoesNotBlockOthers(t *testing.T) {
	syncErr := errors.New("upstream 503")
	ingest := &stubIngest{syncErr: map[string]error{"MAERSK": syncErr}}
	holder := holderWith(
		config.CarrierConfig{Name: "MAERSK", Adapter: "maersk", Enabled: true},
		config.CarrierConfig{Name: "HAPAG-LLOYD", Adapter: "hapag", Enabled: true},
	)
	sched, _ := newTestScheduler(t, ingest, holder)

	err := sched.RunOnce(context.Background())
	assert.ErrorIs(t, err, syncErr)
	assert.Len(t, ingest.syncRequests, 2)
}

func TestRunOnce_MissingAdapterIsConfigProblemNotFailure(t *testing.T) {
	ingest := &stubIngest{syncErr: map[string]error{"MAERSK": ingestdomain.ErrNoLiveAdapter}}
	holder := holderWith(config.CarrierConfig{Name: "MAERSK", Adapter: "unknown", Enabled: true})
	sched, _ := newTestScheduler(t, ingest, holder)

	assert.NoError(t, sched.RunOnce(context.Background()))
}
