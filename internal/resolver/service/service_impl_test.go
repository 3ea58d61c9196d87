package service

import (
	"context"
	"testing"
	"time"

	"github.com/boxlane/boxlane/internal/carrier"
	"github.com/boxlane/boxlane/internal/carrier/adapters"
	carrierdomain "github.com/boxlane/boxlane/internal/carrier/domain"
	"github.com/boxlane/boxlane/internal/clock"
	"github.com/boxlane/boxlane/internal/config"
	"github.com/boxlane/boxlane/internal/migration"
	"github.com/boxlane/boxlane/internal/observability/metrics"
	resolverdomain "github.com/boxlane/boxlane/internal/resolver/domain"
	scheduledomain "github.com/boxlane/boxlane/internal/schedule/domain"
	"github.com/boxlane/boxlane/internal/schedule/repository"
	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var testNow = time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, migration.RunAutoMigrations(conn))
	require.NoError(t, migration.CreateViews(conn))
	return conn
}

type laneSeed struct {
	carrier     string
	service     string
	voyage      string
	origin      string
	destination string
	departure   time.Time
	arrival     time.Time
}

type seeder struct {
	conn *gorm.DB
	node *snowflake.Node

	carriers  map[string]snowflake.ID
	services  map[string]snowflake.ID
	locations map[string]snowflake.ID
}

func newSeeder(t *testing.T, conn *gorm.DB) *seeder {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return &seeder{
		conn:      conn,
		node:      node,
		carriers:  map[string]snowflake.ID{},
		services:  map[string]snowflake.ID{},
		locations: map[string]snowflake.ID{},
	}
}

func (s *seeder) carrierID(t *testing.T, name string) snowflake.ID {
	t.Helper()
	if id, ok := s.carriers[name]; ok {
		return id
	}
	id := s.node.Generate()
	require.NoError(t, s.conn.Create(&scheduledomain.Carrier{ID: id, Name: name, CreatedAt: testNow, UpdatedAt: testNow}).Error)
	s.carriers[name] = id
	return id
}

func (s *seeder) serviceID(t *testing.T, carrierID snowflake.ID, code string) snowflake.ID {
	t.Helper()
	key := carrierID.String() + "/" + code
	if id, ok := s.services[key]; ok {
		return id
	}
	id := s.node.Generate()
	require.NoError(t, s.conn.Create(&scheduledomain.Service{ID: id, CarrierID: carrierID, Code: code, CreatedAt: testNow, UpdatedAt: testNow}).Error)
	s.services[key] = id
	return id
}

func (s *seeder) locationID(t *testing.T, unlocode string) snowflake.ID {
	t.Helper()
	if id, ok := s.locations[unlocode]; ok {
		return id
	}
	id := s.node.Generate()
	require.NoError(t, s.conn.Create(&scheduledomain.Location{ID: id, UNLocode: unlocode, CreatedAt: testNow}).Error)
	s.locations[unlocode] = id
	return id
}

func (s *seeder) lane(t *testing.T, lane laneSeed) {
	t.Helper()
	carrierID := s.carrierID(t, lane.carrier)
	serviceID := s.serviceID(t, carrierID, lane.service)

	voyageID := s.node.Generate()
	require.NoError(t, s.conn.Create(&scheduledomain.Voyage{ID: voyageID, ServiceID: serviceID, VoyageNumber: lane.voyage, CreatedAt: testNow, UpdatedAt: testNow}).Error)

	originCall := s.node.Generate()
	require.NoError(t, s.conn.Create(&scheduledomain.TransportCall{ID: originCall, VoyageID: voyageID, Sequence: 1, LocationID: s.locationID(t, lane.origin), CreatedAt: testNow, UpdatedAt: testNow}).Error)
	destCall := s.node.Generate()
	require.NoError(t, s.conn.Create(&scheduledomain.TransportCall{ID: destCall, VoyageID: voyageID, Sequence: 2, LocationID: s.locationID(t, lane.destination), CreatedAt: testNow, UpdatedAt: testNow}).Error)

	require.NoError(t, s.conn.Create(&scheduledomain.PortCallTime{ID: s.node.Generate(), TransportCallID: originCall, EventType: scheduledomain.EventDeparture, TimeKind: scheduledomain.KindPlanned, Timestamp: lane.departure, UpdatedAt: testNow}).Error)
	require.NoError(t, s.conn.Create(&scheduledomain.PortCallTime{ID: s.node.Generate(), TransportCallID: destCall, EventType: scheduledomain.EventArrival, TimeKind: scheduledomain.KindPlanned, Timestamp: lane.arrival, UpdatedAt: testNow}).Error)
}

type stubAdapter struct {
	routes []carrierdomain.PointToPointRoute
}

func (s *stubAdapter) CarrierName() string { return "MAERSK" }

func (s *stubAdapter) FetchSchedules(context.Context, carrierdomain.ScheduleRequest) ([]scheduledomain.ScheduleMessage, error) {
	return nil, nil
}

func (s *stubAdapter) FetchPointToPoint(context.Context, carrierdomain.PointToPointRequest) ([]carrierdomain.PointToPointRoute, error) {
	return s.routes, nil
}

func (s *stubAdapter) DiscoverServices(context.Context) ([]carrierdomain.ServiceInfo, error) {
	return nil, nil
}

type stubFactory struct {
	adapter *stubAdapter
}

func (f *stubFactory) Provider() string { return "stub" }

func (f *stubFactory) NewAdapter(carrierdomain.AdapterConfig) (carrierdomain.Adapter, error) {
	return f.adapter, nil
}

func stubProvider(adapter *stubAdapter, carriers ...string) *carrier.Provider {
	entries := make([]config.CarrierConfig, 0, len(carriers))
	for _, name := range carriers {
		entries = append(entries, config.CarrierConfig{Name: name, Adapter: "stub", Enabled: true})
	}
	holder := config.NewStaticCarrierConfigHolder(config.CarriersConfig{Carriers: entries})
	registry := adapters.NewRegistry(&stubFactory{adapter: adapter})
	return carrier.NewProvider(registry, holder, zap.NewNop())
}

func newTestService(t *testing.T, conn *gorm.DB, provider *carrier.Provider) resolverdomain.Service {
	t.Helper()
	if provider == nil {
		provider = stubProvider(&stubAdapter{})
	}
	return New(Params{
		DB:       conn,
		Log:      zap.NewNop(),
		Repo:     repository.Provide(),
		Carriers: provider,
		Clock:    clock.NewFakeClock(testNow),
		Metrics:  metrics.New(),
		Sources:  metrics.NewSourceRecorder(),
	})
}

func day(d int) time.Time {
	return time.Date(2026, time.September, d, 10, 0, 0, 0, time.UTC)
}

func TestGetEarliestDeparture_CanonicalStoreWins(t *testing.T) {
	conn := openTestDB(t)
	seed := newSeeder(t, conn)
	seed.lane(t, laneSeed{carrier: "MAERSK", service: "AE7", voyage: "101E", origin: "CNSHA", destination: "NLRTM", departure: day(5), arrival: day(30)})
	seed.lane(t, laneSeed{carrier: "MAERSK", service: "AE7", voyage: "103E", origin: "CNSHA", destination: "NLRTM", departure: day(12), arrival: day(37)})
	svc := newTestService(t, conn, nil)

	result, err := svc.GetEarliestDeparture(context.Background(), resolverdomain.DepartureQuery{
		OriginUNLocode:      "cnsha",
		DestinationUNLocode: "nlrtm",
		CarrierName:         "Maersk",
	})
	require.NoError(t, err)

	require.True(t, result.Earliest.Found)
	assert.Equal(t, metrics.SourceCanonical, result.Earliest.Source)
	require.NotNil(t, result.Earliest.ETD)
	assert.True(t, result.Earliest.ETD.Equal(day(5)))
	assert.Equal(t, "101E", result.Earliest.VoyageNumber)
	require.NotNil(t, result.Earliest.TransitTimeDays)
	assert.Equal(t, 25, *result.Earliest.TransitTimeDays)
	assert.False(t, result.Earliest.Suspicious)
	assert.Empty(t, result.Upcoming)
}

func TestGetEarliestDeparture_UpcomingTruncatedToLimit(t *testing.T) {
	conn := openTestDB(t)
	seed := newSeeder(t, conn)
	for i := 0; i < 7; i++ {
		seed.lane(t, laneSeed{
			carrier: "MAERSK", service: "AE7", voyage: "10" + string(rune('0'+i)) + "E",
			origin: "CNSHA", destination: "NLRTM",
			departure: day(2 + i), arrival: day(27 + i),
		})
	}
	svc := newTestService(t, conn, nil)

	result, err := svc.GetEarliestDeparture(context.Background(), resolverdomain.DepartureQuery{
		OriginUNLocode:      "CNSHA",
		DestinationUNLocode: "NLRTM",
		CarrierName:         "MAERSK",
		IncludeUpcoming:     true,
	})
	require.NoError(t, err)
	assert.Len(t, result.Upcoming, resolverdomain.DefaultUpcomingLimit)
	assert.True(t, result.Earliest.ETD.Equal(day(2)))
	for _, upcoming := range result.Upcoming {
		assert.Equal(t, metrics.SourceCanonical, upcoming.Source)
	}
}

func TestGetEarliestDeparture_TransitUsesFirstDestinationCall(t *testing.T) {
	conn := openTestDB(t)
	seed := newSeeder(t, conn)

	carrierID := seed.carrierID(t, "MAERSK")
	serviceID := seed.serviceID(t, carrierID, "AE7")
	voyageID := seed.node.Generate()
	require.NoError(t, conn.Create(&scheduledomain.Voyage{ID: voyageID, ServiceID: serviceID, VoyageNumber: "101E", CreatedAt: testNow, UpdatedAt: testNow}).Error)

	// The voyage calls NLRTM twice; the ETA at the destination is the first
	// touch, not the later repeat call.
	calls := []struct {
		sequence int
		port     string
		event    string
		ts       time.Time
	}{
		{1, "CNSHA", scheduledomain.EventDeparture, day(3)},
		{2, "NLRTM", scheduledomain.EventArrival, day(28)},
		{3, "NLRTM", scheduledomain.EventArrival, day(30)},
	}
	for _, call := range calls {
		callID := seed.node.Generate()
		require.NoError(t, conn.Create(&scheduledomain.TransportCall{ID: callID, VoyageID: voyageID, Sequence: call.sequence, LocationID: seed.locationID(t, call.port), CreatedAt: testNow, UpdatedAt: testNow}).Error)
		require.NoError(t, conn.Create(&scheduledomain.PortCallTime{ID: seed.node.Generate(), TransportCallID: callID, EventType: call.event, TimeKind: scheduledomain.KindPlanned, Timestamp: call.ts, UpdatedAt: testNow}).Error)
	}

	svc := newTestService(t, conn, nil)
	result, err := svc.GetEarliestDeparture(context.Background(), resolverdomain.DepartureQuery{
		OriginUNLocode:      "CNSHA",
		DestinationUNLocode: "NLRTM",
		CarrierName:         "MAERSK",
		IncludeUpcoming:     true,
	})
	require.NoError(t, err)

	require.True(t, result.Earliest.Found)
	require.NotNil(t, result.Earliest.TransitTimeDays)
	assert.Equal(t, 25, *result.Earliest.TransitTimeDays)
	for _, upcoming := range result.Upcoming {
		require.NotNil(t, upcoming.TransitTimeDays)
		assert.Equal(t, 25, *upcoming.TransitTimeDays)
	}
}

func TestGetEarliestDeparture_SuspiciousTransitFallsBackToAggregator(t *testing.T) {
	conn := openTestDB(t)
	seed := newSeeder(t, conn)
	// Two days port to port is implausible for an ocean leg.
	seed.lane(t, laneSeed{carrier: "MAERSK", service: "AE7", voyage: "101E", origin: "CNSHA", destination: "NLRTM", departure: day(5), arrival: day(7)})

	transit := 27
	require.NoError(t, conn.Create(&scheduledomain.AggregatedSchedule{
		ID:                  snowflake.ID(999001),
		CarrierName:         "MAERSK",
		OriginUNLocode:      "CNSHA",
		DestinationUNLocode: "NLRTM",
		VoyageNumber:        "101E",
		DepartureTime:       day(6),
		TransitTimeDays:     &transit,
		CreatedAt:           testNow,
		UpdatedAt:           testNow,
	}).Error)

	svc := newTestService(t, conn, nil)
	result, err := svc.GetEarliestDeparture(context.Background(), resolverdomain.DepartureQuery{
		OriginUNLocode:      "CNSHA",
		DestinationUNLocode: "NLRTM",
		CarrierName:         "MAERSK",
	})
	require.NoError(t, err)
	assert.Equal(t, metrics.SourceAggregator, result.Earliest.Source)
	assert.Equal(t, 27, *result.Earliest.TransitTimeDays)
	assert.False(t, result.Earliest.Suspicious)
}

func TestGetEarliestDeparture_SuspiciousReturnedWhenNothingBetter(t *testing.T) {
	conn := openTestDB(t)
	seed := newSeeder(t, conn)
	seed.lane(t, laneSeed{carrier: "MAERSK", service: "AE7", voyage: "101E", origin: "CNSHA", destination: "NLRTM", departure: day(5), arrival: day(7)})
	svc := newTestService(t, conn, nil)

	result, err := svc.GetEarliestDeparture(context.Background(), resolverdomain.DepartureQuery{
		OriginUNLocode:      "CNSHA",
		DestinationUNLocode: "NLRTM",
		CarrierName:         "MAERSK",
	})
	require.NoError(t, err)
	require.True(t, result.Earliest.Found)
	assert.Equal(t, metrics.SourceCanonical, result.Earliest.Source)
	assert.True(t, result.Earliest.Suspicious)
}

func TestGetEarliestDeparture_LiveAPIFallback(t *testing.T) {
	conn := openTestDB(t)
	arrival := day(29)
	provider := stubProvider(&stubAdapter{
		routes: []carrierdomain.PointToPointRoute{
			{
				ServiceCode:         "AE7",
				VoyageNumber:        "104E",
				OriginUNLocode:      "CNSHA",
				DestinationUNLocode: "NLRTM",
				Departure:           day(4),
				Arrival:             &arrival,
			},
		},
	}, "MAERSK")
	svc := newTestService(t, conn, provider)

	result, err := svc.GetEarliestDeparture(context.Background(), resolverdomain.DepartureQuery{
		OriginUNLocode:      "CNSHA",
		DestinationUNLocode: "NLRTM",
		CarrierName:         "MAERSK",
	})
	require.NoError(t, err)
	assert.Equal(t, metrics.SourceLiveAPI, result.Earliest.Source)
	assert.Equal(t, "104E", result.Earliest.VoyageNumber)
	assert.Equal(t, 25, *result.Earliest.TransitTimeDays)
}

func TestGetEarliestDeparture_RateValidityFiltersDepartures(t *testing.T) {
	conn := openTestDB(t)
	seed := newSeeder(t, conn)
	seed.lane(t, laneSeed{carrier: "MAERSK", service: "AE7", voyage: "101E", origin: "CNSHA", destination: "NLRTM", departure: day(20), arrival: day(45)})
	svc := newTestService(t, conn, nil)

	result, err := svc.GetEarliestDeparture(context.Background(), resolverdomain.DepartureQuery{
		OriginUNLocode:      "CNSHA",
		DestinationUNLocode: "NLRTM",
		CarrierName:         "MAERSK",
		RateValidTo:         day(10),
	})
	require.NoError(t, err)
	assert.False(t, result.Earliest.Found)
}

func TestGetEarliestDeparture_NotFoundMessage(t *testing.T) {
	conn := openTestDB(t)
	svc := newTestService(t, conn, nil)

	result, err := svc.GetEarliestDeparture(context.Background(), resolverdomain.DepartureQuery{
		OriginUNLocode:      "CNSHA",
		DestinationUNLocode: "NLRTM",
		CarrierName:         "MAERSK",
		CargoReadyDate:      day(1),
	})
	require.NoError(t, err)
	assert.False(t, result.Earliest.Found)
	assert.Equal(t, "no departures found for carrier MAERSK from CNSHA to NLRTM on or after 2026-09-01", result.Earliest.Message)
	assert.Empty(t, result.Upcoming)
}
