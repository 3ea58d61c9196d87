package service

import (
	"context"
	"testing"
	"time"

	"github.com/boxlane/boxlane/internal/migration"
	"github.com/boxlane/boxlane/internal/observability/metrics"
	routingdomain "github.com/boxlane/boxlane/internal/routing/domain"
	scheduledomain "github.com/boxlane/boxlane/internal/schedule/domain"
	"github.com/boxlane/boxlane/internal/schedule/repository"
	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var testNow = time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, migration.RunAutoMigrations(conn))
	require.NoError(t, migration.CreateViews(conn))
	return conn
}

// voyageSeed seeds one voyage calling the listed ports in order, with a
// departure time at every port but the last and an arrival time at every port
// but the first.
type voyageSeed struct {
	carrier string
	service string
	voyage  string
	calls   []callSeed
}

type callSeed struct {
	port      string
	arrival   time.Time
	departure time.Time
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

func (s *seeder) seed(t *testing.T, v voyageSeed) {
	t.Helper()
	carrierID := s.carrierID(t, v.carrier)
	serviceID := s.serviceID(t, carrierID, v.service)

	voyageID := s.node.Generate()
	require.NoError(t, s.conn.Create(&scheduledomain.Voyage{ID: voyageID, ServiceID: serviceID, VoyageNumber: v.voyage, CreatedAt: testNow, UpdatedAt: testNow}).Error)

	for i, call := range v.calls {
		callID := s.node.Generate()
		require.NoError(t, s.conn.Create(&scheduledomain.TransportCall{
			ID: callID, VoyageID: voyageID, Sequence: i + 1,
			LocationID: s.locationID(t, call.port),
			CreatedAt:  testNow, UpdatedAt: testNow,
		}).Error)
		if !call.arrival.IsZero() {
			require.NoError(t, s.conn.Create(&scheduledomain.PortCallTime{
				ID: s.node.Generate(), TransportCallID: callID,
				EventType: scheduledomain.EventArrival, TimeKind: scheduledomain.KindPlanned,
				Timestamp: call.arrival, UpdatedAt: testNow,
			}).Error)
		}
		if !call.departure.IsZero() {
			require.NoError(t, s.conn.Create(&scheduledomain.PortCallTime{
				ID: s.node.Generate(), TransportCallID: callID,
				EventType: scheduledomain.EventDeparture, TimeKind: scheduledomain.KindPlanned,
				Timestamp: call.departure, UpdatedAt: testNow,
			}).Error)
		}
	}
}

func newTestService(t *testing.T, conn *gorm.DB) routingdomain.Service {
	t.Helper()
	return New(Params{
		DB:      conn,
		Log:     zap.NewNop(),
		Repo:    repository.Provide(),
		Metrics: metrics.New(),
	})
}

func at(day, hour int) time.Time {
	return time.Date(2026, time.September, day, hour, 0, 0, 0, time.UTC)
}

func TestFindRoutes_DirectTransitDays(t *testing.T) {
	conn := openTestDB(t)
	seed := newSeeder(t, conn)
	seed.seed(t, voyageSeed{
		carrier: "MAERSK", service: "AE7", voyage: "101E",
		calls: []callSeed{
			{port: "CNSHA", departure: at(3, 10)},
			{port: "NLRTM", arrival: at(12, 10)},
		},
	})
	svc := newTestService(t, conn)

	itineraries, err := svc.FindRoutes(context.Background(), routingdomain.RouteQuery{POL: "CNSHA", POD: "NLRTM"})
	require.NoError(t, err)
	require.Len(t, itineraries, 1)

	it := itineraries[0]
	assert.Equal(t, routingdomain.PreferenceDirect, it.RoutePreference)
	require.Len(t, it.Legs, 1)
	assert.Equal(t, "CNSHA", it.Legs[0].OriginUNLocode)
	assert.Equal(t, "NLRTM", it.Legs[0].DestinationUNLocode)
	require.NotNil(t, it.TransitTimeDays)
	assert.Equal(t, 9, *it.TransitTimeDays)
}

func TestFindRoutes_TransshipmentConnectionThreshold(t *testing.T) {
	conn := openTestDB(t)
	seed := newSeeder(t, conn)
	// First leg arrives at SGSIN; one onward voyage departs exactly 24h
	// later, another only 12h later.
	seed.seed(t, voyageSeed{
		carrier: "MAERSK", service: "AE7", voyage: "101E",
		calls: []callSeed{
			{port: "CNSHA", departure: at(3, 10)},
			{port: "SGSIN", arrival: at(6, 10)},
		},
	})
	seed.seed(t, voyageSeed{
		carrier: "MAERSK", service: "ME2", voyage: "201W",
		calls: []callSeed{
			{port: "SGSIN", departure: at(7, 10)},
			{port: "NLRTM", arrival: at(25, 10)},
		},
	})
	seed.seed(t, voyageSeed{
		carrier: "MAERSK", service: "ME3", voyage: "301W",
		calls: []callSeed{
			{port: "SGSIN", departure: at(6, 22)},
			{port: "NLRTM", arrival: at(24, 10)},
		},
	})
	svc := newTestService(t, conn)

	itineraries, err := svc.FindRoutes(context.Background(), routingdomain.RouteQuery{
		POL:        "CNSHA",
		POD:        "NLRTM",
		Preference: routingdomain.PreferenceTransshipment,
	})
	require.NoError(t, err)
	require.Len(t, itineraries, 1)

	it := itineraries[0]
	assert.Equal(t, "SGSIN", it.TransshipmentPort)
	assert.Equal(t, "201W", it.Legs[1].VoyageNumber)
	require.NotNil(t, it.ConnectionHours)
	assert.InDelta(t, 24.0, *it.ConnectionHours, 0.001)
	require.NotNil(t, it.TransitTimeDays)
	assert.Equal(t, 22, *it.TransitTimeDays)
}

func TestFindRoutes_DirectRankedBeforeTransshipment(t *testing.T) {
	conn := openTestDB(t)
	seed := newSeeder(t, conn)
	// Transshipment option departs earlier than the direct option; direct
	// still ranks first.
	seed.seed(t, voyageSeed{
		carrier: "MAERSK", service: "AE7", voyage: "101E",
		calls: []callSeed{
			{port: "CNSHA", departure: at(8, 10)},
			{port: "NLRTM", arrival: at(30, 10)},
		},
	})
	seed.seed(t, voyageSeed{
		carrier: "MAERSK", service: "FE1", voyage: "111E",
		calls: []callSeed{
			{port: "CNSHA", departure: at(2, 10)},
			{port: "SGSIN", arrival: at(5, 10)},
		},
	})
	seed.seed(t, voyageSeed{
		carrier: "MAERSK", service: "ME2", voyage: "211W",
		calls: []callSeed{
			{port: "SGSIN", departure: at(8, 10)},
			{port: "NLRTM", arrival: at(27, 10)},
		},
	})
	svc := newTestService(t, conn)

	itineraries, err := svc.FindRoutes(context.Background(), routingdomain.RouteQuery{POL: "CNSHA", POD: "NLRTM"})
	require.NoError(t, err)
	require.Len(t, itineraries, 2)
	assert.Equal(t, routingdomain.PreferenceDirect, itineraries[0].RoutePreference)
	assert.Equal(t, routingdomain.PreferenceTransshipment, itineraries[1].RoutePreference)
}

func TestFindRoutes_SameCarrierOnly(t *testing.T) {
	conn := openTestDB(t)
	seed := newSeeder(t, conn)
	seed.seed(t, voyageSeed{
		carrier: "MAERSK", service: "FE1", voyage: "111E",
		calls: []callSeed{
			{port: "CNSHA", departure: at(2, 10)},
			{port: "SGSIN", arrival: at(5, 10)},
		},
	})
	seed.seed(t, voyageSeed{
		carrier: "HAPAG-LLOYD", service: "ME2", voyage: "211W",
		calls: []callSeed{
			{port: "SGSIN", departure: at(8, 10)},
			{port: "NLRTM", arrival: at(27, 10)},
		},
	})
	svc := newTestService(t, conn)

	mixed, err := svc.FindRoutes(context.Background(), routingdomain.RouteQuery{POL: "CNSHA", POD: "NLRTM"})
	require.NoError(t, err)
	require.Len(t, mixed, 1)
	assert.Equal(t, "MAERSK", mixed[0].Legs[0].CarrierName)
	assert.Equal(t, "HAPAG-LLOYD", mixed[0].Legs[1].CarrierName)

	sameOnly, err := svc.FindRoutes(context.Background(), routingdomain.RouteQuery{
		POL: "CNSHA", POD: "NLRTM", SameCarrierOnly: true,
	})
	require.NoError(t, err)
	assert.Empty(t, sameOnly)
}

func TestFindRoutes_CarrierAndServiceFilters(t *testing.T) {
	conn := openTestDB(t)
	seed := newSeeder(t, conn)
	seed.seed(t, voyageSeed{
		carrier: "MAERSK", service: "AE7", voyage: "101E",
		calls: []callSeed{
			{port: "CNSHA", departure: at(3, 10)},
			{port: "NLRTM", arrival: at(28, 10)},
		},
	})
	seed.seed(t, voyageSeed{
		carrier: "HAPAG-LLOYD", service: "FE2", voyage: "077W",
		calls: []callSeed{
			{port: "CNSHA", departure: at(4, 10)},
			{port: "NLRTM", arrival: at(29, 10)},
		},
	})
	svc := newTestService(t, conn)

	itineraries, err := svc.FindRoutes(context.Background(), routingdomain.RouteQuery{
		POL: "CNSHA", POD: "NLRTM", CarrierName: "hapag-lloyd",
	})
	require.NoError(t, err)
	require.Len(t, itineraries, 1)
	assert.Equal(t, "077W", itineraries[0].Legs[0].VoyageNumber)

	itineraries, err = svc.FindRoutes(context.Background(), routingdomain.RouteQuery{
		POL: "CNSHA", POD: "NLRTM", ServiceCode: "ae7",
	})
	require.NoError(t, err)
	require.Len(t, itineraries, 1)
	assert.Equal(t, "101E", itineraries[0].Legs[0].VoyageNumber)
}
