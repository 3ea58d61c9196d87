package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/boxlane/boxlane/internal/observability/metrics"
	routingdomain "github.com/boxlane/boxlane/internal/routing/domain"
	scheduledomain "github.com/boxlane/boxlane/internal/schedule/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Repo    scheduledomain.Repository
	Metrics *metrics.Metrics
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	repo    scheduledomain.Repository
	metrics *metrics.Metrics
}

func New(p Params) routingdomain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("routing.service"),
		repo:    p.Repo,
		metrics: p.Metrics,
	}
}

func (s *Service) FindRoutes(ctx context.Context, q routingdomain.RouteQuery) ([]routingdomain.Itinerary, error) {
	pol := scheduledomain.NormalizeUNLocode(q.POL)
	pod := scheduledomain.NormalizeUNLocode(q.POD)
	carrierName := scheduledomain.NormalizeCarrierName(q.CarrierName)

	minConnection := q.MinConnectionHours
	if minConnection <= 0 {
		minConnection = routingdomain.DefaultMinConnectionHours
	}

	var itineraries []routingdomain.Itinerary

	if q.Preference == "" || q.Preference == routingdomain.PreferenceDirect {
		direct, err := s.findDirect(ctx, pol, pod, carrierName, q)
		if err != nil {
			return nil, fmt.Errorf("direct search: %w", err)
		}
		itineraries = append(itineraries, direct...)
		s.metrics.RecordRouteSearch(routingdomain.PreferenceDirect)
	}

	// A direct option existing never suppresses transshipment options:
	// carriers schedule both on the same lane.
	if q.Preference == "" || q.Preference == routingdomain.PreferenceTransshipment {
		transshipment, err := s.findTransshipment(ctx, pol, pod, carrierName, minConnection, q)
		if err != nil {
			return nil, fmt.Errorf("transshipment search: %w", err)
		}
		itineraries = append(itineraries, transshipment...)
		s.metrics.RecordRouteSearch(routingdomain.PreferenceTransshipment)
	}

	sortItineraries(itineraries)
	return itineraries, nil
}

func (s *Service) findDirect(ctx context.Context, pol, pod, carrierName string, q routingdomain.RouteQuery) ([]routingdomain.Itinerary, error) {
	routes, err := s.repo.FindPortToPortRoutes(ctx, s.db, scheduledomain.RouteQuery{
		OriginUNLocode:      pol,
		DestinationUNLocode: pod,
		DepartureFrom:       q.DepartureFrom,
		DepartureTo:         q.DepartureTo,
	})
	if err != nil {
		return nil, err
	}

	var itineraries []routingdomain.Itinerary
	for _, route := range routes {
		if !matchesFilters(route, carrierName, q.ServiceCode) {
			continue
		}
		transit := transitDays(route.BestDeparture, route.BestArrival)
		itineraries = append(itineraries, routingdomain.Itinerary{
			RoutePreference: routingdomain.PreferenceDirect,
			Legs:            []routingdomain.Leg{legFromRoute(route)},
			TransitTimeDays: &transit,
		})
	}
	return itineraries, nil
}

// findTransshipment enumerates, for every voyage departing POL, its later
// calls as candidate transshipment ports, then scans each candidate for
// onward voyages towards POD. Candidates are scanned sequentially to bound
// database load; one bad candidate degrades the result set, never the whole
// request.
func (s *Service) findTransshipment(ctx context.Context, pol, pod, carrierName string, minConnectionHours int, q routingdomain.RouteQuery) ([]routingdomain.Itinerary, error) {
	firstLegs, err := s.repo.FindPortToPortRoutes(ctx, s.db, scheduledomain.RouteQuery{
		OriginUNLocode: pol,
		DepartureFrom:  q.DepartureFrom,
		DepartureTo:    q.DepartureTo,
	})
	if err != nil {
		return nil, err
	}

	var itineraries []routingdomain.Itinerary
	for _, firstLeg := range firstLegs {
		// Reaching POD on the first voyage is the direct case.
		if firstLeg.DestinationUNLocode == pod {
			continue
		}
		if carrierName != "" && scheduledomain.NormalizeCarrierName(firstLeg.CarrierName) != carrierName {
			continue
		}
		if q.ServiceCode != "" && !equalFoldCode(firstLeg.ServiceCode, q.ServiceCode) {
			continue
		}
		if firstLeg.BestArrival.IsZero() {
			continue
		}

		earliestOnward := firstLeg.BestArrival.Add(time.Duration(minConnectionHours) * time.Hour)
		secondLegs, err := s.repo.FindPortToPortRoutes(ctx, s.db, scheduledomain.RouteQuery{
			OriginUNLocode:      firstLeg.DestinationUNLocode,
			DestinationUNLocode: pod,
			DepartureFrom:       earliestOnward,
			ExcludeVoyageID:     firstLeg.VoyageID,
		})
		if err != nil {
			s.log.Warn("transshipment candidate scan failed, skipping",
				zap.String("transshipment_port", firstLeg.DestinationUNLocode),
				zap.Error(err),
			)
			continue
		}

		for _, secondLeg := range secondLegs {
			if carrierName != "" && scheduledomain.NormalizeCarrierName(secondLeg.CarrierName) != carrierName {
				continue
			}
			if q.ServiceCode != "" && !equalFoldCode(secondLeg.ServiceCode, q.ServiceCode) {
				continue
			}
			if q.SameCarrierOnly &&
				scheduledomain.NormalizeCarrierName(firstLeg.CarrierName) != scheduledomain.NormalizeCarrierName(secondLeg.CarrierName) {
				continue
			}
			if !q.DepartureTo.IsZero() && secondLeg.BestArrival.After(q.DepartureTo) {
				continue
			}

			connection := secondLeg.BestDeparture.Sub(firstLeg.BestArrival).Hours()
			transit := transitDays(firstLeg.BestDeparture, secondLeg.BestArrival)
			itineraries = append(itineraries, routingdomain.Itinerary{
				RoutePreference:   routingdomain.PreferenceTransshipment,
				Legs:              []routingdomain.Leg{legFromRoute(firstLeg), legFromRoute(secondLeg)},
				TransshipmentPort: firstLeg.DestinationUNLocode,
				ConnectionHours:   &connection,
				TransitTimeDays:   &transit,
			})
		}
	}
	return itineraries, nil
}

// sortItineraries ranks all direct itineraries before all transshipment
// itineraries, each group by departure ascending.
func sortItineraries(itineraries []routingdomain.Itinerary) {
	rank := func(it routingdomain.Itinerary) int {
		if it.RoutePreference == routingdomain.PreferenceDirect {
			return 0
		}
		return 1
	}
	sort.SliceStable(itineraries, func(i, j int) bool {
		ri, rj := rank(itineraries[i]), rank(itineraries[j])
		if ri != rj {
			return ri < rj
		}
		return itineraries[i].Legs[0].Departure.Before(itineraries[j].Legs[0].Departure)
	})
}

func matchesFilters(route scheduledomain.PortToPortRoute, carrierName, serviceCode string) bool {
	if carrierName != "" && scheduledomain.NormalizeCarrierName(route.CarrierName) != carrierName {
		return false
	}
	if serviceCode != "" && !equalFoldCode(route.ServiceCode, serviceCode) {
		return false
	}
	return true
}

func equalFoldCode(a, b string) bool {
	return scheduledomain.NormalizeServiceCode(a) == scheduledomain.NormalizeServiceCode(b)
}

func legFromRoute(route scheduledomain.PortToPortRoute) routingdomain.Leg {
	return routingdomain.Leg{
		CarrierName:         route.CarrierName,
		ServiceCode:         route.ServiceCode,
		VoyageNumber:        route.VoyageNumber,
		VesselName:          route.VesselName,
		VesselIMO:           route.VesselIMO,
		OriginUNLocode:      route.OriginUNLocode,
		DestinationUNLocode: route.DestinationUNLocode,
		Departure:           route.BestDeparture,
		Arrival:             route.BestArrival,
	}
}

func transitDays(departure, arrival time.Time) int {
	return int(arrival.Sub(departure).Hours() / 24)
}
