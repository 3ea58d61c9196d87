package service

import (
	"context"
	"fmt"
	"time"

	"github.com/boxlane/boxlane/internal/carrier"
	carrierdomain "github.com/boxlane/boxlane/internal/carrier/domain"
	"github.com/boxlane/boxlane/internal/clock"
	"github.com/boxlane/boxlane/internal/observability/logger"
	"github.com/boxlane/boxlane/internal/observability/metrics"
	resolverdomain "github.com/boxlane/boxlane/internal/resolver/domain"
	scheduledomain "github.com/boxlane/boxlane/internal/schedule/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Repo     scheduledomain.Repository
	Carriers *carrier.Provider
	Clock    clock.Clock
	Metrics  *metrics.Metrics
	Sources  *metrics.SourceRecorder
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	repo     scheduledomain.Repository
	carriers *carrier.Provider
	clock    clock.Clock
	metrics  *metrics.Metrics
	sources  *metrics.SourceRecorder
}

func New(p Params) resolverdomain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("resolver.service"),
		repo:     p.Repo,
		carriers: p.Carriers,
		clock:    p.Clock,
		metrics:  p.Metrics,
		sources:  p.Sources,
	}
}

// GetEarliestDeparture resolves from the canonical store first, then the
// carrier's live API, then the aggregator feed, stopping at the first source
// with a plausible result. A suspicious result (transit under the sanity
// threshold) triggers the next source but is still returned, with a logged
// warning, when nothing better turns up.
func (s *Service) GetEarliestDeparture(ctx context.Context, q resolverdomain.DepartureQuery) (resolverdomain.Result, error) {
	log := logger.FromContext(ctx).Named("resolver")

	origin := scheduledomain.NormalizeUNLocode(q.OriginUNLocode)
	destination := scheduledomain.NormalizeUNLocode(q.DestinationUNLocode)
	carrierName := scheduledomain.NormalizeCarrierName(q.CarrierName)

	cutoff := q.CargoReadyDate
	if cutoff.IsZero() {
		now := s.clock.Now().UTC()
		cutoff = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	}

	var suspicious []resolverdomain.Departure

	canonical, err := s.fromCanonicalStore(ctx, origin, destination, carrierName, cutoff, q.RateValidTo)
	if err != nil {
		return resolverdomain.Result{}, err
	}
	if len(canonical) > 0 {
		if !canonical[0].Suspicious {
			return s.finish(metrics.SourceCanonical, canonical, q), nil
		}
		log.Warn("canonical result has implausible transit time, trying fallback sources",
			zap.String("origin", origin),
			zap.String("destination", destination),
			zap.String("carrier", carrierName),
		)
		suspicious = canonical
	}

	live, err := s.fromLiveAPI(ctx, origin, destination, carrierName, cutoff, q.RateValidTo)
	if err != nil {
		log.Warn("live carrier API fallback failed",
			zap.String("carrier", carrierName),
			zap.Error(err),
		)
	} else if len(live) > 0 {
		if !live[0].Suspicious {
			return s.finish(metrics.SourceLiveAPI, live, q), nil
		}
		if suspicious == nil {
			suspicious = live
		}
	}

	aggregated, err := s.fromAggregator(ctx, origin, destination, carrierName, cutoff, q.RateValidTo)
	if err != nil {
		return resolverdomain.Result{}, err
	}
	if len(aggregated) > 0 && !aggregated[0].Suspicious {
		return s.finish(metrics.SourceAggregator, aggregated, q), nil
	}
	if suspicious == nil && len(aggregated) > 0 {
		suspicious = aggregated
	}

	// Never drop a suspicious result silently when no better source
	// succeeded.
	if len(suspicious) > 0 {
		log.Warn("returning suspicious departure, no better source available",
			zap.String("source", suspicious[0].Source),
			zap.String("origin", origin),
			zap.String("carrier", carrierName),
		)
		return s.finish(suspicious[0].Source, suspicious, q), nil
	}

	s.metrics.RecordResolution(metrics.SourceNone)
	s.sources.Record(metrics.SourceNone, s.clock.Now())

	message := fmt.Sprintf("no departures found for carrier %s from %s", carrierName, origin)
	if destination != "" {
		message = fmt.Sprintf("no departures found for carrier %s from %s to %s", carrierName, origin, destination)
	}
	message += fmt.Sprintf(" on or after %s", cutoff.Format("2006-01-02"))

	return resolverdomain.Result{
		Earliest: resolverdomain.Departure{Found: false, Message: message},
		Upcoming: []resolverdomain.Departure{},
	}, nil
}

func (s *Service) finish(source string, departures []resolverdomain.Departure, q resolverdomain.DepartureQuery) resolverdomain.Result {
	s.metrics.RecordResolution(source)
	s.sources.Record(source, s.clock.Now())

	result := resolverdomain.Result{
		Earliest: departures[0],
		Upcoming: []resolverdomain.Departure{},
	}
	if q.IncludeUpcoming && len(departures) > 1 {
		limit := q.UpcomingLimit
		if limit <= 0 {
			limit = resolverdomain.DefaultUpcomingLimit
		}
		rest := departures[1:]
		if len(rest) > limit {
			rest = rest[:limit]
		}
		result.Upcoming = rest
	}
	return result
}

func (s *Service) fromCanonicalStore(ctx context.Context, origin, destination, carrierName string, cutoff, rateValidTo time.Time) ([]resolverdomain.Departure, error) {
	if destination != "" {
		routes, err := s.repo.FindPortToPortRoutes(ctx, s.db, scheduledomain.RouteQuery{
			OriginUNLocode:      origin,
			DestinationUNLocode: destination,
			DepartureFrom:       cutoff,
			DepartureTo:         rateValidTo,
		})
		if err != nil {
			return nil, err
		}

		var departures []resolverdomain.Departure
		for _, route := range routes {
			if carrierName != "" && scheduledomain.NormalizeCarrierName(route.CarrierName) != carrierName {
				continue
			}
			departure := departureFromRoute(route)
			s.recomputeTransit(ctx, &departure, route, destination)
			markSuspicious(&departure)
			departures = append(departures, departure)
		}
		return departures, nil
	}

	// Without a destination there is no port pair to resolve; the next
	// departure out of the origin is the answer.
	rows, err := s.repo.FindNextDepartures(ctx, s.db, scheduledomain.NextDepartureQuery{
		UNLocode:      origin,
		DepartureFrom: cutoff,
	})
	if err != nil {
		return nil, err
	}

	var departures []resolverdomain.Departure
	for _, row := range rows {
		if carrierName != "" && scheduledomain.NormalizeCarrierName(row.CarrierName) != carrierName {
			continue
		}
		if !rateValidTo.IsZero() && row.BestDeparture.After(rateValidTo) {
			continue
		}
		etd := row.BestDeparture
		departures = append(departures, resolverdomain.Departure{
			Found:              true,
			Source:             metrics.SourceCanonical,
			ETD:                &etd,
			PlannedDeparture:   row.PlannedDeparture,
			EstimatedDeparture: row.EstimatedDeparture,
			ServiceCode:        row.ServiceCode,
			VoyageNumber:       row.VoyageNumber,
			VesselName:         row.VesselName,
			VesselIMO:          row.VesselIMO,
		})
	}
	return departures, nil
}

// fromLiveAPI is only attempted for carriers with a configured live adapter,
// and only when a destination is supplied: point-to-point lookup needs both
// ends.
func (s *Service) fromLiveAPI(ctx context.Context, origin, destination, carrierName string, cutoff, rateValidTo time.Time) ([]resolverdomain.Departure, error) {
	if destination == "" || carrierName == "" {
		return nil, nil
	}
	adapter, ok := s.carriers.AdapterFor(carrierName)
	if !ok {
		return nil, nil
	}

	routes, err := adapter.FetchPointToPoint(ctx, carrierdomain.PointToPointRequest{
		OriginUNLocode:      origin,
		DestinationUNLocode: destination,
		FromDate:            cutoff,
	})
	if err != nil {
		return nil, err
	}

	var departures []resolverdomain.Departure
	for _, route := range routes {
		if route.Departure.IsZero() || route.Departure.Before(cutoff) {
			continue
		}
		if !rateValidTo.IsZero() && route.Departure.After(rateValidTo) {
			continue
		}

		etd := route.Departure
		departure := resolverdomain.Departure{
			Found:        true,
			Source:       metrics.SourceLiveAPI,
			ETD:          &etd,
			ServiceCode:  route.ServiceCode,
			VoyageNumber: route.VoyageNumber,
			VesselName:   route.VesselName,
			VesselIMO:    route.VesselIMO,
		}
		if route.Arrival != nil {
			transit := transitDays(route.Departure, *route.Arrival)
			departure.TransitTimeDays = &transit
		} else if route.TransitTimeDays > 0 {
			transit := route.TransitTimeDays
			departure.TransitTimeDays = &transit
		}
		markSuspicious(&departure)
		departures = append(departures, departure)
	}
	return departures, nil
}

func (s *Service) fromAggregator(ctx context.Context, origin, destination, carrierName string, cutoff, rateValidTo time.Time) ([]resolverdomain.Departure, error) {
	rows, err := s.repo.FindAggregatedSchedules(ctx, s.db, scheduledomain.AggregatedScheduleQuery{
		OriginUNLocode:      origin,
		DestinationUNLocode: destination,
		Carrier:             carrierName,
		DepartureFrom:       cutoff,
		DepartureTo:         rateValidTo,
	})
	if err != nil {
		return nil, err
	}

	var departures []resolverdomain.Departure
	for _, row := range rows {
		etd := row.DepartureTime
		departure := resolverdomain.Departure{
			Found:        true,
			Source:       metrics.SourceAggregator,
			ETD:          &etd,
			ServiceCode:  row.ServiceCode,
			VoyageNumber: row.VoyageNumber,
			VesselName:   row.VesselName,
			VesselIMO:    row.VesselIMO,
		}
		if row.ArrivalTime != nil {
			transit := transitDays(row.DepartureTime, *row.ArrivalTime)
			departure.TransitTimeDays = &transit
		} else if row.TransitTimeDays != nil {
			departure.TransitTimeDays = row.TransitTimeDays
		}
		markSuspicious(&departure)
		departures = append(departures, departure)
	}
	return departures, nil
}

// recomputeTransit resolves the arrival through the destination_etas view,
// which always points at the voyage's first call at the destination. The
// route pair can point at a later repeat call of the same port, inflating
// the transit time.
func (s *Service) recomputeTransit(ctx context.Context, departure *resolverdomain.Departure, route scheduledomain.PortToPortRoute, destination string) {
	eta, err := s.repo.FindDestinationETA(ctx, s.db, route.VoyageID, destination)
	if err != nil {
		logger.FromContext(ctx).Warn("destination eta lookup failed, keeping route arrival",
			zap.Int64("voyage_id", route.VoyageID.Int64()),
			zap.String("destination", destination),
			zap.Error(err),
		)
		return
	}
	if eta == nil || eta.BestArrival.IsZero() || route.BestDeparture.IsZero() {
		return
	}
	transit := transitDays(route.BestDeparture, eta.BestArrival)
	departure.TransitTimeDays = &transit
}

func departureFromRoute(route scheduledomain.PortToPortRoute) resolverdomain.Departure {
	etd := route.BestDeparture
	departure := resolverdomain.Departure{
		Found:              true,
		Source:             metrics.SourceCanonical,
		ETD:                &etd,
		PlannedDeparture:   route.PlannedDeparture,
		EstimatedDeparture: route.EstimatedDeparture,
		ServiceCode:        route.ServiceCode,
		VoyageNumber:       route.VoyageNumber,
		VesselName:         route.VesselName,
		VesselIMO:          route.VesselIMO,
	}
	if !route.BestArrival.IsZero() && !route.BestDeparture.IsZero() {
		transit := transitDays(route.BestDeparture, route.BestArrival)
		departure.TransitTimeDays = &transit
	}
	return departure
}

func markSuspicious(d *resolverdomain.Departure) {
	if d.TransitTimeDays != nil && *d.TransitTimeDays < resolverdomain.SuspiciousTransitDays {
		d.Suspicious = true
	}
}

func transitDays(departure, arrival time.Time) int {
	return int(arrival.Sub(departure).Hours() / 24)
}
