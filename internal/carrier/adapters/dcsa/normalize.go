package dcsa

import (
	"sort"
	"strings"

	scheduledomain "github.com/boxlane/boxlane/internal/schedule/domain"
)

// normalizeServiceSchedule turns one raw service schedule into canonical
// schedule messages, one per distinct export voyage number. A single vessel
// schedule from a carrier may interleave calls of several voyages of the
// same vessel and service.
func (a *Adapter) normalizeServiceSchedule(schedule rawServiceSchedule) []scheduledomain.ScheduleMessage {
	var messages []scheduledomain.ScheduleMessage
	for _, vesselSchedule := range schedule.VesselSchedules {
		messages = append(messages, a.splitVoyages(schedule, vesselSchedule)...)
	}
	return messages
}

func (a *Adapter) splitVoyages(schedule rawServiceSchedule, vesselSchedule rawVesselSchedule) []scheduledomain.ScheduleMessage {
	groups := map[string][]rawTransportCall{}
	var order []string

	for _, call := range vesselSchedule.TransportCalls {
		voyageNumber := strings.TrimSpace(call.CarrierExportVoyageNumber)
		if voyageNumber == "" {
			// No export voyage reference; the import side still
			// identifies the sailing the call belongs to.
			voyageNumber = strings.TrimSpace(call.CarrierImportVoyageNumber)
		}
		if voyageNumber == "" {
			continue
		}
		if _, ok := groups[voyageNumber]; !ok {
			order = append(order, voyageNumber)
		}
		groups[voyageNumber] = append(groups[voyageNumber], call)
	}

	messages := make([]scheduledomain.ScheduleMessage, 0, len(order))
	for _, voyageNumber := range order {
		calls := normalizeCalls(groups[voyageNumber])
		messages = append(messages, scheduledomain.ScheduleMessage{
			CarrierName:  a.carrierName,
			SourceSystem: a.sourceSystem,
			ServiceCode:  strings.TrimSpace(schedule.CarrierServiceCode),
			ServiceName:  strings.TrimSpace(schedule.CarrierServiceName),
			VoyageNumber: voyageNumber,
			VesselName:   strings.TrimSpace(vesselSchedule.Vessel.Name),
			VesselIMO:    strings.TrimSpace(vesselSchedule.Vessel.VesselIMONumber),
			PortCalls:    calls,
		})
	}
	return messages
}

// normalizeCalls sorts a voyage's calls chronologically by the earliest
// available timestamp per call and assigns sequence numbers after sorting.
// Calls without any timestamp are kept, ordered after the timed calls in
// their input order.
func normalizeCalls(calls []rawTransportCall) []scheduledomain.PortCallMessage {
	normalized := make([]scheduledomain.PortCallMessage, 0, len(calls))
	for _, call := range calls {
		normalized = append(normalized, scheduledomain.PortCallMessage{
			UNLocode:           scheduledomain.NormalizeUNLocode(call.Location.UNLocationCode),
			FacilitySMDGCode:   strings.TrimSpace(call.Location.FacilitySMDGCode),
			ImportVoyageNumber: strings.TrimSpace(call.CarrierImportVoyageNumber),
			ExportVoyageNumber: strings.TrimSpace(call.CarrierExportVoyageNumber),
			Times:              normalizeTimestamps(call.Timestamps),
		})
	}

	sort.SliceStable(normalized, func(i, j int) bool {
		ti, oki := normalized[i].EarliestTimestamp()
		tj, okj := normalized[j].EarliestTimestamp()
		if oki != okj {
			return oki
		}
		if !oki {
			return false
		}
		return ti.Before(tj)
	})

	for i := range normalized {
		normalized[i].Sequence = i + 1
	}
	return normalized
}

func normalizeTimestamps(timestamps []rawTimestamp) []scheduledomain.PortCallTimeMessage {
	var times []scheduledomain.PortCallTimeMessage
	for _, ts := range timestamps {
		eventType, ok := eventTypeFor(ts.EventTypeCode)
		if !ok {
			continue
		}
		timeKind, ok := timeKindFor(ts.EventClassifierCode)
		if !ok {
			continue
		}
		if ts.EventDateTime.IsZero() {
			continue
		}
		times = append(times, scheduledomain.PortCallTimeMessage{
			EventType: eventType,
			TimeKind:  timeKind,
			Timestamp: ts.EventDateTime,
		})
	}
	return times
}

func eventTypeFor(code string) (string, bool) {
	switch strings.ToUpper(strings.TrimSpace(code)) {
	case "ARRI":
		return scheduledomain.EventArrival, true
	case "DEPA":
		return scheduledomain.EventDeparture, true
	default:
		return "", false
	}
}

func timeKindFor(code string) (string, bool) {
	switch strings.ToUpper(strings.TrimSpace(code)) {
	case "PLN":
		return scheduledomain.KindPlanned, true
	case "EST":
		return scheduledomain.KindEstimated, true
	case "ACT":
		return scheduledomain.KindActual, true
	default:
		return "", false
	}
}
