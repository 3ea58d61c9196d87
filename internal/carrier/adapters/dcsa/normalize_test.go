package dcsa

import (
	"testing"
	"time"

	"github.com/boxlane/boxlane/internal/carrier/domain"
	scheduledomain "github.com/boxlane/boxlane/internal/schedule/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAdapter(t *testing.T) *Adapter {
	t.Helper()
	adapter, err := New(domain.AdapterConfig{
		CarrierName: "Maersk",
		BaseURL:     "https://api.example.com",
		APIKey:      "key",
	})
	require.NoError(t, err)
	return adapter
}

func ts(day, hour int) time.Time {
	return time.Date(2026, time.September, day, hour, 0, 0, 0, time.UTC)
}

func TestSplitVoyages_GroupsByExportVoyageNumber(t *testing.T) {
	adapter := newTestAdapter(t)

	schedule := rawServiceSchedule{
		CarrierServiceCode: "AE7",
		CarrierServiceName: "Asia-Europe 7",
	}
	vesselSchedule := rawVesselSchedule{
		Vessel: rawVessel{VesselIMONumber: "9744465", Name: "Madrid Maersk"},
		TransportCalls: []rawTransportCall{
			{
				CarrierExportVoyageNumber: "101E",
				Location:                  rawLocation{UNLocationCode: "cnsha"},
				Timestamps: []rawTimestamp{
					{EventTypeCode: "DEPA", EventClassifierCode: "PLN", EventDateTime: ts(1, 10)},
				},
			},
			{
				CarrierExportVoyageNumber: "102W",
				Location:                  rawLocation{UNLocationCode: "NLRTM"},
				Timestamps: []rawTimestamp{
					{EventTypeCode: "ARRI", EventClassifierCode: "PLN", EventDateTime: ts(20, 8)},
				},
			},
			{
				CarrierExportVoyageNumber: "101E",
				Location:                  rawLocation{UNLocationCode: "SGSIN"},
				Timestamps: []rawTimestamp{
					{EventTypeCode: "ARRI", EventClassifierCode: "PLN", EventDateTime: ts(5, 6)},
				},
			},
		},
	}

	messages := adapter.splitVoyages(schedule, vesselSchedule)
	require.Len(t, messages, 2)

	assert.Equal(t, "101E", messages[0].VoyageNumber)
	assert.Equal(t, "102W", messages[1].VoyageNumber)
	assert.Equal(t, "MAERSK", messages[0].CarrierName)
	assert.Equal(t, "AE7", messages[0].ServiceCode)
	assert.Equal(t, "9744465", messages[0].VesselIMO)

	require.Len(t, messages[0].PortCalls, 2)
	assert.Equal(t, "CNSHA", messages[0].PortCalls[0].UNLocode)
	assert.Equal(t, "SGSIN", messages[0].PortCalls[1].UNLocode)
}

func TestSplitVoyages_FallsBackToImportVoyageNumber(t *testing.T) {
	adapter := newTestAdapter(t)

	vesselSchedule := rawVesselSchedule{
		TransportCalls: []rawTransportCall{
			{
				CarrierImportVoyageNumber: "099E",
				Location:                  rawLocation{UNLocationCode: "DEHAM"},
			},
			{
				// Neither voyage reference; not attributable to a sailing.
				Location: rawLocation{UNLocationCode: "BEANR"},
			},
		},
	}

	messages := adapter.splitVoyages(rawServiceSchedule{CarrierServiceCode: "AE7"}, vesselSchedule)
	require.Len(t, messages, 1)
	assert.Equal(t, "099E", messages[0].VoyageNumber)
	require.Len(t, messages[0].PortCalls, 1)
	assert.Equal(t, "DEHAM", messages[0].PortCalls[0].UNLocode)
}

func TestNormalizeCalls_SortsChronologicallyAndResequences(t *testing.T) {
	calls := []rawTransportCall{
		{
			Location: rawLocation{UNLocationCode: "NLRTM"},
			Timestamps: []rawTimestamp{
				{EventTypeCode: "ARRI", EventClassifierCode: "PLN", EventDateTime: ts(20, 8)},
			},
		},
		{
			// No timestamps at all; ordered after the timed calls.
			Location: rawLocation{UNLocationCode: "BEANR"},
		},
		{
			Location: rawLocation{UNLocationCode: "CNSHA"},
			Timestamps: []rawTimestamp{
				{EventTypeCode: "DEPA", EventClassifierCode: "PLN", EventDateTime: ts(1, 10)},
				{EventTypeCode: "ARRI", EventClassifierCode: "PLN", EventDateTime: ts(1, 2)},
			},
		},
	}

	normalized := normalizeCalls(calls)
	require.Len(t, normalized, 3)

	assert.Equal(t, "CNSHA", normalized[0].UNLocode)
	assert.Equal(t, "NLRTM", normalized[1].UNLocode)
	assert.Equal(t, "BEANR", normalized[2].UNLocode)
	for i, call := range normalized {
		assert.Equal(t, i+1, call.Sequence)
	}
}

func TestNormalizeTimestamps_MapsCodesAndDropsUnknown(t *testing.T) {
	times := normalizeTimestamps([]rawTimestamp{
		{EventTypeCode: "ARRI", EventClassifierCode: "PLN", EventDateTime: ts(3, 1)},
		{EventTypeCode: "DEPA", EventClassifierCode: "EST", EventDateTime: ts(3, 2)},
		{EventTypeCode: "depa", EventClassifierCode: "act", EventDateTime: ts(3, 3)},
		{EventTypeCode: "LOAD", EventClassifierCode: "PLN", EventDateTime: ts(3, 4)},
		{EventTypeCode: "ARRI", EventClassifierCode: "XYZ", EventDateTime: ts(3, 5)},
		{EventTypeCode: "ARRI", EventClassifierCode: "PLN"},
	})

	require.Len(t, times, 3)
	assert.Equal(t, scheduledomain.EventArrival, times[0].EventType)
	assert.Equal(t, scheduledomain.KindPlanned, times[0].TimeKind)
	assert.Equal(t, scheduledomain.EventDeparture, times[1].EventType)
	assert.Equal(t, scheduledomain.KindEstimated, times[1].TimeKind)
	assert.Equal(t, scheduledomain.KindActual, times[2].TimeKind)
}
