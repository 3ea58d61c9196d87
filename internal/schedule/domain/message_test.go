package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeCarrierName(t *testing.T) {
	assert.Equal(t, "MAERSK", NormalizeCarrierName("  maersk "))
	assert.Equal(t, "HAPAG-LLOYD", NormalizeCarrierName("Hapag-Lloyd"))
	assert.Equal(t, "", NormalizeCarrierName("   "))
}

func TestNormalizeServiceCode(t *testing.T) {
	assert.Equal(t, "AE7", NormalizeServiceCode(" ae7 "))
	assert.Equal(t, "FE2", NormalizeServiceCode("fe2"))
	assert.Equal(t, "", NormalizeServiceCode("   "))
}

func TestScheduleMessage_Validate(t *testing.T) {
	valid := ScheduleMessage{CarrierName: "MAERSK", ServiceCode: "AE7", VoyageNumber: "101E"}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name string
		msg  ScheduleMessage
		want error
	}{
		{"missing carrier", ScheduleMessage{ServiceCode: "AE7", VoyageNumber: "101E"}, ErrMissingCarrierName},
		{"blank carrier", ScheduleMessage{CarrierName: " ", ServiceCode: "AE7", VoyageNumber: "101E"}, ErrMissingCarrierName},
		{"missing service", ScheduleMessage{CarrierName: "MAERSK", VoyageNumber: "101E"}, ErrMissingServiceCode},
		{"missing voyage", ScheduleMessage{CarrierName: "MAERSK", ServiceCode: "AE7"}, ErrMissingVoyageNumber},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, tc.msg.Validate(), tc.want)
		})
	}
}

func TestPortCallMessage_EarliestTimestamp(t *testing.T) {
	early := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	late := early.Add(6 * time.Hour)

	call := PortCallMessage{Times: []PortCallTimeMessage{
		{EventType: EventDeparture, TimeKind: KindPlanned, Timestamp: late},
		{EventType: EventArrival, TimeKind: KindPlanned, Timestamp: early},
		{EventType: EventArrival, TimeKind: KindActual},
	}}

	got, ok := call.EarliestTimestamp()
	assert.True(t, ok)
	assert.Equal(t, early, got)

	_, ok = PortCallMessage{}.EarliestTimestamp()
	assert.False(t, ok)
}

func TestPortCallMessage_TimeFor(t *testing.T) {
	when := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	call := PortCallMessage{Times: []PortCallTimeMessage{
		{EventType: EventDeparture, TimeKind: KindEstimated, Timestamp: when},
	}}

	got, ok := call.TimeFor(EventDeparture, KindEstimated)
	assert.True(t, ok)
	assert.Equal(t, when, got)

	_, ok = call.TimeFor(EventArrival, KindEstimated)
	assert.False(t, ok)
}
