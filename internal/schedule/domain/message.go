package domain

import (
	"errors"
	"strings"
	"time"
)

// Required-field errors abort the single message being processed.
var (
	ErrMissingCarrierName  = errors.New("schedule message is missing carrier name")
	ErrMissingServiceCode  = errors.New("schedule message is missing service code")
	ErrMissingVoyageNumber = errors.New("schedule message is missing voyage number")
)

// ScheduleMessage is the canonical carrier-agnostic schedule shape every
// adapter produces and the ingestion pipeline consumes.
type ScheduleMessage struct {
	CarrierName  string            `json:"carrierName"`
	SourceSystem string            `json:"sourceSystem"`
	ServiceCode  string            `json:"serviceCode"`
	ServiceName  string            `json:"serviceName,omitempty"`
	VoyageNumber string            `json:"voyageNumber"`
	VesselName   string            `json:"vesselName,omitempty"`
	VesselIMO    string            `json:"vesselImo,omitempty"`
	PortCalls    []PortCallMessage `json:"portCalls"`
}

// PortCallMessage is one stop within a schedule message. A call with zero
// timestamps is kept, not dropped.
type PortCallMessage struct {
	Sequence           int                   `json:"sequence"`
	UNLocode           string                `json:"unLocode"`
	FacilitySMDGCode   string                `json:"facilitySmdgCode,omitempty"`
	ImportVoyageNumber string                `json:"importVoyageNumber,omitempty"`
	ExportVoyageNumber string                `json:"exportVoyageNumber,omitempty"`
	Times              []PortCallTimeMessage `json:"times,omitempty"`
}

// PortCallTimeMessage is one (event type, time kind) timestamp of a call.
type PortCallTimeMessage struct {
	EventType string    `json:"eventType"`
	TimeKind  string    `json:"timeKind"`
	Timestamp time.Time `json:"timestamp"`
}

// Validate checks the required fields. Everything else is best-effort.
func (m ScheduleMessage) Validate() error {
	if strings.TrimSpace(m.CarrierName) == "" {
		return ErrMissingCarrierName
	}
	if strings.TrimSpace(m.ServiceCode) == "" {
		return ErrMissingServiceCode
	}
	if strings.TrimSpace(m.VoyageNumber) == "" {
		return ErrMissingVoyageNumber
	}
	return nil
}

// EarliestTimestamp returns the earliest timestamp on the call, used for
// chronological ordering. ok is false when the call carries no times.
func (c PortCallMessage) EarliestTimestamp() (time.Time, bool) {
	var earliest time.Time
	found := false
	for _, t := range c.Times {
		if t.Timestamp.IsZero() {
			continue
		}
		if !found || t.Timestamp.Before(earliest) {
			earliest = t.Timestamp
			found = true
		}
	}
	return earliest, found
}

// TimeFor returns the call's timestamp for one (event type, time kind) pair.
func (c PortCallMessage) TimeFor(eventType, timeKind string) (time.Time, bool) {
	for _, t := range c.Times {
		if t.EventType == eventType && t.TimeKind == timeKind && !t.Timestamp.IsZero() {
			return t.Timestamp, true
		}
	}
	return time.Time{}, false
}
