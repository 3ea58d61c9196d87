package dcsa

import "time"

// Raw response types for the DCSA-flavoured schedule endpoints. Only the
// fields the normalizer consumes are mapped; everything else is ignored at
// the decode boundary.

type rawServiceSchedule struct {
	CarrierServiceCode string              `json:"carrierServiceCode"`
	CarrierServiceName string              `json:"carrierServiceName"`
	VesselSchedules    []rawVesselSchedule `json:"vesselSchedules"`
}

type rawVesselSchedule struct {
	Vessel         rawVessel          `json:"vessel"`
	TransportCalls []rawTransportCall `json:"transportCalls"`
}

type rawVessel struct {
	VesselIMONumber string `json:"vesselIMONumber"`
	Name            string `json:"name"`
}

type rawTransportCall struct {
	TransportCallReference    string         `json:"transportCallReference"`
	CarrierImportVoyageNumber string         `json:"carrierImportVoyageNumber"`
	CarrierExportVoyageNumber string         `json:"carrierExportVoyageNumber"`
	Location                  rawLocation    `json:"location"`
	Timestamps                []rawTimestamp `json:"timestamps"`
}

type rawLocation struct {
	UNLocationCode   string `json:"UNLocationCode"`
	FacilitySMDGCode string `json:"facilitySMDGCode"`
	LocationName     string `json:"locationName"`
}

// EventTypeCode is ARRI or DEPA, EventClassifierCode is PLN, EST or ACT.
type rawTimestamp struct {
	EventTypeCode       string    `json:"eventTypeCode"`
	EventClassifierCode string    `json:"eventClassifierCode"`
	EventDateTime       time.Time `json:"eventDateTime"`
}

type rawPointToPointRouting struct {
	PlaceOfReceipt  rawRoutingPoint `json:"placeOfReceipt"`
	PlaceOfDelivery rawRoutingPoint `json:"placeOfDelivery"`
	TransitTime     int             `json:"transitTime"`
	Legs            []rawRoutingLeg `json:"legs"`
}

type rawRoutingPoint struct {
	UNLocationCode string     `json:"UNLocationCode"`
	DateTime       *time.Time `json:"dateTime"`
}

type rawRoutingLeg struct {
	SequenceNumber     int             `json:"sequenceNumber"`
	ModeOfTransport    string          `json:"modeOfTransport"`
	VesselIMONumber    string          `json:"vesselIMONumber"`
	VesselName         string          `json:"vesselName"`
	CarrierServiceCode string          `json:"carrierServiceCode"`
	CarrierVoyageNumber string         `json:"carrierVoyageNumber"`
	Departure          rawRoutingPoint `json:"departure"`
	Arrival            rawRoutingPoint `json:"arrival"`
}
