package repository

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	scheduledomain "github.com/boxlane/boxlane/internal/schedule/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() scheduledomain.Repository {
	return &repo{}
}

func (r *repo) FindCarrierByName(ctx context.Context, db *gorm.DB, name string) (*scheduledomain.Carrier, error) {
	var carrier scheduledomain.Carrier
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, created_at, updated_at FROM carriers WHERE name = ?`,
		name,
	).Scan(&carrier).Error
	if err != nil {
		return nil, err
	}
	if carrier.ID == 0 {
		return nil, nil
	}
	return &carrier, nil
}

func (r *repo) FindCarrierByNameFold(ctx context.Context, db *gorm.DB, name string) (*scheduledomain.Carrier, error) {
	var carrier scheduledomain.Carrier
	// Oldest row wins when several case variants exist.
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, created_at, updated_at FROM carriers
		 WHERE UPPER(name) = ? ORDER BY id ASC LIMIT 1`,
		scheduledomain.NormalizeCarrierName(name),
	).Scan(&carrier).Error
	if err != nil {
		return nil, err
	}
	if carrier.ID == 0 {
		return nil, nil
	}
	return &carrier, nil
}

func (r *repo) InsertCarrier(ctx context.Context, db *gorm.DB, carrier *scheduledomain.Carrier) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO carriers (id, name, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		carrier.ID,
		carrier.Name,
		carrier.CreatedAt,
		carrier.UpdatedAt,
	).Error
}

func (r *repo) UpdateCarrierName(ctx context.Context, db *gorm.DB, id snowflake.ID, name string) error {
	return db.WithContext(ctx).Exec(
		`UPDATE carriers SET name = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		name,
		id,
	).Error
}

func (r *repo) FindVesselByIMO(ctx context.Context, db *gorm.DB, imo string) (*scheduledomain.Vessel, error) {
	var vessel scheduledomain.Vessel
	err := db.WithContext(ctx).Raw(
		`SELECT id, imo_number, name, created_at, updated_at FROM vessels WHERE imo_number = ?`,
		strings.TrimSpace(imo),
	).Scan(&vessel).Error
	if err != nil {
		return nil, err
	}
	if vessel.ID == 0 {
		return nil, nil
	}
	return &vessel, nil
}

func (r *repo) InsertVessel(ctx context.Context, db *gorm.DB, vessel *scheduledomain.Vessel) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO vessels (id, imo_number, name, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		vessel.ID,
		vessel.IMONumber,
		vessel.Name,
		vessel.CreatedAt,
		vessel.UpdatedAt,
	).Error
}

func (r *repo) UpdateVesselName(ctx context.Context, db *gorm.DB, id snowflake.ID, name string) error {
	return db.WithContext(ctx).Exec(
		`UPDATE vessels SET name = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		name,
		id,
	).Error
}

func (r *repo) FindServiceByCode(ctx context.Context, db *gorm.DB, carrierID snowflake.ID, code string) (*scheduledomain.Service, error) {
	var service scheduledomain.Service
	err := db.WithContext(ctx).Raw(
		`SELECT id, carrier_id, code, name, created_at, updated_at FROM services
		 WHERE carrier_id = ? AND UPPER(code) = UPPER(?) ORDER BY id ASC LIMIT 1`,
		carrierID,
		strings.TrimSpace(code),
	).Scan(&service).Error
	if err != nil {
		return nil, err
	}
	if service.ID == 0 {
		return nil, nil
	}
	return &service, nil
}

func (r *repo) InsertService(ctx context.Context, db *gorm.DB, service *scheduledomain.Service) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO services (id, carrier_id, code, name, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		service.ID,
		service.CarrierID,
		service.Code,
		service.Name,
		service.CreatedAt,
		service.UpdatedAt,
	).Error
}

func (r *repo) UpdateServiceName(ctx context.Context, db *gorm.DB, id snowflake.ID, name string) error {
	return db.WithContext(ctx).Exec(
		`UPDATE services SET name = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		name,
		id,
	).Error
}

func (r *repo) FindVoyageByNumber(ctx context.Context, db *gorm.DB, serviceID snowflake.ID, voyageNumber string) (*scheduledomain.Voyage, error) {
	var voyage scheduledomain.Voyage
	err := db.WithContext(ctx).Raw(
		`SELECT id, service_id, voyage_number, vessel_id, created_at, updated_at FROM voyages
		 WHERE service_id = ? AND UPPER(voyage_number) = UPPER(?) ORDER BY id ASC LIMIT 1`,
		serviceID,
		strings.TrimSpace(voyageNumber),
	).Scan(&voyage).Error
	if err != nil {
		return nil, err
	}
	if voyage.ID == 0 {
		return nil, nil
	}
	return &voyage, nil
}

func (r *repo) InsertVoyage(ctx context.Context, db *gorm.DB, voyage *scheduledomain.Voyage) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO voyages (id, service_id, voyage_number, vessel_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		voyage.ID,
		voyage.ServiceID,
		voyage.VoyageNumber,
		voyage.VesselID,
		voyage.CreatedAt,
		voyage.UpdatedAt,
	).Error
}

func (r *repo) UpdateVoyageVessel(ctx context.Context, db *gorm.DB, id snowflake.ID, vesselID *snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`UPDATE voyages SET vessel_id = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		vesselID,
		id,
	).Error
}

func (r *repo) FindLocationByUNLocode(ctx context.Context, db *gorm.DB, unlocode string) (*scheduledomain.Location, error) {
	var location scheduledomain.Location
	err := db.WithContext(ctx).Raw(
		`SELECT id, unlocode, name, country_code, created_at FROM locations WHERE UPPER(unlocode) = ?`,
		scheduledomain.NormalizeUNLocode(unlocode),
	).Scan(&location).Error
	if err != nil {
		return nil, err
	}
	if location.ID == 0 {
		return nil, nil
	}
	return &location, nil
}

func (r *repo) InsertLocation(ctx context.Context, db *gorm.DB, location *scheduledomain.Location) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO locations (id, unlocode, name, country_code, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		location.ID,
		location.UNLocode,
		location.Name,
		location.CountryCode,
		location.CreatedAt,
	).Error
}

func (r *repo) FindFacility(ctx context.Context, db *gorm.DB, locationID snowflake.ID, smdgCode string) (*scheduledomain.Facility, error) {
	var facility scheduledomain.Facility
	err := db.WithContext(ctx).Raw(
		`SELECT id, location_id, smdg_code, name, created_at FROM facilities
		 WHERE location_id = ? AND UPPER(smdg_code) = UPPER(?)`,
		locationID,
		strings.TrimSpace(smdgCode),
	).Scan(&facility).Error
	if err != nil {
		return nil, err
	}
	if facility.ID == 0 {
		return nil, nil
	}
	return &facility, nil
}

func (r *repo) InsertFacility(ctx context.Context, db *gorm.DB, facility *scheduledomain.Facility) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO facilities (id, location_id, smdg_code, name, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		facility.ID,
		facility.LocationID,
		facility.SMDGCode,
		facility.Name,
		facility.CreatedAt,
	).Error
}

func (r *repo) FindTransportCall(ctx context.Context, db *gorm.DB, voyageID snowflake.ID, sequence int) (*scheduledomain.TransportCall, error) {
	var call scheduledomain.TransportCall
	err := db.WithContext(ctx).Raw(
		`SELECT id, voyage_id, sequence, location_id, facility_id, import_voyage_number, export_voyage_number, created_at, updated_at
		 FROM transport_calls WHERE voyage_id = ? AND sequence = ?`,
		voyageID,
		sequence,
	).Scan(&call).Error
	if err != nil {
		return nil, err
	}
	if call.ID == 0 {
		return nil, nil
	}
	return &call, nil
}

func (r *repo) InsertTransportCall(ctx context.Context, db *gorm.DB, call *scheduledomain.TransportCall) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO transport_calls (id, voyage_id, sequence, location_id, facility_id, import_voyage_number, export_voyage_number, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		call.ID,
		call.VoyageID,
		call.Sequence,
		call.LocationID,
		call.FacilityID,
		call.ImportVoyageNumber,
		call.ExportVoyageNumber,
		call.CreatedAt,
		call.UpdatedAt,
	).Error
}

func (r *repo) UpdateTransportCall(ctx context.Context, db *gorm.DB, call *scheduledomain.TransportCall) error {
	return db.WithContext(ctx).Exec(
		`UPDATE transport_calls
		 SET location_id = ?, facility_id = ?, import_voyage_number = ?, export_voyage_number = ?, updated_at = ?
		 WHERE id = ?`,
		call.LocationID,
		call.FacilityID,
		call.ImportVoyageNumber,
		call.ExportVoyageNumber,
		call.UpdatedAt,
		call.ID,
	).Error
}

func (r *repo) FindPortCallTime(ctx context.Context, db *gorm.DB, transportCallID snowflake.ID, eventType, timeKind string) (*scheduledomain.PortCallTime, error) {
	var t scheduledomain.PortCallTime
	err := db.WithContext(ctx).Raw(
		`SELECT id, transport_call_id, event_type, time_kind, timestamp, updated_at FROM port_call_times
		 WHERE transport_call_id = ? AND event_type = ? AND time_kind = ?`,
		transportCallID,
		eventType,
		timeKind,
	).Scan(&t).Error
	if err != nil {
		return nil, err
	}
	if t.ID == 0 {
		return nil, nil
	}
	return &t, nil
}

func (r *repo) InsertPortCallTime(ctx context.Context, db *gorm.DB, t *scheduledomain.PortCallTime) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO port_call_times (id, transport_call_id, event_type, time_kind, timestamp, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		t.ID,
		t.TransportCallID,
		t.EventType,
		t.TimeKind,
		t.Timestamp,
		t.UpdatedAt,
	).Error
}

func (r *repo) UpdatePortCallTime(ctx context.Context, db *gorm.DB, id snowflake.ID, timestamp, updatedAt time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE port_call_times SET timestamp = ?, updated_at = ? WHERE id = ?`,
		timestamp,
		updatedAt,
		id,
	).Error
}

func (r *repo) InsertAudit(ctx context.Context, db *gorm.DB, audit *scheduledomain.ScheduleSourceAudit) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO schedule_source_audits (id, carrier_name, source_system, payload, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		audit.ID,
		audit.CarrierName,
		audit.SourceSystem,
		audit.Payload,
		audit.CreatedAt,
	).Error
}

func (r *repo) FindPortToPortRoutes(ctx context.Context, db *gorm.DB, q scheduledomain.RouteQuery) ([]scheduledomain.PortToPortRoute, error) {
	query := db.WithContext(ctx).
		Table("port_to_port_routes").
		Where("origin_unlocode = ?", scheduledomain.NormalizeUNLocode(q.OriginUNLocode))

	if q.DestinationUNLocode != "" {
		query = query.Where("destination_unlocode = ?", scheduledomain.NormalizeUNLocode(q.DestinationUNLocode))
	}
	if !q.DepartureFrom.IsZero() {
		query = query.Where("best_departure >= ?", q.DepartureFrom)
	}
	if !q.DepartureTo.IsZero() {
		query = query.Where("best_departure <= ?", q.DepartureTo)
	}
	if q.ExcludeVoyageID != 0 {
		query = query.Where("voyage_id <> ?", q.ExcludeVoyageID)
	}
	query = query.Order("best_departure ASC")
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}

	var routes []scheduledomain.PortToPortRoute
	if err := query.Find(&routes).Error; err != nil {
		return nil, err
	}
	return routes, nil
}

func (r *repo) FindNextDepartures(ctx context.Context, db *gorm.DB, q scheduledomain.NextDepartureQuery) ([]scheduledomain.NextDeparture, error) {
	query := db.WithContext(ctx).
		Table("next_departures").
		Where("unlocode = ?", scheduledomain.NormalizeUNLocode(q.UNLocode))

	if !q.DepartureFrom.IsZero() {
		query = query.Where("best_departure >= ?", q.DepartureFrom)
	}
	query = query.Order("best_departure ASC")
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}

	var departures []scheduledomain.NextDeparture
	if err := query.Find(&departures).Error; err != nil {
		return nil, err
	}
	return departures, nil
}

func (r *repo) FindVoyagePortCalls(ctx context.Context, db *gorm.DB, voyageID snowflake.ID) ([]scheduledomain.VoyagePortCall, error) {
	var calls []scheduledomain.VoyagePortCall
	err := db.WithContext(ctx).
		Table("voyage_port_calls").
		Where("voyage_id = ?", voyageID).
		Order("sequence ASC").
		Find(&calls).Error
	if err != nil {
		return nil, err
	}
	return calls, nil
}

func (r *repo) FindDestinationETA(ctx context.Context, db *gorm.DB, voyageID snowflake.ID, unlocode string) (*scheduledomain.DestinationETA, error) {
	var eta scheduledomain.DestinationETA
	err := db.WithContext(ctx).Raw(
		`SELECT voyage_id, unlocode, sequence, planned_arrival, estimated_arrival, actual_arrival, best_arrival
		 FROM destination_etas WHERE voyage_id = ? AND unlocode = ?
		 ORDER BY sequence ASC LIMIT 1`,
		voyageID,
		scheduledomain.NormalizeUNLocode(unlocode),
	).Scan(&eta).Error
	if err != nil {
		return nil, err
	}
	if eta.VoyageID == 0 {
		return nil, nil
	}
	return &eta, nil
}

func (r *repo) FindAggregatedSchedules(ctx context.Context, db *gorm.DB, q scheduledomain.AggregatedScheduleQuery) ([]scheduledomain.AggregatedSchedule, error) {
	query := db.WithContext(ctx).
		Table("aggregated_schedules").
		Where("origin_unlocode = ?", scheduledomain.NormalizeUNLocode(q.OriginUNLocode))

	if q.DestinationUNLocode != "" {
		query = query.Where("destination_unlocode = ?", scheduledomain.NormalizeUNLocode(q.DestinationUNLocode))
	}
	if q.Carrier != "" {
		normalized := scheduledomain.NormalizeCarrierName(q.Carrier)
		query = query.Where("UPPER(carrier_name) = ? OR UPPER(carrier_code) = ?", normalized, normalized)
	}
	if !q.DepartureFrom.IsZero() {
		query = query.Where("departure_time >= ?", q.DepartureFrom)
	}
	if !q.DepartureTo.IsZero() {
		query = query.Where("departure_time <= ?", q.DepartureTo)
	}
	query = query.Order("departure_time ASC")
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}

	var schedules []scheduledomain.AggregatedSchedule
	if err := query.Find(&schedules).Error; err != nil {
		return nil, err
	}
	return schedules, nil
}
