package migration

import (
	"fmt"

	scheduledomain "github.com/boxlane/boxlane/internal/schedule/domain"
	"gorm.io/gorm"
)

// The read views are recreated on every startup so view changes ship without
// a schema migration. The DDL below is portable across postgres, mysql and
// sqlite, which also lets tests build the full read model on an in-memory
// database.

const departurePivot = `
	SELECT transport_call_id,
	       MAX(CASE WHEN time_kind = 'PLANNED' THEN timestamp END) AS planned_departure,
	       MAX(CASE WHEN time_kind = 'ESTIMATED' THEN timestamp END) AS estimated_departure,
	       MAX(CASE WHEN time_kind = 'ACTUAL' THEN timestamp END) AS actual_departure
	FROM port_call_times
	WHERE event_type = 'DEPARTURE'
	GROUP BY transport_call_id`

const arrivalPivot = `
	SELECT transport_call_id,
	       MAX(CASE WHEN time_kind = 'PLANNED' THEN timestamp END) AS planned_arrival,
	       MAX(CASE WHEN time_kind = 'ESTIMATED' THEN timestamp END) AS estimated_arrival,
	       MAX(CASE WHEN time_kind = 'ACTUAL' THEN timestamp END) AS actual_arrival
	FROM port_call_times
	WHERE event_type = 'ARRIVAL'
	GROUP BY transport_call_id`

// ViewNames lists the read views in creation order.
var ViewNames = []string{
	"port_to_port_routes",
	"next_departures",
	"voyage_port_calls",
	"destination_etas",
}

// ViewStatements returns the CREATE VIEW DDL for the read model.
func ViewStatements() []string {
	return []string{
		fmt.Sprintf(`CREATE VIEW port_to_port_routes AS
			SELECT v.id AS voyage_id,
			       c.name AS carrier_name,
			       s.code AS service_code,
			       v.voyage_number AS voyage_number,
			       COALESCE(ves.name, '') AS vessel_name,
			       COALESCE(ves.imo_number, '') AS vessel_imo,
			       ol.unlocode AS origin_unlocode,
			       otc.sequence AS origin_sequence,
			       dl.unlocode AS destination_unlocode,
			       dtc.sequence AS destination_sequence,
			       dep.planned_departure AS planned_departure,
			       dep.estimated_departure AS estimated_departure,
			       dep.actual_departure AS actual_departure,
			       COALESCE(dep.actual_departure, dep.estimated_departure, dep.planned_departure) AS best_departure,
			       arr.planned_arrival AS planned_arrival,
			       arr.estimated_arrival AS estimated_arrival,
			       arr.actual_arrival AS actual_arrival,
			       COALESCE(arr.actual_arrival, arr.estimated_arrival, arr.planned_arrival) AS best_arrival
			FROM transport_calls otc
			JOIN transport_calls dtc ON dtc.voyage_id = otc.voyage_id AND dtc.sequence > otc.sequence
			JOIN voyages v ON v.id = otc.voyage_id
			JOIN services s ON s.id = v.service_id
			JOIN carriers c ON c.id = s.carrier_id
			LEFT JOIN vessels ves ON ves.id = v.vessel_id
			JOIN locations ol ON ol.id = otc.location_id
			JOIN locations dl ON dl.id = dtc.location_id
			JOIN (%s) dep ON dep.transport_call_id = otc.id
			JOIN (%s) arr ON arr.transport_call_id = dtc.id`, departurePivot, arrivalPivot),

		fmt.Sprintf(`CREATE VIEW next_departures AS
			SELECT v.id AS voyage_id,
			       tc.id AS transport_call_id,
			       c.name AS carrier_name,
			       s.code AS service_code,
			       v.voyage_number AS voyage_number,
			       COALESCE(ves.name, '') AS vessel_name,
			       COALESCE(ves.imo_number, '') AS vessel_imo,
			       l.unlocode AS unlocode,
			       tc.sequence AS sequence,
			       dep.planned_departure AS planned_departure,
			       dep.estimated_departure AS estimated_departure,
			       dep.actual_departure AS actual_departure,
			       COALESCE(dep.actual_departure, dep.estimated_departure, dep.planned_departure) AS best_departure
			FROM transport_calls tc
			JOIN voyages v ON v.id = tc.voyage_id
			JOIN services s ON s.id = v.service_id
			JOIN carriers c ON c.id = s.carrier_id
			LEFT JOIN vessels ves ON ves.id = v.vessel_id
			JOIN locations l ON l.id = tc.location_id
			JOIN (%s) dep ON dep.transport_call_id = tc.id`, departurePivot),

		fmt.Sprintf(`CREATE VIEW voyage_port_calls AS
			SELECT tc.voyage_id AS voyage_id,
			       tc.id AS transport_call_id,
			       tc.sequence AS sequence,
			       l.unlocode AS unlocode,
			       COALESCE(l.name, '') AS location_name,
			       COALESCE(f.smdg_code, '') AS facility_smdg_code,
			       arr.planned_arrival AS planned_arrival,
			       arr.estimated_arrival AS estimated_arrival,
			       arr.actual_arrival AS actual_arrival,
			       dep.planned_departure AS planned_departure,
			       dep.estimated_departure AS estimated_departure,
			       dep.actual_departure AS actual_departure
			FROM transport_calls tc
			JOIN locations l ON l.id = tc.location_id
			LEFT JOIN facilities f ON f.id = tc.facility_id
			LEFT JOIN (%s) arr ON arr.transport_call_id = tc.id
			LEFT JOIN (%s) dep ON dep.transport_call_id = tc.id`, arrivalPivot, departurePivot),

		fmt.Sprintf(`CREATE VIEW destination_etas AS
			SELECT tc.voyage_id AS voyage_id,
			       l.unlocode AS unlocode,
			       tc.sequence AS sequence,
			       arr.planned_arrival AS planned_arrival,
			       arr.estimated_arrival AS estimated_arrival,
			       arr.actual_arrival AS actual_arrival,
			       COALESCE(arr.actual_arrival, arr.estimated_arrival, arr.planned_arrival) AS best_arrival
			FROM transport_calls tc
			JOIN locations l ON l.id = tc.location_id
			JOIN (%s) arr ON arr.transport_call_id = tc.id`, arrivalPivot),
	}
}

// CreateViews drops and recreates the read views.
func CreateViews(conn *gorm.DB) error {
	for _, name := range ViewNames {
		if err := conn.Exec("DROP VIEW IF EXISTS " + name).Error; err != nil {
			return fmt.Errorf("drop view %s: %w", name, err)
		}
	}
	for i, stmt := range ViewStatements() {
		if err := conn.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create view %s: %w", ViewNames[i], err)
		}
	}
	return nil
}

// RunAutoMigrations builds the base tables via gorm for the non-postgres
// dialects, where the embedded SQL migrations do not apply.
func RunAutoMigrations(conn *gorm.DB) error {
	return conn.AutoMigrate(
		&scheduledomain.Carrier{},
		&scheduledomain.Vessel{},
		&scheduledomain.Service{},
		&scheduledomain.Voyage{},
		&scheduledomain.Location{},
		&scheduledomain.Facility{},
		&scheduledomain.TransportCall{},
		&scheduledomain.PortCallTime{},
		&scheduledomain.ScheduleSourceAudit{},
		&scheduledomain.AggregatedSchedule{},
	)
}
