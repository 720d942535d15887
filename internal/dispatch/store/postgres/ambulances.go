package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/rapidaid-io/rapidaid/internal/dispatch/core/model"
	"github.com/rapidaid-io/rapidaid/internal/pkg/util"
	"github.com/rapidaid-io/rapidaid/pkg/geo"
)

const ambulanceColumns = `id, call_sign, lng, lat, status, assigned_hospital_id, equipment_level, vehicle_type, last_updated`

type ambulanceRepo Store

func scanAmbulance(row pgx.Row) (*model.Ambulance, error) {
	var (
		a        model.Ambulance
		lng, lat *float64
		status   string
		level    string
	)
	if err := row.Scan(&a.ID, &a.CallSign, &lng, &lat, &status, &a.AssignedHospitalID, &level, &a.VehicleType, &a.LastUpdated); err != nil {
		return nil, err
	}
	if lng != nil && lat != nil {
		p := geo.NewPoint(*lng, *lat)
		a.Location = &p
	}
	a.Status = model.AmbulanceStatus(status)
	a.EquipmentLevel = model.EquipmentLevel(level)
	a.LastUpdated = a.LastUpdated.UTC()
	return &a, nil
}

func (r *ambulanceRepo) Get(ctx context.Context, id int64) (*model.Ambulance, error) {
	row := r.db.QueryRow(ctx, `SELECT `+ambulanceColumns+` FROM ambulances WHERE id = $1`, id)
	a, err := scanAmbulance(row)
	if err != nil {
		return nil, mapErr(err, "ambulance", id)
	}
	return a, nil
}

func (r *ambulanceRepo) List(ctx context.Context, status model.AmbulanceStatus) ([]*model.Ambulance, error) {
	rows, err := r.db.Query(ctx, `SELECT `+ambulanceColumns+` FROM ambulances
WHERE $1::text = '' OR status = $1 ORDER BY id`, string(status))
	if err != nil {
		return nil, util.IO(err, "list ambulances")
	}
	defer rows.Close()

	var out []*model.Ambulance
	for rows.Next() {
		a, err := scanAmbulance(rows)
		if err != nil {
			return nil, util.IO(err, "scan ambulance")
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, util.IO(err, "list ambulances")
	}
	return out, nil
}

func (r *ambulanceRepo) Save(ctx context.Context, a *model.Ambulance) error {
	var lng, lat *float64
	if a.Location != nil {
		lng, lat = &a.Location.Lng, &a.Location.Lat
	}
	_, err := r.db.Exec(ctx, `INSERT INTO ambulances (`+ambulanceColumns+`)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (id) DO UPDATE SET
    call_sign = EXCLUDED.call_sign,
    lng = EXCLUDED.lng,
    lat = EXCLUDED.lat,
    status = EXCLUDED.status,
    assigned_hospital_id = EXCLUDED.assigned_hospital_id,
    equipment_level = EXCLUDED.equipment_level,
    vehicle_type = EXCLUDED.vehicle_type,
    last_updated = EXCLUDED.last_updated`,
		a.ID, a.CallSign, lng, lat, string(a.Status), a.AssignedHospitalID, string(a.EquipmentLevel), a.VehicleType, a.LastUpdated)
	return mapErr(err, "ambulance", a.ID)
}

func (r *ambulanceRepo) AppendMovement(ctx context.Context, rec *model.MovementRecord) error {
	_, err := r.db.Exec(ctx, `INSERT INTO ambulance_locations (ambulance_id, lng, lat, speed, heading, recorded_at)
VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.AmbulanceID, rec.Location.Lng, rec.Location.Lat, rec.Speed, rec.Heading, rec.RecordedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
		return util.NotFound("ambulance", rec.AmbulanceID)
	}
	return mapErr(err, "movement", rec.AmbulanceID)
}

func (r *ambulanceRepo) RemoveMovement(ctx context.Context, rec *model.MovementRecord) error {
	_, err := r.db.Exec(ctx, `DELETE FROM ambulance_locations WHERE ambulance_id = $1 AND recorded_at = $2`,
		rec.AmbulanceID, rec.RecordedAt)
	return mapErr(err, "movement", rec.AmbulanceID)
}
