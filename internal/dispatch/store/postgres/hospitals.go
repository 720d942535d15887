package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/rapidaid-io/rapidaid/internal/dispatch/core/model"
	"github.com/rapidaid-io/rapidaid/internal/pkg/util"
	"github.com/rapidaid-io/rapidaid/pkg/geo"
)

const hospitalColumns = `id, name, lng, lat, capacity, services, status`

type hospitalRepo Store

func scanHospital(row pgx.Row) (*model.Hospital, error) {
	var (
		h      model.Hospital
		status string
	)
	if err := row.Scan(&h.ID, &h.Name, &h.Location.Lng, &h.Location.Lat, &h.Capacity, &h.Services, &status); err != nil {
		return nil, err
	}
	h.Status = model.HospitalStatus(status)
	return &h, nil
}

func (r *hospitalRepo) Get(ctx context.Context, id int64) (*model.Hospital, error) {
	h, err := scanHospital(r.db.QueryRow(ctx, `SELECT `+hospitalColumns+` FROM hospitals WHERE id = $1`, id))
	if err != nil {
		return nil, mapErr(err, "hospital", id)
	}
	return h, nil
}

func (r *hospitalRepo) List(ctx context.Context, status model.HospitalStatus) ([]*model.Hospital, error) {
	return r.query(ctx, `SELECT `+hospitalColumns+` FROM hospitals
WHERE $1::text = '' OR status = $1 ORDER BY id`, string(status))
}

// WithinDistance selects the bounding box of the circle and keeps the rows
// whose great-circle distance is at most meters.
func (r *hospitalRepo) WithinDistance(ctx context.Context, p geo.Point, meters float64) ([]*model.Hospital, error) {
	sql, args := boundingBoxQuery(p, meters)
	candidates, err := r.query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}

	out := candidates[:0]
	for _, h := range candidates {
		if geo.Distance(p, h.Location) <= meters {
			out = append(out, h)
		}
	}
	return out, nil
}

// boundingBoxQuery drops the longitude predicate when the box crosses the
// antimeridian.
func boundingBoxQuery(p geo.Point, meters float64) (string, []any) {
	lo, hi := geo.BoundingBox(p, meters)
	if geo.CrossesAntimeridian(lo, hi) {
		return `SELECT ` + hospitalColumns + ` FROM hospitals
WHERE lat BETWEEN $1 AND $2 ORDER BY id`, []any{lo.Lat, hi.Lat}
	}
	return `SELECT ` + hospitalColumns + ` FROM hospitals
WHERE lat BETWEEN $1 AND $2 AND lng BETWEEN $3 AND $4 ORDER BY id`, []any{lo.Lat, hi.Lat, lo.Lng, hi.Lng}
}

func (r *hospitalRepo) query(ctx context.Context, sql string, args ...any) ([]*model.Hospital, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, util.IO(err, "list hospitals")
	}
	defer rows.Close()

	var out []*model.Hospital
	for rows.Next() {
		h, err := scanHospital(rows)
		if err != nil {
			return nil, util.IO(err, "scan hospital")
		}
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, util.IO(err, "list hospitals")
	}
	return out, nil
}
