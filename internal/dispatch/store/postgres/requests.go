package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/rapidaid-io/rapidaid/internal/dispatch/core/model"
	"github.com/rapidaid-io/rapidaid/internal/pkg/util"
)

const requestColumns = `id, user_lng, user_lat, status, hospital_id, ambulance_id, requested_ambulance_id,
ambulance_reserved, decline_reason, created_at, updated_at, accepted_at, declined_at, completed_at, cancelled_at`

type requestRepo Store

func scanRequest(row pgx.Row) (*model.EmergencyRequest, error) {
	var (
		r      model.EmergencyRequest
		status string
	)
	err := row.Scan(&r.ID, &r.UserLocation.Lng, &r.UserLocation.Lat, &status,
		&r.HospitalID, &r.AmbulanceID, &r.RequestedAmbulanceID, &r.AmbulanceReserved, &r.DeclineReason,
		&r.CreatedAt, &r.UpdatedAt, &r.AcceptedAt, &r.DeclinedAt, &r.CompletedAt, &r.CancelledAt)
	if err != nil {
		return nil, err
	}
	r.Status = model.RequestStatus(status)
	return &r, nil
}

func (r *requestRepo) Get(ctx context.Context, id int64) (*model.EmergencyRequest, error) {
	req, err := scanRequest(r.db.QueryRow(ctx, `SELECT `+requestColumns+` FROM emergency_requests WHERE id = $1`, id))
	if err != nil {
		return nil, mapErr(err, "request", id)
	}
	return req, nil
}

func (r *requestRepo) Save(ctx context.Context, req *model.EmergencyRequest) error {
	args := []any{
		req.UserLocation.Lng, req.UserLocation.Lat, string(req.Status),
		req.HospitalID, req.AmbulanceID, req.RequestedAmbulanceID, req.AmbulanceReserved, req.DeclineReason,
		req.CreatedAt, req.UpdatedAt, req.AcceptedAt, req.DeclinedAt, req.CompletedAt, req.CancelledAt,
	}

	if req.ID == 0 {
		err := r.db.QueryRow(ctx, `INSERT INTO emergency_requests (
    user_lng, user_lat, status, hospital_id, ambulance_id, requested_ambulance_id,
    ambulance_reserved, decline_reason, created_at, updated_at, accepted_at, declined_at, completed_at, cancelled_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
RETURNING id`, args...).Scan(&req.ID)
		return mapErr(err, "request", "new")
	}

	_, err := r.db.Exec(ctx, `INSERT INTO emergency_requests (`+requestColumns+`)
VALUES ($15, $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
ON CONFLICT (id) DO UPDATE SET
    user_lng = EXCLUDED.user_lng,
    user_lat = EXCLUDED.user_lat,
    status = EXCLUDED.status,
    hospital_id = EXCLUDED.hospital_id,
    ambulance_id = EXCLUDED.ambulance_id,
    requested_ambulance_id = EXCLUDED.requested_ambulance_id,
    ambulance_reserved = EXCLUDED.ambulance_reserved,
    decline_reason = EXCLUDED.decline_reason,
    updated_at = EXCLUDED.updated_at,
    accepted_at = EXCLUDED.accepted_at,
    declined_at = EXCLUDED.declined_at,
    completed_at = EXCLUDED.completed_at,
    cancelled_at = EXCLUDED.cancelled_at`, append(args, req.ID)...)
	return mapErr(err, "request", req.ID)
}

// listQueries renders the page and count statements for filter.
func listQueries(filter model.RequestFilter) (page, count string, args []any) {
	var conds []string
	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.AmbulanceID != nil {
		args = append(args, *filter.AmbulanceID)
		conds = append(conds, fmt.Sprintf("ambulance_id = $%d", len(args)))
	}
	var where string
	if len(conds) > 0 {
		where = ` WHERE ` + strings.Join(conds, " AND ")
	}

	var b strings.Builder
	b.WriteString(`SELECT ` + requestColumns + ` FROM emergency_requests`)
	b.WriteString(where)
	b.WriteString(` ORDER BY created_at DESC, id DESC`)
	if filter.Limit > 0 {
		fmt.Fprintf(&b, ` LIMIT %d`, filter.Limit)
	}
	if off := filter.Offset(); off > 0 {
		fmt.Fprintf(&b, ` OFFSET %d`, off)
	}
	return b.String(), `SELECT count(*) FROM emergency_requests` + where, args
}

func (r *requestRepo) List(ctx context.Context, filter model.RequestFilter) ([]*model.EmergencyRequest, int, error) {
	pageSQL, countSQL, args := listQueries(filter)

	var total int
	if err := r.db.QueryRow(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, util.IO(err, "count requests")
	}

	rows, err := r.db.Query(ctx, pageSQL, args...)
	if err != nil {
		return nil, 0, util.IO(err, "list requests")
	}
	defer rows.Close()

	out := make([]*model.EmergencyRequest, 0, max(filter.Limit, 0))
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, 0, util.IO(err, "scan request")
		}
		out = append(out, req)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, util.IO(err, "list requests")
	}
	return out, total, nil
}

func (r *requestRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM emergency_requests WHERE id = $1`, id)
	if err != nil {
		return mapErr(err, "request", id)
	}
	if tag.RowsAffected() == 0 {
		return util.NotFound("request", id)
	}
	return nil
}

func (r *requestRepo) CountByStatus(ctx context.Context, status model.RequestStatus) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM emergency_requests WHERE status = $1`, string(status)).Scan(&n); err != nil {
		return 0, util.IO(err, "count requests")
	}
	return n, nil
}
