// Package postgres is the PostgreSQL storage backend, built on pgx.
//
// Locations are stored as plain lng/lat columns. Radius queries prefilter by
// bounding box in SQL and apply the exact great-circle distance in Go.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rapidaid-io/rapidaid/internal/dispatch/core"
	"github.com/rapidaid-io/rapidaid/internal/dispatch/store"
	"github.com/rapidaid-io/rapidaid/internal/pkg/util"
	"github.com/rapidaid-io/rapidaid/pkg/log"
	"github.com/rapidaid-io/rapidaid/pkg/options"
)

const foreignKeyViolation = "23503"

var _ core.Repository = (*Store)(nil)

// querier is the subset of *pgxpool.Pool the repositories use.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store implements core.Repository on a connection pool.
type Store struct {
	pool *pgxpool.Pool
	db   querier
}

// Open connects a pool and verifies it with a ping.
func Open(ctx context.Context, opts *options.PostgresOptions) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = opts.MaxConns
	cfg.MinConns = opts.MinConns
	if opts.MaxConnLifetime > 0 {
		cfg.MaxConnLifetime = opts.MaxConnLifetime
	}
	if opts.ConnectTimeout > 0 {
		cfg.ConnConfig.ConnectTimeout = opts.ConnectTimeout
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Store{pool: pool, db: pool}, nil
}

func (s *Store) Ambulance() core.AmbulanceRepository { return (*ambulanceRepo)(s) }
func (s *Store) Hospital() core.HospitalRepository   { return (*hospitalRepo)(s) }
func (s *Store) Request() core.RequestRepository     { return (*requestRepo)(s) }

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases every pooled connection.
func (s *Store) Close() {
	s.pool.Close()
}

// Seed loads the demo hospitals and fleet into an empty database. It is a
// no-op when any hospital exists.
func (s *Store) Seed(ctx context.Context) (err error) {
	var n int
	if err := s.db.QueryRow(ctx, `SELECT count(*) FROM hospitals`).Scan(&n); err != nil {
		return fmt.Errorf("count hospitals: %w", err)
	}
	if n > 0 {
		return nil
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin seed: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(context.WithoutCancel(ctx))
		}
	}()

	batch := &pgx.Batch{}
	for _, h := range store.DemoHospitals() {
		batch.Queue(`INSERT INTO hospitals (id, name, lng, lat, capacity, services, status)
VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			h.ID, h.Name, h.Location.Lng, h.Location.Lat, h.Capacity, h.Services, string(h.Status))
	}
	for _, a := range store.DemoAmbulances(time.Now().UTC()) {
		batch.Queue(`INSERT INTO ambulances (id, call_sign, lng, lat, status, equipment_level, vehicle_type, last_updated)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			a.ID, a.CallSign, a.Location.Lng, a.Location.Lat, string(a.Status), string(a.EquipmentLevel), a.VehicleType, a.LastUpdated)
	}
	batch.Queue(`SELECT setval(pg_get_serial_sequence('hospitals', 'id'), (SELECT max(id) FROM hospitals))`)
	batch.Queue(`SELECT setval(pg_get_serial_sequence('ambulances', 'id'), (SELECT max(id) FROM ambulances))`)

	if err = tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("seed demo data: %w", err)
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit seed: %w", err)
	}
	log.Info("Seeded demo data", "hospitals", len(store.DemoHospitals()))
	return nil
}

// mapErr converts a driver error into the dispatch error kinds.
func mapErr(err error, resource string, id any) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return util.NotFound(resource, id)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
		return util.Validation("%s %v references a missing row", resource, id).WithDetail("constraint", pgErr.ConstraintName)
	}
	return util.IO(err, "%s query failed", resource)
}
