package postgres

import (
	"context"
	"fmt"
)

// schema is safe to execute repeatedly.
const schema = `
CREATE TABLE IF NOT EXISTS hospitals (
    id        BIGSERIAL PRIMARY KEY,
    name      TEXT NOT NULL,
    lng       DOUBLE PRECISION NOT NULL,
    lat       DOUBLE PRECISION NOT NULL,
    capacity  INTEGER NOT NULL DEFAULT 0,
    services  TEXT[] NOT NULL DEFAULT '{}',
    status    TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_hospitals_lat_lng ON hospitals (lat, lng);

CREATE TABLE IF NOT EXISTS ambulances (
    id                   BIGSERIAL PRIMARY KEY,
    call_sign            TEXT NOT NULL UNIQUE,
    lng                  DOUBLE PRECISION,
    lat                  DOUBLE PRECISION,
    status               TEXT NOT NULL,
    assigned_hospital_id BIGINT REFERENCES hospitals (id),
    equipment_level      TEXT NOT NULL,
    vehicle_type         TEXT NOT NULL DEFAULT '',
    last_updated         TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_ambulances_status ON ambulances (status);

CREATE TABLE IF NOT EXISTS ambulance_locations (
    id           BIGSERIAL PRIMARY KEY,
    ambulance_id BIGINT NOT NULL REFERENCES ambulances (id),
    lng          DOUBLE PRECISION NOT NULL,
    lat          DOUBLE PRECISION NOT NULL,
    speed        DOUBLE PRECISION,
    heading      DOUBLE PRECISION,
    recorded_at  TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_ambulance_locations_recorded
    ON ambulance_locations (ambulance_id, recorded_at);

CREATE TABLE IF NOT EXISTS emergency_requests (
    id                     BIGSERIAL PRIMARY KEY,
    user_lng               DOUBLE PRECISION NOT NULL,
    user_lat               DOUBLE PRECISION NOT NULL,
    status                 TEXT NOT NULL,
    hospital_id            BIGINT,
    ambulance_id           BIGINT,
    requested_ambulance_id BIGINT,
    ambulance_reserved     BOOLEAN NOT NULL DEFAULT false,
    decline_reason         TEXT,
    created_at             TIMESTAMPTZ NOT NULL,
    updated_at             TIMESTAMPTZ NOT NULL,
    accepted_at            TIMESTAMPTZ,
    declined_at            TIMESTAMPTZ,
    completed_at           TIMESTAMPTZ,
    cancelled_at           TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_emergency_requests_status_created
    ON emergency_requests (status, created_at DESC);
`

// EnsureSchema creates the tables and indexes that do not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
