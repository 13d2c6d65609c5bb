package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema creates the tables of the dataset store
const Schema = `
CREATE TABLE IF NOT EXISTS station_record (
	position        INTEGER PRIMARY KEY,
	code            TEXT,
	name            TEXT,
	grp             INTEGER,
	x               DOUBLE PRECISION,
	y               DOUBLE PRECISION,
	platforms       INTEGER,
	platform_length DOUBLE PRECISION,
	document        JSONB NOT NULL
);

CREATE TABLE IF NOT EXISTS path_record (
	position          INTEGER PRIMARY KEY,
	start_code        TEXT,
	end_code          TEXT,
	name              TEXT,
	length            DOUBLE PRECISION,
	max_speed         INTEGER,
	electrified       BOOLEAN NOT NULL DEFAULT TRUE,
	grp               INTEGER NOT NULL DEFAULT 0,
	needed_equipments TEXT[],
	document          JSONB NOT NULL
);

CREATE TABLE IF NOT EXISTS equipment (
	id_string TEXT PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS network_station (
	first_code       TEXT PRIMARY KEY,
	name             TEXT,
	number           INTEGER,
	station_category INTEGER,
	kind             TEXT,
	grp              INTEGER NOT NULL,
	lat              DOUBLE PRECISION,
	lon              DOUBLE PRECISION
);

CREATE TABLE IF NOT EXISTS network_station_code (
	code       TEXT PRIMARY KEY,
	first_code TEXT NOT NULL REFERENCES network_station (first_code) ON DELETE CASCADE,
	rank       INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS run_log (
	id           UUID PRIMARY KEY,
	kind         TEXT NOT NULL,
	status       TEXT NOT NULL,
	message      TEXT,
	started_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	completed_at TIMESTAMPTZ
);
`

// EnsureSchema installs the tables when they do not exist
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}
