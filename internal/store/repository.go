package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/tcdata/railnet/internal/codes"
	"github.com/tcdata/railnet/internal/dataset"
	"github.com/tcdata/railnet/internal/models"
)

const batchSize = 1000

// Run statuses of the run log
const (
	RunRunning = "running"
	RunSuccess = "success"
	RunFailed  = "failed"
)

// Repository keeps a dataset in Postgres. It implements
// dataset.Repository.
type Repository struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

var _ dataset.Repository = (*Repository)(nil)

// NewRepository creates a repository on an open pool
func NewRepository(pool *pgxpool.Pool, logger *zap.Logger) *Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repository{pool: pool, logger: logger}
}

func (r *Repository) Stations(ctx context.Context) ([]models.StationRecord, error) {
	return queryDocuments[models.StationRecord](ctx, r.pool, "SELECT document FROM station_record ORDER BY position")
}

func (r *Repository) Paths(ctx context.Context) ([]models.PathRecord, error) {
	return queryDocuments[models.PathRecord](ctx, r.pool, "SELECT document FROM path_record ORDER BY position")
}

func (r *Repository) Equipments(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, "SELECT id_string FROM equipment ORDER BY id_string")
	if err != nil {
		return nil, fmt.Errorf("failed to query equipments: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to read equipments: %w", err)
	}
	return ids, nil
}

func queryDocuments[T any](ctx context.Context, pool *pgxpool.Pool, query string) ([]T, error) {
	rows, err := pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	docs, err := pgx.CollectRows(rows, pgx.RowTo[[]byte])
	if err != nil {
		return nil, fmt.Errorf("failed to read documents: %w", err)
	}

	out := make([]T, 0, len(docs))
	for i, doc := range docs {
		var record T
		if err := json.Unmarshal(doc, &record); err != nil {
			return nil, fmt.Errorf("document %d: %w", i, err)
		}
		out = append(out, record)
	}
	return out, nil
}

// SaveSnapshot replaces the stored stations, paths and equipments in one
// transaction
func (r *Repository) SaveSnapshot(ctx context.Context, snap *dataset.Snapshot) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, table := range []string{"station_record", "path_record", "equipment"} {
		if _, err := tx.Exec(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	batch := &pgx.Batch{}
	for i, rec := range snap.Stations {
		row, err := newStationRow(i, rec)
		if err != nil {
			return err
		}
		batch.Queue(`
			INSERT INTO station_record (position, code, name, grp, x, y, platforms, platform_length, document)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, row.args()...)
		if batch, err = flushFull(ctx, tx, batch); err != nil {
			return fmt.Errorf("failed to insert stations: %w", err)
		}
	}
	for i, rec := range snap.Paths {
		row, err := newPathRow(i, rec)
		if err != nil {
			return err
		}
		batch.Queue(`
			INSERT INTO path_record (position, start_code, end_code, name, length, max_speed, electrified, grp, needed_equipments, document)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`, row.args()...)
		if batch, err = flushFull(ctx, tx, batch); err != nil {
			return fmt.Errorf("failed to insert paths: %w", err)
		}
	}
	for _, id := range snap.Equipments {
		batch.Queue(`INSERT INTO equipment (id_string) VALUES ($1) ON CONFLICT DO NOTHING`, id)
	}
	if err := executeBatch(ctx, tx, batch); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.logger.Info("saved dataset snapshot",
		zap.Int("stations", len(snap.Stations)),
		zap.Int("paths", len(snap.Paths)),
		zap.Int("equipments", len(snap.Equipments)),
		zap.String("fingerprint", snap.Fingerprint),
	)
	return nil
}

// SaveStations upserts merged stations together with all their codes
func (r *Repository) SaveStations(ctx context.Context, stations []*models.Station) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, s := range stations {
		batch.Queue(`
			INSERT INTO network_station (first_code, name, number, station_category, kind, grp, lat, lon)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (first_code) DO UPDATE
			SET name = EXCLUDED.name,
			    number = EXCLUDED.number,
			    station_category = EXCLUDED.station_category,
			    kind = EXCLUDED.kind,
			    grp = EXCLUDED.grp,
			    lat = EXCLUDED.lat,
			    lon = EXCLUDED.lon
		`, networkStationArgs(s)...)
		for _, c := range codeRows(s) {
			batch.Queue(`
				INSERT INTO network_station_code (code, first_code, rank)
				VALUES ($1, $2, $3)
				ON CONFLICT (code) DO UPDATE
				SET first_code = EXCLUDED.first_code,
				    rank = EXCLUDED.rank
			`, c.Code, c.FirstCode, c.Rank)
		}
		if batch, err = flushFull(ctx, tx, batch); err != nil {
			return fmt.Errorf("failed to upsert stations: %w", err)
		}
	}
	if err := executeBatch(ctx, tx, batch); err != nil {
		return fmt.Errorf("failed to upsert stations: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	r.logger.Info("saved merged stations", zap.Int("stations", len(stations)))
	return nil
}

// LookupStation returns the codes of the merged station that owns code
func (r *Repository) LookupStation(ctx context.Context, code string) (codes.CodeSet, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT c.code
		FROM network_station_code c
		JOIN network_station_code o ON o.first_code = c.first_code
		WHERE o.code = $1
		ORDER BY c.rank, c.code
	`, code)
	if err != nil {
		return nil, fmt.Errorf("failed to query station codes: %w", err)
	}
	found, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to read station codes: %w", err)
	}
	if len(found) == 0 {
		return nil, nil
	}
	return codes.NewCodeSet(found...), nil
}

// StartRun records the start of an import or regeneration run
func (r *Repository) StartRun(ctx context.Context, kind string) (uuid.UUID, error) {
	id := uuid.New()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO run_log (id, kind, status)
		VALUES ($1, $2, $3)
	`, id, kind, RunRunning)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create run log: %w", err)
	}
	return id, nil
}

// FinishRun records the outcome of a run
func (r *Repository) FinishRun(ctx context.Context, id uuid.UUID, status, message string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE run_log
		SET completed_at = NOW(),
		    status = $2,
		    message = $3
		WHERE id = $1
	`, id, status, message)
	if err != nil {
		return fmt.Errorf("failed to update run log: %w", err)
	}
	return nil
}

type batchSender interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// executeBatch executes a batch of queries
func executeBatch(ctx context.Context, tx batchSender, batch *pgx.Batch) error {
	if batch.Len() == 0 {
		return nil
	}
	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("batch execution failed at query %d: %w", i, err)
		}
	}
	return nil
}

// flushFull executes the batch once it reaches batchSize and returns the
// batch to continue with
func flushFull(ctx context.Context, tx batchSender, batch *pgx.Batch) (*pgx.Batch, error) {
	if batch.Len() < batchSize {
		return batch, nil
	}
	if err := executeBatch(ctx, tx, batch); err != nil {
		return batch, err
	}
	return &pgx.Batch{}, nil
}
