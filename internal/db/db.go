// Package db archives computed vertical profiles in SQLite.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	_ "modernc.org/sqlite"

	"github.com/bmvandoren/vol2bird/internal/monitoring"
	"github.com/bmvandoren/vol2bird/internal/profile"
)

// DB is a profile archive.
type DB struct {
	*sql.DB

	path    string
	clock   clockwork.Clock
	metrics *monitoring.Metrics
}

// Option configures NewDB.
type Option func(*DB)

// WithClock sets the clock used for run timestamps.
func WithClock(c clockwork.Clock) Option {
	return func(db *DB) { db.clock = c }
}

// WithMetrics counts stored profiles in m.
func WithMetrics(m *monitoring.Metrics) Option {
	return func(db *DB) { db.metrics = m }
}

var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA temp_store=MEMORY",
	"PRAGMA foreign_keys=ON",
}

// NewDB opens (or creates) the archive at path and migrates it to the
// latest schema.
func NewDB(path string, opts ...Option) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One connection keeps the per-connection pragmas in force.
	sqlDB.SetMaxOpenConns(1)

	for _, p := range pragmas {
		if _, err := sqlDB.Exec(p); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}

	db := &DB{DB: sqlDB, path: path, clock: clockwork.NewRealClock()}
	for _, opt := range opts {
		opt(db)
	}
	if err := db.MigrateUp(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// Run is one archived profile computation.
type Run struct {
	RunID          string  `json:"run_id"`
	Source         string  `json:"source"`
	Date           string  `json:"date"`
	Time           string  `json:"time"`
	InputPath      string  `json:"input_path"`
	NGatesCellMin  int     `json:"n_gates_cell_min"`
	CellDbzMin     float64 `json:"cell_dbz_min"`
	LayerThickness float64 `json:"layer_thickness"`
	NLayers        int     `json:"n_layers"`
	VID            float64 `json:"vid"`
	MTR            float64 `json:"mtr"`
	CreatedNanos   int64   `json:"created_unix_nanos"`
}

// RecordProfile stores vp and its layers in one transaction and returns
// the new run id.
func (db *DB) RecordProfile(ctx context.Context, vp *profile.VerticalProfile, inputPath string) (string, error) {
	runID := uuid.NewString()
	summary := vp.Summary()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO profile_runs (
			run_id, source, volume_date, volume_time, input_path,
			n_gates_cell_min, cell_dbz_min, layer_thickness, n_layers,
			vid, mtr, created_unix_nanos
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, vp.Metadata.Source, vp.Metadata.Date, vp.Metadata.Time, inputPath,
		vp.Settings.NGatesCellMin, vp.Settings.CellDbzMin, vp.Settings.LayerThickness, vp.Settings.NLayers,
		summary.VID, summary.MTR, db.clock.Now().UnixNano(),
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert profile run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO profile_layers (
			run_id, layer_index, height_bottom, height_top,
			u, v, w, speed, direction, direction_all, gap,
			stddev, eta, dbz, density, n_points,
			density_all, dbz_all, n_points_all
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("failed to prepare layer insert: %w", err)
	}
	defer stmt.Close()

	for i, l := range vp.Layers() {
		gap := 0
		if l.Gap {
			gap = 1
		}
		if _, err := stmt.ExecContext(ctx,
			runID, i, l.HeightBottom, l.HeightTop,
			l.U, l.V, l.W, l.Speed, l.Direction, l.DirectionAll, gap,
			l.StdDev, l.Eta, l.Dbz, l.Density, l.NPoints,
			l.DensityAll, l.DbzAll, l.NPointsAll,
		); err != nil {
			return "", fmt.Errorf("failed to insert layer %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit profile: %w", err)
	}
	if db.metrics != nil {
		db.metrics.ProfilesStored.Inc()
	}
	return runID, nil
}

// Runs returns the most recent runs, newest first. A non-positive limit
// returns every run.
func (db *DB) Runs(ctx context.Context, limit int) ([]Run, error) {
	query := `
		SELECT run_id, source, volume_date, volume_time, input_path,
			n_gates_cell_min, cell_dbz_min, layer_thickness, n_layers,
			vid, mtr, created_unix_nanos
		FROM profile_runs
		ORDER BY created_unix_nanos DESC, run_id`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(
			&r.RunID, &r.Source, &r.Date, &r.Time, &r.InputPath,
			&r.NGatesCellMin, &r.CellDbzMin, &r.LayerThickness, &r.NLayers,
			&r.VID, &r.MTR, &r.CreatedNanos,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Layers returns the layers of one run, bottom to top.
func (db *DB) Layers(ctx context.Context, runID string) ([]profile.Layer, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT height_bottom, height_top,
			u, v, w, speed, direction, direction_all, gap,
			stddev, eta, dbz, density, n_points,
			density_all, dbz_all, n_points_all
		FROM profile_layers
		WHERE run_id = ?
		ORDER BY layer_index`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query layers: %w", err)
	}
	defer rows.Close()

	var layers []profile.Layer
	for rows.Next() {
		// SQLite stores NaN as NULL; map it back.
		var v [16]sql.NullFloat64
		var gap int
		if err := rows.Scan(
			&v[0], &v[1],
			&v[2], &v[3], &v[4], &v[5], &v[6], &v[7], &gap,
			&v[8], &v[9], &v[10], &v[11], &v[12],
			&v[13], &v[14], &v[15],
		); err != nil {
			return nil, fmt.Errorf("failed to scan layer: %w", err)
		}
		f := func(i int) float64 {
			if !v[i].Valid {
				return math.NaN()
			}
			return v[i].Float64
		}
		l := profile.Layer{
			HeightBottom: f(0),
			HeightTop:    f(1),
			U:            f(2),
			V:            f(3),
			W:            f(4),
			Speed:        f(5),
			Direction:    f(6),
			DirectionAll: f(7),
			Gap:          gap == 1,
			StdDev:       f(8),
			Eta:          f(9),
			Dbz:          f(10),
			Density:      f(11),
			NPoints:      f(12),
			DensityAll:   f(13),
			DbzAll:       f(14),
			NPointsAll:   f(15),
		}
		l.Height = (l.HeightBottom + l.HeightTop) / 2
		layers = append(layers, l)
	}
	return layers, rows.Err()
}
