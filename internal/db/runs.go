package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// ErrRunNotFound is returned when no run matches the requested id.
var ErrRunNotFound = errors.New("classification run not found")

// Run is one recorded classification.
type Run struct {
	RunID       string
	InputPath   string
	OutputPath  string
	NumClasses  int
	ValidCount  int
	SampleSize  int
	Sampled     bool
	Breaks      []float64
	ClassCounts []int
	GVF         float64 // NaN when undefined
	Width       int
	Height      int
	Version     string
	StartedAt   time.Time
	Duration    time.Duration
	ConfigJSON  string
}

// RecordRun inserts run, assigning a RunID when it has none.
func (db *DB) RecordRun(ctx context.Context, run *Run) error {
	if run.RunID == "" {
		run.RunID = uuid.NewString()
	}
	breaksJSON, err := json.Marshal(run.Breaks)
	if err != nil {
		return fmt.Errorf("failed to encode breaks: %w", err)
	}
	countsJSON, err := json.Marshal(run.ClassCounts)
	if err != nil {
		return fmt.Errorf("failed to encode class counts: %w", err)
	}

	var gvf sql.NullFloat64
	if !math.IsNaN(run.GVF) && !math.IsInf(run.GVF, 0) {
		gvf = sql.NullFloat64{Float64: run.GVF, Valid: true}
	}
	var cfg sql.NullString
	if run.ConfigJSON != "" {
		cfg = sql.NullString{String: run.ConfigJSON, Valid: true}
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO classification_runs (
			run_id, input_path, output_path, num_classes, valid_count, sample_size,
			sampled, breaks_json, class_counts_json, gvf, width, height, version,
			started_at, duration_ms, config_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, run.InputPath, run.OutputPath, run.NumClasses, run.ValidCount, run.SampleSize,
		run.Sampled, string(breaksJSON), string(countsJSON), gvf, run.Width, run.Height, run.Version,
		run.StartedAt.UnixNano(), run.Duration.Milliseconds(), cfg,
	)
	if err != nil {
		return fmt.Errorf("failed to record run %s: %w", run.RunID, err)
	}
	return nil
}

const runColumns = `run_id, input_path, output_path, num_classes, valid_count, sample_size,
	sampled, breaks_json, class_counts_json, gvf, width, height, version,
	started_at, duration_ms, config_json`

// ListRuns returns the most recent runs first. A limit <= 0 returns all.
func (db *DB) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM classification_runs ORDER BY started_at DESC, run_id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return runs, nil
}

// GetRun returns the run with the given id.
func (db *DB) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM classification_runs WHERE run_id = ?`, runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*Run, error) {
	var (
		run        Run
		breaksJSON string
		countsJSON string
		gvf        sql.NullFloat64
		version    sql.NullString
		cfg        sql.NullString
		startedAt  int64
		durationMs int64
	)
	if err := s.Scan(
		&run.RunID,
		&run.InputPath,
		&run.OutputPath,
		&run.NumClasses,
		&run.ValidCount,
		&run.SampleSize,
		&run.Sampled,
		&breaksJSON,
		&countsJSON,
		&gvf,
		&run.Width,
		&run.Height,
		&version,
		&startedAt,
		&durationMs,
		&cfg,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(breaksJSON), &run.Breaks); err != nil {
		return nil, fmt.Errorf("run %s: bad breaks_json: %w", run.RunID, err)
	}
	if err := json.Unmarshal([]byte(countsJSON), &run.ClassCounts); err != nil {
		return nil, fmt.Errorf("run %s: bad class_counts_json: %w", run.RunID, err)
	}
	run.GVF = math.NaN()
	if gvf.Valid {
		run.GVF = gvf.Float64
	}
	run.Version = version.String
	run.ConfigJSON = cfg.String
	run.StartedAt = time.Unix(0, startedAt)
	run.Duration = time.Duration(durationMs) * time.Millisecond
	return &run, nil
}
