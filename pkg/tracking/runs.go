package tracking

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wouteroostervld/annotator/pkg/batch"
)

// Run is one tracked annotation request
type Run struct {
	ID           string
	Name         string
	FileName     string
	FunctionName string
	Model        string
	Temperature  float64
	InputLength  int
	OutputLength int
	Latency      float64
	Completeness float64
	Density      float64
	Success      bool
	Error        string
	CreatedAt    time.Time
}

const runColumns = `id, run_name, file_name, function_name, model, temperature,
    input_length, output_length, latency, completeness, density, success, error, created_at`

func (r *Run) scan(rows *sql.Rows) error {
	var created int64
	var success int
	if err := rows.Scan(&r.ID, &r.Name, &r.FileName, &r.FunctionName, &r.Model, &r.Temperature,
		&r.InputLength, &r.OutputLength, &r.Latency, &r.Completeness, &r.Density, &success, &r.Error, &created); err != nil {
		return err
	}
	r.Success = success == 1
	r.CreatedAt = time.Unix(0, created).UTC()
	return nil
}

// RunName is "<model>_<function>", with an "_error" suffix for failures
func RunName(model, function string, success bool) string {
	name := model + "_" + function
	if !success {
		name += "_error"
	}
	return name
}

// Stats aggregates every tracked run
type Stats struct {
	Total           int
	Success         int
	AvgCompleteness float64
	AvgDensity      float64
	AvgLatency      float64
}

// ListOptions filters ListRuns
type ListOptions struct {
	Limit int    // 0 means no limit
	Model string // Optional exact model filter
}

// Record stores rec as a run with its artifacts in one transaction
func (s *Store) Record(ctx context.Context, rec batch.FunctionRecord, prov batch.Provenance) error {
	run := &Run{
		ID:           uuid.NewString(),
		Name:         RunName(prov.Model, rec.FunctionName, rec.Success),
		FileName:     rec.FileName,
		FunctionName: rec.FunctionName,
		Model:        prov.Model,
		Temperature:  prov.Temperature,
		InputLength:  rec.InputLength,
		Success:      rec.Success,
		Error:        rec.Error,
		CreatedAt:    s.now().UTC(),
	}
	artifacts := map[string]string{ArtifactInput: rec.Source}
	if rec.Result != nil {
		run.OutputLength = rec.Result.OutputLength
		run.Latency = rec.Result.LatencySeconds
		run.Completeness = rec.Result.Completeness
		run.Density = rec.Result.Density
		artifacts[ArtifactAnnotation] = rec.Result.Text
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	success := 0
	if run.Success {
		success = 1
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO runs (`+runColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Name, run.FileName, run.FunctionName, run.Model, run.Temperature,
		run.InputLength, run.OutputLength, run.Latency, run.Completeness, run.Density,
		success, run.Error, run.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	for name, content := range artifacts {
		if _, err := tx.ExecContext(ctx, "INSERT INTO artifacts (run_id, name, content) VALUES (?, ?, ?)", run.ID, name, content); err != nil {
			return fmt.Errorf("failed to insert artifact %s: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

// ListRuns returns runs newest first
func (s *Store) ListRuns(ctx context.Context, opts ListOptions) ([]*Run, error) {
	query := "SELECT " + runColumns + " FROM runs"
	var args []any
	if opts.Model != "" {
		query += " WHERE model = ?"
		args = append(args, opts.Model)
	}
	query += " ORDER BY created_at DESC, rowid DESC"
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return collect[Run](rows)
}

// CountRuns returns the number of tracked runs
func (s *Store) CountRuns(ctx context.Context) (int, error) {
	var n int
	if err := s.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM runs").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count runs: %w", err)
	}
	return n, nil
}

// RunStats aggregates all runs. Averages cover successful runs only.
func (s *Store) RunStats(ctx context.Context) (*Stats, error) {
	var st Stats
	err := s.conn.QueryRowContext(ctx, `
SELECT COUNT(*),
       COALESCE(SUM(success), 0),
       COALESCE(AVG(CASE WHEN success = 1 THEN completeness END), 0),
       COALESCE(AVG(CASE WHEN success = 1 THEN density END), 0),
       COALESCE(AVG(CASE WHEN success = 1 THEN latency END), 0)
FROM runs`).Scan(&st.Total, &st.Success, &st.AvgCompleteness, &st.AvgDensity, &st.AvgLatency)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate runs: %w", err)
	}
	return &st, nil
}

// Artifacts returns the stored texts of a run keyed by artifact name
func (s *Store) Artifacts(ctx context.Context, runID string) (map[string]string, error) {
	rows, err := s.conn.QueryContext(ctx, "SELECT name, content FROM artifacts WHERE run_id = ?", runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query artifacts: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var name, content string
		if err := rows.Scan(&name, &content); err != nil {
			return nil, fmt.Errorf("failed to scan artifact: %w", err)
		}
		out[name] = content
	}
	return out, rows.Err()
}
