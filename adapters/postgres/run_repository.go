// Package postgres stores interpretation runs and their summary tables.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"pdlens/domain/core"
	"pdlens/domain/importance"
	"pdlens/domain/run"
	apperrors "pdlens/internal/errors"
	"pdlens/ports"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// runRow mirrors analysis_runs.
type runRow struct {
	ID          string    `db:"id"`
	CreatedAt   time.Time `db:"created_at"`
	Samples     int       `db:"samples"`
	Features    int       `db:"features"`
	BestModel   string    `db:"best_model"`
	BestScore   float64   `db:"best_score"`
	TopK        int       `db:"top_k"`
	Parameters  []byte    `db:"parameters"`
	Fingerprint string    `db:"fingerprint"`
}

// summaryRow mirrors summary_rows.
type summaryRow struct {
	RunID   string `db:"run_id"`
	Ordinal int    `db:"ordinal"`
	importance.Row
}

// RunRepositoryImpl implements ports.RunRepository on PostgreSQL.
type RunRepositoryImpl struct {
	db *sqlx.DB
}

// NewRunRepository creates a PostgreSQL run repository.
func NewRunRepository(db *sqlx.DB) ports.RunRepository {
	return &RunRepositoryImpl{db: db}
}

// Open connects to the database and verifies it with a ping.
func Open(ctx context.Context, url string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", url)
	if err != nil {
		return nil, apperrors.DatabaseError("failed to connect", err)
	}
	return db, nil
}

// Connect opens the database and applies pending migrations.
func Connect(ctx context.Context, url string) (*sqlx.DB, error) {
	db, err := Open(ctx, url)
	if err != nil {
		return nil, err
	}
	if err := EnsureSchema(ctx, db); err != nil {
		db.Close()
		return nil, apperrors.DatabaseError("failed to migrate schema", err)
	}
	return db, nil
}

// SaveRun inserts the run and its summary rows in one transaction.
func (r *RunRepositoryImpl) SaveRun(ctx context.Context, rec *run.Record) error {
	if rec == nil || rec.ID == "" {
		return apperrors.ValidationError("run record requires an id")
	}
	row, rows, err := toRows(rec)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return apperrors.DatabaseError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO analysis_runs (
			id, created_at, samples, features, best_model, best_score, top_k, parameters, fingerprint
		) VALUES (
			:id, :created_at, :samples, :features, :best_model, :best_score, :top_k, :parameters, :fingerprint
		)
	`, row)
	if err != nil {
		return apperrors.DatabaseError("failed to insert run", err)
	}

	if len(rows) > 0 {
		_, err = tx.NamedExecContext(ctx, `
			INSERT INTO summary_rows (
				run_id, ordinal, method, rank, feature_index, feature_name, importance_score, feature_type
			) VALUES (
				:run_id, :ordinal, :method, :rank, :feature_index, :feature_name, :importance_score, :feature_type
			)
		`, rows)
		if err != nil {
			return apperrors.DatabaseError("failed to insert summary rows", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return apperrors.DatabaseError("failed to commit run", err)
	}
	return nil
}

// GetRun loads a run with its summary table.
func (r *RunRepositoryImpl) GetRun(ctx context.Context, id core.RunID) (*run.Record, error) {
	var row runRow
	err := r.db.GetContext(ctx, &row, `
		SELECT id, created_at, samples, features, best_model, best_score, top_k, parameters, fingerprint
		FROM analysis_runs WHERE id = $1
	`, string(id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", core.ErrRunNotFound, id)
	}
	if err != nil {
		return nil, apperrors.DatabaseError("failed to get run", err)
	}

	recs, err := r.attachSummaries(ctx, []runRow{row})
	if err != nil {
		return nil, err
	}
	return recs[0], nil
}

// ListRuns returns the newest runs first.
func (r *RunRepositoryImpl) ListRuns(ctx context.Context, limit int) ([]*run.Record, error) {
	if limit <= 0 {
		limit = 20
	}
	var rows []runRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, created_at, samples, features, best_model, best_score, top_k, parameters, fingerprint
		FROM analysis_runs
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, apperrors.DatabaseError("failed to list runs", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return r.attachSummaries(ctx, rows)
}

// attachSummaries loads the summary rows of every run in one query.
func (r *RunRepositoryImpl) attachSummaries(ctx context.Context, rows []runRow) ([]*run.Record, error) {
	ids := make([]string, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}

	var summaryRows []summaryRow
	err := r.db.SelectContext(ctx, &summaryRows, `
		SELECT run_id, ordinal, method, rank, feature_index, feature_name, importance_score, feature_type
		FROM summary_rows
		WHERE run_id = ANY($1)
		ORDER BY run_id, ordinal
	`, pq.Array(ids))
	if err != nil {
		return nil, apperrors.DatabaseError("failed to load summary rows", err)
	}

	byRun := make(map[string][]importance.Row, len(rows))
	for _, sr := range summaryRows {
		byRun[sr.RunID] = append(byRun[sr.RunID], sr.Row)
	}

	out := make([]*run.Record, len(rows))
	for i, row := range rows {
		rec, err := fromRow(row, byRun[row.ID])
		if err != nil {
			return nil, err
		}
		out[i] = rec
	}
	return out, nil
}

func toRows(rec *run.Record) (runRow, []summaryRow, error) {
	params, err := json.Marshal(rec.Params)
	if err != nil {
		return runRow{}, nil, fmt.Errorf("failed to marshal parameters: %w", err)
	}
	row := runRow{
		ID:          string(rec.ID),
		CreatedAt:   rec.CreatedAt,
		Samples:     rec.Samples,
		Features:    rec.Features,
		BestModel:   rec.BestModel,
		BestScore:   rec.BestScore,
		Parameters:  params,
		Fingerprint: string(rec.Fingerprint),
	}
	var rows []summaryRow
	if rec.Summary != nil {
		row.TopK = rec.Summary.TopK
		rows = make([]summaryRow, len(rec.Summary.Rows))
		for i, r := range rec.Summary.Rows {
			rows[i] = summaryRow{RunID: row.ID, Ordinal: i, Row: r}
		}
	}
	return row, rows, nil
}

func fromRow(row runRow, rows []importance.Row) (*run.Record, error) {
	var params run.Parameters
	if len(row.Parameters) > 0 {
		if err := json.Unmarshal(row.Parameters, &params); err != nil {
			return nil, fmt.Errorf("failed to unmarshal parameters of run %s: %w", row.ID, err)
		}
	}
	return &run.Record{
		ID:          core.RunID(row.ID),
		CreatedAt:   row.CreatedAt,
		Samples:     row.Samples,
		Features:    row.Features,
		BestModel:   row.BestModel,
		BestScore:   row.BestScore,
		Params:      params,
		Fingerprint: core.Hash(row.Fingerprint),
		Summary:     &importance.Summary{TopK: row.TopK, Rows: rows},
	}, nil
}
