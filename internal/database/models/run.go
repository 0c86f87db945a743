package models

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// AuditRecord is the outcome of one reconciliation decision. It is never
// modified after the cycle that produced it.
type AuditRecord struct {
	ID        int      `json:"id"`
	Title     string   `json:"title"`
	OldTags   []string `json:"old_tags"`
	NewTags   []string `json:"new_tags"`
	Score     *int     `json:"score"`
	Threshold int      `json:"threshold"`
	Success   bool     `json:"success"`
}

type RunStatus string

const (
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// Run summarises one cycle.
type Run struct {
	ID          string        `json:"id"`
	Kind        string        `json:"kind"`
	Status      RunStatus     `json:"status"`
	StartedAt   time.Time     `json:"started_at"`
	FinishedAt  time.Time     `json:"finished_at"`
	Total       int           `json:"total"`
	Updated     int           `json:"updated"`
	Failed      int           `json:"failed"`
	Error       string        `json:"error,omitempty"`
	ResultsFile string        `json:"results_file,omitempty"`
	DryRun      bool          `json:"dry_run,omitempty"`
	Records     []AuditRecord `json:"records,omitempty"`
}

func (r *Run) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

type RunRepository struct {
	db *sql.DB
}

func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Create stores run and its audit records in one transaction.
func (r *RunRepository) Create(run *Run) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
        INSERT INTO runs (id, kind, status, started_at, finished_at, total, updated, failed, error, results_file)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `, run.ID, run.Kind, run.Status, run.StartedAt.UTC(), run.FinishedAt.UTC(),
		run.Total, run.Updated, run.Failed, run.Error, run.ResultsFile)
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", run.ID, err)
	}

	for _, rec := range run.Records {
		oldTags, err := json.Marshal(rec.OldTags)
		if err != nil {
			return err
		}
		newTags, err := json.Marshal(rec.NewTags)
		if err != nil {
			return err
		}
		_, err = tx.Exec(`
            INSERT INTO audit_records (run_id, entity_id, title, old_tags, new_tags, score, threshold, success)
            VALUES (?, ?, ?, ?, ?, ?, ?, ?)
        `, run.ID, rec.ID, rec.Title, string(oldTags), string(newTags), rec.Score, rec.Threshold, rec.Success)
		if err != nil {
			return fmt.Errorf("failed to insert audit record for %d: %w", rec.ID, err)
		}
	}
	return tx.Commit()
}

// GetRecent returns up to limit runs, newest first, without their records.
func (r *RunRepository) GetRecent(limit int) ([]Run, error) {
	rows, err := r.db.Query(`
        SELECT id, kind, status, started_at, finished_at, total, updated, failed, error, results_file
        FROM runs ORDER BY started_at DESC LIMIT ?
    `, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		if err := scanRun(rows, &run); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetByID returns the run with its audit records, or nil when it does not exist.
func (r *RunRepository) GetByID(id string) (*Run, error) {
	row := r.db.QueryRow(`
        SELECT id, kind, status, started_at, finished_at, total, updated, failed, error, results_file
        FROM runs WHERE id = ?
    `, id)

	var run Run
	if err := scanRun(row, &run); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	rows, err := r.db.Query(`
        SELECT entity_id, title, old_tags, new_tags, score, threshold, success
        FROM audit_records WHERE run_id = ? ORDER BY id
    `, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var rec AuditRecord
		var oldTags, newTags string
		var score sql.NullInt64
		if err := rows.Scan(&rec.ID, &rec.Title, &oldTags, &newTags, &score, &rec.Threshold, &rec.Success); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(oldTags), &rec.OldTags); err != nil {
			return nil, fmt.Errorf("corrupt old_tags for run %s: %w", id, err)
		}
		if err := json.Unmarshal([]byte(newTags), &rec.NewTags); err != nil {
			return nil, fmt.Errorf("corrupt new_tags for run %s: %w", id, err)
		}
		if score.Valid {
			s := int(score.Int64)
			rec.Score = &s
		}
		run.Records = append(run.Records, rec)
	}
	return &run, rows.Err()
}

// Prune deletes all but the newest keep runs. Audit records follow through
// the foreign key.
func (r *RunRepository) Prune(keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	result, err := r.db.Exec(`
        DELETE FROM runs WHERE id NOT IN (
            SELECT id FROM runs ORDER BY started_at DESC LIMIT ?
        )
    `, keep)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(s scanner, run *Run) error {
	return s.Scan(&run.ID, &run.Kind, &run.Status, &run.StartedAt, &run.FinishedAt,
		&run.Total, &run.Updated, &run.Failed, &run.Error, &run.ResultsFile)
}
