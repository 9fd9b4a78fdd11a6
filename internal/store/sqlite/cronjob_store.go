package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cloddsbot/core/internal/domain"
)

// CronJobStore implements domain.CronJobStore using SQLite. Schedule and
// Payload are sealed-variant structs with fields that only apply to one
// kind; both are stored as JSON text rather than spread across nullable
// columns.
type CronJobStore struct {
	db *DB
}

// NewCronJobStore creates a CronJobStore backed by the given database.
func NewCronJobStore(db *DB) *CronJobStore {
	return &CronJobStore{db: db}
}

const cronJobCols = `id, agent_id, name, description, enabled, delete_after_run, schedule_json,
	session_target, wake_mode, payload_json, created_at, updated_at,
	next_run_at, running_at, last_run_at, last_status, last_error, last_dur_ms`

func scanCronJob(scan func(...any) error) (domain.CronJob, error) {
	var j domain.CronJob
	var scheduleJSON, payloadJSON string
	var lastStatus sql.NullString
	err := scan(
		&j.ID, &j.AgentID, &j.Name, &j.Description, &j.Enabled, &j.DeleteAfterRun, &scheduleJSON,
		&j.SessionTarget, &j.WakeMode, &payloadJSON, &j.CreatedAt, &j.UpdatedAt,
		&j.NextRunAt, &j.RunningAt, &j.LastRunAt, &lastStatus, &j.LastError, &j.LastDurMs,
	)
	if err != nil {
		return domain.CronJob{}, err
	}
	j.LastStatus = domain.JobRunStatus(lastStatus.String)
	if err := json.Unmarshal([]byte(scheduleJSON), &j.Schedule); err != nil {
		return domain.CronJob{}, fmt.Errorf("unmarshal schedule: %w", err)
	}
	if err := json.Unmarshal([]byte(payloadJSON), &j.Payload); err != nil {
		return domain.CronJob{}, fmt.Errorf("unmarshal payload: %w", err)
	}
	return j, nil
}

func (s *CronJobStore) exec(ctx context.Context, j domain.CronJob, query string) error {
	scheduleJSON, err := json.Marshal(j.Schedule)
	if err != nil {
		return fmt.Errorf("sqlite: marshal cron job %s schedule: %w", j.ID, err)
	}
	payloadJSON, err := json.Marshal(j.Payload)
	if err != nil {
		return fmt.Errorf("sqlite: marshal cron job %s payload: %w", j.ID, err)
	}

	var lastStatus *string
	if j.LastStatus != "" {
		v := string(j.LastStatus)
		lastStatus = &v
	}

	_, err = s.db.conn.ExecContext(ctx, query,
		j.ID, j.AgentID, j.Name, j.Description, j.Enabled, j.DeleteAfterRun, string(scheduleJSON),
		j.SessionTarget, j.WakeMode, string(payloadJSON), j.CreatedAt, j.UpdatedAt,
		j.NextRunAt, j.RunningAt, j.LastRunAt, lastStatus, j.LastError, j.LastDurMs,
	)
	if err != nil {
		return fmt.Errorf("sqlite: write cron job %s: %w", j.ID, err)
	}
	return nil
}

// Create inserts a new cron job.
func (s *CronJobStore) Create(ctx context.Context, j domain.CronJob) error {
	const query = `INSERT INTO cron_jobs (` + cronJobCols + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	return s.exec(ctx, j, query)
}

// Update overwrites every mutable field of an existing cron job.
func (s *CronJobStore) Update(ctx context.Context, j domain.CronJob) error {
	const query = `
		UPDATE cron_jobs SET
			agent_id = ?, name = ?, description = ?, enabled = ?, delete_after_run = ?, schedule_json = ?,
			session_target = ?, wake_mode = ?, payload_json = ?, created_at = ?, updated_at = ?,
			next_run_at = ?, running_at = ?, last_run_at = ?, last_status = ?, last_error = ?, last_dur_ms = ?
		WHERE id = ?`

	scheduleJSON, err := json.Marshal(j.Schedule)
	if err != nil {
		return fmt.Errorf("sqlite: marshal cron job %s schedule: %w", j.ID, err)
	}
	payloadJSON, err := json.Marshal(j.Payload)
	if err != nil {
		return fmt.Errorf("sqlite: marshal cron job %s payload: %w", j.ID, err)
	}
	var lastStatus *string
	if j.LastStatus != "" {
		v := string(j.LastStatus)
		lastStatus = &v
	}

	_, err = s.db.conn.ExecContext(ctx, query,
		j.AgentID, j.Name, j.Description, j.Enabled, j.DeleteAfterRun, string(scheduleJSON),
		j.SessionTarget, j.WakeMode, string(payloadJSON), j.CreatedAt, j.UpdatedAt,
		j.NextRunAt, j.RunningAt, j.LastRunAt, lastStatus, j.LastError, j.LastDurMs,
		j.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: update cron job %s: %w", j.ID, err)
	}
	return nil
}

// Delete removes a cron job by its primary key.
func (s *CronJobStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.conn.ExecContext(ctx, `DELETE FROM cron_jobs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: delete cron job %s: %w", id, err)
	}
	return nil
}

// GetByID retrieves a cron job by its primary key.
func (s *CronJobStore) GetByID(ctx context.Context, id string) (domain.CronJob, error) {
	row := s.db.conn.QueryRowContext(ctx, `SELECT `+cronJobCols+` FROM cron_jobs WHERE id = ?`, id)
	j, err := scanCronJob(row.Scan)
	if err == sql.ErrNoRows {
		return domain.CronJob{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.CronJob{}, fmt.Errorf("sqlite: get cron job %s: %w", id, err)
	}
	return j, nil
}

// ListEnabled returns every enabled cron job, the set the scheduler arms
// timers for on startup.
func (s *CronJobStore) ListEnabled(ctx context.Context) ([]domain.CronJob, error) {
	rows, err := s.db.conn.QueryContext(ctx, `SELECT `+cronJobCols+` FROM cron_jobs WHERE enabled = 1`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list enabled cron jobs: %w", err)
	}
	defer rows.Close()
	return scanCronJobRows(rows)
}

// ListDuePast returns every enabled cron job whose next_run_at has already
// passed, the set a recovering scheduler must catch up on.
func (s *CronJobStore) ListDuePast(ctx context.Context, now time.Time) ([]domain.CronJob, error) {
	const query = `SELECT ` + cronJobCols + ` FROM cron_jobs WHERE enabled = 1 AND next_run_at IS NOT NULL AND next_run_at <= ?`

	rows, err := s.db.conn.QueryContext(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list due cron jobs: %w", err)
	}
	defer rows.Close()
	return scanCronJobRows(rows)
}

func scanCronJobRows(rows *sql.Rows) ([]domain.CronJob, error) {
	var jobs []domain.CronJob
	for rows.Next() {
		j, err := scanCronJob(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scan cron job: %w", err)
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: cron job rows: %w", err)
	}
	return jobs, nil
}
