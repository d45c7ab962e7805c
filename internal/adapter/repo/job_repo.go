package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/aryanguptajsm/fluxora/internal/domain"
	"github.com/aryanguptajsm/fluxora/internal/infra"
	"github.com/aryanguptajsm/fluxora/internal/sqlinline"
)

// JobRepositoryPG journals proxy invocations into generation_jobs.
type JobRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewJobRepository creates a new job repository backed by PostgreSQL.
func NewJobRepository(sql infra.SQLExecutor) *JobRepositoryPG {
	return &JobRepositoryPG{sql: sql}
}

// EnsureSchema creates the journal and credential tables when missing.
func (r *JobRepositoryPG) EnsureSchema(ctx context.Context) error {
	if _, err := r.sql.Exec(ctx, sqlinline.QEnsureGenerationTables); err != nil {
		return fmt.Errorf("ensure generation tables: %w", err)
	}
	return nil
}

// Create inserts a finished job.
func (r *JobRepositoryPG) Create(ctx context.Context, job *domain.Job) error {
	createdAt := job.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := r.sql.Exec(ctx, sqlinline.QInsertGenerationJob,
		job.ID,
		job.RequestID,
		job.Backend,
		job.Strategy,
		job.Prompt,
		string(job.Status),
		job.ImageCount,
		string(job.ErrorKind),
		job.ErrorMessage,
		job.Country,
		job.Duration.Milliseconds(),
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("insert generation job: %w", err)
	}
	return nil
}

// Recent returns the newest jobs first.
func (r *JobRepositoryPG) Recent(ctx context.Context, limit int) ([]domain.Job, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.sql.Query(ctx, sqlinline.QSelectRecentGenerationJobs, limit)
	if err != nil {
		return nil, fmt.Errorf("select generation jobs: %w", err)
	}
	defer rows.Close()

	var jobs []domain.Job
	for rows.Next() {
		var (
			job        domain.Job
			status     string
			kind       string
			durationMS int64
		)
		if err := rows.Scan(
			&job.ID,
			&job.RequestID,
			&job.Backend,
			&job.Strategy,
			&job.Prompt,
			&status,
			&job.ImageCount,
			&kind,
			&job.ErrorMessage,
			&job.Country,
			&durationMS,
			&job.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan generation job: %w", err)
		}
		job.Status = domain.JobStatus(status)
		job.ErrorKind = domain.ErrorKind(kind)
		job.Duration = time.Duration(durationMS) * time.Millisecond
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// OutcomeCounts tallies the last 24 hours by status.
func (r *JobRepositoryPG) OutcomeCounts(ctx context.Context) (map[domain.JobStatus]int64, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QCountGenerationOutcomes)
	if err != nil {
		return nil, fmt.Errorf("count generation outcomes: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.JobStatus]int64)
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan generation outcome: %w", err)
		}
		counts[domain.JobStatus(status)] = n
	}
	return counts, rows.Err()
}
