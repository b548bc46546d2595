// Package db provides SurrealDB persistence for ingestion jobs.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/fieldnotes-ai/recall/internal/models"
)

// jobRecord is the ingest_job table row. IDs come back as RecordIDs, so
// the persisted shape differs from models.Job.
type jobRecord struct {
	ID         surrealmodels.RecordID `json:"id"`
	UserID     string                 `json:"user_id"`
	Name       string                 `json:"name"`
	Modality   string                 `json:"modality"`
	Status     string                 `json:"status"`
	ChunkCount int                    `json:"chunk_count"`
	Error      *string                `json:"error,omitempty"`
	SourceDate *time.Time             `json:"source_date,omitempty"`
	Created    time.Time              `json:"created"`
	Updated    time.Time              `json:"updated"`
}

func (r jobRecord) toJob() models.Job {
	job := models.Job{
		UserID:     r.UserID,
		Name:       r.Name,
		Modality:   models.Modality(r.Modality),
		Status:     models.JobStatus(r.Status),
		ChunkCount: r.ChunkCount,
		SourceDate: r.SourceDate,
		CreatedAt:  r.Created,
		UpdatedAt:  r.Updated,
	}
	if id, ok := r.ID.ID.(string); ok {
		job.ID = id
	}
	if r.Error != nil {
		job.Error = *r.Error
	}
	return job
}

// CreateJob persists a new pending job.
func (c *Client) CreateJob(ctx context.Context, job models.Job) error {
	vars := map[string]any{
		"id":       job.ID,
		"user_id":  job.UserID,
		"name":     job.Name,
		"modality": string(job.Modality),
		"status":   string(models.JobStatusPending),
	}
	sql := `
		CREATE type::record("ingest_job", $id) CONTENT {
			user_id: $user_id,
			name: $name,
			modality: $modality,
			status: $status
		}
	`
	if job.SourceDate != nil {
		vars["source_date"] = *job.SourceDate
		sql = `
			CREATE type::record("ingest_job", $id) CONTENT {
				user_id: $user_id,
				name: $name,
				modality: $modality,
				status: $status,
				source_date: $source_date
			}
		`
	}

	if _, err := surrealdb.Query[any](ctx, c.db, sql, vars); err != nil {
		return fmt.Errorf("create job: %w", wrapQueryError(err))
	}
	return nil
}

// GetJob retrieves a job by ID. Returns ErrNotFound if absent.
func (c *Client) GetJob(ctx context.Context, id string) (*models.Job, error) {
	results, err := surrealdb.Query[[]jobRecord](ctx, c.db, `
		SELECT * FROM type::record("ingest_job", $id)
	`, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("get job: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, ErrNotFound
	}
	job := (*results)[0].Result[0].toJob()
	return &job, nil
}

// ListJobs returns a user's jobs, most recent first.
func (c *Client) ListJobs(ctx context.Context, userID string, limit int) ([]models.Job, error) {
	results, err := surrealdb.Query[[]jobRecord](ctx, c.db, `
		SELECT * FROM ingest_job WHERE user_id = $user_id ORDER BY created DESC LIMIT $limit
	`, map[string]any{"user_id": userID, "limit": limit})
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 {
		return nil, nil
	}
	jobs := make([]models.Job, 0, len((*results)[0].Result))
	for _, r := range (*results)[0].Result {
		jobs = append(jobs, r.toJob())
	}
	return jobs, nil
}

// MarkProcessing transitions a job to processing.
func (c *Client) MarkProcessing(ctx context.Context, id string) error {
	return c.updateStatus(ctx, id, models.JobStatusProcessing, map[string]any{})
}

// CompleteJob marks a job completed with its written chunk count.
func (c *Client) CompleteJob(ctx context.Context, id string, chunkCount int) error {
	return c.updateStatus(ctx, id, models.JobStatusCompleted, map[string]any{
		"chunk_count": chunkCount,
	})
}

// FailJob marks a job failed with an error message.
func (c *Client) FailJob(ctx context.Context, id string, errMsg string) error {
	return c.updateStatus(ctx, id, models.JobStatusFailed, map[string]any{
		"error": errMsg,
	})
}

func (c *Client) updateStatus(ctx context.Context, id string, status models.JobStatus, extra map[string]any) error {
	setClause := "status = $status, updated = time::now()"
	vars := map[string]any{"id": id, "status": string(status)}
	for k, v := range extra {
		setClause += fmt.Sprintf(", %s = $%s", k, k)
		vars[k] = v
	}

	sql := fmt.Sprintf(`UPDATE type::record("ingest_job", $id) SET %s`, setClause)
	if _, err := surrealdb.Query[any](ctx, c.db, sql, vars); err != nil {
		return fmt.Errorf("update job %s: %w", status, wrapQueryError(err))
	}
	return nil
}

// IncompleteJobs returns jobs still pending or processing, oldest first.
// Used at startup to requeue work interrupted by a restart.
func (c *Client) IncompleteJobs(ctx context.Context) ([]models.Job, error) {
	results, err := surrealdb.Query[[]jobRecord](ctx, c.db, `
		SELECT * FROM ingest_job
		WHERE status IN ['pending', 'processing']
		ORDER BY created ASC
	`, nil)
	if err != nil {
		return nil, fmt.Errorf("incomplete jobs: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 {
		return nil, nil
	}
	jobs := make([]models.Job, 0, len((*results)[0].Result))
	for _, r := range (*results)[0].Result {
		jobs = append(jobs, r.toJob())
	}
	return jobs, nil
}
