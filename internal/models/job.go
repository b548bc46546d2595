package models

import "time"

// JobStatus represents the state of an ingestion job.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Modality identifies the kind of source content an ingestion job carries.
type Modality string

const (
	ModalityAudio    Modality = "audio"
	ModalityDocument Modality = "document"
	ModalityText     Modality = "text"
)

// Job is a persisted ingestion job. The vector points written for a job
// carry its ID, so re-running a job overwrites its points in place.
type Job struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	Name       string     `json:"name"`
	Modality   Modality   `json:"modality"`
	Status     JobStatus  `json:"status"`
	ChunkCount int        `json:"chunk_count"`
	Error      string     `json:"error,omitempty"`
	SourceDate *time.Time `json:"source_date,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}
