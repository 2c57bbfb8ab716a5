package jobs

import (
	"context"
	"errors"
	"time"
)

// ErrJobNotFound is returned by stores when no job exists for an ID.
var ErrJobNotFound = errors.New("job not found")

// JobType represents the type of job to be executed.
type JobType string

// JobTypeParseStatement is a statement parsing job.
const JobTypeParseStatement JobType = "parse_statement"

// JobStatus represents the current status of a job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusRetrying  JobStatus = "retrying"
)

// ParseStatementJob describes one asynchronous statement ingestion: fetch
// the uploaded file from storage, parse it, and persist the resulting
// transactions.
type ParseStatementJob struct {
	JobID string `json:"job_id"`

	// DocumentID is the ledger document this statement was recorded as.
	DocumentID string `json:"document_id"`

	// GCSURI locates the uploaded statement file.
	GCSURI string `json:"gcs_uri"`

	// FileName is the original upload name; it decides the parse strategy.
	FileName string `json:"file_name"`

	// ParsingRunID is set once the worker starts a run.
	ParsingRunID string `json:"parsing_run_id,omitempty"`

	Status JobStatus `json:"status"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Error holds failure details for failed or retrying jobs.
	Error string `json:"error,omitempty"`

	// RowCount is the number of transactions produced on success.
	RowCount int `json:"row_count,omitempty"`

	RetryCount int `json:"retry_count"`
	MaxRetries int `json:"max_retries"`
}

// Job is the generic contract all job types satisfy.
type Job interface {
	GetID() string
	GetType() JobType
	GetStatus() JobStatus
}

func (j *ParseStatementJob) GetID() string        { return j.JobID }
func (j *ParseStatementJob) GetType() JobType     { return JobTypeParseStatement }
func (j *ParseStatementJob) GetStatus() JobStatus { return j.Status }

// Publisher publishes jobs to a queue. The abstraction allows swapping the
// in-memory queue for Cloud Tasks or Pub/Sub without touching callers.
type Publisher interface {
	PublishParseStatement(ctx context.Context, job *ParseStatementJob) error
	Close() error
}

// Consumer consumes jobs from a queue.
type Consumer interface {
	// Start begins consuming; the handler is called for each job received.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops consuming and waits for in-flight jobs to complete.
	Stop(ctx context.Context) error
}

// JobHandler processes one job. A returned error marks the job for retry.
type JobHandler func(ctx context.Context, job Job) error

// JobStore tracks job state for status queries.
type JobStore interface {
	SaveJob(ctx context.Context, job *ParseStatementJob) error
	GetJob(ctx context.Context, jobID string) (*ParseStatementJob, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]*ParseStatementJob, error)
}

// JobFilter narrows ListJobs results.
type JobFilter struct {
	DocumentID string
	Status     JobStatus
	Limit      int
	Offset     int
}
