package model

import (
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusStreaming  JobStatus = "streaming"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// IsTerminal reports whether no further transitions are allowed.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// JobMetadata carries the request context that is not part of the resolved
// outcome: what the caller asked for and how.
type JobMetadata struct {
	RequestedModel string         `json:"requested_model,omitempty"`
	Options        map[string]any `json:"options,omitempty"`
	Streaming      bool           `json:"streaming,omitempty"`
}

// GenerationJob is the full lifecycle record of one AI generation request.
// State machine: pending -> processing|streaming -> completed|failed.
// Output, TokensUsed and Cost are populated together, exactly once, at the
// transition into completed.
type GenerationJob struct {
	ID          string
	TenantID    string // empty for system-internal jobs
	UserID      string
	ModelName   string // set once resolved
	Prompt      string
	Output      string
	Status      JobStatus
	LastError   string
	TokensUsed  int
	Cost        float64
	DurationMs  int64
	Metadata    JobMetadata
	CreatedAt   time.Time
	CompletedAt *time.Time
}

// NewGenerationJob creates a job in pending with a fresh id.
func NewGenerationJob(tenantID, userID, prompt string, meta JobMetadata) *GenerationJob {
	return &GenerationJob{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		UserID:    userID,
		Prompt:    prompt,
		Status:    JobStatusPending,
		Metadata:  meta,
		CreatedAt: time.Now(),
	}
}

// MarkProcessing records the resolved model and moves the job out of pending.
// Streaming jobs go straight to streaming since the provider capability must
// be known before the first chunk is requested.
func (j *GenerationJob) MarkProcessing(modelName string, streaming bool) {
	j.ModelName = modelName
	if streaming {
		j.Status = JobStatusStreaming
		return
	}
	j.Status = JobStatusProcessing
}

// Complete finalizes the job with its output and accounting fields.
func (j *GenerationJob) Complete(output string, tokens int, cost float64, elapsed time.Duration) {
	now := time.Now()
	j.Status = JobStatusCompleted
	j.Output = output
	j.TokensUsed = tokens
	j.Cost = cost
	j.DurationMs = elapsed.Milliseconds()
	j.CompletedAt = &now
}

// Fail finalizes the job with an error message.
func (j *GenerationJob) Fail(errMsg string, elapsed time.Duration) {
	now := time.Now()
	j.Status = JobStatusFailed
	j.LastError = errMsg
	j.DurationMs = elapsed.Milliseconds()
	j.CompletedAt = &now
}
