package domain

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus captures the outcome of an alignment run.
type JobStatus string

const (
	StatusSucceeded JobStatus = "succeeded"
	StatusFailed    JobStatus = "failed"
	StatusRejected  JobStatus = "rejected"
)

// Job is one alignment request as recorded in the run history.
type Job struct {
	ID          uuid.UUID  `json:"id"`
	Filename    string     `json:"filename"`
	Tool        string     `json:"tool"`
	Status      JobStatus  `json:"status"`
	Sequences   int        `json:"sequences"`
	InputBytes  int64      `json:"inputBytes"`
	OutputBytes int64      `json:"outputBytes"`
	Error       string     `json:"error,omitempty"`
	ArchivedAt  string     `json:"archivedAt,omitempty"`
	StartedAt   time.Time  `json:"startedAt"`
	FinishedAt  *time.Time `json:"finishedAt,omitempty"`
}

// Duration reports how long the run took, or zero while unfinished.
func (j *Job) Duration() time.Duration {
	if j.FinishedAt == nil {
		return 0
	}
	return j.FinishedAt.Sub(j.StartedAt)
}

// AlignResponse is the JSON variant of a successful alignment.
type AlignResponse struct {
	ID        string `json:"id"`
	Filename  string `json:"filename"`
	Sequences int    `json:"sequences"`
	Aligned   string `json:"aligned"`
}

// HistoryResponse lists recent runs.
type HistoryResponse struct {
	Jobs []Job `json:"jobs"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}
