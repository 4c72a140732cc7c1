package lro

import (
	"encoding/json"
	"time"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusTimedOut  Status = "timed_out"
)

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusTimedOut
}

// Job is one provider-side operation, tracked in memory for the lifetime of
// the request that submitted it.
type Job struct {
	ID          string    `json:"id"`
	Provider    string    `json:"provider"`
	SubmittedAt time.Time `json:"submitted_at"`
	Status      Status    `json:"status"`

	// Filled when completed
	Result json.RawMessage `json:"result,omitempty"`

	// Filled when failed or timed out
	ErrorMessage string `json:"error_message,omitempty"`

	Attempts   int       `json:"attempts"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
}

func newJob(provider string, at time.Time) *Job {
	return &Job{Provider: provider, SubmittedAt: at, Status: StatusPending}
}

// finish moves a pending job into a terminal state. It returns false and
// leaves the job untouched when the job is already terminal.
func (j *Job) finish(status Status, result json.RawMessage, msg string, at time.Time) bool {
	if j.Status.Terminal() || !status.Terminal() {
		return false
	}
	j.Status = status
	j.FinishedAt = at
	if status == StatusCompleted {
		j.Result = result
		j.ErrorMessage = ""
	} else {
		j.Result = nil
		j.ErrorMessage = msg
	}
	return true
}
