package lro

import (
	"context"
	"encoding/json"
)

// Check is what a provider's status endpoint said on one poll, already mapped
// from the provider's own vocabulary.
type Check struct {
	Status  Status
	Result  json.RawMessage
	Message string
}

func Pending() Check { return Check{Status: StatusPending} }

func Completed(result json.RawMessage) Check {
	return Check{Status: StatusCompleted, Result: result}
}

func Failed(msg string) Check { return Check{Status: StatusFailed, Message: msg} }

// SubmitFunc issues the single create call and returns the provider job id.
type SubmitFunc func(ctx context.Context) (jobID string, err error)

// StatusFunc issues one status check for jobID.
type StatusFunc func(ctx context.Context, jobID string) (Check, error)
