package ai

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/suPer8Hu/genrelay/internal/common"
)

var ErrInvalidAction = errors.New("invalid action")

// KeyResolver returns the credential for a platform. ok is false when none
// is configured. *credential.Service satisfies it.
type KeyResolver interface {
	Resolve(ctx context.Context, platform string) (secret string, ok bool, err error)
}

// Platform is one upstream provider reachable through the facade.
type Platform interface {
	Name() string
	Supports(action string) bool
	Do(ctx context.Context, action string, p Params) Result
}

// Result is the outcome of one facade call.
type Result struct {
	Success bool
	Data    any
	Err     error

	// Duration is set when Timed is true, i.e. once an upstream call started.
	Duration time.Duration
	Timed    bool

	TokensUsed int
	Endpoint   string
	Model      string
	StatusCode int
	Polls      int
}

func (r Result) DurationMs() int64 { return r.Duration.Milliseconds() }

func (r Result) Kind() common.Kind { return common.KindOf(r.Err) }

func (r Result) ErrorMessage() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

func succeed(endpoint, model string, data any, d time.Duration) Result {
	return Result{
		Success:    true,
		Data:       data,
		Duration:   d,
		Timed:      true,
		Endpoint:   endpoint,
		Model:      model,
		StatusCode: http.StatusOK,
	}
}

// fail reports err. A negative d means no upstream call was made.
func fail(endpoint, model string, err error, d time.Duration) Result {
	r := Result{
		Err:        err,
		Endpoint:   endpoint,
		Model:      model,
		StatusCode: http.StatusInternalServerError,
	}
	if d >= 0 {
		r.Duration = d
		r.Timed = true
	}
	var e *common.Error
	if errors.As(err, &e) {
		switch {
		case e.StatusCode > 0:
			r.StatusCode = e.StatusCode
		case e.Kind == common.KindValidation:
			r.StatusCode = http.StatusBadRequest
		}
	}
	return r
}

// resolveKey looks the credential up for this one call.
func resolveKey(ctx context.Context, keys KeyResolver, platform string) (string, error) {
	if keys == nil {
		return "", common.NotConfigured(platform)
	}
	k, ok, err := keys.Resolve(ctx, platform)
	if err != nil {
		return "", &common.Error{Kind: common.KindNotConfigured, Provider: platform, Message: common.NotConfigured(platform).Message, Err: err}
	}
	if !ok || k == "" {
		return "", common.NotConfigured(platform)
	}
	return k, nil
}
