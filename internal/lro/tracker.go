package lro

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/suPer8Hu/genrelay/internal/common"
	"github.com/suPer8Hu/genrelay/internal/logging"
)

// Config controls the poll loop of one provider.
type Config struct {
	Interval    time.Duration
	MaxAttempts int
	// Action names what is being generated, e.g. "Video". It prefixes the
	// default failure and timeout messages.
	Action string
}

func (c Config) failedMessage() string  { return c.Action + " generation failed" }
func (c Config) timeoutMessage() string { return c.Action + " generation timeout" }

// Outcome is the terminal result of Run or Poll.
type Outcome struct {
	Job     *Job
	Elapsed time.Duration
	Polls   int
	// Err is nil only when Job.Status is completed.
	Err error
}

func (o Outcome) Succeeded() bool {
	return o.Job != nil && o.Job.Status == StatusCompleted
}

// Tracker submits a job and polls it at a fixed interval until it reaches a
// terminal state or the attempt budget runs out.
type Tracker struct {
	provider string
	cfg      Config
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error
}

type Option func(*Tracker)

// WithClock replaces the wall clock and the wait between polls.
func WithClock(now func() time.Time, sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
		if sleep != nil {
			t.sleep = sleep
		}
	}
}

func NewTracker(provider string, cfg Config, opts ...Option) *Tracker {
	if cfg.Action == "" {
		cfg.Action = "Video"
	}
	t := &Tracker{
		provider: provider,
		cfg:      cfg,
		now:      time.Now,
		sleep:    sleepCtx,
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

func (t *Tracker) Config() Config { return t.cfg }

// Run submits once and, if the provider accepted the job, polls it. A failed
// submission returns immediately without any status check.
func (t *Tracker) Run(ctx context.Context, submit SubmitFunc, check StatusFunc) Outcome {
	job := newJob(t.provider, t.now())

	id, err := submit(ctx)
	if err == nil && id == "" {
		err = &common.Error{Kind: common.KindSubmission, Provider: t.provider, Message: t.provider + ": response carried no job id"}
	}
	if err != nil {
		err = asSubmissionError(t.provider, err)
		job.finish(StatusFailed, nil, err.Error(), t.now())
		return Outcome{Job: job, Elapsed: job.FinishedAt.Sub(job.SubmittedAt), Err: err}
	}

	job.ID = id
	logging.Debugf("[lro] submitted provider=%s job=%s", t.provider, id)
	return t.Poll(ctx, job, check)
}

// Poll drives a pending job to a terminal state. Elapsed time is measured
// from job.SubmittedAt.
func (t *Tracker) Poll(ctx context.Context, job *Job, check StatusFunc) Outcome {
	polls := 0
	done := func(status Status, result []byte, err error) Outcome {
		msg := ""
		if err != nil {
			msg = err.Error()
		}
		job.finish(status, result, msg, t.now())
		return Outcome{Job: job, Elapsed: job.FinishedAt.Sub(job.SubmittedAt), Polls: polls, Err: err}
	}

	if job.Status.Terminal() {
		return Outcome{Job: job, Elapsed: job.FinishedAt.Sub(job.SubmittedAt)}
	}

	for job.Attempts < t.cfg.MaxAttempts {
		if err := t.sleep(ctx, t.cfg.Interval); err != nil {
			return done(StatusFailed, nil, t.canceled(err))
		}

		job.Attempts++
		polls++
		res, err := check(ctx, job.ID)
		if err != nil {
			if ctx.Err() != nil {
				return done(StatusFailed, nil, t.canceled(ctx.Err()))
			}
			if common.KindOf(err) == common.KindProviderFailure {
				return done(StatusFailed, nil, err)
			}
			logging.Warnf("[lro] status check failed provider=%s job=%s attempt=%d/%d err=%v",
				t.provider, job.ID, job.Attempts, t.cfg.MaxAttempts, err)
			continue
		}

		switch res.Status {
		case StatusCompleted:
			return done(StatusCompleted, res.Result, nil)
		case StatusFailed:
			msg := res.Message
			if msg == "" {
				msg = t.cfg.failedMessage()
			}
			return done(StatusFailed, nil, &common.Error{Kind: common.KindProviderFailure, Provider: t.provider, Message: msg})
		}
	}

	return done(StatusTimedOut, nil, &common.Error{
		Kind:     common.KindTimeout,
		Provider: t.provider,
		Message:  t.cfg.timeoutMessage(),
	})
}

func (t *Tracker) canceled(cause error) error {
	return &common.Error{
		Kind:     common.KindCanceled,
		Provider: t.provider,
		Message:  fmt.Sprintf("%s generation canceled: %v", t.cfg.Action, cause),
		Err:      cause,
	}
}

func asSubmissionError(provider string, err error) error {
	var e *common.Error
	if errors.As(err, &e) {
		// validation / not-configured keep their kind; everything else from the
		// create call is a submission failure.
		if e.Kind == common.KindValidation || e.Kind == common.KindNotConfigured || e.Kind == common.KindSubmission {
			return e
		}
		return &common.Error{Kind: common.KindSubmission, Provider: provider, StatusCode: e.StatusCode, Message: e.Message, Err: e.Err}
	}
	return &common.Error{Kind: common.KindSubmission, Provider: provider, Message: err.Error(), Err: err}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
