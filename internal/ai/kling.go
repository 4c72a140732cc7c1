package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/suPer8Hu/genrelay/internal/common"
	"github.com/suPer8Hu/genrelay/internal/logging"
	"github.com/suPer8Hu/genrelay/internal/lro"
)

const (
	KlingVideoEndpoint = "/v1/video/text-to-video"
	klingTaskPath      = "/v1/video/task/"
)

type KlingProvider struct {
	BaseURL string
	Keys    KeyResolver
	Client  *http.Client
	Tracker *lro.Tracker
	now     func() time.Time
}

type klingCreateReq struct {
	Prompt      string `json:"prompt"`
	Duration    int    `json:"duration"`
	AspectRatio string `json:"aspect_ratio"`
	Mode        string `json:"mode"`
}

type klingCreateResp struct {
	TaskID string `json:"task_id"`
	Data   *struct {
		TaskID string `json:"task_id"`
	} `json:"data,omitempty"`
}

func (r klingCreateResp) taskID() string {
	if r.TaskID != "" {
		return r.TaskID
	}
	if r.Data != nil {
		return r.Data.TaskID
	}
	return ""
}

type klingTask struct {
	Status string          `json:"status"`
	Error  json.RawMessage `json:"error"`
}

// NewKlingProvider polls at poll.Interval for at most poll.MaxAttempts checks.
func NewKlingProvider(baseURL string, keys KeyResolver, poll lro.Config, opts ...lro.Option) *KlingProvider {
	if baseURL == "" {
		baseURL = "https://api.piapi.ai/api/kling"
	}
	return &KlingProvider{
		BaseURL: baseURL,
		Keys:    keys,
		Client:  defaultHTTPClient(),
		Tracker: lro.NewTracker("kling", poll, opts...),
		now:     time.Now,
	}
}

func (p *KlingProvider) Name() string { return "kling" }

func (p *KlingProvider) Supports(action string) bool {
	return action == "video" || action == "status"
}

func (p *KlingProvider) Do(ctx context.Context, action string, params Params) Result {
	switch action {
	case "video":
		return p.video(ctx, params)
	case "status":
		return p.status(ctx, params)
	}
	return fail("", "", ErrInvalidAction, -1)
}

func buildKlingVideo(params Params) (klingCreateReq, error) {
	prompt := params.String("prompt")
	if prompt == "" {
		return klingCreateReq{}, common.Validation("kling", "prompt is required")
	}
	return klingCreateReq{
		Prompt:      prompt,
		Duration:    params.Int("duration", 5),
		AspectRatio: params.StringOr("aspectRatio", "16:9"),
		Mode:        params.StringOr("mode", "standard"),
	}, nil
}

// classifyKling maps a task body onto the tracker's states.
func classifyKling(raw []byte) (lro.Check, error) {
	var t klingTask
	if err := json.Unmarshal(raw, &t); err != nil {
		return lro.Check{}, &common.Error{Kind: common.KindTransient, Provider: "kling", Message: "kling: invalid task body", Err: err}
	}
	switch t.Status {
	case "completed":
		return lro.Completed(json.RawMessage(raw)), nil
	case "failed":
		return lro.Failed(errorText(t.Error)), nil
	}
	return lro.Pending(), nil
}

func (p *KlingProvider) taskURL(id string) string {
	return joinURL(p.BaseURL, klingTaskPath+url.PathEscape(id))
}

func (p *KlingProvider) video(ctx context.Context, params Params) Result {
	key, err := resolveKey(ctx, p.Keys, p.Name())
	if err != nil {
		return fail(KlingVideoEndpoint, "", err, -1)
	}
	body, err := buildKlingVideo(params)
	if err != nil {
		return fail(KlingVideoEndpoint, "", err, -1)
	}

	submit := func(ctx context.Context) (string, error) {
		var created klingCreateResp
		if _, err := doJSON(ctx, p.Client, p.Name(), call{
			method: http.MethodPost,
			url:    joinURL(p.BaseURL, KlingVideoEndpoint),
			header: bearer(key),
			body:   body,
		}, &created); err != nil {
			return "", err
		}
		return created.taskID(), nil
	}
	check := func(ctx context.Context, id string) (lro.Check, error) {
		raw, err := doJSON(ctx, p.Client, p.Name(), call{
			method: http.MethodGet,
			url:    p.taskURL(id),
			header: bearer(key),
		}, nil)
		if err != nil {
			return lro.Check{}, err
		}
		return classifyKling(raw)
	}

	return videoResult(p.Name(), KlingVideoEndpoint, "", p.Tracker.Run(ctx, submit, check))
}

// status is a single task lookup with no polling.
func (p *KlingProvider) status(ctx context.Context, params Params) Result {
	id := params.String("taskId")
	endpoint := klingTaskPath + id
	key, err := resolveKey(ctx, p.Keys, p.Name())
	if err != nil {
		return fail(endpoint, "", err, -1)
	}
	if id == "" {
		return fail(endpoint, "", common.Validation("kling", "taskId is required"), -1)
	}

	start := p.now()
	raw, err := doJSON(ctx, p.Client, p.Name(), call{
		method: http.MethodGet,
		url:    p.taskURL(id),
		header: bearer(key),
	}, nil)
	elapsed := p.now().Sub(start)
	if err != nil {
		return fail(endpoint, "", err, elapsed)
	}
	return succeed(endpoint, "", json.RawMessage(raw), elapsed)
}

// videoResult turns a tracker outcome into a facade result.
func videoResult(provider, endpoint, model string, out lro.Outcome) Result {
	logging.Infof("[%s] video job=%s status=%s polls=%d elapsed=%s",
		provider, out.Job.ID, out.Job.Status, out.Polls, out.Elapsed)

	var r Result
	if out.Succeeded() {
		r = succeed(endpoint, model, out.Job.Result, out.Elapsed)
	} else {
		r = fail(endpoint, model, out.Err, out.Elapsed)
	}
	r.Polls = out.Polls
	return r
}
