package ai

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/suPer8Hu/genrelay/internal/common"
	"github.com/suPer8Hu/genrelay/internal/lro"
)

const (
	veoModel         = "veo-3.1"
	VeoVideoEndpoint = "/models/" + veoModel + ":generateVideo"
)

type VeoProvider struct {
	BaseURL string
	Keys    KeyResolver
	Client  *http.Client
	Tracker *lro.Tracker
}

type veoVideoConfig struct {
	Duration    int    `json:"duration"`
	Resolution  string `json:"resolution"`
	AspectRatio string `json:"aspectRatio"`
}

type veoCreateReq struct {
	Prompt      string         `json:"prompt"`
	VideoConfig veoVideoConfig `json:"videoConfig"`
}

type veoOperation struct {
	Name     string          `json:"name"`
	Done     bool            `json:"done"`
	Error    json.RawMessage `json:"error"`
	Response json.RawMessage `json:"response"`
}

func NewVeoProvider(baseURL string, keys KeyResolver, poll lro.Config, opts ...lro.Option) *VeoProvider {
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	return &VeoProvider{
		BaseURL: baseURL,
		Keys:    keys,
		Client:  defaultHTTPClient(),
		Tracker: lro.NewTracker("veo", poll, opts...),
	}
}

func (p *VeoProvider) Name() string { return "veo" }

func (p *VeoProvider) Supports(action string) bool { return action == "video" }

func (p *VeoProvider) Do(ctx context.Context, action string, params Params) Result {
	if action == "video" {
		return p.video(ctx, params)
	}
	return fail("", "", ErrInvalidAction, -1)
}

func buildVeoVideo(params Params) (veoCreateReq, error) {
	prompt := params.String("prompt")
	if prompt == "" {
		return veoCreateReq{}, common.Validation("veo", "prompt is required")
	}
	return veoCreateReq{
		Prompt: prompt,
		VideoConfig: veoVideoConfig{
			Duration:    params.Int("duration", 10),
			Resolution:  params.StringOr("resolution", "1080p"),
			AspectRatio: params.StringOr("aspectRatio", "16:9"),
		},
	}, nil
}

// classifyVeo maps a long-running operation onto the tracker's states. A
// finished operation is failed when it carries an error, else completed with
// its response.
func classifyVeo(raw []byte) (lro.Check, error) {
	var op veoOperation
	if err := json.Unmarshal(raw, &op); err != nil {
		return lro.Check{}, &common.Error{Kind: common.KindTransient, Provider: "veo", Message: "veo: invalid operation body", Err: err}
	}
	if !op.Done {
		return lro.Pending(), nil
	}
	if len(op.Error) > 0 && string(op.Error) != "null" {
		return lro.Failed(errorText(op.Error)), nil
	}
	return lro.Completed(op.Response), nil
}

func (p *VeoProvider) video(ctx context.Context, params Params) Result {
	key, err := resolveKey(ctx, p.Keys, p.Name())
	if err != nil {
		return fail(VeoVideoEndpoint, veoModel, err, -1)
	}
	body, err := buildVeoVideo(params)
	if err != nil {
		return fail(VeoVideoEndpoint, veoModel, err, -1)
	}

	submit := func(ctx context.Context) (string, error) {
		var op veoOperation
		if _, err := doJSON(ctx, p.Client, p.Name(), call{
			method: http.MethodPost,
			url:    withKey(joinURL(p.BaseURL, VeoVideoEndpoint), key),
			body:   body,
		}, &op); err != nil {
			return "", err
		}
		return op.Name, nil
	}
	check := func(ctx context.Context, name string) (lro.Check, error) {
		raw, err := doJSON(ctx, p.Client, p.Name(), call{
			method: http.MethodGet,
			url:    withKey(joinURL(p.BaseURL, name), key),
		}, nil)
		if err != nil {
			return lro.Check{}, err
		}
		return classifyVeo(raw)
	}

	return videoResult(p.Name(), VeoVideoEndpoint, veoModel, p.Tracker.Run(ctx, submit, check))
}
