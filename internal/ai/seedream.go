package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/suPer8Hu/genrelay/internal/common"
)

const (
	SeedreamImageEndpoint   = "/seedream/generate"
	SeedreamUpscaleEndpoint = "/seedream/upscale"
	seedreamDefaultModel    = "seedream-4-0-250828"
)

// Optional image fields are forwarded untouched. The first group is copied
// when truthy, the second whenever present (false and 0 are meaningful).
var (
	seedreamIfSet = []string{
		"negative_prompt", "image_url", "mask", "size", "width", "height",
		"aspect_ratio", "num_images", "steps", "seed", "scheduler",
		"prompt_language", "response_format", "output_type",
		"sequential_image_generation", "metadata",
	}
	seedreamIfPresent = []string{
		"guidance_scale", "style_strength", "color_preserve", "contrast_enhance",
		"watermark", "enable_face_beautify", "enable_artifact_fix", "stream",
	}
)

type SeedreamProvider struct {
	BaseURL string
	Keys    KeyResolver
	Client  *http.Client
	now     func() time.Time
}

type seedreamUpscaleReq struct {
	ImageURL    string `json:"image_url"`
	ScaleFactor int    `json:"scale_factor"`
}

func NewSeedreamProvider(baseURL string, keys KeyResolver) *SeedreamProvider {
	if baseURL == "" {
		baseURL = "https://ark.ap-southeast.bytepluses.com/api/v3"
	}
	return &SeedreamProvider{
		BaseURL: baseURL,
		Keys:    keys,
		Client:  defaultHTTPClient(),
		now:     time.Now,
	}
}

func (p *SeedreamProvider) Name() string { return "seedream" }

func (p *SeedreamProvider) Supports(action string) bool {
	return action == "image" || action == "upscale"
}

func (p *SeedreamProvider) Do(ctx context.Context, action string, params Params) Result {
	switch action {
	case "image":
		model := params.StringOr("model", seedreamDefaultModel)
		return p.post(ctx, SeedreamImageEndpoint, "/images/generations", model, func() (any, error) {
			return buildSeedreamImage(params)
		})
	case "upscale":
		return p.post(ctx, SeedreamUpscaleEndpoint, "/seedream/upscale", "", func() (any, error) {
			return buildSeedreamUpscale(params)
		})
	}
	return fail("", "", ErrInvalidAction, -1)
}

func buildSeedreamImage(params Params) (map[string]any, error) {
	prompt := params.String("prompt")
	if prompt == "" {
		return nil, common.Validation("seedream", "prompt is required")
	}
	body := map[string]any{
		"model":  params.StringOr("model", seedreamDefaultModel),
		"prompt": prompt,
	}
	for _, k := range seedreamIfSet {
		if v := params[k]; truthy(v) {
			body[k] = v
		}
	}
	for _, k := range seedreamIfPresent {
		if params.Has(k) {
			body[k] = params[k]
		}
	}
	return body, nil
}

func buildSeedreamUpscale(params Params) (seedreamUpscaleReq, error) {
	u := params.String("imageUrl")
	if u == "" {
		return seedreamUpscaleReq{}, common.Validation("seedream", "imageUrl is required")
	}
	return seedreamUpscaleReq{ImageURL: u, ScaleFactor: params.Int("scaleFactor", 2)}, nil
}

func (p *SeedreamProvider) post(ctx context.Context, endpoint, path, model string, build func() (any, error)) Result {
	key, err := resolveKey(ctx, p.Keys, p.Name())
	if err != nil {
		return fail(endpoint, model, err, -1)
	}
	body, err := build()
	if err != nil {
		return fail(endpoint, model, err, -1)
	}

	start := p.now()
	raw, err := doJSON(ctx, p.Client, p.Name(), call{
		method: http.MethodPost,
		url:    joinURL(p.BaseURL, path),
		header: bearer(key),
		body:   body,
	}, nil)
	elapsed := p.now().Sub(start)
	if err != nil {
		return fail(endpoint, model, err, elapsed)
	}
	return succeed(endpoint, model, json.RawMessage(raw), elapsed)
}
