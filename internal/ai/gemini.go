package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/suPer8Hu/genrelay/internal/common"
)

const (
	GeminiEndpoint    = "/generateContent"
	geminiTextModel   = "gemini-pro"
	geminiVisionModel = "gemini-pro-vision"
)

type GeminiProvider struct {
	BaseURL string
	Keys    KeyResolver
	Client  *http.Client
	now     func() time.Time
}

type geminiInlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenConfig struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	MaxOutputTokens int      `json:"maxOutputTokens,omitempty"`
}

type geminiReq struct {
	Contents         []geminiContent  `json:"contents"`
	GenerationConfig *geminiGenConfig `json:"generationConfig,omitempty"`
}

type geminiResp struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

func (r geminiResp) text() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	var b strings.Builder
	for _, part := range r.Candidates[0].Content.Parts {
		b.WriteString(part.Text)
	}
	return b.String()
}

// GeminiResult is the data of a successful text or vision call.
type GeminiResult struct {
	Text     string          `json:"text"`
	Response json.RawMessage `json:"response"`
}

func NewGeminiProvider(baseURL string, keys KeyResolver) *GeminiProvider {
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	return &GeminiProvider{
		BaseURL: baseURL,
		Keys:    keys,
		Client:  defaultHTTPClient(),
		now:     time.Now,
	}
}

func (p *GeminiProvider) Name() string { return "gemini" }

func (p *GeminiProvider) Supports(action string) bool {
	return action == "text" || action == "vision"
}

func (p *GeminiProvider) Do(ctx context.Context, action string, params Params) Result {
	switch action {
	case "text":
		model := params.StringOr("model", geminiTextModel)
		return p.generate(ctx, model, params, buildGeminiText)
	case "vision":
		return p.generate(ctx, geminiVisionModel, params, buildGeminiVision)
	}
	return fail("", "", ErrInvalidAction, -1)
}

func buildGeminiText(params Params) (geminiReq, error) {
	prompt := params.String("prompt")
	if prompt == "" {
		return geminiReq{}, common.Validation("gemini", "prompt is required")
	}
	req := geminiReq{Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}}}

	var gc geminiGenConfig
	if params.Has("temperature") {
		t := params.Float("temperature", 0)
		gc.Temperature = &t
	}
	gc.MaxOutputTokens = params.Int("maxOutputTokens", 0)
	if gc.Temperature != nil || gc.MaxOutputTokens > 0 {
		req.GenerationConfig = &gc
	}
	return req, nil
}

func buildGeminiVision(params Params) (geminiReq, error) {
	prompt := params.String("prompt")
	if prompt == "" {
		return geminiReq{}, common.Validation("gemini", "prompt is required")
	}
	data := params.String("imageData")
	if data == "" {
		return geminiReq{}, common.Validation("gemini", "imageData is required")
	}
	return geminiReq{Contents: []geminiContent{{
		Role: "user",
		Parts: []geminiPart{
			{Text: prompt},
			{InlineData: &geminiInlineData{MimeType: "image/jpeg", Data: data}},
		},
	}}}, nil
}

func (p *GeminiProvider) generate(ctx context.Context, model string, params Params, build func(Params) (geminiReq, error)) Result {
	key, err := resolveKey(ctx, p.Keys, p.Name())
	if err != nil {
		return fail(GeminiEndpoint, model, err, -1)
	}
	body, err := build(params)
	if err != nil {
		return fail(GeminiEndpoint, model, err, -1)
	}

	start := p.now()
	var decoded geminiResp
	raw, err := doJSON(ctx, p.Client, p.Name(), call{
		method: http.MethodPost,
		url:    withKey(joinURL(p.BaseURL, "models", model+":generateContent"), key),
		body:   body,
	}, &decoded)
	elapsed := p.now().Sub(start)
	if err != nil {
		return fail(GeminiEndpoint, model, err, elapsed)
	}
	return succeed(GeminiEndpoint, model, GeminiResult{Text: decoded.text(), Response: raw}, elapsed)
}
