package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/suPer8Hu/genrelay/internal/common"
)

const (
	OpenAIChatEndpoint  = "/chat/completions"
	OpenAIImageEndpoint = "/images/generations"
)

// OpenAIProvider talks to any OpenAI-compatible API.
type OpenAIProvider struct {
	BaseURL string
	Keys    KeyResolver
	Client  *http.Client
	now     func() time.Time
}

type openAIMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIChatReq struct {
	Model       string      `json:"model"`
	Messages    []openAIMsg `json:"messages"`
	MaxTokens   int         `json:"max_tokens"`
	Temperature float64     `json:"temperature"`
}

type openAIChatResp struct {
	Usage *struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage,omitempty"`
}

type openAIImageReq struct {
	Model   string `json:"model"`
	Prompt  string `json:"prompt"`
	Size    string `json:"size"`
	Quality string `json:"quality"`
	N       int    `json:"n"`
}

func NewOpenAIProvider(baseURL string, keys KeyResolver) *OpenAIProvider {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return &OpenAIProvider{
		BaseURL: baseURL,
		Keys:    keys,
		Client:  defaultHTTPClient(),
		now:     time.Now,
	}
}

func (p *OpenAIProvider) Name() string { return "openai" }

func (p *OpenAIProvider) Supports(action string) bool {
	return action == "chat" || action == "image"
}

func (p *OpenAIProvider) Do(ctx context.Context, action string, params Params) Result {
	switch action {
	case "chat":
		return p.chat(ctx, params)
	case "image":
		return p.image(ctx, params)
	}
	return fail("", "", ErrInvalidAction, -1)
}

func buildOpenAIChat(params Params) (openAIChatReq, error) {
	prompt := params.String("prompt")
	if prompt == "" {
		return openAIChatReq{}, common.Validation("openai", "prompt is required")
	}
	return openAIChatReq{
		Model:       params.StringOr("model", "gpt-4"),
		Messages:    []openAIMsg{{Role: "user", Content: prompt}},
		MaxTokens:   params.Int("maxTokens", 1000),
		Temperature: params.Float("temperature", 0.7),
	}, nil
}

func buildOpenAIImage(params Params) (openAIImageReq, error) {
	prompt := params.String("prompt")
	if prompt == "" {
		return openAIImageReq{}, common.Validation("openai", "prompt is required")
	}
	return openAIImageReq{
		Model:   params.StringOr("model", "dall-e-3"),
		Prompt:  prompt,
		Size:    params.StringOr("size", "1024x1024"),
		Quality: params.StringOr("quality", "standard"),
		N:       params.Int("n", 1),
	}, nil
}

func (p *OpenAIProvider) chat(ctx context.Context, params Params) Result {
	model := params.StringOr("model", "gpt-4")
	key, err := resolveKey(ctx, p.Keys, p.Name())
	if err != nil {
		return fail(OpenAIChatEndpoint, model, err, -1)
	}
	body, err := buildOpenAIChat(params)
	if err != nil {
		return fail(OpenAIChatEndpoint, model, err, -1)
	}

	start := p.now()
	var decoded openAIChatResp
	raw, err := doJSON(ctx, p.Client, p.Name(), call{
		method: http.MethodPost,
		url:    joinURL(p.BaseURL, OpenAIChatEndpoint),
		header: bearer(key),
		body:   body,
	}, &decoded)
	elapsed := p.now().Sub(start)
	if err != nil {
		return fail(OpenAIChatEndpoint, model, err, elapsed)
	}

	r := succeed(OpenAIChatEndpoint, model, json.RawMessage(raw), elapsed)
	if decoded.Usage != nil {
		r.TokensUsed = decoded.Usage.TotalTokens
	}
	return r
}

func (p *OpenAIProvider) image(ctx context.Context, params Params) Result {
	model := params.StringOr("model", "dall-e-3")
	key, err := resolveKey(ctx, p.Keys, p.Name())
	if err != nil {
		return fail(OpenAIImageEndpoint, model, err, -1)
	}
	body, err := buildOpenAIImage(params)
	if err != nil {
		return fail(OpenAIImageEndpoint, model, err, -1)
	}

	start := p.now()
	raw, err := doJSON(ctx, p.Client, p.Name(), call{
		method: http.MethodPost,
		url:    joinURL(p.BaseURL, OpenAIImageEndpoint),
		header: bearer(key),
		body:   body,
	}, nil)
	elapsed := p.now().Sub(start)
	if err != nil {
		return fail(OpenAIImageEndpoint, model, err, elapsed)
	}
	return succeed(OpenAIImageEndpoint, model, json.RawMessage(raw), elapsed)
}

