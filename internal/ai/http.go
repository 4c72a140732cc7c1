package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/suPer8Hu/genrelay/internal/common"
)

const maxErrorBody = 64 * 1024

func defaultHTTPClient() *http.Client {
	return &http.Client{Timeout: 90 * time.Second}
}

// call is one JSON request to a provider.
type call struct {
	method string
	url    string
	header http.Header
	body   any
}

// doJSON performs c and decodes a 2xx body into out (when non-nil). It returns
// the raw body on success. Failures come back as *common.Error: 429 and 5xx
// are transient, other non-2xx statuses are provider failures.
func doJSON(ctx context.Context, hc *http.Client, provider string, c call, out any) ([]byte, error) {
	var rd io.Reader
	if c.body != nil {
		b, err := json.Marshal(c.body)
		if err != nil {
			return nil, err
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, c.method, c.url, rd)
	if err != nil {
		return nil, err
	}
	for k, vs := range c.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if c.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := hc.Do(req)
	if err != nil {
		return nil, transportError(provider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		kind := common.KindProviderFailure
		if common.IsRetryableStatus(resp.StatusCode) {
			kind = common.KindTransient
		}
		return nil, &common.Error{
			Kind:       kind,
			Provider:   provider,
			StatusCode: resp.StatusCode,
			Message:    upstreamMessage(body, resp.StatusCode),
		}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportError(provider, err)
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return nil, &common.Error{
				Kind:       common.KindProviderFailure,
				Provider:   provider,
				StatusCode: resp.StatusCode,
				Message:    fmt.Sprintf("%s: invalid response body", provider),
				Err:        err,
			}
		}
	}
	return raw, nil
}

// transportError drops the request URL, which may carry an API key.
func transportError(provider string, err error) error {
	cause := err
	var ue *url.Error
	if errors.As(err, &ue) {
		cause = ue.Err
	}
	return &common.Error{
		Kind:     common.KindTransient,
		Provider: provider,
		Message:  fmt.Sprintf("%s: %v", provider, cause),
		Err:      cause,
	}
}

// upstreamMessage pulls a human message out of an error body. It understands
// {"error":{"message":..}}, {"error":".."} and {"message":..}, then falls back
// to a body snippet and finally to "status N".
func upstreamMessage(body []byte, status int) string {
	var probe struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}
	if json.Unmarshal(body, &probe) == nil {
		if msg := errorText(probe.Error); msg != "" {
			return msg
		}
		if probe.Message != "" {
			return probe.Message
		}
	}
	if s := strings.TrimSpace(string(body)); s != "" {
		if len(s) > 200 {
			s = s[:200] + "..."
		}
		return s
	}
	return fmt.Sprintf("status %d", status)
}

// errorText reads an error field that is either a string or an object with
// a message.
func errorText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return strings.TrimSpace(s)
	}
	var obj struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &obj) == nil && obj.Message != "" {
		return obj.Message
	}
	return ""
}

func bearer(key string) http.Header {
	return http.Header{"Authorization": []string{"Bearer " + key}}
}

func joinURL(base string, parts ...string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(strings.Join(parts, "/"), "/")
}

func withKey(u, key string) string {
	sep := "?"
	if strings.Contains(u, "?") {
		sep = "&"
	}
	return u + sep + "key=" + url.QueryEscape(key)
}
