package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suPer8Hu/genrelay/internal/ai"
	"github.com/suPer8Hu/genrelay/internal/common"
	"github.com/suPer8Hu/genrelay/internal/config"
	"github.com/suPer8Hu/genrelay/internal/credential"
	"github.com/suPer8Hu/genrelay/internal/db"
	"github.com/suPer8Hu/genrelay/internal/httpapi/handlers"
	"github.com/suPer8Hu/genrelay/internal/secret"
	"github.com/suPer8Hu/genrelay/internal/usage"
)

func init() { gin.SetMode(gin.TestMode) }

type fakePlatform struct {
	name   string
	res    ai.Result
	panics bool
	got    ai.Params
}

func (p *fakePlatform) Name() string                { return p.name }
func (p *fakePlatform) Supports(action string) bool { return action == "go" || action == "boom" }
func (p *fakePlatform) Do(_ context.Context, action string, params ai.Params) ai.Result {
	if action == "boom" || p.panics {
		panic("provider blew up")
	}
	p.got = params
	return p.res
}

type captureRecorder struct {
	mu      sync.Mutex
	entries []usage.Entry
}

func (r *captureRecorder) Record(_ context.Context, e usage.Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
}

type testEnv struct {
	router   *gin.Engine
	platform *fakePlatform
	recorder *captureRecorder
	usage    *usage.Service
}

func newTestEnv(t *testing.T, cfg config.Config) *testEnv {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	gdb, err := db.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))

	c, err := secret.FromPassphrase("router-test", "salt")
	require.NoError(t, err)

	fp := &fakePlatform{name: "kling"}
	reg := ai.NewRegistry()
	reg.Register(fp)

	rec := &captureRecorder{}
	usageSvc := usage.NewService(usage.NewRepo(gdb), nil)
	r := NewRouter(cfg, handlers.Deps{
		Keys:      credential.NewService(credential.NewRepo(gdb), c),
		Platforms: reg,
		Recorder:  rec,
		UsageLog:  usageSvc,
	})
	return &testEnv{router: r, platform: fp, recorder: rec, usage: usageSvc}
}

func defaultCfg() config.Config {
	return config.Config{JWTSecret: "test-secret", TokenTTL: time.Hour, UsageRecentLimit: 100}
}

func (e *testEnv) do(method, path, body, token string) (*httptest.ResponseRecorder, common.Envelope) {
	var rd *bytes.Reader
	if body != "" {
		rd = bytes.NewReader([]byte(body))
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var env common.Envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w, env
}

func TestPlatform_RequestErrors(t *testing.T) {
	e := newTestEnv(t, defaultCfg())

	cases := []struct {
		name, path, body string
		status           int
		msg              string
	}{
		{"missing action", "/api/platforms/kling", `{"prompt":"x"}`, 400, "Action is required"},
		{"invalid action", "/api/platforms/kling", `{"action":"dance"}`, 400, "Invalid action"},
		{"unknown platform", "/api/platforms/midjourney", `{"action":"go"}`, 404, "Invalid platform"},
		{"bad json", "/api/platforms/kling", `{`, 400, "invalid json"},
	}
	for _, tc := range cases {
		w, env := e.do(http.MethodPost, tc.path, tc.body, "")
		assert.Equal(t, tc.status, w.Code, tc.name)
		assert.False(t, env.Success, tc.name)
		assert.Equal(t, tc.msg, env.Error, tc.name)
	}
	assert.Empty(t, e.recorder.entries, "rejected requests are not usage")
}

func TestPlatform_Success(t *testing.T) {
	e := newTestEnv(t, defaultCfg())
	e.platform.res = ai.Result{
		Success: true, Data: map[string]any{"video_url": "u"}, Duration: 20 * time.Second, Timed: true,
		TokensUsed: 12, Endpoint: "/v1/video/text-to-video", StatusCode: 200,
	}

	w, env := e.do(http.MethodPost, "/api/platforms/kling", `{"action":"go","prompt":"cat"}`, "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.Success)
	require.NotNil(t, env.Duration)
	assert.Equal(t, int64(20000), *env.Duration)
	require.NotNil(t, env.TokensUsed)
	assert.Equal(t, 12, *env.TokensUsed)
	assert.Equal(t, ai.Params{"prompt": "cat"}, e.platform.got, "action is stripped from params")

	require.Len(t, e.recorder.entries, 1)
	got := e.recorder.entries[0]
	assert.Equal(t, "kling", got.Provider)
	assert.Equal(t, "POST", got.Method)
	assert.Equal(t, int64(20000), got.DurationMs)
	assert.True(t, got.Success)
}

func TestPlatform_FailureEnvelope(t *testing.T) {
	e := newTestEnv(t, defaultCfg())
	e.platform.res = ai.Result{
		Err:      &common.Error{Kind: common.KindTimeout, Provider: "kling", Message: "Video generation timeout"},
		Duration: 300 * time.Second, Timed: true, StatusCode: 500,
	}

	w, env := e.do(http.MethodPost, "/api/platforms/kling", `{"action":"go","prompt":"cat"}`, "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.False(t, env.Success)
	assert.Equal(t, "Video generation timeout", env.Error)
	assert.Equal(t, common.KindTimeout, env.ErrorKind)
	require.NotNil(t, env.Duration)
	assert.Equal(t, int64(300000), *env.Duration)

	require.Len(t, e.recorder.entries, 1)
	assert.Equal(t, "Video generation timeout", e.recorder.entries[0].ErrorMessage)
	assert.Equal(t, 500, e.recorder.entries[0].StatusCode)
}

func TestPlatform_ValidationIs400(t *testing.T) {
	e := newTestEnv(t, defaultCfg())
	e.platform.res = ai.Result{Err: common.Validation("kling", "prompt is required"), StatusCode: 400}

	w, env := e.do(http.MethodPost, "/api/platforms/kling", `{"action":"go"}`, "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "prompt is required", env.Error)
	assert.Nil(t, env.Duration)
}

func TestPlatform_PanicIs500(t *testing.T) {
	e := newTestEnv(t, defaultCfg())

	w, env := e.do(http.MethodPost, "/api/platforms/kling", `{"action":"boom"}`, "")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.False(t, env.Success)
	assert.NotEmpty(t, env.Error)
}

func TestKeys_CRUD(t *testing.T) {
	e := newTestEnv(t, defaultCfg())

	w, env := e.do(http.MethodPost, "/api/keys", `{"platform":"openai"}`, "")
	assert.Equal(t, 400, w.Code)
	assert.Equal(t, "Platform and API key are required", env.Error)

	w, env = e.do(http.MethodPost, "/api/keys", `{"platform":"midjourney","apiKey":"k"}`, "")
	assert.Equal(t, 400, w.Code)
	assert.Equal(t, "Invalid platform", env.Error)

	w, env = e.do(http.MethodPost, "/api/keys", `{"platform":"openai","apiKey":"sk-live","keyName":"prod"}`, "")
	require.Equal(t, 200, w.Code)
	id := env.Data.(map[string]any)["id"].(string)

	w, _ = e.do(http.MethodGet, "/api/keys", "", "")
	require.Equal(t, 200, w.Code)
	assert.NotContains(t, w.Body.String(), "sk-live")
	assert.Contains(t, w.Body.String(), `"keyPreview"`)

	w, env = e.do(http.MethodPatch, "/api/keys", `{"id":"`+id+`","isActive":false}`, "")
	require.Equal(t, 200, w.Code)
	assert.Equal(t, false, env.Data.(map[string]any)["isActive"])

	w, env = e.do(http.MethodPatch, "/api/keys", `{"id":"missing","keyName":"x"}`, "")
	assert.Equal(t, 404, w.Code)
	assert.Equal(t, "Key not found", env.Error)

	w, _ = e.do(http.MethodDelete, "/api/keys?id="+id, "", "")
	assert.Equal(t, 200, w.Code)
	w, env = e.do(http.MethodDelete, "/api/keys?id="+id, "", "")
	assert.Equal(t, 404, w.Code)
	assert.Equal(t, "Key not found", env.Error)
	w, _ = e.do(http.MethodDelete, "/api/keys", "", "")
	assert.Equal(t, 400, w.Code)
}

func TestAutoImportAndConnectionStatus(t *testing.T) {
	e := newTestEnv(t, defaultCfg())

	w, env := e.do(http.MethodPost, "/api/auto-import", `{"nope":1}`, "")
	assert.Equal(t, 400, w.Code)
	assert.Equal(t, "Invalid keys format", env.Error)

	w, _ = e.do(http.MethodPost, "/api/auto-import", `{"keys":{"veo":{"apiKey":"AIza","keyName":"team"}}}`, "")
	require.Equal(t, 200, w.Code)

	w, _ = e.do(http.MethodGet, "/api/connection-status", "", "")
	require.Equal(t, 200, w.Code)
	assert.Contains(t, w.Body.String(), `{"platform":"veo","connected":true,"keyName":"team"}`)

	// disabled by config: empty result
	w, env = e.do(http.MethodGet, "/api/auto-import", "", "")
	require.Equal(t, 200, w.Code)
	assert.Empty(t, env.Data)
}

func TestUsage_List(t *testing.T) {
	e := newTestEnv(t, defaultCfg())
	ctx := context.Background()
	require.NoError(t, e.usage.Save(ctx, usage.Entry{Provider: "veo", Endpoint: "/models/veo-3.1:generateVideo", StatusCode: 200, Success: true}))
	require.NoError(t, e.usage.Save(ctx, usage.Entry{Provider: "kling", Endpoint: "/v1/video/text-to-video", StatusCode: 500}))

	w, env := e.do(http.MethodGet, "/api/usage?platform=veo", "", "")
	require.Equal(t, 200, w.Code)
	assert.Len(t, env.Data, 1)

	w, _ = e.do(http.MethodGet, "/api/usage?limit=abc", "", "")
	assert.Equal(t, 400, w.Code)
	w, _ = e.do(http.MethodGet, "/api/usage?platform=nope", "", "")
	assert.Equal(t, 400, w.Code)
}

func TestAuth_LoginFlow(t *testing.T) {
	cfg := defaultCfg()
	cfg.AdminPassword = "hunter2"
	e := newTestEnv(t, cfg)

	w, _ := e.do(http.MethodGet, "/api/keys", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = e.do(http.MethodPost, "/api/login", `{"password":"wrong"}`, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, env := e.do(http.MethodPost, "/api/login", `{"password":"hunter2"}`, "")
	require.Equal(t, http.StatusOK, w.Code)
	token := env.Data.(map[string]any)["token"].(string)

	w, _ = e.do(http.MethodGet, "/api/keys", "", token)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = e.do(http.MethodGet, "/ping", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestNoRoute(t *testing.T) {
	e := newTestEnv(t, defaultCfg())
	w, env := e.do(http.MethodGet, "/nope", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "route not found", env.Error)
}
