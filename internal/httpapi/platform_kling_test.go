package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suPer8Hu/genrelay/internal/ai"
	"github.com/suPer8Hu/genrelay/internal/common"
	"github.com/suPer8Hu/genrelay/internal/credential"
	"github.com/suPer8Hu/genrelay/internal/db"
	"github.com/suPer8Hu/genrelay/internal/httpapi/handlers"
	"github.com/suPer8Hu/genrelay/internal/lro"
	"github.com/suPer8Hu/genrelay/internal/secret"
	"github.com/suPer8Hu/genrelay/internal/usage"
)

type klingKey struct{}

func (klingKey) Resolve(context.Context, string) (string, bool, error) { return "kl-key", true, nil }

// stepClock only moves when the tracker waits between polls.
type stepClock struct{ t time.Time }

func (c *stepClock) now() time.Time { return c.t }

func (c *stepClock) sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.t = c.t.Add(d)
	return nil
}

// newKlingEnv routes /api/platforms/kling to a real kling client backed by an
// upstream that answers "processing" pending times, then "completed".
func newKlingEnv(t *testing.T, createStatus int, createBody string, pending int) (*testEnv, *int32) {
	t.Helper()
	var polls int32
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v1/video/text-to-video":
			w.WriteHeader(createStatus)
			fmt.Fprint(w, createBody)
		case r.Method == http.MethodGet && r.URL.Path == "/v1/video/task/abc":
			n := atomic.AddInt32(&polls, 1)
			if int(n) <= pending {
				fmt.Fprint(w, `{"status":"processing"}`)
				return
			}
			fmt.Fprint(w, `{"status":"completed","url":"https://cdn.example/v.mp4"}`)
		default:
			t.Errorf("unexpected upstream call %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(upstream.Close)

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	gdb, err := db.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))
	c, err := secret.FromPassphrase("router-test", "salt")
	require.NoError(t, err)

	clk := &stepClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	kling := ai.NewKlingProvider(upstream.URL, klingKey{},
		lro.Config{Interval: 5 * time.Second, MaxAttempts: 60, Action: "Video"},
		lro.WithClock(clk.now, clk.sleep))
	reg := ai.NewRegistry()
	reg.Register(kling)

	rec := &captureRecorder{}
	usageSvc := usage.NewService(usage.NewRepo(gdb), nil)
	r := NewRouter(defaultCfg(), handlers.Deps{
		Keys:      credential.NewService(credential.NewRepo(gdb), c),
		Platforms: reg,
		Recorder:  rec,
		UsageLog:  usageSvc,
	})
	return &testEnv{router: r, recorder: rec, usage: usageSvc}, &polls
}

func TestPlatform_KlingVideoCompletes(t *testing.T) {
	e, polls := newKlingEnv(t, http.StatusOK, `{"task_id":"abc"}`, 3)

	w, env := e.do(http.MethodPost, "/api/platforms/kling", `{"action":"video","prompt":"a cat surfing"}`, "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.Success)
	assert.Equal(t, map[string]any{"status": "completed", "url": "https://cdn.example/v.mp4"}, env.Data)
	require.NotNil(t, env.Duration)
	assert.Equal(t, int64(20000), *env.Duration)
	assert.Equal(t, int32(4), atomic.LoadInt32(polls))

	require.Len(t, e.recorder.entries, 1)
	got := e.recorder.entries[0]
	assert.Equal(t, "kling", got.Provider)
	assert.Equal(t, ai.KlingVideoEndpoint, got.Endpoint)
	assert.True(t, got.Success)
	assert.Equal(t, int64(20000), got.DurationMs)
}

func TestPlatform_KlingSubmitRejected(t *testing.T) {
	e, polls := newKlingEnv(t, http.StatusUnauthorized, `{"message":"Invalid API key"}`, 0)

	w, env := e.do(http.MethodPost, "/api/platforms/kling", `{"action":"video","prompt":"a cat surfing"}`, "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, env.Success)
	assert.Equal(t, "Invalid API key", env.Error)
	assert.Equal(t, common.KindSubmission, env.ErrorKind)
	assert.Equal(t, int32(0), atomic.LoadInt32(polls))

	require.Len(t, e.recorder.entries, 1)
	assert.Equal(t, http.StatusUnauthorized, e.recorder.entries[0].StatusCode)
	assert.False(t, e.recorder.entries[0].Success)
}
