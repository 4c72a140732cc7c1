package usage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(gormsqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&Record{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

type memMirror struct {
	mu      sync.Mutex
	entries []Entry
	pushErr error
}

func (m *memMirror) PushUsage(_ context.Context, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pushErr != nil {
		return m.pushErr
	}
	m.entries = append([]Entry{e}, m.entries...)
	return nil
}

func (m *memMirror) RecentUsage(_ context.Context, limit int) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit > len(m.entries) {
		limit = len(m.entries)
	}
	return append([]Entry(nil), m.entries[:limit]...), nil
}

func entryAt(provider string, sec int) Entry {
	return Entry{
		Provider:   provider,
		Endpoint:   "/v1/video/text-to-video",
		StatusCode: 200,
		Success:    true,
		DurationMs: 20000,
		Timestamp:  time.Date(2025, 1, 1, 0, 0, sec, 0, time.UTC),
	}
}

func TestService_SaveAndRecent(t *testing.T) {
	svc := NewService(NewRepo(openTestDB(t)), nil)
	ctx := context.Background()

	require.NoError(t, svc.Save(ctx, entryAt("kling", 1)))
	require.NoError(t, svc.Save(ctx, entryAt("veo", 2)))
	require.NoError(t, svc.Save(ctx, entryAt("kling", 3)))

	all, err := svc.Recent(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, 3, all[0].Timestamp.Second(), "newest first")
	assert.Equal(t, "POST", all[0].Method)

	kling, err := svc.Recent(ctx, "kling", 10)
	require.NoError(t, err)
	assert.Len(t, kling, 2)

	limited, err := svc.Recent(ctx, "", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	totals, err := svc.Totals(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"kling": 2, "veo": 1}, totals)
}

func TestService_MirrorServesFullPages(t *testing.T) {
	m := &memMirror{}
	svc := NewService(NewRepo(openTestDB(t)), m)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, svc.Save(ctx, entryAt("openai", i)))
	}
	require.Len(t, m.entries, 3)

	// pretend the database diverged; a full page comes from the mirror
	m.entries[0].Endpoint = "/from-mirror"
	got, err := svc.Recent(ctx, "", 2)
	require.NoError(t, err)
	assert.Equal(t, "/from-mirror", got[0].Endpoint)

	// short mirror page falls back to the database
	got, err = svc.Recent(ctx, "", 10)
	require.NoError(t, err)
	assert.Len(t, got, 3)
	assert.NotEqual(t, "/from-mirror", got[0].Endpoint)
}

func TestService_MirrorFailureDoesNotFailSave(t *testing.T) {
	svc := NewService(NewRepo(openTestDB(t)), &memMirror{pushErr: errors.New("redis down")})
	require.NoError(t, svc.Save(context.Background(), entryAt("gemini", 0)))
}

type captureSink struct {
	mu      sync.Mutex
	entries []Entry
	err     error
}

func (s *captureSink) Save(_ context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
	return s.err
}

func TestAsync_CloseDrainsQueue(t *testing.T) {
	sink := &captureSink{}
	a := NewAsync(sink, 16)

	for i := 0; i < 5; i++ {
		a.Record(context.Background(), entryAt("seedream", i))
	}
	a.Close()

	assert.Len(t, sink.entries, 5)
}

func TestAsync_SinkErrorIsSwallowed(t *testing.T) {
	sink := &captureSink{err: errors.New("disk full")}
	a := NewAsync(sink, 4)

	a.Record(context.Background(), Entry{Provider: "kling"})
	a.Close()

	require.Len(t, sink.entries, 1)
	assert.False(t, sink.entries[0].Timestamp.IsZero(), "timestamp is stamped on record")
}

func TestAsync_RecordAfterCloseIsDropped(t *testing.T) {
	sink := &captureSink{}
	a := NewAsync(sink, 4)
	a.Close()
	a.Close()

	a.Record(context.Background(), entryAt("veo", 0))
	assert.Empty(t, sink.entries)
}

type capturePublisher struct {
	got []any
}

func (p *capturePublisher) Publish(_ context.Context, v any) error {
	p.got = append(p.got, v)
	return nil
}

func TestQueueSink_Publishes(t *testing.T) {
	pub := &capturePublisher{}
	q := NewQueueSink(pub)

	require.NoError(t, q.Save(context.Background(), entryAt("kling", 0)))
	require.Len(t, pub.got, 1)
	assert.Equal(t, "kling", pub.got[0].(Entry).Provider)
}
