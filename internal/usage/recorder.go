package usage

import (
	"context"
	"sync"
	"time"

	"github.com/suPer8Hu/genrelay/internal/logging"
)

// Recorder accepts usage entries without ever failing the caller.
type Recorder interface {
	Record(ctx context.Context, e Entry)
}

// Async hands entries to a background goroutine that writes them to a Sink.
// A full buffer drops the entry with a warning.
type Async struct {
	sink    Sink
	timeout time.Duration

	mu     sync.Mutex
	closed bool
	ch     chan Entry
	wg     sync.WaitGroup
}

func NewAsync(sink Sink, buffer int) *Async {
	if buffer <= 0 {
		buffer = 256
	}
	a := &Async{sink: sink, timeout: 5 * time.Second, ch: make(chan Entry, buffer)}
	a.wg.Add(1)
	go a.loop()
	return a
}

func (a *Async) Record(_ context.Context, e Entry) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		logging.Warnf("[usage] recorder closed, dropping entry platform=%s endpoint=%s", e.Provider, e.Endpoint)
		return
	}
	select {
	case a.ch <- e:
	default:
		logging.Warnf("[usage] buffer full, dropping entry platform=%s endpoint=%s", e.Provider, e.Endpoint)
	}
}

func (a *Async) loop() {
	defer a.wg.Done()
	for e := range a.ch {
		// request contexts are usually gone by now
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		if err := a.sink.Save(ctx, e); err != nil {
			logging.Errorf("[usage] record failed platform=%s endpoint=%s err=%v", e.Provider, e.Endpoint, err)
		}
		cancel()
	}
}

// Close stops accepting entries and waits for queued ones to be written.
func (a *Async) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	close(a.ch)
	a.mu.Unlock()
	a.wg.Wait()
}

// Publisher sends a message to the usage queue.
type Publisher interface {
	Publish(ctx context.Context, v any) error
}

// QueueSink forwards entries to a message queue for the worker to persist.
type QueueSink struct {
	pub Publisher
}

func NewQueueSink(pub Publisher) *QueueSink {
	return &QueueSink{pub: pub}
}

func (q *QueueSink) Save(ctx context.Context, e Entry) error {
	return q.pub.Publish(ctx, e)
}
