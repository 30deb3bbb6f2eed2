// Package audit batches UI audit events and ships them to the backend audit
// endpoint. Delivery is best-effort: a batch that fails to post is dropped
// and logged, never spooled locally.
package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event is one UI-level audit fact (page viewed, action clicked, mutation
// issued). The backend owns the authoritative business audit trail.
type Event struct {
	ID         string            `json:"id"`
	Action     string            `json:"action"`
	Entity     string            `json:"entity,omitempty"`
	EntityID   string            `json:"entity_id,omitempty"`
	Actor      string            `json:"actor,omitempty"`
	Meta       map[string]string `json:"meta,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// Poster ships one batch. Implemented over the API client in sender.go.
type Poster interface {
	PostBatch(ctx context.Context, events []Event) error
}

const (
	defaultMaxBatch    = 50
	defaultFlushEvery  = 10 * time.Second
	defaultPostTimeout = 5 * time.Second
)

type Recorder struct {
	poster      Poster
	logger      *slog.Logger
	maxBatch    int
	flushEvery  time.Duration
	postTimeout time.Duration

	mu    sync.Mutex
	queue []Event

	kick chan struct{}
	done chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

type Option func(*Recorder)

// WithMaxBatch sets the queue size that triggers an immediate flush.
func WithMaxBatch(n int) Option {
	return func(r *Recorder) {
		if n > 0 {
			r.maxBatch = n
		}
	}
}

// WithFlushInterval sets the periodic flush timer.
func WithFlushInterval(d time.Duration) Option {
	return func(r *Recorder) {
		if d > 0 {
			r.flushEvery = d
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Recorder) { r.logger = l }
}

func NewRecorder(poster Poster, opts ...Option) *Recorder {
	r := &Recorder{
		poster:      poster,
		logger:      slog.Default(),
		maxBatch:    defaultMaxBatch,
		flushEvery:  defaultFlushEvery,
		postTimeout: defaultPostTimeout,
		kick:        make(chan struct{}, 1),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.wg.Add(1)
	go r.loop()
	return r
}

// Record queues one event. Reaching the batch ceiling triggers an immediate
// flush; otherwise the periodic timer picks the queue up.
func (r *Recorder) Record(e Event) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now()
	}
	r.mu.Lock()
	r.queue = append(r.queue, e)
	full := len(r.queue) >= r.maxBatch
	r.mu.Unlock()
	if full {
		select {
		case r.kick <- struct{}{}:
		default:
		}
	}
}

// Close stops the loop and flushes whatever is still queued.
func (r *Recorder) Close() {
	r.once.Do(func() { close(r.done) })
	r.wg.Wait()
	r.flush()
}

func (r *Recorder) loop() {
	defer r.wg.Done()
	ticker := time.NewTicker(r.flushEvery)
	defer ticker.Stop()
	for {
		select {
		case <-r.done:
			return
		case <-ticker.C:
			r.flush()
		case <-r.kick:
			r.flush()
		}
	}
}

func (r *Recorder) flush() {
	r.mu.Lock()
	batch := r.queue
	r.queue = nil
	r.mu.Unlock()
	if len(batch) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), r.postTimeout)
	defer cancel()
	if err := r.poster.PostBatch(ctx, batch); err != nil {
		// Stated policy: no local persistence, the batch is gone.
		r.logger.Warn("audit batch dropped", "events", len(batch), "error", err)
	}
}
