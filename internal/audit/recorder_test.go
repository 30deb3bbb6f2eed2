package audit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturePoster struct {
	mu      sync.Mutex
	batches [][]Event
	fail    bool
	posted  chan struct{}
}

func newCapturePoster() *capturePoster {
	return &capturePoster{posted: make(chan struct{}, 16)}
}

func (p *capturePoster) PostBatch(_ context.Context, events []Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	defer func() { p.posted <- struct{}{} }()
	if p.fail {
		return errors.New("backend down")
	}
	cp := make([]Event, len(events))
	copy(cp, events)
	p.batches = append(p.batches, cp)
	return nil
}

func (p *capturePoster) batchCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.batches)
}

func waitPosted(t *testing.T, p *capturePoster, within time.Duration) {
	t.Helper()
	select {
	case <-p.posted:
	case <-time.After(within):
		t.Fatal("no batch posted in time")
	}
}

func TestFullQueueFlushesImmediately(t *testing.T) {
	p := newCapturePoster()
	// Timer far away: only the size trigger can explain a flush.
	r := NewRecorder(p, WithFlushInterval(time.Hour))
	defer r.Close()

	for i := 0; i < defaultMaxBatch; i++ {
		r.Record(Event{Action: "click", Entity: "facture", EntityID: fmt.Sprint(i)})
	}
	waitPosted(t, p, 2*time.Second)

	require.Equal(t, 1, p.batchCount())
	batch := p.batches[0]
	assert.Len(t, batch, defaultMaxBatch)
	assert.NotEmpty(t, batch[0].ID)
	assert.False(t, batch[0].OccurredAt.IsZero())
}

func TestTimerFlushesPartialQueue(t *testing.T) {
	p := newCapturePoster()
	r := NewRecorder(p, WithFlushInterval(30*time.Millisecond))
	defer r.Close()

	r.Record(Event{Action: "view", Entity: "intervention"})
	r.Record(Event{Action: "view", Entity: "facture"})
	waitPosted(t, p, 2*time.Second)

	require.GreaterOrEqual(t, p.batchCount(), 1)
	assert.Len(t, p.batches[0], 2)
}

func TestFailedBatchIsDropped(t *testing.T) {
	p := newCapturePoster()
	p.fail = true
	r := NewRecorder(p, WithFlushInterval(20*time.Millisecond))

	r.Record(Event{Action: "click"})
	waitPosted(t, p, 2*time.Second)

	// Recover the backend; the dropped events must not reappear.
	p.mu.Lock()
	p.fail = false
	p.mu.Unlock()
	r.Close()

	assert.Equal(t, 0, p.batchCount())
}

func TestCloseFlushesRemainder(t *testing.T) {
	p := newCapturePoster()
	r := NewRecorder(p, WithFlushInterval(time.Hour))
	r.Record(Event{Action: "logout", Actor: "marie@example.fr"})
	r.Close()

	require.Equal(t, 1, p.batchCount())
	assert.Equal(t, "logout", p.batches[0][0].Action)
}
