package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
)

type memStore struct {
	mu    sync.Mutex
	pairs map[string]TokenPair
}

func newMemStore() *memStore { return &memStore{pairs: map[string]TokenPair{}} }

func (s *memStore) LoadPair(_ context.Context, sid string) (TokenPair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pairs[sid]
	if !ok {
		return TokenPair{}, ErrNoSession
	}
	return p, nil
}

func (s *memStore) SavePair(_ context.Context, sid string, pair TokenPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pairs[sid] = pair
	return nil
}

func TestRefreshDeduplicatesConcurrentCalls(t *testing.T) {
	var calls int32
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		if _, err := w.Write([]byte(`{"access_token":"fresh","refresh_token":"r2"}`)); err != nil {
			t.Errorf("write: %v", err)
		}
	}))
	defer backend.Close()

	store := newMemStore()
	if err := store.SavePair(context.Background(), "s1", TokenPair{AccessToken: "stale", RefreshToken: "r1"}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	m := NewManager(backend.URL, backend.Client(), store)
	src := m.Source("s1")

	const n = 16
	var wg sync.WaitGroup
	tokens := make([]string, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tokens[i], errs[i] = src.Refresh(context.Background())
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("refresh %d: %v", i, errs[i])
		}
		if tokens[i] != "fresh" {
			t.Fatalf("refresh %d: got token %q", i, tokens[i])
		}
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected exactly 1 refresh call, got %d", got)
	}
	pair, err := store.LoadPair(context.Background(), "s1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if pair.RefreshToken != "r2" {
		t.Fatalf("rotated refresh token not persisted: %+v", pair)
	}
}

func TestRefreshRevokedSession(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer backend.Close()

	store := newMemStore()
	_ = store.SavePair(context.Background(), "s1", TokenPair{AccessToken: "a", RefreshToken: "r"})
	m := NewManager(backend.URL, backend.Client(), store)
	if _, err := m.Source("s1").Refresh(context.Background()); err != ErrNoSession {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
}

func TestRefreshKeepsRefreshTokenWhenNotRotated(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"fresh"}`))
	}))
	defer backend.Close()

	store := newMemStore()
	_ = store.SavePair(context.Background(), "s1", TokenPair{AccessToken: "a", RefreshToken: "keep"})
	m := NewManager(backend.URL, backend.Client(), store)
	if _, err := m.Source("s1").Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	pair, _ := store.LoadPair(context.Background(), "s1")
	if pair.RefreshToken != "keep" {
		t.Fatalf("refresh token should survive: %+v", pair)
	}
}
