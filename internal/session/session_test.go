package session

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/sofratec/erp-app/internal/auth"
)

func setupStore(t *testing.T, ttl time.Duration) *Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&Session{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewStore(db, "test-secret", ttl)
}

func TestTokenPairRoundTrip(t *testing.T) {
	store := setupStore(t, time.Hour)
	ctx := context.Background()
	pair := auth.TokenPair{AccessToken: "acc", RefreshToken: "ref"}

	sid, err := store.Create(ctx, "marie@example.fr", pair)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := store.LoadPair(ctx, sid)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got != pair {
		t.Fatalf("round trip mismatch: %+v", got)
	}

	// Tokens must not be stored in clear.
	row, err := store.Get(ctx, sid)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(row.Tokens) == `{"access_token":"acc","refresh_token":"ref"}` {
		t.Fatal("token pair stored in clear")
	}
}

func TestSavePairRotation(t *testing.T) {
	store := setupStore(t, time.Hour)
	ctx := context.Background()
	sid, err := store.Create(ctx, "x@y", auth.TokenPair{AccessToken: "a1", RefreshToken: "r1"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.SavePair(ctx, sid, auth.TokenPair{AccessToken: "a2", RefreshToken: "r2"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := store.LoadPair(ctx, sid)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.AccessToken != "a2" || got.RefreshToken != "r2" {
		t.Fatalf("rotation not persisted: %+v", got)
	}
	if err := store.SavePair(ctx, "unknown", auth.TokenPair{}); err != auth.ErrNoSession {
		t.Fatalf("expected ErrNoSession for unknown sid, got %v", err)
	}
}

func TestExpiredSessionRejected(t *testing.T) {
	store := setupStore(t, -time.Minute) // already expired at creation
	ctx := context.Background()
	sid, err := store.Create(ctx, "x@y", auth.TokenPair{AccessToken: "a", RefreshToken: "r"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := store.LoadPair(ctx, sid); err != auth.ErrNoSession {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
}

func TestCookieTamperRejected(t *testing.T) {
	store := setupStore(t, time.Hour)
	w := httptest.NewRecorder()
	store.SetCookie(w, "abc-123")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range w.Result().Cookies() {
		req.AddCookie(c)
	}
	sid, ok := store.ParseCookie(req)
	if !ok || sid != "abc-123" {
		t.Fatalf("valid cookie rejected: %q %v", sid, ok)
	}

	// Forge a cookie for another sid with the same signature.
	tampered := httptest.NewRequest(http.MethodGet, "/", nil)
	orig := w.Result().Cookies()[0]
	tampered.AddCookie(&http.Cookie{Name: orig.Name, Value: "zzz-999." + splitSig(orig.Value)})
	if _, ok := store.ParseCookie(tampered); ok {
		t.Fatal("tampered cookie accepted")
	}
}

func splitSig(v string) string {
	for i := len(v) - 1; i >= 0; i-- {
		if v[i] == '.' {
			return v[i+1:]
		}
	}
	return ""
}

func TestPurgeExpired(t *testing.T) {
	store := setupStore(t, time.Hour)
	ctx := context.Background()
	if _, err := store.Create(ctx, "a@b", auth.TokenPair{AccessToken: "a", RefreshToken: "r"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	// Force one row into the past.
	sid2, _ := store.Create(ctx, "c@d", auth.TokenPair{AccessToken: "a", RefreshToken: "r"})
	store.db.Model(&Session{}).Where("id = ?", sid2).Update("expires_at", time.Now().Add(-time.Hour))

	n, err := store.PurgeExpired(ctx)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 purged, got %d", n)
	}
	live, err := store.Count(ctx)
	if err != nil || live != 1 {
		t.Fatalf("expected 1 live session, got %d (%v)", live, err)
	}
}
