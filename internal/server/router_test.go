package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/sofratec/erp-app/internal/apiclient"
	"github.com/sofratec/erp-app/internal/auth"
	"github.com/sofratec/erp-app/internal/config"
	"github.com/sofratec/erp-app/internal/handlers"
	"github.com/sofratec/erp-app/internal/session"
)

// newTestApp wires the full application against a fake backend, with the
// session store on an in-memory database.
func newTestApp(t *testing.T, backend *httptest.Server) (http.Handler, *session.Store) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&session.Session{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	cfg := config.Config{
		BaseURL:              backend.URL,
		RequestTimeout:       5 * time.Second,
		FacturesVersion:      "v1",
		InterventionsVersion: "v2",
		AuditVersion:         "v1",
		SessionSecret:        "test-secret",
		SessionTTL:           time.Hour,
	}
	sessions := session.NewStore(db, cfg.SessionSecret, cfg.SessionTTL)
	api := apiclient.New(cfg.BaseURL,
		apiclient.WithTimeout(cfg.RequestTimeout),
		apiclient.WithRetry(2, time.Millisecond))
	mgr := auth.NewManager(backend.URL+"/v1/auth/refresh", backend.Client(), sessions)
	deps := &handlers.Deps{API: api, Auth: mgr, Sessions: sessions, Cfg: cfg}
	return New(deps, db), sessions
}

// sessionCookie opens a session directly in the store and returns its cookie.
func sessionCookie(t *testing.T, sessions *session.Store, email string) *http.Cookie {
	t.Helper()
	sid, err := sessions.Create(context.Background(), email, auth.TokenPair{
		AccessToken: "acc", RefreshToken: "ref",
	})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	rec := httptest.NewRecorder()
	sessions.SetCookie(rec, sid)
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected one cookie, got %d", len(cookies))
	}
	return cookies[0]
}

func jsonRequest(method, target string, body string) *http.Request {
	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	} else {
		r = httptest.NewRequest(method, target, nil)
	}
	r.Header.Set("Accept", "application/json")
	return r
}

func TestHealthEndpoints(t *testing.T) {
	backend := httptest.NewServer(http.NotFoundHandler())
	defer backend.Close()
	app, _ := newTestApp(t, backend)

	for _, path := range []string{"/health", "/healthz"} {
		rec := httptest.NewRecorder()
		app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("%s: status = %d", path, rec.Code)
		}
	}
}

func TestRootRedirectsAnonymousToLogin(t *testing.T) {
	backend := httptest.NewServer(http.NotFoundHandler())
	defer backend.Close()
	app, _ := newTestApp(t, backend)

	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/login" {
		t.Fatalf("got %d -> %q", rec.Code, rec.Header().Get("Location"))
	}
}

func TestProtectedRouteWithoutSession(t *testing.T) {
	backend := httptest.NewServer(http.NotFoundHandler())
	defer backend.Close()
	app, _ := newTestApp(t, backend)

	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, jsonRequest(http.MethodGet, "/factures", ""))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestLoginCreatesSession(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var creds struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil || creds.Password != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "acc", "refresh_token": "ref", "expires_in": 900,
		})
	})
	backend := httptest.NewServer(mux)
	defer backend.Close()
	app, sessions := newTestApp(t, backend)

	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, jsonRequest(http.MethodPost, "/login", `{"email":"marie@example.fr","password":"secret"}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %s", rec.Code, rec.Body.String())
	}
	var sessionCookieSet bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == "erp_session" && c.Value != "" {
			sessionCookieSet = true
		}
	}
	if !sessionCookieSet {
		t.Fatal("no session cookie set")
	}
	if n, _ := sessions.Count(context.Background()); n != 1 {
		t.Fatalf("session count = %d, want 1", n)
	}
}

func TestLoginRejected(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	backend := httptest.NewServer(mux)
	defer backend.Close()
	app, _ := newTestApp(t, backend)

	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, jsonRequest(http.MethodPost, "/login", `{"email":"x@y.fr","password":"bad"}`))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "login_failed") {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestFacturesListPassthrough(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/factures", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer acc" {
			t.Errorf("Authorization = %q", got)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"items": []map[string]any{
				{"id": 1, "numero": "FA-2026-0001", "type": "FACTURE", "statut": "VALIDEE", "client_nom": "Dupont", "total_ttc": 120.0, "devise": "EUR"},
			},
			"total": 1, "limit": 25, "offset": 0,
		})
	})
	backend := httptest.NewServer(mux)
	defer backend.Close()
	app, sessions := newTestApp(t, backend)
	cookie := sessionCookie(t, sessions, "marie@example.fr")

	req := jsonRequest(http.MethodGet, "/factures?statut=VALIDEE", "")
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "FA-2026-0001") {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestTransitionGuardShortCircuits(t *testing.T) {
	var transitionCalls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/interventions/7", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"id": 7, "reference": "IT-2026-0007", "statut": "TERMINEE", "titre": "Chaudière", "client_nom": "Martin",
		})
	})
	mux.HandleFunc("/v2/interventions/7/demarrer", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&transitionCalls, 1)
	})
	backend := httptest.NewServer(mux)
	defer backend.Close()
	app, sessions := newTestApp(t, backend)
	cookie := sessionCookie(t, sessions, "marie@example.fr")

	req := jsonRequest(http.MethodPost, "/interventions/demarrer?id=7", "")
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "transition_refused") {
		t.Fatalf("body = %s", rec.Body.String())
	}
	if n := atomic.LoadInt32(&transitionCalls); n != 0 {
		t.Fatalf("backend transition called %d times, want 0", n)
	}
}

func TestPlanningDropToBacklogUnplans(t *testing.T) {
	var unplanned int32
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/interventions/3", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"id": 3, "statut": "PLANIFIEE", "titre": "Fuite", "client_nom": "Durand",
			"date_planifiee": time.Now().Format(time.RFC3339), "technicien_id": 2,
		})
	})
	mux.HandleFunc("/v2/interventions/3/deplanifier", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&unplanned, 1)
		json.NewEncoder(w).Encode(map[string]any{"id": 3, "statut": "A_PLANIFIER"})
	})
	backend := httptest.NewServer(mux)
	defer backend.Close()
	app, sessions := newTestApp(t, backend)
	cookie := sessionCookie(t, sessions, "marie@example.fr")

	req := jsonRequest(http.MethodPost, "/planning/drop", `{"intervention_id":3,"backlog":true}`)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"action":"unplan"`) {
		t.Fatalf("body = %s", rec.Body.String())
	}
	if n := atomic.LoadInt32(&unplanned); n != 1 {
		t.Fatalf("deplanifier called %d times, want 1", n)
	}
}

func TestExpiredBackendSessionRedirectsToLogin(t *testing.T) {
	// Backend rejects the access token and the refresh; the user must land
	// back on the login page with a cleared cookie.
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/factures", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	mux.HandleFunc("/v1/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	backend := httptest.NewServer(mux)
	defer backend.Close()
	app, sessions := newTestApp(t, backend)
	cookie := sessionCookie(t, sessions, "marie@example.fr")

	req := jsonRequest(http.MethodGet, "/factures", "")
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "session_expired") {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestLogoutDeletesSession(t *testing.T) {
	backend := httptest.NewServer(http.NotFoundHandler())
	defer backend.Close()
	app, sessions := newTestApp(t, backend)
	cookie := sessionCookie(t, sessions, "marie@example.fr")

	req := jsonRequest(http.MethodPost, "/logout", "")
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if n, _ := sessions.Count(context.Background()); n != 0 {
		t.Fatalf("session count = %d, want 0", n)
	}
}

func TestUnknownPathIs404(t *testing.T) {
	backend := httptest.NewServer(http.NotFoundHandler())
	defer backend.Close()
	app, _ := newTestApp(t, backend)

	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
