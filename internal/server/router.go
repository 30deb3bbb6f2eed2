// Package server assembles the HTTP routes and their middleware chain.
package server

import (
	"log"
	"net/http"
	"time"

	"gorm.io/gorm"

	"github.com/sofratec/erp-app/internal/handlers"
	"github.com/sofratec/erp-app/internal/httpx"
	"github.com/sofratec/erp-app/internal/middleware"
	"github.com/sofratec/erp-app/internal/session"
)

// New constructs the root http.Handler with all routes and middlewares applied.
func New(deps *handlers.Deps, db *gorm.DB) http.Handler {
	mux := http.NewServeMux()

	// --- Health endpoints ---
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		// Lightweight session-DB check; backend reachability is not probed
		// here, a dead backend must not mark this process unhealthy.
		if err := db.Exec("SELECT 1").Error; err != nil {
			httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Static assets
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir("static"))))

	// Auth endpoints
	ah := handlers.NewAuthHandler(deps)
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			ah.LoginForm(w, r)
		case http.MethodPost:
			ah.Login(w, r)
		default:
			methodNotAllowed(w, "GET,POST")
		}
	})
	mux.HandleFunc("/logout", ah.Logout)

	// Factures & Avoirs
	fh := handlers.NewFactureHandler(deps)
	mux.Handle("/factures", requireSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			fh.List(w, r)
		case http.MethodPost:
			fh.Create(w, r)
		default:
			methodNotAllowed(w, "GET,POST")
		}
	})))
	mux.Handle("/factures/detail", requireSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			fh.Detail(w, r)
		case http.MethodPut:
			fh.Update(w, r)
		default:
			methodNotAllowed(w, "GET,PUT")
		}
	})))
	mux.Handle("/factures/finaliser", requireSession(post(fh.Finalize)))
	mux.Handle("/factures/avoir", requireSession(post(fh.Avoir)))
	mux.Handle("/factures/paiements", requireSession(post(fh.Paiement)))
	mux.Handle("/factures/donneurs-ordre", requireSession(get(fh.DonneursOrdre)))

	// Interventions + workflow actions
	ih := handlers.NewInterventionHandler(deps)
	mux.Handle("/interventions", requireSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			ih.List(w, r)
		case http.MethodPost:
			ih.Create(w, r)
		default:
			methodNotAllowed(w, "GET,POST")
		}
	})))
	mux.Handle("/interventions/detail", requireSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			ih.Detail(w, r)
		case http.MethodPut:
			ih.Update(w, r)
		default:
			methodNotAllowed(w, "GET,PUT")
		}
	})))
	for _, action := range []string{"valider", "planifier", "deplanifier", "demarrer", "terminer", "bloquer", "debloquer", "annuler"} {
		mux.Handle("/interventions/"+action, requireSession(post(ih.Transition(action))))
	}

	// Planning board
	ph := handlers.NewPlanningHandler(deps)
	mux.Handle("/planning", requireSession(get(ph.Board)))
	mux.Handle("/planning/drop", requireSession(post(ph.Drop)))

	// Dashboard + root
	dh := handlers.NewDashboardHandler(deps)
	mux.Handle("/dashboard", requireSession(get(dh.Dashboard)))
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		if _, ok := session.IDFromContext(r.Context()); ok {
			http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
			return
		}
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	})

	chain := deps.Sessions.Middleware(mux)
	return middleware.Prefs(withRecover(withLogging(chain)))
}

func requireSession(next http.Handler) http.Handler {
	return session.RequireSession(next)
}

func get(h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w, "GET")
			return
		}
		h(w, r)
	})
}

func post(h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			methodNotAllowed(w, "POST")
			return
		}
		h(w, r)
	})
}

func methodNotAllowed(w http.ResponseWriter, allow string) {
	w.Header().Set("Allow", allow)
	httpx.JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
}

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}

func withRecover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Printf("panic: %v", rec)
				httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
