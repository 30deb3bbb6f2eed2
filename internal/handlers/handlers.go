// Package handlers contains the HTTP handlers for the application views.
// Every handler answers both HTML (rendered pages, flash + redirect on
// mutations) and JSON (fetch calls from the pages), switching on Accept.
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/sofratec/erp-app/internal/apiclient"
	"github.com/sofratec/erp-app/internal/audit"
	"github.com/sofratec/erp-app/internal/auth"
	"github.com/sofratec/erp-app/internal/config"
	"github.com/sofratec/erp-app/internal/factures"
	"github.com/sofratec/erp-app/internal/httpx"
	"github.com/sofratec/erp-app/internal/interventions"
	"github.com/sofratec/erp-app/internal/middleware"
	"github.com/sofratec/erp-app/internal/planning"
	"github.com/sofratec/erp-app/internal/session"
)

// Deps bundles what every handler needs. The API client is unbound; each
// request binds it to the caller's session tokens.
type Deps struct {
	API      *apiclient.Client
	Auth     *auth.Manager
	Sessions *session.Store
	Audit    *audit.Recorder
	Cfg      config.Config
}

func (d *Deps) boundAPI(r *http.Request) *apiclient.Client {
	sid, _ := session.IDFromContext(r.Context())
	return d.API.WithTokens(d.Auth.Source(sid))
}

// Factures returns the invoicing service bound to the request's session.
func (d *Deps) Factures(r *http.Request) *factures.Service {
	return factures.New(d.boundAPI(r), d.Cfg.FacturesVersion)
}

// Interventions returns the field-service service bound to the session.
func (d *Deps) Interventions(r *http.Request) *interventions.Service {
	return interventions.New(d.boundAPI(r), d.Cfg.InterventionsVersion)
}

func (d *Deps) record(r *http.Request, action, entity, entityID string) {
	if d.Audit == nil {
		return
	}
	d.Audit.Record(audit.Event{
		Action:   action,
		Entity:   entity,
		EntityID: entityID,
		Actor:    session.EmailFromContext(r.Context()),
	})
}

// fail translates an error into the right response for the format: JSON gets
// status + {code,message}; HTML gets a flash and a redirect back.
func (d *Deps) fail(w http.ResponseWriter, r *http.Request, err error, backTo string) {
	status, code := http.StatusBadGateway, "backend_unreachable"
	var message string

	var guard *interventions.ErrActionNonPermise
	var drop *planning.ErrDropImpossible
	var apiErr *apiclient.APIError
	switch {
	case errors.Is(err, auth.ErrNoSession):
		d.Sessions.ClearCookie(w)
		if httpx.WantsJSON(r) {
			httpx.JSONError(w, http.StatusUnauthorized, "session_expired", nil)
			return
		}
		middleware.Flash(w, r, "session_expired")
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	case errors.As(err, &guard):
		status, code = http.StatusConflict, "transition_refused"
		message = guard.Error()
	case errors.As(err, &drop):
		status, code = http.StatusConflict, "drop_refused"
		message = drop.Error()
	case errors.As(err, &apiErr):
		status, code, message = apiErr.Status, apiErr.Code, apiErr.Message
	}

	if httpx.WantsJSON(r) {
		var details any
		if message != "" {
			details = map[string]string{"message": message}
		}
		httpx.JSONError(w, status, code, details)
		return
	}
	switch code {
	case "transition_refused", "drop_refused", "backend_unreachable", "validation_failed":
		middleware.Flash(w, r, code)
	default:
		middleware.Flash(w, r, "backend_unreachable")
	}
	if backTo == "" {
		backTo = "/"
	}
	http.Redirect(w, r, backTo, http.StatusSeeOther)
}

// parseID reads the numeric id query parameter.
func parseID(r *http.Request) (uint, bool) {
	v := r.URL.Query().Get("id")
	if v == "" {
		return 0, false
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil || n == 0 {
		return 0, false
	}
	return uint(n), true
}

func badRequest(w http.ResponseWriter, r *http.Request, code string, details any) {
	if httpx.WantsJSON(r) {
		httpx.JSONError(w, http.StatusBadRequest, code, details)
		return
	}
	middleware.Flash(w, r, "validation_failed")
	ref := r.Referer()
	if ref == "" {
		ref = "/"
	}
	http.Redirect(w, r, ref, http.StatusSeeOther)
}
