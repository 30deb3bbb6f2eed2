package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/sofratec/erp-app/internal/format"
	"github.com/sofratec/erp-app/internal/httpx"
	"github.com/sofratec/erp-app/internal/interventions"
	"github.com/sofratec/erp-app/internal/middleware"
	"github.com/sofratec/erp-app/internal/models"
	"github.com/sofratec/erp-app/internal/view"
)

type InterventionHandler struct {
	*Deps
}

func NewInterventionHandler(d *Deps) *InterventionHandler {
	return &InterventionHandler{Deps: d}
}

// List: GET /interventions - HTML or JSON
func (h *InterventionHandler) List(w http.ResponseWriter, r *http.Request) {
	q := interventions.Query{
		Search: strings.TrimSpace(r.URL.Query().Get("q")),
	}
	if s := r.URL.Query().Get("statut"); s != "" {
		q.Statut = models.StatutIntervention(s)
	}
	if v := r.URL.Query().Get("technicien_id"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			q.Technicien = uint(n)
		}
	}
	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 1 {
			q.Page = n
		}
	}

	liste, err := h.Interventions(r).List(r.Context(), q)
	if err != nil {
		h.fail(w, r, err, "/dashboard")
		return
	}
	h.record(r, "interventions.list", "intervention", "")

	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, liste)
		return
	}
	rows := make([]map[string]any, 0, len(liste.Items))
	for _, iv := range liste.Items {
		rows = append(rows, map[string]any{
			"Intervention": iv,
			"Actions":      interventions.ActionsFor(iv.Statut),
		})
	}
	_ = view.Render(w, r, "interventions.html", map[string]any{
		"Rows": rows, "Total": liste.Total, "Statuts": models.Statuts(), "Query": q.Search,
	})
}

// Detail: GET /interventions/detail?id=...
func (h *InterventionHandler) Detail(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		badRequest(w, r, "invalid_id", nil)
		return
	}
	iv, err := h.Interventions(r).Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, "/interventions")
		return
	}
	h.record(r, "interventions.detail", "intervention", itoa(id))

	actions := interventions.ActionsFor(iv.Statut)
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, map[string]any{"intervention": iv, "actions": actions})
		return
	}
	_ = view.Render(w, r, "intervention_detail.html", map[string]any{
		"Intervention": iv, "Actions": actions,
	})
}

// Create: POST /interventions - JSON or form
func (h *InterventionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req interventions.CreateRequest
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
			return
		}
	} else if err := r.ParseForm(); err == nil {
		req.Titre = strings.TrimSpace(r.Form.Get("titre"))
		req.Description = strings.TrimSpace(r.Form.Get("description"))
		req.ClientNom = strings.TrimSpace(r.Form.Get("client_nom"))
		req.Adresse = strings.TrimSpace(r.Form.Get("adresse"))
		req.Ville = strings.TrimSpace(r.Form.Get("ville"))
		req.Priorite = r.Form.Get("priorite")
		if v := r.Form.Get("donneur_ordre_id"); v != "" {
			if n, err := strconv.ParseUint(v, 10, 64); err == nil && n > 0 {
				id := uint(n)
				req.DonneurOrdreID = &id
			}
		}
	}
	if req.Titre == "" || req.ClientNom == "" {
		badRequest(w, r, "validation_failed", map[string]string{"titre": "required", "client_nom": "required"})
		return
	}

	iv, err := h.Interventions(r).Create(r.Context(), req)
	if err != nil {
		h.fail(w, r, err, "/interventions")
		return
	}
	h.record(r, "interventions.create", "intervention", itoa(iv.ID))
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusCreated, iv)
		return
	}
	middleware.Flash(w, r, "intervention_created")
	http.Redirect(w, r, "/interventions/detail?id="+itoa(iv.ID), http.StatusSeeOther)
}

// Update: PUT /interventions/detail?id=... - JSON only.
func (h *InterventionHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		badRequest(w, r, "invalid_id", nil)
		return
	}
	var req interventions.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	iv, err := h.Interventions(r).Update(r.Context(), id, req)
	if err != nil {
		h.fail(w, r, err, "/interventions/detail?id="+itoa(id))
		return
	}
	h.record(r, "interventions.update", "intervention", itoa(id))
	httpx.JSON(w, http.StatusOK, iv)
}

// Transition returns the handler for one workflow action endpoint, e.g.
// POST /interventions/demarrer?id=... The current status is re-fetched so
// the guard evaluates fresh state, then the backend does the real check.
func (h *InterventionHandler) Transition(action string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseID(r)
		if !ok {
			badRequest(w, r, "invalid_id", nil)
			return
		}
		svc := h.Interventions(r)
		iv, err := svc.Get(r.Context(), id)
		if err != nil {
			h.fail(w, r, err, "/interventions")
			return
		}

		back := "/interventions/detail?id=" + itoa(id)
		var out *models.Intervention
		switch action {
		case "valider":
			out, err = svc.Validate(r.Context(), iv)
		case "planifier":
			var req interventions.PlanRequest
			req, err = parsePlanRequest(r)
			if err == nil {
				out, err = svc.Plan(r.Context(), iv, req)
			}
		case "deplanifier":
			out, err = svc.Unplan(r.Context(), iv)
		case "demarrer":
			out, err = svc.Start(r.Context(), iv)
		case "terminer":
			out, err = svc.Complete(r.Context(), iv, strings.TrimSpace(r.FormValue("rapport")))
		case "bloquer":
			out, err = svc.Block(r.Context(), iv, strings.TrimSpace(r.FormValue("motif")))
		case "debloquer":
			out, err = svc.Unblock(r.Context(), iv)
		case "annuler":
			out, err = svc.Cancel(r.Context(), iv, strings.TrimSpace(r.FormValue("motif")))
		default:
			badRequest(w, r, "unknown_action", nil)
			return
		}
		if err != nil {
			h.fail(w, r, err, back)
			return
		}
		h.record(r, "interventions."+action, "intervention", itoa(id))
		if httpx.WantsJSON(r) {
			httpx.JSON(w, http.StatusOK, map[string]any{
				"intervention": out,
				"actions":      interventions.ActionsFor(out.Statut),
			})
			return
		}
		middleware.Flash(w, r, "intervention_updated")
		http.Redirect(w, r, back, http.StatusSeeOther)
	}
}

func parsePlanRequest(r *http.Request) (interventions.PlanRequest, error) {
	var req interventions.PlanRequest
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		return req, json.NewDecoder(r.Body).Decode(&req)
	}
	if err := r.ParseForm(); err != nil {
		return req, err
	}
	lang := middleware.LangFrom(r)
	d, err := format.ParseDate(lang, r.Form.Get("date"))
	if err != nil {
		return req, err
	}
	req.Date = d
	n, err := strconv.ParseUint(r.Form.Get("technicien_id"), 10, 64)
	if err != nil {
		return req, err
	}
	req.TechnicienID = uint(n)
	if v := r.Form.Get("duree_minutes"); v != "" {
		if m, err := strconv.Atoi(v); err == nil {
			req.DureeMinutes = m
		}
	}
	return req, nil
}
