package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/sofratec/erp-app/internal/format"
	"github.com/sofratec/erp-app/internal/httpx"
	"github.com/sofratec/erp-app/internal/interventions"
	"github.com/sofratec/erp-app/internal/middleware"
	"github.com/sofratec/erp-app/internal/planning"
	"github.com/sofratec/erp-app/internal/view"
)

type PlanningHandler struct {
	*Deps
}

func NewPlanningHandler(d *Deps) *PlanningHandler { return &PlanningHandler{Deps: d} }

// Board: GET /planning?semaine=2026-03-02 - the week grid plus the backlog.
func (h *PlanningHandler) Board(w http.ResponseWriter, r *http.Request) {
	ref := time.Now()
	if v := r.URL.Query().Get("semaine"); v != "" {
		if d, err := time.Parse("2006-01-02", v); err == nil {
			ref = d
		}
	}
	monday := planning.WeekOf(ref)

	svc := h.Interventions(r)
	techs, err := svc.Techniciens(r.Context())
	if err != nil {
		h.fail(w, r, err, "/dashboard")
		return
	}
	// One fetch covers the grid and the backlog; the board sorts it out.
	liste, err := svc.List(r.Context(), interventions.Query{
		From:  monday,
		To:    monday.AddDate(0, 0, 7),
		Limit: 200,
	})
	if err != nil {
		h.fail(w, r, err, "/dashboard")
		return
	}
	backlog, err := svc.List(r.Context(), interventions.Query{
		Statut: "A_PLANIFIER",
		Limit:  200,
	})
	if err != nil {
		h.fail(w, r, err, "/dashboard")
		return
	}
	board := planning.BuildBoard(monday, techs, append(liste.Items, backlog.Items...))
	h.record(r, "planning.board", "planning", monday.Format("2006-01-02"))

	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, map[string]any{
			"monday":  board.Monday.Format("2006-01-02"),
			"days":    board.Days,
			"backlog": board.Backlog,
			"techs":   board.Techniciens,
		})
		return
	}
	lang := middleware.LangFrom(r)
	_ = view.Render(w, r, "planning.html", map[string]any{
		"Board":     board,
		"WeekLabel": format.DateLong(lang, board.Monday),
		"PrevWeek":  board.Monday.AddDate(0, 0, -7).Format("2006-01-02"),
		"NextWeek":  board.Monday.AddDate(0, 0, 7).Format("2006-01-02"),
	})
}

// dropRequest is what the board JS sends on drop.
type dropRequest struct {
	InterventionID uint   `json:"intervention_id"`
	Backlog        bool   `json:"backlog,omitempty"`
	Day            string `json:"day,omitempty"` // 2006-01-02
	TechnicienID   uint   `json:"technicien_id,omitempty"`
	DureeMinutes   int    `json:"duree_minutes,omitempty"`
}

// Drop: POST /planning/drop - JSON only, called by the board script.
// Decides plan / replan / unplan from the card's current status, dispatches
// the mutation, and returns the refreshed intervention. Any failure is a
// toast on the client; the board re-fetches either way.
func (h *PlanningHandler) Drop(w http.ResponseWriter, r *http.Request) {
	var req dropRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.InterventionID == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	target := planning.Target{Backlog: req.Backlog, TechnicienID: req.TechnicienID}
	if !req.Backlog {
		d, err := time.Parse("2006-01-02", req.Day)
		if err != nil {
			httpx.JSONError(w, http.StatusBadRequest, "invalid_day", nil)
			return
		}
		target.Day = d
	}

	svc := h.Interventions(r)
	iv, err := svc.Get(r.Context(), req.InterventionID)
	if err != nil {
		h.fail(w, r, err, "/planning")
		return
	}
	action, err := planning.Decide(*iv, target)
	if err != nil {
		h.fail(w, r, err, "/planning")
		return
	}

	switch action {
	case planning.ActionPlan, planning.ActionReplan:
		_, err = svc.Plan(r.Context(), iv, interventions.PlanRequest{
			Date:         target.Day,
			TechnicienID: target.TechnicienID,
			DureeMinutes: req.DureeMinutes,
		})
	case planning.ActionUnplan:
		_, err = svc.Unplan(r.Context(), iv)
	}
	if err != nil {
		h.fail(w, r, err, "/planning")
		return
	}
	h.record(r, "planning."+action.String(), "intervention", itoa(req.InterventionID))
	httpx.JSON(w, http.StatusOK, map[string]string{"action": action.String(), "status": "ok"})
}
