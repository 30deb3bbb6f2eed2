package handlers

import (
	"net/http"
	"time"

	"github.com/sofratec/erp-app/internal/factures"
	"github.com/sofratec/erp-app/internal/httpx"
	"github.com/sofratec/erp-app/internal/interventions"
	"github.com/sofratec/erp-app/internal/models"
	"github.com/sofratec/erp-app/internal/session"
	"github.com/sofratec/erp-app/internal/view"
)

type DashboardHandler struct {
	*Deps
}

func NewDashboardHandler(d *Deps) *DashboardHandler { return &DashboardHandler{Deps: d} }

// Dashboard: GET /dashboard - recent documents plus the intervention
// status breakdown. Everything comes from two list calls; the backend has
// no dedicated dashboard endpoint.
func (h *DashboardHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	fsvc := h.Factures(r)
	isvc := h.Interventions(r)

	recentFactures, err := fsvc.List(r.Context(), factures.Query{Limit: 5})
	if err != nil {
		h.fail(w, r, err, "/login")
		return
	}
	ivs, err := isvc.List(r.Context(), interventions.Query{Limit: 200})
	if err != nil {
		h.fail(w, r, err, "/login")
		return
	}

	parStatut := map[models.StatutIntervention]int{}
	for _, iv := range ivs.Items {
		parStatut[iv.Statut]++
	}
	now := time.Now()
	var overdue int
	for i := range recentFactures.Items {
		if factures.IsOverdue(&recentFactures.Items[i], now) {
			overdue++
		}
	}
	h.record(r, "dashboard.view", "", "")

	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, map[string]any{
			"factures_total":       recentFactures.Total,
			"factures_overdue":     overdue,
			"interventions_total":  ivs.Total,
			"interventions_statut": parStatut,
		})
		return
	}
	_ = view.Render(w, r, "dashboard.html", map[string]any{
		"User":            session.EmailFromContext(r.Context()),
		"RecentFactures":  recentFactures.Items,
		"FacturesTotal":   recentFactures.Total,
		"FacturesOverdue": overdue,
		"ParStatut":       parStatut,
		"Statuts":         models.Statuts(),
		"Year":            now.Year(),
	})
}
