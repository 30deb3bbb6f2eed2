package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sofratec/erp-app/internal/factures"
	"github.com/sofratec/erp-app/internal/format"
	"github.com/sofratec/erp-app/internal/httpx"
	"github.com/sofratec/erp-app/internal/middleware"
	"github.com/sofratec/erp-app/internal/models"
	"github.com/sofratec/erp-app/internal/view"
)

type FactureHandler struct {
	*Deps
}

func NewFactureHandler(d *Deps) *FactureHandler { return &FactureHandler{Deps: d} }

// List: GET /factures - HTML or JSON
func (h *FactureHandler) List(w http.ResponseWriter, r *http.Request) {
	q := factures.Query{
		Statut: r.URL.Query().Get("statut"),
		Search: strings.TrimSpace(r.URL.Query().Get("q")),
	}
	if t := r.URL.Query().Get("type"); t != "" {
		q.Type = models.TypeDocument(t)
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			q.Limit = n
		}
	}
	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 1 {
			q.Page = n
		}
	}

	svc := h.Factures(r)
	liste, err := svc.List(r.Context(), q)
	if err != nil {
		h.fail(w, r, err, "/dashboard")
		return
	}
	h.record(r, "factures.list", "facture", "")

	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, liste)
		return
	}
	rows := make([]map[string]any, 0, len(liste.Items))
	now := time.Now()
	lang := middleware.LangFrom(r)
	for _, f := range liste.Items {
		rows = append(rows, map[string]any{
			"Facture":  f,
			"Badge":    factures.StatusBadge(f.Statut),
			"TTC":      format.Money(lang, f.TotalTTC, f.Devise),
			"Progress": factures.PaymentProgress(&f),
			"Overdue":  factures.IsOverdue(&f, now),
		})
	}
	_ = view.Render(w, r, "factures.html", map[string]any{
		"Rows": rows, "Total": liste.Total, "Query": q.Search, "Statut": q.Statut,
	})
}

// Detail: GET /factures/detail?id=... - tabs lignes / paiements / donneur
func (h *FactureHandler) Detail(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		badRequest(w, r, "invalid_id", nil)
		return
	}
	svc := h.Factures(r)
	f, err := svc.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, "/factures")
		return
	}
	paiements, err := svc.ListPaiements(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, "/factures")
		return
	}
	h.record(r, "factures.detail", "facture", itoa(id))

	now := time.Now()
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, map[string]any{
			"facture":   f,
			"paiements": paiements,
			"badge":     factures.StatusBadge(f.Statut),
			"progress":  factures.PaymentProgress(f),
			"score":     factures.RecoveryScore(f, now),
			"overdue":   factures.IsOverdue(f, now),
		})
		return
	}
	_ = view.Render(w, r, "facture_detail.html", map[string]any{
		"Facture":   f,
		"Paiements": paiements,
		"Badge":     factures.StatusBadge(f.Statut),
		"Progress":  factures.PaymentProgress(f),
		"Score":     factures.RecoveryScore(f, now),
		"Overdue":   factures.IsOverdue(f, now),
	})
}

// Create: POST /factures - JSON or form (form accepts one line)
func (h *FactureHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req factures.CreateRequest
	lang := middleware.LangFrom(r)
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
			return
		}
	} else if err := r.ParseForm(); err == nil {
		req.ClientNom = strings.TrimSpace(r.Form.Get("client_nom"))
		req.Devise = r.Form.Get("devise")
		if v := r.Form.Get("donneur_ordre_id"); v != "" {
			if n, err := strconv.ParseUint(v, 10, 64); err == nil && n > 0 {
				id := uint(n)
				req.DonneurOrdreID = &id
			}
		}
		if v := r.Form.Get("date_echeance"); v != "" {
			if d, err := format.ParseDate(lang, v); err == nil {
				req.DateEcheance = &d
			}
		}
		ligne := factures.LigneRequest{Designation: strings.TrimSpace(r.Form.Get("designation"))}
		ligne.Quantite, _ = strconv.ParseFloat(r.Form.Get("quantite"), 64)
		ligne.PrixUnitaireHT, _ = strconv.ParseFloat(r.Form.Get("prix_unitaire_ht"), 64)
		ligne.TauxTVA, _ = strconv.ParseFloat(r.Form.Get("taux_tva"), 64)
		if ligne.Designation != "" {
			req.Lignes = []factures.LigneRequest{ligne}
		}
	}
	if req.ClientNom == "" || len(req.Lignes) == 0 {
		badRequest(w, r, "validation_failed", map[string]string{"client_nom": "required", "lignes": "required"})
		return
	}

	f, err := h.Factures(r).Create(r.Context(), req)
	if err != nil {
		h.fail(w, r, err, "/factures")
		return
	}
	h.record(r, "factures.create", "facture", itoa(f.ID))

	if httpx.WantsJSON(r) {
		ht, tva, ttc := factures.ComputeTotals(req.Lignes)
		httpx.JSON(w, http.StatusCreated, map[string]any{
			"id": f.ID, "statut": f.Statut, "ht": ht, "tva": tva, "ttc": ttc,
		})
		return
	}
	middleware.Flash(w, r, "facture_created")
	http.Redirect(w, r, "/factures/detail?id="+itoa(f.ID), http.StatusSeeOther)
}

// Finalize: POST /factures/finaliser?id=...
func (h *FactureHandler) Finalize(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		badRequest(w, r, "invalid_id", nil)
		return
	}
	f, err := h.Factures(r).Finalize(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, "/factures/detail?id="+itoa(id))
		return
	}
	h.record(r, "factures.finalize", "facture", itoa(id))
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusOK, map[string]any{"id": f.ID, "numero": f.Numero, "statut": f.Statut})
		return
	}
	middleware.Flash(w, r, "facture_finalized")
	http.Redirect(w, r, "/factures/detail?id="+itoa(id), http.StatusSeeOther)
}

// Avoir: POST /factures/avoir?id=... - credit note against a facture
func (h *FactureHandler) Avoir(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		badRequest(w, r, "invalid_id", nil)
		return
	}
	motif := strings.TrimSpace(r.FormValue("motif"))
	if motif == "" {
		badRequest(w, r, "validation_failed", map[string]string{"motif": "required"})
		return
	}
	avoir, err := h.Factures(r).CreateAvoir(r.Context(), id, motif)
	if err != nil {
		h.fail(w, r, err, "/factures/detail?id="+itoa(id))
		return
	}
	h.record(r, "factures.avoir", "facture", itoa(id))
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusCreated, map[string]any{"id": avoir.ID, "numero": avoir.Numero, "type": avoir.Type})
		return
	}
	middleware.Flash(w, r, "avoir_created")
	http.Redirect(w, r, "/factures/detail?id="+itoa(avoir.ID), http.StatusSeeOther)
}

// Paiement: POST /factures/paiements?id=...
func (h *FactureHandler) Paiement(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		badRequest(w, r, "invalid_id", nil)
		return
	}
	lang := middleware.LangFrom(r)
	var req factures.PaiementRequest
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
			return
		}
	} else if err := r.ParseForm(); err == nil {
		req.Montant, _ = strconv.ParseFloat(r.Form.Get("montant"), 64)
		req.Mode = r.Form.Get("mode")
		req.Commentaire = strings.TrimSpace(r.Form.Get("commentaire"))
		if v := r.Form.Get("date"); v != "" {
			if d, err := format.ParseDate(lang, v); err == nil {
				req.Date = d
			}
		}
	}
	if req.Montant <= 0 || req.Mode == "" {
		badRequest(w, r, "validation_failed", map[string]string{"montant": "required", "mode": "required"})
		return
	}
	if req.Date.IsZero() {
		req.Date = time.Now()
	}

	p, err := h.Factures(r).RecordPaiement(r.Context(), id, req)
	if err != nil {
		h.fail(w, r, err, "/factures/detail?id="+itoa(id))
		return
	}
	h.record(r, "factures.paiement", "facture", itoa(id))
	if httpx.WantsJSON(r) {
		httpx.JSON(w, http.StatusCreated, p)
		return
	}
	middleware.Flash(w, r, "paiement_recorded")
	http.Redirect(w, r, "/factures/detail?id="+itoa(id), http.StatusSeeOther)
}

// Update: PUT /factures/detail?id=... - JSON only, drafts only (the backend
// refuses edits past BROUILLON).
func (h *FactureHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		badRequest(w, r, "invalid_id", nil)
		return
	}
	var req factures.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	f, err := h.Factures(r).Update(r.Context(), id, req)
	if err != nil {
		h.fail(w, r, err, "/factures/detail?id="+itoa(id))
		return
	}
	h.record(r, "factures.update", "facture", itoa(id))
	httpx.JSON(w, http.StatusOK, f)
}

// DonneursOrdre: GET /factures/donneurs-ordre - JSON only, feeds the
// donneur d'ordre selector on the facture form.
func (h *FactureHandler) DonneursOrdre(w http.ResponseWriter, r *http.Request) {
	items, err := h.Factures(r).DonneursOrdre(r.Context())
	if err != nil {
		h.fail(w, r, err, "/factures")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items})
}

func itoa(id uint) string { return fmt.Sprintf("%d", id) }
