// Package factures wraps the backend invoicing endpoints (factures, avoirs,
// paiements, donneurs d'ordre) and the display-state helpers for their views.
package factures

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/sofratec/erp-app/internal/apiclient"
	"github.com/sofratec/erp-app/internal/models"
)

type Service struct {
	api     *apiclient.Client
	version string
}

func New(api *apiclient.Client, version string) *Service {
	return &Service{api: api, version: version}
}

func (s *Service) path(parts ...string) string {
	p := "/" + s.version + "/factures"
	for _, part := range parts {
		p += "/" + part
	}
	return p
}

// Query filters the document list.
type Query struct {
	Type   models.TypeDocument
	Statut string
	Search string
	Limit  int
	Page   int
}

func (q Query) values() url.Values {
	v := url.Values{}
	if q.Type != "" {
		v.Set("type", string(q.Type))
	}
	if q.Statut != "" {
		v.Set("statut", q.Statut)
	}
	if q.Search != "" {
		v.Set("q", q.Search)
	}
	limit := q.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	v.Set("limit", strconv.Itoa(limit))
	if q.Page > 1 {
		v.Set("offset", strconv.Itoa((q.Page-1)*limit))
	}
	return v
}

func (s *Service) List(ctx context.Context, q Query) (models.ListeFactures, error) {
	var out models.ListeFactures
	err := s.api.Get(ctx, s.path()+"?"+q.values().Encode(), &out)
	return out, err
}

func (s *Service) Get(ctx context.Context, id uint) (*models.Facture, error) {
	var out models.Facture
	if err := s.api.Get(ctx, s.path(itoa(id)), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// LigneRequest is one draft line in a create/update form.
type LigneRequest struct {
	Designation    string  `json:"designation"`
	Quantite       float64 `json:"quantite"`
	PrixUnitaireHT float64 `json:"prix_unitaire_ht"`
	TauxTVA        float64 `json:"taux_tva"`
	Remise         float64 `json:"remise,omitempty"`
}

// CreateRequest creates a BROUILLON facture.
type CreateRequest struct {
	ClientNom      string         `json:"client_nom"`
	DonneurOrdreID *uint          `json:"donneur_ordre_id,omitempty"`
	DateEcheance   *time.Time     `json:"date_echeance,omitempty"`
	Devise         string         `json:"devise,omitempty"`
	Lignes         []LigneRequest `json:"lignes"`
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (*models.Facture, error) {
	var out models.Facture
	if err := s.api.Post(ctx, s.path(), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Update replaces the draft content. The backend refuses it past BROUILLON.
func (s *Service) Update(ctx context.Context, id uint, req CreateRequest) (*models.Facture, error) {
	var out models.Facture
	if err := s.api.Put(ctx, s.path(itoa(id)), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Finalize validates the draft: the backend assigns the legal number and
// freezes the lines.
func (s *Service) Finalize(ctx context.Context, id uint) (*models.Facture, error) {
	var out models.Facture
	if err := s.api.Post(ctx, s.path(itoa(id), "finaliser"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateAvoir issues a credit note against a validated facture.
func (s *Service) CreateAvoir(ctx context.Context, factureID uint, motif string) (*models.Facture, error) {
	var out models.Facture
	body := map[string]string{"motif": motif}
	if err := s.api.Post(ctx, s.path(itoa(factureID), "avoir"), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PaiementRequest records a payment against a facture.
type PaiementRequest struct {
	Date        time.Time `json:"date"`
	Montant     float64   `json:"montant"`
	Mode        string    `json:"mode"`
	Commentaire string    `json:"commentaire,omitempty"`
}

func (s *Service) RecordPaiement(ctx context.Context, factureID uint, req PaiementRequest) (*models.Paiement, error) {
	var out models.Paiement
	if err := s.api.Post(ctx, s.path(itoa(factureID), "paiements"), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Service) ListPaiements(ctx context.Context, factureID uint) ([]models.Paiement, error) {
	var out models.ListePaiements
	if err := s.api.Get(ctx, s.path(itoa(factureID), "paiements"), &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// DonneursOrdre lists billing principals for the facture form selector.
func (s *Service) DonneursOrdre(ctx context.Context) ([]models.DonneurOrdre, error) {
	var out models.ListeDonneursOrdre
	if err := s.api.Get(ctx, "/"+s.version+"/donneurs-ordre", &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// ComputeTotals computes HT, TVA and TTC for a draft form before the backend
// has seen it. Line discounts are absolute amounts capped at the line total.
// Validated documents always display the backend's own totals instead.
func ComputeTotals(lignes []LigneRequest) (ht, tva, ttc float64) {
	for _, l := range lignes {
		lineHT := l.Quantite * l.PrixUnitaireHT
		if l.Remise > 0 && l.Remise < lineHT {
			lineHT -= l.Remise
		}
		ht += lineHT
		rate := l.TauxTVA
		if rate < 0 {
			rate = 0
		}
		tva += lineHT * rate
	}
	ttc = ht + tva
	return ht, tva, ttc
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
