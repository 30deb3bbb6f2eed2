package models

import "time"

// Document types: une facture ou un avoir (credit note).
type TypeDocument string

const (
	TypeFacture TypeDocument = "FACTURE"
	TypeAvoir   TypeDocument = "AVOIR"
)

// Statuts facture tels qu'exposés par le backend.
const (
	FactureBrouillon     = "BROUILLON"
	FactureValidee       = "VALIDEE"
	FacturePartiellement = "PARTIELLEMENT_PAYEE"
	FacturePayee         = "PAYEE"
	FactureAnnulee       = "ANNULEE"
)

// Facture mirrors the backend document DTO. Amounts are computed server-side;
// the copies held here are display values only.
type Facture struct {
	ID             uint            `json:"id"`
	Numero         string          `json:"numero"`
	Type           TypeDocument    `json:"type"`
	Statut         string          `json:"statut"`
	ClientNom      string          `json:"client_nom"`
	DonneurOrdreID *uint           `json:"donneur_ordre_id,omitempty"`
	DateEmission   time.Time       `json:"date_emission"`
	DateEcheance   time.Time       `json:"date_echeance"`
	Lignes         []LigneDocument `json:"lignes,omitempty"`
	TotalHT        float64         `json:"total_ht"`
	TotalTVA       float64         `json:"total_tva"`
	TotalTTC       float64         `json:"total_ttc"`
	MontantRegle   float64         `json:"montant_regle"`
	Devise         string          `json:"devise"`
	// Renseigné sur les avoirs uniquement.
	FactureOrigineID *uint     `json:"facture_origine_id,omitempty"`
	Motif            string    `json:"motif,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type LigneDocument struct {
	ID             uint    `json:"id"`
	Designation    string  `json:"designation"`
	Quantite       float64 `json:"quantite"`
	PrixUnitaireHT float64 `json:"prix_unitaire_ht"`
	TauxTVA        float64 `json:"taux_tva"` // 0..1
	Remise         float64 `json:"remise"`   // montant absolu sur la ligne
	MontantHT      float64 `json:"montant_ht"`
}

type ListeFactures struct {
	Items  []Facture `json:"items"`
	Total  int64     `json:"total"`
	Limit  int       `json:"limit"`
	Offset int       `json:"offset"`
}
