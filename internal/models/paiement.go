package models

import "time"

// Paiement tied to a facture.
type Paiement struct {
	ID          uint      `json:"id"`
	FactureID   uint      `json:"facture_id"`
	Date        time.Time `json:"date"`
	Montant     float64   `json:"montant"`
	Mode        string    `json:"mode"`   // ex: virement, CB, chèque, espèces
	Statut      string    `json:"statut"` // ex: pending, paid, failed, refunded
	Commentaire string    `json:"commentaire,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type ListePaiements struct {
	Items []Paiement `json:"items"`
	Total int64      `json:"total"`
}
