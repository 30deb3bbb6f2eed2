package factures

import (
	"time"

	"github.com/sofratec/erp-app/internal/models"
)

// Badge is the colored status chip rendered in lists and detail headers.
type Badge struct {
	Label string `json:"label"`
	Tone  string `json:"tone"` // gray, blue, orange, green, red
}

func StatusBadge(statut string) Badge {
	switch statut {
	case models.FactureBrouillon:
		return Badge{Label: "Brouillon", Tone: "gray"}
	case models.FactureValidee:
		return Badge{Label: "Validée", Tone: "blue"}
	case models.FacturePartiellement:
		return Badge{Label: "Partiellement payée", Tone: "orange"}
	case models.FacturePayee:
		return Badge{Label: "Payée", Tone: "green"}
	case models.FactureAnnulee:
		return Badge{Label: "Annulée", Tone: "red"}
	default:
		return Badge{Label: statut, Tone: "gray"}
	}
}

// PaymentProgress returns the settled share of the TTC amount, clamped to
// [0,1], for the progress bar. Avoirs carry negative amounts and show full.
func PaymentProgress(f *models.Facture) float64 {
	if f == nil || f.TotalTTC <= 0 {
		return 1
	}
	p := f.MontantRegle / f.TotalTTC
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// IsOverdue reports whether an unsettled facture is past its due date.
func IsOverdue(f *models.Facture, now time.Time) bool {
	if f == nil || f.Type != models.TypeFacture {
		return false
	}
	switch f.Statut {
	case models.FacturePayee, models.FactureAnnulee, models.FactureBrouillon:
		return false
	}
	return !f.DateEcheance.IsZero() && now.After(f.DateEcheance)
}

// RecoveryScore feeds the score circle on the detail header: 100 for a
// settled facture, degrading with the unpaid share and with lateness
// (about one point per overdue day, floored at zero).
func RecoveryScore(f *models.Facture, now time.Time) int {
	if f == nil {
		return 0
	}
	switch f.Statut {
	case models.FacturePayee:
		return 100
	case models.FactureAnnulee, models.FactureBrouillon:
		return 0
	}
	score := int(PaymentProgress(f) * 100)
	if IsOverdue(f, now) {
		late := int(now.Sub(f.DateEcheance).Hours() / 24)
		score -= late
	}
	if score < 0 {
		return 0
	}
	return score
}
