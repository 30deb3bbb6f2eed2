package models

import "time"

// StatutIntervention: vocabulaire fermé du workflow intervention.
type StatutIntervention string

const (
	InterventionDraft      StatutIntervention = "DRAFT"
	InterventionAPlanifier StatutIntervention = "A_PLANIFIER"
	InterventionPlanifiee  StatutIntervention = "PLANIFIEE"
	InterventionEnCours    StatutIntervention = "EN_COURS"
	InterventionBloquee    StatutIntervention = "BLOQUEE"
	InterventionTerminee   StatutIntervention = "TERMINEE"
	InterventionAnnulee    StatutIntervention = "ANNULEE"
)

// Statuts returns the workflow vocabulary in display order.
func Statuts() []StatutIntervention {
	return []StatutIntervention{
		InterventionDraft,
		InterventionAPlanifier,
		InterventionPlanifiee,
		InterventionEnCours,
		InterventionBloquee,
		InterventionTerminee,
		InterventionAnnulee,
	}
}

// Intervention: ticket d'intervention terrain.
type Intervention struct {
	ID             uint               `json:"id"`
	Reference      string             `json:"reference"`
	Statut         StatutIntervention `json:"statut"`
	Titre          string             `json:"titre"`
	Description    string             `json:"description,omitempty"`
	ClientNom      string             `json:"client_nom"`
	Adresse        string             `json:"adresse,omitempty"`
	Ville          string             `json:"ville,omitempty"`
	DonneurOrdreID *uint              `json:"donneur_ordre_id,omitempty"`
	TechnicienID   *uint              `json:"technicien_id,omitempty"`
	TechnicienNom  string             `json:"technicien_nom,omitempty"`
	DatePlanifiee  *time.Time         `json:"date_planifiee,omitempty"`
	DureeMinutes   int                `json:"duree_minutes,omitempty"`
	Priorite       string             `json:"priorite,omitempty"` // basse, normale, haute, urgente
	ScoreUrgence   int                `json:"score_urgence"`      // 0..100, calculé côté backend
	MotifBlocage   string             `json:"motif_blocage,omitempty"`
	Rapport        string             `json:"rapport,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

type ListeInterventions struct {
	Items  []Intervention `json:"items"`
	Total  int64          `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

// Technicien: intervenant affectable sur le planning.
type Technicien struct {
	ID      uint   `json:"id"`
	Nom     string `json:"nom"`
	Couleur string `json:"couleur,omitempty"`
	Actif   bool   `json:"actif"`
}

type ListeTechniciens struct {
	Items []Technicien `json:"items"`
	Total int64        `json:"total"`
}
