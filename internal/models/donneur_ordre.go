package models

// DonneurOrdre: organisme payeur tiers (assureur, syndic, bailleur...)
// distinct du client final facturé.
type DonneurOrdre struct {
	ID            uint   `json:"id"`
	Nom           string `json:"nom"`
	Code          string `json:"code"`
	TypeOrganisme string `json:"type_organisme"`
	Email         string `json:"email,omitempty"`
	Telephone     string `json:"telephone,omitempty"`
	Actif         bool   `json:"actif"`
}

type ListeDonneursOrdre struct {
	Items []DonneurOrdre `json:"items"`
	Total int64          `json:"total"`
}
