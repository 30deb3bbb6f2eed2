package interventions

import "github.com/sofratec/erp-app/internal/models"

// Actions lists the workflow buttons enabled for a given status. The guard
// is advisory: the backend re-validates every transition, this table only
// decides which affordances the UI offers.
type Actions struct {
	CanValidate bool `json:"can_validate"` // DRAFT       -> A_PLANIFIER
	CanPlan     bool `json:"can_plan"`     // A_PLANIFIER -> PLANIFIEE
	CanReplan   bool `json:"can_replan"`   // PLANIFIEE   -> PLANIFIEE (autre créneau)
	CanStart    bool `json:"can_start"`    // PLANIFIEE   -> EN_COURS
	CanComplete bool `json:"can_complete"` // EN_COURS    -> TERMINEE
	CanBlock    bool `json:"can_block"`    // EN_COURS    -> BLOQUEE
	CanUnblock  bool `json:"can_unblock"`  // BLOQUEE     -> EN_COURS
	CanCancel   bool `json:"can_cancel"`   // *           -> ANNULEE (hors DRAFT, états finaux et en cours)
}

// ActionsFor returns the enabled actions for a status. Unknown statuses get
// no actions at all.
func ActionsFor(s models.StatutIntervention) Actions {
	switch s {
	case models.InterventionDraft:
		// A draft is discarded, not cancelled; annulation starts once the
		// ticket is in the backlog.
		return Actions{CanValidate: true}
	case models.InterventionAPlanifier:
		return Actions{CanPlan: true, CanCancel: true}
	case models.InterventionPlanifiee:
		return Actions{CanStart: true, CanReplan: true, CanCancel: true}
	case models.InterventionEnCours:
		return Actions{CanComplete: true, CanBlock: true}
	case models.InterventionBloquee:
		return Actions{CanUnblock: true, CanCancel: true}
	default:
		// TERMINEE, ANNULEE and anything unknown: terminal.
		return Actions{}
	}
}

// None reports whether no action is enabled.
func (a Actions) None() bool {
	return a == Actions{}
}
