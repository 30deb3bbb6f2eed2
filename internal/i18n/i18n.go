// Package i18n holds the small fr/en catalogue for chrome and flash
// messages. Business content comes formatted from the backend; only the
// application shell is translated here.
package i18n

import "strings"

var messages = map[string]map[string]string{
	"fr": {
		"required":              "Requis",
		"login":                 "Connexion",
		"logout":                "Déconnexion",
		"login_failed":          "Identifiants invalides",
		"session_expired":       "Session expirée, veuillez vous reconnecter",
		"dashboard":             "Tableau de bord",
		"factures":              "Factures & Avoirs",
		"interventions":         "Interventions",
		"planning":              "Planning",
		"facture_created":       "Facture créée",
		"facture_finalized":     "Facture finalisée",
		"avoir_created":         "Avoir créé",
		"paiement_recorded":     "Paiement enregistré",
		"intervention_created":  "Intervention créée",
		"intervention_updated":  "Intervention mise à jour",
		"transition_refused":    "Action impossible dans ce statut",
		"drop_refused":          "Déplacement impossible pour cette intervention",
		"backend_unreachable":   "Le serveur ne répond pas, réessayez plus tard",
		"validation_failed":     "Le formulaire contient des erreurs",
	},
	"en": {
		"required":              "Required",
		"login":                 "Sign in",
		"logout":                "Sign out",
		"login_failed":          "Invalid credentials",
		"session_expired":       "Session expired, please sign in again",
		"dashboard":             "Dashboard",
		"factures":              "Invoices & Credit notes",
		"interventions":         "Interventions",
		"planning":              "Planning",
		"facture_created":       "Invoice created",
		"facture_finalized":     "Invoice finalized",
		"avoir_created":         "Credit note created",
		"paiement_recorded":     "Payment recorded",
		"intervention_created":  "Intervention created",
		"intervention_updated":  "Intervention updated",
		"transition_refused":    "Action not allowed in this status",
		"drop_refused":          "This intervention cannot be moved",
		"backend_unreachable":   "Server unreachable, try again later",
		"validation_failed":     "The form has errors",
	},
}

// T translates a message code. Unknown languages fall back to French;
// unknown codes fall back to the code itself.
func T(lang, code string) string {
	if m, ok := messages[lang]; ok {
		if v, ok := m[code]; ok {
			return v
		}
	}
	if v, ok := messages["fr"][code]; ok {
		return v
	}
	return code
}

// DetectLanguage picks fr or en from an Accept-Language header, defaulting
// to French.
func DetectLanguage(header string) string {
	for _, part := range strings.Split(header, ",") {
		lang := strings.ToLower(strings.TrimSpace(part))
		if i := strings.IndexAny(lang, "-;"); i >= 0 {
			lang = lang[:i]
		}
		switch lang {
		case "fr":
			return "fr"
		case "en":
			return "en"
		}
	}
	return "fr"
}
