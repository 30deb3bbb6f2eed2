// Package interventions wraps the backend intervention endpoints and the
// client-side workflow guard for the field-service module.
package interventions

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/sofratec/erp-app/internal/apiclient"
	"github.com/sofratec/erp-app/internal/models"
)

// ErrActionNonPermise is returned when the guard table forbids a transition
// from the intervention's current status. The backend would refuse it too;
// failing early gives a cleaner message and saves a round trip.
type ErrActionNonPermise struct {
	Statut models.StatutIntervention
	Action string
}

func (e *ErrActionNonPermise) Error() string {
	return fmt.Sprintf("interventions: action %s non permise depuis le statut %s", e.Action, e.Statut)
}

type Service struct {
	api     *apiclient.Client
	version string
}

func New(api *apiclient.Client, version string) *Service {
	return &Service{api: api, version: version}
}

func (s *Service) path(parts ...string) string {
	p := "/" + s.version + "/interventions"
	for _, part := range parts {
		p += "/" + part
	}
	return p
}

// Query filters the intervention list.
type Query struct {
	Statut     models.StatutIntervention
	Technicien uint
	Search     string
	From, To   time.Time
	Limit      int
	Page       int
}

func (q Query) values() url.Values {
	v := url.Values{}
	if q.Statut != "" {
		v.Set("statut", string(q.Statut))
	}
	if q.Technicien != 0 {
		v.Set("technicien_id", strconv.FormatUint(uint64(q.Technicien), 10))
	}
	if q.Search != "" {
		v.Set("q", q.Search)
	}
	if !q.From.IsZero() {
		v.Set("du", q.From.Format("2006-01-02"))
	}
	if !q.To.IsZero() {
		v.Set("au", q.To.Format("2006-01-02"))
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

func (s *Service) List(ctx context.Context, q Query) (models.ListeInterventions, error) {
	var out models.ListeInterventions
	err := s.api.Get(ctx, s.path()+"?"+q.values().Encode(), &out)
	return out, err
}

func (s *Service) Get(ctx context.Context, id uint) (*models.Intervention, error) {
	var out models.Intervention
	if err := s.api.Get(ctx, s.path(itoa(id)), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateRequest carries the creation form. The backend assigns reference and
// initial DRAFT status.
type CreateRequest struct {
	Titre          string `json:"titre"`
	Description    string `json:"description,omitempty"`
	ClientNom      string `json:"client_nom"`
	Adresse        string `json:"adresse,omitempty"`
	Ville          string `json:"ville,omitempty"`
	DonneurOrdreID *uint  `json:"donneur_ordre_id,omitempty"`
	Priorite       string `json:"priorite,omitempty"`
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (*models.Intervention, error) {
	var out models.Intervention
	if err := s.api.Post(ctx, s.path(), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Service) Update(ctx context.Context, id uint, req CreateRequest) (*models.Intervention, error) {
	var out models.Intervention
	if err := s.api.Put(ctx, s.path(itoa(id)), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PlanRequest fixes a slot on the planning board.
type PlanRequest struct {
	Date         time.Time `json:"date"`
	TechnicienID uint      `json:"technicien_id"`
	DureeMinutes int       `json:"duree_minutes,omitempty"`
}

// Validate moves DRAFT to A_PLANIFIER.
func (s *Service) Validate(ctx context.Context, iv *models.Intervention) (*models.Intervention, error) {
	if !ActionsFor(iv.Statut).CanValidate {
		return nil, &ErrActionNonPermise{Statut: iv.Statut, Action: "valider"}
	}
	return s.transition(ctx, iv.ID, "valider", nil)
}

// Plan schedules an A_PLANIFIER intervention (or replans a PLANIFIEE one).
func (s *Service) Plan(ctx context.Context, iv *models.Intervention, req PlanRequest) (*models.Intervention, error) {
	a := ActionsFor(iv.Statut)
	if !a.CanPlan && !a.CanReplan {
		return nil, &ErrActionNonPermise{Statut: iv.Statut, Action: "planifier"}
	}
	return s.transition(ctx, iv.ID, "planifier", req)
}

// Unplan returns a PLANIFIEE intervention to the A_PLANIFIER backlog.
func (s *Service) Unplan(ctx context.Context, iv *models.Intervention) (*models.Intervention, error) {
	if iv.Statut != models.InterventionPlanifiee {
		return nil, &ErrActionNonPermise{Statut: iv.Statut, Action: "déplanifier"}
	}
	return s.transition(ctx, iv.ID, "deplanifier", nil)
}

func (s *Service) Start(ctx context.Context, iv *models.Intervention) (*models.Intervention, error) {
	if !ActionsFor(iv.Statut).CanStart {
		return nil, &ErrActionNonPermise{Statut: iv.Statut, Action: "démarrer"}
	}
	return s.transition(ctx, iv.ID, "demarrer", nil)
}

func (s *Service) Complete(ctx context.Context, iv *models.Intervention, rapport string) (*models.Intervention, error) {
	if !ActionsFor(iv.Statut).CanComplete {
		return nil, &ErrActionNonPermise{Statut: iv.Statut, Action: "terminer"}
	}
	return s.transition(ctx, iv.ID, "terminer", map[string]string{"rapport": rapport})
}

func (s *Service) Block(ctx context.Context, iv *models.Intervention, motif string) (*models.Intervention, error) {
	if !ActionsFor(iv.Statut).CanBlock {
		return nil, &ErrActionNonPermise{Statut: iv.Statut, Action: "bloquer"}
	}
	return s.transition(ctx, iv.ID, "bloquer", map[string]string{"motif": motif})
}

func (s *Service) Unblock(ctx context.Context, iv *models.Intervention) (*models.Intervention, error) {
	if !ActionsFor(iv.Statut).CanUnblock {
		return nil, &ErrActionNonPermise{Statut: iv.Statut, Action: "débloquer"}
	}
	return s.transition(ctx, iv.ID, "debloquer", nil)
}

func (s *Service) Cancel(ctx context.Context, iv *models.Intervention, motif string) (*models.Intervention, error) {
	if !ActionsFor(iv.Statut).CanCancel {
		return nil, &ErrActionNonPermise{Statut: iv.Statut, Action: "annuler"}
	}
	return s.transition(ctx, iv.ID, "annuler", map[string]string{"motif": motif})
}

func (s *Service) transition(ctx context.Context, id uint, action string, body any) (*models.Intervention, error) {
	var out models.Intervention
	if err := s.api.Post(ctx, s.path(itoa(id), action), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Techniciens lists assignable field workers for the planning board.
func (s *Service) Techniciens(ctx context.Context) ([]models.Technicien, error) {
	var out models.ListeTechniciens
	if err := s.api.Get(ctx, "/"+s.version+"/techniciens", &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
