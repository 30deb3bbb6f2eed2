// Package planning builds the week board for the interventions module and
// maps drag-and-drop gestures onto the three scheduling mutations. The board
// holds no scheduling logic of its own: last drop wins, the server is the
// authority, and the grid is rebuilt from a fresh fetch after each mutation.
package planning

import (
	"fmt"
	"time"

	"github.com/sofratec/erp-app/internal/models"
)

// WeekOf returns the Monday 00:00 of the week containing t.
func WeekOf(t time.Time) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	offset := (int(day.Weekday()) + 6) % 7 // Monday = 0
	return day.AddDate(0, 0, -offset)
}

// Board is the rendered week grid: one column per day, one lane per
// technicien, plus the unassigned backlog on the side.
type Board struct {
	Monday      time.Time
	Days        [7]Day
	Techniciens []models.Technicien
	Backlog     []models.Intervention // A_PLANIFIER, waiting for a slot
}

type Day struct {
	Date  time.Time
	Lanes map[uint][]models.Intervention // technicien id -> slots; 0 = sans technicien
}

// BuildBoard groups interventions by day and technicien for the week of ref.
// Unplanned A_PLANIFIER tickets land in the backlog regardless of date;
// planned ones outside the week are simply not shown. Items is the
// concatenation of several fetches, so duplicate ids are dropped.
func BuildBoard(ref time.Time, techs []models.Technicien, items []models.Intervention) *Board {
	monday := WeekOf(ref)
	b := &Board{Monday: monday, Techniciens: techs}
	for i := range b.Days {
		b.Days[i] = Day{Date: monday.AddDate(0, 0, i), Lanes: map[uint][]models.Intervention{}}
	}
	end := monday.AddDate(0, 0, 7)
	seen := map[uint]bool{}
	for _, iv := range items {
		if seen[iv.ID] {
			continue
		}
		seen[iv.ID] = true
		if iv.Statut == models.InterventionAPlanifier {
			b.Backlog = append(b.Backlog, iv)
			continue
		}
		if iv.DatePlanifiee == nil {
			continue
		}
		d := *iv.DatePlanifiee
		if d.Before(monday) || !d.Before(end) {
			continue
		}
		idx := int(d.Sub(monday).Hours() / 24)
		var lane uint
		if iv.TechnicienID != nil {
			lane = *iv.TechnicienID
		}
		b.Days[idx].Lanes[lane] = append(b.Days[idx].Lanes[lane], iv)
	}
	return b
}

// Action is the mutation a drop translates into.
type Action int

const (
	ActionPlan   Action = iota // backlog -> slot
	ActionReplan               // slot -> autre slot
	ActionUnplan               // slot -> backlog
)

func (a Action) String() string {
	switch a {
	case ActionPlan:
		return "plan"
	case ActionReplan:
		return "replan"
	case ActionUnplan:
		return "unplan"
	default:
		return "unknown"
	}
}

// Target is where the card was dropped.
type Target struct {
	Backlog      bool
	Day          time.Time
	TechnicienID uint
}

// ErrDropImpossible: the dragged card's status does not allow the gesture.
// Surfaced to the UI as a dismissible toast.
type ErrDropImpossible struct {
	Statut models.StatutIntervention
}

func (e *ErrDropImpossible) Error() string {
	return fmt.Sprintf("planning: dépôt impossible depuis le statut %s", e.Statut)
}

// Decide maps a drop onto the mutation to dispatch. Only A_PLANIFIER and
// PLANIFIEE cards are draggable; everything else is rejected client-side.
func Decide(iv models.Intervention, target Target) (Action, error) {
	if target.Backlog {
		if iv.Statut == models.InterventionPlanifiee {
			return ActionUnplan, nil
		}
		return 0, &ErrDropImpossible{Statut: iv.Statut}
	}
	switch iv.Statut {
	case models.InterventionAPlanifier:
		return ActionPlan, nil
	case models.InterventionPlanifiee:
		return ActionReplan, nil
	default:
		return 0, &ErrDropImpossible{Statut: iv.Statut}
	}
}
