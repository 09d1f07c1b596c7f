// Package lifecycle owns the reservation status machine. It is the only place
// that decides whether a transition is legal and the only caller of the
// gateway's status update.
package lifecycle

import "klinik/pkg/model"

var transitions = map[model.Status][]model.Status{
	model.StatusCreated:        {model.StatusUnderReview, model.StatusCancelled},
	model.StatusUnderReview:    {model.StatusScheduled, model.StatusCancelled},
	model.StatusScheduled:      {model.StatusEncounterReady, model.StatusCancelled},
	model.StatusEncounterReady: {model.StatusInEncounter, model.StatusCancelled},
	model.StatusInEncounter:    {model.StatusCompleted},
	model.StatusCompleted:      {},
	model.StatusCancelled:      {},
}

// Allowed returns the statuses reachable from from in one step.
func Allowed(from model.Status) []model.Status {
	next := transitions[from]
	out := make([]model.Status, len(next))
	copy(out, next)
	return out
}

func CanTransition(from, to model.Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Table returns a copy of the full transition table keyed by source status.
func Table() map[model.Status][]model.Status {
	out := make(map[model.Status][]model.Status, len(transitions))
	for _, s := range model.Statuses() {
		out[s] = Allowed(s)
	}
	return out
}
