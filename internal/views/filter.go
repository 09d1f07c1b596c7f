// Package views projects the reservation snapshot into the shapes the
// reception screens render. Every function is pure: it never mutates its
// input and never calls the gateway.
package views

import (
	"strings"

	"klinik/pkg/model"
)

// Filter narrows a snapshot. Zero fields match everything.
type Filter struct {
	BranchID string
	DoctorID string
	Source   model.Source
	Status   model.Status
	// Query matches name, phone or complaint, case-insensitively.
	Query string
}

func (f Filter) Match(r *model.Reservation) bool {
	if f.BranchID != "" && r.BranchID != f.BranchID {
		return false
	}
	if f.DoctorID != "" && r.DoctorID != f.DoctorID {
		return false
	}
	if f.Source != "" && r.Source != f.Source {
		return false
	}
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		return strings.Contains(strings.ToLower(r.Name), q) ||
			strings.Contains(r.Phone, q) ||
			strings.Contains(strings.ToLower(r.Complaint), q)
	}
	return true
}

func Apply(reservations []model.Reservation, f Filter) []model.Reservation {
	out := make([]model.Reservation, 0, len(reservations))
	for i := range reservations {
		if f.Match(&reservations[i]) {
			out = append(out, reservations[i])
		}
	}
	return out
}
