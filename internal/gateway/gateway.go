// Package gateway defines the contract every reservation backend satisfies
// and the read cache that sits in front of it.
package gateway

import (
	"context"

	"klinik/pkg/model"
)

// Gateway is the sole channel to the clinic's reservation data. Every method
// may fail with a GATEWAY_ERROR AppError.
type Gateway interface {
	ListBranches(ctx context.Context, organizationID string) ([]model.Branch, error)
	// ListDoctors returns an empty list without a request when branchID is empty.
	ListDoctors(ctx context.Context, branchID string) ([]model.Doctor, error)
	// ListTimeslots returns an empty list without a request unless both ids are set.
	ListTimeslots(ctx context.Context, branchID, doctorID string) ([]model.Timeslot, error)
	ListReservations(ctx context.Context, organizationID string) ([]model.Reservation, error)
	CreateReservation(ctx context.Context, input model.ReservationInput) error
	UpdateReservationStatus(ctx context.Context, id string, update model.StatusUpdate) error
}

type noCacheKey struct{}

// NoCache marks ctx so that reads skip the cache and refresh it.
func NoCache(ctx context.Context) context.Context {
	return context.WithValue(ctx, noCacheKey{}, true)
}

func cacheBypassed(ctx context.Context) bool {
	v, _ := ctx.Value(noCacheKey{}).(bool)
	return v
}
