package client

import (
	"context"
	"net/url"
	"time"

	apperrors "klinik/pkg/errors"
	"klinik/pkg/model"
)

const (
	PathBranches     = "/reservation/branches"
	PathDoctors      = "/reservation/doctors"
	PathTimeslots    = "/reservation/timeslots"
	PathReservations = "/reservation"
)

// ReservationClient talks to the clinic reservation API.
type ReservationClient struct {
	httpClient *HttpClient
}

func NewReservationClient(baseURL, token string, timeout time.Duration) *ReservationClient {
	hc := NewHttpClient(baseURL, timeout)
	hc.Token = token
	return &ReservationClient{httpClient: hc}
}

func (c *ReservationClient) ListBranches(ctx context.Context, organizationID string) ([]model.Branch, error) {
	q := url.Values{}
	q.Set("organizationId", organizationID)

	var branches []model.Branch
	if err := c.get(ctx, PathBranches+"?"+q.Encode(), &branches); err != nil {
		return nil, err
	}
	return branches, nil
}

func (c *ReservationClient) ListDoctors(ctx context.Context, branchID string) ([]model.Doctor, error) {
	if branchID == "" {
		return []model.Doctor{}, nil
	}

	q := url.Values{}
	q.Set("branchId", branchID)

	var doctors []model.Doctor
	if err := c.get(ctx, PathDoctors+"?"+q.Encode(), &doctors); err != nil {
		return nil, err
	}
	return doctors, nil
}

func (c *ReservationClient) ListTimeslots(ctx context.Context, branchID, doctorID string) ([]model.Timeslot, error) {
	if branchID == "" || doctorID == "" {
		return []model.Timeslot{}, nil
	}

	q := url.Values{}
	q.Set("branchId", branchID)
	q.Set("doctorId", doctorID)

	var slots []model.Timeslot
	if err := c.get(ctx, PathTimeslots+"?"+q.Encode(), &slots); err != nil {
		return nil, err
	}
	return slots, nil
}

func (c *ReservationClient) ListReservations(ctx context.Context, organizationID string) ([]model.Reservation, error) {
	path := PathReservations
	if organizationID != "" {
		q := url.Values{}
		q.Set("organizationId", organizationID)
		path += "?" + q.Encode()
	}

	var reservations []model.Reservation
	if err := c.get(ctx, path, &reservations); err != nil {
		return nil, err
	}
	return reservations, nil
}

func (c *ReservationClient) CreateReservation(ctx context.Context, input model.ReservationInput) error {
	resp, err := c.httpClient.POST(ctx, PathReservations, input)
	if err != nil {
		return err
	}
	return resp.DecodeEnvelope(nil)
}

func (c *ReservationClient) UpdateReservationStatus(ctx context.Context, id string, update model.StatusUpdate) error {
	if id == "" {
		return apperrors.InvalidInput("reservation id is required")
	}
	resp, err := c.httpClient.PATCH(ctx, PathReservations+"/"+url.PathEscape(id)+"/status", update)
	if err != nil {
		return err
	}
	return resp.DecodeEnvelope(nil)
}

func (c *ReservationClient) get(ctx context.Context, path string, target any) error {
	resp, err := c.httpClient.GET(ctx, path)
	if err != nil {
		return err
	}
	return resp.DecodeEnvelope(target)
}
