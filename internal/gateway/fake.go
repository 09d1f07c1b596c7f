package gateway

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"klinik/internal/slots"
	apperrors "klinik/pkg/errors"
	"klinik/pkg/model"

	"github.com/google/uuid"
)

type Op string

const (
	OpListBranches     Op = "ListBranches"
	OpListDoctors      Op = "ListDoctors"
	OpListTimeslots    Op = "ListTimeslots"
	OpListReservations Op = "ListReservations"
	OpCreate           Op = "CreateReservation"
	OpUpdateStatus     Op = "UpdateReservationStatus"
)

// FakeGateway is an in-memory clinic backend. It enforces the backend's own
// rules (known timeslots, no double-booked doctor) but not the lifecycle
// transition table.
type FakeGateway struct {
	mu           sync.RWMutex
	loc          *time.Location
	now          func() time.Time
	delay        time.Duration
	branches     []model.Branch
	doctors      []model.Doctor
	timeslots    []model.Timeslot
	reservations []model.Reservation
	failures     map[Op][]error
	calls        map[Op]int
}

func NewFakeGateway(loc *time.Location) *FakeGateway {
	if loc == nil {
		loc = time.UTC
	}
	return &FakeGateway{
		loc:      loc,
		now:      time.Now,
		failures: make(map[Op][]error),
		calls:    make(map[Op]int),
	}
}

// WithClock replaces the clock used for createdAt stamps.
func (f *FakeGateway) WithClock(now func() time.Time) *FakeGateway {
	f.now = now
	return f
}

// WithDelay makes every call wait d (or until ctx is done) before answering.
func (f *FakeGateway) WithDelay(d time.Duration) *FakeGateway {
	f.delay = d
	return f
}

func (f *FakeGateway) AddBranch(b model.Branch) model.Branch {
	f.mu.Lock()
	defer f.mu.Unlock()
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	f.branches = append(f.branches, b)
	return b
}

func (f *FakeGateway) AddDoctor(d model.Doctor) model.Doctor {
	f.mu.Lock()
	defer f.mu.Unlock()
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	f.doctors = append(f.doctors, d)
	return d
}

func (f *FakeGateway) AddTimeslot(t model.Timeslot) model.Timeslot {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	f.timeslots = append(f.timeslots, t)
	return t
}

func (f *FakeGateway) AddReservation(r model.Reservation) model.Reservation {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = f.now()
	}
	f.reservations = append(f.reservations, r)
	return r
}

// FailNext queues err as the result of the next call to op.
func (f *FakeGateway) FailNext(op Op, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[op] = append(f.failures[op], err)
}

func (f *FakeGateway) Calls(op Op) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.calls[op]
}

// Reservation returns the stored copy of id.
func (f *FakeGateway) Reservation(id string) (model.Reservation, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, r := range f.reservations {
		if r.ID == id {
			return r, true
		}
	}
	return model.Reservation{}, false
}

func (f *FakeGateway) ListBranches(ctx context.Context, organizationID string) ([]model.Branch, error) {
	if err := f.enter(ctx, OpListBranches); err != nil {
		return nil, err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := []model.Branch{}
	for _, b := range f.branches {
		if organizationID == "" || b.OrganizationID == organizationID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *FakeGateway) ListDoctors(ctx context.Context, branchID string) ([]model.Doctor, error) {
	if branchID == "" {
		return []model.Doctor{}, nil
	}
	if err := f.enter(ctx, OpListDoctors); err != nil {
		return nil, err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := []model.Doctor{}
	for _, d := range f.doctors {
		if d.BranchID == branchID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *FakeGateway) ListTimeslots(ctx context.Context, branchID, doctorID string) ([]model.Timeslot, error) {
	if branchID == "" || doctorID == "" {
		return []model.Timeslot{}, nil
	}
	if err := f.enter(ctx, OpListTimeslots); err != nil {
		return nil, err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := []model.Timeslot{}
	for _, t := range f.timeslots {
		if t.BranchID == branchID && t.DoctorID == doctorID {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DayOfWeek != out[j].DayOfWeek {
			return out[i].DayOfWeek < out[j].DayOfWeek
		}
		return out[i].StartTime < out[j].StartTime
	})
	return out, nil
}

func (f *FakeGateway) ListReservations(ctx context.Context, organizationID string) ([]model.Reservation, error) {
	if err := f.enter(ctx, OpListReservations); err != nil {
		return nil, err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()

	orgOf := make(map[string]string, len(f.branches))
	for _, b := range f.branches {
		orgOf[b.ID] = b.OrganizationID
	}

	out := make([]model.Reservation, 0, len(f.reservations))
	for _, r := range f.reservations {
		if organizationID == "" || orgOf[r.BranchID] == organizationID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *FakeGateway) CreateReservation(ctx context.Context, input model.ReservationInput) error {
	if err := f.enter(ctx, OpCreate); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if input.Name == "" || input.Phone == "" || input.Complaint == "" || !input.Source.Valid() {
		return apperrors.Gateway(http.StatusBadRequest, "name, phone, complaint and a known source are required", nil)
	}

	ts, ok := f.timeslotLocked(input.TimeslotID)
	if !ok {
		return apperrors.Gateway(http.StatusNotFound, "timeslot not found", nil)
	}
	start, end, err := ts.On(input.Date, f.loc)
	if err != nil {
		return apperrors.Gateway(http.StatusBadRequest, err.Error(), nil)
	}

	f.reservations = append(f.reservations, model.Reservation{
		ID:         uuid.NewString(),
		Name:       input.Name,
		Phone:      input.Phone,
		Complaint:  input.Complaint,
		DoctorID:   ts.DoctorID,
		DoctorName: f.doctorNameLocked(ts.DoctorID),
		BranchID:   ts.BranchID,
		StartTime:  &start,
		EndTime:    &end,
		Source:     input.Source,
		Status:     model.StatusCreated,
		CreatedAt:  f.now(),
	})
	return nil
}

func (f *FakeGateway) UpdateReservationStatus(ctx context.Context, id string, update model.StatusUpdate) error {
	if err := f.enter(ctx, OpUpdateStatus); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	idx := -1
	for i := range f.reservations {
		if f.reservations[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return apperrors.Gateway(http.StatusNotFound, "reservation not found", nil)
	}
	if !update.Status.Valid() {
		return apperrors.Gateway(http.StatusBadRequest, "unknown status "+string(update.Status), nil)
	}

	res := f.reservations[idx]
	if update.ScheduleRequest != nil {
		ts, ok := f.timeslotLocked(update.TimeslotID)
		if !ok || ts.DoctorID != update.DoctorID {
			return apperrors.Gateway(http.StatusNotFound, "timeslot not found for doctor", nil)
		}
		start, end, err := ts.On(update.Date, f.loc)
		if err != nil {
			return apperrors.Gateway(http.StatusBadRequest, err.Error(), nil)
		}
		for _, other := range f.reservations {
			if other.ID == id || other.DoctorID != update.DoctorID || !other.Status.RequiresSchedule() {
				continue
			}
			oStart, oEnd, ok := other.Interval()
			if ok && slots.Overlaps(start, end, oStart, oEnd) {
				return apperrors.Gateway(http.StatusConflict, "timeslot already booked", nil)
			}
		}
		res.BranchID = update.BranchID
		res.DoctorID = update.DoctorID
		res.DoctorName = f.doctorNameLocked(update.DoctorID)
		res.StartTime = &start
		res.EndTime = &end
	}
	res.Status = update.Status
	f.reservations[idx] = res
	return nil
}

func (f *FakeGateway) enter(ctx context.Context, op Op) error {
	f.mu.Lock()
	f.calls[op]++
	var injected error
	if queue := f.failures[op]; len(queue) > 0 {
		injected = queue[0]
		f.failures[op] = queue[1:]
	}
	delay := f.delay
	f.mu.Unlock()

	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return apperrors.Gateway(0, "clinic API timed out", ctx.Err())
		}
	}
	if err := ctx.Err(); err != nil {
		return apperrors.Gateway(0, "request to clinic API was cancelled", err)
	}
	return injected
}

func (f *FakeGateway) timeslotLocked(id string) (model.Timeslot, bool) {
	for _, t := range f.timeslots {
		if t.ID == id {
			return t, true
		}
	}
	return model.Timeslot{}, false
}

func (f *FakeGateway) doctorNameLocked(id string) string {
	for _, d := range f.doctors {
		if d.ID == id {
			return d.Name
		}
	}
	return ""
}
