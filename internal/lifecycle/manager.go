package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"klinik/internal/audit"
	"klinik/internal/gateway"
	"klinik/internal/slots"
	apperrors "klinik/pkg/errors"
	"klinik/pkg/logger"
	"klinik/pkg/model"
	"klinik/pkg/sanitizer"
)

const DefaultLedgerTTL = 10 * time.Minute

type Config struct {
	OrganizationID string
	// Locker defaults to an in-process LocalLocker.
	Locker Locker
	// Recorder defaults to audit.Nop.
	Recorder  audit.Recorder
	LedgerTTL time.Duration
	Now       func() time.Time
}

// Manager validates and executes reservation status transitions. The caller's
// reservation value is never modified; a transitioned copy is returned only
// after the gateway acknowledges the write.
type Manager struct {
	gw       gateway.Gateway
	resolver *slots.Resolver
	locker   Locker
	recorder audit.Recorder
	tracker  *tracker
	ledger   *ledger
	orgID    string
	log      *logger.Logger
}

func NewManager(gw gateway.Gateway, resolver *slots.Resolver, cfg Config, log *logger.Logger) *Manager {
	if cfg.Locker == nil {
		cfg.Locker = NewLocalLocker()
	}
	if cfg.Recorder == nil {
		cfg.Recorder = audit.Nop{}
	}
	if cfg.LedgerTTL <= 0 {
		cfg.LedgerTTL = DefaultLedgerTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Manager{
		gw:       gw,
		resolver: resolver,
		locker:   cfg.Locker,
		recorder: cfg.Recorder,
		tracker:  newTracker(cfg.Now),
		ledger:   newLedger(cfg.LedgerTTL, cfg.Now),
		orgID:    cfg.OrganizationID,
		log:      log.Component("lifecycle"),
	}
}

// State reports the last transition outcome for a reservation id.
func (m *Manager) State(id string) State {
	return m.tracker.get(id)
}

// RequestTransition moves res to target. schedule is required when target is
// SCHEDULED and ignored otherwise.
func (m *Manager) RequestTransition(ctx context.Context, res model.Reservation, target model.Status, schedule *model.ScheduleRequest) (*model.Reservation, error) {
	if res.ID == "" {
		return nil, apperrors.InvalidInput("Reservation ID cannot be empty")
	}

	if !CanTransition(res.Status, target) {
		err := apperrors.IllegalTransition(res.ID, string(res.Status), string(target))
		m.record(ctx, res, nil, target, audit.OutcomeRejected, err)
		m.log.Warn("Rejected illegal transition", "id", res.ID, "from", res.Status, "to", target)
		return nil, err
	}

	var req *model.ScheduleRequest
	if target == model.StatusScheduled {
		if schedule != nil {
			copied := *schedule
			sanitizer.SanitizeScheduleRequest(&copied)
			req = &copied
		}
		if err := validateSchedule(req); err != nil {
			m.record(ctx, res, nil, target, audit.OutcomeRejected, err)
			return nil, err
		}
	}

	if !m.tracker.begin(res.ID, target) {
		return nil, apperrors.InFlight(res.ID)
	}

	next, err := m.execute(ctx, res, target, req)
	if err != nil {
		m.tracker.fail(res.ID, target, err)
		outcome := audit.OutcomeFailed
		if apperrors.HasCode(err, apperrors.CodeSlotConflict) || apperrors.HasCode(err, apperrors.CodeValidation) {
			outcome = audit.OutcomeRejected
		}
		m.record(ctx, res, nil, target, outcome, err)
		m.log.Warn("Transition not applied",
			"id", res.ID,
			"from", res.Status,
			"to", target,
			"error", err,
		)
		return nil, err
	}

	if target != model.StatusScheduled {
		m.ledger.follow(res.ID, target)
	}
	m.tracker.apply(res.ID, target)
	m.record(ctx, res, next, target, audit.OutcomeApplied, nil)
	m.log.Info("Reservation transitioned", "id", res.ID, "from", res.Status, "to", target)
	return next, nil
}

func (m *Manager) execute(ctx context.Context, res model.Reservation, target model.Status, req *model.ScheduleRequest) (*model.Reservation, error) {
	next := res
	next.Status = target

	if target != model.StatusScheduled {
		if err := m.gw.UpdateReservationStatus(ctx, res.ID, model.StatusUpdate{Status: target}); err != nil {
			return nil, err
		}
		return m.refetch(ctx, next), nil
	}

	ts, err := m.timeslot(ctx, req)
	if err != nil {
		return nil, err
	}
	start, end, err := ts.On(req.Date, m.resolver.Location())
	if err != nil {
		return nil, apperrors.Validation("Timeslot does not apply to the requested date", map[string]any{
			"timeslotId": req.TimeslotID,
			"date":       req.Date,
			"error":      err.Error(),
		})
	}

	next.BranchID = req.BranchID
	next.DoctorID = req.DoctorID
	next.StartTime = &start
	next.EndTime = &end

	err = m.locker.WithLock(ctx, scheduleLockKey(req.DoctorID, req.Date), func(ctx context.Context) error {
		if err := m.checkSlot(ctx, res.ID, req.DoctorID, start, end); err != nil {
			return err
		}
		if err := m.gw.UpdateReservationStatus(ctx, res.ID, model.StatusUpdate{Status: target, ScheduleRequest: req}); err != nil {
			return err
		}
		m.ledger.record(next)
		return nil
	})
	if errors.Is(err, ErrLockNotAcquired) {
		return nil, apperrors.Timeout("Timed out waiting for the doctor's schedule")
	}
	if err != nil {
		return nil, err
	}
	return m.refetch(ctx, next), nil
}

func (m *Manager) timeslot(ctx context.Context, req *model.ScheduleRequest) (*model.Timeslot, error) {
	timeslots, err := m.gw.ListTimeslots(ctx, req.BranchID, req.DoctorID)
	if err != nil {
		return nil, err
	}
	for i := range timeslots {
		if timeslots[i].ID == req.TimeslotID {
			return &timeslots[i], nil
		}
	}
	return nil, apperrors.Validation(fmt.Sprintf("%v: %s", ErrTimeslotMissing, req.TimeslotID), map[string]any{
		"branchId":   req.BranchID,
		"doctorId":   req.DoctorID,
		"timeslotId": req.TimeslotID,
	})
}

// checkSlot reads a fresh snapshot plus locally applied schedules and fails
// with SLOT_CONFLICT when [start, end) overlaps another accepted reservation
// of the doctor on that day.
func (m *Manager) checkSlot(ctx context.Context, selfID, doctorID string, start, end time.Time) error {
	candidates, err := m.occupancy(gateway.NoCache(ctx), doctorID, start)
	if err != nil {
		return err
	}
	others := candidates[:0]
	for _, r := range candidates {
		if r.ID != selfID {
			others = append(others, r)
		}
	}
	if hit := m.resolver.FindConflict(start, end, others); hit != nil {
		s, e, _ := hit.Interval()
		return apperrors.SlotConflict(hit.Name, hit.Complaint, string(hit.Status), s, e)
	}
	return nil
}

// occupancy returns the accepted reservations of doctorID on day's calendar
// date, merged with the ledger.
func (m *Manager) occupancy(ctx context.Context, doctorID string, day time.Time) ([]model.Reservation, error) {
	snapshot, err := m.gw.ListReservations(ctx, m.orgID)
	if err != nil {
		return nil, err
	}
	loc := m.resolver.Location()
	midnight := slots.StartOfDay(day, loc)

	var out []model.Reservation
	for _, r := range slots.Accepted(m.ledger.merge(snapshot)) {
		if r.DoctorID != doctorID || !r.HasSchedule() {
			continue
		}
		if slots.StartOfDay(*r.StartTime, loc).Equal(midnight) {
			out = append(out, r)
		}
	}
	return out, nil
}

// Availability resolves the slot grid of a doctor for a day, including
// schedules this process applied that the backend has not reported yet.
func (m *Manager) Availability(ctx context.Context, doctorID string, day time.Time) ([]model.Slot, error) {
	if doctorID == "" {
		return nil, apperrors.InvalidInput("doctorId is required")
	}
	occupied, err := m.occupancy(ctx, doctorID, day)
	if err != nil {
		return nil, err
	}
	return m.resolver.Resolve(doctorID, day, occupied), nil
}

// refetch returns the server's copy of next after a successful write. The
// local copy is used when the re-read fails or the reservation is missing.
func (m *Manager) refetch(ctx context.Context, next model.Reservation) *model.Reservation {
	all, err := m.gw.ListReservations(ctx, m.orgID)
	if err != nil {
		m.log.Warn("Failed to re-read reservations after transition", "id", next.ID, "error", err)
		return &next
	}
	for _, r := range all {
		if r.ID == next.ID {
			server := r
			return &server
		}
	}
	m.log.Warn("Transitioned reservation missing from re-read", "id", next.ID)
	return &next
}

// record writes an audit event. after, when set, supplies the schedule the
// reservation ended up with.
func (m *Manager) record(ctx context.Context, res model.Reservation, after *model.Reservation, target model.Status, outcome audit.Outcome, cause error) {
	reason := ""
	if cause != nil {
		reason = cause.Error()
	}
	event := audit.NewEvent(res, target, outcome, reason)
	if after != nil {
		event.DoctorID = after.DoctorID
		event.StartTime = after.StartTime
		event.EndTime = after.EndTime
	}
	if err := m.recorder.Record(context.WithoutCancel(ctx), event); err != nil {
		m.log.Error("Failed to record transition", "id", res.ID, "to", target, "outcome", outcome, "error", err)
	}
}

func validateSchedule(req *model.ScheduleRequest) error {
	if req.Complete() {
		if _, err := time.Parse(model.DateLayout, req.Date); err != nil {
			return apperrors.Validation("Schedule date must be YYYY-MM-DD", map[string]any{"date": req.Date})
		}
		return nil
	}
	missing := []string{}
	if req == nil {
		missing = append(missing, "branchId", "doctorId", "timeslotId", "date")
	} else {
		for field, value := range map[string]string{
			"branchId":   req.BranchID,
			"doctorId":   req.DoctorID,
			"timeslotId": req.TimeslotID,
			"date":       req.Date,
		} {
			if value == "" {
				missing = append(missing, field)
			}
		}
		sort.Strings(missing)
	}
	return apperrors.Validation("Scheduling requires branchId, doctorId, timeslotId and date", map[string]any{
		"missing": missing,
	})
}
