// Package slots derives the occupied/free half-hour grid of a doctor's day
// from the reservations already attributed to that doctor.
package slots

import (
	"fmt"
	"sort"
	"time"

	"klinik/pkg/model"
)

const (
	DefaultOpen        = "08:00"
	DefaultClose       = "17:00"
	DefaultGranularity = 30 * time.Minute
)

type Config struct {
	Open        string // HH:MM
	Close       string // HH:MM
	Granularity time.Duration
	Location    *time.Location
}

type Resolver struct {
	open        time.Duration
	close       time.Duration
	granularity time.Duration
	loc         *time.Location
}

func NewResolver(cfg Config) (*Resolver, error) {
	if cfg.Open == "" {
		cfg.Open = DefaultOpen
	}
	if cfg.Close == "" {
		cfg.Close = DefaultClose
	}
	if cfg.Granularity <= 0 {
		cfg.Granularity = DefaultGranularity
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}

	open, err := clockOffset(cfg.Open)
	if err != nil {
		return nil, err
	}
	closing, err := clockOffset(cfg.Close)
	if err != nil {
		return nil, err
	}
	if closing <= open {
		return nil, fmt.Errorf("operating hours %s-%s are empty", cfg.Open, cfg.Close)
	}

	return &Resolver{
		open:        open,
		close:       closing,
		granularity: cfg.Granularity,
		loc:         cfg.Location,
	}, nil
}

func (r *Resolver) Location() *time.Location {
	return r.loc
}

// Resolve builds the slot grid of day for doctorID. Reservations of other
// doctors, of other days, or without times are ignored. An empty doctorID
// accepts reservations of any doctor.
func (r *Resolver) Resolve(doctorID string, day time.Time, reservations []model.Reservation) []model.Slot {
	midnight := StartOfDay(day, r.loc)
	candidates := r.onDay(doctorID, midnight, reservations)

	var grid []model.Slot
	for offset := r.open; offset+r.granularity <= r.close; offset += r.granularity {
		start := midnight.Add(offset)
		end := start.Add(r.granularity)

		slot := model.Slot{StartTime: start, EndTime: end}
		for i := range candidates {
			res := &candidates[i]
			if Overlaps(start, end, *res.StartTime, *res.EndTime) {
				slot.IsOccupied = true
				slot.OccupiedBy = &model.Occupant{
					ReservationID: res.ID,
					PatientName:   res.Name,
					Complaint:     res.Complaint,
					Status:        res.Status,
				}
				break
			}
		}
		grid = append(grid, slot)
	}
	return grid
}

// FindConflict returns the first reservation whose interval overlaps
// [start, end), or nil.
func (r *Resolver) FindConflict(start, end time.Time, reservations []model.Reservation) *model.Reservation {
	for i := range reservations {
		s, e, ok := reservations[i].Interval()
		if !ok {
			continue
		}
		if Overlaps(start, end, s, e) {
			found := reservations[i]
			return &found
		}
	}
	return nil
}

func (r *Resolver) onDay(doctorID string, midnight time.Time, reservations []model.Reservation) []model.Reservation {
	next := midnight.AddDate(0, 0, 1)
	out := make([]model.Reservation, 0, len(reservations))
	for _, res := range reservations {
		if !res.HasSchedule() {
			continue
		}
		if doctorID != "" && res.DoctorID != doctorID {
			continue
		}
		if !res.StartTime.Before(next) || !res.EndTime.After(midnight) {
			continue
		}
		out = append(out, res)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartTime.Before(*out[j].StartTime)
	})
	return out
}

// Overlaps is the three-way test used for both the grid and conflict checks:
// a starts inside b, a ends inside b, or b lies entirely within a.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	startsInside := !aStart.Before(bStart) && aStart.Before(bEnd)
	endsInside := aEnd.After(bStart) && !aEnd.After(bEnd)
	contains := !bStart.Before(aStart) && !bEnd.After(aEnd)
	return startsInside || endsInside || contains
}

// Accepted keeps reservations that hold a slot: SCHEDULED, ENCOUNTER_READY,
// IN_ENCOUNTER and COMPLETED.
func Accepted(reservations []model.Reservation) []model.Reservation {
	out := make([]model.Reservation, 0, len(reservations))
	for _, res := range reservations {
		if res.Status.RequiresSchedule() {
			out = append(out, res)
		}
	}
	return out
}

func StartOfDay(t time.Time, loc *time.Location) time.Time {
	if loc != nil {
		t = t.In(loc)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func clockOffset(clock string) (time.Duration, error) {
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return 0, fmt.Errorf("invalid clock %q: %w", clock, err)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}
