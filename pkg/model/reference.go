package model

import (
	"fmt"
	"time"
)

const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04:05"
)

type Branch struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	OrganizationID string `json:"organizationId"`
	Address        string `json:"address,omitempty"`
}

type Doctor struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	BranchID       string `json:"branchId"`
	Specialization string `json:"specialization,omitempty"`
}

// Timeslot is a recurring weekly template. DayOfWeek follows time.Weekday
// (0 is Sunday); StartTime and EndTime are wall-clock HH:MM:SS values.
type Timeslot struct {
	ID        string `json:"id"`
	BranchID  string `json:"branchId"`
	DoctorID  string `json:"doctorId"`
	DayOfWeek int    `json:"dayOfWeek"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

// On materialises the template on an ISO date in loc.
func (t *Timeslot) On(date string, loc *time.Location) (time.Time, time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	day, err := time.ParseInLocation(DateLayout, date, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid date %q: %w", date, err)
	}
	if int(day.Weekday()) != t.DayOfWeek {
		return time.Time{}, time.Time{}, fmt.Errorf("timeslot %s runs on %s, not on %s",
			t.ID, time.Weekday(t.DayOfWeek), day.Weekday())
	}

	start, err := atClock(day, t.StartTime)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := atClock(day, t.EndTime)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if !end.After(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("timeslot %s ends before it starts", t.ID)
	}
	return start, end, nil
}

func atClock(day time.Time, clock string) (time.Time, error) {
	c, err := time.Parse(ClockLayout, clock)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid clock %q: %w", clock, err)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), c.Hour(), c.Minute(), c.Second(), 0, day.Location()), nil
}
