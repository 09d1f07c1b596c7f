package model

import (
	"time"
)

type Status string

const (
	StatusCreated        Status = "CREATED"
	StatusUnderReview    Status = "UNDER_REVIEW"
	StatusScheduled      Status = "SCHEDULED"
	StatusEncounterReady Status = "ENCOUNTER_READY"
	StatusInEncounter    Status = "IN_ENCOUNTER"
	StatusCompleted      Status = "COMPLETED"
	StatusCancelled      Status = "CANCELLED"
)

// Statuses returns every status in display order.
func Statuses() []Status {
	return []Status{
		StatusCreated,
		StatusUnderReview,
		StatusScheduled,
		StatusEncounterReady,
		StatusInEncounter,
		StatusCompleted,
		StatusCancelled,
	}
}

func (s Status) Valid() bool {
	for _, known := range Statuses() {
		if s == known {
			return true
		}
	}
	return false
}

func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// RequiresSchedule reports whether a reservation in this status must hold a
// doctor and a concrete interval.
func (s Status) RequiresSchedule() bool {
	switch s {
	case StatusScheduled, StatusEncounterReady, StatusInEncounter, StatusCompleted:
		return true
	}
	return false
}

func (s Status) IsPending() bool {
	return s == StatusCreated || s == StatusUnderReview
}

type Source string

const (
	SourceWebsite  Source = "WEBSITE"
	SourceWhatsApp Source = "WHATSAPP"
	SourceWalkIn   Source = "WALKIN"
)

func Sources() []Source {
	return []Source{SourceWebsite, SourceWhatsApp, SourceWalkIn}
}

func (s Source) Valid() bool {
	return s == SourceWebsite || s == SourceWhatsApp || s == SourceWalkIn
}

type Reservation struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Phone      string     `json:"phone"`
	Complaint  string     `json:"complaint"`
	DoctorID   string     `json:"doctorId,omitempty"`
	DoctorName string     `json:"doctorName,omitempty"`
	BranchID   string     `json:"branchId,omitempty"`
	StartTime  *time.Time `json:"startTime,omitempty"`
	EndTime    *time.Time `json:"endTime,omitempty"`
	Source     Source     `json:"source"`
	Status     Status     `json:"status"`
	CreatedAt  time.Time  `json:"createdAt"`
}

func (r *Reservation) HasSchedule() bool {
	return r.StartTime != nil && r.EndTime != nil
}

// Interval returns the reservation's start and end. ok is false when either
// bound is missing.
func (r *Reservation) Interval() (start, end time.Time, ok bool) {
	if !r.HasSchedule() {
		return time.Time{}, time.Time{}, false
	}
	return *r.StartTime, *r.EndTime, true
}

// ReservationInput is the create payload accepted by the clinic API.
type ReservationInput struct {
	Name       string `json:"name" validate:"required,min=2,max=100"`
	Phone      string `json:"phone" validate:"required,id_mobile"`
	Complaint  string `json:"complaint" validate:"required,max=500"`
	TimeslotID string `json:"timeslotId" validate:"required"`
	Date       string `json:"date" validate:"required,datetime=2006-01-02"`
	Source     Source `json:"source" validate:"required,oneof=WEBSITE WHATSAPP WALKIN"`
}

// ScheduleRequest carries the assignment required to enter SCHEDULED.
type ScheduleRequest struct {
	BranchID   string `json:"branchId" validate:"required"`
	DoctorID   string `json:"doctorId" validate:"required"`
	TimeslotID string `json:"timeslotId" validate:"required"`
	Date       string `json:"date" validate:"required,datetime=2006-01-02"`
}

func (s *ScheduleRequest) Complete() bool {
	return s != nil && s.BranchID != "" && s.DoctorID != "" && s.TimeslotID != "" && s.Date != ""
}

type StatusUpdate struct {
	Status Status `json:"status"`
	*ScheduleRequest
}
