package views

import (
	"sort"
	"time"

	"klinik/internal/slots"
	"klinik/pkg/model"
)

type PendingQueue struct {
	Items    []model.Reservation  `json:"items"`
	BySource map[model.Source]int `json:"bySource"`
	Total    int                  `json:"total"`
}

// Pending returns CREATED and UNDER_REVIEW reservations, oldest first, with
// counts per source. Every source is present in BySource.
func Pending(reservations []model.Reservation, f Filter) PendingQueue {
	q := PendingQueue{Items: []model.Reservation{}, BySource: make(map[model.Source]int)}
	for _, s := range model.Sources() {
		q.BySource[s] = 0
	}
	for _, r := range Apply(reservations, f) {
		if !r.Status.IsPending() {
			continue
		}
		q.Items = append(q.Items, r)
		q.BySource[r.Source]++
	}
	sort.SliceStable(q.Items, func(i, j int) bool {
		return q.Items[i].CreatedAt.Before(q.Items[j].CreatedAt)
	})
	q.Total = len(q.Items)
	return q
}

type StatusCount struct {
	Status model.Status `json:"status"`
	Count  int          `json:"count"`
}

// StatusCounts counts reservations per status in display order, zeros
// included.
func StatusCounts(reservations []model.Reservation, f Filter) []StatusCount {
	counts := make(map[model.Status]int)
	for _, r := range Apply(reservations, f) {
		counts[r.Status]++
	}
	out := make([]StatusCount, 0, len(model.Statuses()))
	for _, s := range model.Statuses() {
		out = append(out, StatusCount{Status: s, Count: counts[s]})
	}
	return out
}

type DayCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// CalendarMonth counts reservations per clinic-local day of the month
// containing month. Days without reservations are included with zero.
func CalendarMonth(reservations []model.Reservation, f Filter, month time.Time, loc *time.Location) []DayCount {
	first := time.Date(month.In(loc).Year(), month.In(loc).Month(), 1, 0, 0, 0, 0, loc)
	next := first.AddDate(0, 1, 0)

	counts := make(map[string]int)
	for _, r := range Apply(reservations, f) {
		if r.StartTime == nil {
			continue
		}
		start := r.StartTime.In(loc)
		if start.Before(first) || !start.Before(next) {
			continue
		}
		counts[start.Format(model.DateLayout)]++
	}

	var out []DayCount
	for d := first; d.Before(next); d = d.AddDate(0, 0, 1) {
		key := d.Format(model.DateLayout)
		out = append(out, DayCount{Date: key, Count: counts[key]})
	}
	return out
}

type DayBucket struct {
	Date         string              `json:"date"`
	Reservations []model.Reservation `json:"reservations"`
}

// MaxRangeDays caps CalendarRange; six weeks covers any month grid.
const MaxRangeDays = 42

// CalendarRange lists reservations per clinic-local day in [from, to], each
// day sorted by start time. Ranges longer than MaxRangeDays are cut short.
func CalendarRange(reservations []model.Reservation, f Filter, from, to time.Time, loc *time.Location) []DayBucket {
	first := slots.StartOfDay(from, loc)
	last := slots.StartOfDay(to, loc)
	if last.Before(first) {
		return []DayBucket{}
	}
	if limit := first.AddDate(0, 0, MaxRangeDays-1); last.After(limit) {
		last = limit
	}

	byDay := make(map[string][]model.Reservation)
	for _, r := range Apply(reservations, f) {
		if r.StartTime == nil {
			continue
		}
		key := r.StartTime.In(loc).Format(model.DateLayout)
		byDay[key] = append(byDay[key], r)
	}

	var out []DayBucket
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		key := d.Format(model.DateLayout)
		items := byDay[key]
		if items == nil {
			items = []model.Reservation{}
		}
		sortByStart(items)
		out = append(out, DayBucket{Date: key, Reservations: items})
	}
	return out
}

// DoctorWeek is a seven-day grid of one doctor's open reservations starting
// at start. COMPLETED and CANCELLED reservations are left out.
func DoctorWeek(reservations []model.Reservation, doctorID string, start time.Time, loc *time.Location) []DayBucket {
	var open []model.Reservation
	for _, r := range reservations {
		if r.DoctorID == doctorID && !r.Status.IsTerminal() {
			open = append(open, r)
		}
	}
	first := slots.StartOfDay(start, loc)
	return CalendarRange(open, Filter{}, first, first.AddDate(0, 0, 6), loc)
}

func sortByStart(items []model.Reservation) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].StartTime.Before(*items[j].StartTime)
	})
}
