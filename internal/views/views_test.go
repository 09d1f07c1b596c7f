package views

import (
	"testing"
	"time"

	"klinik/pkg/model"
)

var wib = time.FixedZone("WIB", 7*60*60)

func at(day, clock string) *time.Time {
	t, err := time.ParseInLocation("2006-01-02 15:04", day+" "+clock, wib)
	if err != nil {
		panic(err)
	}
	return &t
}

func fixture() []model.Reservation {
	base := time.Date(2025, 1, 1, 8, 0, 0, 0, wib)
	return []model.Reservation{
		{ID: "r-1", Name: "Ahmad Santoso", Phone: "08123456789", Complaint: "Sakit gigi", Source: model.SourceWalkIn, Status: model.StatusCreated, BranchID: "b-1", CreatedAt: base.Add(3 * time.Hour)},
		{ID: "r-2", Name: "Siti Rahma", Phone: "08129999999", Complaint: "Demam", Source: model.SourceWhatsApp, Status: model.StatusUnderReview, BranchID: "b-1", CreatedAt: base.Add(1 * time.Hour)},
		{ID: "r-3", Name: "Budi", Phone: "08131111111", Complaint: "Batuk", Source: model.SourceWebsite, Status: model.StatusScheduled, BranchID: "b-2", DoctorID: "d-1", StartTime: at("2025-01-06", "09:00"), EndTime: at("2025-01-06", "10:00"), CreatedAt: base},
		{ID: "r-4", Name: "Dewi", Phone: "08132222222", Complaint: "Kontrol", Source: model.SourceWebsite, Status: model.StatusCompleted, BranchID: "b-2", DoctorID: "d-1", StartTime: at("2025-01-07", "13:00"), EndTime: at("2025-01-07", "14:00"), CreatedAt: base},
		{ID: "r-5", Name: "Eko", Phone: "08133333333", Complaint: "Sakit kepala", Source: model.SourceWhatsApp, Status: model.StatusEncounterReady, BranchID: "b-2", DoctorID: "d-1", StartTime: at("2025-01-06", "08:00"), EndTime: at("2025-01-06", "08:30"), CreatedAt: base},
		{ID: "r-6", Name: "Fajar", Phone: "08134444444", Complaint: "Ruam", Source: model.SourceWalkIn, Status: model.StatusCancelled, BranchID: "b-2", DoctorID: "d-1", StartTime: at("2025-01-08", "10:00"), EndTime: at("2025-01-08", "11:00"), CreatedAt: base},
		// 23:30 UTC on the 31st is the 1st of February in Jakarta.
		{ID: "r-7", Name: "Gita", Phone: "08135555555", Complaint: "Flu", Source: model.SourceWebsite, Status: model.StatusScheduled, BranchID: "b-2", DoctorID: "d-2", StartTime: ptr(time.Date(2025, 1, 31, 23, 30, 0, 0, time.UTC)), EndTime: ptr(time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)), CreatedAt: base},
	}
}

func ptr(t time.Time) *time.Time { return &t }

func TestFilter(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{name: "empty matches all", filter: Filter{}, want: []string{"r-1", "r-2", "r-3", "r-4", "r-5", "r-6", "r-7"}},
		{name: "branch", filter: Filter{BranchID: "b-1"}, want: []string{"r-1", "r-2"}},
		{name: "source and status", filter: Filter{Source: model.SourceWebsite, Status: model.StatusScheduled}, want: []string{"r-3", "r-7"}},
		{name: "query name case-insensitive", filter: Filter{Query: "  siti "}, want: []string{"r-2"}},
		{name: "query complaint", filter: Filter{Query: "sakit"}, want: []string{"r-1", "r-5"}},
		{name: "query phone", filter: Filter{Query: "0812999"}, want: []string{"r-2"}},
		{name: "doctor", filter: Filter{DoctorID: "d-2"}, want: []string{"r-7"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Apply(fixture(), tt.filter)
			if len(got) != len(tt.want) {
				t.Fatalf("expected %v, got %d results", tt.want, len(got))
			}
			for i := range got {
				if got[i].ID != tt.want[i] {
					t.Errorf("position %d: expected %s, got %s", i, tt.want[i], got[i].ID)
				}
			}
		})
	}
}

func TestPending(t *testing.T) {
	q := Pending(fixture(), Filter{})

	if q.Total != 2 || len(q.Items) != 2 {
		t.Fatalf("expected 2 pending, got %+v", q)
	}
	if q.Items[0].ID != "r-2" {
		t.Errorf("expected oldest first (r-2), got %s", q.Items[0].ID)
	}
	if q.BySource[model.SourceWalkIn] != 1 || q.BySource[model.SourceWhatsApp] != 1 || q.BySource[model.SourceWebsite] != 0 {
		t.Errorf("unexpected source counts %v", q.BySource)
	}
	if _, ok := q.BySource[model.SourceWebsite]; !ok {
		t.Errorf("every source should be present")
	}
}

func TestStatusCounts(t *testing.T) {
	counts := StatusCounts(fixture(), Filter{})
	if len(counts) != len(model.Statuses()) {
		t.Fatalf("expected every status, got %d", len(counts))
	}
	want := map[model.Status]int{
		model.StatusCreated:        1,
		model.StatusUnderReview:    1,
		model.StatusScheduled:      2,
		model.StatusEncounterReady: 1,
		model.StatusInEncounter:    0,
		model.StatusCompleted:      1,
		model.StatusCancelled:      1,
	}
	for i, c := range counts {
		if c.Status != model.Statuses()[i] {
			t.Errorf("position %d: expected %s, got %s", i, model.Statuses()[i], c.Status)
		}
		if c.Count != want[c.Status] {
			t.Errorf("%s: expected %d, got %d", c.Status, want[c.Status], c.Count)
		}
	}
}

func TestCalendarMonth(t *testing.T) {
	days := CalendarMonth(fixture(), Filter{}, time.Date(2025, 1, 15, 0, 0, 0, 0, wib), wib)
	if len(days) != 31 {
		t.Fatalf("expected 31 days, got %d", len(days))
	}
	byDate := map[string]int{}
	total := 0
	for _, d := range days {
		byDate[d.Date] = d.Count
		total += d.Count
	}
	if byDate["2025-01-06"] != 2 || byDate["2025-01-07"] != 1 || byDate["2025-01-08"] != 1 {
		t.Errorf("unexpected counts %v", byDate)
	}
	if total != 4 {
		t.Errorf("unscheduled and February reservations must be excluded, total %d", total)
	}

	feb := CalendarMonth(fixture(), Filter{}, time.Date(2025, 2, 1, 0, 0, 0, 0, wib), wib)
	if feb[0].Date != "2025-02-01" || feb[0].Count != 1 {
		t.Errorf("r-7 belongs to Feb 1 local time, got %+v", feb[0])
	}
}

func TestCalendarRange(t *testing.T) {
	days := CalendarRange(fixture(), Filter{}, *at("2025-01-06", "00:00"), *at("2025-01-07", "23:00"), wib)
	if len(days) != 2 {
		t.Fatalf("expected 2 buckets, got %d", len(days))
	}
	first := days[0]
	if first.Date != "2025-01-06" || len(first.Reservations) != 2 {
		t.Fatalf("unexpected first bucket %+v", first)
	}
	if first.Reservations[0].ID != "r-5" {
		t.Errorf("expected bucket sorted by start, got %s first", first.Reservations[0].ID)
	}

	if empty := CalendarRange(fixture(), Filter{}, *at("2025-01-07", "00:00"), *at("2025-01-06", "00:00"), wib); len(empty) != 0 {
		t.Errorf("inverted range should be empty, got %d", len(empty))
	}

	wide := CalendarRange(nil, Filter{}, time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC), time.UTC)
	if len(wide) != MaxRangeDays {
		t.Fatalf("expected range capped at %d days, got %d", MaxRangeDays, len(wide))
	}
	if wide[0].Date != "0001-01-01" || wide[MaxRangeDays-1].Date != "0001-02-11" {
		t.Errorf("unexpected capped bounds %s .. %s", wide[0].Date, wide[MaxRangeDays-1].Date)
	}
}

func TestDoctorWeek(t *testing.T) {
	week := DoctorWeek(fixture(), "d-1", *at("2025-01-06", "12:00"), wib)
	if len(week) != 7 {
		t.Fatalf("expected 7 days, got %d", len(week))
	}
	if week[0].Date != "2025-01-06" || week[6].Date != "2025-01-12" {
		t.Errorf("unexpected range %s..%s", week[0].Date, week[6].Date)
	}
	count := 0
	for _, d := range week {
		for _, r := range d.Reservations {
			count++
			if r.Status.IsTerminal() {
				t.Errorf("terminal reservation %s in doctor week", r.ID)
			}
		}
	}
	if count != 2 {
		t.Errorf("expected r-3 and r-5, got %d reservations", count)
	}
}

func TestViews_DoNotMutateInput(t *testing.T) {
	in := fixture()
	_ = Pending(in, Filter{})
	_ = CalendarRange(in, Filter{}, *at("2025-01-01", "00:00"), *at("2025-01-31", "00:00"), wib)
	if in[0].ID != "r-1" || in[1].ID != "r-2" || in[4].ID != "r-5" {
		t.Errorf("input order changed")
	}
}
