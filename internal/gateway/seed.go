package gateway

import (
	"fmt"
	"time"

	"klinik/pkg/model"

	"github.com/brianvoe/gofakeit/v7"
)

var (
	demoSpecializations = []string{
		"Dokter Umum",
		"Dokter Gigi",
		"Spesialis Anak",
		"Spesialis Penyakit Dalam",
		"Spesialis THT",
	}
	demoComplaints = []string{
		"Sakit gigi",
		"Demam tiga hari",
		"Batuk berdahak",
		"Sakit kepala",
		"Nyeri perut",
		"Kontrol gula darah",
		"Ruam kulit",
		"Sakit tenggorokan",
	}
	demoClinics = []string{"Sudirman", "Kemang", "Kelapa Gading", "Bintaro"}
)

type DemoConfig struct {
	OrganizationID string
	Seed           uint64
	Branches       int
	DoctorsPer     int
	Reservations   int
	// Around anchors generated reservations; they fall within a week of it.
	Around time.Time
}

// SeedDemo fills f with branches, doctors, weekday morning/afternoon
// timeslots and reservations in every status. Accepted reservations never
// overlap for the same doctor.
func SeedDemo(f *FakeGateway, cfg DemoConfig) {
	if cfg.Branches <= 0 {
		cfg.Branches = 2
	}
	if cfg.DoctorsPer <= 0 {
		cfg.DoctorsPer = 3
	}
	if cfg.Reservations <= 0 {
		cfg.Reservations = 40
	}
	if cfg.Around.IsZero() {
		cfg.Around = time.Now()
	}
	faker := gofakeit.New(cfg.Seed)

	var allSlots []model.Timeslot
	for b := 0; b < cfg.Branches; b++ {
		branch := f.AddBranch(model.Branch{
			Name:           "Klinik " + demoClinics[b%len(demoClinics)],
			OrganizationID: cfg.OrganizationID,
			Address:        faker.Street() + ", " + faker.City(),
		})
		for d := 0; d < cfg.DoctorsPer; d++ {
			doctor := f.AddDoctor(model.Doctor{
				Name:           "dr. " + faker.Name(),
				BranchID:       branch.ID,
				Specialization: faker.RandomString(demoSpecializations),
			})
			for day := time.Monday; day <= time.Saturday; day++ {
				for _, window := range [][2]string{{"08:00:00", "10:00:00"}, {"10:00:00", "12:00:00"}, {"13:00:00", "15:00:00"}, {"15:00:00", "17:00:00"}} {
					allSlots = append(allSlots, f.AddTimeslot(model.Timeslot{
						BranchID:  branch.ID,
						DoctorID:  doctor.ID,
						DayOfWeek: int(day),
						StartTime: window[0],
						EndTime:   window[1],
					}))
				}
			}
		}
	}

	statuses := model.Statuses()
	taken := make(map[string]bool)
	for i := 0; i < cfg.Reservations; i++ {
		date := cfg.Around.In(f.loc).AddDate(0, 0, faker.Number(-3, 7))
		if date.Weekday() == time.Sunday {
			date = date.AddDate(0, 0, 1)
		}
		candidates := slotsOn(allSlots, date.Weekday())
		ts := candidates[faker.Number(0, len(candidates)-1)]
		isoDate := date.Format(model.DateLayout)
		start, end, err := ts.On(isoDate, f.loc)
		if err != nil {
			continue
		}

		status := statuses[faker.Number(0, len(statuses)-1)]
		key := fmt.Sprintf("%s|%s|%s", ts.DoctorID, isoDate, ts.ID)
		if status.RequiresSchedule() {
			if taken[key] {
				status = model.StatusUnderReview
			} else {
				taken[key] = true
			}
		}

		f.AddReservation(model.Reservation{
			Name:       faker.Name(),
			Phone:      "081" + faker.Numerify("########"),
			Complaint:  faker.RandomString(demoComplaints),
			DoctorID:   ts.DoctorID,
			DoctorName: f.doctorName(ts.DoctorID),
			BranchID:   ts.BranchID,
			StartTime:  &start,
			EndTime:    &end,
			Source:     model.Sources()[faker.Number(0, len(model.Sources())-1)],
			Status:     status,
			CreatedAt:  start.Add(-time.Duration(faker.Number(1, 72)) * time.Hour),
		})
	}
}

func slotsOn(all []model.Timeslot, day time.Weekday) []model.Timeslot {
	var out []model.Timeslot
	for _, t := range all {
		if t.DayOfWeek == int(day) {
			out = append(out, t)
		}
	}
	return out
}

func (f *FakeGateway) doctorName(id string) string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.doctorNameLocked(id)
}
