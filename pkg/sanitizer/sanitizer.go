package sanitizer

import (
	"strings"

	"klinik/pkg/model"
)

// SanitizeReservationInput normalizes a create payload in place.
func SanitizeReservationInput(in *model.ReservationInput) {
	in.Name = NormalizeName(in.Name)
	in.Complaint = NormalizeComplaint(in.Complaint)
	if phone := NormalizePhone(in.Phone); phone != "" {
		in.Phone = phone
	} else {
		in.Phone = strings.TrimSpace(in.Phone)
	}
	in.TimeslotID = strings.TrimSpace(in.TimeslotID)
	in.Date = strings.TrimSpace(in.Date)
	in.Source = model.Source(NormalizeEnum(string(in.Source)))
}

func SanitizeScheduleRequest(s *model.ScheduleRequest) {
	if s == nil {
		return
	}
	s.BranchID = strings.TrimSpace(s.BranchID)
	s.DoctorID = strings.TrimSpace(s.DoctorID)
	s.TimeslotID = strings.TrimSpace(s.TimeslotID)
	s.Date = strings.TrimSpace(s.Date)
}
