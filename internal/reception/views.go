package reception

import (
	"fmt"
	"net/http"

	"klinik/internal/views"
	apperrors "klinik/pkg/errors"
	httputil "klinik/pkg/http"

	"github.com/julienschmidt/httprouter"
)

func (h *ReservationHandler) PendingQueue(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	all, err := h.gw.ListReservations(r.Context(), h.orgID)
	if err != nil {
		h.writeError(w, "PendingQueue", err)
		return
	}
	h.writeSuccess(w, "PendingQueue", views.Pending(all, filterFromQuery(r)))
}

func (h *ReservationHandler) StatusCounts(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	all, err := h.gw.ListReservations(r.Context(), h.orgID)
	if err != nil {
		h.writeError(w, "StatusCounts", err)
		return
	}
	h.writeSuccess(w, "StatusCounts", views.StatusCounts(all, filterFromQuery(r)))
}

// Calendar answers either ?month=YYYY-MM with per-day counts or ?from=&to=
// with per-day reservation lists. No parameters means the current month.
func (h *ReservationHandler) Calendar(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	q := r.URL.Query()
	from, to := q.Get("from"), q.Get("to")
	if (from == "") != (to == "") {
		h.writeError(w, "Calendar", apperrors.InvalidInput("from and to must be given together"))
		return
	}

	all, err := h.gw.ListReservations(r.Context(), h.orgID)
	if err != nil {
		h.writeError(w, "Calendar", err)
		return
	}
	f := filterFromQuery(r)

	if from == "" {
		month, err := httputil.QueryMonth(r, "month", h.loc, h.today())
		if err != nil {
			h.writeError(w, "Calendar", err)
			return
		}
		h.writeSuccess(w, "Calendar", views.CalendarMonth(all, f, month, h.loc))
		return
	}

	start, err := httputil.QueryDate(r, "from", h.loc, h.today())
	if err != nil {
		h.writeError(w, "Calendar", err)
		return
	}
	end, err := httputil.QueryDate(r, "to", h.loc, h.today())
	if err != nil {
		h.writeError(w, "Calendar", err)
		return
	}
	if end.Before(start) {
		h.writeError(w, "Calendar", apperrors.InvalidInput("to must not be before from"))
		return
	}
	if end.After(start.AddDate(0, 0, views.MaxRangeDays-1)) {
		h.writeError(w, "Calendar", apperrors.InvalidInput(fmt.Sprintf("range must not exceed %d days", views.MaxRangeDays)))
		return
	}
	h.writeSuccess(w, "Calendar", views.CalendarRange(all, f, start, end, h.loc))
}

func (h *ReservationHandler) DoctorWeek(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	start, err := httputil.QueryDate(r, "start", h.loc, h.today())
	if err != nil {
		h.writeError(w, "DoctorWeek", err)
		return
	}

	all, err := h.gw.ListReservations(r.Context(), h.orgID)
	if err != nil {
		h.writeError(w, "DoctorWeek", err)
		return
	}
	h.writeSuccess(w, "DoctorWeek", views.DoctorWeek(all, ps.ByName("doctorId"), start, h.loc))
}
