// Package reception exposes the reservation lifecycle to the reception desk
// over HTTP.
package reception

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"klinik/internal/audit"
	"klinik/internal/gateway"
	"klinik/internal/lifecycle"
	"klinik/internal/views"
	apperrors "klinik/pkg/errors"
	httputil "klinik/pkg/http"
	"klinik/pkg/logger"
	"klinik/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type Lifecycle interface {
	RequestTransition(ctx context.Context, res model.Reservation, target model.Status, schedule *model.ScheduleRequest) (*model.Reservation, error)
	State(id string) lifecycle.State
	Availability(ctx context.Context, doctorID string, day time.Time) ([]model.Slot, error)
}

type Intake interface {
	Submit(ctx context.Context, input model.ReservationInput) (*model.ReservationInput, error)
	ValidateDiagnosis(req *model.DiagnosisRequest) error
}

type Diagnoser interface {
	Recommend(ctx context.Context, req model.DiagnosisRequest) (*model.DiagnosisResult, error)
}

type History interface {
	History(ctx context.Context, reservationID string, limit int64) ([]audit.Event, error)
}

type Deps struct {
	Gateway   gateway.Gateway
	Lifecycle Lifecycle
	Intake    Intake
	Diagnoser Diagnoser
	// History is optional; without it the history route answers 503.
	History        History
	OrganizationID string
	Location       *time.Location
	Now            func() time.Time
}

type TransitionRequest struct {
	Status     model.Status `json:"status"`
	BranchID   string       `json:"branchId,omitempty"`
	DoctorID   string       `json:"doctorId,omitempty"`
	TimeslotID string       `json:"timeslotId,omitempty"`
	Date       string       `json:"date,omitempty"`
}

func (t TransitionRequest) schedule() *model.ScheduleRequest {
	if t.BranchID == "" && t.DoctorID == "" && t.TimeslotID == "" && t.Date == "" {
		return nil
	}
	return &model.ScheduleRequest{
		BranchID:   t.BranchID,
		DoctorID:   t.DoctorID,
		TimeslotID: t.TimeslotID,
		Date:       t.Date,
	}
}

type TransitionRule struct {
	From model.Status   `json:"from"`
	To   []model.Status `json:"to"`
}

type ReservationHandler struct {
	gw        gateway.Gateway
	lifecycle Lifecycle
	intake    Intake
	diagnoser Diagnoser
	history   History
	orgID     string
	loc       *time.Location
	now       func() time.Time
	log       *logger.Logger
}

func NewReservationHandler(deps Deps, log *logger.Logger) *ReservationHandler {
	if deps.Location == nil {
		deps.Location = time.UTC
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &ReservationHandler{
		gw:        deps.Gateway,
		lifecycle: deps.Lifecycle,
		intake:    deps.Intake,
		diagnoser: deps.Diagnoser,
		history:   deps.History,
		orgID:     deps.OrganizationID,
		loc:       deps.Location,
		now:       deps.Now,
		log:       log.Component("reception"),
	}
}

func (h *ReservationHandler) ListBranches(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	branches, err := h.gw.ListBranches(r.Context(), h.orgID)
	if err != nil {
		h.writeError(w, "ListBranches", err)
		return
	}
	h.writeSuccess(w, "ListBranches", branches)
}

func (h *ReservationHandler) ListDoctors(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	doctors, err := h.gw.ListDoctors(r.Context(), ps.ByName("branchId"))
	if err != nil {
		h.writeError(w, "ListDoctors", err)
		return
	}
	h.writeSuccess(w, "ListDoctors", doctors)
}

func (h *ReservationHandler) ListTimeslots(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	timeslots, err := h.gw.ListTimeslots(r.Context(), ps.ByName("branchId"), ps.ByName("doctorId"))
	if err != nil {
		h.writeError(w, "ListTimeslots", err)
		return
	}
	h.writeSuccess(w, "ListTimeslots", timeslots)
}

func (h *ReservationHandler) ListReservations(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	all, err := h.gw.ListReservations(r.Context(), h.orgID)
	if err != nil {
		h.writeError(w, "ListReservations", err)
		return
	}
	h.writeSuccess(w, "ListReservations", views.Apply(all, filterFromQuery(r)))
}

func (h *ReservationHandler) CreateReservation(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var input model.ReservationInput
	if err := httputil.DecodeBody(r, &input); err != nil {
		h.writeError(w, "CreateReservation", err)
		return
	}

	sent, err := h.intake.Submit(r.Context(), input)
	if err != nil {
		h.writeError(w, "CreateReservation", err)
		return
	}

	if err := httputil.WriteCreated(w, sent); err != nil {
		h.log.Error("failed to write created response", "handler", "CreateReservation", "operation", "WriteCreated", "error", err)
	}
}

func (h *ReservationHandler) RequestTransition(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	var req TransitionRequest
	if err := httputil.DecodeBody(r, &req); err != nil {
		h.writeError(w, "RequestTransition", err)
		return
	}
	req.Status = model.Status(strings.ToUpper(strings.TrimSpace(string(req.Status))))

	current, err := h.find(r.Context(), id)
	if err != nil {
		h.writeError(w, "RequestTransition", err)
		return
	}

	next, err := h.lifecycle.RequestTransition(r.Context(), *current, req.Status, req.schedule())
	if err != nil {
		h.writeError(w, "RequestTransition", err)
		return
	}
	h.writeSuccess(w, "RequestTransition", next)
}

func (h *ReservationHandler) TransitionState(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	h.writeSuccess(w, "TransitionState", h.lifecycle.State(ps.ByName("id")))
}

func (h *ReservationHandler) TransitionTable(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	table := lifecycle.Table()
	rules := make([]TransitionRule, 0, len(model.Statuses()))
	for _, from := range model.Statuses() {
		to := table[from]
		if to == nil {
			to = []model.Status{}
		}
		rules = append(rules, TransitionRule{From: from, To: to})
	}
	h.writeSuccess(w, "TransitionTable", rules)
}

func (h *ReservationHandler) History(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if h.history == nil {
		h.writeError(w, "History", apperrors.Unavailable("audit history"))
		return
	}

	limit := int64(50)
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil || n <= 0 {
			h.writeError(w, "History", apperrors.InvalidInput("invalid limit parameter: "+s))
			return
		}
		limit = n
	}

	events, err := h.history.History(r.Context(), ps.ByName("id"), limit)
	if err != nil {
		h.writeError(w, "History", err)
		return
	}
	h.writeSuccess(w, "History", events)
}

func (h *ReservationHandler) Availability(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	day, err := httputil.QueryDate(r, "date", h.loc, h.today())
	if err != nil {
		h.writeError(w, "Availability", err)
		return
	}

	grid, err := h.lifecycle.Availability(r.Context(), r.URL.Query().Get("doctorId"), day)
	if err != nil {
		h.writeError(w, "Availability", err)
		return
	}
	h.writeSuccess(w, "Availability", grid)
}

func (h *ReservationHandler) Recommend(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.DiagnosisRequest
	if err := httputil.DecodeBody(r, &req); err != nil {
		h.writeError(w, "Recommend", err)
		return
	}
	if err := h.intake.ValidateDiagnosis(&req); err != nil {
		h.writeError(w, "Recommend", err)
		return
	}

	result, err := h.diagnoser.Recommend(r.Context(), req)
	if err != nil {
		h.writeError(w, "Recommend", err)
		return
	}
	h.writeSuccess(w, "Recommend", result)
}

// find reads a fresh snapshot so transitions start from the backend's
// current status.
func (h *ReservationHandler) find(ctx context.Context, id string) (*model.Reservation, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Reservation ID cannot be empty")
	}
	all, err := h.gw.ListReservations(gateway.NoCache(ctx), h.orgID)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].ID == id {
			return &all[i], nil
		}
	}
	return nil, apperrors.NotFoundWithID("reservation", id)
}

func (h *ReservationHandler) today() time.Time {
	return h.now().In(h.loc)
}

func (h *ReservationHandler) writeSuccess(w http.ResponseWriter, handler string, data any) {
	if err := httputil.WriteSuccess(w, data); err != nil {
		h.log.Error("failed to write success response", "handler", handler, "operation", "WriteSuccess", "error", err)
	}
}

func (h *ReservationHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func filterFromQuery(r *http.Request) views.Filter {
	q := r.URL.Query()
	return views.Filter{
		BranchID: q.Get("branchId"),
		DoctorID: q.Get("doctorId"),
		Source:   model.Source(strings.ToUpper(q.Get("source"))),
		Status:   model.Status(strings.ToUpper(q.Get("status"))),
		Query:    q.Get("q"),
	}
}
