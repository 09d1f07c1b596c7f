// Package mockapi serves a clinic reservation API backed by an in-memory
// FakeGateway, for local development and demos.
package mockapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"klinik/internal/gateway"
	"klinik/pkg/client"
	apperrors "klinik/pkg/errors"
	"klinik/pkg/logger"
	"klinik/pkg/model"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

type server struct {
	gw  gateway.Gateway
	log *logger.Logger
}

// NewRouter exposes gw with the clinic API's paths and envelope.
func NewRouter(gw gateway.Gateway, log *logger.Logger) http.Handler {
	s := &server{gw: gw, log: log.Component("mockapi")}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logging)

	r.Get(client.PathBranches, s.listBranches)
	r.Get(client.PathDoctors, s.listDoctors)
	r.Get(client.PathTimeslots, s.listTimeslots)
	r.Get(client.PathReservations, s.listReservations)
	r.Post(client.PathReservations, s.createReservation)
	r.Patch(client.PathReservations+"/{id}/status", s.updateStatus)
	r.Post(client.PathDiagnosis, s.diagnosis)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusNotFound, nil, "", "route not found")
	})
	return r
}

func (s *server) listBranches(w http.ResponseWriter, r *http.Request) {
	branches, err := s.gw.ListBranches(r.Context(), r.URL.Query().Get("organizationId"))
	s.respond(w, http.StatusOK, branches, err)
}

func (s *server) listDoctors(w http.ResponseWriter, r *http.Request) {
	doctors, err := s.gw.ListDoctors(r.Context(), r.URL.Query().Get("branchId"))
	s.respond(w, http.StatusOK, doctors, err)
}

func (s *server) listTimeslots(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	timeslots, err := s.gw.ListTimeslots(r.Context(), q.Get("branchId"), q.Get("doctorId"))
	s.respond(w, http.StatusOK, timeslots, err)
}

func (s *server) listReservations(w http.ResponseWriter, r *http.Request) {
	reservations, err := s.gw.ListReservations(r.Context(), r.URL.Query().Get("organizationId"))
	s.respond(w, http.StatusOK, reservations, err)
}

func (s *server) createReservation(w http.ResponseWriter, r *http.Request) {
	var input model.ReservationInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeEnvelope(w, http.StatusBadRequest, nil, "", "could not parse JSON")
		return
	}
	if err := s.gw.CreateReservation(r.Context(), input); err != nil {
		s.respond(w, 0, nil, err)
		return
	}
	writeEnvelope(w, http.StatusCreated, nil, "Reservation created", "")
}

func (s *server) updateStatus(w http.ResponseWriter, r *http.Request) {
	var update model.StatusUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeEnvelope(w, http.StatusBadRequest, nil, "", "could not parse JSON")
		return
	}
	if err := s.gw.UpdateReservationStatus(r.Context(), chi.URLParam(r, "id"), update); err != nil {
		s.respond(w, 0, nil, err)
		return
	}
	writeEnvelope(w, http.StatusOK, nil, "Status updated", "")
}

func (s *server) diagnosis(w http.ResponseWriter, r *http.Request) {
	var req model.DiagnosisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeEnvelope(w, http.StatusBadRequest, nil, "", "could not parse JSON")
		return
	}
	if strings.TrimSpace(req.Anamnesis) == "" {
		writeEnvelope(w, http.StatusBadRequest, nil, "", "anamnesis is required")
		return
	}
	writeEnvelope(w, http.StatusOK, Recommend(req), "", "")
}

func (s *server) respond(w http.ResponseWriter, status int, data any, err error) {
	if err == nil {
		writeEnvelope(w, status, data, "", "")
		return
	}
	appErr := apperrors.AsAppError(err)
	code := appErr.StatusCode()
	if upstream, ok := appErr.Details["upstream_status"].(int); ok && upstream > 0 {
		code = upstream
	}
	if code == 0 {
		code = http.StatusInternalServerError
	}
	writeEnvelope(w, code, nil, "", appErr.Message)
}

func (s *server) logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Debug("Mock API request",
			"request_id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
		)
	})
}

func writeEnvelope(w http.ResponseWriter, status int, data any, message, errMsg string) {
	env := model.Envelope{
		HTTPStatus:  status,
		OperationID: uuid.NewString(),
		Message:     message,
		Error:       errMsg,
	}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			status = http.StatusInternalServerError
			env.HTTPStatus = status
			env.Error = "failed to encode response"
		} else {
			env.Data = raw
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}
