// Package intake accepts new reservations from the website, WhatsApp and the
// walk-in desk.
package intake

import (
	"context"
	"errors"
	"strings"
	"sync"

	"klinik/internal/audit"
	"klinik/internal/gateway"
	apperrors "klinik/pkg/errors"
	"klinik/pkg/logger"
	"klinik/pkg/model"
	"klinik/pkg/sanitizer"
)

// Announcer tells other instances that a reservation was created.
type Announcer interface {
	Created(ctx context.Context, event audit.Event) error
}

type Service struct {
	gw        gateway.Gateway
	validator *Validator
	announcer Announcer
	log       *logger.Logger

	mu       sync.Mutex
	inflight map[string]struct{}
}

// NewService builds the intake service. announcer may be nil.
func NewService(gw gateway.Gateway, announcer Announcer, log *logger.Logger) *Service {
	return &Service{
		gw:        gw,
		validator: NewValidator(),
		announcer: announcer,
		log:       log.Component("intake"),
		inflight:  make(map[string]struct{}),
	}
}

// Submit normalises and validates input, then creates the reservation. The
// returned value is the payload that was sent to the clinic API.
func (s *Service) Submit(ctx context.Context, input model.ReservationInput) (*model.ReservationInput, error) {
	sanitizer.SanitizeReservationInput(&input)

	if err := s.validator.Validate(&input); err != nil {
		var fieldErrs ValidationErrors
		if errors.As(err, &fieldErrs) {
			s.log.Warn("Reservation input rejected", "fields", fieldErrs.Fields())
			return nil, apperrors.Validation("Reservation input is invalid", fieldErrs.Fields())
		}
		return nil, apperrors.Internal("Failed to validate reservation input", err)
	}

	key := fingerprint(&input)
	if !s.begin(key) {
		return nil, apperrors.InFlight(key)
	}
	defer s.end(key)

	if err := s.gw.CreateReservation(ctx, input); err != nil {
		s.log.Error("Failed to create reservation",
			"source", input.Source,
			"timeslot_id", input.TimeslotID,
			"date", input.Date,
			"error", err,
		)
		return nil, err
	}

	s.log.Info("Reservation created",
		"source", input.Source,
		"timeslot_id", input.TimeslotID,
		"date", input.Date,
	)
	s.announce(ctx, input)
	return &input, nil
}

// ValidateDiagnosis checks a diagnosis request before it is proxied.
func (s *Service) ValidateDiagnosis(req *model.DiagnosisRequest) error {
	req.Anamnesis = sanitizer.TrimAndNormalize(req.Anamnesis)
	req.Examination = sanitizer.TrimAndNormalize(req.Examination)
	if err := s.validator.Validate(req); err != nil {
		var fieldErrs ValidationErrors
		if errors.As(err, &fieldErrs) {
			return apperrors.Validation("Diagnosis request is invalid", fieldErrs.Fields())
		}
		return apperrors.Internal("Failed to validate diagnosis request", err)
	}
	return nil
}

func (s *Service) announce(ctx context.Context, input model.ReservationInput) {
	if s.announcer == nil {
		return
	}
	event := audit.NewEvent(model.Reservation{Status: model.StatusCreated}, model.StatusCreated, audit.OutcomeApplied, string(input.Source))
	if err := s.announcer.Created(context.WithoutCancel(ctx), event); err != nil {
		s.log.Warn("Failed to announce created reservation", "error", err)
	}
}

func (s *Service) begin(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inflight[key]; busy {
		return false
	}
	s.inflight[key] = struct{}{}
	return true
}

func (s *Service) end(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, key)
}

func fingerprint(in *model.ReservationInput) string {
	return strings.Join([]string{in.Phone, in.TimeslotID, in.Date, string(in.Source)}, "|")
}
