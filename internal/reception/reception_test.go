package reception

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"klinik/internal/audit"
	"klinik/internal/gateway"
	"klinik/internal/intake"
	"klinik/internal/lifecycle"
	"klinik/internal/slots"
	apperrors "klinik/pkg/errors"
	"klinik/pkg/logger"
	"klinik/pkg/model"

	"github.com/julienschmidt/httprouter"
)

var wib = time.FixedZone("WIB", 7*60*60)

const monday = "2025-01-06"

// ──────────────────────────────────────────────────────────────
// Fixtures
// ──────────────────────────────────────────────────────────────

type mockDiagnoser struct {
	recommendFunc func(ctx context.Context, req model.DiagnosisRequest) (*model.DiagnosisResult, error)
}

func (m *mockDiagnoser) Recommend(ctx context.Context, req model.DiagnosisRequest) (*model.DiagnosisResult, error) {
	if m.recommendFunc != nil {
		return m.recommendFunc(ctx, req)
	}
	return &model.DiagnosisResult{}, nil
}

type mockHistory struct {
	historyFunc func(ctx context.Context, reservationID string, limit int64) ([]audit.Event, error)
}

func (m *mockHistory) History(ctx context.Context, reservationID string, limit int64) ([]audit.Event, error) {
	return m.historyFunc(ctx, reservationID, limit)
}

type fixture struct {
	gw        *gateway.FakeGateway
	router    *httprouter.Router
	diagnoser *mockDiagnoser
}

func newFixture(t *testing.T, history History) *fixture {
	t.Helper()
	gw := gateway.NewFakeGateway(wib)
	gw.AddBranch(model.Branch{ID: "b-1", Name: "Klinik Sudirman", OrganizationID: "org-1"})
	gw.AddDoctor(model.Doctor{ID: "d-1", Name: "dr. Rina", BranchID: "b-1"})
	gw.AddTimeslot(model.Timeslot{
		ID: "ts-0900", BranchID: "b-1", DoctorID: "d-1",
		DayOfWeek: int(time.Monday), StartTime: "09:00:00", EndTime: "10:00:00",
	})
	gw.AddReservation(model.Reservation{
		ID: "r-1", Name: "Sari Dewi", Phone: "08111111111", Complaint: "Batuk",
		BranchID: "b-1", Source: model.SourceWebsite, Status: model.StatusUnderReview,
		CreatedAt: time.Date(2025, 1, 5, 8, 0, 0, 0, wib),
	})

	resolver, err := slots.NewResolver(slots.Config{Location: wib})
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}
	log := logger.Discard()
	diagnoser := &mockDiagnoser{}

	h := NewReservationHandler(Deps{
		Gateway:        gw,
		Lifecycle:      lifecycle.NewManager(gw, resolver, lifecycle.Config{OrganizationID: "org-1"}, log),
		Intake:         intake.NewService(gw, nil, log),
		Diagnoser:      diagnoser,
		History:        history,
		OrganizationID: "org-1",
		Location:       wib,
		Now:            func() time.Time { return time.Date(2025, 1, 6, 7, 0, 0, 0, wib) },
	}, log)

	router := httprouter.New()
	h.RegisterRoutes(router)
	NewHealthHandler(gw, "org-1", log).RegisterRoutes(router)
	return &fixture{gw: gw, router: router, diagnoser: diagnoser}
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decodeData[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var body struct {
		Data T `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return body.Data
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) apperrors.ErrorResponse {
	t.Helper()
	var body apperrors.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error %q: %v", w.Body.String(), err)
	}
	return body
}

// ──────────────────────────────────────────────────────────────
// Reference data
// ──────────────────────────────────────────────────────────────

func TestReferenceRoutes(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(t, http.MethodGet, "/api/v1/branches", "")
	if w.Code != http.StatusOK {
		t.Fatalf("branches: expected 200, got %d", w.Code)
	}
	if branches := decodeData[[]model.Branch](t, w); len(branches) != 1 || branches[0].ID != "b-1" {
		t.Errorf("unexpected branches: %+v", branches)
	}

	w = f.do(t, http.MethodGet, "/api/v1/branches/b-1/doctors", "")
	if doctors := decodeData[[]model.Doctor](t, w); len(doctors) != 1 || doctors[0].Name != "dr. Rina" {
		t.Errorf("unexpected doctors: %+v", doctors)
	}

	w = f.do(t, http.MethodGet, "/api/v1/branches/b-1/doctors/d-1/timeslots", "")
	if timeslots := decodeData[[]model.Timeslot](t, w); len(timeslots) != 1 || timeslots[0].ID != "ts-0900" {
		t.Errorf("unexpected timeslots: %+v", timeslots)
	}
}

func TestGatewayFailureSurfacesAsGatewayError(t *testing.T) {
	f := newFixture(t, nil)
	f.gw.FailNext(gateway.OpListBranches, apperrors.Gateway(http.StatusBadGateway, "upstream down", nil))

	w := f.do(t, http.MethodGet, "/api/v1/branches", "")
	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", w.Code)
	}
	if body := decodeError(t, w); body.Code != apperrors.CodeGateway {
		t.Errorf("expected %s, got %s", apperrors.CodeGateway, body.Code)
	}
}

// ──────────────────────────────────────────────────────────────
// Reservations and transitions
// ──────────────────────────────────────────────────────────────

func TestCreateThenScheduleOverHTTP(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(t, http.MethodPost, "/api/v1/reservations",
		`{"name":"Ahmad Santoso","phone":"+6281234567890","complaint":"Sakit gigi","timeslotId":"ts-0900","date":"2025-01-06","source":"WALKIN"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if sent := decodeData[model.ReservationInput](t, w); sent.Phone != "081234567890" {
		t.Errorf("expected normalized phone, got %q", sent.Phone)
	}

	w = f.do(t, http.MethodPost, "/api/v1/reservations/r-1/transitions",
		`{"status":"scheduled","branchId":"b-1","doctorId":"d-1","timeslotId":"ts-0900","date":"2025-01-06"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("schedule: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	next := decodeData[model.Reservation](t, w)
	if next.Status != model.StatusScheduled || next.DoctorID != "d-1" {
		t.Errorf("unexpected reservation: %+v", next)
	}

	w = f.do(t, http.MethodGet, "/api/v1/reservations/r-1/transition-state", "")
	if state := decodeData[lifecycle.State](t, w); state.Phase != lifecycle.PhaseApplied {
		t.Errorf("expected applied phase, got %+v", state)
	}

	w = f.do(t, http.MethodGet, "/api/v1/reservations?status=scheduled", "")
	if list := decodeData[[]model.Reservation](t, w); len(list) != 1 || list[0].ID != "r-1" {
		t.Errorf("expected only r-1 scheduled, got %+v", list)
	}
}

func TestRequestTransition_Errors(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{
			name:       "unknown reservation",
			path:       "/api/v1/reservations/nope/transitions",
			body:       `{"status":"CANCELLED"}`,
			wantStatus: http.StatusNotFound,
			wantCode:   apperrors.CodeNotFound,
		},
		{
			name:       "illegal transition",
			path:       "/api/v1/reservations/r-1/transitions",
			body:       `{"status":"COMPLETED"}`,
			wantStatus: http.StatusConflict,
			wantCode:   apperrors.CodeIllegalTransition,
		},
		{
			name:       "unknown status",
			path:       "/api/v1/reservations/r-1/transitions",
			body:       `{"status":"ARCHIVED"}`,
			wantStatus: http.StatusConflict,
			wantCode:   apperrors.CodeIllegalTransition,
		},
		{
			name:       "schedule without payload",
			path:       "/api/v1/reservations/r-1/transitions",
			body:       `{"status":"SCHEDULED"}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   apperrors.CodeValidation,
		},
		{
			name:       "malformed body",
			path:       "/api/v1/reservations/r-1/transitions",
			body:       `{"status":`,
			wantStatus: http.StatusBadRequest,
			wantCode:   apperrors.CodeInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			w := f.do(t, http.MethodPost, tt.path, tt.body)
			if w.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
			if body := decodeError(t, w); body.Code != tt.wantCode {
				t.Errorf("expected code %s, got %s", tt.wantCode, body.Code)
			}
			if got, _ := f.gw.Reservation("r-1"); got.Status != model.StatusUnderReview {
				t.Errorf("r-1 should stay UNDER_REVIEW, got %s", got.Status)
			}
		})
	}
}

func TestCreateReservation_ValidationDetails(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(t, http.MethodPost, "/api/v1/reservations",
		`{"name":"Ahmad","phone":"12345","complaint":"Sakit gigi","timeslotId":"ts-0900","date":"2025-01-06","source":"FAX"}`)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", w.Code)
	}
	body := decodeError(t, w)
	if _, ok := body.Details["phone"]; !ok {
		t.Errorf("expected phone detail, got %v", body.Details)
	}
	if _, ok := body.Details["source"]; !ok {
		t.Errorf("expected source detail, got %v", body.Details)
	}
	if f.gw.Calls(gateway.OpCreate) != 0 {
		t.Errorf("expected no create call")
	}
}

func TestTransitionTable(t *testing.T) {
	f := newFixture(t, nil)

	rules := decodeData[[]TransitionRule](t, f.do(t, http.MethodGet, "/api/v1/transitions", ""))
	if len(rules) != len(model.Statuses()) {
		t.Fatalf("expected %d rules, got %d", len(model.Statuses()), len(rules))
	}
	for _, rule := range rules {
		if rule.From.IsTerminal() && len(rule.To) != 0 {
			t.Errorf("%s should have no exits, got %v", rule.From, rule.To)
		}
		if rule.From == model.StatusInEncounter && (len(rule.To) != 1 || rule.To[0] != model.StatusCompleted) {
			t.Errorf("IN_ENCOUNTER should only lead to COMPLETED, got %v", rule.To)
		}
	}
}

func TestHistory(t *testing.T) {
	t.Run("without a store", func(t *testing.T) {
		f := newFixture(t, nil)
		w := f.do(t, http.MethodGet, "/api/v1/reservations/r-1/history", "")
		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("expected 503, got %d", w.Code)
		}
	})

	t.Run("with a store", func(t *testing.T) {
		var gotLimit int64
		f := newFixture(t, &mockHistory{historyFunc: func(_ context.Context, id string, limit int64) ([]audit.Event, error) {
			gotLimit = limit
			return []audit.Event{{ID: "e-1", ReservationID: id, To: model.StatusScheduled, Outcome: audit.OutcomeApplied}}, nil
		}})
		w := f.do(t, http.MethodGet, "/api/v1/reservations/r-1/history?limit=5", "")
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		events := decodeData[[]audit.Event](t, w)
		if len(events) != 1 || events[0].ReservationID != "r-1" || gotLimit != 5 {
			t.Errorf("unexpected history %+v (limit %d)", events, gotLimit)
		}
	})

	t.Run("bad limit", func(t *testing.T) {
		f := newFixture(t, &mockHistory{})
		w := f.do(t, http.MethodGet, "/api/v1/reservations/r-1/history?limit=abc", "")
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", w.Code)
		}
	})
}

// ──────────────────────────────────────────────────────────────
// Views and availability
// ──────────────────────────────────────────────────────────────

func TestAvailabilityAndViews(t *testing.T) {
	f := newFixture(t, nil)
	w := f.do(t, http.MethodPost, "/api/v1/reservations/r-1/transitions",
		`{"status":"SCHEDULED","branchId":"b-1","doctorId":"d-1","timeslotId":"ts-0900","date":"2025-01-06"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("schedule: %d %s", w.Code, w.Body.String())
	}

	grid := decodeData[[]model.Slot](t, f.do(t, http.MethodGet, "/api/v1/availability?doctorId=d-1&date="+monday, ""))
	occupied := 0
	for _, s := range grid {
		if s.IsOccupied {
			occupied++
		}
	}
	if occupied != 2 {
		t.Errorf("expected two occupied 30-minute slots, got %d", occupied)
	}

	w = f.do(t, http.MethodGet, "/api/v1/availability?date="+monday, "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing doctorId: expected 400, got %d", w.Code)
	}

	counts := decodeData[[]struct {
		Status model.Status `json:"status"`
		Count  int          `json:"count"`
	}](t, f.do(t, http.MethodGet, "/api/v1/views/status-counts", ""))
	for _, c := range counts {
		if c.Status == model.StatusScheduled && c.Count != 1 {
			t.Errorf("expected 1 scheduled, got %d", c.Count)
		}
	}

	month := decodeData[[]struct {
		Date  string `json:"date"`
		Count int    `json:"count"`
	}](t, f.do(t, http.MethodGet, "/api/v1/views/calendar", ""))
	if len(month) != 31 {
		t.Fatalf("expected 31 days in January, got %d", len(month))
	}
	if month[5].Date != monday || month[5].Count != 1 {
		t.Errorf("expected one reservation on %s, got %+v", monday, month[5])
	}

	week := decodeData[[]struct {
		Date         string              `json:"date"`
		Reservations []model.Reservation `json:"reservations"`
	}](t, f.do(t, http.MethodGet, "/api/v1/views/doctors/d-1/week?start="+monday, ""))
	if len(week) != 7 || len(week[0].Reservations) != 1 {
		t.Errorf("unexpected doctor week: %+v", week)
	}

	pending := decodeData[struct {
		Total int `json:"total"`
	}](t, f.do(t, http.MethodGet, "/api/v1/views/pending", ""))
	if pending.Total != 0 {
		t.Errorf("expected empty pending queue, got %d", pending.Total)
	}
}

func TestCalendar_RangeParameters(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(t, http.MethodGet, "/api/v1/views/calendar?from=2025-01-06", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("from without to: expected 400, got %d", w.Code)
	}
	w = f.do(t, http.MethodGet, "/api/v1/views/calendar?from=2025-01-07&to=2025-01-06", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("reversed range: expected 400, got %d", w.Code)
	}
	w = f.do(t, http.MethodGet, "/api/v1/views/calendar?from=0001-01-01&to=9999-12-31", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("unbounded range: expected 400, got %d", w.Code)
	}
	w = f.do(t, http.MethodGet, "/api/v1/views/calendar?from=2025-01-01&to=2025-02-12", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("43 day range: expected 400, got %d", w.Code)
	}
	w = f.do(t, http.MethodGet, "/api/v1/views/calendar?from=2025-01-01&to=2025-02-11", "")
	if w.Code != http.StatusOK {
		t.Errorf("42 day range: expected 200, got %d", w.Code)
	}
	w = f.do(t, http.MethodGet, "/api/v1/views/calendar?month=2025-13", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad month: expected 400, got %d", w.Code)
	}

	w = f.do(t, http.MethodGet, "/api/v1/views/calendar?from=2025-01-06&to=2025-01-08", "")
	days := decodeData[[]struct {
		Date string `json:"date"`
	}](t, w)
	if len(days) != 3 || days[2].Date != "2025-01-08" {
		t.Errorf("unexpected range: %+v", days)
	}
}

// ──────────────────────────────────────────────────────────────
// Diagnosis and health
// ──────────────────────────────────────────────────────────────

func TestRecommend(t *testing.T) {
	f := newFixture(t, nil)
	f.diagnoser.recommendFunc = func(_ context.Context, req model.DiagnosisRequest) (*model.DiagnosisResult, error) {
		if req.Anamnesis != "nyeri gigi" {
			t.Errorf("expected normalized anamnesis, got %q", req.Anamnesis)
		}
		return &model.DiagnosisResult{Summary: "kemungkinan pulpitis"}, nil
	}

	w := f.do(t, http.MethodPost, "/api/v1/diagnosis/recommendations", `{"anamnesis":" nyeri  gigi ","examination":"karies"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if res := decodeData[model.DiagnosisResult](t, w); res.Summary != "kemungkinan pulpitis" {
		t.Errorf("unexpected result: %+v", res)
	}

	w = f.do(t, http.MethodPost, "/api/v1/diagnosis/recommendations", `{"anamnesis":"nyeri"}`)
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("missing examination: expected 422, got %d", w.Code)
	}

	f.diagnoser.recommendFunc = func(context.Context, model.DiagnosisRequest) (*model.DiagnosisResult, error) {
		return nil, apperrors.Gateway(0, "clinic API timed out", errors.New("deadline"))
	}
	w = f.do(t, http.MethodPost, "/api/v1/diagnosis/recommendations", `{"anamnesis":"nyeri","examination":"karies"}`)
	if w.Code != http.StatusBadGateway {
		t.Errorf("gateway failure: expected 502, got %d", w.Code)
	}
}

func TestHealthAndReady(t *testing.T) {
	f := newFixture(t, nil)

	if w := f.do(t, http.MethodGet, "/health", ""); w.Code != http.StatusOK {
		t.Errorf("health: expected 200, got %d", w.Code)
	}
	if w := f.do(t, http.MethodGet, "/ready", ""); w.Code != http.StatusOK {
		t.Errorf("ready: expected 200, got %d", w.Code)
	}

	f.gw.FailNext(gateway.OpListBranches, errors.New("connection refused"))
	w := f.do(t, http.MethodGet, "/ready", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("ready: expected 503, got %d", w.Code)
	}
	var body HealthResponse
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	if body.ClinicAPI != "error" {
		t.Errorf("expected clinicApi error, got %+v", body)
	}
}
