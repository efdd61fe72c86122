/*
handlers_test.go - HTTP endpoint tests against a real router and store

Each test drives the full stack: chi router, handlers, attendance service,
and a SQLite store on a temp file. Assertions cover status codes, the
machine-readable error codes, and response shapes.
*/
package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/FluxxCC/OJTonTrack-sub001/attendance"
	"github.com/FluxxCC/OJTonTrack-sub001/engine"
	"github.com/FluxxCC/OJTonTrack-sub001/store/sqlite"
)

// =============================================================================
// TEST INFRASTRUCTURE
// =============================================================================

func newTestAPI(t *testing.T) (http.Handler, *Handler) {
	t.Helper()

	loc := engine.FixedOffsetLocation(engine.DefaultOffsetHours)
	store, err := sqlite.New(filepath.Join(t.TempDir(), "api.db"), loc)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	svc := attendance.NewService(attendance.Deps{
		Punches:  store,
		Ledger:   store,
		Shifts:   store,
		Subjects: store,
		Config:   store,
		Loc:      loc,
	})
	h := NewHandler(store, svc)
	return NewRouter(h), h
}

func doRequest(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func wantStatus(t *testing.T, rec *httptest.ResponseRecorder, status int) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("status = %d, want %d; body: %s", rec.Code, status, rec.Body.String())
	}
}

func wantErrorCode(t *testing.T, rec *httptest.ResponseRecorder, code string) {
	t.Helper()
	var resp ErrorResponse
	decodeBody(t, rec, &resp)
	if resp.Code != code {
		t.Errorf("error code = %q, want %q (%s)", resp.Code, code, resp.Error)
	}
}

func createSubject(t *testing.T, router http.Handler, id, supervisor string) {
	t.Helper()
	rec := doRequest(t, router, http.MethodPost, "/api/subjects", CreateSubjectRequest{
		ID: id, SupervisorID: supervisor, Name: id,
	})
	wantStatus(t, rec, http.StatusCreated)
}

// yesterdayInBusinessTZ returns the previous civil date and a formatter for
// RFC3339 instants on it.
func yesterdayInBusinessTZ() (engine.CivilDate, func(clock string) string) {
	loc := engine.FixedOffsetLocation(engine.DefaultOffsetHours)
	day := engine.CivilDateOf(time.Now().In(loc), loc).AddDays(-1)
	return day, func(clock string) string {
		return engine.MustClockTime(clock).On(day, loc).Format(time.RFC3339)
	}
}

// =============================================================================
// PUNCH ENDPOINTS
// =============================================================================

func TestRecordPunchEndpoint(t *testing.T) {
	// GIVEN: a registered trainee
	// WHEN: posting a clock-in
	// THEN: 201 with a punch id, and the punch reads back raw

	router, _ := newTestAPI(t)
	createSubject(t, router, "t-001", "sup1")

	rec := doRequest(t, router, http.MethodPost, "/api/punches", RecordPunchRequest{
		SubjectID: "t-001", Kind: "in",
	})
	wantStatus(t, rec, http.StatusCreated)

	var resp RecordPunchResponse
	decodeBody(t, rec, &resp)
	if resp.PunchID == "" {
		t.Fatal("expected a punch id")
	}
	if resp.ComputedHours != nil {
		t.Error("in punches must not report computed hours")
	}

	get := doRequest(t, router, http.MethodGet, "/api/punches/"+resp.PunchID, nil)
	wantStatus(t, get, http.StatusOK)

	var punch PunchDTO
	decodeBody(t, get, &punch)
	if punch.Status != "raw" {
		t.Errorf("status = %q, want raw", punch.Status)
	}
}

func TestRecordPunchEndpoint_Duplicate(t *testing.T) {
	// A double-tap within the guard window returns 409 duplicate_request.
	router, _ := newTestAPI(t)
	createSubject(t, router, "t-001", "sup1")

	first := doRequest(t, router, http.MethodPost, "/api/punches", RecordPunchRequest{
		SubjectID: "t-001", Kind: "in",
	})
	wantStatus(t, first, http.StatusCreated)

	second := doRequest(t, router, http.MethodPost, "/api/punches", RecordPunchRequest{
		SubjectID: "t-001", Kind: "in",
	})
	wantStatus(t, second, http.StatusConflict)
	wantErrorCode(t, second, "duplicate_request")
}

func TestRecordPunchEndpoint_UnknownSubject(t *testing.T) {
	router, _ := newTestAPI(t)

	rec := doRequest(t, router, http.MethodPost, "/api/punches", RecordPunchRequest{
		SubjectID: "nobody", Kind: "in",
	})
	wantStatus(t, rec, http.StatusNotFound)
	wantErrorCode(t, rec, "not_found")
}

func TestRecordPunchEndpoint_BadKind(t *testing.T) {
	router, _ := newTestAPI(t)
	createSubject(t, router, "t-001", "sup1")

	rec := doRequest(t, router, http.MethodPost, "/api/punches", RecordPunchRequest{
		SubjectID: "t-001", Kind: "lunch",
	})
	wantStatus(t, rec, http.StatusBadRequest)
	wantErrorCode(t, rec, "bad_request")
}

func TestValidateRejectFlow(t *testing.T) {
	// GIVEN: a raw punch
	// WHEN: validating, then attempting a reject
	// THEN: validation succeeds once; the reject is an illegal transition

	router, _ := newTestAPI(t)
	createSubject(t, router, "t-001", "sup1")

	rec := doRequest(t, router, http.MethodPost, "/api/punches", RecordPunchRequest{
		SubjectID: "t-001", Kind: "in",
	})
	wantStatus(t, rec, http.StatusCreated)
	var resp RecordPunchResponse
	decodeBody(t, rec, &resp)

	// Missing validator is a client error.
	noValidator := doRequest(t, router, http.MethodPost,
		"/api/punches/"+resp.PunchID+"/validate", ValidatePunchRequest{})
	wantStatus(t, noValidator, http.StatusBadRequest)

	ok := doRequest(t, router, http.MethodPost,
		"/api/punches/"+resp.PunchID+"/validate", ValidatePunchRequest{ValidatorID: "sup1"})
	wantStatus(t, ok, http.StatusOK)

	reject := doRequest(t, router, http.MethodPost,
		"/api/punches/"+resp.PunchID+"/reject", ValidatePunchRequest{ValidatorID: "sup1"})
	wantStatus(t, reject, http.StatusConflict)
	wantErrorCode(t, reject, "invalid_transition")
}

// =============================================================================
// SUMMARY ENDPOINTS
// =============================================================================

func TestDaySummaryEndpoint(t *testing.T) {
	// GIVEN: a backdated morning pair recorded through the API
	// WHEN: reading the day summary
	// THEN: the out punch froze four hours and the summary reports them

	router, _ := newTestAPI(t)
	createSubject(t, router, "t-001", "sup1")
	day, instant := yesterdayInBusinessTZ()

	in := doRequest(t, router, http.MethodPost, "/api/punches", RecordPunchRequest{
		SubjectID: "t-001", Kind: "in", At: instant("08:00"),
	})
	wantStatus(t, in, http.StatusCreated)

	out := doRequest(t, router, http.MethodPost, "/api/punches", RecordPunchRequest{
		SubjectID: "t-001", Kind: "out", At: instant("12:00"),
	})
	wantStatus(t, out, http.StatusCreated)

	var outResp RecordPunchResponse
	decodeBody(t, out, &outResp)
	if outResp.ComputedHours == nil || *outResp.ComputedHours != 4 {
		t.Fatalf("computed hours = %v, want 4", outResp.ComputedHours)
	}

	rec := doRequest(t, router, http.MethodGet,
		fmt.Sprintf("/api/subjects/t-001/days/%s", day), nil)
	wantStatus(t, rec, http.StatusOK)

	var summary DaySummaryDTO
	decodeBody(t, rec, &summary)
	if summary.Total != 4 {
		t.Errorf("total = %v, want 4", summary.Total)
	}
	if len(summary.Sessions) != 1 || !summary.Sessions[0].Frozen {
		t.Errorf("expected one frozen session, got %+v", summary.Sessions)
	}
}

func TestRangeSummaryEndpoint_BadRange(t *testing.T) {
	router, _ := newTestAPI(t)
	createSubject(t, router, "t-001", "sup1")

	rec := doRequest(t, router, http.MethodGet,
		"/api/subjects/t-001/summary?from=2026-06-10&to=2026-06-01", nil)
	wantStatus(t, rec, http.StatusBadRequest)
}

// =============================================================================
// CONFIG ENDPOINTS
// =============================================================================

func TestPutGlobalConfig(t *testing.T) {
	router, _ := newTestAPI(t)

	// Malformed HH:MM text never reaches storage.
	bad := doRequest(t, router, http.MethodPut, "/api/config/global",
		map[string]string{"am_in": "25:00"})
	wantStatus(t, bad, http.StatusUnprocessableEntity)
	wantErrorCode(t, bad, "invalid_config")

	ok := doRequest(t, router, http.MethodPut, "/api/config/global",
		map[string]string{"am_in": "08:30", "am_out": "11:30"})
	wantStatus(t, ok, http.StatusOK)

	rec := doRequest(t, router, http.MethodGet, "/api/config/global", nil)
	wantStatus(t, rec, http.StatusOK)

	var cfg map[string]string
	decodeBody(t, rec, &cfg)
	if cfg["am_in"] != "08:30" {
		t.Errorf("am_in = %q, want 08:30", cfg["am_in"])
	}
}

func TestApplyConfigDocument_Invalid(t *testing.T) {
	router, _ := newTestAPI(t)

	bad := doRequest(t, router, http.MethodPost, "/api/config/document",
		json.RawMessage(`{"dates": {"not-a-date": {"am_in": "08:00"}}}`))
	wantStatus(t, bad, http.StatusUnprocessableEntity)
	wantErrorCode(t, bad, "invalid_config")
}

// =============================================================================
// ADMIN AND SCENARIO ENDPOINTS
// =============================================================================

func TestRepairEndpoint_BadRange(t *testing.T) {
	router, _ := newTestAPI(t)

	rec := doRequest(t, router, http.MethodPost, "/api/admin/repair",
		RepairRequest{From: "2026-06-10", To: "2026-06-01"})
	wantStatus(t, rec, http.StatusBadRequest)
}

func TestScenarioEndpoints(t *testing.T) {
	// GIVEN: the forgotten-out scenario
	// WHEN: loading it and reading yesterday's summary
	// THEN: the clean morning and the auto-closed afternoon both count

	router, h := newTestAPI(t)

	list := doRequest(t, router, http.MethodGet, "/api/scenarios", nil)
	wantStatus(t, list, http.StatusOK)
	var available []ScenarioDTO
	decodeBody(t, list, &available)
	if len(available) != 4 {
		t.Fatalf("expected 4 scenarios, got %d", len(available))
	}

	load := doRequest(t, router, http.MethodPost, "/api/scenarios/load",
		LoadScenarioRequest{ID: "forgotten-out"})
	wantStatus(t, load, http.StatusOK)
	if h.currentScenario != "forgotten-out" {
		t.Errorf("current scenario = %q", h.currentScenario)
	}

	day, _ := yesterdayInBusinessTZ()
	rec := doRequest(t, router, http.MethodGet,
		fmt.Sprintf("/api/subjects/t-004/days/%s", day), nil)
	wantStatus(t, rec, http.StatusOK)

	var summary DaySummaryDTO
	decodeBody(t, rec, &summary)
	if summary.Total != 8 {
		t.Errorf("total = %v, want 8 (4h morning + 4h auto-closed afternoon)", summary.Total)
	}

	var sawVirtual bool
	for _, s := range summary.Sessions {
		if s.VirtualOut {
			sawVirtual = true
		}
	}
	if !sawVirtual {
		t.Error("expected the afternoon to auto-close with a virtual out")
	}
}

func TestLoadScenario_Unknown(t *testing.T) {
	router, _ := newTestAPI(t)

	rec := doRequest(t, router, http.MethodPost, "/api/scenarios/load",
		LoadScenarioRequest{ID: "nope"})
	wantStatus(t, rec, http.StatusBadRequest)
}
