/*
handlers.go - HTTP API handlers for the attendance engine

PURPOSE:
  Exposes the attendance engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Punches:
    POST   /api/punches                      Record a clock-in/out
    GET    /api/punches/{id}                 Get punch details
    POST   /api/punches/{id}/validate       Mark a punch validated
    POST   /api/punches/{id}/reject         Reject a punch
    POST   /api/punches/{id}/adjust         Correct instant/kind, re-freeze

  Subjects:
    GET    /api/subjects                     List trainees
    POST   /api/subjects                     Register a trainee
    GET    /api/subjects/{id}                Get trainee details
    GET    /api/subjects/{id}/days/{date}    One-day summary
    GET    /api/subjects/{id}/summary        Range summary (?from=&to=)

  Config:
    GET    /api/config/global                Read the global layer
    PUT    /api/config/global                Replace the global layer
    PUT    /api/config/supervisors/{id}      Replace a supervisor layer
    PUT    /api/config/dates/{date}          Replace a date override
    POST   /api/config/document              Apply a full JSON document
    POST   /api/config/overtime-grants       Authorize overtime

  Admin:
    POST   /api/admin/repair                 Re-freeze a date range

  Scenarios:
    GET    /api/scenarios                    List demo scenarios
    POST   /api/scenarios/load               Load a demo scenario

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input
  3. Call domain logic (service, stores)
  4. Serialize response
  5. Handle errors

ERROR HANDLING:
  Errors are returned as JSON with a machine-readable code:
  - 400 bad_request:        Malformed JSON, unknown punch kind, bad dates
  - 404 not_found:          Unknown subject/punch/shift
  - 409 duplicate_request:  Duplicate punch within the guard window
  - 409 invalid_transition: Illegal punch status change
  - 422 invalid_config:     Malformed HH:MM configuration text
  - 500 internal:           Everything else

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/FluxxCC/OJTonTrack-sub001/attendance"
	"github.com/FluxxCC/OJTonTrack-sub001/engine"
	"github.com/FluxxCC/OJTonTrack-sub001/factory"
	"github.com/FluxxCC/OJTonTrack-sub001/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store   *sqlite.Store
	Service *attendance.Service
	Config  *factory.ConfigFactory

	// Track currently loaded scenario
	currentScenario string
}

// NewHandler creates a new handler with the given store and service.
func NewHandler(store *sqlite.Store, svc *attendance.Service) *Handler {
	return &Handler{
		Store:   store,
		Service: svc,
		Config:  factory.NewConfigFactory(),
	}
}

// =============================================================================
// PUNCH HANDLERS
// =============================================================================

// RecordPunch records a clock-in or clock-out.
// POST /api/punches
//
// The optional "at" field is an RFC3339 instant rather than an epoch-
// millisecond count; clients holding a millisecond timestamp format it
// before sending. Omitting it stamps the punch at receipt time.
func (h *Handler) RecordPunch(w http.ResponseWriter, r *http.Request) {
	var req RecordPunchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body", err)
		return
	}

	kind, err := parsePunchKind(req.Kind)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid punch kind", err)
		return
	}

	input := attendance.RecordPunchInput{
		SubjectID:          engine.SubjectID(req.SubjectID),
		Kind:               kind,
		AuthorizedOvertime: req.AuthorizedOvertime,
		ShiftID:            engine.ShiftID(req.ShiftID),
		ValidatorID:        req.ValidatorID,
		EvidenceRef:        req.EvidenceRef,
	}
	if req.At != "" {
		at, err := time.Parse(time.RFC3339, req.At)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", "Invalid punch instant", err)
			return
		}
		input.At = at
	}

	result, err := h.Service.RecordPunch(r.Context(), input)
	if err != nil {
		writeDomainError(w, "Failed to record punch", err)
		return
	}

	resp := RecordPunchResponse{PunchID: string(result.PunchID)}
	if result.ComputedHours != nil {
		hours := result.ComputedHours.Float64()
		resp.ComputedHours = &hours
	}
	writeJSON(w, http.StatusCreated, resp)
}

// GetPunch returns a single punch.
// GET /api/punches/{id}
func (h *Handler) GetPunch(w http.ResponseWriter, r *http.Request) {
	id := engine.PunchID(chi.URLParam(r, "id"))

	p, err := h.Store.GetPunch(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to get punch", err)
		return
	}
	writeJSON(w, http.StatusOK, toPunchDTO(*p))
}

// ValidatePunch marks a punch validated.
// POST /api/punches/{id}/validate
func (h *Handler) ValidatePunch(w http.ResponseWriter, r *http.Request) {
	h.punchTransition(w, r, h.Service.ValidatePunch)
}

// RejectPunch rejects a punch.
// POST /api/punches/{id}/reject
func (h *Handler) RejectPunch(w http.ResponseWriter, r *http.Request) {
	h.punchTransition(w, r, h.Service.RejectPunch)
}

func (h *Handler) punchTransition(w http.ResponseWriter, r *http.Request,
	apply func(ctx context.Context, id engine.PunchID, validatorID string) error) {

	id := engine.PunchID(chi.URLParam(r, "id"))

	var req ValidatePunchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body", err)
		return
	}
	if req.ValidatorID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "validator_id is required", nil)
		return
	}

	if err := apply(r.Context(), id, req.ValidatorID); err != nil {
		writeDomainError(w, "Failed to update punch", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// AdjustPunch corrects a punch's instant and/or kind and re-freezes the
// affected days.
// POST /api/punches/{id}/adjust
func (h *Handler) AdjustPunch(w http.ResponseWriter, r *http.Request) {
	id := engine.PunchID(chi.URLParam(r, "id"))

	var req AdjustPunchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body", err)
		return
	}
	if req.ValidatorID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "validator_id is required", nil)
		return
	}

	input := attendance.AdjustPunchInput{ValidatorID: req.ValidatorID}
	if req.At != "" {
		at, err := time.Parse(time.RFC3339, req.At)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", "Invalid punch instant", err)
			return
		}
		input.At = at
	}
	if req.Kind != "" {
		kind, err := parsePunchKind(req.Kind)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", "Invalid punch kind", err)
			return
		}
		input.Kind = kind
	}

	if err := h.Service.AdjustPunch(r.Context(), id, input); err != nil {
		writeDomainError(w, "Failed to adjust punch", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// =============================================================================
// SUBJECT HANDLERS
// =============================================================================

// ListSubjects returns all trainees.
// GET /api/subjects
func (h *Handler) ListSubjects(w http.ResponseWriter, r *http.Request) {
	subjects, err := h.Store.ListSubjects(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", "Failed to list subjects", err)
		return
	}

	dtos := make([]SubjectDTO, len(subjects))
	for i, s := range subjects {
		dtos[i] = SubjectDTO{
			ID:           string(s.ID),
			SupervisorID: string(s.SupervisorID),
			Name:         s.Name,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateSubject registers a trainee.
// POST /api/subjects
func (h *Handler) CreateSubject(w http.ResponseWriter, r *http.Request) {
	var req CreateSubjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body", err)
		return
	}
	if req.ID == "" || req.SupervisorID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "id and supervisor_id are required", nil)
		return
	}

	subject := engine.Subject{
		ID:           engine.SubjectID(req.ID),
		SupervisorID: engine.SupervisorID(req.SupervisorID),
		Name:         req.Name,
	}
	if err := h.Store.InsertSubject(r.Context(), subject); err != nil {
		writeError(w, http.StatusInternalServerError, "internal", "Failed to create subject", err)
		return
	}
	writeJSON(w, http.StatusCreated, SubjectDTO{
		ID:           req.ID,
		SupervisorID: req.SupervisorID,
		Name:         req.Name,
	})
}

// GetSubject returns a single trainee.
// GET /api/subjects/{id}
func (h *Handler) GetSubject(w http.ResponseWriter, r *http.Request) {
	id := engine.SubjectID(chi.URLParam(r, "id"))

	s, err := h.Store.GetSubject(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to get subject", err)
		return
	}
	writeJSON(w, http.StatusOK, SubjectDTO{
		ID:           string(s.ID),
		SupervisorID: string(s.SupervisorID),
		Name:         s.Name,
	})
}

// GetDaySummary returns one subject-day's billable picture.
// GET /api/subjects/{id}/days/{date}
func (h *Handler) GetDaySummary(w http.ResponseWriter, r *http.Request) {
	id := engine.SubjectID(chi.URLParam(r, "id"))

	date, err := engine.ParseCivilDate(chi.URLParam(r, "date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid date", err)
		return
	}

	summary, err := h.Service.DaySummary(r.Context(), id, date)
	if err != nil {
		writeDomainError(w, "Failed to compute day summary", err)
		return
	}
	writeJSON(w, http.StatusOK, toDaySummaryDTO(*summary))
}

// GetRangeSummary returns a subject's summary across a date range.
// GET /api/subjects/{id}/summary?from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *Handler) GetRangeSummary(w http.ResponseWriter, r *http.Request) {
	id := engine.SubjectID(chi.URLParam(r, "id"))

	from, err := engine.ParseCivilDate(r.URL.Query().Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid from date", err)
		return
	}
	to, err := engine.ParseCivilDate(r.URL.Query().Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid to date", err)
		return
	}
	if to.Before(from) {
		writeError(w, http.StatusBadRequest, "bad_request", "to date precedes from date", nil)
		return
	}

	days, err := h.Service.RangeSummary(r.Context(), id, from, to)
	if err != nil {
		writeDomainError(w, "Failed to compute range summary", err)
		return
	}

	resp := RangeSummaryDTO{
		SubjectID: string(id),
		From:      from.String(),
		To:        to.String(),
		Days:      make([]DaySummaryDTO, len(days)),
	}
	total := engine.Hours{}
	for i, d := range days {
		resp.Days[i] = toDaySummaryDTO(d)
		total = total.Add(d.Total)
	}
	resp.Total = total.Float64()
	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// CONFIG HANDLERS
// =============================================================================

// GetGlobalConfig returns the global configuration layer.
// GET /api/config/global
func (h *Handler) GetGlobalConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.Store.GlobalConfig(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", "Failed to read config", err)
		return
	}
	writeJSON(w, http.StatusOK, h.Config.ToJSON(cfg))
}

// PutGlobalConfig replaces the global configuration layer.
// PUT /api/config/global
func (h *Handler) PutGlobalConfig(w http.ResponseWriter, r *http.Request) {
	h.putConfigLayer(w, r, func(cfg engine.ShiftConfig) error {
		return h.Store.SetGlobalConfig(r.Context(), cfg)
	})
}

// PutSupervisorConfig replaces a supervisor's configuration layer.
// PUT /api/config/supervisors/{id}
func (h *Handler) PutSupervisorConfig(w http.ResponseWriter, r *http.Request) {
	supervisor := engine.SupervisorID(chi.URLParam(r, "id"))
	h.putConfigLayer(w, r, func(cfg engine.ShiftConfig) error {
		return h.Store.SetSupervisorConfig(r.Context(), supervisor, cfg)
	})
}

// PutDateOverride replaces a per-date configuration layer.
// PUT /api/config/dates/{date}
func (h *Handler) PutDateOverride(w http.ResponseWriter, r *http.Request) {
	date, err := engine.ParseCivilDate(chi.URLParam(r, "date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid date", err)
		return
	}
	h.putConfigLayer(w, r, func(cfg engine.ShiftConfig) error {
		return h.Store.SetDateOverride(r.Context(), date, cfg)
	})
}

func (h *Handler) putConfigLayer(w http.ResponseWriter, r *http.Request, apply func(engine.ShiftConfig) error) {
	var body factory.ShiftConfigJSON
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body", err)
		return
	}

	// Validate through the document path so malformed HH:MM text is
	// rejected before anything is written.
	raw, _ := json.Marshal(&factory.ConfigDocument{Global: &body})
	if _, err := h.Config.ParseDocument(string(raw)); err != nil {
		writeDomainError(w, "Invalid shift configuration", err)
		return
	}

	cfg := engine.ShiftConfig{
		AMIn: body.AMIn, AMOut: body.AMOut,
		PMIn: body.PMIn, PMOut: body.PMOut,
		OTIn: body.OTIn, OTOut: body.OTOut,
	}
	if err := apply(cfg); err != nil {
		writeError(w, http.StatusInternalServerError, "internal", "Failed to write config", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// ApplyConfigDocument applies a complete JSON schedule document.
// POST /api/config/document
func (h *Handler) ApplyConfigDocument(w http.ResponseWriter, r *http.Request) {
	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body", err)
		return
	}

	doc, err := h.Config.ParseDocument(string(raw))
	if err != nil {
		writeDomainError(w, "Invalid schedule document", err)
		return
	}
	if err := h.Config.Apply(r.Context(), h.Store, doc); err != nil {
		writeError(w, http.StatusInternalServerError, "internal", "Failed to apply document", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// CreateOvertimeGrant authorizes overtime for a subject-date.
// POST /api/config/overtime-grants
func (h *Handler) CreateOvertimeGrant(w http.ResponseWriter, r *http.Request) {
	var req OvertimeGrantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body", err)
		return
	}

	date, err := engine.ParseCivilDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid date", err)
		return
	}
	start, err := time.Parse(time.RFC3339, req.Start)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid start instant", err)
		return
	}
	end, err := time.Parse(time.RFC3339, req.End)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid end instant", err)
		return
	}
	if !end.After(start) {
		writeError(w, http.StatusBadRequest, "bad_request", "end must be after start", nil)
		return
	}

	grant := engine.OvertimeGrant{
		SubjectID: engine.SubjectID(req.SubjectID),
		Date:      date,
		Start:     start,
		End:       end,
	}
	if err := h.Store.PutOvertimeGrant(r.Context(), grant); err != nil {
		writeError(w, http.StatusInternalServerError, "internal", "Failed to write grant", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"status": "ok"})
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// RepairLedger re-freezes every completed subject-day in a date range.
// POST /api/admin/repair
func (h *Handler) RepairLedger(w http.ResponseWriter, r *http.Request) {
	var req RepairRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body", err)
		return
	}

	from, err := engine.ParseCivilDate(req.From)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid from date", err)
		return
	}
	to, err := engine.ParseCivilDate(req.To)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid to date", err)
		return
	}
	if to.Before(from) {
		writeError(w, http.StatusBadRequest, "bad_request", "to date precedes from date", nil)
		return
	}

	report, err := h.Service.RepairLedger(r.Context(), from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", "Repair pass failed", err)
		return
	}
	writeJSON(w, http.StatusOK, RepairResponse{
		SubjectsScanned: report.SubjectsScanned,
		EntriesFrozen:   report.EntriesFrozen,
		Failures:        report.Failures,
	})
}

// =============================================================================
// HELPERS
// =============================================================================

func parsePunchKind(s string) (engine.PunchKind, error) {
	switch s {
	case "in":
		return engine.KindIn, nil
	case "out":
		return engine.KindOut, nil
	default:
		return "", fmt.Errorf("unknown punch kind %q", s)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string, err error) {
	resp := ErrorResponse{Error: message, Code: code}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps engine errors to status codes and machine-readable
// reason strings.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case errors.Is(err, engine.ErrDuplicateRequest):
		writeError(w, http.StatusConflict, "duplicate_request", message, err)
	case errors.Is(err, engine.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid_transition", message, err)
	case errors.Is(err, engine.ErrInvalidConfig):
		writeError(w, http.StatusUnprocessableEntity, "invalid_config", message, err)
	case engine.IsNotFound(err):
		writeError(w, http.StatusNotFound, "not_found", message, err)
	default:
		writeError(w, http.StatusInternalServerError, "internal", message, err)
	}
}
