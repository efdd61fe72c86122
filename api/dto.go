/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

TYPES:
  Subject:
    SubjectDTO, CreateSubjectRequest

  Punch:
    RecordPunchRequest, RecordPunchResponse, PunchDTO,
    AdjustPunchRequest, ValidatePunchRequest

  Summary:
    DaySummaryDTO, SessionDTO, RangeSummaryDTO

  Config:
    Re-uses factory.ShiftConfigJSON and factory.ConfigDocument

  Scenarios:
    ScenarioDTO, LoadScenarioRequest

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/config.go: ShiftConfigJSON and ConfigDocument types
*/
package api

import (
	"time"

	"github.com/FluxxCC/OJTonTrack-sub001/attendance"
	"github.com/FluxxCC/OJTonTrack-sub001/engine"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// SubjectDTO represents a trainee in API responses.
type SubjectDTO struct {
	ID           string `json:"id"`
	SupervisorID string `json:"supervisor_id"`
	Name         string `json:"name"`
}

// CreateSubjectRequest is the request to register a trainee.
type CreateSubjectRequest struct {
	ID           string `json:"id"`
	SupervisorID string `json:"supervisor_id"`
	Name         string `json:"name"`
}

// RecordPunchRequest is the request to record a clock-in or clock-out.
type RecordPunchRequest struct {
	SubjectID string `json:"subject_id"`
	Kind      string `json:"kind"` // "in" or "out"

	// At is the claimed instant (RFC3339). Empty means server receipt time.
	At string `json:"at,omitempty"`

	AuthorizedOvertime bool   `json:"authorized_overtime,omitempty"`
	ShiftID            string `json:"shift_id,omitempty"`
	ValidatorID        string `json:"validator_id,omitempty"`
	EvidenceRef        string `json:"evidence_ref,omitempty"`
}

// RecordPunchResponse is the response after a punch is durably recorded.
type RecordPunchResponse struct {
	PunchID string `json:"punch_id"`

	// ComputedHours is present when an out punch froze hours in the same
	// request. Absent for in punches and recovered freeze failures.
	ComputedHours *float64 `json:"computed_hours,omitempty"`
}

// PunchDTO represents a punch record.
type PunchDTO struct {
	ID                 string `json:"id"`
	SubjectID          string `json:"subject_id"`
	Kind               string `json:"kind"`
	At                 string `json:"at"`
	AuthorizedOvertime bool   `json:"authorized_overtime,omitempty"`
	ShiftID            string `json:"shift_id,omitempty"`
	Status             string `json:"status"`
	ValidatorID        string `json:"validator_id,omitempty"`
	EvidenceRef        string `json:"evidence_ref,omitempty"`
	RecordedAt         string `json:"recorded_at"`
}

// ValidatePunchRequest carries the acting validator for a status change.
type ValidatePunchRequest struct {
	ValidatorID string `json:"validator_id"`
}

// AdjustPunchRequest is an administrative punch correction. Empty fields
// keep the current value.
type AdjustPunchRequest struct {
	At          string `json:"at,omitempty"` // RFC3339
	Kind        string `json:"kind,omitempty"`
	ValidatorID string `json:"validator_id"`
}

// SessionDTO represents one window's contribution to a day.
type SessionDTO struct {
	Window      string  `json:"window"`
	ShiftID     string  `json:"shift_id,omitempty"`
	In          string  `json:"in,omitempty"`
	Out         string  `json:"out,omitempty"`
	VirtualOut  bool    `json:"virtual_out,omitempty"`
	Hours       float64 `json:"hours"`
	OfficialIn  string  `json:"official_in,omitempty"`
	OfficialOut string  `json:"official_out,omitempty"`
	Frozen      bool    `json:"frozen"`
}

// DaySummaryDTO represents the billable picture of one subject-day.
type DaySummaryDTO struct {
	SubjectID string       `json:"subject_id"`
	Date      string       `json:"date"`
	Sessions  []SessionDTO `json:"sessions"`
	Total     float64      `json:"total_hours"`
}

// RangeSummaryDTO wraps a multi-day summary with its grand total.
type RangeSummaryDTO struct {
	SubjectID string          `json:"subject_id"`
	From      string          `json:"from"`
	To        string          `json:"to"`
	Days      []DaySummaryDTO `json:"days"`
	Total     float64         `json:"total_hours"`
}

// OvertimeGrantRequest authorizes overtime for one subject-date.
type OvertimeGrantRequest struct {
	SubjectID string `json:"subject_id,omitempty"` // empty means date-wide
	Date      string `json:"date"`
	Start     string `json:"start"` // RFC3339
	End       string `json:"end"`   // RFC3339
}

// RepairRequest is the request to re-freeze a date range.
type RepairRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// RepairResponse reports the outcome of a repair pass.
type RepairResponse struct {
	SubjectsScanned int `json:"subjects_scanned"`
	EntriesFrozen   int `json:"entries_frozen"`
	Failures        int `json:"failures"`
}

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest selects a demo scenario by id.
type LoadScenarioRequest struct {
	ID string `json:"id"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toPunchDTO(p engine.Punch) PunchDTO {
	return PunchDTO{
		ID:                 string(p.ID),
		SubjectID:          string(p.SubjectID),
		Kind:               string(p.Kind),
		At:                 p.At.Format(time.RFC3339),
		AuthorizedOvertime: p.AuthorizedOvertime,
		ShiftID:            string(p.ShiftID),
		Status:             string(p.Status),
		ValidatorID:        p.ValidatorID,
		EvidenceRef:        p.EvidenceRef,
		RecordedAt:         p.RecordedAt.Format(time.RFC3339),
	}
}

func toSessionDTO(s attendance.SessionSummary) SessionDTO {
	dto := SessionDTO{
		Window:  string(s.Window),
		ShiftID: string(s.ShiftID),
		Hours:   s.Hours.Float64(),
		Frozen:  s.Frozen,
	}
	if !s.In.IsZero() {
		dto.In = s.In.Format(time.RFC3339)
	}
	if !s.Out.IsZero() {
		dto.Out = s.Out.Format(time.RFC3339)
		dto.VirtualOut = s.VirtualOut
	}
	if !s.OfficialIn.IsZero() {
		dto.OfficialIn = s.OfficialIn.Format(time.RFC3339)
	}
	if !s.OfficialOut.IsZero() {
		dto.OfficialOut = s.OfficialOut.Format(time.RFC3339)
	}
	return dto
}

func toDaySummaryDTO(d attendance.DaySummary) DaySummaryDTO {
	sessions := make([]SessionDTO, len(d.Sessions))
	for i, s := range d.Sessions {
		sessions[i] = toSessionDTO(s)
	}
	return DaySummaryDTO{
		SubjectID: string(d.SubjectID),
		Date:      d.Date.String(),
		Sessions:  sessions,
		Total:     d.Total.Float64(),
	}
}
