/*
Package factory provides JSON to Go schedule-configuration conversion.

PURPOSE:
  Converts JSON schedule documents into engine.ShiftConfig layers and
  overtime grants. This enables schedule configuration without code
  changes - coordinators can define shift windows in JSON, and the factory
  applies them to the configuration store.

WHY JSON?
  - Non-developers can modify schedules
  - Easy integration with admin UI
  - Version control for schedule definitions
  - Database storage of schedule configs

JSON SCHEMA:
  {
    "global": {"am_in": "08:00", "am_out": "12:00", "pm_in": "13:00", "pm_out": "17:00"},
    "supervisors": {
      "sup-lab": {"am_in": "09:00", "pm_out": "18:00"}
    },
    "dates": {
      "2026-06-12": {"am_out": "11:00"}
    },
    "overtime_grants": [
      {"subject_id": "t-001", "date": "2026-06-12",
       "start": "2026-06-12T17:00:00+08:00", "end": "2026-06-12T21:00:00+08:00"}
    ]
  }

KEY FEATURES:
  - Validates every HH:MM field before anything is written
  - Partial layers are legal; empty fields fall through at resolve time
  - Apply is all-or-nothing per document section

USAGE:
  factory := NewConfigFactory()

  doc, err := factory.ParseDocument(jsonString)
  if err != nil { ... }
  err = factory.Apply(ctx, store, doc)

SEE ALSO:
  - engine/schedule.go: ShiftConfig and layer resolution
  - engine/store.go: ConfigSource interface
*/
package factory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/FluxxCC/OJTonTrack-sub001/engine"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// ShiftConfigJSON is the JSON representation of one configuration layer.
// Every field is optional; empty fields fall through to the next layer.
type ShiftConfigJSON struct {
	AMIn  string `json:"am_in,omitempty"`
	AMOut string `json:"am_out,omitempty"`
	PMIn  string `json:"pm_in,omitempty"`
	PMOut string `json:"pm_out,omitempty"`
	OTIn  string `json:"ot_in,omitempty"`
	OTOut string `json:"ot_out,omitempty"`
}

// OvertimeGrantJSON is the JSON representation of an overtime authorization.
type OvertimeGrantJSON struct {
	SubjectID string `json:"subject_id,omitempty"` // empty means date-wide
	Date      string `json:"date"`
	Start     string `json:"start"` // RFC3339
	End       string `json:"end"`   // RFC3339
}

// ConfigDocument is a complete schedule-configuration document.
type ConfigDocument struct {
	Global         *ShiftConfigJSON           `json:"global,omitempty"`
	Supervisors    map[string]ShiftConfigJSON `json:"supervisors,omitempty"`
	Dates          map[string]ShiftConfigJSON `json:"dates,omitempty"`
	OvertimeGrants []OvertimeGrantJSON        `json:"overtime_grants,omitempty"`
}

// =============================================================================
// CONFIG WRITER - Storage surface the factory writes to
// =============================================================================

// ConfigWriter is the write side of the configuration layers. Both the
// SQLite store and the in-memory store satisfy it.
type ConfigWriter interface {
	SetGlobalConfig(ctx context.Context, cfg engine.ShiftConfig) error
	SetSupervisorConfig(ctx context.Context, supervisor engine.SupervisorID, cfg engine.ShiftConfig) error
	SetDateOverride(ctx context.Context, date engine.CivilDate, cfg engine.ShiftConfig) error
	PutOvertimeGrant(ctx context.Context, g engine.OvertimeGrant) error
}

// =============================================================================
// CONFIG FACTORY
// =============================================================================

// ConfigFactory converts JSON schedule documents to engine config layers.
type ConfigFactory struct{}

// NewConfigFactory creates a new config factory.
func NewConfigFactory() *ConfigFactory {
	return &ConfigFactory{}
}

// ParseDocument parses and validates a JSON document. Validation covers
// every HH:MM field and every grant, so a successful parse means Apply
// cannot fail on malformed input.
func (f *ConfigFactory) ParseDocument(jsonStr string) (*ConfigDocument, error) {
	var doc ConfigDocument
	if err := json.Unmarshal([]byte(jsonStr), &doc); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if doc.Global != nil {
		if err := validateConfig("global", *doc.Global); err != nil {
			return nil, err
		}
	}
	for sup, cj := range doc.Supervisors {
		if sup == "" {
			return nil, fmt.Errorf("%w: empty supervisor id", engine.ErrInvalidConfig)
		}
		if err := validateConfig("supervisor "+sup, cj); err != nil {
			return nil, err
		}
	}
	for date, cj := range doc.Dates {
		if _, err := engine.ParseCivilDate(date); err != nil {
			return nil, fmt.Errorf("%w: date override key %q", engine.ErrInvalidConfig, date)
		}
		if err := validateConfig("date "+date, cj); err != nil {
			return nil, err
		}
	}
	for i, gj := range doc.OvertimeGrants {
		if _, err := parseGrant(gj); err != nil {
			return nil, fmt.Errorf("overtime grant %d: %w", i, err)
		}
	}

	return &doc, nil
}

// Apply writes every layer of a validated document to the store.
func (f *ConfigFactory) Apply(ctx context.Context, w ConfigWriter, doc *ConfigDocument) error {
	if doc.Global != nil {
		if err := w.SetGlobalConfig(ctx, toConfig(*doc.Global)); err != nil {
			return fmt.Errorf("failed to apply global config: %w", err)
		}
	}
	for sup, cj := range doc.Supervisors {
		if err := w.SetSupervisorConfig(ctx, engine.SupervisorID(sup), toConfig(cj)); err != nil {
			return fmt.Errorf("failed to apply supervisor config %s: %w", sup, err)
		}
	}
	for date, cj := range doc.Dates {
		d, err := engine.ParseCivilDate(date)
		if err != nil {
			return err
		}
		if err := w.SetDateOverride(ctx, d, toConfig(cj)); err != nil {
			return fmt.Errorf("failed to apply date override %s: %w", date, err)
		}
	}
	for i, gj := range doc.OvertimeGrants {
		g, err := parseGrant(gj)
		if err != nil {
			return fmt.Errorf("overtime grant %d: %w", i, err)
		}
		if err := w.PutOvertimeGrant(ctx, *g); err != nil {
			return fmt.Errorf("failed to apply overtime grant %d: %w", i, err)
		}
	}
	return nil
}

// ToJSON converts an engine layer back to its JSON representation.
func (f *ConfigFactory) ToJSON(cfg engine.ShiftConfig) ShiftConfigJSON {
	return ShiftConfigJSON{
		AMIn:  cfg.AMIn,
		AMOut: cfg.AMOut,
		PMIn:  cfg.PMIn,
		PMOut: cfg.PMOut,
		OTIn:  cfg.OTIn,
		OTOut: cfg.OTOut,
	}
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

func toConfig(cj ShiftConfigJSON) engine.ShiftConfig {
	return engine.ShiftConfig{
		AMIn:  cj.AMIn,
		AMOut: cj.AMOut,
		PMIn:  cj.PMIn,
		PMOut: cj.PMOut,
		OTIn:  cj.OTIn,
		OTOut: cj.OTOut,
	}
}

func validateConfig(layer string, cj ShiftConfigJSON) error {
	fields := []struct {
		name  string
		value string
	}{
		{"am_in", cj.AMIn}, {"am_out", cj.AMOut},
		{"pm_in", cj.PMIn}, {"pm_out", cj.PMOut},
		{"ot_in", cj.OTIn}, {"ot_out", cj.OTOut},
	}
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		if _, err := engine.ParseClockTime(f.value); err != nil {
			return fmt.Errorf("%s layer, field %s: %w", layer, f.name, err)
		}
	}
	return nil
}

func parseGrant(gj OvertimeGrantJSON) (*engine.OvertimeGrant, error) {
	date, err := engine.ParseCivilDate(gj.Date)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid grant date %q", engine.ErrInvalidConfig, gj.Date)
	}
	start, err := time.Parse(time.RFC3339, gj.Start)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid grant start %q", engine.ErrInvalidConfig, gj.Start)
	}
	end, err := time.Parse(time.RFC3339, gj.End)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid grant end %q", engine.ErrInvalidConfig, gj.End)
	}
	if !end.After(start) {
		return nil, fmt.Errorf("%w: grant end must be after start", engine.ErrInvalidConfig)
	}
	return &engine.OvertimeGrant{
		SubjectID: engine.SubjectID(gj.SubjectID),
		Date:      date,
		Start:     start,
		End:       end,
	}, nil
}

// =============================================================================
// PRESET DOCUMENTS
// =============================================================================

// StandardScheduleJSON returns the default office schedule as a document:
// 08:00-12:00 mornings, 13:00-17:00 afternoons, 17:00-18:00 overtime.
func StandardScheduleJSON() string {
	return `{
		"global": {
			"am_in": "08:00", "am_out": "12:00",
			"pm_in": "13:00", "pm_out": "17:00",
			"ot_in": "17:00", "ot_out": "18:00"
		}
	}`
}

// NightShiftScheduleJSON returns a supervisor-level overnight schedule.
// The evening window crosses midnight; the engine anchors its end on the
// following day.
func NightShiftScheduleJSON(supervisor string) string {
	return fmt.Sprintf(`{
		"supervisors": {
			%q: {
				"am_in": "14:00", "am_out": "18:00",
				"pm_in": "19:00", "pm_out": "23:00",
				"ot_in": "22:00", "ot_out": "02:00"
			}
		}
	}`, supervisor)
}
