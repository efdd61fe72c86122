/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	data for testing and demos. Each scenario creates subjects, schedule
	configuration, and punches that demonstrate specific engine behaviors.

AVAILABLE SCENARIOS:

	standard-week:   Clean in/out pairs plus a late arrival and early leave
	overtime:        Authorized overtime beyond official end
	night-shift:     Overnight windows crossing midnight
	forgotten-out:   Missing out punch auto-closed at official end

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Apply schedule configuration via the factory
 3. Register subjects
 4. Insert backdated punches (RecordedAt = At, so the duplicate guard's
    receipt buckets never collide)
 5. Run a repair pass so past days are frozen into the ledger

USAGE VIA API:

	POST /api/scenarios/load
	{"id": "standard-week"}

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Error mapping and JSON helpers
  - factory/config.go: Schedule JSON documents
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/FluxxCC/OJTonTrack-sub001/engine"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "standard-week",
		Name:        "Standard Week",
		Description: "Clean punch pairs, one late arrival, one early leave",
	},
	{
		ID:          "overtime",
		Name:        "Authorized Overtime",
		Description: "Evening work past official end with an overtime grant",
	},
	{
		ID:          "night-shift",
		Name:        "Night Shift",
		Description: "Overnight windows whose end crosses midnight",
	},
	{
		ID:          "forgotten-out",
		Name:        "Forgotten Out",
		Description: "Missing out punch auto-closed at the official window end",
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	if h.currentScenario == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}

	for _, s := range scenarios {
		if s.ID == h.currentScenario {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}

	writeJSON(w, http.StatusOK, ScenarioDTO{
		ID:          h.currentScenario,
		Name:        h.currentScenario,
		Description: "Currently loaded scenario",
	})
}

// LoadScenario loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body", err)
		return
	}

	ctx := r.Context()

	// Reset first
	if err := h.Store.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "internal", "Failed to reset database", err)
		return
	}
	h.currentScenario = ""

	var err error
	switch req.ID {
	case "standard-week":
		err = h.loadStandardWeekScenario(ctx)
	case "overtime":
		err = h.loadOvertimeScenario(ctx)
	case "night-shift":
		err = h.loadNightShiftScenario(ctx)
	case "forgotten-out":
		err = h.loadForgottenOutScenario(ctx)
	default:
		writeError(w, http.StatusBadRequest, "bad_request", "Unknown scenario", nil)
		return
	}

	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal",
			fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}

	h.currentScenario = req.ID
	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ID})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func (h *Handler) loadStandardWeekScenario(ctx context.Context) error {
	if err := h.applyStandardSchedule(ctx); err != nil {
		return err
	}
	if err := h.seedSubject(ctx, "t-001", "sup-office", "Maria Santos"); err != nil {
		return err
	}

	loc := h.Service.Location()
	day := engine.CivilDateOf(time.Now().In(loc), loc).AddDays(-5)

	// Three clean days: full morning and afternoon.
	for i := 0; i < 3; i++ {
		d := day.AddDays(i)
		if err := h.seedDay(ctx, "t-001", d,
			punchAt("in", d, "07:55", loc),
			punchAt("out", d, "12:02", loc),
			punchAt("in", d, "12:58", loc),
			punchAt("out", d, "17:05", loc),
		); err != nil {
			return err
		}
	}

	// Late arrival: in at 08:30, so 30 minutes of the morning are unpaid.
	late := day.AddDays(3)
	if err := h.seedDay(ctx, "t-001", late,
		punchAt("in", late, "08:30", loc),
		punchAt("out", late, "12:00", loc),
	); err != nil {
		return err
	}

	// Early leave: out at 16:15 cuts the afternoon short.
	early := day.AddDays(4)
	if err := h.seedDay(ctx, "t-001", early,
		punchAt("in", early, "12:45", loc),
		punchAt("out", early, "16:15", loc),
	); err != nil {
		return err
	}

	return h.repairRange(ctx, day, early)
}

func (h *Handler) loadOvertimeScenario(ctx context.Context) error {
	if err := h.applyStandardSchedule(ctx); err != nil {
		return err
	}
	if err := h.seedSubject(ctx, "t-002", "sup-office", "Ben Reyes"); err != nil {
		return err
	}

	loc := h.Service.Location()
	day := engine.CivilDateOf(time.Now().In(loc), loc).AddDays(-2)

	// Grant covers 17:00-21:00; authorized punches run to 20:30 and the
	// full span counts, unclamped.
	grant := engine.OvertimeGrant{
		SubjectID: "t-002",
		Date:      day,
		Start:     engine.MustClockTime("17:00").On(day, loc),
		End:       engine.MustClockTime("21:00").On(day, loc),
	}
	if err := h.Store.PutOvertimeGrant(ctx, grant); err != nil {
		return err
	}

	in := punchAt("in", day, "17:10", loc)
	in.AuthorizedOvertime = true
	out := punchAt("out", day, "20:30", loc)
	out.AuthorizedOvertime = true

	if err := h.seedDay(ctx, "t-002", day,
		punchAt("in", day, "08:00", loc),
		punchAt("out", day, "12:00", loc),
		punchAt("in", day, "13:00", loc),
		punchAt("out", day, "17:00", loc),
		in, out,
	); err != nil {
		return err
	}

	return h.repairRange(ctx, day, day)
}

func (h *Handler) loadNightShiftScenario(ctx context.Context) error {
	// Overnight supervisor schedule: the last window ends at 02:00 next day.
	doc, err := h.Config.ParseDocument(`{
		"supervisors": {
			"sup-night": {
				"am_in": "14:00", "am_out": "18:00",
				"pm_in": "19:00", "pm_out": "23:00",
				"ot_in": "22:00", "ot_out": "02:00"
			}
		}
	}`)
	if err != nil {
		return err
	}
	if err := h.Config.Apply(ctx, h.Store, doc); err != nil {
		return err
	}
	if err := h.seedSubject(ctx, "t-003", "sup-night", "Lena Cruz"); err != nil {
		return err
	}

	loc := h.Service.Location()
	day := engine.CivilDateOf(time.Now().In(loc), loc).AddDays(-3)
	next := day.AddDays(1)

	// Evening session plus an overnight one: out lands on the next civil
	// day but freezes against the shift that started on day.
	if err := h.seedDay(ctx, "t-003", day,
		punchAt("in", day, "14:05", loc),
		punchAt("out", day, "18:00", loc),
		punchAt("in", day, "21:45", loc),
		punchAt("out", next, "01:30", loc),
	); err != nil {
		return err
	}

	return h.repairRange(ctx, day, next)
}

func (h *Handler) loadForgottenOutScenario(ctx context.Context) error {
	if err := h.applyStandardSchedule(ctx); err != nil {
		return err
	}
	if err := h.seedSubject(ctx, "t-004", "sup-office", "Igor Tan"); err != nil {
		return err
	}

	loc := h.Service.Location()
	day := engine.CivilDateOf(time.Now().In(loc), loc).AddDays(-1)

	// Morning pair is clean; the afternoon out was never punched. The day
	// summary auto-closes the afternoon at 17:00 because the day is past.
	return h.seedDay(ctx, "t-004", day,
		punchAt("in", day, "08:00", loc),
		punchAt("out", day, "12:00", loc),
		punchAt("in", day, "13:00", loc),
	)
}

// =============================================================================
// SEEDING HELPERS
// =============================================================================

func (h *Handler) applyStandardSchedule(ctx context.Context) error {
	return h.Store.SetGlobalConfig(ctx, engine.ShiftConfig{
		AMIn: "08:00", AMOut: "12:00",
		PMIn: "13:00", PMOut: "17:00",
		OTIn: "17:00", OTOut: "18:00",
	})
}

func (h *Handler) seedSubject(ctx context.Context, id, supervisor, name string) error {
	return h.Store.InsertSubject(ctx, engine.Subject{
		ID:           engine.SubjectID(id),
		SupervisorID: engine.SupervisorID(supervisor),
		Name:         name,
	})
}

func (h *Handler) seedDay(ctx context.Context, subject engine.SubjectID, _ engine.CivilDate, punches ...engine.Punch) error {
	for _, p := range punches {
		p.SubjectID = subject
		if err := h.Store.InsertPunch(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) repairRange(ctx context.Context, from, to engine.CivilDate) error {
	_, err := h.Service.RepairLedger(ctx, from, to)
	return err
}

// punchAt builds a backdated punch. RecordedAt equals the instant so the
// seeded history never trips the receipt-bucket constraint.
func punchAt(kind string, date engine.CivilDate, clock string, loc *time.Location) engine.Punch {
	at := engine.MustClockTime(clock).On(date, loc)
	return engine.Punch{
		ID:         engine.PunchID(uuid.NewString()),
		Kind:       engine.PunchKind(kind),
		At:         at,
		Status:     engine.StatusRaw,
		RecordedAt: at,
	}
}
