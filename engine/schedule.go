/*
schedule.go - Shift configuration resolution and day-schedule construction

PURPOSE:
  Turns textual "HH:MM" shift configuration into absolute start/end instants
  for one calendar day. Two stages:

  1. ResolveShiftConfig: collapse the configuration layers (per-date override,
     per-supervisor, institution-wide, hard default) into one immutable
     ResolvedShiftConfig, field by field. Mixed partial overrides are legal.
  2. BuildDaySchedule: anchor the resolved clock times to a civil date in the
     business timezone, rolling a window's end to the next day when its
     configured end is numerically <= its start (overnight shifts).

PRECEDENCE (highest first):
  date override > supervisor config > global config > hard default

OVERTIME:
  A date-level OvertimeGrant carries explicit absolute instants and replaces
  the configured otIn/otOut entirely.

SEE ALSO:
  - clock.go: ClockTime parsing, CivilDate anchoring
  - classify.go: consumes the built DaySchedule
*/
package engine

import "time"

// =============================================================================
// SHIFT CONFIG - Textual layer, possibly partial
// =============================================================================

// ShiftConfig is one configuration layer: six textual HH:MM fields, any of
// which may be empty. Empty fields fall through to the next layer.
type ShiftConfig struct {
	AMIn  string
	AMOut string
	PMIn  string
	PMOut string
	OTIn  string
	OTOut string
}

// IsZero reports whether no field is set.
func (c ShiftConfig) IsZero() bool { return c == ShiftConfig{} }

// Hard defaults, used when every configuration layer leaves a field empty.
const (
	DefaultAMIn  = "08:00"
	DefaultAMOut = "12:00"
	DefaultPMIn  = "13:00"
	DefaultPMOut = "17:00"
	DefaultOTIn  = "17:00"
	DefaultOTOut = "18:00"
)

// ResolvedShiftConfig is the immutable result of collapsing all layers.
// Every field is set. It is assembled once per request and never mutated
// mid-computation.
type ResolvedShiftConfig struct {
	AMIn  ClockTime
	AMOut ClockTime
	PMIn  ClockTime
	PMOut ClockTime
	OTIn  ClockTime
	OTOut ClockTime
}

// DefaultShiftConfig returns the hard-coded fallback schedule
// (08:00-12:00, 13:00-17:00, 17:00-18:00).
func DefaultShiftConfig() ResolvedShiftConfig {
	cfg, _ := ResolveShiftConfig()
	return cfg
}

// ResolveShiftConfig collapses configuration layers, highest precedence
// first, into a ResolvedShiftConfig. Each field resolves independently: the
// first layer that sets it wins, and absence at every layer falls back to
// the hard default for that field alone. A field that is present but
// malformed fails the whole resolution with ErrInvalidConfig.
func ResolveShiftConfig(layers ...ShiftConfig) (ResolvedShiftConfig, error) {
	fields := []struct {
		name     string
		fallback string
		pick     func(ShiftConfig) string
		assign   func(*ResolvedShiftConfig, ClockTime)
	}{
		{"amIn", DefaultAMIn, func(c ShiftConfig) string { return c.AMIn }, func(r *ResolvedShiftConfig, t ClockTime) { r.AMIn = t }},
		{"amOut", DefaultAMOut, func(c ShiftConfig) string { return c.AMOut }, func(r *ResolvedShiftConfig, t ClockTime) { r.AMOut = t }},
		{"pmIn", DefaultPMIn, func(c ShiftConfig) string { return c.PMIn }, func(r *ResolvedShiftConfig, t ClockTime) { r.PMIn = t }},
		{"pmOut", DefaultPMOut, func(c ShiftConfig) string { return c.PMOut }, func(r *ResolvedShiftConfig, t ClockTime) { r.PMOut = t }},
		{"otIn", DefaultOTIn, func(c ShiftConfig) string { return c.OTIn }, func(r *ResolvedShiftConfig, t ClockTime) { r.OTIn = t }},
		{"otOut", DefaultOTOut, func(c ShiftConfig) string { return c.OTOut }, func(r *ResolvedShiftConfig, t ClockTime) { r.OTOut = t }},
	}

	var resolved ResolvedShiftConfig
	for _, f := range fields {
		text := f.fallback
		for _, layer := range layers {
			if v := f.pick(layer); v != "" {
				text = v
				break
			}
		}
		ct, err := ParseClockTime(text)
		if err != nil {
			if ice, ok := err.(*InvalidConfigError); ok {
				ice.Field = f.name
			}
			return ResolvedShiftConfig{}, err
		}
		f.assign(&resolved, ct)
	}
	return resolved, nil
}

// =============================================================================
// OVERTIME GRANT - Date-level authorization with explicit instants
// =============================================================================

// OvertimeGrant authorizes overtime for one date with explicit absolute
// start/end instants. It overrides the configured otIn/otOut entirely.
type OvertimeGrant struct {
	SubjectID SubjectID // empty means the grant applies supervisor-wide
	Date      CivilDate
	Start     time.Time
	End       time.Time
}

// =============================================================================
// DAY SCHEDULE - Absolute instants for one calendar day
// =============================================================================

// DaySchedule holds the six absolute window boundaries of one civil day.
// It is recomputed fresh for every day; configuration may vary per date and
// per owning supervisor, so schedules are never cached across days.
type DaySchedule struct {
	Date CivilDate

	AMIn    time.Time
	AMOut   time.Time
	PMIn    time.Time
	PMOut   time.Time
	OTStart time.Time
	OTEnd   time.Time
}

// BuildDaySchedule anchors the resolved configuration to a civil date in
// loc. A window whose configured end is numerically <= its start crosses
// midnight: its end instant lands on the next calendar day.
func BuildDaySchedule(date CivilDate, cfg ResolvedShiftConfig, grant *OvertimeGrant, loc *time.Location) DaySchedule {
	sched := DaySchedule{Date: date}
	sched.AMIn, sched.AMOut = anchorWindow(date, cfg.AMIn, cfg.AMOut, loc)
	sched.PMIn, sched.PMOut = anchorWindow(date, cfg.PMIn, cfg.PMOut, loc)
	sched.OTStart, sched.OTEnd = anchorWindow(date, cfg.OTIn, cfg.OTOut, loc)

	if grant != nil {
		sched.OTStart = grant.Start
		sched.OTEnd = grant.End
	}
	return sched
}

// anchorWindow converts one start/end clock-time pair into instants,
// rolling the end to the next day for overnight windows.
func anchorWindow(date CivilDate, start, end ClockTime, loc *time.Location) (time.Time, time.Time) {
	startAt := start.On(date, loc)
	endAt := end.On(date, loc)
	if end.Minutes <= start.Minutes {
		endAt = end.On(date.AddDays(1), loc)
	}
	return startAt, endAt
}

// Bounds returns the official start/end instants of window w.
func (s DaySchedule) Bounds(w Window) (start, end time.Time) {
	switch w {
	case WindowAM:
		return s.AMIn, s.AMOut
	case WindowPM:
		return s.PMIn, s.PMOut
	case WindowOT:
		return s.OTStart, s.OTEnd
	}
	return time.Time{}, time.Time{}
}
