/*
freeze.go - Ledger freezing on completed out punches

PURPOSE:
  When a durable out punch is recorded, compute the final billable hours
  once and persist them as a LedgerEntry keyed by (subject, date, shift).
  From then on that snapshot is authoritative for all read-side
  aggregation, even if the live schedule configuration changes. Only an
  explicit administrative edit of the owning punches re-runs the
  computation and overwrites the entry.

STEPS (per out punch):
  1. Locate the most recent unfinished in on the same civil date.
  2. Authorized overtime: raw elapsed time, no clamping.
  3. Otherwise resolve the governing shift: the in punch's stored shift
     reference, else re-classify the in instant (legacy fallback).
  4. Shift resolved: clamp to its official boundaries (overnight rollover
     applied) and snapshot the exact boundaries used.
  5. No shift at all: raw elapsed time, seconds truncated. An unmatched
     punch still accrues hours rather than silently discarding them.
  6. Upsert the entry; an unresolved shift key lazily materializes the
     per-supervisor default shift definition (09:00-17:00).

FAILURE HANDLING:
  Callers recover freeze failures locally: the raw punch write already
  succeeded and is never rolled back. The ledger is a best-effort derived
  projection, rebuildable by the repair pass.

SEE ALSO:
  - duration.go: the clamping primitive
  - attendance/repair.go: the rebuild pass
*/
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"
)

// DefaultShiftStart and DefaultShiftEnd bound the lazily materialized
// per-supervisor default shift used when no governing shift resolves.
const (
	DefaultShiftStart = "09:00"
	DefaultShiftEnd   = "17:00"
)

// Freezer computes and persists ledger entries for completed out punches.
type Freezer struct {
	Punches  PunchStore
	Ledger   LedgerStore
	Shifts   ShiftStore
	Subjects SubjectStore
	Resolver *ScheduleResolver
	Loc      *time.Location

	// Now defaults to time.Now. Injected for tests.
	Now func() time.Time
}

// FreezeOut runs the freeze steps for an out punch. It returns the written
// entry, or nil when there is no open in punch to close. Idempotent: the
// same in/out pair freezes to an identical entry.
func (f *Freezer) FreezeOut(ctx context.Context, out Punch) (*LedgerEntry, error) {
	subject, err := f.Subjects.GetSubject(ctx, out.SubjectID)
	if err != nil {
		return nil, err
	}

	// The in punch normally shares the out's civil date. An overnight
	// session (window end rolled to the next day, see anchorWindow in
	// schedule.go) leaves its in on the previous date, so that date is
	// checked second and, when it hits, owns the ledger entry.
	date := CivilDateOf(out.At, f.Loc)
	in, err := f.openInOn(ctx, out, date)
	if err != nil {
		return nil, err
	}
	if in == nil {
		prev := date.AddDays(-1)
		in, err = f.openInOn(ctx, out, prev)
		if err != nil {
			return nil, err
		}
		if in != nil {
			date = prev
		}
	}
	if in == nil {
		return nil, nil
	}

	sched, cfg, err := f.Resolver.Resolve(ctx, *subject, date)
	if err != nil {
		return nil, err
	}

	var (
		span        time.Duration
		officialIn  = in.At
		officialOut = out.At
		shiftID     = in.ShiftID
	)

	switch {
	case in.AuthorizedOvertime:
		// Overtime is trusted end-to-end once authorized: raw span, and the
		// snapshot boundaries are the punch instants themselves.
		span = out.At.Sub(in.At)
		if shiftID == "" {
			if w := Classify(in.At, sched); w != WindowNone {
				shiftID, err = f.materializeWindowShift(ctx, subject.SupervisorID, w, cfg)
				if err != nil {
					return nil, err
				}
			}
		}

	default:
		var bounds *officialBounds
		bounds, shiftID, err = f.resolveGoverningShift(ctx, in, subject.SupervisorID, date, sched, cfg)
		if err != nil {
			return nil, err
		}
		if bounds != nil {
			span = ClampedDuration(in.At, out.At, bounds.start, bounds.end)
			officialIn, officialOut = bounds.start, bounds.end
		} else {
			// No governing shift: documented fallback, not an error. Logged so
			// misconfigured shifts leaking unclamped hours can be audited.
			span = RawElapsed(in.At, out.At)
			log.Printf("engine: no governing shift for punch %s (subject %s); accruing raw elapsed time", in.ID, in.SubjectID)
		}
	}

	if shiftID == "" {
		shiftID, err = f.materializeDefaultShift(ctx, subject.SupervisorID)
		if err != nil {
			return nil, err
		}
	}

	now := time.Now()
	if f.Now != nil {
		now = f.Now()
	}
	entry := LedgerEntry{
		SubjectID:   out.SubjectID,
		Date:        date,
		ShiftID:     shiftID,
		Hours:       HoursFromDuration(span).RoundToMinute(),
		OfficialIn:  officialIn,
		OfficialOut: officialOut,
		FrozenAt:    now,
	}
	if err := f.Ledger.UpsertEntry(ctx, entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

type officialBounds struct {
	start, end time.Time
}

// resolveGoverningShift prefers the stored shift reference, then falls back
// to re-classifying the in instant against the live schedule. Returns nil
// bounds when nothing resolves.
func (f *Freezer) resolveGoverningShift(ctx context.Context, in *Punch, supervisor SupervisorID, date CivilDate, sched DaySchedule, cfg ResolvedShiftConfig) (*officialBounds, ShiftID, error) {
	if in.ShiftID != "" {
		def, err := f.Shifts.GetShift(ctx, in.ShiftID)
		switch {
		case err == nil:
			start, end := anchorWindow(date, def.Start, def.End, f.Loc)
			return &officialBounds{start: start, end: end}, def.ID, nil
		case errors.Is(err, ErrShiftNotFound):
			// Dangling reference; fall through to classification.
		default:
			return nil, "", err
		}
	}

	w := Classify(in.At, sched)
	if w == WindowNone {
		return nil, in.ShiftID, nil
	}
	start, end := sched.Bounds(w)
	id, err := f.materializeWindowShift(ctx, supervisor, w, cfg)
	if err != nil {
		return nil, "", err
	}
	return &officialBounds{start: start, end: end}, id, nil
}

// materializeWindowShift ensures a stable per-supervisor definition exists
// for a classified window, so classification-resolved freezes get the same
// ledger key on every retry.
func (f *Freezer) materializeWindowShift(ctx context.Context, supervisor SupervisorID, w Window, cfg ResolvedShiftConfig) (ShiftID, error) {
	var start, end ClockTime
	switch w {
	case WindowAM:
		start, end = cfg.AMIn, cfg.AMOut
	case WindowPM:
		start, end = cfg.PMIn, cfg.PMOut
	case WindowOT:
		start, end = cfg.OTIn, cfg.OTOut
	}
	def := ShiftDefinition{
		ID:           ShiftID(fmt.Sprintf("%s-%s", supervisor, w)),
		SupervisorID: supervisor,
		Window:       w,
		Name:         fmt.Sprintf("%s shift", w),
		Start:        start,
		End:          end,
	}
	if err := f.Shifts.EnsureShift(ctx, def); err != nil {
		return "", err
	}
	return def.ID, nil
}

// materializeDefaultShift lazily creates (or reuses) the per-supervisor
// default definition so every ledger row has a stable key.
func (f *Freezer) materializeDefaultShift(ctx context.Context, supervisor SupervisorID) (ShiftID, error) {
	def := ShiftDefinition{
		ID:           ShiftID(fmt.Sprintf("default-%s", supervisor)),
		SupervisorID: supervisor,
		Window:       WindowNone,
		Name:         "default shift",
		Start:        MustClockTime(DefaultShiftStart),
		End:          MustClockTime(DefaultShiftEnd),
	}
	if err := f.Shifts.EnsureShift(ctx, def); err != nil {
		return "", err
	}
	return def.ID, nil
}

// openInOn loads one civil day's punches and finds the most recent
// unfinished in preceding the out punch.
func (f *Freezer) openInOn(ctx context.Context, out Punch, date CivilDate) (*Punch, error) {
	punches, err := f.Punches.ListDayPunches(ctx, out.SubjectID, date)
	if err != nil {
		return nil, err
	}
	return openInBefore(punches, out), nil
}

// openInBefore finds the most recent in punch preceding out that no other
// out punch has already closed. punches must be sorted ascending.
func openInBefore(punches []Punch, out Punch) *Punch {
	var open *Punch
	for i := range punches {
		p := punches[i]
		if p.ID == out.ID || !p.At.Before(out.At) {
			continue
		}
		switch p.Kind {
		case KindIn:
			open = &punches[i]
		case KindOut:
			open = nil
		}
	}
	return open
}
