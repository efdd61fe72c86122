/*
summary.go - Read-side aggregation

PURPOSE:
  Dashboards and summaries re-run the schedule build, classification,
  pairing, and duration math over historical punches - but any frozen
  ledger entry found for a (subject, date, shift) key wins over live
  recomputation. Live math only fills the gaps no snapshot covers, so a
  later schedule edit can never retroactively change reported history.
*/
package attendance

import (
	"context"
	"errors"
	"time"

	"github.com/FluxxCC/OJTonTrack-sub001/engine"
)

// SessionSummary is one window's contribution to a day.
type SessionSummary struct {
	Window      engine.Window
	ShiftID     engine.ShiftID
	In          time.Time
	Out         time.Time
	VirtualOut  bool
	Hours       engine.Hours
	OfficialIn  time.Time
	OfficialOut time.Time

	// Frozen marks values read from a ledger snapshot rather than computed
	// live. Frozen hours are minute-rounded; live hours are not.
	Frozen bool
}

// DaySummary aggregates one subject-day.
type DaySummary struct {
	SubjectID engine.SubjectID
	Date      engine.CivilDate
	Sessions  []SessionSummary
	Total     engine.Hours
}

// DaySummary computes the billable picture of one subject-day.
func (s *Service) DaySummary(ctx context.Context, subjectID engine.SubjectID, date engine.CivilDate) (*DaySummary, error) {
	subject, err := s.deps.Subjects.GetSubject(ctx, subjectID)
	if err != nil {
		return nil, err
	}

	sched, _, err := s.resolver.Resolve(ctx, *subject, date)
	if err != nil {
		return nil, err
	}

	punches, err := s.deps.Punches.ListDayPunches(ctx, subjectID, date)
	if err != nil {
		return nil, err
	}

	entries, err := s.deps.Ledger.ListEntriesDay(ctx, subjectID, date)
	if err != nil {
		return nil, err
	}

	// Map frozen entries to their windows through the shift definitions
	// they were keyed with. Entries whose shift no longer resolves a window
	// still count; they just render without a window tag.
	frozenByWindow := map[engine.Window]engine.LedgerEntry{}
	var orphaned []engine.LedgerEntry
	for _, e := range entries {
		def, err := s.deps.Shifts.GetShift(ctx, e.ShiftID)
		if err != nil {
			if errors.Is(err, engine.ErrShiftNotFound) {
				orphaned = append(orphaned, e)
				continue
			}
			return nil, err
		}
		if def.Window == engine.WindowNone {
			orphaned = append(orphaned, e)
			continue
		}
		frozenByWindow[def.Window] = e
	}

	today := engine.CivilDateOf(s.deps.Now(), s.deps.Loc)
	sessions := engine.PairSessions(punches, sched, date.Before(today))

	summary := &DaySummary{SubjectID: subjectID, Date: date}
	for _, sess := range sessions.All() {
		if e, ok := frozenByWindow[sess.Window]; ok {
			summary.Sessions = append(summary.Sessions, frozenSummary(sess.Window, e, sess))
			delete(frozenByWindow, sess.Window)
			continue
		}
		start, end := sched.Bounds(sess.Window)
		summary.Sessions = append(summary.Sessions, SessionSummary{
			Window:      sess.Window,
			ShiftID:     sess.In.ShiftID,
			In:          sess.In.At,
			Out:         sess.Out.At,
			VirtualOut:  sess.VirtualOut,
			Hours:       engine.HoursFromDuration(engine.SessionDuration(sess, sched)),
			OfficialIn:  start,
			OfficialOut: end,
		})
	}

	// Snapshots with no live session underneath (punches edited away, or a
	// shift key that lost its window) still report their frozen hours.
	for w, e := range frozenByWindow {
		summary.Sessions = append(summary.Sessions, frozenSummary(w, e, engine.Session{}))
	}
	for _, e := range orphaned {
		summary.Sessions = append(summary.Sessions, frozenSummary(engine.WindowNone, e, engine.Session{}))
	}

	for _, sess := range summary.Sessions {
		summary.Total = summary.Total.Add(sess.Hours)
	}
	return summary, nil
}

func frozenSummary(w engine.Window, e engine.LedgerEntry, live engine.Session) SessionSummary {
	out := SessionSummary{
		Window:      w,
		ShiftID:     e.ShiftID,
		Hours:       e.Hours,
		OfficialIn:  e.OfficialIn,
		OfficialOut: e.OfficialOut,
		Frozen:      true,
	}
	if live.In.ID != "" {
		out.In = live.In.At
		out.Out = live.Out.At
		out.VirtualOut = live.VirtualOut
	}
	return out
}

// RangeSummary returns one DaySummary per civil day in [from, to].
func (s *Service) RangeSummary(ctx context.Context, subjectID engine.SubjectID, from, to engine.CivilDate) ([]DaySummary, error) {
	var out []DaySummary
	for d := from; !d.After(to); d = d.AddDays(1) {
		day, err := s.DaySummary(ctx, subjectID, d)
		if err != nil {
			return nil, err
		}
		out = append(out, *day)
	}
	return out, nil
}
