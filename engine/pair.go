/*
pair.go - Session pairing over one subject-day

PURPOSE:
  Greedily assigns a day's "in" punches to shift windows and finds each one's
  matching "out" punch, producing up to three transient Sessions (am, pm,
  ot). For past days, an in punch with no qualifying out gets a synthesized
  virtual out at the window's official end, so historical aggregation never
  shows a dangling open session. Virtual outs are never synthesized for the
  current day: an open session today is simply active.

RULES:
  - An in punch fills the first unfilled window it is a member of, in am,
    pm, ot order. A punch flagged authorized-overtime is matched against the
    overtime window only, regardless of any date-level grant.
  - An out qualifies when it occurs after the in, before the next filled
    window's in (end of day if none), and is a member of the same window.
  - When several outs qualify, the latest one stands; a trainee may punch
    out erroneously and re-punch.

SEE ALSO:
  - classify.go: window membership
  - freeze.go: the write-side pairing (most recent unfinished in) is
    intentionally simpler and lives there
*/
package engine

import "time"

// PairSessions pairs one subject-day's punches against the day schedule.
// punches must be sorted by instant ascending. dayInPast enables virtual
// out synthesis.
func PairSessions(punches []Punch, sched DaySchedule, dayInPast bool) DaySessions {
	used := make([]bool, len(punches))

	// Step 1: assign ins to windows.
	type opening struct {
		window Window
		in     int // index into punches
	}
	var openings []opening
	filled := map[Window]bool{}

	for i, p := range punches {
		if p.Kind != KindIn || used[i] {
			continue
		}
		allowed := windowOrder
		if p.AuthorizedOvertime {
			allowed = []Window{WindowOT}
		}
		for _, w := range allowed {
			if filled[w] {
				continue
			}
			if classifyAmong(p.At, sched, []Window{w}) != w {
				continue
			}
			filled[w] = true
			used[i] = true
			openings = append(openings, opening{window: w, in: i})
			break
		}
	}

	// Step 2: find each in's out. The search is bounded by the next filled
	// window's in so an out punched for the afternoon never closes the
	// morning session.
	sessions := DaySessions{}
	for oi, o := range openings {
		in := punches[o.in]

		var boundary time.Time // zero = end of day
		if oi+1 < len(openings) {
			boundary = punches[openings[oi+1].in].At
		}

		best := -1
		for j, p := range punches {
			if p.Kind != KindOut || used[j] {
				continue
			}
			if !p.At.After(in.At) {
				continue
			}
			if !boundary.IsZero() && !p.At.Before(boundary) {
				continue
			}
			if classifyAmong(p.At, sched, []Window{o.window}) != o.window {
				continue
			}
			if best == -1 || p.At.After(punches[best].At) {
				best = j
			}
		}

		sess := Session{Window: o.window, In: in}
		switch {
		case best >= 0:
			used[best] = true
			sess.Out = punches[best]
		case dayInPast:
			sess.Out = synthesizeOut(in, sched, o.window)
			sess.VirtualOut = true
		default:
			// Open session on the current day: not a pairable session yet.
			continue
		}
		sessions.set(o.window, sess)
	}
	return sessions
}

// synthesizeOut builds the virtual auto-close punch for a past day's
// unclosed session: the window's official end, or in+1m when the official
// end is not after the in.
func synthesizeOut(in Punch, sched DaySchedule, w Window) Punch {
	_, end := sched.Bounds(w)
	if !end.After(in.At) {
		end = in.At.Add(time.Minute)
	}
	return Punch{
		SubjectID:   in.SubjectID,
		Kind:        KindOut,
		At:          end,
		ShiftID:     in.ShiftID,
		Status:      StatusRaw,
		ValidatorID: AutoCloseValidator,
	}
}

func (d *DaySessions) set(w Window, s Session) {
	switch w {
	case WindowAM:
		d.AM = &s
	case WindowPM:
		d.PM = &s
	case WindowOT:
		d.OT = &s
	}
}
