/*
classify.go - Shift window classification with the grace buffer

PURPOSE:
  Decides which shift window (am, pm, ot) a punch instant belongs to. A
  punch belongs to a window when it falls at or after the window's official
  start minus the 30-minute grace buffer, and at or before the official end.

PRIORITY:
  Windows are evaluated in the literal order am, pm, ot; the first match
  wins. Legitimate configurations do not overlap within the buffer-extended
  ranges, and when a broken one does, am takes priority by evaluation order
  rather than by accident of iteration. The order is a package-level slice
  so the tie-break is visible and testable.
*/
package engine

import "time"

// ClassifyBuffer is the grace period before a window's official start during
// which an early punch still counts as belonging to that window.
const ClassifyBuffer = 30 * time.Minute

// windowOrder is the explicit evaluation order. First match wins.
var windowOrder = []Window{WindowAM, WindowPM, WindowOT}

// Classify returns the window the instant belongs to, or WindowNone.
// A WindowNone punch is outside any configured window; it stays stored but
// no session pairing consumes it.
func Classify(at time.Time, sched DaySchedule) Window {
	return classifyAmong(at, sched, windowOrder)
}

// classifyAmong restricts classification to a subset of windows, still in
// priority order. The pairer uses this to match authorized-overtime punches
// against an overtime-only sub-schedule.
func classifyAmong(at time.Time, sched DaySchedule, allowed []Window) Window {
	for _, w := range allowed {
		start, end := sched.Bounds(w)
		if !at.Before(start.Add(-ClassifyBuffer)) && !at.After(end) {
			return w
		}
	}
	return WindowNone
}
