/*
duration.go - The single clamping primitive

PURPOSE:
  Computes how much billable time a paired in/out contributes under
  official-time clamping:

      max(0, min(out, officialOut) - max(in, officialIn))

  Every clamped computation in the system goes through ClampedDuration; a
  session that starts early or ends late is clamped to the official window,
  a session fully inside counts its full span, and a session fully outside
  yields zero.

ROUNDING:
  Stored ledger values are rounded to the nearest whole minute at freeze
  time (Hours.RoundToMinute). Live display values are not rounded.
*/
package engine

import "time"

// ClampedDuration returns the non-negative overlap of [in, out] with the
// official interval [officialIn, officialOut].
func ClampedDuration(in, out, officialIn, officialOut time.Time) time.Duration {
	start := in
	if officialIn.After(start) {
		start = officialIn
	}
	end := out
	if officialOut.Before(end) {
		end = officialOut
	}
	if !end.After(start) {
		return 0
	}
	return end.Sub(start)
}

// RawElapsed returns the unclamped span between in and out with seconds
// truncated to zero. This is the fallback accrual for punches that resolve
// no governing shift: misconfigured shifts must not silently discard
// trainee time.
func RawElapsed(in, out time.Time) time.Duration {
	if !out.After(in) {
		return 0
	}
	return out.Sub(in).Truncate(time.Minute)
}

// SessionDuration computes the billable span of a paired session against a
// day schedule. Authorized overtime is trusted end-to-end: its duration is
// the raw elapsed time with no clamping.
func SessionDuration(s Session, sched DaySchedule) time.Duration {
	if s.In.AuthorizedOvertime {
		return s.Out.At.Sub(s.In.At)
	}
	start, end := sched.Bounds(s.Window)
	return ClampedDuration(s.In.At, s.Out.At, start, end)
}
