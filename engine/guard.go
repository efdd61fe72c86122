/*
guard.go - Duplicate punch guard

PURPOSE:
  Rejects a punch when an equivalent one (same subject, same kind) was
  persisted within the trailing window of server receipt time. This absorbs
  double-tap submissions and network retries.

CONSISTENCY:
  The check-then-insert here is best-effort: two requests racing inside the
  window can both pass before either commits. The SQLite store hardens this
  with a unique index on (subject, kind, 15s-bucket of recorded_at) and
  surfaces violations as the same ErrDuplicateRequest, so under true
  concurrency the stricter behavior wins.
*/
package engine

import (
	"context"
	"time"
)

// GuardWindow is the trailing window within which a same-kind punch counts
// as a duplicate.
const GuardWindow = 15 * time.Second

// DuplicateGuard checks new punches against recently persisted ones.
type DuplicateGuard struct {
	Punches PunchStore

	// Window defaults to GuardWindow when zero.
	Window time.Duration

	// Now defaults to time.Now. Injected for tests.
	Now func() time.Time
}

// Check returns ErrDuplicateRequest (wrapped with context) when a punch of
// the same kind for the same subject was recorded within the trailing
// window of now. The window is measured against server receipt time, not
// the candidate's claimed instant.
func (g *DuplicateGuard) Check(ctx context.Context, subject SubjectID, kind PunchKind) error {
	window := g.Window
	if window == 0 {
		window = GuardWindow
	}
	now := time.Now()
	if g.Now != nil {
		now = g.Now()
	}

	prev, err := g.Punches.LastRecorded(ctx, subject, kind, now.Add(-window))
	if err != nil {
		return err
	}
	if prev != nil {
		return &DuplicateRequestError{SubjectID: subject, Kind: kind, Within: window}
	}
	return nil
}

// DuplicateBucket returns the 15-second bucket of a receipt instant. Storage
// layers that enforce uniqueness on (subject, kind, bucket) use this as the
// bucketing function so guard and constraint agree on the window.
func DuplicateBucket(recordedAt time.Time) int64 {
	return recordedAt.Unix() / int64(GuardWindow/time.Second)
}
