/*
Package attendance is the domain layer over the time-accounting engine.

It owns the write-side orchestration of one punch request (duplicate guard,
durable punch write, best-effort ledger freeze, fire-and-forget
notification), the read-side aggregation that prefers frozen snapshots over
live recomputation, the supervisor validation workflow, and the ledger
repair pass.
*/
package attendance

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/FluxxCC/OJTonTrack-sub001/engine"
)

// Deps wires the service to storage and delivery.
type Deps struct {
	Punches  engine.PunchStore
	Ledger   engine.LedgerStore
	Shifts   engine.ShiftStore
	Subjects engine.SubjectStore
	Config   engine.ConfigSource
	Sink     engine.NotificationSink

	// Loc defaults to the UTC+8 business offset.
	Loc *time.Location

	// Now defaults to time.Now. Injected for tests.
	Now func() time.Time
}

// Service processes punches and serves attendance summaries.
type Service struct {
	deps     Deps
	guard    *engine.DuplicateGuard
	freezer  *engine.Freezer
	resolver *engine.ScheduleResolver
}

func NewService(deps Deps) *Service {
	if deps.Loc == nil {
		deps.Loc = engine.FixedOffsetLocation(engine.DefaultOffsetHours)
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	resolver := &engine.ScheduleResolver{Config: deps.Config, Loc: deps.Loc}
	return &Service{
		deps:     deps,
		guard:    &engine.DuplicateGuard{Punches: deps.Punches, Now: deps.Now},
		resolver: resolver,
		freezer: &engine.Freezer{
			Punches:  deps.Punches,
			Ledger:   deps.Ledger,
			Shifts:   deps.Shifts,
			Subjects: deps.Subjects,
			Resolver: resolver,
			Loc:      deps.Loc,
			Now:      deps.Now,
		},
	}
}

// Location returns the business timezone the service computes in.
func (s *Service) Location() *time.Location { return s.deps.Loc }

// =============================================================================
// PUNCH INGESTION
// =============================================================================

// RecordPunchInput is the ingestion-boundary contract for one punch.
type RecordPunchInput struct {
	SubjectID engine.SubjectID
	Kind      engine.PunchKind

	// At is the claimed instant; zero means server receipt time.
	At time.Time

	AuthorizedOvertime bool
	ShiftID            engine.ShiftID

	// ValidatorID marks a manually-entered record.
	ValidatorID string

	// EvidenceRef is an opaque media reference, stored untouched.
	EvidenceRef string
}

// RecordPunchResult reports the durable outcome of an accepted punch.
type RecordPunchResult struct {
	PunchID engine.PunchID

	// ComputedHours is set when an out punch froze a ledger entry in the
	// same request. Nil for in punches and for recovered freeze failures.
	ComputedHours *engine.Hours
}

// RecordPunch runs the single-punch pipeline: subject lookup, duplicate
// guard, durable punch write, and - for out punches - the ledger freeze.
// The punch write must succeed for the request to be acknowledged; the
// freeze and the notification are best-effort and never fail the request.
func (s *Service) RecordPunch(ctx context.Context, in RecordPunchInput) (*RecordPunchResult, error) {
	if _, err := s.deps.Subjects.GetSubject(ctx, in.SubjectID); err != nil {
		return nil, err
	}

	if err := s.guard.Check(ctx, in.SubjectID, in.Kind); err != nil {
		return nil, err
	}

	now := s.deps.Now()
	at := in.At
	if at.IsZero() {
		at = now
	}

	punch := engine.Punch{
		ID:                 engine.PunchID(uuid.NewString()),
		SubjectID:          in.SubjectID,
		Kind:               in.Kind,
		At:                 at,
		AuthorizedOvertime: in.AuthorizedOvertime,
		ShiftID:            in.ShiftID,
		Status:             engine.StatusRaw,
		ValidatorID:        in.ValidatorID,
		EvidenceRef:        in.EvidenceRef,
		RecordedAt:         now,
	}
	if err := s.deps.Punches.InsertPunch(ctx, punch); err != nil {
		return nil, err
	}

	result := &RecordPunchResult{PunchID: punch.ID}

	if punch.Kind == engine.KindOut {
		// The punch is the durable fact; the ledger is a derived projection.
		// Freeze failures are logged and recovered, never propagated.
		entry, err := s.freezer.FreezeOut(ctx, punch)
		switch {
		case err != nil:
			log.Printf("attendance: freeze failed for punch %s (subject %s): %v", punch.ID, punch.SubjectID, err)
		case entry != nil:
			h := entry.Hours
			result.ComputedHours = &h
		}
	}

	if s.deps.Sink != nil {
		ev := engine.PunchEvent{SubjectID: punch.SubjectID, Kind: punch.Kind, At: punch.At}
		if err := s.deps.Sink.PunchRecorded(ctx, ev); err != nil {
			log.Printf("attendance: notification dispatch failed for subject %s: %v", punch.SubjectID, err)
		}
	}

	return result, nil
}

// =============================================================================
// LOG SINK - Default notification sink
// =============================================================================

// LogSink writes punch events to the standard logger. It stands in for a
// real delivery channel; the engine only observes the outcome.
type LogSink struct{}

func (LogSink) PunchRecorded(_ context.Context, ev engine.PunchEvent) error {
	log.Printf("attendance: %s punch recorded for subject %s at %s", ev.Kind, ev.SubjectID, ev.At.Format(time.RFC3339))
	return nil
}
