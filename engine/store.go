/*
store.go - Persistence interfaces for punches, ledger entries, and config

PURPOSE:
  Defines the boundary between the computation engine and storage. The
  engine treats configuration as read-only inputs refreshed on every
  invocation (no caching across requests) and requires exactly two writes
  to complete before a punch request is acknowledged: the punch insert and
  the ledger upsert.

UPSERT CONTRACT:
  LedgerStore.Upsert must be atomic on the (subject, date, shift) key - a
  true upsert, not read-modify-write - so concurrent out punches for
  different shifts on the same day never clobber each other, and a retried
  freeze for the same key is idempotent.

IMPLEMENTATIONS:
  - store/sqlite: production store
  - engine/store:  in-memory store for tests, dev, and demo scenarios
*/
package engine

import (
	"context"
	"time"
)

// =============================================================================
// PUNCH STORE
// =============================================================================

// PunchStore is the append-mostly store of punch records. The only permitted
// mutations are the narrow status update used by validation workflows and
// the administrative adjust path.
type PunchStore interface {
	// InsertPunch persists a new punch. A storage layer that enforces the
	// time-bucketed duplicate constraint returns ErrDuplicateRequest on
	// violation.
	InsertPunch(ctx context.Context, p Punch) error

	// GetPunch returns a punch by id, or ErrPunchNotFound.
	GetPunch(ctx context.Context, id PunchID) (*Punch, error)

	// ListDayPunches returns a subject's punches whose instant falls on the civil
	// date, sorted by instant ascending.
	ListDayPunches(ctx context.Context, subject SubjectID, date CivilDate) ([]Punch, error)

	// LastRecorded returns the subject's most recent punch of the given
	// kind whose RecordedAt is at or after since, or nil. Used by the
	// duplicate guard.
	LastRecorded(ctx context.Context, subject SubjectID, kind PunchKind, since time.Time) (*Punch, error)

	// SubjectsWithPunches returns the distinct subjects that punched in the
	// civil-date range [from, to]. Used by the ledger repair pass.
	SubjectsWithPunches(ctx context.Context, from, to CivilDate) ([]SubjectID, error)

	// UpdatePunchStatus performs the narrow status-field update.
	UpdatePunchStatus(ctx context.Context, id PunchID, status PunchStatus) error

	// UpdatePunch replaces a punch record. Reserved for administrative
	// corrections of instant/kind; the caller re-freezes the ledger.
	UpdatePunch(ctx context.Context, p Punch) error
}

// =============================================================================
// LEDGER STORE
// =============================================================================

// LedgerStore persists frozen hour snapshots keyed by (subject, date, shift).
type LedgerStore interface {
	// UpsertEntry atomically inserts or overwrites the entry for its key.
	UpsertEntry(ctx context.Context, e LedgerEntry) error

	// GetEntry returns the entry for a key, or ErrLedgerEntryNotFound.
	GetEntry(ctx context.Context, key LedgerKey) (*LedgerEntry, error)

	// ListEntriesDay returns all entries for one subject-day.
	ListEntriesDay(ctx context.Context, subject SubjectID, date CivilDate) ([]LedgerEntry, error)

	// ListEntriesRange returns entries for a subject across [from, to].
	ListEntriesRange(ctx context.Context, subject SubjectID, from, to CivilDate) ([]LedgerEntry, error)

	// DeleteEntry removes an entry. Used by the post-adjustment sweep.
	DeleteEntry(ctx context.Context, key LedgerKey) error
}

// =============================================================================
// SHIFT STORE
// =============================================================================

// ShiftStore persists shift definitions, including the lazily materialized
// per-supervisor default shift that keeps every ledger row keyable.
type ShiftStore interface {
	// GetShift returns a definition by id, or ErrShiftNotFound.
	GetShift(ctx context.Context, id ShiftID) (*ShiftDefinition, error)

	// EnsureShift creates the definition if its id is absent. Existing
	// definitions are left untouched so retried freezes reuse them.
	EnsureShift(ctx context.Context, def ShiftDefinition) error
}

// =============================================================================
// SUBJECT STORE
// =============================================================================

type SubjectStore interface {
	// GetSubject returns a subject by id, or ErrSubjectNotFound.
	GetSubject(ctx context.Context, id SubjectID) (*Subject, error)

	InsertSubject(ctx context.Context, s Subject) error
	ListSubjects(ctx context.Context) ([]Subject, error)
}

// =============================================================================
// CONFIG SOURCE - Read-only schedule configuration layers
// =============================================================================

// ConfigSource supplies the configuration layers the resolver collapses.
// A missing layer is a zero ShiftConfig, not an error.
type ConfigSource interface {
	GlobalConfig(ctx context.Context) (ShiftConfig, error)
	SupervisorConfig(ctx context.Context, supervisor SupervisorID) (ShiftConfig, error)
	DateOverride(ctx context.Context, date CivilDate) (ShiftConfig, error)

	// OvertimeGrant returns the date-level overtime authorization covering
	// the subject on the date, or nil.
	OvertimeGrant(ctx context.Context, subject SubjectID, date CivilDate) (*OvertimeGrant, error)
}

// =============================================================================
// NOTIFICATION SINK - Fire-and-forget
// =============================================================================

// NotificationSink receives punch events for downstream delivery. Errors are
// observed (logged) but never affect the punch result.
type NotificationSink interface {
	PunchRecorded(ctx context.Context, ev PunchEvent) error
}
