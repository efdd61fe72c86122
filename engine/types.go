/*
Package engine implements the attendance time-accounting core.

PURPOSE:
  This package converts raw clock-in/clock-out punches into billable work
  hours against a configurable daily shift schedule. It owns the five hard
  problems of the system: building an absolute-time schedule for a calendar
  day, classifying punches into shift windows, pairing punches into
  sessions, clamping session spans to official time, and freezing computed
  hours into an immutable ledger entry.

KEY CONCEPTS IN THIS FILE (types.go):
  - Punch: A single clock-in or clock-out event
  - PunchStatus: Closed validation-state enumeration with explicit transitions
  - Session: A transient in/out pairing within one shift window
  - Hours: A decimal quantity of billable hours
  - LedgerEntry: The frozen hours snapshot keyed by (subject, date, shift)

DESIGN PRINCIPLES:
  1. Immutability: Punches are append-mostly; corrections go through an
     explicit adjust path that re-freezes the ledger
  2. Precision: Uses decimal.Decimal for stored hours to avoid float drift
  3. Type Safety: Strong typing for subject/shift/punch identifiers
  4. Determinism: Window evaluation order is a literal ordered list, never
     an artifact of map iteration

SEE ALSO:
  - schedule.go: ShiftConfig resolution and DaySchedule construction
  - classify.go: Window membership with the grace buffer
  - pair.go: Session pairing and virtual out synthesis
  - duration.go: The single clamping primitive
  - freeze.go: Ledger freezing on completed out punches
*/
package engine

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type SubjectID string
type SupervisorID string
type ShiftID string
type PunchID string

// Subject is a trainee being tracked. The engine only needs the owning
// supervisor to resolve schedule configuration; everything else about the
// person lives outside this module.
type Subject struct {
	ID           SubjectID
	SupervisorID SupervisorID
	Name         string
}

// =============================================================================
// PUNCH - A single clock-in or clock-out event
// =============================================================================

type PunchKind string

const (
	KindIn  PunchKind = "in"
	KindOut PunchKind = "out"
)

// PunchStatus is the validation state of a recorded punch.
type PunchStatus string

const (
	StatusRaw       PunchStatus = "raw"
	StatusValidated PunchStatus = "validated"
	StatusRejected  PunchStatus = "rejected"
	StatusOfficial  PunchStatus = "official"
	StatusAdjusted  PunchStatus = "adjusted"
)

// statusTransitions encodes the legal validation-state machine.
// raw punches are validated or rejected by a supervisor; an administrative
// edit of an already-validated punch marks it adjusted on re-validation.
var statusTransitions = map[PunchStatus][]PunchStatus{
	StatusRaw:       {StatusValidated, StatusRejected, StatusOfficial},
	StatusValidated: {StatusAdjusted},
	StatusOfficial:  {StatusAdjusted},
	StatusAdjusted:  {StatusAdjusted},
}

// CanTransition reports whether a punch may move from one status to another.
func CanTransition(from, to PunchStatus) bool {
	for _, next := range statusTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// AutoCloseValidator is the sentinel validator marker carried by synthesized
// virtual out punches. Downstream consumers render these distinctly and skip
// them when displaying photographic evidence.
const AutoCloseValidator = "system:auto-close"

// Punch is one clock event. At is the instant the subject claims; RecordedAt
// is server receipt time, which is what the duplicate guard measures against.
type Punch struct {
	ID        PunchID
	SubjectID SubjectID
	Kind      PunchKind
	At        time.Time

	// AuthorizedOvertime exempts the punch from official-time clamping.
	AuthorizedOvertime bool

	// ShiftID references the governing shift definition when known at punch
	// time. Empty means the freezer re-classifies as a legacy fallback.
	ShiftID ShiftID

	Status PunchStatus

	// ValidatorID marks a manually-entered or system-synthesized record.
	ValidatorID string

	// EvidenceRef is an opaque reference to externally hosted photographic
	// evidence. The engine never inspects it.
	EvidenceRef string

	RecordedAt time.Time
}

// IsVirtual reports whether the punch was synthesized by the session pairer
// rather than recorded by the subject.
func (p Punch) IsVirtual() bool { return p.ValidatorID == AutoCloseValidator }

// =============================================================================
// SHIFT WINDOWS
// =============================================================================

// Window identifies one of the three daily shift windows.
type Window string

const (
	WindowAM   Window = "am"
	WindowPM   Window = "pm"
	WindowOT   Window = "ot"
	WindowNone Window = "none"
)

// ShiftDefinition is persisted shift metadata. Its configured start/end act
// as the official boundaries when a punch stores an explicit ShiftID.
type ShiftDefinition struct {
	ID           ShiftID
	SupervisorID SupervisorID
	Window       Window
	Name         string
	Start        ClockTime
	End          ClockTime
}

// =============================================================================
// SESSION - Transient in/out pairing, never persisted
// =============================================================================

// Session pairs one in punch with one out punch (possibly virtual) within a
// single window on a single day. Sessions exist only for the duration of a
// calculation.
type Session struct {
	Window     Window
	In         Punch
	Out        Punch
	VirtualOut bool
}

// DaySessions holds the up-to-three sessions of one subject-day.
type DaySessions struct {
	AM *Session
	PM *Session
	OT *Session
}

// All returns the filled sessions in window order.
func (d DaySessions) All() []Session {
	var out []Session
	for _, s := range []*Session{d.AM, d.PM, d.OT} {
		if s != nil {
			out = append(out, *s)
		}
	}
	return out
}

// =============================================================================
// HOURS - Decimal quantity of billable hours
// =============================================================================

// Hours is a billable-hour quantity. Stored ledger values are rounded to the
// nearest whole minute; live display values are not.
type Hours struct {
	Value decimal.Decimal
}

func HoursFromDuration(d time.Duration) Hours {
	if d < 0 {
		d = 0
	}
	return Hours{Value: decimal.NewFromInt(int64(d / time.Millisecond)).Div(decimal.NewFromInt(3_600_000))}
}

func HoursFromFloat(f float64) Hours { return Hours{Value: decimal.NewFromFloat(f)} }

// MustParseHours parses a decimal hour string, panicking on malformed input.
// Reserved for values this module wrote itself (storage round-trips).
func MustParseHours(s string) Hours {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(fmt.Sprintf("malformed hours value %q: %v", s, err))
	}
	return Hours{Value: v}
}

// RoundToMinute rounds to the nearest whole minute: round(hours*60)/60.
// Applied exactly once, at freeze time, to avoid sub-minute drift in ledgers.
func (h Hours) RoundToMinute() Hours {
	sixty := decimal.NewFromInt(60)
	return Hours{Value: h.Value.Mul(sixty).Round(0).Div(sixty)}
}

func (h Hours) Add(other Hours) Hours { return Hours{Value: h.Value.Add(other.Value)} }
func (h Hours) IsZero() bool          { return h.Value.IsZero() }
func (h Hours) Float64() float64      { f, _ := h.Value.Float64(); return f }
func (h Hours) Equal(other Hours) bool { return h.Value.Equal(other.Value) }
func (h Hours) String() string        { return h.Value.String() }

// =============================================================================
// LEDGER ENTRY - The freeze
// =============================================================================

// LedgerEntry is the authoritative hours snapshot for one (subject, date,
// shift) triple. Once written it survives later schedule edits; only an
// explicit administrative adjustment of the owning punches overwrites it.
type LedgerEntry struct {
	SubjectID SubjectID
	Date      CivilDate
	ShiftID   ShiftID

	Hours Hours

	// The exact official boundaries used at freeze time. Read-side
	// aggregation renders these instead of re-deriving from live config.
	OfficialIn  time.Time
	OfficialOut time.Time

	FrozenAt time.Time
}

// Key is the unique upsert key of a ledger entry.
type LedgerKey struct {
	SubjectID SubjectID
	Date      CivilDate
	ShiftID   ShiftID
}

func (e LedgerEntry) Key() LedgerKey {
	return LedgerKey{SubjectID: e.SubjectID, Date: e.Date, ShiftID: e.ShiftID}
}

// =============================================================================
// NOTIFICATION EVENT
// =============================================================================

// PunchEvent is emitted to the notification sink after a successful punch.
// Delivery outcome never affects the punch result.
type PunchEvent struct {
	SubjectID SubjectID
	Kind      PunchKind
	At        time.Time
}
