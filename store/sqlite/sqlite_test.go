package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FluxxCC/OJTonTrack-sub001/engine"
	"github.com/FluxxCC/OJTonTrack-sub001/store/sqlite"
)

var tz = engine.FixedOffsetLocation(engine.DefaultOffsetHours)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"), tz)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testDay() engine.CivilDate { return engine.NewCivilDate(2026, time.June, 10) }

func instant(d engine.CivilDate, clock string) time.Time {
	return engine.MustClockTime(clock).On(d, tz)
}

// =============================================================================
// PUNCHES
// =============================================================================

func TestPunchRoundTrip(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	day := testDay()

	p := engine.Punch{
		ID:                 "p1",
		SubjectID:          "alice",
		Kind:               engine.KindIn,
		At:                 instant(day, "08:00"),
		AuthorizedOvertime: true,
		ShiftID:            "sup1-am",
		Status:             engine.StatusRaw,
		ValidatorID:        "supervisor-1",
		EvidenceRef:        "media/abc.jpg",
		RecordedAt:         instant(day, "08:00"),
	}
	require.NoError(t, s.InsertPunch(ctx, p))

	got, err := s.GetPunch(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, p.SubjectID, got.SubjectID)
	assert.Equal(t, p.Kind, got.Kind)
	assert.True(t, got.At.Equal(p.At))
	assert.True(t, got.AuthorizedOvertime)
	assert.Equal(t, p.ShiftID, got.ShiftID)
	assert.Equal(t, p.ValidatorID, got.ValidatorID)
	assert.Equal(t, p.EvidenceRef, got.EvidenceRef)

	_, err = s.GetPunch(ctx, "missing")
	assert.ErrorIs(t, err, engine.ErrPunchNotFound)
}

func TestInsertPunch_BucketConstraint(t *testing.T) {
	// Two same-kind punches for one subject landing in the same 15-second
	// receipt bucket violate the unique index.
	s := newStore(t)
	ctx := context.Background()
	day := testDay()

	recorded := time.Unix(1_750_000_000, 0)
	first := engine.Punch{
		ID: "p1", SubjectID: "alice", Kind: engine.KindIn,
		At: instant(day, "08:00"), Status: engine.StatusRaw, RecordedAt: recorded,
	}
	require.NoError(t, s.InsertPunch(ctx, first))

	dup := first
	dup.ID = "p2"
	dup.RecordedAt = recorded.Add(3 * time.Second)
	err := s.InsertPunch(ctx, dup)
	assert.ErrorIs(t, err, engine.ErrDuplicateRequest)

	// A different kind in the same bucket is fine.
	out := first
	out.ID = "p3"
	out.Kind = engine.KindOut
	require.NoError(t, s.InsertPunch(ctx, out))

	// Same kind, next bucket: fine.
	later := first
	later.ID = "p4"
	later.RecordedAt = recorded.Add(engine.GuardWindow)
	require.NoError(t, s.InsertPunch(ctx, later))
}

func TestLastRecorded_MixedOffsetInstants(t *testing.T) {
	// Receipt instants arrive in whatever zone the caller carries. The store
	// must order them by instant, not by the textual form they were written in.
	s := newStore(t)
	ctx := context.Background()
	day := testDay()

	early := engine.Punch{
		ID: "p1", SubjectID: "alice", Kind: engine.KindIn,
		At: instant(day, "08:00"), Status: engine.StatusRaw,
		RecordedAt: instant(day, "08:00"),
	}
	require.NoError(t, s.InsertPunch(ctx, early))

	late := early
	late.ID = "p2"
	late.RecordedAt = instant(day, "09:00").UTC()
	require.NoError(t, s.InsertPunch(ctx, late))

	got, err := s.LastRecorded(ctx, "alice", engine.KindIn, instant(day, "08:30"))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, engine.PunchID("p2"), got.ID)
	assert.True(t, got.RecordedAt.Equal(late.RecordedAt))

	got, err = s.LastRecorded(ctx, "alice", engine.KindIn, instant(day, "09:30").UTC())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestListDayPunches_FiltersByCivilDate(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	day := testDay()
	next := day.AddDays(1)

	for i, spec := range []struct {
		d     engine.CivilDate
		clock string
		kind  engine.PunchKind
	}{
		{day, "13:00", engine.KindIn},
		{day, "08:00", engine.KindIn},
		{next, "08:00", engine.KindIn},
	} {
		p := engine.Punch{
			ID:        engine.PunchID(string(rune('a' + i))),
			SubjectID: "alice", Kind: spec.kind,
			At: instant(spec.d, spec.clock), Status: engine.StatusRaw,
			RecordedAt: instant(spec.d, spec.clock),
		}
		require.NoError(t, s.InsertPunch(ctx, p))
	}

	got, err := s.ListDayPunches(ctx, "alice", day)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[0].At.Before(got[1].At), "punches sort ascending by instant")
}

func TestUpdatePunchStatus(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	p := engine.Punch{
		ID: "p1", SubjectID: "alice", Kind: engine.KindIn,
		At: instant(testDay(), "08:00"), Status: engine.StatusRaw,
		RecordedAt: instant(testDay(), "08:00"),
	}
	require.NoError(t, s.InsertPunch(ctx, p))
	require.NoError(t, s.UpdatePunchStatus(ctx, "p1", engine.StatusValidated))

	got, err := s.GetPunch(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, engine.StatusValidated, got.Status)

	err = s.UpdatePunchStatus(ctx, "missing", engine.StatusValidated)
	assert.ErrorIs(t, err, engine.ErrPunchNotFound)
}

// =============================================================================
// LEDGER
// =============================================================================

func TestUpsertEntry_OverwritesByKey(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	day := testDay()

	entry := engine.LedgerEntry{
		SubjectID:   "alice",
		Date:        day,
		ShiftID:     "sup1-am",
		Hours:       engine.HoursFromDuration(3 * time.Hour),
		OfficialIn:  instant(day, "08:00"),
		OfficialOut: instant(day, "12:00"),
		FrozenAt:    instant(day, "12:00"),
	}
	require.NoError(t, s.UpsertEntry(ctx, entry))

	entry.Hours = engine.HoursFromDuration(4 * time.Hour)
	require.NoError(t, s.UpsertEntry(ctx, entry))

	entries, err := s.ListEntriesDay(ctx, "alice", day)
	require.NoError(t, err)
	require.Len(t, entries, 1, "re-freeze overwrites, never duplicates")
	assert.True(t, entries[0].Hours.Equal(engine.HoursFromDuration(4*time.Hour)))
	assert.True(t, entries[0].OfficialIn.Equal(instant(day, "08:00")))
}

func TestListEntriesRange(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	day := testDay()

	for i := 0; i < 3; i++ {
		d := day.AddDays(i)
		require.NoError(t, s.UpsertEntry(ctx, engine.LedgerEntry{
			SubjectID: "alice", Date: d, ShiftID: "sup1-am",
			Hours:      engine.HoursFromDuration(4 * time.Hour),
			OfficialIn: instant(d, "08:00"), OfficialOut: instant(d, "12:00"),
			FrozenAt: instant(d, "12:00"),
		}))
	}

	entries, err := s.ListEntriesRange(ctx, "alice", day, day.AddDays(1))
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.True(t, entries[0].Date.Before(entries[1].Date))
}

// =============================================================================
// SHIFTS AND SUBJECTS
// =============================================================================

func TestEnsureShift_FirstWriteWins(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	def := engine.ShiftDefinition{
		ID: "sup1-am", SupervisorID: "sup1", Window: engine.WindowAM,
		Name:  "am shift",
		Start: engine.MustClockTime("08:00"), End: engine.MustClockTime("12:00"),
	}
	require.NoError(t, s.EnsureShift(ctx, def))

	changed := def
	changed.Start = engine.MustClockTime("09:00")
	require.NoError(t, s.EnsureShift(ctx, changed))

	got, err := s.GetShift(ctx, "sup1-am")
	require.NoError(t, err)
	assert.Equal(t, engine.MustClockTime("08:00"), got.Start,
		"materialized definitions stay stable across retries")

	_, err = s.GetShift(ctx, "missing")
	assert.ErrorIs(t, err, engine.ErrShiftNotFound)
}

func TestSubjectRoundTrip(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.InsertSubject(ctx, engine.Subject{ID: "alice", SupervisorID: "sup1", Name: "Alice"}))
	require.NoError(t, s.InsertSubject(ctx, engine.Subject{ID: "bob", SupervisorID: "sup2", Name: "Bob"}))

	got, err := s.GetSubject(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, engine.SupervisorID("sup1"), got.SupervisorID)

	all, err := s.ListSubjects(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = s.GetSubject(ctx, "missing")
	assert.ErrorIs(t, err, engine.ErrSubjectNotFound)
}

// =============================================================================
// CONFIGURATION LAYERS
// =============================================================================

func TestConfigLayers_RoundTrip(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	day := testDay()

	// Unset layers read back as zero configs, never errors.
	cfg, err := s.GlobalConfig(ctx)
	require.NoError(t, err)
	assert.True(t, cfg.IsZero())

	require.NoError(t, s.SetGlobalConfig(ctx, engine.ShiftConfig{AMIn: "08:30", AMOut: "11:30"}))
	require.NoError(t, s.SetSupervisorConfig(ctx, "sup1", engine.ShiftConfig{PMIn: "14:00"}))
	require.NoError(t, s.SetDateOverride(ctx, day, engine.ShiftConfig{OTOut: "19:00"}))

	cfg, err = s.GlobalConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, "08:30", cfg.AMIn)

	sup, err := s.SupervisorConfig(ctx, "sup1")
	require.NoError(t, err)
	assert.Equal(t, "14:00", sup.PMIn)
	assert.Empty(t, sup.AMIn, "layers store only their own fields")

	date, err := s.DateOverride(ctx, day)
	require.NoError(t, err)
	assert.Equal(t, "19:00", date.OTOut)

	// A second write to the same layer replaces it.
	require.NoError(t, s.SetGlobalConfig(ctx, engine.ShiftConfig{AMIn: "09:00"}))
	cfg, err = s.GlobalConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, "09:00", cfg.AMIn)
	assert.Empty(t, cfg.AMOut)
}

func TestOvertimeGrant_SubjectSpecificWins(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	day := testDay()

	wide := engine.OvertimeGrant{
		Date:  day,
		Start: instant(day, "17:00"),
		End:   instant(day, "20:00"),
	}
	require.NoError(t, s.PutOvertimeGrant(ctx, wide))

	mine := wide
	mine.SubjectID = "alice"
	mine.End = instant(day, "21:00")
	require.NoError(t, s.PutOvertimeGrant(ctx, mine))

	got, err := s.OvertimeGrant(ctx, "alice", day)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.End.Equal(instant(day, "21:00")), "subject-specific grant wins")

	other, err := s.OvertimeGrant(ctx, "bob", day)
	require.NoError(t, err)
	require.NotNil(t, other)
	assert.True(t, other.End.Equal(instant(day, "20:00")), "date-wide grant covers everyone else")

	none, err := s.OvertimeGrant(ctx, "alice", day.AddDays(1))
	require.NoError(t, err)
	assert.Nil(t, none)
}

// =============================================================================
// RESET
// =============================================================================

func TestReset_ClearsEverything(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	day := testDay()

	require.NoError(t, s.InsertSubject(ctx, engine.Subject{ID: "alice", SupervisorID: "sup1", Name: "Alice"}))
	require.NoError(t, s.InsertPunch(ctx, engine.Punch{
		ID: "p1", SubjectID: "alice", Kind: engine.KindIn,
		At: instant(day, "08:00"), Status: engine.StatusRaw, RecordedAt: instant(day, "08:00"),
	}))

	require.NoError(t, s.Reset(ctx))

	_, err := s.GetSubject(ctx, "alice")
	assert.ErrorIs(t, err, engine.ErrSubjectNotFound)
	_, err = s.GetPunch(ctx, "p1")
	assert.ErrorIs(t, err, engine.ErrPunchNotFound)
}
