// Package store provides an in-memory implementation of the engine's
// storage interfaces, used by tests, development, and demo scenarios.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/FluxxCC/OJTonTrack-sub001/engine"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory implements PunchStore, LedgerStore, ShiftStore, SubjectStore, and
// ConfigSource plus the write side of configuration that the HTTP admin
// endpoints need.
type Memory struct {
	mu sync.RWMutex

	punches  map[engine.PunchID]engine.Punch
	ledger   map[engine.LedgerKey]engine.LedgerEntry
	shifts   map[engine.ShiftID]engine.ShiftDefinition
	subjects map[engine.SubjectID]engine.Subject

	global      engine.ShiftConfig
	supervisors map[engine.SupervisorID]engine.ShiftConfig
	dates       map[engine.CivilDate]engine.ShiftConfig
	grants      map[grantKey]engine.OvertimeGrant

	loc *time.Location
}

type grantKey struct {
	Subject engine.SubjectID
	Date    engine.CivilDate
}

func NewMemory(loc *time.Location) *Memory {
	return &Memory{
		punches:     make(map[engine.PunchID]engine.Punch),
		ledger:      make(map[engine.LedgerKey]engine.LedgerEntry),
		shifts:      make(map[engine.ShiftID]engine.ShiftDefinition),
		subjects:    make(map[engine.SubjectID]engine.Subject),
		supervisors: make(map[engine.SupervisorID]engine.ShiftConfig),
		dates:       make(map[engine.CivilDate]engine.ShiftConfig),
		grants:      make(map[grantKey]engine.OvertimeGrant),
		loc:         loc,
	}
}

// =============================================================================
// PUNCH STORE
// =============================================================================

func (m *Memory) InsertPunch(_ context.Context, p engine.Punch) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Enforce the bucketed duplicate constraint the same way the SQLite
	// store does, so tests exercise identical semantics.
	bucket := engine.DuplicateBucket(p.RecordedAt)
	for _, existing := range m.punches {
		if existing.SubjectID == p.SubjectID && existing.Kind == p.Kind &&
			engine.DuplicateBucket(existing.RecordedAt) == bucket {
			return &engine.DuplicateRequestError{SubjectID: p.SubjectID, Kind: p.Kind, Within: engine.GuardWindow}
		}
	}
	m.punches[p.ID] = p
	return nil
}

func (m *Memory) GetPunch(_ context.Context, id engine.PunchID) (*engine.Punch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.punches[id]
	if !ok {
		return nil, engine.ErrPunchNotFound
	}
	return &p, nil
}

func (m *Memory) ListDayPunches(_ context.Context, subject engine.SubjectID, date engine.CivilDate) ([]engine.Punch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []engine.Punch
	for _, p := range m.punches {
		if p.SubjectID == subject && engine.CivilDateOf(p.At, m.loc) == date {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].At.Before(out[j].At) })
	return out, nil
}

func (m *Memory) LastRecorded(_ context.Context, subject engine.SubjectID, kind engine.PunchKind, since time.Time) (*engine.Punch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var last *engine.Punch
	for _, p := range m.punches {
		p := p
		if p.SubjectID != subject || p.Kind != kind || p.RecordedAt.Before(since) {
			continue
		}
		if last == nil || p.RecordedAt.After(last.RecordedAt) {
			last = &p
		}
	}
	return last, nil
}

func (m *Memory) SubjectsWithPunches(_ context.Context, from, to engine.CivilDate) ([]engine.SubjectID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := map[engine.SubjectID]bool{}
	for _, p := range m.punches {
		d := engine.CivilDateOf(p.At, m.loc)
		if !d.Before(from) && !d.After(to) {
			seen[p.SubjectID] = true
		}
	}
	out := make([]engine.SubjectID, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (m *Memory) UpdatePunchStatus(_ context.Context, id engine.PunchID, status engine.PunchStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.punches[id]
	if !ok {
		return engine.ErrPunchNotFound
	}
	p.Status = status
	m.punches[id] = p
	return nil
}

func (m *Memory) UpdatePunch(_ context.Context, p engine.Punch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.punches[p.ID]; !ok {
		return engine.ErrPunchNotFound
	}
	m.punches[p.ID] = p
	return nil
}

// =============================================================================
// LEDGER STORE
// =============================================================================

func (m *Memory) UpsertEntry(_ context.Context, e engine.LedgerEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ledger[e.Key()] = e
	return nil
}

func (m *Memory) GetEntry(_ context.Context, key engine.LedgerKey) (*engine.LedgerEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.ledger[key]
	if !ok {
		return nil, engine.ErrLedgerEntryNotFound
	}
	return &e, nil
}

func (m *Memory) ListEntriesDay(_ context.Context, subject engine.SubjectID, date engine.CivilDate) ([]engine.LedgerEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []engine.LedgerEntry
	for key, e := range m.ledger {
		if key.SubjectID == subject && key.Date == date {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ShiftID < out[j].ShiftID })
	return out, nil
}

func (m *Memory) ListEntriesRange(_ context.Context, subject engine.SubjectID, from, to engine.CivilDate) ([]engine.LedgerEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []engine.LedgerEntry
	for key, e := range m.ledger {
		if key.SubjectID == subject && !key.Date.Before(from) && !key.Date.After(to) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ShiftID < out[j].ShiftID
	})
	return out, nil
}

func (m *Memory) DeleteEntry(_ context.Context, key engine.LedgerKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.ledger[key]; !ok {
		return engine.ErrLedgerEntryNotFound
	}
	delete(m.ledger, key)
	return nil
}

// =============================================================================
// SHIFT STORE
// =============================================================================

func (m *Memory) GetShift(_ context.Context, id engine.ShiftID) (*engine.ShiftDefinition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	def, ok := m.shifts[id]
	if !ok {
		return nil, engine.ErrShiftNotFound
	}
	return &def, nil
}

func (m *Memory) EnsureShift(_ context.Context, def engine.ShiftDefinition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.shifts[def.ID]; !ok {
		m.shifts[def.ID] = def
	}
	return nil
}

// =============================================================================
// SUBJECT STORE
// =============================================================================

func (m *Memory) GetSubject(_ context.Context, id engine.SubjectID) (*engine.Subject, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.subjects[id]
	if !ok {
		return nil, engine.ErrSubjectNotFound
	}
	return &s, nil
}

func (m *Memory) InsertSubject(_ context.Context, s engine.Subject) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subjects[s.ID] = s
	return nil
}

func (m *Memory) ListSubjects(_ context.Context) ([]engine.Subject, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]engine.Subject, 0, len(m.subjects))
	for _, s := range m.subjects {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// =============================================================================
// CONFIG SOURCE + ADMIN WRITES
// =============================================================================

func (m *Memory) GlobalConfig(_ context.Context) (engine.ShiftConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.global, nil
}

func (m *Memory) SupervisorConfig(_ context.Context, supervisor engine.SupervisorID) (engine.ShiftConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.supervisors[supervisor], nil
}

func (m *Memory) DateOverride(_ context.Context, date engine.CivilDate) (engine.ShiftConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.dates[date], nil
}

func (m *Memory) OvertimeGrant(_ context.Context, subject engine.SubjectID, date engine.CivilDate) (*engine.OvertimeGrant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if g, ok := m.grants[grantKey{Subject: subject, Date: date}]; ok {
		return &g, nil
	}
	// A grant without a subject applies to everyone on the date.
	if g, ok := m.grants[grantKey{Date: date}]; ok {
		return &g, nil
	}
	return nil, nil
}

func (m *Memory) SetGlobalConfig(_ context.Context, cfg engine.ShiftConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.global = cfg
	return nil
}

func (m *Memory) SetSupervisorConfig(_ context.Context, supervisor engine.SupervisorID, cfg engine.ShiftConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.supervisors[supervisor] = cfg
	return nil
}

func (m *Memory) SetDateOverride(_ context.Context, date engine.CivilDate, cfg engine.ShiftConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dates[date] = cfg
	return nil
}

func (m *Memory) PutOvertimeGrant(_ context.Context, g engine.OvertimeGrant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.grants[grantKey{Subject: g.SubjectID, Date: g.Date}] = g
	return nil
}
