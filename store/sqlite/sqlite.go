/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements all persistence interfaces (PunchStore, LedgerStore, ShiftStore,
  SubjectStore, ConfigSource) using SQLite. In production, the same patterns
  apply to PostgreSQL - only minor SQL dialect differences.

INTERFACES IMPLEMENTED:
  engine.PunchStore:   Punch record persistence
  engine.LedgerStore:  Frozen hour snapshots
  engine.ShiftStore:   Shift definitions (including lazily created defaults)
  engine.SubjectStore: Trainee records
  engine.ConfigSource: Schedule configuration layers and overtime grants

DUPLICATE HARDENING:
  The punches table carries a 15-second receipt bucket column with a unique
  index over (subject_id, kind, dup_bucket). The application-level guard
  catches most duplicate submissions before they reach storage; this index
  closes the race where two requests pass the guard concurrently. Violations
  surface as engine.ErrDuplicateRequest.

UPSERT CONTRACT:
  ledger_entries uses INSERT ... ON CONFLICT(subject_id, civil_date, shift_id)
  DO UPDATE so a re-freeze for the same key atomically overwrites the prior
  snapshot. Concurrent freezes for different shifts on the same day never
  interfere.

KEY TABLES:
  subjects:          Trainee records
  punches:           Clock-in/out events (narrow status updates only)
  shift_definitions: Persisted shift metadata with official boundaries
  shift_configs:     Global, per-supervisor, and per-date HH:MM layers
  overtime_grants:   Date-level overtime authorizations
  ledger_entries:    Frozen hour snapshots keyed (subject, date, shift)

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/attendance.db", loc)
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - engine/store.go: Interface definitions
  - engine/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/FluxxCC/OJTonTrack-sub001/engine"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db  *sql.DB
	loc *time.Location
	mu  sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database. The location determines
// which civil date a punch instant belongs to.
func New(dbPath string, loc *time.Location) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db, loc: loc}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Reset clears all data. Development and demo use only.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{
		"subjects", "punches", "shift_definitions",
		"shift_configs", "overtime_grants", "ledger_entries",
	}
	for _, t := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+t); err != nil {
			return fmt.Errorf("failed to reset %s: %w", t, err)
		}
	}
	return nil
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Subjects (trainees)
	CREATE TABLE IF NOT EXISTS subjects (
		id TEXT PRIMARY KEY,
		supervisor_id TEXT NOT NULL,
		name TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_subjects_supervisor
		ON subjects(supervisor_id);

	-- Punches (status updates only; instants mutate solely through the
	-- administrative adjust path)
	CREATE TABLE IF NOT EXISTS punches (
		id TEXT PRIMARY KEY,
		subject_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		at TEXT NOT NULL,
		civil_date TEXT NOT NULL,
		authorized_overtime BOOLEAN DEFAULT FALSE,
		shift_id TEXT,
		status TEXT NOT NULL,
		validator_id TEXT,
		evidence_ref TEXT,
		recorded_at TEXT NOT NULL,
		dup_bucket INTEGER NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_punches_subject_date
		ON punches(subject_id, civil_date);
	CREATE INDEX IF NOT EXISTS idx_punches_subject_kind_recorded
		ON punches(subject_id, kind, recorded_at DESC);
	CREATE INDEX IF NOT EXISTS idx_punches_date
		ON punches(civil_date);

	-- CRITICAL: Harden the duplicate guard against concurrent submissions.
	-- Two punches of the same kind for one subject cannot land in the same
	-- 15-second receipt bucket even when both pass the application guard.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_unique_punch_bucket
		ON punches(subject_id, kind, dup_bucket);

	-- Shift Definitions
	CREATE TABLE IF NOT EXISTS shift_definitions (
		id TEXT PRIMARY KEY,
		supervisor_id TEXT NOT NULL,
		window TEXT NOT NULL,
		name TEXT NOT NULL,
		start_time TEXT NOT NULL,
		end_time TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_shifts_supervisor
		ON shift_definitions(supervisor_id);

	-- Shift Configs (one row per layer; layer_key is the supervisor id or
	-- the civil date, empty for the global layer)
	CREATE TABLE IF NOT EXISTS shift_configs (
		layer TEXT NOT NULL,
		layer_key TEXT NOT NULL DEFAULT '',
		am_in TEXT NOT NULL DEFAULT '',
		am_out TEXT NOT NULL DEFAULT '',
		pm_in TEXT NOT NULL DEFAULT '',
		pm_out TEXT NOT NULL DEFAULT '',
		ot_in TEXT NOT NULL DEFAULT '',
		ot_out TEXT NOT NULL DEFAULT '',
		updated_at TEXT NOT NULL,
		UNIQUE(layer, layer_key)
	);

	-- Overtime Grants (subject_id empty means date-wide)
	CREATE TABLE IF NOT EXISTS overtime_grants (
		subject_id TEXT NOT NULL DEFAULT '',
		civil_date TEXT NOT NULL,
		start_at TEXT NOT NULL,
		end_at TEXT NOT NULL,
		created_at TEXT NOT NULL,
		UNIQUE(subject_id, civil_date)
	);

	CREATE INDEX IF NOT EXISTS idx_grants_date
		ON overtime_grants(civil_date);

	-- Ledger Entries (frozen hour snapshots)
	CREATE TABLE IF NOT EXISTS ledger_entries (
		subject_id TEXT NOT NULL,
		civil_date TEXT NOT NULL,
		shift_id TEXT NOT NULL,
		hours TEXT NOT NULL,
		official_in TEXT NOT NULL,
		official_out TEXT NOT NULL,
		frozen_at TEXT NOT NULL,
		UNIQUE(subject_id, civil_date, shift_id)
	);

	CREATE INDEX IF NOT EXISTS idx_ledger_subject_date
		ON ledger_entries(subject_id, civil_date);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// PUNCH STORE (engine.PunchStore interface)
// =============================================================================

// InsertPunch persists a new punch. A receipt-bucket collision maps to
// engine.ErrDuplicateRequest.
func (s *Store) InsertPunch(ctx context.Context, p engine.Punch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO punches
		(id, subject_id, kind, at, civil_date, authorized_overtime, shift_id,
		 status, validator_id, evidence_ref, recorded_at, dup_bucket, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		p.ID,
		p.SubjectID,
		p.Kind,
		p.At.UTC().Format(time.RFC3339),
		engine.CivilDateOf(p.At, s.loc).String(),
		p.AuthorizedOvertime,
		nullString(string(p.ShiftID)),
		p.Status,
		nullString(p.ValidatorID),
		nullString(p.EvidenceRef),
		p.RecordedAt.UTC().Format(time.RFC3339),
		engine.DuplicateBucket(p.RecordedAt),
		time.Now().UTC().Format(time.RFC3339),
	)

	if err != nil {
		if isBucketUniquenessError(err) {
			return fmt.Errorf("%w: receipt bucket collision for subject %s",
				engine.ErrDuplicateRequest, p.SubjectID)
		}
		return fmt.Errorf("failed to insert punch: %w", err)
	}

	return nil
}

// GetPunch returns a punch by id, or engine.ErrPunchNotFound.
func (s *Store) GetPunch(ctx context.Context, id engine.PunchID) (*engine.Punch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, punchSelect+` WHERE id = ?`, id)

	p, err := scanPunch(row)
	if err == sql.ErrNoRows {
		return nil, engine.ErrPunchNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get punch: %w", err)
	}
	return p, nil
}

// ListDayPunches returns a subject's punches on the civil date, sorted by
// instant ascending.
func (s *Store) ListDayPunches(ctx context.Context, subject engine.SubjectID, date engine.CivilDate) ([]engine.Punch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		punchSelect+` WHERE subject_id = ? AND civil_date = ? ORDER BY at ASC`,
		subject, date.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list punches: %w", err)
	}
	defer rows.Close()

	var punches []engine.Punch
	for rows.Next() {
		p, err := scanPunch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan punch: %w", err)
		}
		punches = append(punches, *p)
	}
	return punches, rows.Err()
}

// LastRecorded returns the subject's most recent punch of the given kind
// received at or after since, or nil. Timestamps are stored UTC-normalized
// so the string comparison orders by instant.
func (s *Store) LastRecorded(ctx context.Context, subject engine.SubjectID, kind engine.PunchKind, since time.Time) (*engine.Punch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		punchSelect+` WHERE subject_id = ? AND kind = ? AND recorded_at >= ?
			ORDER BY recorded_at DESC LIMIT 1`,
		subject, kind, since.UTC().Format(time.RFC3339))

	p, err := scanPunch(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query last punch: %w", err)
	}
	return p, nil
}

// SubjectsWithPunches returns the distinct subjects that punched in the
// civil-date range.
func (s *Store) SubjectsWithPunches(ctx context.Context, from, to engine.CivilDate) ([]engine.SubjectID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT subject_id FROM punches
			WHERE civil_date >= ? AND civil_date <= ? ORDER BY subject_id`,
		from.String(), to.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list punch subjects: %w", err)
	}
	defer rows.Close()

	var ids []engine.SubjectID
	for rows.Next() {
		var id engine.SubjectID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// UpdatePunchStatus performs the narrow status-field update.
func (s *Store) UpdatePunchStatus(ctx context.Context, id engine.PunchID, status engine.PunchStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE punches SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("failed to update punch status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return engine.ErrPunchNotFound
	}
	return nil
}

// UpdatePunch replaces a punch record. Used only by the administrative
// adjust path; the caller re-freezes the ledger for the affected dates.
func (s *Store) UpdatePunch(ctx context.Context, p engine.Punch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE punches SET kind = ?, at = ?, civil_date = ?,
			authorized_overtime = ?, shift_id = ?, status = ?,
			validator_id = ?, evidence_ref = ?
			WHERE id = ?`,
		p.Kind,
		p.At.UTC().Format(time.RFC3339),
		engine.CivilDateOf(p.At, s.loc).String(),
		p.AuthorizedOvertime,
		nullString(string(p.ShiftID)),
		p.Status,
		nullString(p.ValidatorID),
		nullString(p.EvidenceRef),
		p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update punch: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return engine.ErrPunchNotFound
	}
	return nil
}

const punchSelect = `
	SELECT id, subject_id, kind, at, authorized_overtime, shift_id,
		status, validator_id, evidence_ref, recorded_at
	FROM punches`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPunch(row rowScanner) (*engine.Punch, error) {
	var p engine.Punch
	var at, recordedAt string
	var shiftID, validatorID, evidenceRef sql.NullString

	err := row.Scan(&p.ID, &p.SubjectID, &p.Kind, &at, &p.AuthorizedOvertime,
		&shiftID, &p.Status, &validatorID, &evidenceRef, &recordedAt)
	if err != nil {
		return nil, err
	}

	p.At, _ = time.Parse(time.RFC3339, at)
	p.RecordedAt, _ = time.Parse(time.RFC3339, recordedAt)
	p.ShiftID = engine.ShiftID(shiftID.String)
	p.ValidatorID = validatorID.String
	p.EvidenceRef = evidenceRef.String
	return &p, nil
}

// =============================================================================
// LEDGER STORE (engine.LedgerStore interface)
// =============================================================================

// UpsertEntry atomically inserts or overwrites the entry for its
// (subject, date, shift) key.
func (s *Store) UpsertEntry(ctx context.Context, e engine.LedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO ledger_entries
		(subject_id, civil_date, shift_id, hours, official_in, official_out, frozen_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(subject_id, civil_date, shift_id) DO UPDATE SET
			hours = excluded.hours,
			official_in = excluded.official_in,
			official_out = excluded.official_out,
			frozen_at = excluded.frozen_at
	`

	_, err := s.db.ExecContext(ctx, query,
		e.SubjectID,
		e.Date.String(),
		e.ShiftID,
		e.Hours.String(),
		e.OfficialIn.UTC().Format(time.RFC3339),
		e.OfficialOut.UTC().Format(time.RFC3339),
		e.FrozenAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert ledger entry: %w", err)
	}
	return nil
}

// GetEntry returns the entry for a key, or engine.ErrLedgerEntryNotFound.
func (s *Store) GetEntry(ctx context.Context, key engine.LedgerKey) (*engine.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		ledgerSelect+` WHERE subject_id = ? AND civil_date = ? AND shift_id = ?`,
		key.SubjectID, key.Date.String(), key.ShiftID)

	e, err := scanLedgerEntry(row)
	if err == sql.ErrNoRows {
		return nil, engine.ErrLedgerEntryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger entry: %w", err)
	}
	return e, nil
}

// ListEntriesDay returns all entries for one subject-day.
func (s *Store) ListEntriesDay(ctx context.Context, subject engine.SubjectID, date engine.CivilDate) ([]engine.LedgerEntry, error) {
	return s.listEntries(ctx, subject, date, date)
}

// ListEntriesRange returns entries for a subject across [from, to].
func (s *Store) ListEntriesRange(ctx context.Context, subject engine.SubjectID, from, to engine.CivilDate) ([]engine.LedgerEntry, error) {
	return s.listEntries(ctx, subject, from, to)
}

func (s *Store) listEntries(ctx context.Context, subject engine.SubjectID, from, to engine.CivilDate) ([]engine.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		ledgerSelect+` WHERE subject_id = ? AND civil_date >= ? AND civil_date <= ?
			ORDER BY civil_date ASC, shift_id ASC`,
		subject, from.String(), to.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []engine.LedgerEntry
	for rows.Next() {
		e, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// DeleteEntry removes an entry. Used by the post-adjustment sweep.
func (s *Store) DeleteEntry(ctx context.Context, key engine.LedgerKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM ledger_entries WHERE subject_id = ? AND civil_date = ? AND shift_id = ?`,
		key.SubjectID, key.Date.String(), key.ShiftID)
	if err != nil {
		return fmt.Errorf("failed to delete ledger entry: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return engine.ErrLedgerEntryNotFound
	}
	return nil
}

const ledgerSelect = `
	SELECT subject_id, civil_date, shift_id, hours, official_in, official_out, frozen_at
	FROM ledger_entries`

func scanLedgerEntry(row rowScanner) (*engine.LedgerEntry, error) {
	var e engine.LedgerEntry
	var date, hours, officialIn, officialOut, frozenAt string

	err := row.Scan(&e.SubjectID, &date, &e.ShiftID, &hours,
		&officialIn, &officialOut, &frozenAt)
	if err != nil {
		return nil, err
	}

	e.Date, _ = engine.ParseCivilDate(date)
	e.Hours = engine.MustParseHours(hours)
	e.OfficialIn, _ = time.Parse(time.RFC3339, officialIn)
	e.OfficialOut, _ = time.Parse(time.RFC3339, officialOut)
	e.FrozenAt, _ = time.Parse(time.RFC3339, frozenAt)
	return &e, nil
}

// =============================================================================
// SHIFT STORE (engine.ShiftStore interface)
// =============================================================================

// GetShift returns a definition by id, or engine.ErrShiftNotFound.
func (s *Store) GetShift(ctx context.Context, id engine.ShiftID) (*engine.ShiftDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT id, supervisor_id, window, name, start_time, end_time
			FROM shift_definitions WHERE id = ?`, id)

	var def engine.ShiftDefinition
	var start, end string
	err := row.Scan(&def.ID, &def.SupervisorID, &def.Window, &def.Name, &start, &end)
	if err == sql.ErrNoRows {
		return nil, engine.ErrShiftNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get shift: %w", err)
	}

	def.Start, _ = engine.ParseClockTime(start)
	def.End, _ = engine.ParseClockTime(end)
	return &def, nil
}

// EnsureShift creates the definition if its id is absent. Existing
// definitions are left untouched so retried freezes reuse them.
func (s *Store) EnsureShift(ctx context.Context, def engine.ShiftDefinition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO shift_definitions
			(id, supervisor_id, window, name, start_time, end_time, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO NOTHING`,
		def.ID, def.SupervisorID, def.Window, def.Name,
		def.Start.String(), def.End.String(),
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to ensure shift: %w", err)
	}
	return nil
}

// =============================================================================
// SUBJECT STORE (engine.SubjectStore interface)
// =============================================================================

// GetSubject returns a subject by id, or engine.ErrSubjectNotFound.
func (s *Store) GetSubject(ctx context.Context, id engine.SubjectID) (*engine.Subject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT id, supervisor_id, name FROM subjects WHERE id = ?`, id)

	var sub engine.Subject
	err := row.Scan(&sub.ID, &sub.SupervisorID, &sub.Name)
	if err == sql.ErrNoRows {
		return nil, engine.ErrSubjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subject: %w", err)
	}
	return &sub, nil
}

func (s *Store) InsertSubject(ctx context.Context, sub engine.Subject) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO subjects (id, supervisor_id, name, created_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				supervisor_id = excluded.supervisor_id,
				name = excluded.name`,
		sub.ID, sub.SupervisorID, sub.Name,
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to insert subject: %w", err)
	}
	return nil
}

func (s *Store) ListSubjects(ctx context.Context) ([]engine.Subject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, supervisor_id, name FROM subjects ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list subjects: %w", err)
	}
	defer rows.Close()

	var subjects []engine.Subject
	for rows.Next() {
		var sub engine.Subject
		if err := rows.Scan(&sub.ID, &sub.SupervisorID, &sub.Name); err != nil {
			return nil, err
		}
		subjects = append(subjects, sub)
	}
	return subjects, rows.Err()
}

// =============================================================================
// CONFIG SOURCE (engine.ConfigSource interface)
// =============================================================================

const (
	layerGlobal     = "global"
	layerSupervisor = "supervisor"
	layerDate       = "date"
)

// GlobalConfig returns the global configuration layer. A missing row is a
// zero config, not an error.
func (s *Store) GlobalConfig(ctx context.Context) (engine.ShiftConfig, error) {
	return s.configLayer(ctx, layerGlobal, "")
}

// SupervisorConfig returns the supervisor's configuration layer.
func (s *Store) SupervisorConfig(ctx context.Context, supervisor engine.SupervisorID) (engine.ShiftConfig, error) {
	return s.configLayer(ctx, layerSupervisor, string(supervisor))
}

// DateOverride returns the per-date configuration layer.
func (s *Store) DateOverride(ctx context.Context, date engine.CivilDate) (engine.ShiftConfig, error) {
	return s.configLayer(ctx, layerDate, date.String())
}

func (s *Store) configLayer(ctx context.Context, layer, key string) (engine.ShiftConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT am_in, am_out, pm_in, pm_out, ot_in, ot_out
			FROM shift_configs WHERE layer = ? AND layer_key = ?`,
		layer, key)

	var cfg engine.ShiftConfig
	err := row.Scan(&cfg.AMIn, &cfg.AMOut, &cfg.PMIn, &cfg.PMOut, &cfg.OTIn, &cfg.OTOut)
	if err == sql.ErrNoRows {
		return engine.ShiftConfig{}, nil
	}
	if err != nil {
		return engine.ShiftConfig{}, fmt.Errorf("failed to read %s config: %w", layer, err)
	}
	return cfg, nil
}

// OvertimeGrant returns the grant covering the subject on the date, or nil.
// A subject-specific grant takes precedence over a date-wide one.
func (s *Store) OvertimeGrant(ctx context.Context, subject engine.SubjectID, date engine.CivilDate) (*engine.OvertimeGrant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT subject_id, civil_date, start_at, end_at FROM overtime_grants
			WHERE civil_date = ? AND subject_id IN (?, '')
			ORDER BY subject_id DESC LIMIT 1`,
		date.String(), subject)
	if err != nil {
		return nil, fmt.Errorf("failed to query overtime grant: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}

	var g engine.OvertimeGrant
	var d, start, end string
	if err := rows.Scan(&g.SubjectID, &d, &start, &end); err != nil {
		return nil, err
	}
	g.Date, _ = engine.ParseCivilDate(d)
	g.Start, _ = time.Parse(time.RFC3339, start)
	g.End, _ = time.Parse(time.RFC3339, end)
	return &g, nil
}

// =============================================================================
// CONFIG ADMIN - Write side of the configuration layers
// =============================================================================

// SetGlobalConfig replaces the global configuration layer.
func (s *Store) SetGlobalConfig(ctx context.Context, cfg engine.ShiftConfig) error {
	return s.putConfigLayer(ctx, layerGlobal, "", cfg)
}

// SetSupervisorConfig replaces a supervisor's configuration layer.
func (s *Store) SetSupervisorConfig(ctx context.Context, supervisor engine.SupervisorID, cfg engine.ShiftConfig) error {
	return s.putConfigLayer(ctx, layerSupervisor, string(supervisor), cfg)
}

// SetDateOverride replaces the per-date configuration layer.
func (s *Store) SetDateOverride(ctx context.Context, date engine.CivilDate, cfg engine.ShiftConfig) error {
	return s.putConfigLayer(ctx, layerDate, date.String(), cfg)
}

func (s *Store) putConfigLayer(ctx context.Context, layer, key string, cfg engine.ShiftConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO shift_configs
			(layer, layer_key, am_in, am_out, pm_in, pm_out, ot_in, ot_out, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(layer, layer_key) DO UPDATE SET
				am_in = excluded.am_in,
				am_out = excluded.am_out,
				pm_in = excluded.pm_in,
				pm_out = excluded.pm_out,
				ot_in = excluded.ot_in,
				ot_out = excluded.ot_out,
				updated_at = excluded.updated_at`,
		layer, key,
		cfg.AMIn, cfg.AMOut, cfg.PMIn, cfg.PMOut, cfg.OTIn, cfg.OTOut,
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to write %s config: %w", layer, err)
	}
	return nil
}

// PutOvertimeGrant records an overtime authorization for one subject-date
// (or date-wide when the subject is empty).
func (s *Store) PutOvertimeGrant(ctx context.Context, g engine.OvertimeGrant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO overtime_grants (subject_id, civil_date, start_at, end_at, created_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(subject_id, civil_date) DO UPDATE SET
				start_at = excluded.start_at,
				end_at = excluded.end_at`,
		g.SubjectID, g.Date.String(),
		g.Start.UTC().Format(time.RFC3339), g.End.UTC().Format(time.RFC3339),
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to write overtime grant: %w", err)
	}
	return nil
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func isBucketUniquenessError(err error) bool {
	return err != nil &&
		strings.Contains(err.Error(), "UNIQUE constraint failed") &&
		strings.Contains(err.Error(), "punches.subject_id")
}
