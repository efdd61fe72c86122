/*
validate.go - Supervisor validation workflow

PURPOSE:
  Punches start raw and are validated or rejected by a supervisor.
  Administrators may correct a punch's instant or kind after the fact; any
  such correction invalidates the frozen ledger for that subject-day by
  re-running the freeze and sweeping away snapshots the re-freeze no longer
  produces, and the punch lands in the adjusted status on re-validation.
*/
package attendance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/FluxxCC/OJTonTrack-sub001/engine"
)

// ValidatePunch moves a raw punch to validated.
func (s *Service) ValidatePunch(ctx context.Context, id engine.PunchID, validatorID string) error {
	return s.transition(ctx, id, engine.StatusValidated, validatorID)
}

// RejectPunch moves a raw punch to rejected.
func (s *Service) RejectPunch(ctx context.Context, id engine.PunchID, validatorID string) error {
	return s.transition(ctx, id, engine.StatusRejected, validatorID)
}

func (s *Service) transition(ctx context.Context, id engine.PunchID, to engine.PunchStatus, validatorID string) error {
	p, err := s.deps.Punches.GetPunch(ctx, id)
	if err != nil {
		return err
	}
	if !engine.CanTransition(p.Status, to) {
		return fmt.Errorf("%w: %s -> %s", engine.ErrInvalidTransition, p.Status, to)
	}
	p.Status = to
	if validatorID != "" {
		p.ValidatorID = validatorID
	}
	return s.deps.Punches.UpdatePunch(ctx, *p)
}

// AdjustPunchInput is an administrative correction. Zero fields keep the
// current value.
type AdjustPunchInput struct {
	At          time.Time
	Kind        engine.PunchKind
	ValidatorID string
}

// AdjustPunch corrects a punch's instant and/or kind, marks it adjusted,
// and re-freezes the affected day so the ledger reflects the correction.
// This is the only path that recomputes an existing ledger entry.
func (s *Service) AdjustPunch(ctx context.Context, id engine.PunchID, in AdjustPunchInput) error {
	p, err := s.deps.Punches.GetPunch(ctx, id)
	if err != nil {
		return err
	}
	if !engine.CanTransition(p.Status, engine.StatusAdjusted) {
		return fmt.Errorf("%w: %s -> %s", engine.ErrInvalidTransition, p.Status, engine.StatusAdjusted)
	}

	oldDate := engine.CivilDateOf(p.At, s.deps.Loc)

	if !in.At.IsZero() {
		p.At = in.At
	}
	if in.Kind != "" {
		p.Kind = in.Kind
	}
	p.Status = engine.StatusAdjusted
	if in.ValidatorID != "" {
		p.ValidatorID = in.ValidatorID
	}
	if err := s.deps.Punches.UpdatePunch(ctx, *p); err != nil {
		return err
	}

	// Re-run the freeze over every out punch the correction can have
	// touched. Upserts by key make this idempotent.
	dates := []engine.CivilDate{oldDate}
	if newDate := engine.CivilDateOf(p.At, s.deps.Loc); newDate != oldDate {
		dates = append(dates, newDate)
	}
	for _, d := range dates {
		if err := s.refreezeDay(ctx, p.SubjectID, d); err != nil {
			return err
		}
	}
	return nil
}

// refreezeDay re-runs freeze steps for every out punch that can own one
// subject-day's ledger, then deletes the snapshots the re-freeze did not
// regenerate. A correction that moves a session into a different window (or
// turns an out into an in) leaves the prior entry under a key no upsert
// touches; without the sweep the day would double count.
func (s *Service) refreezeDay(ctx context.Context, subject engine.SubjectID, date engine.CivilDate) error {
	existing, err := s.deps.Ledger.ListEntriesDay(ctx, subject, date)
	if err != nil {
		return err
	}

	// Outs on the following date can own this date's entries (overnight
	// sessions), so both days' outs are re-run.
	kept := map[engine.LedgerKey]bool{}
	for _, d := range []engine.CivilDate{date, date.AddDays(1)} {
		punches, err := s.deps.Punches.ListDayPunches(ctx, subject, d)
		if err != nil {
			return err
		}
		for _, p := range punches {
			if p.Kind != engine.KindOut || p.Status == engine.StatusRejected {
				continue
			}
			entry, err := s.freezer.FreezeOut(ctx, p)
			if err != nil {
				return err
			}
			if entry != nil {
				kept[entry.Key()] = true
			}
		}
	}

	for _, e := range existing {
		if kept[e.Key()] {
			continue
		}
		if err := s.deps.Ledger.DeleteEntry(ctx, e.Key()); err != nil && !errors.Is(err, engine.ErrLedgerEntryNotFound) {
			return err
		}
	}
	return nil
}
