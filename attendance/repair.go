/*
repair.go - Ledger rebuild pass

PURPOSE:
  The ledger is a best-effort derived projection: a freeze that failed at
  punch time leaves a completed session with no snapshot. The repair pass
  re-runs the freeze over every out punch in a date range, filling the gaps.
  Upserts are keyed, so repairing an already-frozen day is a no-op with the
  same stored row.
*/
package attendance

import (
	"context"
	"log"

	"github.com/FluxxCC/OJTonTrack-sub001/engine"
)

// RepairReport summarizes one repair run.
type RepairReport struct {
	SubjectsScanned int
	EntriesFrozen   int
	Failures        int
}

// RepairLedger re-freezes every out punch for every subject active in
// [from, to]. Individual freeze failures are logged and counted, never
// fatal to the run.
func (s *Service) RepairLedger(ctx context.Context, from, to engine.CivilDate) (*RepairReport, error) {
	subjects, err := s.deps.Punches.SubjectsWithPunches(ctx, from, to)
	if err != nil {
		return nil, err
	}

	report := &RepairReport{SubjectsScanned: len(subjects)}
	for _, subject := range subjects {
		for d := from; !d.After(to); d = d.AddDays(1) {
			punches, err := s.deps.Punches.ListDayPunches(ctx, subject, d)
			if err != nil {
				return nil, err
			}
			for _, p := range punches {
				if p.Kind != engine.KindOut || p.Status == engine.StatusRejected {
					continue
				}
				entry, err := s.freezer.FreezeOut(ctx, p)
				if err != nil {
					report.Failures++
					log.Printf("attendance: repair freeze failed for punch %s: %v", p.ID, err)
					continue
				}
				if entry != nil {
					report.EntriesFrozen++
				}
			}
		}
	}
	return report, nil
}
