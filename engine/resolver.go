package engine

import (
	"context"
	"time"
)

// ScheduleResolver assembles the day schedule for one subject-day by
// reading every configuration layer fresh and collapsing them through the
// precedence chain. Nothing is cached across requests: overrides vary per
// date and per owning supervisor.
type ScheduleResolver struct {
	Config ConfigSource
	Loc    *time.Location
}

// Resolve reads the layers, collapses them (date override > supervisor >
// global > hard default), applies any date-level overtime grant, and builds
// the absolute schedule for the date.
func (r *ScheduleResolver) Resolve(ctx context.Context, subject Subject, date CivilDate) (DaySchedule, ResolvedShiftConfig, error) {
	override, err := r.Config.DateOverride(ctx, date)
	if err != nil {
		return DaySchedule{}, ResolvedShiftConfig{}, err
	}
	supervisor, err := r.Config.SupervisorConfig(ctx, subject.SupervisorID)
	if err != nil {
		return DaySchedule{}, ResolvedShiftConfig{}, err
	}
	global, err := r.Config.GlobalConfig(ctx)
	if err != nil {
		return DaySchedule{}, ResolvedShiftConfig{}, err
	}

	cfg, err := ResolveShiftConfig(override, supervisor, global)
	if err != nil {
		return DaySchedule{}, ResolvedShiftConfig{}, err
	}

	grant, err := r.Config.OvertimeGrant(ctx, subject.ID, date)
	if err != nil {
		return DaySchedule{}, ResolvedShiftConfig{}, err
	}
	return BuildDaySchedule(date, cfg, grant, r.Loc), cfg, nil
}
