package factory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FluxxCC/OJTonTrack-sub001/engine"
	"github.com/FluxxCC/OJTonTrack-sub001/engine/store"
	"github.com/FluxxCC/OJTonTrack-sub001/factory"
)

var tz = engine.FixedOffsetLocation(engine.DefaultOffsetHours)

func TestParseDocument_FullDocument(t *testing.T) {
	f := factory.NewConfigFactory()

	doc, err := f.ParseDocument(`{
		"global": {"am_in": "08:00", "am_out": "12:00"},
		"supervisors": {"sup-lab": {"pm_out": "18:00"}},
		"dates": {"2026-06-12": {"am_out": "11:00"}},
		"overtime_grants": [
			{"subject_id": "t-001", "date": "2026-06-12",
			 "start": "2026-06-12T17:00:00+08:00", "end": "2026-06-12T21:00:00+08:00"}
		]
	}`)
	require.NoError(t, err)
	require.NotNil(t, doc.Global)
	assert.Equal(t, "08:00", doc.Global.AMIn)
	assert.Len(t, doc.Supervisors, 1)
	assert.Len(t, doc.Dates, 1)
	assert.Len(t, doc.OvertimeGrants, 1)
}

func TestParseDocument_RejectsMalformedFields(t *testing.T) {
	f := factory.NewConfigFactory()

	cases := []struct {
		name string
		json string
	}{
		{"bad clock text", `{"global": {"am_in": "25:00"}}`},
		{"bad date key", `{"dates": {"June 12": {"am_in": "08:00"}}}`},
		{"empty supervisor id", `{"supervisors": {"": {"am_in": "08:00"}}}`},
		{"inverted grant", `{"overtime_grants": [{"date": "2026-06-12",
			"start": "2026-06-12T21:00:00+08:00", "end": "2026-06-12T17:00:00+08:00"}]}`},
		{"bad grant instant", `{"overtime_grants": [{"date": "2026-06-12",
			"start": "5pm", "end": "2026-06-12T21:00:00+08:00"}]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.ParseDocument(tc.json)
			assert.ErrorIs(t, err, engine.ErrInvalidConfig)
		})
	}
}

func TestApply_WritesEveryLayer(t *testing.T) {
	f := factory.NewConfigFactory()
	mem := store.NewMemory(tz)
	ctx := context.Background()

	doc, err := f.ParseDocument(`{
		"global": {"am_in": "08:30"},
		"supervisors": {"sup-lab": {"pm_in": "14:00"}},
		"dates": {"2026-06-12": {"ot_out": "19:00"}},
		"overtime_grants": [
			{"date": "2026-06-12",
			 "start": "2026-06-12T17:00:00+08:00", "end": "2026-06-12T20:00:00+08:00"}
		]
	}`)
	require.NoError(t, err)
	require.NoError(t, f.Apply(ctx, mem, doc))

	global, err := mem.GlobalConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, "08:30", global.AMIn)

	sup, err := mem.SupervisorConfig(ctx, "sup-lab")
	require.NoError(t, err)
	assert.Equal(t, "14:00", sup.PMIn)

	day := engine.NewCivilDate(2026, time.June, 12)
	date, err := mem.DateOverride(ctx, day)
	require.NoError(t, err)
	assert.Equal(t, "19:00", date.OTOut)

	grant, err := mem.OvertimeGrant(ctx, "anyone", day)
	require.NoError(t, err)
	require.NotNil(t, grant, "a subject-less grant covers the whole date")
	assert.True(t, grant.End.Equal(engine.MustClockTime("20:00").On(day, tz)))
}

func TestStandardScheduleJSON_Parses(t *testing.T) {
	f := factory.NewConfigFactory()

	doc, err := f.ParseDocument(factory.StandardScheduleJSON())
	require.NoError(t, err)
	require.NotNil(t, doc.Global)
	assert.Equal(t, "17:00", doc.Global.OTIn)

	night, err := f.ParseDocument(factory.NightShiftScheduleJSON("sup-night"))
	require.NoError(t, err)
	assert.Equal(t, "02:00", night.Supervisors["sup-night"].OTOut)
}
