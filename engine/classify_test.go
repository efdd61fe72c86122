/*
classify_test.go - Window classification and the grace buffer

Covers the 30-minute early-arrival buffer on both edges and the literal
am, pm, ot evaluation order.
*/
package engine_test

import (
	"testing"

	"github.com/FluxxCC/OJTonTrack-sub001/engine"
)

func defaultSchedule(d engine.CivilDate) engine.DaySchedule {
	return engine.BuildDaySchedule(d, engine.DefaultShiftConfig(), nil, tz)
}

func TestClassify_InsideWindow(t *testing.T) {
	day := testDay()
	sched := defaultSchedule(day)

	cases := []struct {
		clock string
		want  engine.Window
	}{
		{"08:00", engine.WindowAM},
		{"10:30", engine.WindowAM},
		{"12:00", engine.WindowAM}, // official end is inclusive
		{"13:00", engine.WindowPM},
		{"17:30", engine.WindowOT},
		{"18:00", engine.WindowOT},
	}
	for _, c := range cases {
		if got := engine.Classify(at(day, c.clock), sched); got != c.want {
			t.Errorf("%s: expected %s, got %s", c.clock, c.want, got)
		}
	}
}

func TestClassify_GraceBufferBeforeStart(t *testing.T) {
	// GIVEN: the default morning window starting 08:00
	// WHEN: punching 07:31 (inside the 30-minute buffer) and 07:29 (outside)
	// THEN: 07:31 classifies am, 07:29 classifies none

	day := testDay()
	sched := defaultSchedule(day)

	if got := engine.Classify(at(day, "07:31"), sched); got != engine.WindowAM {
		t.Errorf("07:31 should classify am, got %s", got)
	}
	if got := engine.Classify(at(day, "07:30"), sched); got != engine.WindowAM {
		t.Errorf("07:30 (buffer edge, inclusive) should classify am, got %s", got)
	}
	if got := engine.Classify(at(day, "07:29"), sched); got != engine.WindowNone {
		t.Errorf("07:29 should classify none, got %s", got)
	}
}

func TestClassify_AfterEndIsNextWindowOrNone(t *testing.T) {
	// A punch after a window's official end belongs to the next window only
	// through that window's own buffer.
	day := testDay()
	sched := defaultSchedule(day)

	// 12:01 is past am's end but within pm's 12:30 buffer start? No:
	// pm starts 13:00, buffer opens 12:30. 12:01 belongs to nothing.
	if got := engine.Classify(at(day, "12:01"), sched); got != engine.WindowNone {
		t.Errorf("12:01 should classify none, got %s", got)
	}
	if got := engine.Classify(at(day, "12:30"), sched); got != engine.WindowPM {
		t.Errorf("12:30 should classify pm via buffer, got %s", got)
	}
}

func TestClassify_OrderBreaksOverlapTies(t *testing.T) {
	// GIVEN: a broken config where pm's buffer overlaps am's window
	// WHEN: classifying an instant inside both
	// THEN: am wins by evaluation order, deterministically

	cfg, err := engine.ResolveShiftConfig(engine.ShiftConfig{
		AMIn: "08:00", AMOut: "12:00",
		PMIn: "12:00", PMOut: "16:00",
	})
	if err != nil {
		t.Fatalf("resolution failed: %v", err)
	}
	day := testDay()
	sched := engine.BuildDaySchedule(day, cfg, nil, tz)

	// 11:45 is inside am and inside pm's buffer (11:30-).
	if got := engine.Classify(at(day, "11:45"), sched); got != engine.WindowAM {
		t.Errorf("overlap should resolve to am by order, got %s", got)
	}
}

func TestClassify_OvernightWindowSpansMidnight(t *testing.T) {
	// GIVEN: an overtime window 22:00-02:00
	// WHEN: classifying 01:30 on the next calendar day
	// THEN: it belongs to the window anchored on the previous day

	cfg, err := engine.ResolveShiftConfig(engine.ShiftConfig{OTIn: "22:00", OTOut: "02:00"})
	if err != nil {
		t.Fatalf("resolution failed: %v", err)
	}
	day := testDay()
	sched := engine.BuildDaySchedule(day, cfg, nil, tz)

	if got := engine.Classify(at(day.AddDays(1), "01:30"), sched); got != engine.WindowOT {
		t.Errorf("01:30 next day should classify ot, got %s", got)
	}
}
