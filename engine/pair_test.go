/*
pair_test.go - Session pairing, latest-out-wins, virtual out synthesis

Covers window assignment of in punches, the latest-qualifying-out rule,
virtual auto-close for past days, and open sessions on the current day.
*/
package engine_test

import (
	"testing"
	"time"

	"github.com/FluxxCC/OJTonTrack-sub001/engine"
)

func TestPairSessions_CleanDay(t *testing.T) {
	// GIVEN: in/out pairs landing squarely in the morning and afternoon
	// WHEN: pairing
	// THEN: two sessions, each in its own window

	day := testDay()
	sched := defaultSchedule(day)
	punches := []engine.Punch{
		inPunch(day, "07:55"),
		outPunch(day, "12:00"),
		inPunch(day, "12:58"),
		outPunch(day, "17:00"),
	}

	sessions := engine.PairSessions(punches, sched, true)

	if sessions.AM == nil || sessions.PM == nil {
		t.Fatal("expected am and pm sessions")
	}
	if sessions.AM.VirtualOut || sessions.PM.VirtualOut {
		t.Error("complete pairs must not synthesize outs")
	}
	if !sessions.AM.Out.At.Equal(at(day, "12:00")) {
		t.Errorf("am out wrong: %v", sessions.AM.Out.At)
	}
	if sessions.OT != nil {
		t.Error("no overtime punches, no ot session")
	}
}

func TestPairSessions_LatestOutWins(t *testing.T) {
	// GIVEN: a morning in followed by two morning outs (erroneous early
	//        punch at 11:00, corrected by re-punching at 11:58)
	// WHEN: pairing
	// THEN: the later out stands

	day := testDay()
	sched := defaultSchedule(day)
	punches := []engine.Punch{
		inPunch(day, "08:00"),
		outPunch(day, "11:00"),
		outPunch(day, "11:58"),
	}

	sessions := engine.PairSessions(punches, sched, true)

	if sessions.AM == nil {
		t.Fatal("expected am session")
	}
	if !sessions.AM.Out.At.Equal(at(day, "11:58")) {
		t.Errorf("latest out should win, got %v", sessions.AM.Out.At)
	}
}

func TestPairSessions_VirtualOutAtOfficialEnd(t *testing.T) {
	// GIVEN: a past day whose afternoon in was never closed
	// WHEN: pairing with dayInPast=true
	// THEN: a virtual out is synthesized at the window's official end and
	//       carries the auto-close validator marker

	day := testDay()
	sched := defaultSchedule(day)
	punches := []engine.Punch{
		inPunch(day, "13:05"),
	}

	sessions := engine.PairSessions(punches, sched, true)

	if sessions.PM == nil {
		t.Fatal("expected pm session")
	}
	if !sessions.PM.VirtualOut {
		t.Fatal("expected a virtual out")
	}
	if !sessions.PM.Out.At.Equal(at(day, "17:00")) {
		t.Errorf("virtual out should land at official end, got %v", sessions.PM.Out.At)
	}
	if !sessions.PM.Out.IsVirtual() {
		t.Error("synthesized out must carry the auto-close validator")
	}
}

func TestPairSessions_VirtualOutFallsBackToInPlusMinute(t *testing.T) {
	// An in punched after the official end (inside no sensible span) still
	// closes: official end is not after the in, so in+1m is used.
	day := testDay()
	sched := defaultSchedule(day)

	// 12:00 is the am official end; an am-buffered in at exactly 12:00
	// leaves no positive span to the official end.
	punches := []engine.Punch{inPunch(day, "12:00")}

	sessions := engine.PairSessions(punches, sched, true)
	if sessions.AM == nil {
		t.Fatal("expected am session")
	}
	want := at(day, "12:00").Add(time.Minute)
	if !sessions.AM.Out.At.Equal(want) {
		t.Errorf("expected in+1m auto-close, got %v", sessions.AM.Out.At)
	}
}

func TestPairSessions_NoVirtualOutToday(t *testing.T) {
	// GIVEN: the current day with an open morning in
	// WHEN: pairing with dayInPast=false
	// THEN: no session is produced; the open punch is simply active

	day := testDay()
	sched := defaultSchedule(day)
	punches := []engine.Punch{inPunch(day, "08:00")}

	sessions := engine.PairSessions(punches, sched, false)
	if sessions.AM != nil {
		t.Errorf("open session today must not pair, got %+v", sessions.AM)
	}
}

func TestPairSessions_AuthorizedOvertimeMatchesOvertimeOnly(t *testing.T) {
	// GIVEN: an authorized-overtime in at 16:45, inside pm's window
	// WHEN: pairing
	// THEN: it fills the ot window, never pm

	day := testDay()
	sched := defaultSchedule(day)

	otIn := inPunch(day, "16:45")
	otIn.AuthorizedOvertime = true
	punches := []engine.Punch{otIn, outPunch(day, "18:00")}

	sessions := engine.PairSessions(punches, sched, true)

	if sessions.PM != nil {
		t.Error("authorized overtime must not fill pm")
	}
	if sessions.OT == nil {
		t.Fatal("expected ot session")
	}
	if !sessions.OT.Out.At.Equal(at(day, "18:00")) {
		t.Errorf("ot out wrong: %v", sessions.OT.Out.At)
	}
}

func TestPairSessions_OutBoundedByNextWindowsIn(t *testing.T) {
	// GIVEN: morning in, afternoon in, then a single out at 17:00
	// WHEN: pairing
	// THEN: the out closes the afternoon; the morning auto-closes at its
	//       official end because no out precedes the afternoon's in

	day := testDay()
	sched := defaultSchedule(day)
	punches := []engine.Punch{
		inPunch(day, "08:00"),
		inPunch(day, "13:00"),
		outPunch(day, "17:00"),
	}

	sessions := engine.PairSessions(punches, sched, true)

	if sessions.AM == nil || sessions.PM == nil {
		t.Fatal("expected both sessions")
	}
	if !sessions.AM.VirtualOut {
		t.Error("morning must auto-close, its out search is bounded by the pm in")
	}
	if sessions.PM.VirtualOut {
		t.Error("afternoon has a real out")
	}
	if !sessions.PM.Out.At.Equal(at(day, "17:00")) {
		t.Errorf("pm out wrong: %v", sessions.PM.Out.At)
	}
}
