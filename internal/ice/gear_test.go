package ice

import (
	"testing"

	"github.com/aerodyne-systems/icefc/internal/hal"
)

func TestGearSetGearIsIdempotentWithinATick(t *testing.T) {
	p := DefaultParams()
	log := &hal.FakeLogger{}
	var g gearbox
	g.state = GearPark
	g.activePWM = p.GearPWM[gearIdxPark].mid()

	g.setGear(GearForward, 0, &p, 0, log)
	first := g.pending
	g.setGear(GearForward, 0, &p, 0, log)

	if g.pending != first {
		t.Fatalf("calling set_gear twice with the same target must not create a second pending change: %+v vs %+v", g.pending, first)
	}
}

func TestGearShiftTiming(t *testing.T) {
	p := DefaultParams()
	p.GearStopS = 1.0
	p.GearDurS = 1.5
	log := &hal.FakeLogger{}

	var g gearbox
	g.state = GearPark
	g.activePWM = p.GearPWM[gearIdxPark].mid()

	if ok := g.setGear(GearForward, 0, &p, 0, log); !ok {
		t.Fatal("setGear should be accepted")
	}
	if g.pending.totalMs != 4500 {
		t.Fatalf("expected 3 steps * 1.5s = 4500ms total shift, got %d", g.pending.totalMs)
	}

	// Before GEAR_STOP elapses, active_pwm must not move (invariant 5/6).
	if forced := g.tick(500, &p, log); forced {
		t.Fatal("no phase transition expected before stop-wait elapses")
	}
	if g.activePWM != p.GearPWM[gearIdxPark].mid() {
		t.Fatal("active_pwm changed before the stop-wait phase completed")
	}

	// At GEAR_STOP, the stop-wait phase completes and active_pwm commits.
	if forced := g.tick(1000, &p, log); !forced {
		t.Fatal("expected a forced telemetry send when stop-wait completes")
	}
	if g.state != GearForward {
		t.Fatalf("expected current_state to become Forward, got %s", g.state)
	}
	wantPWM := p.GearPWM[gearIdxForward1].Up
	if g.activePWM != wantPWM {
		t.Fatalf("expected active_pwm %d, got %d", wantPWM, g.activePWM)
	}
	if !g.pending.active() {
		t.Fatal("shift phase should still be pending")
	}

	// Before total_shift_ms elapses (from the moment the shift phase
	// began, i.e. absolute 1000+4499), the pending change is still active.
	if forced := g.tick(1000+4499, &p, log); forced {
		t.Fatal("shift should not have completed yet")
	}

	// At 1000+4500 the shift completes.
	if forced := g.tick(1000+4500, &p, log); !forced {
		t.Fatal("expected completion force-send at total_shift_ms")
	}
	if g.pending.active() {
		t.Fatal("pending change should be cleared on completion")
	}
	if len(log.Lines) == 0 || log.Lines[len(log.Lines)-1] != "Gear is now Forward" {
		t.Fatalf("expected completion log line, got %v", log.Lines)
	}
}

func TestGearMidShiftChangeUsesConservativeStepCount(t *testing.T) {
	p := DefaultParams()
	p.GearDurS = 1.0
	log := &hal.FakeLogger{}

	var g gearbox
	g.state = GearPark
	g.activePWM = p.GearPWM[gearIdxPark].mid()
	g.setGear(GearReverse, 0, &p, 0, log) // 1 step normally

	// Re-target mid-shift: must fall back to the maximum step count.
	g.setGear(GearForward, 0, &p, 100, log)
	if g.pending.totalMs != uint32(maxGearPosition)*1000 {
		t.Fatalf("expected conservative max-position shift duration, got %d", g.pending.totalMs)
	}
}

func TestClassifyGearPWM(t *testing.T) {
	p := DefaultParams()
	cases := []struct {
		pwm  uint16
		want GearState
	}{
		{p.GearPWM[gearIdxPark].mid(), GearPark},
		{p.GearPWM[gearIdxReverse].mid(), GearReverse},
		{p.GearPWM[gearIdxNeutral].mid(), GearNeutral},
		{p.GearPWM[gearIdxForward1].mid(), GearForward},
		{p.GearPWM[gearIdxForward2].mid(), GearForward2},
	}
	for _, c := range cases {
		if got := classifyGearPWM(c.pwm, &p); got != c.want {
			t.Errorf("classifyGearPWM(%d) = %s, want %s", c.pwm, got, c.want)
		}
	}
}
