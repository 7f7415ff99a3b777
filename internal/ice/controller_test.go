package ice

import (
	"testing"

	"github.com/aerodyne-systems/icefc/internal/hal"
)

type harness struct {
	c *Controller

	rc                         *hal.FakeRC
	ignition, starter, gearSrv *hal.FakeServo
	throttle                   *hal.FakeServo
	rpm                        *hal.FakeRPM
	batt                       *hal.FakeBattery
	ahrs                       *hal.FakeAHRS
	analog                     *hal.FakeAnalogSource
	gpio                       *hal.FakeGPIO
	clock                      *hal.FakeClock
	arming                     *hal.FakeArming
	log                        *hal.FakeLogger
	sink                       *hal.FakeStatusSink
}

// newHarness resets the package-level singleton guard before every test;
// legitimate because this is a white-box test file in the same package.
func newHarness(p *Params) *harness {
	constructed = false

	h := &harness{
		rc:       hal.NewFakeRC(),
		ignition: hal.NewFakeServo(1000),
		starter:  hal.NewFakeServo(1000),
		gearSrv:  hal.NewFakeServo(1295),
		throttle: hal.NewFakeServo(0),
		rpm:      hal.NewFakeRPM(),
		batt:     hal.NewFakeBattery(),
		ahrs:     &hal.FakeAHRS{},
		analog:   hal.NewFakeAnalogSource(),
		gpio:     hal.NewFakeGPIO(),
		clock:    &hal.FakeClock{},
		arming:   &hal.FakeArming{},
		log:      &hal.FakeLogger{},
		sink:     &hal.FakeStatusSink{},
	}
	h.c = New(p, Deps{
		RC:       h.rc,
		Ignition: h.ignition,
		Starter:  h.starter,
		Gear:     h.gearSrv,
		Throttle: h.throttle,
		RPM:      h.rpm,
		Battery:  h.batt,
		AHRS:     h.ahrs,
		Analog:   h.analog,
		GPIO:     h.gpio,
		Clock:    h.clock,
		Arming:   h.arming,
		Log:      h.log,
		Status:   h.sink,
	})
	return h
}

func TestConstructingASecondControllerPanics(t *testing.T) {
	p := DefaultParams()
	newHarness(&p) // first construction succeeds and leaves constructed=true

	defer func() {
		if recover() == nil {
			t.Fatal("expected a panic on double construction of the singleton controller")
		}
	}()
	New(&p, Deps{})
}

func TestInitAutoDetectsGearFromTrimPWM(t *testing.T) {
	p := DefaultParams()
	h := newHarness(&p)
	h.gearSrv.TrimPWM = p.GearPWM[gearIdxNeutral].mid()
	h.gearSrv.PWM = h.gearSrv.TrimPWM

	h.c.Init(false)
	if h.c.GearState() != GearNeutral {
		t.Fatalf("expected boot-time auto-detect to classify Neutral, got %s", h.c.GearState())
	}
}

func TestInitHoldsOutputEnablePinLowWhenInhibited(t *testing.T) {
	p := DefaultParams()
	p.OutEnablePin = 7
	h := newHarness(&p)

	h.c.Init(true)
	if h.gpio.Level[7] {
		t.Fatal("expected OUT_EN_PIN held low while inhibited")
	}

	h.c.Init(false)
	if !h.gpio.Level[7] {
		t.Fatal("expected OUT_EN_PIN released high once no longer inhibited")
	}
}

func TestTickDrivesOutputsAndTelemetry(t *testing.T) {
	p := DefaultParams()
	p.Enable = true
	p.StartChan = 1
	h := newHarness(&p)
	h.arming.IsArmed = true
	h.rc.Values[1] = 1800 // START_RUN

	h.clock.Millis = 0
	h.c.Tick()
	if h.c.EngineState() != EngineStartDelay {
		t.Fatalf("expected START_DELAY after first tick, got %s", h.c.EngineState())
	}
	if h.ignition.Scaled != 100 {
		t.Fatalf("expected ignition full on in START_DELAY, got scaled=%v", h.ignition.Scaled)
	}

	if len(h.sink.Sent) == 0 {
		t.Fatal("expected telemetry to be force-sent on the first state transition")
	}
}

func TestEngineControlRejectsWhenBlocked(t *testing.T) {
	p := DefaultParams()
	p.Options = OptBlockExternalStarterCmds
	h := newHarness(&p)

	if h.c.EngineControl(2, false, 0, GearUnknown, 0, true) {
		t.Fatal("expected EngineControl to be rejected when block_external_starter_cmds is set")
	}
}

func TestEngineControlRejectsWhenRCSwitchIsOff(t *testing.T) {
	p := DefaultParams()
	p.StartChan = 1
	h := newHarness(&p)
	h.rc.Values[1] = 1000 // OFF band

	if h.c.EngineControl(2, false, 0, GearUnknown, 0, true) {
		t.Fatal("expected EngineControl to be rejected while the RC switch is OFF and not auto-forced")
	}
}

func TestEngineControlSetsGear(t *testing.T) {
	p := DefaultParams()
	p.StartChan = 1
	h := newHarness(&p)
	h.rc.Values[1] = 1800

	if !h.c.EngineControl(2, false, 0, GearForward, 0, true) {
		t.Fatal("expected EngineControl to be accepted")
	}
	if !h.c.gear.pending.active() {
		t.Fatal("expected EngineControl to initiate a gear change to FORWARD")
	}
}

func TestRCChannelOverridesEngineControlEveryTick(t *testing.T) {
	p := DefaultParams()
	p.Enable = true
	p.StartChan = 1
	h := newHarness(&p)
	h.rc.Values[1] = 1800 // START_RUN, so the EngineControl call below is accepted
	h.arming.IsArmed = true

	if !h.c.EngineControl(2, false, 0, GearUnknown, 0, true) {
		t.Fatal("expected EngineControl to be accepted")
	}

	// The pilot now flips the physical switch to OFF. Per spec.md §4.1 the
	// RC channel, once it exists, wins every tick regardless of any prior
	// engine_control call.
	h.rc.Values[1] = 1000
	if h.c.resolveIntent() != IgnitionOff {
		t.Fatal("expected the RC-decoded OFF intent to override the earlier engine_control START_RUN")
	}
}

func TestAutoOverrideAppliesOnlyWhenRCChannelIsInvalid(t *testing.T) {
	p := DefaultParams()
	p.StartChan = 1
	p.Options = OptAutoAlwaysAutostart
	h := newHarness(&p)
	h.c.SetAutoModeActive(true)
	// No RC value set for channel 1: Channel(1) reports ok=false, so the
	// block-check in EngineControl is bypassed via the auto-forced path.

	if !h.c.EngineControl(2, false, 0, GearUnknown, 0, true) {
		t.Fatal("expected EngineControl to be accepted under auto_always_autostart")
	}

	// auto_always_autostart itself would also force START_RUN, so disable
	// it here to isolate autoOverrideIntent's own fallback behavior.
	p.Options = 0
	if h.c.resolveIntent() != IgnitionStartRun {
		t.Fatal("expected the engine_control override to apply when START_CHAN names no valid channel")
	}
}

func TestSetTransmissionStateAppliesBrakeReleaseFlag(t *testing.T) {
	p := DefaultParams()
	h := newHarness(&p)

	if !h.c.SetTransmissionState(GearNeutral, 0, true) {
		t.Fatal("expected SetTransmissionState to be accepted")
	}
	if !p.BrakeReleaseInNeutral {
		t.Fatal("expected brake_release_in_neutral to be recorded")
	}
}
