package ice

import "github.com/aerodyne-systems/icefc/internal/hal"

// Deps bundles every external collaborator the controller consumes
// (spec.md §6 Consumed). It is constructed once by the autopilot
// scheduler and handed to New.
type Deps struct {
	RC hal.RCReceiver

	Ignition hal.ServoChannel
	Starter  hal.ServoChannel
	Gear     hal.ServoChannel
	Throttle hal.ServoChannel

	RPM     hal.RPMSensor
	Battery hal.Battery
	AHRS    hal.AHRS
	Analog  hal.AnalogSource
	GPIO    hal.GPIO
	Clock   hal.Clock
	Arming  hal.Arming
	Log     hal.Logger
	Status  hal.StatusSink
}

// constructed enforces spec.md §5's "process-wide singleton, fatal on
// duplicate construction" by panicking at the construction site rather
// than with a runtime check scattered through every method (spec.md §9
// design note on the global singleton).
var constructed bool

// Controller is the top-level ICE controller tying the engine FSM, the
// gear FSM, the sensor front-ends, overrides, outputs, and telemetry
// together (spec.md §2 System Overview).
type Controller struct {
	params *Params
	deps   Deps

	eng  engine
	gear gearbox
	temp temperatureSensor
	fuel fuelSensor
	tele Telemetry

	autoModeActive bool
	forceSend      bool

	// autoOverrideIntent is set by EngineControl (spec.md §4.7). It is
	// consulted only when START_CHAN names no valid RC channel, matching
	// original_source/AP_ICEngine.cpp's determine_state(): the RC channel,
	// when present, overwrites startControlSelect every tick.
	autoOverrideIntent *IgnitionIntent

	// bootIgnitionSwitch is the ignition-switch PWM bucket observed at
	// Init time, supplemented from original_source/ for diagnostics (§D):
	// the original logs a boot-time snapshot before the first tick runs.
	bootIgnitionSwitch IgnitionIntent
}

// New constructs the controller. Calling it twice is a fatal condition
// (spec.md §5); the second call panics rather than returning an error,
// since there is no recovery from a double-owned singleton.
func New(params *Params, d Deps) *Controller {
	if constructed {
		panic("ice: controller already constructed")
	}
	constructed = true
	return &Controller{params: params, deps: d}
}

// Init silences outputs via OUT_EN_PIN until the caller is ready, and
// attempts to auto-detect the current gear by reading back the gear
// servo's trim PWM (spec.md §4.2 "auto-detect from PWM at boot").
func (c *Controller) Init(inhibit bool) {
	if c.params.OutEnablePin >= 0 {
		c.deps.GPIO.PinMode(c.params.OutEnablePin, true)
		c.deps.GPIO.Write(c.params.OutEnablePin, !inhibit)
	}

	if c.deps.Gear.Assigned() && c.gear.state == GearUnknown {
		c.deps.Gear.SetPWM(c.deps.Gear.Trim())
		if pwm, ok := c.deps.Gear.OutputPWM(); ok {
			c.gear.state = classifyGearPWM(pwm, c.params)
			c.gear.activePWM = pwm
		}
	}

	if pwm, ok := c.deps.RC.Channel(c.params.StartChan); ok {
		c.bootIgnitionSwitch = DecodeIgnitionIntent(pwm)
	} else {
		c.bootIgnitionSwitch = IgnitionOff
	}
}

// SetAutoModeActive records whether the vehicle is presently flying an
// autonomous mission (fed in by the surrounding vehicle code, spec.md
// §3.2 auto_mode_active).
func (c *Controller) SetAutoModeActive(active bool) { c.autoModeActive = active }

// EngineState reports the current lifecycle state, for diagnostics and
// tests.
func (c *Controller) EngineState() EngineState { return c.eng.state }

// GearState reports the current gear, for diagnostics and tests.
func (c *Controller) GearState() GearState { return c.gear.state }

// ActiveTelemetry reports which status message kinds have fired at
// least once (supplemented §D).
func (c *Controller) ActiveTelemetry() ActiveMask { return c.tele.ActiveMask() }

// resolveIntent implements spec.md §4.1's resolution rule: in auto mode
// with auto_always_autostart set, the intent is START_RUN; otherwise the
// RC channel, when it exists, is decoded and wins every tick;
// autoOverrideIntent (set by EngineControl) only applies when
// START_CHAN names no valid channel, exactly as
// original_source/AP_ICEngine.cpp's determine_state() only keeps a
// ground-station startControlSelect when its RC_Channel lookup is null.
func (c *Controller) resolveIntent() IgnitionIntent {
	if c.autoModeActive && c.params.Options.has(OptAutoAlwaysAutostart) {
		return IgnitionStartRun
	}
	pwm, ok := c.deps.RC.Channel(c.params.StartChan)
	if ok {
		return DecodeIgnitionIntent(pwm)
	}
	if c.autoOverrideIntent != nil {
		return *c.autoOverrideIntent
	}
	return IgnitionOff
}

// Tick runs one full control cycle: sample sensors, advance both state
// machines, drive outputs, emit telemetry (spec.md §2 System Overview,
// §5 ordering guarantee).
func (c *Controller) Tick() {
	nowMs := c.deps.Clock.NowMillis()

	c.temp.update(nowMs, c.params, c.deps.Analog)
	c.fuel.update(nowMs, c.params, c.deps.Battery)

	intent := c.resolveIntent()
	if !c.params.Enable {
		intent = IgnitionOff
	}

	var rpm float64 = -1
	haveRPM := false
	if c.params.RPMChan > 0 {
		rpm, haveRPM = c.deps.RPM.RPM(c.params.RPMChan - 1)
	}

	ahrsDown, haveAHRS := c.deps.AHRS.RelativePositionDownNEDOrigin()

	changed := c.eng.tick(tickInput{
		nowMs:     nowMs,
		intent:    intent,
		armed:     c.deps.Arming.Armed(),
		rpm:       rpm,
		haveRPM:   haveRPM,
		ahrsDownM: ahrsDown,
		haveAHRS:  haveAHRS,
	}, c.params, c.deps.Log)

	gearChanged := c.gear.tick(nowMs, c.params, c.deps.Log)
	c.gear.maybeAutoForward(c.autoModeActive, c.eng.state, c.params, nowMs, c.deps.Log)

	gearChanging := c.gear.pending.active()
	driveOutputs(c.eng.state, gearChanging, c.gear.activePWM, c.deps.Ignition, c.deps.Starter, c.deps.Gear)

	force := c.forceSend || changed || gearChanged
	c.forceSend = false

	c.tele.send(nowMs, force, c.deps.Status,
		c.temp.value, c.temp.healthy(nowMs), c.params.TempMax, c.params.TempMin,
		c.gear.state, c.gear.activePWM, intent,
		c.fuel.value, c.fuel.healthy(nowMs))
}

// ThrottleOverride implements spec.md §4.4. current is the throttle
// channel's presently commanded percentage.
func (c *Controller) ThrottleOverride(p, current float64) (float64, bool) {
	nowMs := c.deps.Clock.NowMillis()
	return throttleOverride(p, current, c.eng.state, c.gear.pending.active(), c.temp.value, c.temp.healthy(nowMs), c.params)
}

// BrakeOverride implements spec.md §4.5.
func (c *Controller) BrakeOverride(b, desiredSpeed float64, desiredSpeedValid bool, measuredSpeed float64) (float64, bool) {
	return brakeOverride(b, desiredSpeed, desiredSpeedValid, measuredSpeed, c.deps.Arming.Armed(), c.gear.state, c.gear.pending.active(), c.params.BrakeReleaseInNeutral)
}

// SetGear commands a direct gear change (spec.md §4.2 set_gear).
func (c *Controller) SetGear(target GearState, explicitPWM uint16) bool {
	return c.gear.setGear(target, explicitPWM, c.params, c.deps.Clock.NowMillis(), c.deps.Log)
}

// SetTransmissionState implements MAV_CMD_ICE_SET_TRANSMISSION_STATE
// (spec.md §6 Accepted; Open Question 3 — handle_set_ice_transmission_state
// is stubbed in the source, so this follows the spec's assumed intent:
// param2=gear, param3=pwm, param4=brake-release-in-neutral).
func (c *Controller) SetTransmissionState(gear GearState, pwm uint16, brakeReleaseInNeutral bool) bool {
	c.params.BrakeReleaseInNeutral = brakeReleaseInNeutral
	return c.gear.setGear(gear, pwm, c.params, c.deps.Clock.NowMillis(), c.deps.Log)
}

// EngineControl implements MAV_CMD_DO_ENGINE_CONTROL (spec.md §4.7).
// coldStart is accepted for interface completeness but does not change
// behavior (out of scope per spec.md §1's "engine tuning" non-goal).
func (c *Controller) EngineControl(startControl int, coldStart bool, heightDelayM float64, gear GearState, explicitPWM uint16, fromMission bool) bool {
	_ = coldStart

	if c.params.Options.has(OptBlockExternalStarterCmds) {
		c.deps.Log.Info("Engine control command blocked")
		return false
	}

	autoForced := c.autoModeActive && c.params.Options.has(OptAutoAlwaysAutostart)
	if !autoForced {
		pwm, ok := c.deps.RC.Channel(c.params.StartChan)
		if !ok || DecodeIgnitionIntent(pwm) == IgnitionOff {
			c.deps.Log.Info("Start control disabled")
			return false
		}
	}

	if heightDelayM > 0 {
		c.eng.state = EngineStartHeightDelay
		c.eng.heightPending = true
		c.eng.requiredHeightM = heightDelayM
	}

	var intent IgnitionIntent
	switch startControl {
	case 0:
		intent = IgnitionOff
	case 1:
		intent = IgnitionAccessory
	case 2:
		intent = IgnitionStartRun
	default:
		return false
	}
	c.autoOverrideIntent = &intent
	c.gear.setByAutomission = fromMission

	if gear != GearUnknown && gear != GearPWMValue {
		c.gear.setGear(gear, explicitPWM, c.params, c.deps.Clock.NowMillis(), c.deps.Log)
	}
	return true
}
