// Package ice implements the core ICE (internal combustion engine)
// controller: the engine lifecycle state machine, the two-phase gear
// state machine, temperature/fuel sensor front-ends, throttle/brake
// override shaping, output mapping, and periodic status telemetry
// (spec.md §3-§4). It depends only on internal/hal, never on a concrete
// driver, matching the teacher's UART-mocked test module in spirit: the
// whole engine/gear control surface is exercised with fakes, no hardware
// required.
package ice

import "fmt"

// EngineState is the engine lifecycle state (spec.md §3.2).
type EngineState int

const (
	EngineOff EngineState = iota
	EngineStartDelay
	EngineStartDelayNoIgnition
	EngineStartHeightDelay
	EngineStarting
	EngineRunning
)

func (s EngineState) String() string {
	switch s {
	case EngineOff:
		return "OFF"
	case EngineStartDelay:
		return "START_DELAY"
	case EngineStartDelayNoIgnition:
		return "START_DELAY_NO_IGNITION"
	case EngineStartHeightDelay:
		return "START_HEIGHT_DELAY"
	case EngineStarting:
		return "STARTING"
	case EngineRunning:
		return "RUNNING"
	default:
		return fmt.Sprintf("EngineState(%d)", int(s))
	}
}

// IgnitionIntent is the pilot/auto-mission's desired ignition position
// (spec.md §3.2, GLOSSARY).
type IgnitionIntent int

const (
	IgnitionOff IgnitionIntent = iota
	IgnitionAccessory
	IgnitionStartRun
)

// RC switch PWM bands (spec.md §6).
const (
	rcBandOffMax   = 1300
	rcBandRunMin   = 1700
)

// DecodeIgnitionIntent maps a raw RC PWM value to an IgnitionIntent per
// spec.md §6's RC switch bands.
func DecodeIgnitionIntent(pwm uint16) IgnitionIntent {
	switch {
	case pwm <= rcBandOffMax:
		return IgnitionOff
	case pwm >= rcBandRunMin:
		return IgnitionStartRun
	default:
		return IgnitionAccessory
	}
}

// GearState is the transmission gear (spec.md §3.1 gear PWM table,
// simplified from the original's 9-forward-gear enum to the five gear
// families spec.md actually names a PWM pair for).
type GearState int

const (
	GearUnknown GearState = iota
	GearPark
	GearReverse
	GearNeutral
	GearForward
	GearForward2
	GearPWMValue // explicit PWM, not a named gear
)

// String names a gear for log lines, as AP_ICEngine::get_gear_name does.
func (g GearState) String() string {
	switch g {
	case GearPark:
		return "Park"
	case GearReverse:
		return "Reverse"
	case GearNeutral:
		return "Neutral"
	case GearForward:
		return "Forward"
	case GearForward2:
		return "Forward High"
	case GearPWMValue:
		return "Unknown"
	default:
		return "Unknown"
	}
}

// position is the fixed gear-distance index used only to size a shift's
// duration (spec.md §4.2, GLOSSARY "Gear position"); GearForward2 and any
// higher gear this repo doesn't model separately share position 5, as in
// the original's FORWARD_2+ collapse.
func (g GearState) position() int {
	switch g {
	case GearPark:
		return 1
	case GearReverse:
		return 2
	case GearNeutral:
		return 3
	case GearForward:
		return 4
	case GearForward2:
		return 5
	default:
		return 0
	}
}

const maxGearPosition = 5

func (g GearState) isForward() bool {
	return g == GearForward || g == GearForward2
}

// TemperatureFunction selects the analog-to-temperature transfer
// function (spec.md §3.1 TEMP_FUNC, §4.6).
type TemperatureFunction int

const (
	TempFuncLinear TemperatureFunction = iota
	TempFuncInverted
	TempFuncHyperbolic
)

// Options is the OPTIONS bitmask (spec.md §3.1).
type Options uint16

const (
	OptArmingRequiredIgnition Options = 1 << 0
	OptArmingRequiredStart    Options = 1 << 1
	OptKeepRunningWhenDisarmed Options = 1 << 2
	OptAutoAlwaysAutostart    Options = 1 << 3
	OptRPMFailHasTimer        Options = 1 << 4
	OptRunningFailForceStop   Options = 1 << 5
	OptBlockExternalStarterCmds Options = 1 << 6
	OptAutoSetsGearForward    Options = 1 << 7
)

func (o Options) has(bit Options) bool { return o&bit != 0 }

// Invalid/sentinel values (spec.md §6, §4.6).
const (
	TemperatureInvalid = -999.0
	FuelLevelInvalid   = -1.0
)
