package ice

// GearPWMPair is one gear's (pwm_down, pwm_up) hysteresis pair
// (spec.md §3.1 "Gear PWM table").
type GearPWMPair struct {
	Down uint16
	Up   uint16
}

func (p GearPWMPair) mid() uint16 { return (p.Down + p.Up) / 2 }

// Params holds every persistent, ground-station-settable parameter
// spec.md §3.1 names. Unlike the teacher's config.go (compile-time
// consts, since a TinyGo firmware build has no runtime parameter store),
// these are a plain struct with defaults applied once at construction
// and mutable afterward, since spec.md's contract explicitly allows the
// ground station to change them at runtime.
type Params struct {
	Enable bool

	StartChan int // 1..16, 0=none

	StarterTimeS   float64 // 0.1..5
	StartDelayS    float64 // 1..10
	PowerUpWaitS   float64 // 0..20

	RPMChan     int // 0..2
	RPMThresh   float64
	RPMThresh2  float64

	StartPct float64 // 0..100
	IdlePct  float64 // 0..100

	TempPin       int
	TempScaler    float64
	TempOffset    float64
	TempRatiometric bool
	TempFunc      TemperatureFunction
	TempMin       float64
	TempMax       float64
	TempHotThrottleFactor float64 // default 0.25 rover / 0.75 plane

	FuelOffset float64 // supplemented from original_source (§D)

	Options Options

	RestartCount int // -1 = unlimited, 0 = none

	OutEnablePin int // -1 = disabled

	GearPWM [numGears]GearPWMPair

	GearStopS    float64 // seconds, pre-shift dwell
	GearDurS     float64 // seconds per one gear-position of distance

	BrakeReleaseInNeutral bool // set via MAV_CMD_ICE_SET_TRANSMISSION_STATE param4
}

// numGears indexes GearPWM by the five gear families spec.md names a PWM
// pair for.
const numGears = 5

const (
	gearIdxPark = iota
	gearIdxReverse
	gearIdxNeutral
	gearIdxForward1
	gearIdxForward2
)

func gearPWMIndex(g GearState) (int, bool) {
	switch g {
	case GearPark:
		return gearIdxPark, true
	case GearReverse:
		return gearIdxReverse, true
	case GearNeutral:
		return gearIdxNeutral, true
	case GearForward:
		return gearIdxForward1, true
	case GearForward2:
		return gearIdxForward2, true
	default:
		return 0, false
	}
}

func (p *Params) pwmFor(g GearState) (GearPWMPair, bool) {
	idx, ok := gearPWMIndex(g)
	if !ok {
		return GearPWMPair{}, false
	}
	return p.GearPWM[idx], true
}

// DefaultParams returns the spec.md §3.1 defaults, carried forward from
// AP_ICEngine.cpp's var_info table (rover overheat factor; the plane
// build defaults to 0.75 and is selected by the caller when wiring a
// plane-type vehicle).
func DefaultParams() Params {
	return Params{
		Enable:      false,
		StartChan:   0,
		StarterTimeS: 3,
		StartDelayS:  2,
		PowerUpWaitS: 0,
		RPMChan:      0,
		RPMThresh:    100,
		RPMThresh2:   0,
		StartPct:     5,
		IdlePct:      0,
		TempPin:      -1,
		TempScaler:   1,
		TempOffset:   0,
		TempRatiometric: true,
		TempFunc:     TempFuncLinear,
		TempMin:      10,
		TempMax:      105,
		TempHotThrottleFactor: 0.25,
		FuelOffset:   0,
		Options:      OptArmingRequiredIgnition | OptArmingRequiredStart,
		RestartCount: -1,
		OutEnablePin: -1,
		GearPWM: [numGears]GearPWMPair{
			gearIdxPark:     {Down: 1000, Up: 1000},
			gearIdxReverse:  {Down: 1200, Up: 1200},
			gearIdxNeutral:  {Down: 1295, Up: 1295},
			gearIdxForward1: {Down: 1425, Up: 1425},
			gearIdxForward2: {Down: 1600, Up: 1600},
		},
		GearStopS: 0,
		GearDurS:  1.5,
	}
}

// Sanitize clamps the two gear-timing parameters to non-negative values,
// per original_source/AP_ICEngine.cpp's update_gear() guard
// (is_negative(...) -> set_and_save(0) / set_and_save(2)). Call it once
// after loading params and again whenever the ground station pushes a
// change to either field.
func (p *Params) Sanitize() {
	if p.GearStopS < 0 {
		p.GearStopS = 0
	}
	if p.GearDurS < 0 {
		p.GearDurS = 2
	}
}
