package ice

import (
	"github.com/aerodyne-systems/icefc/internal/hal"
)

// gearPhase is the pending gear change's tagged variant (spec.md §9
// design note: "prefer a tagged variant Idle | StopWait{since} |
// Shift{since, total_ms} ... to make invariant 4 structural"), replacing
// the source's two mutually-exclusive non-zero timestamps.
type gearPhase int

const (
	gearPhaseIdle gearPhase = iota
	gearPhaseStopWait
	gearPhaseShift
)

// gearPending is the in-flight gear change (spec.md §3.2 "pending").
type gearPending struct {
	phase       gearPhase
	since       uint32
	totalMs     uint32
	targetState GearState
	targetPWM   uint16
}

func (p *gearPending) active() bool { return p.phase != gearPhaseIdle }

// gearbox is the transmission state machine (spec.md §4.2):
// {current_state, active_pwm, pending}.
type gearbox struct {
	state            GearState
	activePWM        uint16
	pending          gearPending
	setByAutomission bool
}

// constrainPWMWithDirection implements AP_ICEngine::constrain_pwm_with_direction:
// pick pwm_down if we're approaching from above the midpoint, pwm_up if
// from below, else leave unchanged.
func constrainPWMWithDirection(initial, desired, pwmDown, pwmUp uint16) uint16 {
	switch {
	case initial == desired:
		return initial
	case initial > desired:
		return pwmDown
	default:
		return pwmUp
	}
}

// setGear commands a gear change (spec.md §4.2). explicitPWM is only
// used when target == GearPWMValue. Returns true if the command was
// accepted (including the no-op case where target is already current or
// already the in-flight pending target).
func (g *gearbox) setGear(target GearState, explicitPWM uint16, p *Params, nowMs uint32, log hal.Logger) bool {
	var targetPWM uint16
	if target == GearPWMValue {
		targetPWM = explicitPWM
	} else {
		pair, ok := p.pwmFor(target)
		if !ok {
			return false
		}
		targetPWM = constrainPWMWithDirection(g.activePWM, pair.mid(), pair.Down, pair.Up)
	}

	if target != GearPWMValue && (g.state == target || (g.pending.active() && g.pending.targetState == target)) {
		// Always handle PWM_VALUE; otherwise a no-op is still a success.
		return true
	}

	var steps int
	if !g.pending.active() {
		steps = abs(g.state.position() - target.position())
		if steps < 1 {
			steps = 1
		}
	} else {
		// Changing again mid-shift: we don't know exactly where we are,
		// so be conservative and assume the worst-case distance.
		steps = maxGearPosition
	}

	totalMs := uint32(p.GearDurS * 1000 * float64(steps))

	g.pending = gearPending{
		phase:       gearPhaseStopWait,
		since:       nowMs,
		totalMs:     totalMs,
		targetState: target,
		targetPWM:   targetPWM,
	}

	log.Info("Gear change: %s to %s in %.1fs", g.state, target, float64(totalMs)/1000)
	return true
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// tick advances the two-phase timed shift (spec.md §4.2). forceSend is
// set true whenever the gear's observable state changes (active_pwm,
// current_state, or a shift completing), matching
// AP_ICEngine::update_gear()'s force_send_status = true points.
func (g *gearbox) tick(nowMs uint32, p *Params, log hal.Logger) (forceSend bool) {
	switch g.pending.phase {
	case gearPhaseStopWait:
		if nowMs-g.pending.since >= uint32(p.GearStopS*1000) {
			g.activePWM = g.pending.targetPWM
			g.state = g.pending.targetState
			g.pending.phase = gearPhaseShift
			g.pending.since = nowMs
			forceSend = true
		}
	case gearPhaseShift:
		if nowMs-g.pending.since >= g.pending.totalMs {
			log.Info("Gear is now %s", g.state)
			g.pending.phase = gearPhaseIdle
			forceSend = true
		}
	}
	return forceSend
}

// maybeAutoForward initiates an automatic shift to FORWARD while running
// under auto-mission control (spec.md §4.2's last tick clause).
func (g *gearbox) maybeAutoForward(autoModeActive bool, engineState EngineState, p *Params, nowMs uint32, log hal.Logger) {
	if g.pending.active() {
		return
	}
	if !autoModeActive || engineState != EngineRunning {
		return
	}
	if !p.Options.has(OptAutoSetsGearForward) {
		return
	}
	if g.setByAutomission || g.state.isForward() {
		return
	}
	g.setGear(GearForward, 0, p, nowMs, log)
}

// gearPWMMargin is the ±band used when classifying a read-back PWM into
// a gear (spec.md §4.2 "auto-detect from PWM at boot").
const gearPWMMargin = 20

// classifyGearPWM matches AP_ICEngine::convertPwmToGearState: prefer
// FORWARD_2, then FORWARD, NEUTRAL, REVERSE, in that order, falling back
// to PARK.
func classifyGearPWM(pwm uint16, p *Params) GearState {
	order := []GearState{GearForward2, GearForward, GearNeutral, GearReverse}
	for _, g := range order {
		pair, _ := p.pwmFor(g)
		lo, hi := pair.Down, pair.Up
		if lo > hi {
			lo, hi = hi, lo
		}
		if pwm+gearPWMMargin >= lo && pwm <= hi+gearPWMMargin {
			return g
		}
	}
	return GearPark
}
