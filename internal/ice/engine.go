package ice

import "github.com/aerodyne-systems/icefc/internal/hal"

// engineTimers holds every timestamp the engine FSM needs (spec.md
// §3.2). Kept as plain uint32 millisecond fields, following spec.md §9's
// "keep a single now_ms captured at tick start; pass it explicitly
// through all helpers rather than re-sampling" guidance.
type engineTimers struct {
	stateChangeMs        uint32
	starterStartMs       uint32
	starterLastRunMs     uint32
	powerUpWaitStartMs   uint32
	runningRPMFailStartMs uint32
	forceNoIgnitionUntilMs uint32
}

// engine is the engine lifecycle state machine (spec.md §4.1).
type engine struct {
	state            EngineState
	startingAttempts int
	timers           engineTimers

	// START_HEIGHT_DELAY support (airborne only; supplemented §D).
	heightPending   bool
	initialHeightM  float64
	requiredHeightM float64
}

// gates bundle the two arming checks spec.md §4.1 derives once per tick.
type gates struct {
	ignOK bool
	runOK bool
	systemShouldBeOff bool
}

func computeGates(intent IgnitionIntent, armed bool, opts Options) gates {
	ignOK := armed || !opts.has(OptArmingRequiredIgnition)
	runOK := armed || !opts.has(OptArmingRequiredStart)
	return gates{
		ignOK:             ignOK,
		runOK:             runOK,
		systemShouldBeOff: intent == IgnitionOff || !ignOK,
	}
}

// tickInput is everything the engine FSM needs for one tick, gathered by
// Controller.Tick before calling engine.tick.
type tickInput struct {
	nowMs      uint32
	intent     IgnitionIntent
	armed      bool
	rpm        float64
	haveRPM    bool
	ahrsDownM  float64
	haveAHRS   bool
}

// tick advances the engine state machine exactly one step (spec.md
// §4.1). It returns whether the state changed this tick, for
// stateChangeMs bookkeeping and force-send telemetry.
func (e *engine) tick(in tickInput, p *Params, log hal.Logger) bool {
	g := computeGates(in.intent, in.armed, p.Options)

	prev := e.state

	if g.systemShouldBeOff {
		if e.state != EngineOff {
			log.Info("Engine stopped")
		}
		e.state = EngineOff
	}

	var rpm float64 = -1
	if p.RPMChan > 0 && in.haveRPM {
		rpm = in.rpm
	}

	switch e.state {
	case EngineOff:
		e.startingAttempts = 0
		if !g.systemShouldBeOff && in.intent != IgnitionOff {
			e.state = EngineStartDelay
		}

	case EngineStartHeightDelay:
		e.tickStartHeightDelay(in, log)

	case EngineStartDelayNoIgnition:
		if e.timers.forceNoIgnitionUntilMs > 0 && in.nowMs < e.timers.forceNoIgnitionUntilMs {
			break
		}
		// Forced dwell elapsed: per spec.md §4.1, this state is then
		// "indistinguishable from START_DELAY" — hand off explicitly so
		// the retry/restart-budget logic in tickStartDelay takes over.
		e.timers.forceNoIgnitionUntilMs = 0
		e.state = EngineStartDelay

	case EngineStartDelay:
		e.tickStartDelay(in, g, p, log)

	case EngineStarting:
		e.tickStarting(in, g, p, rpm, log)

	case EngineRunning:
		e.tickRunning(in, p, rpm, log)
	}

	if e.state != EngineStarting {
		e.timers.starterStartMs = 0
	}

	changed := e.state != prev
	if changed {
		e.timers.stateChangeMs = in.nowMs
	}
	return changed
}

func (e *engine) tickStartHeightDelay(in tickInput, log hal.Logger) {
	if !in.haveAHRS {
		return
	}
	altitude := -in.ahrsDownM

	if e.heightPending || !in.armed {
		e.heightPending = false
		e.initialHeightM = altitude
		return
	}
	if altitude >= e.initialHeightM+e.requiredHeightM {
		log.Info("Engine starting height reached %.1f", altitude-e.initialHeightM)
		e.state = EngineStarting
	}
}

func (e *engine) tickStartDelay(in tickInput, g gates, p *Params, log hal.Logger) {
	if in.intent != IgnitionStartRun || !g.runOK {
		return // linger forever
	}
	if p.RestartCount >= 0 && e.startingAttempts > p.RestartCount {
		return // restart budget exhausted; only OFF escapes
	}

	if p.PowerUpWaitS > 0 {
		if e.timers.powerUpWaitStartMs == 0 {
			log.Info("Engine waiting for %.0fs", p.PowerUpWaitS)
			e.timers.powerUpWaitStartMs = in.nowMs
			return
		}
		if in.nowMs-e.timers.powerUpWaitStartMs < uint32(p.PowerUpWaitS*1000) {
			return
		}
	}

	if p.StartDelayS <= 0 {
		e.state = EngineStarting
		return
	}
	if e.timers.starterLastRunMs == 0 || in.nowMs-e.timers.starterLastRunMs >= uint32(p.StartDelayS*1000) {
		log.Info("Engine starting for up to %.1fs", p.StarterTimeS)
		e.state = EngineStarting
	}
}

func (e *engine) tickStarting(in tickInput, g gates, p *Params, rpm float64, log hal.Logger) {
	e.timers.powerUpWaitStartMs = 0
	if e.timers.starterStartMs == 0 {
		e.startingAttempts++
		e.timers.starterStartMs = in.nowMs
	}
	e.timers.starterLastRunMs = in.nowMs

	switch {
	case !g.runOK:
		log.Info("Engine stopped")
		e.state = EngineStartDelay

	case p.RPMThresh2 > 0 && rpm >= p.RPMThresh2:
		log.Info("Engine running! Detected %.0f rpm", rpm)
		e.state = EngineRunning

	case in.nowMs-e.timers.starterStartMs >= uint32(p.StarterTimeS*1000):
		switch {
		case p.RPMThresh2 <= 0:
			log.Info("Engine running! (No rpm feedback)")
			e.state = EngineRunning
		case rpm < 0:
			log.Info("Engine start failed. Check rpm configuration")
			e.state = EngineOff
		case rpm < p.RPMThresh2:
			log.Info("Engine start failed. Detected %.0f rpm", rpm)
			e.state = EngineStartDelay
		}
	}
}

func (e *engine) tickRunning(in tickInput, p *Params, rpm float64, log hal.Logger) {
	if !in.armed && p.IdlePct <= 0 && !p.Options.has(OptKeepRunningWhenDisarmed) {
		e.state = EngineOff
		log.Info("Engine stopped, disarmed")
		return
	}

	if p.RPMThresh > 0 && rpm >= 0 && rpm < p.RPMThresh {
		if e.timers.runningRPMFailStartMs == 0 {
			e.timers.runningRPMFailStartMs = in.nowMs
		}

		switch {
		case p.Options.has(OptRPMFailHasTimer) && in.nowMs-e.timers.runningRPMFailStartMs <= 500:
			// grace period: ignore the dropout for now
			return
		case p.Options.has(OptRunningFailForceStop):
			e.state = EngineStartDelayNoIgnition
			e.timers.forceNoIgnitionUntilMs = in.nowMs + 3000
		default:
			e.state = EngineStartDelay
		}
		log.Info("Engine died while running: %.0f rpm", rpm)
	} else {
		e.timers.runningRPMFailStartMs = 0
	}
}
