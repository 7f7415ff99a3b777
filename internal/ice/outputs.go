package ice

import "github.com/aerodyne-systems/icefc/internal/hal"

// driveOutputs implements spec.md §4.3. Gear PWM is emitted
// unconditionally from activePWM; ignition/starter are skipped whenever
// a gear change is in flight and the engine isn't OFF, so a shift never
// gets its ignition cut out from under it, while OFF always wins.
func driveOutputs(state EngineState, gearChanging bool, activePWM uint16, ignition, starter, gear hal.ServoChannel) {
	if gear.Assigned() {
		gear.SetPWM(activePWM)
	}

	if gearChanging && state != EngineOff {
		return
	}

	switch state {
	case EngineOff, EngineStartDelayNoIgnition:
		setOff(ignition)
		setOff(starter)
	case EngineStartDelay, EngineStartHeightDelay:
		setOn(ignition)
		setOff(starter)
	case EngineStarting:
		setOn(ignition)
		setOn(starter)
	case EngineRunning:
		setOn(ignition)
		setOff(starter)
	}
}

func setOn(ch hal.ServoChannel) {
	if ch.Assigned() {
		ch.SetScaled(100)
	}
}

func setOff(ch hal.ServoChannel) {
	if ch.Assigned() {
		ch.SetPWM(ch.Trim())
	}
}
