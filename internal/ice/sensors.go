package ice

import (
	"math"

	"github.com/aerodyne-systems/icefc/internal/hal"
)

// staleAfterMs is the "healthy sensor" window (spec.md GLOSSARY,
// invariant 7): a sample is fresh if received within this many
// milliseconds of now.
const staleAfterMs = 5000

// lpf applies spec.md invariant 7's low-pass filter: y <- 0.1*y + 0.9*x.
// A constant input converges to itself (spec.md §8 property 8).
func lpf(y, x float64) float64 {
	return 0.1*y + 0.9*x
}

// sensorSample is the shared {value, last_sample_ms, last_send_ms}
// shape spec.md §3.2 describes for both temperature and fuel.
type sensorSample struct {
	value       float64
	lastSampleMs uint32
	haveSample  bool
	lastSendMs  uint32
}

// healthy reports whether the sample is fresh, per spec.md Open Question
// 1's corrected staleness check: now_ms - last_sample_ms > 5000 means
// stale (the source's own check reads the unsigned subtraction the other
// way around).
func (s *sensorSample) healthy(nowMs uint32) bool {
	if !s.haveSample {
		return false
	}
	return nowMs-s.lastSampleMs <= staleAfterMs
}

// feed applies the LPF, bypassing it (jumping straight to x) on the
// first sample or after a stale gap, per spec.md invariant 7.
func (s *sensorSample) feed(nowMs uint32, x float64) {
	if !s.haveSample || nowMs-s.lastSampleMs > staleAfterMs {
		s.value = x
	} else {
		s.value = lpf(s.value, x)
	}
	s.lastSampleMs = nowMs
	s.haveSample = true
}

// temperatureSensor is the coolant-temperature front-end (spec.md §4.6).
type temperatureSensor struct {
	sensorSample
	source hal.AnalogChannel // lazily acquired, then held by value
}

// update samples and filters the temperature, applying the configured
// transfer function. Per spec.md §4.6, a pin <= 0 disables the sensor
// entirely; a hyperbolic denominator of zero, or an infinite result,
// drops the sample rather than corrupting the filter.
func (t *temperatureSensor) update(nowMs uint32, p *Params, src hal.AnalogSource) {
	if p.TempPin <= 0 {
		return
	}
	if t.source == nil {
		t.source = src.Channel(p.TempPin)
	}
	t.source.SetPin(p.TempPin)

	var v float64
	if p.TempRatiometric {
		v = t.source.VoltageAverageRatiometric()
	} else {
		v = t.source.VoltageAverage()
	}

	var x float64
	switch p.TempFunc {
	case TempFuncLinear:
		x = (v - p.TempOffset) * p.TempScaler
	case TempFuncInverted:
		x = (p.TempOffset - v) * p.TempScaler
	case TempFuncHyperbolic:
		d := v - p.TempOffset
		if d == 0 {
			return // do not average in an invalid sample
		}
		x = p.TempScaler / d
	default:
		return
	}

	if math.IsInf(x, 0) {
		return
	}
	t.feed(nowMs, x)
}

// fuelSensor is the fuel-level front-end (spec.md §4.6), backed by
// battery instance 1's percent-remaining.
type fuelSensor struct {
	sensorSample
}

// fuelBatteryInstance matches AP_ICENGINE_FUEL_LEVEL_BATTERY_INSTANCE.
const fuelBatteryInstance = 1

// FuelBatteryInstance exposes fuelBatteryInstance to callers wiring a
// concrete hal.Battery (spec.md §6), so a host binary doesn't have to
// duplicate the magic instance number.
func FuelBatteryInstance() int { return fuelBatteryInstance }

// update samples the battery's remaining-capacity percentage. An
// unhealthy battery reports FuelLevelInvalid rather than filtering a
// stale reading (spec.md §4.6); FuelOffset (supplemented from
// original_source/AP_ICEngine.cpp's var_info, §D) is applied to the raw
// reading before the LPF.
func (f *fuelSensor) update(nowMs uint32, p *Params, batt hal.Battery) {
	if !batt.Healthy(fuelBatteryInstance) {
		f.value = FuelLevelInvalid
		f.haveSample = false
		return
	}
	pct, _ := batt.CapacityRemainingPct(fuelBatteryInstance)
	f.feed(nowMs, pct-p.FuelOffset)
}
