package ice

import "github.com/aerodyne-systems/icefc/internal/hal"

// telemetryRateMs is the ≤1 Hz cap spec.md §6 Produced sets per message.
const telemetryRateMs = 1000

// mavFuelTypeGasoline and mavFuelUnitPercent match the MAVLink
// FUEL_TYPE/FUEL_UNIT enums the fuel-level message embeds.
const (
	mavFuelTypeGasoline = 0
	mavFuelUnitPercent  = 0
)

// telemetryChannel is a single rate-limited message kind.
type telemetryChannel struct {
	lastSendMs uint32
	sent       bool // supplemented §D: has this channel ever fired
}

func (c *telemetryChannel) due(nowMs uint32, force bool) bool {
	return force || !c.sent || nowMs-c.lastSendMs >= telemetryRateMs
}

func (c *telemetryChannel) mark(nowMs uint32) {
	c.lastSendMs = nowMs
	c.sent = true
}

// Telemetry tracks the three status messages spec.md §6 Produced names,
// each independently rate-limited and force-sendable.
type Telemetry struct {
	coolant      telemetryChannel
	transmission telemetryChannel
	fuel         telemetryChannel
}

// ActiveMask reports which message kinds have fired at least once
// (supplemented §D "active-channel-mask"), useful for a bench console
// wanting to know which sensors are actually wired up.
type ActiveMask uint8

const (
	ActiveCoolant      ActiveMask = 1 << 0
	ActiveTransmission ActiveMask = 1 << 1
	ActiveFuel         ActiveMask = 1 << 2
)

func (t *Telemetry) ActiveMask() ActiveMask {
	var m ActiveMask
	if t.coolant.sent {
		m |= ActiveCoolant
	}
	if t.transmission.sent {
		m |= ActiveTransmission
	}
	if t.fuel.sent {
		m |= ActiveFuel
	}
	return m
}

// send emits the three status messages, honoring each one's own rate
// limit, and force-sends everything when forceAll is set (spec.md §3.2
// force_send_status).
func (t *Telemetry) send(nowMs uint32, forceAll bool, sink hal.StatusSink,
	temp float64, tempHealthy bool, tempMax, tempMin float64,
	gear GearState, gearPWM uint16, intent IgnitionIntent,
	fuel float64, fuelHealthy bool,
) {
	if t.coolant.due(nowMs, forceAll) {
		v := TemperatureInvalid
		if tempHealthy {
			v = temp
		}
		sink.SendCommandLong(hal.CmdICECoolantTemp, 0, v, tempMax, tempMin, 0)
		t.coolant.mark(nowMs)
	}

	if t.transmission.due(nowMs, forceAll) {
		sink.SendCommandLong(hal.CmdICETransmissionState, 0, float64(gear), float64(gearPWM), float64(intent), 0)
		t.transmission.mark(nowMs)
	}

	if t.fuel.due(nowMs, forceAll) {
		v := FuelLevelInvalid
		if fuelHealthy {
			v = fuel
		}
		sink.SendCommandLong(hal.CmdICEFuelLevel, fuelBatteryInstance, mavFuelTypeGasoline, mavFuelUnitPercent, 100, v)
		t.fuel.mark(nowMs)
	}
}
