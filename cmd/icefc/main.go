package main

import (
	"fmt"
	"machine"
	"time"

	"tinygo.org/x/drivers/ads1015"
	"tinygo.org/x/drivers/servo"
	uartx "github.com/jangala-dev/tinygo-uartx/uartx"

	"github.com/aerodyne-systems/icefc/internal/hal"
	"github.com/aerodyne-systems/icefc/internal/ice"
)

const (
	tickInterval = 20 * time.Millisecond // 50Hz, top of spec.md §2's 10-50Hz band

	ignitionPin = machine.D3
	starterPin  = machine.D4
	gearPin     = machine.D5
	throttlePin = machine.D6

	armSwitchPin = machine.D7

	batteryADCChannel = 3
	batteryVrefVolts  = 3.3
)

var bootTime time.Time

// hwClock implements hal.Clock as milliseconds since boot, the same
// monotonic contract spec.md §6's millis() names.
type hwClock struct{}

func (hwClock) NowMillis() uint32 { return uint32(time.Since(bootTime).Milliseconds()) }

// hwArming implements hal.Arming by reading a dedicated arm-switch input,
// standing in for the autopilot's own arming state machine (out of scope
// per spec.md §1; here wired to a physical switch for a standalone demo).
type hwArming struct{ pin machine.Pin }

func (a hwArming) Armed() bool { return a.pin.Get() }

// hwGPIO implements hal.GPIO over machine.Pin.
type hwGPIO struct{}

func (hwGPIO) PinMode(pin int, output bool) {
	mode := machine.PinInput
	if output {
		mode = machine.PinOutput
	}
	machine.Pin(pin).Configure(machine.PinConfig{Mode: mode})
}

func (hwGPIO) Write(pin int, high bool) { machine.Pin(pin).Set(high) }

// gcsLogger implements hal.Logger, writing lines to the default UART
// exactly as WingFC's main.go writes status with bare println.
type gcsLogger struct{}

func (gcsLogger) Info(format string, args ...any) {
	println(fmt.Sprintf(format, args...))
}

// mavlinkStatusSink implements hal.StatusSink. Full MAVLink COMMAND_LONG
// framing is an external collaborator per spec.md §1's scope note; this
// writes the logical fields as a text line over the same UART, which the
// rest of the autopilot's telemetry stack would otherwise frame.
type mavlinkStatusSink struct{}

func (mavlinkStatusSink) SendCommandLong(cmd hal.CommandID, index uint8, p1, p2, p3, p4 float64) {
	println(fmt.Sprintf("ICE_STATUS cmd=%d idx=%d %.2f %.2f %.2f %.2f", cmd, index, p1, p2, p3, p4))
}

// rpmCounter implements hal.RPMSensor by timing pulses on an interrupt
// pin (one pulse per engine revolution on a single-cylinder ignition
// coil tap), the simplest RPM front-end spec.md §6 assumes exists.
type rpmCounter struct {
	pin          machine.Pin
	lastPulseMs  uint32
	periodMs     uint32
	clk          hal.Clock
}

func newRPMCounter(pin machine.Pin, clk hal.Clock) *rpmCounter {
	rc := &rpmCounter{pin: pin, clk: clk}
	pin.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	pin.SetInterrupt(machine.PinFalling, func(machine.Pin) {
		now := clk.NowMillis()
		if rc.lastPulseMs != 0 {
			rc.periodMs = now - rc.lastPulseMs
		}
		rc.lastPulseMs = now
	})
	return rc
}

func (rc *rpmCounter) RPM(instance int) (float64, bool) {
	if instance != 0 || rc.periodMs == 0 {
		return 0, false
	}
	if rc.clk.NowMillis()-rc.lastPulseMs > 2000 {
		return 0, false // stopped turning
	}
	return 60000.0 / float64(rc.periodMs), true
}

// adcBattery implements hal.Battery off a spare ADS1015 channel reading
// a resistive fuel-gauge sender, standing in for a proper battery
// monitor driver (out of scope per spec.md §1).
type adcBattery struct {
	dev     *ads1015.Device
	channel uint8
}

func (b adcBattery) CapacityRemainingPct(instance int) (float64, bool) {
	if instance != ice.FuelBatteryInstance() {
		return 0, false
	}
	raw, err := b.dev.ReadRaw(b.channel)
	if err != nil {
		return 0, false
	}
	pct := float64(raw) / 32768.0 * 100.0
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	return pct, true
}

func (b adcBattery) Healthy(instance int) bool {
	_, ok := b.CapacityRemainingPct(instance)
	return ok
}

// groundAHRS implements hal.AHRS for a ground vehicle with no altitude
// estimate; START_HEIGHT_DELAY (airborne-only per spec.md §4.1) never
// triggers on this build.
type groundAHRS struct{}

func (groundAHRS) RelativePositionDownNEDOrigin() (float64, bool) { return 0, false }

func main() {
	bootTime = time.Now()

	uart := machine.DefaultUART
	uart.Configure(machine.UARTConfig{BaudRate: 115200, TX: machine.NoPin, RX: machine.UART_RX_PIN})
	rcPort := uartx.UART0
	rcPort.Configure(uartx.UARTConfig{BaudRate: 115200, RX: machine.UART_RX_PIN})
	rc := newIBusReceiver(rcPort)

	i2c := machine.I2C0
	i2c.Configure(machine.I2CConfig{Frequency: 400 * machine.KHz})
	adc := ads1015.New(i2c)
	if err := adc.Configure(ads1015.Config{}); err != nil {
		for {
			println("could not configure ADS1015:", err.Error())
			time.Sleep(time.Second)
		}
	}
	analog := newADSSource(&adc, batteryVrefVolts)
	batt := adcBattery{dev: &adc, channel: batteryADCChannel}

	pwmCfg := machine.PWMConfig{Period: 20 * machine.Millisecond}
	ignitionDev, _ := newServoOnPin(ignitionPin, pwmCfg)
	starterDev, _ := newServoOnPin(starterPin, pwmCfg)
	gearDev, _ := newServoOnPin(gearPin, pwmCfg)
	throttleDev, _ := newServoOnPin(throttlePin, pwmCfg)

	armSwitchPin.Configure(machine.PinConfig{Mode: machine.PinInputPullup})

	clock := hwClock{}
	params := ice.DefaultParams()
	params.Enable = true
	params.StartChan = 1
	params.RPMChan = 1
	params.Sanitize()

	ctrl := ice.New(&params, ice.Deps{
		RC:       rc,
		Ignition: newPWMServo(ignitionDev, 1000),
		Starter:  newPWMServo(starterDev, 1000),
		Gear:     newPWMServo(gearDev, uint16(params.GearPWM[2].Down+params.GearPWM[2].Up)/2),
		Throttle: newPWMServo(throttleDev, 1000),
		RPM:      newRPMCounter(machine.D8, clock),
		Battery:  batt,
		AHRS:     groundAHRS{},
		Analog:   analog,
		GPIO:     hwGPIO{},
		Clock:    clock,
		Arming:   hwArming{pin: armSwitchPin},
		Log:      gcsLogger{},
		Status:   mavlinkStatusSink{},
	})
	ctrl.Init(false)

	ticker := time.NewTicker(tickInterval)
	for range ticker.C {
		rc.poll()
		ctrl.Tick()
	}
}

func newServoOnPin(pin machine.Pin, cfg machine.PWMConfig) (servo.Servo, error) {
	pwmGroup := machine.PWM0
	if err := pwmGroup.Configure(cfg); err != nil {
		return servo.Servo{}, err
	}
	return servo.New(pwmGroup, pin)
}
