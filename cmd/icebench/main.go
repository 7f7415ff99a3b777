// Command icebench is a hardware-free operator console for driving
// internal/ice.Controller over hal's fakes, for bench-testing engine
// control logic without a real vehicle. Commands are tokenized with
// shlex the same way a shell line would be, giving the operator quoted
// arguments for free.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/google/shlex"

	"github.com/aerodyne-systems/icefc/internal/hal"
	"github.com/aerodyne-systems/icefc/internal/ice"
)

type bench struct {
	ctrl   *ice.Controller
	rc     *hal.FakeRC
	arming *hal.FakeArming
	rpm    *hal.FakeRPM
	batt   *hal.FakeBattery
	analog *hal.FakeAnalogSource
	clock  *hal.FakeClock
	log    *hal.FakeLogger
	sink   *hal.FakeStatusSink
}

func newBench() *bench {
	b := &bench{
		rc:     hal.NewFakeRC(),
		arming: &hal.FakeArming{},
		rpm:    hal.NewFakeRPM(),
		batt:   hal.NewFakeBattery(),
		analog: hal.NewFakeAnalogSource(),
		clock:  &hal.FakeClock{},
		log:    &hal.FakeLogger{},
		sink:   &hal.FakeStatusSink{},
	}
	params := ice.DefaultParams()
	params.Enable = true
	params.StartChan = 1
	params.RPMChan = 1
	b.ctrl = ice.New(&params, ice.Deps{
		RC:       b.rc,
		Ignition: hal.NewFakeServo(1000),
		Starter:  hal.NewFakeServo(1000),
		Gear:     hal.NewFakeServo(1295),
		Throttle: hal.NewFakeServo(0),
		RPM:      b.rpm,
		Battery:  b.batt,
		AHRS:     &hal.FakeAHRS{},
		Analog:   b.analog,
		GPIO:     hal.NewFakeGPIO(),
		Clock:    b.clock,
		Arming:   b.arming,
		Log:      b.log,
		Status:   b.sink,
	})
	b.ctrl.Init(false)
	return b
}

func gearByName(name string) (ice.GearState, bool) {
	switch strings.ToUpper(name) {
	case "PARK":
		return ice.GearPark, true
	case "REVERSE":
		return ice.GearReverse, true
	case "NEUTRAL":
		return ice.GearNeutral, true
	case "FORWARD":
		return ice.GearForward, true
	case "FORWARD2", "FORWARD_2":
		return ice.GearForward2, true
	default:
		return ice.GearUnknown, false
	}
}

func (b *bench) dispatch(args []string) {
	if len(args) == 0 {
		return
	}
	switch args[0] {
	case "arm":
		b.arming.IsArmed = true
	case "disarm":
		b.arming.IsArmed = false
	case "rc":
		if len(args) < 2 {
			fmt.Println("usage: rc <pwm>")
			return
		}
		pwm, err := strconv.Atoi(args[1])
		if err != nil {
			fmt.Println(err)
			return
		}
		b.rc.Values[1] = uint16(pwm)
	case "rpm":
		if len(args) < 2 {
			fmt.Println("usage: rpm <value>")
			return
		}
		v, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			fmt.Println(err)
			return
		}
		b.rpm.Set(0, v)
	case "set_gear":
		if len(args) < 2 {
			fmt.Println("usage: set_gear <PARK|REVERSE|NEUTRAL|FORWARD|FORWARD2>")
			return
		}
		g, ok := gearByName(args[1])
		if !ok {
			fmt.Println("unknown gear", args[1])
			return
		}
		b.ctrl.SetGear(g, 0)
	case "engine_control":
		if len(args) < 5 {
			fmt.Println("usage: engine_control <start 0-2> <cold 0/1> <height_m> <gear>")
			return
		}
		start, _ := strconv.Atoi(args[1])
		cold, _ := strconv.Atoi(args[2])
		height, _ := strconv.ParseFloat(args[3], 64)
		g, _ := gearByName(args[4])
		ok := b.ctrl.EngineControl(start, cold != 0, height, g, 0, true)
		fmt.Println("accepted:", ok)
	case "tick":
		n := 1
		if len(args) > 1 {
			n, _ = strconv.Atoi(args[1])
		}
		for i := 0; i < n; i++ {
			b.clock.Millis += 20
			b.ctrl.Tick()
		}
	case "status":
		fmt.Printf("engine=%s gear=%s active=0b%03b\n", b.ctrl.EngineState(), b.ctrl.GearState(), b.ctrl.ActiveTelemetry())
	case "log":
		for _, line := range b.log.Lines {
			fmt.Println(line)
		}
	case "quit", "exit":
		os.Exit(0)
	default:
		fmt.Println("unknown command:", args[0])
	}
}

func main() {
	b := newBench()
	fmt.Println("icebench: engine control console. Type 'quit' to exit.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		args, err := shlex.Split(scanner.Text())
		if err != nil {
			fmt.Println(err)
			continue
		}
		b.dispatch(args)
	}
}
