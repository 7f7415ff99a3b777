package hal

import "fmt"

// Fakes for internal/ice's tests, in the same spirit as
// firmware/tests/crsf_test.go's mockUART: a minimal type satisfying a
// narrow interface, with just enough state for a test to drive it.

// FakeRC is a settable RCReceiver.
type FakeRC struct {
	Values map[int]uint16
}

func NewFakeRC() *FakeRC { return &FakeRC{Values: map[int]uint16{}} }

func (f *FakeRC) Channel(n int) (uint16, bool) {
	v, ok := f.Values[n]
	return v, ok
}

// FakeServo is a settable, readable-back ServoChannel.
type FakeServo struct {
	IsAssigned bool
	TrimPWM    uint16
	PWM        uint16
	Scaled     float64
	SetCount   int
}

func NewFakeServo(trim uint16) *FakeServo {
	return &FakeServo{IsAssigned: true, TrimPWM: trim, PWM: trim}
}

func (f *FakeServo) Assigned() bool { return f.IsAssigned }
func (f *FakeServo) SetScaled(pct float64) {
	f.Scaled = pct
	f.SetCount++
}
func (f *FakeServo) SetPWM(pwm uint16) {
	f.PWM = pwm
	f.SetCount++
}
func (f *FakeServo) OutputPWM() (uint16, bool) { return f.PWM, f.IsAssigned }
func (f *FakeServo) Trim() uint16              { return f.TrimPWM }

// FakeRPM is a settable RPMSensor.
type FakeRPM struct {
	Values map[int]float64
	Have   map[int]bool
}

func NewFakeRPM() *FakeRPM { return &FakeRPM{Values: map[int]float64{}, Have: map[int]bool{}} }

func (f *FakeRPM) Set(instance int, rpm float64) {
	f.Values[instance] = rpm
	f.Have[instance] = true
}

func (f *FakeRPM) Clear(instance int) { f.Have[instance] = false }

func (f *FakeRPM) RPM(instance int) (float64, bool) {
	return f.Values[instance], f.Have[instance]
}

// FakeBattery is a settable Battery.
type FakeBattery struct {
	Pct     map[int]float64
	Healthy_ map[int]bool
}

func NewFakeBattery() *FakeBattery {
	return &FakeBattery{Pct: map[int]float64{}, Healthy_: map[int]bool{}}
}

func (f *FakeBattery) CapacityRemainingPct(instance int) (float64, bool) {
	return f.Pct[instance], f.Healthy_[instance]
}
func (f *FakeBattery) Healthy(instance int) bool { return f.Healthy_[instance] }

// FakeAHRS is a settable AHRS.
type FakeAHRS struct {
	Down float64
	Have bool
}

func (f *FakeAHRS) RelativePositionDownNEDOrigin() (float64, bool) { return f.Down, f.Have }

// FakeAnalogChannel is a settable AnalogChannel.
type FakeAnalogChannel struct {
	Pin               int
	Voltage           float64
	VoltageRatiometric float64
}

func (f *FakeAnalogChannel) SetPin(pin int)                    { f.Pin = pin }
func (f *FakeAnalogChannel) VoltageAverage() float64            { return f.Voltage }
func (f *FakeAnalogChannel) VoltageAverageRatiometric() float64 { return f.VoltageRatiometric }

// FakeAnalogSource vends a single shared FakeAnalogChannel regardless of
// pin, which is sufficient for single-sensor tests.
type FakeAnalogSource struct {
	Chan *FakeAnalogChannel
}

func NewFakeAnalogSource() *FakeAnalogSource {
	return &FakeAnalogSource{Chan: &FakeAnalogChannel{}}
}

func (f *FakeAnalogSource) Channel(pin int) AnalogChannel {
	f.Chan.SetPin(pin)
	return f.Chan
}

// FakeGPIO is a settable GPIO.
type FakeGPIO struct {
	Mode  map[int]bool
	Level map[int]bool
}

func NewFakeGPIO() *FakeGPIO { return &FakeGPIO{Mode: map[int]bool{}, Level: map[int]bool{}} }

func (f *FakeGPIO) PinMode(pin int, output bool) { f.Mode[pin] = output }
func (f *FakeGPIO) Write(pin int, high bool)     { f.Level[pin] = high }

// FakeClock is a settable Clock.
type FakeClock struct {
	Millis uint32
}

func (f *FakeClock) NowMillis() uint32 { return f.Millis }

// FakeArming is a settable Arming.
type FakeArming struct {
	IsArmed bool
}

func (f *FakeArming) Armed() bool { return f.IsArmed }

// FakeLogger records every line logged instead of printing it, so tests
// can assert on log content (spec.md §7's "report via ... GCS log").
type FakeLogger struct {
	Lines []string
}

func (f *FakeLogger) Info(format string, args ...any) {
	f.Lines = append(f.Lines, fmt.Sprintf(format, args...))
}

// FakeStatusSink records every status message emitted.
type FakeStatusSink struct {
	Sent []FakeStatus
}

type FakeStatus struct {
	Cmd        CommandID
	Index      uint8
	P1, P2, P3, P4 float64
}

func (f *FakeStatusSink) SendCommandLong(cmd CommandID, index uint8, p1, p2, p3, p4 float64) {
	f.Sent = append(f.Sent, FakeStatus{cmd, index, p1, p2, p3, p4})
}
