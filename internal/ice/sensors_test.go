package ice

import (
	"math"
	"testing"

	"github.com/aerodyne-systems/icefc/internal/hal"
)

func TestLPFPreservesConstantInput(t *testing.T) {
	y := 0.0
	for i := 0; i < 50; i++ {
		y = lpf(y, 20.0)
	}
	if math.Abs(y-20.0) > 1e-6 {
		t.Fatalf("lpf did not converge to constant input: got %v", y)
	}
}

func TestSensorSampleFirstSampleBypassesFilter(t *testing.T) {
	var s sensorSample
	s.feed(1000, 42)
	if s.value != 42 {
		t.Fatalf("first sample should bypass the filter, got %v", s.value)
	}
}

func TestSensorSampleStaleSampleBypassesFilter(t *testing.T) {
	var s sensorSample
	s.feed(0, 10)
	s.feed(10000, 90) // gap > 5000ms
	if s.value != 90 {
		t.Fatalf("stale sample should bypass the filter, got %v", s.value)
	}
}

func TestSensorSampleHealthy(t *testing.T) {
	var s sensorSample
	s.feed(1000, 10)
	if !s.healthy(1000) {
		t.Fatal("expected healthy immediately after sample")
	}
	if !s.healthy(6000) {
		t.Fatal("expected healthy exactly at the 5000ms boundary")
	}
	if s.healthy(6001) {
		t.Fatal("expected unhealthy past the 5000ms boundary")
	}
}

func TestTemperatureSensorLinear(t *testing.T) {
	p := DefaultParams()
	p.TempPin = 5
	p.TempFunc = TempFuncLinear
	p.TempScaler = 2
	p.TempOffset = 1
	p.TempRatiometric = false
	src := hal.NewFakeAnalogSource()
	src.Chan.Voltage = 3

	var ts temperatureSensor
	ts.update(1000, &p, src)
	want := (3.0 - 1) * 2
	if ts.value != want {
		t.Fatalf("linear transfer: got %v want %v", ts.value, want)
	}
}

func TestTemperatureSensorHyperbolicSkipsZeroDenominator(t *testing.T) {
	p := DefaultParams()
	p.TempPin = 5
	p.TempFunc = TempFuncHyperbolic
	p.TempScaler = 10
	p.TempOffset = 2
	src := hal.NewFakeAnalogSource()
	src.Chan.VoltageRatiometric = 2 // v == offset => zero denominator

	var ts temperatureSensor
	ts.update(1000, &p, src)
	if ts.haveSample {
		t.Fatal("zero-denominator sample should be dropped, not fed")
	}
}

func TestTemperatureSensorDisabledByPin(t *testing.T) {
	p := DefaultParams()
	p.TempPin = -1
	src := hal.NewFakeAnalogSource()
	src.Chan.VoltageRatiometric = 5

	var ts temperatureSensor
	ts.update(1000, &p, src)
	if ts.haveSample {
		t.Fatal("sensor with pin <= 0 must stay disabled")
	}
}

func TestFuelSensorUnhealthyBatteryReportsInvalid(t *testing.T) {
	p := DefaultParams()
	batt := hal.NewFakeBattery()
	batt.Healthy_[fuelBatteryInstance] = false

	var fs fuelSensor
	fs.update(1000, &p, batt)
	if fs.value != FuelLevelInvalid {
		t.Fatalf("expected FuelLevelInvalid, got %v", fs.value)
	}
	if fs.haveSample {
		t.Fatal("an unhealthy battery reading must not count as a sample")
	}
}

func TestFuelSensorAppliesOffset(t *testing.T) {
	p := DefaultParams()
	p.FuelOffset = 5
	batt := hal.NewFakeBattery()
	batt.Healthy_[fuelBatteryInstance] = true
	batt.Pct[fuelBatteryInstance] = 80

	var fs fuelSensor
	fs.update(1000, &p, batt)
	if fs.value != 75 {
		t.Fatalf("expected offset-adjusted 75, got %v", fs.value)
	}
}
