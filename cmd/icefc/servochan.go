package main

import (
	"tinygo.org/x/drivers/servo"

	"github.com/aerodyne-systems/icefc/internal/hal"
)

// pwmServo adapts a tinygo.org/x/drivers/servo.Servo to hal.ServoChannel
// (spec.md §6's servo_channel_* boundary). The teacher already imports a
// sibling driver from the same module, tinygo.org/x/drivers/lsm6ds3tr,
// for its IMU; this repo uses the actuator-side driver from that family
// instead.
type pwmServo struct {
	dev     servo.Servo
	trimPWM uint16
	lastPWM uint16
	bound   bool
}

func newPWMServo(dev servo.Servo, trimPWM uint16) *pwmServo {
	return &pwmServo{dev: dev, trimPWM: trimPWM, bound: true}
}

// newUnassignedServo represents a logical function (ignition, starter,
// engine_gear, throttle) with no physical output mapped to it, matching
// AP_ICEngine's servo_function_assigned(fn) == false case.
func newUnassignedServo() *pwmServo { return &pwmServo{} }

func (s *pwmServo) Assigned() bool { return s.bound }

func (s *pwmServo) SetScaled(pct float64) {
	if !s.bound {
		return
	}
	us := uint16(1000 + (pct/100.0)*1000)
	s.dev.SetMicroseconds(us)
	s.lastPWM = us
}

func (s *pwmServo) SetPWM(pwm uint16) {
	if !s.bound {
		return
	}
	s.dev.SetMicroseconds(pwm)
	s.lastPWM = pwm
}

func (s *pwmServo) OutputPWM() (uint16, bool) { return s.lastPWM, s.bound }
func (s *pwmServo) Trim() uint16              { return s.trimPWM }

var _ hal.ServoChannel = (*pwmServo)(nil)
