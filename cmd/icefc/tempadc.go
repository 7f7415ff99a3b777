package main

import (
	"tinygo.org/x/drivers/ads1015"

	"github.com/aerodyne-systems/icefc/internal/hal"
)

// adsChannel adapts one input of an I2C ADS1015 ADC to hal.AnalogChannel
// (spec.md §6's analogin.channel(pin) boundary), used for the coolant
// temperature sensor (§4.6) instead of a bare microcontroller analog pin.
type adsChannel struct {
	dev     *ads1015.Device
	channel uint8
	vref    float64
}

func (c *adsChannel) SetPin(pin int) { c.channel = uint8(pin) }

func (c *adsChannel) VoltageAverage() float64 {
	raw, err := c.dev.ReadRaw(c.channel)
	if err != nil {
		return 0
	}
	return float64(raw) / 32768.0 * c.vref
}

// VoltageAverageRatiometric reports the reading as a fraction of the
// supply rail rather than an absolute voltage, matching
// AP_HAL::AnalogSource::voltage_average_ratiometric on boards that
// supply the ADC from the same rail as the sensor.
func (c *adsChannel) VoltageAverageRatiometric() float64 {
	raw, err := c.dev.ReadRaw(c.channel)
	if err != nil {
		return 0
	}
	return float64(raw) / 32768.0
}

var _ hal.AnalogChannel = (*adsChannel)(nil)

// adsSource vends adsChannel handles backed by a single shared ADS1015,
// creating each channel lazily on its first Channel call and returning
// the same handle on every later call for that pin.
type adsSource struct {
	dev  *ads1015.Device
	vref float64
	chs  map[int]*adsChannel
}

func newADSSource(dev *ads1015.Device, vref float64) *adsSource {
	return &adsSource{dev: dev, vref: vref, chs: map[int]*adsChannel{}}
}

func (s *adsSource) Channel(pin int) hal.AnalogChannel {
	if ch, ok := s.chs[pin]; ok {
		return ch
	}
	ch := &adsChannel{dev: s.dev, channel: uint8(pin), vref: s.vref}
	s.chs[pin] = ch
	return ch
}

var _ hal.AnalogSource = (*adsSource)(nil)
