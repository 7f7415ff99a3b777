package main

import (
	"context"
	"time"

	uartx "github.com/jangala-dev/tinygo-uartx/uartx"

	"github.com/aerodyne-systems/icefc/internal/hal"
)

// ibusFrameLen matches the fixed FlySky iBus frame: 0x20 length, 0x40
// command, 14 channels * 2 bytes little-endian, 2-byte checksum.
const (
	ibusFrameLen   = 32
	ibusHeaderByte = 0x20
	ibusCmdByte    = 0x40
	ibusChannels   = 14
)

// ibusReceiver implements hal.RCReceiver over a tinygo-uartx non-blocking
// UART, the same buffered-read role WingFC's bare machine.UART plays for
// its CRSF/iBus parsers (crsf.go, ibus.go), generalized to tinygo-uartx's
// richer buffered API (the same "uart.Buffered()" check crsf.go makes,
// here expressed as RecvSomeContext against a short-lived context).
type ibusReceiver struct {
	port     *uartx.UART
	buf      [ibusFrameLen]byte
	fill     int
	channels [ibusChannels]uint16
	haveData bool
}

func newIBusReceiver(port *uartx.UART) *ibusReceiver {
	return &ibusReceiver{port: port}
}

// poll should be called every tick from the firmware loop; it drains
// whatever bytes are available and resyncs on the frame header.
func (r *ibusReceiver) poll() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()

	chunk := make([]byte, ibusFrameLen)
	n, err := r.port.RecvSomeContext(ctx, chunk)
	if err != nil || n == 0 {
		return
	}

	for i := 0; i < n; i++ {
		b := chunk[i]
		if r.fill == 0 && b != ibusHeaderByte {
			continue // resync: wait for the frame header
		}
		r.buf[r.fill] = b
		r.fill++
		if r.fill == ibusFrameLen {
			r.decode()
			r.fill = 0
		}
	}
}

func (r *ibusReceiver) decode() {
	if r.buf[1] != ibusCmdByte {
		return
	}
	var sum uint16 = 0xFFFF
	for i := 0; i < ibusFrameLen-2; i++ {
		sum -= uint16(r.buf[i])
	}
	checksum := uint16(r.buf[ibusFrameLen-2]) | uint16(r.buf[ibusFrameLen-1])<<8
	if checksum != sum {
		return
	}
	for ch := 0; ch < ibusChannels; ch++ {
		lo := r.buf[2+ch*2]
		hi := r.buf[3+ch*2]
		r.channels[ch] = uint16(lo) | uint16(hi)<<8
	}
	r.haveData = true
}

// Channel returns channel n (1-based, per spec.md §3.1 START_CHAN).
func (r *ibusReceiver) Channel(n int) (uint16, bool) {
	if !r.haveData || n < 1 || n > ibusChannels {
		return 0, false
	}
	return r.channels[n-1], true
}

var _ hal.RCReceiver = (*ibusReceiver)(nil)
