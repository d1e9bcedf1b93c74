// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Bit-bang implementation of the CCB bus master.
//
// Protocol reference:
// http://www.onsemi.com/pub/Collateral/LC72131-D.PDF p. 7 "CCB Serial Data"

package ccb

import (
	"errors"
	"fmt"
	"io"
	"time"

	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/physic"
)

// DefaultSpeed is the clock frequency used until SetSpeed is called.
//
// The resulting 100µs clock half period is slow enough for every known CCB
// peripheral.
const DefaultSpeed = 5 * physic.KiloHertz

// MaxPayload is the maximum number of bytes a single Write or Read can
// transfer.
const MaxPayload = 127

// BusIO is what an application level device driver (PLL programming, IF
// counter polling, volume control) consumes.
//
// A BusIO is not safe for concurrent use; callers interleaving transactions
// from multiple goroutines must serialize externally.
type BusIO interface {
	String() string
	// Init configures the line directions and rest states. It must be called
	// once before the first transaction. Calling it again is safe.
	Init() error
	// Write sends up to MaxPayload bytes to the device register at addr.
	//
	// CCB devices shift their registers MSB to LSB on the wire, so w is
	// transmitted from its last element to its first: keep w in datasheet
	// order, w[0] being the device's most significant byte.
	Write(addr byte, w []byte) error
	// Read fills r, up to MaxPayload bytes, from the device register at addr.
	// r[0] receives the first byte clocked in.
	Read(addr byte, r []byte) error
	// DILevel returns the instantaneous level of the DI line. Some devices
	// repurpose DI as an auxiliary output (clock time standard, unlock flag)
	// while the bus is idle.
	DILevel() gpio.Level
}

// BusCloser is a CCB bus that can be closed.
type BusCloser interface {
	io.Closer
	BusIO
}

// Pins defines the pins a CCB bus is made of.
type Pins interface {
	// DO returns the data out pin.
	DO() gpio.PinOut
	// CL returns the clock pin.
	CL() gpio.PinOut
	// DI returns the data in pin.
	DI() gpio.PinIn
	// CE returns the chip enable pin.
	CE() gpio.PinOut
}

// New returns a CCB bus master over four GPIO pins.
//
// The pins are owned by the bus until Close; nothing else may drive them.
// Call Init before the first transaction.
func New(do, cl, di, ce gpio.PinIO) (*Bus, error) {
	if do == nil || cl == nil || di == nil || ce == nil {
		return nil, errors.New("ccb: all of do, cl, di and ce pins are required")
	}
	return &Bus{
		do:    do,
		cl:    cl,
		di:    di,
		ce:    ce,
		half:  DefaultSpeed.Duration() / 2,
		sleep: time.Sleep,
	}, nil
}

// Bus is a CCB bus master.
//
// It is not safe for concurrent use. Every operation runs synchronously to
// completion in bounded time; there is no cancellation.
type Bus struct {
	// Immutable.
	do gpio.PinIO
	cl gpio.PinIO
	di gpio.PinIO
	ce gpio.PinIO

	// Mutable.
	half  time.Duration
	sleep func(time.Duration)
}

func (b *Bus) String() string {
	return fmt.Sprintf("ccb(%s, %s, %s, %s)", b.do, b.cl, b.di, b.ce)
}

// Init implements BusIO.
//
// DO, CL and CE become outputs at their rest state (all low; the protocol
// mandates clock-rest-low), DI becomes an input with a pull-up. CE is then
// cycled once to flush any partial transaction a previous run may have left
// a peripheral stuck in.
func (b *Bus) Init() error {
	if err := b.di.In(gpio.PullUp, gpio.NoEdge); err != nil {
		return fmt.Errorf("ccb: failed to configure DI: %v", err)
	}
	if err := b.do.Out(gpio.Low); err != nil {
		return err
	}
	if err := b.cl.Out(gpio.Low); err != nil {
		return err
	}
	if err := b.ce.Out(gpio.High); err != nil {
		return err
	}
	b.sleep(b.half)
	if err := b.ce.Out(gpio.Low); err != nil {
		return err
	}
	b.sleep(b.half)
	return nil
}

// SetSpeed changes the bus clock frequency.
//
// The clock half period, which also paces the chip enable setup and hold
// delays, is half the period of f.
func (b *Bus) SetSpeed(f physic.Frequency) error {
	if f > 500*physic.KiloHertz {
		return fmt.Errorf("ccb: invalid speed %s; maximum supported clock is 500kHz", f)
	}
	if f < 100*physic.Hertz {
		return fmt.Errorf("ccb: invalid speed %s; minimum supported clock is 100Hz; did you forget to multiply by physic.KiloHertz?", f)
	}
	b.half = f.Duration() / 2
	return nil
}

// Write implements BusIO.
func (b *Bus) Write(addr byte, w []byte) error {
	if len(w) > MaxPayload {
		return fmt.Errorf("ccb: maximum payload is %d bytes, got %d", MaxPayload, len(w))
	}
	if err := b.openWindow(addr); err != nil {
		return err
	}
	// Last buffer element first: the device expects its most significant
	// byte, w[0], last.
	for i := len(w); i > 0; i-- {
		if err := b.sendByte(w[i-1]); err != nil {
			return err
		}
	}
	// Return DO to its rest state before the window closes.
	if err := b.do.Out(gpio.Low); err != nil {
		return err
	}
	return b.closeWindow()
}

// Read implements BusIO.
func (b *Bus) Read(addr byte, r []byte) error {
	if len(r) > MaxPayload {
		return fmt.Errorf("ccb: maximum payload is %d bytes, got %d", MaxPayload, len(r))
	}
	if err := b.openWindow(addr); err != nil {
		return err
	}
	for i := range r {
		v, err := b.receiveByte()
		if err != nil {
			return err
		}
		r[i] = v
	}
	return b.closeWindow()
}

// DILevel implements BusIO.
func (b *Bus) DILevel() gpio.Level {
	return b.di.Read()
}

// Close returns the three output lines to their rest state. The pins remain
// configured; ownership returns to the caller.
func (b *Bus) Close() error {
	if err := b.do.Out(gpio.Low); err != nil {
		return err
	}
	if err := b.cl.Out(gpio.Low); err != nil {
		return err
	}
	return b.ce.Out(gpio.Low)
}

// DO implements Pins.
func (b *Bus) DO() gpio.PinOut {
	return b.do
}

// CL implements Pins.
func (b *Bus) CL() gpio.PinOut {
	return b.cl
}

// DI implements Pins.
func (b *Bus) DI() gpio.PinIn {
	return b.di
}

// CE implements Pins.
func (b *Bus) CE() gpio.PinOut {
	return b.ce
}

// openWindow transmits the address phase and raises CE to start the payload
// phase.
//
// The address goes out with its nibbles swapped so that 4 bit address
// devices decode it consistently.
func (b *Bus) openWindow(addr byte) error {
	if err := b.sendByte(addr>>4 | addr<<4); err != nil {
		return err
	}
	if err := b.cl.Out(gpio.Low); err != nil {
		return err
	}
	if err := b.ce.Out(gpio.High); err != nil {
		return err
	}
	b.sleep(b.half)
	return nil
}

// closeWindow lowers CE, ending the payload phase.
func (b *Bus) closeWindow() error {
	if err := b.ce.Out(gpio.Low); err != nil {
		return err
	}
	b.sleep(b.half)
	return nil
}

// sendByte clocks one byte out on DO, LSB first. The bit is valid on the
// rising edge of CL and held through the falling edge.
func (b *Bus) sendByte(v byte) error {
	for i := uint(0); i < 8; i++ {
		if err := b.do.Out(gpio.Level(v&(1<<i) != 0)); err != nil {
			return err
		}
		if err := b.cl.Out(gpio.High); err != nil {
			return err
		}
		b.sleep(b.half)
		if err := b.cl.Out(gpio.Low); err != nil {
			return err
		}
		b.sleep(b.half)
	}
	return nil
}

// receiveByte clocks one byte in from DI, MSB first. The device presents the
// bit on the rising edge of CL; it is sampled before the falling edge.
//
// The asymmetry with sendByte (MSB first here, LSB first there) is a
// property of the CCB wire format, not a choice.
func (b *Bus) receiveByte() (byte, error) {
	var v byte
	for i := 7; i >= 0; i-- {
		if err := b.cl.Out(gpio.High); err != nil {
			return 0, err
		}
		b.sleep(b.half)
		if b.di.Read() == gpio.High {
			v |= 1 << uint(i)
		}
		if err := b.cl.Out(gpio.Low); err != nil {
			return 0, err
		}
		b.sleep(b.half)
	}
	return v, nil
}

var _ BusCloser = &Bus{}
var _ Pins = &Bus{}
var _ fmt.Stringer = &Bus{}
