// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package scope renders the activity of a few GPIO lines as a colored
// terminal waveform.
//
// Useful to eyeball bit-bang bus traffic while your logic analyzer is on
// another bench. Wrap each pin before handing it to the bus:
//
//	d := scope.New()
//	bus, _ := ccb.New(d.Pin(do), d.Pin(cl), d.Pin(di), d.Pin(ce))
//
// then call Draw() after the transaction of interest.
//
// Sampling is event based: one column is captured per pin access, which is
// exact for bit-banged buses since every edge is a pin access.
package scope // import "periph.io/x/ccb/devices/scope"

import (
	"bytes"
	"fmt"
	"image/color"
	"io"
	"sync"
	"time"

	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/physic"
)

// Dev collects line levels from wrapped pins and renders them.
type Dev struct {
	mu      sync.Mutex
	w       io.Writer
	pins    []*Pin
	levels  []gpio.Level
	columns [][]gpio.Level
	buf     bytes.Buffer
}

// New returns a Dev that draws at the console.
func New() *Dev {
	return NewWriter(colorable.NewColorableStdout())
}

// NewWriter returns a Dev that draws to an arbitrary writer.
func NewWriter(w io.Writer) *Dev {
	return &Dev{w: w}
}

func (d *Dev) String() string {
	return "Scope"
}

// Pin returns p wrapped so that every level driven or read on it is
// captured.
//
// All pins must be wrapped before the first access; a late Pin call starts
// its trace with the levels captured so far zero filled.
func (d *Dev) Pin(p gpio.PinIO) gpio.PinIO {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := &Pin{p: p, d: d, idx: len(d.pins)}
	d.pins = append(d.pins, s)
	d.levels = append(d.levels, gpio.Low)
	for i, c := range d.columns {
		d.columns[i] = append(c, gpio.Low)
	}
	return s
}

// Reset drops the captured columns, keeping the wrapped pins.
func (d *Dev) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.columns = nil
}

// Draw renders one row per wrapped pin, oldest column first.
func (d *Dev) Draw() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	// This code is designed to minimize the amount of memory allocated per
	// call.
	d.buf.Reset()
	w := 0
	for _, p := range d.pins {
		if l := len(p.p.Name()); l > w {
			w = l
		}
	}
	for i, p := range d.pins {
		fmt.Fprintf(&d.buf, "%-*s ", w, p.p.Name())
		for _, c := range d.columns {
			l := lowBlock
			if c[i] {
				l = highBlock
			}
			_, _ = io.WriteString(&d.buf, l)
		}
		_, _ = d.buf.WriteString("\033[0m\n")
	}
	_, err := d.buf.WriteTo(d.w)
	return err
}

// sample records the level of pin idx and captures a column.
//
// Must not be called with mu held.
func (d *Dev) sample(idx int, l gpio.Level) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.levels[idx] = l
	c := make([]gpio.Level, len(d.levels))
	copy(c, d.levels)
	d.columns = append(d.columns, c)
}

var (
	highBlock = ansi256.Default.Block(color.NRGBA{0, 255, 0, 255})
	lowBlock  = ansi256.Default.Block(color.NRGBA{0, 80, 0, 255})
)

// Pin wraps a gpio.PinIO and reports every access to its Dev.
type Pin struct {
	p   gpio.PinIO
	d   *Dev
	idx int
}

// String implements conn.Resource.
func (p *Pin) String() string {
	return p.p.String()
}

// Halt implements conn.Resource.
func (p *Pin) Halt() error {
	return p.p.Halt()
}

// Name implements pin.Pin.
func (p *Pin) Name() string {
	return p.p.Name()
}

// Number implements pin.Pin.
func (p *Pin) Number() int {
	return p.p.Number()
}

// Function implements pin.Pin.
func (p *Pin) Function() string {
	return p.p.Function()
}

// In implements gpio.PinIn.
func (p *Pin) In(pull gpio.Pull, e gpio.Edge) error {
	return p.p.In(pull, e)
}

// Read implements gpio.PinIn.
func (p *Pin) Read() gpio.Level {
	l := p.p.Read()
	p.d.sample(p.idx, l)
	return l
}

// WaitForEdge implements gpio.PinIn.
func (p *Pin) WaitForEdge(t time.Duration) bool {
	return p.p.WaitForEdge(t)
}

// Pull implements gpio.PinIn.
func (p *Pin) Pull() gpio.Pull {
	return p.p.Pull()
}

// DefaultPull implements gpio.PinIn.
func (p *Pin) DefaultPull() gpio.Pull {
	return p.p.DefaultPull()
}

// Out implements gpio.PinOut.
func (p *Pin) Out(l gpio.Level) error {
	if err := p.p.Out(l); err != nil {
		return err
	}
	p.d.sample(p.idx, l)
	return nil
}

// PWM implements gpio.PinOut.
func (p *Pin) PWM(d gpio.Duty, f physic.Frequency) error {
	return p.p.PWM(d, f)
}

var _ gpio.PinIO = &Pin{}
var _ fmt.Stringer = &Dev{}
