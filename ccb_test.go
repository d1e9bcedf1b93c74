// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ccb

import (
	"errors"
	"testing"
	"time"

	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/physic"
)

func TestNew_NilPin(t *testing.T) {
	tr := &trace{}
	p := &fakePin{name: "P", tr: tr}
	if _, err := New(nil, p, p, p); err == nil {
		t.Fatal("expected error on nil DO")
	}
	if _, err := New(p, p, nil, p); err == nil {
		t.Fatal("expected error on nil DI")
	}
}

func TestNew_DefaultSpeed(t *testing.T) {
	r := newRig(t)
	if r.b.half != 100*time.Microsecond {
		t.Fatalf("default half period = %s; want 100µs", r.b.half)
	}
}

func TestInit_Idempotent(t *testing.T) {
	r := newRig(t)
	for i := 0; i < 2; i++ {
		if err := r.b.Init(); err != nil {
			t.Fatalf("Init() #%d: %v", i+1, err)
		}
		if !r.di.in {
			t.Fatal("DI is not an input")
		}
		if r.di.pull != gpio.PullUp {
			t.Fatalf("DI pull = %s; want %s", r.di.pull, gpio.PullUp)
		}
		for _, p := range []*fakePin{r.do, r.cl, r.ce} {
			if p.l != gpio.Low {
				t.Fatalf("after Init() #%d, %s = %s; want %s", i+1, p.name, p.l, gpio.Low)
			}
		}
	}
	// One CE flush pulse per Init call.
	n := 0
	for _, e := range r.tr.events {
		if e.pin == "CE" && e.op == "out" && e.l == gpio.High {
			n++
		}
	}
	if n != 2 {
		t.Fatalf("CE rose %d times; want 2", n)
	}
}

func TestSendByte_LSBFirst(t *testing.T) {
	for _, v := range []byte{0x00, 0x01, 0x80, 0xA5, 0xFF} {
		r := newRig(t)
		if err := r.b.sendByte(v); err != nil {
			t.Fatal(err)
		}
		if got := r.tr.emitted(); len(got) != 1 || got[0] != v {
			t.Fatalf("sendByte(%#02x) emitted %#02x", v, got)
		}
		if n := r.tr.risingEdges(); n != 8 {
			t.Fatalf("sendByte(%#02x) produced %d clock pulses; want 8", v, n)
		}
	}
}

func TestReceiveByte_MSBFirst(t *testing.T) {
	for _, v := range []byte{0x00, 0x01, 0x80, 0xC5, 0xFF} {
		r := newRig(t)
		r.di.levels = msbLevels(v)
		got, err := r.b.receiveByte()
		if err != nil {
			t.Fatal(err)
		}
		if got != v {
			t.Fatalf("receiveByte() = %#02x; want %#02x", got, v)
		}
		if n := r.tr.risingEdges(); n != 8 {
			t.Fatalf("receiveByte() produced %d clock pulses; want 8", n)
		}
	}
}

// The device presents a bit after the rising edge; the sample must land
// between the rise and the fall of CL.
func TestReceiveByte_SamplesWhileClockHigh(t *testing.T) {
	r := newRig(t)
	r.di.levels = msbLevels(0x5A)
	if _, err := r.b.receiveByte(); err != nil {
		t.Fatal(err)
	}
	cl := gpio.Low
	for _, e := range r.tr.events {
		switch {
		case e.pin == "CL" && e.op == "out":
			cl = e.l
		case e.pin == "DI" && e.op == "read":
			if cl != gpio.High {
				t.Fatal("DI sampled while CL is low")
			}
		}
	}
}

func TestNibbleSwap(t *testing.T) {
	data := []struct {
		addr byte
		want byte
	}{
		{0x00, 0x00},
		{0x0F, 0xF0},
		{0xF0, 0x0F},
		{0x82, 0x28},
		{0xA5, 0x5A},
	}
	for _, line := range data {
		r := newRig(t)
		if err := r.b.Write(line.addr, nil); err != nil {
			t.Fatal(err)
		}
		got := r.tr.emitted()
		if len(got) == 0 || got[0] != line.want {
			t.Fatalf("Write(%#02x, nil) sent address %#02x; want %#02x", line.addr, got, line.want)
		}
	}
}

func TestWrite(t *testing.T) {
	r := newRig(t)
	if err := r.b.Write(0x82, []byte{0x00, 0x01, 0x02}); err != nil {
		t.Fatal(err)
	}
	// Address first, then the payload back to front.
	want := []byte{0x28, 0x02, 0x01, 0x00}
	got := r.tr.emitted()
	if len(got) != len(want) {
		t.Fatalf("emitted %#02x; want %#02x", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("emitted %#02x; want %#02x", got, want)
		}
	}
	if n := r.tr.payloadEdges(); n != 24 {
		t.Fatalf("%d clock pulses inside the CE window; want 24", n)
	}
	for _, p := range []*fakePin{r.do, r.cl, r.ce} {
		if p.l != gpio.Low {
			t.Fatalf("after Write, %s = %s; want %s", p.name, p.l, gpio.Low)
		}
	}
}

func TestWrite_TooLong(t *testing.T) {
	r := newRig(t)
	if err := r.b.Write(0x82, make([]byte, MaxPayload+1)); err == nil {
		t.Fatal("expected error")
	}
	if len(r.tr.events) != 0 {
		t.Fatal("an oversized write must not touch the bus")
	}
}

func TestRead(t *testing.T) {
	r := newRig(t)
	r.di.levels = msbLevels(0x12, 0x34, 0x56)
	buf := make([]byte, 3)
	if err := r.b.Read(0x92, buf); err != nil {
		t.Fatal(err)
	}
	// Forward fill: first byte clocked in lands in buf[0].
	if buf[0] != 0x12 || buf[1] != 0x34 || buf[2] != 0x56 {
		t.Fatalf("Read() = %#02x; want [0x12 0x34 0x56]", buf)
	}
	if got := r.tr.emitted(); len(got) == 0 || got[0] != 0x29 {
		t.Fatalf("address sent = %#02x; want 0x29", got)
	}
	if n := r.tr.payloadEdges(); n != 24 {
		t.Fatalf("%d clock pulses inside the CE window; want 24", n)
	}
	if r.ce.l != gpio.Low {
		t.Fatal("CE still high after the transaction")
	}
}

func TestRead_TooLong(t *testing.T) {
	r := newRig(t)
	if err := r.b.Read(0x92, make([]byte, MaxPayload+1)); err == nil {
		t.Fatal("expected error")
	}
}

func TestSetSpeed(t *testing.T) {
	r := newRig(t)
	if err := r.b.SetSpeed(physic.MegaHertz); err == nil {
		t.Fatal("1MHz is over the maximum")
	}
	if err := r.b.SetSpeed(50 * physic.Hertz); err == nil {
		t.Fatal("50Hz is under the minimum")
	}
	if err := r.b.SetSpeed(50 * physic.KiloHertz); err != nil {
		t.Fatal(err)
	}
	if r.b.half != 10*time.Microsecond {
		t.Fatalf("half period = %s; want 10µs", r.b.half)
	}
}

func TestDILevel(t *testing.T) {
	r := newRig(t)
	r.di.l = gpio.High
	if r.b.DILevel() != gpio.High {
		t.Fatal("expected High")
	}
	r.di.l = gpio.Low
	if r.b.DILevel() != gpio.Low {
		t.Fatal("expected Low")
	}
}

func TestPins(t *testing.T) {
	r := newRig(t)
	var p Pins = r.b
	if p.DO() != r.do || p.CL() != r.cl || p.DI() != r.di || p.CE() != r.ce {
		t.Fatal("pin accessors do not return the construction pins")
	}
}

func TestClose(t *testing.T) {
	r := newRig(t)
	if err := r.b.Write(0x82, []byte{0xFF}); err != nil {
		t.Fatal(err)
	}
	if err := r.b.Close(); err != nil {
		t.Fatal(err)
	}
	for _, p := range []*fakePin{r.do, r.cl, r.ce} {
		if p.l != gpio.Low {
			t.Fatalf("after Close, %s = %s; want %s", p.name, p.l, gpio.Low)
		}
	}
}

//

// event is one observed pin access.
type event struct {
	pin string
	op  string // "in", "out" or "read"
	l   gpio.Level
}

// trace records pin accesses across all four pins in order.
type trace struct {
	events []event
}

// emitted reconstructs the bytes clocked out on DO, as a peripheral sampling
// DO on rising CL edges would see them, LSB first within each byte.
func (tr *trace) emitted() []byte {
	var out []byte
	var cur byte
	n := 0
	do := gpio.Low
	for _, e := range tr.events {
		switch {
		case e.pin == "DO" && e.op == "out":
			do = e.l
		case e.pin == "CL" && e.op == "out" && e.l == gpio.High:
			if do {
				cur |= 1 << uint(n)
			}
			if n++; n == 8 {
				out = append(out, cur)
				cur = 0
				n = 0
			}
		}
	}
	return out
}

// risingEdges counts CL rising edges.
func (tr *trace) risingEdges() int {
	n := 0
	for _, e := range tr.events {
		if e.pin == "CL" && e.op == "out" && e.l == gpio.High {
			n++
		}
	}
	return n
}

// payloadEdges counts CL rising edges that happened while CE was high.
func (tr *trace) payloadEdges() int {
	n := 0
	ce := gpio.Low
	for _, e := range tr.events {
		switch {
		case e.pin == "CE" && e.op == "out":
			ce = e.l
		case e.pin == "CL" && e.op == "out" && e.l == gpio.High:
			if ce == gpio.High {
				n++
			}
		}
	}
	return n
}

// fakePin implements gpio.PinIO and logs accesses to a shared trace.
type fakePin struct {
	name string
	tr   *trace
	l    gpio.Level
	in   bool
	pull gpio.Pull
	// levels is consumed by successive Read calls; once empty, Read returns l.
	levels []gpio.Level
}

func (f *fakePin) String() string {
	return f.name
}

func (f *fakePin) Halt() error {
	return nil
}

func (f *fakePin) Name() string {
	return f.name
}

func (f *fakePin) Number() int {
	return 0
}

func (f *fakePin) Function() string {
	return "In/Out"
}

func (f *fakePin) In(pull gpio.Pull, e gpio.Edge) error {
	f.in = true
	f.pull = pull
	f.tr.events = append(f.tr.events, event{f.name, "in", gpio.Low})
	return nil
}

func (f *fakePin) Read() gpio.Level {
	l := f.l
	if len(f.levels) != 0 {
		l = f.levels[0]
		f.levels = f.levels[1:]
	}
	f.tr.events = append(f.tr.events, event{f.name, "read", l})
	return l
}

func (f *fakePin) WaitForEdge(t time.Duration) bool {
	return false
}

func (f *fakePin) Pull() gpio.Pull {
	return f.pull
}

func (f *fakePin) DefaultPull() gpio.Pull {
	return gpio.PullUp
}

func (f *fakePin) Out(l gpio.Level) error {
	f.in = false
	f.l = l
	f.tr.events = append(f.tr.events, event{f.name, "out", l})
	return nil
}

func (f *fakePin) PWM(d gpio.Duty, fr physic.Frequency) error {
	return errors.New("not implemented")
}

var _ gpio.PinIO = &fakePin{}

// rig is a Bus over four fake pins with time neutralized.
type rig struct {
	b              *Bus
	tr             *trace
	do, cl, di, ce *fakePin
}

func newRig(t *testing.T) *rig {
	tr := &trace{}
	r := &rig{
		tr: tr,
		do: &fakePin{name: "DO", tr: tr},
		cl: &fakePin{name: "CL", tr: tr},
		di: &fakePin{name: "DI", tr: tr},
		ce: &fakePin{name: "CE", tr: tr},
	}
	b, err := New(r.do, r.cl, r.di, r.ce)
	if err != nil {
		t.Fatal(err)
	}
	b.sleep = func(time.Duration) {}
	r.b = b
	return r
}

// msbLevels expands bytes to the DI levels a device would present, MSB
// first.
func msbLevels(vals ...byte) []gpio.Level {
	var out []gpio.Level
	for _, v := range vals {
		for i := 7; i >= 0; i-- {
			out = append(out, gpio.Level(v&(1<<uint(i)) != 0))
		}
	}
	return out
}
