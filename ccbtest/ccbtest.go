// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package ccbtest is meant to be used to test drivers of CCB peripherals.
package ccbtest

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"sync"

	"periph.io/x/ccb"
	"periph.io/x/periph/conn/gpio"
)

// IO registers the I/O that happened on either a real or fake CCB bus.
type IO struct {
	Addr byte
	W    []byte
	R    []byte
}

// Record implements ccb.BusIO and records everything written to it.
//
// Can be used to feed a device driver under test, record the bytes, and
// compare them later.
type Record struct {
	sync.Mutex
	Bus ccb.BusIO // Bus can be nil if only writes are being recorded.
	Ops []IO
}

func (r *Record) String() string {
	return "record"
}

// Init implements ccb.BusIO.
func (r *Record) Init() error {
	if r.Bus != nil {
		return r.Bus.Init()
	}
	return nil
}

// Write implements ccb.BusIO.
func (r *Record) Write(addr byte, w []byte) error {
	r.Lock()
	defer r.Unlock()
	if r.Bus != nil {
		if err := r.Bus.Write(addr, w); err != nil {
			return err
		}
	}
	io := IO{Addr: addr, W: make([]byte, len(w))}
	copy(io.W, w)
	r.Ops = append(r.Ops, io)
	return nil
}

// Read implements ccb.BusIO.
func (r *Record) Read(addr byte, b []byte) error {
	r.Lock()
	defer r.Unlock()
	if r.Bus == nil {
		// Read without a backing bus has nothing to return.
		return errors.New("ccbtest: read is not implemented in Record without a bus")
	}
	if err := r.Bus.Read(addr, b); err != nil {
		return err
	}
	io := IO{Addr: addr, R: make([]byte, len(b))}
	copy(io.R, b)
	r.Ops = append(r.Ops, io)
	return nil
}

// DILevel implements ccb.BusIO.
func (r *Record) DILevel() gpio.Level {
	if r.Bus != nil {
		return r.Bus.DILevel()
	}
	return gpio.Low
}

// Close implements ccb.BusCloser.
func (r *Record) Close() error {
	if c, ok := r.Bus.(ccb.BusCloser); ok {
		return c.Close()
	}
	return nil
}

// Playback implements ccb.BusCloser and plays back a recorded I/O flow.
//
// While "replay" type of unit tests are of limited value, they still help
// exercising the edge cases of a device driver with no hardware connected.
type Playback struct {
	sync.Mutex
	Ops []IO
	// DI is the level returned by DILevel.
	DI gpio.Level
	// DontPanic stops panicking on error, in which case the error is
	// returned instead. Tests should leave it false so misuse is caught
	// early.
	DontPanic bool

	count int
}

func (p *Playback) String() string {
	return "playback"
}

// Init implements ccb.BusIO.
func (p *Playback) Init() error {
	return nil
}

// Write implements ccb.BusIO.
func (p *Playback) Write(addr byte, w []byte) error {
	p.Lock()
	defer p.Unlock()
	if p.count >= len(p.Ops) {
		return errorf(p.DontPanic, "ccbtest: unexpected Write(%#02x, %#02x)", addr, w)
	}
	op := p.Ops[p.count]
	if op.Addr != addr || !bytes.Equal(op.W, w) {
		return errorf(p.DontPanic, "ccbtest: unexpected Write(%#02x, %#02x); expected Write(%#02x, %#02x)", addr, w, op.Addr, op.W)
	}
	p.count++
	return nil
}

// Read implements ccb.BusIO.
func (p *Playback) Read(addr byte, r []byte) error {
	p.Lock()
	defer p.Unlock()
	if p.count >= len(p.Ops) {
		return errorf(p.DontPanic, "ccbtest: unexpected Read(%#02x, %d)", addr, len(r))
	}
	op := p.Ops[p.count]
	if op.Addr != addr || len(op.R) != len(r) {
		return errorf(p.DontPanic, "ccbtest: unexpected Read(%#02x, %d); expected Read(%#02x, %d)", addr, len(r), op.Addr, len(op.R))
	}
	copy(r, op.R)
	p.count++
	return nil
}

// DILevel implements ccb.BusIO.
func (p *Playback) DILevel() gpio.Level {
	p.Lock()
	defer p.Unlock()
	return p.DI
}

// Close implements ccb.BusCloser.
//
// Close verifies that all the expected Ops have been consumed.
func (p *Playback) Close() error {
	p.Lock()
	defer p.Unlock()
	if len(p.Ops) != p.count {
		return errorf(p.DontPanic, "ccbtest: expected %d more operations", len(p.Ops)-p.count)
	}
	return nil
}

func errorf(dontPanic bool, format string, a ...interface{}) error {
	err := fmt.Errorf(format, a...)
	if !dontPanic {
		log.Panic(err)
	}
	return err
}

var _ ccb.BusCloser = &Record{}
var _ ccb.BusCloser = &Playback{}
