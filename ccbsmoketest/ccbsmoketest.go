// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package ccbsmoketest verifies that a CCB bus bit-banged over four GPIOs
// behaves, with the DO pin physically looped back to the DI pin.
package ccbsmoketest

import (
	"errors"
	"flag"
	"fmt"

	"periph.io/x/ccb"
	"periph.io/x/ccb/ccbreg"
	"periph.io/x/periph/conn/gpio"
)

// SmokeTest is imported by the smoke test harness.
type SmokeTest struct {
}

// Name implements the SmokeTest interface.
func (s *SmokeTest) Name() string {
	return "ccb"
}

// Description implements the SmokeTest interface.
func (s *SmokeTest) Description() string {
	return "Tests a CCB bus with DO looped back to DI"
}

// Run implements the SmokeTest interface.
func (s *SmokeTest) Run(f *flag.FlagSet, args []string) error {
	do := f.String("do", "", "data out pin; must be wired to -di")
	cl := f.String("cl", "", "clock pin")
	di := f.String("di", "", "data in pin; must be wired to -do")
	ce := f.String("ce", "", "chip enable pin")
	if err := f.Parse(args); err != nil {
		return err
	}
	if f.NArg() != 0 {
		f.Usage()
		return errors.New("unrecognized arguments")
	}
	if *do == "" || *cl == "" || *di == "" || *ce == "" {
		return errors.New("-do, -cl, -di and -ce are required")
	}

	bus, err := ccbreg.OpenPins(*do, *cl, *di, *ce)
	if err != nil {
		return err
	}
	defer bus.Close()
	b, ok := bus.(*ccb.Bus)
	if !ok {
		return fmt.Errorf("expected a bit-bang bus, got %T", bus)
	}
	return run(b)
}

func run(b *ccb.Bus) error {
	// With the loopback in place, DI tracks DO while the bus is idle.
	for _, l := range []gpio.Level{gpio.High, gpio.Low, gpio.High} {
		if err := b.DO().Out(l); err != nil {
			return err
		}
		if got := b.DILevel(); got != l {
			return fmt.Errorf("DI reads %s while DO drives %s; is DO wired to DI?", got, l)
		}
	}

	// The address phase leaves the last transmitted bit on DO, and that bit
	// is bit 3 of the datasheet address after the nibble swap. The payload
	// phase of a read does not drive DO, so a looped back read returns all
	// ones for address 0x08 and all zeros for address 0x00.
	buf := make([]byte, 4)
	if err := b.Read(0x08, buf); err != nil {
		return err
	}
	for i, v := range buf {
		if v != 0xFF {
			return fmt.Errorf("read %#02x at offset %d; want 0xff", v, i)
		}
	}
	if err := b.Read(0x00, buf); err != nil {
		return err
	}
	for i, v := range buf {
		if v != 0x00 {
			return fmt.Errorf("read %#02x at offset %d; want 0x00", v, i)
		}
	}
	return nil
}
