// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// ccb performs a raw register transfer over a Sanyo CCB bus bit-banged on
// four GPIO pins.
//
// Example, programming the two control registers of a LC72131 PLL wired on
// a Raspberry Pi:
//
//	ccb -do GPIO2 -cl GPIO3 -di GPIO4 -ce GPIO17 -a 0x82 -w 8c21e0
package main

import (
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io/ioutil"
	"log"
	"os"

	"periph.io/x/ccb"
	"periph.io/x/ccb/ccbreg"
	"periph.io/x/ccb/devices/scope"
	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/gpio/gpioreg"
	"periph.io/x/periph/conn/physic"
	"periph.io/x/periph/host"
)

func mainImpl() error {
	verbose := flag.Bool("v", false, "verbose mode")
	doPin := flag.String("do", "", "DO (data out) pin name")
	clPin := flag.String("cl", "", "CL (clock) pin name")
	diPin := flag.String("di", "", "DI (data in) pin name")
	cePin := flag.String("ce", "", "CE (chip enable) pin name")
	addr := flag.Uint("a", 0, "device address, as printed in the datasheet")
	wHex := flag.String("w", "", "bytes to write, in hex, datasheet order")
	rN := flag.Int("r", 0, "number of bytes to read")
	hz := flag.Int("hz", 0, "bus clock in hertz; defaults to 5000")
	trace := flag.Bool("scope", false, "draw the captured waveform after the transfer")
	flag.Parse()
	if !*verbose {
		log.SetOutput(ioutil.Discard)
	}
	log.SetFlags(log.Lmicroseconds)
	if flag.NArg() != 0 {
		return errors.New("unexpected argument, try -help")
	}
	if *addr > 0xFF {
		return errors.New("-a must be in 0..255")
	}
	if (*wHex == "") == (*rN == 0) {
		return errors.New("exactly one of -w or -r is required")
	}
	if *rN < 0 || *rN > ccb.MaxPayload {
		return fmt.Errorf("-r must be in 0..%d", ccb.MaxPayload)
	}

	if _, err := host.Init(); err != nil {
		return err
	}

	var d *scope.Dev
	var bus ccb.BusCloser
	if *trace {
		// The scope must wrap the pins before the bus is built.
		d = scope.New()
		var pins [4]gpio.PinIO
		for i, name := range [4]string{*doPin, *clPin, *diPin, *cePin} {
			if name == "" {
				return errors.New("-do, -cl, -di and -ce are required")
			}
			p := gpioreg.ByName(name)
			if p == nil {
				return fmt.Errorf("no pin named %q", name)
			}
			pins[i] = d.Pin(p)
		}
		b, err := ccb.New(pins[0], pins[1], pins[2], pins[3])
		if err != nil {
			return err
		}
		if err := b.Init(); err != nil {
			return err
		}
		bus = b
	} else {
		b, err := ccbreg.OpenPins(*doPin, *clPin, *diPin, *cePin)
		if err != nil {
			return err
		}
		bus = b
	}
	defer bus.Close()

	if *hz != 0 {
		b, ok := bus.(*ccb.Bus)
		if !ok {
			return fmt.Errorf("can't set the speed of %T", bus)
		}
		if err := b.SetSpeed(physic.Frequency(*hz) * physic.Hertz); err != nil {
			return err
		}
	}
	if d != nil {
		// Drop the Init flush pulse, keep the transaction of interest.
		d.Reset()
	}

	if *wHex != "" {
		w, err := hex.DecodeString(*wHex)
		if err != nil {
			return err
		}
		log.Printf("Write(%#02x, %x)", *addr, w)
		if err := bus.Write(byte(*addr), w); err != nil {
			return err
		}
	} else {
		r := make([]byte, *rN)
		log.Printf("Read(%#02x, %d)", *addr, *rN)
		if err := bus.Read(byte(*addr), r); err != nil {
			return err
		}
		fmt.Printf("%x\n", r)
	}
	if d != nil {
		return d.Draw()
	}
	return nil
}

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "ccb: %s.\n", err)
		os.Exit(1)
	}
}
