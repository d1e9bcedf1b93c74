// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package ccbreg defines a registry for CCB buses present on the host.
//
// Unlike SPI or I²C, a CCB bus is never enumerated by the OS: it exists
// because someone wired four GPIOs to a peripheral. Drivers or application
// setup code declare buses with Register, and tools open them by name with
// Open, or directly from pin names with OpenPins.
package ccbreg

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"periph.io/x/ccb"
	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/gpio/gpioreg"
)

// Opener opens a handle to a CCB bus.
type Opener func() (ccb.BusCloser, error)

// Ref references a CCB bus.
//
// It is returned by All() to enumerate registered buses.
type Ref struct {
	// Name of the bus.
	Name string
	// Aliases are the alternative names that can be used to reference this
	// bus.
	Aliases []string
	// Open is the factory to open a handle to this bus.
	Open Opener
}

// Open opens a CCB bus by its name or an alias.
//
// Specify the empty string to get the first registered bus. This is useful
// for one-bus hosts, which is the common case.
func Open(name string) (ccb.BusCloser, error) {
	var r *Ref
	var err error
	func() {
		mu.Lock()
		defer mu.Unlock()
		if len(byName) == 0 {
			err = errors.New("ccbreg: no bus found; did you forget to call Register()?")
			return
		}
		if len(name) == 0 {
			r = getDefault()
			return
		}
		if r = byName[name]; r == nil {
			if r = byAlias[name]; r == nil {
				err = fmt.Errorf("ccbreg: can't open unknown bus: %q", name)
			}
		}
	}()
	if err != nil {
		return nil, err
	}
	return r.Open()
}

// OpenPins opens a CCB bus directly over four GPIO pin names resolved
// through gpioreg, and initializes it.
//
// This skips the registry entirely; it is what ad-hoc tools want.
func OpenPins(do, cl, di, ce string) (ccb.BusCloser, error) {
	var pins [4]gpio.PinIO
	for i, name := range [4]string{do, cl, di, ce} {
		if len(name) == 0 {
			return nil, errors.New("ccbreg: all of do, cl, di and ce pin names are required")
		}
		if pins[i] = gpioreg.ByName(name); pins[i] == nil {
			return nil, fmt.Errorf("ccbreg: no pin named %q", name)
		}
	}
	b, err := ccb.New(pins[0], pins[1], pins[2], pins[3])
	if err != nil {
		return nil, err
	}
	if err := b.Init(); err != nil {
		return nil, err
	}
	return b, nil
}

// All returns a copy of all the registered references to all known CCB buses
// available on this host.
//
// The list is sorted by the bus name.
func All() []*Ref {
	mu.Lock()
	defer mu.Unlock()
	out := make([]*Ref, 0, len(byName))
	for _, v := range byName {
		r := &Ref{Name: v.Name, Aliases: make([]string, len(v.Aliases)), Open: v.Open}
		copy(r.Aliases, v.Aliases)
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Register registers a CCB bus.
//
// Registering the same bus name twice is an error.
func Register(name string, aliases []string, o Opener) error {
	if len(name) == 0 {
		return errors.New("ccbreg: can't register a bus with no name")
	}
	if o == nil {
		return errors.New("ccbreg: missing opener")
	}
	for _, alias := range aliases {
		if len(alias) == 0 {
			return fmt.Errorf("ccbreg: can't register bus %q with an empty alias", name)
		}
		if name == alias {
			return fmt.Errorf("ccbreg: can't register bus %q with an alias the same as the bus name", name)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if _, ok := byName[name]; ok {
		return fmt.Errorf("ccbreg: can't register bus %q twice", name)
	}
	if _, ok := byAlias[name]; ok {
		return fmt.Errorf("ccbreg: can't register bus %q twice; it is already an alias", name)
	}
	for _, alias := range aliases {
		if _, ok := byName[alias]; ok {
			return fmt.Errorf("ccbreg: can't register bus %q twice; alias %q is already a bus", name, alias)
		}
		if _, ok := byAlias[alias]; ok {
			return fmt.Errorf("ccbreg: can't register bus %q twice; alias %q is already an alias", name, alias)
		}
	}

	r := &Ref{Name: name, Aliases: make([]string, len(aliases)), Open: o}
	copy(r.Aliases, aliases)
	byName[name] = r
	for _, alias := range aliases {
		byAlias[alias] = r
	}
	return nil
}

// Unregister removes a previously registered CCB bus.
//
// This may happen when a bus is exposed via an USB device and the device is
// unplugged.
func Unregister(name string) error {
	mu.Lock()
	defer mu.Unlock()
	r := byName[name]
	if r == nil {
		return fmt.Errorf("ccbreg: can't unregister unknown bus name %q", name)
	}
	delete(byName, name)
	for _, alias := range r.Aliases {
		delete(byAlias, alias)
	}
	return nil
}

//

var (
	mu      sync.Mutex
	byName  = map[string]*Ref{}
	byAlias = map[string]*Ref{}
)

// getDefault returns the Ref that should be used as the default bus.
//
// Must be called with mu held.
func getDefault() *Ref {
	var o *Ref
	for _, v := range byName {
		if o == nil || v.Name < o.Name {
			o = v
		}
	}
	return o
}
