// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package ccb implements the Sanyo CCB (Computer Control Bus) protocol as a
// bus master bit-banged over four GPIO pins.
//
// CCB is a synchronous, half-duplex, single-master serial protocol found on
// Sanyo PLL synthesizers, tuner front-ends and display drivers, for example
// the LC72131 AM/FM PLL or the LC75341 audio processor. It fills the same
// niche as I²C but is much simpler: there is no acknowledgment, no
// arbitration and no clock stretching. A transaction is an address byte
// followed by a payload clocked entirely in one direction, framed by the
// chip enable line.
//
// Wiring
//
// Four lines connect the master to every peripheral:
//
//	DO - data out, master to peripheral
//	CL - clock, idles low
//	DI - data in, peripheral to master
//	CE - chip enable, gates the payload phase
//
// On 4 bit address devices the address byte is transmitted with its nibbles
// swapped; Write and Read take the address as printed in the datasheet and
// perform the swap internally.
//
// There is no way to detect an absent or wedged peripheral at this layer.
// Callers needing confidence in a write must read the value back, on devices
// that support it.
//
// Datasheets
//
// http://www.onsemi.com/pub/Collateral/LC72131-D.PDF
//
// http://www.onsemi.com/pub/Collateral/LC75341-D.PDF
package ccb // import "periph.io/x/ccb"
