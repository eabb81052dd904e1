// Copyright 2026 The Wiring Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package i2c

import (
	"errors"

	"periph.io/x/conn/v3/physic"
)

// NoReg marks an operation without a register preamble.
const NoReg = -1

// Device is one open I2C device file. Implementations perform whole
// transactions: a short or failing native read or write surfaces as
// an error for the operation as a whole, never as partial data.
//
// Once a Bus owns a Device, nothing else may touch it.
type Device interface {
	// Write writes p to the slave at addr as one transaction. reg,
	// when not NoReg, is sent first as the register preamble.
	Write(addr uint16, reg int, p []byte) error
	// Read fills p from the slave at addr. reg, when not NoReg,
	// selects the register to read from.
	Read(addr uint16, reg int, p []byte) error
	Close() error
}

// Speeder is implemented by devices whose bus clock can be changed.
type Speeder interface {
	SetSpeed(f physic.Frequency) error
}

// Opener opens the device file backing a bus path.
type Opener func(path string) (Device, error)

// ErrClosed is the immediate rejection for anything submitted to a
// bus after Close. Nothing is queued; the caller can recover by
// opening the bus again.
var ErrClosed = errors.New("i2c: bus closed")

// ErrPartialWrite marks a WriteSeq that stopped at a failing payload.
// It is an expected outcome, not an exceptional one; the result's
// Unapplied field says what was not written.
var ErrPartialWrite = errors.New("i2c: sequential write stopped early")
