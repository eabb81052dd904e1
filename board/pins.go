// Copyright 2026 The Wiring Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package board

import "periph.io/x/conn/v3/gpio"

// The pin operations below are plain forwarding to the backend, gated
// on the scheme having been claimed. The pin number is interpreted
// according to the active scheme.

// PinMode configures what pin does.
func (b *Board) PinMode(pin int, m Mode) error {
	if err := b.initialized(); err != nil {
		return err
	}
	return b.backend.PinMode(pin, m)
}

// DigitalRead returns the current level of pin.
func (b *Board) DigitalRead(pin int) (gpio.Level, error) {
	if err := b.initialized(); err != nil {
		return gpio.Low, err
	}
	return b.backend.DigitalRead(pin)
}

// DigitalWrite drives pin to l.
func (b *Board) DigitalWrite(pin int, l gpio.Level) error {
	if err := b.initialized(); err != nil {
		return err
	}
	return b.backend.DigitalWrite(pin, l)
}

// AnalogRead returns the value of an analog input, on backends that
// have one.
func (b *Board) AnalogRead(pin int) (int, error) {
	if err := b.initialized(); err != nil {
		return 0, err
	}
	return b.backend.AnalogRead(pin)
}

// AnalogWrite sets the value of an analog output, on backends that
// have one.
func (b *Board) AnalogWrite(pin int, value int) error {
	if err := b.initialized(); err != nil {
		return err
	}
	return b.backend.AnalogWrite(pin, value)
}

// PWMWrite sets the PWM duty value for pin. The pin must have been
// put in PWMOutput mode first.
func (b *Board) PWMWrite(pin int, value int) error {
	if err := b.initialized(); err != nil {
		return err
	}
	return b.backend.PWMWrite(pin, value)
}

// ClockWrite sets the GPIO clock frequency for pin. The pin must have
// been put in GPIOClock mode first.
func (b *Board) ClockWrite(pin int, hz int) error {
	if err := b.initialized(); err != nil {
		return err
	}
	return b.backend.ClockWrite(pin, hz)
}
