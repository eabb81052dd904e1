// Copyright 2026 The Wiring Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

//go:build linux

// Package rpi implements the hardware backend on the memory-mapped
// GPIO registers of the Broadcom SoCs used by the Raspberry Pi
// family, through go-rpio. It serves the WiringPi and Broadcom
// schemes; mapping /dev/mem (or /dev/gpiomem) is what makes those
// schemes privileged.
//
// The SoC registers are addressed by BCM number. Translating a
// scheme's pin numbers to BCM numbers is the caller's business: pass
// a translation table with Translate, or leave the default identity
// for the Broadcom scheme.
package rpi

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/stianeikeland/go-rpio/v4"
	"periph.io/x/conn/v3/gpio"

	"github.com/sbc-io/wiring/board"
)

// pwmCycleLen matches the 0..1024 duty range wiringPi programs
// expect.
const pwmCycleLen = 1024

// pollEvery is the edge-detect sampling period. The detect registers
// latch a transition until read, so polling at this rate bounds
// delivery latency, not event loss for single edges.
const pollEvery = time.Millisecond

// GPIO implements board.Backend on the SoC registers.
type GPIO struct {
	translate func(int) int

	mu      sync.Mutex
	opened  bool
	handler func(pin int, l gpio.Level)
	armed   map[int]rpio.Pin // scheme pin -> BCM pin
	stop    chan struct{}
}

// New returns a register-mapped backend with the identity pin
// translation.
func New() *GPIO {
	return &GPIO{
		translate: func(pin int) int { return pin },
		armed:     map[int]rpio.Pin{},
	}
}

// Translate installs the scheme-to-BCM pin translation. Must be
// called before Setup.
func (g *GPIO) Translate(fn func(int) int) {
	g.translate = fn
}

// Setup implements board.Backend. It maps the GPIO register window
// and starts the edge-detect poller.
func (g *GPIO) Setup(s board.Scheme) error {
	if s != board.WiringPi && s != board.Broadcom {
		return fmt.Errorf("rpi: scheme %s needs the sysfs backend", s)
	}
	if err := rpio.Open(); err != nil {
		return fmt.Errorf("rpi: mapping gpio registers: %w", err)
	}
	g.mu.Lock()
	g.opened = true
	g.stop = make(chan struct{})
	g.mu.Unlock()
	go g.poll()
	return nil
}

// SetEdgeHandler implements board.Backend.
func (g *GPIO) SetEdgeHandler(h func(pin int, l gpio.Level)) {
	g.mu.Lock()
	g.handler = h
	g.mu.Unlock()
}

func (g *GPIO) pin(pin int) rpio.Pin {
	return rpio.Pin(g.translate(pin))
}

// PinMode implements board.Backend.
func (g *GPIO) PinMode(pin int, m board.Mode) error {
	p := g.pin(pin)
	switch m {
	case board.Input:
		p.Input()
	case board.Output:
		p.Output()
	case board.PWMOutput:
		p.Pwm()
		p.Freq(pwmBaseFreq)
	case board.GPIOClock:
		p.Clock()
	default:
		return fmt.Errorf("rpi: unknown mode %d", int(m))
	}
	return nil
}

// pwmBaseFreq is the PWM clock rate for the full cycle; per-pin duty
// is set against pwmCycleLen of it.
const pwmBaseFreq = 19200000 / 2

// DigitalRead implements board.Backend.
func (g *GPIO) DigitalRead(pin int) (gpio.Level, error) {
	return gpio.Level(g.pin(pin).Read() == rpio.High), nil
}

// DigitalWrite implements board.Backend.
func (g *GPIO) DigitalWrite(pin int, l gpio.Level) error {
	if l {
		g.pin(pin).High()
	} else {
		g.pin(pin).Low()
	}
	return nil
}

// AnalogRead implements board.Backend. The SoC has no ADC; analog
// inputs only exist on expansion devices, which are out of reach of
// the register map.
func (g *GPIO) AnalogRead(pin int) (int, error) {
	return 0, errors.New("rpi: no analog input on this SoC")
}

// AnalogWrite implements board.Backend.
func (g *GPIO) AnalogWrite(pin int, value int) error {
	return errors.New("rpi: no analog output on this SoC")
}

// PWMWrite implements board.Backend. value is a duty in 0..1024; the
// pin must be in PWMOutput mode.
func (g *GPIO) PWMWrite(pin int, value int) error {
	if value < 0 || value > pwmCycleLen {
		return fmt.Errorf("rpi: pwm value %d out of range 0..%d", value, pwmCycleLen)
	}
	g.pin(pin).DutyCycle(uint32(value), pwmCycleLen)
	return nil
}

// ClockWrite implements board.Backend. The pin must be in GPIOClock
// mode.
func (g *GPIO) ClockWrite(pin int, hz int) error {
	if hz <= 0 {
		return fmt.Errorf("rpi: clock frequency %d out of range", hz)
	}
	g.pin(pin).Freq(hz)
	return nil
}

// ArmEdge implements board.Backend, using the SoC's event detect
// registers.
func (g *GPIO) ArmEdge(pin int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.opened {
		return errors.New("rpi: not set up")
	}
	p := g.pin(pin)
	p.Detect(rpio.AnyEdge)
	g.armed[pin] = p
	return nil
}

// DisarmEdge implements board.Backend.
func (g *GPIO) DisarmEdge(pin int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.armed[pin]
	if !ok {
		return nil
	}
	p.Detect(rpio.NoEdge)
	delete(g.armed, pin)
	return nil
}

// poll is the process-wide delivery context: it samples the latched
// event-detect status of every armed pin and hands transitions to the
// handler, one after another. Edges bouncing faster than the period
// coalesce into one delivery carrying the level read at sample time.
func (g *GPIO) poll() {
	tick := time.NewTicker(pollEvery)
	defer tick.Stop()
	for {
		g.mu.Lock()
		stop := g.stop
		g.mu.Unlock()
		select {
		case <-stop:
			return
		case <-tick.C:
		}
		g.mu.Lock()
		type hit struct {
			pin int
			p   rpio.Pin
		}
		var hits []hit
		for pin, p := range g.armed {
			if p.EdgeDetected() {
				hits = append(hits, hit{pin, p})
			}
		}
		h := g.handler
		g.mu.Unlock()
		if h == nil {
			continue
		}
		for _, e := range hits {
			h(e.pin, gpio.Level(e.p.Read() == rpio.High))
		}
	}
}

// Close stops the poller and unmaps the registers.
func (g *GPIO) Close() error {
	g.mu.Lock()
	if !g.opened {
		g.mu.Unlock()
		return nil
	}
	g.opened = false
	close(g.stop)
	g.mu.Unlock()
	return rpio.Close()
}

var _ board.Backend = &GPIO{}
