// Copyright 2026 The Wiring Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package board

import (
	"fmt"
	"sync"

	"periph.io/x/conn/v3/gpio"
)

// Scheme is the pin numbering convention in effect for the process.
type Scheme int

const (
	// SchemeNone is the zero value: no scheme has been claimed yet.
	SchemeNone Scheme = iota
	// WiringPi numbers pins the way the wiringPi library does.
	// Requires root or CAP_SYS_RAWIO.
	WiringPi
	// Broadcom numbers pins by their BCM GPIO number.
	// Requires root or CAP_SYS_RAWIO.
	Broadcom
	// Sys uses BCM numbers through the sysfs GPIO class and works
	// without elevated privilege.
	Sys
)

var schemeNames = []string{"none", "wiringpi", "broadcom", "sys"}

func (s Scheme) String() string {
	if s < SchemeNone || s > Sys {
		return fmt.Sprintf("scheme(%d)", int(s))
	}
	return schemeNames[s]
}

// Mode configures what a pin does.
type Mode int

const (
	Input Mode = iota
	Output
	PWMOutput
	GPIOClock
)

var modeNames = []string{"input", "output", "pwm", "clock"}

func (m Mode) String() string {
	if m < Input || m > GPIOClock {
		return fmt.Sprintf("mode(%d)", int(m))
	}
	return modeNames[m]
}

// Backend is the hardware layer a Board forwards to. Implementations
// are synchronous; the Board adds the coordination on top.
//
// The edge handler installed with SetEdgeHandler is invoked from the
// backend's single delivery goroutine every time a pin armed with
// ArmEdge changes value.
type Backend interface {
	// Setup prepares the backend for the claimed scheme. Called at
	// most once per process.
	Setup(s Scheme) error

	PinMode(pin int, m Mode) error
	DigitalRead(pin int) (gpio.Level, error)
	DigitalWrite(pin int, l gpio.Level) error
	AnalogRead(pin int) (int, error)
	AnalogWrite(pin int, value int) error
	PWMWrite(pin int, value int) error
	ClockWrite(pin int, hz int) error

	// ArmEdge enables both-edge detection for pin. DisarmEdge turns
	// it back off.
	ArmEdge(pin int) error
	DisarmEdge(pin int) error

	// SetEdgeHandler installs the process-wide edge callback. Called
	// exactly once, by Init, on the winning caller.
	SetEdgeHandler(h func(pin int, l gpio.Level))
}

// Listener receives (pin, level) for every edge reported on a
// monitored pin.
type Listener func(pin int, l gpio.Level)

// Board is the lifecycle-scoped container for the shared GPIO state.
// Construct independent instances with New; most programs use the one
// owned by the root wiring package.
type Board struct {
	backend Backend

	mu     sync.Mutex // guards scheme and pins
	scheme Scheme
	pins   map[int]*pinState

	lmu       sync.RWMutex
	listeners map[string]Listener

	// privileged reports whether the process may use the memory
	// mapped schemes. Swapped out in tests.
	privileged func() bool
}

// pinState carries the per-pin monitoring state. Its mutex serializes
// toggles on that pin only; toggles on different pins do not contend.
type pinState struct {
	mu    sync.Mutex
	armed bool
}

// New returns a Board forwarding to b. The board is unusable until
// Init claims a scheme.
func New(b Backend) *Board {
	return &Board{
		backend:    b,
		pins:       map[int]*pinState{},
		listeners:  map[string]Listener{},
		privileged: hasRawIO,
	}
}

// Init claims the numbering scheme for the board. The first caller
// runs the backend setup and installs the edge handler; every other
// caller, concurrent or later and regardless of the scheme it asked
// for, observes the winner's scheme.
//
// The privilege check for WiringPi and Broadcom runs before anything
// is claimed, so a refused caller leaves the board uninitialized.
func (b *Board) Init(s Scheme) (Scheme, error) {
	if s != WiringPi && s != Broadcom && s != Sys {
		return SchemeNone, fmt.Errorf("board: unknown scheme %d", int(s))
	}
	if (s == WiringPi || s == Broadcom) && !b.privileged() {
		return SchemeNone, &PrivilegeError{Scheme: s}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.scheme != SchemeNone {
		return b.scheme, nil
	}
	if err := b.backend.Setup(s); err != nil {
		return SchemeNone, fmt.Errorf("board: setup %s: %w", s, err)
	}
	b.backend.SetEdgeHandler(b.dispatch)
	b.scheme = s
	return s, nil
}

// Scheme returns the active scheme and whether one has been claimed.
func (b *Board) Scheme() (Scheme, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.scheme, b.scheme != SchemeNone
}

// initialized gates every pin operation.
func (b *Board) initialized() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.scheme == SchemeNone {
		return ErrNotInitialized
	}
	return nil
}
