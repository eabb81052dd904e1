// Copyright 2026 The Wiring Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

//go:build linux

package sysfs

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"

	"github.com/sbc-io/wiring/board"
)

const gpioRoot = "/sys/class/gpio"

// GPIO implements board.Backend over the sysfs GPIO class.
type GPIO struct {
	root string

	mu      sync.Mutex
	export  *os.File // handle to <root>/export; never closed once open
	pins    map[int]*pinFile
	watcher *watcher
	handler func(pin int, l gpio.Level)
}

// pinFile holds the open handles for one exported pin. The handles
// are kept open for the life of the backend; reopening them per
// operation is prohibitively slow.
type pinFile struct {
	number     int
	root       string // <root>/gpio<n>/
	direction  direction
	fDirection *os.File
	fValue     *os.File
	fEdge      *os.File
}

// New returns a sysfs backend. It touches nothing until Setup runs.
func New() *GPIO {
	return &GPIO{root: gpioRoot, pins: map[int]*pinFile{}}
}

// Setup implements board.Backend. Only the Sys scheme is served here;
// the memory-mapped schemes belong to the rpi backend.
func (g *GPIO) Setup(s board.Scheme) error {
	if s != board.Sys {
		return fmt.Errorf("sysfs-gpio: scheme %s needs the memory-mapped backend", s)
	}
	if _, err := os.Stat(g.root); err != nil {
		return fmt.Errorf("sysfs-gpio: %w", err)
	}
	f, err := os.OpenFile(g.root+"/export", os.O_WRONLY, 0600)
	if err != nil {
		if os.IsPermission(err) {
			return fmt.Errorf("sysfs-gpio: need more access, try as root or setup udev rules: %v", err)
		}
		return fmt.Errorf("sysfs-gpio: %w", err)
	}
	w, err := newWatcher()
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("sysfs-gpio: %w", err)
	}
	g.mu.Lock()
	g.export = f
	g.watcher = w
	g.mu.Unlock()
	go w.run(g.deliver)
	return nil
}

// SetEdgeHandler implements board.Backend.
func (g *GPIO) SetEdgeHandler(h func(pin int, l gpio.Level)) {
	g.mu.Lock()
	g.handler = h
	g.mu.Unlock()
}

func (g *GPIO) deliver(pin int, l gpio.Level) {
	g.mu.Lock()
	h := g.handler
	g.mu.Unlock()
	if h != nil {
		h(pin, l)
	}
}

// PinMode implements board.Backend.
func (g *GPIO) PinMode(pin int, m board.Mode) error {
	p, err := g.pin(pin)
	if err != nil {
		return err
	}
	switch m {
	case board.Input:
		return p.setDirection(dIn)
	case board.Output:
		return p.setDirection(dOut)
	default:
		return fmt.Errorf("sysfs-gpio: mode %s is not supported via sysfs", m)
	}
}

// DigitalRead implements board.Backend.
func (g *GPIO) DigitalRead(pin int) (gpio.Level, error) {
	p, err := g.pin(pin)
	if err != nil {
		return gpio.Low, err
	}
	var buf [4]byte
	if _, err := seekRead(p.fValue, buf[:]); err != nil {
		return gpio.Low, p.wrap(err)
	}
	return gpio.Level(buf[0] == '1'), nil
}

// DigitalWrite implements board.Backend.
func (g *GPIO) DigitalWrite(pin int, l gpio.Level) error {
	p, err := g.pin(pin)
	if err != nil {
		return err
	}
	b := bLow
	if l {
		b = bHigh
	}
	if err := seekWrite(p.fValue, b); err != nil {
		return p.wrap(err)
	}
	return nil
}

// AnalogRead implements board.Backend. sysfs GPIO has no ADC.
func (g *GPIO) AnalogRead(pin int) (int, error) {
	return 0, errors.New("sysfs-gpio: analog input is not supported via sysfs")
}

// AnalogWrite implements board.Backend.
func (g *GPIO) AnalogWrite(pin int, value int) error {
	return errors.New("sysfs-gpio: analog output is not supported via sysfs")
}

// PWMWrite implements board.Backend. The kernel PWM class is a
// different sysfs tree with its own chip/channel addressing, not
// reachable from a GPIO pin number.
func (g *GPIO) PWMWrite(pin int, value int) error {
	return errors.New("sysfs-gpio: pwm is not supported via sysfs")
}

// ClockWrite implements board.Backend.
func (g *GPIO) ClockWrite(pin int, hz int) error {
	return errors.New("sysfs-gpio: gpio clock is not supported via sysfs")
}

// ArmEdge implements board.Backend. The pin is switched to input,
// both-edge reporting is enabled and the value file joins the epoll
// set feeding the edge handler.
func (g *GPIO) ArmEdge(pin int) error {
	p, err := g.pin(pin)
	if err != nil {
		return err
	}
	if err := p.setDirection(dIn); err != nil {
		return err
	}
	if p.fEdge == nil {
		f, err := os.OpenFile(p.root+"edge", os.O_RDWR, 0600)
		if err != nil {
			return p.wrap(err)
		}
		p.fEdge = f
	}
	// Reset to none before selecting both. Writing the mode twice
	// flushes edges accumulated while the pin was not watched.
	if err := seekWrite(p.fEdge, bNone); err != nil {
		return p.wrap(err)
	}
	if err := seekWrite(p.fEdge, bBoth); err != nil {
		return p.wrap(err)
	}
	g.mu.Lock()
	w := g.watcher
	g.mu.Unlock()
	if w == nil {
		return errors.New("sysfs-gpio: not set up")
	}
	if err := w.add(p.number, p.fValue); err != nil {
		return p.wrap(err)
	}
	// Consume the priming readout so the first wakeup is a real
	// transition.
	var buf [4]byte
	_, _ = seekRead(p.fValue, buf[:])
	return nil
}

// DisarmEdge implements board.Backend. Disarming a pin that was never
// armed is trivially done.
func (g *GPIO) DisarmEdge(pin int) error {
	g.mu.Lock()
	p := g.pins[pin]
	w := g.watcher
	g.mu.Unlock()
	if p == nil || p.fEdge == nil {
		return nil
	}
	if err := seekWrite(p.fEdge, bNone); err != nil {
		return p.wrap(err)
	}
	if w != nil {
		if err := w.remove(p.fValue); err != nil {
			return p.wrap(err)
		}
	}
	return nil
}

// Close releases the epoll set and every pin handle. The pins stay
// exported; unexporting would yank them from other observers.
func (g *GPIO) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.watcher != nil {
		g.watcher.close()
		g.watcher = nil
	}
	for _, p := range g.pins {
		p.close()
	}
	g.pins = map[int]*pinFile{}
	if g.export != nil {
		_ = g.export.Close()
		g.export = nil
	}
	return nil
}

// pin returns the handles for pin, exporting and opening it on first
// use.
func (g *GPIO) pin(number int) (*pinFile, error) {
	if number < 0 {
		return nil, fmt.Errorf("sysfs-gpio: invalid pin %d", number)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if p := g.pins[number]; p != nil {
		return p, nil
	}
	if g.export == nil {
		return nil, errors.New("sysfs-gpio: not set up")
	}
	p := &pinFile{number: number, root: fmt.Sprintf("%s/gpio%d/", g.root, number)}
	if err := p.open(g.export); err != nil {
		return nil, err
	}
	g.pins[number] = p
	return p, nil
}

// open exports the pin if needed and opens the value and direction
// files. After a write to /export there is a window where the files
// exist but the udev rule making them accessible has not run yet, so
// permission errors are retried for a while.
func (p *pinFile) open(export io.Writer) error {
	var err error
	if p.fValue, err = os.OpenFile(p.root+"value", os.O_RDWR, 0600); err == nil {
		// Already exported.
	} else if !os.IsNotExist(err) {
		return p.wrap(fmt.Errorf("need more access, try as root or setup udev rules: %v", err))
	} else {
		if _, err = export.Write([]byte(strconv.Itoa(p.number))); err != nil && !isErrBusy(err) {
			return p.wrap(err)
		}
		for start := time.Now(); time.Since(start) < 5*time.Second; {
			if p.fValue, err = os.OpenFile(p.root+"value", os.O_RDWR, 0600); err == nil || !os.IsPermission(err) {
				break
			}
		}
		if err != nil {
			return p.wrap(err)
		}
	}
	if p.fDirection, err = os.OpenFile(p.root+"direction", os.O_RDWR, 0600); err != nil {
		_ = p.fValue.Close()
		p.fValue = nil
		return p.wrap(err)
	}
	return nil
}

func (p *pinFile) setDirection(d direction) error {
	if p.direction == d {
		return nil
	}
	b := bIn
	if d == dOut {
		b = bOut
	}
	if err := seekWrite(p.fDirection, b); err != nil {
		return p.wrap(err)
	}
	p.direction = d
	return nil
}

func (p *pinFile) close() {
	if p.fEdge != nil {
		_ = p.fEdge.Close()
	}
	if p.fDirection != nil {
		_ = p.fDirection.Close()
	}
	if p.fValue != nil {
		_ = p.fValue.Close()
	}
}

func (p *pinFile) wrap(err error) error {
	return fmt.Errorf("sysfs-gpio (%d): %w", p.number, err)
}

type direction int

const (
	dUnknown direction = 0
	dIn      direction = 1
	dOut     direction = 2
)

var (
	bIn    = []byte("in")
	bOut   = []byte("out")
	bLow   = []byte("0")
	bHigh  = []byte("1")
	bNone  = []byte("none")
	bBoth  = []byte("both")
)

// sysfs pseudo-files do not track an offset the way regular files do;
// every access starts from the beginning.
func seekRead(f *os.File, b []byte) (int, error) {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return 0, err
	}
	return f.Read(b)
}

func seekWrite(f *os.File, b []byte) error {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return err
	}
	_, err := f.Write(b)
	return err
}

var _ board.Backend = &GPIO{}
