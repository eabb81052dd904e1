// Copyright 2026 The Wiring Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package board

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"periph.io/x/conn/v3/gpio"
)

// pinFor returns the monitoring state for pin, creating it on first
// use.
func (b *Board) pinFor(pin int) *pinState {
	b.mu.Lock()
	defer b.mu.Unlock()
	ps := b.pins[pin]
	if ps == nil {
		ps = &pinState{}
		b.pins[pin] = ps
	}
	return ps
}

// Monitor arms or disarms both-edge detection for pin. Toggles on the
// same pin are serialized; toggles on different pins proceed
// independently.
//
// The returned bool is the outcome of the native call: on a failed
// arm or disarm it is false and the monitored set is unchanged.
// Toggling a pin that is already in the requested state re-issues the
// native call and reports that call's outcome, so the result stays
// truthful about the hardware.
func (b *Board) Monitor(pin int, enable bool) (bool, error) {
	if err := b.initialized(); err != nil {
		return false, err
	}
	if pin < 0 {
		return false, fmt.Errorf("board: invalid pin %d", pin)
	}
	ps := b.pinFor(pin)
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if enable {
		if err := b.backend.ArmEdge(pin); err != nil {
			log.Printf("board: arm edge on pin %d: %v", pin, err)
			return false, nil
		}
		ps.armed = true
		return true, nil
	}
	if err := b.backend.DisarmEdge(pin); err != nil {
		log.Printf("board: disarm edge on pin %d: %v", pin, err)
		return false, nil
	}
	ps.armed = false
	return true, nil
}

// Monitored reports whether pin currently has edge detection armed.
func (b *Board) Monitored(pin int) bool {
	b.mu.Lock()
	ps := b.pins[pin]
	b.mu.Unlock()
	if ps == nil {
		return false
	}
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return ps.armed
}

// monitoredPins snapshots the armed pins in ascending order.
func (b *Board) monitoredPins() []int {
	b.mu.Lock()
	pins := make([]int, 0, len(b.pins))
	for n, ps := range b.pins {
		ps.mu.Lock()
		armed := ps.armed
		ps.mu.Unlock()
		if armed {
			pins = append(pins, n)
		}
	}
	b.mu.Unlock()
	sort.Ints(pins)
	return pins
}

// Shutdown disarms every monitored pin. Disarming can fail
// transiently, so it sweeps the remaining pins until the set drains
// instead of giving up on the first failure. Run it before process
// exit; HandleSignals installs it for abrupt termination.
func (b *Board) Shutdown() {
	for {
		pins := b.monitoredPins()
		if len(pins) == 0 {
			return
		}
		progress := false
		for _, p := range pins {
			if ok, err := b.Monitor(p, false); err != nil {
				return
			} else if ok {
				progress = true
			}
		}
		if !progress {
			time.Sleep(10 * time.Millisecond)
		}
	}
}

// HandleSignals runs Shutdown when the process receives SIGINT or
// SIGTERM, then re-raises the signal with its default action so the
// board is never left mid-transaction by a ^C.
func (b *Board) HandleSignals() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-c
		b.Shutdown()
		signal.Stop(c)
		if p, err := os.FindProcess(os.Getpid()); err == nil {
			_ = p.Signal(sig)
		}
	}()
}

// Subscribe registers fn under key. A later Subscribe with the same
// key replaces the earlier listener. The key is returned.
func (b *Board) Subscribe(key string, fn Listener) string {
	b.lmu.Lock()
	defer b.lmu.Unlock()
	b.listeners[key] = fn
	return key
}

// Unsubscribe removes the listener registered under key, if any. The
// key is returned.
func (b *Board) Unsubscribe(key string) string {
	b.lmu.Lock()
	defer b.lmu.Unlock()
	delete(b.listeners, key)
	return key
}

// dispatch fans one edge event out to every listener registered at
// the time of the event, in key order. It runs on the backend's
// single delivery goroutine, so a slow listener delays the next
// event; events the kernel reports while a listener runs are queued
// or coalesced by the backend. Events for pins no longer monitored
// are dropped.
func (b *Board) dispatch(pin int, l gpio.Level) {
	if !b.Monitored(pin) {
		return
	}
	b.lmu.RLock()
	keys := make([]string, 0, len(b.listeners))
	fns := make(map[string]Listener, len(b.listeners))
	for k, fn := range b.listeners {
		keys = append(keys, k)
		fns[k] = fn
	}
	b.lmu.RUnlock()
	sort.Strings(keys)
	for _, k := range keys {
		b.deliver(k, fns[k], pin, l)
	}
}

// deliver isolates one listener invocation: a panicking listener is
// logged and does not stop delivery to the others, nor does it unwind
// into the backend.
func (b *Board) deliver(key string, fn Listener, pin int, l gpio.Level) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("board: listener %q panicked on pin %d: %v", key, pin, r)
		}
	}()
	fn(pin, l)
}
