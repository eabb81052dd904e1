// Copyright 2026 The Wiring Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package board

import (
	"errors"
	"sync"
	"testing"

	"periph.io/x/conn/v3/gpio"
)

// fakeBackend records every call and can be told to fail arms and
// disarms, so the registry logic is testable without a board.
type fakeBackend struct {
	mu             sync.Mutex
	setups         int
	handler        func(int, gpio.Level)
	armCalls       int
	disarmCalls    int
	armErr         error
	disarmFailures map[int]int // remaining induced failures per pin
	writes         map[int]gpio.Level
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		disarmFailures: map[int]int{},
		writes:         map[int]gpio.Level{},
	}
}

func (f *fakeBackend) Setup(s Scheme) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setups++
	return nil
}

func (f *fakeBackend) PinMode(pin int, m Mode) error { return nil }

func (f *fakeBackend) DigitalRead(pin int) (gpio.Level, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes[pin], nil
}

func (f *fakeBackend) DigitalWrite(pin int, l gpio.Level) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes[pin] = l
	return nil
}

func (f *fakeBackend) AnalogRead(pin int) (int, error)      { return 0, nil }
func (f *fakeBackend) AnalogWrite(pin int, value int) error { return nil }
func (f *fakeBackend) PWMWrite(pin int, value int) error    { return nil }
func (f *fakeBackend) ClockWrite(pin int, hz int) error     { return nil }

func (f *fakeBackend) ArmEdge(pin int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.armCalls++
	return f.armErr
}

func (f *fakeBackend) DisarmEdge(pin int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disarmCalls++
	if n := f.disarmFailures[pin]; n > 0 {
		f.disarmFailures[pin] = n - 1
		return errors.New("edge detect busy")
	}
	return nil
}

func (f *fakeBackend) SetEdgeHandler(h func(int, gpio.Level)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handler = h
}

// fire simulates the native interrupt delivery goroutine reporting a
// pin transition.
func (f *fakeBackend) fire(pin int, l gpio.Level) {
	f.mu.Lock()
	h := f.handler
	f.mu.Unlock()
	if h != nil {
		h(pin, l)
	}
}

func newTestBoard() (*Board, *fakeBackend) {
	fb := newFakeBackend()
	b := New(fb)
	b.privileged = func() bool { return true }
	return b, fb
}

func TestInitOnceUnderConcurrency(t *testing.T) {
	b, fb := newTestBoard()
	const callers = 32
	results := make([]Scheme, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s := Sys
			if i%2 == 0 {
				s = Broadcom
			}
			got, err := b.Init(s)
			if err != nil {
				t.Errorf("Init(%s): %v", s, err)
			}
			results[i] = got
		}(i)
	}
	wg.Wait()
	if fb.setups != 1 {
		t.Fatalf("backend setup ran %d times, want 1", fb.setups)
	}
	for i := 1; i < callers; i++ {
		if results[i] != results[0] {
			t.Fatalf("caller %d observed %s, caller 0 observed %s", i, results[i], results[0])
		}
	}
	if s, ok := b.Scheme(); !ok || s != results[0] {
		t.Fatalf("Scheme() = %s, %t; want %s, true", s, ok, results[0])
	}
}

func TestInitIsIdempotent(t *testing.T) {
	b, fb := newTestBoard()
	if s, err := b.Init(Sys); err != nil || s != Sys {
		t.Fatalf("Init(Sys) = %s, %v", s, err)
	}
	// A different scheme after the claim is a no-op that reports the
	// active one.
	if s, err := b.Init(Broadcom); err != nil || s != Sys {
		t.Fatalf("Init(Broadcom) after claim = %s, %v; want Sys, nil", s, err)
	}
	if fb.setups != 1 {
		t.Fatalf("backend setup ran %d times, want 1", fb.setups)
	}
}

func TestPrivilegeCheckedBeforeClaim(t *testing.T) {
	b, fb := newTestBoard()
	b.privileged = func() bool { return false }
	for _, s := range []Scheme{WiringPi, Broadcom} {
		_, err := b.Init(s)
		var pe *PrivilegeError
		if !errors.As(err, &pe) {
			t.Fatalf("Init(%s) = %v, want PrivilegeError", s, err)
		}
		if pe.Scheme != s {
			t.Fatalf("PrivilegeError.Scheme = %s, want %s", pe.Scheme, s)
		}
	}
	if _, ok := b.Scheme(); ok {
		t.Fatal("refused Init still claimed the scheme")
	}
	if fb.setups != 0 {
		t.Fatalf("backend setup ran %d times before privilege check, want 0", fb.setups)
	}
	// The gate is intact: an unprivileged scheme still initializes.
	if s, err := b.Init(Sys); err != nil || s != Sys {
		t.Fatalf("Init(Sys) after refusal = %s, %v", s, err)
	}
}

func TestOperationsBeforeInit(t *testing.T) {
	b, _ := newTestBoard()
	if err := b.PinMode(1, Output); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("PinMode: %v, want ErrNotInitialized", err)
	}
	if _, err := b.DigitalRead(1); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("DigitalRead: %v, want ErrNotInitialized", err)
	}
	if err := b.DigitalWrite(1, gpio.High); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("DigitalWrite: %v, want ErrNotInitialized", err)
	}
	if err := b.PWMWrite(1, 512); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("PWMWrite: %v, want ErrNotInitialized", err)
	}
	if _, err := b.Monitor(1, true); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Monitor: %v, want ErrNotInitialized", err)
	}
}

func TestPinForwarding(t *testing.T) {
	b, fb := newTestBoard()
	if _, err := b.Init(Sys); err != nil {
		t.Fatal(err)
	}
	if err := b.DigitalWrite(7, gpio.High); err != nil {
		t.Fatal(err)
	}
	if l, err := b.DigitalRead(7); err != nil || l != gpio.High {
		t.Fatalf("DigitalRead(7) = %s, %v; want High, nil", l, err)
	}
	if fb.writes[7] != gpio.High {
		t.Fatal("write did not reach the backend")
	}
}

func TestMonitorMembership(t *testing.T) {
	b, fb := newTestBoard()
	if _, err := b.Init(Sys); err != nil {
		t.Fatal(err)
	}
	if ok, err := b.Monitor(4, true); err != nil || !ok {
		t.Fatalf("Monitor(4, true) = %t, %v", ok, err)
	}
	// Arming an armed pin re-issues the native call and keeps a
	// single membership.
	if ok, err := b.Monitor(4, true); err != nil || !ok {
		t.Fatalf("second Monitor(4, true) = %t, %v", ok, err)
	}
	if got := b.monitoredPins(); len(got) != 1 || got[0] != 4 {
		t.Fatalf("monitored = %v, want [4]", got)
	}
	if fb.armCalls != 2 {
		t.Fatalf("arm calls = %d, want 2", fb.armCalls)
	}
	if ok, err := b.Monitor(4, false); err != nil || !ok {
		t.Fatalf("Monitor(4, false) = %t, %v", ok, err)
	}
	if b.Monitored(4) {
		t.Fatal("pin 4 still monitored after disarm")
	}
}

func TestMonitorNativeFailure(t *testing.T) {
	b, fb := newTestBoard()
	if _, err := b.Init(Sys); err != nil {
		t.Fatal(err)
	}
	fb.armErr = errors.New("edge detect unavailable")
	ok, err := b.Monitor(9, true)
	if err != nil {
		t.Fatalf("native failure must not surface as an error: %v", err)
	}
	if ok || b.Monitored(9) {
		t.Fatal("failed arm must leave the monitored set unchanged")
	}
}

func TestListenerDelivery(t *testing.T) {
	b, fb := newTestBoard()
	if _, err := b.Init(Sys); err != nil {
		t.Fatal(err)
	}
	var mu sync.Mutex
	var got []gpio.Level
	b.Subscribe(":sync", func(pin int, l gpio.Level) {
		mu.Lock()
		defer mu.Unlock()
		if pin == 2 {
			got = append(got, l)
		}
	})
	if ok, _ := b.Monitor(2, true); !ok {
		t.Fatal("arm failed")
	}
	fb.fire(2, gpio.High)
	mu.Lock()
	n := len(got)
	mu.Unlock()
	if n != 1 || got[0] != gpio.High {
		t.Fatalf("listener saw %v, want one High event", got)
	}

	b.Unsubscribe(":sync")
	fb.fire(2, gpio.Low)
	mu.Lock()
	n = len(got)
	mu.Unlock()
	if n != 1 {
		t.Fatalf("listener invoked after Unsubscribe, saw %d events", n)
	}
}

func TestEventsForUnmonitoredPinDropped(t *testing.T) {
	b, fb := newTestBoard()
	if _, err := b.Init(Sys); err != nil {
		t.Fatal(err)
	}
	fired := 0
	b.Subscribe("count", func(pin int, l gpio.Level) { fired++ })
	if ok, _ := b.Monitor(3, true); !ok {
		t.Fatal("arm failed")
	}
	if ok, _ := b.Monitor(3, false); !ok {
		t.Fatal("disarm failed")
	}
	fb.fire(3, gpio.High)
	if fired != 0 {
		t.Fatalf("event delivered for a disarmed pin, %d invocations", fired)
	}
}

func TestDispatchOrderAndIsolation(t *testing.T) {
	b, fb := newTestBoard()
	if _, err := b.Init(Sys); err != nil {
		t.Fatal(err)
	}
	var order []string
	b.Subscribe("a", func(pin int, l gpio.Level) {
		order = append(order, "a")
		panic("listener a is broken")
	})
	b.Subscribe("b", func(pin int, l gpio.Level) {
		order = append(order, "b")
	})
	if ok, _ := b.Monitor(1, true); !ok {
		t.Fatal("arm failed")
	}
	fb.fire(1, gpio.High)
	if len(order) != 2 || order[0] != "a" || order[1] != "b" {
		t.Fatalf("dispatch order = %v, want [a b]", order)
	}
}

func TestConcurrentTogglesOnDistinctPins(t *testing.T) {
	b, _ := newTestBoard()
	if _, err := b.Init(Sys); err != nil {
		t.Fatal(err)
	}
	var wg sync.WaitGroup
	for pin := 0; pin < 50; pin++ {
		wg.Add(1)
		go func(pin int) {
			defer wg.Done()
			if ok, err := b.Monitor(pin, true); err != nil || !ok {
				t.Errorf("Monitor(%d, true) = %t, %v", pin, ok, err)
			}
		}(pin)
	}
	wg.Wait()
	if got := b.monitoredPins(); len(got) != 50 {
		t.Fatalf("monitored %d pins, want 50", len(got))
	}
}

func TestShutdownRetriesUntilDrained(t *testing.T) {
	b, fb := newTestBoard()
	if _, err := b.Init(Sys); err != nil {
		t.Fatal(err)
	}
	for _, pin := range []int{1, 2, 3} {
		if ok, _ := b.Monitor(pin, true); !ok {
			t.Fatalf("arm %d failed", pin)
		}
	}
	// Pin 2 refuses its first disarm; Shutdown must come back for it.
	fb.mu.Lock()
	fb.disarmFailures[2] = 1
	fb.mu.Unlock()
	b.Shutdown()
	if got := b.monitoredPins(); len(got) != 0 {
		t.Fatalf("pins still monitored after Shutdown: %v", got)
	}
	if fb.disarmCalls < 4 {
		t.Fatalf("disarm calls = %d, want at least 4 (3 pins + 1 retry)", fb.disarmCalls)
	}
}
