// Copyright 2026 The Wiring Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package i2c

import (
	"fmt"
	"sync"

	"periph.io/x/conn/v3/physic"
)

// Result of one executed operation.
type Result struct {
	// Data holds the bytes transferred by a Read, exactly as many as
	// were asked for. nil for writes and failed reads.
	Data []byte
	// Unapplied is the suffix of a WriteSeq starting at the first
	// payload the device rejected. nil when every payload was
	// written.
	Unapplied [][]byte
	// Err is nil on success, wraps ErrPartialWrite for a stopped
	// WriteSeq, and carries the native failure otherwise.
	Err error
}

// Pending is the completion slot for one submitted operation. It is
// resolved exactly once, after every earlier submission on the same
// bus has completed. A Pending may be discarded without waiting.
type Pending struct {
	run   func() Result
	final bool
	done  chan struct{}
	res   Result
}

// Done returns a channel that is closed once the operation has
// executed, for use in select statements.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the operation has executed and returns its
// result. Only the waiter blocks, never the bus worker.
func (p *Pending) Wait() Result {
	<-p.done
	return p.res
}

// Bus serializes every transaction against one I2C device file. All
// submissions, from any goroutine, are appended to a FIFO queue and
// executed one at a time by a single worker goroutine that owns the
// device handle exclusively.
type Bus struct {
	path string
	dev  Device

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []*Pending
	closed bool
}

// Open opens the device file at path with open and starts the bus
// worker. A native open failure is returned as-is; no Bus exists
// afterwards.
func Open(path string, open Opener) (*Bus, error) {
	dev, err := open(path)
	if err != nil {
		return nil, fmt.Errorf("i2c: open %s: %w", path, err)
	}
	b := &Bus{path: path, dev: dev}
	b.cond = sync.NewCond(&b.mu)
	go b.run()
	return b, nil
}

// Path returns the device path the bus was opened on.
func (b *Bus) Path() string {
	return b.path
}

func (b *Bus) String() string {
	return "i2c(" + b.path + ")"
}

// submit queues run behind everything already submitted. It never
// blocks: the queue is unbounded, so the only wait a caller can
// experience is the one it opts into on the returned Pending.
func (b *Bus) submit(run func() Result) (*Pending, error) {
	p := &Pending{run: run, done: make(chan struct{})}
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, ErrClosed
	}
	b.queue = append(b.queue, p)
	b.mu.Unlock()
	b.cond.Signal()
	return p, nil
}

// run is the bus worker. It exits after executing the final operation
// queued by Close.
func (b *Bus) run() {
	for {
		b.mu.Lock()
		for len(b.queue) == 0 {
			b.cond.Wait()
		}
		p := b.queue[0]
		b.queue = b.queue[1:]
		b.mu.Unlock()
		p.res = p.run()
		close(p.done)
		if p.final {
			return
		}
	}
}

// Write queues a write of data to the slave at addr, all bytes in one
// native transaction. reg, when not NoReg, addresses the target
// register.
func (b *Bus) Write(addr uint16, reg int, data ...byte) (*Pending, error) {
	buf := append([]byte(nil), data...)
	return b.submit(func() Result {
		if err := b.dev.Write(addr, reg, buf); err != nil {
			return Result{Err: fmt.Errorf("i2c: write %#02x: %w", addr, err)}
		}
		return Result{}
	})
}

// WriteSeq queues payloads to be written one native transaction at a
// time, in order, stopping at the first payload the device rejects.
// The result's Unapplied field is the suffix starting at that
// payload, so the caller sees exactly what did not get applied; a
// fully applied sequence has a nil Unapplied and a nil Err.
func (b *Bus) WriteSeq(addr uint16, reg int, payloads ...[]byte) (*Pending, error) {
	seq := make([][]byte, len(payloads))
	for i, p := range payloads {
		seq[i] = append([]byte(nil), p...)
	}
	return b.submit(func() Result {
		for i, p := range seq {
			if err := b.dev.Write(addr, reg, p); err != nil {
				return Result{
					Unapplied: seq[i:],
					Err:       fmt.Errorf("%w: payload %d to %#02x: %v", ErrPartialWrite, i, addr, err),
				}
			}
		}
		return Result{}
	})
}

// Read queues a read of n bytes from the slave at addr. reg, when not
// NoReg, selects the register to read from. A short or failing native
// read fails the operation as a whole; no partial data is surfaced.
func (b *Bus) Read(addr uint16, reg int, n int) (*Pending, error) {
	return b.submit(func() Result {
		buf := make([]byte, n)
		if err := b.dev.Read(addr, reg, buf); err != nil {
			return Result{Err: fmt.Errorf("i2c: read %#02x: %w", addr, err)}
		}
		return Result{Data: buf}
	})
}

// SetSpeed queues a bus clock change, on devices that support one.
func (b *Bus) SetSpeed(f physic.Frequency) (*Pending, error) {
	return b.submit(func() Result {
		s, ok := b.dev.(Speeder)
		if !ok {
			return Result{Err: fmt.Errorf("i2c: %s does not support changing the bus speed", b.path)}
		}
		if err := s.SetSpeed(f); err != nil {
			return Result{Err: fmt.Errorf("i2c: set speed %s: %w", f, err)}
		}
		return Result{}
	})
}

// Close rejects all further submissions and queues the release of the
// device file behind everything already submitted. Operations queued
// before Close still run to completion; the returned Pending resolves
// once the native close itself has executed, last in the queue.
//
// A second Close returns ErrClosed.
func (b *Bus) Close() (*Pending, error) {
	p := &Pending{final: true, done: make(chan struct{})}
	p.run = func() Result {
		if err := b.dev.Close(); err != nil {
			return Result{Err: fmt.Errorf("i2c: close %s: %w", b.path, err)}
		}
		return Result{}
	}
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, ErrClosed
	}
	b.closed = true
	b.queue = append(b.queue, p)
	b.mu.Unlock()
	b.cond.Signal()
	return p, nil
}
