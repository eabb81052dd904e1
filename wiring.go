// Copyright 2026 The Wiring Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

//go:build linux

// Package wiring ties the pieces together for the common case: it
// picks the backend matching the requested numbering scheme and owns
// the process-default board.
//
// Programs that need independent instances, or want to supply their
// own backend, use the board and i2c packages directly.
package wiring

import (
	"sync"

	"github.com/sbc-io/wiring/board"
	"github.com/sbc-io/wiring/i2c"
	"github.com/sbc-io/wiring/rpi"
	"github.com/sbc-io/wiring/sysfs"
)

var (
	mu       sync.Mutex
	def      *board.Board
	defSysfs bool
	hookOnce sync.Once
)

// Init initializes the process-default board for the scheme: the
// memory-mapped rpi backend for WiringPi and Broadcom, the sysfs
// backend for Sys. Idempotent; every caller observes the scheme the
// first successful caller claimed. The shutdown signal hook is
// installed on first success.
func Init(s board.Scheme) (board.Scheme, error) {
	b := defaultBoard(s)
	active, err := b.Init(s)
	if err == nil {
		hookOnce.Do(b.HandleSignals)
	}
	return active, err
}

// defaultBoard returns the process-default board, building it with
// the backend matching s. While no scheme has been claimed yet a
// mismatched backend from an earlier failed Init is swapped out;
// after a claim the board is settled for the life of the process.
func defaultBoard(s board.Scheme) *board.Board {
	mu.Lock()
	defer mu.Unlock()
	wantSysfs := s == board.Sys
	if def != nil {
		if _, claimed := def.Scheme(); claimed || wantSysfs == defSysfs {
			return def
		}
	}
	var be board.Backend
	if wantSysfs {
		be = sysfs.New()
	} else {
		be = rpi.New()
	}
	def = board.New(be)
	defSysfs = wantSysfs
	return def
}

// Default returns the process-default board, or nil before Init.
func Default() *board.Board {
	mu.Lock()
	defer mu.Unlock()
	return def
}

// OpenI2C opens a serialized session on the /dev/i2c device at path.
func OpenI2C(path string) (*i2c.Bus, error) {
	return i2c.Open(path, sysfs.OpenI2C)
}
