// Copyright 2026 The Wiring Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

//go:build linux

package sysfs

import (
	"bytes"
	"testing"

	"github.com/sbc-io/wiring/i2c"
)

func TestWriteFrame(t *testing.T) {
	cases := []struct {
		name string
		reg  int
		p    []byte
		want []byte
	}{
		{"no register", i2c.NoReg, []byte{0x22}, []byte{0x22}},
		{"register preamble", 0x10, []byte{0xAC, 0x0C}, []byte{0x10, 0xAC, 0x0C}},
		{"register only", 0x07, nil, []byte{0x07}},
	}
	for _, c := range cases {
		if got := writeFrame(c.reg, c.p); !bytes.Equal(got, c.want) {
			t.Errorf("%s: writeFrame(%d, %x) = %x, want %x", c.name, c.reg, c.p, got, c.want)
		}
	}
}
