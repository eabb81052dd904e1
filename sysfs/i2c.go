// Copyright 2026 The Wiring Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

//go:build linux

package sysfs

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"

	"github.com/sbc-io/wiring/i2c"
)

// OpenI2C opens the /dev/i2c character device at path. It has the
// signature of an i2c.Opener; hand it to i2c.Open.
func OpenI2C(path string) (i2c.Device, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0600)
	if err != nil {
		return nil, err
	}
	return &i2cDev{f: f, addr: -1}, nil
}

// i2cSlave is the I2C_SLAVE ioctl request from <linux/i2c-dev.h>;
// golang.org/x/sys/unix does not export it.
const i2cSlave = 0x0703

// i2cDev talks to one /dev/i2c-N device file. It is owned exclusively
// by the bus worker, so no locking happens here; the slave address is
// only re-latched when a transaction targets a different one.
type i2cDev struct {
	f    *os.File
	addr int // last address latched with I2C_SLAVE, -1 initially
}

func (d *i2cDev) setAddr(addr uint16) error {
	if int(addr) == d.addr {
		return nil
	}
	if err := unix.IoctlSetInt(int(d.f.Fd()), i2cSlave, int(addr)); err != nil {
		return fmt.Errorf("sysfs-i2c: select %#02x: %w", addr, err)
	}
	d.addr = int(addr)
	return nil
}

// Write implements i2c.Device. The register byte, when any, and the
// payload go out as one transaction.
func (d *i2cDev) Write(addr uint16, reg int, p []byte) error {
	if err := d.setAddr(addr); err != nil {
		return err
	}
	frame := writeFrame(reg, p)
	n, err := d.f.Write(frame)
	if err != nil {
		return err
	}
	if n != len(frame) {
		return io.ErrShortWrite
	}
	return nil
}

// Read implements i2c.Device. A register read is a write cycle with
// the register number followed by the read; either leg failing fails
// the operation as a whole.
func (d *i2cDev) Read(addr uint16, reg int, p []byte) error {
	if err := d.setAddr(addr); err != nil {
		return err
	}
	if reg != i2c.NoReg {
		if _, err := d.f.Write([]byte{byte(reg)}); err != nil {
			return err
		}
	}
	_, err := io.ReadFull(d.f, p)
	return err
}

func (d *i2cDev) Close() error {
	return d.f.Close()
}

// writeFrame lays out one write transaction: the register byte, when
// any, followed by the payload.
func writeFrame(reg int, p []byte) []byte {
	if reg == i2c.NoReg {
		return p
	}
	frame := make([]byte, 0, len(p)+1)
	frame = append(frame, byte(reg))
	return append(frame, p...)
}

var _ i2c.Device = &i2cDev{}
