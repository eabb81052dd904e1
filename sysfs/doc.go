// Copyright 2026 The Wiring Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package sysfs implements the hardware backend on top of the Linux
// sysfs GPIO class and /dev/i2c character devices.
//
// It is the unprivileged backend, serving the Sys scheme: every
// access goes through files that a udev rule can grant to a regular
// user. The trade-offs are the usual sysfs ones: no pull resistor
// control, no PWM, no analog, and value access is much slower than
// memory-mapped registers. Edge detection is real, delivered by the
// kernel through poll on the value files.
package sysfs
