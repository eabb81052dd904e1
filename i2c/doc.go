// Copyright 2026 The Wiring Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package i2c provides serialized sessions against I2C buses.
//
// A Bus wraps one open device file and owns it exclusively: every
// read and write submitted to the bus, from any goroutine, is queued
// and executed by a single worker in strict submission order. A
// submission returns immediately with a Pending handle; waiting on it
// blocks only the waiter, never the worker. Closing a bus drains the
// queue, releases the device file last, and rejects everything
// submitted afterwards with ErrClosed.
//
// Buses are independent of each other and may execute concurrently.
package i2c
