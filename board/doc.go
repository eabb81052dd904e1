// Copyright 2026 The Wiring Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package board coordinates shared access to the GPIO pins of a
// single-board computer.
//
// A Board owns three pieces of process-wide state: the one-shot pin
// numbering scheme, the set of pins armed for edge detection, and the
// named listeners that receive edge events. Everything else is plain
// forwarding to the Backend that talks to the hardware.
//
// A Board must be initialized with Init before any pin operation;
// operations issued earlier fail with ErrNotInitialized rather than
// silently picking a scheme. The WiringPi and Broadcom schemes map SoC
// registers through /dev/mem and are refused up front when the process
// lacks the privilege to do so.
package board
