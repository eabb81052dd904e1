// Copyright 2026 The Wiring Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package board

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
)

// Watch a pin and print its transitions. A real program would use the
// sysfs or rpi backend instead of the test fake.
func ExampleBoard_Subscribe() {
	be := newFakeBackend()
	b := New(be)
	b.privileged = func() bool { return true }
	if _, err := b.Init(Sys); err != nil {
		fmt.Println(err)
		return
	}
	b.Subscribe("logger", func(pin int, l gpio.Level) {
		fmt.Printf("pin %d -> %s\n", pin, l)
	})
	if ok, _ := b.Monitor(2, true); ok {
		be.fire(2, gpio.High)
		be.fire(2, gpio.Low)
	}
	b.Shutdown()
	// Output:
	// pin 2 -> High
	// pin 2 -> Low
}
