// Copyright 2026 The Wiring Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package i2c

import "fmt"

// Issue a write and a register read against one bus and wait for the
// results. On Linux the opener would be sysfs.OpenI2C; here a test
// fake stands in for the device file.
func ExampleBus() {
	dev := &fakeDev{readData: []byte{0x12, 0x34}}
	bus, err := Open("/dev/i2c-1", func(string) (Device, error) { return dev, nil })
	if err != nil {
		fmt.Println(err)
		return
	}
	w, _ := bus.Write(0x48, NoReg, 0x22)
	r, _ := bus.Read(0x48, 0xAA, 2)
	fmt.Println("write ok:", w.Wait().Err == nil)
	fmt.Printf("read: %x\n", r.Wait().Data)
	c, _ := bus.Close()
	c.Wait()
	// Output:
	// write ok: true
	// read: 1234
}
