// Copyright 2026 The Wiring Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

//go:build linux

package board

import (
	"os"

	"kernel.org/pub/linux/libs/security/libcap/cap"
)

// hasRawIO reports whether the process may map device memory: either
// running as root, or granted CAP_SYS_RAWIO (for example via
// setcap on the binary).
func hasRawIO() bool {
	if os.Geteuid() == 0 {
		return true
	}
	ok, err := cap.GetProc().GetFlag(cap.Effective, cap.SYS_RAWIO)
	if err != nil {
		return false
	}
	return ok
}
