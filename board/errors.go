// Copyright 2026 The Wiring Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package board

import (
	"errors"
	"fmt"
)

// ErrNotInitialized is returned by every pin operation issued before
// Init has claimed a scheme. It is an ordinary, recoverable error;
// call Init and retry.
var ErrNotInitialized = errors.New("board: not initialized, call Init first")

// PrivilegeError reports an attempt to claim a memory-mapped scheme
// without the privilege to map /dev/mem. It is raised before any
// hardware call and before the scheme is claimed. There is no way to
// recover inside the process; treat it as fatal at startup.
type PrivilegeError struct {
	Scheme Scheme
}

func (e *PrivilegeError) Error() string {
	return fmt.Sprintf("board: scheme %s requires root or CAP_SYS_RAWIO", e.Scheme)
}
