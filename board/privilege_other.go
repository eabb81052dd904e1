// Copyright 2026 The Wiring Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

//go:build !linux

package board

import "os"

// Without the capability API only root qualifies.
func hasRawIO() bool {
	return os.Geteuid() == 0
}
