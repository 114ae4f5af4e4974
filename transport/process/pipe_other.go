//go:build !linux

package process

import "io"

// tunePipeBuffer is a no-op on platforms without F_SETPIPE_SZ.
func tunePipeBuffer(io.ReadCloser) {}
