//go:build linux

package process

import (
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// pipeBufferSize is the buffer size requested for a subprocess's stdout
// pipe via F_SETPIPE_SZ. Larger than the kernel default (64KiB) so a
// bursty child can write a handful of MessagePack frames without blocking
// on a slow-reading parent.
const pipeBufferSize = 1 << 20 // 1MiB

// tunePipeBuffer raises a subprocess stdout pipe's kernel buffer size on
// Linux, the platform-specific tuning the core's external-interfaces
// section allows auxiliary transports to perform. Best-effort: failure
// (e.g. sandboxed environment denying fcntl) is not fatal.
func tunePipeBuffer(r io.ReadCloser) {
	f, ok := r.(*os.File)
	if !ok {
		return
	}
	_, _ = unix.FcntlInt(f.Fd(), unix.F_SETPIPE_SZ, pipeBufferSize)
}
