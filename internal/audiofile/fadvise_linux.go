//go:build linux

package audiofile

import (
	"os"

	"golang.org/x/sys/unix"
)

// adviseStreaming asks the kernel for aggressive read-ahead on the tape. The
// worker reads whole windows at a time, mostly in play direction.
func adviseStreaming(f *os.File) error {
	return unix.Fadvise(int(f.Fd()), 0, 0, unix.FADV_SEQUENTIAL)
}
