//go:build !linux

package audiofile

import "os"

func adviseStreaming(*os.File) error { return nil }
