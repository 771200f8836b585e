package session

import "os"

func writeGarbage(path string) error {
	return os.WriteFile(path, []byte("RIFF\x04\x00\x00\x00WAVEnot really a wave file"), 0o600)
}
