//go:build windows

package engine

import (
	"io"
	"os"

	"github.com/google/uuid"
)

// ipcAddress returns a unique named pipe path. Pipes vanish with the
// server, so there is nothing to clean up.
func ipcAddress() (string, func(), error) {
	return `\\.\pipe\hydra-mpv-` + uuid.NewString(), func() {}, nil
}

// dialIPC opens the named pipe mpv created. Pipes open like regular files.
func dialIPC(addr string) (io.ReadWriteCloser, error) {
	return os.OpenFile(addr, os.O_RDWR, 0)
}
