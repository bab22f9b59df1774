//go:build !windows

package engine

import (
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
)

// ipcAddress creates a randomized socket path (prevents symlink attacks).
// The returned cleanup removes its directory.
func ipcAddress() (string, func(), error) {
	dir, err := os.MkdirTemp("", "hydra-mpv-*")
	if err != nil {
		return "", nil, fmt.Errorf("creating temp dir for mpv socket: %w", err)
	}
	return filepath.Join(dir, "socket"), func() { os.RemoveAll(dir) }, nil
}

func dialIPC(addr string) (io.ReadWriteCloser, error) {
	return net.Dial("unix", addr)
}
