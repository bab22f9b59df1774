// Package logging routes diagnostic output to a log file.
// The terminal belongs to the TUI while it runs, so nothing is written to
// stderr unless Setup is never called.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

var logger = newLogger(io.Discard)

func newLogger(w io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetFormatter(&logrus.TextFormatter{DisableColors: true, FullTimestamp: true})
	l.SetLevel(logrus.InfoLevel)
	return l
}

// Setup opens path for appending and directs all logging there.
// The returned closer releases the file.
func Setup(path string, debug bool) (io.Closer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}

	logger.SetOutput(f)
	if debug {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}
	return f, nil
}

// SetOutput replaces the destination, mostly for tests.
func SetOutput(w io.Writer) {
	logger.SetOutput(w)
}

// L returns the shared logger.
func L() *logrus.Logger {
	return logger
}

// WithComponent returns an entry tagged with the emitting subsystem.
func WithComponent(name string) *logrus.Entry {
	return logger.WithField("component", name)
}

// Writer returns a pipe that logs each line at debug level under the given
// component. Used for engine process stdout/stderr.
func Writer(component string) *io.PipeWriter {
	return WithComponent(component).WriterLevel(logrus.DebugLevel)
}
