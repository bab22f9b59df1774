package engine

import (
	"fmt"
	"io"
	"os/exec"
	"time"

	"hydra/internal/logging"
)

// process is a child engine process whose output is piped into the log.
type process struct {
	cmd    *exec.Cmd
	out    *io.PipeWriter
	exited chan struct{}
	err    error
}

func startProcess(name, binary string, args []string) (*process, error) {
	out := logging.Writer(name)

	cmd := exec.Command(binary, args...)
	cmd.Stdout = out
	cmd.Stderr = out

	if err := cmd.Start(); err != nil {
		out.Close()
		return nil, fmt.Errorf("starting %s: %w", name, err)
	}
	logging.WithComponent(name).WithField("pid", cmd.Process.Pid).Debug("engine process started")

	p := &process{cmd: cmd, out: out, exited: make(chan struct{})}
	go func() {
		p.err = cmd.Wait()
		out.Close()
		close(p.exited)
	}()
	return p, nil
}

// running reports whether the process has not exited yet.
func (p *process) running() bool {
	select {
	case <-p.exited:
		return false
	default:
		return true
	}
}

// dial retries connect until it succeeds, the process exits, or about
// five seconds pass.
func (p *process) dial(connect func() (io.ReadWriteCloser, error)) (io.ReadWriteCloser, error) {
	var lastErr error
	for i := 0; i < 50; i++ {
		conn, err := connect()
		if err == nil {
			return conn, nil
		}
		lastErr = err
		if !p.running() {
			return nil, fmt.Errorf("%w: process exited: %v", ErrNotRunning, p.err)
		}
		time.Sleep(100 * time.Millisecond)
	}
	return nil, fmt.Errorf("connecting to engine: %w", lastErr)
}

// wait gives the process grace to exit on its own, then kills it.
func (p *process) wait(grace time.Duration) {
	select {
	case <-p.exited:
	case <-time.After(grace):
		p.cmd.Process.Kill()
		<-p.exited
	}
}
