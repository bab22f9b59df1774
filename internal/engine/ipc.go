package engine

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"
)

// ipcMessage is one line received from mpv: either a reply to a request
// (RequestID > 0) or an asynchronous event.
type ipcMessage struct {
	RequestID int64           `json:"request_id"`
	Error     string          `json:"error"`
	Data      json.RawMessage `json:"data"`
	Event     string          `json:"event"`
	Reason    string          `json:"reason"`
	FileError string          `json:"file_error"`
}

type ipcRequest struct {
	Command   []interface{} `json:"command"`
	RequestID int64         `json:"request_id"`
}

// ipcClient speaks mpv's JSON IPC protocol over a socket or named pipe.
// Requests are matched to replies by request_id; a reader goroutine owns
// the read side and hands events to onEvent.
type ipcClient struct {
	conn    io.ReadWriteCloser
	timeout time.Duration
	onEvent func(ipcMessage)

	writeMu sync.Mutex

	mu      sync.Mutex
	nextID  int64
	pending map[int64]chan ipcMessage
	err     error

	done chan struct{}
}

func newIPCClient(conn io.ReadWriteCloser, timeout time.Duration, onEvent func(ipcMessage)) *ipcClient {
	c := &ipcClient{
		conn:    conn,
		timeout: timeout,
		onEvent: onEvent,
		pending: make(map[int64]chan ipcMessage),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c
}

func (c *ipcClient) readLoop() {
	decoder := json.NewDecoder(c.conn)
	for {
		var msg ipcMessage
		if err := decoder.Decode(&msg); err != nil {
			c.mu.Lock()
			c.err = fmt.Errorf("%w: %v", ErrNotRunning, err)
			c.mu.Unlock()
			close(c.done)
			return
		}

		if msg.RequestID == 0 {
			if msg.Event != "" && c.onEvent != nil {
				c.onEvent(msg)
			}
			continue
		}

		c.mu.Lock()
		ch, ok := c.pending[msg.RequestID]
		delete(c.pending, msg.RequestID)
		c.mu.Unlock()
		if ok {
			ch <- msg
		}
	}
}

// command sends one request and waits for its reply.
func (c *ipcClient) command(args ...interface{}) (json.RawMessage, error) {
	c.mu.Lock()
	if c.err != nil {
		err := c.err
		c.mu.Unlock()
		return nil, err
	}
	c.nextID++
	id := c.nextID
	ch := make(chan ipcMessage, 1)
	c.pending[id] = ch
	c.mu.Unlock()

	data, err := json.Marshal(ipcRequest{Command: args, RequestID: id})
	if err != nil {
		c.forget(id)
		return nil, fmt.Errorf("encoding mpv command: %w", err)
	}
	data = append(data, '\n')

	c.writeMu.Lock()
	_, err = c.conn.Write(data)
	c.writeMu.Unlock()
	if err != nil {
		c.forget(id)
		return nil, fmt.Errorf("%w: %v", ErrNotRunning, err)
	}

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case reply := <-ch:
		if reply.Error != "" && reply.Error != "success" {
			return nil, fmt.Errorf("mpv %v: %s", args[0], reply.Error)
		}
		return reply.Data, nil
	case <-timer.C:
		c.forget(id)
		return nil, fmt.Errorf("mpv %v: %w", args[0], ErrTimeout)
	case <-c.done:
		c.forget(id)
		c.mu.Lock()
		defer c.mu.Unlock()
		return nil, c.err
	}
}

func (c *ipcClient) forget(id int64) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

func (c *ipcClient) get(name string, v interface{}) error {
	data, err := c.command("get_property", name)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding %s: %w", name, err)
	}
	return nil
}

func (c *ipcClient) getFloat(name string) (float64, error) {
	var v float64
	err := c.get(name, &v)
	return v, err
}

func (c *ipcClient) getBool(name string) (bool, error) {
	var v bool
	err := c.get(name, &v)
	return v, err
}

func (c *ipcClient) getString(name string) (string, error) {
	var v string
	err := c.get(name, &v)
	return v, err
}

func (c *ipcClient) set(name string, value interface{}) error {
	_, err := c.command("set_property", name, value)
	return err
}

// Close closes the connection; the reader exits on the resulting error.
func (c *ipcClient) Close() error {
	return c.conn.Close()
}
