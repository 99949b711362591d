// Copyright (c) 2026 the sqlit authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package worker

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/the-vampiire/sqlit-sub003/internal/errors"
)

// Channel frames JSON messages as lines over a byte stream. Send is safe for
// concurrent use; Poll and Recv must be driven by a single goroutine.
type Channel struct {
	w      io.Writer
	sendMu sync.Mutex

	lines   chan []byte
	pending []byte
	eof     bool

	stop     chan struct{}
	stopOnce sync.Once
}

// NewChannel wraps a reader and writer and starts the background reader.
func NewChannel(r io.Reader, w io.Writer) *Channel {
	c := &Channel{
		w:     w,
		lines: make(chan []byte, 64),
		stop:  make(chan struct{}),
	}
	go c.readLoop(r)
	return c
}

func (c *Channel) readLoop(r io.Reader) {
	defer close(c.lines)
	sc := bufio.NewScanner(r)
	// Large result sets serialize into long lines.
	sc.Buffer(make([]byte, 0, 64<<10), 64<<20)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		buf := make([]byte, len(line))
		copy(buf, line)
		select {
		case c.lines <- buf:
		case <-c.stop:
			return
		}
	}
}

// Poll reports whether a message is ready within the timeout. It returns
// false both on timeout and when the stream has closed; Closed tells the two
// apart.
func (c *Channel) Poll(timeout time.Duration) bool {
	if c.pending != nil {
		return true
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case line, ok := <-c.lines:
		if !ok {
			c.eof = true
			return false
		}
		c.pending = line
		return true
	case <-timer.C:
		return false
	}
}

// Closed reports whether the read side has reached end of stream.
func (c *Channel) Closed() bool { return c.eof }

// Recv returns the next message, blocking until one arrives or the stream
// closes.
func (c *Channel) Recv() ([]byte, error) {
	if c.pending != nil {
		line := c.pending
		c.pending = nil
		return line, nil
	}
	line, ok := <-c.lines
	if !ok {
		c.eof = true
		return nil, io.EOF
	}
	return line, nil
}

// Send marshals v and writes it as a single line.
func (c *Channel) Send(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(errors.WorkerTransport, "encode message", err)
	}
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if _, err := c.w.Write(append(data, '\n')); err != nil {
		return errors.Wrap(errors.WorkerTransport, "write message", err)
	}
	if f, ok := c.w.(interface{ Flush() error }); ok {
		if err := f.Flush(); err != nil {
			return errors.Wrap(errors.WorkerTransport, "flush message", err)
		}
	}
	return nil
}

// Close stops the background reader. It does not close the underlying
// streams; the owner of the process or pipes does that.
func (c *Channel) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}
