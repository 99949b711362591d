// Copyright (c) 2026 the sqlit authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/the-vampiire/sqlit-sub003/internal/config"
	"github.com/the-vampiire/sqlit-sub003/internal/errors"
	"github.com/the-vampiire/sqlit-sub003/internal/provider"
	"github.com/the-vampiire/sqlit-sub003/internal/query"
)

// ExecResult is the host-side outcome of one worker execution.
type ExecResult struct {
	Result  query.Result
	Elapsed time.Duration
}

// Client is the host side of the worker channel. It assigns request ids,
// routes responses back to the callers waiting on them, and translates wire
// errors into typed ones. Safe for concurrent use.
type Client struct {
	ch   *Channel
	stop func() error

	nextID atomic.Int64

	mu      sync.Mutex
	pending map[int64]chan Response
	closed  bool

	closeOnce sync.Once
	closeErr  error
}

// NewClient wraps an established channel. stop, if non-nil, is invoked by
// Close after the shutdown request is sent; Spawn uses it to reap the child
// process.
func NewClient(ch *Channel, stop func() error) *Client {
	c := &Client{
		ch:      ch,
		stop:    stop,
		pending: make(map[int64]chan Response),
	}
	go c.receiveLoop()
	return c
}

// Spawn starts a worker child running our own binary with the given
// arguments (default: "worker") and returns a client over its stdio.
func Spawn(args ...string) (*Client, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, errors.Wrap(errors.WorkerStartFailed, "locate executable", err)
	}
	if len(args) == 0 {
		args = []string{"worker"}
	}
	cmd := exec.Command(exe, args...)
	cmd.Stderr = os.Stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, errors.Wrap(errors.WorkerStartFailed, "open stdin pipe", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.Wrap(errors.WorkerStartFailed, "open stdout pipe", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, errors.Wrap(errors.WorkerStartFailed, "start worker", err)
	}

	stop := func() error {
		_ = stdin.Close()
		done := make(chan error, 1)
		go func() { done <- cmd.Wait() }()
		select {
		case err := <-done:
			return err
		case <-time.After(3 * time.Second):
			_ = cmd.Process.Kill()
			return <-done
		}
	}
	return NewClient(NewChannel(stdout, stdin), stop), nil
}

func (c *Client) receiveLoop() {
	for {
		raw, err := c.ch.Recv()
		if err != nil {
			c.failPending()
			return
		}
		var resp Response
		if err := json.Unmarshal(raw, &resp); err != nil {
			continue
		}
		c.mu.Lock()
		waiter := c.pending[resp.ID]
		delete(c.pending, resp.ID)
		c.mu.Unlock()
		if waiter != nil {
			waiter <- resp
		}
	}
}

// failPending closes every waiter so blocked calls fail with a transport
// error instead of hanging on a dead worker.
func (c *Client) failPending() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	for id, waiter := range c.pending {
		close(waiter)
		delete(c.pending, id)
	}
}

func (c *Client) register(id int64) (chan Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, errors.New(errors.WorkerTransport, "worker channel closed")
	}
	waiter := make(chan Response, 1)
	c.pending[id] = waiter
	return waiter, nil
}

func (c *Client) unregister(id int64) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

// Exec runs a single statement on the worker. Cancelling ctx while the
// statement is in flight sends a cancel request; Exec then keeps waiting for
// the worker's one response for this id and reports the outcome as a
// Cancelled error.
func (c *Client) Exec(ctx context.Context, cfg config.ConnectionConfig, sqlText, database string, maxRows int) (*ExecResult, error) {
	id := c.nextID.Add(1)
	waiter, err := c.register(id)
	if err != nil {
		return nil, err
	}
	req := Request{Type: ReqExec, ID: id, Query: sqlText, MaxRows: maxRows, Config: &cfg, DBType: cfg.DBType, Database: database}
	if err := c.ch.Send(req); err != nil {
		c.unregister(id)
		return nil, err
	}

	cancelSent := false
	for {
		var interrupted <-chan struct{}
		if !cancelSent {
			interrupted = ctx.Done()
		}
		select {
		case resp, ok := <-waiter:
			if !ok {
				return nil, errors.New(errors.WorkerTransport, "worker channel closed")
			}
			return execOutcome(resp)
		case <-interrupted:
			_ = c.ch.Send(Request{Type: ReqCancel, ID: id})
			cancelSent = true
		}
	}
}

func execOutcome(resp Response) (*ExecResult, error) {
	switch resp.Type {
	case RespResult:
		return &ExecResult{Result: resp.Result.ToResult(), Elapsed: resp.Elapsed()}, nil
	case RespCancelled:
		return nil, errors.New(errors.Cancelled, "query cancelled")
	case RespError:
		return nil, errors.New(errors.Driver, resp.Message)
	}
	return nil, errors.New(errors.WorkerTransport, fmt.Sprintf("unexpected response type %q", resp.Type))
}

// Columns fetches column metadata for a table.
func (c *Client) Columns(ctx context.Context, cfg config.ConnectionConfig, table, database, schema string) ([]provider.Column, error) {
	resp, err := c.schema(ctx, Request{Type: ReqSchema, Op: OpColumns, Config: &cfg, DBType: cfg.DBType, Name: table, Database: database, Schema: schema})
	if err != nil {
		return nil, err
	}
	return resp.Columns, nil
}

// FolderItems fetches the objects under one schema-tree folder.
func (c *Client) FolderItems(ctx context.Context, cfg config.ConnectionConfig, folderType, database string) ([]provider.Object, error) {
	resp, err := c.schema(ctx, Request{Type: ReqSchema, Op: OpFolderItems, Config: &cfg, DBType: cfg.DBType, FolderType: folderType, Database: database})
	if err != nil {
		return nil, err
	}
	return resp.Items, nil
}

func (c *Client) schema(ctx context.Context, req Request) (Response, error) {
	req.ID = c.nextID.Add(1)
	waiter, err := c.register(req.ID)
	if err != nil {
		return Response{}, err
	}
	if err := c.ch.Send(req); err != nil {
		c.unregister(req.ID)
		return Response{}, err
	}
	select {
	case resp, ok := <-waiter:
		if !ok {
			return Response{}, errors.New(errors.WorkerTransport, "worker channel closed")
		}
		if resp.Type == RespError {
			return Response{}, errors.New(errors.Driver, resp.Message)
		}
		return resp, nil
	case <-ctx.Done():
		// The late response finds no waiter and is dropped.
		c.unregister(req.ID)
		return Response{}, ctx.Err()
	}
}

// Close asks the worker to shut down and reaps it. Idempotent. The child is
// reaped even when the transport already died on its own.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		alreadyDead := c.closed
		c.closed = true
		c.mu.Unlock()

		if !alreadyDead {
			_ = c.ch.Send(Request{Type: ReqShutdown})
		}
		c.ch.Close()
		if c.stop != nil {
			c.closeErr = c.stop()
		}
	})
	return c.closeErr
}
