// Copyright (c) 2026 the sqlit authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package worker

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/the-vampiire/sqlit-sub003/internal/config"
	"github.com/the-vampiire/sqlit-sub003/internal/provider"
	"github.com/the-vampiire/sqlit-sub003/internal/query"
	"github.com/the-vampiire/sqlit-sub003/internal/tunnel"
)

// fakeQuery completes immediately unless block is set, in which case it
// waits for the gate to close or for cancellation.
type fakeQuery struct {
	sql    string
	block  chan struct{}
	result query.Result
	err    error

	cancelled  atomic.Bool
	cancelCh   chan struct{}
	cancelOnce sync.Once
}

func newFakeQuery(sqlText string) *fakeQuery {
	return &fakeQuery{
		sql:      sqlText,
		result:   &query.NonQueryResult{RowsAffected: 1},
		cancelCh: make(chan struct{}),
	}
}

func (f *fakeQuery) Execute(maxRows int) (query.Result, error) {
	if f.block != nil {
		select {
		case <-f.block:
		case <-f.cancelCh:
			return nil, context.Canceled
		}
	}
	return f.result, f.err
}

func (f *fakeQuery) Cancel() {
	f.cancelled.Store(true)
	f.cancelOnce.Do(func() { close(f.cancelCh) })
}

func (f *fakeQuery) IsCancelled() bool { return f.cancelled.Load() }

// queryRecorder builds fake queries and remembers them in creation order.
type queryRecorder struct {
	mu        sync.Mutex
	queries   []*fakeQuery
	configure func(*fakeQuery)
}

func (r *queryRecorder) factory(sqlText string, _ config.ConnectionConfig, _ *provider.Provider, _ tunnel.Tunnel) query.Cancellable {
	q := newFakeQuery(sqlText)
	if r.configure != nil {
		r.configure(q)
	}
	r.mu.Lock()
	r.queries = append(r.queries, q)
	r.mu.Unlock()
	return q
}

func (r *queryRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.queries)
}

func stubRegistry() provider.Registry {
	return provider.NewRegistry(&provider.Provider{Name: "sqlite"})
}

func testConfig() config.ConnectionConfig {
	return config.ConnectionConfig{Name: "test", DBType: "sqlite", FilePath: ":memory:"}
}

// startLoop wires a loop to an in-process pipe pair and returns the host
// side of the channel.
func startLoop(t *testing.T, opts LoopOptions) *Channel {
	t.Helper()
	if opts.PollInterval == 0 {
		opts.PollInterval = 5 * time.Millisecond
	}
	reqR, reqW := io.Pipe()
	respR, respW := io.Pipe()
	loop := NewLoop(NewChannel(reqR, respW), opts)
	go func() {
		loop.Run()
		_ = respW.Close()
	}()
	hostCh := NewChannel(respR, reqW)
	t.Cleanup(func() {
		_ = reqW.Close()
		hostCh.Close()
	})
	return hostCh
}

func recvResponse(t *testing.T, ch *Channel) Response {
	t.Helper()
	raw, err := ch.Recv()
	require.NoError(t, err)
	var resp Response
	require.NoError(t, json.Unmarshal(raw, &resp))
	return resp
}

func TestLoopRunsExecsInArrivalOrder(t *testing.T) {
	gate := make(chan struct{})
	rec := &queryRecorder{configure: func(q *fakeQuery) {
		if q.sql == "SELECT slow" {
			q.block = gate
		}
	}}
	hostCh := startLoop(t, LoopOptions{Registry: stubRegistry(), NewQuery: rec.factory})
	cfg := testConfig()

	require.NoError(t, hostCh.Send(Request{Type: ReqExec, ID: 1, Query: "SELECT slow", Config: &cfg}))
	require.NoError(t, hostCh.Send(Request{Type: ReqExec, ID: 2, Query: "SELECT fast", Config: &cfg}))

	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 5*time.Millisecond)
	// The second exec must wait its turn.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, rec.count())

	close(gate)
	first := recvResponse(t, hostCh)
	second := recvResponse(t, hostCh)
	assert.Equal(t, int64(1), first.ID)
	assert.Equal(t, RespResult, first.Type)
	assert.Equal(t, int64(2), second.ID)
	assert.Equal(t, RespResult, second.Type)
}

func TestLoopCancelsInFlightExec(t *testing.T) {
	rec := &queryRecorder{configure: func(q *fakeQuery) {
		if q.sql == "SELECT hang" {
			q.block = make(chan struct{}) // only cancellation releases it
		}
	}}
	hostCh := startLoop(t, LoopOptions{Registry: stubRegistry(), NewQuery: rec.factory})
	cfg := testConfig()

	require.NoError(t, hostCh.Send(Request{Type: ReqExec, ID: 7, Query: "SELECT hang", Config: &cfg}))
	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, hostCh.Send(Request{Type: ReqCancel, ID: 7}))

	resp := recvResponse(t, hostCh)
	assert.Equal(t, RespCancelled, resp.Type)
	assert.Equal(t, int64(7), resp.ID)

	// The loop is free again after the cancellation.
	require.NoError(t, hostCh.Send(Request{Type: ReqExec, ID: 8, Query: "SELECT 1", Config: &cfg}))
	next := recvResponse(t, hostCh)
	assert.Equal(t, int64(8), next.ID)
	assert.Equal(t, RespResult, next.Type)
}

func TestLoopIgnoresCancelForCompletedID(t *testing.T) {
	rec := &queryRecorder{}
	hostCh := startLoop(t, LoopOptions{Registry: stubRegistry(), NewQuery: rec.factory})
	cfg := testConfig()

	require.NoError(t, hostCh.Send(Request{Type: ReqExec, ID: 1, Query: "SELECT 1", Config: &cfg}))
	first := recvResponse(t, hostCh)
	require.Equal(t, int64(1), first.ID)

	// Cancel for an already-completed id produces no response.
	require.NoError(t, hostCh.Send(Request{Type: ReqCancel, ID: 1}))
	require.NoError(t, hostCh.Send(Request{Type: ReqExec, ID: 2, Query: "SELECT 2", Config: &cfg}))

	next := recvResponse(t, hostCh)
	assert.Equal(t, int64(2), next.ID)
	assert.Equal(t, RespResult, next.Type)
}

func TestLoopRejectsInvalidExecRequests(t *testing.T) {
	rec := &queryRecorder{}
	hostCh := startLoop(t, LoopOptions{Registry: stubRegistry(), NewQuery: rec.factory})

	badType := testConfig()
	badType.DBType = "oracle"
	cfg := testConfig()

	tests := []struct {
		name    string
		req     Request
		wantMsg string
	}{
		{"unknown engine", Request{Type: ReqExec, ID: 1, Query: "SELECT 1", Config: &badType}, "unknown database type"},
		{"multi statement", Request{Type: ReqExec, ID: 2, Query: "SELECT 1; SELECT 2", Config: &cfg}, "single statement"},
		{"missing config", Request{Type: ReqExec, ID: 3, Query: "SELECT 1"}, "missing connection config"},
		{"empty query", Request{Type: ReqExec, ID: 4, Query: "   ", Config: &cfg}, "empty query"},
	}
	for _, tt := range tests {
		require.NoError(t, hostCh.Send(tt.req))
		resp := recvResponse(t, hostCh)
		assert.Equal(t, RespError, resp.Type, tt.name)
		assert.Equal(t, tt.req.ID, resp.ID, tt.name)
		assert.Contains(t, resp.Message, tt.wantMsg, tt.name)
	}
	assert.Equal(t, 0, rec.count())
}

type countingFactory struct {
	opens   atomic.Int32
	stopped atomic.Int32
}

type countingTunnel struct{ f *countingFactory }

func (ct *countingTunnel) LocalPort() int { return 16000 }
func (ct *countingTunnel) Stop() error {
	ct.f.stopped.Add(1)
	return nil
}

func (f *countingFactory) Open(config.ConnectionConfig) (tunnel.Tunnel, string, int, error) {
	f.opens.Add(1)
	return &countingTunnel{f: f}, "127.0.0.1", 16000, nil
}

func TestLoopReusesTunnelAcrossExecs(t *testing.T) {
	factory := &countingFactory{}
	rec := &queryRecorder{}
	hostCh := startLoop(t, LoopOptions{Registry: stubRegistry(), NewQuery: rec.factory, TunnelFactory: factory})

	cfg := testConfig()
	cfg.SSH = config.SSHConfig{
		Enabled:  true,
		Host:     "bastion",
		Port:     "22",
		Username: "deploy",
		AuthType: config.SSHAuthPassword,
		Password: "s3cret",
	}

	require.NoError(t, hostCh.Send(Request{Type: ReqExec, ID: 1, Query: "SELECT 1", Config: &cfg}))
	recvResponse(t, hostCh)
	require.NoError(t, hostCh.Send(Request{Type: ReqExec, ID: 2, Query: "SELECT 2", Config: &cfg}))
	recvResponse(t, hostCh)

	assert.Equal(t, int32(1), factory.opens.Load())
	assert.Equal(t, int32(0), factory.stopped.Load())

	// A request without SSH tears the tunnel down.
	plain := testConfig()
	require.NoError(t, hostCh.Send(Request{Type: ReqExec, ID: 3, Query: "SELECT 3", Config: &plain}))
	recvResponse(t, hostCh)
	assert.Equal(t, int32(1), factory.stopped.Load())
}

// seedSQLite creates a database file with one table for schema requests.
func seedSQLite(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "app.db")
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE users (id INTEGER PRIMARY KEY, email TEXT NOT NULL)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())
	return path
}

func TestLoopQueuesSchemaBehindBusyExec(t *testing.T) {
	gate := make(chan struct{})
	rec := &queryRecorder{configure: func(q *fakeQuery) {
		if q.sql == "SELECT slow" {
			q.block = gate
		}
	}}
	hostCh := startLoop(t, LoopOptions{NewQuery: rec.factory})

	cfg := config.ConnectionConfig{Name: "app", DBType: config.DBTypeSQLite, FilePath: seedSQLite(t)}
	require.NoError(t, hostCh.Send(Request{Type: ReqExec, ID: 1, Query: "SELECT slow", Config: &cfg}))
	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, hostCh.Send(Request{Type: ReqSchema, ID: 2, Op: OpFolderItems, FolderType: provider.FolderTables, Config: &cfg}))

	// The schema request must wait its turn behind the running exec.
	assert.False(t, hostCh.Poll(100*time.Millisecond))

	close(gate)
	first := recvResponse(t, hostCh)
	assert.Equal(t, int64(1), first.ID)
	assert.Equal(t, RespResult, first.Type)
	second := recvResponse(t, hostCh)
	assert.Equal(t, int64(2), second.ID)
	assert.Equal(t, RespSchema, second.Type)
	names := make([]string, 0, len(second.Items))
	for _, it := range second.Items {
		names = append(names, it.Name)
	}
	assert.Contains(t, names, "users")
}

func TestLoopSchemaKeepsTunnelWhileExecRuns(t *testing.T) {
	factory := &countingFactory{}
	gate := make(chan struct{})
	rec := &queryRecorder{configure: func(q *fakeQuery) {
		if q.sql == "SELECT slow" {
			q.block = gate
		}
	}}
	hostCh := startLoop(t, LoopOptions{NewQuery: rec.factory, TunnelFactory: factory})

	tunneled := testConfig()
	tunneled.SSH = config.SSHConfig{
		Enabled:  true,
		Host:     "bastion",
		Port:     "22",
		Username: "deploy",
		AuthType: config.SSHAuthPassword,
		Password: "s3cret",
	}
	plain := config.ConnectionConfig{Name: "app", DBType: config.DBTypeSQLite, FilePath: seedSQLite(t)}

	require.NoError(t, hostCh.Send(Request{Type: ReqExec, ID: 1, Query: "SELECT slow", Config: &tunneled}))
	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 5*time.Millisecond)
	// A schema request for a tunnel-less config must not tear the running
	// exec's tunnel down while the exec still holds it.
	require.NoError(t, hostCh.Send(Request{Type: ReqSchema, ID: 2, Op: OpFolderItems, FolderType: provider.FolderTables, Config: &plain}))
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), factory.stopped.Load())

	close(gate)
	first := recvResponse(t, hostCh)
	assert.Equal(t, int64(1), first.ID)
	assert.Equal(t, RespResult, first.Type)
	second := recvResponse(t, hostCh)
	assert.Equal(t, int64(2), second.ID)
	assert.Equal(t, RespSchema, second.Type)
	assert.Equal(t, int32(1), factory.stopped.Load())
}

func TestLoopShutdownAnswersPendingRequests(t *testing.T) {
	rec := &queryRecorder{configure: func(q *fakeQuery) {
		if q.sql == "SELECT hang" {
			q.block = make(chan struct{})
		}
	}}
	hostCh := startLoop(t, LoopOptions{Registry: stubRegistry(), NewQuery: rec.factory})
	cfg := testConfig()

	require.NoError(t, hostCh.Send(Request{Type: ReqExec, ID: 1, Query: "SELECT hang", Config: &cfg}))
	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, hostCh.Send(Request{Type: ReqExec, ID: 2, Query: "SELECT queued", Config: &cfg}))
	require.NoError(t, hostCh.Send(Request{Type: ReqShutdown}))

	first := recvResponse(t, hostCh)
	assert.Equal(t, RespCancelled, first.Type)
	assert.Equal(t, int64(1), first.ID)
	second := recvResponse(t, hostCh)
	assert.Equal(t, RespCancelled, second.Type)
	assert.Equal(t, int64(2), second.ID)

	// No further messages: the worker exits and the stream closes.
	_, err := hostCh.Recv()
	assert.ErrorIs(t, err, io.EOF)
}
