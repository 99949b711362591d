// Copyright (c) 2026 the sqlit authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package worker

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/the-vampiire/sqlit-sub003/internal/config"
	"github.com/the-vampiire/sqlit-sub003/internal/errors"
	"github.com/the-vampiire/sqlit-sub003/internal/provider"
	"github.com/the-vampiire/sqlit-sub003/internal/query"
	"github.com/the-vampiire/sqlit-sub003/internal/sqltext"
	"github.com/the-vampiire/sqlit-sub003/internal/tunnel"
)

const defaultPollInterval = 100 * time.Millisecond

// QueryFactory builds a cancellable execution for one statement.
type QueryFactory func(sqlText string, cfg config.ConnectionConfig, p *provider.Provider, tun tunnel.Tunnel) query.Cancellable

// LoopOptions configures a Loop. Zero values pick the production defaults.
type LoopOptions struct {
	Registry       provider.Registry
	TunnelFactory  tunnel.Factory
	PollInterval   time.Duration
	NewQuery       QueryFactory
	OnCleanupError func(error)
}

// Loop is the worker-side request loop. It alternates between reaping the
// in-flight request, promoting queued requests, and polling the channel for
// new messages. At most one exec or schema request runs at a time; requests
// that arrive while one is running queue in FIFO order. Only cancel and
// shutdown are handled inline, so a cancel is never stuck behind a running
// query.
//
// The tunnel cache is touched only while no request is in flight: exec opens
// the tunnel at dispatch on the loop thread, schema on its background thread
// while it holds the single slot.
type Loop struct {
	ch      *Channel
	reg     provider.Registry
	tunnels *tunnel.Cache
	newQ    QueryFactory
	poll    time.Duration

	queue   []Request
	current *inflight
}

// inflight tracks the one running request. cancel is cooperative; for exec
// requests exec is set and cancel maps to the query's Cancel, for schema
// requests it cancels the inspection context.
type inflight struct {
	id     int64
	exec   bool
	cancel func()
	done   chan struct{}
}

// NewLoop builds a loop over a channel.
func NewLoop(ch *Channel, opts LoopOptions) *Loop {
	if opts.Registry == nil {
		opts.Registry = provider.DefaultRegistry()
	}
	if opts.TunnelFactory == nil {
		opts.TunnelFactory = tunnel.SSHFactory{}
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.NewQuery == nil {
		opts.NewQuery = func(sqlText string, cfg config.ConnectionConfig, p *provider.Provider, tun tunnel.Tunnel) query.Cancellable {
			return query.NewCancellable(sqlText, cfg, p, tun)
		}
	}
	return &Loop{
		ch:      ch,
		reg:     opts.Registry,
		tunnels: tunnel.NewCache(opts.TunnelFactory, opts.OnCleanupError),
		newQ:    opts.NewQuery,
		poll:    opts.PollInterval,
	}
}

// Run processes requests until a shutdown request arrives or the channel
// closes.
func (l *Loop) Run() {
	for {
		l.reap()

		if l.current == nil && len(l.queue) > 0 {
			req := l.queue[0]
			l.queue = l.queue[1:]
			l.start(req)
			continue
		}

		if !l.ch.Poll(l.poll) {
			if l.ch.Closed() {
				l.shutdown()
				return
			}
			continue
		}

		raw, err := l.ch.Recv()
		if err != nil {
			l.shutdown()
			return
		}
		var req Request
		if err := json.Unmarshal(raw, &req); err != nil {
			_ = l.ch.Send(Response{Type: RespError, Message: "malformed request: " + err.Error()})
			continue
		}

		switch req.Type {
		case ReqExec, ReqSchema:
			if l.current != nil {
				l.queue = append(l.queue, req)
			} else {
				l.start(req)
			}
		case ReqCancel:
			// Only an in-flight execution can be cancelled; a cancel for a
			// schema request, a finished id, or an unknown id is a no-op.
			if l.current != nil && l.current.exec && l.current.id == req.ID {
				l.current.cancel()
			}
		case ReqShutdown:
			l.shutdown()
			return
		default:
			_ = l.ch.Send(Response{Type: RespError, ID: req.ID, Message: fmt.Sprintf("unknown request type %q", req.Type)})
		}
	}
}

func (l *Loop) reap() {
	if l.current == nil {
		return
	}
	select {
	case <-l.current.done:
		l.current = nil
	default:
	}
}

func (l *Loop) shutdown() {
	if l.current != nil {
		l.current.cancel()
		select {
		case <-l.current.done:
		case <-time.After(2 * time.Second):
		}
		l.current = nil
	}
	// Queued requests never started; answer them so host waiters unblock.
	for _, req := range l.queue {
		_ = l.ch.Send(Response{Type: RespCancelled, ID: req.ID})
	}
	l.queue = nil
	l.tunnels.Close()
}

func (l *Loop) start(req Request) {
	if req.Type == ReqSchema {
		l.startSchema(req)
		return
	}
	l.startExec(req)
}

func (l *Loop) startExec(req Request) {
	q, err := l.prepareExec(req)
	if err != nil {
		_ = l.ch.Send(Response{Type: RespError, ID: req.ID, Message: err.Error()})
		return
	}

	inf := &inflight{id: req.ID, exec: true, cancel: q.Cancel, done: make(chan struct{})}
	l.current = inf
	go func() {
		defer close(inf.done)
		start := time.Now()
		res, err := q.Execute(req.MaxRows)
		elapsed := time.Since(start).Milliseconds()
		switch {
		case q.IsCancelled() || isCancellation(err):
			_ = l.ch.Send(Response{Type: RespCancelled, ID: req.ID, ElapsedMS: elapsed})
		case err != nil:
			_ = l.ch.Send(Response{Type: RespError, ID: req.ID, Message: err.Error(), ElapsedMS: elapsed})
		default:
			_ = l.ch.Send(Response{Type: RespResult, ID: req.ID, Result: PayloadFor(res), ElapsedMS: elapsed})
		}
	}()
}

func (l *Loop) prepareExec(req Request) (query.Cancellable, error) {
	if req.Config == nil {
		return nil, errors.New(errors.Validation, "exec request missing connection config")
	}
	cfg := config.Normalize(*req.Config)
	p, err := l.reg.Get(requestDBType(req, cfg))
	if err != nil {
		return nil, errors.Wrap(errors.Validation, "resolve provider", err)
	}
	statements := sqltext.SplitStatements(req.Query)
	if len(statements) == 0 {
		return nil, errors.New(errors.Validation, "empty query")
	}
	if len(statements) > 1 {
		return nil, errors.New(errors.Validation, "exec takes a single statement; split scripts on the host")
	}
	if req.Database != "" && !p.Capabilities.SupportsCrossDatabaseQueries {
		cfg = p.ApplyDatabaseOverride(cfg, req.Database)
	}
	tun, err := l.tunnels.Ensure(cfg)
	if err != nil {
		return nil, errors.Wrap(errors.Tunnel, "open tunnel", err)
	}
	return l.newQ(req.Query, cfg, p, tun), nil
}

// isCancellation matches driver errors caused by a cancelled context. Driver
// messages vary but contain "cancel" in every engine we ship.
func isCancellation(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "cancel")
}

func requestDBType(req Request, cfg config.ConnectionConfig) string {
	if req.DBType != "" {
		return req.DBType
	}
	return cfg.DBType
}

// startSchema claims the slot and runs the inspection off the loop thread so
// cancel and shutdown requests stay responsive while it connects.
func (l *Loop) startSchema(req Request) {
	ctx, cancel := context.WithCancel(context.Background())
	inf := &inflight{id: req.ID, cancel: cancel, done: make(chan struct{})}
	l.current = inf
	go func() {
		defer close(inf.done)
		defer cancel()
		columns, items, err := l.inspect(ctx, req)
		if err != nil {
			_ = l.ch.Send(Response{Type: RespError, ID: req.ID, Op: req.Op, Message: err.Error()})
			return
		}
		_ = l.ch.Send(Response{Type: RespSchema, ID: req.ID, Op: req.Op, Columns: columns, Items: items})
	}()
}

func (l *Loop) inspect(ctx context.Context, req Request) ([]provider.Column, []provider.Object, error) {
	if req.Config == nil {
		return nil, nil, errors.New(errors.Validation, "schema request missing connection config")
	}
	cfg := config.Normalize(*req.Config)
	p, err := l.reg.Get(requestDBType(req, cfg))
	if err != nil {
		return nil, nil, errors.Wrap(errors.Validation, "resolve provider", err)
	}
	database := req.Database
	if database != "" && !p.Capabilities.SupportsCrossDatabaseQueries {
		cfg = p.ApplyDatabaseOverride(cfg, database)
		database = ""
	}
	tun, err := l.tunnels.Ensure(cfg)
	if err != nil {
		return nil, nil, errors.Wrap(errors.Tunnel, "open tunnel", err)
	}
	if tun != nil {
		cfg = cfg.WithEndpoint("127.0.0.1", strconv.Itoa(tun.LocalPort()))
	}

	db, err := p.Connector.Connect(ctx, cfg)
	if err != nil {
		return nil, nil, errors.Wrap(errors.Driver, "connect", err)
	}
	defer db.Close()
	p.RunPostConnect(ctx, db, cfg)

	switch req.Op {
	case OpColumns:
		cols, err := p.Inspector.Columns(ctx, db, req.Name, database, req.Schema)
		return cols, nil, err
	case OpFolderItems:
		items, err := l.folderItems(ctx, p, db, req.FolderType, database)
		return nil, items, err
	}
	return nil, nil, errors.New(errors.Validation, fmt.Sprintf("unknown schema op %q", req.Op))
}

func (l *Loop) folderItems(ctx context.Context, p *provider.Provider, db *sql.DB, folderType, database string) ([]provider.Object, error) {
	caps := p.Capabilities
	switch folderType {
	case provider.FolderTables:
		return p.Inspector.Tables(ctx, db, database)
	case provider.FolderViews:
		return p.Inspector.Views(ctx, db, database)
	case provider.FolderDatabases:
		names, err := p.Inspector.Databases(ctx, db)
		if err != nil {
			return nil, err
		}
		items := make([]provider.Object, 0, len(names))
		for _, name := range names {
			items = append(items, provider.Object{Type: provider.ObjectDatabase, Name: name})
		}
		return items, nil
	case provider.FolderIndexes:
		if !caps.SupportsIndexes {
			return nil, nil
		}
		return p.Inspector.Indexes(ctx, db, database)
	case provider.FolderTriggers:
		if !caps.SupportsTriggers {
			return nil, nil
		}
		return p.Inspector.Triggers(ctx, db, database)
	case provider.FolderSequences:
		if !caps.SupportsSequences {
			return nil, nil
		}
		return p.Inspector.Sequences(ctx, db, database)
	case provider.FolderProcedures:
		if !caps.SupportsStoredProcedures {
			return nil, nil
		}
		return p.Inspector.Procedures(ctx, db, database)
	}
	return nil, errors.New(errors.Validation, fmt.Sprintf("unknown folder type %q", folderType))
}
