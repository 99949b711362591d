// Copyright (c) 2026 the sqlit authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package query

import (
	"context"
	"strconv"
	"sync/atomic"

	"github.com/the-vampiire/sqlit-sub003/internal/config"
	"github.com/the-vampiire/sqlit-sub003/internal/provider"
	"github.com/the-vampiire/sqlit-sub003/internal/tunnel"
)

// Cancellable is a single statement bound to its execution resources, with
// cooperative cancellation.
type Cancellable interface {
	// Execute runs the statement. maxRows limits row-returning statements
	// (0 = unlimited). Called at most once.
	Execute(maxRows int) (Result, error)
	// Cancel requests cooperative cancellation. Safe to call from any
	// goroutine, including after completion.
	Cancel()
	// IsCancelled reports whether Cancel was called.
	IsCancelled() bool
}

// CancellableQuery binds SQL text, connection config, provider and tunnel.
// Cancellation is carried by a context the driver observes between chunks of
// work; this is a collaborator contract, not something this type enforces.
type CancellableQuery struct {
	sql      string
	cfg      config.ConnectionConfig
	provider *provider.Provider
	tunnel   tunnel.Tunnel

	ctx       context.Context
	cancel    context.CancelFunc
	cancelled atomic.Bool
}

// NewCancellable builds a cancellable query. tun may be nil when the
// connection does not go through a tunnel.
func NewCancellable(sqlText string, cfg config.ConnectionConfig, p *provider.Provider, tun tunnel.Tunnel) *CancellableQuery {
	ctx, cancel := context.WithCancel(context.Background())
	return &CancellableQuery{
		sql:      sqlText,
		cfg:      cfg,
		provider: p,
		tunnel:   tun,
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (q *CancellableQuery) Execute(maxRows int) (Result, error) {
	defer q.cancel()

	cfg := q.cfg
	if q.tunnel != nil {
		cfg = cfg.WithEndpoint("127.0.0.1", strconv.Itoa(q.tunnel.LocalPort()))
	}

	db, err := q.provider.Connector.Connect(q.ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	q.provider.RunPostConnect(q.ctx, db, cfg)

	executor := &DBExecutor{DB: db, Analyzer: q.provider.Analyzer()}
	return executor.Execute(q.ctx, q.sql, maxRows)
}

func (q *CancellableQuery) Cancel() {
	q.cancelled.Store(true)
	q.cancel()
}

func (q *CancellableQuery) IsCancelled() bool { return q.cancelled.Load() }
