// Copyright (c) 2026 the sqlit authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package worker

import (
	"sync"
	"time"
)

// Manager owns the worker client's lifetime: the client starts lazily on
// first use, shuts down after an idle period, and can optionally be replaced
// with a fresh pre-warmed process on idle so the next query skips startup
// cost while the old process's memory is released.
type Manager struct {
	spawn       func() (*Client, error)
	idleTimeout time.Duration
	warmOnIdle  bool

	mu        sync.Mutex
	client    *Client
	inFlight  int
	idleTimer *time.Timer
}

// NewManager builds a manager. idleTimeout <= 0 disables idle shutdown.
func NewManager(spawn func() (*Client, error), idleTimeout time.Duration, warmOnIdle bool) *Manager {
	return &Manager{spawn: spawn, idleTimeout: idleTimeout, warmOnIdle: warmOnIdle}
}

// Acquire returns the live client, starting one if needed, and marks an
// execution in flight. Every successful Acquire must be paired with Release.
func (m *Manager) Acquire() (*Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.idleTimer != nil {
		m.idleTimer.Stop()
		m.idleTimer = nil
	}
	if m.client == nil {
		client, err := m.spawn()
		if err != nil {
			return nil, err
		}
		m.client = client
	}
	m.inFlight++
	return m.client, nil
}

// Release marks an execution finished. The idle timer starts counting only
// once nothing is in flight.
func (m *Manager) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.inFlight > 0 {
		m.inFlight--
	}
	if m.inFlight == 0 && m.client != nil {
		m.armIdleTimerLocked()
	}
}

func (m *Manager) armIdleTimerLocked() {
	if m.idleTimeout <= 0 {
		return
	}
	if m.idleTimer != nil {
		m.idleTimer.Stop()
	}
	m.idleTimer = time.AfterFunc(m.idleTimeout, m.onIdle)
}

func (m *Manager) onIdle() {
	m.mu.Lock()
	if m.inFlight > 0 {
		// An execution slipped in after the timer fired.
		m.mu.Unlock()
		return
	}
	client := m.client
	m.client = nil
	m.idleTimer = nil
	warm := m.warmOnIdle
	m.mu.Unlock()

	if client != nil {
		_ = client.Close()
	}
	if !warm {
		return
	}
	fresh, err := m.spawn()
	if err != nil {
		return
	}
	m.mu.Lock()
	if m.client == nil {
		// The warm worker waits for the next query without an idle timer of
		// its own; a fresh process holds no connections or results.
		m.client = fresh
		m.mu.Unlock()
		return
	}
	// Someone acquired a client while we were warming; drop the spare.
	m.mu.Unlock()
	_ = fresh.Close()
}

// Running reports whether a worker client is currently alive.
func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.client != nil
}

// Close shuts the worker down. The manager can be used again afterwards; the
// next Acquire starts a fresh worker.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.idleTimer != nil {
		m.idleTimer.Stop()
		m.idleTimer = nil
	}
	client := m.client
	m.client = nil
	m.mu.Unlock()
	if client != nil {
		return client.Close()
	}
	return nil
}
