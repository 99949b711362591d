// Copyright (c) 2026 the sqlit authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package keychain provides centralized, thread-safe keychain operations for sqlit.
// This module manages all interactions with the OS keychain/credential store,
// providing a unified interface for storing and retrieving database and SSH
// passwords per saved connection.
//
// The package supports macOS Keychain, Windows Credential Manager and the
// freedesktop Secret Service, with thread-safe operations and proper error
// handling.
package keychain

import (
	"errors"
	"sync"

	"github.com/99designs/keyring"
)

// ServiceName identifies our keychain/credential store namespace.
const ServiceName = "sqlit"

// Secret key suffixes, namespaced by connection name.
const (
	suffixDBPassword  = "db_password"
	suffixSSHPassword = "ssh_password"
)

// Manager provides centralized, thread-safe operations for the OS keychain.
type Manager struct {
	mu   sync.RWMutex
	ring keyring.Keyring
}

// NewManager creates a new keychain manager with the OS keyring initialized.
func NewManager() (*Manager, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName:              ServiceName,
		PassPrefix:               ServiceName,
		WinCredPrefix:            ServiceName,
		LibSecretCollectionName:  "login",
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, err
	}
	return &Manager{ring: ring}, nil
}

func secretKey(connection, suffix string) string { return connection + "/" + suffix }

func (m *Manager) set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ring.Set(keyring.Item{Key: key, Data: []byte(value)})
}

func (m *Manager) get(key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	it, err := m.ring.Get(key)
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return "", nil
		}
		return "", err
	}
	return string(it.Data), nil
}

// SaveDBPassword stores the database password for a connection.
func (m *Manager) SaveDBPassword(connection, password string) error {
	return m.set(secretKey(connection, suffixDBPassword), password)
}

// LoadDBPassword retrieves the database password for a connection.
// A missing entry returns an empty string, not an error.
func (m *Manager) LoadDBPassword(connection string) (string, error) {
	return m.get(secretKey(connection, suffixDBPassword))
}

// SaveSSHPassword stores the SSH tunnel password for a connection.
func (m *Manager) SaveSSHPassword(connection, password string) error {
	return m.set(secretKey(connection, suffixSSHPassword), password)
}

// LoadSSHPassword retrieves the SSH tunnel password for a connection.
// A missing entry returns an empty string, not an error.
func (m *Manager) LoadSSHPassword(connection string) (string, error) {
	return m.get(secretKey(connection, suffixSSHPassword))
}

// ClearConnection removes all secrets stored for a connection.
func (m *Manager) ClearConnection(connection string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	_ = m.ring.Remove(secretKey(connection, suffixDBPassword))
	_ = m.ring.Remove(secretKey(connection, suffixSSHPassword))
	return nil
}
