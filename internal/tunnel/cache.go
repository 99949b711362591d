// Copyright (c) 2026 the sqlit authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package tunnel

import (
	"github.com/the-vampiire/sqlit-sub003/internal/config"
)

// Key is the fingerprint of the SSH-relevant fields of a connection.
// Two requests share a tunnel iff their keys are equal.
type Key struct {
	Host     string
	Port     string
	Username string
	AuthType string
	Password string
	KeyPath  string
}

// KeyFor derives the fingerprint for a config. The second return value is
// false when tunneling is disabled.
func KeyFor(cfg config.ConnectionConfig) (Key, bool) {
	if !cfg.SSH.Enabled {
		return Key{}, false
	}
	return Key{
		Host:     cfg.SSH.Host,
		Port:     cfg.SSH.Port,
		Username: cfg.SSH.Username,
		AuthType: cfg.SSH.AuthType,
		Password: cfg.SSH.Password,
		KeyPath:  cfg.SSH.KeyPath,
	}, true
}

// Cache holds at most one live tunnel and reuses it across requests whose
// fingerprints match. It is not safe for concurrent use; the worker loop
// serializes access by running at most one request at a time.
type Cache struct {
	factory Factory
	tunnel  Tunnel
	key     *Key
	onError func(error)
}

// NewCache builds a cache over a factory. onError receives best-effort
// teardown failures; nil swallows them.
func NewCache(factory Factory, onError func(error)) *Cache {
	return &Cache{factory: factory, onError: onError}
}

// Ensure returns a tunnel for the config, reusing the cached one when the
// fingerprint matches. A mismatch, or a config with tunneling disabled,
// tears down the existing tunnel first. Returns nil when no tunnel is
// needed.
func (c *Cache) Ensure(cfg config.ConnectionConfig) (Tunnel, error) {
	key, enabled := KeyFor(cfg)
	if !enabled {
		c.Close()
		return nil, nil
	}
	if c.tunnel != nil && c.key != nil && *c.key == key {
		return c.tunnel, nil
	}
	c.Close()

	tun, _, _, err := c.factory.Open(cfg)
	if err != nil {
		return nil, err
	}
	c.tunnel = tun
	k := key
	c.key = &k
	return tun, nil
}

// Close stops any cached tunnel. Teardown failures go to the error hook and
// never propagate.
func (c *Cache) Close() {
	if c.tunnel != nil {
		if err := c.tunnel.Stop(); err != nil && c.onError != nil {
			c.onError(err)
		}
		c.tunnel = nil
	}
	c.key = nil
}
