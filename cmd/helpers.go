// Copyright (c) 2026 the sqlit authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"

	"github.com/the-vampiire/sqlit-sub003/internal/config"
	"github.com/the-vampiire/sqlit-sub003/internal/keychain"
	"github.com/the-vampiire/sqlit-sub003/internal/query"
	"github.com/the-vampiire/sqlit-sub003/internal/worker"
)

// loadConnection fetches a saved connection and attaches its secrets from
// the OS keychain. A missing or unavailable keychain leaves the passwords
// empty rather than failing; the connection attempt will surface the problem.
func loadConnection(name string) (config.ConnectionConfig, error) {
	store, err := config.NewStore()
	if err != nil {
		return config.ConnectionConfig{}, err
	}
	cfg, err := store.Get(name)
	if err != nil {
		return config.ConnectionConfig{}, err
	}
	if km, err := keychain.NewManager(); err == nil {
		if pw, err := km.LoadDBPassword(name); err == nil && pw != "" {
			cfg.Password = pw
		}
		if pw, err := km.LoadSSHPassword(name); err == nil && pw != "" {
			cfg.SSH.Password = pw
		}
	}
	return config.Normalize(cfg), nil
}

// loadSettings returns stored runtime settings, falling back to defaults.
func loadSettings() config.Settings {
	store, err := config.NewStore()
	if err != nil {
		return config.DefaultSettings()
	}
	settings, err := store.Settings()
	if err != nil {
		return config.DefaultSettings()
	}
	return settings
}

// workerExecutor adapts the worker client to the statement executor
// interface so multi-statement scripts run through the worker process.
type workerExecutor struct {
	client   *worker.Client
	cfg      config.ConnectionConfig
	database string
}

func (w *workerExecutor) Execute(ctx context.Context, statement string, maxRows int) (query.Result, error) {
	res, err := w.client.Exec(ctx, w.cfg, statement, w.database, maxRows)
	if err != nil {
		return nil, err
	}
	return res.Result, nil
}
