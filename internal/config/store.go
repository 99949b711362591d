// Copyright (c) 2026 the sqlit authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/the-vampiire/sqlit-sub003/internal/xdg"
)

// Settings holds non-secret runtime settings for the CLI.
type Settings struct {
	MaxRows               int  `json:"max_rows"`
	WorkerIdleTimeoutSecs int  `json:"worker_idle_timeout_s"`
	WorkerWarmOnIdle      bool `json:"worker_warm_on_idle"`
}

// DefaultSettings are used when no settings file exists.
func DefaultSettings() Settings {
	return Settings{
		MaxRows:               1000,
		WorkerIdleTimeoutSecs: 300,
		WorkerWarmOnIdle:      false,
	}
}

// fileStore is the on-disk shape of the connection store.
type fileStore struct {
	Settings    Settings           `json:"settings"`
	Connections []ConnectionConfig `json:"connections"`
}

// Store persists named connections and settings as JSON in the XDG config dir.
type Store struct {
	path string
}

// NewStore returns a store rooted at the default config path.
func NewStore() (*Store, error) {
	dir, err := xdg.ConfigDir()
	if err != nil {
		return nil, err
	}
	return &Store{path: filepath.Join(dir, "connections.json")}, nil
}

// NewStoreAt returns a store at an explicit path. Used by tests.
func NewStoreAt(path string) *Store { return &Store{path: path} }

func (s *Store) load() (fileStore, error) {
	var fs fileStore
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			fs.Settings = DefaultSettings()
			return fs, nil
		}
		return fs, err
	}
	if err := json.Unmarshal(data, &fs); err != nil {
		return fs, err
	}
	if fs.Settings == (Settings{}) {
		fs.Settings = DefaultSettings()
	}
	return fs, nil
}

func (s *Store) save(fs fileStore) error {
	b, err := json.MarshalIndent(fs, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, b, 0o600)
}

// Settings returns the stored runtime settings, or defaults.
func (s *Store) Settings() (Settings, error) {
	fs, err := s.load()
	if err != nil {
		return DefaultSettings(), err
	}
	return fs.Settings, nil
}

// SaveSettings writes runtime settings, preserving connections.
func (s *Store) SaveSettings(set Settings) error {
	fs, err := s.load()
	if err != nil {
		return err
	}
	fs.Settings = set
	return s.save(fs)
}

// List returns all saved connections.
func (s *Store) List() ([]ConnectionConfig, error) {
	fs, err := s.load()
	if err != nil {
		return nil, err
	}
	return fs.Connections, nil
}

// Get returns the connection with the given name.
func (s *Store) Get(name string) (ConnectionConfig, error) {
	fs, err := s.load()
	if err != nil {
		return ConnectionConfig{}, err
	}
	for _, c := range fs.Connections {
		if c.Name == name {
			return c, nil
		}
	}
	return ConnectionConfig{}, fmt.Errorf("unknown connection %q", name)
}

// Put inserts or replaces a connection by name. Secrets are stripped before
// the record is written.
func (s *Store) Put(c ConnectionConfig) error {
	fs, err := s.load()
	if err != nil {
		return err
	}
	c = Normalize(c).Redacted()
	for i, existing := range fs.Connections {
		if existing.Name == c.Name {
			fs.Connections[i] = c
			return s.save(fs)
		}
	}
	fs.Connections = append(fs.Connections, c)
	return s.save(fs)
}

// Remove deletes a connection by name. Removing a missing name is a no-op.
func (s *Store) Remove(name string) error {
	fs, err := s.load()
	if err != nil {
		return err
	}
	out := fs.Connections[:0]
	for _, c := range fs.Connections {
		if c.Name != name {
			out = append(out, c)
		}
	}
	fs.Connections = out
	return s.save(fs)
}
