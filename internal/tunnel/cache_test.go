// Copyright (c) 2026 the sqlit authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package tunnel

import (
	"errors"
	"testing"

	"github.com/the-vampiire/sqlit-sub003/internal/config"
)

type fakeTunnel struct {
	port    int
	stopped bool
	stopErr error
}

func (f *fakeTunnel) LocalPort() int { return f.port }
func (f *fakeTunnel) Stop() error {
	f.stopped = true
	return f.stopErr
}

type fakeFactory struct {
	opens   int
	tunnels []*fakeTunnel
}

func (f *fakeFactory) Open(cfg config.ConnectionConfig) (Tunnel, string, int, error) {
	f.opens++
	t := &fakeTunnel{port: 15000 + f.opens}
	f.tunnels = append(f.tunnels, t)
	return t, "127.0.0.1", t.port, nil
}

func sshConfig() config.ConnectionConfig {
	return config.ConnectionConfig{
		Name:   "prod",
		DBType: config.DBTypePostgres,
		Host:   "db.internal",
		Port:   "5432",
		SSH: config.SSHConfig{
			Enabled:  true,
			Host:     "bastion.example.com",
			Port:     "22",
			Username: "deploy",
			AuthType: config.SSHAuthPassword,
			Password: "hunter2",
		},
	}
}

func TestCacheReusesMatchingTunnel(t *testing.T) {
	factory := &fakeFactory{}
	cache := NewCache(factory, nil)

	first, err := cache.Ensure(sshConfig())
	if err != nil {
		t.Fatal(err)
	}
	second, err := cache.Ensure(sshConfig())
	if err != nil {
		t.Fatal(err)
	}

	if factory.opens != 1 {
		t.Errorf("factory opened %d tunnels, want 1", factory.opens)
	}
	if first != second {
		t.Error("cache returned a different tunnel for identical SSH settings")
	}
	if factory.tunnels[0].stopped {
		t.Error("cached tunnel was stopped")
	}
}

func TestCacheReplacesOnFingerprintChange(t *testing.T) {
	factory := &fakeFactory{}
	cache := NewCache(factory, nil)

	if _, err := cache.Ensure(sshConfig()); err != nil {
		t.Fatal(err)
	}

	changed := sshConfig()
	changed.SSH.Username = "other"
	tun, err := cache.Ensure(changed)
	if err != nil {
		t.Fatal(err)
	}

	if factory.opens != 2 {
		t.Errorf("factory opened %d tunnels, want 2", factory.opens)
	}
	if !factory.tunnels[0].stopped {
		t.Error("stale tunnel was not stopped")
	}
	if tun != factory.tunnels[1] {
		t.Error("cache did not hand back the fresh tunnel")
	}
}

func TestCacheTearsDownWhenDisabled(t *testing.T) {
	factory := &fakeFactory{}
	cache := NewCache(factory, nil)

	if _, err := cache.Ensure(sshConfig()); err != nil {
		t.Fatal(err)
	}

	plain := sshConfig()
	plain.SSH = config.SSHConfig{}
	tun, err := cache.Ensure(plain)
	if err != nil {
		t.Fatal(err)
	}

	if tun != nil {
		t.Error("got a tunnel for a config with tunneling disabled")
	}
	if !factory.tunnels[0].stopped {
		t.Error("tunnel survived a non-SSH request")
	}
	if factory.opens != 1 {
		t.Errorf("factory opened %d tunnels, want 1", factory.opens)
	}
}

func TestCacheReportsTeardownErrors(t *testing.T) {
	factory := &fakeFactory{}
	var reported error
	cache := NewCache(factory, func(err error) { reported = err })

	if _, err := cache.Ensure(sshConfig()); err != nil {
		t.Fatal(err)
	}
	factory.tunnels[0].stopErr = errors.New("listener already closed")

	cache.Close()

	if reported == nil || reported.Error() != "listener already closed" {
		t.Errorf("teardown error = %v, want listener already closed", reported)
	}

	// A second close is a no-op.
	reported = nil
	cache.Close()
	if reported != nil {
		t.Errorf("second Close reported %v", reported)
	}
}
