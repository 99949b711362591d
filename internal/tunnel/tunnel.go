// Copyright (c) 2026 the sqlit authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package tunnel provides SSH port-forward tunnels for database connections
// through bastion hosts, and a cache that reuses a live tunnel across
// requests with matching SSH settings.
package tunnel

import (
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/the-vampiire/sqlit-sub003/internal/config"
)

// Tunnel is an established local port forward to a remote database endpoint.
type Tunnel interface {
	// LocalPort is the port of the local listener.
	LocalPort() int
	// Stop tears the tunnel down and releases the listener.
	Stop() error
}

// Factory opens tunnels for connection configs.
//
// Open returns the tunnel plus the host and port the database connection
// should actually dial: the local listener when tunneling is enabled, or the
// original endpoint (with a nil Tunnel) when it is not.
type Factory interface {
	Open(cfg config.ConnectionConfig) (Tunnel, string, int, error)
}

// SSHFactory opens real SSH tunnels.
type SSHFactory struct {
	// DialTimeout bounds the SSH handshake. Zero means 10s.
	DialTimeout time.Duration
}

func (f SSHFactory) Open(cfg config.ConnectionConfig) (Tunnel, string, int, error) {
	if !cfg.SSH.Enabled {
		port, _ := strconv.Atoi(cfg.Port)
		return nil, cfg.Host, port, nil
	}

	auth, err := sshAuth(cfg.SSH)
	if err != nil {
		return nil, "", 0, err
	}

	timeout := f.DialTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	sshPort := cfg.SSH.Port
	if sshPort == "" {
		sshPort = "22"
	}
	client, err := ssh.Dial("tcp", net.JoinHostPort(cfg.SSH.Host, sshPort), &ssh.ClientConfig{
		User:            cfg.SSH.Username,
		Auth:            auth,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         timeout,
	})
	if err != nil {
		return nil, "", 0, fmt.Errorf("ssh dial %s: %w", cfg.SSH.Host, err)
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		_ = client.Close()
		return nil, "", 0, err
	}

	t := &sshTunnel{
		client:   client,
		listener: listener,
		remote:   net.JoinHostPort(cfg.Host, cfg.Port),
	}
	go t.serve()

	port := listener.Addr().(*net.TCPAddr).Port
	return t, "127.0.0.1", port, nil
}

func sshAuth(c config.SSHConfig) ([]ssh.AuthMethod, error) {
	if c.AuthType == config.SSHAuthKey {
		keyPath := c.KeyPath
		if home, err := os.UserHomeDir(); err == nil && len(keyPath) > 1 && keyPath[:2] == "~/" {
			keyPath = filepath.Join(home, keyPath[2:])
		}
		keyData, err := os.ReadFile(keyPath)
		if err != nil {
			return nil, fmt.Errorf("ssh key file: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(keyData)
		if err != nil {
			return nil, fmt.Errorf("ssh key parse: %w", err)
		}
		return []ssh.AuthMethod{ssh.PublicKeys(signer)}, nil
	}
	return []ssh.AuthMethod{ssh.Password(c.Password)}, nil
}

type sshTunnel struct {
	client   *ssh.Client
	listener net.Listener
	remote   string
}

func (t *sshTunnel) serve() {
	for {
		local, err := t.listener.Accept()
		if err != nil {
			return
		}
		go t.forward(local)
	}
}

func (t *sshTunnel) forward(local net.Conn) {
	remote, err := t.client.Dial("tcp", t.remote)
	if err != nil {
		_ = local.Close()
		return
	}
	go func() {
		_, _ = io.Copy(remote, local)
		_ = remote.Close()
	}()
	_, _ = io.Copy(local, remote)
	_ = local.Close()
}

func (t *sshTunnel) LocalPort() int {
	return t.listener.Addr().(*net.TCPAddr).Port
}

func (t *sshTunnel) Stop() error {
	err := t.listener.Close()
	if cerr := t.client.Close(); err == nil {
		err = cerr
	}
	return err
}
