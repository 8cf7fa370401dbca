package main

import (
	"crypto/ed25519"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"Warpgate/internal/api"
	"Warpgate/internal/genesis"
	"Warpgate/internal/ident"
	"Warpgate/internal/ledger"
	"Warpgate/internal/logger"
	"Warpgate/internal/snapshot"
	"Warpgate/internal/storage"
)

// Node owns the storage, the wired rental core and the HTTP API.
type Node struct {
	cfg        *Config             // cfg is the node configuration
	storage    *storage.Storage    // storage is the Pebble database
	deployment *genesis.Deployment // deployment is the wired rental core
	api        *api.Server         // api is the HTTP server
}

// NewNode opens storage, optionally seeds it from a snapshot and deploys the core.
func NewNode(cfg *Config) (*Node, error) {
	n := &Node{cfg: cfg}

	if err := n.initStorage(); err != nil {
		return nil, err
	}

	if err := n.importSnapshot(); err != nil {
		n.Close()
		return nil, err
	}

	if err := n.initDeployment(); err != nil {
		n.Close()
		return nil, err
	}

	return n, nil
}

// initStorage initializes the Pebble storage.
func (n *Node) initStorage() error {
	if err := os.MkdirAll(n.cfg.DataPath, 0755); err != nil {
		return fmt.Errorf("create data directory:\n%w", err)
	}

	db, err := storage.New(filepath.Join(n.cfg.DataPath, "db"))
	if err != nil {
		return fmt.Errorf("init storage:\n%w", err)
	}

	n.storage = db

	return nil
}

// importSnapshot applies the configured snapshot to the empty store.
func (n *Node) importSnapshot() error {
	if n.cfg.SnapshotImport == "" {
		return nil
	}

	start := time.Now()

	info, err := snapshot.ReadFile(n.storage, n.cfg.SnapshotImport)
	if err != nil {
		return fmt.Errorf("import snapshot:\n%w", err)
	}

	logger.Info("snapshot imported", "path", n.cfg.SnapshotImport, "entries", info.Entries, logger.Timed(start))

	return nil
}

// initDeployment wires the rental core, bootstrapping the ledger when allowed.
func (n *Node) initDeployment() error {
	var gcfg genesis.Config

	if n.cfg.Bootstrap {
		gcfg.Admin = n.bootstrapAdmin()
	}

	d, err := genesis.Deploy(ledger.New(n.storage), gcfg)
	if err != nil {
		return fmt.Errorf("deploy:\n%w", err)
	}

	n.deployment = d

	return nil
}

// bootstrapAdmin returns the configured admin or the node key's address.
func (n *Node) bootstrapAdmin() ident.Address {
	if !n.cfg.Admin.IsZero() {
		return n.cfg.Admin
	}

	return ident.FromPubkey(n.cfg.PrivateKey.Public().(ed25519.PublicKey))
}

// Run serves the API until a shutdown signal, or exports a snapshot and returns.
func (n *Node) Run() error {
	if n.cfg.SnapshotExport != "" {
		defer n.Close()
		return n.exportSnapshot()
	}

	n.api = api.New(n.cfg.HTTPAddress, n.deployment)
	if err := n.api.Start(); err != nil {
		return fmt.Errorf("start api:\n%w", err)
	}

	return n.waitForShutdown()
}

// exportSnapshot writes the whole ledger to the configured path.
func (n *Node) exportSnapshot() error {
	start := time.Now()

	info, err := snapshot.WriteFile(n.storage, n.cfg.SnapshotExport)
	if err != nil {
		return fmt.Errorf("export snapshot:\n%w", err)
	}

	logger.Info("snapshot exported",
		"path", n.cfg.SnapshotExport,
		"entries", info.Entries,
		"checksum", fmt.Sprintf("%x", info.Checksum[:8]),
		logger.Timed(start),
	)

	return nil
}

// waitForShutdown blocks until SIGINT or SIGTERM is received.
func (n *Node) waitForShutdown() error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", "signal", sig.String())

	return n.Close()
}

// Close shuts down all node components gracefully.
func (n *Node) Close() error {
	if n.api != nil {
		n.api.Stop()
	}

	if n.storage == nil {
		return nil
	}

	err := n.storage.Close()
	n.storage = nil

	return err
}
