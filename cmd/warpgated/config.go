package main

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"Warpgate/internal/ident"
)

// envPrefix prefixes every environment override (WARPGATE_HTTP, ...).
const envPrefix = "WARPGATE"

// Config holds the node configuration.
type Config struct {
	// DataPath is the directory for persistent storage.
	DataPath string

	// HTTPAddress is the HTTP API listen address.
	HTTPAddress string

	// KeyPath is the path to the Ed25519 private key file.
	KeyPath string

	// PrivateKey is the node's Ed25519 signing key.
	PrivateKey ed25519.PrivateKey

	// Admin receives ADMIN and SUPERVISOR when bootstrapping.
	// Zero means the node key's own address.
	Admin ident.Address

	// LogLevel is the minimum log level.
	LogLevel string

	// Bootstrap allows initializing a fresh ledger.
	Bootstrap bool

	// SnapshotExport writes a ledger snapshot to this path and exits.
	SnapshotExport string

	// SnapshotImport seeds an empty ledger from this snapshot before start.
	SnapshotImport string
}

// flagKeys maps flag names to their viper keys.
var flagKeys = map[string]string{
	"data":            "data",
	"http":            "http",
	"key":             "key",
	"admin":           "admin",
	"log-level":       "log_level",
	"bootstrap":       "bootstrap",
	"snapshot-export": "snapshot.export",
	"snapshot-import": "snapshot.import",
}

// loadConfig merges flags, environment and an optional YAML file into Config.
// Precedence: explicit flag, environment, config file, flag default.
func loadConfig(args []string) (*Config, error) {
	fs := pflag.NewFlagSet("warpgated", pflag.ContinueOnError)

	configPath := fs.String("config", "", "YAML config file")
	fs.String("data", "./data", "Data directory path")
	fs.String("http", ":8080", "HTTP API address")
	fs.String("key", "", "Ed25519 private key path (generates new if missing)")
	fs.String("admin", "", "Bootstrap admin address (hex, defaults to the node key)")
	fs.String("log-level", "info", "Minimum log level: debug, info, warn, error")
	fs.Bool("bootstrap", false, "Bootstrap a fresh ledger")
	fs.String("snapshot-export", "", "Write a ledger snapshot to this path and exit")
	fs.String("snapshot-import", "", "Seed an empty ledger from this snapshot")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags:\n%w", err)
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for name, key := range flagKeys {
		if err := v.BindPFlag(key, fs.Lookup(name)); err != nil {
			return nil, fmt.Errorf("bind flag %s:\n%w", name, err)
		}
	}

	if *configPath != "" {
		v.SetConfigFile(*configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file:\n%w", err)
		}
	}

	cfg := &Config{
		DataPath:       v.GetString("data"),
		HTTPAddress:    v.GetString("http"),
		KeyPath:        v.GetString("key"),
		LogLevel:       v.GetString("log_level"),
		Bootstrap:      v.GetBool("bootstrap"),
		SnapshotExport: v.GetString("snapshot.export"),
		SnapshotImport: v.GetString("snapshot.import"),
	}

	if raw := v.GetString("admin"); raw != "" {
		admin, err := ident.ParseAddress(raw)
		if err != nil {
			return nil, fmt.Errorf("parse admin:\n%w", err)
		}
		cfg.Admin = admin
	}

	if cfg.SnapshotExport != "" && cfg.SnapshotImport != "" {
		return nil, fmt.Errorf("snapshot.export and snapshot.import are exclusive")
	}

	return cfg, nil
}

// loadOrGenerateKey loads the private key from file or generates a new one.
func loadOrGenerateKey(keyPath string) (ed25519.PrivateKey, error) {
	if keyPath == "" {
		return generateNewKey()
	}

	data, err := os.ReadFile(keyPath)
	if os.IsNotExist(err) {
		return generateAndSaveKey(keyPath)
	}

	if err != nil {
		return nil, fmt.Errorf("read key file:\n%w", err)
	}

	if len(data) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("invalid key size: got %d, want %d", len(data), ed25519.PrivateKeySize)
	}

	return ed25519.PrivateKey(data), nil
}

// generateNewKey creates a new Ed25519 private key.
func generateNewKey() (ed25519.PrivateKey, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate key:\n%w", err)
	}

	return priv, nil
}

// generateAndSaveKey creates a new key and saves it to the given path.
func generateAndSaveKey(path string) (ed25519.PrivateKey, error) {
	priv, err := generateNewKey()
	if err != nil {
		return nil, err
	}

	if err := os.WriteFile(path, priv, 0600); err != nil {
		return nil, fmt.Errorf("save key to %s:\n%w", path, err)
	}

	return priv, nil
}
