// Package config loads vaultd's daemon configuration from a YAML file,
// separate from the per-vault config.json written inside each vault's
// data directory.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cuemby/vaultd/pkg/types"
)

// Config is the daemon-wide configuration, typically loaded from
// ~/.config/vaultd/vaultd.yaml.
type Config struct {
	// DataDir is the vault directory `vaultd run` opens when --vault-dir
	// is not given.
	DataDir string `yaml:"dataDir"`

	// SyncPort is the TCP port the sync agent listens on for incoming
	// peer connections.
	SyncPort int `yaml:"syncPort"`

	// DeviceProfile overrides pragma auto-detection when set.
	DeviceProfile types.DeviceProfile `yaml:"deviceProfile,omitempty"`

	// RelayURL, when set, is used as a fallback transport for devices
	// that cannot reach each other directly (e.g. different networks).
	RelayURL string `yaml:"relayUrl,omitempty"`

	// DiscoveryEnabled toggles mDNS advertisement and browsing.
	DiscoveryEnabled bool `yaml:"discoveryEnabled"`

	// SyncInterval is how often the sync agent polls paired devices
	// that are not otherwise pushing changes.
	SyncInterval time.Duration `yaml:"syncInterval"`
}

// Default returns a Config with sensible defaults for a desktop install.
func Default() Config {
	return Config{
		DataDir:          defaultDataDir(),
		SyncPort:         7391,
		DiscoveryEnabled: true,
		SyncInterval:     5 * time.Minute,
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".vaultd"
	}
	return home + "/.vaultd"
}

// Load reads and parses a vaultd.yaml file at path, filling in defaults
// for any field left unset.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Save writes cfg to path as YAML, creating parent directories as
// needed.
func Save(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
