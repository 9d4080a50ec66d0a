// Package settings manages persistent user settings for the portfinder CLI.
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"
)

const (
	DefaultInventoryFile = "/etc/portfinder/inventory.yaml"
	DefaultListenAddr    = ":8080"
)

// Settings holds persistent user preferences
type Settings struct {
	// InventoryFile is the fleet inventory used when --inventory is not given
	InventoryFile string `json:"inventory_file,omitempty"`

	// MaxParallel bounds concurrent device fetches
	MaxParallel int `json:"max_parallel,omitempty"`

	// CommandTimeout bounds each device command, as a Go duration string
	CommandTimeout string `json:"command_timeout,omitempty"`

	// RedisAddr enables the per-host change lock when set
	RedisAddr string `json:"redis_addr,omitempty"`

	// ListenAddr is the default address for portfinder serve
	ListenAddr string `json:"listen_addr,omitempty"`
}

// DefaultSettingsPath returns the default path for the settings file
func DefaultSettingsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "portfinder_settings.json"
	}
	return filepath.Join(home, ".portfinder", "settings.json")
}

// Load reads settings from the default location
func Load() (*Settings, error) {
	return LoadFrom(DefaultSettingsPath())
}

// LoadFrom reads settings from a specific path. A missing file yields empty
// settings.
func LoadFrom(path string) (*Settings, error) {
	s := &Settings{}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return s, nil
}

// Save writes settings to the default location
func (s *Settings) Save() error {
	return s.SaveTo(DefaultSettingsPath())
}

// SaveTo writes settings to a specific path
func (s *Settings) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// GetInventoryFile returns the inventory path (with fallback)
func (s *Settings) GetInventoryFile() string {
	if s.InventoryFile != "" {
		return s.InventoryFile
	}
	return DefaultInventoryFile
}

// GetCommandTimeout returns the parsed command timeout, or 0 when unset or
// unparsable so callers fall back to the transport default.
func (s *Settings) GetCommandTimeout() time.Duration {
	if s.CommandTimeout == "" {
		return 0
	}
	d, err := time.ParseDuration(s.CommandTimeout)
	if err != nil {
		return 0
	}
	return d
}

// GetListenAddr returns the HTTP listen address (with fallback)
func (s *Settings) GetListenAddr() string {
	if s.ListenAddr != "" {
		return s.ListenAddr
	}
	return DefaultListenAddr
}

// Keys lists the names accepted by Set, sorted.
func Keys() []string {
	keys := []string{"inventory_file", "max_parallel", "command_timeout", "redis_addr", "listen_addr"}
	sort.Strings(keys)
	return keys
}

// Set assigns one setting by its JSON name. An empty value clears it.
func (s *Settings) Set(key, value string) error {
	switch key {
	case "inventory_file":
		s.InventoryFile = value
	case "redis_addr":
		s.RedisAddr = value
	case "listen_addr":
		s.ListenAddr = value
	case "max_parallel":
		if value == "" {
			s.MaxParallel = 0
			return nil
		}
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("max_parallel must be a non-negative integer, got %q", value)
		}
		s.MaxParallel = n
	case "command_timeout":
		if value != "" {
			if _, err := time.ParseDuration(value); err != nil {
				return fmt.Errorf("command_timeout must be a duration like 30s: %w", err)
			}
		}
		s.CommandTimeout = value
	default:
		return fmt.Errorf("unknown setting %q (valid: %v)", key, Keys())
	}
	return nil
}

// Clear resets all settings to defaults
func (s *Settings) Clear() {
	*s = Settings{}
}
