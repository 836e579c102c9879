package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog/log"

	apperr "drawers/internal/errors"
)

// Config represents the application configuration
type Config struct {
	Drawers []Drawer      `json:"drawers"`
	Icons   IconConfig    `json:"icons"`
	Logging LoggingConfig `json:"logging"`
}

// Drawer represents one user-designated folder shown as a named bucket
type Drawer struct {
	Name   string   `json:"name"`
	Path   string   `json:"path"`
	Ignore []string `json:"ignore,omitempty"` // doublestar patterns matched against entry names
}

// Ignored reports whether an entry name matches any of the drawer's
// ignore patterns. Invalid patterns are skipped.
func (d Drawer) Ignored(name string) bool {
	for _, pattern := range d.Ignore {
		ok, err := doublestar.Match(pattern, name)
		if err != nil {
			log.Warn().Str("pattern", pattern).Str("drawer", d.Name).Msg("Invalid ignore pattern")
			continue
		}
		if ok {
			return true
		}
	}
	return false
}

// IconConfig represents icon-resolution settings
type IconConfig struct {
	FolderIconPath   string `json:"folderIconPath"`   // optional image file for the folder icon
	ThumbnailSize    int    `json:"thumbnailSize"`    // edge length in pixels for image thumbnails
	ResolveTimeoutMs int    `json:"resolveTimeoutMs"` // soft per-path resolution budget
}

// ResolveTimeout returns the per-path resolution budget as a duration.
func (c IconConfig) ResolveTimeout() time.Duration {
	return time.Duration(c.ResolveTimeoutMs) * time.Millisecond
}

// LoggingConfig represents logging settings
type LoggingConfig struct {
	Verbosity int `json:"verbosity"`
}

// Manager provides configuration management functionality
type Manager struct {
	configPath string
}

// NewManager creates a manager using the XDG config location
func NewManager() *Manager {
	path, err := xdg.ConfigFile(filepath.Join("drawers", "drawers.json"))
	if err != nil {
		path = "drawers.json"
	}
	return &Manager{configPath: path}
}

// NewManagerAt creates a manager for an explicit config file path
func NewManagerAt(path string) *Manager {
	return &Manager{configPath: path}
}

// Load loads configuration from file and merges with defaults.
// A missing file yields the defaults with no error.
func (m *Manager) Load() (*Config, error) {
	config := getDefaultConfig()

	data, err := os.ReadFile(m.configPath)
	if err != nil {
		log.Debug().Err(err).Str("path", m.configPath).Msg("Config file not found, using defaults")
		return config, nil
	}

	var fileConfig Config
	if err := json.Unmarshal(data, &fileConfig); err != nil {
		return nil, apperr.NewConfigError("load", "error parsing config file", err)
	}

	mergeConfigs(config, &fileConfig)
	config.Drawers = validDrawers(fileConfig.Drawers)
	return config, nil
}

// Save saves configuration to file
func (m *Manager) Save(config *Config) error {
	configDir := filepath.Dir(m.configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return apperr.NewConfigError("save", "error creating config directory", err)
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return apperr.NewConfigError("save", "error marshaling config", err)
	}

	if err := os.WriteFile(m.configPath, data, 0644); err != nil {
		return apperr.NewConfigError("save", "error writing config file", err)
	}

	return nil
}

// validDrawers keeps only well-formed drawer entries. Entries missing a
// name or path are dropped with a warning, never fatal.
func validDrawers(drawers []Drawer) []Drawer {
	valid := make([]Drawer, 0, len(drawers))
	for _, d := range drawers {
		if d.Name == "" || d.Path == "" {
			log.Warn().Str("name", d.Name).Str("path", d.Path).Msg("Dropping invalid drawer entry")
			continue
		}
		valid = append(valid, d)
	}
	return valid
}

// getDefaultConfig returns the default configuration
func getDefaultConfig() *Config {
	return &Config{
		Drawers: []Drawer{},
		Icons: IconConfig{
			FolderIconPath:   "",
			ThumbnailSize:    32,
			ResolveTimeoutMs: 1500,
		},
		Logging: LoggingConfig{
			Verbosity: 0,
		},
	}
}

// mergeConfigs merges file config values into default config
func mergeConfigs(defaultConfig *Config, fileConfig *Config) {
	if fileConfig.Icons.FolderIconPath != "" {
		defaultConfig.Icons.FolderIconPath = fileConfig.Icons.FolderIconPath
	}
	if fileConfig.Icons.ThumbnailSize != 0 {
		defaultConfig.Icons.ThumbnailSize = fileConfig.Icons.ThumbnailSize
	}
	if fileConfig.Icons.ResolveTimeoutMs != 0 {
		defaultConfig.Icons.ResolveTimeoutMs = fileConfig.Icons.ResolveTimeoutMs
	}
	if fileConfig.Logging.Verbosity != 0 {
		defaultConfig.Logging.Verbosity = fileConfig.Logging.Verbosity
	}
}
