// Package config loads per-profile configuration for todopro.
//
// Each profile owns a directory under ~/.todopro holding its config file,
// local database, sync state, conflict log, and logs. Services receive an
// explicit *Profile instead of reading globals, which keeps them testable
// with throwaway directories.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// DefaultProfile is used when no --profile flag is given.
const DefaultProfile = "default"

// Config is the per-profile configuration, read from config.yaml.
type Config struct {
	API struct {
		Endpoint string `mapstructure:"endpoint"`
		Token    string `mapstructure:"token"`
		Timeout  int    `mapstructure:"timeout"` // seconds
		Retry    int    `mapstructure:"retry"`
	} `mapstructure:"api"`
	Sync struct {
		Parallel bool `mapstructure:"parallel"`
	} `mapstructure:"sync"`
}

// Profile bundles a profile's configuration with its on-disk layout.
type Profile struct {
	Name   string
	Dir    string
	Config Config

	v *viper.Viper
}

// Load reads the profile's config.yaml, creating the profile directory if
// needed. A missing config file yields defaults.
func Load(name string) (*Profile, error) {
	if name == "" {
		name = DefaultProfile
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to locate home directory: %w", err)
	}
	return LoadDir(name, filepath.Join(home, ".todopro", name))
}

// LoadDir is Load with an explicit profile directory, for tests.
func LoadDir(name, dir string) (*Profile, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create profile directory: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)

	v.SetDefault("api.endpoint", "http://localhost:8000")
	v.SetDefault("api.timeout", 30)
	v.SetDefault("api.retry", 3)
	v.SetDefault("sync.parallel", true)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config for profile %s: %w", name, err)
		}
	}

	p := &Profile{Name: name, Dir: dir, v: v}
	if err := v.Unmarshal(&p.Config); err != nil {
		return nil, fmt.Errorf("failed to parse config for profile %s: %w", name, err)
	}
	return p, nil
}

// SaveToken persists a new API token into the profile's config file.
func (p *Profile) SaveToken(token string) error {
	p.v.Set("api.token", token)
	p.Config.API.Token = token
	if err := p.v.WriteConfigAs(filepath.Join(p.Dir, "config.yaml")); err != nil {
		return fmt.Errorf("failed to write config for profile %s: %w", p.Name, err)
	}
	return nil
}

// APITimeout returns the configured request timeout as a duration.
func (p *Profile) APITimeout() time.Duration {
	return time.Duration(p.Config.API.Timeout) * time.Second
}

// DBPath is the local embedded store.
func (p *Profile) DBPath() string { return filepath.Join(p.Dir, "local.db") }

// StatePath is the sync cursor file.
func (p *Profile) StatePath() string { return filepath.Join(p.Dir, "sync-state.json") }

// ConflictsPath is the durable conflict log.
func (p *Profile) ConflictsPath() string { return filepath.Join(p.Dir, "sync-conflicts.json") }

// LogPath is the rotating CLI log file.
func (p *Profile) LogPath() string { return filepath.Join(p.Dir, "logs", "todopro.log") }
