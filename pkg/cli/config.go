package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// UserConfig represents ~/.principalctl/config.yaml.
type UserConfig struct {
	CurrentProfile string             `yaml:"current-profile"`
	Profiles       map[string]Profile `yaml:"profiles"`
}

// Profile is a named set of flag defaults.
type Profile struct {
	DB     string `yaml:"db,omitempty"`
	Output string `yaml:"output,omitempty"`
	As     string `yaml:"as,omitempty"`
}

// ActiveProfile returns the profile to use based on the override or current-profile.
func (c *UserConfig) ActiveProfile(override string) Profile {
	name := c.CurrentProfile
	if override != "" {
		name = override
	}
	return c.Profiles[name]
}

// ConfigPath returns the path to ~/.principalctl/config.yaml.
func ConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".principalctl", "config.yaml")
}

// LoadUserConfig reads the user config. A missing file yields an empty config.
func LoadUserConfig() (*UserConfig, error) {
	cfg := &UserConfig{CurrentProfile: "default", Profiles: map[string]Profile{}}
	path := ConfigPath()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path) //nolint:gosec // fixed location under HOME
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.Profiles == nil {
		cfg.Profiles = map[string]Profile{}
	}
	return cfg, nil
}
