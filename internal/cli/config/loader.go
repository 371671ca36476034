package config

import (
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"
)

// DefaultConfigPath returns the default CLI config file path.
func DefaultConfigPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".rollcall", "cli.yaml")
}

// Load loads CLI configuration from file. A missing file yields the
// defaults; a present but malformed file is an error.
func Load(path string) (*CLIConfig, error) {
	if path == "" {
		path = DefaultConfigPath()
	}

	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if cfg.Profiles == nil {
		cfg.Profiles = make(map[string]Profile)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return cfg, nil
}

// Save writes CLI configuration to file, creating the directory as
// needed. The file is user-only readable.
func Save(cfg *CLIConfig, path string) error {
	if path == "" {
		path = DefaultConfigPath()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	return os.WriteFile(path, data, 0o600)
}

// Validate checks the configuration for inconsistencies.
func Validate(cfg *CLIConfig) error {
	switch cfg.DefaultOutput {
	case "", OutputTable, OutputJSON, OutputYAML:
	default:
		return fmt.Errorf("default_output must be %s, %s, or %s, got %q",
			OutputTable, OutputJSON, OutputYAML, cfg.DefaultOutput)
	}

	for name, p := range cfg.Profiles {
		if p.Server == "" {
			return fmt.Errorf("profile %q has no server", name)
		}
	}

	if cfg.CurrentProfile != "" {
		if _, ok := cfg.Profiles[cfg.CurrentProfile]; !ok {
			return fmt.Errorf("current_profile %q is not a saved profile", cfg.CurrentProfile)
		}
	}

	return nil
}
