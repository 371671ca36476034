package connection

import (
	"fmt"

	"github.com/mzhnv/rollcall-go/internal/cli/config"
)

// Manager resolves and persists named server profiles from the CLI
// config file.
type Manager struct {
	path string
	cfg  *config.CLIConfig
}

// NewManager creates a manager over the default config path. The file
// is read on Load.
func NewManager() *Manager {
	return NewManagerAt(config.DefaultConfigPath())
}

// NewManagerAt creates a manager over a specific config path.
func NewManagerAt(path string) *Manager {
	return &Manager{
		path: path,
		cfg:  config.Default(),
	}
}

// Load reads the config file. A missing file leaves the defaults in
// place.
func (m *Manager) Load() error {
	cfg, err := config.Load(m.path)
	if err != nil {
		return err
	}
	m.cfg = cfg
	return nil
}

// Config returns the loaded configuration.
func (m *Manager) Config() *config.CLIConfig {
	return m.cfg
}

// Path returns the config file path backing this manager.
func (m *Manager) Path() string {
	return m.path
}

// Profile returns the named profile.
func (m *Manager) Profile(name string) (config.Profile, bool) {
	p, ok := m.cfg.Profiles[name]
	return p, ok
}

// Resolve returns the server address for the named profile. An empty
// name falls back to the config's current profile, then to the default
// server.
func (m *Manager) Resolve(name string) (string, error) {
	if name == "" {
		name = m.cfg.CurrentProfile
	}
	if name != "" {
		p, ok := m.cfg.Profiles[name]
		if !ok {
			return "", fmt.Errorf("unknown profile %q", name)
		}
		return p.Server, nil
	}
	return m.cfg.DefaultServer, nil
}

// Use switches the current profile and saves the config file.
func (m *Manager) Use(name string) error {
	if _, ok := m.cfg.Profiles[name]; !ok {
		return fmt.Errorf("unknown profile %q", name)
	}
	m.cfg.CurrentProfile = name
	return config.Save(m.cfg, m.path)
}

// Set stores a profile and saves the config file.
func (m *Manager) Set(name string, p config.Profile) error {
	if name == "" {
		return fmt.Errorf("profile name required")
	}
	if p.Server == "" {
		return fmt.Errorf("profile %q has no server", name)
	}
	m.cfg.Profiles[name] = p
	return config.Save(m.cfg, m.path)
}
