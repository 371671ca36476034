package config

// Output format names accepted by default_output and the --output flag.
const (
	OutputTable = "table"
	OutputJSON  = "json"
	OutputYAML  = "yaml"
)

// CLIConfig is the configuration for rollcall-cli.
type CLIConfig struct {
	// DefaultServer is used when neither --server nor a profile selects
	// an address.
	DefaultServer string `yaml:"default_server"`

	// DefaultOutput is the output format used when --output is not set.
	DefaultOutput string `yaml:"default_output"`

	// Profiles holds saved server profiles by name.
	Profiles map[string]Profile `yaml:"profiles,omitempty"`

	// CurrentProfile names the profile used when --profile is not set.
	// Empty falls back to DefaultServer.
	CurrentProfile string `yaml:"current_profile,omitempty"`
}

// Profile stores a saved server address.
type Profile struct {
	Server string `yaml:"server"`
}

// Default returns the default CLI configuration.
func Default() *CLIConfig {
	return &CLIConfig{
		DefaultServer: "http://127.0.0.1:5080",
		DefaultOutput: OutputTable,
		Profiles:      make(map[string]Profile),
	}
}
