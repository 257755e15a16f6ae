package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for scoop
type Config struct {
	// Output configuration
	OutputDir string `yaml:"output_dir"`

	// History database; empty disables persistence
	DBPath      string `yaml:"db_path"`
	SaveHistory bool   `yaml:"save_history"`

	// Validate targets against the URL/host patterns before invoking
	Validate bool `yaml:"validate"`

	// Per-tool overrides keyed by tool kind (e.g. "nuclei-url-scan")
	Tools map[string]ToolConfig `yaml:"tools,omitempty"`

	Server ServerConfig `yaml:"server"`

	// Debug
	Debug bool `yaml:"debug"`
}

// ToolConfig overrides how one tool kind is invoked.
type ToolConfig struct {
	Binary  string   `yaml:"binary,omitempty"`
	Timeout Duration `yaml:"timeout,omitempty"`
}

type ServerConfig struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	APIKey         string   `yaml:"api_key,omitempty"`
	AllowedOrigins []string `yaml:"allowed_origins,omitempty"`
	MaxInvocations int      `yaml:"max_invocations"`
}

// Duration is a time.Duration that reads and writes as "10m", "90s".
type Duration time.Duration

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Dir returns ~/.scoop, falling back to ./.scoop.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".scoop"
	}
	return filepath.Join(home, ".scoop")
}

// DefaultPath is the config file read when --config is not given.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	dir := Dir()
	return &Config{
		OutputDir:   filepath.Join(dir, "results"),
		DBPath:      filepath.Join(dir, "scoop.db"),
		SaveHistory: true,
		Tools:       map[string]ToolConfig{},
		Server: ServerConfig{
			Host:           "127.0.0.1", // localhost only unless configured
			Port:           8899,
			AllowedOrigins: []string{"http://localhost:8899", "http://127.0.0.1:8899"},
			MaxInvocations: 4,
		},
	}
}

// Load reads the YAML file at path on top of the defaults, then applies
// .env and environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if cfg.Tools == nil {
		cfg.Tools = map[string]ToolConfig{}
	}

	// .env in the working directory, then next to the config file.
	// godotenv never overrides variables that are already set.
	for _, envFile := range []string{".env", filepath.Join(filepath.Dir(path), ".env")} {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
			}
		}
	}
	cfg.applyEnv()

	cfg.OutputDir = expandHome(cfg.OutputDir)
	cfg.DBPath = expandHome(cfg.DBPath)
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("SCOOP_OUTPUT_DIR"); v != "" {
		c.OutputDir = v
	}
	if v := os.Getenv("SCOOP_DB"); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv("SCOOP_API_KEY"); v != "" {
		c.Server.APIKey = v
	}
}

// Save writes the config as YAML, creating the parent directory.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	// API key may be present
	return os.WriteFile(path, data, 0600)
}

func expandHome(p string) string {
	if strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, p[2:])
		}
	}
	return p
}
