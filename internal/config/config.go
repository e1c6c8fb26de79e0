package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Config holds all application configuration
type Config struct {
	Tools   ToolsConfig   `toml:"tools"`
	Verify  VerifyConfig  `toml:"verify"`
	History HistoryConfig `toml:"history"`
}

// ToolsConfig names the external collaborator binaries
type ToolsConfig struct {
	Cargo  string `toml:"cargo"`
	Klee   string `toml:"klee"`
	LLVMNm string `toml:"llvm_nm"`
}

// VerifyConfig holds verification-run defaults
type VerifyConfig struct {
	Backend      string   `toml:"backend"`
	Jobs         int      `toml:"jobs"`
	BackendFlags []string `toml:"backend_flags"`
}

// HistoryConfig holds run-history settings
type HistoryConfig struct {
	DatabasePath string `toml:"database_path"`
}

// Default returns a Config with sensible defaults
func Default() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		Tools: ToolsConfig{
			Cargo:  "cargo",
			Klee:   "klee",
			LLVMNm: "llvm-nm",
		},
		Verify: VerifyConfig{
			Backend: "klee",
			Jobs:    0, // 0 = available parallelism
		},
		History: HistoryConfig{
			DatabasePath: filepath.Join(home, ".rustproof", "history.db"),
		},
	}
}

// Load reads configuration from a TOML file, falling back to defaults
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	cfg.History.DatabasePath = ExpandPath(cfg.History.DatabasePath)
	return cfg, nil
}

// ExpandPath expands ~ to the user's home directory
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// DefaultConfigPath returns the default config file location
func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "rustproof", "config.toml")
}
