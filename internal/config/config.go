package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// StateDir is the per-project directory holding config, logs and history.
const StateDir = ".betsytest"

// HistoryConfig represents run history configuration
type HistoryConfig struct {
	// Enabled records every run in the history database
	Enabled bool `yaml:"enabled"`

	// DBPath is the path to the SQLite history database
	DBPath string `yaml:"db_path"`
}

// Config represents betsytest configuration options
type Config struct {
	// Tool is the compiler/interpreter under test
	Tool string `yaml:"tool"`

	// Extension is the source file extension, without leading dot
	Extension string `yaml:"extension"`

	// SimCommand and ComCommand are the tool subcommands for the two modes
	SimCommand string `yaml:"sim_command"`
	ComCommand string `yaml:"com_command"`

	// CCompiler is the argv used to compile the generated C source
	CCompiler []string `yaml:"c_compiler"`

	// GeneratedSource is the file name the tool writes in compile mode
	GeneratedSource string `yaml:"generated_source"`

	// Program is the executable name produced by CCompiler
	Program string `yaml:"program"`

	// WorkDir holds the per-case compile workspaces
	WorkDir string `yaml:"work_dir"`

	// ExcludeDirs are directory names never walked
	ExcludeDirs []string `yaml:"exclude_dirs"`

	// Timeout bounds each subprocess (0 = no timeout)
	Timeout time.Duration `yaml:"timeout"`

	// LogLevel sets the logging verbosity (trace, debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	// LogDir is the directory where run logs will be written
	LogDir string `yaml:"log_dir"`

	// Strict makes a verify run with failures exit non-zero
	Strict bool `yaml:"strict"`

	// Diff prints a line diff after each mismatch dump
	Diff bool `yaml:"diff"`

	// History contains run history configuration
	History HistoryConfig `yaml:"history"`
}

// Overrides carries CLI flag values. Non-nil fields take precedence over
// the configuration file.
type Overrides struct {
	Tool      *string
	Extension *string
	Timeout   *time.Duration
	LogLevel  *string
	Strict    *bool
	Diff      *bool
	NoHistory *bool
}

// DefaultConfig returns a Config with the toolchain defaults of the host platform
func DefaultConfig() *Config {
	cfg := &Config{
		Tool:            "betsy",
		Extension:       "betsy",
		SimCommand:      "sim",
		ComCommand:      "com",
		CCompiler:       DefaultCCompiler("out.c", "out"),
		GeneratedSource: "out.c",
		Program:         "out",
		WorkDir:         filepath.Join(StateDir, "work"),
		ExcludeDirs:     []string{".git", StateDir},
		Timeout:         0, // No timeout
		LogLevel:        "info",
		LogDir:          filepath.Join(StateDir, "logs"),
		Strict:          false,
		Diff:            false,
		History: HistoryConfig{
			Enabled: true,
			DBPath:  filepath.Join(StateDir, "history.db"),
		},
	}

	if runtime.GOOS == "windows" {
		cfg.Tool = "betsy.exe"
		cfg.Program = "out.exe"
		cfg.CCompiler = DefaultCCompiler(cfg.GeneratedSource, cfg.Program)
	}

	return cfg
}

// DefaultCCompiler returns the host compiler command that builds program
// from source.
func DefaultCCompiler(source, program string) []string {
	if runtime.GOOS == "windows" {
		return []string{"cl", "/Fe" + program, source}
	}
	return []string{"cc", "-o", program, source}
}

// LoadConfig loads configuration from the specified file path
// If the file doesn't exist, returns default configuration without error
// If the file exists but is malformed, returns an error
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Use a temporary struct to handle duration parsing
	type yamlConfig struct {
		Tool            string        `yaml:"tool"`
		Extension       string        `yaml:"extension"`
		SimCommand      string        `yaml:"sim_command"`
		ComCommand      string        `yaml:"com_command"`
		CCompiler       []string      `yaml:"c_compiler"`
		GeneratedSource string        `yaml:"generated_source"`
		Program         string        `yaml:"program"`
		WorkDir         string        `yaml:"work_dir"`
		ExcludeDirs     []string      `yaml:"exclude_dirs"`
		Timeout         string        `yaml:"timeout"`
		LogLevel        string        `yaml:"log_level"`
		LogDir          string        `yaml:"log_dir"`
		Strict          bool          `yaml:"strict"`
		Diff            bool          `yaml:"diff"`
		History         HistoryConfig `yaml:"history"`
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Apply non-zero values from file (merging with defaults)
	if yamlCfg.Tool != "" {
		cfg.Tool = yamlCfg.Tool
	}
	if yamlCfg.Extension != "" {
		cfg.Extension = yamlCfg.Extension
	}
	if yamlCfg.SimCommand != "" {
		cfg.SimCommand = yamlCfg.SimCommand
	}
	if yamlCfg.ComCommand != "" {
		cfg.ComCommand = yamlCfg.ComCommand
	}
	if yamlCfg.GeneratedSource != "" {
		cfg.GeneratedSource = yamlCfg.GeneratedSource
	}
	if yamlCfg.Program != "" {
		cfg.Program = yamlCfg.Program
	}
	// The default compiler command follows renamed source and program files
	if len(yamlCfg.CCompiler) > 0 {
		cfg.CCompiler = yamlCfg.CCompiler
	} else {
		cfg.CCompiler = DefaultCCompiler(cfg.GeneratedSource, cfg.Program)
	}
	if yamlCfg.WorkDir != "" {
		cfg.WorkDir = yamlCfg.WorkDir
	}
	if yamlCfg.ExcludeDirs != nil {
		cfg.ExcludeDirs = yamlCfg.ExcludeDirs
	}
	if yamlCfg.Timeout != "" {
		timeout, err := time.ParseDuration(yamlCfg.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout format %q: %w", yamlCfg.Timeout, err)
		}
		cfg.Timeout = timeout
	}
	if yamlCfg.LogLevel != "" {
		cfg.LogLevel = yamlCfg.LogLevel
	}
	if yamlCfg.LogDir != "" {
		cfg.LogDir = yamlCfg.LogDir
	}
	if yamlCfg.Strict {
		cfg.Strict = yamlCfg.Strict
	}
	if yamlCfg.Diff {
		cfg.Diff = yamlCfg.Diff
	}

	// history.enabled defaults to true, so presence has to be detected
	// on the raw document rather than on the zero value
	var rawMap map[string]interface{}
	if err := yaml.Unmarshal(data, &rawMap); err == nil {
		if historySection, exists := rawMap["history"]; exists && historySection != nil {
			historyMap, _ := historySection.(map[string]interface{})

			if _, exists := historyMap["enabled"]; exists {
				cfg.History.Enabled = yamlCfg.History.Enabled
			}
			if _, exists := historyMap["db_path"]; exists {
				cfg.History.DBPath = yamlCfg.History.DBPath
			}
		}
	}

	return cfg, nil
}

// LoadConfigFromDir loads configuration from .betsytest/config.yaml in the specified directory
// If the directory or file doesn't exist, returns default configuration without error
func LoadConfigFromDir(dir string) (*Config, error) {
	configPath := filepath.Join(dir, StateDir, "config.yaml")
	return LoadConfig(configPath)
}

// MergeWithFlags merges CLI flags into the configuration
// Non-nil flag values override configuration values
func (c *Config) MergeWithFlags(o Overrides) {
	if o.Tool != nil {
		c.Tool = *o.Tool
	}
	if o.Extension != nil {
		c.Extension = *o.Extension
	}
	if o.Timeout != nil {
		c.Timeout = *o.Timeout
	}
	if o.LogLevel != nil {
		c.LogLevel = *o.LogLevel
	}
	if o.Strict != nil {
		c.Strict = *o.Strict
	}
	if o.Diff != nil {
		c.Diff = *o.Diff
	}
	if o.NoHistory != nil && *o.NoHistory {
		c.History.Enabled = false
	}
}

// Validate validates the configuration values
// Returns an error if any values are invalid
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Tool) == "" {
		return fmt.Errorf("tool must not be empty")
	}

	if c.Extension == "" || strings.Contains(c.Extension, ".") {
		return fmt.Errorf("invalid extension %q, must be non-empty and without dots", c.Extension)
	}

	if c.SimCommand == "" || c.ComCommand == "" {
		return fmt.Errorf("sim_command and com_command must not be empty")
	}

	if len(c.CCompiler) == 0 || c.CCompiler[0] == "" {
		return fmt.Errorf("c_compiler must name a compiler executable")
	}

	// Both names are resolved inside the per-case workspace
	if c.GeneratedSource == "" || filepath.Base(c.GeneratedSource) != c.GeneratedSource {
		return fmt.Errorf("invalid generated_source %q, must be a bare file name", c.GeneratedSource)
	}
	if c.Program == "" || filepath.Base(c.Program) != c.Program {
		return fmt.Errorf("invalid program %q, must be a bare file name", c.Program)
	}

	if c.WorkDir == "" {
		return fmt.Errorf("work_dir must not be empty")
	}

	validLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("invalid log_level %q, must be one of: trace, debug, info, warn, error", c.LogLevel)
	}

	// Timeout can be 0 (no timeout) or positive, negative is invalid
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must be >= 0, got %v", c.Timeout)
	}

	if c.History.Enabled && c.History.DBPath == "" {
		return fmt.Errorf("history.db_path must not be empty when history is enabled")
	}

	return nil
}
