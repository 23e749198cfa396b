package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// KernelConfig controls which kernel runs the notebooks and how.
type KernelConfig struct {
	// Name is the kernel identifier. Empty means python<InterpreterMajor>.
	Name string `yaml:"name"`

	// InterpreterMajor is the interpreter major version used to derive Name.
	// 0 means probe the executable.
	InterpreterMajor int `yaml:"interpreter_major"`

	// Executable is the interpreter command. Empty means the kernel name.
	Executable string `yaml:"executable"`

	// Timeout bounds each cell.
	Timeout time.Duration `yaml:"timeout"`

	// WorkDir is the kernel's working directory. Empty means the project root.
	WorkDir string `yaml:"work_dir"`

	// AllowErrors keeps executing after a cell error instead of stopping.
	AllowErrors bool `yaml:"allow_errors"`
}

// HistoryConfig controls the run history database.
type HistoryConfig struct {
	// Enabled records every notebook run
	Enabled bool `yaml:"enabled"`

	// DBPath is the path to the history database
	DBPath string `yaml:"db_path"`
}

// Config represents nbcheck configuration options
type Config struct {
	// NotebooksDir is the directory discovery globs are evaluated in
	NotebooksDir string `yaml:"notebooks_dir"`

	// Patterns are filename globs matched inside NotebooksDir
	Patterns []string `yaml:"patterns"`

	// Notebooks are explicitly listed notebooks, relative to NotebooksDir
	Notebooks []string `yaml:"notebooks"`

	// SkipMarker is the traceback token that marks an intentional skip
	SkipMarker string `yaml:"skip_marker"`

	// FailFast stops the suite after the first failing notebook
	FailFast bool `yaml:"fail_fast"`

	// OutputDir receives executed notebooks when set
	OutputDir string `yaml:"output_dir"`

	// LogLevel sets the logging verbosity (trace, debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	// LogDir is the directory where run logs will be written
	LogDir string `yaml:"log_dir"`

	// Kernel contains kernel configuration
	Kernel KernelConfig `yaml:"kernel"`

	// History contains run history configuration
	History HistoryConfig `yaml:"history"`
}

// DefaultConfig returns a Config with sensible default values
func DefaultConfig() *Config {
	return &Config{
		NotebooksDir: "notebooks",
		Patterns:     []string{"basic*.ipynb"},
		Notebooks:    []string{"introduction_python.ipynb", "introduction_quickstart.ipynb"},
		SkipMarker:   "SKIP",
		FailFast:     false,
		OutputDir:    "",
		LogLevel:     "info",
		LogDir:       filepath.Join(DirName, "logs"),
		Kernel: KernelConfig{
			Timeout: 1000 * time.Second,
		},
		History: HistoryConfig{
			Enabled: true,
			DBPath:  filepath.Join(DirName, "history.db"),
		},
	}
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

	// Durations are read as strings so "1000s" and "20m" both work
	type yamlKernel struct {
		Name             string `yaml:"name"`
		InterpreterMajor int    `yaml:"interpreter_major"`
		Executable       string `yaml:"executable"`
		Timeout          string `yaml:"timeout"`
		WorkDir          string `yaml:"work_dir"`
		AllowErrors      bool   `yaml:"allow_errors"`
	}
	type yamlConfig struct {
		NotebooksDir string        `yaml:"notebooks_dir"`
		Patterns     []string      `yaml:"patterns"`
		Notebooks    []string      `yaml:"notebooks"`
		SkipMarker   string        `yaml:"skip_marker"`
		FailFast     bool          `yaml:"fail_fast"`
		OutputDir    string        `yaml:"output_dir"`
		LogLevel     string        `yaml:"log_level"`
		LogDir       string        `yaml:"log_dir"`
		Kernel       yamlKernel    `yaml:"kernel"`
		History      HistoryConfig `yaml:"history"`
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if yamlCfg.NotebooksDir != "" {
		cfg.NotebooksDir = yamlCfg.NotebooksDir
	}
	if yamlCfg.SkipMarker != "" {
		cfg.SkipMarker = yamlCfg.SkipMarker
	}
	if yamlCfg.FailFast {
		cfg.FailFast = yamlCfg.FailFast
	}
	if yamlCfg.LogLevel != "" {
		cfg.LogLevel = yamlCfg.LogLevel
	}

	// Lists and nested sections are merged by key presence, so an explicit
	// empty list or a false flag overrides the default
	var rawMap map[string]interface{}
	if err := yaml.Unmarshal(data, &rawMap); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// An explicit empty output_dir or log_dir turns that output off
	if _, exists := rawMap["output_dir"]; exists {
		cfg.OutputDir = yamlCfg.OutputDir
	}
	if _, exists := rawMap["log_dir"]; exists {
		cfg.LogDir = yamlCfg.LogDir
	}
	if _, exists := rawMap["patterns"]; exists {
		cfg.Patterns = yamlCfg.Patterns
	}
	if _, exists := rawMap["notebooks"]; exists {
		cfg.Notebooks = yamlCfg.Notebooks
	}

	if kernelSection, exists := rawMap["kernel"]; exists && kernelSection != nil {
		kernelMap, _ := kernelSection.(map[string]interface{})
		k := yamlCfg.Kernel

		if _, exists := kernelMap["name"]; exists {
			cfg.Kernel.Name = k.Name
		}
		if _, exists := kernelMap["interpreter_major"]; exists {
			cfg.Kernel.InterpreterMajor = k.InterpreterMajor
		}
		if _, exists := kernelMap["executable"]; exists {
			cfg.Kernel.Executable = k.Executable
		}
		if _, exists := kernelMap["timeout"]; exists && k.Timeout != "" {
			timeout, err := time.ParseDuration(k.Timeout)
			if err != nil {
				return nil, fmt.Errorf("invalid kernel.timeout format %q: %w", k.Timeout, err)
			}
			cfg.Kernel.Timeout = timeout
		}
		if _, exists := kernelMap["work_dir"]; exists {
			cfg.Kernel.WorkDir = k.WorkDir
		}
		if _, exists := kernelMap["allow_errors"]; exists {
			cfg.Kernel.AllowErrors = k.AllowErrors
		}
	}

	if historySection, exists := rawMap["history"]; exists && historySection != nil {
		historyMap, _ := historySection.(map[string]interface{})

		if _, exists := historyMap["enabled"]; exists {
			cfg.History.Enabled = yamlCfg.History.Enabled
		}
		if _, exists := historyMap["db_path"]; exists {
			cfg.History.DBPath = yamlCfg.History.DBPath
		}
	}

	return cfg, nil
}

// LoadConfigFromDir loads configuration from .nbcheck/config.yaml in the specified directory
// If the directory or file doesn't exist, returns default configuration without error
func LoadConfigFromDir(dir string) (*Config, error) {
	return LoadConfig(filepath.Join(dir, DirName, FileName))
}

// Overrides carries CLI flag values. Nil fields leave the configuration unchanged.
type Overrides struct {
	KernelName  *string
	Timeout     *time.Duration
	WorkDir     *string
	OutputDir   *string
	LogDir      *string
	LogLevel    *string
	FailFast    *bool
	AllowErrors *bool
	NoHistory   *bool
}

// MergeWithFlags merges CLI flags into the configuration
// Non-nil flag values override configuration values
func (c *Config) MergeWithFlags(o Overrides) {
	if o.KernelName != nil {
		c.Kernel.Name = *o.KernelName
	}
	if o.Timeout != nil {
		c.Kernel.Timeout = *o.Timeout
	}
	if o.WorkDir != nil {
		c.Kernel.WorkDir = *o.WorkDir
	}
	if o.OutputDir != nil {
		c.OutputDir = *o.OutputDir
	}
	if o.LogDir != nil {
		c.LogDir = *o.LogDir
	}
	if o.LogLevel != nil {
		c.LogLevel = *o.LogLevel
	}
	if o.FailFast != nil {
		c.FailFast = *o.FailFast
	}
	if o.AllowErrors != nil {
		c.Kernel.AllowErrors = *o.AllowErrors
	}
	if o.NoHistory != nil && *o.NoHistory {
		c.History.Enabled = false
	}
}

// Validate validates the configuration values
// Returns an error if any values are invalid
func (c *Config) Validate() error {
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

	if strings.TrimSpace(c.SkipMarker) == "" {
		return fmt.Errorf("skip_marker cannot be empty")
	}

	if len(c.Patterns) == 0 && len(c.Notebooks) == 0 {
		return fmt.Errorf("at least one of patterns or notebooks must be set")
	}

	// Timeout can be 0 (default per-cell timeout) or positive, negative is invalid
	if c.Kernel.Timeout < 0 {
		return fmt.Errorf("kernel.timeout must be >= 0, got %v", c.Kernel.Timeout)
	}
	if c.Kernel.InterpreterMajor < 0 {
		return fmt.Errorf("kernel.interpreter_major must be >= 0, got %d", c.Kernel.InterpreterMajor)
	}

	if c.History.Enabled && c.History.DBPath == "" {
		return fmt.Errorf("history.db_path cannot be empty when history is enabled")
	}

	return nil
}
