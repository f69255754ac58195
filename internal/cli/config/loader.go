package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/leapstack-labs/datagov/pkg/core"
	"github.com/spf13/pflag"
)

// maxUpwardSearchLevels limits how far up the directory tree to search for
// config files.
const maxUpwardSearchLevels = 10

var configFileUsed string

// configExistsIn checks if a datagov config file exists in the directory.
func configExistsIn(dir string) bool {
	for _, name := range []string{"datagov.yaml", "datagov.yml"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}

// findProjectRootUpward searches upward from startDir for a datagov config
// file. Returns empty string if not found within maxUpwardSearchLevels.
func findProjectRootUpward(startDir string) string {
	dir := startDir
	for i := 0; i < maxUpwardSearchLevels; i++ {
		if configExistsIn(dir) {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root
			break
		}
		dir = parent
	}
	return ""
}

// inferProjectRoot determines the project root from CLI flags and filesystem.
// Priority:
//  1. Explicit --project-dir flag
//  2. Search upward from CWD for datagov.yaml
//  3. Current working directory
func inferProjectRoot(flags *pflag.FlagSet) string {
	if flags != nil && flags.Changed("project-dir") {
		if projectDir, _ := flags.GetString("project-dir"); projectDir != "" {
			if abs, err := filepath.Abs(projectDir); err == nil {
				return abs
			}
			return filepath.Clean(projectDir)
		}
	}

	if cwd, err := os.Getwd(); err == nil {
		if root := findProjectRootUpward(cwd); root != "" {
			return root
		}
	}

	cwd, _ := os.Getwd()
	if cwd == "" {
		cwd = "."
	}
	return cwd
}

// resolvePathRelativeTo resolves a path relative to baseDir if it's not
// absolute. Returns the path unchanged if it's empty or already absolute.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// LoadConfig loads configuration from file, environment variables, and flags.
// Precedence (highest to lowest): flags > env vars > config file > defaults.
//
// A missing config file is a ConfigError: the pipeline cannot run without a
// policy document.
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	projectRoot := inferProjectRoot(flags)

	// 1. Load defaults
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"raw_dir":       DefaultRawDir,
		"processed_dir": DefaultProcessedDir,
		"logs_dir":      DefaultLogsDir,
		"state_path":    DefaultStateFile,
		"environment":   DefaultEnv,
		"executed_by":   "datagov_pipeline",
		"verbose":       false,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Find and load the config file
	if cfgFile == "" {
		for _, name := range []string{"datagov.yaml", "datagov.yml"} {
			candidate := filepath.Join(projectRoot, name)
			if _, err := os.Stat(candidate); err == nil {
				cfgFile = candidate
				break
			}
		}
	} else if abs, err := filepath.Abs(cfgFile); err == nil {
		projectRoot = filepath.Dir(abs)
	}

	if cfgFile == "" {
		return nil, &ConfigError{Message: "no datagov.yaml found (run 'datagov init' to create one)"}
	}
	if _, err := os.Stat(cfgFile); err != nil {
		return nil, &ConfigError{Path: cfgFile, Message: "file not found"}
	}

	configFileUsed = cfgFile
	if err := k.Load(file.Provider(cfgFile), yaml.Parser()); err != nil {
		return nil, &ConfigError{Path: cfgFile, Message: err.Error()}
	}

	// 3. Load environment variables (DATAGOV_ prefix)
	// Transform: DATAGOV_RAW_DIR -> raw_dir
	if err := k.Load(env.Provider("DATAGOV_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "DATAGOV_"))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Load flags (highest priority)
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			// Only load flags that were explicitly set
			if !f.Changed {
				return "", nil
			}
			// Transform kebab-case to snake_case for config keys
			key := strings.ReplaceAll(f.Name, "-", "_")

			switch key {
			case "state":
				// shorthand for the state_path config key
				key = "state_path"
			case "env":
				key = "environment"
			case "config", "project_dir":
				// consumed before koanf loading
				return "", nil
			}

			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// 5. Unmarshal into Config struct
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, &ConfigError{Path: cfgFile, Message: fmt.Sprintf("unable to decode: %v", err)}
	}

	// 6. Resolve relative paths against the project root
	cfg.ProjectRoot = projectRoot
	cfg.RawDir = resolvePathRelativeTo(cfg.RawDir, projectRoot)
	cfg.ProcessedDir = resolvePathRelativeTo(cfg.ProcessedDir, projectRoot)
	cfg.LogsDir = resolvePathRelativeTo(cfg.LogsDir, projectRoot)
	cfg.StatePath = resolvePathRelativeTo(cfg.StatePath, projectRoot)
	for i := range cfg.Assets {
		cfg.Assets[i].Source = resolvePathRelativeTo(cfg.Assets[i].Source, cfg.RawDir)
	}
	resolveRuleFiles(cfg.QualityRules, projectRoot)

	// 7. Default target: in-memory DuckDB
	if cfg.Target == nil {
		cfg.Target = &core.AdapterConfig{Type: "duckdb"}
	}
	if cfg.Target.Type == "" {
		cfg.Target.Type = "duckdb"
	}
	if cfg.Target.Path != "" {
		cfg.Target.Path = resolvePathRelativeTo(cfg.Target.Path, projectRoot)
	}
	expandTargetEnvVars(cfg.Target)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Store config for access by commands
	currentConfig = &cfg

	return &cfg, nil
}

// resolveRuleFiles resolves the file parameter of starlark rules relative to
// the project root.
func resolveRuleFiles(rules map[string][]core.QualityRuleConfig, root string) {
	for _, list := range rules {
		for _, rc := range list {
			if !strings.EqualFold(rc.Type, "starlark") || rc.Params == nil {
				continue
			}
			if f, ok := rc.Params["file"].(string); ok {
				rc.Params["file"] = resolvePathRelativeTo(f, root)
			}
		}
	}
}

// GetConfigFileUsed returns the path to the config file being used, if any.
func GetConfigFileUsed() string {
	return configFileUsed
}

// expandEnvVars expands ${VAR} patterns with environment variable values.
func expandEnvVars(s string) string {
	return os.Expand(s, func(name string) string {
		if val := os.Getenv(name); val != "" {
			return val
		}
		return "${" + name + "}"
	})
}

// expandTargetEnvVars expands environment variables in sensitive target
// fields so credentials never live in the config file.
func expandTargetEnvVars(t *core.AdapterConfig) {
	if t == nil {
		return
	}
	t.Host = expandEnvVars(t.Host)
	t.User = expandEnvVars(t.User)
	t.Password = expandEnvVars(t.Password)
	t.Database = expandEnvVars(t.Database)
}
