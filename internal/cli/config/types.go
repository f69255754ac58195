// Package config provides configuration management for the datagov CLI.
//
// Configuration is loaded from datagov.yaml with koanf, merged with
// environment variables (DATAGOV_ prefix) and CLI flags. The precedence,
// highest to lowest, is: flags > env vars > config file > defaults.
package config

import (
	"fmt"

	"github.com/leapstack-labs/datagov/pkg/core"
)

// Default values applied before any other configuration source.
const (
	DefaultConfigFile   = "datagov.yaml"
	DefaultRawDir       = "data/raw"
	DefaultProcessedDir = "data/processed"
	DefaultLogsDir      = "logs"
	DefaultStateFile    = ".datagov/state.db"
	DefaultEnv          = "dev"
)

// ConfigError indicates missing or malformed configuration.
// Errors of this kind abort the run before any data is touched.
type ConfigError struct {
	Path    string
	Message string
}

func (e *ConfigError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("invalid configuration: %s", e.Message)
	}
	return fmt.Sprintf("invalid configuration %s: %s", e.Path, e.Message)
}

// AssetConfig declares one governed dataset in the config file.
type AssetConfig struct {
	Name        string            `koanf:"name"`
	Description string            `koanf:"description"`
	Owner       string            `koanf:"owner"`
	Sensitivity string            `koanf:"sensitivity"`
	Tags        []string          `koanf:"tags"`
	Source      string            `koanf:"source"`
	Schema      map[string]string `koanf:"schema"`
	Regulations []string          `koanf:"regulations"`

	// ReaderRole is the role whose read access is enforced before the
	// asset's raw data is loaded.
	ReaderRole string `koanf:"reader_role"`
}

// Config holds all CLI configuration options.
type Config struct {
	ProjectRoot string `koanf:"-"`

	RawDir       string `koanf:"raw_dir"`
	ProcessedDir string `koanf:"processed_dir"`
	LogsDir      string `koanf:"logs_dir"`
	StatePath    string `koanf:"state_path"`
	Environment  string `koanf:"environment"`
	Verbose      bool   `koanf:"verbose"`

	// Target selects and configures the database adapter used to stage
	// datasets and run transformations. Defaults to in-memory DuckDB.
	Target *core.AdapterConfig `koanf:"target"`

	// ExecutedBy is recorded in lineage entries (default "datagov_pipeline").
	ExecutedBy string `koanf:"executed_by"`

	Regulations     map[string]string                   `koanf:"regulations"`
	AccessPolicies  []core.AccessPolicy                 `koanf:"access_policies"`
	QualityRules    map[string][]core.QualityRuleConfig `koanf:"quality_rules"`
	Assets          []AssetConfig                       `koanf:"assets"`
	Transformations []core.TransformationConfig         `koanf:"transformations"`
}

// PolicySet assembles the immutable policy view handed to the engine.
func (c *Config) PolicySet() *core.PolicySet {
	return &core.PolicySet{
		Regulations:    c.Regulations,
		AccessPolicies: c.AccessPolicies,
		QualityRules:   c.QualityRules,
	}
}

// Asset converts an AssetConfig into a core.Asset.
// Returns a ConfigError when the sensitivity label is unknown.
func (a *AssetConfig) Asset() (*core.Asset, error) {
	sensitivity, ok := core.ParseSensitivity(a.Sensitivity)
	if a.Sensitivity != "" && !ok {
		return nil, &ConfigError{Message: fmt.Sprintf("asset %q: unknown sensitivity %q", a.Name, a.Sensitivity)}
	}
	if a.Sensitivity == "" {
		// Unclassified data is treated as restricted until someone says otherwise.
		sensitivity = core.SensitivityRestricted
	}

	return &core.Asset{
		Name:        a.Name,
		Description: a.Description,
		Owner:       a.Owner,
		Sensitivity: sensitivity,
		Tags:        a.Tags,
		SourcePath:  a.Source,
		Schema:      a.Schema,
		Regulations: a.Regulations,
	}, nil
}
