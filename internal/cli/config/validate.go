package config

import (
	"fmt"
)

// Validate checks the loaded configuration for structural problems that
// must abort a run before any data is touched.
func (c *Config) Validate() error {
	if len(c.Assets) == 0 {
		return &ConfigError{Path: configFileUsed, Message: "no assets declared"}
	}
	if len(c.AccessPolicies) == 0 {
		return &ConfigError{Path: configFileUsed, Message: "no access_policies declared"}
	}

	seen := make(map[string]struct{}, len(c.Assets))
	for _, a := range c.Assets {
		if a.Name == "" {
			return &ConfigError{Path: configFileUsed, Message: "asset without a name"}
		}
		if _, dup := seen[a.Name]; dup {
			return &ConfigError{Path: configFileUsed, Message: fmt.Sprintf("duplicate asset %q", a.Name)}
		}
		seen[a.Name] = struct{}{}

		if a.Source == "" {
			return &ConfigError{Path: configFileUsed, Message: fmt.Sprintf("asset %q has no source", a.Name)}
		}
		if a.ReaderRole == "" {
			return &ConfigError{Path: configFileUsed, Message: fmt.Sprintf("asset %q has no reader_role", a.Name)}
		}

		// Fail early on bad sensitivity labels rather than at catalog build.
		if _, err := a.Asset(); err != nil {
			return err
		}
	}

	for i, p := range c.AccessPolicies {
		if p.Name == "" {
			return &ConfigError{Path: configFileUsed, Message: fmt.Sprintf("access policy #%d without a name", i+1)}
		}
	}

	// Quality rules may reference datasets that are not declared assets
	// (e.g. transformation outputs); only rule shape is checked here, rule
	// parameters are validated by the quality package at compile time.
	for dataset, rules := range c.QualityRules {
		for _, r := range rules {
			if r.Name == "" || r.Type == "" {
				return &ConfigError{Path: configFileUsed, Message: fmt.Sprintf("quality rule for %q requires name and type", dataset)}
			}
		}
	}

	for i, t := range c.Transformations {
		if t.Name == "" || t.SQL == "" || t.Output == "" {
			return &ConfigError{Path: configFileUsed, Message: fmt.Sprintf("transformation #%d requires name, sql and output", i+1)}
		}
	}

	return nil
}
