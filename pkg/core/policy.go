package core

// =============================================================================
// Access policies
// =============================================================================

// AccessPolicy grants a set of permissions on a set of datasets to a set of
// roles. Policies are loaded from configuration and immutable afterward.
type AccessPolicy struct {
	Name        string   `json:"name" koanf:"name"`
	Description string   `json:"description,omitempty" koanf:"description"`
	Roles       []string `json:"roles" koanf:"roles"`
	Datasets    []string `json:"datasets" koanf:"datasets"`
	Permissions []string `json:"permissions" koanf:"permissions"`
}

// Effect is the outcome of an access check.
type Effect string

// Access check outcomes. Deny is the default when no policy matches.
const (
	EffectAllow Effect = "allow"
	EffectDeny  Effect = "deny"
)

// Decision records the outcome of a single access check for the audit log.
type Decision struct {
	Role       string `json:"role"`
	Dataset    string `json:"dataset"`
	Permission string `json:"permission"`
	Effect     Effect `json:"effect"`

	// Policy is the name of the policy that granted access, empty on deny.
	Policy string `json:"policy,omitempty"`
}

// Allowed reports whether the decision granted access.
func (d Decision) Allowed() bool {
	return d.Effect == EffectAllow
}

// =============================================================================
// Quality rule parameters
// =============================================================================

// QualityRuleConfig holds the raw parameters of one configured quality rule.
// The quality package decodes Params into the typed options of the rule kind.
type QualityRuleConfig struct {
	// Name identifies the rule in quality issues and the audit log.
	Name string `json:"name" koanf:"name"`

	// Type selects the rule kind: recency, pattern, bounds, starlark.
	Type string `json:"type" koanf:"type"`

	// Column is the field the rule applies to.
	Column string `json:"column" koanf:"column"`

	// Severity is the reported severity for violations (default "warning").
	Severity string `json:"severity,omitempty" koanf:"severity"`

	// Params carries rule-specific options (window sizes, regex, bounds,
	// starlark file and function).
	Params map[string]any `json:"params,omitempty" koanf:"params"`
}

// =============================================================================
// Transformations
// =============================================================================

// TransformationConfig describes one governed SQL transformation executed
// after validation. Inputs name tables already loaded into the adapter;
// the result is written to the processed output location as Output.csv.
type TransformationConfig struct {
	Name   string   `json:"name" koanf:"name"`
	SQL    string   `json:"sql" koanf:"sql"`
	Inputs []string `json:"inputs" koanf:"inputs"`
	Output string   `json:"output" koanf:"output"`
	Notes  string   `json:"notes,omitempty" koanf:"notes"`
}

// =============================================================================
// PolicySet
// =============================================================================

// PolicySet is the full set of governance rules loaded from configuration.
// It is loaded once at the start of a run and immutable afterward.
type PolicySet struct {
	// Regulations maps a regulation identifier to a human-readable summary
	// (e.g. "lgpd" -> "Brazilian data protection law ...").
	Regulations map[string]string `json:"regulations,omitempty" koanf:"regulations"`

	// AccessPolicies are evaluated in configuration order; first match wins.
	AccessPolicies []AccessPolicy `json:"access_policies" koanf:"access_policies"`

	// QualityRules maps dataset name to the rules applied to its rows.
	QualityRules map[string][]QualityRuleConfig `json:"quality_rules,omitempty" koanf:"quality_rules"`
}
