// Package quality applies configured row-level quality rules to governed
// datasets. Built-in rule kinds (recency, pattern, bounds) cover the
// compliance checks shipped with datagov; custom predicates can be loaded
// from Starlark files for anything else.
//
// Rules are pure predicates with no shared mutable state. A row that fails
// one or more rules is excluded from the valid output and each failure is
// recorded as a core.QualityIssue; failures never abort the run.
package quality

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/leapstack-labs/datagov/pkg/core"
)

// RuleError is returned when a configured rule has malformed parameters.
type RuleError struct {
	Rule    string
	Message string
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("invalid quality rule %q: %s", e.Rule, e.Message)
}

// Rule is a compiled row-level predicate bound to one column.
type Rule interface {
	// Name returns the configured rule name.
	Name() string

	// Column returns the field the rule applies to.
	Column() string

	// Severity returns the severity reported for violations.
	Severity() core.Severity

	// Check evaluates the rule against a single value. It returns ok=true
	// when the value passes, or ok=false and a violation message.
	// now is the reference time for time-based rules; passing it in keeps
	// a whole validation pass consistent and testable.
	Check(value string, now time.Time) (ok bool, msg string)
}

// baseRule carries the fields shared by all rule kinds.
type baseRule struct {
	name     string
	column   string
	severity core.Severity
}

func (b baseRule) Name() string            { return b.name }
func (b baseRule) Column() string          { return b.column }
func (b baseRule) Severity() core.Severity { return b.severity }

// Compile turns a rule configuration into a compiled rule.
// Returns a RuleError when the type is unknown or the parameters are
// malformed.
func Compile(cfg core.QualityRuleConfig) (Rule, error) {
	if cfg.Name == "" {
		return nil, &RuleError{Rule: "(unnamed)", Message: "rule requires a name"}
	}
	if cfg.Column == "" {
		return nil, &RuleError{Rule: cfg.Name, Message: "rule requires a column"}
	}

	severity := defaultSeverity(cfg.Type)
	if cfg.Severity != "" {
		s, ok := core.ParseSeverity(cfg.Severity)
		if !ok {
			return nil, &RuleError{Rule: cfg.Name, Message: fmt.Sprintf("unknown severity %q", cfg.Severity)}
		}
		severity = s
	}

	base := baseRule{name: cfg.Name, column: cfg.Column, severity: severity}

	switch strings.ToLower(cfg.Type) {
	case "recency":
		return compileRecency(base, cfg)
	case "pattern":
		return compilePattern(base, cfg)
	case "bounds":
		return compileBounds(base, cfg)
	case "starlark":
		return compileStarlark(base, cfg)
	default:
		return nil, &RuleError{Rule: cfg.Name, Message: fmt.Sprintf("unknown rule type %q", cfg.Type)}
	}
}

// defaultSeverity returns the default severity for a rule kind.
func defaultSeverity(ruleType string) core.Severity {
	switch strings.ToLower(ruleType) {
	case "pattern":
		return core.SeverityError
	default:
		return core.SeverityWarning
	}
}

// decodeParams decodes the raw parameter map into a typed options struct.
func decodeParams(ruleName string, params map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return &RuleError{Rule: ruleName, Message: err.Error()}
	}
	if err := dec.Decode(params); err != nil {
		return &RuleError{Rule: ruleName, Message: fmt.Sprintf("bad parameters: %v", err)}
	}
	return nil
}

// =============================================================================
// recency
// =============================================================================

// dateLayouts are the accepted input formats for time-based rules.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

type recencyOptions struct {
	// MaxAgeDays is the size of the validity window in days.
	MaxAgeDays int `mapstructure:"max_age_days"`

	// AllowFuture accepts timestamps after the reference time.
	// Off by default: a consent date in the future is a data error.
	AllowFuture bool `mapstructure:"allow_future"`
}

type recencyRule struct {
	baseRule
	opts recencyOptions
}

func compileRecency(base baseRule, cfg core.QualityRuleConfig) (Rule, error) {
	var opts recencyOptions
	if err := decodeParams(cfg.Name, cfg.Params, &opts); err != nil {
		return nil, err
	}
	if opts.MaxAgeDays <= 0 {
		return nil, &RuleError{Rule: cfg.Name, Message: "max_age_days must be positive"}
	}
	return &recencyRule{baseRule: base, opts: opts}, nil
}

func (r *recencyRule) Check(value string, now time.Time) (bool, string) {
	t, err := parseDate(value)
	if err != nil {
		return false, fmt.Sprintf("invalid date %q", value)
	}

	if !r.opts.AllowFuture && t.After(now) {
		return false, fmt.Sprintf("date %q is in the future", value)
	}

	age := now.Sub(t)
	window := time.Duration(r.opts.MaxAgeDays) * 24 * time.Hour
	if age > window {
		days := int(age.Hours() / 24)
		return false, fmt.Sprintf("date %q is %d days old, window is %d days", value, days, r.opts.MaxAgeDays)
	}

	return true, ""
}

func parseDate(value string) (time.Time, error) {
	s := strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", value)
}

// =============================================================================
// pattern
// =============================================================================

type patternOptions struct {
	Regex string `mapstructure:"regex"`
}

type patternRule struct {
	baseRule
	re *regexp.Regexp
}

func compilePattern(base baseRule, cfg core.QualityRuleConfig) (Rule, error) {
	var opts patternOptions
	if err := decodeParams(cfg.Name, cfg.Params, &opts); err != nil {
		return nil, err
	}
	if opts.Regex == "" {
		return nil, &RuleError{Rule: cfg.Name, Message: "regex is required"}
	}
	re, err := regexp.Compile(opts.Regex)
	if err != nil {
		return nil, &RuleError{Rule: cfg.Name, Message: fmt.Sprintf("bad regex: %v", err)}
	}
	return &patternRule{baseRule: base, re: re}, nil
}

func (r *patternRule) Check(value string, _ time.Time) (bool, string) {
	if r.re.MatchString(value) {
		return true, ""
	}
	return false, fmt.Sprintf("value %q does not match pattern %s", value, r.re.String())
}

// =============================================================================
// bounds
// =============================================================================

type boundsOptions struct {
	Min *float64 `mapstructure:"min"`
	Max *float64 `mapstructure:"max"`
}

type boundsRule struct {
	baseRule
	opts boundsOptions
}

func compileBounds(base baseRule, cfg core.QualityRuleConfig) (Rule, error) {
	var opts boundsOptions
	if err := decodeParams(cfg.Name, cfg.Params, &opts); err != nil {
		return nil, err
	}
	if opts.Min == nil && opts.Max == nil {
		return nil, &RuleError{Rule: cfg.Name, Message: "at least one of min or max is required"}
	}
	if opts.Min != nil && opts.Max != nil && *opts.Min > *opts.Max {
		return nil, &RuleError{Rule: cfg.Name, Message: "min exceeds max"}
	}
	return &boundsRule{baseRule: base, opts: opts}, nil
}

func (r *boundsRule) Check(value string, _ time.Time) (bool, string) {
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return false, fmt.Sprintf("value %q is not numeric", value)
	}
	if r.opts.Min != nil && v < *r.opts.Min {
		return false, fmt.Sprintf("value %v below minimum %v", v, *r.opts.Min)
	}
	if r.opts.Max != nil && v > *r.opts.Max {
		return false, fmt.Sprintf("value %v above maximum %v", v, *r.opts.Max)
	}
	return true, ""
}
