package quality

import (
	"time"

	"github.com/leapstack-labs/datagov/pkg/core"
)

// Validator applies the compiled rule sets of all datasets.
type Validator struct {
	rules map[string][]Rule

	// Now supplies the reference time for time-based rules.
	// Overridable in tests; defaults to time.Now.
	Now func() time.Time
}

// NewValidator compiles the configured rule sets into a validator.
// Rule compilation errors are fatal: they indicate malformed configuration,
// not bad data.
func NewValidator(cfg map[string][]core.QualityRuleConfig) (*Validator, error) {
	v := &Validator{
		rules: make(map[string][]Rule, len(cfg)),
		Now:   time.Now,
	}

	for dataset, ruleCfgs := range cfg {
		compiled := make([]Rule, 0, len(ruleCfgs))
		for _, rc := range ruleCfgs {
			rule, err := Compile(rc)
			if err != nil {
				return nil, err
			}
			compiled = append(compiled, rule)
		}
		v.rules[dataset] = compiled
	}

	return v, nil
}

// RuleCount returns the number of compiled rules for a dataset.
func (v *Validator) RuleCount(dataset string) int {
	return len(v.rules[dataset])
}

// Validate applies the dataset's rules to every row and partitions the
// input into valid rows and quality issues.
//
// A row is kept iff it fails zero rules; a failing row is excluded exactly
// once, however many rules it fails. Issues are emitted in row-then-rule
// order so audit logs are reproducible. Row numbers are 1-based positions
// in the input.
func (v *Validator) Validate(dataset string, table *core.Table) (*core.Table, []core.QualityIssue) {
	valid := &core.Table{Columns: table.Columns}

	rules := v.rules[dataset]
	if len(rules) == 0 {
		valid.Rows = append(valid.Rows, table.Rows...)
		return valid, nil
	}

	now := v.Now().UTC()

	var issues []core.QualityIssue
	for i, row := range table.Rows {
		rowOK := true
		for _, rule := range rules {
			ok, msg := rule.Check(row[rule.Column()], now)
			if ok {
				continue
			}
			rowOK = false
			issues = append(issues, core.QualityIssue{
				Dataset:  dataset,
				Row:      i + 1,
				Column:   rule.Column(),
				Rule:     rule.Name(),
				Severity: rule.Severity(),
				Message:  msg,
			})
		}
		if rowOK {
			valid.Rows = append(valid.Rows, row)
		}
	}

	return valid, issues
}
