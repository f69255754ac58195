package quality

// starlark.go - custom quality predicates loaded from .star files.
//
// Built-in rule kinds stay compiled-in; anything beyond them is expressed as
// a Starlark function taking the cell value and returning True (pass),
// False (fail) or a string (fail with message).

import (
	"fmt"
	"time"

	"github.com/leapstack-labs/datagov/pkg/core"
	"go.starlark.net/starlark"
)

type starlarkOptions struct {
	// File is the path to the .star file, resolved by the config loader.
	File string `mapstructure:"file"`

	// Function is the name of the predicate to call for each value.
	Function string `mapstructure:"function"`
}

type starlarkRule struct {
	baseRule
	file string
	fn   starlark.Callable
}

func compileStarlark(base baseRule, cfg core.QualityRuleConfig) (Rule, error) {
	var opts starlarkOptions
	if err := decodeParams(cfg.Name, cfg.Params, &opts); err != nil {
		return nil, err
	}
	if opts.File == "" || opts.Function == "" {
		return nil, &RuleError{Rule: cfg.Name, Message: "file and function are required"}
	}

	thread := &starlark.Thread{
		Name: fmt.Sprintf("load:%s", opts.File),
		Print: func(_ *starlark.Thread, _ string) {
			// Ignore prints during rule loading
		},
	}

	globals, err := starlark.ExecFile(thread, opts.File, nil, nil) //nolint:staticcheck // SA1019: will migrate to ExecFileOptions later
	if err != nil {
		return nil, &RuleError{Rule: cfg.Name, Message: fmt.Sprintf("starlark execution error: %v", err)}
	}

	v, ok := globals[opts.Function]
	if !ok {
		return nil, &RuleError{Rule: cfg.Name, Message: fmt.Sprintf("function %q not found in %s", opts.Function, opts.File)}
	}
	fn, ok := v.(starlark.Callable)
	if !ok {
		return nil, &RuleError{Rule: cfg.Name, Message: fmt.Sprintf("%q in %s is not callable", opts.Function, opts.File)}
	}

	return &starlarkRule{baseRule: base, file: opts.File, fn: fn}, nil
}

func (r *starlarkRule) Check(value string, _ time.Time) (bool, string) {
	thread := &starlark.Thread{Name: fmt.Sprintf("rule:%s", r.name)}

	result, err := starlark.Call(thread, r.fn, starlark.Tuple{starlark.String(value)}, nil)
	if err != nil {
		// Predicate errors are data findings, not pipeline failures.
		return false, fmt.Sprintf("predicate error: %v", err)
	}

	switch res := result.(type) {
	case starlark.Bool:
		if bool(res) {
			return true, ""
		}
		return false, fmt.Sprintf("value %q rejected by %s", value, r.fn.Name())
	case starlark.String:
		return false, string(res)
	case starlark.NoneType:
		return true, ""
	default:
		return false, fmt.Sprintf("predicate returned unexpected type %s", result.Type())
	}
}
