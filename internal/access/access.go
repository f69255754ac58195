// Package access provides policy-based access control for governed datasets.
// A Controller holds the access policy table loaded from configuration and
// answers allow/deny for (role, dataset, permission) triples. Deny is the
// default when no policy matches; there is no caching because the table is
// a small in-memory structure.
package access

import (
	"fmt"

	"github.com/leapstack-labs/datagov/pkg/core"
)

// DeniedError is returned when an enforced access check is denied.
type DeniedError struct {
	Role       string
	Dataset    string
	Permission string
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("role %q does not have %q on dataset %q", e.Role, e.Permission, e.Dataset)
}

// Controller evaluates access policies.
type Controller struct {
	policies []core.AccessPolicy
	byName   map[string]struct{}
}

// NewController creates an empty controller.
func NewController() *Controller {
	return &Controller{
		byName: make(map[string]struct{}),
	}
}

// AddPolicy registers a policy. Policy names must be unique.
func (c *Controller) AddPolicy(p core.AccessPolicy) error {
	if p.Name == "" {
		return fmt.Errorf("access policy requires a name")
	}
	if _, ok := c.byName[p.Name]; ok {
		return fmt.Errorf("access policy %q is already registered", p.Name)
	}
	c.byName[p.Name] = struct{}{}
	c.policies = append(c.policies, p)
	return nil
}

// Check evaluates whether role has permission on dataset.
// Policies are evaluated in registration order; the first policy matching
// role, dataset and permission wins. The result is a pure function of the
// inputs and the policy table.
func (c *Controller) Check(role, dataset, permission string) core.Decision {
	decision := core.Decision{
		Role:       role,
		Dataset:    dataset,
		Permission: permission,
		Effect:     core.EffectDeny,
	}

	for _, p := range c.policies {
		if contains(p.Roles, role) && contains(p.Datasets, dataset) && contains(p.Permissions, permission) {
			decision.Effect = core.EffectAllow
			decision.Policy = p.Name
			return decision
		}
	}

	return decision
}

// Enforce runs Check and converts a deny into a DeniedError.
func (c *Controller) Enforce(role, dataset, permission string) (core.Decision, error) {
	decision := c.Check(role, dataset, permission)
	if !decision.Allowed() {
		return decision, &DeniedError{Role: role, Dataset: dataset, Permission: permission}
	}
	return decision, nil
}

// Export returns the policy table for the audit log, in registration order.
func (c *Controller) Export() []core.AccessPolicy {
	out := make([]core.AccessPolicy, len(c.policies))
	copy(out, c.policies)
	return out
}

// Count returns the number of registered policies.
func (c *Controller) Count() int {
	return len(c.policies)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
