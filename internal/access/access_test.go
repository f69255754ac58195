package access

import (
	"testing"

	"github.com/leapstack-labs/datagov/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestController(t *testing.T) *Controller {
	t.Helper()

	c := NewController()
	require.NoError(t, c.AddPolicy(core.AccessPolicy{
		Name:        "analyst_read",
		Roles:       []string{"analyst"},
		Datasets:    []string{"customers", "orders"},
		Permissions: []string{"read"},
	}))
	require.NoError(t, c.AddPolicy(core.AccessPolicy{
		Name:        "engineer_all",
		Roles:       []string{"engineer"},
		Datasets:    []string{"customers", "orders", "transactions"},
		Permissions: []string{"read", "write"},
	}))
	return c
}

func TestController_CheckAllow(t *testing.T) {
	c := newTestController(t)

	d := c.Check("analyst", "customers", "read")
	assert.True(t, d.Allowed())
	assert.Equal(t, "analyst_read", d.Policy)
	assert.Equal(t, core.EffectAllow, d.Effect)
}

func TestController_CheckDefaultDeny(t *testing.T) {
	c := newTestController(t)

	tests := []struct {
		name       string
		role       string
		dataset    string
		permission string
	}{
		{"unknown role", "intern", "customers", "read"},
		{"unknown dataset", "analyst", "salaries", "read"},
		{"permission not granted", "analyst", "customers", "write"},
		{"empty role", "", "customers", "read"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := c.Check(tt.role, tt.dataset, tt.permission)
			assert.False(t, d.Allowed())
			assert.Equal(t, core.EffectDeny, d.Effect)
			assert.Empty(t, d.Policy, "deny decisions carry no policy name")
		})
	}
}

func TestController_CheckFirstMatchWins(t *testing.T) {
	c := NewController()
	require.NoError(t, c.AddPolicy(core.AccessPolicy{
		Name:        "first",
		Roles:       []string{"analyst"},
		Datasets:    []string{"customers"},
		Permissions: []string{"read"},
	}))
	require.NoError(t, c.AddPolicy(core.AccessPolicy{
		Name:        "second",
		Roles:       []string{"analyst"},
		Datasets:    []string{"customers"},
		Permissions: []string{"read"},
	}))

	d := c.Check("analyst", "customers", "read")
	assert.Equal(t, "first", d.Policy)
}

func TestController_Enforce(t *testing.T) {
	c := newTestController(t)

	d, err := c.Enforce("engineer", "transactions", "write")
	require.NoError(t, err)
	assert.True(t, d.Allowed())

	d, err = c.Enforce("analyst", "transactions", "read")
	require.Error(t, err)
	assert.False(t, d.Allowed())

	var denied *DeniedError
	require.ErrorAs(t, err, &denied)
	assert.Equal(t, "analyst", denied.Role)
	assert.Equal(t, "transactions", denied.Dataset)
	assert.Equal(t, "read", denied.Permission)
}

func TestController_AddPolicyDuplicateName(t *testing.T) {
	c := newTestController(t)

	err := c.AddPolicy(core.AccessPolicy{Name: "analyst_read"})
	require.Error(t, err)
	assert.Equal(t, 2, c.Count())
}

func TestController_AddPolicyRequiresName(t *testing.T) {
	c := NewController()

	err := c.AddPolicy(core.AccessPolicy{Roles: []string{"analyst"}})
	require.Error(t, err)
}

func TestController_ExportPreservesOrder(t *testing.T) {
	c := newTestController(t)

	exported := c.Export()
	require.Len(t, exported, 2)
	assert.Equal(t, "analyst_read", exported[0].Name)
	assert.Equal(t, "engineer_all", exported[1].Name)
}
