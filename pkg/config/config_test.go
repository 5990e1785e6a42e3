package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validYAML = `
environment: test
recon:
  tolerances:
    price:
      mode: absolute
      limit: "0.5"
    quantity:
      mode: absolute
  product_overrides:
    ESZ5:
      price:
        mode: ticks
        max_ticks: "1"
products:
  - symbol: ESZ5
    exchange: CME
    tick_size: "0.25"
    tick_value: "12.50"
nway:
  authoritative_order: [internal, ccp, broker]
clustering:
  min_cluster_size: 3
workflow:
  default_team: ops
  teams:
    - id: ops
      name: Operations
      escalation_team: ops-leads
    - id: ops-leads
      name: Operations Leads
  rules:
    - id: r-swaps
      priority: 10
      team: ops
      product_types: [interest_rate_swap]
      min_notional: "500000"
  cause_routes:
    missing_trade: ops
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadValidConfig(t *testing.T) {
	c, err := Load(writeConfig(t, validYAML))
	require.NoError(t, err)

	assert.Equal(t, "test", c.Environment)
	assert.Equal(t, "0.5", c.Recon.Tolerances["price"].Limit)
	assert.Equal(t, ModeTicks, c.Recon.ProductOverrides["ESZ5"]["price"].Mode)
	assert.Equal(t, []string{"internal", "ccp", "broker"}, c.NWay.AuthoritativeOrder)
	assert.Equal(t, "ops", c.Workflow.DefaultTeam)

	// Defaults fill what the file omits.
	assert.Equal(t, "info", c.Logging.Level)
	assert.Equal(t, "json", c.Logging.Format)
	assert.Equal(t, 3, c.Clustering.MinClusterSize)
	assert.Equal(t, 100, c.Clustering.MaxClusters)
	require.Len(t, c.Workflow.Teams, 2)
	assert.Equal(t, 10, c.Workflow.Teams[0].Capacity)
	assert.Equal(t, "USD", c.Products[0].Currency)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}

func TestLoadRejectsBadYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "environment: [unterminated"))
	require.Error(t, err)
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{
			name: "missing environment",
			body: `
workflow:
  default_team: ops
  teams:
    - {id: ops, name: Operations}
`,
			want: "Environment",
		},
		{
			name: "unknown tolerance mode",
			body: `
environment: test
recon:
  tolerances:
    price: {mode: sigma}
workflow:
  default_team: ops
  teams:
    - {id: ops, name: Operations}
`,
			want: `unknown mode "sigma"`,
		},
		{
			name: "percent quantity tolerance",
			body: `
environment: test
recon:
  tolerances:
    quantity: {mode: percent, limit: "1"}
workflow:
  default_team: ops
  teams:
    - {id: ops, name: Operations}
`,
			want: "quantity mode must be absolute",
		},
		{
			name: "bad decimal limit",
			body: `
environment: test
recon:
  tolerances:
    price: {mode: absolute, limit: "not-a-number"}
workflow:
  default_team: ops
  teams:
    - {id: ops, name: Operations}
`,
			want: "invalid decimal",
		},
		{
			name: "unknown default team",
			body: `
environment: test
workflow:
  default_team: nobody
  teams:
    - {id: ops, name: Operations}
`,
			want: `unknown team "nobody"`,
		},
		{
			name: "rule references unknown team",
			body: `
environment: test
workflow:
  default_team: ops
  teams:
    - {id: ops, name: Operations}
  rules:
    - {id: r1, team: ghosts}
`,
			want: `unknown team "ghosts"`,
		},
		{
			name: "dangling escalation team",
			body: `
environment: test
workflow:
  default_team: ops
  teams:
    - {id: ops, name: Operations, escalation_team: nobody}
`,
			want: "unknown escalation_team",
		},
		{
			name: "cause route references unknown team",
			body: `
environment: test
workflow:
  default_team: ops
  teams:
    - {id: ops, name: Operations}
  cause_routes:
    missing_trade: ghosts
`,
			want: `unknown team "ghosts"`,
		},
		{
			name: "duplicate team ids",
			body: `
environment: test
workflow:
  default_team: ops
  teams:
    - {id: ops, name: Operations}
    - {id: ops, name: Operations Again}
`,
			want: "duplicate team id",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("TRADERECON_ENVIRONMENT", "staging")
	t.Setenv("TRADERECON_LOG_LEVEL", "debug")

	c, err := LoadWithEnv(writeConfig(t, validYAML))
	require.NoError(t, err)
	assert.Equal(t, "staging", c.Environment)
	assert.Equal(t, "debug", c.Logging.Level)
}

func TestLoadWithEnvRejectsUnknownDefaultTeam(t *testing.T) {
	t.Setenv("TRADERECON_DEFAULT_TEAM", "nobody")
	_, err := LoadWithEnv(writeConfig(t, validYAML))
	require.Error(t, err)
}
