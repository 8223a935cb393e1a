package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadScenario_ValidFile(t *testing.T) {
	dir := t.TempDir()
	scenarioPath := filepath.Join(dir, "test.yaml")

	content := `
name: test_scenario
description: "Test scenario for validation"
flow:
  - as: admin
    op: initialize_community
    args:
      name: Devs
      description: Developers
  - advance: 90s
assertions:
  - type: trace_contains
    op: initialize_community
`
	require.NoError(t, os.WriteFile(scenarioPath, []byte(content), 0644))

	scenario, err := LoadScenario(scenarioPath)
	require.NoError(t, err)

	assert.Equal(t, "test_scenario", scenario.Name)
	assert.Equal(t, DefaultStart, scenario.Start)
	require.Len(t, scenario.Flow, 2)
	assert.Equal(t, "admin", scenario.Flow[0].As)
	assert.Equal(t, "initialize_community", scenario.Flow[0].Op)
	assert.Equal(t, "Devs", scenario.Flow[0].Args["name"])
	assert.Equal(t, "90s", scenario.Flow[1].Advance)
	require.Len(t, scenario.Assertions, 1)
	assert.Equal(t, AssertTraceContains, scenario.Assertions[0].Type)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_Fixtures(t *testing.T) {
	paths, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			_, err := LoadScenario(path)
			require.NoError(t, err)
		})
	}
}

func TestParseScenario_Invalid(t *testing.T) {
	base := `
name: s
description: d
flow:
  - as: admin
    op: initialize_community
    args: { name: Devs, description: x }
assertions:
  - type: replay
`
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "unknown field",
			yaml:    base + "assertion: []\n",
			wantErr: "field assertion not found",
		},
		{
			name: "missing name",
			yaml: `
description: d
flow: [{as: a, op: join_community, args: {}}]
assertions: [{type: replay}]
`,
			wantErr: "name is required",
		},
		{
			name: "missing description",
			yaml: `
name: s
flow: [{as: a, op: join_community, args: {}}]
assertions: [{type: replay}]
`,
			wantErr: "description is required",
		},
		{
			name: "empty flow",
			yaml: `
name: s
description: d
flow: []
assertions: [{type: replay}]
`,
			wantErr: "flow list is required",
		},
		{
			name: "no assertions",
			yaml: `
name: s
description: d
flow: [{as: a, op: join_community, args: {}}]
`,
			wantErr: "assertions list is required",
		},
		{
			name: "unknown op",
			yaml: `
name: s
description: d
flow: [{as: a, op: transfer, args: {}}]
assertions: [{type: replay}]
`,
			wantErr: `unknown op "transfer"`,
		},
		{
			name: "missing caller",
			yaml: `
name: s
description: d
flow: [{op: join_community, args: {}}]
assertions: [{type: replay}]
`,
			wantErr: "as is required",
		},
		{
			name: "missing args",
			yaml: `
name: s
description: d
flow: [{as: a, op: join_community}]
assertions: [{type: replay}]
`,
			wantErr: "args is required",
		},
		{
			name: "empty step",
			yaml: `
name: s
description: d
flow: [{as: a}]
assertions: [{type: replay}]
`,
			wantErr: "op or advance is required",
		},
		{
			name: "bad advance",
			yaml: `
name: s
description: d
flow: [{advance: soon}]
assertions: [{type: replay}]
`,
			wantErr: "advance",
		},
		{
			name: "negative advance",
			yaml: `
name: s
description: d
flow: [{advance: -1h}]
assertions: [{type: replay}]
`,
			wantErr: "must not be negative",
		},
		{
			name: "bad policy",
			yaml: `
name: s
description: d
approval_policy: lenient
flow: [{advance: 1h}]
assertions: [{type: replay}]
`,
			wantErr: "lenient",
		},
		{
			name: "unknown assertion",
			yaml: `
name: s
description: d
flow: [{advance: 1h}]
assertions: [{type: eventually}]
`,
			wantErr: `unknown assertion type "eventually"`,
		},
		{
			name: "final_state without expect",
			yaml: `
name: s
description: d
flow: [{advance: 1h}]
assertions: [{type: final_state, ref: "@community:Devs"}]
`,
			wantErr: "expect is required for final_state",
		},
		{
			name: "absent without ref",
			yaml: `
name: s
description: d
flow: [{advance: 1h}]
assertions: [{type: absent}]
`,
			wantErr: "ref is required for absent",
		},
		{
			name: "trace_order without ops",
			yaml: `
name: s
description: d
flow: [{advance: 1h}]
assertions: [{type: trace_order}]
`,
			wantErr: "ops list is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseScenario_KeepsExplicitStart(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: s
description: d
start: 42
flow: [{advance: 1h}]
assertions: [{type: replay}]
`))
	require.NoError(t, err)
	assert.Equal(t, int64(42), s.Start)
}
