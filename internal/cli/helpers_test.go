package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/quorum/internal/testutil"
)

const testNow = int64(1_700_000_000)

// cliFixture runs commands against one database with a shared manual clock.
type cliFixture struct {
	t     *testing.T
	db    string
	clock *testutil.ManualClock
}

func newCLIFixture(t *testing.T) *cliFixture {
	t.Helper()
	return &cliFixture{
		t:     t,
		db:    filepath.Join(t.TempDir(), "quorum.db"),
		clock: testutil.NewManualClock(testNow),
	}
}

// run executes the root command with --db set and returns stdout.
func (f *cliFixture) run(args ...string) (string, error) {
	f.t.Helper()
	buf := &bytes.Buffer{}
	errBuf := &bytes.Buffer{}
	cmd := newRootCommand(&RootOptions{Clock: f.clock})
	cmd.SetOut(buf)
	cmd.SetErr(errBuf)
	cmd.SetArgs(append([]string{"--db", f.db}, args...))
	err := cmd.Execute()
	return buf.String(), err
}

// mustRun executes the command and fails the test on error.
func (f *cliFixture) mustRun(args ...string) string {
	f.t.Helper()
	out, err := f.run(args...)
	require.NoError(f.t, err, "quorum %v\n%s", args, out)
	return out
}

// runJSON executes the command with --format json and decodes the response.
func (f *cliFixture) runJSON(args ...string) (map[string]any, error) {
	f.t.Helper()
	out, err := f.run(append([]string{"--format", "json"}, args...)...)
	var resp map[string]any
	require.NoError(f.t, json.Unmarshal([]byte(out), &resp), "output: %s", out)
	return resp, err
}

// seedPoll creates community Devs (admin), approves alice, and opens poll
// Devs:0 ending in one hour.
func (f *cliFixture) seedPoll() {
	f.t.Helper()
	f.mustRun("init-community", "--as", "admin", "--name", "Devs", "--description", "Developers")
	f.mustRun("join", "--as", "alice", "--community", "Devs")
	f.mustRun("approve", "--as", "admin", "--community", "Devs", "--member", "alice")
	f.mustRun("create-poll", "--as", "alice", "--community", "Devs",
		"--question", "Best lang?", "--option", "Rust", "--option", "Go", "--ends-in", "1h")
}
