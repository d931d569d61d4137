package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "concierge version ")
}

func TestFlowsCommands(t *testing.T) {
	out, err := run(t, "flows", "ls")
	require.NoError(t, err)
	assert.Contains(t, out, "service_booking")
	assert.Contains(t, out, "visa_consultation")

	out, err = run(t, "flows", "graph", "payment")
	require.NoError(t, err)
	assert.Contains(t, out, "graph TD")

	p := filepath.Join(t.TempDir(), "flows.yaml")
	require.NoError(t, os.WriteFile(p, []byte("flows:\n  - id: hours\n    text: Open 8-18\n"), 0o644))
	out, err = run(t, "flows", "validate", p)
	require.NoError(t, err)
	assert.Contains(t, out, "hours (0 steps)")

	_, err = run(t, "flows", "validate", filepath.Join(t.TempDir(), "none.yaml"))
	assert.Error(t, err)
}

func TestSessionCommands_FileStore(t *testing.T) {
	t.Setenv("CONCIERGE_FILE_DIR", t.TempDir())
	out, err := run(t, "--store", "file", "session", "ls")
	require.NoError(t, err)
	assert.Contains(t, out, "No sessions found.")

	_, err = run(t, "--store", "file", "session", "show", "missing")
	assert.Error(t, err)
}

func TestBadStoreFlag(t *testing.T) {
	_, err := run(t, "--store", "cassette", "session", "ls")
	assert.ErrorContains(t, err, "cassette")
}
