package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hassanmzia/ai-healthcare-embodiment/internal/common"
)

// executeCommand runs the CLI against dbPath and returns its stdout.
func executeCommand(t *testing.T, dbPath string, args ...string) (string, error) {
	t.Helper()
	out, _, err := executeCommandWithStderr(t, dbPath, args...)
	return out, err
}

// executeCommandWithStderr runs the CLI and returns stdout and stderr.
func executeCommandWithStderr(t *testing.T, dbPath string, args ...string) (string, string, error) {
	t.Helper()

	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--db", dbPath, "--log-level", "error"}, args...))

	err := cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

var runIDPattern = regexp.MustCompile(`Run ([0-9a-f-]{36})`)

func TestCLI_EndToEnd(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dbPath := filepath.Join(t.TempDir(), "mslab.db")

	cfg := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("screening:\n  workers: 2\n"), 0o600))
	run := func(args ...string) string {
		t.Helper()
		out, err := executeCommand(t, dbPath, append([]string{"--config", cfg}, args...)...)
		require.NoError(t, err, "mslab %v", args)
		return out
	}

	out := run("seed", "--patients", "300", "--seed", "7")
	assert.Contains(t, out, "Created 300 patients")
	assert.Contains(t, out, "Created default policy")

	out = run("policy", "list")
	assert.Contains(t, out, "Default MS Screening Policy")

	out = run("screen", "--no-progress")
	assert.Contains(t, out, "COMPLETED")
	m := runIDPattern.FindStringSubmatch(out)
	require.Len(t, m, 2, "run id not found in:\n%s", out)
	runID := m[1]

	out = run("runs", "list")
	assert.Contains(t, out, runID)

	out = run("runs", "show", runID)
	assert.Contains(t, out, "COMPLETED")

	out = run("metrics", runID)
	assert.Contains(t, out, "Screening quality")
	assert.Contains(t, out, "Risk score distribution")

	out = run("metrics", runID, "--json", "--dimension", "sex")
	assert.Contains(t, out, `"fairness"`)

	out = run("whatif", runID, "--max-auto", "0")
	assert.Contains(t, out, "AUTO_ORDER_MRI_AND_NOTIFY_NEURO=0")
}

func TestCLI_Errors(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dbPath := filepath.Join(t.TempDir(), "mslab.db")
	cfg := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("{}\n"), 0o600))

	_, err := executeCommand(t, dbPath, "--config", cfg, "screen", "--no-progress")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrNoActivePolicy)

	_, err = executeCommand(t, dbPath, "--config", cfg, "policy", "create", "bad", "--review", "0.9", "--draft", "0.5")
	require.Error(t, err)
	assert.Equal(t, "Invalid policy", common.UserMessage(err))

	_, err = executeCommand(t, dbPath, "--config", cfg, "metrics", "no-such-run")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestCLI_PolicyApply(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dbPath := filepath.Join(t.TempDir(), "mslab.db")
	cfg := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("{}\n"), 0o600))

	doc := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(doc, []byte("name: conservative\nauto_order_threshold: 0.95\nactivate: true\n"), 0o600))

	out, err := executeCommand(t, dbPath, "--config", cfg, "policy", "apply", doc)
	require.NoError(t, err)
	assert.Contains(t, out, "sha256:")
	assert.Contains(t, out, "(active)")

	_, err = executeCommand(t, dbPath, "--config", cfg, "policy", "apply", doc)
	assert.ErrorIs(t, err, common.ErrDuplicateEntry)

	out, err = executeCommand(t, dbPath, "--config", cfg, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "mslab")
}

func TestCLI_ScreenProgress(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dbPath := filepath.Join(t.TempDir(), "mslab.db")
	cfg := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("{}\n"), 0o600))

	_, err := executeCommand(t, dbPath, "--config", cfg, "seed", "--patients", "50", "--seed", "3")
	require.NoError(t, err)

	out, errOut, err := executeCommandWithStderr(t, dbPath, "--config", cfg, "screen")
	require.NoError(t, err)
	assert.Contains(t, out, "COMPLETED")
	assert.Contains(t, errOut, "Screening patients...")
	assert.Contains(t, errOut, "100%")
	assert.Contains(t, errOut, "50/50")
}
