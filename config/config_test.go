package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "stream.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadAppliesDefaultsForOmittedFields(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `
buffer:
  default_budget_bytes: 2048
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 2048, cfg.Buffer.DefaultBudgetBytes)
	// Fields absent from the file keep Default()'s values.
	require.True(t, cfg.Audit.Enabled)
	require.Equal(t, "stdout", cfg.Audit.Sink.Type)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestCloneIsIndependent(t *testing.T) {
	cfg := Default()
	cfg.Debug.TraceWorkerGlobs = []string{"upload-*"}

	clone := cfg.Clone()
	clone.Debug.TraceWorkerGlobs[0] = "mutated"

	require.Equal(t, "upload-*", cfg.Debug.TraceWorkerGlobs[0])
}

func TestWatcherReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `
buffer:
  default_budget_bytes: 1024
`)

	w, err := NewWatcher(path, nil)
	require.NoError(t, err)
	defer w.Close()

	require.Equal(t, 1024, w.Current().Buffer.DefaultBudgetBytes)

	require.NoError(t, os.WriteFile(path, []byte(`
buffer:
  default_budget_bytes: 4096
`), 0o644))

	require.Eventually(t, func() bool {
		return w.Current().Buffer.DefaultBudgetBytes == 4096
	}, 2*time.Second, 10*time.Millisecond)
}
