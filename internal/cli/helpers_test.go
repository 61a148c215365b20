package cli

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/C-BIAS/ECO-FMM-FASTAPI/internal/config"
)

// isolate runs the test in an empty working directory with every setting
// the config layer reads cleared, and points the data dir at that directory.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)

	for _, key := range []string{
		config.EnvSecret, config.EnvLogLevel, config.EnvVersion, config.EnvAddr,
		config.EnvAuditLog, config.EnvBackupDir, config.EnvDueDateLayout,
		config.EnvIdentity, config.EnvConfig,
	} {
		t.Setenv(key, "")
	}
	t.Setenv(config.EnvDataDir, dir)
	t.Setenv(config.EnvLogLevel, "error")
	return dir
}

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return executeContext(t, context.Background(), args...)
}

func executeContext(t *testing.T, ctx context.Context, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	return buf.String(), err
}
