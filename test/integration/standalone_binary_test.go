package integration

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildStandalone compiles cmd/domainsearch and copies it outside the module
// so neither .fulmen identity files nor config can be found relative to it.
func buildStandalone(t *testing.T) (binary string, workdir string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("standalone binary copy/exec test is unix-focused")
	}

	goMod, err := exec.Command("go", "env", "GOMOD").Output()
	require.NoError(t, err, "go env GOMOD")
	repoRoot := filepath.Dir(strings.TrimSpace(string(goMod)))
	require.NotEqual(t, ".", repoRoot)

	built := filepath.Join(t.TempDir(), "domainsearch")
	build := exec.Command("go", "build", "-o", built, "./cmd/domainsearch")
	build.Dir = repoRoot
	build.Env = os.Environ()
	out, err := build.CombinedOutput()
	require.NoError(t, err, "go build: %s", out)

	workdir = t.TempDir()
	binary = filepath.Join(workdir, "domainsearch")
	data, err := os.ReadFile(built)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(binary, data, 0o755))
	return binary, workdir
}

func runStandalone(t *testing.T, binary, workdir string, args ...string) string {
	t.Helper()
	cmd := exec.Command(binary, args...)
	cmd.Dir = workdir
	cmd.Env = append(os.Environ(),
		"HOME="+workdir,
		"XDG_CONFIG_HOME="+filepath.Join(workdir, "config"),
		"XDG_DATA_HOME="+filepath.Join(workdir, "data"),
	)
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "%s: %s", strings.Join(args, " "), out)
	return string(out)
}

func TestStandaloneBinaryWorksOutsideRepo(t *testing.T) {
	binary, workdir := buildStandalone(t)

	version := runStandalone(t, binary, workdir, "version")
	assert.Contains(t, version, "domainsearch ")

	extended := runStandalone(t, binary, workdir, "version", "--extended")
	assert.Contains(t, extended, "TLDs: com")
	assert.Contains(t, extended, "Prices: ")

	help := runStandalone(t, binary, workdir, "--help")
	for _, sub := range []string{"search", "check", "info", "demand", "prices", "cache", "serve"} {
		assert.Contains(t, help, sub)
	}
}
