package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/proxoffensive/prox-mesh/internal/executor"
	"github.com/stretchr/testify/require"
)

// countingRunner records spawns instead of starting processes.
type countingRunner struct {
	calls int
	last  executor.Invocation
	code  int
	err   error
}

func (r *countingRunner) Run(_ context.Context, inv executor.Invocation) (int, error) {
	r.calls++
	r.last = inv
	return r.code, r.err
}

type harness struct {
	root      string
	vars      map[string]string
	installed map[string]bool
	runner    *countingRunner
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return &harness{
		root:      t.TempDir(),
		vars:      map[string]string{},
		installed: map[string]bool{"claude": true, "gemini": true, "codex": true},
		runner:    &countingRunner{},
	}
}

func (h *harness) environment() *Environment {
	return &Environment{
		LookupEnv: func(key string) (string, bool) {
			v, ok := h.vars[key]
			return v, ok
		},
		LookPath: func(name string) (string, error) {
			if h.installed[name] {
				return "/usr/local/bin/" + name, nil
			}
			return "", &exec.Error{Name: name, Err: exec.ErrNotFound}
		},
		Runner: h.runner,
	}
}

func (h *harness) write(t *testing.T, rel, content string) string {
	t.Helper()
	path := filepath.Join(h.root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

type result struct {
	code   int
	stdout string
	stderr string
}

// run executes prox-mesh against the harness root. A nil stdin is an empty pipe.
func (h *harness) run(t *testing.T, stdin io.Reader, args ...string) result {
	t.Helper()
	if stdin == nil {
		stdin = strings.NewReader("")
	}
	var stdout, stderr bytes.Buffer
	cmd := NewRootCommand(h.environment())
	cmd.SetIn(stdin)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)

	code := Run(context.Background(), cmd, append([]string{"--root", h.root}, args...))
	return result{code: code, stdout: stdout.String(), stderr: stderr.String()}
}
