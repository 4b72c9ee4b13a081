package testharness

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FakeTool is a stand-in for an external AI CLI. Its script records the
// argument count, the final argument and PROXMESH_ROUTE next to itself, then
// exits with ExitCode.
type FakeTool struct {
	Dir      string
	Name     string
	ExitCode int
}

const fakeToolScript = `#!/bin/sh
printf '%%s' "$#" > '%[1]s.argc'
for last; do :; done
printf '%%s' "$last" > '%[1]s.prompt'
printf '%%s' "${PROXMESH_ROUTE:-}" > '%[1]s.route'
echo "fake %[2]s ran"
exit %[3]d
`

// Install writes the tool's script into Dir.
func (f FakeTool) Install() (string, error) {
	if f.Dir == "" || f.Name == "" {
		return "", fmt.Errorf("fake tool needs a directory and a name")
	}
	if err := os.MkdirAll(f.Dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create tool directory: %w", err)
	}

	path := filepath.Join(f.Dir, f.Name)
	if strings.ContainsRune(path, '\'') {
		return "", fmt.Errorf("fake tool path must not contain single quotes: %s", path)
	}
	script := fmt.Sprintf(fakeToolScript, path, f.Name, f.ExitCode)
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		return "", fmt.Errorf("failed to write fake tool: %w", err)
	}
	return path, nil
}

// Invocation is what a fake tool recorded about its last run.
type Invocation struct {
	ArgCount string
	Prompt   string
	Route    string
}

// Recorded reads the files written by the tool's last run. ok is false if it never ran.
func (f FakeTool) Recorded() (inv Invocation, ok bool) {
	base := filepath.Join(f.Dir, f.Name)
	argc, err := os.ReadFile(base + ".argc")
	if err != nil {
		return Invocation{}, false
	}
	prompt, _ := os.ReadFile(base + ".prompt")
	route, _ := os.ReadFile(base + ".route")
	return Invocation{ArgCount: string(argc), Prompt: string(prompt), Route: string(route)}, true
}
