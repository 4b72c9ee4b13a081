// Package discovery locates the repository root that context files are read
// from. The root is normally derived from the executable's own location by
// walking a fixed number of parent directories (the binary ships in
// <root>/bin). When that directory carries none of the root markers, the
// current directory and its parents are searched instead. Callers that
// already know the root (flags, environment, tests) skip discovery entirely.
package discovery

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// EnvRoot overrides root discovery.
const EnvRoot = "PROXMESH_ROOT"

// DefaultDepth is how many parents of the executable's directory form the root.
const DefaultDepth = 1

// DefaultMarkers are root-relative paths whose presence identifies a root.
var DefaultMarkers = []string{"prox-mesh.json", "docs/project_brain.md", ".git"}

// Method records how the root was chosen.
type Method string

const (
	MethodFlag       Method = "flag"
	MethodEnv        Method = "env"
	MethodExecutable Method = "executable"
	MethodSearch     Method = "search"
	MethodWorkingDir Method = "cwd"
)

// Config configures root discovery.
type Config struct {
	Explicit   string // --root flag
	EnvValue   string // value of EnvRoot
	Executable string // path of the running binary
	WorkingDir string
	Depth      int
	Markers    []string
}

// DefaultConfig returns a Config for the running binary and working directory.
// It does not read the environment; callers set EnvValue themselves.
func DefaultConfig(explicit string) Config {
	exe, _ := os.Executable()
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	cwd, _ := os.Getwd()
	return Config{
		Explicit:   explicit,
		Executable: exe,
		WorkingDir: cwd,
		Depth:      DefaultDepth,
		Markers:    append([]string{}, DefaultMarkers...),
	}
}

// Result is the discovered root.
type Result struct {
	Root   string
	Method Method
}

// Discover picks the root: explicit value, then environment, then the
// executable's ancestor if it looks like a root, then an upward search from
// the working directory, then the working directory itself.
func Discover(cfg Config) (Result, error) {
	if explicit := strings.TrimSpace(cfg.Explicit); explicit != "" {
		return absDir(explicit, MethodFlag)
	}
	if env := strings.TrimSpace(cfg.EnvValue); env != "" {
		return absDir(env, MethodEnv)
	}

	markers := cfg.Markers
	if len(markers) == 0 {
		markers = DefaultMarkers
	}

	if cfg.Executable != "" {
		depth := cfg.Depth
		if depth < 0 {
			depth = DefaultDepth
		}
		candidate := RootFromExecutable(cfg.Executable, depth)
		if HasMarker(candidate, markers) {
			return Result{Root: candidate, Method: MethodExecutable}, nil
		}
	}

	if cfg.WorkingDir == "" {
		return Result{}, errors.New("discovery: working directory is unknown")
	}
	if found := FindUp(cfg.WorkingDir, markers); found != "" {
		return Result{Root: found, Method: MethodSearch}, nil
	}
	return absDir(cfg.WorkingDir, MethodWorkingDir)
}

// RootFromExecutable walks depth parents up from the directory holding exe.
func RootFromExecutable(exe string, depth int) string {
	dir := filepath.Dir(filepath.Clean(exe))
	for i := 0; i < depth; i++ {
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return dir
}

// FindUp searches start and its parents for a directory carrying a marker.
func FindUp(start string, markers []string) string {
	dir, err := filepath.Abs(start)
	if err != nil {
		return ""
	}
	for {
		if HasMarker(dir, markers) {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// HasMarker reports whether any marker exists under dir.
func HasMarker(dir string, markers []string) bool {
	for _, m := range markers {
		if _, err := os.Stat(filepath.Join(dir, m)); err == nil {
			return true
		}
	}
	return false
}

func absDir(path string, method Method) (Result, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Result{}, fmt.Errorf("discovery: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return Result{}, fmt.Errorf("discovery: stat root: %w", err)
	}
	if !info.IsDir() {
		return Result{}, fmt.Errorf("discovery: root is not a directory: %s", abs)
	}
	return Result{Root: abs, Method: method}, nil
}
