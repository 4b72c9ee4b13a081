// Package resolve turns a route into the base command to execute, checking
// that the command's binary can be found on the search path.
package resolve

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/proxoffensive/prox-mesh/internal/config"
	"github.com/proxoffensive/prox-mesh/internal/route"
)

// UnresolvedToolError reports that a route's binary is not on PATH.
type UnresolvedToolError struct {
	Route  route.Route
	Binary string
	EnvVar string
	Err    error
}

func (e *UnresolvedToolError) Error() string {
	if e.Binary == "" {
		return fmt.Sprintf("no base command configured for route '%s'. Set %s to the command to run.", e.Route, e.EnvVar)
	}
	return fmt.Sprintf("binary %q for route '%s' was not found on PATH. Install it or set %s to a different command.", e.Binary, e.Route, e.EnvVar)
}

func (e *UnresolvedToolError) Unwrap() error { return e.Err }

// Resolution is a route's resolved base command.
type Resolution struct {
	Route      route.Route
	Command    string
	Binary     string
	BinaryPath string
	EnvVar     string
	Source     config.Source
}

// Resolver resolves routes against a fixed configuration.
type Resolver struct {
	Config   *config.Config
	LookPath func(string) (string, error)
}

// New returns a Resolver using exec.LookPath.
func New(cfg *config.Config) *Resolver {
	return &Resolver{Config: cfg, LookPath: exec.LookPath}
}

// Resolve returns the base command for r. Unknown routes are a programming
// error at this layer; the CLI only offers known routes.
func (r *Resolver) Resolve(rt route.Route) (Resolution, error) {
	if _, ok := route.Lookup(rt); !ok {
		return Resolution{}, fmt.Errorf("unknown route %q", rt)
	}

	res := Resolution{Route: rt, EnvVar: route.EnvVar(rt)}
	if rc := r.Config.Route(rt); rc != nil {
		res.Command = strings.TrimSpace(rc.Cmd)
		res.Source = rc.Source
	}

	res.Binary = Binary(res.Command)
	if res.Binary == "" {
		return res, &UnresolvedToolError{Route: rt, EnvVar: res.EnvVar}
	}

	lookPath := r.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	path, err := lookPath(res.Binary)
	if err != nil {
		return res, &UnresolvedToolError{Route: rt, Binary: res.Binary, EnvVar: res.EnvVar, Err: err}
	}
	res.BinaryPath = path

	return res, nil
}

// Binary returns the first whitespace-delimited token of command.
func Binary(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
