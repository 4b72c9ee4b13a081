// Package route defines the closed set of prox-mesh routes and the static
// metadata attached to each one: the compiled-in base command, the context
// tool key used to pick a context file, and the environment variable that
// overrides the command.
package route

import (
	"fmt"
	"strings"
)

// Route names one of the fixed prox-mesh actions.
type Route string

const (
	Plan     Route = "plan"
	Research Route = "research"
	Edit     Route = "edit"
	Ask      Route = "ask"
	Generate Route = "generate"
)

// Context tool keys. Each key selects one context file.
const (
	KeyClaude = "claude"
	KeyGemini = "gemini"
	KeyCodex  = "codex"
)

// EnvPrefix and EnvSuffix wrap the uppercased route name to form the
// override variable, e.g. PROXMESH_PLAN_CMD.
const (
	EnvPrefix = "PROXMESH_"
	EnvSuffix = "_CMD"
)

// Info is the static metadata for a route.
type Info struct {
	Route          Route
	DefaultCommand string
	ContextKey     string
	Short          string
}

var table = []Info{
	{Plan, "claude", KeyClaude, "High-level planning (defaults to Claude or configured planner)"},
	{Research, "gemini", KeyGemini, "Research via Gemini or configured research tool"},
	{Edit, "codex", KeyCodex, "File/content editing via Codex or configured editor"},
	{Ask, "claude", KeyClaude, "General questions / explanations via Claude or configured tool"},
	{Generate, "codex", KeyCodex, "Generate artifacts (reports, templates, checklists, etc.)"},
}

// All returns every route in canonical order.
func All() []Route {
	out := make([]Route, 0, len(table))
	for _, info := range table {
		out = append(out, info.Route)
	}
	return out
}

// Parse normalizes name and returns the matching route.
func Parse(name string) (Route, error) {
	r := Route(strings.ToLower(strings.TrimSpace(name)))
	if _, ok := Lookup(r); !ok {
		return "", fmt.Errorf("unknown route %q (valid: %s)", name, strings.Join(Names(), ", "))
	}
	return r, nil
}

// Lookup returns the static metadata for r.
func Lookup(r Route) (Info, bool) {
	for _, info := range table {
		if info.Route == r {
			return info, true
		}
	}
	return Info{}, false
}

// Names returns the route names as plain strings.
func Names() []string {
	names := make([]string, 0, len(table))
	for _, info := range table {
		names = append(names, string(info.Route))
	}
	return names
}

// EnvVar returns the environment variable that overrides the base command for r.
func EnvVar(r Route) string {
	return EnvPrefix + strings.ToUpper(string(r)) + EnvSuffix
}

func (r Route) String() string {
	return string(r)
}
