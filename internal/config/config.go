package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/proxoffensive/prox-mesh/internal/fsutil"
	"github.com/proxoffensive/prox-mesh/internal/route"
)

// FileName is the optional per-repository configuration file, looked up at the root.
const FileName = "prox-mesh.json"

// Source records which layer supplied a route's base command.
type Source string

const (
	SourceDefault Source = "default"
	SourceFile    Source = "file"
	SourceEnv     Source = "env"
)

// Quoting modes for the trailing prompt argument.
const (
	QuotingCompat = "compat"
	QuotingStrict = "strict"
)

// Config represents the resolved prox-mesh configuration. It is built once at
// process start and handed to the resolver and assembler.
type Config struct {
	Version string                       `json:"version"`
	Root    string                       `json:"-"`
	Quoting string                       `json:"quoting,omitempty"`
	Routes  map[route.Route]*RouteConfig `json:"routes"`
	Context ContextPaths                 `json:"context"`
}

// RouteConfig holds the base command and context key for a single route.
type RouteConfig struct {
	Cmd        string `json:"cmd"`
	ContextKey string `json:"context_key,omitempty"`
	Source     Source `json:"-"`
}

// ContextPaths maps context tool keys and the project brain to root-relative paths.
type ContextPaths struct {
	Tools map[string]string `json:"tools"`
	Brain string            `json:"brain"`
}

// GenerateDefault creates a Config with the compiled-in route table.
func GenerateDefault() *Config {
	cfg := &Config{
		Version: "1.0",
		Quoting: QuotingCompat,
		Routes:  make(map[route.Route]*RouteConfig),
		Context: ContextPaths{
			Tools: map[string]string{
				route.KeyClaude: "claude.md",
				route.KeyGemini: "gemini.md",
				route.KeyCodex:  "codex.md",
			},
			Brain: "docs/project_brain.md",
		},
	}
	for _, r := range route.All() {
		info, _ := route.Lookup(r)
		cfg.Routes[r] = &RouteConfig{
			Cmd:        info.DefaultCommand,
			ContextKey: info.ContextKey,
			Source:     SourceDefault,
		}
	}
	return cfg
}

// Route returns the configuration for r, or nil if it is not configured.
func (c *Config) Route(r route.Route) *RouteConfig {
	if c.Routes == nil {
		return nil
	}
	return c.Routes[r]
}

// Merge layers a configuration file over c. Only fields set in the file win.
func (c *Config) Merge(file *Config) error {
	if file == nil {
		return nil
	}
	if file.Quoting != "" {
		c.Quoting = file.Quoting
	}
	for _, r := range sortedRoutes(file.Routes) {
		if _, ok := route.Lookup(r); !ok {
			return fmt.Errorf("configuration error: unknown route %q in 'routes'\n\nHint: Valid routes are: %s", r, strings.Join(route.Names(), ", "))
		}
		override := file.Routes[r]
		if override == nil {
			continue
		}
		current := c.Routes[r]
		if current == nil {
			current = &RouteConfig{}
			c.Routes[r] = current
		}
		if cmd := strings.TrimSpace(override.Cmd); cmd != "" {
			current.Cmd = cmd
			current.Source = SourceFile
		}
		if key := strings.TrimSpace(override.ContextKey); key != "" {
			current.ContextKey = key
		}
	}
	for key, path := range file.Context.Tools {
		if c.Context.Tools == nil {
			c.Context.Tools = make(map[string]string)
		}
		c.Context.Tools[key] = path
	}
	if file.Context.Brain != "" {
		c.Context.Brain = file.Context.Brain
	}
	return nil
}

// ApplyEnv applies PROXMESH_<ROUTE>_CMD overrides using lookup. Blank values are ignored.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if lookup == nil {
		return
	}
	for _, r := range route.All() {
		value, ok := lookup(route.EnvVar(r))
		if !ok || strings.TrimSpace(value) == "" {
			continue
		}
		rc := c.Routes[r]
		if rc == nil {
			info, _ := route.Lookup(r)
			rc = &RouteConfig{ContextKey: info.ContextKey}
			c.Routes[r] = rc
		}
		rc.Cmd = strings.TrimSpace(value)
		rc.Source = SourceEnv
	}
}

// Validate checks the configuration for errors and returns user-friendly error messages
func (c *Config) Validate() error {
	if c.Version == "" {
		return fmt.Errorf("configuration error: missing required field 'version'\n\nHint: Add a version field like:\n  \"version\": \"1.0\"")
	}

	switch c.Quoting {
	case "", QuotingCompat, QuotingStrict:
	default:
		return fmt.Errorf("configuration error: invalid 'quoting' value %q\n\nHint: Use \"compat\" (escape double quotes only) or \"strict\" (single-quote the prompt)", c.Quoting)
	}

	for _, r := range route.All() {
		rc := c.Routes[r]
		if rc == nil || strings.TrimSpace(rc.Cmd) == "" {
			return fmt.Errorf("configuration error: route '%s' has an empty 'cmd' field\n\nHint: Specify the command to run, or set %s:\n  \"routes\": {\n    \"%s\": {\"cmd\": \"claude\"}\n  }", r, route.EnvVar(r), r)
		}
		if rc.ContextKey != "" {
			if _, ok := c.Context.Tools[rc.ContextKey]; !ok {
				return fmt.Errorf("configuration error: route '%s' uses unknown context key %q\n\nHint: Add it under \"context\": {\"tools\": {\"%s\": \"%s.md\"}}", r, rc.ContextKey, rc.ContextKey, rc.ContextKey)
			}
		}
	}

	return nil
}

// LoadFromFile loads a configuration from a JSON file. The quoting mode is
// normalised to lower case.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	cfg.Quoting = strings.ToLower(strings.TrimSpace(cfg.Quoting))

	return &cfg, nil
}

// SaveToFile writes the configuration to a JSON file with 0600 permissions
func (c *Config) SaveToFile(path string) error {
	if err := fsutil.AtomicWriteJSON(path, c); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}
	return nil
}

func sortedRoutes(m map[route.Route]*RouteConfig) []route.Route {
	out := make([]route.Route, 0, len(m))
	for r := range m {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
