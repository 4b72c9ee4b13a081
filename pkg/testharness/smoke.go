package testharness

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/proxoffensive/prox-mesh/internal/config"
	"github.com/proxoffensive/prox-mesh/internal/fsutil"
)

// Scenario defines one end-to-end invocation of the prox-mesh binary.
type Scenario struct {
	Name  string
	Args  []string
	Stdin string
	Env   map[string]string

	// Tools are installed on an isolated PATH. Missing tools stay missing.
	Tools []FakeTool
	// Files are written relative to the workspace root.
	Files map[string]string
	// Config, when set, is saved as the workspace's prox-mesh.json.
	Config *config.Config
}

var (
	// ScenarioAskWithBrain dry-runs ask with the project brain injected.
	ScenarioAskWithBrain = Scenario{
		Name:  "ask-with-brain",
		Args:  []string{"ask", "Summarize X", "--with-brain", "--dry-run"},
		Tools: []FakeTool{{Name: "claude"}},
		Files: map[string]string{"docs/project_brain.md": "Brain content"},
	}
	// ScenarioForwardExitCode runs a tool that fails and expects its status back.
	ScenarioForwardExitCode = Scenario{
		Name:  "forward-exit-code",
		Args:  []string{"edit", `Refactor "setup" docs`},
		Tools: []FakeTool{{Name: "codex", ExitCode: 3}},
		Files: map[string]string{"codex.md": "Codex house rules"},
	}
	// ScenarioMissingTool expects the override variable in the error.
	ScenarioMissingTool = Scenario{
		Name: "missing-tool",
		Args: []string{"research", "TLS downgrade attack latest techniques"},
	}
	// ScenarioPipedPrompt reads the prompt from stdin.
	ScenarioPipedPrompt = Scenario{
		Name:  "piped-prompt",
		Args:  []string{"plan", "--no-context"},
		Stdin: "Design a Slingshot-based engagement layout.\n",
		Tools: []FakeTool{{Name: "claude"}},
		Files: map[string]string{"claude.md": "Claude context"},
	}
)

// SmokeOptions configures RunSmoke.
type SmokeOptions struct {
	Scenario     Scenario
	Binary       string
	WorkspaceDir string
}

// SmokeResult captures the outcome of a smoke scenario.
type SmokeResult struct {
	Scenario  Scenario
	Workspace string
	ToolDir   string
	Tools     []FakeTool
	Stdout    string
	Stderr    string
	ExitCode  int
	RunErr    error
}

// RunSmoke runs the prox-mesh binary once in a fresh workspace.
func RunSmoke(ctx context.Context, opts SmokeOptions) (*SmokeResult, error) {
	if opts.Binary == "" {
		return nil, fmt.Errorf("prox-mesh binary path is required")
	}

	workspace := opts.WorkspaceDir
	if workspace == "" {
		var err error
		workspace, err = os.MkdirTemp("", "prox-mesh-smoke-")
		if err != nil {
			return nil, fmt.Errorf("failed to create workspace: %w", err)
		}
	}
	root := filepath.Join(workspace, "root")
	toolDir := filepath.Join(workspace, "tools")
	for _, dir := range []string{root, toolDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	for rel, content := range opts.Scenario.Files {
		if err := fsutil.AtomicWrite(filepath.Join(root, rel), []byte(content)); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", rel, err)
		}
	}
	if opts.Scenario.Config != nil {
		if err := opts.Scenario.Config.SaveToFile(filepath.Join(root, config.FileName)); err != nil {
			return nil, err
		}
	}

	tools := make([]FakeTool, 0, len(opts.Scenario.Tools))
	for _, tool := range opts.Scenario.Tools {
		tool.Dir = toolDir
		if _, err := tool.Install(); err != nil {
			return nil, err
		}
		tools = append(tools, tool)
	}

	stdOut := &bytes.Buffer{}
	stdErr := &bytes.Buffer{}

	cmd := exec.CommandContext(ctx, opts.Binary, opts.Scenario.Args...)
	cmd.Dir = root
	cmd.Stdin = strings.NewReader(opts.Scenario.Stdin)
	cmd.Stdout = stdOut
	cmd.Stderr = stdErr
	cmd.Env = mergeEnv(isolatedEnv(toolDir, root), opts.Scenario.Env)

	runErr := cmd.Run()

	result := &SmokeResult{
		Scenario:  opts.Scenario,
		Workspace: root,
		ToolDir:   toolDir,
		Tools:     tools,
		Stdout:    stdOut.String(),
		Stderr:    stdErr.String(),
		RunErr:    runErr,
	}

	var exitErr *exec.ExitError
	switch {
	case runErr == nil:
	case errors.As(runErr, &exitErr):
		result.ExitCode = exitErr.ExitCode()
		result.RunErr = nil
	default:
		return result, fmt.Errorf("failed to run prox-mesh: %w", runErr)
	}

	return result, nil
}

// isolatedEnv keeps only what a shell needs, with the fake tools first on PATH.
func isolatedEnv(toolDir, root string) []string {
	return []string{
		"PATH=" + toolDir + string(os.PathListSeparator) + "/usr/bin" + string(os.PathListSeparator) + "/bin",
		"HOME=" + root,
		"PROXMESH_ROOT=" + root,
	}
}

func mergeEnv(base []string, extra map[string]string) []string {
	env := append([]string{}, base...)
	for key, value := range extra {
		env = setEnv(env, key, value)
	}
	return env
}

// DetectRepoRoot locates the repository root by searching for go.mod.
func DetectRepoRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod not found (starting from %s)", dir)
		}
		dir = parent
	}
}
