package testharness

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"

	"github.com/proxoffensive/prox-mesh/internal/config"
	"github.com/proxoffensive/prox-mesh/internal/route"
)

var (
	buildOnce sync.Once
	builtBin  string
	buildErr  error
)

func proxMeshBinary(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("smoke tests build the binary; skipped in -short mode")
	}
	if runtime.GOOS == "windows" {
		t.Skip("fake tools are POSIX shell scripts")
	}

	buildOnce.Do(func() {
		repoRoot, err := DetectRepoRoot()
		if err != nil {
			buildErr = err
			return
		}
		binDir, err := os.MkdirTemp("", "prox-mesh-bin-")
		if err != nil {
			buildErr = err
			return
		}
		builtBin, buildErr = BuildBinary(context.Background(), repoRoot, binDir)
	})
	if buildErr != nil {
		t.Fatalf("failed to build prox-mesh: %v", buildErr)
	}
	return builtBin
}

func runSmokeScenario(t *testing.T, scenario Scenario) *SmokeResult {
	t.Helper()

	result, err := RunSmoke(context.Background(), SmokeOptions{
		Scenario:     scenario,
		Binary:       proxMeshBinary(t),
		WorkspaceDir: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("RunSmoke returned error: %v", err)
	}
	return result
}

func TestRunSmokeAskWithBrain(t *testing.T) {
	result := runSmokeScenario(t, ScenarioAskWithBrain)

	if result.ExitCode != 0 {
		t.Fatalf("expected exit 0, got %d\nstderr:%s", result.ExitCode, result.Stderr)
	}
	for _, want := range []string{"(dry-run) Would run:", "  claude \"", "Brain content", "Summarize X"} {
		if !strings.Contains(result.Stdout, want) {
			t.Fatalf("expected %q in stdout:\n%s", want, result.Stdout)
		}
	}
	if _, ran := result.Tools[0].Recorded(); ran {
		t.Fatal("dry-run must not start the tool")
	}
}

func TestRunSmokeForwardsExitCodeAndPrompt(t *testing.T) {
	result := runSmokeScenario(t, ScenarioForwardExitCode)

	if result.ExitCode != 3 {
		t.Fatalf("expected forwarded exit 3, got %d\nstderr:%s", result.ExitCode, result.Stderr)
	}
	if !strings.Contains(result.Stdout, "fake codex ran") {
		t.Fatalf("expected tool output on stdout:\n%s", result.Stdout)
	}
	if !strings.Contains(result.Stderr, "Running route 'edit'") {
		t.Fatalf("expected status line on stderr:\n%s", result.Stderr)
	}

	inv, ran := result.Tools[0].Recorded()
	if !ran {
		t.Fatal("expected fake codex to run")
	}
	if inv.ArgCount != "1" {
		t.Fatalf("prompt should arrive as a single argument, got %s", inv.ArgCount)
	}
	if inv.Route != string(route.Edit) {
		t.Fatalf("expected PROXMESH_ROUTE=edit, got %q", inv.Route)
	}
	if !strings.Contains(inv.Prompt, "Codex house rules") {
		t.Fatalf("expected route context in prompt:\n%s", inv.Prompt)
	}
	if !strings.HasSuffix(inv.Prompt, "[task]\nRefactor \"setup\" docs") {
		t.Fatalf("expected unescaped task at the end of prompt:\n%s", inv.Prompt)
	}
}

func TestRunSmokeMissingTool(t *testing.T) {
	result := runSmokeScenario(t, ScenarioMissingTool)

	if result.ExitCode != 1 {
		t.Fatalf("expected exit 1, got %d", result.ExitCode)
	}
	if !strings.Contains(result.Stderr, route.EnvVar(route.Research)) {
		t.Fatalf("expected override variable in stderr:\n%s", result.Stderr)
	}
}

func TestRunSmokePipedPrompt(t *testing.T) {
	result := runSmokeScenario(t, ScenarioPipedPrompt)

	if result.ExitCode != 0 {
		t.Fatalf("expected exit 0, got %d\nstderr:%s", result.ExitCode, result.Stderr)
	}
	inv, ran := result.Tools[0].Recorded()
	if !ran {
		t.Fatal("expected fake claude to run")
	}
	if strings.Contains(inv.Prompt, "Claude context") {
		t.Fatalf("--no-context should suppress the route context:\n%s", inv.Prompt)
	}
	if !strings.HasSuffix(inv.Prompt, "[task]\nDesign a Slingshot-based engagement layout.") {
		t.Fatalf("expected piped prompt:\n%s", inv.Prompt)
	}
}

func TestRunSmokeConfigFile(t *testing.T) {
	cfg := config.GenerateDefault()
	cfg.Routes[route.Generate].Cmd = "claude --print"
	cfg.Quoting = config.QuotingStrict

	result := runSmokeScenario(t, Scenario{
		Name:   "config-file",
		Args:   []string{"generate", "it's $HOME"},
		Tools:  []FakeTool{{Name: "claude"}},
		Config: cfg,
	})

	if result.ExitCode != 0 {
		t.Fatalf("expected exit 0, got %d\nstderr:%s", result.ExitCode, result.Stderr)
	}
	inv, ran := result.Tools[0].Recorded()
	if !ran {
		t.Fatal("expected fake claude to run")
	}
	if inv.ArgCount != "2" {
		t.Fatalf("expected --print plus the prompt, got %s args", inv.ArgCount)
	}
	if !strings.HasSuffix(inv.Prompt, "[task]\nit's $HOME") {
		t.Fatalf("strict quoting should pass the prompt verbatim:\n%s", inv.Prompt)
	}
	if _, err := os.Stat(filepath.Join(result.Workspace, config.FileName)); err != nil {
		t.Fatalf("expected config file in workspace: %v", err)
	}
}

func TestFakeToolRequiresName(t *testing.T) {
	if _, err := (FakeTool{Dir: t.TempDir()}).Install(); err == nil {
		t.Fatal("expected error for nameless tool")
	}
}
