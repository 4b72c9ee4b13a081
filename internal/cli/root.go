package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/proxoffensive/prox-mesh/internal/executor"
	"github.com/proxoffensive/prox-mesh/internal/route"
	"github.com/spf13/cobra"
)

// Environment captures the process-level inputs of a run so tests can
// substitute them. Nil fields fall back to the real process.
type Environment struct {
	LookupEnv  func(string) (string, bool)
	LookPath   func(string) (string, error)
	Runner     executor.Runner
	Executable string
	WorkingDir string
}

// DefaultEnvironment returns an Environment bound to the running process.
func DefaultEnvironment() *Environment {
	return &Environment{LookupEnv: os.LookupEnv}
}

// NewRootCommand builds the prox-mesh command tree.
func NewRootCommand(env *Environment) *cobra.Command {
	if env == nil {
		env = DefaultEnvironment()
	}

	rootCmd := &cobra.Command{
		Use:   "prox-mesh",
		Short: "Prox Offensive local mesh router",
		Long: `prox-mesh routes high-level actions (plan, research, edit, ask, generate)
to external AI command-line tools, optionally prefixing the prompt with
context files from the repository.`,
		Example:       rootExamples,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &usageError{err: err}
	})

	rootCmd.PersistentFlags().String("root", "", "Repository root holding context files (default: $PROXMESH_ROOT or discovered)")
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to prox-mesh.json (default: <root>/prox-mesh.json if present)")
	rootCmd.PersistentFlags().String("log-level", "", "Diagnostic log level: debug, info, warn, error (default: $PROXMESH_LOG_LEVEL or warn)")

	for _, r := range route.All() {
		rootCmd.AddCommand(newRouteCmd(r, env))
	}
	rootCmd.AddCommand(newRoutesCmd(env))

	return rootCmd
}

// Execute runs prox-mesh with the process arguments and returns the exit code.
func Execute(ctx context.Context) int {
	return Run(ctx, NewRootCommand(DefaultEnvironment()), os.Args[1:])
}

// Run executes cmd with args and maps the outcome to an exit code, reporting
// any error on the command's error stream.
func Run(ctx context.Context, cmd *cobra.Command, args []string) int {
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	if err != nil && strings.HasPrefix(err.Error(), "unknown command") {
		err = &usageError{err: err}
	}
	reportError(cmd.ErrOrStderr(), err)
	return exitCode(err)
}

var rootExamples = func() string {
	var b strings.Builder
	b.WriteString(`  prox-mesh plan "Design a Slingshot-based engagement layout."
  prox-mesh research "TLS downgrade attack latest techniques"
  prox-mesh edit --extra-context-file docs/host_cli_setup.md "Make this clearer."
  echo "Write a summary of docs/project_brain.md" | prox-mesh ask --with-brain

Environment overrides:
`)
	for _, r := range route.All() {
		info, _ := route.Lookup(r)
		fmt.Fprintf(&b, "  %-22s # default: %s\n", route.EnvVar(r), info.DefaultCommand)
	}
	return strings.TrimRight(b.String(), "\n")
}()

// exitError carries an exit code out of a command. A nil err means the
// failure was already reported (a child's own non-zero exit).
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

// usageError marks malformed invocations (bad flags, missing prompt).
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }

func (e *usageError) Unwrap() error { return e.err }

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	if errors.Is(err, executor.ErrInterrupted) {
		return executor.ExitInterrupted
	}
	if errors.Is(err, executor.ErrTerminated) {
		return executor.ExitTerminated
	}
	return 1
}

func reportError(w io.Writer, err error) {
	if err == nil {
		return
	}
	var ee *exitError
	if errors.As(err, &ee) && ee.err == nil {
		return
	}
	fmt.Fprintf(w, "[prox-mesh] %s\n", err)

	var ue *usageError
	if errors.As(err, &ue) {
		fmt.Fprintln(w, "[prox-mesh] Run 'prox-mesh --help' for usage.")
	}
}
