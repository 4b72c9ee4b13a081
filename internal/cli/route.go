package cli

import (
	"errors"
	"fmt"

	"github.com/proxoffensive/prox-mesh/internal/assemble"
	"github.com/proxoffensive/prox-mesh/internal/checksum"
	"github.com/proxoffensive/prox-mesh/internal/executor"
	"github.com/proxoffensive/prox-mesh/internal/prompt"
	"github.com/proxoffensive/prox-mesh/internal/resolve"
	"github.com/proxoffensive/prox-mesh/internal/route"
	"github.com/spf13/cobra"
)

func newRouteCmd(r route.Route, env *Environment) *cobra.Command {
	info, _ := route.Lookup(r)

	cmd := &cobra.Command{
		Use:   fmt.Sprintf("%s [prompt...]", r),
		Short: info.Short,
		Long: fmt.Sprintf(`%s.

The prompt comes from --file, then positional text, then standard input when
it is not a terminal. The base command defaults to %q and can be replaced
with %s.`, info.Short, info.DefaultCommand, route.EnvVar(r)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoute(cmd, args, r, env)
		},
	}

	cmd.Flags().StringP("file", "f", "", "Read prompt text from a file")
	cmd.Flags().Bool("dry-run", false, "Print the resolved command without executing it")
	cmd.Flags().Bool("no-context", false, "Do not inject the route's context file")
	cmd.Flags().Bool("with-brain", false, "Inject the project brain file")
	cmd.Flags().String("extra-context-file", "", "Inject an extra context file (relative paths resolve against the root)")
	cmd.Flags().Bool("strict-quoting", false, "Single-quote the prompt so the shell does not interpret it")

	return cmd
}

type routeFlags struct {
	file          string
	dryRun        bool
	noContext     bool
	withBrain     bool
	extraContext  string
	strictQuoting bool
}

func readRouteFlags(cmd *cobra.Command) (routeFlags, error) {
	var f routeFlags
	var err error
	if f.file, err = cmd.Flags().GetString("file"); err != nil {
		return f, err
	}
	if f.dryRun, err = cmd.Flags().GetBool("dry-run"); err != nil {
		return f, err
	}
	if f.noContext, err = cmd.Flags().GetBool("no-context"); err != nil {
		return f, err
	}
	if f.withBrain, err = cmd.Flags().GetBool("with-brain"); err != nil {
		return f, err
	}
	if f.extraContext, err = cmd.Flags().GetString("extra-context-file"); err != nil {
		return f, err
	}
	if f.strictQuoting, err = cmd.Flags().GetBool("strict-quoting"); err != nil {
		return f, err
	}
	return f, nil
}

func runRoute(cmd *cobra.Command, args []string, r route.Route, env *Environment) error {
	flags, err := readRouteFlags(cmd)
	if err != nil {
		return err
	}

	s, err := newSession(cmd, env)
	if err != nil {
		return err
	}
	logger := s.logger.With("route", r)

	stdin := cmd.InOrStdin()
	userPrompt, err := prompt.Resolve(prompt.Sources{
		File:            flags.file,
		Args:            args,
		Stdin:           stdin,
		StdinIsTerminal: prompt.IsTerminal(stdin),
	})
	if err != nil {
		if errors.Is(err, prompt.ErrNoPrompt) {
			return &usageError{err: err}
		}
		return err
	}
	logger.Debug("prompt resolved",
		"bytes", len(userPrompt),
		"sha256", checksum.Short(checksum.SHA256String(userPrompt)))

	resolver := resolve.New(s.cfg)
	if env.LookPath != nil {
		resolver.LookPath = env.LookPath
	}
	res, err := resolver.Resolve(r)
	if err != nil {
		return err
	}
	logger.Debug("route resolved", "command", res.Command, "binary_path", res.BinaryPath, "source", res.Source)

	combined := assemble.New(s.cfg.Root, s.cfg, logger).Assemble(assemble.Options{
		Route:               r,
		BaseCommand:         res.Command,
		Prompt:              userPrompt,
		IncludeRouteContext: !flags.noContext,
		IncludeBrain:        flags.withBrain,
		ExtraContextPath:    flags.extraContext,
	})
	logger.Info("prompt assembled",
		"blocks", len(combined.Blocks),
		"bytes", len(combined.Text),
		"sha256", checksum.Short(checksum.SHA256String(combined.Text)))

	mode := executor.ParseQuoteMode(s.cfg.Quoting)
	if flags.strictQuoting {
		mode = executor.QuoteStrict
	}

	runner := env.Runner
	if runner == nil {
		shell := executor.NewShellRunner()
		shell.Stdin = stdin
		shell.Stdout = cmd.OutOrStdout()
		shell.Stderr = cmd.ErrOrStderr()
		runner = shell
	}

	ex := &executor.Executor{
		Runner: runner,
		Stdout: cmd.OutOrStdout(),
		Stderr: cmd.ErrOrStderr(),
		Logger: logger,
	}
	code, err := ex.Execute(cmd.Context(), executor.Invocation{
		Route:       r,
		CommandLine: executor.BuildCommandLine(res.Command, combined.Text, mode),
		Env: map[string]string{
			"PROXMESH_ROUTE": string(r),
			"PROXMESH_ROOT":  s.cfg.Root,
		},
	}, flags.dryRun)
	if code != 0 || err != nil {
		return &exitError{code: code, err: err}
	}
	return nil
}
