package cli

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/proxoffensive/prox-mesh/internal/executor"
	"github.com/proxoffensive/prox-mesh/internal/fsutil"
	"github.com/proxoffensive/prox-mesh/internal/resolve"
	"github.com/proxoffensive/prox-mesh/internal/route"
	"github.com/spf13/cobra"
)

func newRoutesCmd(env *Environment) *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "Show how each route resolves",
		Long: `Show the base command each route resolves to, where it came from
(default, config file or environment), the variable that overrides it,
and whether its binary and context file are present.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoutes(cmd, env)
		},
	}
}

func runRoutes(cmd *cobra.Command, env *Environment) error {
	s, err := newSession(cmd, env)
	if err != nil {
		return err
	}

	resolver := resolve.New(s.cfg)
	if env.LookPath != nil {
		resolver.LookPath = env.LookPath
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "root:    %s\n", s.cfg.Root)
	fmt.Fprintf(out, "quoting: %s\n\n", executor.ParseQuoteMode(s.cfg.Quoting))

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ROUTE\tCOMMAND\tSOURCE\tOVERRIDE\tBINARY\tCONTEXT")
	for _, r := range route.All() {
		res, err := resolver.Resolve(r)
		binary := res.BinaryPath
		var unresolved *resolve.UnresolvedToolError
		if errors.As(err, &unresolved) {
			binary = "not found"
		} else if err != nil {
			return err
		}

		ctxFile := "-"
		if rc := s.cfg.Route(r); rc != nil && rc.ContextKey != "" {
			rel := s.cfg.Context.Tools[rc.ContextKey]
			ctxFile = rel + " (missing)"
			if path, err := fsutil.ResolveRootPath(s.cfg.Root, rel); err == nil {
				if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
					ctxFile = rel
				}
			}
		}

		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", r, res.Command, res.Source, res.EnvVar, binary, ctxFile)
	}
	return tw.Flush()
}
