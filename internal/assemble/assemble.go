// Package assemble builds the combined prompt handed to an external tool: a
// fixed preamble, optional context blocks read from the repository, and the
// user's task, joined by Separator.
//
// Context files are best-effort. A file that is missing, unreadable, empty or
// outside the root contributes no block and is never an error.
package assemble

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/proxoffensive/prox-mesh/internal/checksum"
	"github.com/proxoffensive/prox-mesh/internal/config"
	"github.com/proxoffensive/prox-mesh/internal/fsutil"
	"github.com/proxoffensive/prox-mesh/internal/route"
)

// Separator joins blocks in the combined prompt.
const Separator = "\n\n===== prox-mesh =====\n\n"

// Kind identifies a block in the combined prompt.
type Kind string

const (
	KindPreamble     Kind = "preamble"
	KindRouteContext Kind = "route_context"
	KindBrain        Kind = "project_brain"
	KindExtra        Kind = "extra_context"
	KindTask         Kind = "task"
)

// Block is one labeled section of the combined prompt.
type Block struct {
	Kind   Kind
	Source string // path as configured or given; empty for preamble and task
	Text   string
}

// Render returns the block as it appears in the combined prompt.
func (b Block) Render() string {
	switch b.Kind {
	case KindPreamble:
		return b.Text
	case KindRouteContext:
		return fmt.Sprintf("[route context: %s]\n%s", b.Source, b.Text)
	case KindBrain:
		return fmt.Sprintf("[project brain: %s]\n%s", b.Source, b.Text)
	case KindExtra:
		return fmt.Sprintf("[extra context: %s]\n%s", b.Source, b.Text)
	default:
		return "[task]\n" + b.Text
	}
}

// Options select what goes into the combined prompt.
type Options struct {
	Route               route.Route
	BaseCommand         string // logged only; never copied into the prompt
	Prompt              string
	IncludeRouteContext bool
	IncludeBrain        bool
	ExtraContextPath    string
}

// Combined is the assembled prompt and the blocks it was built from.
type Combined struct {
	Text   string
	Blocks []Block
}

// Has reports whether a block of kind k was included.
func (c Combined) Has(k Kind) bool {
	for _, b := range c.Blocks {
		if b.Kind == k {
			return true
		}
	}
	return false
}

// Assembler reads context files relative to Root using the paths in Config.
type Assembler struct {
	Root     string
	Config   *config.Config
	MaxBytes int64
	Logger   *slog.Logger
}

// New returns an Assembler for root. A nil logger discards output.
func New(root string, cfg *config.Config, logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Assembler{
		Root:     root,
		Config:   cfg,
		MaxBytes: fsutil.DefaultMaxContextBytes,
		Logger:   logger,
	}
}

// Preamble returns the fixed opening block for a route. It carries no
// user-configured text: in compat quoting the shell expands anything but
// double quotes, so a base command echoed here would be evaluated twice.
func Preamble(r route.Route) string {
	return fmt.Sprintf("You are being invoked by prox-mesh for the '%s' route. Read the labeled context blocks, then complete the task in the final block.", r)
}

// Assemble builds the combined prompt. It only reads files; it never fails.
func (a *Assembler) Assemble(opts Options) Combined {
	a.Logger.Debug("assembling prompt", "route", opts.Route, "base_command", opts.BaseCommand)
	blocks := []Block{{Kind: KindPreamble, Text: Preamble(opts.Route)}}

	if opts.IncludeRouteContext {
		if rel := a.routeContextPath(opts.Route); rel != "" {
			if b, ok := a.rootBlock(KindRouteContext, rel); ok {
				blocks = append(blocks, b)
			}
		}
	}

	if opts.IncludeBrain && a.Config != nil && a.Config.Context.Brain != "" {
		if b, ok := a.rootBlock(KindBrain, a.Config.Context.Brain); ok {
			blocks = append(blocks, b)
		}
	}

	if opts.ExtraContextPath != "" {
		path := fsutil.ResolveAgainstRoot(a.Root, opts.ExtraContextPath)
		if b, ok := a.read(KindExtra, opts.ExtraContextPath, path); ok {
			blocks = append(blocks, b)
		}
	}

	blocks = append(blocks, Block{Kind: KindTask, Text: opts.Prompt})

	rendered := make([]string, len(blocks))
	for i, b := range blocks {
		rendered[i] = b.Render()
	}
	return Combined{Text: strings.Join(rendered, Separator), Blocks: blocks}
}

func (a *Assembler) routeContextPath(r route.Route) string {
	if a.Config == nil {
		return ""
	}
	rc := a.Config.Route(r)
	if rc == nil || rc.ContextKey == "" {
		return ""
	}
	return a.Config.Context.Tools[rc.ContextKey]
}

func (a *Assembler) rootBlock(kind Kind, rel string) (Block, bool) {
	path, err := fsutil.ResolveRootPath(a.Root, rel)
	if err != nil {
		a.Logger.Warn("skipping context file", "kind", kind, "path", rel, "error", err)
		return Block{}, false
	}
	return a.read(kind, rel, path)
}

func (a *Assembler) read(kind Kind, label, path string) (Block, bool) {
	data, ok := fsutil.ReadOptional(path, a.MaxBytes)
	if !ok {
		a.Logger.Debug("context file not available", "kind", kind, "path", path)
		return Block{}, false
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		a.Logger.Debug("context file empty", "kind", kind, "path", path)
		return Block{}, false
	}
	a.Logger.Debug("context block included",
		"kind", kind,
		"path", path,
		"bytes", len(text),
		"sha256", checksum.Short(checksum.SHA256String(text)))
	return Block{Kind: kind, Source: label, Text: text}, true
}
