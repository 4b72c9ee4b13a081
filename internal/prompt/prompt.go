// Package prompt resolves the user's prompt from, in priority order, a prompt
// file, positional arguments, or piped standard input.
package prompt

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/proxoffensive/prox-mesh/internal/fsutil"
	"golang.org/x/term"
)

// ErrNoPrompt is returned when no source yields a non-empty prompt.
var ErrNoPrompt = errors.New("no prompt provided. Use positional text, --file, or pipe content via stdin")

// FileReadError reports that an explicitly requested prompt file could not be read.
type FileReadError struct {
	Path string
	Err  error
}

func (e *FileReadError) Error() string {
	return fmt.Sprintf("error reading file %s: %v", e.Path, e.Err)
}

func (e *FileReadError) Unwrap() error { return e.Err }

// Sources are the inputs a prompt can come from.
type Sources struct {
	File            string
	Args            []string
	Stdin           io.Reader
	StdinIsTerminal bool
}

// Resolve returns the first non-empty, trimmed prompt from src.
func Resolve(src Sources) (string, error) {
	if src.File != "" {
		data, err := fsutil.ReadRequired(src.File)
		if err != nil {
			return "", &FileReadError{Path: src.File, Err: unwrapOnce(err)}
		}
		if content := strings.TrimSpace(string(data)); content != "" {
			return content, nil
		}
	}

	if len(src.Args) > 0 {
		if content := strings.TrimSpace(strings.Join(src.Args, " ")); content != "" {
			return content, nil
		}
	}

	if src.Stdin != nil && !src.StdinIsTerminal {
		data, err := io.ReadAll(src.Stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		if content := strings.TrimSpace(string(data)); content != "" {
			return content, nil
		}
	}

	return "", ErrNoPrompt
}

// IsTerminal reports whether r is an interactive terminal. Readers that are
// not files (buffers, pipes wrapped by tests) are never terminals.
func IsTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok || f == nil {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

func unwrapOnce(err error) error {
	if inner := errors.Unwrap(err); inner != nil {
		return inner
	}
	return err
}
