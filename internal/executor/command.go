package executor

import (
	"strings"

	"github.com/alessio/shellescape"
)

// QuoteMode selects how the prompt is attached to the base command.
type QuoteMode string

const (
	// QuoteCompat wraps the prompt in double quotes and backslash-escapes
	// embedded double quotes. Nothing else is escaped, so $, backticks and
	// other shell syntax in the prompt are still interpreted by the shell.
	QuoteCompat QuoteMode = "compat"
	// QuoteStrict single-quotes the prompt so the shell passes it through verbatim.
	QuoteStrict QuoteMode = "strict"
)

// ParseQuoteMode maps a config value to a QuoteMode. Empty means QuoteCompat.
func ParseQuoteMode(s string) QuoteMode {
	if strings.EqualFold(strings.TrimSpace(s), string(QuoteStrict)) {
		return QuoteStrict
	}
	return QuoteCompat
}

// BuildCommandLine appends prompt to base as a single trailing shell argument.
func BuildCommandLine(base, prompt string, mode QuoteMode) string {
	if mode == QuoteStrict {
		return base + " " + shellescape.Quote(prompt)
	}
	return base + ` "` + strings.ReplaceAll(prompt, `"`, `\"`) + `"`
}
