package cli

import (
	"io"
	"os"

	"github.com/funvibe/typelattice/internal/config"
	"github.com/mattn/go-isatty"
)

const (
	ansiReset = "\033[0m"
	ansiRed   = "\033[31m"
	ansiGreen = "\033[32m"
	ansiDim   = "\033[2m"
)

// colorEnabled reports whether w is a terminal that should get ANSI colors.
func colorEnabled(w io.Writer) bool {
	// NO_COLOR convention: https://no-color.org/
	if _, ok := os.LookupEnv(config.NoColorEnv); ok {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (a *App) paint(color, s string) string {
	if !a.color {
		return s
	}
	return color + s + ansiReset
}

func (a *App) verdict(ok bool) string {
	if ok {
		return a.paint(ansiGreen, "PASS")
	}
	return a.paint(ansiRed, "FAIL")
}
