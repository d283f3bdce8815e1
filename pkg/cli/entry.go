package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/funvibe/typelattice/internal/config"
)

// Exit codes
const (
	ExitOK       = 0
	ExitNo       = 1 // a judgment was false or an expectation failed
	ExitError    = 2
	usageCommand = "typelattice"
)

// App is one invocation of the command line. Handlers read args and write
// to the two streams; nothing touches os.Args or os.Exit directly.
type App struct {
	args   []string
	stdout io.Writer
	stderr io.Writer
	color  bool
	log    *slog.Logger
	code   int
}

// Main runs the command line and returns the process exit code.
// args includes the program name, as os.Args does.
func Main(args []string, stdout, stderr io.Writer) int {
	a := &App{
		args:   args,
		stdout: stdout,
		stderr: stderr,
		color:  colorEnabled(stdout),
		log:    newLogger(stderr),
	}
	return a.run()
}

func (a *App) run() int {
	handlers := []func() bool{
		a.handleHelp,
		a.handleCheck,
		a.handleDecide,
		a.handleExplain,
		a.handleServe,
		a.handleHistory,
		a.handleImportGo,
	}
	for _, h := range handlers {
		if h() {
			return a.code
		}
	}
	if len(a.args) >= 2 {
		fmt.Fprintf(a.stderr, "Unknown command %q\n", a.args[1])
	}
	a.usage()
	return ExitError
}

func (a *App) handleHelp() bool {
	if len(a.args) < 2 {
		a.usage()
		a.code = ExitError
		return true
	}
	switch a.args[1] {
	case "help", "-help", "--help", "-h":
		a.usage()
		return true
	}
	return false
}

func (a *App) usage() {
	fmt.Fprintf(a.stderr, `Usage: %[1]s <command> [options]

Commands:
  check   [--lattice FILE] [--journal DB] QUERIES.yaml...   run query files
  decide  [--lattice FILE] [--journal DB [--cached]] SUB SUP
                                                            decide SUB <: SUP, or reuse
                                                            a journal entry with --cached
  explain [--lattice FILE] SUB SUP                          decide and show the search
  serve   [--lattice FILE] [--journal DB] [--addr ADDR]     run the gRPC service
  history [--journal DB] [-n N]                             show recorded judgments
  import-go [--dir DIR] PATTERNS...                         declare generic Go types

SUB and SUP are YAML type documents, e.g. '{Seq: [Int]}'.
Without --lattice, %[2]s is searched for upwards from the working directory.
Log level is read from %[3]s (debug, info, warn, error).
`, usageCommand, config.LatticeFileName, config.LogLevelEnv)
}

// fail reports err and sets the error exit code. It always returns true so
// handlers can `return a.fail(err)`.
func (a *App) fail(err error) bool {
	fmt.Fprintf(a.stderr, "Error: %v\n", err)
	a.code = ExitError
	return true
}

func newLogger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	switch strings.ToLower(os.Getenv(config.LogLevelEnv)) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "error":
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
