package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/funvibe/typelattice/internal/config"
	"github.com/funvibe/typelattice/internal/journal"
	"github.com/funvibe/typelattice/internal/lattice"
	"github.com/funvibe/typelattice/internal/service"
	"github.com/sanity-io/litter"
	"gopkg.in/yaml.v3"
)

// switches are options that take no value. They are reported as "true".
var switches = map[string]bool{
	"--cached": true,
}

// parseOptions pulls "--name VALUE" and "--name=VALUE" pairs for the given
// names out of args and returns them with the remaining arguments.
func parseOptions(args []string, names ...string) (map[string]string, []string, error) {
	known := make(map[string]bool, len(names))
	for _, n := range names {
		known[n] = true
	}
	opts := make(map[string]string)
	var rest []string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "-") || arg == "-" {
			rest = append(rest, arg)
			continue
		}
		name, value, hasValue := strings.Cut(arg, "=")
		if !known[name] {
			return nil, nil, fmt.Errorf("unknown option %s", name)
		}
		if !hasValue && switches[name] {
			value = "true"
		} else if !hasValue {
			if i+1 >= len(args) {
				return nil, nil, fmt.Errorf("option %s needs a value", name)
			}
			i++
			value = args[i]
		}
		opts[name] = value
	}
	return opts, rest, nil
}

func (a *App) isCommand(name string) bool {
	return len(a.args) >= 2 && a.args[1] == name
}

func (a *App) loadLattice(path string) (*lattice.Lattice, error) {
	if path == "" {
		found, err := lattice.FindConfig(".")
		if err != nil {
			return nil, err
		}
		if found == "" {
			return nil, fmt.Errorf("no %s found; use --lattice", config.LatticeFileName)
		}
		path = found
	}
	cfg, err := lattice.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	l, err := lattice.Build(cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	a.log.Debug("lattice loaded", "path", path, "types", len(cfg.Types))
	return l, nil
}

// openJournal opens the journal named by the option or the environment.
// No journal configured is not an error; the result is nil.
func (a *App) openJournal(ctx context.Context, path string) (*journal.Journal, error) {
	if path == "" {
		path = os.Getenv(config.JournalEnv)
	}
	if path == "" {
		return nil, nil
	}
	return journal.Open(ctx, path)
}

func (a *App) record(ctx context.Context, j *journal.Journal, jd lattice.Judgment) {
	if j == nil {
		return
	}
	e, err := j.Record(ctx, journal.Entry{
		Sub:    jd.Sub.String(),
		Sup:    jd.Sup.String(),
		Result: jd.Result,
		Passes: jd.Trace.Passes,
		Source: "cli",
	})
	if err != nil {
		a.log.Warn("journal write failed", "err", err)
		return
	}
	a.log.Debug("recorded", "id", e.ID)
}

func (a *App) handleCheck() bool {
	if !a.isCommand("check") {
		return false
	}
	opts, files, err := parseOptions(a.args[2:], "--lattice", "--journal")
	if err != nil {
		return a.fail(err)
	}
	if len(files) == 0 {
		fmt.Fprintf(a.stderr, "Usage: %s check [--lattice FILE] [--journal DB] QUERIES.yaml...\n", usageCommand)
		a.code = ExitError
		return true
	}

	ctx := context.Background()
	j, err := a.openJournal(ctx, opts["--journal"])
	if err != nil {
		return a.fail(err)
	}
	if j != nil {
		defer j.Close()
	}

	total, failed := 0, 0
	for _, path := range files {
		qf, err := lattice.LoadQueries(path)
		if err != nil {
			return a.fail(err)
		}
		latticePath := opts["--lattice"]
		if latticePath == "" {
			latticePath = qf.Lattice
		}
		l, err := a.loadLattice(latticePath)
		if err != nil {
			return a.fail(err)
		}
		for _, q := range qf.Queries {
			total++
			jd, err := l.Judge(&q.Sub, &q.Sup)
			if err != nil {
				failed++
				fmt.Fprintf(a.stdout, "%s %s: %v\n", a.paint(ansiRed, "ERROR"), q.Name, err)
				continue
			}
			a.record(ctx, j, jd)
			line := fmt.Sprintf("%s <: %s = %v", jd.Sub, jd.Sup, jd.Result)
			if q.Expect == nil {
				fmt.Fprintf(a.stdout, "%s %s: %s\n", a.paint(ansiDim, "----"), q.Name, line)
				continue
			}
			ok := *q.Expect == jd.Result
			if !ok {
				failed++
			}
			fmt.Fprintf(a.stdout, "%s %s: %s\n", a.verdict(ok), q.Name, line)
		}
	}
	fmt.Fprintf(a.stdout, "\n%d queries, %d failed\n", total, failed)
	if failed > 0 {
		a.code = ExitNo
	}
	return true
}

func (a *App) handleDecide() bool {
	if !a.isCommand("decide") {
		return false
	}
	opts, rest, err := parseOptions(a.args[2:], "--lattice", "--journal", "--cached")
	if err != nil {
		return a.fail(err)
	}
	if len(rest) != 2 {
		fmt.Fprintf(a.stderr, "Usage: %s decide [--lattice FILE] [--journal DB [--cached]] SUB SUP\n", usageCommand)
		a.code = ExitError
		return true
	}
	l, err := a.loadLattice(opts["--lattice"])
	if err != nil {
		return a.fail(err)
	}

	ctx := context.Background()
	j, err := a.openJournal(ctx, opts["--journal"])
	if err != nil {
		return a.fail(err)
	}
	if j != nil {
		defer j.Close()
	}

	if _, cached := opts["--cached"]; cached {
		if j == nil {
			return a.fail(errors.New("--cached needs a journal: use --journal or " + config.JournalEnv))
		}
		e, found, err := a.lookup(ctx, j, l, rest[0], rest[1])
		if err != nil {
			return a.fail(err)
		}
		if found {
			fmt.Fprintf(a.stdout, "%s <: %s = %v %s\n", e.Sub, e.Sup, e.Result, a.paint(ansiDim, "(journal "+e.ID.String()+")"))
			if !e.Result {
				a.code = ExitNo
			}
			return true
		}
	}

	jd, err := l.JudgeText(rest[0], rest[1])
	if err != nil {
		return a.fail(err)
	}
	a.record(ctx, j, jd)

	fmt.Fprintf(a.stdout, "%s <: %s = %v\n", jd.Sub, jd.Sup, jd.Result)
	if !jd.Result {
		a.code = ExitNo
	}
	return true
}

// lookup finds an earlier judgment of the two documents without deciding
// anything. Types are matched by their printed form.
func (a *App) lookup(ctx context.Context, j *journal.Journal, l *lattice.Lattice, sub, sup string) (journal.Entry, bool, error) {
	x, err := l.ParseDocument(sub)
	if err != nil {
		return journal.Entry{}, false, fmt.Errorf("sub: %w", err)
	}
	y, err := l.ParseDocument(sup)
	if err != nil {
		return journal.Entry{}, false, fmt.Errorf("sup: %w", err)
	}
	e, err := j.Lookup(ctx, x.String(), y.String())
	if errors.Is(err, journal.ErrNotFound) {
		a.log.Debug("not in journal", "sub", x, "sup", y)
		return journal.Entry{}, false, nil
	}
	if err != nil {
		return journal.Entry{}, false, err
	}
	return e, true, nil
}

func (a *App) handleExplain() bool {
	if !a.isCommand("explain") {
		return false
	}
	opts, rest, err := parseOptions(a.args[2:], "--lattice")
	if err != nil {
		return a.fail(err)
	}
	if len(rest) != 2 {
		fmt.Fprintf(a.stderr, "Usage: %s explain [--lattice FILE] SUB SUP\n", usageCommand)
		a.code = ExitError
		return true
	}
	l, err := a.loadLattice(opts["--lattice"])
	if err != nil {
		return a.fail(err)
	}
	jd, err := l.JudgeText(rest[0], rest[1])
	if err != nil {
		return a.fail(err)
	}

	tr := jd.Trace
	fmt.Fprintf(a.stdout, "%s <: %s\n", jd.Sub, jd.Sup)
	fmt.Fprintf(a.stdout, "  result:       %v\n", jd.Result)
	fmt.Fprintf(a.stdout, "  passes:       %d\n", tr.Passes)
	fmt.Fprintf(a.stdout, "  steps:        %d\n", tr.Steps)
	fmt.Fprintf(a.stdout, "  nested:       %d\n", tr.Nested)
	fmt.Fprintf(a.stdout, "  renames:      %d\n", tr.Renames)
	fmt.Fprintf(a.stdout, "  left slots:   %d\n", tr.LeftSlots)
	fmt.Fprintf(a.stdout, "  right slots:  %d\n", tr.RightSlots)

	dump := litter.Options{StripPackageNames: true, HideZeroValues: true}
	fmt.Fprintf(a.stdout, "%s\n%s\n", a.paint(ansiDim, "--- sub"), dump.Sdump(jd.Sub))
	fmt.Fprintf(a.stdout, "%s\n%s\n", a.paint(ansiDim, "--- sup"), dump.Sdump(jd.Sup))
	if !jd.Result {
		a.code = ExitNo
	}
	return true
}

func (a *App) handleServe() bool {
	if !a.isCommand("serve") {
		return false
	}
	opts, rest, err := parseOptions(a.args[2:], "--lattice", "--journal", "--addr")
	if err != nil {
		return a.fail(err)
	}
	if len(rest) != 0 {
		return a.fail(fmt.Errorf("serve takes no arguments, got %q", rest))
	}
	l, err := a.loadLattice(opts["--lattice"])
	if err != nil {
		return a.fail(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	j, err := a.openJournal(ctx, opts["--journal"])
	if err != nil {
		return a.fail(err)
	}
	if j != nil {
		defer j.Close()
	}

	srv, err := service.New(l, service.Options{Journal: j, Logger: a.log})
	if err != nil {
		return a.fail(err)
	}
	addr := opts["--addr"]
	if addr == "" {
		addr = config.DefaultServiceAddr
	}
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return a.fail(err)
	}
	fmt.Fprintf(a.stderr, "listening on %s\n", lis.Addr())
	if err := srv.Serve(ctx, lis); err != nil {
		return a.fail(err)
	}
	return true
}

func (a *App) handleHistory() bool {
	if !a.isCommand("history") {
		return false
	}
	opts, _, err := parseOptions(a.args[2:], "--journal", "-n")
	if err != nil {
		return a.fail(err)
	}
	limit := config.DefaultHistoryLimit
	if s, ok := opts["-n"]; ok {
		limit, err = strconv.Atoi(s)
		if err != nil || limit <= 0 {
			return a.fail(fmt.Errorf("-n: want a positive number, got %q", s))
		}
	}

	ctx := context.Background()
	j, err := a.openJournal(ctx, opts["--journal"])
	if err != nil {
		return a.fail(err)
	}
	if j == nil {
		return a.fail(errors.New("no journal: use --journal or " + config.JournalEnv))
	}
	defer j.Close()

	entries, err := j.Recent(ctx, limit)
	if err != nil {
		return a.fail(err)
	}
	for _, e := range entries {
		fmt.Fprintf(a.stdout, "%s  %-5v  %s <: %s  %s\n",
			e.CreatedAt.Format("2006-01-02 15:04:05"), e.Result, e.Sub, e.Sup, a.paint(ansiDim, e.ID.String()))
	}
	return true
}

func (a *App) handleImportGo() bool {
	if !a.isCommand("import-go") {
		return false
	}
	opts, patterns, err := parseOptions(a.args[2:], "--dir")
	if err != nil {
		return a.fail(err)
	}
	if len(patterns) == 0 {
		fmt.Fprintf(a.stderr, "Usage: %s import-go [--dir DIR] PATTERNS...\n", usageCommand)
		a.code = ExitError
		return true
	}
	dir := opts["--dir"]
	if dir == "" {
		dir = "."
	}
	cfg, err := lattice.ImportGoPackages(dir, patterns...)
	if err != nil {
		return a.fail(err)
	}
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return a.fail(err)
	}
	a.stdout.Write(out)
	return true
}
