package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fsnotify/fsnotify"
	"github.com/xplshn/gtok/pkg/cli"
	"github.com/xplshn/gtok/pkg/config"
	"github.com/xplshn/gtok/pkg/dump"
	"github.com/xplshn/gtok/pkg/lexer"
	"github.com/xplshn/gtok/pkg/token"
	"github.com/xplshn/gtok/pkg/util"
)

const progName = "gtok"

func main() {
	app := cli.NewApp(progName)
	app.Synopsis = "[options] <file> ..."
	app.Description = "Tokenize source files and print the token stream. Operators come from a special-token table that is matched in order, so list longer entries first."
	app.Authors = []string{"xplshn"}
	app.Repository = "<https://github.com/xplshn/gtok>"

	var (
		format       string
		specialsPath string
		std          string
		keepGoing    bool
		watch        bool
		stats        bool
		debug        bool
	)

	fs := app.FlagSet
	fs.String(&format, "format", "f", string(dump.FormatText), "Output format (text, json, cbor).", "format")
	fs.String(&specialsPath, "specials", "s", "", "Read the special-token table from a YAML file.", "file")
	fs.String(&std, "std", "", config.StdFixed, "Lexing standard (compat, fixed).", "std")
	fs.Bool(&keepGoing, "keep-going", "k", false, "Report unmatched characters and continue past them.")
	fs.Bool(&watch, "watch", "", false, "Tokenize again whenever an input file is written.")
	fs.Bool(&stats, "stats", "", false, "Print token counts and timing for each file.")
	fs.Bool(&debug, "debug", "", false, "Trace every token to stderr.")

	cfg := config.NewConfig()
	applyFlags := cfg.SetupFlagGroups(fs)

	app.Action = func(files []string) error {
		if len(files) == 0 {
			util.Fatalf(progName, "no input files specified.")
		}
		if err := cfg.ApplyStd(std); err != nil {
			util.Fatalf(progName, "%v", err)
		}
		if err := applyFlags(); err != nil {
			util.Fatalf(progName, "%v", err)
		}
		outFormat, err := dump.ParseFormat(format)
		if err != nil {
			util.Fatalf(progName, "%v", err)
		}
		if specialsPath != "" {
			if cfg.Specials, err = config.LoadSpecials(specialsPath); err != nil {
				util.Fatalf(progName, "%v", err)
			}
		}

		logger := slog.New(slog.DiscardHandler)
		if debug {
			logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
		}
		reporter := util.NewReporter(os.Stderr)
		l, err := lexer.New(cfg.Specials, cfg, lexer.WithLogger(logger), lexer.WithReporter(reporter))
		if err != nil {
			util.Fatalf(progName, "%v", err)
		}

		t := &tokenizer{lexer: l, reporter: reporter, format: outFormat, keepGoing: keepGoing, stats: stats, out: os.Stdout}
		for _, file := range files {
			if err := t.run(file); err != nil {
				util.Fatalf(progName, "%v", err)
			}
		}

		if watch {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()
			if err := watchFiles(ctx, files, t.run); err != nil {
				util.Fatalf(progName, "%v", err)
			}
			return nil
		}

		if reporter.Errors() > 0 {
			return fmt.Errorf("%d error(s)", reporter.Errors())
		}
		return nil
	}

	if err := app.Run(os.Args[1:]); err != nil {
		os.Exit(1)
	}
}

type tokenizer struct {
	lexer     *lexer.Lexer
	reporter  *util.Reporter
	format    dump.Format
	keepGoing bool
	stats     bool
	out       io.Writer
}

// run tokenizes one file and writes its dump. Scan failures are reported
// through the reporter; only I/O and encoding problems are returned.
func (t *tokenizer) run(path string) error {
	start := time.Now()
	if err := t.lexer.Load(path); err != nil {
		return err
	}
	defer t.lexer.Close()

	var toks []token.Token
	for {
		tok := t.lexer.Next()
		if !tok.IsNull() {
			toks = append(toks, tok)
			continue
		}
		if tok.Fault == token.FaultEOF {
			break
		}
		// A single skip pass can stop on whitespace after a comment; the
		// lookahead has already read past it.
		if tok.Fault == token.FaultNoMatch && t.lexer.Peek().Fault != token.FaultNoMatch {
			continue
		}
		var scanErr *lexer.ScanError
		if errors.As(t.lexer.Err(), &scanErr) {
			t.reporter.Error(t.lexer.Source(), tok.Pos, "%s", scanErr.Msg)
		}
		if !t.keepGoing {
			break
		}
		if tok.Fault == token.FaultNoMatch {
			t.lexer.Resync()
		}
	}

	src := t.lexer.Source()
	if err := dump.NewFile(path, src.Sum64(), t.lexer.Config().StdName, toks).Write(t.out, t.format); err != nil {
		return fmt.Errorf("failed to write tokens for %s: %w", path, err)
	}
	if t.stats {
		util.Infof(progName, "%s: %s tokens from %s in %s", path,
			humanize.Comma(int64(len(toks))), humanize.Bytes(uint64(src.Len())), time.Since(start).Round(time.Microsecond))
	}
	return nil
}

// watchFiles re-runs fn for every write to one of files until ctx ends. The
// parent directories are watched so files replaced by rename are still seen.
func watchFiles(ctx context.Context, files []string, fn func(string) error) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer w.Close()

	wanted := make(map[string]string, len(files))
	dirs := make(map[string]bool)
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return err
		}
		wanted[abs] = f
		dir := filepath.Dir(abs)
		if !dirs[dir] {
			if err := w.Add(dir); err != nil {
				return fmt.Errorf("failed to watch %s: %w", dir, err)
			}
			dirs[dir] = true
		}
	}

	util.Infof(progName, "watching %d file(s), press Ctrl+C to stop", len(files))
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			abs, err := filepath.Abs(ev.Name)
			if err != nil {
				continue
			}
			if f, ok := wanted[abs]; ok {
				if err := fn(f); err != nil {
					fmt.Fprintf(os.Stderr, "%s: error: %v\n", progName, err)
				}
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watch failed: %w", err)
		}
	}
}
