package util

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/xplshn/gtok/pkg/config"
	"github.com/xplshn/gtok/pkg/token"
)

// Source is the part of a source buffer a diagnostic needs to quote the
// offending line. It must still be open when the diagnostic is reported.
type Source interface {
	Name() string
	Bytes() []byte
}

type Reporter struct {
	out      io.Writer
	color    bool
	errors   int
	warnings int
}

// NewReporter writes diagnostics to out, colored when out is a terminal.
func NewReporter(out io.Writer) *Reporter {
	r := &Reporter{out: out}
	if f, ok := out.(*os.File); ok {
		fd := f.Fd()
		r.color = isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
	}
	return r
}

func (r *Reporter) Errors() int   { return r.errors }
func (r *Reporter) Warnings() int { return r.warnings }

func (r *Reporter) paint(code, s string) string {
	if !r.color {
		return s
	}
	return "\033[" + code + "m" + s + "\033[0m"
}

// Error prints a formatted error pointing at pos in src.
func (r *Reporter) Error(src Source, pos token.Pos, format string, args ...any) {
	r.errors++
	r.report(src, pos, r.paint("31", "error:"), fmt.Sprintf(format, args...))
}

// Warn prints a formatted warning if wt is enabled in cfg.
func (r *Reporter) Warn(cfg *config.Config, wt config.Warning, src Source, pos token.Pos, format string, args ...any) {
	if !cfg.IsWarningEnabled(wt) {
		return
	}
	r.warnings++
	msg := fmt.Sprintf(format, args...) + fmt.Sprintf(" [-W%s]", cfg.Warnings[wt].Name)
	r.report(src, pos, r.paint("33", "warning:"), msg)
}

// Warnf prints a warning that has no source position, if wt is enabled.
func (r *Reporter) Warnf(cfg *config.Config, wt config.Warning, format string, args ...any) {
	if !cfg.IsWarningEnabled(wt) {
		return
	}
	r.warnings++
	fmt.Fprintf(r.out, "%s %s [-W%s]\n", r.paint("33", "warning:"), fmt.Sprintf(format, args...), cfg.Warnings[wt].Name)
}

func (r *Reporter) report(src Source, pos token.Pos, label, msg string) {
	name := "<unknown>"
	if src != nil {
		name = src.Name()
	}
	fmt.Fprintf(r.out, "%s:%d:%d: %s %s\n", name, pos.Line+1, pos.Column+1, label, msg)
	if src != nil {
		r.printErrorLine(src.Bytes(), pos)
	}
}

// printErrorLine prints the source line holding pos and a caret under it
func (r *Reporter) printErrorLine(content []byte, pos token.Pos) {
	if pos.Offset < 0 || pos.Offset > len(content) {
		return
	}
	lineStart := bytes.LastIndexByte(content[:pos.Offset], '\n') + 1
	lineEnd := len(content)
	if i := bytes.IndexByte(content[pos.Offset:], '\n'); i >= 0 {
		lineEnd = pos.Offset + i
	}

	fmt.Fprintf(r.out, "  %s\n", content[lineStart:lineEnd])

	caret := "^"
	if pos.Len > 1 {
		caret += strings.Repeat("~", min(pos.Len, lineEnd-pos.Offset)-1)
	}
	fmt.Fprintf(r.out, "  %s%s\n", strings.Repeat(" ", pos.Offset-lineStart), r.paint("32", caret))
}

// Fatalf prints a diagnostic that is not tied to a source position and
// exits the program.
func Fatalf(prog, format string, args ...any) {
	fmt.Fprintf(os.Stderr, "%s: error: %s\n", prog, fmt.Sprintf(format, args...))
	os.Exit(1)
}

// Infof prints a progress message to stderr.
func Infof(prog, format string, args ...any) {
	fmt.Fprintf(os.Stderr, "%s: info: %s\n", prog, fmt.Sprintf(format, args...))
}
