// Package lexer turns a source buffer into a stream of tokens with one token
// of lookahead.
//
// Scanners are tried in a fixed order: name, string/char, number/float and
// finally the caller's special-token table. The table is matched in order and
// the first entry that matches wins, so entries must be listed longest first
// wherever one is a prefix of another.
package lexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/xplshn/gtok/pkg/config"
	"github.com/xplshn/gtok/pkg/invariant"
	"github.com/xplshn/gtok/pkg/source"
	"github.com/xplshn/gtok/pkg/token"
	"github.com/xplshn/gtok/pkg/util"
)

// MaxNameLen caps the bytes captured in a single Name token.
const MaxNameLen = 255

// ScanError describes why a Null token was produced for anything other than
// a clean end of input.
type ScanError struct {
	File  string
	Pos   token.Pos
	Fault token.Fault
	Msg   string
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s", e.File, e.Pos.Line+1, e.Pos.Column+1, e.Msg)
}

var ErrEmptySpecial = errors.New("special token table has an empty entry")

// Shadow records a table entry that can never match because an earlier entry
// is a prefix of it.
type Shadow struct {
	Index      int
	ShadowedBy int
}

// CheckSpecials validates a special-token table and reports shadowed entries.
func CheckSpecials(specials []string) ([]Shadow, error) {
	var shadows []Shadow
	for i, s := range specials {
		if s == "" {
			return nil, fmt.Errorf("%w (index %d)", ErrEmptySpecial, i)
		}
		for j := 0; j < i; j++ {
			if len(specials[j]) <= len(s) && s[:len(specials[j])] == specials[j] {
				shadows = append(shadows, Shadow{Index: i, ShadowedBy: j})
				break
			}
		}
	}
	return shadows, nil
}

type Option func(*Lexer)

// WithLogger traces every token at debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Lexer) { l.logger = logger }
}

// WithReporter sends lexer warnings to r.
func WithReporter(r *util.Reporter) Option {
	return func(l *Lexer) { l.reporter = r }
}

// features caches the config lookups made on every byte.
type features struct {
	comments          bool
	fixedPointSkip    bool
	conventionalFloat bool
	signedFloat       bool
	hexEsc            bool
	utf8Names         bool
}

// Lexer holds three slots: previous, current and next. After a load,
// Current is Null(none) and Peek holds the first token, so the first Next
// returns the first token.
type Lexer struct {
	buf      *source.Buffer
	specials []string
	cfg      *config.Config
	feat     features
	reporter *util.Reporter
	logger   *slog.Logger

	previous token.Token
	current  token.Token
	next     token.Token

	currentErr *ScanError
	nextErr    *ScanError
	pendingErr *ScanError
}

// New builds a lexer over the given special-token table. The table is
// borrowed, not copied, and must not change while the lexer is in use.
// A nil cfg uses config.NewConfig().
func New(specials []string, cfg *config.Config, opts ...Option) (*Lexer, error) {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	shadows, err := CheckSpecials(specials)
	if err != nil {
		return nil, err
	}

	l := &Lexer{specials: specials, cfg: cfg}
	for _, opt := range opts {
		opt(l)
	}
	if l.logger == nil {
		l.logger = slog.New(slog.DiscardHandler)
	}
	if l.reporter != nil {
		for _, s := range shadows {
			l.reporter.Warnf(cfg, config.WarnShadowedSpecial, "special token %q (entry %d) is never matched: %q (entry %d) is listed first",
				specials[s.Index], s.Index, specials[s.ShadowedBy], s.ShadowedBy)
		}
	}
	return l, nil
}

// Load maps the file at path and primes the lookahead. Any previously loaded
// source is closed first.
func (l *Lexer) Load(path string) error {
	buf, err := source.Open(path)
	if err != nil {
		return fmt.Errorf("failed to load source: %w", err)
	}
	l.LoadBuffer(buf)
	return nil
}

// LoadBytes lexes data in memory under the given name.
func (l *Lexer) LoadBytes(name string, data []byte) {
	l.LoadBuffer(source.FromBytes(name, data))
}

// LoadBuffer takes ownership of buf; Close releases it.
func (l *Lexer) LoadBuffer(buf *source.Buffer) {
	invariant.Precondition(buf != nil, "LoadBuffer with nil buffer")
	if l.buf != nil && l.buf != buf {
		l.buf.Close()
	}
	l.buf = buf
	l.feat = features{
		comments:          l.cfg.IsFeatureEnabled(config.FeatComments),
		fixedPointSkip:    l.cfg.IsFeatureEnabled(config.FeatFixedPointSkip),
		conventionalFloat: l.cfg.IsFeatureEnabled(config.FeatConventionalFloat),
		signedFloat:       l.cfg.IsFeatureEnabled(config.FeatSignedFloat),
		hexEsc:            l.cfg.IsFeatureEnabled(config.FeatHexEsc),
		utf8Names:         l.cfg.IsFeatureEnabled(config.FeatUTF8Names),
	}

	start := buf.Pos()
	l.previous = token.NullToken(token.FaultNone, start)
	l.current = token.NullToken(token.FaultNone, start)
	l.currentErr = nil
	l.next, l.nextErr = l.readToken()
	l.logger.Debug("source loaded", "file", buf.Name(), "bytes", buf.Len(), "std", l.cfg.StdName)
}

// Next advances the stream by one token and returns the new current token.
// A Null result is terminal for this call only: the following call scans
// again from wherever the cursor stopped.
func (l *Lexer) Next() token.Token {
	l.checkLoaded()
	l.previous = l.current
	l.current, l.currentErr = l.next, l.nextErr
	l.next, l.nextErr = l.readToken()
	return l.current
}

func (l *Lexer) Current() token.Token  { return l.current }
func (l *Lexer) Previous() token.Token { return l.previous }

// Peek returns the token Next will produce, without consuming it.
func (l *Lexer) Peek() token.Token { return l.next }

// Err explains the current token when it is Null for any reason other than
// the end of input.
func (l *Lexer) Err() error {
	if l.currentErr == nil {
		return nil
	}
	return l.currentErr
}

// Resync steps over the byte that stopped the lookahead with a no-match, so
// a caller can continue after reporting it. It reports whether it moved.
func (l *Lexer) Resync() bool {
	l.checkLoaded()
	if l.next.Fault != token.FaultNoMatch {
		return false
	}
	if _, ok := l.buf.Advance(); !ok {
		return false
	}
	l.next, l.nextErr = l.readToken()
	return true
}

// Tokens drains the stream up to the first Null token. The error is nil when
// the stream ended cleanly.
func (l *Lexer) Tokens() ([]token.Token, error) {
	var toks []token.Token
	for {
		tok := l.Next()
		if tok.IsNull() {
			return toks, l.Err()
		}
		toks = append(toks, tok)
	}
}

// Source is the loaded buffer, or nil.
func (l *Lexer) Source() *source.Buffer { return l.buf }

func (l *Lexer) Config() *config.Config { return l.cfg }

// Close releases the loaded source. Tokens already produced stay valid;
// Next and Resync panic until another source is loaded.
func (l *Lexer) Close() error {
	if l.buf == nil {
		return nil
	}
	return l.buf.Close()
}

func (l *Lexer) checkLoaded() {
	invariant.Precondition(l.buf != nil, "lexer has no source loaded")
	invariant.Precondition(!l.buf.Closed(), "lexer used after Close: %s", l.buf.Name())
}

// readToken skips whitespace and comments, then lets the first scanner that
// accepts the current byte produce the token.
func (l *Lexer) readToken() (token.Token, *ScanError) {
	l.skip()
	start := l.buf.Pos()
	if !l.buf.InBounds() {
		tok := token.NullToken(token.FaultEOF, start)
		l.trace(tok)
		return tok, nil
	}

	scanners := [...]func(token.Pos) (token.Token, bool){
		l.scanName,
		l.scanString,
		l.scanNumber,
		l.scanSpecial,
	}
	for _, scan := range scanners {
		tok, ok := scan(start)
		if !ok {
			continue
		}
		tok.Pos.Len = l.buf.Offset() - start.Offset
		invariant.Invariant(tok.Pos.Len > 0 || tok.IsNull(), "scanner accepted %s without consuming input", tok.Type)
		err := l.pendingErr
		l.pendingErr = nil
		l.trace(tok)
		return tok, err
	}

	tok := l.fail(start, token.FaultNoMatch, fmt.Sprintf("unexpected character %q", l.buf.Current()))
	tok.Pos.Len = 1
	err := l.pendingErr
	l.pendingErr = nil
	l.trace(tok)
	return tok, err
}

// fail records why the token at start could not be produced.
func (l *Lexer) fail(start token.Pos, fault token.Fault, msg string) token.Token {
	l.pendingErr = &ScanError{File: l.buf.Name(), Pos: start, Fault: fault, Msg: msg}
	return token.NullToken(fault, start)
}

func (l *Lexer) warn(wt config.Warning, pos token.Pos, format string, args ...any) {
	if l.reporter != nil {
		l.reporter.Warn(l.cfg, wt, l.buf, pos, format, args...)
	}
}

func (l *Lexer) trace(tok token.Token) {
	if !l.logger.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	l.logger.Debug("token",
		"type", tok.Type.String(),
		"value", tok.Value(),
		"fault", tok.Fault.String(),
		"line", tok.Pos.Line,
		"column", tok.Pos.Column,
		"len", tok.Pos.Len)
}
