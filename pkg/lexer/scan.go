package lexer

import (
	"errors"
	"math"
	"slices"
	"strconv"

	"github.com/xplshn/gtok/pkg/config"
	"github.com/xplshn/gtok/pkg/token"
)

// stringChunk is both the initial capacity of a string literal's buffer and
// the amount it grows by.
const stringChunk = 128

func isWhitespace(c byte) bool { return c == ' ' || c == '\t' || c == '\n' || c == '\r' }
func isDigit(c byte) bool      { return c >= '0' && c <= '9' }

// isNameStart accepts ASCII letters and UTF-8 lead bytes.
func isNameStart(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= 0xC0
}

func (l *Lexer) isNameCont(c byte) bool {
	return isNameStart(c) || isDigit(c) || (l.feat.utf8Names && c >= 0x80 && c < 0xC0)
}

// skip runs the whitespace and comment skippers. Without fixed-point-skip it
// makes exactly one pass of each, so "// x\n   y" leaves the spaces in front
// of y for the next read.
func (l *Lexer) skip() {
	if !l.feat.fixedPointSkip {
		l.skipWhitespace()
		l.skipComment()
		return
	}
	for {
		l.skipWhitespace()
		if !l.skipComment() {
			return
		}
	}
}

func (l *Lexer) skipWhitespace() {
	for l.buf.InBounds() && isWhitespace(l.buf.Current()) {
		l.buf.Advance()
	}
}

// skipComment consumes one "//" comment through its newline, if the cursor
// is on one.
func (l *Lexer) skipComment() bool {
	if !l.feat.comments || !l.buf.HasSpace(2) {
		return false
	}
	if l.buf.Peek(0) != '/' || l.buf.Peek(1) != '/' {
		return false
	}
	for {
		ch, ok := l.buf.Advance()
		if !ok || ch == '\n' {
			return true
		}
	}
}

func (l *Lexer) scanName(start token.Pos) (token.Token, bool) {
	if !isNameStart(l.buf.Current()) {
		return token.Token{}, false
	}
	from := l.buf.Offset()
	l.buf.Advance()
	size := 1
	for l.buf.InBounds() && l.isNameCont(l.buf.Current()) && size < MaxNameLen {
		l.buf.Advance()
		size++
	}
	if size == MaxNameLen && l.buf.InBounds() && l.isNameCont(l.buf.Current()) {
		l.warn(config.WarnTruncatedName, start, "name truncated to %d bytes", MaxNameLen)
	}
	return token.NameToken(string(l.buf.Slice(from)), start), true
}

func (l *Lexer) scanString(start token.Pos) (token.Token, bool) {
	switch {
	case l.buf.Match('"'):
		text := make([]byte, 0, stringChunk)
		for {
			ch, res := l.decodeChar('"')
			switch res {
			case decodedEnd:
				return token.StringToken(string(text), start), true
			case decodedFail:
				return l.fail(start, token.FaultScan, "unterminated string literal"), true
			}
			if len(text) == cap(text) {
				text = slices.Grow(text, stringChunk)
			}
			text = append(text, ch)
		}

	case l.buf.Match('\''):
		ch, res := l.decodeChar('\'')
		switch res {
		case decodedEnd:
			return l.fail(start, token.FaultScan, "empty character literal"), true
		case decodedFail:
			return l.fail(start, token.FaultScan, "unterminated character literal"), true
		}
		if !l.buf.Match('\'') {
			return l.fail(start, token.FaultScan, "character literal holds more than one character or is unterminated"), true
		}
		return token.CharToken(ch, start), true
	}
	return token.Token{}, false
}

type decodeResult int

const (
	decodedChar decodeResult = iota
	decodedEnd
	decodedFail
)

// decodeChar reads one logical character of a literal closed by terminator:
// either a raw byte or an escape sequence. Reaching the terminator consumes
// it and yields decodedEnd; running out of input yields decodedFail.
func (l *Lexer) decodeChar(terminator byte) (byte, decodeResult) {
	escPos := l.buf.Pos()
	if l.buf.Match('\\') {
		raw, ok := l.buf.Advance()
		if !ok {
			return 0, decodedFail
		}
		switch raw {
		case 'b':
			return '\b', decodedChar
		case 'n':
			return '\n', decodedChar
		case 't':
			return '\t', decodedChar
		case 'r':
			return '\r', decodedChar
		case '0':
			return 0, decodedChar
		case '\\', '\'', '"':
			return raw, decodedChar
		case 'x':
			// Without hex-esc the payload is left in the literal.
			if l.feat.hexEsc {
				return l.decodeHex(escPos), decodedChar
			}
			return 'x', decodedChar
		default:
			escPos.Len = 2
			l.warn(config.WarnUnrecognizedEscape, escPos, "unrecognized escape sequence '\\%c'", raw)
			return raw, decodedChar
		}
	}
	if l.buf.Match(terminator) {
		return 0, decodedEnd
	}
	ch, ok := l.buf.Advance()
	if !ok {
		return 0, decodedFail
	}
	return ch, decodedChar
}

// decodeHex reads up to two hex digits after "\x".
func (l *Lexer) decodeHex(escPos token.Pos) byte {
	var val byte
	digits := 0
	for digits < 2 && l.buf.InBounds() {
		d, ok := hexValue(l.buf.Current())
		if !ok {
			break
		}
		val = val*16 + d
		l.buf.Advance()
		digits++
	}
	if digits == 0 {
		escPos.Len = 2
		l.warn(config.WarnUnrecognizedEscape, escPos, "'\\x' escape without hex digits")
		return 'x'
	}
	return val
}

func hexValue(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

// scanNumber accepts an optional '-' only when a digit follows it, so a lone
// '-' is left for the special table.
func (l *Lexer) scanNumber(start token.Pos) (token.Token, bool) {
	negative := false
	switch c := l.buf.Current(); {
	case c == '-':
		if !l.buf.HasSpace(2) || !isDigit(l.buf.Peek(1)) {
			return token.Token{}, false
		}
		negative = true
		l.buf.Advance()
	case !isDigit(c):
		return token.Token{}, false
	}

	digitsFrom := l.buf.Offset()
	var value uint64
	overflow := false
	for l.buf.InBounds() && isDigit(l.buf.Current()) {
		d := uint64(l.buf.Current() - '0')
		if value > (math.MaxUint64-d)/10 {
			overflow = true
		}
		value = value*10 + d
		l.buf.Advance()
	}

	if l.buf.Match('.') {
		return l.scanFraction(start, digitsFrom, value, negative), true
	}

	if negative {
		if overflow || value > 1<<63 {
			l.warn(config.WarnOverflow, l.span(start), "integer literal overflows int64")
		}
		return token.SignedToken(-int64(value), start), true
	}
	if overflow {
		l.warn(config.WarnOverflow, l.span(start), "integer literal overflows uint64")
	}
	return token.NumberToken(value, start), true
}

// scanFraction finishes a float literal; the cursor is just past the '.'.
func (l *Lexer) scanFraction(start token.Pos, digitsFrom int, intPart uint64, negative bool) token.Token {
	if !l.feat.conventionalFloat {
		return l.scanFractionCompat(start, intPart, negative)
	}

	for l.buf.InBounds() && isDigit(l.buf.Current()) {
		l.buf.Advance()
	}
	f, err := strconv.ParseFloat(string(l.buf.Slice(digitsFrom)), 32)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
			l.warn(config.WarnOverflow, l.span(start), "float literal out of range")
		}
	}
	if negative && l.feat.signedFloat {
		f = -f
	}
	return token.FloatToken(float32(f), start)
}

// scanFractionCompat reproduces the historical accumulation bit for bit: the
// divisor shrinks by ten per digit but the digit is multiplied by its
// reciprocal, so "3.14" yields 413 rather than 3.14.
func (l *Lexer) scanFractionCompat(start token.Pos, intPart uint64, negative bool) token.Token {
	f := float32(intPart)
	place := float32(1)
	for l.buf.InBounds() && isDigit(l.buf.Current()) {
		d := float32(l.buf.Current() - '0')
		place /= 10
		f = float32(float64(f) + float64(d)*(1.0/float64(place)))
		l.buf.Advance()
	}
	l.warn(config.WarnPedantic, l.span(start), "fraction weighted by increasing powers of ten (-Fconventional-float fixes this)")
	if negative && l.feat.signedFloat {
		f = -f
	}
	return token.FloatToken(f, start)
}

// scanSpecial tries the table in order and takes the first entry that fits.
func (l *Lexer) scanSpecial(start token.Pos) (token.Token, bool) {
	for i, s := range l.specials {
		if !l.buf.HasSpace(len(s)) {
			continue
		}
		found := true
		for j := 0; j < len(s); j++ {
			if l.buf.Peek(j) != s[j] {
				found = false
				break
			}
		}
		if !found {
			continue
		}
		for range len(s) {
			l.buf.Advance()
		}
		return token.SpecialToken(s, i, start), true
	}
	return token.Token{}, false
}

// span is start extended to the cursor.
func (l *Lexer) span(start token.Pos) token.Pos {
	start.Len = l.buf.Offset() - start.Offset
	return start
}
