package token

import (
	"fmt"
	"strconv"

	"github.com/xplshn/gtok/pkg/invariant"
)

type Type int

const (
	Null Type = iota
	Name
	Special
	String
	Number
	SignedNumber
	Float
	Char
	TypeCount
)

var typeNames = [...]string{
	Null:         "Null",
	Name:         "Name",
	Special:      "Special",
	String:       "String",
	Number:       "Number",
	SignedNumber: "SignedNumber",
	Float:        "Float",
	Char:         "Char",
}

func (t Type) String() string {
	if t >= 0 && t < TypeCount {
		return typeNames[t]
	}
	return "Type(" + strconv.Itoa(int(t)) + ")"
}

// Fault says why a Null token carries no payload. Consumers that only need
// "is there another token" can ignore it.
type Fault int

const (
	FaultNone Fault = iota
	FaultEOF
	FaultScan
	FaultNoMatch
)

var faultNames = [...]string{
	FaultNone:    "none",
	FaultEOF:     "eof",
	FaultScan:    "scan",
	FaultNoMatch: "no-match",
}

func (f Fault) String() string {
	if f >= 0 && int(f) < len(faultNames) {
		return faultNames[f]
	}
	return "Fault(" + strconv.Itoa(int(f)) + ")"
}

// Pos locates the first byte of a token. Line and Column are zero-based.
type Pos struct {
	Offset int
	Line   int
	Column int
	Len    int
}

// Token is a tagged union: Type selects which payload field is live.
// Payload fields are unexported so two kinds can never be read through
// each other; use the accessor for the token's Type.
type Token struct {
	Type  Type
	Fault Fault
	Pos   Pos

	text  string
	index int
	u     uint64
	i     int64
	f     float32
	c     byte
}

func NullToken(fault Fault, pos Pos) Token {
	return Token{Type: Null, Fault: fault, Pos: pos}
}

func NameToken(text string, pos Pos) Token { return Token{Type: Name, Pos: pos, text: text} }

// SpecialToken references entry index of the caller's table; text is that
// entry, not a copy of the source bytes.
func SpecialToken(text string, index int, pos Pos) Token {
	return Token{Type: Special, Pos: pos, text: text, index: index}
}

func StringToken(text string, pos Pos) Token { return Token{Type: String, Pos: pos, text: text} }
func NumberToken(v uint64, pos Pos) Token    { return Token{Type: Number, Pos: pos, u: v} }
func SignedToken(v int64, pos Pos) Token     { return Token{Type: SignedNumber, Pos: pos, i: v} }
func FloatToken(v float32, pos Pos) Token    { return Token{Type: Float, Pos: pos, f: v} }
func CharToken(v byte, pos Pos) Token        { return Token{Type: Char, Pos: pos, c: v} }

func (t Token) IsNull() bool { return t.Type == Null }

// Text returns the payload of Name, Special and String tokens.
func (t Token) Text() string {
	invariant.Precondition(t.Type == Name || t.Type == Special || t.Type == String,
		"Text() on %s token", t.Type)
	return t.text
}

// SpecialIndex is the position of the matched entry in the special table.
func (t Token) SpecialIndex() int {
	invariant.Precondition(t.Type == Special, "SpecialIndex() on %s token", t.Type)
	return t.index
}

func (t Token) Uint() uint64 {
	invariant.Precondition(t.Type == Number, "Uint() on %s token", t.Type)
	return t.u
}

func (t Token) Int() int64 {
	invariant.Precondition(t.Type == SignedNumber, "Int() on %s token", t.Type)
	return t.i
}

func (t Token) Float() float32 {
	invariant.Precondition(t.Type == Float, "Float() on %s token", t.Type)
	return t.f
}

func (t Token) Char() byte {
	invariant.Precondition(t.Type == Char, "Char() on %s token", t.Type)
	return t.c
}

// Value renders the payload without the type, in a form that is stable
// across runs (used by dumps and golden files).
func (t Token) Value() string {
	switch t.Type {
	case Name, Special, String:
		return t.text
	case Number:
		return strconv.FormatUint(t.u, 10)
	case SignedNumber:
		return strconv.FormatInt(t.i, 10)
	case Float:
		return strconv.FormatFloat(float64(t.f), 'g', -1, 32)
	case Char:
		return string([]byte{t.c})
	default:
		return ""
	}
}

func (t Token) String() string {
	switch t.Type {
	case Null:
		return fmt.Sprintf("Null(%s)", t.Fault)
	case Name, Special, String, Char:
		return fmt.Sprintf("%s(%q)", t.Type, t.Value())
	default:
		return fmt.Sprintf("%s(%s)", t.Type, t.Value())
	}
}
