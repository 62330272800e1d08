package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPayloadAccessorsGuardType(t *testing.T) {
	pos := Pos{Offset: 3, Line: 1, Column: 2, Len: 2}

	n := NumberToken(42, pos)
	assert.Equal(t, uint64(42), n.Uint())
	assert.Panics(t, func() { n.Int() })
	assert.Panics(t, func() { n.Text() })

	s := SpecialToken("==", 4, pos)
	assert.Equal(t, "==", s.Text())
	assert.Equal(t, 4, s.SpecialIndex())
	assert.Panics(t, func() { s.Float() })

	c := CharToken('\n', pos)
	assert.Equal(t, byte('\n'), c.Char())
	assert.Panics(t, func() { c.SpecialIndex() })
}

func TestTokenString(t *testing.T) {
	tests := []struct {
		tok  Token
		want string
	}{
		{NullToken(FaultEOF, Pos{}), "Null(eof)"},
		{NullToken(FaultNoMatch, Pos{}), "Null(no-match)"},
		{NameToken("abc", Pos{}), `Name("abc")`},
		{StringToken("a\nb", Pos{}), `String("a\nb")`},
		{NumberToken(7, Pos{}), "Number(7)"},
		{SignedToken(-42, Pos{}), "SignedNumber(-42)"},
		{FloatToken(1.5, Pos{}), "Float(1.5)"},
		{CharToken('x', Pos{}), `Char("x")`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.tok.String())
	}
	assert.Equal(t, "Type(99)", Type(99).String())
}
