// Package dump serializes token streams for gtok's output and the toktest
// golden files.
package dump

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"unicode/utf8"

	"github.com/fxamacker/cbor/v2"
	"github.com/xplshn/gtok/pkg/token"
)

type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatCBOR Format = "cbor"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatText, FormatJSON, FormatCBOR:
		return f, nil
	}
	return "", fmt.Errorf("unsupported format '%s'. Supported: '%s', '%s', '%s'", s, FormatText, FormatJSON, FormatCBOR)
}

// Record is the serialized form of one token. A payload that is not valid
// UTF-8 goes in Raw instead of Value, since JSON and CBOR text strings cannot
// carry it.
type Record struct {
	Type   string `json:"type" cbor:"1,keyasint"`
	Value  string `json:"value,omitempty" cbor:"2,keyasint,omitempty"`
	Raw    []byte `json:"raw,omitempty" cbor:"8,keyasint,omitempty"`
	Fault  string `json:"fault,omitempty" cbor:"3,keyasint,omitempty"`
	Offset int    `json:"offset" cbor:"4,keyasint"`
	Line   int    `json:"line" cbor:"5,keyasint"`
	Column int    `json:"column" cbor:"6,keyasint"`
	Len    int    `json:"len" cbor:"7,keyasint"`
}

func NewRecord(tok token.Token) Record {
	r := Record{
		Type:   tok.Type.String(),
		Offset: tok.Pos.Offset,
		Line:   tok.Pos.Line,
		Column: tok.Pos.Column,
		Len:    tok.Pos.Len,
	}
	if v := tok.Value(); utf8.ValidString(v) {
		r.Value = v
	} else {
		r.Raw = []byte(v)
	}
	if tok.IsNull() {
		r.Fault = tok.Fault.String()
	}
	return r
}

// Payload is the token's value as bytes, whichever field holds it.
func (r Record) Payload() string {
	if r.Raw != nil {
		return string(r.Raw)
	}
	return r.Value
}

// File is the token stream of one source file. Hash is the xxhash of the
// source bytes in hex.
type File struct {
	File   string   `json:"file" cbor:"1,keyasint"`
	Hash   string   `json:"hash" cbor:"2,keyasint"`
	Std    string   `json:"std,omitempty" cbor:"3,keyasint,omitempty"`
	Tokens []Record `json:"tokens" cbor:"4,keyasint"`
}

func NewFile(name string, sum uint64, std string, toks []token.Token) *File {
	f := &File{
		File:   name,
		Hash:   strconv.FormatUint(sum, 16),
		Std:    std,
		Tokens: make([]Record, 0, len(toks)),
	}
	for _, tok := range toks {
		f.Tokens = append(f.Tokens, NewRecord(tok))
	}
	return f
}

func (f *File) Write(w io.Writer, format Format) error {
	switch format {
	case FormatText:
		return f.writeText(w)
	case FormatJSON:
		data, err := json.MarshalIndent(f, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal tokens to JSON: %w", err)
		}
		_, err = w.Write(append(data, '\n'))
		return err
	case FormatCBOR:
		data, err := f.MarshalBinary()
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	default:
		return fmt.Errorf("unsupported format '%s'", format)
	}
}

func (f *File) writeText(w io.Writer) error {
	for _, r := range f.Tokens {
		var err error
		switch {
		case r.Fault != "":
			_, err = fmt.Fprintf(w, "%s:%d:%d\t%s(%s)\n", f.File, r.Line+1, r.Column+1, r.Type, r.Fault)
		case r.Type == token.Number.String() || r.Type == token.SignedNumber.String() || r.Type == token.Float.String():
			_, err = fmt.Fprintf(w, "%s:%d:%d\t%s\t%s\n", f.File, r.Line+1, r.Column+1, r.Type, r.Value)
		default:
			_, err = fmt.Fprintf(w, "%s:%d:%d\t%s\t%q\n", f.File, r.Line+1, r.Column+1, r.Type, r.Payload())
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// MarshalBinary encodes f as canonical CBOR, so equal streams encode to
// equal bytes.
func (f *File) MarshalBinary() ([]byte, error) {
	encMode, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		return nil, fmt.Errorf("failed to create CBOR encoder: %w", err)
	}
	type fileAlias File
	data, err := encMode.Marshal((*fileAlias)(f))
	if err != nil {
		return nil, fmt.Errorf("CBOR encoding failed: %w", err)
	}
	return data, nil
}

func (f *File) UnmarshalBinary(data []byte) error {
	type fileAlias File
	if err := cbor.Unmarshal(data, (*fileAlias)(f)); err != nil {
		return fmt.Errorf("CBOR decoding failed: %w", err)
	}
	return nil
}

// ReadJSON decodes a File written with FormatJSON.
func ReadJSON(r io.Reader) (*File, error) {
	var f File
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("invalid token dump: %w", err)
	}
	return &f, nil
}
