package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultSpecials is a C-like operator table. Entries that share a prefix are
// listed longest first, since the lexer takes the first entry that matches.
var DefaultSpecials = []string{
	"<<=", ">>=", "...",
	"==", "!=", "<=", ">=", "&&", "||", "++", "--", "->", "<<", ">>",
	"+=", "-=", "*=", "/=", "%=", "&=", "|=", "^=", "::",
	"=", "<", ">", "!", "+", "-", "*", "/", "%", "&", "|", "^", "~", "?",
	":", ";", ",", ".", "(", ")", "{", "}", "[", "]", "@", "#", "$",
}

type specialsFile struct {
	Specials []string `yaml:"specials"`
}

// LoadSpecials reads an ordered special-token table from a YAML file of the
// form:
//
//	specials: ["==", "="]
func LoadSpecials(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read special table: %w", err)
	}
	specials, err := ParseSpecials(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return specials, nil
}

func ParseSpecials(data []byte) ([]string, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var f specialsFile
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("special table is empty")
		}
		return nil, fmt.Errorf("invalid special table: %w", err)
	}
	if len(f.Specials) == 0 {
		return nil, errors.New("special table is empty")
	}
	for i, s := range f.Specials {
		if s == "" {
			return nil, fmt.Errorf("special table entry %d is empty", i)
		}
	}
	return f.Specials, nil
}
