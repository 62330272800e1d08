package util

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/xplshn/gtok/pkg/config"
	"github.com/xplshn/gtok/pkg/token"
)

type memSource struct {
	name string
	data []byte
}

func (m memSource) Name() string  { return m.name }
func (m memSource) Bytes() []byte { return m.data }

func TestErrorQuotesLineWithCaret(t *testing.T) {
	var out bytes.Buffer
	r := NewReporter(&out)
	src := memSource{"in.src", []byte("first\nx = \"open\nlast")}

	r.Error(src, token.Pos{Offset: 10, Line: 1, Column: 4, Len: 5}, "unterminated string literal")

	want := "in.src:2:5: error: unterminated string literal\n" +
		"  x = \"open\n" +
		"      ^~~~~\n"
	assert.Equal(t, want, out.String())
	assert.Equal(t, 1, r.Errors())
}

func TestWarnRespectsConfig(t *testing.T) {
	var out bytes.Buffer
	r := NewReporter(&out)
	cfg := config.NewConfig()
	src := memSource{"ops.yaml", []byte("=\n")}

	cfg.SetWarning(config.WarnShadowedSpecial, false)
	r.Warn(cfg, config.WarnShadowedSpecial, src, token.Pos{}, "shadowed")
	assert.Empty(t, out.String())

	cfg.SetWarning(config.WarnShadowedSpecial, true)
	r.Warn(cfg, config.WarnShadowedSpecial, src, token.Pos{Len: 1}, "%q shadows %q", "=", "==")
	assert.Equal(t, "ops.yaml:1:1: warning: \"=\" shadows \"==\" [-Wshadowed-special]\n  =\n  ^\n", out.String())
	assert.Equal(t, 1, r.Warnings())
}

func TestReportWithoutSource(t *testing.T) {
	var out bytes.Buffer
	r := NewReporter(&out)
	r.Error(nil, token.Pos{}, "no input")
	assert.Equal(t, "<unknown>:1:1: error: no input\n", out.String())
}

func TestWarnfHasNoPosition(t *testing.T) {
	var out bytes.Buffer
	r := NewReporter(&out)
	cfg := config.NewConfig()
	r.Warnf(cfg, config.WarnShadowedSpecial, "entry %d is never matched", 3)
	assert.Equal(t, "warning: entry 3 is never matched [-Wshadowed-special]\n", out.String())
}
