package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xplshn/gtok/pkg/config"
	"github.com/xplshn/gtok/pkg/dump"
	"github.com/xplshn/gtok/pkg/lexer"
	"github.com/xplshn/gtok/pkg/util"
)

func newTokenizer(t *testing.T, std string, keepGoing bool) (*tokenizer, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	cfg := config.NewConfig()
	require.NoError(t, cfg.ApplyStd(std))
	var out, diag bytes.Buffer
	reporter := util.NewReporter(&diag)
	l, err := lexer.New(cfg.Specials, cfg, lexer.WithReporter(reporter))
	require.NoError(t, err)
	return &tokenizer{lexer: l, reporter: reporter, format: dump.FormatText, keepGoing: keepGoing, out: &out}, &out, &diag
}

func writeSource(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "in.src")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRunStopsAtFirstError(t *testing.T) {
	tk, out, diag := newTokenizer(t, config.StdFixed, false)
	path := writeSource(t, "a ` b")
	require.NoError(t, tk.run(path))

	assert.Equal(t, path+":1:1\tName\t\"a\"\n", out.String())
	assert.Equal(t, 1, tk.reporter.Errors())
	assert.Contains(t, diag.String(), ":1:3: error: unexpected character '`'")
}

func TestRunKeepGoing(t *testing.T) {
	tk, out, diag := newTokenizer(t, config.StdFixed, true)
	path := writeSource(t, "a ` b \\ c")
	require.NoError(t, tk.run(path))

	expected := path + ":1:1\tName\t\"a\"\n" +
		path + ":1:5\tName\t\"b\"\n" +
		path + ":1:9\tName\t\"c\"\n"
	if diff := cmp.Diff(expected, out.String()); diff != "" {
		t.Errorf("output mismatch (-expected +actual):\n%s", diff)
	}
	assert.Equal(t, 2, tk.reporter.Errors())
	assert.Contains(t, diag.String(), "unexpected character '\\\\'")
}

func TestRunCompatRecoversAfterComment(t *testing.T) {
	tk, out, _ := newTokenizer(t, config.StdCompat, false)
	path := writeSource(t, "x // c\n   y\n")
	require.NoError(t, tk.run(path))

	assert.Equal(t, path+":1:1\tName\t\"x\"\n"+path+":2:4\tName\t\"y\"\n", out.String())
	assert.Zero(t, tk.reporter.Errors())
}

func TestRunJSON(t *testing.T) {
	tk, out, _ := newTokenizer(t, config.StdFixed, false)
	tk.format = dump.FormatJSON
	path := writeSource(t, "n = 3.5;")
	require.NoError(t, tk.run(path))

	f, err := dump.ReadJSON(out)
	require.NoError(t, err)
	assert.Equal(t, "fixed", f.Std)
	assert.NotEmpty(t, f.Hash)
	require.Len(t, f.Tokens, 4)
	assert.Equal(t, dump.Record{Type: "Float", Value: "3.5", Offset: 4, Column: 4, Len: 3}, f.Tokens[2])
}

func TestRunMissingFile(t *testing.T) {
	tk, _, _ := newTokenizer(t, config.StdFixed, false)
	err := tk.run(filepath.Join(t.TempDir(), "missing.src"))
	assert.ErrorContains(t, err, "failed to load source")
}

func TestWatchFilesStopsWithContext(t *testing.T) {
	path := writeSource(t, "a")
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- watchFiles(ctx, []string{path}, func(string) error { return nil }) }()
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watchFiles did not return after cancel")
	}
}
