package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xplshn/gtok/pkg/config"
	"github.com/xplshn/gtok/pkg/dump"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestGetJSONPath(t *testing.T) {
	assert.Equal(t, filepath.Join("tests", ".a.src.tokens.json"), getJSONPath(filepath.Join("tests", "a.src"), ""))
	assert.Equal(t, filepath.Join("golden", ".a.src.tokens.json"), getJSONPath(filepath.Join("tests", "a.src"), "golden"))
}

func TestLexFileKeepsScanFailure(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bad.src", `x = "open`)
	f, err := lexFile(path, config.DefaultSpecials, config.StdFixed)
	require.NoError(t, err)
	require.Len(t, f.Tokens, 3)
	assert.Equal(t, dump.Record{Type: "Null", Fault: "scan", Offset: 4, Column: 4, Len: 5}, f.Tokens[2])
	assert.Equal(t, "bad.src", f.File)
}

func TestLexFileCompatCoversWholeFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "c.src", "x // c\n   y // d\n\tz\n")
	f, err := lexFile(path, config.DefaultSpecials, config.StdCompat)
	require.NoError(t, err)

	var values []string
	for _, r := range f.Tokens {
		values = append(values, r.Type+":"+r.Payload())
	}
	assert.Equal(t, []string{"Name:x", "Name:y", "Name:z"}, values)
}

func TestGoldenRoundTrip(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "ok.src", "main() { return 3.14; }\n")

	golden, err := writeGolden(src, "", config.DefaultSpecials, config.StdFixed)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, ".ok.src.tokens.json"), golden)

	result := testFile(src, "", config.DefaultSpecials, config.StdFixed)
	assert.Equal(t, StatusPass, result.Status, result.Message)
	assert.Equal(t, 8, result.Tokens)

	result = testFile(src, "", config.DefaultSpecials, config.StdCompat)
	assert.Equal(t, StatusSkip, result.Status)
}

func TestStaleGolden(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "s.src", "a b")
	_, err := writeGolden(src, "", config.DefaultSpecials, config.StdFixed)
	require.NoError(t, err)

	writeFile(t, dir, "s.src", "a c")
	result := testFile(src, "", config.DefaultSpecials, config.StdFixed)
	assert.Equal(t, StatusFail, result.Status)
	assert.Contains(t, result.Message, "stale")
}

func TestTokenMismatch(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "m.src", "a == b")
	goldens := filepath.Join(dir, "golden")
	_, err := writeGolden(src, goldens, []string{"==", "="}, config.StdFixed)
	require.NoError(t, err)

	result := testFile(src, goldens, []string{"=", "=="}, config.StdFixed)
	assert.Equal(t, StatusFail, result.Status)
	assert.Equal(t, "Token stream mismatch", result.Message)
	assert.Contains(t, result.Diff, `"=="`)
}

func TestRunSuite(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.src", "x")
	b := writeFile(t, dir, "b.src", "x")
	c := writeFile(t, dir, "c.src", "y")
	d := writeFile(t, dir, "d.src", "z")
	_, err := writeGolden(a, "", config.DefaultSpecials, config.StdFixed)
	require.NoError(t, err)

	results := runSuite([]string{a, b, c, d}, []string{d}, 2, "", config.DefaultSpecials, config.StdFixed)
	require.Len(t, results, 4)

	statuses := make(map[string]string)
	for _, r := range results {
		statuses[filepath.Base(r.File)] = r.Status
	}
	assert.Equal(t, map[string]string{
		"a.src": StatusPass,
		"b.src": StatusSkip,
		"c.src": StatusSkip,
		"d.src": StatusSkip,
	}, statuses)
	assert.Equal(t, a, results[0].File, "results are sorted")
	assert.False(t, hasFailures(map[string]*FileTestResult{a: results[0]}))
}

func TestExpandGlobPatterns(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "one.src", "")
	writeFile(t, dir, "two.src", "")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.src"), 0o755))

	files, err := expandGlobPatterns(filepath.Join(dir, "*.src") + " " + filepath.Join(dir, "one.*"))
	require.NoError(t, err)
	assert.Len(t, files, 2)

	_, err = expandGlobPatterns("[")
	assert.Error(t, err)
}
