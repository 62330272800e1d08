package cli

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSet() (*FlagSet, *string, *bool, *int, *[]string, *[]string) {
	var (
		format   string
		watch    bool
		jobs     int
		warnings []string
		includes []string
	)
	fs := NewFlagSet("gtok")
	fs.String(&format, "format", "f", "text", "Output format.", "fmt")
	fs.Bool(&watch, "watch", "w", false, "Watch inputs.")
	fs.Int(&jobs, "jobs", "j", 4, "Parallel jobs.")
	fs.List(&includes, "include", "I", []string{}, "Include path.", "path")
	fs.Special(&warnings, "W", "Warnings.", "warning")
	return fs, &format, &watch, &jobs, &warnings, &includes
}

func TestParse(t *testing.T) {
	fs, format, watch, jobs, warnings, includes := newTestSet()
	err := fs.Parse([]string{"-Wall", "--format=json", "a.src", "-w", "-j8", "-Ilib", "-I", "vendor", "-Wno-u-esc", "--", "-b.src"})
	require.NoError(t, err)

	assert.Equal(t, "json", *format)
	assert.True(t, *watch)
	assert.Equal(t, 8, *jobs)
	if diff := cmp.Diff([]string{"all", "no-u-esc"}, *warnings); diff != "" {
		t.Errorf("warnings mismatch (-expected +actual):\n%s", diff)
	}
	assert.Equal(t, []string{"lib", "vendor"}, *includes)
	assert.Equal(t, []string{"a.src", "-b.src"}, fs.Args())
	assert.True(t, fs.Lookup("format").Changed)
	assert.True(t, fs.Lookup("include").Changed)
}

func TestParseSingleDashLongForm(t *testing.T) {
	fs, format, _, _, _, _ := newTestSet()
	require.NoError(t, fs.Parse([]string{"-format=cbor"}))
	assert.Equal(t, "cbor", *format)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{[]string{"--nope"}, "unknown flag: --nope"},
		{[]string{"-z"}, "unknown shorthand flag: -z"},
		{[]string{"--format"}, "flag needs an argument: --format"},
		{[]string{"-j"}, "flag needs an argument: -j"},
		{[]string{"--jobs=many"}, "invalid integer value 'many'"},
	}
	for _, tt := range tests {
		fs, _, _, _, _, _ := newTestSet()
		err := fs.Parse(tt.args)
		require.Error(t, err, "%v", tt.args)
		assert.Contains(t, err.Error(), tt.want)
	}
}

func TestAppHelpListsGroups(t *testing.T) {
	app := NewApp("gtok")
	app.Synopsis = "[options] <file> ..."
	var out, errOut bytes.Buffer
	app.Stdout, app.Stderr = &out, &errOut

	var std string
	app.FlagSet.String(&std, "std", "", "fixed", "Lexer standard.", "std")
	app.FlagSet.AddFlagGroup("Feature Flags", "feature", "Available feature flags:", []FlagGroupEntry{
		{Name: "hex-esc", Prefix: "F", Usage: "Decode hex escapes.", Enabled: false},
		{Name: "comments", Prefix: "F", Usage: "Recognize comments.", Enabled: true},
	})
	called := false
	app.Action = func([]string) error { called = true; return nil }

	require.NoError(t, app.Run([]string{"--help"}))
	assert.False(t, called)
	help := out.String()
	assert.Contains(t, help, "gtok [options] <file> ...")
	assert.Contains(t, help, "--std=std")
	assert.Contains(t, help, "|fixed|")
	assert.Contains(t, help, "-F<feature>")
	assert.Contains(t, help, "-Fno-<feature>")
	assert.Regexp(t, `comments\s+Recognize comments\.\s+\|x\|`, help)
	assert.Regexp(t, `hex-esc\s+Decode hex escapes\.\s+\|-\|`, help)
}

func TestAppUsageOnBadFlag(t *testing.T) {
	app := NewApp("gtok")
	var errOut bytes.Buffer
	app.Stderr = &errOut
	require.Error(t, app.Run([]string{"--bogus"}))
	assert.Contains(t, errOut.String(), "unknown flag: --bogus")
	assert.Contains(t, errOut.String(), "Run 'gtok --help'")
}

func TestWrapText(t *testing.T) {
	assert.Equal(t, []string{"one two", "three"}, wrapText("one two three", 8))
	assert.Equal(t, []string{}, wrapText("   ", 8))
	assert.Equal(t, []string{"as is"}, wrapText("as is", 0))
}
