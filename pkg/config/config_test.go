package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyStd(t *testing.T) {
	cfg := NewConfig()
	require.NoError(t, cfg.ApplyStd(StdCompat))
	assert.Equal(t, StdCompat, cfg.StdName)
	assert.False(t, cfg.IsFeatureEnabled(FeatFixedPointSkip))
	assert.False(t, cfg.IsFeatureEnabled(FeatConventionalFloat))
	assert.False(t, cfg.IsFeatureEnabled(FeatSignedFloat))
	assert.True(t, cfg.IsFeatureEnabled(FeatComments))

	require.NoError(t, cfg.ApplyStd(StdFixed))
	assert.True(t, cfg.IsFeatureEnabled(FeatFixedPointSkip))
	assert.True(t, cfg.IsFeatureEnabled(FeatConventionalFloat))
	assert.False(t, cfg.IsFeatureEnabled(FeatHexEsc))
	assert.False(t, cfg.IsFeatureEnabled(FeatUTF8Names), "utf8-names is opt-in in every standard")
	assert.False(t, NewConfig().IsFeatureEnabled(FeatUTF8Names))

	require.NoError(t, cfg.ProcessFlags([]string{"-Futf8-names"}))
	assert.True(t, cfg.IsFeatureEnabled(FeatUTF8Names))

	err := cfg.ApplyStd("c89")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported standard 'c89'")
	assert.Equal(t, StdFixed, cfg.StdName)
}

func TestProcessFlags(t *testing.T) {
	cfg := NewConfig()
	require.NoError(t, cfg.ProcessFlags([]string{"-Wtruncated-name", "-Wno-all", "-Fhex-esc", "-Fno-comments"}))

	assert.True(t, cfg.IsWarningEnabled(WarnTruncatedName), "specific flag wins over -Wno-all")
	assert.False(t, cfg.IsWarningEnabled(WarnShadowedSpecial))
	assert.False(t, cfg.IsWarningEnabled(WarnOverflow))
	assert.True(t, cfg.IsFeatureEnabled(FeatHexEsc))
	assert.False(t, cfg.IsFeatureEnabled(FeatComments))
}

func TestProcessFlagsSuggestsClosestName(t *testing.T) {
	cfg := NewConfig()
	err := cfg.ProcessFlags([]string{"-Wshadowd-special"})
	require.Error(t, err)

	var unknown *UnknownFlagError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "-Wshadowd-special", unknown.Flag)
	assert.Equal(t, "-Wshadowed-special", unknown.Suggestion)

	err = cfg.ProcessFlags([]string{"-Fno-hexesc"})
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "-Fno-hex-esc", unknown.Suggestion)

	err = cfg.ProcessFlags([]string{"-Fzzzz"})
	require.True(t, errors.As(err, &unknown))
	assert.Empty(t, unknown.Suggestion)
	assert.Equal(t, "unknown flag '-Fzzzz'", err.Error())
}

func TestParseSpecials(t *testing.T) {
	specials, err := ParseSpecials([]byte("specials:\n  - \"==\"\n  - \"=\"\n"))
	require.NoError(t, err)
	if diff := cmp.Diff([]string{"==", "="}, specials); diff != "" {
		t.Errorf("specials mismatch (-expected +actual):\n%s", diff)
	}

	_, err = ParseSpecials([]byte("specials: [\"+\", \"\"]\n"))
	assert.ErrorContains(t, err, "entry 1 is empty")

	_, err = ParseSpecials([]byte(""))
	assert.ErrorContains(t, err, "empty")

	_, err = ParseSpecials([]byte("operators: [\"+\"]\n"))
	assert.ErrorContains(t, err, "invalid special table")
}

func TestLoadSpecials(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ops.yaml")
	require.NoError(t, os.WriteFile(path, []byte("specials: [\"->\", \"-\"]\n"), 0o644))

	specials, err := LoadSpecials(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"->", "-"}, specials)

	_, err = LoadSpecials(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestDefaultSpecialsHaveNoShadowedEntries(t *testing.T) {
	for i, earlier := range DefaultSpecials {
		for _, later := range DefaultSpecials[i+1:] {
			if len(earlier) < len(later) && later[:len(earlier)] == earlier {
				t.Errorf("%q shadows later entry %q", earlier, later)
			}
		}
	}
}
