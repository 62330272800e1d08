package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/xplshn/gtok/pkg/cli"
)

type Feature int

const (
	FeatComments Feature = iota
	FeatFixedPointSkip
	FeatConventionalFloat
	FeatSignedFloat
	FeatHexEsc
	FeatUTF8Names
	FeatCount
)

type Warning int

const (
	WarnShadowedSpecial Warning = iota
	WarnTruncatedName
	WarnUnrecognizedEscape
	WarnOverflow
	WarnPedantic
	WarnCount
)

type Info struct {
	Name        string
	Enabled     bool
	Description string
}

type Config struct {
	Features   map[Feature]Info
	Warnings   map[Warning]Info
	FeatureMap map[string]Feature
	WarningMap map[string]Warning
	StdName    string
	Specials   []string
}

const (
	StdCompat = "compat"
	StdFixed  = "fixed"
)

func NewConfig() *Config {
	cfg := &Config{
		Features:   make(map[Feature]Info),
		Warnings:   make(map[Warning]Info),
		FeatureMap: make(map[string]Feature),
		WarningMap: make(map[string]Warning),
		StdName:    StdFixed,
		Specials:   append([]string(nil), DefaultSpecials...),
	}

	features := map[Feature]Info{
		FeatComments:          {"comments", true, "Recognize '//' line comments."},
		FeatFixedPointSkip:    {"fixed-point-skip", true, "Skip whitespace and comments until neither matches, instead of one pass each."},
		FeatConventionalFloat: {"conventional-float", true, "Weight fractional digits by 10^-k (off reproduces the historical 10^k weighting)."},
		FeatSignedFloat:       {"signed-float", true, "Apply a leading '-' to float literals."},
		FeatHexEsc:            {"hex-esc", false, "Decode the hex payload of '\\x' escapes instead of yielding a literal 'x'."},
		FeatUTF8Names:         {"utf8-names", false, "Accept UTF-8 continuation bytes inside names."},
	}

	warnings := map[Warning]Info{
		WarnShadowedSpecial:    {"shadowed-special", true, "Warn when a special token can never match because an earlier entry is its prefix."},
		WarnTruncatedName:      {"truncated-name", true, "Warn when a name is cut at the length limit."},
		WarnUnrecognizedEscape: {"u-esc", true, "Warn on unrecognized character escape sequences."},
		WarnOverflow:           {"overflow", true, "Warn when an integer literal wraps around 64 bits."},
		WarnPedantic:           {"pedantic", false, "Issue all warnings, including ones about behavior kept for compatibility."},
	}

	cfg.Features, cfg.Warnings = features, warnings
	for ft, info := range features {
		cfg.FeatureMap[info.Name] = ft
	}
	for wt, info := range warnings {
		cfg.WarningMap[info.Name] = wt
	}

	return cfg
}

func (c *Config) SetFeature(ft Feature, enabled bool) {
	if info, ok := c.Features[ft]; ok {
		info.Enabled = enabled
		c.Features[ft] = info
	}
}

func (c *Config) IsFeatureEnabled(ft Feature) bool { return c.Features[ft].Enabled }

func (c *Config) SetWarning(wt Warning, enabled bool) {
	if info, ok := c.Warnings[wt]; ok {
		info.Enabled = enabled
		c.Warnings[wt] = info
	}
}

func (c *Config) IsWarningEnabled(wt Warning) bool { return c.Warnings[wt].Enabled }

// ApplyStd switches every behavioral feature to the named standard.
// "compat" reproduces the historical lexer, including its float arithmetic
// and single skip pass; "fixed" is the corrected behavior.
func (c *Config) ApplyStd(stdName string) error {
	type stdSettings struct {
		feature     Feature
		compatValue bool
		fixedValue  bool
	}

	settings := []stdSettings{
		{FeatComments, true, true},
		{FeatFixedPointSkip, false, true},
		{FeatConventionalFloat, false, true},
		{FeatSignedFloat, false, true},
		{FeatHexEsc, false, false},
		{FeatUTF8Names, false, false},
	}

	switch stdName {
	case StdCompat:
		for _, s := range settings {
			c.SetFeature(s.feature, s.compatValue)
		}
	case StdFixed:
		for _, s := range settings {
			c.SetFeature(s.feature, s.fixedValue)
		}
	default:
		return fmt.Errorf("unsupported standard '%s'. Supported: '%s', '%s'", stdName, StdCompat, StdFixed)
	}
	c.StdName = stdName
	return nil
}

// UnknownFlagError names a -W/-F flag that matches nothing.
type UnknownFlagError struct {
	Flag       string
	Suggestion string
}

func (e *UnknownFlagError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("unknown flag '%s' (did you mean '%s'?)", e.Flag, e.Suggestion)
	}
	return fmt.Sprintf("unknown flag '%s'", e.Flag)
}

func (c *Config) applyFlag(flag string) error {
	trimmed := strings.TrimPrefix(flag, "-")
	isNo := strings.HasPrefix(trimmed, "Wno-") || strings.HasPrefix(trimmed, "Fno-")
	enable := !isNo

	var name, prefix string
	var isWarning bool

	switch {
	case strings.HasPrefix(trimmed, "W"):
		name, prefix, isWarning = strings.TrimPrefix(trimmed, "W"), "W", true
	case strings.HasPrefix(trimmed, "F"):
		name, prefix = strings.TrimPrefix(trimmed, "F"), "F"
	default:
		name, prefix, isWarning = trimmed, "W", true
	}
	if isNo {
		name = strings.TrimPrefix(name, "no-")
		prefix += "no-"
	}

	if name == "all" && isWarning {
		for i := Warning(0); i < WarnCount; i++ {
			if i != WarnPedantic {
				c.SetWarning(i, enable)
			}
		}
		return nil
	}

	if isWarning {
		if w, ok := c.WarningMap[name]; ok {
			c.SetWarning(w, enable)
			return nil
		}
		return &UnknownFlagError{Flag: "-" + trimmed, Suggestion: suggest(name, prefix, c.WarningMap)}
	}
	if f, ok := c.FeatureMap[name]; ok {
		c.SetFeature(f, enable)
		return nil
	}
	return &UnknownFlagError{Flag: "-" + trimmed, Suggestion: suggest(name, prefix, c.FeatureMap)}
}

func suggest[T any](name, prefix string, known map[string]T) string {
	candidates := make([]string, 0, len(known))
	for k := range known {
		candidates = append(candidates, k)
	}
	ranks := fuzzy.RankFindFold(name, candidates)
	if len(ranks) == 0 {
		return ""
	}
	sort.Sort(ranks)
	return "-" + prefix + ranks[0].Target
}

// ProcessFlags applies -W/-F style flags. Wall and Wno-all go first so that
// specific flags override them regardless of order on the command line.
func (c *Config) ProcessFlags(flags []string) error {
	isGlobal := func(name string) bool {
		name = strings.TrimPrefix(name, "-")
		return name == "Wall" || name == "Wno-all"
	}
	for _, f := range flags {
		if isGlobal(f) {
			if err := c.applyFlag(f); err != nil {
				return err
			}
		}
	}
	for _, f := range flags {
		if !isGlobal(f) {
			if err := c.applyFlag(f); err != nil {
				return err
			}
		}
	}
	return nil
}

// SetupFlagGroups registers the -W and -F prefixes on fs and lists every
// warning and feature on its help page. The returned function applies what
// was collected once fs has parsed the command line.
func (c *Config) SetupFlagGroups(fs *cli.FlagSet) func() error {
	var warningArgs, featureArgs []string
	fs.Special(&warningArgs, "W", "Enable (-W<name>) or disable (-Wno-<name>) a warning.", "warning")
	fs.Special(&featureArgs, "F", "Enable (-F<name>) or disable (-Fno-<name>) a feature.", "feature")

	warningFlags := make([]cli.FlagGroupEntry, 0, WarnCount)
	for i := Warning(0); i < WarnCount; i++ {
		info := c.Warnings[i]
		warningFlags = append(warningFlags, cli.FlagGroupEntry{Name: info.Name, Prefix: "W", Usage: info.Description, Enabled: info.Enabled})
	}
	featureFlags := make([]cli.FlagGroupEntry, 0, FeatCount)
	for i := Feature(0); i < FeatCount; i++ {
		info := c.Features[i]
		featureFlags = append(featureFlags, cli.FlagGroupEntry{Name: info.Name, Prefix: "F", Usage: info.Description, Enabled: info.Enabled})
	}
	fs.AddFlagGroup("Warning Flags", "warning", "Available Warnings:", warningFlags)
	fs.AddFlagGroup("Feature Flags", "feature", "Available feature flags:", featureFlags)

	return func() error {
		flags := make([]string, 0, len(warningArgs)+len(featureArgs))
		for _, w := range warningArgs {
			flags = append(flags, "-W"+w)
		}
		for _, f := range featureArgs {
			flags = append(flags, "-F"+f)
		}
		return c.ProcessFlags(flags)
	}
}
