package prerender

import (
	"github.com/gobwas/glob"
)

// compiledPattern is a pre-compiled allow/deny list entry. Compiling with no
// separator characters makes `*` match any sequence, including `/` and the
// empty string. A pattern that fails to compile degrades to literal string
// comparison instead of erroring.
type compiledPattern struct {
	raw string
	g   glob.Glob // nil when the pattern is malformed
}

func compilePattern(pattern string) compiledPattern {
	g, err := glob.Compile(pattern)
	if err != nil {
		return compiledPattern{raw: pattern}
	}
	return compiledPattern{raw: pattern, g: g}
}

func compilePatterns(patterns []string) []compiledPattern {
	if len(patterns) == 0 {
		return nil
	}
	out := make([]compiledPattern, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, compilePattern(p))
	}
	return out
}

func (p compiledPattern) match(value string) bool {
	if p.g == nil {
		return p.raw == value
	}
	return p.g.Match(value)
}

func matchAny(patterns []compiledPattern, value string) bool {
	for _, p := range patterns {
		if p.match(value) {
			return true
		}
	}
	return false
}

// Matches reports whether value matches the glob pattern.
func Matches(pattern, value string) bool {
	return compilePattern(pattern).match(value)
}

// IsListed reports whether any needle matches any of the patterns.
func IsListed(needles, patterns []string) bool {
	compiled := compilePatterns(patterns)
	for _, n := range needles {
		if matchAny(compiled, n) {
			return true
		}
	}
	return false
}
