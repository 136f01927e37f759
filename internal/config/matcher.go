package config

import (
	"strings"

	"github.com/gobwas/glob"
)

// compiledPattern holds both the pattern string and compiled glob
type compiledPattern struct {
	pattern string
	glob    glob.Glob
}

// Matcher decides whether a document path is tracked.
type Matcher struct {
	include []compiledPattern
	exclude []compiledPattern
}

// NewMatcher compiles include and exclude patterns.
func NewMatcher(include, exclude []string) (*Matcher, error) {
	m := &Matcher{}

	for _, pattern := range include {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, err
		}
		m.include = append(m.include, compiledPattern{pattern: pattern, glob: g})
	}

	for _, pattern := range exclude {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, err
		}
		m.exclude = append(m.exclude, compiledPattern{pattern: pattern, glob: g})
	}

	return m, nil
}

// Matcher builds the document matcher for the configuration.
func (c *Config) Matcher() (*Matcher, error) {
	return NewMatcher(c.Documents.Include, c.Documents.Exclude)
}

// Match reports whether path (slash separated) is included and not excluded.
func (m *Matcher) Match(path string) bool {
	if matchesAnyPattern(path, m.exclude) {
		return false
	}
	return matchesAnyPattern(path, m.include)
}

// matchesAnyPattern checks if a path matches any of the given patterns.
func matchesAnyPattern(path string, patterns []compiledPattern) bool {
	for _, cp := range patterns {
		if cp.glob.Match(path) {
			return true
		}
	}

	// A bare file name has no directory for a leading "**/" to consume, so
	// "**/*.py" is also tried as "*.py".
	if !strings.Contains(path, "/") {
		for _, cp := range patterns {
			if strings.HasPrefix(cp.pattern, "**/") {
				simplified := strings.TrimPrefix(cp.pattern, "**/")
				if g, err := glob.Compile(simplified, '/'); err == nil && g.Match(path) {
					return true
				}
			}
		}
	}

	return false
}
