package fs

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ignoreFileName is read from the root of every expanded directory.
const ignoreFileName = ".idsignore"

// ignorePattern is one glob plus what it is matched against.
type ignorePattern struct {
	glob     string
	wholeRel bool // match the relative path rather than the basename
}

// IgnoreMatcher decides which files of a monitored directory are left out.
// A pattern containing '/' is matched against the path relative to the
// directory; any other pattern is matched against the basename.
type IgnoreMatcher struct {
	patterns []ignorePattern
}

// NewIgnoreMatcher parses raw patterns. Blank lines and '#' comments are dropped.
func NewIgnoreMatcher(raw []string) *IgnoreMatcher {
	m := &IgnoreMatcher{}
	m.add(raw)
	return m
}

func (m *IgnoreMatcher) add(raw []string) {
	for _, line := range raw {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		m.patterns = append(m.patterns, ignorePattern{
			glob:     line,
			wholeRel: strings.Contains(line, "/"),
		})
	}
}

// With returns a matcher holding m's patterns plus extra. m is not modified.
func (m *IgnoreMatcher) With(extra []string) *IgnoreMatcher {
	out := &IgnoreMatcher{patterns: append([]ignorePattern{}, m.patterns...)}
	out.add(extra)
	return out
}

// Match reports whether rel, a path relative to the directory root, is ignored.
// The ignore file itself is always ignored.
func (m *IgnoreMatcher) Match(rel string) bool {
	base := filepath.Base(rel)
	if base == ignoreFileName {
		return true
	}
	slashed := filepath.ToSlash(rel)
	for _, p := range m.patterns {
		target := base
		if p.wholeRel {
			target = slashed
		}
		// filepath.Match only fails on malformed globs; those never match.
		if ok, err := filepath.Match(p.glob, target); err == nil && ok {
			return true
		}
	}
	return false
}

// ParseIgnoreFile reads ignore patterns, one per line.
// A missing file yields no patterns and no error.
func ParseIgnoreFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening ignore file: %w", err)
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading ignore file: %w", err)
	}
	return lines, nil
}
