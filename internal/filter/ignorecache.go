package filter

import (
	"os"
	"path/filepath"
	"strings"

	dotignore "github.com/codeglyph/go-dotignore/v2"
)

// ignoreKind names one of the three per-directory ignore-file basenames the
// engine understands. The other layers are held separately: info-exclude
// per repository root in filter.go, the two global matchers in globals.go.
type ignoreKind string

const (
	kindFdIgnore  ignoreKind = ".fdignore"
	kindDotIgnore ignoreKind = ".ignore"
	kindGitIgnore ignoreKind = ".gitignore"
)

// dirMatcher is the compiled form of one ignore file, rooted at the
// directory that contains it. A nil matcher (with ok=false from
// ignoreFileCache.get) means the file was absent.
type dirMatcher struct {
	matcher *dotignore.PatternMatcher
	root    string
}

// ignoreFileCache lazily loads and memoises compiled matchers for one
// ignore-file kind, keyed by the directory that would contain it.
type ignoreFileCache struct {
	kind  ignoreKind
	byDir map[string]*dirMatcher // nil entry (present in map, nil value) means "absent"
}

func newIgnoreFileCache(kind ignoreKind) *ignoreFileCache {
	return &ignoreFileCache{
		kind:  kind,
		byDir: make(map[string]*dirMatcher),
	}
}

// get returns the matcher rooted at dir, loading it on first access. The
// second return value is false if no such file exists at dir.
func (c *ignoreFileCache) get(dir string) (*dirMatcher, bool) {
	if m, ok := c.byDir[dir]; ok {
		return m, m != nil
	}

	path := filepath.Join(dir, string(c.kind))
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		c.byDir[dir] = nil
		return nil, false
	}

	pm, err := dotignore.NewPatternMatcherFromFile(path)
	if err != nil {
		// Malformed ignore file: treated as absent, no user-visible failure.
		c.byDir[dir] = nil
		return nil, false
	}

	dm := &dirMatcher{matcher: pm, root: dir}
	c.byDir[dir] = dm
	return dm, true
}

// decide evaluates this matcher against an absolute candidate path, given
// whether the candidate is a directory. Returns DecisionNone if the
// matcher's root does not contain the path, or if no pattern applied.
func (m *dirMatcher) decide(path string, isDir bool) Decision {
	rel, ok := stripBasePrefix(path, m.root)
	if !ok {
		if path == m.root {
			rel = ""
		} else {
			return DecisionNone
		}
	}
	if rel == "" {
		return DecisionNone
	}

	matchPath := rel
	if isDir && !strings.HasSuffix(matchPath, "/") {
		matchPath += "/"
	}

	matched, any, err := m.matcher.MatchesWithTracking(matchPath)
	if err != nil || !any {
		return DecisionNone
	}
	if matched {
		return DecisionIgnore
	}
	return DecisionWhitelist
}

// loadMatcherFile compiles a single, explicitly-named ignore file (used for
// the repo info-exclude file and the global ignore files, which are not
// indexed by containing directory the way per-directory ignore files are).
func loadMatcherFile(path, root string) (*dirMatcher, bool) {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return nil, false
	}
	pm, err := dotignore.NewPatternMatcherFromFile(path)
	if err != nil {
		return nil, false
	}
	return &dirMatcher{matcher: pm, root: root}, true
}
