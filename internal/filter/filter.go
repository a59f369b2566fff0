package filter

import (
	"os"
	"path/filepath"
)

// Filter is the top-level decision engine. It owns its configuration, the
// two global matchers, and every cache described in spec.md §3. A Filter
// is created once per CLI invocation, mutated by every call to
// ShouldInclude, and dropped at the end of the run. It is not safe for
// concurrent use: spotfd drives it from a single producer goroutine that
// reads candidates from mdfind in order.
type Filter struct {
	cfg     Config
	globals Globals

	walkable map[string]bool // directory -> walkable
	repoRoot *repoRootCache

	fdIgnore  *ignoreFileCache
	dotIgnore *ignoreFileCache
	gitIgnore *ignoreFileCache

	infoExclude map[string]*dirMatcher // repo root -> compiled (or nil) info-exclude matcher
}

// New constructs a Filter with explicit globals. This is the constructor
// exercised by tests.
func New(cfg Config, globals Globals) *Filter {
	return &Filter{
		cfg:         cfg,
		globals:     globals,
		walkable:    make(map[string]bool),
		repoRoot:    newRepoRootCache(),
		fdIgnore:    newIgnoreFileCache(kindFdIgnore),
		dotIgnore:   newIgnoreFileCache(kindDotIgnore),
		gitIgnore:   newIgnoreFileCache(kindGitIgnore),
		infoExclude: make(map[string]*dirMatcher),
	}
}

// NewFromEnvironment is the convenience constructor: it discovers the two
// global ignore files from the environment and builds a Filter from them.
func NewFromEnvironment(cfg Config) *Filter {
	return New(cfg, DiscoverGlobals())
}

// ShouldInclude is the engine's single public operation: given an absolute
// candidate path, it returns whether a recursive, fd-like walker would
// have shown it. It never panics and never returns an error; filesystem
// failures degrade to the most permissive interpretation (spec.md §4.4.4).
func (f *Filter) ShouldInclude(path string) bool {
	isDir := statIsDir(path)

	if !f.cfg.IncludeHidden && isHiddenUnderBase(path, f.cfg.SearchBase) {
		return false
	}

	if !f.isWalkableTo(path, isDir) {
		return false
	}

	if !f.cfg.IgnoreEnabled {
		return true
	}

	parent := parentOrSelf(path)
	return f.isEntryIncluded(path, isDir, parent)
}

func statIsDir(path string) bool {
	info, err := os.Lstat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

func parentOrSelf(path string) string {
	parent := filepath.Dir(path)
	if parent == path {
		return path
	}
	return parent
}

// isWalkableTo implements spec.md §4.4 Step 3: directory pruning emulation.
func (f *Filter) isWalkableTo(path string, isDir bool) bool {
	container := path
	if !isDir {
		container = parentOrSelf(path)
	}

	if !underBase(container, f.cfg.SearchBase) {
		// Defensive fall-through: mdfind should always scope results under
		// the search base, but if it doesn't, don't try to "walk" parents
		// we have no jurisdiction over.
		return true
	}

	// Hot path: walk upward from container until we hit a cached decision
	// or the search base, collecting the directories we'll need to fill in.
	var missing []string
	cur := container
	for {
		if ok, known := f.walkable[cur]; known {
			if !ok {
				return false
			}
			break
		}
		missing = append(missing, cur)

		if cur == f.cfg.SearchBase {
			break
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			break
		}
		cur = parent
	}

	// Fill root-to-leaf so the WalkableCache invariant (every cached-positive
	// directory's ancestors are also cached positive) holds even if a later
	// call observes the cache mid-way through this loop... though within a
	// single Filter nothing else runs concurrently, this order is also just
	// the natural and cheapest order to compute in.
	for i := len(missing) - 1; i >= 0; i-- {
		d := missing[i]
		ok := f.isDirWalkableUncached(d)
		f.walkable[d] = ok
		if !ok {
			return false
		}
	}

	return true
}

func (f *Filter) isDirWalkableUncached(dir string) bool {
	if !f.cfg.IncludeHidden && isHiddenUnderBase(dir, f.cfg.SearchBase) {
		return false
	}
	if !f.cfg.IgnoreEnabled {
		return true
	}
	parent := parentOrSelf(dir)
	return f.isEntryIncluded(dir, true, parent)
}

// isEntryIncluded applies the ignore composition of spec.md §4.4.2 to a
// single path (which may be a file or a directory): .fdignore, then
// .ignore, then the repo's .gitignore chain plus info-exclude plus the
// global VCS ignore, then finally the global tool ignore.
func (f *Filter) isEntryIncluded(path string, isDir bool, parentDir string) bool {
	if dec, ok := f.matchFromAncestors(f.fdIgnore, path, isDir, parentDir); ok {
		return dec == DecisionWhitelist
	}
	if dec, ok := f.matchFromAncestors(f.dotIgnore, path, isDir, parentDir); ok {
		return dec == DecisionWhitelist
	}
	if dec, ok := f.matchGitIgnores(path, isDir, parentDir); ok {
		return dec == DecisionWhitelist
	}
	if f.globals.fdIgnore != nil {
		if dec := f.globals.fdIgnore.decide(path, isDir); dec != DecisionNone {
			return dec == DecisionWhitelist
		}
	}
	return true
}

// matchFromAncestors walks from start up to the filesystem root, consulting
// one ignore-file kind in every directory. There is no --no-ignore-parent:
// this always walks all the way up (spec.md §1 Non-goals).
func (f *Filter) matchFromAncestors(cache *ignoreFileCache, path string, isDir bool, start string) (Decision, bool) {
	cur := start
	for {
		if m, ok := cache.get(cur); ok {
			if dec := m.decide(path, isDir); dec != DecisionNone {
				return dec, true
			}
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return DecisionNone, false
		}
		cur = parent
	}
}

// matchGitIgnores implements layers 3, 4 and 5 of spec.md §4.4.2: repo-local
// .gitignore files (closest directory wins), the repo's info-exclude file,
// and the user's global VCS-style ignore, all gated on the candidate's
// parent actually being inside a repository.
func (f *Filter) matchGitIgnores(path string, isDir bool, parentDir string) (Decision, bool) {
	root, found := f.repoRoot.rootFor(parentDir)
	if !found {
		return DecisionNone, false
	}

	cur := parentDir
	for {
		if m, ok := f.gitIgnore.get(cur); ok {
			if dec := m.decide(path, isDir); dec != DecisionNone {
				return dec, true
			}
		}
		if cur == root {
			break
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			break
		}
		cur = parent
	}

	if m := f.infoExcludeFor(root); m != nil {
		if dec := m.decide(path, isDir); dec != DecisionNone {
			return dec, true
		}
	}

	if f.globals.gitIgnore != nil {
		if dec := f.globals.gitIgnore.decide(path, isDir); dec != DecisionNone {
			return dec, true
		}
	}

	return DecisionNone, false
}

func (f *Filter) infoExcludeFor(repoRoot string) *dirMatcher {
	if m, ok := f.infoExclude[repoRoot]; ok {
		return m
	}
	path := filepath.Join(repoRoot, ".git", "info", "exclude")
	m, _ := loadMatcherFile(path, repoRoot)
	f.infoExclude[repoRoot] = m
	return m
}

func underBase(path, base string) bool {
	_, ok := stripBasePrefix(path, base)
	return ok || path == base
}

// SeedWalkable primes the in-memory walkability cache for dir, so a
// subsequent ShouldInclude call skips recomputation. Used by the CLI to
// warm a fresh Filter from the persistent decision cache.
func (f *Filter) SeedWalkable(dir string, walkable bool) {
	f.walkable[dir] = walkable
}

// SeedRepoRoot primes the in-memory repository-root cache for dir.
func (f *Filter) SeedRepoRoot(dir, root string) {
	f.repoRoot.seed(dir, root)
}

// WalkableFor returns the cached walkability decision for dir, if any has
// been computed during this Filter's lifetime.
func (f *Filter) WalkableFor(dir string) (bool, bool) {
	ok, known := f.walkable[dir]
	return ok, known
}

// RepoRootFor returns the cached repository-root decision for dir, if any
// has been computed during this Filter's lifetime.
func (f *Filter) RepoRootFor(dir string) (string, bool) {
	if !f.repoRoot.known[dir] {
		return "", false
	}
	return f.repoRoot.byDir[dir], true
}
