package filter

import (
	"os"
	"path/filepath"
	"testing"
)

func mustMkdirAll(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", path, err)
	}
}

func mustWriteFile(t *testing.T, path, contents string) {
	t.Helper()
	mustMkdirAll(t, filepath.Dir(path))
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func newTestFilter(base string, hidden, ignore bool) *Filter {
	cfg := Config{
		Cwd:           base,
		SearchBase:    base,
		IncludeHidden: hidden,
		IgnoreEnabled: ignore,
	}
	return New(cfg, Globals{})
}

// S1: a plain tree with no ignore files and no hidden entries is entirely
// visible under default settings.
func TestShouldInclude_DefaultTreeAllVisible(t *testing.T) {
	base := t.TempDir()
	mustWriteFile(t, filepath.Join(base, "src", "main.go"), "package main\n")
	mustWriteFile(t, filepath.Join(base, "README.md"), "hi\n")

	f := newTestFilter(base, false, true)

	for _, p := range []string{
		filepath.Join(base, "src", "main.go"),
		filepath.Join(base, "README.md"),
		filepath.Join(base, "src"),
	} {
		if !f.ShouldInclude(p) {
			t.Errorf("expected %s to be included", p)
		}
	}
}

// S2: hidden entries are excluded by default and included with IncludeHidden.
func TestShouldInclude_HiddenToggle(t *testing.T) {
	base := t.TempDir()
	mustWriteFile(t, filepath.Join(base, ".secret"), "x\n")
	mustWriteFile(t, filepath.Join(base, ".dir", "inner.txt"), "x\n")

	f := newTestFilter(base, false, true)
	if f.ShouldInclude(filepath.Join(base, ".secret")) {
		t.Error("hidden file should be excluded by default")
	}
	if f.ShouldInclude(filepath.Join(base, ".dir", "inner.txt")) {
		t.Error("file under hidden directory should be excluded by default")
	}

	fh := newTestFilter(base, true, true)
	if !fh.ShouldInclude(filepath.Join(base, ".secret")) {
		t.Error("hidden file should be included with IncludeHidden")
	}
	if !fh.ShouldInclude(filepath.Join(base, ".dir", "inner.txt")) {
		t.Error("file under hidden directory should be included with IncludeHidden")
	}
}

// S3: with IgnoreEnabled false, a .gitignore'd path is still shown.
func TestShouldInclude_IgnoreDisabled(t *testing.T) {
	base := t.TempDir()
	mustWriteFile(t, filepath.Join(base, ".git", "HEAD"), "ref: refs/heads/main\n")
	mustWriteFile(t, filepath.Join(base, ".gitignore"), "build/\n")
	mustWriteFile(t, filepath.Join(base, "build", "out.bin"), "x\n")

	ignoring := newTestFilter(base, false, true)
	if ignoring.ShouldInclude(filepath.Join(base, "build", "out.bin")) {
		t.Error("expected ignored path to be excluded when ignore is enabled")
	}

	notIgnoring := newTestFilter(base, false, false)
	if !notIgnoring.ShouldInclude(filepath.Join(base, "build", "out.bin")) {
		t.Error("expected path to be included when ignore is disabled")
	}
}

// S4: .fdignore has higher precedence than .gitignore, so a .fdignore
// whitelist re-includes something the repository's .gitignore excludes.
func TestShouldInclude_FdIgnoreOverridesGitIgnore(t *testing.T) {
	base := t.TempDir()
	mustWriteFile(t, filepath.Join(base, ".git", "HEAD"), "ref: refs/heads/main\n")
	mustWriteFile(t, filepath.Join(base, ".gitignore"), "*.log\n")
	mustWriteFile(t, filepath.Join(base, ".fdignore"), "!*.log\n")
	mustWriteFile(t, filepath.Join(base, "app.log"), "x\n")

	f := newTestFilter(base, false, true)
	if !f.ShouldInclude(filepath.Join(base, "app.log")) {
		t.Error("expected .fdignore whitelist to win over .gitignore ignore")
	}
}

// S5: .gitignore and info/exclude only apply inside a repository (a
// directory whose ancestor chain contains a regular .git/HEAD file).
func TestShouldInclude_GitIgnoreRequiresRepo(t *testing.T) {
	base := t.TempDir()
	mustWriteFile(t, filepath.Join(base, ".gitignore"), "secret.txt\n")
	mustWriteFile(t, filepath.Join(base, "secret.txt"), "x\n")

	f := newTestFilter(base, false, true)
	if !f.ShouldInclude(filepath.Join(base, "secret.txt")) {
		t.Error("expected .gitignore to be inert outside a repository")
	}

	mustWriteFile(t, filepath.Join(base, ".git", "HEAD"), "ref: refs/heads/main\n")
	f2 := newTestFilter(base, false, true)
	if f2.ShouldInclude(filepath.Join(base, "secret.txt")) {
		t.Error("expected .gitignore to apply once a real .git/HEAD exists")
	}
}

// S6: a candidate under a pruned (ignored) directory is excluded even though
// the candidate itself matches no pattern directly, emulating recursive
// directory pruning despite arbitrary candidate arrival order.
func TestShouldInclude_DirectoryPruning(t *testing.T) {
	base := t.TempDir()
	mustWriteFile(t, filepath.Join(base, ".gitignore"), "vendor/\n")
	mustWriteFile(t, filepath.Join(base, ".git", "HEAD"), "ref: refs/heads/main\n")
	mustWriteFile(t, filepath.Join(base, "vendor", "pkg", "file.go"), "x\n")

	f := newTestFilter(base, false, true)
	// Deliberately probe the deeply nested leaf first, out of walk order.
	if f.ShouldInclude(filepath.Join(base, "vendor", "pkg", "file.go")) {
		t.Error("expected file under pruned directory to be excluded")
	}
}

// Closest .gitignore wins: a nested .gitignore re-including a path overrides
// an outer .gitignore that ignores it.
func TestShouldInclude_NestedGitIgnoreClosestWins(t *testing.T) {
	base := t.TempDir()
	mustWriteFile(t, filepath.Join(base, ".git", "HEAD"), "ref: refs/heads/main\n")
	mustWriteFile(t, filepath.Join(base, ".gitignore"), "*.txt\n")
	mustWriteFile(t, filepath.Join(base, "keep", ".gitignore"), "!important.txt\n")
	mustWriteFile(t, filepath.Join(base, "keep", "important.txt"), "x\n")
	mustWriteFile(t, filepath.Join(base, "other.txt"), "x\n")

	f := newTestFilter(base, false, true)
	if !f.ShouldInclude(filepath.Join(base, "keep", "important.txt")) {
		t.Error("expected nested .gitignore whitelist to override outer ignore")
	}
	if f.ShouldInclude(filepath.Join(base, "other.txt")) {
		t.Error("expected outer .gitignore ignore to still apply elsewhere")
	}
}

// .git/info/exclude applies inside a repository as a lower-precedence layer
// than any .gitignore.
func TestShouldInclude_InfoExclude(t *testing.T) {
	base := t.TempDir()
	mustWriteFile(t, filepath.Join(base, ".git", "HEAD"), "ref: refs/heads/main\n")
	mustWriteFile(t, filepath.Join(base, ".git", "info", "exclude"), "local.cfg\n")
	mustWriteFile(t, filepath.Join(base, "local.cfg"), "x\n")

	f := newTestFilter(base, false, true)
	if f.ShouldInclude(filepath.Join(base, "local.cfg")) {
		t.Error("expected info/exclude entry to be excluded")
	}
}

// The global tool ignore file is the lowest-precedence layer: it applies
// only when no closer layer decided, and a closer .ignore whitelist still
// overrides it.
func TestShouldInclude_GlobalFdIgnoreIsLowestPrecedence(t *testing.T) {
	base := t.TempDir()
	mustWriteFile(t, filepath.Join(base, "foo"), "x\n")
	mustWriteFile(t, filepath.Join(base, "bar"), "x\n")
	globalIgnore := filepath.Join(t.TempDir(), "fd-ignore")
	mustWriteFile(t, globalIgnore, "foo\nbar\n")

	cfg := Config{Cwd: base, SearchBase: base, IncludeHidden: false, IgnoreEnabled: true}
	f := New(cfg, NewGlobals("", globalIgnore))

	if f.ShouldInclude(filepath.Join(base, "foo")) {
		t.Error("expected global fd ignore to exclude foo")
	}
	if f.ShouldInclude(filepath.Join(base, "bar")) {
		t.Error("expected global fd ignore to exclude bar")
	}

	mustWriteFile(t, filepath.Join(base, ".ignore"), "!foo\n")
	f2 := New(cfg, NewGlobals("", globalIgnore))
	if !f2.ShouldInclude(filepath.Join(base, "foo")) {
		t.Error("expected closer .ignore whitelist to override global fd ignore")
	}
	if f2.ShouldInclude(filepath.Join(base, "bar")) {
		t.Error("expected bar to remain excluded by global fd ignore")
	}
}

// With IgnoreEnabled false, the global fd ignore layer is inert too.
func TestShouldInclude_GlobalFdIgnoreDisabledWithNoIgnore(t *testing.T) {
	base := t.TempDir()
	mustWriteFile(t, filepath.Join(base, "bar"), "x\n")
	globalIgnore := filepath.Join(t.TempDir(), "fd-ignore")
	mustWriteFile(t, globalIgnore, "bar\n")

	cfg := Config{Cwd: base, SearchBase: base, IncludeHidden: false, IgnoreEnabled: false}
	f := New(cfg, NewGlobals("", globalIgnore))
	if !f.ShouldInclude(filepath.Join(base, "bar")) {
		t.Error("expected global fd ignore to be inert when IgnoreEnabled is false")
	}
}

func TestIsHiddenComponent(t *testing.T) {
	cases := map[string]bool{
		".":        false,
		"..":       false,
		".git":     true,
		"file.txt": false,
		".hidden":  true,
		"":         false,
	}
	for in, want := range cases {
		if got := isHiddenComponent(in); got != want {
			t.Errorf("isHiddenComponent(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestRepoRootCache_MemoisesAncestors(t *testing.T) {
	base := t.TempDir()
	mustWriteFile(t, filepath.Join(base, ".git", "HEAD"), "ref: refs/heads/main\n")
	mustMkdirAll(t, filepath.Join(base, "a", "b", "c"))

	c := newRepoRootCache()
	root, ok := c.rootFor(filepath.Join(base, "a", "b", "c"))
	if !ok || root != base {
		t.Fatalf("rootFor deep dir = (%q, %v), want (%q, true)", root, ok, base)
	}

	if !c.known[filepath.Join(base, "a", "b")] {
		t.Error("expected intermediate ancestor to be memoised after first lookup")
	}
}
