package filter

import (
	"os"
	"path/filepath"
	"strings"
)

// Globals holds the two user-level, machine-global ignore matchers that
// apply regardless of which directory a candidate lives in. They are
// immutable once constructed and shared across every decision a Filter
// makes.
type Globals struct {
	// gitIgnore is the user's global VCS-style ignore file (e.g.
	// ~/.config/git/ignore, or whatever core.excludesfile names).
	gitIgnore *dirMatcher

	// fdIgnore is the user's global tool-specific ignore file
	// ($XDG_CONFIG_HOME/fd/ignore or $HOME/.config/fd/ignore).
	fdIgnore *dirMatcher
}

// NewGlobals builds a Globals from explicit file paths. This is the
// constructor exercised by tests: it takes no dependency on environment
// variables or the filesystem layout beyond the two paths given.
func NewGlobals(globalGitIgnorePath, globalFdIgnorePath string) Globals {
	var g Globals
	if globalGitIgnorePath != "" {
		if m, ok := loadMatcherFile(globalGitIgnorePath, "/"); ok {
			g.gitIgnore = m
		}
	}
	if globalFdIgnorePath != "" {
		if m, ok := loadMatcherFile(globalFdIgnorePath, "/"); ok {
			g.fdIgnore = m
		}
	}
	return g
}

// DiscoverGlobals resolves the standard locations for the two global
// ignore files from the environment, exactly once, and loads them. It is
// the convenience path used by the CLI; the engine itself never consults
// the environment (spec.md §9).
func DiscoverGlobals() Globals {
	return NewGlobals(globalGitIgnorePath(), globalFdIgnorePath())
}

// globalFdIgnorePath resolves $XDG_CONFIG_HOME/fd/ignore, falling back to
// $HOME/.config/fd/ignore. Returns "" if neither XDG_CONFIG_HOME nor HOME
// is set.
func globalFdIgnorePath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "fd", "ignore")
	}
	if home := os.Getenv("HOME"); home != "" {
		return filepath.Join(home, ".config", "fd", "ignore")
	}
	return ""
}

// globalGitIgnorePath mimics a VCS-ignore library's standard global-ignore
// discovery: honour core.excludesfile from the user's ~/.gitconfig if set,
// otherwise fall back to $XDG_CONFIG_HOME/git/ignore or
// $HOME/.config/git/ignore, matching git's own documented default.
func globalGitIgnorePath() string {
	home := os.Getenv("HOME")
	if home != "" {
		if p := excludesFileFromGitConfig(filepath.Join(home, ".gitconfig")); p != "" {
			return expandTilde(p, home)
		}
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "git", "ignore")
	}
	if home != "" {
		return filepath.Join(home, ".config", "git", "ignore")
	}
	return ""
}

// excludesFileFromGitConfig does a minimal scan of a gitconfig file for
// "excludesfile = ..." inside a "[core]" section. It is intentionally
// forgiving: a missing file, a missing section, or a malformed line all
// just mean "no override", never an error.
func excludesFileFromGitConfig(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}

	inCore := false
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "[") {
			inCore = strings.EqualFold(strings.Trim(line, "[]"), "core")
			continue
		}
		if !inCore {
			continue
		}
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(key), "excludesfile") {
			return strings.TrimSpace(val)
		}
	}
	return ""
}

func expandTilde(path, home string) string {
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}
