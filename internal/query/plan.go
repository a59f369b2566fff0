// Package query builds the mdfind argument list and, where mdfind's own
// matching is looser than the ignore engine's fd-like semantics, an
// additional Go-side matcher applied to candidates after filtering.
package query

import (
	"fmt"
	"strings"
	"unicode"
)

// MatcherKind names a post-filter matcher applied on top of mdfind's own
// result set.
type MatcherKind int

const (
	// MatcherNone means mdfind's own query fully decides matching.
	MatcherNone MatcherKind = iota
	// MatcherCaseSensitiveSubstring re-checks a case-sensitive substring
	// against the candidate's file name, needed because mdfind -name is
	// effectively case-insensitive.
	MatcherCaseSensitiveSubstring
)

// Matcher is an optional Go-side refinement of mdfind's result set.
type Matcher struct {
	Kind   MatcherKind
	Needle string
}

// Matches reports whether name (a bare file name, not a full path) passes
// this matcher. A MatcherNone always matches.
func (m Matcher) Matches(name string) bool {
	switch m.Kind {
	case MatcherCaseSensitiveSubstring:
		return strings.Contains(name, m.Needle)
	default:
		return true
	}
}

// Plan is the argument list handed to the mdfind subprocess plus any
// Matcher that must additionally pass.
type Plan struct {
	Args    []string
	Matcher Matcher
}

// Build constructs a Plan for searching base with an optional pattern. A
// nil/empty pattern lists everything under base. A pattern containing '*'
// or '?' is treated as a Spotlight glob; anything else is a smart-case
// substring.
func Build(base string, pattern string) Plan {
	args := []string{"-0", "-onlyin", base}

	switch {
	case pattern == "":
		args = append(args, buildQuery(""))
		return Plan{Args: args}

	case isGlob(pattern):
		args = append(args, buildQuery(pattern))
		return Plan{Args: args}

	default:
		if shouldAvoidNameFastPath(base) {
			args = append(args, buildQuery(pattern))
			return Plan{Args: args}
		}

		args = append(args, "-name", pattern)
		if hasUppercase(pattern) {
			return Plan{
				Args:    args,
				Matcher: Matcher{Kind: MatcherCaseSensitiveSubstring, Needle: pattern},
			}
		}
		return Plan{Args: args}
	}
}

// shouldAvoidNameFastPath reports whether base is an ephemeral system
// location (temp directories) where mdfind -name has been observed to
// under-return results relative to a full predicate query.
func shouldAvoidNameFastPath(base string) bool {
	for _, prefix := range []string{"/var/folders", "/private/var/folders", "/tmp", "/private/tmp"} {
		if base == prefix || strings.HasPrefix(base, prefix+"/") {
			return true
		}
	}
	return false
}

func buildQuery(pattern string) string {
	pat := "*"
	switch {
	case pattern == "":
		pat = "*"
	case isGlob(pattern):
		pat = pattern
	default:
		pat = "*" + pattern + "*"
	}

	escaped := escapeQueryString(pat)
	caseInsensitive := pattern != "" && !hasUppercase(pattern)
	if caseInsensitive {
		return fmt.Sprintf(`kMDItemFSName == "%s"c`, escaped)
	}
	return fmt.Sprintf(`kMDItemFSName == "%s"`, escaped)
}

func isGlob(pattern string) bool {
	return strings.ContainsAny(pattern, "*?")
}

func hasUppercase(s string) bool {
	for _, r := range s {
		if unicode.IsUpper(r) {
			return true
		}
	}
	return false
}

func escapeQueryString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return s
}
