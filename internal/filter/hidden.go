package filter

import "strings"

// isHiddenComponent reports whether a single path component is "hidden":
// its first byte is '.' and the component is not literally "." or "..".
//
// Go strings are raw byte sequences, so indexing by byte here is already
// the POSIX-correct, encoding-agnostic comparison spec.md §4.1 requires;
// there is no separate "text" fallback to write for non-POSIX systems.
func isHiddenComponent(name string) bool {
	if name == "." || name == ".." {
		return false
	}
	return len(name) > 0 && name[0] == '.'
}

// isHiddenUnderBase reports whether path has a hidden component strictly
// below base. If path does not start with base (defensive: callers should
// never pass such a path), every component of path is tested instead.
func isHiddenUnderBase(path, base string) bool {
	rest, ok := stripBasePrefix(path, base)
	if !ok {
		return isHiddenPath(path)
	}
	return isHiddenPath(rest)
}

func isHiddenPath(path string) bool {
	for _, comp := range strings.Split(path, "/") {
		if comp == "" {
			continue
		}
		if isHiddenComponent(comp) {
			return true
		}
	}
	return false
}

// stripBasePrefix removes base from the front of path, returning the
// remainder (without a leading slash) and true. It returns false if path
// does not lie under base.
func stripBasePrefix(path, base string) (string, bool) {
	if path == base {
		return "", true
	}
	base = strings.TrimSuffix(base, "/")
	if !strings.HasPrefix(path, base+"/") {
		return "", false
	}
	return path[len(base)+1:], true
}
