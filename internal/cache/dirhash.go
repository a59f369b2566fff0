package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"sort"
	"strings"
)

// HashDirEntries computes a shallow content signature for dir: a hash over
// the sorted names of dir's immediate children only. This is deliberately
// not a recursive Merkle tree — a single directory listing is cheap enough
// to recompute on every invocation, so the cache only needs to detect
// "something was added or removed right here", not track descendants.
func HashDirEntries(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}

	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}
	sort.Strings(names)

	h := sha256.New()
	h.Write([]byte(strings.Join(names, "\n")))
	return hex.EncodeToString(h.Sum(nil)), nil
}
