// Package internalpath provides the normalized path identity used to
// recognize the same logical file across different archives.
package internalpath

import (
	"strings"
	"sync"
)

// Path is a normalized, slash-delimited path inside an archive. Two paths
// that differ only in separator style (`/` vs `\`) normalize to the same
// Path and are therefore equal as map keys.
//
// Entries obtain their Path values through an Interner so that every Entry
// referencing the same logical path shares one backing string. Normalize
// also produces Path values, without interning them.
type Path string

// String returns the normalized path as a plain string.
func (p Path) String() string {
	return string(p)
}

// IsDir reports whether the raw archive entry name this Path was built from
// represented a directory (trailing slash).
func (p Path) IsDir() bool {
	return strings.HasSuffix(string(p), "/")
}

// Normalize converts raw (forward- or back-slash) entry text into the
// canonical slash-delimited form, without interning it.
func Normalize(raw string) Path {
	s := strings.ReplaceAll(raw, "\\", "/")
	return Path(s)
}

// Interner hands out one canonical Path value per distinct normalized
// string, so that repeated occurrences of the same logical path across many
// archives share a single backing value instead of allocating afresh.
//
// Interner is safe for concurrent use.
type Interner struct {
	mu    sync.Mutex
	table map[string]Path
}

// NewInterner creates an empty Interner.
func NewInterner() *Interner {
	return &Interner{table: make(map[string]Path)}
}

// Intern normalizes raw and returns the canonical Path for it, creating and
// caching one if this is the first time it has been seen.
func (in *Interner) Intern(raw string) Path {
	normalized := string(Normalize(raw))

	in.mu.Lock()
	defer in.mu.Unlock()

	if p, ok := in.table[normalized]; ok {
		return p
	}

	p := Path(normalized)
	in.table[normalized] = p
	return p
}

// Len returns the number of distinct paths interned so far.
func (in *Interner) Len() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	return len(in.table)
}
