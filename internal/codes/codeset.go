package codes

import (
	"sort"
	"strings"
)

// CodeSet is an ordered, duplicate free list of codes whose first element
// is the canonical code. Codes are ordered by rank, then shorter codes
// first, then lexically, so the order never depends on input order.
type CodeSet []string

// NewCodeSet expands every raw code, removes duplicates and sorts the
// result with Less
func NewCodeSet(raw ...string) CodeSet {
	seen := make(map[string]bool)
	var all []string
	for _, r := range raw {
		for _, code := range Expand(r) {
			if seen[code] {
				continue
			}
			seen[code] = true
			all = append(all, code)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		return Less(all[i], all[j])
	})
	return CodeSet(all)
}

// Less orders two codes by rank, length and then lexically
func Less(a, b string) bool {
	if ra, rb := Rank(a), Rank(b); ra != rb {
		return ra < rb
	}
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}

// First returns the canonical code or "" for an empty set
func (s CodeSet) First() string {
	if len(s) == 0 {
		return ""
	}
	return s[0]
}

// Contains reports whether code is a member
func (s CodeSet) Contains(code string) bool {
	return contains(s, code)
}

// Union combines two sets. The result is the same for a.Union(b) and
// b.Union(a).
func (s CodeSet) Union(other CodeSet) CodeSet {
	raw := make([]string, 0, len(s)+len(other))
	raw = append(raw, s...)
	raw = append(raw, other...)
	return NewCodeSet(raw...)
}

// Intersects reports whether any code is shared
func (s CodeSet) Intersects(other CodeSet) bool {
	for _, code := range other {
		if s.Contains(code) {
			return true
		}
	}
	return false
}

func (s CodeSet) String() string {
	return strings.Join(s, ", ")
}
