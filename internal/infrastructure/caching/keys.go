package caching

import "strings"

// Key identifies one cached query result. Keys are plain comparable tuples:
// two keys built from the same parts are equal and address the same entry.
type Key struct {
	Op        string // logical operation, e.g. "summary-overview", "breakdown"
	Branch    string // tenant branch, empty for branch-independent queries
	Mode      string // mode/scope discriminator, e.g. "current", "month"
	Qualifier string // extra positional qualifiers, joined with "/"
}

// NewKey builds a Key from an operation, branch, mode and any extra qualifiers.
func NewKey(op, branch, mode string, extra ...string) Key {
	return Key{
		Op:        op,
		Branch:    branch,
		Mode:      mode,
		Qualifier: strings.Join(extra, "/"),
	}
}

// String returns the canonical form used for single-flight grouping and logs.
func (k Key) String() string {
	return k.Op + "|" + k.Branch + "|" + k.Mode + "|" + k.Qualifier
}
