package query

import (
	"fmt"
	"strings"
)

// KeySeparator joins key segments in the canonical string form.
const KeySeparator = "::"

// Key identifies a cache entry: an entity kind plus the parameters that
// select it, e.g. ("students", 2) or ("student", 17).
type Key struct {
	Kind   string
	Params []any
}

func NewKey(kind string, params ...any) Key {
	return Key{Kind: kind, Params: params}
}

// String is the canonical form used to index entries. Parameters are
// rendered with %v, so 1 and "1" address the same entry.
func (k Key) String() string {
	if len(k.Params) == 0 {
		return k.Kind
	}
	parts := make([]string, 0, len(k.Params)+1)
	parts = append(parts, k.Kind)
	for _, p := range k.Params {
		parts = append(parts, fmt.Sprintf("%v", p))
	}
	return strings.Join(parts, KeySeparator)
}

func (k Key) Equal(other Key) bool {
	return k.String() == other.String()
}
