package model

import (
	"sort"
)

// LabelMap holds a target's labels as name/value pairs.
// Label names are arbitrary strings; nothing about the key set is known
// at build time.
type LabelMap map[string]string

// Clone returns a copy of the map. A nil receiver yields an empty,
// non-nil map so callers can render it without nil checks.
func (m LabelMap) Clone() LabelMap {
	out := make(LabelMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// SortedKeys returns the label names in lexical order.
func (m LabelMap) SortedKeys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
