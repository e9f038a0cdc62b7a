// Package search provides fuzzy filtering of target collections by their
// label data. Label names are arbitrary, so every name=value entry is
// indexed as its own searchable field instead of a fixed field list.
package search

import (
	"sort"
	"strings"

	"github.com/sahilm/fuzzy"

	"targetview/pkg/model"
)

// entry binds one searchable string to the target it came from. A target
// contributes one entry per label pair plus one whole-map rendering.
type entry struct {
	target int
	text   string
}

type entrySource []entry

func (s entrySource) String(i int) string { return s[i].text }
func (s entrySource) Len() int            { return len(s) }

// Index matches a query against target label data and returns relevance
// ordered subsets. Which label maps are searchable is fixed at
// construction; the active and dropped target shapes each get their own
// index.
type Index struct {
	finalLabels bool
}

// NewActiveIndex indexes both the discovered and the final label set of
// active targets.
func NewActiveIndex() *Index {
	return &Index{finalLabels: true}
}

// NewDroppedIndex indexes discovered labels only; dropped targets carry
// no final label set.
func NewDroppedIndex() *Index {
	return &Index{}
}

// FilterActive returns the active targets matching query, best match
// first. An empty or whitespace-only query returns the full list in its
// original order. The input is never modified; filtering always runs
// over the list passed in, not over a previous result.
func (ix *Index) FilterActive(query string, targets []model.ActiveTarget) []model.ActiveTarget {
	query = strings.TrimSpace(query)
	if query == "" {
		return append([]model.ActiveTarget(nil), targets...)
	}

	entries := make(entrySource, 0, len(targets)*4)
	for i, t := range targets {
		entries = appendLabelEntries(entries, i, t.DiscoveredLabels)
		if ix.finalLabels {
			entries = appendLabelEntries(entries, i, t.Labels)
		}
	}

	out := make([]model.ActiveTarget, 0)
	for _, i := range rank(query, entries) {
		out = append(out, targets[i])
	}
	return out
}

// FilterDropped is FilterActive for the dropped target shape.
func (ix *Index) FilterDropped(query string, targets []model.DroppedTarget) []model.DroppedTarget {
	query = strings.TrimSpace(query)
	if query == "" {
		return append([]model.DroppedTarget(nil), targets...)
	}

	entries := make(entrySource, 0, len(targets)*4)
	for i, t := range targets {
		entries = appendLabelEntries(entries, i, t.DiscoveredLabels)
	}

	out := make([]model.DroppedTarget, 0)
	for _, i := range rank(query, entries) {
		out = append(out, targets[i])
	}
	return out
}

// appendLabelEntries adds one entry per label pair and one for the map as
// a whole, so a query can hit a single value or span several pairs.
func appendLabelEntries(entries entrySource, target int, labels model.LabelMap) entrySource {
	if len(labels) == 0 {
		return entries
	}
	rendered := make([]string, 0, len(labels))
	for _, k := range labels.SortedKeys() {
		field := k + "=" + labels[k]
		entries = append(entries, entry{target: target, text: field})
		rendered = append(rendered, field)
	}
	entries = append(entries, entry{target: target, text: strings.Join(rendered, " ")})
	return entries
}

// rank runs the fuzzy matcher over all entries and reduces the result to
// target indexes ordered by each target's best field score. Ties keep
// the original target order so equal-quality matches are stable.
func rank(query string, entries entrySource) []int {
	matches := fuzzy.FindFrom(query, entries)

	best := make(map[int]int, len(matches))
	for _, m := range matches {
		target := entries[m.Index].target
		if score, ok := best[target]; !ok || m.Score > score {
			best[target] = m.Score
		}
	}

	ranked := make([]int, 0, len(best))
	for target := range best {
		ranked = append(ranked, target)
	}
	sort.SliceStable(ranked, func(a, b int) bool {
		sa, sb := best[ranked[a]], best[ranked[b]]
		if sa != sb {
			return sa > sb
		}
		return ranked[a] < ranked[b]
	})
	return ranked
}
