package model

// PoolSummary counts targets for one scrape pool. Total covers active
// plus dropped targets, so Total-Active is the dropped count.
type PoolSummary struct {
	Active int `json:"active"`
	Total  int `json:"total"`
}

// TargetLabelRecord is the per-target unit rendered in a pool's label
// table. Dropped targets carry an empty final label set.
type TargetLabelRecord struct {
	DiscoveredLabels LabelMap `json:"discoveredLabels"`
	Labels           LabelMap `json:"labels"`
	IsDropped        bool     `json:"isDropped"`
}

// TargetView is the derived, render-ready view of the inventory: per-pool
// summaries and per-pool ordered label records. Views are immutable
// snapshots; every query or source change produces a fresh one.
type TargetView struct {
	Summary map[string]PoolSummary         `json:"summary"`
	Pools   map[string][]TargetLabelRecord `json:"pools"`

	// PoolOrder lists pool names in first-seen order over the active
	// targets, with remaining pools appended in lexical order. Consumers
	// must not assume any numeric sort.
	PoolOrder []string `json:"poolOrder"`
}
