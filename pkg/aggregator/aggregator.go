package aggregator

import (
	"sort"

	"targetview/pkg/model"
)

// Summarize builds per-pool active/total counts from the active target
// list and the dropped-target counts reported by the monitoring server.
//
// A pool missing from droppedCounts contributes zero dropped targets.
// A pool present only in droppedCounts still appears in the summary with
// zero active targets, so every pool the server knows about is renderable.
func Summarize(active []model.ActiveTarget, droppedCounts map[string]int) map[string]model.PoolSummary {
	summary := make(map[string]model.PoolSummary)

	for _, t := range active {
		s := summary[t.ScrapePool]
		s.Active++
		s.Total++
		summary[t.ScrapePool] = s
	}

	for pool, dropped := range droppedCounts {
		s := summary[pool]
		s.Total += dropped
		summary[pool] = s
	}

	return summary
}

// GroupLabels buckets active and dropped targets by pool name, preserving
// input order within each pass. Active targets are bucketed first, then
// dropped targets; the two passes are never interleaved. Dropped targets
// whose discovered labels lack the job label land in model.UnknownPool.
//
// The inputs are not modified and every target appears in exactly one
// bucket. Records carry copies of the label maps, so holding a record
// across an inventory reload never aliases source data.
func GroupLabels(active []model.ActiveTarget, dropped []model.DroppedTarget, jobLabel string) map[string][]model.TargetLabelRecord {
	groups := make(map[string][]model.TargetLabelRecord)

	for _, t := range active {
		groups[t.ScrapePool] = append(groups[t.ScrapePool], model.TargetLabelRecord{
			DiscoveredLabels: t.DiscoveredLabels.Clone(),
			Labels:           t.Labels.Clone(),
		})
	}

	for _, t := range dropped {
		pool := t.Pool(jobLabel)
		groups[pool] = append(groups[pool], model.TargetLabelRecord{
			DiscoveredLabels: t.DiscoveredLabels.Clone(),
			Labels:           model.LabelMap{},
			IsDropped:        true,
		})
	}

	return groups
}

// DeriveView is the single recomputation step behind every state change:
// it turns (possibly filtered) target lists plus the dropped counts into
// a complete render-ready view. It is pure and runs to completion; there
// is no incremental update path.
func DeriveView(inv model.Inventory, jobLabel string) model.TargetView {
	summary := Summarize(inv.ActiveTargets, inv.DroppedTargetCounts)
	pools := GroupLabels(inv.ActiveTargets, inv.DroppedTargets, jobLabel)

	seen := make(map[string]bool, len(summary))
	order := make([]string, 0, len(summary))
	for _, t := range inv.ActiveTargets {
		if !seen[t.ScrapePool] {
			seen[t.ScrapePool] = true
			order = append(order, t.ScrapePool)
		}
	}

	// Pools known only through dropped targets or dropped counts follow
	// in lexical order, since map iteration would not be stable.
	rest := make([]string, 0)
	for pool := range summary {
		if !seen[pool] {
			seen[pool] = true
			rest = append(rest, pool)
		}
	}
	for pool := range pools {
		if !seen[pool] {
			seen[pool] = true
			rest = append(rest, pool)
		}
	}
	sort.Strings(rest)
	order = append(order, rest...)

	return model.TargetView{
		Summary:   summary,
		Pools:     pools,
		PoolOrder: order,
	}
}
