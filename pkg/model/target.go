package model

// DefaultJobLabel is the label name that conventionally identifies the
// owning scrape pool of a dropped target.
const DefaultJobLabel = "job"

// UnknownPool is the sentinel bucket for dropped targets whose discovered
// labels carry no job-identifying label. Such targets must not vanish
// from the grouped view.
const UnknownPool = "unknown"

// ActiveTarget is a target currently eligible for scraping. It carries
// both the raw discovered labels and the final post-relabeling label set;
// the two may differ in their key sets.
type ActiveTarget struct {
	ScrapePool       string   `json:"scrapePool"`
	DiscoveredLabels LabelMap `json:"discoveredLabels"`
	Labels           LabelMap `json:"labels"`
}

// DroppedTarget is a discovered target that was excluded from scraping
// before a final label set was computed. Only discovered labels exist.
type DroppedTarget struct {
	DiscoveredLabels LabelMap `json:"discoveredLabels"`
}

// Pool returns the owning pool name for a dropped target, read from the
// job-identifying label. Targets without that label go to UnknownPool.
func (d DroppedTarget) Pool(jobLabel string) string {
	if jobLabel == "" {
		jobLabel = DefaultJobLabel
	}
	if pool, ok := d.DiscoveredLabels[jobLabel]; ok && pool != "" {
		return pool
	}
	return UnknownPool
}

// Inventory is the raw target inventory as served by the monitoring
// server's targets resource. It is the single input object of the
// aggregation and search layers.
type Inventory struct {
	ActiveTargets       []ActiveTarget  `json:"activeTargets"`
	DroppedTargets      []DroppedTarget `json:"droppedTargets"`
	DroppedTargetCounts map[string]int  `json:"droppedTargetCounts"`
}

// NewInventory creates an empty inventory with non-nil collections.
func NewInventory() *Inventory {
	return &Inventory{
		ActiveTargets:       make([]ActiveTarget, 0),
		DroppedTargets:      make([]DroppedTarget, 0),
		DroppedTargetCounts: make(map[string]int),
	}
}
