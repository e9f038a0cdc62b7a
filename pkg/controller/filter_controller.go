package controller

import (
	"strings"
	"sync"
	"time"

	"targetview/pkg/aggregator"
	"targetview/pkg/model"
	"targetview/pkg/search"
	"targetview/tools/util/logutil"
)

// ViewListener receives every freshly derived view. Listeners are called
// after the controller releases its lock and must not block for long.
type ViewListener func(model.TargetView)

// FilterController owns the query/filter state machine: it holds the
// current query, re-runs the search indices when the query or the source
// inventory changes, and feeds the filtered lists back through the
// aggregator. Every transition is a full synchronous recomputation of
// the derived view; nothing is updated in place.
type FilterController struct {
	mu sync.Mutex

	store        QueryStore
	activeIndex  *search.Index
	droppedIndex *search.Index
	jobLabel     string

	query     string
	inventory model.Inventory

	currentActive  []model.ActiveTarget
	currentDropped []model.DroppedTarget

	view   model.TargetView
	status model.FetchStatus

	listeners []ViewListener
}

// NewFilterController builds a controller with its two indices. The
// initial query is read from the store once; the view stays in the
// loading state until the first inventory arrives.
func NewFilterController(store QueryStore, jobLabel string) *FilterController {
	if jobLabel == "" {
		jobLabel = model.DefaultJobLabel
	}
	c := &FilterController{
		store:        store,
		activeIndex:  search.NewActiveIndex(),
		droppedIndex: search.NewDroppedIndex(),
		jobLabel:     jobLabel,
		query:        store.Read(),
		status:       model.FetchStatus{State: model.FetchLoading},
	}
	return c
}

// AddListener registers a callback for derived-view updates.
func (c *FilterController) AddListener(l ViewListener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, l)
}

// Query returns the current query string.
func (c *FilterController) Query() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.query
}

// View returns the current derived view and fetch status.
func (c *FilterController) View() (model.TargetView, model.FetchStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view, c.status
}

// SetQuery persists the query write-through, re-filters both source
// lists and re-derives the view. An empty query resets both the active
// and the dropped list to source order; there is no separate clear
// action.
func (c *FilterController) SetQuery(query string) {
	c.mu.Lock()
	// Persist under the lock so the stored query can never diverge from
	// the one the derived view reflects.
	c.store.Write(query)
	c.query = query
	c.applyLocked()
	view, listeners := c.view, c.listeners
	c.mu.Unlock()

	publish(view, listeners)
}

// SetInventory replaces the source lists and dropped counts, re-applies
// the current query and re-derives the view. Called on every reload from
// the fetch boundary.
func (c *FilterController) SetInventory(inv model.Inventory) {
	c.mu.Lock()
	c.inventory = inv
	c.status = model.FetchStatus{State: model.FetchReady, LastFetch: time.Now()}
	c.applyLocked()
	view, listeners := c.view, c.listeners
	c.mu.Unlock()

	logutil.Infof("CONTROLLER", "Inventory loaded: %d active, %d dropped targets",
		len(inv.ActiveTargets), len(inv.DroppedTargets))
	publish(view, listeners)
}

// SetFetchError records a failed inventory fetch. The previously derived
// view is kept; only the status changes.
func (c *FilterController) SetFetchError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status.State == model.FetchReady {
		// Keep serving the last good view, but surface the error.
		c.status.LastError = err.Error()
		return
	}
	c.status = model.FetchStatus{State: model.FetchError, LastError: err.Error()}
}

// applyLocked recomputes the filtered lists and the derived view from
// the source inventory. Caller holds c.mu.
func (c *FilterController) applyLocked() {
	query := strings.TrimSpace(c.query)
	if query == "" {
		c.currentActive = c.inventory.ActiveTargets
		c.currentDropped = c.inventory.DroppedTargets
	} else {
		// Always filter the original lists, never the previous result.
		c.currentActive = c.activeIndex.FilterActive(query, c.inventory.ActiveTargets)
		c.currentDropped = c.droppedIndex.FilterDropped(query, c.inventory.DroppedTargets)
	}

	c.view = aggregator.DeriveView(model.Inventory{
		ActiveTargets:       c.currentActive,
		DroppedTargets:      c.currentDropped,
		DroppedTargetCounts: c.inventory.DroppedTargetCounts,
	}, c.jobLabel)
}

func publish(view model.TargetView, listeners []ViewListener) {
	for _, l := range listeners {
		l(view)
	}
}
