// Package session ties the record store to the user controls and produces the
// map and table views.
package session

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/couchcryptid/risk-asset-explorer/internal/control"
	"github.com/couchcryptid/risk-asset-explorer/internal/domain"
	"github.com/couchcryptid/risk-asset-explorer/internal/observability"
	"github.com/couchcryptid/risk-asset-explorer/internal/store"
)

// Snapshotter exposes a versioned read of the loaded records.
type Snapshotter interface {
	Snapshot() store.Snapshot
}

// TableView is the sorted, filtered table with its headers.
type TableView struct {
	Columns          []domain.Column   `json:"columns"`
	Rows             []domain.TableRow `json:"rows"`
	Total            int               `json:"total"`
	InWindow         int               `json:"in_window"`
	OutOfRange       int               `json:"out_of_range"`
	MissingFilterKey int               `json:"missing_filter_key"`
}

// MapView is the marker layer for the current decade window.
type MapView struct {
	Window  domain.TimeWindow `json:"window"`
	Markers []domain.Marker   `json:"markers"`
	Skipped int               `json:"skipped"`
}

// Controller owns the control state and serializes changes to it. Views are
// computed from a store snapshot and cached by store version and controls.
// Cached views are shared between callers and must not be modified.
type Controller struct {
	records Snapshotter
	logger  *slog.Logger
	metrics *observability.Metrics

	mu    sync.Mutex
	state control.State

	tables *lruCache[TableView]
	maps   *lruCache[MapView]
}

// New creates a Controller starting at defaultDecade with every factor fully
// open and the default sort. cacheSize <= 0 disables view caching.
func New(records Snapshotter, defaultDecade, cacheSize int, logger *slog.Logger, metrics *observability.Metrics) *Controller {
	return &Controller{
		records: records,
		logger:  logger,
		metrics: metrics,
		state:   control.NewState(defaultDecade),
		tables:  newLRUCache[TableView](cacheSize),
		maps:    newLRUCache[MapView](cacheSize),
	}
}

// State returns a copy of the current controls.
func (c *Controller) State() control.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotState()
}

func (c *Controller) snapshotState() control.State {
	s := c.state
	s.Filter.Draft = s.Filter.Draft.Clone()
	s.Filter.Committed = s.Filter.Committed.Clone()
	return s
}

// SubmitDecade sets the decade window from user input. Invalid input leaves
// the window unchanged and returns domain.ErrInvalidTimeWindow.
func (c *Controller) SubmitDecade(input string) (control.State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	w, err := control.SubmitDecade(c.state.Window, input)
	if err != nil {
		c.logger.Warn("decade rejected", "input", input, "error", err)
		return c.snapshotState(), err
	}
	c.state.Window = w
	c.metrics.ControlEvents.WithLabelValues("decade").Inc()
	c.logger.Debug("decade set", "decade", w.Decade)
	return c.snapshotState(), nil
}

// OpenFilter opens the filter panel, copying the committed ranges into the draft.
func (c *Controller) OpenFilter() control.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Filter = c.state.Filter.Open()
	c.metrics.ControlEvents.WithLabelValues("filter_open").Inc()
	return c.snapshotState()
}

// CloseFilter closes the panel and commits the draft ranges.
func (c *Controller) CloseFilter() control.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Filter = c.state.Filter.Close()
	c.metrics.ControlEvents.WithLabelValues("filter_close").Inc()
	return c.snapshotState()
}

// ToggleFilter opens a closed panel or closes an open one.
func (c *Controller) ToggleFilter() control.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	event := "filter_open"
	if c.state.Filter.Panel == control.Editing {
		event = "filter_close"
	}
	c.state.Filter = c.state.Filter.Toggle()
	c.metrics.ControlEvents.WithLabelValues(event).Inc()
	return c.snapshotState()
}

// SetFactorRange edits one factor's draft interval while the panel is open.
func (c *Controller) SetFactorRange(factor string, iv domain.Interval) (control.State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	next, err := c.state.Filter.SetDraft(factor, iv)
	if err != nil {
		return c.snapshotState(), err
	}
	c.state.Filter = next
	c.metrics.ControlEvents.WithLabelValues("filter_draft").Inc()
	return c.snapshotState(), nil
}

// ClickSort applies a header click on key.
func (c *Controller) ClickSort(key domain.SortKey) control.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Sort = control.ClickHeader(c.state.Sort, key)
	c.metrics.ControlEvents.WithLabelValues("sort").Inc()
	return c.snapshotState()
}

// Table builds the table view: decade window, committed factor ranges, sort.
func (c *Controller) Table() (TableView, error) {
	state := c.State()
	snap := c.records.Snapshot()

	key := fmt.Sprintf("%d|%d|%s|%s|%d", snap.Version, state.Window.Decade,
		state.Filter.Committed.String(), state.Sort.Key, state.Sort.Order)
	if v, ok := c.tables.get(key); ok {
		c.metrics.ViewCache.WithLabelValues("hit").Inc()
		return v, nil
	}
	c.metrics.ViewCache.WithLabelValues("miss").Inc()

	start := time.Now()
	res, err := domain.Query(snap.Records, state.Window, state.Filter.Committed, state.Sort)
	c.metrics.QueryDuration.WithLabelValues("table").Observe(time.Since(start).Seconds())

	view := TableView{
		Columns:          domain.Columns(state.Sort),
		Rows:             domain.Rows(res.Records),
		Total:            len(snap.Records),
		InWindow:         res.InWindow,
		OutOfRange:       res.OutOfRange,
		MissingFilterKey: res.MissingFilterKey,
	}
	if err != nil {
		return view, err
	}
	if res.MissingFilterKey > 0 {
		c.logger.Warn("records dropped for factors without a range",
			"count", res.MissingFilterKey, "error", domain.ErrMissingFilterKey)
	}
	c.tables.put(key, view)
	return view, nil
}

// Map builds the marker layer. Only the decade window applies.
func (c *Controller) Map() (MapView, error) {
	state := c.State()
	snap := c.records.Snapshot()

	key := fmt.Sprintf("%d|%d", snap.Version, state.Window.Decade)
	if v, ok := c.maps.get(key); ok {
		c.metrics.ViewCache.WithLabelValues("hit").Inc()
		return v, nil
	}
	c.metrics.ViewCache.WithLabelValues("miss").Inc()

	start := time.Now()
	records, err := domain.MapLayer(snap.Records, state.Window)
	c.metrics.QueryDuration.WithLabelValues("map").Observe(time.Since(start).Seconds())
	if err != nil {
		return MapView{Window: state.Window, Markers: []domain.Marker{}}, err
	}

	markers, skipped := domain.Markers(records)
	view := MapView{Window: state.Window, Markers: markers, Skipped: skipped}
	if skipped > 0 {
		c.logger.Debug("records without coordinates left off the map", "count", skipped)
	}
	c.maps.put(key, view)
	return view, nil
}
