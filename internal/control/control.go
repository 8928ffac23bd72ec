// Package control holds the user-driven view state: the decade window, the
// draft and committed factor filter, and the active table sort. Every
// transition is a value method returning the next state; the caller owns the
// current value and decides when to swap it in.
package control

import (
	"fmt"

	"github.com/couchcryptid/risk-asset-explorer/internal/domain"
)

// PanelState is the filter panel visibility.
type PanelState int

const (
	Closed PanelState = iota
	Editing
)

func (p PanelState) String() string {
	if p == Editing {
		return "editing"
	}
	return "closed"
}

// MarshalText renders the panel state for JSON payloads.
func (p PanelState) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// FilterState tracks the committed filter used by the table and the draft
// being edited while the panel is open. There is no cancel: closing the
// panel always commits the draft.
type FilterState struct {
	Panel     PanelState        `json:"panel"`
	Draft     domain.FilterSpec `json:"draft"`
	Committed domain.FilterSpec `json:"committed"`
}

// NewFilterState returns a closed panel with every factor at the full range.
func NewFilterState() FilterState {
	committed := domain.DefaultFilter()
	return FilterState{
		Panel:     Closed,
		Draft:     committed.Clone(),
		Committed: committed,
	}
}

// Open copies the committed filter into the draft. Opening an open panel
// leaves the draft untouched.
func (s FilterState) Open() FilterState {
	if s.Panel == Editing {
		return s
	}
	return FilterState{
		Panel:     Editing,
		Draft:     s.Committed.Clone(),
		Committed: s.Committed,
	}
}

// Close commits the draft. Closing a closed panel is a no-op.
func (s FilterState) Close() FilterState {
	if s.Panel == Closed {
		return s
	}
	return FilterState{
		Panel:     Closed,
		Draft:     s.Draft,
		Committed: s.Draft.Clone(),
	}
}

// Toggle opens a closed panel and closes an open one.
func (s FilterState) Toggle() FilterState {
	if s.Panel == Editing {
		return s.Close()
	}
	return s.Open()
}

// SetDraft replaces one factor's draft interval. The committed filter is
// not touched until Close.
func (s FilterState) SetDraft(factor string, iv domain.Interval) (FilterState, error) {
	if s.Panel != Editing {
		return s, domain.ErrPanelClosed
	}
	if !domain.IsFactor(factor) {
		return s, fmt.Errorf("%w: %q", domain.ErrUnknownFactor, factor)
	}
	iv, err := domain.NewInterval(iv.Lo, iv.Hi)
	if err != nil {
		return s, err
	}
	draft := s.Draft.Clone()
	draft[factor] = iv
	return FilterState{Panel: s.Panel, Draft: draft, Committed: s.Committed}, nil
}

// ClickHeader applies a table header click: the clicked column becomes the
// sort key and the order flips, whether or not the key changed.
func ClickHeader(current domain.SortSpec, key domain.SortKey) domain.SortSpec {
	return domain.SortSpec{Key: key, Order: current.Order.Flip()}
}

// SubmitDecade parses a decade submission. On failure the current window is
// returned unchanged together with the error.
func SubmitDecade(current domain.TimeWindow, input string) (domain.TimeWindow, error) {
	w, err := domain.ParseDecade(input)
	if err != nil {
		return current, err
	}
	if err := w.Validate(); err != nil {
		return current, err
	}
	return w, nil
}

// State is the full set of user controls.
type State struct {
	Window domain.TimeWindow `json:"window"`
	Filter FilterState       `json:"filter"`
	Sort   domain.SortSpec   `json:"sort"`
}

// NewState returns the initial controls for the given decade. A zero decade
// falls back to domain.DefaultDecade.
func NewState(decade int) State {
	if decade == 0 {
		decade = domain.DefaultDecade
	}
	return State{
		Window: domain.TimeWindow{Decade: decade},
		Filter: NewFilterState(),
		Sort:   domain.DefaultSort,
	}
}
