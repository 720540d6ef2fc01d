package engine

import (
	"github.com/msalah0e/garden/internal/graph"
	"github.com/msalah0e/garden/internal/layout"
)

// EventKind tells listeners what changed.
type EventKind int

const (
	SelectionChanged EventKind = iota
	FilterChanged
	Rebuilt
)

func (k EventKind) String() string {
	switch k {
	case SelectionChanged:
		return "selection_changed"
	case FilterChanged:
		return "filter_changed"
	case Rebuilt:
		return "rebuilt"
	}
	return "unknown"
}

// Event is delivered to listeners after the engine state has changed.
type Event struct {
	Kind EventKind `json:"kind"`

	// SelectionChanged and FilterChanged
	Selected         *graph.Entity `json:"selected,omitempty"`
	Highlighted      []string      `json:"highlighted,omitempty"`
	HighlightedEdges []EdgeRef     `json:"highlighted_edges,omitempty"`

	// FilterChanged
	TypeFilter string `json:"type_filter"`
	Query      string `json:"query"`

	// Rebuilt
	Reason string             `json:"reason,omitempty"`
	Stats  *layout.BuildStats `json:"stats,omitempty"`
}

// EdgeRef names a relationship in the working graph.
type EdgeRef struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Type   string `json:"type"`
}

// Listener receives engine events synchronously on the engine's goroutine.
type Listener func(Event)

type subscription struct {
	id int
	fn Listener
}

// Subscribe registers l and returns a function that removes it.
func (e *Engine) Subscribe(l Listener) (unsubscribe func()) {
	e.nextSub++
	id := e.nextSub
	e.listeners = append(e.listeners, subscription{id: id, fn: l})
	return func() {
		for i, s := range e.listeners {
			if s.id == id {
				e.listeners = append(e.listeners[:i], e.listeners[i+1:]...)
				return
			}
		}
	}
}

func (e *Engine) emit(ev Event) {
	for _, s := range append([]subscription(nil), e.listeners...) {
		s.fn(ev)
	}
}

func (e *Engine) emitSelection() {
	ev := Event{
		Kind:             SelectionChanged,
		Highlighted:      e.highlightedIDs(),
		HighlightedEdges: e.highlightedEdges(),
	}
	if e.sel.Selected != "" {
		ev.Selected = e.data.ByID(e.sel.Selected)
	}
	e.emit(ev)
}

func (e *Engine) emitFilter() {
	e.emit(Event{
		Kind:             FilterChanged,
		TypeFilter:       e.sel.TypeFilter,
		Query:            e.sel.Query,
		Highlighted:      e.highlightedIDs(),
		HighlightedEdges: e.highlightedEdges(),
	})
}

// highlightedIDs lists highlighted node ids in node order.
func (e *Engine) highlightedIDs() []string {
	if e.sel.Highlighted == nil {
		return nil
	}
	ids := make([]string, 0, len(e.sel.Highlighted))
	for _, n := range e.graph().Nodes {
		if e.sel.Highlighted[n.ID] {
			ids = append(ids, n.ID)
		}
	}
	return ids
}

// highlightedEdges lists highlighted relationships in edge order.
func (e *Engine) highlightedEdges() []EdgeRef {
	if len(e.sel.HighlightedEdges) == 0 {
		return nil
	}
	refs := make([]EdgeRef, 0, len(e.sel.HighlightedEdges))
	for _, ed := range e.graph().Edges {
		if e.sel.HighlightedEdges[ed] {
			refs = append(refs, EdgeRef{Source: ed.Source.ID, Target: ed.Target.ID, Type: ed.Type})
		}
	}
	return refs
}
