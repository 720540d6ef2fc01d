// Package selection tracks the type filter, search query and selected entity
// of the graph view, and derives the highlight sets and visible subset from
// them.
package selection

import (
	"strings"

	"github.com/msalah0e/garden/internal/layout"
)

// State is the filter and selection state. The zero value is ready to use:
// no filter, no query, nothing selected, highlighting off.
type State struct {
	TypeFilter string
	Query      string
	Selected   string

	// Highlighted is nil when highlighting is off. A non-nil empty set means
	// highlighting is on and matched nothing, so everything is dimmed.
	Highlighted      map[string]bool
	HighlightedEdges map[*layout.Edge]bool
}

// ToggleType sets the type filter, or clears it when t is already active.
func (s *State) ToggleType(t string) {
	if s.TypeFilter == t {
		s.TypeFilter = ""
		return
	}
	s.TypeFilter = t
}

// SetType sets the type filter directly; "" shows every type.
func (s *State) SetType(t string) {
	s.TypeFilter = t
}

// Search sets the query and highlights the nodes whose name contains it.
// The query is stored trimmed. An empty query turns highlighting off. Edge
// highlights are left alone.
func (s *State) Search(q string, nodes []*layout.Node) {
	s.Query = strings.TrimSpace(q)
	needle := strings.ToLower(s.Query)
	if needle == "" {
		s.Highlighted = nil
		return
	}
	s.Highlighted = make(map[string]bool)
	for _, n := range nodes {
		if strings.Contains(strings.ToLower(n.Entity.Name), needle) {
			s.Highlighted[n.ID] = true
		}
	}
}

// ClearSearch drops the query and node highlights.
func (s *State) ClearSearch() {
	s.Query = ""
	s.Highlighted = nil
}

// Select marks id as selected and highlights it, its neighbours and its
// incident edges. It returns false, leaving the state untouched, when id is
// not in g.
func (s *State) Select(id string, g *layout.Graph) bool {
	if g.NodeByID(id) == nil {
		return false
	}
	s.Selected = id
	s.Highlighted = map[string]bool{id: true}
	s.HighlightedEdges = make(map[*layout.Edge]bool)
	for _, e := range g.Edges {
		if e.Source.ID != id && e.Target.ID != id {
			continue
		}
		s.HighlightedEdges[e] = true
		s.Highlighted[e.Source.ID] = true
		s.Highlighted[e.Target.ID] = true
	}
	return true
}

// ClearSelection deselects and turns highlighting off.
func (s *State) ClearSelection() {
	s.Selected = ""
	s.Highlighted = nil
	s.HighlightedEdges = nil
}

// Reapply recomputes the selection highlight against a rebuilt graph, since
// edge identities change on every build. A selection whose entity is gone is
// cleared. It reports whether the selection survived.
func (s *State) Reapply(g *layout.Graph) bool {
	if s.Selected == "" {
		if s.Query != "" {
			s.Search(s.Query, g.Nodes)
		}
		return false
	}
	if s.Select(s.Selected, g) {
		return true
	}
	s.ClearSelection()
	return false
}

// Matches reports whether a node passes both the type filter and the query
// (name or description, case-insensitive).
func (s *State) Matches(n *layout.Node) bool {
	if s.TypeFilter != "" && n.Entity.Type != s.TypeFilter {
		return false
	}
	q := strings.ToLower(s.Query)
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(n.Entity.Name), q) ||
		strings.Contains(strings.ToLower(n.Entity.Description), q)
}

// Visible returns the nodes that pass the filters, in their original order.
func (s *State) Visible(nodes []*layout.Node) []*layout.Node {
	out := make([]*layout.Node, 0, len(nodes))
	for _, n := range nodes {
		if s.Matches(n) {
			out = append(out, n)
		}
	}
	return out
}

// VisibleEdges keeps the edges whose endpoints are both visible.
func VisibleEdges(edges []*layout.Edge, visible []*layout.Node) []*layout.Edge {
	in := make(map[*layout.Node]bool, len(visible))
	for _, n := range visible {
		in[n] = true
	}
	out := make([]*layout.Edge, 0, len(edges))
	for _, e := range edges {
		if in[e.Source] && in[e.Target] {
			out = append(out, e)
		}
	}
	return out
}

// NodeHighlighted reports whether highlighting is on and includes id.
func (s *State) NodeHighlighted(id string) bool {
	return s.Highlighted != nil && s.Highlighted[id]
}

// NodeDimmed reports whether highlighting is on and excludes id.
func (s *State) NodeDimmed(id string) bool {
	return s.Highlighted != nil && !s.Highlighted[id]
}

func (s *State) EdgeHighlighted(e *layout.Edge) bool {
	return s.HighlightedEdges != nil && s.HighlightedEdges[e]
}

func (s *State) EdgeDimmed(e *layout.Edge) bool {
	return s.HighlightedEdges != nil && !s.HighlightedEdges[e]
}
