package graph

import (
	gonum "gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/encoding"
	"gonum.org/v1/gonum/graph/encoding/dot"
	"gonum.org/v1/gonum/graph/multi"
)

type dotNode struct {
	id     int64
	entity *Entity
}

func (n dotNode) ID() int64 { return n.id }
func (n dotNode) DOTID() string { return n.entity.ID }

func (n dotNode) Attributes() []encoding.Attribute {
	label := n.entity.Name
	if n.entity.Type != "" {
		label += "\n(" + n.entity.Type + ")"
	}
	return []encoding.Attribute{{Key: "label", Value: label}}
}

type dotLine struct {
	from, to dotNode
	uid      int64
	relType  string
}

func (l dotLine) From() gonum.Node { return l.from }
func (l dotLine) To() gonum.Node { return l.to }
func (l dotLine) ID() int64 { return l.uid }

func (l dotLine) ReversedLine() gonum.Line {
	return dotLine{from: l.to, to: l.from, uid: l.uid, relType: l.relType}
}

func (l dotLine) Attributes() []encoding.Attribute {
	return []encoding.Attribute{{Key: "label", Value: l.relType}}
}

// ExportDOT returns the graph in Graphviz DOT format. Parallel relationships
// are kept as separate edges; dangling ones are left out.
func (g *Graph) ExportDOT() ([]byte, error) {
	mg := multi.NewDirectedGraph()
	nodes := make(map[string]dotNode, len(g.Entities))
	for i, e := range g.Entities {
		n := dotNode{id: int64(i), entity: e}
		nodes[e.ID] = n
		mg.AddNode(n)
	}

	for i, r := range g.Relationships {
		from, ok := nodes[r.Source]
		if !ok {
			continue
		}
		to, ok := nodes[r.Target]
		if !ok {
			continue
		}
		mg.SetLine(dotLine{from: from, to: to, uid: int64(i), relType: r.Type})
	}

	return dot.MarshalMulti(mg, "garden", "", "  ")
}
