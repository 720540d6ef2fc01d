package graph

import (
	_ "embed"
	"fmt"
)

//go:embed fixtures/demo.yaml
var demoYAML []byte

// demoRelations are resolved by entity name; pairs naming an unknown entity are skipped.
var demoRelations = [][3]string{
	{"React", "TypeScript", "uses"},
	{"React", "Vercel", "deployed on"},
	{"GraphQL", "React", "used with"},
	{"Kubernetes", "Redis", "orchestrates"},
	{"PostgreSQL", "Redis", "complemented by"},

	{"OpenAI", "Acme Corp", "partners with"},
	{"Vercel", "React", "supports"},

	{"Q1 Product Launch", "React", "uses"},
	{"Q1 Product Launch", "TypeScript", "uses"},
	{"Q1 Product Launch", "Acme Corp", "owned by"},
	{"API Redesign", "GraphQL", "uses"},
	{"API Redesign", "PostgreSQL", "uses"},
	{"API Redesign", "Acme Corp", "owned by"},

	{"TechConf 2024", "React", "features"},
	{"TechConf 2024", "OpenAI", "sponsored by"},
	{"TechConf 2024", "Kubernetes", "covers"},
}

// Demo returns the built-in sample graph.
func Demo() (*Graph, error) {
	g, err := Decode(demoYAML, true)
	if err != nil {
		return nil, fmt.Errorf("demo fixture: %w", err)
	}
	for _, rel := range demoRelations {
		src, err := g.Find(rel[0])
		if err != nil {
			continue
		}
		dst, err := g.Find(rel[1])
		if err != nil {
			continue
		}
		g.Relationships = append(g.Relationships, Relationship{Source: src.ID, Target: dst.ID, Type: rel[2]})
	}
	return g, nil
}
