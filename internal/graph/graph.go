package graph

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Entity types understood by the graph view.
const (
	TypePerson       = "person"
	TypePlace        = "place"
	TypeConcept      = "concept"
	TypeTechnology   = "technology"
	TypeOrganization = "organization"
	TypeProject      = "project"
	TypeEvent        = "event"
)

// Types lists the entity type vocabulary in legend order.
var Types = []string{
	TypePerson, TypePlace, TypeConcept, TypeTechnology,
	TypeOrganization, TypeProject, TypeEvent,
}

// RelationshipTypes are the suggested relationship labels. The vocabulary is open.
var RelationshipTypes = []string{
	"is related to",
	"works at",
	"works with",
	"created by",
	"created",
	"part of",
	"contains",
	"uses",
	"depends on",
	"influenced by",
	"located in",
	"attended",
	"organized by",
}

var (
	ErrNotFound = errors.New("entity not found")
	ErrExists   = errors.New("entity already exists")
)

// Entity is a node record in the knowledge graph.
type Entity struct {
	ID          string            `json:"id" yaml:"id" validate:"required"`
	Type        string            `json:"type" yaml:"type" validate:"required,oneof=person place concept technology organization project event"`
	Name        string            `json:"name" yaml:"name" validate:"required"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
	Properties  map[string]string `json:"properties,omitempty" yaml:"properties,omitempty"`
	CreatedAt   time.Time         `json:"created_at" yaml:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at" yaml:"updated_at"`
}

// Relationship is a directed, typed edge between two entity ids.
// Duplicates are allowed and kept.
type Relationship struct {
	Source string `json:"source" yaml:"source" validate:"required"`
	Target string `json:"target" yaml:"target" validate:"required"`
	Type   string `json:"type" yaml:"type" validate:"required"`
}

// Graph is the top-level container for entities and relationships.
// Entity order is significant: the layout seeds positions by index.
type Graph struct {
	Entities      []*Entity      `json:"entities" yaml:"entities"`
	Relationships []Relationship `json:"relationships" yaml:"relationships"`
}

// Patch carries the editable fields of an entity. Nil fields are left alone.
type Patch struct {
	Name        *string
	Type        *string
	Description *string
}

// Stats holds summary counts.
type Stats struct {
	Entities      int
	Relationships int
	Dangling      int
	ByType        map[string]int
}

// ShowResult holds the data for displaying an entity with its connections.
type ShowResult struct {
	Entity   *Entity `json:"entity"`
	Outgoing []Link  `json:"outgoing"`
	Incoming []Link  `json:"incoming"`
}

// Link is one resolved relationship end in a ShowResult.
type Link struct {
	Type   string  `json:"type"`
	Entity *Entity `json:"entity"`
}

// SearchResult holds a scored search hit.
type SearchResult struct {
	Entity *Entity `json:"entity"`
	Score  int     `json:"score"`
}

var validate = validator.New()

// ─── Storage ───

// DefaultPath returns the data file used when no --data flag is given.
func DefaultPath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "garden", "graph.json")
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		Entities:      make([]*Entity, 0),
		Relationships: make([]Relationship, 0),
	}
}

// Load reads the graph from path. Returns an empty graph if the file doesn't exist.
func Load(path string) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return New(), nil
		}
		return nil, err
	}
	return Decode(data, isYAML(path))
}

// Decode parses JSON or YAML graph data.
func Decode(data []byte, asYAML bool) (*Graph, error) {
	g := New()
	var err error
	if asYAML {
		err = yaml.Unmarshal(data, g)
	} else {
		err = json.Unmarshal(data, g)
	}
	if err != nil {
		return nil, fmt.Errorf("graph parse: %w", err)
	}
	if g.Entities == nil {
		g.Entities = make([]*Entity, 0)
	}
	if g.Relationships == nil {
		g.Relationships = make([]Relationship, 0)
	}
	return g, nil
}

// Save writes the graph to path, as YAML when the extension asks for it.
func Save(g *Graph, path string) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = g.ExportYAML()
	} else {
		data, err = g.ExportJSON()
	}
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// ─── CRUD ───

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// AddEntity creates a new entity with a fresh id.
func (g *Graph) AddEntity(name, entityType, description string, props map[string]string) (*Entity, error) {
	name = strings.TrimSpace(name)
	if _, err := g.Find(name); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrExists, name)
	}
	now := time.Now().UTC()
	e := &Entity{
		ID:          uuid.NewString(),
		Type:        normalize(entityType),
		Name:        name,
		Description: strings.TrimSpace(description),
		Properties:  props,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := validate.Struct(e); err != nil {
		return nil, fmt.Errorf("invalid entity: %w", err)
	}
	g.Entities = append(g.Entities, e)
	return e, nil
}

// Find returns an entity by id, or by name (case-insensitive).
func (g *Graph) Find(ref string) (*Entity, error) {
	if e := g.ByID(ref); e != nil {
		return e, nil
	}
	key := normalize(ref)
	for _, e := range g.Entities {
		if normalize(e.Name) == key {
			return e, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, ref)
}

// ByID returns the entity with the given id, or nil.
func (g *Graph) ByID(id string) *Entity {
	for _, e := range g.Entities {
		if e.ID == id {
			return e
		}
	}
	return nil
}

// UpdateEntity applies p to the referenced entity and bumps UpdatedAt.
func (g *Graph) UpdateEntity(ref string, p Patch) (*Entity, error) {
	e, err := g.Find(ref)
	if err != nil {
		return nil, err
	}
	updated := *e
	if p.Name != nil {
		updated.Name = strings.TrimSpace(*p.Name)
	}
	if p.Type != nil {
		updated.Type = normalize(*p.Type)
	}
	if p.Description != nil {
		updated.Description = strings.TrimSpace(*p.Description)
	}
	if err := validate.Struct(&updated); err != nil {
		return nil, fmt.Errorf("invalid entity: %w", err)
	}
	updated.UpdatedAt = time.Now().UTC()
	*e = updated
	return e, nil
}

// RemoveEntity deletes an entity and every relationship touching it.
func (g *Graph) RemoveEntity(ref string) (*Entity, error) {
	e, err := g.Find(ref)
	if err != nil {
		return nil, err
	}

	kept := make([]*Entity, 0, len(g.Entities))
	for _, other := range g.Entities {
		if other.ID != e.ID {
			kept = append(kept, other)
		}
	}
	g.Entities = kept

	filtered := make([]Relationship, 0, len(g.Relationships))
	for _, r := range g.Relationships {
		if r.Source != e.ID && r.Target != e.ID {
			filtered = append(filtered, r)
		}
	}
	g.Relationships = filtered
	return e, nil
}

// AddRelationship creates a directed relationship, plus its reverse when
// bidirectional is set. Both entities must exist.
func (g *Graph) AddRelationship(from, relType, to string, bidirectional bool) error {
	src, err := g.Find(from)
	if err != nil {
		return err
	}
	dst, err := g.Find(to)
	if err != nil {
		return err
	}
	r := Relationship{Source: src.ID, Target: dst.ID, Type: strings.TrimSpace(relType)}
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("invalid relationship: %w", err)
	}
	g.Relationships = append(g.Relationships, r)
	if bidirectional {
		g.Relationships = append(g.Relationships, Relationship{Source: dst.ID, Target: src.ID, Type: r.Type})
	}
	return nil
}

// RemoveRelationship removes the first matching relationship.
func (g *Graph) RemoveRelationship(from, relType, to string) error {
	src, err := g.Find(from)
	if err != nil {
		return err
	}
	dst, err := g.Find(to)
	if err != nil {
		return err
	}
	for i, r := range g.Relationships {
		if r.Source == src.ID && r.Target == dst.ID && r.Type == relType {
			g.Relationships = append(g.Relationships[:i], g.Relationships[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("relationship not found: %s --%s--> %s", from, relType, to)
}

// ─── Query ───

// RelationsOf returns outgoing and incoming relationships for an entity id.
func (g *Graph) RelationsOf(id string) ([]Relationship, []Relationship) {
	var outgoing, incoming []Relationship
	for _, r := range g.Relationships {
		if r.Source == id {
			outgoing = append(outgoing, r)
		}
		if r.Target == id {
			incoming = append(incoming, r)
		}
	}
	return outgoing, incoming
}

// Search finds entities matching a query string. Scored: name > type > description.
func (g *Graph) Search(query string) []SearchResult {
	q := normalize(query)
	if q == "" {
		return nil
	}
	var results []SearchResult

	for _, e := range g.Entities {
		score := 0
		nameLower := strings.ToLower(e.Name)

		if nameLower == q {
			score += 100
		} else if strings.Contains(nameLower, q) {
			score += 50
		}

		if e.Type == q {
			score += 20
		} else if strings.Contains(e.Type, q) {
			score += 15
		}

		if strings.Contains(strings.ToLower(e.Description), q) {
			score += 10
		}

		if score > 0 {
			results = append(results, SearchResult{Entity: e, Score: score})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results
}

// GetStats returns summary statistics.
func (g *Graph) GetStats() Stats {
	ids := make(map[string]bool, len(g.Entities))
	byType := make(map[string]int)
	for _, e := range g.Entities {
		ids[e.ID] = true
		byType[e.Type]++
	}
	dangling := 0
	for _, r := range g.Relationships {
		if !ids[r.Source] || !ids[r.Target] {
			dangling++
		}
	}
	return Stats{
		Entities:      len(g.Entities),
		Relationships: len(g.Relationships),
		Dangling:      dangling,
		ByType:        byType,
	}
}

// Show builds the data for displaying an entity with its connections.
// Relationships whose other end is missing are skipped.
func (g *Graph) Show(ref string) (*ShowResult, error) {
	e, err := g.Find(ref)
	if err != nil {
		return nil, err
	}

	outgoing, incoming := g.RelationsOf(e.ID)
	result := &ShowResult{Entity: e}

	for _, r := range outgoing {
		if target := g.ByID(r.Target); target != nil {
			result.Outgoing = append(result.Outgoing, Link{Type: r.Type, Entity: target})
		}
	}
	for _, r := range incoming {
		if source := g.ByID(r.Source); source != nil {
			result.Incoming = append(result.Incoming, Link{Type: r.Type, Entity: source})
		}
	}
	return result, nil
}

// Clone returns a deep copy safe to hand to another owner.
func (g *Graph) Clone() *Graph {
	c := &Graph{
		Entities:      make([]*Entity, len(g.Entities)),
		Relationships: append([]Relationship(nil), g.Relationships...),
	}
	for i, e := range g.Entities {
		cp := *e
		if e.Properties != nil {
			cp.Properties = make(map[string]string, len(e.Properties))
			for k, v := range e.Properties {
				cp.Properties[k] = v
			}
		}
		c.Entities[i] = &cp
	}
	return c
}

// ─── Export / Import ───

// ExportJSON returns the graph as pretty-printed JSON.
func (g *Graph) ExportJSON() ([]byte, error) {
	return json.MarshalIndent(g, "", "  ")
}

// ExportYAML returns the graph as YAML.
func (g *Graph) ExportYAML() ([]byte, error) {
	return yaml.Marshal(g)
}

// Merge folds incoming into g. Entities are matched by id; matched ones take
// the incoming name, type and description. Relationships are appended when
// both ends exist in the merged graph.
func (g *Graph) Merge(incoming *Graph) (added, merged, relAdded int) {
	for _, ie := range incoming.Entities {
		if ie.ID == "" {
			ie.ID = uuid.NewString()
		}
		if existing := g.ByID(ie.ID); existing != nil {
			existing.Name = ie.Name
			existing.Type = ie.Type
			existing.Description = ie.Description
			existing.UpdatedAt = time.Now().UTC()
			merged++
			continue
		}
		if ie.CreatedAt.IsZero() {
			ie.CreatedAt = time.Now().UTC()
		}
		if ie.UpdatedAt.IsZero() {
			ie.UpdatedAt = ie.CreatedAt
		}
		g.Entities = append(g.Entities, ie)
		added++
	}

	for _, r := range incoming.Relationships {
		if g.ByID(r.Source) == nil || g.ByID(r.Target) == nil {
			continue
		}
		g.Relationships = append(g.Relationships, r)
		relAdded++
	}
	return added, merged, relAdded
}
