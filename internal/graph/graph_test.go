package graph

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func mustAdd(t *testing.T, g *Graph, name, entityType string) *Entity {
	t.Helper()
	e, err := g.AddEntity(name, entityType, "", nil)
	if err != nil {
		t.Fatalf("AddEntity(%q) failed: %v", name, err)
	}
	return e
}

func TestAddEntity(t *testing.T) {
	g := New()

	e, err := g.AddEntity("Alice", "person", "A friend", map[string]string{"city": "Oslo"})
	if err != nil {
		t.Fatalf("AddEntity failed: %v", err)
	}
	if e.ID == "" {
		t.Fatal("expected a generated id")
	}
	if len(g.Entities) != 1 {
		t.Fatalf("expected 1 entity, got %d", len(g.Entities))
	}
	if e.CreatedAt.IsZero() || !e.CreatedAt.Equal(e.UpdatedAt) {
		t.Errorf("expected matching created/updated timestamps, got %v / %v", e.CreatedAt, e.UpdatedAt)
	}

	found, err := g.Find("Alice")
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if found.Type != "person" || found.Description != "A friend" {
		t.Errorf("unexpected entity %+v", found)
	}
}

func TestAddEntityDuplicateCaseInsensitive(t *testing.T) {
	g := New()
	mustAdd(t, g, "Alice", "person")

	_, err := g.AddEntity("alice", "person", "", nil)
	if !errors.Is(err, ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
}

func TestAddEntityValidation(t *testing.T) {
	g := New()
	if _, err := g.AddEntity("", "person", "", nil); err == nil {
		t.Fatal("expected error for empty name")
	}
	if _, err := g.AddEntity("Thing", "gadget", "", nil); err == nil {
		t.Fatal("expected error for unknown type")
	}
	if _, err := g.AddEntity("Thing", "Technology", "", nil); err != nil {
		t.Fatalf("type should be case-insensitive: %v", err)
	}
}

func TestFindByID(t *testing.T) {
	g := New()
	e := mustAdd(t, g, "Alice", "person")

	found, err := g.Find(e.ID)
	if err != nil {
		t.Fatalf("Find by id failed: %v", err)
	}
	if found != e {
		t.Error("expected the same entity pointer")
	}

	if _, err := g.Find("nobody"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateEntity(t *testing.T) {
	g := New()
	e := mustAdd(t, g, "Alice", "person")
	before := e.UpdatedAt

	name, desc := "Alicia", "renamed"
	if _, err := g.UpdateEntity("Alice", Patch{Name: &name, Description: &desc}); err != nil {
		t.Fatalf("UpdateEntity failed: %v", err)
	}
	if e.Name != "Alicia" || e.Description != "renamed" || e.Type != "person" {
		t.Errorf("unexpected entity after update: %+v", e)
	}
	if e.UpdatedAt.Before(before) {
		t.Error("UpdatedAt should not move backwards")
	}

	bad := "gadget"
	if _, err := g.UpdateEntity(e.ID, Patch{Type: &bad}); err == nil {
		t.Fatal("expected validation error")
	}
	if e.Type != "person" {
		t.Errorf("failed update must leave entity untouched, got type %q", e.Type)
	}
}

func TestRemoveEntityCascades(t *testing.T) {
	g := New()
	mustAdd(t, g, "Alice", "person")
	mustAdd(t, g, "Bob", "person")
	mustAdd(t, g, "Carol", "person")
	g.AddRelationship("Alice", "knows", "Bob", false)
	g.AddRelationship("Bob", "knows", "Carol", false)

	if _, err := g.RemoveEntity("Alice"); err != nil {
		t.Fatalf("RemoveEntity failed: %v", err)
	}
	if len(g.Entities) != 2 {
		t.Errorf("expected 2 entities after removal, got %d", len(g.Entities))
	}
	if len(g.Relationships) != 1 {
		t.Errorf("expected 1 relationship after cascade removal, got %d", len(g.Relationships))
	}
}

func TestRemoveEntityNotFound(t *testing.T) {
	g := New()
	if _, err := g.RemoveEntity("nonexistent"); err == nil {
		t.Fatal("expected error for removing nonexistent entity")
	}
}

func TestAddRelationshipKeepsDuplicates(t *testing.T) {
	g := New()
	mustAdd(t, g, "A", "concept")
	mustAdd(t, g, "B", "concept")

	for i := 0; i < 2; i++ {
		if err := g.AddRelationship("A", "uses", "B", false); err != nil {
			t.Fatalf("AddRelationship failed: %v", err)
		}
	}
	if len(g.Relationships) != 2 {
		t.Fatalf("expected 2 relationships, got %d", len(g.Relationships))
	}
}

func TestAddRelationshipBidirectional(t *testing.T) {
	g := New()
	a := mustAdd(t, g, "A", "concept")
	b := mustAdd(t, g, "B", "concept")

	if err := g.AddRelationship("A", "works with", "B", true); err != nil {
		t.Fatalf("AddRelationship failed: %v", err)
	}
	if len(g.Relationships) != 2 {
		t.Fatalf("expected 2 relationships, got %d", len(g.Relationships))
	}
	rev := g.Relationships[1]
	if rev.Source != b.ID || rev.Target != a.ID || rev.Type != "works with" {
		t.Errorf("unexpected reverse relationship %+v", rev)
	}
}

func TestAddRelationshipMissingEntity(t *testing.T) {
	g := New()
	mustAdd(t, g, "Alice", "person")

	if err := g.AddRelationship("Alice", "knows", "Bob", false); err == nil {
		t.Fatal("expected error for missing target entity")
	}
	if err := g.AddRelationship("Charlie", "knows", "Alice", false); err == nil {
		t.Fatal("expected error for missing source entity")
	}
	if err := g.AddRelationship("Alice", "  ", "Alice", false); err == nil {
		t.Fatal("expected error for empty relationship type")
	}
}

func TestRemoveRelationship(t *testing.T) {
	g := New()
	mustAdd(t, g, "Alice", "person")
	mustAdd(t, g, "Bob", "person")
	g.AddRelationship("Alice", "knows", "Bob", false)

	if err := g.RemoveRelationship("Alice", "knows", "Bob"); err != nil {
		t.Fatalf("RemoveRelationship failed: %v", err)
	}
	if len(g.Relationships) != 0 {
		t.Errorf("expected 0 relationships, got %d", len(g.Relationships))
	}
	if err := g.RemoveRelationship("Alice", "knows", "Bob"); err == nil {
		t.Fatal("expected error for removing nonexistent relationship")
	}
}

func TestShowSkipsDangling(t *testing.T) {
	g := New()
	a := mustAdd(t, g, "A", "concept")
	mustAdd(t, g, "B", "concept")
	mustAdd(t, g, "C", "concept")
	g.AddRelationship("A", "to", "B", false)
	g.AddRelationship("C", "to", "A", false)
	g.Relationships = append(g.Relationships, Relationship{Source: a.ID, Target: "ghost", Type: "haunts"})

	res, err := g.Show("A")
	if err != nil {
		t.Fatalf("Show failed: %v", err)
	}
	if len(res.Outgoing) != 1 || res.Outgoing[0].Entity.Name != "B" {
		t.Errorf("unexpected outgoing %+v", res.Outgoing)
	}
	if len(res.Incoming) != 1 || res.Incoming[0].Entity.Name != "C" {
		t.Errorf("unexpected incoming %+v", res.Incoming)
	}
}

func TestSearch(t *testing.T) {
	g := New()
	g.AddEntity("React", "technology", "UI library", nil)
	g.AddEntity("Acme Corp", "organization", "builds things with react", nil)
	g.AddEntity("Oslo", "place", "", nil)

	results := g.Search("react")
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Entity.Name != "React" {
		t.Errorf("expected 'React' as top result, got %q", results[0].Entity.Name)
	}
	if results[0].Score <= results[1].Score {
		t.Errorf("name match (%d) should outrank description match (%d)", results[0].Score, results[1].Score)
	}

	if got := g.Search("  "); got != nil {
		t.Errorf("expected no results for blank query, got %d", len(got))
	}
}

func TestGetStats(t *testing.T) {
	g := New()
	a := mustAdd(t, g, "A", "person")
	mustAdd(t, g, "B", "place")
	g.AddRelationship("A", "rel", "B", false)
	g.Relationships = append(g.Relationships, Relationship{Source: a.ID, Target: "z", Type: "rel"})

	stats := g.GetStats()
	if stats.Entities != 2 || stats.Relationships != 2 || stats.Dangling != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}
	if stats.ByType["person"] != 1 || stats.ByType["place"] != 1 {
		t.Errorf("unexpected type counts %v", stats.ByType)
	}
}

func TestSaveLoadRoundtrip(t *testing.T) {
	dir := t.TempDir()

	for _, name := range []string{"graph.json", "graph.yaml"} {
		t.Run(name, func(t *testing.T) {
			g := New()
			mustAdd(t, g, "TestEntity", "concept")
			mustAdd(t, g, "Other", "concept")
			g.AddRelationship("TestEntity", "links", "Other", false)

			path := filepath.Join(dir, name)
			if err := Save(g, path); err != nil {
				t.Fatalf("Save failed: %v", err)
			}

			loaded, err := Load(path)
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if len(loaded.Entities) != 2 || len(loaded.Relationships) != 1 {
				t.Fatalf("unexpected loaded graph: %d entities, %d relationships", len(loaded.Entities), len(loaded.Relationships))
			}
			if loaded.Entities[0].Name != "TestEntity" {
				t.Errorf("entity order not preserved: %q first", loaded.Entities[0].Name)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	g, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("Load missing failed: %v", err)
	}
	if len(g.Entities) != 0 {
		t.Errorf("expected 0 entities, got %d", len(g.Entities))
	}
}

func TestLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.json")
	os.WriteFile(path, []byte("{not json"), 0o644)

	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestExportJSON(t *testing.T) {
	g := New()
	mustAdd(t, g, "Test", "concept")

	data, err := g.ExportJSON()
	if err != nil {
		t.Fatalf("ExportJSON failed: %v", err)
	}
	var parsed Graph
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("ExportJSON produced invalid JSON: %v", err)
	}
	if len(parsed.Entities) != 1 {
		t.Errorf("expected 1 entity, got %d", len(parsed.Entities))
	}
}

func TestExportDOT(t *testing.T) {
	g := New()
	a := mustAdd(t, g, "Alice", "person")
	mustAdd(t, g, "Bob", "person")
	g.AddRelationship("Alice", "knows", "Bob", false)
	g.AddRelationship("Alice", "knows", "Bob", false)
	g.Relationships = append(g.Relationships, Relationship{Source: a.ID, Target: "ghost", Type: "haunts"})

	data, err := g.ExportDOT()
	if err != nil {
		t.Fatalf("ExportDOT failed: %v", err)
	}
	out := string(data)
	if !strings.HasPrefix(out, "digraph") {
		t.Errorf("expected digraph header, got %q", out)
	}
	if strings.Count(out, "knows") != 2 {
		t.Errorf("expected both parallel edges in output:\n%s", out)
	}
	if strings.Contains(out, "haunts") {
		t.Errorf("dangling relationship should be left out:\n%s", out)
	}
}

func TestMerge(t *testing.T) {
	g := New()
	a := mustAdd(t, g, "A", "concept")

	incoming := New()
	incoming.Entities = append(incoming.Entities,
		&Entity{ID: a.ID, Name: "A2", Type: "concept"},
		&Entity{ID: "new", Name: "B", Type: "place"},
	)
	incoming.Relationships = append(incoming.Relationships,
		Relationship{Source: a.ID, Target: "new", Type: "near"},
		Relationship{Source: "new", Target: "ghost", Type: "near"},
	)

	added, merged, rels := g.Merge(incoming)
	if added != 1 || merged != 1 || rels != 1 {
		t.Errorf("expected 1/1/1, got %d/%d/%d", added, merged, rels)
	}
	if a.Name != "A2" {
		t.Errorf("merge should update name, got %q", a.Name)
	}
}

func TestDemo(t *testing.T) {
	g, err := Demo()
	if err != nil {
		t.Fatalf("Demo failed: %v", err)
	}
	if len(g.Entities) != 12 {
		t.Errorf("expected 12 demo entities, got %d", len(g.Entities))
	}
	if len(g.Relationships) != len(demoRelations) {
		t.Errorf("expected %d demo relationships, got %d", len(demoRelations), len(g.Relationships))
	}
	if g.GetStats().Dangling != 0 {
		t.Error("demo graph should have no dangling relationships")
	}
}

func TestClone(t *testing.T) {
	g := New()
	e, _ := g.AddEntity("A", "concept", "", map[string]string{"k": "v"})

	c := g.Clone()
	c.Entities[0].Name = "changed"
	c.Entities[0].Properties["k"] = "changed"

	if e.Name != "A" || e.Properties["k"] != "v" {
		t.Error("clone must not share entity state")
	}
}
