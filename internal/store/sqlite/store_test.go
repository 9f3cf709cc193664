// internal/store/sqlite/store_test.go
package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	apperrors "github.com/Corphon/SceneWeaverMCP/internal/errors"
	"github.com/Corphon/SceneWeaverMCP/internal/models"
)

// setupStore 在临时目录里建一个新库
func setupStore(t *testing.T) *Store {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSceneRoundTrip(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	created, err := s.CreateScene(ctx, models.Scene{
		SID: "S1", Name: "opening", Summary: "the first scene", IsMain: true, IsRoot: true,
	}, nil)
	if err != nil {
		t.Fatalf("CreateScene: %v", err)
	}
	if created.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set on create")
	}

	got, err := s.GetScene(ctx, "S1")
	if err != nil {
		t.Fatalf("GetScene: %v", err)
	}
	if got.Name != "opening" || got.Summary != "the first scene" {
		t.Errorf("GetScene = %+v", got)
	}
	if !got.IsMain || !got.IsRoot {
		t.Error("Flags should survive the round trip")
	}
}

func TestGetSceneNotFound(t *testing.T) {
	s := setupStore(t)

	_, err := s.GetScene(context.Background(), "missing")
	if !apperrors.IsNotFoundError(err) {
		t.Errorf("Expected not found error, got %v", err)
	}
}

func TestSceneEdgesAndParents(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	a, _ := s.CreateScene(ctx, models.Scene{SID: "A", IsRoot: true}, nil)
	b, _ := s.CreateScene(ctx, models.Scene{SID: "B"}, nil)
	if _, err := s.CreateScene(ctx, models.Scene{SID: "C"}, []models.Scene{*a, *b}); err != nil {
		t.Fatalf("CreateScene with parents: %v", err)
	}

	parents, err := s.GetParents(ctx, "C")
	if err != nil {
		t.Fatalf("GetParents: %v", err)
	}
	if len(parents) != 2 || parents[0].SID != "A" || parents[1].SID != "B" {
		t.Errorf("Unexpected parents: %+v", parents)
	}

	graph, err := s.AllScenesWithEdges(ctx)
	if err != nil {
		t.Fatalf("AllScenesWithEdges: %v", err)
	}
	if len(graph.Nodes) != 3 || len(graph.Edges) != 2 {
		t.Errorf("Graph = %d nodes %d edges, want 3 nodes 2 edges", len(graph.Nodes), len(graph.Edges))
	}
}

func TestUpdateSceneKeepsImmutableFields(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	s.CreateScene(ctx, models.Scene{SID: "S1", Name: "old", IsRoot: true}, nil)

	updated, err := s.UpdateScene(ctx, "S1", models.Scene{Name: "new", Summary: "rewritten", IsMain: true})
	if err != nil {
		t.Fatalf("UpdateScene: %v", err)
	}
	if updated.Name != "new" || updated.Summary != "rewritten" || !updated.IsMain {
		t.Errorf("UpdateScene = %+v", updated)
	}
	// is_root 不随更新改变
	if !updated.IsRoot {
		t.Error("IsRoot should be immutable")
	}

	_, err = s.UpdateScene(ctx, "missing", models.Scene{Name: "x"})
	if !apperrors.IsNotFoundError(err) {
		t.Errorf("Expected not found error, got %v", err)
	}
}

func TestDeleteSceneRemovesEdges(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	a, _ := s.CreateScene(ctx, models.Scene{SID: "A", IsRoot: true}, nil)
	s.CreateScene(ctx, models.Scene{SID: "B"}, []models.Scene{*a})

	deleted, err := s.DeleteScene(ctx, "A")
	if err != nil || !deleted {
		t.Fatalf("DeleteScene = %v, %v", deleted, err)
	}

	parents, err := s.GetParents(ctx, "B")
	if err != nil {
		t.Fatalf("GetParents: %v", err)
	}
	if len(parents) != 0 {
		t.Errorf("Expected no parents after delete, got %d", len(parents))
	}

	deleted, err = s.DeleteScene(ctx, "A")
	if err != nil || deleted {
		t.Errorf("Second delete = %v, %v, want false", deleted, err)
	}
}

func TestBindingVisibilityFilter(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	s.CreateScene(ctx, models.Scene{SID: "S1", IsRoot: true}, nil)
	s.CreateCharacter(ctx, models.Character{ID: "a", Name: "Alice"})
	s.CreateCharacter(ctx, models.Character{ID: "b", Name: "Bob"})
	s.CreateBinding(ctx, models.CharacterBinding{CharacterID: "a", SceneID: "S1", SortOrder: 0, IsVisible: true})
	s.CreateBinding(ctx, models.CharacterBinding{CharacterID: "b", SceneID: "S1", SortOrder: 1, IsVisible: false})

	visible, err := s.BindingsForScene(ctx, "S1", false)
	if err != nil {
		t.Fatalf("BindingsForScene: %v", err)
	}
	if len(visible) != 1 || visible[0].CharacterID != "a" {
		t.Errorf("Visible bindings = %+v", visible)
	}

	all, err := s.BindingsForScene(ctx, "S1", true)
	if err != nil {
		t.Fatalf("BindingsForScene: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("Expected 2 bindings, got %d", len(all))
	}
}

func TestBindingExistence(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	s.CreateScene(ctx, models.Scene{SID: "S1", IsRoot: true}, nil)
	s.CreateCharacter(ctx, models.Character{ID: "a", Name: "Alice"})
	s.CreateBinding(ctx, models.CharacterBinding{CharacterID: "a", SceneID: "S1", IsVisible: false})

	// 存在性判断不看可见性
	exists, err := s.BindingExists(ctx, "a", "S1")
	if err != nil || !exists {
		t.Errorf("BindingExists = %v, %v, want true", exists, err)
	}

	exists, err = s.AnyBindingExists(ctx, "a", []string{"S2", "S1"})
	if err != nil || !exists {
		t.Errorf("AnyBindingExists = %v, %v, want true", exists, err)
	}

	exists, err = s.AnyBindingExists(ctx, "a", nil)
	if err != nil || exists {
		t.Errorf("AnyBindingExists(empty) = %v, %v, want false", exists, err)
	}
}

func TestDeleteBindings(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	s.CreateScene(ctx, models.Scene{SID: "S1", IsRoot: true}, nil)
	s.CreateCharacter(ctx, models.Character{ID: "a", Name: "Alice"})
	s.CreateCharacter(ctx, models.Character{ID: "b", Name: "Bob"})
	s.CreateBinding(ctx, models.CharacterBinding{CharacterID: "a", SceneID: "S1", IsVisible: true})
	s.CreateBinding(ctx, models.CharacterBinding{CharacterID: "b", SceneID: "S1", IsVisible: true})

	deleted, err := s.DeleteBinding(ctx, "a", "S1")
	if err != nil || !deleted {
		t.Fatalf("DeleteBinding = %v, %v", deleted, err)
	}

	if _, err := s.DeleteAllBindingsForScene(ctx, "S1"); err != nil {
		t.Fatalf("DeleteAllBindingsForScene: %v", err)
	}
	remaining, _ := s.BindingsForScene(ctx, "S1", true)
	if len(remaining) != 0 {
		t.Errorf("Expected no bindings, got %d", len(remaining))
	}
}

func TestConversationRoundTrip(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	s.CreateScene(ctx, models.Scene{SID: "S1", IsRoot: true}, nil)
	s.CreateCharacter(ctx, models.Character{ID: "a", Name: "Alice"})

	first, err := s.CreateTurn(ctx, models.ConversationTurn{
		SceneID: "S1", SenderID: "a", Role: models.RoleUser, Message: "hello",
	})
	if err != nil {
		t.Fatalf("CreateTurn: %v", err)
	}
	if first.ID == "" {
		t.Error("Turn ID should be generated")
	}
	s.CreateTurn(ctx, models.ConversationTurn{
		SceneID: "S1", SenderID: "a", Role: models.RoleAssistant, Message: "hi",
	})

	turns, err := s.TurnsForScene(ctx, "S1")
	if err != nil {
		t.Fatalf("TurnsForScene: %v", err)
	}
	if len(turns) != 2 || turns[0].Message != "hello" || turns[1].Message != "hi" {
		t.Errorf("TurnsForScene = %+v", turns)
	}

	bySender, err := s.TurnsForCharacter(ctx, "a")
	if err != nil {
		t.Fatalf("TurnsForCharacter: %v", err)
	}
	if len(bySender) != 2 {
		t.Errorf("Expected 2 turns for sender, got %d", len(bySender))
	}

	updated, err := s.UpdateTurn(ctx, first.ID, models.ConversationTurn{Message: "edited"})
	if err != nil {
		t.Fatalf("UpdateTurn: %v", err)
	}
	if updated.Message != "edited" || updated.SenderID != "a" {
		t.Errorf("UpdateTurn = %+v", updated)
	}
}

func TestCharacterRoundTrip(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	created, err := s.CreateCharacter(ctx, models.Character{
		Name: "Alice", Prompt: "Alice is a knight.", IsVisible: true,
	})
	if err != nil {
		t.Fatalf("CreateCharacter: %v", err)
	}
	if created.ID == "" {
		t.Error("Character ID should be generated")
	}

	got, err := s.GetCharacter(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetCharacter: %v", err)
	}
	if got.Name != "Alice" || got.Prompt != "Alice is a knight." || !got.IsVisible {
		t.Errorf("GetCharacter = %+v", got)
	}

	if _, err := s.UpdateCharacter(ctx, created.ID, models.Character{
		Name: "Alicia", Prompt: "renamed", IsVisible: false,
	}); err != nil {
		t.Fatalf("UpdateCharacter: %v", err)
	}
	got, _ = s.GetCharacter(ctx, created.ID)
	if got.Name != "Alicia" || got.IsVisible {
		t.Errorf("Update not applied: %+v", got)
	}

	deleted, err := s.DeleteCharacter(ctx, created.ID)
	if err != nil || !deleted {
		t.Fatalf("DeleteCharacter = %v, %v", deleted, err)
	}
	if _, err := s.GetCharacter(ctx, created.ID); !apperrors.IsNotFoundError(err) {
		t.Errorf("Expected not found after delete, got %v", err)
	}
}
