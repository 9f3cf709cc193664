// internal/store/memory/memory_test.go
package memory

import (
	"context"
	"testing"

	apperrors "github.com/Corphon/SceneWeaverMCP/internal/errors"
	"github.com/Corphon/SceneWeaverMCP/internal/models"
)

func TestSceneGraphStoreCreateConflict(t *testing.T) {
	s := NewSceneGraphStore()
	ctx := context.Background()

	if _, err := s.CreateScene(ctx, models.Scene{SID: "S1"}, nil); err != nil {
		t.Fatalf("CreateScene: %v", err)
	}
	_, err := s.CreateScene(ctx, models.Scene{SID: "S1"}, nil)
	if !apperrors.IsConflictError(err) {
		t.Errorf("Expected conflict error, got %v", err)
	}
}

func TestSceneGraphStoreParentsOrder(t *testing.T) {
	s := NewSceneGraphStore()
	ctx := context.Background()

	a, _ := s.CreateScene(ctx, models.Scene{SID: "A"}, nil)
	b, _ := s.CreateScene(ctx, models.Scene{SID: "B"}, nil)
	if _, err := s.CreateScene(ctx, models.Scene{SID: "C"}, []models.Scene{*a, *b}); err != nil {
		t.Fatalf("CreateScene: %v", err)
	}

	parents, err := s.GetParents(ctx, "C")
	if err != nil {
		t.Fatalf("GetParents: %v", err)
	}
	if len(parents) != 2 {
		t.Fatalf("Expected 2 parents, got %d", len(parents))
	}
	// 父边保持写入顺序
	if parents[0].SID != "A" || parents[1].SID != "B" {
		t.Errorf("Parent order = [%s %s], want [A B]", parents[0].SID, parents[1].SID)
	}
}

func TestSceneGraphStoreDeleteRemovesEdges(t *testing.T) {
	s := NewSceneGraphStore()
	ctx := context.Background()

	a, _ := s.CreateScene(ctx, models.Scene{SID: "A"}, nil)
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

	graph, _ := s.AllScenesWithEdges(ctx)
	if len(graph.Nodes) != 1 || len(graph.Edges) != 0 {
		t.Errorf("Graph = %d nodes %d edges, want 1 node 0 edges", len(graph.Nodes), len(graph.Edges))
	}
}

func TestBindingStoreParentRefCleared(t *testing.T) {
	s := NewCharacterBindingStore()
	ctx := context.Background()

	s.CreateBinding(ctx, models.CharacterBinding{ID: "b1", CharacterID: "a", SceneID: "S1", IsVisible: true})
	parentID := "b1"
	s.CreateBinding(ctx, models.CharacterBinding{
		ID: "b2", CharacterID: "a", SceneID: "S2", IsVisible: true, ParentBindingID: &parentID,
	})

	if _, err := s.DeleteBinding(ctx, "a", "S1"); err != nil {
		t.Fatalf("DeleteBinding: %v", err)
	}

	// 父绑定删除后，修订绑定的引用被置空
	bindings, _ := s.BindingsForScene(ctx, "S2", true)
	if len(bindings) != 1 {
		t.Fatalf("Expected 1 binding, got %d", len(bindings))
	}
	if bindings[0].ParentBindingID != nil {
		t.Error("ParentBindingID should be nil after parent deleted")
	}
}

func TestBindingStoreAnyBindingExists(t *testing.T) {
	s := NewCharacterBindingStore()
	ctx := context.Background()

	s.CreateBinding(ctx, models.CharacterBinding{CharacterID: "a", SceneID: "S2", IsVisible: true})

	exists, err := s.AnyBindingExists(ctx, "a", nil)
	if err != nil || exists {
		t.Errorf("AnyBindingExists(empty) = %v, %v, want false", exists, err)
	}

	exists, err = s.AnyBindingExists(ctx, "a", []string{"S1", "S2"})
	if err != nil || !exists {
		t.Errorf("AnyBindingExists = %v, %v, want true", exists, err)
	}
}

func TestConversationStoreUpdateMessageOnly(t *testing.T) {
	s := NewConversationStore()
	ctx := context.Background()

	created, err := s.CreateTurn(ctx, models.ConversationTurn{
		SceneID: "S1", SenderID: "a", Role: models.RoleUser, Message: "draft",
	})
	if err != nil {
		t.Fatalf("CreateTurn: %v", err)
	}

	updated, err := s.UpdateTurn(ctx, created.ID, models.ConversationTurn{Message: "final"})
	if err != nil {
		t.Fatalf("UpdateTurn: %v", err)
	}
	if updated.Message != "final" {
		t.Errorf("Message = %q, want %q", updated.Message, "final")
	}
	// 其余字段不可变
	if updated.SenderID != "a" || updated.SceneID != "S1" {
		t.Errorf("UpdateTurn should only touch the message")
	}
}

func TestCharacterStoreListPreservesOrder(t *testing.T) {
	s := NewCharacterStore()
	ctx := context.Background()

	for _, id := range []string{"c", "a", "b"} {
		if _, err := s.CreateCharacter(ctx, models.Character{ID: id, Name: id}); err != nil {
			t.Fatalf("CreateCharacter: %v", err)
		}
	}

	characters, err := s.ListCharacters(ctx)
	if err != nil {
		t.Fatalf("ListCharacters: %v", err)
	}
	if len(characters) != 3 {
		t.Fatalf("Expected 3 characters, got %d", len(characters))
	}
	for i, want := range []string{"c", "a", "b"} {
		if characters[i].ID != want {
			t.Errorf("characters[%d].ID = %q, want %q", i, characters[i].ID, want)
		}
	}
}
