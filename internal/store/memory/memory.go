// internal/store/memory/memory.go
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/Corphon/SceneWeaverMCP/internal/errors"
	"github.com/Corphon/SceneWeaverMCP/internal/models"
	"github.com/Corphon/SceneWeaverMCP/internal/store"
)

// 内存实现的四个存储契约，保留写入顺序，读操作可并发
// 既是测试替身，也是不带外部依赖时的演示后端

// SceneGraphStore 内存情景图
type SceneGraphStore struct {
	mu     sync.RWMutex
	scenes map[string]models.Scene
	order  []string           // 节点写入顺序
	edges  []models.SceneEdge // 父 -> 子
}

// NewSceneGraphStore 创建内存情景图
func NewSceneGraphStore() *SceneGraphStore {
	return &SceneGraphStore{scenes: make(map[string]models.Scene)}
}

func (s *SceneGraphStore) GetScene(_ context.Context, sid string) (*models.Scene, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	scene, ok := s.scenes[sid]
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("情景不存在: %s", sid), nil)
	}
	return &scene, nil
}

func (s *SceneGraphStore) GetParents(_ context.Context, sid string) ([]models.Scene, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.scenes[sid]; !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("情景不存在: %s", sid), nil)
	}

	parents := []models.Scene{}
	for _, edge := range s.edges {
		if edge.ChildSID == sid {
			if parent, ok := s.scenes[edge.ParentSID]; ok {
				parents = append(parents, parent)
			}
		}
	}
	return parents, nil
}

func (s *SceneGraphStore) CreateScene(_ context.Context, scene models.Scene, parents []models.Scene) (*models.Scene, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if scene.SID == "" {
		scene.SID = uuid.New().String()
	}
	if _, exists := s.scenes[scene.SID]; exists {
		return nil, apperrors.NewConflictError(fmt.Sprintf("情景已存在: %s", scene.SID), nil)
	}
	if scene.CreatedAt.IsZero() {
		scene.CreatedAt = time.Now()
	}

	s.scenes[scene.SID] = scene
	s.order = append(s.order, scene.SID)
	for _, parent := range parents {
		s.edges = append(s.edges, models.SceneEdge{ParentSID: parent.SID, ChildSID: scene.SID})
	}
	return &scene, nil
}

func (s *SceneGraphStore) UpdateScene(_ context.Context, sid string, scene models.Scene) (*models.Scene, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.scenes[sid]
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("情景不存在: %s", sid), nil)
	}

	current.Name = scene.Name
	current.Summary = scene.Summary
	current.IsMain = scene.IsMain
	s.scenes[sid] = current
	return &current, nil
}

func (s *SceneGraphStore) DeleteScene(_ context.Context, sid string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.scenes[sid]; !ok {
		return false, nil
	}
	delete(s.scenes, sid)

	order := s.order[:0]
	for _, id := range s.order {
		if id != sid {
			order = append(order, id)
		}
	}
	s.order = order

	edges := s.edges[:0]
	for _, edge := range s.edges {
		if edge.ParentSID != sid && edge.ChildSID != sid {
			edges = append(edges, edge)
		}
	}
	s.edges = edges
	return true, nil
}

func (s *SceneGraphStore) AllScenesWithEdges(_ context.Context) (*models.SceneGraph, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	graph := &models.SceneGraph{}
	for _, sid := range s.order {
		graph.AddNode(s.scenes[sid])
	}
	for _, edge := range s.edges {
		graph.AddEdge(edge.ParentSID, edge.ChildSID)
	}
	return graph, nil
}

// CharacterBindingStore 内存绑定表，切片顺序即写入顺序
type CharacterBindingStore struct {
	mu       sync.RWMutex
	bindings []models.CharacterBinding
}

// NewCharacterBindingStore 创建内存绑定表
func NewCharacterBindingStore() *CharacterBindingStore {
	return &CharacterBindingStore{}
}

func (s *CharacterBindingStore) BindingsForScene(_ context.Context, sid string, includeInvisible bool) ([]models.CharacterBinding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []models.CharacterBinding{}
	for _, binding := range s.bindings {
		if binding.SceneID != sid {
			continue
		}
		if !includeInvisible && !binding.IsVisible {
			continue
		}
		result = append(result, binding)
	}
	return result, nil
}

func (s *CharacterBindingStore) CreateBinding(_ context.Context, binding models.CharacterBinding) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if binding.ID == "" {
		binding.ID = uuid.New().String()
	}
	s.bindings = append(s.bindings, binding)
	return true, nil
}

func (s *CharacterBindingStore) DeleteBinding(_ context.Context, characterID, sid string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := false
	removed := map[string]bool{}
	bindings := s.bindings[:0]
	for _, binding := range s.bindings {
		if binding.CharacterID == characterID && binding.SceneID == sid {
			deleted = true
			removed[binding.ID] = true
			continue
		}
		bindings = append(bindings, binding)
	}
	s.bindings = bindings
	s.clearParentRefs(removed)
	return deleted, nil
}

func (s *CharacterBindingStore) DeleteAllBindingsForScene(_ context.Context, sid string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := map[string]bool{}
	bindings := s.bindings[:0]
	for _, binding := range s.bindings {
		if binding.SceneID == sid {
			removed[binding.ID] = true
			continue
		}
		bindings = append(bindings, binding)
	}
	s.bindings = bindings
	s.clearParentRefs(removed)
	return true, nil
}

// 父绑定删除后，引用它的修订绑定置空，对应关系库里的 ON DELETE SET NULL
func (s *CharacterBindingStore) clearParentRefs(removed map[string]bool) {
	if len(removed) == 0 {
		return
	}
	for i := range s.bindings {
		if s.bindings[i].ParentBindingID != nil && removed[*s.bindings[i].ParentBindingID] {
			s.bindings[i].ParentBindingID = nil
		}
	}
}

func (s *CharacterBindingStore) BindingExists(_ context.Context, characterID, sid string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, binding := range s.bindings {
		if binding.CharacterID == characterID && binding.SceneID == sid {
			return true, nil
		}
	}
	return false, nil
}

func (s *CharacterBindingStore) AnyBindingExists(_ context.Context, characterID string, sids []string) (bool, error) {
	if len(sids) == 0 {
		return false, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	lookup := make(map[string]bool, len(sids))
	for _, sid := range sids {
		lookup[sid] = true
	}
	for _, binding := range s.bindings {
		if binding.CharacterID == characterID && lookup[binding.SceneID] {
			return true, nil
		}
	}
	return false, nil
}

// ConversationStore 内存对话表
type ConversationStore struct {
	mu    sync.RWMutex
	turns []models.ConversationTurn
}

// NewConversationStore 创建内存对话表
func NewConversationStore() *ConversationStore {
	return &ConversationStore{}
}

func (s *ConversationStore) TurnsForScene(_ context.Context, sid string) ([]models.ConversationTurn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []models.ConversationTurn{}
	for _, turn := range s.turns {
		if turn.SceneID == sid {
			result = append(result, turn)
		}
	}
	return result, nil
}

func (s *ConversationStore) TurnsForCharacter(_ context.Context, characterID string) ([]models.ConversationTurn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []models.ConversationTurn{}
	for _, turn := range s.turns {
		if turn.SenderID == characterID {
			result = append(result, turn)
		}
	}
	return result, nil
}

func (s *ConversationStore) CreateTurn(_ context.Context, turn models.ConversationTurn) (*models.ConversationTurn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if turn.ID == "" {
		turn.ID = uuid.New().String()
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now()
	}
	s.turns = append(s.turns, turn)
	return &turn, nil
}

func (s *ConversationStore) UpdateTurn(_ context.Context, id string, turn models.ConversationTurn) (*models.ConversationTurn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.turns {
		if s.turns[i].ID == id {
			s.turns[i].Message = turn.Message
			updated := s.turns[i]
			return &updated, nil
		}
	}
	return nil, apperrors.NewNotFoundError(fmt.Sprintf("对话记录不存在: %s", id), nil)
}

// CharacterStore 内存角色表
type CharacterStore struct {
	mu         sync.RWMutex
	characters map[string]models.Character
	order      []string
}

// NewCharacterStore 创建内存角色表
func NewCharacterStore() *CharacterStore {
	return &CharacterStore{characters: make(map[string]models.Character)}
}

func (s *CharacterStore) GetCharacter(_ context.Context, characterID string) (*models.Character, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	character, ok := s.characters[characterID]
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("角色不存在: %s", characterID), nil)
	}
	return &character, nil
}

func (s *CharacterStore) ListCharacters(_ context.Context) ([]models.Character, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]models.Character, 0, len(s.order))
	for _, id := range s.order {
		result = append(result, s.characters[id])
	}
	return result, nil
}

func (s *CharacterStore) CreateCharacter(_ context.Context, character models.Character) (*models.Character, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if character.ID == "" {
		character.ID = uuid.New().String()
	}
	if _, exists := s.characters[character.ID]; exists {
		return nil, apperrors.NewConflictError(fmt.Sprintf("角色已存在: %s", character.ID), nil)
	}
	if character.CreatedAt.IsZero() {
		character.CreatedAt = time.Now()
	}
	s.characters[character.ID] = character
	s.order = append(s.order, character.ID)
	return &character, nil
}

func (s *CharacterStore) UpdateCharacter(_ context.Context, characterID string, character models.Character) (*models.Character, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.characters[characterID]
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("角色不存在: %s", characterID), nil)
	}
	current.Name = character.Name
	current.Prompt = character.Prompt
	current.IsVisible = character.IsVisible
	s.characters[characterID] = current
	return &current, nil
}

func (s *CharacterStore) DeleteCharacter(_ context.Context, characterID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.characters[characterID]; !ok {
		return false, nil
	}
	delete(s.characters, characterID)

	order := s.order[:0]
	for _, id := range s.order {
		if id != characterID {
			order = append(order, id)
		}
	}
	s.order = order
	return true, nil
}

// 编译期校验四个契约都被实现
var (
	_ store.SceneGraphStore       = (*SceneGraphStore)(nil)
	_ store.CharacterBindingStore = (*CharacterBindingStore)(nil)
	_ store.ConversationStore     = (*ConversationStore)(nil)
	_ store.CharacterStore        = (*CharacterStore)(nil)
)
