// internal/services/helpers_test.go
package services

import (
	"context"
	"testing"

	"github.com/Corphon/SceneWeaverMCP/internal/models"
	"github.com/Corphon/SceneWeaverMCP/internal/store/memory"
)

// testEnv 用内存存储装配一整套服务，供各个服务的测试复用
type testEnv struct {
	scenes        *memory.SceneGraphStore
	bindings      *memory.CharacterBindingStore
	conversations *memory.ConversationStore
	characters    *memory.CharacterStore

	visibility   *VisibilityService
	lineage      *LineageService
	history      *HistoryService
	context      *ContextService
	scene        *SceneService
	conversation *ConversationService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		scenes:        memory.NewSceneGraphStore(),
		bindings:      memory.NewCharacterBindingStore(),
		conversations: memory.NewConversationStore(),
		characters:    memory.NewCharacterStore(),
	}
	env.visibility = NewVisibilityService(env.bindings)
	env.lineage = NewLineageService(env.scenes)
	env.history = NewHistoryService(env.visibility, env.characters, env.conversations)
	env.context = NewContextService(env.lineage, env.visibility, env.history, env.characters)
	env.scene = NewSceneService(env.scenes, env.bindings, env.characters, env.visibility)
	env.conversation = NewConversationService(env.conversations, env.characters, env.visibility)
	return env
}

// addScene 写入一个情景节点，parentSIDs 指向已存在（或稍后创建）的父情景
func (e *testEnv) addScene(t *testing.T, sid string, isRoot bool, parentSIDs ...string) {
	t.Helper()

	parents := make([]models.Scene, 0, len(parentSIDs))
	for _, parentSID := range parentSIDs {
		parents = append(parents, models.Scene{SID: parentSID})
	}
	if _, err := e.scenes.CreateScene(context.Background(), models.Scene{
		SID:    sid,
		Name:   "scene " + sid,
		IsRoot: isRoot,
	}, parents); err != nil {
		t.Fatalf("创建情景 %s 失败: %v", sid, err)
	}
}

func (e *testEnv) addCharacter(t *testing.T, id, name, prompt string, visible bool) {
	t.Helper()

	if _, err := e.characters.CreateCharacter(context.Background(), models.Character{
		ID:        id,
		Name:      name,
		Prompt:    prompt,
		IsVisible: visible,
	}); err != nil {
		t.Fatalf("创建角色 %s 失败: %v", id, err)
	}
}

func (e *testEnv) bind(t *testing.T, characterID, sceneID string, sortOrder int, visible bool) {
	t.Helper()

	if _, err := e.bindings.CreateBinding(context.Background(), models.CharacterBinding{
		CharacterID: characterID,
		SceneID:     sceneID,
		SortOrder:   sortOrder,
		IsVisible:   visible,
	}); err != nil {
		t.Fatalf("绑定角色 %s 到情景 %s 失败: %v", characterID, sceneID, err)
	}
}

func (e *testEnv) say(t *testing.T, sceneID, senderID, role, message string) {
	t.Helper()

	if _, err := e.conversations.CreateTurn(context.Background(), models.ConversationTurn{
		SceneID:  sceneID,
		SenderID: senderID,
		Role:     role,
		Message:  message,
	}); err != nil {
		t.Fatalf("写入对话失败: %v", err)
	}
}

// sids 把一条谱系链压成 SID 序列，方便断言
func sids(path []models.Scene) []string {
	ids := make([]string, len(path))
	for i, scene := range path {
		ids[i] = scene.SID
	}
	return ids
}
