// internal/services/history_service.go
package services

import (
	"context"
	"strings"

	"github.com/Corphon/SceneWeaverMCP/internal/models"
	"github.com/Corphon/SceneWeaverMCP/internal/store"
)

// personaDelimiter 人设文本之间的固定分隔行
const personaDelimiter = "\n --- \n"

// HistoryService 负责单个情景与整条谱系的历史组装：
// 人设前言 + 经过可见性过滤的对话记录
type HistoryService struct {
	visibility    *VisibilityService
	characters    store.CharacterStore
	conversations store.ConversationStore
}

// NewHistoryService 创建历史组装服务
func NewHistoryService(visibility *VisibilityService, characters store.CharacterStore,
	conversations store.ConversationStore) *HistoryService {
	return &HistoryService{
		visibility:    visibility,
		characters:    characters,
		conversations: conversations,
	}
}

// PersonaPreamble 拼接情景的人设前言：
// 按绑定排序遍历情景下可见的绑定，只收录角色级同样可见的角色的 prompt，
// 每段后跟固定分隔行；没有可见角色时返回空串
func (s *HistoryService) PersonaPreamble(ctx context.Context, sceneID string) (string, error) {
	bindings, err := s.visibility.BindingsForScene(ctx, sceneID, false)
	if err != nil {
		return "", err
	}

	var preamble strings.Builder
	for _, binding := range bindings {
		character, err := s.characters.GetCharacter(ctx, binding.CharacterID)
		if err != nil {
			return "", err
		}
		// 绑定可见和角色可见是两个独立的开关，都打开才注入人设
		if !character.IsVisible {
			continue
		}
		preamble.WriteString(character.Prompt)
		preamble.WriteString(personaDelimiter)
	}
	return preamble.String(), nil
}

// ConversationTurns 获取情景内经过过滤的对话记录
// actingCharacterID 非空时先做范围检查：该角色在情景中没有任何绑定时，
// 整个情景对它不可见，直接返回空列表（隐私边界，不是报错）；
// 随后只保留发送者角色级可见的对话
func (s *HistoryService) ConversationTurns(ctx context.Context, sceneID, actingCharacterID string) ([]models.ConversationTurn, error) {
	if actingCharacterID != "" {
		inScene, err := s.visibility.IsCharacterInScene(ctx, actingCharacterID, sceneID)
		if err != nil {
			return nil, err
		}
		if !inScene {
			return []models.ConversationTurn{}, nil
		}
	}

	turns, err := s.conversations.TurnsForScene(ctx, sceneID)
	if err != nil {
		return nil, err
	}

	visible := []models.ConversationTurn{}
	for _, turn := range turns {
		sender, err := s.characters.GetCharacter(ctx, turn.SenderID)
		if err != nil {
			return nil, err
		}
		if sender.IsVisible {
			visible = append(visible, turn)
		}
	}
	return visible, nil
}

// FullLineageHistory 获取包括当前情景在内的整条谱系的历史
// lineageScenes 是从最新到最旧排列的谱系链
//
// 人设前言只取当前情景自己的：每个情景的角色完全由该情景显式定义，
// 不继承祖先情景的人设文本；对话则遍历整条链，
// 跳过扮演角色不在其中的情景，把更早情景的对话插到累加器前面，
// 最终得到按时间顺序排列的完整可见记录
func (s *HistoryService) FullLineageHistory(ctx context.Context, sceneID string,
	lineageScenes []models.Scene, actingCharacterID string) (string, []models.ConversationTurn, error) {

	var current *models.Scene
	for i := range lineageScenes {
		if lineageScenes[i].SID == sceneID {
			current = &lineageScenes[i]
			break
		}
	}
	if current == nil {
		return "", []models.ConversationTurn{}, nil
	}

	inScene, err := s.visibility.IsCharacterInScene(ctx, actingCharacterID, current.SID)
	if err != nil {
		return "", nil, err
	}
	if !inScene {
		return "", []models.ConversationTurn{}, nil
	}

	preamble, err := s.PersonaPreamble(ctx, current.SID)
	if err != nil {
		return "", nil, err
	}

	history := []models.ConversationTurn{}
	for _, scene := range lineageScenes {
		visible, err := s.visibility.IsCharacterInScene(ctx, actingCharacterID, scene.SID)
		if err != nil {
			return "", nil, err
		}
		if !visible {
			continue
		}

		turns, err := s.ConversationTurns(ctx, scene.SID, actingCharacterID)
		if err != nil {
			return "", nil, err
		}
		// 链是从新到旧遍历的，前插保证更早的情景排在前面
		history = append(turns, history...)
	}
	return preamble, history, nil
}
