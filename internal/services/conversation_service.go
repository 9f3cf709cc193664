// internal/services/conversation_service.go
package services

import (
	"context"
	"fmt"
	"strings"

	apperrors "github.com/Corphon/SceneWeaverMCP/internal/errors"
	"github.com/Corphon/SceneWeaverMCP/internal/models"
	"github.com/Corphon/SceneWeaverMCP/internal/store"
)

// ConversationService 对话轮次的追加与补写
// 情景内的对话只追加不修改，唯一的更新入口是为流式输出的占位记录补写最终文本
type ConversationService struct {
	conversations store.ConversationStore
	characters    store.CharacterStore
	visibility    *VisibilityService
}

// NewConversationService 创建对话服务
func NewConversationService(conversations store.ConversationStore,
	characters store.CharacterStore, visibility *VisibilityService) *ConversationService {
	return &ConversationService{
		conversations: conversations,
		characters:    characters,
		visibility:    visibility,
	}
}

// AppendTurn 向情景追加一轮对话
// 发送者必须存在且绑定在目标情景中，否则属于越权发言
func (s *ConversationService) AppendTurn(ctx context.Context, turn models.ConversationTurn) (*models.ConversationTurn, error) {
	if turn.Role != models.RoleUser && turn.Role != models.RoleAssistant {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("非法的对话角色: %s", turn.Role), nil)
	}
	if strings.TrimSpace(turn.SceneID) == "" {
		return nil, apperrors.NewValidationError("对话必须关联情景", nil)
	}

	if _, err := s.characters.GetCharacter(ctx, turn.SenderID); err != nil {
		return nil, err
	}
	inScene, err := s.visibility.IsCharacterInScene(ctx, turn.SenderID, turn.SceneID)
	if err != nil {
		return nil, err
	}
	if !inScene {
		return nil, apperrors.NewScopeViolationError(
			fmt.Sprintf("角色 %s 不在情景 %s 中，不能在该情景发言", turn.SenderID, turn.SceneID), nil)
	}

	return s.conversations.CreateTurn(ctx, turn)
}

// PatchTurn 补写一轮对话的最终文本
func (s *ConversationService) PatchTurn(ctx context.Context, turnID, message string) (*models.ConversationTurn, error) {
	return s.conversations.UpdateTurn(ctx, turnID, models.ConversationTurn{Message: message})
}

// TurnsForScene 返回情景下的全部对话
func (s *ConversationService) TurnsForScene(ctx context.Context, sceneID string) ([]models.ConversationTurn, error) {
	return s.conversations.TurnsForScene(ctx, sceneID)
}

// TurnsForCharacter 返回角色发送的全部对话
func (s *ConversationService) TurnsForCharacter(ctx context.Context, characterID string) ([]models.ConversationTurn, error) {
	return s.conversations.TurnsForCharacter(ctx, characterID)
}
