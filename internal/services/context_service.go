// internal/services/context_service.go
package services

import (
	"context"
	"fmt"

	apperrors "github.com/Corphon/SceneWeaverMCP/internal/errors"
	"github.com/Corphon/SceneWeaverMCP/internal/models"
	"github.com/Corphon/SceneWeaverMCP/internal/store"
)

// FormatterArgs 传给历史格式化回调的上下文参数
type FormatterArgs struct {
	SceneID                string
	ActingCharacterID      string // 模型扮演的角色
	UserCharacterID        string // 用户扮演的角色
	RestrictToCurrentScene bool
	Characters             store.CharacterStore
	Extra                  map[string]any // 调用方自定义参数
}

// HistoryFormatter 历史格式化回调：
// 接收已有的消息列表和过滤后的对话记录，返回追加后的消息列表
// 调用方通过它自定义对话到模型消息的映射方式，不需要子类化任何东西
type HistoryFormatter func(ctx context.Context, messages []models.ChatMessage,
	turns []models.ConversationTurn, args FormatterArgs) ([]models.ChatMessage, error)

// ContextService 组装一次对话轮交给模型的完整消息序列
type ContextService struct {
	lineage    *LineageService
	visibility *VisibilityService
	history    *HistoryService
	characters store.CharacterStore
}

// NewContextService 创建上下文组装服务
func NewContextService(lineage *LineageService, visibility *VisibilityService,
	history *HistoryService, characters store.CharacterStore) *ContextService {
	return &ContextService{
		lineage:    lineage,
		visibility: visibility,
		history:    history,
		characters: characters,
	}
}

// BuildContext 组装完整的聊天上下文，包括人设前言、历史对话和扮演指令
//
// 整体逻辑：
//  1. 取主谱系链并反转为从最新到最旧，方便做最近出现判断
//  2. 授权：restrictToCurrentScene 时扮演角色必须绑定在当前情景，
//     否则返回 ScopeViolation，绝不静默给出空上下文
//  3. 按 restrictToCurrentScene 取单情景或整条链的前言与对话
//  4. 分别判断扮演角色和用户角色是否首次出现在链中，
//     非首次出现时扮演指令里不再重复完整人设（前言里已经有了）
//  5. 组装消息列表：前言 system 消息（允许为空）、格式化后的历史、
//     扮演指令、强制姓名标签指令
func (s *ContextService) BuildContext(ctx context.Context, sceneID, actingCharacterID,
	userCharacterID string, restrictToCurrentScene bool, formatter HistoryFormatter,
	extra map[string]any) ([]models.ChatMessage, error) {

	if formatter == nil {
		formatter = DefaultHistoryFormatter
	}

	lineage, err := s.lineage.PrimaryLineage(ctx, sceneID)
	if err != nil {
		return nil, err
	}
	// 反转为从最新到最旧
	for i, j := 0, len(lineage)-1; i < j; i, j = i+1, j-1 {
		lineage[i], lineage[j] = lineage[j], lineage[i]
	}

	lineageIDs := make([]string, len(lineage))
	for i, scene := range lineage {
		lineageIDs[i] = scene.SID
	}

	var preamble string
	var turns []models.ConversationTurn

	if restrictToCurrentScene {
		inScene, err := s.visibility.IsCharacterInScene(ctx, actingCharacterID, sceneID)
		if err != nil {
			return nil, err
		}
		if !inScene {
			return nil, apperrors.NewScopeViolationError(
				fmt.Sprintf("角色 %s 不在情景 %s 中，无法组装上下文", actingCharacterID, sceneID), nil)
		}

		preamble, err = s.history.PersonaPreamble(ctx, sceneID)
		if err != nil {
			return nil, err
		}
		turns, err = s.history.ConversationTurns(ctx, sceneID, actingCharacterID)
		if err != nil {
			return nil, err
		}
	} else {
		preamble, turns, err = s.history.FullLineageHistory(ctx, sceneID, lineage, actingCharacterID)
		if err != nil {
			return nil, err
		}
	}

	// 首次出现判断：链 id 列表包含当前情景自身，
	// 所以只绑定在当前情景的角色也会被判为"已出现"，人设不再重复
	actingAppearance, err := s.visibility.MostRecentAppearance(ctx, actingCharacterID, lineageIDs, false)
	if err != nil {
		return nil, err
	}
	userAppearance, err := s.visibility.MostRecentAppearance(ctx, userCharacterID, lineageIDs, false)
	if err != nil {
		return nil, err
	}

	actingCharacter, err := s.characters.GetCharacter(ctx, actingCharacterID)
	if err != nil {
		return nil, err
	}
	userCharacter, err := s.characters.GetCharacter(ctx, userCharacterID)
	if err != nil {
		return nil, err
	}

	actingPrompt := ""
	if actingAppearance == nil {
		actingPrompt = actingCharacter.Prompt
	}
	userPrompt := ""
	if userAppearance == nil {
		userPrompt = userCharacter.Prompt
	}

	// 第一部分：世界观与角色设定（来自情景中的所有可见角色），允许为空
	messages := []models.ChatMessage{{Role: models.RoleSystem, Content: preamble}}

	// 第二部分：历史对话，通过回调构建
	messages, err = formatter(ctx, messages, turns, FormatterArgs{
		SceneID:                sceneID,
		ActingCharacterID:      actingCharacterID,
		UserCharacterID:        userCharacterID,
		RestrictToCurrentScene: restrictToCurrentScene,
		Characters:             s.characters,
		Extra:                  extra,
	})
	if err != nil {
		return nil, err
	}

	// 第三部分：扮演指令
	messages = append(messages, models.ChatMessage{
		Role: models.RoleSystem,
		Content: fmt.Sprintf("You are %s, %s \n The user plays %s, %s",
			actingCharacter.Name, actingPrompt, userCharacter.Name, userPrompt),
	})

	// 第四部分：强制姓名标签指令
	messages = append(messages, models.ChatMessage{
		Role: models.RoleSystem,
		Content: fmt.Sprintf("Every reply must begin with a tag carrying your character's real name; "+
			"code names, nicknames and pet names are forbidden. Example: [%s] \\n ", actingCharacter.Name),
	})

	return messages, nil
}

// DefaultHistoryFormatter 默认的历史构建函数：
// user 对话映射为用户消息，assistant 对话映射为模型消息，原样追加
func DefaultHistoryFormatter(_ context.Context, messages []models.ChatMessage,
	turns []models.ConversationTurn, _ FormatterArgs) ([]models.ChatMessage, error) {

	for _, turn := range turns {
		switch turn.Role {
		case models.RoleUser:
			messages = append(messages, models.ChatMessage{Role: models.RoleUser, Content: turn.Message})
		case models.RoleAssistant:
			messages = append(messages, models.ChatMessage{Role: models.RoleAssistant, Content: turn.Message})
		}
	}
	return messages, nil
}

// RoleSwitchHistoryFormatter 构建历史对话，并在发送者变化时插入系统提示
//
// user 流和 assistant 流各自独立追踪上一个发送者，变化时插入一条
// "<role> switched from [旧角色] to [新角色]" 的系统消息；
// 最后一条 assistant 对话的发送者与本轮要扮演的角色不一致时，
// 额外补一条切换提示，避免模型混淆说话人
func RoleSwitchHistoryFormatter(ctx context.Context, messages []models.ChatMessage,
	turns []models.ConversationTurn, args FormatterArgs) ([]models.ChatMessage, error) {

	if args.Characters == nil {
		return nil, apperrors.NewValidationError("RoleSwitchHistoryFormatter 需要角色存储", nil)
	}
	if args.ActingCharacterID == "" {
		return nil, apperrors.NewValidationError("RoleSwitchHistoryFormatter 需要扮演角色ID", nil)
	}

	var lastUserSenderID, lastAssistantSenderID string

	for _, turn := range turns {
		switch turn.Role {
		case models.RoleUser:
			if lastUserSenderID != "" && lastUserSenderID != turn.SenderID {
				annotation, err := switchAnnotation(ctx, args.Characters, "user", lastUserSenderID, turn.SenderID)
				if err != nil {
					return nil, err
				}
				messages = append(messages, annotation)
			}
			lastUserSenderID = turn.SenderID
			messages = append(messages, models.ChatMessage{Role: models.RoleUser, Content: turn.Message})

		case models.RoleAssistant:
			if lastAssistantSenderID != "" && lastAssistantSenderID != turn.SenderID {
				annotation, err := switchAnnotation(ctx, args.Characters, "assistant", lastAssistantSenderID, turn.SenderID)
				if err != nil {
					return nil, err
				}
				messages = append(messages, annotation)
			}
			lastAssistantSenderID = turn.SenderID
			messages = append(messages, models.ChatMessage{Role: models.RoleAssistant, Content: turn.Message})
		}
	}

	// 历史里最后的 assistant 发送者与本轮扮演角色不一致时补一条切换提示
	if lastAssistantSenderID != "" && lastAssistantSenderID != args.ActingCharacterID {
		annotation, err := switchAnnotation(ctx, args.Characters, "assistant", lastAssistantSenderID, args.ActingCharacterID)
		if err != nil {
			return nil, err
		}
		messages = append(messages, annotation)
	}

	return messages, nil
}

func switchAnnotation(ctx context.Context, characters store.CharacterStore,
	role, oldID, newID string) (models.ChatMessage, error) {

	oldCharacter, err := characters.GetCharacter(ctx, oldID)
	if err != nil {
		return models.ChatMessage{}, err
	}
	newCharacter, err := characters.GetCharacter(ctx, newID)
	if err != nil {
		return models.ChatMessage{}, err
	}
	return models.ChatMessage{
		Role:    models.RoleSystem,
		Content: fmt.Sprintf("%s switched from [%s] to [%s]", role, oldCharacter.Name, newCharacter.Name),
	}, nil
}
