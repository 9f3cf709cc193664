// internal/services/visibility_service.go
package services

import (
	"context"
	"sort"

	"github.com/Corphon/SceneWeaverMCP/internal/models"
	"github.com/Corphon/SceneWeaverMCP/internal/store"
)

// VisibilityService 负责角色-情景可见性的判定：
// 角色是否出现在情景中、情景下可见的绑定列表、
// 以及角色在一条情景链中最近一次出现的位置（用于抑制人设文本的重复注入）
type VisibilityService struct {
	bindings store.CharacterBindingStore
}

// NewVisibilityService 创建可见性解析服务
func NewVisibilityService(bindings store.CharacterBindingStore) *VisibilityService {
	return &VisibilityService{bindings: bindings}
}

// IsCharacterInScene 判断角色是否在指定情景中，不考虑可见性标志
// 用于对话范围的授权判断：有绑定即视为"在场"
func (s *VisibilityService) IsCharacterInScene(ctx context.Context, characterID, sceneID string) (bool, error) {
	return s.bindings.BindingExists(ctx, characterID, sceneID)
}

// IsCharacterInAnyScene 判断角色是否出现在给定情景集合中的任意一个，命中即返回
func (s *VisibilityService) IsCharacterInAnyScene(ctx context.Context, characterID string, sceneIDs []string) (bool, error) {
	return s.bindings.AnyBindingExists(ctx, characterID, sceneIDs)
}

// BindingsForScene 返回情景下的绑定列表，按 sort_order 升序
// sort_order 相同（数据未强制唯一）时保持写入顺序作为次级排序
func (s *VisibilityService) BindingsForScene(ctx context.Context, sceneID string, includeInvisible bool) ([]models.CharacterBinding, error) {
	bindings, err := s.bindings.BindingsForScene(ctx, sceneID, includeInvisible)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(bindings, func(i, j int) bool {
		return bindings[i].SortOrder < bindings[j].SortOrder
	})
	return bindings, nil
}

// MostRecentAppearance 返回角色在一条情景链中最近一次出现的绑定
// sceneIDsNewestFirst 必须已按从最新到最旧排列，本方法不自行推导时序；
// 角色从未出现时返回 nil
//
// 上层用它判断角色的人设是否已经通过更早的情景前言进入了模型可见的
// 上下文：已出现过就不必重复注入大段人设文本
func (s *VisibilityService) MostRecentAppearance(ctx context.Context, characterID string,
	sceneIDsNewestFirst []string, includeInvisible bool) (*models.CharacterBinding, error) {

	// 按链上位置从新到旧扫描，第一个命中的情景优先级最高
	for _, sceneID := range sceneIDsNewestFirst {
		bindings, err := s.BindingsForScene(ctx, sceneID, includeInvisible)
		if err != nil {
			return nil, err
		}
		// 同一角色在一个情景下正常只有一条绑定，这里不做唯一性假设，
		// 排序后取第一条
		for i := range bindings {
			if bindings[i].CharacterID == characterID {
				binding := bindings[i]
				return &binding, nil
			}
		}
	}
	return nil, nil
}
