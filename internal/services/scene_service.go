// internal/services/scene_service.go
package services

import (
	"context"
	"fmt"

	apperrors "github.com/Corphon/SceneWeaverMCP/internal/errors"
	"github.com/Corphon/SceneWeaverMCP/internal/models"
	"github.com/Corphon/SceneWeaverMCP/internal/store"
)

// SceneService 情景有关的读写：创建（含分支与融合派生）、更新、删除与图导出
// 情景永远显式创建，绝不隐式生成
type SceneService struct {
	scenes     store.SceneGraphStore
	bindings   store.CharacterBindingStore
	characters store.CharacterStore
	visibility *VisibilityService
}

// NewSceneService 创建情景服务
func NewSceneService(scenes store.SceneGraphStore, bindings store.CharacterBindingStore,
	characters store.CharacterStore, visibility *VisibilityService) *SceneService {
	return &SceneService{
		scenes:     scenes,
		bindings:   bindings,
		characters: characters,
		visibility: visibility,
	}
}

// GetScene 按 sid 取情景
func (s *SceneService) GetScene(ctx context.Context, sid string) (*models.Scene, error) {
	return s.scenes.GetScene(ctx, sid)
}

// CreateScene 创建情景，parentSIDs 非空时与这些父情景相连
func (s *SceneService) CreateScene(ctx context.Context, scene models.Scene, parentSIDs []string) (*models.Scene, error) {
	if scene.SID == "" {
		return nil, apperrors.NewValidationError("情景 sid 不能为空", nil)
	}

	parents := make([]models.Scene, 0, len(parentSIDs))
	for _, parentSID := range parentSIDs {
		if parentSID == scene.SID {
			return nil, apperrors.NewValidationError(
				fmt.Sprintf("情景 %s 不能以自身为父情景", scene.SID), nil)
		}
		parent, err := s.scenes.GetScene(ctx, parentSID)
		if err != nil {
			return nil, err
		}
		parents = append(parents, *parent)
	}
	return s.scenes.CreateScene(ctx, scene, parents)
}

// CreateSceneFromCurrent 根据当前情景创建下一个情景，可多个情景融合
// characterIDs 为空且有父情景时，继承第一个父情景的可见角色列表，
// 为每个角色建立新的绑定（按继承顺序赋 sort_order）
func (s *SceneService) CreateSceneFromCurrent(ctx context.Context, newScene models.Scene,
	currentSceneIDs []string, characterIDs []string) (*models.Scene, error) {

	created, err := s.CreateScene(ctx, newScene, currentSceneIDs)
	if err != nil {
		return nil, err
	}

	if characterIDs == nil && len(currentSceneIDs) > 0 {
		// 多个父情景的角色列表视为一致，取第一个
		inherited, err := s.visibility.BindingsForScene(ctx, currentSceneIDs[0], false)
		if err != nil {
			return nil, err
		}
		for _, binding := range inherited {
			characterIDs = append(characterIDs, binding.CharacterID)
		}
	}

	for idx, characterID := range characterIDs {
		if err := s.BindCharacter(ctx, characterID, created.SID, idx, true); err != nil {
			return nil, err
		}
	}
	return created, nil
}

// UpdateScene 更新情景的描述性字段，sid 与 is_root 不可变
func (s *SceneService) UpdateScene(ctx context.Context, sid string, scene models.Scene) (*models.Scene, error) {
	return s.scenes.UpdateScene(ctx, sid, scene)
}

// DeleteScene 删除情景
// 先批量清理情景角色关联，再删除情景本身（引用清理属于同一操作）
func (s *SceneService) DeleteScene(ctx context.Context, sid string) (bool, error) {
	if _, err := s.bindings.DeleteAllBindingsForScene(ctx, sid); err != nil {
		return false, err
	}
	return s.scenes.DeleteScene(ctx, sid)
}

// BindCharacter 将角色与情景连接起来
func (s *SceneService) BindCharacter(ctx context.Context, characterID, sceneID string,
	sortOrder int, isVisible bool) error {

	if _, err := s.characters.GetCharacter(ctx, characterID); err != nil {
		return err
	}
	_, err := s.bindings.CreateBinding(ctx, models.CharacterBinding{
		CharacterID: characterID,
		SceneID:     sceneID,
		SortOrder:   sortOrder,
		IsVisible:   isVisible,
	})
	return err
}

// UnbindCharacter 删除角色与情景的关联
func (s *SceneService) UnbindCharacter(ctx context.Context, characterID, sceneID string) (bool, error) {
	return s.bindings.DeleteBinding(ctx, characterID, sceneID)
}

// CharactersInScene 返回情景下的角色及其绑定信息
func (s *SceneService) CharactersInScene(ctx context.Context, sceneID string,
	includeInvisible bool) ([]models.CharacterSceneDetail, error) {

	bindings, err := s.visibility.BindingsForScene(ctx, sceneID, includeInvisible)
	if err != nil {
		return nil, err
	}

	details := make([]models.CharacterSceneDetail, 0, len(bindings))
	for _, binding := range bindings {
		character, err := s.characters.GetCharacter(ctx, binding.CharacterID)
		if err != nil {
			return nil, err
		}
		details = append(details, models.CharacterSceneDetail{
			Binding:   binding,
			Character: *character,
		})
	}
	return details, nil
}

// SceneGraph 导出全量情景图
func (s *SceneService) SceneGraph(ctx context.Context) (*models.SceneGraph, error) {
	return s.scenes.AllScenesWithEdges(ctx)
}
