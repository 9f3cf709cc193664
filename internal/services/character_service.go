// internal/services/character_service.go
package services

import (
	"context"
	"strings"

	apperrors "github.com/Corphon/SceneWeaverMCP/internal/errors"
	"github.com/Corphon/SceneWeaverMCP/internal/models"
	"github.com/Corphon/SceneWeaverMCP/internal/store"
)

// CharacterService 角色本体的增删改查
type CharacterService struct {
	characters store.CharacterStore
}

// NewCharacterService 创建角色服务
func NewCharacterService(characters store.CharacterStore) *CharacterService {
	return &CharacterService{characters: characters}
}

// GetCharacter 按 ID 取角色
func (s *CharacterService) GetCharacter(ctx context.Context, characterID string) (*models.Character, error) {
	return s.characters.GetCharacter(ctx, characterID)
}

// ListCharacters 返回全部角色
func (s *CharacterService) ListCharacters(ctx context.Context) ([]models.Character, error) {
	return s.characters.ListCharacters(ctx)
}

// CreateCharacter 创建角色，名称不能为空
func (s *CharacterService) CreateCharacter(ctx context.Context, character models.Character) (*models.Character, error) {
	if strings.TrimSpace(character.Name) == "" {
		return nil, apperrors.NewValidationError("角色名称不能为空", nil)
	}
	return s.characters.CreateCharacter(ctx, character)
}

// UpdateCharacter 更新角色信息
func (s *CharacterService) UpdateCharacter(ctx context.Context, characterID string, character models.Character) (*models.Character, error) {
	if strings.TrimSpace(character.Name) == "" {
		return nil, apperrors.NewValidationError("角色名称不能为空", nil)
	}
	return s.characters.UpdateCharacter(ctx, characterID, character)
}

// DeleteCharacter 删除角色
func (s *CharacterService) DeleteCharacter(ctx context.Context, characterID string) (bool, error) {
	return s.characters.DeleteCharacter(ctx, characterID)
}
