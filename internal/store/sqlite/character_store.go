// internal/store/sqlite/character_store.go
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/Corphon/SceneWeaverMCP/internal/errors"
	"github.com/Corphon/SceneWeaverMCP/internal/models"
)

const characterColumns = "id, name, prompt, is_visible, created_at"

// GetCharacter 按 ID 取角色
func (s *Store) GetCharacter(ctx context.Context, characterID string) (*models.Character, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+characterColumns+` FROM characters WHERE id = ?`, characterID)

	character, err := scanCharacter(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("角色不存在: %s", characterID), err)
		}
		return nil, apperrors.NewStoreFailureError("查询角色失败", err)
	}
	return character, nil
}

// ListCharacters 返回全部角色
func (s *Store) ListCharacters(ctx context.Context) ([]models.Character, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+characterColumns+` FROM characters ORDER BY rowid`)
	if err != nil {
		return nil, apperrors.NewStoreFailureError("查询角色列表失败", err)
	}
	defer rows.Close()

	characters := []models.Character{}
	for rows.Next() {
		character, err := scanCharacter(rows)
		if err != nil {
			return nil, apperrors.NewStoreFailureError("读取角色失败", err)
		}
		characters = append(characters, *character)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStoreFailureError("遍历角色失败", err)
	}
	return characters, nil
}

// CreateCharacter 创建角色
func (s *Store) CreateCharacter(ctx context.Context, character models.Character) (*models.Character, error) {
	if character.ID == "" {
		character.ID = uuid.New().String()
	}
	if character.CreatedAt.IsZero() {
		character.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO characters (id, name, prompt, is_visible, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		character.ID, character.Name, character.Prompt, character.IsVisible,
		character.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return nil, apperrors.NewStoreFailureError("创建角色失败", err)
	}
	return &character, nil
}

// UpdateCharacter 更新角色信息
func (s *Store) UpdateCharacter(ctx context.Context, characterID string, character models.Character) (*models.Character, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE characters SET name = ?, prompt = ?, is_visible = ? WHERE id = ?`,
		character.Name, character.Prompt, character.IsVisible, characterID)
	if err != nil {
		return nil, apperrors.NewStoreFailureError("更新角色失败", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, apperrors.NewStoreFailureError("更新角色失败", err)
	}
	if affected == 0 {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("角色不存在: %s", characterID), nil)
	}
	return s.GetCharacter(ctx, characterID)
}

// DeleteCharacter 删除角色
func (s *Store) DeleteCharacter(ctx context.Context, characterID string) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM characters WHERE id = ?`, characterID)
	if err != nil {
		return false, apperrors.NewStoreFailureError("删除角色失败", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.NewStoreFailureError("删除角色失败", err)
	}
	return affected > 0, nil
}

func scanCharacter(row rowScanner) (*models.Character, error) {
	var character models.Character
	var createdAt string
	if err := row.Scan(&character.ID, &character.Name, &character.Prompt,
		&character.IsVisible, &createdAt); err != nil {
		return nil, err
	}
	character.CreatedAt = parseTime(createdAt)
	return &character, nil
}
