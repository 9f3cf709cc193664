// internal/store/sqlite/binding_store.go
package sqlite

import (
	"context"

	"github.com/google/uuid"

	apperrors "github.com/Corphon/SceneWeaverMCP/internal/errors"
	"github.com/Corphon/SceneWeaverMCP/internal/models"
)

// BindingsForScene 返回情景下的绑定，rowid 序即写入序
func (s *Store) BindingsForScene(ctx context.Context, sid string, includeInvisible bool) ([]models.CharacterBinding, error) {
	query := `SELECT id, character_id, scene_id, sort_order, is_visible, parent_binding_id
	          FROM character_bindings WHERE scene_id = ?`
	if !includeInvisible {
		query += ` AND is_visible = 1`
	}
	query += ` ORDER BY rowid`

	rows, err := s.db.QueryContext(ctx, query, sid)
	if err != nil {
		return nil, apperrors.NewStoreFailureError("查询角色绑定失败", err)
	}
	defer rows.Close()

	bindings := []models.CharacterBinding{}
	for rows.Next() {
		var binding models.CharacterBinding
		if err := rows.Scan(&binding.ID, &binding.CharacterID, &binding.SceneID,
			&binding.SortOrder, &binding.IsVisible, &binding.ParentBindingID); err != nil {
			return nil, apperrors.NewStoreFailureError("读取角色绑定失败", err)
		}
		bindings = append(bindings, binding)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStoreFailureError("遍历角色绑定失败", err)
	}
	return bindings, nil
}

// CreateBinding 建立角色-情景绑定
func (s *Store) CreateBinding(ctx context.Context, binding models.CharacterBinding) (bool, error) {
	if binding.ID == "" {
		binding.ID = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO character_bindings (id, character_id, scene_id, sort_order, is_visible, parent_binding_id)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		binding.ID, binding.CharacterID, binding.SceneID,
		binding.SortOrder, binding.IsVisible, binding.ParentBindingID)
	if err != nil {
		return false, apperrors.NewStoreFailureError("创建角色绑定失败", err)
	}
	return true, nil
}

// DeleteBinding 删除指定角色与情景的绑定
func (s *Store) DeleteBinding(ctx context.Context, characterID, sid string) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM character_bindings WHERE character_id = ? AND scene_id = ?`,
		characterID, sid)
	if err != nil {
		return false, apperrors.NewStoreFailureError("删除角色绑定失败", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.NewStoreFailureError("删除角色绑定失败", err)
	}
	return affected > 0, nil
}

// DeleteAllBindingsForScene 删除情景下的全部绑定
func (s *Store) DeleteAllBindingsForScene(ctx context.Context, sid string) (bool, error) {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM character_bindings WHERE scene_id = ?`, sid)
	if err != nil {
		return false, apperrors.NewStoreFailureError("删除情景角色绑定失败", err)
	}
	return true, nil
}

// BindingExists 角色在情景中是否存在绑定，不考虑可见性
func (s *Store) BindingExists(ctx context.Context, characterID, sid string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM character_bindings WHERE character_id = ? AND scene_id = ?)`,
		characterID, sid).Scan(&exists)
	if err != nil {
		return false, apperrors.NewStoreFailureError("查询角色绑定失败", err)
	}
	return exists, nil
}

// AnyBindingExists 角色是否出现在给定情景集合中的任意一个
func (s *Store) AnyBindingExists(ctx context.Context, characterID string, sids []string) (bool, error) {
	if len(sids) == 0 {
		return false, nil
	}

	args := make([]any, 0, len(sids)+1)
	args = append(args, characterID)
	for _, sid := range sids {
		args = append(args, sid)
	}

	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM character_bindings
		 WHERE character_id = ? AND scene_id IN (`+placeholders(len(sids))+`))`,
		args...).Scan(&exists)
	if err != nil {
		return false, apperrors.NewStoreFailureError("查询角色绑定失败", err)
	}
	return exists, nil
}
