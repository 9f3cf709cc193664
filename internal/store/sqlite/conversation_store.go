// internal/store/sqlite/conversation_store.go
package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/Corphon/SceneWeaverMCP/internal/errors"
	"github.com/Corphon/SceneWeaverMCP/internal/models"
)

const turnColumns = "id, scene_id, sender_id, role, message, created_at"

// TurnsForScene 返回情景下全部对话，按写入顺序
func (s *Store) TurnsForScene(ctx context.Context, sid string) ([]models.ConversationTurn, error) {
	return s.queryTurns(ctx,
		`SELECT `+turnColumns+` FROM conversations WHERE scene_id = ? ORDER BY rowid`, sid)
}

// TurnsForCharacter 返回角色发送的全部对话
func (s *Store) TurnsForCharacter(ctx context.Context, characterID string) ([]models.ConversationTurn, error) {
	return s.queryTurns(ctx,
		`SELECT `+turnColumns+` FROM conversations WHERE sender_id = ? ORDER BY rowid`, characterID)
}

func (s *Store) queryTurns(ctx context.Context, query string, arg string) ([]models.ConversationTurn, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, apperrors.NewStoreFailureError("查询对话记录失败", err)
	}
	defer rows.Close()

	turns := []models.ConversationTurn{}
	for rows.Next() {
		var turn models.ConversationTurn
		var createdAt string
		if err := rows.Scan(&turn.ID, &turn.SceneID, &turn.SenderID,
			&turn.Role, &turn.Message, &createdAt); err != nil {
			return nil, apperrors.NewStoreFailureError("读取对话记录失败", err)
		}
		turn.CreatedAt = parseTime(createdAt)
		turns = append(turns, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStoreFailureError("遍历对话记录失败", err)
	}
	return turns, nil
}

// CreateTurn 追加一轮对话
func (s *Store) CreateTurn(ctx context.Context, turn models.ConversationTurn) (*models.ConversationTurn, error) {
	if turn.ID == "" {
		turn.ID = uuid.New().String()
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations (id, scene_id, sender_id, role, message, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		turn.ID, turn.SceneID, turn.SenderID, turn.Role, turn.Message,
		turn.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return nil, apperrors.NewStoreFailureError("创建对话记录失败", err)
	}
	return &turn, nil
}

// UpdateTurn 补写对话文本，只允许修改 message
func (s *Store) UpdateTurn(ctx context.Context, id string, turn models.ConversationTurn) (*models.ConversationTurn, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE conversations SET message = ? WHERE id = ?`, turn.Message, id)
	if err != nil {
		return nil, apperrors.NewStoreFailureError("更新对话记录失败", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, apperrors.NewStoreFailureError("更新对话记录失败", err)
	}
	if affected == 0 {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("对话记录不存在: %s", id), nil)
	}

	turns, err := s.queryTurns(ctx,
		`SELECT `+turnColumns+` FROM conversations WHERE id = ? ORDER BY rowid`, id)
	if err != nil {
		return nil, err
	}
	if len(turns) == 0 {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("对话记录不存在: %s", id), nil)
	}
	return &turns[0], nil
}
