// internal/store/sqlite/scene_store.go
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/Corphon/SceneWeaverMCP/internal/errors"
	"github.com/Corphon/SceneWeaverMCP/internal/models"
)

const sceneColumns = "sid, name, summary, is_main, is_root, created_at"

// GetScene 按 sid 取情景
func (s *Store) GetScene(ctx context.Context, sid string) (*models.Scene, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sceneColumns+` FROM scenes WHERE sid = ?`, sid)

	scene, err := scanScene(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("情景不存在: %s", sid), err)
		}
		return nil, apperrors.NewStoreFailureError("查询情景失败", err)
	}
	return scene, nil
}

// GetParents 返回情景的直接父情景，按边写入顺序
func (s *Store) GetParents(ctx context.Context, sid string) ([]models.Scene, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT s.sid, s.name, s.summary, s.is_main, s.is_root, s.created_at
		 FROM scene_edges e JOIN scenes s ON s.sid = e.parent_sid
		 WHERE e.child_sid = ?
		 ORDER BY e.rowid`, sid)
	if err != nil {
		return nil, apperrors.NewStoreFailureError("查询父情景失败", err)
	}
	defer rows.Close()

	parents := []models.Scene{}
	for rows.Next() {
		scene, err := scanScene(rows)
		if err != nil {
			return nil, apperrors.NewStoreFailureError("读取父情景失败", err)
		}
		parents = append(parents, *scene)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStoreFailureError("遍历父情景失败", err)
	}
	return parents, nil
}

// CreateScene 创建情景节点并连接父情景，单事务完成
func (s *Store) CreateScene(ctx context.Context, scene models.Scene, parents []models.Scene) (*models.Scene, error) {
	if scene.CreatedAt.IsZero() {
		scene.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, apperrors.NewStoreFailureError("开启事务失败", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO scenes (sid, name, summary, is_main, is_root, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		scene.SID, scene.Name, scene.Summary, scene.IsMain, scene.IsRoot,
		scene.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return nil, apperrors.NewStoreFailureError(fmt.Sprintf("创建情景失败: %s", scene.SID), err)
	}

	for _, parent := range parents {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO scene_edges (parent_sid, child_sid) VALUES (?, ?)`,
			parent.SID, scene.SID)
		if err != nil {
			return nil, apperrors.NewStoreFailureError(
				fmt.Sprintf("连接情景失败: %s -> %s", parent.SID, scene.SID), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, apperrors.NewStoreFailureError("提交事务失败", err)
	}
	return &scene, nil
}

// UpdateScene 只更新描述性字段
func (s *Store) UpdateScene(ctx context.Context, sid string, scene models.Scene) (*models.Scene, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE scenes SET name = ?, summary = ?, is_main = ? WHERE sid = ?`,
		scene.Name, scene.Summary, scene.IsMain, sid)
	if err != nil {
		return nil, apperrors.NewStoreFailureError("更新情景失败", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, apperrors.NewStoreFailureError("更新情景失败", err)
	}
	if affected == 0 {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("情景不存在: %s", sid), nil)
	}
	return s.GetScene(ctx, sid)
}

// DeleteScene 删除情景节点及相连的边
func (s *Store) DeleteScene(ctx context.Context, sid string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, apperrors.NewStoreFailureError("开启事务失败", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM scene_edges WHERE parent_sid = ? OR child_sid = ?`, sid, sid); err != nil {
		return false, apperrors.NewStoreFailureError("删除情景边失败", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM scenes WHERE sid = ?`, sid)
	if err != nil {
		return false, apperrors.NewStoreFailureError("删除情景失败", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.NewStoreFailureError("删除情景失败", err)
	}

	if err := tx.Commit(); err != nil {
		return false, apperrors.NewStoreFailureError("提交事务失败", err)
	}
	return affected > 0, nil
}

// AllScenesWithEdges 导出全量情景图
func (s *Store) AllScenesWithEdges(ctx context.Context) (*models.SceneGraph, error) {
	graph := &models.SceneGraph{}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sceneColumns+` FROM scenes ORDER BY rowid`)
	if err != nil {
		return nil, apperrors.NewStoreFailureError("查询情景列表失败", err)
	}
	defer rows.Close()
	for rows.Next() {
		scene, err := scanScene(rows)
		if err != nil {
			return nil, apperrors.NewStoreFailureError("读取情景失败", err)
		}
		graph.AddNode(*scene)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStoreFailureError("遍历情景失败", err)
	}

	edgeRows, err := s.db.QueryContext(ctx,
		`SELECT parent_sid, child_sid FROM scene_edges ORDER BY rowid`)
	if err != nil {
		return nil, apperrors.NewStoreFailureError("查询情景边失败", err)
	}
	defer edgeRows.Close()
	for edgeRows.Next() {
		var parent, child string
		if err := edgeRows.Scan(&parent, &child); err != nil {
			return nil, apperrors.NewStoreFailureError("读取情景边失败", err)
		}
		graph.AddEdge(parent, child)
	}
	if err := edgeRows.Err(); err != nil {
		return nil, apperrors.NewStoreFailureError("遍历情景边失败", err)
	}

	return graph, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanScene(row rowScanner) (*models.Scene, error) {
	var scene models.Scene
	var createdAt string
	if err := row.Scan(&scene.SID, &scene.Name, &scene.Summary,
		&scene.IsMain, &scene.IsRoot, &createdAt); err != nil {
		return nil, err
	}
	scene.CreatedAt = parseTime(createdAt)
	return &scene, nil
}

// parseTime 兼容 RFC3339 与 sqlite datetime('now') 两种时间格式
func parseTime(value string) time.Time {
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02 15:04:05", value); err == nil {
		return t
	}
	return time.Time{}
}
