// internal/services/lineage_service.go
package services

import (
	"context"
	"fmt"

	apperrors "github.com/Corphon/SceneWeaverMCP/internal/errors"
	"github.com/Corphon/SceneWeaverMCP/internal/models"
	"github.com/Corphon/SceneWeaverMCP/internal/store"
)

// maxLineageDepth 限制向上递归的深度
// 图数据存在环时用它快速失败，而不是无限递归
const maxLineageDepth = 256

// LineageService 负责情景谱系的枚举：
// 从指定情景沿父边向上走到根，每条分支产出一条独立的链
type LineageService struct {
	scenes store.SceneGraphStore
}

// NewLineageService 创建谱系解析服务
func NewLineageService(scenes store.SceneGraphStore) *LineageService {
	return &LineageService{scenes: scenes}
}

// AllAncestorPaths 根据传入的 sid，递归地寻找它的所有父节点路径，直到父节点为根节点
// 如果有多个父节点，则有多条链；每条链按 根情景在前、当前情景在后 排列
// 路径不去重：经由两条不同父链可达的节点会产出两条链，即使它们共享后缀
func (s *LineageService) AllAncestorPaths(ctx context.Context, sid string) ([][]models.Scene, error) {
	current, err := s.scenes.GetScene(ctx, sid)
	if err != nil {
		return nil, err
	}

	allPaths := [][]models.Scene{}
	if err := s.findParentPaths(ctx, *current, []models.Scene{*current}, &allPaths, 0); err != nil {
		return nil, err
	}

	// 发现顺序是 当前->根，反转为 根->当前
	for _, path := range allPaths {
		for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
			path[i], path[j] = path[j], path[i]
		}
	}
	return allPaths, nil
}

// PrimaryLineage 返回第一条被发现的谱系链，上下文组装默认沿这条主链走
func (s *LineageService) PrimaryLineage(ctx context.Context, sid string) ([]models.Scene, error) {
	paths, err := s.AllAncestorPaths(ctx, sid)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, apperrors.NewProcessingError(fmt.Sprintf("情景 %s 没有可用的谱系链", sid), nil)
	}
	return paths[0], nil
}

// findParentPaths 递归帮助函数
// 根节点终止；没有父节点的孤立节点也视为链尾（宽容处理，不报错）
func (s *LineageService) findParentPaths(ctx context.Context, node models.Scene,
	currentPath []models.Scene, allPaths *[][]models.Scene, depth int) error {

	if depth > maxLineageDepth {
		return apperrors.NewProcessingError(
			fmt.Sprintf("情景 %s 的谱系深度超过 %d，图数据可能存在环", node.SID, maxLineageDepth), nil)
	}

	if node.IsRoot {
		*allPaths = append(*allPaths, clonePath(currentPath))
		return nil
	}

	parents, err := s.scenes.GetParents(ctx, node.SID)
	if err != nil {
		return err
	}

	if len(parents) == 0 {
		*allPaths = append(*allPaths, clonePath(currentPath))
		return nil
	}

	for _, parent := range parents {
		newPath := append(clonePath(currentPath), parent)
		if err := s.findParentPaths(ctx, parent, newPath, allPaths, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func clonePath(path []models.Scene) []models.Scene {
	cloned := make([]models.Scene, len(path))
	copy(cloned, path)
	return cloned
}
