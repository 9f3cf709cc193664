// internal/store/store.go
package store

import (
	"context"

	"github.com/Corphon/SceneWeaverMCP/internal/models"
)

// 核心只通过下面四个窄查询契约访问持久化数据，
// 具体后端（sqlite、内存）在进程装配时选定一次，运行期不做类型判断

// SceneGraphStore 保存情景节点与父子有向边
type SceneGraphStore interface {
	// GetScene 按 sid 取情景，不存在时返回 NotFound
	GetScene(ctx context.Context, sid string) (*models.Scene, error)

	// GetParents 返回情景的全部直接父情景，没有父情景时返回空切片
	GetParents(ctx context.Context, sid string) ([]models.Scene, error)

	// CreateScene 创建情景，并为 parents 中的每个情景建立 父->新情景 的边
	CreateScene(ctx context.Context, scene models.Scene, parents []models.Scene) (*models.Scene, error)

	// UpdateScene 只更新描述性字段（name、summary、is_main），身份字段不可变
	UpdateScene(ctx context.Context, sid string, scene models.Scene) (*models.Scene, error)

	// DeleteScene 删除情景节点及其相连的边
	DeleteScene(ctx context.Context, sid string) (bool, error)

	// AllScenesWithEdges 导出全量情景图
	AllScenesWithEdges(ctx context.Context) (*models.SceneGraph, error)
}

// CharacterBindingStore 保存角色与情景的绑定关系
type CharacterBindingStore interface {
	// BindingsForScene 返回情景下的绑定记录
	// includeInvisible 为 false 时过滤掉绑定级不可见的记录
	// 返回顺序即写入顺序，排序由上层的可见性解析负责
	BindingsForScene(ctx context.Context, sid string, includeInvisible bool) ([]models.CharacterBinding, error)

	// CreateBinding 建立一条角色-情景绑定，ID 为空时由存储生成
	CreateBinding(ctx context.Context, binding models.CharacterBinding) (bool, error)

	// DeleteBinding 删除指定 (characterID, sid) 的绑定
	DeleteBinding(ctx context.Context, characterID, sid string) (bool, error)

	// DeleteAllBindingsForScene 批量删除情景下的全部绑定，情景删除前调用
	DeleteAllBindingsForScene(ctx context.Context, sid string) (bool, error)

	// BindingExists 角色在情景中是否存在绑定，不考虑可见性
	BindingExists(ctx context.Context, characterID, sid string) (bool, error)

	// AnyBindingExists 角色是否出现在给定情景集合中的任意一个，命中即返回
	AnyBindingExists(ctx context.Context, characterID string, sids []string) (bool, error)
}

// ConversationStore 保存按情景分组的对话轮次
type ConversationStore interface {
	// TurnsForScene 返回情景下的全部对话，按写入顺序
	TurnsForScene(ctx context.Context, sid string) ([]models.ConversationTurn, error)

	// TurnsForCharacter 返回某个角色发送的全部对话
	TurnsForCharacter(ctx context.Context, characterID string) ([]models.ConversationTurn, error)

	// CreateTurn 追加一轮对话，返回带生成 ID 的记录
	CreateTurn(ctx context.Context, turn models.ConversationTurn) (*models.ConversationTurn, error)

	// UpdateTurn 按 ID 更新对话，用于补写流式输出占位记录的最终文本
	UpdateTurn(ctx context.Context, id string, turn models.ConversationTurn) (*models.ConversationTurn, error)
}

// CharacterStore 保存角色本体
type CharacterStore interface {
	// GetCharacter 按 ID 取角色，不存在时返回 NotFound
	GetCharacter(ctx context.Context, characterID string) (*models.Character, error)

	// ListCharacters 返回全部角色
	ListCharacters(ctx context.Context) ([]models.Character, error)

	// CreateCharacter 创建角色，ID 为空时由存储生成
	CreateCharacter(ctx context.Context, character models.Character) (*models.Character, error)

	// UpdateCharacter 更新角色信息
	UpdateCharacter(ctx context.Context, characterID string, character models.Character) (*models.Character, error)

	// DeleteCharacter 删除角色
	DeleteCharacter(ctx context.Context, characterID string) (bool, error)
}
