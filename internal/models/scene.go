// internal/models/scene.go
package models

import (
	"time"
)

// Scene 表示故事图中的一个情景节点
// sid 是全局唯一标识，创建后不可变；描述性字段可以更新
type Scene struct {
	SID       string    `json:"sid"`
	Name      string    `json:"name"`
	Summary   string    `json:"summary"`
	IsMain    bool      `json:"is_main"`
	IsRoot    bool      `json:"is_root"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// SceneEdge 表示情景之间的有向边（父情景 -> 子情景）
// 多对多：一个情景可以有多个父情景（融合）和多个子情景（分支）
type SceneEdge struct {
	ParentSID string `json:"parent_sid"`
	ChildSID  string `json:"child_sid"`
}

// SceneGraph 全量情景图，用于可视化和导出
type SceneGraph struct {
	Nodes []Scene     `json:"nodes"`
	Edges []SceneEdge `json:"edges"`
}

// AddNode 向图中追加一个情景节点
func (g *SceneGraph) AddNode(scene Scene) {
	g.Nodes = append(g.Nodes, scene)
}

// AddEdge 向图中追加一条父子边
func (g *SceneGraph) AddEdge(parentSID, childSID string) {
	g.Edges = append(g.Edges, SceneEdge{ParentSID: parentSID, ChildSID: childSID})
}

// CharacterSceneDetail 角色与情景的关联信息及角色本体
// 用于 API 层返回"某情景下有哪些角色"
type CharacterSceneDetail struct {
	Binding   CharacterBinding `json:"binding"`
	Character Character        `json:"character"`
}
