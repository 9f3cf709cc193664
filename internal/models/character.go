// internal/models/character.go
package models

import "time"

// Character 表示一个可扮演的角色
// Prompt 是注入给模型的人设文本；IsVisible 是角色级的默认可见性，
// 与每个情景绑定上的可见性相互独立，两者都为真时人设和消息才会暴露给模型
type Character struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Prompt    string    `json:"prompt"`
	IsVisible bool      `json:"is_visible"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// CharacterBinding 表示"角色 X 被绑定到情景 Y"
// 可见性变更不原地修改，而是建立新的绑定；ParentBindingID 指向同一角色
// 更早的绑定（修订谱系），父绑定删除时置空
type CharacterBinding struct {
	ID              string  `json:"id"`
	CharacterID     string  `json:"character_id"`
	SceneID         string  `json:"scene_id"`
	SortOrder       int     `json:"sort_order"`
	IsVisible       bool    `json:"is_visible"`
	ParentBindingID *string `json:"parent_binding_id,omitempty"`
}
