// internal/models/conversation.go
package models

import "time"

// 对话与上下文消息共用的角色取值
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ConversationTurn 表示情景内的一轮对话
// 按情景追加写入；只允许为流式输出的占位记录补写最终文本
type ConversationTurn struct {
	ID        string    `json:"id"`
	SceneID   string    `json:"scene_id"`
	SenderID  string    `json:"sender_id"`
	Role      string    `json:"role"` // user 或 assistant
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// ChatMessage 交给模型调用方的单条消息
type ChatMessage struct {
	Role    string `json:"role"` // system、user 或 assistant
	Content string `json:"content"`
}
