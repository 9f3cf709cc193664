// internal/api/handlers.go
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Corphon/SceneWeaverMCP/internal/models"
	"github.com/Corphon/SceneWeaverMCP/internal/services"
)

// Handler 处理API请求
type Handler struct {
	SceneService        *services.SceneService        // 情景服务
	CharacterService    *services.CharacterService    // 角色服务
	ConversationService *services.ConversationService // 对话服务
	ContextService      *services.ContextService      // 上下文组装服务
	LineageService      *services.LineageService      // 谱系解析服务
	VisibilityService   *services.VisibilityService   // 可见性解析服务
	WebSocketHub        *WebSocketHub                 // WebSocket 管理器
	Response            *ResponseHelper               // 响应助手
}

// NewHandler 创建API处理器
func NewHandler(sceneService *services.SceneService, characterService *services.CharacterService,
	conversationService *services.ConversationService, contextService *services.ContextService,
	lineageService *services.LineageService, visibilityService *services.VisibilityService,
	hub *WebSocketHub) *Handler {
	return &Handler{
		SceneService:        sceneService,
		CharacterService:    characterService,
		ConversationService: conversationService,
		ContextService:      contextService,
		LineageService:      lineageService,
		VisibilityService:   visibilityService,
		WebSocketHub:        hub,
		Response:            NewResponseHelper(),
	}
}

// ========================================
// 情景处理器
// ========================================

// CreateSceneRequest 创建情景的请求结构
type CreateSceneRequest struct {
	SID        string   `json:"sid" binding:"required"`
	Name       string   `json:"name" binding:"required"`
	Summary    string   `json:"summary"`
	IsMain     bool     `json:"is_main"`
	IsRoot     bool     `json:"is_root"`
	ParentSIDs []string `json:"parent_sids"` // 可为空；非空时与这些父情景相连
}

// DeriveSceneRequest 派生情景的请求结构
type DeriveSceneRequest struct {
	SID             string   `json:"sid" binding:"required"`
	Name            string   `json:"name" binding:"required"`
	Summary         string   `json:"summary"`
	IsMain          bool     `json:"is_main"`
	CurrentSceneIDs []string `json:"current_scene_ids" binding:"required"` // 父情景，可多个（融合）
	CharacterIDs    []string `json:"character_ids"`                        // 为空时继承第一个父情景的可见角色
}

// CreateScene 创建情景
func (h *Handler) CreateScene(c *gin.Context) {
	var req CreateSceneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "请求参数无效: "+err.Error())
		return
	}

	scene, err := h.SceneService.CreateScene(c.Request.Context(), models.Scene{
		SID:     req.SID,
		Name:    req.Name,
		Summary: req.Summary,
		IsMain:  req.IsMain,
		IsRoot:  req.IsRoot,
	}, req.ParentSIDs)
	if err != nil {
		h.Response.HandleServiceError(c, err)
		return
	}
	h.Response.Created(c, scene)
}

// DeriveScene 根据当前情景派生下一个情景，可多个情景融合
func (h *Handler) DeriveScene(c *gin.Context) {
	var req DeriveSceneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "请求参数无效: "+err.Error())
		return
	}

	scene, err := h.SceneService.CreateSceneFromCurrent(c.Request.Context(), models.Scene{
		SID:     req.SID,
		Name:    req.Name,
		Summary: req.Summary,
		IsMain:  req.IsMain,
	}, req.CurrentSceneIDs, req.CharacterIDs)
	if err != nil {
		h.Response.HandleServiceError(c, err)
		return
	}
	h.Response.Created(c, scene)
}

// GetScene 获取情景详情
func (h *Handler) GetScene(c *gin.Context) {
	scene, err := h.SceneService.GetScene(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.Response.HandleServiceError(c, err)
		return
	}
	h.Response.Success(c, scene)
}

// UpdateScene 更新情景的描述性字段
func (h *Handler) UpdateScene(c *gin.Context) {
	var req struct {
		Name    string `json:"name" binding:"required"`
		Summary string `json:"summary"`
		IsMain  bool   `json:"is_main"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "请求参数无效: "+err.Error())
		return
	}

	scene, err := h.SceneService.UpdateScene(c.Request.Context(), c.Param("id"), models.Scene{
		Name:    req.Name,
		Summary: req.Summary,
		IsMain:  req.IsMain,
	})
	if err != nil {
		h.Response.HandleServiceError(c, err)
		return
	}
	h.Response.Success(c, scene)
}

// DeleteScene 删除情景及其全部角色关联
func (h *Handler) DeleteScene(c *gin.Context) {
	deleted, err := h.SceneService.DeleteScene(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.Response.HandleServiceError(c, err)
		return
	}
	if !deleted {
		h.Response.NotFound(c, "情景不存在")
		return
	}
	h.Response.Success(c, gin.H{"deleted": true})
}

// GetSceneLineage 获取情景的全部谱系链
func (h *Handler) GetSceneLineage(c *gin.Context) {
	paths, err := h.LineageService.AllAncestorPaths(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.Response.HandleServiceError(c, err)
		return
	}
	h.Response.Success(c, gin.H{"paths": paths})
}

// GetSceneGraph 导出全量情景图
func (h *Handler) GetSceneGraph(c *gin.Context) {
	graph, err := h.SceneService.SceneGraph(c.Request.Context())
	if err != nil {
		h.Response.HandleServiceError(c, err)
		return
	}
	h.Response.Success(c, graph)
}

// ========================================
// 角色与绑定处理器
// ========================================

// CharacterRequest 创建/更新角色的请求结构
type CharacterRequest struct {
	Name      string `json:"name" binding:"required"`
	Prompt    string `json:"prompt"`
	IsVisible bool   `json:"is_visible"`
}

// CreateCharacter 创建角色
func (h *Handler) CreateCharacter(c *gin.Context) {
	var req CharacterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "请求参数无效: "+err.Error())
		return
	}

	character, err := h.CharacterService.CreateCharacter(c.Request.Context(), models.Character{
		Name:      req.Name,
		Prompt:    req.Prompt,
		IsVisible: req.IsVisible,
	})
	if err != nil {
		h.Response.HandleServiceError(c, err)
		return
	}
	h.Response.Created(c, character)
}

// GetCharacter 获取角色详情
func (h *Handler) GetCharacter(c *gin.Context) {
	character, err := h.CharacterService.GetCharacter(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.Response.HandleServiceError(c, err)
		return
	}
	h.Response.Success(c, character)
}

// ListCharacters 获取全部角色
func (h *Handler) ListCharacters(c *gin.Context) {
	characters, err := h.CharacterService.ListCharacters(c.Request.Context())
	if err != nil {
		h.Response.HandleServiceError(c, err)
		return
	}
	h.Response.Success(c, characters)
}

// UpdateCharacter 更新角色
func (h *Handler) UpdateCharacter(c *gin.Context) {
	var req CharacterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "请求参数无效: "+err.Error())
		return
	}

	character, err := h.CharacterService.UpdateCharacter(c.Request.Context(), c.Param("id"), models.Character{
		Name:      req.Name,
		Prompt:    req.Prompt,
		IsVisible: req.IsVisible,
	})
	if err != nil {
		h.Response.HandleServiceError(c, err)
		return
	}
	h.Response.Success(c, character)
}

// DeleteCharacter 删除角色
func (h *Handler) DeleteCharacter(c *gin.Context) {
	deleted, err := h.CharacterService.DeleteCharacter(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.Response.HandleServiceError(c, err)
		return
	}
	if !deleted {
		h.Response.NotFound(c, "角色不存在")
		return
	}
	h.Response.Success(c, gin.H{"deleted": true})
}

// BindCharacterRequest 绑定角色到情景的请求结构
type BindCharacterRequest struct {
	CharacterID string `json:"character_id" binding:"required"`
	SortOrder   int    `json:"sort_order"`
	IsVisible   bool   `json:"is_visible"`
}

// BindCharacter 将角色绑定到情景
func (h *Handler) BindCharacter(c *gin.Context) {
	var req BindCharacterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "请求参数无效: "+err.Error())
		return
	}

	err := h.SceneService.BindCharacter(c.Request.Context(),
		req.CharacterID, c.Param("id"), req.SortOrder, req.IsVisible)
	if err != nil {
		h.Response.HandleServiceError(c, err)
		return
	}
	h.Response.Created(c, gin.H{"bound": true})
}

// UnbindCharacter 解除角色与情景的绑定
func (h *Handler) UnbindCharacter(c *gin.Context) {
	deleted, err := h.SceneService.UnbindCharacter(c.Request.Context(), c.Param("cid"), c.Param("id"))
	if err != nil {
		h.Response.HandleServiceError(c, err)
		return
	}
	if !deleted {
		h.Response.NotFound(c, "绑定不存在")
		return
	}
	h.Response.Success(c, gin.H{"deleted": true})
}

// CheckCharacterInScene 判断角色是否在情景中（不考虑可见性）
// 调用方用它做发言授权检查，不必组装整个上下文
func (h *Handler) CheckCharacterInScene(c *gin.Context) {
	inScene, err := h.VisibilityService.IsCharacterInScene(c.Request.Context(),
		c.Param("cid"), c.Param("id"))
	if err != nil {
		h.Response.HandleServiceError(c, err)
		return
	}
	h.Response.Success(c, gin.H{"in_scene": inScene})
}

// GetSceneCharacters 获取情景下的角色列表
func (h *Handler) GetSceneCharacters(c *gin.Context) {
	includeInvisible := c.DefaultQuery("include_invisible", "false") == "true"
	details, err := h.SceneService.CharactersInScene(c.Request.Context(), c.Param("id"), includeInvisible)
	if err != nil {
		h.Response.HandleServiceError(c, err)
		return
	}
	h.Response.Success(c, details)
}

// ========================================
// 对话处理器
// ========================================

// AppendTurnRequest 追加对话的请求结构
type AppendTurnRequest struct {
	SenderID string `json:"sender_id" binding:"required"`
	Role     string `json:"role" binding:"required"`
	Message  string `json:"message" binding:"required"`
}

// AppendTurn 向情景追加一轮对话并广播
func (h *Handler) AppendTurn(c *gin.Context) {
	var req AppendTurnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "请求参数无效: "+err.Error())
		return
	}

	turn, err := h.ConversationService.AppendTurn(c.Request.Context(), models.ConversationTurn{
		SceneID:  c.Param("id"),
		SenderID: req.SenderID,
		Role:     req.Role,
		Message:  req.Message,
	})
	if err != nil {
		h.Response.HandleServiceError(c, err)
		return
	}

	h.WebSocketHub.BroadcastToScene(turn.SceneID, gin.H{
		"type": "turn_appended",
		"turn": turn,
	})
	h.Response.Created(c, turn)
}

// PatchTurn 补写对话的最终文本
func (h *Handler) PatchTurn(c *gin.Context) {
	var req struct {
		Message string `json:"message" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "请求参数无效: "+err.Error())
		return
	}

	turn, err := h.ConversationService.PatchTurn(c.Request.Context(), c.Param("id"), req.Message)
	if err != nil {
		h.Response.HandleServiceError(c, err)
		return
	}
	h.Response.Success(c, turn)
}

// GetSceneTurns 获取情景下的全部对话
func (h *Handler) GetSceneTurns(c *gin.Context) {
	turns, err := h.ConversationService.TurnsForScene(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.Response.HandleServiceError(c, err)
		return
	}
	h.Response.Success(c, turns)
}

// ========================================
// 上下文组装处理器
// ========================================

// BuildContextRequest 组装模型上下文的请求结构
type BuildContextRequest struct {
	SceneID                string `json:"scene_id" binding:"required"`
	ActingCharacterID      string `json:"acting_character_id" binding:"required"` // 模型扮演的角色
	UserCharacterID        string `json:"user_character_id" binding:"required"`   // 用户扮演的角色
	RestrictToCurrentScene bool   `json:"restrict_to_current_scene"`
	AnnotateRoleSwitch     bool   `json:"annotate_role_switch"` // 发送者变化时插入系统提示
}

// BuildContext 组装一次对话轮交给模型的消息序列
func (h *Handler) BuildContext(c *gin.Context) {
	var req BuildContextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "请求参数无效: "+err.Error())
		return
	}

	var formatter services.HistoryFormatter
	if req.AnnotateRoleSwitch {
		formatter = services.RoleSwitchHistoryFormatter
	}

	messages, err := h.ContextService.BuildContext(c.Request.Context(),
		req.SceneID, req.ActingCharacterID, req.UserCharacterID,
		req.RestrictToCurrentScene, formatter, nil)
	if err != nil {
		h.Response.HandleServiceError(c, err)
		return
	}
	h.Response.Success(c, gin.H{"messages": messages})
}

// HealthCheck 健康检查
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
