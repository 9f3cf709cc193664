// internal/api/router.go
package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Corphon/SceneWeaverMCP/internal/config"
	"github.com/Corphon/SceneWeaverMCP/internal/di"
	"github.com/Corphon/SceneWeaverMCP/internal/services"
)

// SetupRouter 配置HTTP路由
func SetupRouter() (*gin.Engine, error) {
	cfg := config.GetCurrentConfig()

	// 获取依赖注入容器
	container := di.GetContainer()

	// ✅ 只从容器获取服务，不再创建新实例
	sceneService, ok := container.Get("scene").(*services.SceneService)
	if !ok {
		return nil, fmt.Errorf("情景服务未正确初始化")
	}

	characterService, ok := container.Get("character").(*services.CharacterService)
	if !ok {
		return nil, fmt.Errorf("角色服务未正确初始化")
	}

	conversationService, ok := container.Get("conversation").(*services.ConversationService)
	if !ok {
		return nil, fmt.Errorf("对话服务未正确初始化")
	}

	contextService, ok := container.Get("context").(*services.ContextService)
	if !ok {
		return nil, fmt.Errorf("上下文服务未正确初始化")
	}

	lineageService, ok := container.Get("lineage").(*services.LineageService)
	if !ok {
		return nil, fmt.Errorf("谱系服务未正确初始化")
	}

	visibilityService, ok := container.Get("visibility").(*services.VisibilityService)
	if !ok {
		return nil, fmt.Errorf("可见性服务未正确初始化")
	}

	logger, ok := container.Get("logger").(*zap.Logger)
	if !ok {
		return nil, fmt.Errorf("日志器未正确初始化")
	}

	hub := NewWebSocketHub(logger)

	// ✅ 创建API处理器 - 只传递从容器获取的服务
	handler := NewHandler(
		sceneService,
		characterService,
		conversationService,
		contextService,
		lineageService,
		visibilityService,
		hub,
	)

	if !cfg.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}

	// 创建路由
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(logger))

	// 启用CORS
	r.Use(corsMiddleware())

	// WebSocket 支持
	r.GET("/ws/scenes/:id", hub.SceneWebSocket)

	// ===============================
	// API路由组
	// ===============================
	api := r.Group("/api")
	{
		api.GET("/health", handler.HealthCheck)

		// 上下文组装端点
		api.POST("/context", handler.BuildContext)

		// 全量情景图导出
		api.GET("/graph", handler.GetSceneGraph)

		// ===============================
		// 情景相关路由
		// ===============================
		scenesGroup := api.Group("/scenes")
		{
			scenesGroup.POST("", handler.CreateScene)
			scenesGroup.POST("/derive", handler.DeriveScene)
			scenesGroup.GET("/:id", handler.GetScene)
			scenesGroup.PUT("/:id", handler.UpdateScene)
			scenesGroup.DELETE("/:id", handler.DeleteScene)
			scenesGroup.GET("/:id/lineage", handler.GetSceneLineage)
			scenesGroup.GET("/:id/characters", handler.GetSceneCharacters)
			scenesGroup.POST("/:id/characters", handler.BindCharacter)
			scenesGroup.GET("/:id/characters/:cid", handler.CheckCharacterInScene)
			scenesGroup.DELETE("/:id/characters/:cid", handler.UnbindCharacter)
			scenesGroup.GET("/:id/conversations", handler.GetSceneTurns)
			scenesGroup.POST("/:id/conversations", handler.AppendTurn)
		}

		// ===============================
		// 角色相关路由
		// ===============================
		charactersGroup := api.Group("/characters")
		{
			charactersGroup.GET("", handler.ListCharacters)
			charactersGroup.POST("", handler.CreateCharacter)
			charactersGroup.GET("/:id", handler.GetCharacter)
			charactersGroup.PUT("/:id", handler.UpdateCharacter)
			charactersGroup.DELETE("/:id", handler.DeleteCharacter)
		}

		// ===============================
		// 对话相关路由
		// ===============================
		conversationsGroup := api.Group("/conversations")
		{
			conversationsGroup.PUT("/:id", handler.PatchTurn)
		}
	}

	return r, nil
}
