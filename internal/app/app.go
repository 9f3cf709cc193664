// internal/app/app.go
package app

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Corphon/SceneWeaverMCP/internal/config"
	"github.com/Corphon/SceneWeaverMCP/internal/di"
	"github.com/Corphon/SceneWeaverMCP/internal/services"
	"github.com/Corphon/SceneWeaverMCP/internal/store"
	"github.com/Corphon/SceneWeaverMCP/internal/store/memory"
	"github.com/Corphon/SceneWeaverMCP/internal/store/sqlite"
)

// Stores 一次装配选定的四个存储后端
type Stores struct {
	Scenes        store.SceneGraphStore
	Bindings      store.CharacterBindingStore
	Conversations store.ConversationStore
	Characters    store.CharacterStore

	closer func() error
}

// Close 释放底层存储资源
func (s *Stores) Close() error {
	if s.closer != nil {
		return s.closer()
	}
	return nil
}

// InitServices 按依赖顺序初始化所有服务并注册到容器
// 存储后端在这里选定一次：默认 sqlite，DBPath 为 ":memory:" 时用内存实现
func InitServices(cfg *config.Config) (*Stores, error) {
	logger, err := newLogger(cfg.DebugMode)
	if err != nil {
		return nil, fmt.Errorf("初始化日志失败: %w", err)
	}

	stores, err := openStores(cfg)
	if err != nil {
		return nil, err
	}

	visibilityService := services.NewVisibilityService(stores.Bindings)
	lineageService := services.NewLineageService(stores.Scenes)
	historyService := services.NewHistoryService(visibilityService, stores.Characters, stores.Conversations)
	contextService := services.NewContextService(lineageService, visibilityService, historyService, stores.Characters)
	sceneService := services.NewSceneService(stores.Scenes, stores.Bindings, stores.Characters, visibilityService)
	characterService := services.NewCharacterService(stores.Characters)
	conversationService := services.NewConversationService(stores.Conversations, stores.Characters, visibilityService)

	container := di.GetContainer()
	container.Register("logger", logger)
	container.Register("lineage", lineageService)
	container.Register("visibility", visibilityService)
	container.Register("history", historyService)
	container.Register("context", contextService)
	container.Register("scene", sceneService)
	container.Register("character", characterService)
	container.Register("conversation", conversationService)

	logger.Info("服务初始化完成",
		zap.String("db_path", cfg.DBPath),
		zap.Int("services", len(container.GetNames())))
	return stores, nil
}

func openStores(cfg *config.Config) (*Stores, error) {
	if cfg.DBPath == ":memory:" {
		return &Stores{
			Scenes:        memory.NewSceneGraphStore(),
			Bindings:      memory.NewCharacterBindingStore(),
			Conversations: memory.NewConversationStore(),
			Characters:    memory.NewCharacterStore(),
		}, nil
	}

	db, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("打开存储失败: %w", err)
	}
	return &Stores{
		Scenes:        db,
		Bindings:      db,
		Conversations: db,
		Characters:    db,
		closer:        db.Close,
	}, nil
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
