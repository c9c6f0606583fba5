// internal/app/app.go
package app

import (
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/flirlabs/flirbot/internal/config"
	"github.com/flirlabs/flirbot/internal/di"
	"github.com/flirlabs/flirbot/internal/services"
	"github.com/flirlabs/flirbot/internal/storage"
	"github.com/flirlabs/flirbot/internal/transport"
	"github.com/flirlabs/flirbot/internal/utils"

	_ "github.com/flirlabs/flirbot/internal/llm/providers/gemini"
	_ "github.com/flirlabs/flirbot/internal/llm/providers/groq"
)

// InitLogger 初始化日志系统，日志文件按天命名
func InitLogger(logDir string) error {
	logFile := filepath.Join(logDir, fmt.Sprintf("flirbot_%s.log", time.Now().Format("2006-01-02")))
	return utils.InitLogger(logFile)
}

// InitServices 按依赖顺序初始化所有服务并注册到容器
func InitServices() error {
	cfg := config.GetCurrentConfig()
	container := di.GetContainer()

	// 1. LLM服务，未配置密钥时降级为空服务
	llmService, err := services.NewLLMService()
	if err != nil {
		log.Printf("⚠️ LLM服务初始化失败，使用空服务: %v", err)
		llmService = services.NewEmptyLLMService()
	}
	container.Register("llm", llmService)

	// 2. 角色目录，支持YAML覆盖
	characterService, err := services.NewCharacterService(filepath.Join(cfg.ContentDir, "characters"))
	if err != nil {
		return fmt.Errorf("初始化角色服务失败: %w", err)
	}
	container.Register("character", characterService)

	// 3. 场景目录
	scenarioService := services.NewScenarioService()
	container.Register("scenario", scenarioService)

	// 4. 会话存储
	store, err := storage.NewSQLiteSessionStore(filepath.Join(cfg.DataDir, "sessions.db"))
	if err != nil {
		return fmt.Errorf("初始化会话存储失败: %w", err)
	}
	container.Register("store", store)

	// 5. WebSocket 管理器
	hub := transport.NewWebSocketHub()
	container.Register("hub", hub)

	// 6. 情绪推断与提示词构建
	moodService := services.NewMoodService(
		llmService,
		time.Duration(cfg.LLMTimeoutSeconds)*time.Second,
		cfg.MoodInferenceEnabled,
	)
	container.Register("mood", moodService)

	composer := services.NewPromptComposer(services.NewBehaviorRuleEngine())
	container.Register("composer", composer)

	// 7. 响应投递管线
	pipeline := services.NewDeliveryPipeline(
		llmService,
		moodService,
		composer,
		characterService,
		scenarioService,
		store,
		hub,
		cfg.DeliveryMaxAttempts,
		cfg.MaxConversationTurns,
	)
	container.Register("pipeline", pipeline)

	// 8. 会话服务
	sessionService := services.NewSessionService(
		store,
		scenarioService,
		characterService,
		pipeline,
		cfg.MaxConversationTurns,
	)
	container.Register("session", sessionService)

	return nil
}

// ShutdownServices 释放容器中持有外部资源的服务
func ShutdownServices() {
	container := di.GetContainer()

	if hub, ok := container.Get("hub").(*transport.WebSocketHub); ok && hub != nil {
		hub.Shutdown()
	}
	if store, ok := container.Get("store").(storage.SessionStore); ok && store != nil {
		if err := store.Close(); err != nil {
			log.Printf("⚠️ 关闭会话存储失败: %v", err)
		}
	}
}
