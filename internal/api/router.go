// internal/api/router.go
package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/flirlabs/flirbot/internal/config"
	"github.com/flirlabs/flirbot/internal/di"
	"github.com/flirlabs/flirbot/internal/services"
	"github.com/flirlabs/flirbot/internal/transport"
)

// SetupRouter 配置HTTP路由
func SetupRouter() (*gin.Engine, error) {
	cfg := config.GetCurrentConfig()

	// 只从容器获取服务，不再创建新实例
	container := di.GetContainer()

	sessionService, ok := container.Get("session").(*services.SessionService)
	if !ok {
		return nil, fmt.Errorf("会话服务未正确初始化")
	}

	characterService, ok := container.Get("character").(*services.CharacterService)
	if !ok {
		return nil, fmt.Errorf("角色服务未正确初始化")
	}

	scenarioService, ok := container.Get("scenario").(*services.ScenarioService)
	if !ok {
		return nil, fmt.Errorf("场景服务未正确初始化")
	}

	llmService, ok := container.Get("llm").(*services.LLMService)
	if !ok {
		return nil, fmt.Errorf("LLM服务未正确初始化")
	}

	hub, ok := container.Get("hub").(*transport.WebSocketHub)
	if !ok {
		return nil, fmt.Errorf("WebSocket管理器未正确初始化")
	}

	handler := NewHandler(sessionService, characterService, scenarioService, llmService, hub)

	if !cfg.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()

	// 启用CORS和请求追踪
	r.Use(corsMiddleware())
	r.Use(requestIDMiddleware())

	// WebSocket 支持
	r.GET("/ws/sessions/:user_id", handler.SessionWebSocket)

	// ===============================
	// API路由组
	// ===============================
	api := r.Group("/api")
	api.Use(DefaultRateLimit())
	{
		// 角色目录
		charactersGroup := api.Group("/characters")
		{
			charactersGroup.GET("", handler.ListCharacters)
			charactersGroup.GET("/:id", handler.GetCharacter)
		}

		// 场景目录
		scenariosGroup := api.Group("/scenarios")
		{
			scenariosGroup.GET("", handler.ListScenarios)
			scenariosGroup.GET("/:id", handler.GetScenario)
		}

		// 会话生命周期
		sessionsGroup := api.Group("/sessions")
		{
			sessionsGroup.POST("", handler.CreateSession)
			sessionsGroup.GET("/:user_id", handler.GetSession)
			sessionsGroup.DELETE("/:user_id", handler.DeleteSession)
			sessionsGroup.POST("/:user_id/messages", MessageRateLimit(), handler.SendMessage)
		}

		// 服务状态
		api.GET("/status", handler.GetStatus)
	}

	return r, nil
}

// corsMiddleware 实现跨域资源共享
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// requestIDMiddleware 为每个请求生成追踪ID
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}
