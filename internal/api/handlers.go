// internal/api/handlers.go
package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/flirlabs/flirbot/internal/services"
	"github.com/flirlabs/flirbot/internal/transport"
	"github.com/flirlabs/flirbot/internal/utils"
)

// Handler 处理API请求
type Handler struct {
	SessionService   *services.SessionService   // 会话服务
	CharacterService *services.CharacterService // 角色服务
	ScenarioService  *services.ScenarioService  // 场景服务
	LLMService       *services.LLMService       // LLM服务
	Hub              *transport.WebSocketHub    // WebSocket 管理器
	Response         *ResponseHelper            // 响应助手
}

// NewHandler 创建API处理器
func NewHandler(
	sessionService *services.SessionService,
	characterService *services.CharacterService,
	scenarioService *services.ScenarioService,
	llmService *services.LLMService,
	hub *transport.WebSocketHub,
) *Handler {
	return &Handler{
		SessionService:   sessionService,
		CharacterService: characterService,
		ScenarioService:  scenarioService,
		LLMService:       llmService,
		Hub:              hub,
		Response:         NewResponseHelper(),
	}
}

// APIResponse 标准API响应格式
type APIResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     *APIError   `json:"error,omitempty"`
	Message   string      `json:"message,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	RequestID string      `json:"request_id,omitempty"` // 用于调试和追踪
}

// APIError 标准错误格式
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// CreateSessionRequest 创建会话的请求结构
type CreateSessionRequest struct {
	UserID     string `json:"user_id"`     // 可选，为空时自动生成
	ScenarioID string `json:"scenario_id"` // 训练场景ID
}

// SendMessageRequest 发送消息的请求结构
type SendMessageRequest struct {
	Message string `json:"message"` // 用户消息内容
}

// ------------------------------------------------
// 角色相关
// ------------------------------------------------

// ListCharacters 返回全部可用角色
func (h *Handler) ListCharacters(c *gin.Context) {
	characters := h.CharacterService.ListCharacters()
	h.Response.Success(c, characters)
}

// GetCharacter 返回单个角色
func (h *Handler) GetCharacter(c *gin.Context) {
	character, err := h.CharacterService.GetCharacter(c.Param("id"))
	if err != nil {
		h.Response.NotFound(c, "character", err.Error())
		return
	}
	h.Response.Success(c, character)
}

// ------------------------------------------------
// 场景相关
// ------------------------------------------------

// ListScenarios 返回场景列表，支持按类型过滤
func (h *Handler) ListScenarios(c *gin.Context) {
	scenarios := h.ScenarioService.ListScenarios(c.Query("type"))
	h.Response.Success(c, scenarios)
}

// GetScenario 返回单个场景
func (h *Handler) GetScenario(c *gin.Context) {
	scenario, err := h.ScenarioService.GetScenario(c.Param("id"))
	if err != nil {
		h.Response.NotFound(c, "scenario", err.Error())
		return
	}
	h.Response.Success(c, scenario)
}

// ------------------------------------------------
// 会话相关
// ------------------------------------------------

// CreateSession 创建训练会话
func (h *Handler) CreateSession(c *gin.Context) {
	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "请求格式错误", err.Error())
		return
	}
	if req.ScenarioID == "" {
		h.Response.BadRequest(c, "scenario_id 不能为空")
		return
	}

	session, err := h.SessionService.CreateSession(c.Request.Context(), req.UserID, req.ScenarioID)
	if err != nil {
		h.Response.FromAppError(c, err)
		return
	}
	h.Response.Created(c, session, "会话已创建")
}

// GetSession 读取会话
func (h *Handler) GetSession(c *gin.Context) {
	session, err := h.SessionService.GetSession(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		h.Response.FromAppError(c, err)
		return
	}
	h.Response.Success(c, session)
}

// DeleteSession 删除会话
func (h *Handler) DeleteSession(c *gin.Context) {
	if err := h.SessionService.DeleteSession(c.Request.Context(), c.Param("user_id")); err != nil {
		h.Response.FromAppError(c, err)
		return
	}
	h.Response.Success(c, nil, "会话已删除")
}

// SendMessage 处理用户消息并返回本轮所有角色的投递结果
func (h *Handler) SendMessage(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, "请求格式错误", err.Error())
		return
	}

	result, err := h.SessionService.SendMessage(c.Request.Context(), c.Param("user_id"), req.Message)
	if err != nil {
		h.Response.FromAppError(c, err)
		return
	}
	h.Response.Success(c, result)
}

// SessionWebSocket 为会话建立 WebSocket 连接
func (h *Handler) SessionWebSocket(c *gin.Context) {
	userID := c.Param("user_id")
	if userID == "" {
		h.Response.BadRequest(c, "user_id 不能为空")
		return
	}
	if err := h.Hub.HandleConnection(c.Writer, c.Request, userID); err != nil {
		h.Response.InternalError(c, err.Error())
	}
}

// ------------------------------------------------
// 服务状态
// ------------------------------------------------

// GetStatus 返回服务整体状态
func (h *Handler) GetStatus(c *gin.Context) {
	ready, state := h.LLMService.GetProviderStatus()

	h.Response.Success(c, gin.H{
		"llm": gin.H{
			"ready":    ready,
			"state":    state,
			"provider": h.LLMService.GetProviderName(),
		},
		"websocket": h.Hub.Status(),
		"metrics":   utils.GetMetricsCollector().GetMetrics(),
	})
}
