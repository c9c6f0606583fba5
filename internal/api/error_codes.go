// internal/api/error_codes.go
package api

// API错误代码常量
const (
	// 通用错误
	ErrorBadRequest    = "BAD_REQUEST"
	ErrorNotFound      = "NOT_FOUND"
	ErrorInternalError = "INTERNAL_ERROR"
	ErrorConflict      = "CONFLICT"

	// 会话相关错误
	ErrorSessionNotFound  = "SESSION_NOT_FOUND"
	ErrorSessionCompleted = "SESSION_COMPLETED"
	ErrorSessionBusy      = "SESSION_BUSY"

	// 场景相关错误
	ErrorScenarioNotFound = "SCENARIO_NOT_FOUND"

	// 角色相关错误
	ErrorCharacterNotFound = "CHARACTER_NOT_FOUND"

	// LLM服务相关错误
	ErrorLLMServiceUnavailable = "LLM_SERVICE_UNAVAILABLE"
	ErrorGenerationFailed      = "GENERATION_FAILED"

	// 投递相关错误
	ErrorDeliveryFailed = "DELIVERY_FAILED"
)
