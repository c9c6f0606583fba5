// internal/services/llm_service.go
package services

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/flirlabs/flirbot/internal/config"
	"github.com/flirlabs/flirbot/internal/llm"
	"github.com/flirlabs/flirbot/internal/utils"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

var ErrLLMNotReady = errors.New("llm service not ready")

var providerDefaultModels = map[string]string{
	"groq":   "llama-3.3-70b-versatile",
	"gemini": "gemini-2.0-flash",
}

// LLMService 提供统一的大语言模型调用接口
type LLMService struct {
	providerMutex      sync.RWMutex
	provider           llm.Provider
	providerName       string
	cache              *LLMCache
	isReady            bool
	readyState         string
	activeDefaultModel string
}

type LLMCache struct {
	cache      map[string]*CacheEntry
	mutex      sync.RWMutex
	expiration time.Duration
}

type CacheEntry struct {
	Response  interface{}
	CreatedAt time.Time
}

// ChatCompletionRequest 统一的对话请求格式
type ChatCompletionRequest struct {
	Model       string                  `json:"model"`
	Messages    []ChatCompletionMessage `json:"messages"`
	Temperature float64                 `json:"temperature"`
	MaxTokens   int                     `json:"max_tokens"`
	ExtraParams map[string]interface{}  `json:"extra_params,omitempty"`
}

// ChatCompletionMessage 对话消息
type ChatCompletionMessage struct {
	Role    string
	Content string
}

// ChatCompletionResponse 对话响应
type ChatCompletionResponse struct {
	ID      string
	Choices []ChatCompletionChoice
	Usage   Usage
}

// ChatCompletionChoice 响应候选
type ChatCompletionChoice struct {
	Message      ChatCompletionMessage
	FinishReason string
}

// Usage 用量统计
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// NewLLMService 创建一个新的LLM服务
func NewLLMService() (*LLMService, error) {
	service := createBaseLLMService()

	// 尝试从配置初始化
	cfg := config.GetCurrentConfig()
	if cfg == nil {
		service.readyState = "Failed to retrieve configuration"
		return service, nil
	}

	if cfg.LLMProvider == "" || (cfg.LLMConfig != nil && cfg.LLMConfig["api_key"] == "") {
		service.readyState = "API key not configured"
		return service, nil
	}

	// 尝试初始化提供商
	provider, err := llm.GetProvider(cfg.LLMProvider, cfg.LLMConfig)
	if err != nil {
		service.readyState = fmt.Sprintf("Initialization failed: %v", err)
		return service, nil // 返回未就绪服务而不是错误
	}

	// 初始化成功
	service.provider = provider
	service.providerName = cfg.LLMProvider
	service.activeDefaultModel = extractDefaultModel(cfg.LLMConfig)
	service.isReady = true
	service.readyState = "Ready"

	return service, nil
}

// NewEmptyLLMService 创建一个空的LLM服务实例作为后备方案
func NewEmptyLLMService() *LLMService {
	service := createBaseLLMService()
	service.providerName = "empty"
	service.readyState = "Standby Service Mode – API key not configured"
	return service
}

// NewLLMServiceWithProvider 使用给定提供者创建服务，测试中注入桩提供者
func NewLLMServiceWithProvider(name string, provider llm.Provider) *LLMService {
	service := createBaseLLMService()
	service.provider = provider
	service.providerName = name
	service.isReady = true
	service.readyState = "Ready"
	return service
}

// createBaseLLMService 创建基础LLM服务实例
func createBaseLLMService() *LLMService {
	return &LLMService{
		provider:           nil,
		providerName:       "",
		isReady:            false,
		readyState:         "Uninitialized",
		activeDefaultModel: "",
		cache: &LLMCache{
			cache:      make(map[string]*CacheEntry),
			mutex:      sync.RWMutex{},
			expiration: 30 * time.Minute,
		},
	}
}

// IsReady 返回服务是否已就绪
func (s *LLMService) IsReady() bool {
	s.providerMutex.RLock()
	defer s.providerMutex.RUnlock()
	return s.provider != nil && s.isReady
}

// GetReadyState 返回服务就绪状态描述
func (s *LLMService) GetReadyState() string {
	s.providerMutex.RLock()
	defer s.providerMutex.RUnlock()

	if s.provider != nil && s.isReady {
		return "Ready"
	}
	return s.readyState
}

// GetProviderStatus 返回服务是否就绪以及可读描述
func (s *LLMService) GetProviderStatus() (bool, string) {
	if s == nil {
		return false, "LLM服务实例未初始化"
	}
	if s.IsReady() {
		return true, "Ready"
	}
	return false, s.GetReadyState()
}

// TestConnection 对底层提供商做连通性探测
func (s *LLMService) TestConnection(ctx context.Context) error {
	s.providerMutex.RLock()
	provider := s.provider
	s.providerMutex.RUnlock()

	if provider == nil {
		return ErrLLMNotReady
	}
	return provider.TestConnection(ctx)
}

// UpdateProvider 更新LLM服务的提供商
func (s *LLMService) UpdateProvider(providerName string, config map[string]string) error {
	provider, err := llm.GetProvider(providerName, config)
	if err != nil {
		s.providerMutex.Lock()
		s.isReady = false
		s.readyState = fmt.Sprintf("Configuration failed: %v", err)
		s.providerMutex.Unlock()
		return err
	}

	s.providerMutex.Lock()
	defer s.providerMutex.Unlock()

	s.provider = provider
	s.providerName = providerName
	s.activeDefaultModel = extractDefaultModel(config)
	s.isReady = true
	s.readyState = "Ready"

	// 清理缓存
	s.cache = &LLMCache{
		cache:      make(map[string]*CacheEntry),
		mutex:      sync.RWMutex{},
		expiration: 30 * time.Minute,
	}

	return nil
}

// generateCacheKey 生成缓存键
func (s *LLMService) generateCacheKey(prompt, systemPrompt, model string) string {
	s.providerMutex.RLock()
	providerName := s.providerName
	s.providerMutex.RUnlock()

	hashInput := fmt.Sprintf("%s:::%s:::%s:::%s",
		prompt, systemPrompt, model, providerName)
	h := md5.New()
	h.Write([]byte(hashInput))
	return fmt.Sprintf("%x", h.Sum(nil))
}

// getFromCache 从缓存中获取结果
func (c *LLMCache) getFromCache(key string) (interface{}, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	entry, exists := c.cache[key]
	if !exists {
		return nil, false
	}

	// 检查是否过期
	if time.Since(entry.CreatedAt) > c.expiration {
		return nil, false
	}

	return entry.Response, true
}

// saveToCache 保存结果到缓存
func (c *LLMCache) saveToCache(key string, response interface{}) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.cache[key] = &CacheEntry{
		Response:  response,
		CreatedAt: time.Now(),
	}

	// 缓存过大时清理最旧的条目
	if len(c.cache) > 1000 {
		c.cleanupOldest(100)
	}
}

// cleanupOldest 清理最旧的缓存条目
func (c *LLMCache) cleanupOldest(count int) {
	type keyAge struct {
		key string
		age time.Time
	}

	entries := make([]keyAge, 0, len(c.cache))
	for k, v := range c.cache {
		entries = append(entries, keyAge{k, v.CreatedAt})
	}

	// 按创建时间排序
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].age.Before(entries[j].age)
	})

	// 删除最旧的条目
	maxToDelete := min(count, len(entries))
	for i := 0; i < maxToDelete; i++ {
		delete(c.cache, entries[i].key)
	}
}

// CreateChatCompletion 统一的对话补全入口
func (s *LLMService) CreateChatCompletion(ctx context.Context, request ChatCompletionRequest) (ChatCompletionResponse, error) {
	s.providerMutex.RLock()
	if !s.isReady || s.provider == nil {
		state := s.readyState
		s.providerMutex.RUnlock()
		return ChatCompletionResponse{}, fmt.Errorf("%w: %s", ErrLLMNotReady, state)
	}
	provider := s.provider
	s.providerMutex.RUnlock()

	// 构建系统和用户提示
	var systemContent, userContent string
	var assistantMessages []string
	for _, msg := range request.Messages {
		switch msg.Role {
		case RoleSystem:
			systemContent = msg.Content
		case RoleUser:
			userContent = msg.Content
		case RoleAssistant:
			assistantMessages = append(assistantMessages, msg.Content)
		default:
			utils.GetLogger().Warn("Unknown message role type", map[string]interface{}{"role": msg.Role})
		}
	}

	// 助手消息历史，将其整合到用户提示中
	if len(assistantMessages) > 0 {
		conversationHistory := strings.Join(assistantMessages, "\n\n")
		userContent = fmt.Sprintf("Conversation history:\n%s\n\nCurrent user input: %s",
			conversationHistory, userContent)
	}

	// 解析需要使用的模型
	resolvedModel := s.resolveModel(request.Model)

	// 生成缓存键
	cacheKey := s.generateCacheKey(userContent, systemContent, resolvedModel)

	// 检查缓存
	if s.cache != nil {
		var cachedResult ChatCompletionResponse
		if s.checkAndUseCache(cacheKey, &cachedResult) {
			utils.GetLogger().Debug("LLM chat cache hit", map[string]interface{}{"cache_key_prefix": cacheKey[:8]})
			return cachedResult, nil
		}
	}

	// 转换请求格式
	req := llm.CompletionRequest{
		Model:        resolvedModel,
		Temperature:  float32(request.Temperature),
		MaxTokens:    request.MaxTokens,
		ExtraParams:  request.ExtraParams,
		SystemPrompt: systemContent,
		Prompt:       userContent,
	}

	// 调用实际Provider
	start := time.Now()
	resp, err := provider.CompleteText(ctx, req)
	if err != nil {
		return ChatCompletionResponse{}, err
	}
	utils.NewAPIMetrics().RecordLLMRequest(s.providerName, resolvedModel, resp.TokensUsed, time.Since(start))

	// 转换为统一响应
	result := ChatCompletionResponse{
		ID: resp.ModelName + "-" + s.providerName,
		Choices: []ChatCompletionChoice{
			{
				Message: ChatCompletionMessage{
					Role:    RoleAssistant,
					Content: resp.Text,
				},
				FinishReason: resp.FinishReason,
			},
		},
		Usage: Usage{
			PromptTokens:     resp.PromptTokens,
			CompletionTokens: resp.OutputTokens,
			TotalTokens:      resp.TokensUsed,
		},
	}

	// 保存到缓存
	if s.cache != nil {
		s.saveToCache(cacheKey, result)
	}

	return result, nil
}

// CreateStructuredCompletion 请求JSON结构化输出并解析到outputSchema
func (s *LLMService) CreateStructuredCompletion(ctx context.Context, prompt string, systemPrompt string, outputSchema interface{}) error {
	// 获取默认模型（线程安全）
	s.providerMutex.RLock()
	if !s.isReady || s.provider == nil {
		state := s.readyState
		s.providerMutex.RUnlock()
		return fmt.Errorf("%w: %s", ErrLLMNotReady, state)
	}
	provider := s.provider
	s.providerMutex.RUnlock()

	model := s.resolveModel("")

	// 生成缓存键
	cacheKey := s.generateCacheKey(prompt, systemPrompt, model)

	// 检查缓存
	if s.checkAndUseCache(cacheKey, outputSchema) {
		return nil
	}

	// 修改系统提示以请求特定格式
	structuredSystemPrompt := systemPrompt
	if systemPrompt != "" {
		structuredSystemPrompt += "\n\n"
	}
	structuredSystemPrompt += "Return your response in valid JSON format, following the provided output schema, without adding explanations or preambles."

	req := llm.CompletionRequest{
		Prompt:       prompt,
		SystemPrompt: structuredSystemPrompt,
		Temperature:  0.3,
		Model:        model,
	}

	// 调用实际Provider
	resp, err := provider.CompleteText(ctx, req)
	if err != nil {
		return err
	}

	// 尝试解析结构化输出
	text := cleanJSONString(resp.Text)

	// 解析JSON到提供的结构中
	err = json.Unmarshal([]byte(text), outputSchema)
	if err != nil {
		return fmt.Errorf("failed to parse AI response into structured data: %w\nAI return: %s", err, text)
	}

	// 保存到缓存
	s.saveToCache(cacheKey, outputSchema)

	return nil
}

// 清理JSON字符串，去除前后非JSON内容
var jsonNoiseReplacer = strings.NewReplacer(
	"```json", "",
	"```", "",
	"\ufeff", "",
	"\u00a0", " ",
	"\u2028", "\n",
	"\u2029", "\n",
)

var structuralPunctuationMap = map[rune]rune{
	'：': ':',
	'﹕': ':',
	'，': ',',
	'﹐': ',',
	'；': ';',
	'﹔': ';',
	'【': '[',
	'】': ']',
	'［': '[',
	'］': ']',
	'｛': '{',
	'｝': '}',
	'（': '(',
	'）': ')',
}

var quotePairs = map[rune]rune{
	'"': '"',
	'“': '”',
	'”': '”',
	'„': '”',
	'‟': '”',
	'「': '」',
	'」': '」',
	'『': '』',
	'﹁': '﹂',
	'﹂': '﹂',
}

func normalizeJSONStructure(s string) string {
	if s == "" {
		return s
	}

	var builder strings.Builder
	builder.Grow(len(s))
	inString := false
	escaped := false
	currentClosing := '"'

	for _, r := range s {
		if inString {
			if !escaped && r == '\\' {
				escaped = true
				builder.WriteRune(r)
				continue
			}

			if escaped {
				escaped = false
				builder.WriteRune(r)
				continue
			}

			if r == currentClosing || r == '"' {
				inString = false
				currentClosing = '"'
				builder.WriteRune('"')
				continue
			}

			builder.WriteRune(r)
			continue
		}

		if replacement, ok := structuralPunctuationMap[r]; ok {
			r = replacement
		} else if closing, ok := quotePairs[r]; ok {
			inString = true
			currentClosing = closing
			builder.WriteRune('"')
			continue
		} else if r == '"' {
			inString = true
			currentClosing = '"'
			builder.WriteRune(r)
			continue
		} else if r > unicode.MaxASCII && !unicode.IsSpace(r) {
			// 丢弃出现在字符串外的异常Unicode字符
			continue
		}

		builder.WriteRune(r)
	}

	return builder.String()
}

func cleanJSONString(s string) string {
	if s == "" {
		return s
	}

	// 统一替换常见的噪声、全角符号以及Markdown标记
	s = jsonNoiseReplacer.Replace(s)
	s = strings.TrimSpace(s)

	// 移除零宽字符及除换行/制表符外的控制字符
	s = strings.Map(func(r rune) rune {
		switch r {
		case '\u200b', '\u200c', '\u200d', '\u2060', '\ufeff':
			return -1
		}
		if unicode.IsControl(r) && r != '\n' && r != '\r' && r != '\t' {
			return -1
		}
		return r
	}, s)

	// 查找第一个 { 或 [，将其之前的内容全部丢弃
	start := strings.IndexAny(s, "[{")
	if start == -1 {
		return s
	}

	s = strings.TrimSpace(s[start:])
	if s == "" {
		return s
	}

	// 规范化JSON结构所需的标点符号，移除字符串外的异常字符
	s = normalizeJSONStructure(s)

	isArray := len(s) > 0 && s[0] == '['

	// 简单的括号计数匹配
	balance := 0
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		char := s[i]

		if escaped {
			escaped = false
			continue
		}

		if char == '\\' {
			escaped = true
			continue
		}

		if char == '"' {
			inString = !inString
			continue
		}

		if !inString {
			if isArray {
				if char == '[' {
					balance++
				} else if char == ']' {
					balance--
				}
			} else {
				if char == '{' {
					balance++
				} else if char == '}' {
					balance--
				}
			}

			if balance == 0 {
				// 找到了匹配的结束符
				return strings.TrimSpace(s[:i+1])
			}
		}
	}

	// 如果没找到匹配的结束符，回退到找最后一个结束符
	end := -1
	if isArray {
		end = strings.LastIndex(s, "]")
	} else {
		end = strings.LastIndex(s, "}")
	}

	if end != -1 {
		return strings.TrimSpace(s[:end+1])
	}

	return strings.TrimSpace(s)
}

// CleanLLMJSONResponse 提供给外部调用的JSON清洗助手
func CleanLLMJSONResponse(raw string) string {
	return cleanJSONString(raw)
}

// GetProvider 返回内部的Provider实例
func (s *LLMService) GetProvider() llm.Provider {
	s.providerMutex.RLock()
	defer s.providerMutex.RUnlock()
	return s.provider
}

// GetProviderName 返回当前LLM提供商名称
func (s *LLMService) GetProviderName() string {
	s.providerMutex.RLock()
	defer s.providerMutex.RUnlock()
	return s.providerName
}

// GetDefaultModel 获取当前配置的默认模型
func (s *LLMService) GetDefaultModel() string {
	return s.resolveModel("")
}

// resolveModel 根据请求和配置确定应使用的模型
func (s *LLMService) resolveModel(requestedModel string) string {
	if trimmed := strings.TrimSpace(requestedModel); trimmed != "" {
		return trimmed
	}

	s.providerMutex.RLock()
	provider := s.provider
	providerName := s.providerName
	activeDefault := s.activeDefaultModel
	s.providerMutex.RUnlock()

	if activeDefault != "" {
		return activeDefault
	}

	if provider != nil {
		if models := provider.GetSupportedModels(); len(models) > 0 {
			if model := strings.TrimSpace(models[0]); model != "" {
				return model
			}
		}
	}

	if cfg := config.GetCurrentConfig(); cfg != nil && cfg.LLMProvider == providerName {
		if cfg.LLMConfig != nil {
			if model := strings.TrimSpace(cfg.LLMConfig["quality_model"]); model != "" {
				return model
			}
			if model := strings.TrimSpace(cfg.LLMConfig["default_model"]); model != "" {
				return model
			}
		}
	}

	if model, exists := providerDefaultModels[providerName]; exists {
		return model
	}

	return "llama-3.3-70b-versatile"
}

func extractDefaultModel(cfg map[string]string) string {
	if cfg == nil {
		return ""
	}
	if model := strings.TrimSpace(cfg["default_model"]); model != "" {
		return model
	}
	if model := strings.TrimSpace(cfg["quality_model"]); model != "" {
		return model
	}
	return ""
}

// checkAndUseCache 统一的缓存读取方法
func (s *LLMService) checkAndUseCache(cacheKey string, outputSchema interface{}) bool {
	if s.cache == nil || outputSchema == nil {
		return false
	}

	if cachedResponse, found := s.cache.getFromCache(cacheKey); found {
		if responseBytes, ok := cachedResponse.([]byte); ok {
			if json.Unmarshal(responseBytes, outputSchema) == nil {
				utils.GetLogger().Debug("LLM cache hit", map[string]interface{}{"cache_key_prefix": cacheKey[:8]})
				return true
			}
		}
	}

	return false
}

// saveToCache 统一的缓存保存方法，序列化为JSON字节以保证类型一致
func (s *LLMService) saveToCache(cacheKey string, response interface{}) {
	if s.cache == nil {
		return
	}
	responseBytes, err := json.Marshal(response)
	if err != nil {
		utils.GetLogger().Error("Failed to serialize cached response", map[string]interface{}{"err": err})
		return
	}
	s.cache.saveToCache(cacheKey, responseBytes)
}
