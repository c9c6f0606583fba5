// internal/services/mood_service.go
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/flirlabs/flirbot/internal/models"
	"github.com/flirlabs/flirbot/internal/utils"
)

// MoodInference 一次情绪推断的结果。
// Updated 为 false 表示推断调用失败，角色保持原状态，不写历史。
type MoodInference struct {
	Mood      models.CharacterMood
	Intensity float64
	Reason    string
	Triggers  []string
	Updated   bool
}

// moodInferenceSchema LLM结构化输出的解析目标
type moodInferenceSchema struct {
	Mood            string   `json:"mood"`
	Intensity       *float64 `json:"intensity"`
	Reason          string   `json:"reason"`
	TriggerKeywords []string `json:"trigger_keywords"`
}

// MoodService 基于LLM推断角色情绪。
// 推断永不向上抛错：任何失败都收敛为保持当前情绪。
type MoodService struct {
	llmService *LLMService
	timeout    time.Duration
	enabled    bool
}

// NewMoodService 创建情绪推断服务
func NewMoodService(llmService *LLMService, timeout time.Duration, enabled bool) *MoodService {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &MoodService{
		llmService: llmService,
		timeout:    timeout,
		enabled:    enabled,
	}
}

// InferMood 根据用户消息推断角色的新情绪。
// 调用失败时返回 Updated=false（保持原状态）；
// 结果无法解析时保持原情绪和强度，reason 记为 "inference parse failure"。
func (s *MoodService) InferMood(
	ctx context.Context,
	character *models.Character,
	state *models.MoodState,
	userMessage string,
	history []models.ConversationEntry,
	scenarioContext string,
) MoodInference {
	retained := MoodInference{
		Mood:      state.Current,
		Intensity: state.Intensity,
		Reason:    state.Reason,
		Triggers:  state.TriggerKeywords,
		Updated:   false,
	}

	if !s.enabled || s.llmService == nil || !s.llmService.IsReady() {
		return retained
	}

	prompt := s.buildInferencePrompt(character, state, userMessage, history, scenarioContext)

	inferCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.llmService.CreateChatCompletion(inferCtx, ChatCompletionRequest{
		Model: "fast",
		Messages: []ChatCompletionMessage{
			{Role: RoleSystem, Content: "You are a psychological AI that analyzes character emotions. Respond only with valid JSON."},
			{Role: RoleUser, Content: prompt},
		},
		Temperature: 0.3,
		MaxTokens:   300,
	})
	if err != nil {
		utils.GetLogger().Error("情绪推断调用失败，保持当前情绪", map[string]interface{}{
			"character": character.ID,
			"mood":      string(state.Current),
			"err":       err.Error(),
		})
		return retained
	}

	if len(resp.Choices) == 0 {
		return s.parseFailure(character, state)
	}

	var schema moodInferenceSchema
	text := CleanLLMJSONResponse(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(text), &schema); err != nil {
		return s.parseFailure(character, state)
	}

	mood, ok := models.ParseMood(strings.ToLower(strings.TrimSpace(schema.Mood)))
	if !ok {
		return s.parseFailure(character, state)
	}

	intensity := models.DefaultMoodIntensity
	if schema.Intensity != nil {
		intensity = models.ClampIntensity(*schema.Intensity)
	}

	triggers := schema.TriggerKeywords
	if triggers == nil {
		triggers = []string{}
	}

	utils.GetLogger().Info("情绪推断完成", map[string]interface{}{
		"character": character.ID,
		"from":      string(state.Current),
		"to":        string(mood),
		"intensity": intensity,
	})

	return MoodInference{
		Mood:      mood,
		Intensity: intensity,
		Reason:    schema.Reason,
		Triggers:  triggers,
		Updated:   true,
	}
}

// parseFailure 解析失败：保持原情绪和强度，仅替换原因说明
func (s *MoodService) parseFailure(character *models.Character, state *models.MoodState) MoodInference {
	utils.GetLogger().Warn("情绪推断结果无法解析，保持当前情绪", map[string]interface{}{
		"character": character.ID,
		"mood":      string(state.Current),
	})
	return MoodInference{
		Mood:      state.Current,
		Intensity: state.Intensity,
		Reason:    "inference parse failure",
		Triggers:  []string{},
		Updated:   true,
	}
}

// buildInferencePrompt 构造情绪分析提示词
func (s *MoodService) buildInferencePrompt(
	character *models.Character,
	state *models.MoodState,
	userMessage string,
	history []models.ConversationEntry,
	scenarioContext string,
) string {
	moodNames := make([]string, 0, 17)
	for _, m := range models.AllMoods() {
		moodNames = append(moodNames, string(m))
	}

	traits := character.Personality
	if len(traits) > 5 {
		traits = traits[:5]
	}

	background := truncateRunes(character.Background, 300)
	scenarioContext = truncateRunes(scenarioContext, 400)

	return fmt.Sprintf(`You are analyzing how %s would emotionally respond to what the user just said.

CHARACTER PROFILE:
- Name: %s
- Personality: %s
- Communication Style: %s
- Biography: %s
- Current Mood: Currently feeling: %s (intensity: %g)

SCENARIO CONTEXT:
%s

RECENT CONVERSATION:
%s

USER'S LATEST MESSAGE:
"%s"

Based on %s's personality and what the user just said, determine:
1. What MOOD would %s feel right now?
2. How INTENSE is this emotion (0.0 to 1.0)?
3. WHY does %s feel this way?
4. What KEYWORDS in the user's message triggered this mood?

Available moods: %s

IMPORTANT CHARACTER-SPECIFIC CONSIDERATIONS:
- If %s has aggressive traits (demanding, intimidating, bullying), they escalate to anger QUICKLY
- If %s has manipulative traits, they may feel calculating or manipulative when challenged
- If %s has empathetic traits, they soften when users show vulnerability
- Consider the TRAJECTORY: Is the user making things better or worse?

RESPOND ONLY WITH VALID JSON in this exact format:
{
    "mood": "one_of_the_available_moods",
    "intensity": 0.7,
    "reason": "Brief explanation of why they feel this way based on user's message",
    "trigger_keywords": ["keyword1", "keyword2"]
}

CRITICAL: Consider %s's personality - aggressive characters get angry faster, empathetic characters soften more easily.`,
		character.Name,
		character.Name,
		strings.Join(traits, ", "),
		character.CommunicationStyle,
		background,
		state.Current, state.Intensity,
		scenarioContext,
		formatRecentConversation(history),
		userMessage,
		character.Name, character.Name, character.Name,
		strings.Join(moodNames, ", "),
		character.Name, character.Name, character.Name,
		character.Name,
	)
}

// truncateRunes 按字符数截断，不切断多字节字符
func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit]) + "..."
}

// formatRecentConversation 格式化最近的对话上下文（最后6条）
func formatRecentConversation(history []models.ConversationEntry) string {
	if len(history) == 0 {
		return "No prior conversation"
	}

	if len(history) > 6 {
		history = history[len(history)-6:]
	}

	lines := make([]string, 0, len(history))
	for _, entry := range history {
		if entry.IsNotice {
			continue
		}
		if entry.Speaker == models.SpeakerUser {
			lines = append(lines, "USER: "+entry.Content)
		} else {
			lines = append(lines, entry.SpeakerName+": "+entry.Content)
		}
	}

	if len(lines) == 0 {
		return "No prior conversation"
	}
	return strings.Join(lines, "\n")
}
