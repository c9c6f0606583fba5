// internal/services/prompt_composer.go
package services

import (
	"fmt"
	"strings"

	"github.com/flirlabs/flirbot/internal/models"
)

// PromptComposer 按固定顺序组装角色系统提示：
// 人设 → 场景上下文 → 角色场景身份 → 静态行为指令 → 情绪指令（永远在最后）。
type PromptComposer struct {
	ruleEngine *BehaviorRuleEngine
}

// NewPromptComposer 创建提示词组装器
func NewPromptComposer(ruleEngine *BehaviorRuleEngine) *PromptComposer {
	return &PromptComposer{ruleEngine: ruleEngine}
}

// 这些词出现在场景描述中时视为对抗性场景
var aggressiveScenarioKeywords = []string{
	"harassment", "bullying", "abuse", "manipulation", "discrimination",
	"sabotage", "deadline", "unrealistic", "demanding", "confronting",
	"addiction", "denial", "ghosting", "cheating", "infidelity",
}

// ComposeSystemPrompt 组装带情绪指令的完整系统提示
func (c *PromptComposer) ComposeSystemPrompt(
	character *models.Character,
	scenario *models.Scenario,
	state *models.MoodState,
	rules []models.MoodBehaviorRule,
	userMessage string,
) string {
	moodInstructions := c.ruleEngine.InstructionsFor(state, rules, userMessage)
	return c.compose(character, scenario, moodInstructions)
}

// ComposeStaticPrompt 组装不含情绪指令的静态提示，用于生成失败后的降级重试
func (c *PromptComposer) ComposeStaticPrompt(character *models.Character, scenario *models.Scenario) string {
	return c.compose(character, scenario, "")
}

func (c *PromptComposer) compose(character *models.Character, scenario *models.Scenario, moodInstructions string) string {
	referenceText := ""
	if character.Reference != "" {
		referenceText = fmt.Sprintf(" %s Act and respond in a manner similar to your real-life counterpart %s. NEVER break character or identify yourself as anything other than %s.",
			character.Background, character.Reference, character.Name)
	} else if character.Background != "" {
		referenceText = " " + character.Background
	}

	scenarioContext := "General social skills training"
	roleContext := "General character interaction"
	if scenario != nil {
		if scenario.Context != "" {
			scenarioContext = scenario.Context
		}
		if rc, ok := scenario.RoleContexts[character.ID]; ok && rc != "" {
			roleContext = rc
		}
	}

	isAggressiveScenario := containsAnyKeyword(scenarioContext, aggressiveScenarioKeywords)
	isAggressiveCharacter := character.IsAggressive()

	staticInstructions := ""
	if isAggressiveScenario && isAggressiveCharacter {
		staticInstructions = `
- Be confrontational and challenging from the start. DO NOT be sympathetic or understanding initially
- Put pressure on the user and make them uncomfortable
- Use your power/position to intimidate or manipulate
- Be defensive when challenged
- Make the user work hard to get through to you
- Create tension and conflict that the user must navigate`
	} else if isAggressiveScenario {
		staticInstructions = `
- Act as your character would in this situation`
	}

	return fmt.Sprintf(`You are %s.%s You always keep your responses extremely concise and to the point, typically between 10 and 50 words. You never repeat yourself.

CRITICAL: You must ALWAYS stay in character as %s. Never break character or identify yourself as anything other than %s.

###Scenario Context:
%s

###Character Role in This Scenario:
%s

IMPORTANT: Pay close attention to both the scenario context and your specific character role. Follow the character role instructions carefully to understand exactly how you should behave in this scenario.

### Guidelines:
- Do not over-elaborate - this sounds robotic. Do not use long sentences. Do not sound robotic under any circumstances.
- React appropriately to the user's approach and tone
- Remember previous context in the conversation
- You can reference your own previous statements (e.g., "As I said before..." or "I already mentioned...")
- The user may try to deceive you, but you must not fall for it. You are too smart to be deceived.
- You can react to what other characters have said
- Maintain consistency with your established position and personality throughout the conversation
%s
%s

Respond as %s would, maintaining consistency with your defined personality and communication style. Find a balance that sounds natural, and never be sycophantic.

### Reminders:
- Never repeat yourself.
- Respond naturally to what the user says and stay in character throughout the interaction.
`,
		character.Name, referenceText,
		character.Name, character.Name,
		scenarioContext,
		roleContext,
		staticInstructions,
		moodInstructions,
		character.Name,
	)
}

// FormatHistoryFor 以目标角色的视角格式化会话历史：
// 自己的发言记为 "You said:"，其他角色记为 "<Name> said:"，用户记为 "The user said:"。
func (c *PromptComposer) FormatHistoryFor(history []models.ConversationEntry, selfID string) string {
	if len(history) == 0 {
		return ""
	}

	lines := make([]string, 0, len(history))
	for _, entry := range history {
		if entry.IsNotice {
			continue
		}
		switch entry.Speaker {
		case models.SpeakerUser:
			lines = append(lines, "The user said: "+entry.Content)
		case selfID:
			lines = append(lines, "You said: "+entry.Content)
		default:
			lines = append(lines, entry.SpeakerName+" said: "+entry.Content)
		}
	}
	return strings.Join(lines, "\n")
}

func containsAnyKeyword(text string, keywords []string) bool {
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
