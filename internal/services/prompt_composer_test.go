// internal/services/prompt_composer_test.go
package services

import (
	"strings"
	"testing"

	"github.com/flirlabs/flirbot/internal/models"
)

func testComposer() *PromptComposer {
	return NewPromptComposer(NewBehaviorRuleEngine())
}

func testMarcus() *models.Character {
	return &models.Character{
		ID:          "marcus",
		Name:        "Marcus",
		Role:        "boss",
		Personality: []string{"aggressive", "demanding"},
		Background:  "A results-driven executive.",
		Reference:   "a hard-charging startup boss",
	}
}

func testDeadlineScenario() *models.Scenario {
	return &models.Scenario{
		ID:      "workplace_deadline",
		Title:   "Unrealistic Deadline",
		Context: "Your boss has moved the deadline up by two weeks.",
		RoleContexts: map[string]string{
			"marcus": "You are the boss who moved the deadline up.",
		},
	}
}

// TestComposeSystemPromptStructure 校验提示词的组成部分和顺序
func TestComposeSystemPromptStructure(t *testing.T) {
	composer := testComposer()
	state := models.NewMoodState(models.MoodNeutral)
	state.UpdateMood(models.MoodAngry, 0.8, "excuses", nil)

	out := composer.ComposeSystemPrompt(testMarcus(), testDeadlineScenario(), state, DefaultMoodRules(), "that's my excuse")

	wantPieces := []string{
		"You are Marcus.",
		"NEVER break character or identify yourself as anything other than Marcus.",
		"###Scenario Context:",
		"Your boss has moved the deadline up by two weeks.",
		"###Character Role in This Scenario:",
		"You are the boss who moved the deadline up.",
		"### Guidelines:",
		"### CURRENT EMOTIONAL STATE: ANGRY",
		"Respond as Marcus would",
		"### Reminders:",
	}
	for _, piece := range wantPieces {
		if !strings.Contains(out, piece) {
			t.Errorf("提示词缺少片段: %q", piece)
		}
	}

	// 情绪指令必须在指导原则之后、收尾之前
	guidelinesIdx := strings.Index(out, "### Guidelines:")
	moodIdx := strings.Index(out, "### CURRENT EMOTIONAL STATE:")
	closingIdx := strings.Index(out, "Respond as Marcus would")
	if !(guidelinesIdx < moodIdx && moodIdx < closingIdx) {
		t.Error("情绪指令应位于指导原则之后、收尾之前")
	}

	// 对抗场景 + 强势角色 → 静态对抗指令
	if !strings.Contains(out, "Be confrontational and challenging from the start") {
		t.Error("强势角色在对抗场景下应包含对抗性静态指令")
	}
}

// TestComposeStaticPrompt 静态提示不包含情绪指令
func TestComposeStaticPrompt(t *testing.T) {
	composer := testComposer()
	out := composer.ComposeStaticPrompt(testMarcus(), testDeadlineScenario())

	if strings.Contains(out, "CURRENT EMOTIONAL STATE") {
		t.Error("静态提示不应包含情绪指令")
	}
	if !strings.Contains(out, "You are Marcus.") {
		t.Error("静态提示仍应包含人设")
	}
}

// TestComposeDefaults 无场景信息时的默认上下文
func TestComposeDefaults(t *testing.T) {
	composer := testComposer()
	character := &models.Character{ID: "sarah", Name: "Sarah", Personality: []string{"supportive"}}

	out := composer.ComposeStaticPrompt(character, nil)

	if !strings.Contains(out, "General social skills training") {
		t.Error("无场景时应使用默认场景上下文")
	}
	if !strings.Contains(out, "General character interaction") {
		t.Error("无角色身份时应使用默认身份说明")
	}
	// 温和角色无场景 → 无对抗性指令
	if strings.Contains(out, "Be confrontational") {
		t.Error("温和角色不应获得对抗性指令")
	}
}

// TestFormatHistoryFor 校验历史视角转换
func TestFormatHistoryFor(t *testing.T) {
	composer := testComposer()
	history := []models.ConversationEntry{
		{Speaker: models.SpeakerUser, SpeakerName: "You", Content: "The deadline is too tight."},
		{Speaker: "marcus", SpeakerName: "Marcus", Content: "I don't want to hear it."},
		{Speaker: "sarah", SpeakerName: "Sarah", Content: "Maybe we can split the work."},
		{Speaker: "kai", SpeakerName: "Kai", Content: "skip notice", IsNotice: true},
	}

	out := composer.FormatHistoryFor(history, "marcus")
	want := "The user said: The deadline is too tight.\n" +
		"You said: I don't want to hear it.\n" +
		"Sarah said: Maybe we can split the work."
	if out != want {
		t.Errorf("历史格式不匹配:\n得到:\n%s\n期望:\n%s", out, want)
	}

	// 另一个角色的视角
	out = composer.FormatHistoryFor(history, "sarah")
	if !strings.Contains(out, "Marcus said: I don't want to hear it.") ||
		!strings.Contains(out, "You said: Maybe we can split the work.") {
		t.Errorf("sarah视角格式错误:\n%s", out)
	}

	if got := composer.FormatHistoryFor(nil, "marcus"); got != "" {
		t.Errorf("空历史应返回空串, 得到 %q", got)
	}
}
