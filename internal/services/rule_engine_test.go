// internal/services/rule_engine_test.go
package services

import (
	"strings"
	"testing"

	"github.com/flirlabs/flirbot/internal/models"
)

// TestInstructionsForNoMatch 无规则命中时返回空串
func TestInstructionsForNoMatch(t *testing.T) {
	engine := NewBehaviorRuleEngine()
	state := models.NewMoodState(models.MoodNeutral)

	if got := engine.InstructionsFor(state, DefaultMoodRules(), "hello there"); got != "" {
		t.Errorf("中性情绪无命中时应返回空串, 得到 %q", got)
	}

	// 情绪命中但强度不足
	state = models.NewMoodState(models.MoodNeutral)
	state.UpdateMood(models.MoodAngry, 0.5, "mild", nil)
	if got := engine.InstructionsFor(state, DefaultMoodRules(), "that's my excuse"); got != "" {
		t.Errorf("强度低于阈值时应返回空串, 得到 %q", got)
	}
}

// TestInstructionsForFormat 校验指令块的固定格式
func TestInstructionsForFormat(t *testing.T) {
	engine := NewBehaviorRuleEngine()
	state := models.NewMoodState(models.MoodNeutral)
	state.UpdateMood(models.MoodAngry, 0.8, "repeated excuses", []string{"excuse"})

	out := engine.InstructionsFor(state, DefaultMoodRules(), "sorry but that's my excuse")

	wantPieces := []string{
		"### CURRENT EMOTIONAL STATE: ANGRY (Intensity: 0.8)",
		"Why you feel this way: repeated excuses",
		"### BEHAVIORAL INSTRUCTIONS:",
		"Based on your current mood and what the user just said, follow these specific behaviors:",
		"Rule 1 (triggered by: excuse, can't, impossible, but, however, difficult):",
		"- Use CAPS to emphasize your anger and frustration",
		"Rule 2 (triggered by: sorry, apologize, my fault):",
		"- Don't accept the apology immediately",
		"⚠️ YOUR EMOTIONS ARE VERY STRONG - let them significantly affect your response tone and word choice",
		"📊 Mood Transition: You were neutral → now angry",
	}
	for _, piece := range wantPieces {
		if !strings.Contains(out, piece) {
			t.Errorf("输出缺少片段: %q\n完整输出:\n%s", piece, out)
		}
	}

	// 高强度时不应出现中强度标记
	if strings.Contains(out, "→ Your emotions are moderately") {
		t.Error("强度0.8时不应出现中等强度标记")
	}
}

// TestInstructionsForModerateIntensity 中等强度标记与转变说明
func TestInstructionsForModerateIntensity(t *testing.T) {
	engine := NewBehaviorRuleEngine()
	state := models.NewMoodState(models.MoodNeutral)
	state.UpdateMood(models.MoodSkeptical, 0.6, "", nil)

	out := engine.InstructionsFor(state, DefaultMoodRules(), "I promise it will work")

	if !strings.Contains(out, "→ Your emotions are moderately affecting how you respond") {
		t.Error("强度0.6应出现中等强度标记")
	}
	if strings.Contains(out, "⚠️") {
		t.Error("强度0.6不应出现高强度标记")
	}
	if strings.Contains(out, "Why you feel this way") {
		t.Error("原因为空时不应输出原因行")
	}

	// 情绪未变化时没有转变说明
	state2 := models.NewMoodState(models.MoodSkeptical)
	state2.UpdateMood(models.MoodSkeptical, 0.6, "still doubting", nil)
	out2 := engine.InstructionsFor(state2, DefaultMoodRules(), "I promise it will work")
	if strings.Contains(out2, "Mood Transition") {
		t.Error("previous == current 时不应输出转变说明")
	}
}

// TestInstructionsForDeterminism 相同输入必须产生相同输出
func TestInstructionsForDeterminism(t *testing.T) {
	engine := NewBehaviorRuleEngine()
	state := models.NewMoodState(models.MoodNeutral)
	state.UpdateMood(models.MoodFrustrated, 0.7, "delays", nil)

	msg := "here is my plan and the reason it works"
	first := engine.InstructionsFor(state, DefaultMoodRules(), msg)
	for i := 0; i < 5; i++ {
		if got := engine.InstructionsFor(state, DefaultMoodRules(), msg); got != first {
			t.Fatal("相同输入产生了不同输出")
		}
	}

	// 该消息应同时命中 frustrated 的两条规则，且顺序稳定
	if !strings.Contains(first, "Rule 1") || !strings.Contains(first, "Rule 2") {
		t.Errorf("应命中两条规则:\n%s", first)
	}
	idx1 := strings.Index(first, "Rule 1 (triggered by: excuse, reason")
	idx2 := strings.Index(first, "Rule 2 (triggered by: plan, proposal")
	if idx1 == -1 || idx2 == -1 || idx1 > idx2 {
		t.Errorf("规则应按声明顺序编号:\n%s", first)
	}
}

// TestMarcusRules Marcus定制规则覆盖默认规则时的行为
func TestMarcusRules(t *testing.T) {
	engine := NewBehaviorRuleEngine()

	// 不耐烦0.7开场，用户辩解后升级为沮丧0.8
	state := models.NewMoodState(models.MoodImpatient)
	state.UpdateMood(models.MoodFrustrated, 0.8, "excuses instead of progress", []string{"timeline"})

	out := engine.InstructionsFor(state, MarcusMoodRules(), "here is my plan with a full timeline")

	if !strings.Contains(out, "Show you're caught off-guard (e.g., 'Hm.' or 'Fine.')") {
		t.Errorf("应输出Marcus的frustrated行为指令:\n%s", out)
	}
	if !strings.Contains(out, "📊 Mood Transition: You were impatient → now frustrated") {
		t.Errorf("应输出情绪转变说明:\n%s", out)
	}
	if !strings.Contains(out, "⚠️ YOUR EMOTIONS ARE VERY STRONG") {
		t.Error("强度0.8应触发高强度标记")
	}
}

// TestPatriciaRules Patricia的情感绑架规则
func TestPatriciaRules(t *testing.T) {
	engine := NewBehaviorRuleEngine()
	state := models.NewMoodState(models.MoodDefensive)
	state.UpdateMood(models.MoodDisappointed, 0.7, "boundary setting", nil)

	out := engine.InstructionsFor(state, PatriciaMoodRules(), "I need space and boundaries")

	if !strings.Contains(out, "Use guilt: 'After everything I've done for you...'") {
		t.Errorf("应输出Patricia的guilt行为:\n%s", out)
	}
}
