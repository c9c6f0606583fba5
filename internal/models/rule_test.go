// internal/models/rule_test.go
package models

import (
	"reflect"
	"testing"
)

// TestRuleMatches 测试规则匹配的三个条件
func TestRuleMatches(t *testing.T) {
	rule := MoodBehaviorRule{
		Mood:               MoodAngry,
		TriggerKeywords:    []string{"excuse", "can't"},
		Behaviors:          []string{"Use CAPS"},
		IntensityThreshold: 0.7,
	}

	tests := []struct {
		name      string
		mood      CharacterMood
		intensity float64
		message   string
		want      bool
	}{
		{"全部条件满足", MoodAngry, 0.8, "I have an excuse", true},
		{"强度刚好等于阈值", MoodAngry, 0.7, "I can't do this", true},
		{"强度低于阈值", MoodAngry, 0.69, "I have an excuse", false},
		{"情绪不匹配", MoodFrustrated, 0.9, "I have an excuse", false},
		{"无关键词", MoodAngry, 0.9, "here is my plan", false},
		{"大小写不敏感", MoodAngry, 0.8, "NO EXCUSE here", true},
		{"子串匹配", MoodAngry, 0.8, "these excuses again", true},
		{"空消息", MoodAngry, 0.8, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := rule.Matches(tt.mood, tt.intensity, tt.message); got != tt.want {
				t.Errorf("Matches(%s, %.2f, %q) = %v, 期望 %v",
					tt.mood, tt.intensity, tt.message, got, tt.want)
			}
		})
	}
}

// TestMatchedKeywords 测试命中关键词按声明顺序返回
func TestMatchedKeywords(t *testing.T) {
	rule := MoodBehaviorRule{
		Mood:            MoodSkeptical,
		TriggerKeywords: []string{"promise", "guarantee", "trust me"},
	}

	got := rule.MatchedKeywords("Trust me, I guarantee it works")
	want := []string{"guarantee", "trust me"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("MatchedKeywords = %v, 期望 %v", got, want)
	}

	if hits := rule.MatchedKeywords("nothing relevant"); hits != nil {
		t.Errorf("无命中时应返回 nil, 得到 %v", hits)
	}
}

// TestCharacterIsAggressive 测试强势角色判定
func TestCharacterIsAggressive(t *testing.T) {
	tests := []struct {
		name        string
		personality []string
		want        bool
	}{
		{"直接命中", []string{"aggressive", "impatient"}, true},
		{"复合特质", []string{"highly demanding boss"}, true},
		{"温和角色", []string{"supportive", "empathetic"}, false},
		{"空特质", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Character{Personality: tt.personality}
			if got := c.IsAggressive(); got != tt.want {
				t.Errorf("IsAggressive() = %v, 期望 %v", got, tt.want)
			}
		})
	}
}

// TestCharacterInitialMood 测试开场情绪选择
func TestCharacterInitialMood(t *testing.T) {
	tests := []struct {
		name      string
		character Character
		conflict  bool
		want      CharacterMood
	}{
		{"默认情绪优先", Character{DefaultMood: MoodDefensive, Personality: []string{"aggressive"}}, true, MoodDefensive},
		{"非法默认情绪被忽略", Character{DefaultMood: "furious", Personality: []string{"aggressive"}}, true, MoodImpatient},
		{"强势角色冲突场景", Character{Personality: []string{"confrontational"}}, true, MoodImpatient},
		{"强势角色普通场景", Character{Personality: []string{"confrontational"}}, false, MoodSkeptical},
		{"普通角色", Character{Personality: []string{"warm"}}, true, MoodNeutral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.character.InitialMood(tt.conflict); got != tt.want {
				t.Errorf("InitialMood(%v) = %s, 期望 %s", tt.conflict, got, tt.want)
			}
		})
	}
}

// TestScenarioIsConflict 测试冲突场景判定
func TestScenarioIsConflict(t *testing.T) {
	tests := []struct {
		name     string
		scenario Scenario
		want     bool
	}{
		{"标题含冲突词", Scenario{Title: "Unrealistic Deadline"}, true},
		{"上下文含冲突词", Scenario{Title: "Family Talk", Context: "setting boundaries with parents"}, true},
		{"普通场景", Scenario{Title: "First Date", Description: "a cozy coffee shop"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.scenario.IsConflict(); got != tt.want {
				t.Errorf("IsConflict() = %v, 期望 %v", got, tt.want)
			}
		})
	}
}

// TestSessionMoodFor 测试情绪状态的懒加载
func TestSessionMoodFor(t *testing.T) {
	session := &Session{}

	state := session.MoodFor("marcus")
	if state == nil || state.Current != MoodNeutral {
		t.Fatal("缺失的角色应获得中性默认状态")
	}

	// 再次获取应返回同一实例
	state.UpdateMood(MoodAngry, 0.9, "test", nil)
	if session.MoodFor("marcus").Current != MoodAngry {
		t.Error("MoodFor 应返回同一状态实例")
	}
}
