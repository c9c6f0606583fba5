// internal/models/rule.go
package models

import "strings"

// MoodBehaviorRule 情绪行为规则：情绪 + 触发关键词 + 强度阈值 → 行为指令。
// 规则创建后不可变，按声明顺序求值。
type MoodBehaviorRule struct {
	Mood               CharacterMood `json:"mood" yaml:"mood"`
	TriggerKeywords    []string      `json:"trigger_keywords" yaml:"trigger_keywords"`
	Behaviors          []string      `json:"behaviors" yaml:"behaviors"`
	IntensityThreshold float64       `json:"intensity_threshold" yaml:"intensity_threshold"`
}

// Matches 判断规则是否命中：情绪相等、强度达到阈值、
// 且用户消息包含任一触发关键词（大小写不敏感的子串匹配）。
func (r *MoodBehaviorRule) Matches(mood CharacterMood, intensity float64, userMessage string) bool {
	if mood != r.Mood {
		return false
	}
	if intensity < r.IntensityThreshold {
		return false
	}
	msg := strings.ToLower(userMessage)
	for _, kw := range r.TriggerKeywords {
		if strings.Contains(msg, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// MatchedKeywords 返回消息中实际命中的关键词，保持声明顺序
func (r *MoodBehaviorRule) MatchedKeywords(userMessage string) []string {
	msg := strings.ToLower(userMessage)
	var hits []string
	for _, kw := range r.TriggerKeywords {
		if strings.Contains(msg, strings.ToLower(kw)) {
			hits = append(hits, kw)
		}
	}
	return hits
}
