// internal/models/character.go
package models

import "strings"

// Character 表示训练场景中的一个扮演角色
type Character struct {
	ID                 string             `json:"id" yaml:"id"`
	Name               string             `json:"name" yaml:"name"`
	Role               string             `json:"role" yaml:"role"`
	Personality        []string           `json:"personality" yaml:"personality"`
	CommunicationStyle string             `json:"communication_style" yaml:"communication_style"`
	Background         string             `json:"background" yaml:"background"`
	Reference          string             `json:"reference,omitempty" yaml:"reference,omitempty"`
	IsCoach            bool               `json:"is_coach,omitempty" yaml:"is_coach,omitempty"`
	DefaultMood        CharacterMood      `json:"default_mood,omitempty" yaml:"default_mood,omitempty"`
	CustomRules        []MoodBehaviorRule `json:"custom_rules,omitempty" yaml:"custom_rules,omitempty"`
}

// 带有这些特质的角色在冲突场景下以更尖锐的情绪开场
var aggressiveTraits = []string{
	"aggressive", "confrontational", "domineering", "hostile",
	"demanding", "ruthless", "intimidating", "volatile",
}

// IsAggressive 根据性格特质判断角色是否为强势型
func (c *Character) IsAggressive() bool {
	for _, trait := range c.Personality {
		t := strings.ToLower(trait)
		for _, marker := range aggressiveTraits {
			if strings.Contains(t, marker) {
				return true
			}
		}
	}
	return false
}

// InitialMood 根据角色性格与场景类型选择开场情绪：
// 强势角色在冲突场景下 impatient，否则 skeptical；其余角色 neutral。
func (c *Character) InitialMood(conflictScenario bool) CharacterMood {
	if c.DefaultMood != "" && c.DefaultMood.IsValid() {
		return c.DefaultMood
	}
	if c.IsAggressive() {
		if conflictScenario {
			return MoodImpatient
		}
		return MoodSkeptical
	}
	return MoodNeutral
}
