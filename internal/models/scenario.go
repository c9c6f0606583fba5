// internal/models/scenario.go
package models

import "strings"

// Scenario 训练场景定义
type Scenario struct {
	ID           string            `json:"id" yaml:"id"`
	Title        string            `json:"title" yaml:"title"`
	Type         string            `json:"type" yaml:"type"` // workplace / dating / family
	Description  string            `json:"description" yaml:"description"`
	Context      string            `json:"context" yaml:"context"`
	Objectives   []string          `json:"objectives" yaml:"objectives"`
	Difficulty   string            `json:"difficulty" yaml:"difficulty"`
	CharacterIDs []string          `json:"character_ids" yaml:"character_ids"`
	RoleContexts map[string]string `json:"role_contexts" yaml:"role_contexts"` // 角色ID → 场景内身份说明
}

var conflictMarkers = []string{
	"deadline", "conflict", "confrontation", "dispute", "crisis",
	"pressure", "blame", "boundaries", "ultimatum", "layoff",
}

// IsConflict 判断是否为冲突类场景，用于开场情绪选择
func (s *Scenario) IsConflict() bool {
	text := strings.ToLower(s.Title + " " + s.Description + " " + s.Context)
	for _, marker := range conflictMarkers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}
