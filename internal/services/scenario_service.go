// internal/services/scenario_service.go
package services

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	apperrors "github.com/flirlabs/flirbot/internal/errors"
	"github.com/flirlabs/flirbot/internal/models"
)

// ScenarioService 管理训练场景目录，加载后只读
type ScenarioService struct {
	mu        sync.RWMutex
	scenarios map[string]*models.Scenario
}

// NewScenarioService 创建场景服务
func NewScenarioService() *ScenarioService {
	return &ScenarioService{
		scenarios: builtinScenarios(),
	}
}

// GetScenario 按ID获取场景
func (s *ScenarioService) GetScenario(id string) (*models.Scenario, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sc, ok := s.scenarios[strings.ToLower(id)]
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("场景不存在: %s", id), nil)
	}
	return sc, nil
}

// ListScenarios 返回全部场景，可按类型过滤，按ID排序
func (s *ScenarioService) ListScenarios(scenarioType string) []*models.Scenario {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Scenario, 0, len(s.scenarios))
	for _, sc := range s.scenarios {
		if scenarioType != "" && sc.Type != scenarioType {
			continue
		}
		out = append(out, sc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// builtinScenarios 内置场景目录
func builtinScenarios() map[string]*models.Scenario {
	scenarios := []*models.Scenario{
		{
			ID:          "workplace_deadline",
			Title:       "Unrealistic Deadline",
			Type:        "workplace",
			Description: "Your boss has given you an unrealistic deadline for a major project. Practice addressing this professionally while maintaining your boundaries.",
			Context: `You're a software developer working on a critical project. Your boss Marcus has just informed you that the deadline has been moved up by 2 weeks, giving you only 1 week to complete what was originally planned as a 3-week project.

Sarah, your supportive coworker, is also in the meeting and can provide backup. Coach Kai is available to guide you through the conversation.

You know this timeline is unrealistic and could compromise code quality and team morale.`,
			Objectives: []string{
				"Address the unrealistic deadline professionally",
				"Propose alternative solutions",
				"Maintain professional boundaries",
				"Seek support from colleagues",
			},
			Difficulty:   "intermediate",
			CharacterIDs: []string{"marcus", "sarah", "kai"},
			RoleContexts: map[string]string{
				"marcus": "You are the boss who moved the deadline up. You believe the new deadline is non-negotiable and expect compliance, not excuses.",
				"sarah":  "You are the user's supportive coworker. You back the user up when they make reasonable points, but you won't openly defy Marcus.",
				"kai":    "You are the coach observing the conversation. Offer brief, constructive guidance when asked.",
			},
		},
		{
			ID:          "workplace_feedback",
			Title:       "Giving Difficult Feedback",
			Type:        "workplace",
			Description: "Practice giving constructive feedback to a team member whose performance has been declining.",
			Context: `You're a team lead and need to have a difficult conversation with Sarah, a team member whose performance has been declining over the past month. You want to address the issues while being supportive and helping Sarah get back on track. Coach Kai is available to guide you through this conversation.`,
			Objectives: []string{
				"Deliver feedback constructively",
				"Focus on specific behaviors",
				"Offer support and solutions",
				"Maintain professional relationship",
			},
			Difficulty:   "advanced",
			CharacterIDs: []string{"sarah", "kai"},
			RoleContexts: map[string]string{
				"sarah": "You are the team member receiving feedback. You know your performance has slipped but you feel defensive about it and have personal reasons you don't want to share immediately.",
				"kai":   "You are the coach observing the conversation. Offer brief, constructive guidance when asked.",
			},
		},
		{
			ID:          "first_date",
			Title:       "First Date Conversation",
			Type:        "dating",
			Description: "Practice navigating a first date conversation, showing interest while being authentic and handling awkward moments gracefully.",
			Context: `You're on a first date with Alex at a cozy coffee shop. You met through a mutual friend and have been texting for about a week. This is your first in-person meeting. The date has been going well so far. Your friend Jordan is available for advice, and Coach Kai can provide real-time guidance.`,
			Objectives: []string{
				"Show genuine interest in your date",
				"Handle awkward moments gracefully",
				"Be authentic and engaging",
				"Know when to end the date appropriately",
			},
			Difficulty:   "beginner",
			CharacterIDs: []string{"alex", "jordan", "kai"},
			RoleContexts: map[string]string{
				"alex":   "You are the user's date. You are charming and engaged but guarded; open up only if the user shows genuine interest.",
				"jordan": "You are the user's friend giving advice between exchanges. Keep it brief and practical.",
				"kai":    "You are the coach observing the conversation. Offer brief, constructive guidance when asked.",
			},
		},
		{
			ID:          "relationship_talk",
			Title:       "Defining the Relationship",
			Type:        "dating",
			Description: "Practice having 'the talk' about where your relationship is heading and what you both want.",
			Context: `You've been dating Alex for about 3 months now. Things have been going well, but you're starting to feel like you need a conversation about where this is heading. You want to know if you're both looking for something serious or if this is more casual. Your friend Jordan is available for advice, and Coach Kai can help guide the conversation.`,
			Objectives: []string{
				"Express your feelings clearly",
				"Listen to your partner's perspective",
				"Navigate potential differences",
				"Make decisions about the relationship",
			},
			Difficulty:   "intermediate",
			CharacterIDs: []string{"alex", "jordan", "kai"},
			RoleContexts: map[string]string{
				"alex":   "You are the user's partner. You enjoy the relationship but are wary of commitment; deflect with humor unless the user is direct and sincere.",
				"jordan": "You are the user's friend giving advice between exchanges. Keep it brief and practical.",
				"kai":    "You are the coach observing the conversation. Offer brief, constructive guidance when asked.",
			},
		},
		{
			ID:          "family_boundaries",
			Title:       "Setting Family Boundaries",
			Type:        "family",
			Description: "Practice setting healthy boundaries with an overbearing parent while maintaining the relationship.",
			Context: `Your mother Patricia has been calling you multiple times a day, showing up unannounced at your apartment, and constantly asking about your personal life. You're 28 years old and need more independence. Your brother Michael is supportive of you setting boundaries and is available to help. Coach Kai can guide you through this difficult conversation.`,
			Objectives: []string{
				"Set clear boundaries respectfully",
				"Maintain family relationships",
				"Handle guilt and manipulation",
				"Get support from other family members",
			},
			Difficulty:   "intermediate",
			CharacterIDs: []string{"patricia", "michael", "kai"},
			RoleContexts: map[string]string{
				"patricia": "You are the overbearing mother. You believe your constant involvement is love, and any boundary feels like abandonment. Use guilt when boundaries are raised.",
				"michael":  "You are the user's brother. You support the boundaries being set and calmly back the user up.",
				"kai":      "You are the coach observing the conversation. Offer brief, constructive guidance when asked.",
			},
		},
		{
			ID:          "family_finances",
			Title:       "Family Financial Boundaries",
			Type:        "family",
			Description: "Practice saying no to family members who repeatedly ask for financial help.",
			Context: `Your mother Patricia has been asking you for money regularly over the past year. You've helped her out several times, but it's becoming a pattern and affecting your own financial goals. You're trying to save for your own future, but you feel guilty saying no. Your brother Michael has also been asked for money and is supportive of setting boundaries. Coach Kai can help you navigate this conversation.`,
			Objectives: []string{
				"Say no to financial requests firmly but kindly",
				"Set clear financial boundaries",
				"Avoid enabling unhealthy patterns",
				"Maintain family relationships",
			},
			Difficulty:   "advanced",
			CharacterIDs: []string{"patricia", "michael", "kai"},
			RoleContexts: map[string]string{
				"patricia": "You are the mother asking for money again. You minimize the pattern and frame every request as a one-time emergency. React emotionally to refusal.",
				"michael":  "You are the user's brother. You have also been asked for money and support saying no.",
				"kai":      "You are the coach observing the conversation. Offer brief, constructive guidance when asked.",
			},
		},
	}

	out := make(map[string]*models.Scenario, len(scenarios))
	for _, sc := range scenarios {
		out[sc.ID] = sc
	}
	return out
}
