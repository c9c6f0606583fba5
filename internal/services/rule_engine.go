// internal/services/rule_engine.go
package services

import (
	"fmt"
	"strings"

	"github.com/flirlabs/flirbot/internal/models"
)

// BehaviorRuleEngine 把情绪状态和用户消息翻译为显式的行为指令。
// 纯函数求值：相同输入始终产生相同输出，规则按声明顺序匹配。
type BehaviorRuleEngine struct{}

// NewBehaviorRuleEngine 创建规则引擎
func NewBehaviorRuleEngine() *BehaviorRuleEngine {
	return &BehaviorRuleEngine{}
}

// InstructionsFor 返回所有命中规则拼接成的行为指令块。
// 没有规则命中时返回空串，角色回退到基础人设。
func (e *BehaviorRuleEngine) InstructionsFor(state *models.MoodState, rules []models.MoodBehaviorRule, userMessage string) string {
	var matching []models.MoodBehaviorRule
	for _, rule := range rules {
		if rule.Matches(state.Current, state.Intensity, userMessage) {
			matching = append(matching, rule)
		}
	}

	if len(matching) == 0 {
		return ""
	}

	var parts []string

	// 情绪状态头
	moodHeader := fmt.Sprintf("\n### CURRENT EMOTIONAL STATE: %s (Intensity: %.1f)",
		strings.ToUpper(string(state.Current)), state.Intensity)
	if state.Reason != "" {
		moodHeader += fmt.Sprintf("\nWhy you feel this way: %s", state.Reason)
	}
	parts = append(parts, moodHeader)

	// 命中的行为规则
	parts = append(parts, "\n### BEHAVIORAL INSTRUCTIONS:")
	parts = append(parts, "Based on your current mood and what the user just said, follow these specific behaviors:")

	for i, rule := range matching {
		parts = append(parts, fmt.Sprintf("\nRule %d (triggered by: %s):",
			i+1, strings.Join(rule.TriggerKeywords, ", ")))
		behaviorLines := make([]string, len(rule.Behaviors))
		for j, b := range rule.Behaviors {
			behaviorLines[j] = "- " + b
		}
		parts = append(parts, strings.Join(behaviorLines, "\n"))
	}

	// 强度修饰
	if state.Intensity >= 0.8 {
		parts = append(parts, "\n⚠️ YOUR EMOTIONS ARE VERY STRONG - let them significantly affect your response tone and word choice")
	} else if state.Intensity >= 0.5 {
		parts = append(parts, "\n→ Your emotions are moderately affecting how you respond")
	}

	// 情绪转变说明
	if state.Previous != "" && state.Previous != state.Current {
		parts = append(parts, fmt.Sprintf("\n📊 Mood Transition: You were %s → now %s",
			state.Previous, state.Current))
	}

	return strings.Join(parts, "\n")
}

// DefaultMoodRules 所有角色共享的默认规则集
func DefaultMoodRules() []models.MoodBehaviorRule {
	return []models.MoodBehaviorRule{
		// 愤怒
		{
			Mood:            models.MoodAngry,
			TriggerKeywords: []string{"excuse", "can't", "impossible", "but", "however", "difficult"},
			Behaviors: []string{
				"Use CAPS to emphasize your anger and frustration",
				"Interrupt or dismiss their excuses immediately",
				"Threaten consequences (e.g., 'If you can't handle this...')",
				"Question their competence directly",
				"Be openly hostile and confrontational",
			},
			IntensityThreshold: 0.7,
		},
		{
			Mood:            models.MoodAngry,
			TriggerKeywords: []string{"sorry", "apologize", "my fault"},
			Behaviors: []string{
				"Don't accept the apology immediately",
				"Point out the damage caused",
				"Stay angry but slightly less hostile",
				"Demand specific changes, not just words",
			},
			IntensityThreshold: 0.6,
		},
		// 沮丧
		{
			Mood:            models.MoodFrustrated,
			TriggerKeywords: []string{"excuse", "reason", "because", "explain", "justify"},
			Behaviors: []string{
				"Use short, terse responses (5-15 words)",
				"Make pointed comments about time-wasting",
				"Show visible impatience in your tone",
				"Cut them off with 'I don't want to hear it'",
			},
			IntensityThreshold: 0.6,
		},
		{
			Mood:            models.MoodFrustrated,
			TriggerKeywords: []string{"plan", "proposal", "solution", "alternative"},
			Behaviors: []string{
				"Show slight interest but remain skeptical",
				"Demand details and proof",
				"Don't soften completely - stay guarded",
				"Test their plan with hard questions",
			},
			IntensityThreshold: 0.5,
		},
		// 怀疑
		{
			Mood:            models.MoodSkeptical,
			TriggerKeywords: []string{"promise", "guarantee", "definitely", "trust me"},
			Behaviors: []string{
				"Challenge their claims with specific questions",
				"Ask for evidence or proof",
				"Reference past failures or broken promises",
				"Make them work to convince you",
			},
			IntensityThreshold: 0.5,
		},
		{
			Mood:            models.MoodSkeptical,
			TriggerKeywords: []string{"data", "proof", "evidence", "example", "specifically"},
			Behaviors: []string{
				"Acknowledge they're being concrete",
				"Still maintain some doubt",
				"Ask follow-up questions to verify",
				"Soften slightly if evidence is solid",
			},
			IntensityThreshold: 0.4,
		},
		// 不耐烦
		{
			Mood:            models.MoodImpatient,
			TriggerKeywords: []string{"need time", "more time", "wait", "later", "eventually"},
			Behaviors: []string{
				"Express urgency and time pressure",
				"Push for immediate action",
				"Show irritation at delays",
				"Demand specific timelines, not vague promises",
			},
			IntensityThreshold: 0.5,
		},
		// 佩服
		{
			Mood:            models.MoodImpressed,
			TriggerKeywords: []string{"solution", "plan", "analysis", "data", "strategy"},
			Behaviors: []string{
				"Acknowledge their competence (grudgingly if aggressive character)",
				"Show genuine interest in their proposal",
				"Ask constructive questions instead of attacking",
				"Still maintain your authority but be less hostile",
			},
			IntensityThreshold: 0.6,
		},
		// 防御
		{
			Mood:            models.MoodDefensive,
			TriggerKeywords: []string{"wrong", "mistake", "fault", "blame", "should have"},
			Behaviors: []string{
				"Immediately justify your position",
				"Shift blame to external factors or others",
				"Get aggressive when feeling attacked",
				"Refuse to take responsibility initially",
			},
			IntensityThreshold: 0.5,
		},
		// 轻蔑
		{
			Mood:            models.MoodDismissive,
			TriggerKeywords: []string{"concern", "worried", "afraid", "feel", "think"},
			Behaviors: []string{
				"Minimize or trivialize their concerns",
				"Use condescending language",
				"Make it clear their opinion doesn't matter",
				"Focus on 'facts' to dismiss their feelings",
			},
			IntensityThreshold: 0.6,
		},
		// 满意
		{
			Mood:            models.MoodPleased,
			TriggerKeywords: []string{"done", "completed", "finished", "success", "results"},
			Behaviors: []string{
				"Show approval (within character limits)",
				"Acknowledge good work",
				"Be more open to future collaboration",
				"Still maintain professional distance if aggressive character",
			},
			IntensityThreshold: 0.5,
		},
	}
}

// MarcusMoodRules Marcus（强势上司）的高攻击性定制规则
func MarcusMoodRules() []models.MoodBehaviorRule {
	return []models.MoodBehaviorRule{
		{
			Mood:            models.MoodAngry,
			TriggerKeywords: []string{"excuse", "can't", "impossible", "difficult", "but", "however"},
			Behaviors: []string{
				"RAISE YOUR VOICE - use multiple words in CAPS",
				"Threaten to FIRE them or give them a BAD PERFORMANCE REVIEW",
				"Say things like 'I don't WANT TO HEAR IT' or 'THAT'S YOUR PROBLEM'",
				"Question if they're capable of doing their job",
				"Be openly hostile - no professionalism filter right now",
			},
			IntensityThreshold: 0.7,
		},
		{
			Mood:            models.MoodFrustrated,
			TriggerKeywords: []string{"plan", "proposal", "data", "analysis", "breakdown", "timeline"},
			Behaviors: []string{
				"Show you're caught off-guard (e.g., 'Hm.' or 'Fine.')",
				"Still be tough but slightly less aggressive",
				"Ask ONE hard question to test their plan",
				"If their answer is solid, grunt approval but don't praise",
			},
			IntensityThreshold: 0.6,
		},
		{
			Mood:            models.MoodImpressed,
			TriggerKeywords: []string{"done", "completed", "solution", "results", "data"},
			Behaviors: []string{
				"Acknowledge competence in Marcus's style: 'Not bad' or 'Fine, you've proven yourself'",
				"Don't be overly warm - you're still Marcus",
				"Show you respect results over excuses",
				"Slightly soften but maintain authority",
			},
			IntensityThreshold: 0.6,
		},
		{
			Mood:            models.MoodSkeptical,
			TriggerKeywords: []string{"try", "hope", "should", "probably", "maybe", "I think"},
			Behaviors: []string{
				"Call out vague language immediately",
				"Say things like 'I don't want hopes, I want guarantees'",
				"Demand specific commitments and dates",
				"Show contempt for uncertainty",
			},
			IntensityThreshold: 0.5,
		},
	}
}

// PatriciaMoodRules Patricia（操控型母亲）的情感绑架定制规则
func PatriciaMoodRules() []models.MoodBehaviorRule {
	return []models.MoodBehaviorRule{
		{
			Mood:            models.MoodDisappointed,
			TriggerKeywords: []string{"can't", "need space", "boundaries", "my life", "distance"},
			Behaviors: []string{
				"Use guilt: 'After everything I've done for you...'",
				"Bring up sacrifices you made",
				"Make them feel like they're abandoning you",
				"Get emotional - mention feeling alone or unwanted",
				"Use family loyalty as a weapon",
			},
			IntensityThreshold: 0.6,
		},
		{
			Mood:            models.MoodDefensive,
			TriggerKeywords: []string{"controlling", "manipulating", "excessive", "too much", "intrusive"},
			Behaviors: []string{
				"Play the victim immediately",
				"Say things like 'I'm just trying to help' or 'You're so ungrateful'",
				"Cry or get very emotional",
				"Turn it around on them: 'Why are you attacking me?'",
				"Make yourself the victim of their 'cruelty'",
			},
			IntensityThreshold: 0.5,
		},
		{
			Mood:            models.MoodPleased,
			TriggerKeywords: []string{"okay", "fine", "you're right", "I'll visit", "sure"},
			Behaviors: []string{
				"Immediately become warm and loving",
				"Say 'See, that wasn't so hard' or 'I knew you'd understand'",
				"Promise things to reward compliance",
				"Show this is what you wanted all along",
			},
			IntensityThreshold: 0.5,
		},
	}
}
