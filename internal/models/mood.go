// internal/models/mood.go
package models

// CharacterMood 角色情绪的封闭枚举
type CharacterMood string

const (
	// 中性
	MoodNeutral CharacterMood = "neutral"

	// 积极情绪
	MoodPleased    CharacterMood = "pleased"
	MoodEncouraged CharacterMood = "encouraged"
	MoodImpressed  CharacterMood = "impressed"
	MoodRespectful CharacterMood = "respectful"

	// 警惕情绪
	MoodSkeptical CharacterMood = "skeptical"
	MoodImpatient CharacterMood = "impatient"
	MoodAnnoyed   CharacterMood = "annoyed"

	// 消极情绪
	MoodFrustrated   CharacterMood = "frustrated"
	MoodDisappointed CharacterMood = "disappointed"
	MoodDismissive   CharacterMood = "dismissive"
	MoodDefensive    CharacterMood = "defensive"

	// 敌对情绪
	MoodAngry        CharacterMood = "angry"
	MoodHostile      CharacterMood = "hostile"
	MoodContemptuous CharacterMood = "contemptuous"

	// 算计情绪
	MoodManipulative CharacterMood = "manipulative"
	MoodCalculating  CharacterMood = "calculating"
)

// MoodTier 情绪分层，仅用于展示（颜色、表情符号），不参与规则逻辑
type MoodTier string

const (
	TierNeutral  MoodTier = "neutral"
	TierPositive MoodTier = "positive"
	TierWary     MoodTier = "wary"
	TierNegative MoodTier = "negative"
	TierHostile  MoodTier = "hostile"
	TierScheming MoodTier = "scheming"
)

// DefaultMoodIntensity 未指定强度时的默认值
const DefaultMoodIntensity = 0.7

// MoodHistoryLimit 情绪历史的最大保留条数
const MoodHistoryLimit = 5

var allMoods = []CharacterMood{
	MoodNeutral,
	MoodPleased, MoodEncouraged, MoodImpressed, MoodRespectful,
	MoodSkeptical, MoodImpatient, MoodAnnoyed,
	MoodFrustrated, MoodDisappointed, MoodDismissive, MoodDefensive,
	MoodAngry, MoodHostile, MoodContemptuous,
	MoodManipulative, MoodCalculating,
}

var moodTiers = map[CharacterMood]MoodTier{
	MoodNeutral:      TierNeutral,
	MoodPleased:      TierPositive,
	MoodEncouraged:   TierPositive,
	MoodImpressed:    TierPositive,
	MoodRespectful:   TierPositive,
	MoodSkeptical:    TierWary,
	MoodImpatient:    TierWary,
	MoodAnnoyed:      TierWary,
	MoodFrustrated:   TierNegative,
	MoodDisappointed: TierNegative,
	MoodDismissive:   TierNegative,
	MoodDefensive:    TierNegative,
	MoodAngry:        TierHostile,
	MoodHostile:      TierHostile,
	MoodContemptuous: TierHostile,
	MoodManipulative: TierScheming,
	MoodCalculating:  TierScheming,
}

var tierColors = map[MoodTier]string{
	TierNeutral:  "#95a5a6",
	TierPositive: "#2ecc71",
	TierWary:     "#f39c12",
	TierNegative: "#e67e22",
	TierHostile:  "#e74c3c",
	TierScheming: "#9b59b6",
}

var moodEmojis = map[CharacterMood]string{
	MoodNeutral:      "😐",
	MoodPleased:      "🙂",
	MoodEncouraged:   "😊",
	MoodImpressed:    "🤩",
	MoodRespectful:   "🤝",
	MoodSkeptical:    "🤨",
	MoodImpatient:    "⏳",
	MoodAnnoyed:      "😒",
	MoodFrustrated:   "😤",
	MoodDisappointed: "😞",
	MoodDismissive:   "🙄",
	MoodDefensive:    "🛡️",
	MoodAngry:        "😠",
	MoodHostile:      "👿",
	MoodContemptuous: "😏",
	MoodManipulative: "🎭",
	MoodCalculating:  "🧮",
}

// AllMoods 返回所有合法情绪值的副本
func AllMoods() []CharacterMood {
	out := make([]CharacterMood, len(allMoods))
	copy(out, allMoods)
	return out
}

// ParseMood 解析情绪字符串，未知值返回 false
func ParseMood(s string) (CharacterMood, bool) {
	m := CharacterMood(s)
	if _, ok := moodTiers[m]; ok {
		return m, true
	}
	return "", false
}

// IsValid 检查是否为合法情绪值
func (m CharacterMood) IsValid() bool {
	_, ok := moodTiers[m]
	return ok
}

// Tier 返回情绪所属分层
func (m CharacterMood) Tier() MoodTier {
	if t, ok := moodTiers[m]; ok {
		return t
	}
	return TierNeutral
}

// Color 返回展示用的十六进制颜色
func (m CharacterMood) Color() string {
	return tierColors[m.Tier()]
}

// Emoji 返回展示用的表情符号
func (m CharacterMood) Emoji() string {
	if e, ok := moodEmojis[m]; ok {
		return e
	}
	return moodEmojis[MoodNeutral]
}

// ClampIntensity 将强度收敛到 [0,1]
func ClampIntensity(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// MoodChange 情绪历史中的一条记录
type MoodChange struct {
	Mood      CharacterMood `json:"mood"`
	Intensity float64       `json:"intensity"`
	Reason    string        `json:"reason"`
}

// MoodState 单个角色的当前情绪状态
type MoodState struct {
	Current         CharacterMood `json:"current_mood"`
	Intensity       float64       `json:"intensity"`
	Reason          string        `json:"reason"`
	TriggerKeywords []string      `json:"trigger_keywords"`
	Previous        CharacterMood `json:"previous_mood"`
	History         []MoodChange  `json:"mood_history"`
}

// NewMoodState 创建默认强度的情绪状态
func NewMoodState(initial CharacterMood) *MoodState {
	if !initial.IsValid() {
		initial = MoodNeutral
	}
	return &MoodState{
		Current:         initial,
		Intensity:       DefaultMoodIntensity,
		Reason:          "initial state",
		TriggerKeywords: []string{},
		History:         []MoodChange{},
	}
}

// UpdateMood 推进情绪：当前状态入历史，previous 指向旧情绪。
// 每个角色每回合最多调用一次，由投递管线在确认送达后执行。
func (s *MoodState) UpdateMood(mood CharacterMood, intensity float64, reason string, triggers []string) {
	if !mood.IsValid() {
		return
	}
	s.History = append(s.History, MoodChange{
		Mood:      s.Current,
		Intensity: s.Intensity,
		Reason:    s.Reason,
	})
	if len(s.History) > MoodHistoryLimit {
		s.History = s.History[len(s.History)-MoodHistoryLimit:]
	}
	s.Previous = s.Current
	s.Current = mood
	s.Intensity = ClampIntensity(intensity)
	s.Reason = reason
	if triggers == nil {
		triggers = []string{}
	}
	s.TriggerKeywords = triggers
}

// Normalize 校验并修正反序列化后的状态，枚举非法时返回 false
func (s *MoodState) Normalize() bool {
	if !s.Current.IsValid() {
		return false
	}
	if s.Previous != "" && !s.Previous.IsValid() {
		return false
	}
	s.Intensity = ClampIntensity(s.Intensity)
	if s.TriggerKeywords == nil {
		s.TriggerKeywords = []string{}
	}
	if s.History == nil {
		s.History = []MoodChange{}
	}
	if len(s.History) > MoodHistoryLimit {
		s.History = s.History[len(s.History)-MoodHistoryLimit:]
	}
	for _, h := range s.History {
		if !h.Mood.IsValid() {
			return false
		}
	}
	return true
}

// Clone 深拷贝，供管线在未确认送达前的工作副本使用
func (s *MoodState) Clone() *MoodState {
	c := *s
	c.TriggerKeywords = append([]string{}, s.TriggerKeywords...)
	c.History = append([]MoodChange{}, s.History...)
	return &c
}
