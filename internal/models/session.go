// internal/models/session.go
package models

import "time"

// SpeakerUser 会话历史中用户发言的固定标识
const SpeakerUser = "user"

// ConversationEntry 会话历史中的一条记录。
// 角色条目只有在投递确认后才会写入历史。
type ConversationEntry struct {
	ID          string    `json:"id"`
	Speaker     string    `json:"speaker"` // "user" 或角色ID
	SpeakerName string    `json:"speaker_name"`
	Content     string    `json:"content"`
	Timestamp   time.Time `json:"timestamp"`
	Attempts    int       `json:"attempts,omitempty"` // 角色条目的投递尝试次数
	IsNotice    bool      `json:"is_notice,omitempty"` // 技术性跳过通知
}

// Session 一个用户在一个场景中的训练会话
type Session struct {
	UserID      string                `json:"user_id"`
	ScenarioID  string                `json:"scenario_id"`
	Turn        int                   `json:"turn"`
	Completed   bool                  `json:"completed"`
	Moods       map[string]*MoodState `json:"moods"` // 角色ID → 情绪状态
	History     []ConversationEntry   `json:"history"`
	CreatedAt   time.Time             `json:"created_at"`
	LastUpdated time.Time             `json:"last_updated"`
}

// MoodFor 返回角色当前情绪状态，缺失时创建中性默认值
func (s *Session) MoodFor(characterID string) *MoodState {
	if s.Moods == nil {
		s.Moods = make(map[string]*MoodState)
	}
	if state, ok := s.Moods[characterID]; ok && state != nil {
		return state
	}
	state := NewMoodState(MoodNeutral)
	s.Moods[characterID] = state
	return state
}

// DeliveryStatus 单角色响应管线的阶段
type DeliveryStatus string

const (
	StatusPending      DeliveryStatus = "PENDING"
	StatusMoodInferred DeliveryStatus = "MOOD_INFERRED"
	StatusPromptBuilt  DeliveryStatus = "PROMPT_BUILT"
	StatusGenerated    DeliveryStatus = "GENERATED"
	StatusDelivering   DeliveryStatus = "DELIVERING"
	StatusDelivered    DeliveryStatus = "DELIVERED"
	StatusFailed       DeliveryStatus = "FAILED"
)

// CharacterOutcome 单个角色在一个回合中的处理结果
type CharacterOutcome struct {
	CharacterID   string         `json:"character_id"`
	CharacterName string         `json:"character_name"`
	Status        DeliveryStatus `json:"status"`
	Text          string         `json:"text,omitempty"`
	Mood          CharacterMood  `json:"mood"`
	MoodIntensity float64        `json:"mood_intensity"`
	MoodColor     string         `json:"mood_color"`
	MoodEmoji     string         `json:"mood_emoji"`
	Attempts      int            `json:"attempts"`
	UsedFallback  bool           `json:"used_fallback,omitempty"`
	Error         string         `json:"error,omitempty"`
}

// TurnResult 一次用户消息触发的完整回合结果
type TurnResult struct {
	TurnID           string             `json:"turn_id"`
	Turn             int                `json:"turn"`
	Outcomes         []CharacterOutcome `json:"outcomes"`
	SessionCompleted bool               `json:"session_completed"`
}
