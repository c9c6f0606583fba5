// internal/transport/transport.go
package transport

import (
	"context"
	"time"
)

// Message 推送给客户端的消息
type Message struct {
	Type          string  `json:"type"`
	TurnID        string  `json:"turn_id,omitempty"`
	Speaker       string  `json:"speaker,omitempty"`
	SpeakerName   string  `json:"speaker_name,omitempty"`
	Content       string  `json:"content,omitempty"`
	Mood          string  `json:"mood,omitempty"`
	MoodIntensity float64 `json:"mood_intensity,omitempty"`
	MoodColor     string  `json:"mood_color,omitempty"`
	MoodEmoji     string  `json:"mood_emoji,omitempty"`
	IsNotice      bool    `json:"is_notice,omitempty"`
	Timestamp     string  `json:"timestamp"`
}

// 消息类型
const (
	MessageTypeCharacter  = "character_response"
	MessageTypeNotice     = "system_notice"
	MessageTypeTurnStart  = "turn_start"
	MessageTypeTurnEnd    = "turn_end"
	MessageTypeError      = "error"
)

// NewMessage 创建带时间戳的消息
func NewMessage(msgType string) Message {
	return Message{
		Type:      msgType,
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

// Transport 把消息投递到某个会话通道
type Transport interface {
	Send(ctx context.Context, channel string, msg Message) error
}
