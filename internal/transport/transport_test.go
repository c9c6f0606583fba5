// internal/transport/transport_test.go
package transport

import (
	"context"
	"testing"

	apperrors "github.com/flirlabs/flirbot/internal/errors"
)

// TestNewMessage 新消息应带类型和时间戳
func TestNewMessage(t *testing.T) {
	msg := NewMessage(MessageTypeCharacter)
	if msg.Type != MessageTypeCharacter {
		t.Errorf("Type = %q", msg.Type)
	}
	if msg.Timestamp == "" {
		t.Error("应设置时间戳")
	}
}

// TestHubSendNoSubscribers 无活跃连接时返回投递类错误
func TestHubSendNoSubscribers(t *testing.T) {
	hub := NewWebSocketHub()
	defer hub.Shutdown()

	err := hub.Send(context.Background(), "user-nobody", NewMessage(MessageTypeCharacter))
	if err == nil || !apperrors.IsDeliveryError(err) {
		t.Errorf("应返回投递错误, 得到 %v", err)
	}
	if hub.HasSubscribers("user-nobody") {
		t.Error("不应存在订阅者")
	}
}

// TestHubSendCancelledContext 已取消的上下文直接失败
func TestHubSendCancelledContext(t *testing.T) {
	hub := NewWebSocketHub()
	defer hub.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := hub.Send(ctx, "user-any", NewMessage(MessageTypeNotice))
	if err == nil || !apperrors.IsDeliveryError(err) {
		t.Errorf("取消的上下文应返回投递错误, 得到 %v", err)
	}
}

// TestHubSendEnqueues 活跃客户端的消息进入其发送队列
func TestHubSendEnqueues(t *testing.T) {
	hub := NewWebSocketHub()
	defer hub.Shutdown()

	client := &Client{channel: "user-live", send: make(chan []byte, 4)}
	hub.registerClient(client)

	if err := hub.Send(context.Background(), "user-live", NewMessage(MessageTypeCharacter)); err != nil {
		t.Fatalf("发送失败: %v", err)
	}
	if len(client.send) != 1 {
		t.Errorf("发送队列长度 = %d", len(client.send))
	}
}

// TestHubSendAfterClientClosed 客户端写协程退出后发送不得崩溃
func TestHubSendAfterClientClosed(t *testing.T) {
	hub := NewWebSocketHub()
	defer hub.Shutdown()

	client := &Client{channel: "user-gone", send: make(chan []byte, 4)}
	hub.registerClient(client)

	// 模拟写协程退出：标记关闭但不关闭发送通道
	client.Close()

	err := hub.Send(context.Background(), "user-gone", NewMessage(MessageTypeCharacter))
	if err == nil || !apperrors.IsDeliveryError(err) {
		t.Errorf("已关闭的客户端应返回投递错误, 得到 %v", err)
	}
	if len(client.send) != 0 {
		t.Errorf("已关闭客户端的队列不应收到消息, 长度 = %d", len(client.send))
	}
}

// TestHubStatus 空闲Hub的状态快照
func TestHubStatus(t *testing.T) {
	hub := NewWebSocketHub()
	defer hub.Shutdown()

	status := hub.Status()
	if status["total_connections"] != 0 {
		t.Errorf("连接数 = %v", status["total_connections"])
	}
	if status["total_channels"] != 0 {
		t.Errorf("通道数 = %v", status["total_channels"])
	}
}
