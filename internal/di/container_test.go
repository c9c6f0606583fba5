// internal/di/container_test.go
package di

import "testing"

// TestContainerRegisterGet 注册与取出
func TestContainerRegisterGet(t *testing.T) {
	c := NewContainer()

	if c.Get("session") != nil {
		t.Error("未注册的服务应返回nil")
	}
	if c.Has("session") {
		t.Error("未注册的服务Has应为false")
	}

	type sessionService struct{ name string }
	c.Register("session", &sessionService{name: "a"})

	got, ok := c.Get("session").(*sessionService)
	if !ok || got.name != "a" {
		t.Errorf("取出的服务 = %+v", got)
	}
	if !c.Has("session") {
		t.Error("已注册的服务Has应为true")
	}

	// 同名覆盖
	c.Register("session", &sessionService{name: "b"})
	if got, _ := c.Get("session").(*sessionService); got == nil || got.name != "b" {
		t.Errorf("覆盖后的服务 = %+v", got)
	}
}

// TestContainerReset 清空后全部服务不可见
func TestContainerReset(t *testing.T) {
	c := NewContainer()
	c.Register("llm", struct{}{})
	c.Register("hub", struct{}{})

	c.Reset()

	if c.Has("llm") || c.Has("hub") {
		t.Error("Reset后不应有残留服务")
	}
}
