// internal/services/session_service_test.go
package services

import (
	"context"
	"testing"
	"time"

	apperrors "github.com/flirlabs/flirbot/internal/errors"
	"github.com/flirlabs/flirbot/internal/models"
)

// testSessionService 组装共享同一存储的会话服务与管线
func testSessionService(t *testing.T) (*SessionService, *memSessionStore) {
	t.Helper()

	provider := newPipelineProvider(`{"mood": "neutral", "intensity": 0.5}`)
	llmService := NewLLMServiceWithProvider("fake", provider)
	moodService := NewMoodService(llmService, 5*time.Second, true)
	composer := NewPromptComposer(NewBehaviorRuleEngine())
	characters, err := NewCharacterService("")
	if err != nil {
		t.Fatalf("创建角色服务失败: %v", err)
	}
	scenarios := NewScenarioService()
	store := newMemSessionStore()

	pipeline := NewDeliveryPipeline(llmService, moodService, composer, characters, scenarios, store, &recordingTransport{}, 3, 3)
	pipeline.sleep = func(time.Duration) {}

	return NewSessionService(store, scenarios, characters, pipeline, 3), store
}

// TestCreateSessionInitialMoods 创建会话时按角色和场景初始化情绪
func TestCreateSessionInitialMoods(t *testing.T) {
	service, _ := testSessionService(t)

	session, err := service.CreateSession(context.Background(), "user-create", "workplace_deadline")
	if err != nil {
		t.Fatalf("CreateSession 失败: %v", err)
	}

	if session.UserID != "user-create" || session.ScenarioID != "workplace_deadline" {
		t.Errorf("会话标识 = %s/%s", session.UserID, session.ScenarioID)
	}

	// marcus配置了默认情绪
	if state := session.Moods["marcus"]; state == nil || state.Current != models.MoodImpatient {
		t.Errorf("marcus初始情绪 = %+v", state)
	}
	if state := session.Moods["sarah"]; state == nil {
		t.Error("sarah应有初始情绪状态")
	}

	// 教练不参与情绪循环
	if _, ok := session.Moods["kai"]; ok {
		t.Error("教练角色不应有情绪状态")
	}
}

// TestCreateSessionGeneratesUserID 未指定用户ID时自动生成
func TestCreateSessionGeneratesUserID(t *testing.T) {
	service, _ := testSessionService(t)

	session, err := service.CreateSession(context.Background(), "", "first_date")
	if err != nil {
		t.Fatalf("CreateSession 失败: %v", err)
	}
	if session.UserID == "" {
		t.Error("应生成用户ID")
	}
}

// TestCreateSessionExistingNotOverwritten 重复创建返回已有会话
func TestCreateSessionExistingNotOverwritten(t *testing.T) {
	service, _ := testSessionService(t)
	ctx := context.Background()

	first, err := service.CreateSession(ctx, "user-existing", "workplace_deadline")
	if err != nil {
		t.Fatalf("首次创建失败: %v", err)
	}
	first.Turn = 2

	second, err := service.CreateSession(ctx, "user-existing", "workplace_feedback")
	if err != nil {
		t.Fatalf("二次创建失败: %v", err)
	}
	if second.ScenarioID != "workplace_deadline" || second.Turn != 2 {
		t.Errorf("应返回进行中的会话: %+v", second)
	}
}

// TestCreateSessionUnknownScenario 未知场景应返回NotFound
func TestCreateSessionUnknownScenario(t *testing.T) {
	service, _ := testSessionService(t)

	_, err := service.CreateSession(context.Background(), "user-x", "does_not_exist")
	if err == nil || !apperrors.IsNotFoundError(err) {
		t.Errorf("应返回NotFound错误, 得到 %v", err)
	}
}

// TestSendMessageValidation 空消息和不存在的会话应被拒绝
func TestSendMessageValidation(t *testing.T) {
	service, _ := testSessionService(t)
	ctx := context.Background()

	if _, err := service.SendMessage(ctx, "user-any", ""); err == nil || !apperrors.IsValidationError(err) {
		t.Errorf("空消息应返回验证错误, 得到 %v", err)
	}
	if _, err := service.SendMessage(ctx, "user-missing", "hello"); err == nil || !apperrors.IsNotFoundError(err) {
		t.Errorf("不存在的会话应返回NotFound, 得到 %v", err)
	}
}

// TestSendMessageCompletedSession 已完成的会话拒绝新消息
func TestSendMessageCompletedSession(t *testing.T) {
	service, store := testSessionService(t)
	ctx := context.Background()

	session, err := service.CreateSession(ctx, "user-done", "workplace_feedback")
	if err != nil {
		t.Fatalf("CreateSession 失败: %v", err)
	}
	session.Completed = true
	session.Turn = 3
	if err := store.Save(ctx, session); err != nil {
		t.Fatalf("保存失败: %v", err)
	}

	_, err = service.SendMessage(ctx, "user-done", "one more")
	if err == nil || !apperrors.IsValidationError(err) {
		t.Errorf("已完成会话应返回验证错误, 得到 %v", err)
	}
}

// TestSendMessageAdmission 同一会话的并发消息被拒绝
func TestSendMessageAdmission(t *testing.T) {
	service, _ := testSessionService(t)
	ctx := context.Background()

	if _, err := service.CreateSession(ctx, "user-busy", "workplace_feedback"); err != nil {
		t.Fatalf("CreateSession 失败: %v", err)
	}

	// 手动占用处理权，模拟进行中的轮次
	if err := service.admit("user-busy"); err != nil {
		t.Fatalf("首次准入失败: %v", err)
	}

	_, err := service.SendMessage(ctx, "user-busy", "concurrent message")
	if err == nil || !apperrors.IsConflictError(err) {
		t.Errorf("并发消息应返回冲突错误, 得到 %v", err)
	}

	// 释放后恢复可用
	service.release("user-busy")
	if _, err := service.SendMessage(ctx, "user-busy", "after release"); err != nil {
		t.Errorf("释放后发送失败: %v", err)
	}
}

// TestSendMessageDrivesTurn 发送消息驱动完整回合
func TestSendMessageDrivesTurn(t *testing.T) {
	service, store := testSessionService(t)
	ctx := context.Background()

	if _, err := service.CreateSession(ctx, "user-turn", "workplace_feedback"); err != nil {
		t.Fatalf("CreateSession 失败: %v", err)
	}

	result, err := service.SendMessage(ctx, "user-turn", "Here is what happened.")
	if err != nil {
		t.Fatalf("SendMessage 失败: %v", err)
	}
	if result.Turn != 1 || len(result.Outcomes) != 1 {
		t.Errorf("回合结果 = %+v", result)
	}

	saved, err := store.Load(ctx, "user-turn")
	if err != nil {
		t.Fatalf("读取会话失败: %v", err)
	}
	if saved.Turn != 1 || len(saved.History) != 2 {
		t.Errorf("持久化会话 = turn %d, history %d", saved.Turn, len(saved.History))
	}
}
