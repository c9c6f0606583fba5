// internal/storage/session_store_test.go
package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	apperrors "github.com/flirlabs/flirbot/internal/errors"
	"github.com/flirlabs/flirbot/internal/models"
)

// testStore 在临时目录中打开一个SQLite会话存储
func testStore(t *testing.T) *SQLiteSessionStore {
	t.Helper()

	store, err := NewSQLiteSessionStore(filepath.Join(t.TempDir(), "sessions.db"))
	if err != nil {
		t.Fatalf("打开存储失败: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleSession(userID string) *models.Session {
	return &models.Session{
		UserID:     userID,
		ScenarioID: "workplace_deadline",
		Turn:       1,
		Moods: map[string]*models.MoodState{
			"marcus": models.NewMoodState(models.MoodImpatient),
		},
		History: []models.ConversationEntry{
			{ID: "e1", Speaker: models.SpeakerUser, SpeakerName: "You", Content: "Can we talk?", Timestamp: time.Now()},
			{ID: "e2", Speaker: "marcus", SpeakerName: "Marcus", Content: "Make it quick.", Timestamp: time.Now(), Attempts: 1},
		},
		CreatedAt:   time.Now(),
		LastUpdated: time.Now(),
	}
}

// TestSaveLoadRoundTrip 保存后读取应还原完整会话
func TestSaveLoadRoundTrip(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	session := sampleSession("user-rt")
	if err := store.Save(ctx, session); err != nil {
		t.Fatalf("保存失败: %v", err)
	}

	loaded, err := store.Load(ctx, "user-rt")
	if err != nil {
		t.Fatalf("读取失败: %v", err)
	}

	if loaded.ScenarioID != "workplace_deadline" || loaded.Turn != 1 {
		t.Errorf("会话字段 = %s/%d", loaded.ScenarioID, loaded.Turn)
	}
	if len(loaded.History) != 2 || loaded.History[1].Content != "Make it quick." || loaded.History[1].Attempts != 1 {
		t.Errorf("历史 = %+v", loaded.History)
	}
	state := loaded.Moods["marcus"]
	if state == nil || state.Current != models.MoodImpatient {
		t.Errorf("情绪状态 = %+v", state)
	}
	if loaded.LastUpdated.IsZero() {
		t.Error("更新时间应随会话保存")
	}
}

// TestSaveIdempotent 未变化的会话重复保存产生相同的字节
func TestSaveIdempotent(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	session := sampleSession("user-idem")
	if err := store.Save(ctx, session); err != nil {
		t.Fatalf("首次保存失败: %v", err)
	}

	readPayload := func() string {
		t.Helper()
		var payload string
		err := store.db.QueryRowContext(ctx,
			`SELECT payload FROM sessions WHERE user_id = ?`, "user-idem").Scan(&payload)
		if err != nil {
			t.Fatalf("读取payload失败: %v", err)
		}
		return payload
	}

	first := readPayload()
	if err := store.Save(ctx, session); err != nil {
		t.Fatalf("二次保存失败: %v", err)
	}
	if second := readPayload(); second != first {
		t.Error("未变化的会话重复保存后字节不一致")
	}
}

// TestSaveUpsert 重复保存同一用户应覆盖而非报错
func TestSaveUpsert(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	session := sampleSession("user-up")
	if err := store.Save(ctx, session); err != nil {
		t.Fatalf("首次保存失败: %v", err)
	}

	session.Turn = 2
	session.Completed = true
	if err := store.Save(ctx, session); err != nil {
		t.Fatalf("二次保存失败: %v", err)
	}

	loaded, err := store.Load(ctx, "user-up")
	if err != nil {
		t.Fatalf("读取失败: %v", err)
	}
	if loaded.Turn != 2 || !loaded.Completed {
		t.Errorf("覆盖后的会话 = turn %d, completed %v", loaded.Turn, loaded.Completed)
	}

	ids, err := store.ListUserIDs(ctx)
	if err != nil {
		t.Fatalf("列表失败: %v", err)
	}
	if len(ids) != 1 {
		t.Errorf("应只有一条记录, 得到 %v", ids)
	}
}

// TestLoadMissing 不存在的会话返回NotFound
func TestLoadMissing(t *testing.T) {
	store := testStore(t)

	_, err := store.Load(context.Background(), "user-none")
	if err == nil || !apperrors.IsNotFoundError(err) {
		t.Errorf("应返回NotFound错误, 得到 %v", err)
	}
}

// TestDelete 删除后不可读，再删返回NotFound
func TestDelete(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, sampleSession("user-del")); err != nil {
		t.Fatalf("保存失败: %v", err)
	}
	if err := store.Delete(ctx, "user-del"); err != nil {
		t.Fatalf("删除失败: %v", err)
	}
	if _, err := store.Load(ctx, "user-del"); err == nil || !apperrors.IsNotFoundError(err) {
		t.Errorf("删除后读取应返回NotFound, 得到 %v", err)
	}
	if err := store.Delete(ctx, "user-del"); err == nil || !apperrors.IsNotFoundError(err) {
		t.Errorf("重复删除应返回NotFound, 得到 %v", err)
	}
}

// TestLoadNormalizesCorruptMood 损坏的情绪状态在读取时降级为中性
func TestLoadNormalizesCorruptMood(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	session := sampleSession("user-corrupt")
	session.Moods["marcus"].Current = "furious" // 非法枚举值
	session.Moods["sarah"] = nil
	if err := store.Save(ctx, session); err != nil {
		t.Fatalf("保存失败: %v", err)
	}

	loaded, err := store.Load(ctx, "user-corrupt")
	if err != nil {
		t.Fatalf("读取失败: %v", err)
	}

	for _, id := range []string{"marcus", "sarah"} {
		state := loaded.Moods[id]
		if state == nil || state.Current != models.MoodNeutral {
			t.Errorf("角色 %s 的损坏状态应重置为中性, 得到 %+v", id, state)
		}
	}
}

// TestListUserIDs 按最近更新排序返回全部用户
func TestListUserIDs(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	for _, id := range []string{"user-a", "user-b", "user-c"} {
		if err := store.Save(ctx, sampleSession(id)); err != nil {
			t.Fatalf("保存 %s 失败: %v", id, err)
		}
	}

	ids, err := store.ListUserIDs(ctx)
	if err != nil {
		t.Fatalf("列表失败: %v", err)
	}
	if len(ids) != 3 {
		t.Errorf("用户数 = %d", len(ids))
	}
}
