// internal/storage/session_store.go
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	apperrors "github.com/flirlabs/flirbot/internal/errors"
	"github.com/flirlabs/flirbot/internal/models"
	"github.com/flirlabs/flirbot/internal/utils"

	_ "github.com/mattn/go-sqlite3"
)

// SessionStore 会话持久化接口
type SessionStore interface {
	Save(ctx context.Context, session *models.Session) error
	Load(ctx context.Context, userID string) (*models.Session, error)
	Delete(ctx context.Context, userID string) error
	ListUserIDs(ctx context.Context) ([]string, error)
	Close() error
}

// SQLiteSessionStore 基于SQLite的会话存储
type SQLiteSessionStore struct {
	db     *sql.DB
	logger *utils.Logger
}

// NewSQLiteSessionStore 打开数据库并执行迁移
func NewSQLiteSessionStore(dsn string) (*SQLiteSessionStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("打开数据库失败: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("启用外键失败: %w", err)
	}

	store := &SQLiteSessionStore{
		db:     db,
		logger: utils.GetLogger(),
	}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("数据库迁移失败: %w", err)
	}

	return store, nil
}

// migrate 执行数据库迁移
func (s *SQLiteSessionStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			user_id TEXT PRIMARY KEY,
			scenario_id TEXT NOT NULL,
			payload TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			last_updated DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_scenario ON sessions(scenario_id)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("迁移执行失败: %w", err)
		}
	}
	return nil
}

// Close 关闭数据库连接
func (s *SQLiteSessionStore) Close() error {
	return s.db.Close()
}

// Save 保存会话，已存在则覆盖。
// 不修改会话内容，未变化的会话重复保存得到相同的字节。
func (s *SQLiteSessionStore) Save(ctx context.Context, session *models.Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return apperrors.NewSerializationError("序列化会话失败", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions (user_id, scenario_id, payload, created_at, last_updated)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
			scenario_id = excluded.scenario_id,
			payload = excluded.payload,
			last_updated = excluded.last_updated`,
		session.UserID, session.ScenarioID, string(payload), session.CreatedAt, session.LastUpdated)
	if err != nil {
		return fmt.Errorf("保存会话失败: %w", err)
	}
	return nil
}

// Load 按用户ID读取会话，损坏的情绪状态降级为中性
func (s *SQLiteSessionStore) Load(ctx context.Context, userID string) (*models.Session, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM sessions WHERE user_id = ?`, userID).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("会话不存在: %s", userID), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("读取会话失败: %w", err)
	}

	var session models.Session
	if err := json.Unmarshal([]byte(payload), &session); err != nil {
		return nil, apperrors.NewSerializationError("解析会话失败", err)
	}

	// 逐角色修复损坏的情绪状态，而非整个会话作废
	for characterID, state := range session.Moods {
		if state == nil || !state.Normalize() {
			s.logger.Warnf("角色 %s 的情绪状态已损坏，重置为中性", characterID)
			session.Moods[characterID] = models.NewMoodState(models.MoodNeutral)
		}
	}

	return &session, nil
}

// Delete 删除会话
func (s *SQLiteSessionStore) Delete(ctx context.Context, userID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("删除会话失败: %w", err)
	}

	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("会话不存在: %s", userID), nil)
	}
	return nil
}

// ListUserIDs 列出所有会话的用户ID
func (s *SQLiteSessionStore) ListUserIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT user_id FROM sessions ORDER BY last_updated DESC`)
	if err != nil {
		return nil, fmt.Errorf("查询会话列表失败: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("读取会话行失败: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
