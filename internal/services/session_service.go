// internal/services/session_service.go
package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/flirlabs/flirbot/internal/errors"
	"github.com/flirlabs/flirbot/internal/models"
	"github.com/flirlabs/flirbot/internal/storage"
	"github.com/flirlabs/flirbot/internal/utils"
)

// SessionService 管理训练会话的生命周期和准入控制
type SessionService struct {
	store      storage.SessionStore
	scenarios  *ScenarioService
	characters *CharacterService
	pipeline   *DeliveryPipeline
	maxTurns   int

	// 同一会话同时只允许一轮在处理
	activeMu    sync.Mutex
	activeTurns map[string]bool
}

// NewSessionService 创建会话服务
func NewSessionService(
	store storage.SessionStore,
	scenarios *ScenarioService,
	characters *CharacterService,
	pipeline *DeliveryPipeline,
	maxTurns int,
) *SessionService {
	if maxTurns <= 0 {
		maxTurns = 3
	}
	return &SessionService{
		store:       store,
		scenarios:   scenarios,
		characters:  characters,
		pipeline:    pipeline,
		maxTurns:    maxTurns,
		activeTurns: make(map[string]bool),
	}
}

// CreateSession 创建新会话并初始化每个角色的情绪状态
func (s *SessionService) CreateSession(ctx context.Context, userID, scenarioID string) (*models.Session, error) {
	scenario, err := s.scenarios.GetScenario(scenarioID)
	if err != nil {
		return nil, err
	}

	if userID == "" {
		userID = uuid.New().String()
	}

	// 已有会话直接返回，避免覆盖进行中的训练
	if existing, err := s.store.Load(ctx, userID); err == nil {
		return existing, nil
	}

	session := &models.Session{
		UserID:      userID,
		ScenarioID:  scenario.ID,
		Moods:       make(map[string]*models.MoodState),
		CreatedAt:   time.Now(),
		LastUpdated: time.Now(),
	}

	conflict := scenario.IsConflict()
	for _, characterID := range scenario.CharacterIDs {
		character, err := s.characters.GetCharacter(characterID)
		if err != nil {
			utils.GetLogger().Warn("场景引用了不存在的角色", map[string]interface{}{
				"scenario": scenario.ID, "character": characterID,
			})
			continue
		}
		if character.IsCoach {
			continue
		}
		session.Moods[character.ID] = models.NewMoodState(character.InitialMood(conflict))
	}

	if err := s.store.Save(ctx, session); err != nil {
		return nil, err
	}

	utils.GetLogger().Info("会话已创建", map[string]interface{}{
		"user_id": userID, "scenario": scenario.ID, "conflict": conflict,
	})
	return session, nil
}

// GetSession 读取会话
func (s *SessionService) GetSession(ctx context.Context, userID string) (*models.Session, error) {
	return s.store.Load(ctx, userID)
}

// DeleteSession 删除会话
func (s *SessionService) DeleteSession(ctx context.Context, userID string) error {
	return s.store.Delete(ctx, userID)
}

// SendMessage 处理用户的一条消息并驱动完整的角色响应流程
func (s *SessionService) SendMessage(ctx context.Context, userID, message string) (*models.TurnResult, error) {
	if message == "" {
		return nil, apperrors.NewValidationError("消息内容不能为空", nil)
	}

	if err := s.admit(userID); err != nil {
		return nil, err
	}
	defer s.release(userID)

	session, err := s.store.Load(ctx, userID)
	if err != nil {
		return nil, err
	}

	if session.Completed {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("会话已结束，共%d轮", session.Turn), nil)
	}

	return s.pipeline.ProcessTurn(ctx, session, message)
}

// admit 获取会话的处理权，已有进行中的轮次则拒绝
func (s *SessionService) admit(userID string) error {
	s.activeMu.Lock()
	defer s.activeMu.Unlock()

	if s.activeTurns[userID] {
		return apperrors.NewConflictError(
			fmt.Sprintf("会话 %s 正在处理上一条消息", userID), nil)
	}
	s.activeTurns[userID] = true
	return nil
}

// release 释放会话的处理权
func (s *SessionService) release(userID string) {
	s.activeMu.Lock()
	defer s.activeMu.Unlock()
	delete(s.activeTurns, userID)
}
