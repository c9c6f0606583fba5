// internal/services/pipeline_service.go
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/flirlabs/flirbot/internal/models"
	"github.com/flirlabs/flirbot/internal/storage"
	"github.com/flirlabs/flirbot/internal/transport"
	"github.com/flirlabs/flirbot/internal/utils"
)

// DeliveryPipeline 顺序处理一轮对话中每个角色的响应：
// 情绪推断、提示词构建、生成、投递，全部成功才提交情绪与历史。
type DeliveryPipeline struct {
	llmService   *LLMService
	moodService  *MoodService
	composer     *PromptComposer
	characters   *CharacterService
	scenarios    *ScenarioService
	store        storage.SessionStore
	transport    transport.Transport
	maxAttempts  int
	maxTurns     int
	metrics      *utils.APIMetrics
	sleep        func(time.Duration) // 测试时可替换
}

// NewDeliveryPipeline 创建响应投递管线
func NewDeliveryPipeline(
	llmService *LLMService,
	moodService *MoodService,
	composer *PromptComposer,
	characters *CharacterService,
	scenarios *ScenarioService,
	store storage.SessionStore,
	tp transport.Transport,
	maxAttempts int,
	maxTurns int,
) *DeliveryPipeline {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if maxTurns <= 0 {
		maxTurns = 3
	}
	return &DeliveryPipeline{
		llmService:  llmService,
		moodService: moodService,
		composer:    composer,
		characters:  characters,
		scenarios:   scenarios,
		store:       store,
		transport:   tp,
		maxAttempts: maxAttempts,
		maxTurns:    maxTurns,
		metrics:     utils.NewAPIMetrics(),
		sleep:       time.Sleep,
	}
}

// ProcessTurn 处理用户的一条消息：按场景角色顺序依次生成并投递响应。
// 前面角色成功投递的内容会进入后续角色可见的历史。
func (p *DeliveryPipeline) ProcessTurn(ctx context.Context, session *models.Session, userMessage string) (*models.TurnResult, error) {
	logger := utils.GetLogger()

	scenario, err := p.scenarios.GetScenario(session.ScenarioID)
	if err != nil {
		return nil, err
	}

	turnID := uuid.New().String()
	result := &models.TurnResult{
		TurnID: turnID,
		Turn:   session.Turn + 1,
	}

	// 用户消息先进入历史，所有角色都能看到
	session.History = append(session.History, models.ConversationEntry{
		ID:          uuid.New().String(),
		Speaker:     models.SpeakerUser,
		SpeakerName: "You",
		Content:     userMessage,
		Timestamp:   time.Now(),
	})

	p.notify(ctx, session.UserID, func(msg *transport.Message) {
		msg.Type = transport.MessageTypeTurnStart
		msg.TurnID = turnID
	})

	for _, characterID := range scenario.CharacterIDs {
		character, err := p.characters.GetCharacter(characterID)
		if err != nil {
			logger.Warn("场景引用了不存在的角色，跳过", map[string]interface{}{
				"scenario": scenario.ID, "character": characterID,
			})
			continue
		}

		// 教练角色不参与情绪循环
		if character.IsCoach {
			continue
		}

		outcome := p.processCharacter(ctx, session, scenario, character, turnID, userMessage)
		result.Outcomes = append(result.Outcomes, outcome)
	}

	delivered, failed := 0, 0
	for _, outcome := range result.Outcomes {
		if outcome.Status == models.StatusDelivered {
			delivered++
		} else {
			failed++
		}
	}
	p.metrics.RecordTurn(scenario.ID, delivered, failed)

	session.Turn++
	session.LastUpdated = time.Now()
	if session.Turn >= p.maxTurns {
		session.Completed = true
	}
	result.SessionCompleted = session.Completed

	if err := p.store.Save(ctx, session); err != nil {
		logger.Error("保存会话失败", map[string]interface{}{"user_id": session.UserID, "err": err.Error()})
	}

	p.notify(ctx, session.UserID, func(msg *transport.Message) {
		msg.Type = transport.MessageTypeTurnEnd
		msg.TurnID = turnID
	})

	return result, nil
}

// processCharacter 执行单个角色的完整投递流程
func (p *DeliveryPipeline) processCharacter(
	ctx context.Context,
	session *models.Session,
	scenario *models.Scenario,
	character *models.Character,
	turnID string,
	userMessage string,
) models.CharacterOutcome {
	logger := utils.GetLogger()

	outcome := models.CharacterOutcome{
		CharacterID:   character.ID,
		CharacterName: character.Name,
		Status:        models.StatusPending,
	}

	state := session.MoodFor(character.ID)

	// 情绪推断在副本上进行，投递失败时不污染会话状态
	workState := state.Clone()
	inference := p.moodService.InferMood(ctx, character, workState, userMessage, session.History, scenario.Context)
	if inference.Updated {
		workState.UpdateMood(inference.Mood, inference.Intensity, inference.Reason, inference.Triggers)
	}
	outcome.Status = models.StatusMoodInferred

	rules := p.characters.RulesFor(character)
	systemPrompt := p.composer.ComposeSystemPrompt(character, scenario, workState, rules, userMessage)
	outcome.Status = models.StatusPromptBuilt

	text, usedFallback, err := p.generate(ctx, session, scenario, character, systemPrompt)
	if err != nil {
		logger.Error("角色响应生成失败，本轮跳过该角色", map[string]interface{}{
			"character": character.ID, "err": err.Error(),
		})
		outcome.Status = models.StatusFailed
		outcome.Error = err.Error()

		// 尽力通知客户端该角色缺席，不计入历史
		p.notify(ctx, session.UserID, func(msg *transport.Message) {
			msg.Type = transport.MessageTypeNotice
			msg.TurnID = turnID
			msg.Speaker = character.ID
			msg.SpeakerName = character.Name
			msg.Content = fmt.Sprintf("%s is unable to respond right now.", character.Name)
			msg.IsNotice = true
		})
		return outcome
	}
	outcome.Status = models.StatusGenerated
	outcome.Text = text
	outcome.UsedFallback = usedFallback

	// 投递，失败时指数退避重试
	outcome.Status = models.StatusDelivering
	deliveryMsg := transport.NewMessage(transport.MessageTypeCharacter)
	deliveryMsg.TurnID = turnID
	deliveryMsg.Speaker = character.ID
	deliveryMsg.SpeakerName = character.Name
	deliveryMsg.Content = text
	deliveryMsg.Mood = string(workState.Current)
	deliveryMsg.MoodIntensity = workState.Intensity
	deliveryMsg.MoodColor = workState.Current.Color()
	deliveryMsg.MoodEmoji = workState.Current.Emoji()

	attempts, err := p.deliver(ctx, session.UserID, deliveryMsg)
	outcome.Attempts = attempts
	if err != nil {
		logger.Error("角色响应投递失败，放弃提交", map[string]interface{}{
			"character": character.ID, "attempts": attempts, "err": err.Error(),
		})
		outcome.Status = models.StatusFailed
		outcome.Error = err.Error()

		// 尽力通知客户端该角色缺席，不计入历史
		p.notify(ctx, session.UserID, func(msg *transport.Message) {
			msg.Type = transport.MessageTypeNotice
			msg.TurnID = turnID
			msg.Speaker = character.ID
			msg.SpeakerName = character.Name
			msg.Content = fmt.Sprintf("%s is unable to respond right now.", character.Name)
			msg.IsNotice = true
		})
		return outcome
	}

	// 投递成功才提交：更新情绪、写入历史、持久化
	if inference.Updated {
		state.UpdateMood(inference.Mood, inference.Intensity, inference.Reason, inference.Triggers)
	}
	session.History = append(session.History, models.ConversationEntry{
		ID:          uuid.New().String(),
		Speaker:     character.ID,
		SpeakerName: character.Name,
		Content:     text,
		Timestamp:   time.Now(),
		Attempts:    attempts,
	})
	session.LastUpdated = time.Now()
	if err := p.store.Save(ctx, session); err != nil {
		logger.Error("提交会话状态失败", map[string]interface{}{"user_id": session.UserID, "err": err.Error()})
	}

	p.metrics.RecordDelivery(character.ID, attempts, usedFallback)

	outcome.Status = models.StatusDelivered
	outcome.Mood = state.Current
	outcome.MoodIntensity = state.Intensity
	outcome.MoodColor = state.Current.Color()
	outcome.MoodEmoji = state.Current.Emoji()

	logger.Info("角色响应已投递", map[string]interface{}{
		"character": character.ID,
		"mood":      string(state.Current),
		"attempts":  attempts,
		"fallback":  usedFallback,
	})
	return outcome
}

// generate 生成角色响应，动态提示词失败后用静态提示词重试一次
func (p *DeliveryPipeline) generate(
	ctx context.Context,
	session *models.Session,
	scenario *models.Scenario,
	character *models.Character,
	systemPrompt string,
) (string, bool, error) {
	userContent := p.buildUserContent(session, character)

	text, err := p.complete(ctx, systemPrompt, userContent)
	if err == nil {
		return text, false, nil
	}

	utils.GetLogger().Warn("动态提示词生成失败，改用静态提示词重试", map[string]interface{}{
		"character": character.ID, "err": err.Error(),
	})

	staticPrompt := p.composer.ComposeStaticPrompt(character, scenario)
	text, err = p.complete(ctx, staticPrompt, userContent)
	if err != nil {
		return "", true, err
	}
	return text, true, nil
}

// complete 执行一次对话补全并取第一个候选
func (p *DeliveryPipeline) complete(ctx context.Context, systemPrompt, userContent string) (string, error) {
	resp, err := p.llmService.CreateChatCompletion(ctx, ChatCompletionRequest{
		Model: "quality",
		Messages: []ChatCompletionMessage{
			{Role: RoleSystem, Content: systemPrompt},
			{Role: RoleUser, Content: userContent},
		},
		Temperature: 0.8,
		MaxTokens:   300,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("生成结果为空")
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("生成结果为空")
	}
	return text, nil
}

// buildUserContent 以角色视角拼接历史，历史末尾已包含当前用户消息
func (p *DeliveryPipeline) buildUserContent(session *models.Session, character *models.Character) string {
	var sb strings.Builder
	if history := p.composer.FormatHistoryFor(session.History, character.ID); history != "" {
		sb.WriteString(history)
		sb.WriteString("\n\n")
	}
	sb.WriteString(fmt.Sprintf("Respond now as %s.", character.Name))
	return sb.String()
}

// deliver 投递消息，最多maxAttempts次，失败间隔1s、2s、4s指数递增
func (p *DeliveryPipeline) deliver(ctx context.Context, channel string, msg transport.Message) (int, error) {
	var lastErr error
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		lastErr = p.transport.Send(ctx, channel, msg)
		if lastErr == nil {
			return attempt, nil
		}
		if attempt < p.maxAttempts {
			p.sleep(time.Duration(1<<(attempt-1)) * time.Second)
		}
	}
	return p.maxAttempts, lastErr
}

// notify 发送尽力而为的状态消息，失败只记日志
func (p *DeliveryPipeline) notify(ctx context.Context, channel string, build func(*transport.Message)) {
	msg := transport.NewMessage("")
	build(&msg)
	if err := p.transport.Send(ctx, channel, msg); err != nil {
		utils.GetLogger().Debug("状态消息未送达", map[string]interface{}{
			"channel": channel, "type": msg.Type, "err": err.Error(),
		})
	}
}
