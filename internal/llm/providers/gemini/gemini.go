// internal/llm/providers/gemini/gemini.go
package gemini

import (
	"context"
	"errors"

	"google.golang.org/genai"

	"github.com/flirlabs/flirbot/internal/llm"
)

func init() {
	llm.Register("gemini", func() llm.Provider {
		return &Provider{
			supportedModels: []string{
				"gemini-2.0-flash",
				"gemini-2.0-flash-lite",
				"gemini-1.5-pro",
			},
			defaultModel: "gemini-2.0-flash",
			fastModel:    "gemini-2.0-flash-lite",
			qualityModel: "gemini-2.0-flash",
		}
	})
}

// Provider Gemini提供者，基于官方genai SDK。
// fast模型用于情绪分类，quality模型用于角色响应生成。
type Provider struct {
	apiKey          string
	client          *genai.Client
	defaultModel    string
	fastModel       string
	qualityModel    string
	supportedModels []string
}

func (p *Provider) Initialize(config map[string]string) error {
	apiKey, exists := config["api_key"]
	if !exists || apiKey == "" {
		// 备用键，与主配置中的groq密钥共存
		apiKey = config["gemini_api_key"]
	}
	if apiKey == "" {
		return errors.New("Gemini API密钥未提供")
	}
	p.apiKey = apiKey

	if model, exists := config["default_model"]; exists && model != "" {
		p.defaultModel = model
	}
	if model, exists := config["fast_model"]; exists && model != "" {
		p.fastModel = model
	}
	if model, exists := config["quality_model"]; exists && model != "" {
		p.qualityModel = model
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return err
	}
	p.client = client
	return nil
}

func (p *Provider) GetName() string {
	return "Gemini"
}

func (p *Provider) GetSupportedModels() []string {
	return p.supportedModels
}

// TestConnection 发送最小补全请求探测可用性
func (p *Provider) TestConnection(ctx context.Context) error {
	if p.client == nil {
		return errors.New("Gemini客户端未初始化")
	}
	_, err := p.CompleteText(ctx, llm.CompletionRequest{
		Prompt:    "ping",
		MaxTokens: 1,
	})
	return err
}

// resolveModel 解析档位别名：调用方可以用fast/quality选择模型档位
func (p *Provider) resolveModel(requested string) string {
	model := requested
	if model == "" {
		model = p.defaultModel
	}
	switch model {
	case "fast":
		return p.fastModel
	case "quality":
		return p.qualityModel
	}
	return model
}

func (p *Provider) CompleteText(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	if p.client == nil {
		return nil, errors.New("Gemini客户端未初始化")
	}

	model := p.resolveModel(req.Model)

	contents := []*genai.Content{
		{
			Role:  genai.RoleUser,
			Parts: []*genai.Part{{Text: req.Prompt}},
		},
	}

	cfg := &genai.GenerateContentConfig{}
	if req.Temperature > 0 {
		temp := req.Temperature
		cfg.Temperature = &temp
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.SystemPrompt != "" {
		cfg.SystemInstruction = &genai.Content{
			Role:  genai.RoleUser,
			Parts: []*genai.Part{{Text: req.SystemPrompt}},
		}
	}
	if len(req.StopWords) > 0 {
		cfg.StopSequences = req.StopWords
	}

	resp, err := p.client.Models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		return nil, err
	}

	text := extractText(resp)
	if text == "" {
		return nil, errors.New("Gemini未返回任何结果")
	}

	out := &llm.CompletionResponse{
		Text:         text,
		ModelName:    model,
		ProviderName: p.GetName(),
	}
	if resp.UsageMetadata != nil {
		out.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		out.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
		out.TokensUsed = int(resp.UsageMetadata.TotalTokenCount)
	}
	return out, nil
}

// StreamCompletion Gemini暂以单次补全模拟流式，整段文本一次送出
func (p *Provider) StreamCompletion(ctx context.Context, req llm.CompletionRequest) (<-chan llm.StreamResponse, error) {
	resp, err := p.CompleteText(ctx, req)
	if err != nil {
		return nil, err
	}

	respChan := make(chan llm.StreamResponse, 2)
	respChan <- llm.StreamResponse{
		Text:      resp.Text,
		ModelName: resp.ModelName,
	}
	respChan <- llm.StreamResponse{
		FinishReason: "stop",
		ModelName:    resp.ModelName,
		Done:         true,
	}
	close(respChan)
	return respChan, nil
}

// extractText 取第一个包含文本的候选
func extractText(res *genai.GenerateContentResponse) string {
	if res == nil || len(res.Candidates) == 0 {
		return ""
	}
	for _, c := range res.Candidates {
		if c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if p.Text != "" {
				return p.Text
			}
		}
	}
	return ""
}
