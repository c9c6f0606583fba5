// internal/services/llm_service_test.go
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/flirlabs/flirbot/internal/llm"
)

// fakeProvider 测试用的桩提供者，记录收到的请求
type fakeProvider struct {
	mu       sync.Mutex
	requests []llm.CompletionRequest
	complete func(req llm.CompletionRequest) (*llm.CompletionResponse, error)
}

func (f *fakeProvider) Initialize(config map[string]string) error { return nil }
func (f *fakeProvider) GetName() string                           { return "fake" }
func (f *fakeProvider) GetSupportedModels() []string              { return []string{"fake-model"} }
func (f *fakeProvider) TestConnection(ctx context.Context) error  { return nil }

func (f *fakeProvider) CompleteText(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if f.complete != nil {
		return f.complete(req)
	}
	return &llm.CompletionResponse{Text: "ok", TokensUsed: 3, ModelName: req.Model}, nil
}

func (f *fakeProvider) StreamCompletion(ctx context.Context, req llm.CompletionRequest) (<-chan llm.StreamResponse, error) {
	ch := make(chan llm.StreamResponse, 1)
	ch <- llm.StreamResponse{Text: "ok", Done: true}
	close(ch)
	return ch, nil
}

// callCount 返回提供者被调用的次数
func (f *fakeProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

// lastRequest 返回最后一次请求
func (f *fakeProvider) lastRequest() llm.CompletionRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		return llm.CompletionRequest{}
	}
	return f.requests[len(f.requests)-1]
}

// TestCreateChatCompletionNotReady 未就绪的服务应返回可识别的错误
func TestCreateChatCompletionNotReady(t *testing.T) {
	service := NewEmptyLLMService()

	_, err := service.CreateChatCompletion(context.Background(), ChatCompletionRequest{
		Messages: []ChatCompletionMessage{{Role: RoleUser, Content: "hello"}},
	})
	if err == nil {
		t.Fatal("未就绪服务应返回错误")
	}
	if !errors.Is(err, ErrLLMNotReady) {
		t.Errorf("错误应可用 errors.Is 识别为 ErrLLMNotReady: %v", err)
	}
}

// TestCreateChatCompletionCache 相同请求应命中缓存
func TestCreateChatCompletionCache(t *testing.T) {
	provider := &fakeProvider{}
	service := NewLLMServiceWithProvider("fake", provider)

	req := ChatCompletionRequest{
		Model:    "quality",
		Messages: []ChatCompletionMessage{{Role: RoleUser, Content: "cache me"}},
	}

	first, err := service.CreateChatCompletion(context.Background(), req)
	if err != nil {
		t.Fatalf("首次请求失败: %v", err)
	}
	second, err := service.CreateChatCompletion(context.Background(), req)
	if err != nil {
		t.Fatalf("二次请求失败: %v", err)
	}

	if provider.callCount() != 1 {
		t.Errorf("提供者应只被调用一次, 实际 %d 次", provider.callCount())
	}
	if first.Choices[0].Message.Content != second.Choices[0].Message.Content {
		t.Error("缓存结果应与首次结果一致")
	}
}

// TestCreateChatCompletionAssistantFolding 助手历史应被折叠进用户提示
func TestCreateChatCompletionAssistantFolding(t *testing.T) {
	provider := &fakeProvider{}
	service := NewLLMServiceWithProvider("fake", provider)

	_, err := service.CreateChatCompletion(context.Background(), ChatCompletionRequest{
		Model: "quality",
		Messages: []ChatCompletionMessage{
			{Role: RoleSystem, Content: "system prompt"},
			{Role: RoleAssistant, Content: "earlier reply"},
			{Role: RoleUser, Content: "current input"},
		},
	})
	if err != nil {
		t.Fatalf("请求失败: %v", err)
	}

	last := provider.lastRequest()
	if last.SystemPrompt != "system prompt" {
		t.Errorf("系统提示 = %q", last.SystemPrompt)
	}
	want := "Conversation history:\nearlier reply\n\nCurrent user input: current input"
	if last.Prompt != want {
		t.Errorf("折叠后的用户提示 = %q, 期望 %q", last.Prompt, want)
	}
}

// TestCreateChatCompletionProviderError 提供者错误应原样上抛
func TestCreateChatCompletionProviderError(t *testing.T) {
	provider := &fakeProvider{
		complete: func(req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			return nil, fmt.Errorf("upstream boom")
		},
	}
	service := NewLLMServiceWithProvider("fake", provider)

	_, err := service.CreateChatCompletion(context.Background(), ChatCompletionRequest{
		Messages: []ChatCompletionMessage{{Role: RoleUser, Content: "fail please"}},
	})
	if err == nil || err.Error() != "upstream boom" {
		t.Errorf("提供者错误应原样返回, 得到 %v", err)
	}
}

// TestCleanLLMJSONResponse 测试JSON响应清洗
func TestCleanLLMJSONResponse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"纯JSON", `{"mood":"angry"}`, `{"mood":"angry"}`},
		{"markdown围栏", "```json\n{\"mood\":\"angry\"}\n```", `{"mood":"angry"}`},
		{"无语言标记围栏", "```\n{\"mood\":\"angry\"}\n```", `{"mood":"angry"}`},
		{"前后缀说明文字", "Here is the result: {\"mood\":\"angry\"} hope it helps", `{"mood":"angry"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanLLMJSONResponse(tt.input); got != tt.want {
				t.Errorf("CleanLLMJSONResponse(%q) = %q, 期望 %q", tt.input, got, tt.want)
			}
		})
	}
}
