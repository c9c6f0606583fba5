// internal/llm/providers/gemini/gemini_test.go
package gemini

import "testing"

// TestResolveModel 档位别名映射到配置的具体模型
func TestResolveModel(t *testing.T) {
	provider := &Provider{
		defaultModel: "gemini-2.0-flash",
		fastModel:    "gemini-2.0-flash-lite",
		qualityModel: "gemini-2.0-flash",
	}

	tests := []struct {
		name      string
		requested string
		want      string
	}{
		{"fast别名", "fast", "gemini-2.0-flash-lite"},
		{"quality别名", "quality", "gemini-2.0-flash"},
		{"空请求用默认模型", "", "gemini-2.0-flash"},
		{"具体模型名原样使用", "gemini-1.5-pro", "gemini-1.5-pro"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := provider.resolveModel(tt.requested); got != tt.want {
				t.Errorf("resolveModel(%q) = %q, 期望 %q", tt.requested, got, tt.want)
			}
		})
	}
}
