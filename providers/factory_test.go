package providers

import (
	"context"
	"testing"

	"github.com/Kota8102/agentcore-mastra-react-stack/config"
)

func TestNewRejectsUnknownProvider(t *testing.T) {
	_, err := New(context.Background(), config.AgentConfig{Provider: "ollama", Model: "llama3"})
	if err == nil {
		t.Fatal("expected error for unsupported provider")
	}
}

func TestNewRequiresModel(t *testing.T) {
	_, err := New(context.Background(), config.AgentConfig{Provider: "openai", APIKey: "sk-test-key-123"})
	if err == nil {
		t.Fatal("expected error for empty model")
	}
}

func TestNewOpenAICompatibleProviders(t *testing.T) {
	for _, provider := range []string{"openai", "openrouter"} {
		model, err := New(context.Background(), config.AgentConfig{
			Provider: provider,
			Model:    "gpt-4o-mini",
			APIKey:   "sk-test-key-123",
		})
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", provider, err)
		}
		if model == nil {
			t.Fatalf("%s: expected model", provider)
		}
	}
}

func TestNewOpenAIRequiresKey(t *testing.T) {
	_, err := New(context.Background(), config.AgentConfig{Provider: "openai", Model: "gpt-4o-mini"})
	if err == nil {
		t.Fatal("expected error without API key")
	}
}

func TestConvertToLangChainTools(t *testing.T) {
	tools := ConvertToLangChainTools([]ToolDefinition{{
		Name:        "weatherTool",
		Description: "Get current weather",
		Parameters:  map[string]any{"type": "object"},
	}})
	if len(tools) != 1 || tools[0].Type != "function" || tools[0].Function.Name != "weatherTool" {
		t.Fatalf("unexpected tools %+v", tools)
	}
}
