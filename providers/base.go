package providers

import (
	"context"

	"github.com/tmc/langchaingo/llms"
)

// ChatModel 聊天模型接口。任何 langchaingo llms.Model 都满足它。
type ChatModel interface {
	GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error)
}

// ProviderType 提供商类型
type ProviderType string

const (
	ProviderTypeBedrock    ProviderType = "bedrock"
	ProviderTypeOpenAI     ProviderType = "openai"
	ProviderTypeAnthropic  ProviderType = "anthropic"
	ProviderTypeOpenRouter ProviderType = "openrouter"
)

// ToolDefinition 工具定义
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// ConvertToLangChainTools 转换为 LangChain 工具格式
func ConvertToLangChainTools(tools []ToolDefinition) []llms.Tool {
	result := make([]llms.Tool, len(tools))
	for i, tool := range tools {
		result[i] = llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.Parameters,
			},
		}
	}
	return result
}
