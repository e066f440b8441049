package providers

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/Kota8102/agentcore-mastra-react-stack/config"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/bedrock"
	"github.com/tmc/langchaingo/llms/openai"
)

// DefaultOpenRouterBaseURL OpenRouter 的 OpenAI 兼容端点
const DefaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"

// New 根据 Agent 配置创建聊天模型
func New(ctx context.Context, cfg config.AgentConfig) (ChatModel, error) {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		return nil, fmt.Errorf("model is required")
	}

	providerType := ProviderType(strings.ToLower(strings.TrimSpace(cfg.Provider)))
	if providerType == "" {
		providerType = ProviderTypeBedrock
	}

	switch providerType {
	case ProviderTypeBedrock:
		return NewBedrock(ctx, cfg.Region, model)
	case ProviderTypeOpenAI:
		return newOpenAICompatible(cfg.APIKey, cfg.BaseURL, model)
	case ProviderTypeOpenRouter:
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = DefaultOpenRouterBaseURL
		}
		return newOpenAICompatible(cfg.APIKey, baseURL, model)
	case ProviderTypeAnthropic:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("anthropic: API key is required")
		}
		llm, err := anthropic.New(
			anthropic.WithToken(cfg.APIKey),
			anthropic.WithModel(model),
		)
		if err != nil {
			return nil, fmt.Errorf("anthropic: %w", err)
		}
		return llm, nil
	default:
		return nil, fmt.Errorf("unsupported provider type: %s", cfg.Provider)
	}
}

// NewBedrock creates a Bedrock model using the default AWS credential chain.
// An empty region falls back to AWS_REGION.
func NewBedrock(ctx context.Context, region, model string) (ChatModel, error) {
	if region == "" {
		region = os.Getenv("AWS_REGION")
	}
	if region == "" {
		return nil, fmt.Errorf("bedrock: region is required")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("bedrock: load aws config: %w", err)
	}

	llm, err := bedrock.New(
		bedrock.WithClient(bedrockruntime.NewFromConfig(awsCfg)),
		bedrock.WithModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("bedrock: %w", err)
	}
	return llm, nil
}

func newOpenAICompatible(apiKey, baseURL, model string) (ChatModel, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	opts := []openai.Option{
		openai.WithToken(apiKey),
		openai.WithModel(model),
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}

	llm, err := openai.New(opts...)
	if err != nil {
		return nil, err
	}
	return llm, nil
}
