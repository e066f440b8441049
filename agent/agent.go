// Package agent 实现运行时内部的事件流生产者：指令 + 模型 + 工具。
package agent

import (
	"context"
	"fmt"

	"github.com/Kota8102/agentcore-mastra-react-stack/agent/tools"
	"github.com/Kota8102/agentcore-mastra-react-stack/internal/logger"
	"github.com/Kota8102/agentcore-mastra-react-stack/protocol"
	"github.com/Kota8102/agentcore-mastra-react-stack/providers"
	"github.com/tmc/langchaingo/llms"
	"go.uber.org/zap"
)

// DefaultMaxSteps 默认最大模型调用次数
const DefaultMaxSteps = 5

// Options 创建 Agent 的配置
type Options struct {
	Name         string
	Instructions string
	Model        providers.ChatModel
	Tools        *tools.Registry
	Temperature  float64
	MaxTokens    int
	MaxSteps     int

	// DisableStreaming calls the model without a streaming callback and
	// emits each step's text once the call returns. Bedrock through
	// langchaingo drops tool calls from streamed responses.
	DisableStreaming bool

	Logger *zap.Logger
}

// StreamOptions selects which framing events a stream carries.
type StreamOptions struct {
	SendReasoning bool
	SendStart     bool
	SendFinish    bool
}

// Agent 事件流生产者
type Agent struct {
	name             string
	instructions     string
	model            providers.ChatModel
	tools            *tools.Registry
	temperature      float64
	maxTokens        int
	maxSteps         int
	disableStreaming bool
	logger           *zap.Logger
}

// New 创建 Agent
func New(opts Options) (*Agent, error) {
	if opts.Model == nil {
		return nil, fmt.Errorf("model cannot be nil")
	}
	if opts.MaxSteps <= 0 {
		opts.MaxSteps = DefaultMaxSteps
	}
	if opts.Tools == nil {
		opts.Tools = tools.NewRegistry()
	}

	return &Agent{
		name:             opts.Name,
		instructions:     opts.Instructions,
		model:            opts.Model,
		tools:            opts.Tools,
		temperature:      opts.Temperature,
		maxTokens:        opts.MaxTokens,
		maxSteps:         opts.MaxSteps,
		disableStreaming: opts.DisableStreaming,
		logger:           logger.OrDefault(opts.Logger).With(zap.String("agent", opts.Name)),
	}, nil
}

// Name 返回 Agent 名称
func (a *Agent) Name() string {
	return a.name
}

// Stream starts producing events for messages. Production is lazy: the
// model is not called until the first Next.
func (a *Agent) Stream(ctx context.Context, messages []protocol.Message, opts StreamOptions) (Source, error) {
	if len(messages) == 0 {
		return nil, fmt.Errorf("messages cannot be empty")
	}

	history := toLLMMessages(messages)
	if len(history) == 0 {
		return nil, fmt.Errorf("messages have no usable content")
	}
	if a.instructions != "" {
		history = append([]llms.MessageContent{llms.TextParts(llms.ChatMessageTypeSystem, a.instructions)}, history...)
	}

	return newSource(ctx, func(ctx context.Context, emit emitFunc) error {
		return a.run(ctx, history, opts, emit)
	}), nil
}
