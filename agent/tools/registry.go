package tools

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/Kota8102/agentcore-mastra-react-stack/internal/logger"
	"github.com/Kota8102/agentcore-mastra-react-stack/providers"
	"github.com/tmc/langchaingo/llms"
	"go.uber.org/zap"
)

// Registry 工具注册表
type Registry struct {
	tools map[string]Tool
	mu    sync.RWMutex
}

// NewRegistry 创建工具注册表
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

// Register 注册工具
func (r *Registry) Register(tool Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := tool.Name()
	if _, ok := r.tools[name]; ok {
		return fmt.Errorf("tool %s already registered", name)
	}

	r.tools[name] = tool
	logger.Debug("Tool registered", zap.String("tool", name))
	return nil
}

// Get 获取工具
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, ok := r.tools[name]
	return tool, ok
}

// List 列出所有工具（按名称排序）
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tools := make([]Tool, 0, len(r.tools))
	for _, tool := range r.tools {
		tools = append(tools, tool)
	}
	sort.Slice(tools, func(i, j int) bool { return tools[i].Name() < tools[j].Name() })
	return tools
}

// Definitions returns the tools in the form the model expects.
func (r *Registry) Definitions() []llms.Tool {
	list := r.List()
	definitions := make([]providers.ToolDefinition, 0, len(list))
	for _, tool := range list {
		definitions = append(definitions, providers.ToolDefinition{
			Name:        tool.Name(),
			Description: tool.Description(),
			Parameters:  tool.Parameters(),
		})
	}
	return providers.ConvertToLangChainTools(definitions)
}

// Execute 执行工具
func (r *Registry) Execute(ctx context.Context, name string, params map[string]any) (string, error) {
	tool, ok := r.Get(name)
	if !ok {
		return "", fmt.Errorf("tool %s not found", name)
	}

	if err := ValidateParameters(params, tool.Parameters()); err != nil {
		return "", fmt.Errorf("parameter validation failed: %w", err)
	}

	logger.Info("Executing tool",
		zap.String("tool", name),
		zap.Any("params", params),
	)

	result, err := tool.Execute(ctx, params)
	if err != nil {
		logger.Error("Tool execution failed",
			zap.String("tool", name),
			zap.Error(err),
		)
		return "", err
	}

	logger.Info("Tool executed successfully",
		zap.String("tool", name),
		zap.Int("result_length", len(result)),
	)
	return result, nil
}

// Count 返回工具数量
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}
