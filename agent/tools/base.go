package tools

import (
	"context"
	"encoding/json"
)

// Tool 工具接口
type Tool interface {
	// Name 工具名称
	Name() string

	// Description 工具描述
	Description() string

	// Parameters JSON Schema 参数定义
	Parameters() map[string]any

	// Execute 执行工具，返回 JSON 文本
	Execute(ctx context.Context, params map[string]any) (string, error)
}

// BaseTool 基础工具
type BaseTool struct {
	name        string
	description string
	parameters  map[string]any
	executeFunc func(ctx context.Context, params map[string]any) (string, error)
}

// NewBaseTool 创建基础工具
func NewBaseTool(name, description string, parameters map[string]any, executeFunc func(ctx context.Context, params map[string]any) (string, error)) *BaseTool {
	return &BaseTool{
		name:        name,
		description: description,
		parameters:  parameters,
		executeFunc: executeFunc,
	}
}

// Name 返回工具名称
func (t *BaseTool) Name() string {
	return t.name
}

// Description 返回工具描述
func (t *BaseTool) Description() string {
	return t.description
}

// Parameters 返回参数定义
func (t *BaseTool) Parameters() map[string]any {
	return t.parameters
}

// Execute 执行工具
func (t *BaseTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	return t.executeFunc(ctx, params)
}

// ValidateParameters 验证参数
func ValidateParameters(params map[string]any, schema map[string]any) error {
	var required []string
	switch req := schema["required"].(type) {
	case []string:
		required = req
	case []any:
		for _, r := range req {
			if s, ok := r.(string); ok {
				required = append(required, s)
			}
		}
	}

	// 检查必需字段
	for _, field := range required {
		if _, ok := params[field]; !ok {
			return &ValidationError{
				Field:   field,
				Message: "required field missing: " + field,
			}
		}
	}

	return nil
}

// ValidationError 参数验证错误
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// UnmarshalParams 反序列化参数。空字符串视为空对象。
func UnmarshalParams(data string) (map[string]any, error) {
	params := map[string]any{}
	if data == "" {
		return params, nil
	}
	if err := json.Unmarshal([]byte(data), &params); err != nil {
		return nil, err
	}
	return params, nil
}
