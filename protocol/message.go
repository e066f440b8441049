package protocol

import (
	"encoding/json"
	"strings"
)

// Role 消息角色
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Part types that are not tool parts.
const (
	PartText        = "text"
	PartReasoning   = "reasoning"
	PartFile        = "file"
	PartDynamicTool = "dynamic-tool"
	PartStepStart   = "step-start"

	toolPartPrefix = "tool-"
)

// Part states.
const (
	StateStreaming       = "streaming"
	StateDone            = "done"
	StateInputStreaming  = "input-streaming"
	StateInputAvailable  = "input-available"
	StateOutputAvailable = "output-available"
	StateOutputError     = "output-error"
)

// Message 对话中的一条消息
type Message struct {
	ID    string `json:"id"`
	Role  Role   `json:"role"`
	Parts []Part `json:"parts"`
}

// Part 消息的一个片段。字段是否有意义取决于 Type。
type Part struct {
	Type       string          `json:"type"`
	Text       string          `json:"text,omitempty"`
	State      string          `json:"state,omitempty"`
	MediaType  string          `json:"mediaType,omitempty"`
	URL        string          `json:"url,omitempty"`
	Filename   string          `json:"filename,omitempty"`
	ToolCallID string          `json:"toolCallId,omitempty"`
	ToolName   string          `json:"toolName,omitempty"`
	Input      json.RawMessage `json:"input,omitempty"`
	Output     json.RawMessage `json:"output,omitempty"`
	ErrorText  string          `json:"errorText,omitempty"`

	// ID links streamed deltas to this part; not sent on the wire.
	ID string `json:"-"`
}

// ChatRequest is the body the chat client posts to the gateway and the
// gateway forwards verbatim to the runtime.
type ChatRequest struct {
	ID        string    `json:"id,omitempty"`
	SessionID string    `json:"sessionId,omitempty"`
	Messages  []Message `json:"messages"`
	Trigger   string    `json:"trigger,omitempty"`
}

// InvocationRequest is what the runtime reads from a ChatRequest.
type InvocationRequest struct {
	Messages []Message `json:"messages"`
}

// ToolPartType 返回静态工具片段的类型名
func ToolPartType(toolName string) string {
	return toolPartPrefix + toolName
}

// IsToolPart 是否为工具调用片段
func (p Part) IsToolPart() bool {
	return p.Type == PartDynamicTool || strings.HasPrefix(p.Type, toolPartPrefix)
}

// ToolLabel is the name shown for a tool part.
func (p Part) ToolLabel() string {
	if p.Type == PartDynamicTool {
		return p.ToolName
	}
	if name := strings.TrimPrefix(p.Type, toolPartPrefix); name != p.Type {
		return name
	}
	return p.ToolName
}

// NewTextMessage builds a single-text-part message.
func NewTextMessage(id string, role Role, text string) Message {
	return Message{ID: id, Role: role, Parts: []Part{{Type: PartText, Text: text}}}
}

// Text concatenates the message's text parts.
func (m Message) Text() string {
	var sb strings.Builder
	for _, p := range m.Parts {
		if p.Type == PartText {
			sb.WriteString(p.Text)
		}
	}
	return sb.String()
}
