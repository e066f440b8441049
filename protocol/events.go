// Package protocol 定义运行时、网关和聊天客户端之间传输的 UI 消息流事件。
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// EventType 事件类型（线上的 "type" 字段）
type EventType string

const (
	EventStart               EventType = "start"
	EventStartStep           EventType = "start-step"
	EventFinishStep          EventType = "finish-step"
	EventTextStart           EventType = "text-start"
	EventTextDelta           EventType = "text-delta"
	EventTextEnd             EventType = "text-end"
	EventReasoningStart      EventType = "reasoning-start"
	EventReasoningDelta      EventType = "reasoning-delta"
	EventReasoningEnd        EventType = "reasoning-end"
	EventToolInputStart      EventType = "tool-input-start"
	EventToolInputDelta      EventType = "tool-input-delta"
	EventToolInputAvailable  EventType = "tool-input-available"
	EventToolOutputAvailable EventType = "tool-output-available"
	EventToolOutputError     EventType = "tool-output-error"
	EventFile                EventType = "file"
	EventFinish              EventType = "finish"
	EventError               EventType = "error"
	EventAbort               EventType = "abort"
)

// ErrMissingType is returned when a payload has no "type" discriminator.
var ErrMissingType = errors.New("protocol: event has no type")

// Event 流事件。具体类型见本文件中的结构体。
type Event interface {
	Type() EventType
	event()
}

// Start opens an assistant message.
type Start struct {
	MessageID string `json:"messageId,omitempty"`
}

// StartStep 一次模型调用开始
type StartStep struct{}

// FinishStep 一次模型调用结束
type FinishStep struct{}

// TextStart 文本块开始
type TextStart struct {
	ID string `json:"id"`
}

// TextDelta 文本增量
type TextDelta struct {
	ID    string `json:"id"`
	Delta string `json:"delta"`
}

// TextEnd 文本块结束
type TextEnd struct {
	ID string `json:"id"`
}

// ReasoningStart 推理块开始
type ReasoningStart struct {
	ID string `json:"id"`
}

// ReasoningDelta 推理增量
type ReasoningDelta struct {
	ID    string `json:"id"`
	Delta string `json:"delta"`
}

// ReasoningEnd 推理块结束
type ReasoningEnd struct {
	ID string `json:"id"`
}

// ToolInputStart announces a tool call before its input is complete.
type ToolInputStart struct {
	ToolCallID string `json:"toolCallId"`
	ToolName   string `json:"toolName"`
	Dynamic    bool   `json:"dynamic,omitempty"`
}

// ToolInputDelta carries a fragment of the tool input JSON text.
type ToolInputDelta struct {
	ToolCallID     string `json:"toolCallId"`
	InputTextDelta string `json:"inputTextDelta"`
}

// ToolInputAvailable carries the complete tool input.
type ToolInputAvailable struct {
	ToolCallID string          `json:"toolCallId"`
	ToolName   string          `json:"toolName"`
	Input      json.RawMessage `json:"input"`
	Dynamic    bool            `json:"dynamic,omitempty"`
}

// ToolOutputAvailable 工具执行结果
type ToolOutputAvailable struct {
	ToolCallID string          `json:"toolCallId"`
	Output     json.RawMessage `json:"output"`
}

// ToolOutputError 工具执行失败
type ToolOutputError struct {
	ToolCallID string `json:"toolCallId"`
	ErrorText  string `json:"errorText"`
}

// File 模型生成的文件
type File struct {
	URL       string `json:"url"`
	MediaType string `json:"mediaType"`
}

// Finish closes the assistant message.
type Finish struct {
	FinishReason string `json:"finishReason,omitempty"`
}

// Error 流内错误
type Error struct {
	ErrorText string `json:"errorText"`
}

// Abort 流被中止
type Abort struct{}

// Unknown keeps an event whose type this package does not model.
type Unknown struct {
	Kind EventType
	Raw  json.RawMessage
}

func (Start) Type() EventType               { return EventStart }
func (StartStep) Type() EventType           { return EventStartStep }
func (FinishStep) Type() EventType          { return EventFinishStep }
func (TextStart) Type() EventType           { return EventTextStart }
func (TextDelta) Type() EventType           { return EventTextDelta }
func (TextEnd) Type() EventType             { return EventTextEnd }
func (ReasoningStart) Type() EventType      { return EventReasoningStart }
func (ReasoningDelta) Type() EventType      { return EventReasoningDelta }
func (ReasoningEnd) Type() EventType        { return EventReasoningEnd }
func (ToolInputStart) Type() EventType      { return EventToolInputStart }
func (ToolInputDelta) Type() EventType      { return EventToolInputDelta }
func (ToolInputAvailable) Type() EventType  { return EventToolInputAvailable }
func (ToolOutputAvailable) Type() EventType { return EventToolOutputAvailable }
func (ToolOutputError) Type() EventType     { return EventToolOutputError }
func (File) Type() EventType                { return EventFile }
func (Finish) Type() EventType              { return EventFinish }
func (Error) Type() EventType               { return EventError }
func (Abort) Type() EventType               { return EventAbort }
func (u Unknown) Type() EventType           { return u.Kind }

func (Start) event()               {}
func (StartStep) event()           {}
func (FinishStep) event()          {}
func (TextStart) event()           {}
func (TextDelta) event()           {}
func (TextEnd) event()             {}
func (ReasoningStart) event()      {}
func (ReasoningDelta) event()      {}
func (ReasoningEnd) event()        {}
func (ToolInputStart) event()      {}
func (ToolInputDelta) event()      {}
func (ToolInputAvailable) event()  {}
func (ToolOutputAvailable) event() {}
func (ToolOutputError) event()     {}
func (File) event()                {}
func (Finish) event()              {}
func (Error) event()               {}
func (Abort) event()               {}
func (Unknown) event()             {}

// Marshal 编码事件，"type" 字段总是第一个
func Marshal(e Event) ([]byte, error) {
	if e == nil {
		return nil, errors.New("protocol: nil event")
	}
	if u, ok := e.(Unknown); ok {
		if len(u.Raw) == 0 {
			return nil, fmt.Errorf("protocol: unknown event %q has no payload", u.Kind)
		}
		return u.Raw, nil
	}

	body, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("protocol: marshal %s: %w", e.Type(), err)
	}

	out, err := sjson.SetBytes([]byte(`{}`), "type", string(e.Type()))
	if err != nil {
		return nil, err
	}
	var setErr error
	gjson.ParseBytes(body).ForEach(func(key, value gjson.Result) bool {
		out, setErr = sjson.SetRawBytes(out, key.String(), []byte(value.Raw))
		return setErr == nil
	})
	if setErr != nil {
		return nil, fmt.Errorf("protocol: marshal %s: %w", e.Type(), setErr)
	}
	return out, nil
}

// Unmarshal 解码事件。未知类型返回 Unknown，不报错。
func Unmarshal(data []byte) (Event, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("protocol: invalid event json")
	}
	typ := gjson.GetBytes(data, "type")
	if !typ.Exists() || typ.String() == "" {
		return nil, ErrMissingType
	}

	kind := EventType(typ.String())
	switch kind {
	case EventStart:
		return decode[Start](data)
	case EventStartStep:
		return StartStep{}, nil
	case EventFinishStep:
		return FinishStep{}, nil
	case EventTextStart:
		return decode[TextStart](data)
	case EventTextDelta:
		return decode[TextDelta](data)
	case EventTextEnd:
		return decode[TextEnd](data)
	case EventReasoningStart:
		return decode[ReasoningStart](data)
	case EventReasoningDelta:
		return decode[ReasoningDelta](data)
	case EventReasoningEnd:
		return decode[ReasoningEnd](data)
	case EventToolInputStart:
		return decode[ToolInputStart](data)
	case EventToolInputDelta:
		return decode[ToolInputDelta](data)
	case EventToolInputAvailable:
		return decode[ToolInputAvailable](data)
	case EventToolOutputAvailable:
		return decode[ToolOutputAvailable](data)
	case EventToolOutputError:
		return decode[ToolOutputError](data)
	case EventFile:
		return decode[File](data)
	case EventFinish:
		return decode[Finish](data)
	case EventError:
		return decode[Error](data)
	case EventAbort:
		return Abort{}, nil
	default:
		raw := make(json.RawMessage, len(data))
		copy(raw, data)
		return Unknown{Kind: kind, Raw: raw}, nil
	}
}

func decode[T Event](data []byte) (Event, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("protocol: decode %s: %w", v.Type(), err)
	}
	return v, nil
}
