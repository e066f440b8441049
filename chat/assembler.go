package chat

import (
	"encoding/json"
	"sync"

	"github.com/Kota8102/agentcore-mastra-react-stack/protocol"
	"github.com/tidwall/gjson"
)

// Assembler folds stream events into one assistant message. Parts keep the
// order in which they were opened; deltas extend the part with the same id.
type Assembler struct {
	mu        sync.Mutex
	message   protocol.Message
	index     map[string]int
	toolInput map[string]string

	finishReason string
	errText      string
	finished     bool
	aborted      bool
}

// NewAssembler 创建消息组装器
func NewAssembler(messageID string) *Assembler {
	return &Assembler{
		message:   protocol.Message{ID: messageID, Role: protocol.RoleAssistant},
		index:     make(map[string]int),
		toolInput: make(map[string]string),
	}
}

// Apply folds one event and reports whether the message changed.
// Unknown events are dropped.
func (a *Assembler) Apply(e protocol.Event) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch ev := e.(type) {
	case protocol.Start:
		if ev.MessageID != "" {
			a.message.ID = ev.MessageID
		}
		return false
	case protocol.StartStep:
		a.message.Parts = append(a.message.Parts, protocol.Part{Type: protocol.PartStepStart})
	case protocol.FinishStep:
		return false

	case protocol.TextStart:
		a.open("text:"+ev.ID, protocol.Part{Type: protocol.PartText, State: protocol.StateStreaming, ID: ev.ID})
	case protocol.TextDelta:
		p := a.part("text:"+ev.ID, protocol.Part{Type: protocol.PartText, State: protocol.StateStreaming, ID: ev.ID})
		p.Text += ev.Delta
	case protocol.TextEnd:
		a.part("text:"+ev.ID, protocol.Part{Type: protocol.PartText, ID: ev.ID}).State = protocol.StateDone

	case protocol.ReasoningStart:
		a.open("reasoning:"+ev.ID, protocol.Part{Type: protocol.PartReasoning, State: protocol.StateStreaming, ID: ev.ID})
	case protocol.ReasoningDelta:
		p := a.part("reasoning:"+ev.ID, protocol.Part{Type: protocol.PartReasoning, State: protocol.StateStreaming, ID: ev.ID})
		p.Text += ev.Delta
	case protocol.ReasoningEnd:
		a.part("reasoning:"+ev.ID, protocol.Part{Type: protocol.PartReasoning, ID: ev.ID}).State = protocol.StateDone

	case protocol.ToolInputStart:
		a.open("tool:"+ev.ToolCallID, toolPart(ev.ToolCallID, ev.ToolName, ev.Dynamic, protocol.StateInputStreaming))
	case protocol.ToolInputDelta:
		p := a.part("tool:"+ev.ToolCallID, toolPart(ev.ToolCallID, "", true, protocol.StateInputStreaming))
		text := a.toolInput[ev.ToolCallID] + ev.InputTextDelta
		a.toolInput[ev.ToolCallID] = text
		if gjson.Valid(text) {
			p.Input = json.RawMessage(text)
		}
	case protocol.ToolInputAvailable:
		p := a.part("tool:"+ev.ToolCallID, toolPart(ev.ToolCallID, ev.ToolName, ev.Dynamic, protocol.StateInputAvailable))
		if p.Type == protocol.PartDynamicTool && p.ToolName == "" {
			p.ToolName = ev.ToolName
		}
		p.Input = ev.Input
		p.State = protocol.StateInputAvailable
	case protocol.ToolOutputAvailable:
		p := a.part("tool:"+ev.ToolCallID, toolPart(ev.ToolCallID, "", true, protocol.StateOutputAvailable))
		p.Output = ev.Output
		p.State = protocol.StateOutputAvailable
	case protocol.ToolOutputError:
		p := a.part("tool:"+ev.ToolCallID, toolPart(ev.ToolCallID, "", true, protocol.StateOutputError))
		p.ErrorText = ev.ErrorText
		p.State = protocol.StateOutputError

	case protocol.File:
		a.message.Parts = append(a.message.Parts, protocol.Part{Type: protocol.PartFile, URL: ev.URL, MediaType: ev.MediaType})

	case protocol.Finish:
		a.finished = true
		a.finishReason = ev.FinishReason
		return false
	case protocol.Error:
		a.errText = ev.ErrorText
	case protocol.Abort:
		a.aborted = true
		return false

	default:
		return false
	}
	return true
}

// open appends a new part under key, replacing any earlier part with the
// same key.
func (a *Assembler) open(key string, p protocol.Part) {
	a.index[key] = len(a.message.Parts)
	a.message.Parts = append(a.message.Parts, p)
}

// part returns the part under key, opening it from fallback when a delta
// arrives without its start event.
func (a *Assembler) part(key string, fallback protocol.Part) *protocol.Part {
	i, ok := a.index[key]
	if !ok {
		a.open(key, fallback)
		i = a.index[key]
	}
	return &a.message.Parts[i]
}

func toolPart(toolCallID, toolName string, dynamic bool, state string) protocol.Part {
	p := protocol.Part{ToolCallID: toolCallID, State: state}
	if dynamic || toolName == "" {
		p.Type = protocol.PartDynamicTool
		p.ToolName = toolName
	} else {
		p.Type = protocol.ToolPartType(toolName)
	}
	return p
}

// Message returns a copy of the message assembled so far.
func (a *Assembler) Message() protocol.Message {
	a.mu.Lock()
	defer a.mu.Unlock()

	msg := a.message
	msg.Parts = append([]protocol.Part(nil), a.message.Parts...)
	return msg
}

// Err returns the text of the last error event, if any.
func (a *Assembler) Err() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.errText
}

// Finished reports whether a finish event was seen.
func (a *Assembler) Finished() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.finished
}

// FinishReason 返回结束原因
func (a *Assembler) FinishReason() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.finishReason
}

// Aborted reports whether the stream carried an abort event.
func (a *Assembler) Aborted() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.aborted
}
