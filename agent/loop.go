package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Kota8102/agentcore-mastra-react-stack/agent/tools"
	"github.com/Kota8102/agentcore-mastra-react-stack/protocol"
	"github.com/Kota8102/agentcore-mastra-react-stack/providers"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"github.com/tmc/langchaingo/llms"
	"go.uber.org/zap"
)

// Finish reasons reported on the finish event.
const (
	FinishReasonStop      = "stop"
	FinishReasonToolCalls = "tool-calls"
)

// stepResult 单次模型调用的结果
type stepResult struct {
	text      string
	toolCalls []llms.ToolCall
}

// run 执行多步循环：模型调用 -> 工具执行 -> 再次调用，直到没有工具调用
func (a *Agent) run(ctx context.Context, history []llms.MessageContent, opts StreamOptions, emit emitFunc) error {
	if opts.SendStart {
		if err := emit(protocol.Start{MessageID: newID("msg")}); err != nil {
			return err
		}
	}

	finishReason := FinishReasonStop
	for step := 1; step <= a.maxSteps; step++ {
		a.logger.Debug("Agent step", zap.Int("step", step))

		if err := emit(protocol.StartStep{}); err != nil {
			return err
		}

		result, err := a.step(ctx, history, opts, emit)
		if err != nil {
			return err
		}

		if len(result.toolCalls) == 0 {
			if err := emit(protocol.FinishStep{}); err != nil {
				return err
			}
			finishReason = FinishReasonStop
			break
		}

		// 先把带工具调用的助手消息放入历史，再追加每个工具结果
		assistant := llms.MessageContent{Role: llms.ChatMessageTypeAI}
		if result.text != "" {
			assistant.Parts = append(assistant.Parts, llms.TextPart(result.text))
		}
		for _, tc := range result.toolCalls {
			assistant.Parts = append(assistant.Parts, tc)
		}
		history = append(history, assistant)

		for _, tc := range result.toolCalls {
			content, err := a.callTool(ctx, tc, emit)
			if err != nil {
				return err
			}
			history = append(history, llms.MessageContent{
				Role: llms.ChatMessageTypeTool,
				Parts: []llms.ContentPart{llms.ToolCallResponse{
					ToolCallID: tc.ID,
					Name:       tc.FunctionCall.Name,
					Content:    content,
				}},
			})
		}

		if err := emit(protocol.FinishStep{}); err != nil {
			return err
		}
		finishReason = FinishReasonToolCalls
		if step == a.maxSteps {
			a.logger.Warn("Agent reached max steps", zap.Int("max", a.maxSteps))
		}
	}

	if opts.SendFinish {
		return emit(protocol.Finish{FinishReason: finishReason})
	}
	return nil
}

// step 调用一次模型，流式输出文本和推理
func (a *Agent) step(ctx context.Context, history []llms.MessageContent, opts StreamOptions, emit emitFunc) (*stepResult, error) {
	blocks := &blockWriter{emit: emit, sendReasoning: opts.SendReasoning}
	parser := providers.NewReasoningParser()

	callOpts := []llms.CallOption{}
	if a.temperature > 0 {
		callOpts = append(callOpts, llms.WithTemperature(a.temperature))
	}
	if a.maxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(a.maxTokens))
	}
	if a.tools.Count() > 0 {
		callOpts = append(callOpts, llms.WithTools(a.tools.Definitions()))
	}

	streamed := false
	if !a.disableStreaming {
		callOpts = append(callOpts,
			llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
				if len(chunk) == 0 || isToolCallChunk(chunk) {
					return nil
				}
				streamed = true
				return blocks.write(parser.Parse(string(chunk)))
			}),
			llms.WithStreamingReasoningFunc(func(ctx context.Context, reasoningChunk, _ []byte) error {
				if len(reasoningChunk) == 0 {
					return nil
				}
				return blocks.write([]providers.ReasoningChunk{{Text: string(reasoningChunk), Reasoning: true}})
			}),
		)
	}

	resp, err := a.model.GenerateContent(ctx, history, callOpts...)
	if err != nil {
		a.logger.Warn("Model call failed",
			zap.String("reason", string(ClassifyError(err))),
			zap.Error(err),
		)
		return nil, fmt.Errorf("model call failed: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return nil, errors.New("model returned no choices")
	}
	choice := resp.Choices[0]

	if !streamed {
		if choice.ReasoningContent != "" && !blocks.sawReasoning {
			if err := blocks.write([]providers.ReasoningChunk{{Text: choice.ReasoningContent, Reasoning: true}}); err != nil {
				return nil, err
			}
		}
		if choice.Content != "" {
			if err := blocks.write(parser.Parse(choice.Content)); err != nil {
				return nil, err
			}
		}
	}
	if err := blocks.write(parser.Flush()); err != nil {
		return nil, err
	}
	if err := blocks.close(); err != nil {
		return nil, err
	}

	result := &stepResult{text: blocks.text}
	for _, tc := range choice.ToolCalls {
		if tc.FunctionCall == nil || tc.FunctionCall.Name == "" {
			continue
		}
		if tc.ID == "" {
			tc.ID = newID("call")
		}
		if tc.Type == "" {
			tc.Type = "function"
		}
		result.toolCalls = append(result.toolCalls, tc)
	}
	return result, nil
}

// callTool 执行一个工具调用并发出对应事件；返回交给模型的结果文本
func (a *Agent) callTool(ctx context.Context, tc llms.ToolCall, emit emitFunc) (string, error) {
	name := tc.FunctionCall.Name
	args := tc.FunctionCall.Arguments

	if err := emit(protocol.ToolInputStart{ToolCallID: tc.ID, ToolName: name}); err != nil {
		return "", err
	}

	input := json.RawMessage(args)
	if args == "" || !gjson.Valid(args) {
		input = json.RawMessage(`{}`)
	}
	if err := emit(protocol.ToolInputAvailable{ToolCallID: tc.ID, ToolName: name, Input: input}); err != nil {
		return "", err
	}

	var output string
	params, err := tools.UnmarshalParams(args)
	if err != nil {
		err = fmt.Errorf("invalid tool arguments: %w", err)
	} else {
		output, err = a.tools.Execute(ctx, name, params)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", ctxErr
	}

	if err != nil {
		a.logger.Warn("Tool call failed", zap.String("tool", name), zap.Error(err))
		if emitErr := emit(protocol.ToolOutputError{ToolCallID: tc.ID, ErrorText: err.Error()}); emitErr != nil {
			return "", emitErr
		}
		return "Error: " + err.Error(), nil
	}

	if err := emit(protocol.ToolOutputAvailable{ToolCallID: tc.ID, Output: rawJSON(output)}); err != nil {
		return "", err
	}
	return output, nil
}

// blockWriter 把文本/推理片段转换为 start/delta/end 事件
type blockWriter struct {
	emit          emitFunc
	sendReasoning bool

	textID       string
	reasoningID  string
	text         string
	sawReasoning bool
}

func (b *blockWriter) write(chunks []providers.ReasoningChunk) error {
	for _, c := range chunks {
		if c.Text == "" {
			continue
		}
		if c.Reasoning {
			b.sawReasoning = true
			if !b.sendReasoning {
				continue
			}
			if b.textID != "" {
				if err := b.emit(protocol.TextEnd{ID: b.textID}); err != nil {
					return err
				}
				b.textID = ""
			}
			if b.reasoningID == "" {
				b.reasoningID = newID("reasoning")
				if err := b.emit(protocol.ReasoningStart{ID: b.reasoningID}); err != nil {
					return err
				}
			}
			if err := b.emit(protocol.ReasoningDelta{ID: b.reasoningID, Delta: c.Text}); err != nil {
				return err
			}
			continue
		}

		if b.reasoningID != "" {
			if err := b.emit(protocol.ReasoningEnd{ID: b.reasoningID}); err != nil {
				return err
			}
			b.reasoningID = ""
		}
		if b.textID == "" {
			b.textID = newID("text")
			if err := b.emit(protocol.TextStart{ID: b.textID}); err != nil {
				return err
			}
		}
		if err := b.emit(protocol.TextDelta{ID: b.textID, Delta: c.Text}); err != nil {
			return err
		}
		b.text += c.Text
	}
	return nil
}

func (b *blockWriter) close() error {
	if b.reasoningID != "" {
		if err := b.emit(protocol.ReasoningEnd{ID: b.reasoningID}); err != nil {
			return err
		}
		b.reasoningID = ""
	}
	if b.textID != "" {
		if err := b.emit(protocol.TextEnd{ID: b.textID}); err != nil {
			return err
		}
		b.textID = ""
	}
	return nil
}

// isToolCallChunk reports whether a streamed chunk is a tool call delta
// rather than text. The OpenAI client passes those through the same
// callback as a JSON array.
func isToolCallChunk(chunk []byte) bool {
	if len(chunk) < 2 || chunk[0] != '[' || !gjson.ValidBytes(chunk) {
		return false
	}
	first := gjson.GetBytes(chunk, "0")
	return first.IsObject() && first.Get("function").Exists()
}

func rawJSON(s string) json.RawMessage {
	if s != "" && gjson.Valid(s) {
		return json.RawMessage(s)
	}
	data, _ := json.Marshal(s)
	return data
}

func newID(prefix string) string {
	return prefix + "-" + uuid.NewString()
}
