package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/Kota8102/agentcore-mastra-react-stack/internal/logger"
	"github.com/Kota8102/agentcore-mastra-react-stack/protocol"
	"github.com/Kota8102/agentcore-mastra-react-stack/session"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrBusy is returned by Submit while a request is in flight.
	ErrBusy = errors.New("a response is still streaming")

	// ErrEmptyMessage is returned for input with no text and no files.
	ErrEmptyMessage = errors.New("message is empty")
)

// submitTrigger is sent with every request, as the web client does.
const submitTrigger = "submit-message"

// Update is passed to observers after every change.
type Update struct {
	Status  Status
	Message protocol.Message
	Event   protocol.Event
}

// Conversation 一次聊天会话：消息列表、会话 ID 和请求状态
type Conversation struct {
	transport Transport
	logger    *zap.Logger
	onUpdate  func(Update)

	mu        sync.Mutex
	chatID    string
	sessionID string
	messages  []protocol.Message
	status    Status
	err       error
	pending   *Assembler
	cancel    context.CancelFunc
}

// Option 会话选项
type Option func(*Conversation)

// WithSessionID 使用指定的会话 ID
func WithSessionID(id string) Option {
	return func(c *Conversation) {
		if id != "" {
			c.sessionID = id
		}
	}
}

// WithObserver registers a callback run after every status change and
// every folded event. It runs on the submitting goroutine.
func WithObserver(fn func(Update)) Option {
	return func(c *Conversation) {
		c.onUpdate = fn
	}
}

// WithLogger 设置 logger
func WithLogger(l *zap.Logger) Option {
	return func(c *Conversation) {
		c.logger = l
	}
}

// NewConversation starts a conversation with a fresh session id.
func NewConversation(transport Transport, opts ...Option) *Conversation {
	c := &Conversation{
		transport: transport,
		chatID:    uuid.NewString(),
		sessionID: session.New(),
		status:    StatusReady,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logger.OrDefault(c.logger)
	return c
}

// SessionID 返回会话 ID
func (c *Conversation) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// Status 返回当前状态
func (c *Conversation) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Err returns the failure that put the conversation in the error status.
func (c *Conversation) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Messages returns the conversation including the assistant message that is
// still streaming.
func (c *Conversation) Messages() []protocol.Message {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := append([]protocol.Message(nil), c.messages...)
	if c.pending != nil {
		out = append(out, c.pending.Message())
	}
	return out
}

// Reset 清空消息并开始新的会话
func (c *Conversation) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status.Busy() {
		return ErrBusy
	}
	c.messages = nil
	c.chatID = uuid.NewString()
	c.sessionID = session.New()
	c.status = StatusReady
	c.err = nil
	return nil
}

// Submit sends text and files as one user message and folds the response
// into an assistant message. It blocks until the stream ends. While another
// Submit is in flight it returns ErrBusy without issuing a request.
func (c *Conversation) Submit(ctx context.Context, text string, files ...protocol.Part) error {
	text = strings.TrimSpace(text)

	c.mu.Lock()
	if c.status.Busy() {
		c.mu.Unlock()
		return ErrBusy
	}
	if text == "" && len(files) == 0 {
		c.mu.Unlock()
		return ErrEmptyMessage
	}

	user := protocol.Message{ID: uuid.NewString(), Role: protocol.RoleUser}
	for _, f := range files {
		f.Type = protocol.PartFile
		user.Parts = append(user.Parts, f)
	}
	// The text part always follows the files, empty or not.
	user.Parts = append(user.Parts, protocol.Part{Type: protocol.PartText, Text: text})
	c.messages = append(c.messages, user)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	c.cancel = cancel
	c.status = StatusSubmitted
	c.err = nil
	req := protocol.ChatRequest{
		ID:        c.chatID,
		SessionID: c.sessionID,
		Messages:  append([]protocol.Message(nil), c.messages...),
		Trigger:   submitTrigger,
	}
	c.mu.Unlock()
	c.notify(Update{Status: StatusSubmitted})

	c.logger.Debug("Submitting chat request",
		zap.String("session_id", req.SessionID),
		zap.Int("messages", len(req.Messages)))

	body, err := c.transport.Send(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return c.finish(nil, nil)
		}
		return c.finish(nil, err)
	}
	defer body.Close()

	return c.finish(c.consume(ctx, body))
}

// consume folds the event stream into a new assistant message.
func (c *Conversation) consume(ctx context.Context, body io.Reader) (*Assembler, error) {
	asm := NewAssembler(uuid.NewString())
	reader := protocol.NewReader(body)

	for {
		event, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if ctx.Err() != nil {
				// stopped by the user
				break
			}
			return asm, fmt.Errorf("read stream: %w", err)
		}

		c.mu.Lock()
		if c.pending == nil {
			c.pending = asm
			c.status = StatusStreaming
		}
		c.mu.Unlock()

		asm.Apply(event)
		c.notify(Update{Status: StatusStreaming, Message: asm.Message(), Event: event})

		if asm.Aborted() {
			break
		}
	}

	if text := asm.Err(); text != "" {
		return asm, errors.New(text)
	}
	switch {
	case asm.Finished():
		c.logger.Debug("Reply finished", zap.String("finish_reason", asm.FinishReason()))
	case ctx.Err() == nil && !asm.Aborted():
		// The runtime closed the stream without a finish event.
		c.logger.Warn("Reply ended without finish event")
	}
	return asm, nil
}

// finish records the outcome of a Submit. Parts received before a stop or
// failure are kept.
func (c *Conversation) finish(asm *Assembler, err error) error {
	c.mu.Lock()
	if asm != nil {
		if msg := asm.Message(); len(msg.Parts) > 0 {
			c.messages = append(c.messages, msg)
		}
	}
	c.pending = nil
	c.cancel = nil
	if err != nil {
		c.status = StatusError
		c.err = err
	} else {
		c.status = StatusReady
	}
	status := c.status
	c.mu.Unlock()

	if err != nil {
		c.logger.Warn("Chat request failed", zap.Error(err))
	}
	c.notify(Update{Status: status})
	return err
}

// Stop 中止正在进行的请求；已收到的内容保留
func (c *Conversation) Stop() {
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (c *Conversation) notify(u Update) {
	if c.onUpdate != nil {
		c.onUpdate(u)
	}
}
