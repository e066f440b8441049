package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/Kota8102/agentcore-mastra-react-stack/agent"
	"github.com/Kota8102/agentcore-mastra-react-stack/config"
	"github.com/Kota8102/agentcore-mastra-react-stack/internal/metrics"
	"github.com/Kota8102/agentcore-mastra-react-stack/protocol"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// AgentCore authenticates callers before traffic reaches the container.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Connection WebSocket 连接
type Connection struct {
	*websocket.Conn
	ID           string
	pingInterval time.Duration
	pongTimeout  time.Duration
	writeTimeout time.Duration

	ctx       context.Context
	cancel    context.CancelFunc
	mu        sync.Mutex
	closeOnce sync.Once
}

// NewConnection 创建连接
func NewConnection(ws *websocket.Conn, cfg config.WebSocketConfig) *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Connection{
		Conn:         ws,
		ID:           uuid.New().String(),
		pingInterval: cfg.PingInterval,
		pongTimeout:  cfg.PongTimeout,
		writeTimeout: cfg.WriteTimeout,
		ctx:          ctx,
		cancel:       cancel,
	}
	if c.pingInterval <= 0 {
		c.pingInterval = 30 * time.Second
	}
	if c.pongTimeout <= 0 {
		c.pongTimeout = 60 * time.Second
	}
	if c.writeTimeout <= 0 {
		c.writeTimeout = 10 * time.Second
	}
	if cfg.MaxMessageSize > 0 {
		ws.SetReadLimit(cfg.MaxMessageSize)
	}
	return c
}

// SendEvent writes one event as a JSON text frame.
func (c *Connection) SendEvent(e protocol.Event) error {
	data, err := protocol.Marshal(e)
	if err != nil {
		return err
	}
	return c.SendMessage(websocket.TextMessage, data)
}

// SendMessage 发送消息
func (c *Connection) SendMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
		return err
	}
	return c.WriteMessage(messageType, data)
}

// heartbeat 心跳
func (c *Connection) heartbeat() {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			if err := c.SendMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Close 关闭连接并取消正在进行的调用
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()

		c.mu.Lock()
		defer c.mu.Unlock()
		_ = c.SetWriteDeadline(time.Now().Add(time.Second))
		_ = c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		err = c.Conn.Close()
	})
	return err
}

// handleWebSocket serves the runtime's WebSocket contract: every text
// message is an invocation and every event goes back as one text frame.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade to WebSocket", zap.Error(err))
		return
	}

	conn := NewConnection(ws, s.config.WebSocket)
	s.addConnection(conn)
	s.logger.Info("WebSocket connection established",
		zap.String("connection_id", conn.ID),
		zap.String("remote_addr", r.RemoteAddr),
	)

	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(conn.pongTimeout))
	})
	go conn.heartbeat()

	s.handleWebSocketMessages(conn)
}

// handleWebSocketMessages 顺序处理连接上的调用
func (s *Server) handleWebSocketMessages(conn *Connection) {
	defer func() {
		conn.Close()
		s.removeConnection(conn.ID)
		s.logger.Info("WebSocket connection closed", zap.String("connection_id", conn.ID))
	}()

	for {
		// streams block reads, so the deadline restarts for every message
		if err := conn.SetReadDeadline(time.Now().Add(conn.pongTimeout)); err != nil {
			return
		}
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Error("WebSocket error",
					zap.String("connection_id", conn.ID),
					zap.Error(err))
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		var req protocol.InvocationRequest
		if err := json.Unmarshal(data, &req); err != nil {
			if err := conn.SendEvent(protocol.Error{ErrorText: "invalid request body: " + err.Error()}); err != nil {
				return
			}
			continue
		}

		if err := s.streamToConnection(conn, req.Messages); err != nil {
			s.logger.Debug("WebSocket write failed",
				zap.String("connection_id", conn.ID),
				zap.Error(err))
			return
		}
	}
}

// streamToConnection runs one invocation. It returns an error only when the
// connection itself is unusable; agent failures become error frames.
func (s *Server) streamToConnection(conn *Connection, messages []protocol.Message) error {
	s.metrics.IncInvocation(metrics.ComponentRuntime)

	src, err := s.streamer.Stream(conn.ctx, messages, invocationStreamOptions)
	if err != nil {
		return conn.SendEvent(protocol.Error{ErrorText: err.Error()})
	}
	defer src.Close()

	for {
		event, err := src.Next(conn.ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			if conn.ctx.Err() != nil {
				return err
			}
			s.logger.Error("Agent stream failed", zap.String("connection_id", conn.ID), zap.Error(err))
			s.metrics.IncStreamError(metrics.ComponentRuntime)
			return conn.SendEvent(protocol.Error{ErrorText: agent.FormatError(err)})
		}
		if err := conn.SendEvent(event); err != nil {
			return err
		}
		s.metrics.IncEvent(string(event.Type()))
	}
}

func (s *Server) addConnection(conn *Connection) {
	s.connectionsMu.Lock()
	defer s.connectionsMu.Unlock()
	s.connections[conn.ID] = conn
}

func (s *Server) removeConnection(id string) {
	s.connectionsMu.Lock()
	defer s.connectionsMu.Unlock()
	delete(s.connections, id)
}

// closeAllConnections 关闭所有 WebSocket 连接
func (s *Server) closeAllConnections() {
	s.connectionsMu.Lock()
	defer s.connectionsMu.Unlock()

	for id, conn := range s.connections {
		conn.Close()
		delete(s.connections, id)
	}
}
