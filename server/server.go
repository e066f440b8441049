// Package server 实现 AgentCore 运行时容器的 HTTP 契约：
// POST /invocations（SSE 事件流）、GET /ping，以及可选的 WebSocket 和 metrics 端点。
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/Kota8102/agentcore-mastra-react-stack/agent"
	"github.com/Kota8102/agentcore-mastra-react-stack/config"
	"github.com/Kota8102/agentcore-mastra-react-stack/internal/logger"
	"github.com/Kota8102/agentcore-mastra-react-stack/internal/metrics"
	"github.com/Kota8102/agentcore-mastra-react-stack/protocol"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

// Streamer produces the event stream for one invocation. *agent.Agent
// satisfies it.
type Streamer interface {
	Stream(ctx context.Context, messages []protocol.Message, opts agent.StreamOptions) (agent.Source, error)
}

// invocationStreamOptions is what the runtime always asks the agent for.
var invocationStreamOptions = agent.StreamOptions{
	SendReasoning: true,
	SendStart:     true,
	SendFinish:    true,
}

// Server 运行时 HTTP 服务器
type Server struct {
	config   config.ServerConfig
	streamer Streamer
	metrics  *metrics.Metrics
	logger   *zap.Logger
	now      func() time.Time

	server   *http.Server
	listener net.Listener
	mu       sync.RWMutex
	running  bool

	connections   map[string]*Connection
	connectionsMu sync.RWMutex
}

// New 创建运行时服务器。m 为 nil 时不记录指标。
func New(cfg config.ServerConfig, streamer Streamer, m *metrics.Metrics, log *zap.Logger) *Server {
	return &Server{
		config:      cfg,
		streamer:    streamer,
		metrics:     m,
		logger:      logger.OrDefault(log).With(zap.String("component", metrics.ComponentRuntime)),
		now:         time.Now,
		connections: make(map[string]*Connection),
	}
}

// Handler returns the routes of the runtime contract.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/invocations", s.handleInvocations)
	mux.HandleFunc("/ping", s.handlePing)
	if s.config.WebSocket.Enabled {
		mux.HandleFunc(s.config.WebSocket.Path, s.handleWebSocket)
	}
	if s.config.EnableMetrics && s.metrics != nil {
		mux.Handle("/metrics", s.metrics.Handler())
	}
	return mux
}

// Start 启动服务器。监听失败时同步返回错误。
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server already running")
	}

	addr := net.JoinHostPort(s.config.Host, fmt.Sprint(s.config.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("listen on %s: %w", addr, err)
	}

	// No write timeout: invocation streams stay open for the whole agent run.
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: s.config.ReadTimeout,
	}
	s.listener = ln
	s.running = true
	s.mu.Unlock()

	go func() {
		s.logger.Info("AgentCore runtime server started",
			zap.String("addr", ln.Addr().String()),
		)
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("Runtime server error", zap.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// Stop 停止服务器
func (s *Server) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	srv := s.server
	s.mu.Unlock()

	s.closeAllConnections()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		s.logger.Error("Failed to shutdown runtime server", zap.Error(err))
		return err
	}

	s.logger.Info("Runtime server stopped")
	return nil
}

// IsRunning 检查是否运行中
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

type pingResponse struct {
	Status           string `json:"status"`
	TimeOfLastUpdate int64  `json:"time_of_last_update"`
}

// handlePing 健康检查
func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, pingResponse{
		Status:           "Healthy",
		TimeOfLastUpdate: s.now().Unix(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
