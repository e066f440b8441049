package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/Kota8102/agentcore-mastra-react-stack/internal/metrics"
	"go.uber.org/zap"
)

const maxRequestBody = 10 * 1024 * 1024

// Handler 返回本地 HTTP 适配器：聊天路由、/health、可选的 /metrics 和 CORS
func (g *Gateway) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", g.handleHealth)
	mux.HandleFunc(g.config.RoutePath, g.handleChatStream)
	if g.config.EnableMetrics && g.metrics != nil {
		mux.Handle("/metrics", g.metrics.Handler())
	}
	return g.withCORS(mux)
}

// handleChatStream 转发聊天请求并中继事件流
func (g *Gateway) handleChatStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	g.metrics.IncInvocation(metrics.ComponentGateway)
	inv, err := g.Invoke(r.Context(), body)
	if err != nil {
		status, msg := invokeErrorStatus(err)
		if status >= http.StatusInternalServerError {
			g.logger.Error("Invocation failed", zap.Error(err))
			g.metrics.IncStreamError(metrics.ComponentGateway)
		}
		writeError(w, status, msg)
		return
	}
	defer inv.Body.Close()

	for k, v := range streamHeaders() {
		w.Header().Set(k, v)
	}
	w.WriteHeader(http.StatusOK)

	n, err := Relay(w, inv.Body)
	g.metrics.AddRelayBytes(n)
	if err != nil {
		g.logger.Warn("Relay stopped",
			zap.String("session_id", inv.SessionID),
			zap.Int64("bytes", n),
			zap.Error(err))
		return
	}
	g.logger.Debug("Relay finished",
		zap.String("session_id", inv.SessionID),
		zap.Int64("bytes", n))
}

// handleHealth 健康检查处理器
func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status": "ok",
		"time":   time.Now().Unix(),
	})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// Server 本地网关 HTTP 服务器
type Server struct {
	gateway *Gateway
	server  *http.Server

	mu       sync.RWMutex
	listener net.Listener
	running  bool
}

// NewServer 创建本地网关服务器
func NewServer(g *Gateway) *Server {
	return &Server{gateway: g}
}

// Start 启动服务器
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server already running")
	}

	cfg := s.gateway.config
	addr := net.JoinHostPort(cfg.Host, fmt.Sprint(cfg.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	s.server = &http.Server{
		Handler:           s.gateway.Handler(),
		ReadHeaderTimeout: cfg.ReadTimeout,
	}
	s.listener = ln
	s.running = true
	s.mu.Unlock()

	go func() {
		s.gateway.logger.Info("Gateway server started",
			zap.String("addr", ln.Addr().String()),
			zap.String("route", cfg.RoutePath),
		)
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.gateway.logger.Error("Gateway server error", zap.Error(err))
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

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		s.gateway.logger.Error("Failed to shutdown gateway server", zap.Error(err))
		return err
	}
	s.gateway.logger.Info("Gateway server stopped")
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
