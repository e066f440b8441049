package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/Kota8102/agentcore-mastra-react-stack/agent"
	"github.com/Kota8102/agentcore-mastra-react-stack/internal/metrics"
	"github.com/Kota8102/agentcore-mastra-react-stack/protocol"
	"go.uber.org/zap"
)

// handleInvocations streams the agent's events for one request as SSE.
//
// The first event is pulled before any header is written, so a run that
// fails immediately still gets a plain HTTP error. Once the stream is
// committed, a failure is reported as one terminal error frame.
func (s *Server) handleInvocations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req protocol.InvocationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	ctx := r.Context()
	s.metrics.IncInvocation(metrics.ComponentRuntime)
	s.logger.Debug("Invocation received", zap.Int("messages", len(req.Messages)))

	src, err := s.streamer.Stream(ctx, req.Messages, invocationStreamOptions)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer src.Close()

	event, err := src.Next(ctx)
	if err != nil && !errors.Is(err, io.EOF) {
		s.logger.Error("Agent stream failed before first event", zap.Error(err))
		s.metrics.IncStreamError(metrics.ComponentRuntime)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	if err != nil {
		return
	}

	sse := protocol.NewWriter(w)
	if s.config.KeepAlive > 0 {
		stop := keepAlive(ctx, sse, s.config.KeepAlive)
		defer stop()
	}
	for {
		if err := sse.WriteEvent(event); err != nil {
			s.logger.Debug("Client went away", zap.Error(err))
			return
		}
		s.metrics.IncEvent(string(event.Type()))

		event, err = src.Next(ctx)
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			if ctx.Err() != nil {
				s.logger.Debug("Invocation cancelled by client")
				return
			}
			s.logger.Error("Agent stream failed", zap.Error(err))
			s.metrics.IncStreamError(metrics.ComponentRuntime)
			_ = sse.WriteEvent(protocol.Error{ErrorText: agent.FormatError(err)})
			return
		}
	}
}

// keepAlive writes an SSE comment every interval so idle proxies keep the
// connection open while a tool call runs. The returned stop waits for the
// loop to exit; nothing is written after it returns.
func keepAlive(ctx context.Context, sse *protocol.Writer, interval time.Duration) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := sse.WriteComment("keep-alive"); err != nil {
					return
				}
			}
		}
	}()
	return func() {
		cancel()
		<-done
	}
}
