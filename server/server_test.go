package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Kota8102/agentcore-mastra-react-stack/agent"
	"github.com/Kota8102/agentcore-mastra-react-stack/agent/agenttest"
	"github.com/Kota8102/agentcore-mastra-react-stack/config"
	"github.com/Kota8102/agentcore-mastra-react-stack/internal/metrics"
	"github.com/Kota8102/agentcore-mastra-react-stack/protocol"
	"github.com/gorilla/websocket"
)

type fakeStreamer struct {
	mu       sync.Mutex
	source   func() agent.Source
	err      error
	messages []protocol.Message
	opts     agent.StreamOptions
}

func (f *fakeStreamer) Stream(ctx context.Context, messages []protocol.Message, opts agent.StreamOptions) (agent.Source, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = messages
	f.opts = opts
	if f.err != nil {
		return nil, f.err
	}
	return f.source(), nil
}

func (f *fakeStreamer) captured() ([]protocol.Message, agent.StreamOptions) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.messages, f.opts
}

func replyEvents() []protocol.Event {
	return []protocol.Event{
		protocol.Start{MessageID: "msg-1"},
		protocol.StartStep{},
		protocol.TextStart{ID: "t1"},
		protocol.TextDelta{ID: "t1", Delta: "こんにちは"},
		protocol.TextEnd{ID: "t1"},
		protocol.FinishStep{},
		protocol.Finish{FinishReason: "stop"},
	}
}

func newTestServer(t *testing.T, streamer Streamer) (*Server, *httptest.Server) {
	t.Helper()
	cfg := config.ServerConfig{
		Host:          "127.0.0.1",
		EnableMetrics: true,
		WebSocket: config.WebSocketConfig{
			Enabled:        true,
			Path:           "/ws",
			PingInterval:   time.Second,
			PongTimeout:    5 * time.Second,
			WriteTimeout:   time.Second,
			MaxMessageSize: 1 << 20,
		},
	}
	s := New(cfg, streamer, metrics.New(), nil)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

const invocationBody = `{"messages":[{"id":"u1","role":"user","parts":[{"type":"text","text":"hi"}]}]}`

func readEvents(t *testing.T, body io.Reader) []protocol.Event {
	t.Helper()
	reader := protocol.NewReader(body)
	var events []protocol.Event
	for {
		e, err := reader.Next()
		if err == io.EOF {
			return events
		}
		if err != nil {
			t.Fatalf("read event: %v", err)
		}
		events = append(events, e)
	}
}

func typesOf(events []protocol.Event) string {
	names := make([]string, len(events))
	for i, e := range events {
		names[i] = string(e.Type())
	}
	return strings.Join(names, ",")
}

func TestInvocationsStreamsEventsInOrder(t *testing.T) {
	src := agenttest.Events(replyEvents()...)
	streamer := &fakeStreamer{source: func() agent.Source { return src }}
	_, ts := newTestServer(t, streamer)

	resp, err := http.Post(ts.URL+"/invocations", "application/json", strings.NewReader(invocationBody))
	if err != nil {
		t.Fatalf("post failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %q", ct)
	}
	if cc := resp.Header.Get("Cache-Control"); cc != "no-cache" {
		t.Fatalf("unexpected cache control %q", cc)
	}

	events := readEvents(t, resp.Body)
	if got, want := typesOf(events), typesOf(replyEvents()); got != want {
		t.Fatalf("unexpected events\nwant %s\n got %s", want, got)
	}
	if d := events[3].(protocol.TextDelta); d.Delta != "こんにちは" {
		t.Fatalf("unexpected delta %q", d.Delta)
	}
	if !src.Closed() {
		t.Fatal("source must be closed once the stream ends")
	}

	messages, opts := streamer.captured()
	if !opts.SendReasoning || !opts.SendStart || !opts.SendFinish {
		t.Fatalf("expected all stream markers, got %+v", opts)
	}
	if len(messages) != 1 || messages[0].Text() != "hi" {
		t.Fatalf("unexpected messages %+v", messages)
	}
}

func TestInvocationsWritesDataFrames(t *testing.T) {
	streamer := &fakeStreamer{source: func() agent.Source {
		return agenttest.Events(protocol.Start{}, protocol.Finish{})
	}}
	s, _ := newTestServer(t, streamer)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/invocations", strings.NewReader(invocationBody))
	s.Handler().ServeHTTP(rec, req)

	want := "data: {\"type\":\"start\"}\n\ndata: {\"type\":\"finish\"}\n\n"
	if rec.Body.String() != want {
		t.Fatalf("unexpected body %q", rec.Body.String())
	}
}

func TestInvocationsFirstPullErrorReturns500(t *testing.T) {
	streamer := &fakeStreamer{source: func() agent.Source {
		return agenttest.Failing(errors.New("model unavailable"))
	}}
	s, _ := newTestServer(t, streamer)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/invocations", strings.NewReader(invocationBody)))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("expected JSON body: %v", err)
	}
	if body["error"] != "model unavailable" {
		t.Fatalf("unexpected error body %v", body)
	}
}

func TestInvocationsMidStreamErrorEndsWithErrorFrame(t *testing.T) {
	streamer := &fakeStreamer{source: func() agent.Source {
		return agenttest.Failing(errors.New("throttled"), protocol.Start{}, protocol.StartStep{})
	}}
	s, _ := newTestServer(t, streamer)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/invocations", strings.NewReader(invocationBody)))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	events := readEvents(t, rec.Body)
	if got := typesOf(events); got != "start,start-step,error" {
		t.Fatalf("unexpected events %s", got)
	}
	if e := events[2].(protocol.Error); e.ErrorText != "throttled" {
		t.Fatalf("unexpected error text %q", e.ErrorText)
	}
}

// pausingSource waits gap before every event after the first.
type pausingSource struct {
	events []protocol.Event
	gap    time.Duration
	next   int
}

func (p *pausingSource) Next(ctx context.Context) (protocol.Event, error) {
	if p.next >= len(p.events) {
		return nil, io.EOF
	}
	if p.next > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(p.gap):
		}
	}
	e := p.events[p.next]
	p.next++
	return e, nil
}

func (p *pausingSource) Close() error { return nil }

func TestInvocationsSendsKeepAliveWhileIdle(t *testing.T) {
	streamer := &fakeStreamer{source: func() agent.Source {
		return &pausingSource{events: []protocol.Event{protocol.Start{}, protocol.Finish{}}, gap: 100 * time.Millisecond}
	}}
	s := New(config.ServerConfig{KeepAlive: 10 * time.Millisecond}, streamer, metrics.New(), nil)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/invocations", strings.NewReader(invocationBody)))

	raw := rec.Body.String()
	if !strings.Contains(raw, ": keep-alive\n\n") {
		t.Fatalf("expected keep-alive comments, got %q", raw)
	}
	if got := typesOf(readEvents(t, strings.NewReader(raw))); got != "start,finish" {
		t.Fatalf("comments must not disturb the events, got %s", got)
	}
}

func TestInvocationsEmptyStream(t *testing.T) {
	streamer := &fakeStreamer{source: func() agent.Source { return agenttest.Events() }}
	s, _ := newTestServer(t, streamer)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/invocations", strings.NewReader(invocationBody)))

	if rec.Code != http.StatusOK || rec.Body.Len() != 0 {
		t.Fatalf("expected empty 200 stream, got %d %q", rec.Code, rec.Body.String())
	}
}

func TestInvocationsRejectsBadRequests(t *testing.T) {
	streamer := &fakeStreamer{source: func() agent.Source { return agenttest.Events() }}
	s, _ := newTestServer(t, streamer)

	tests := []struct {
		name   string
		method string
		body   string
		status int
	}{
		{name: "invalid json", method: http.MethodPost, body: "{", status: http.StatusBadRequest},
		{name: "wrong method", method: http.MethodGet, body: "", status: http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			s.Handler().ServeHTTP(rec, httptest.NewRequest(tt.method, "/invocations", strings.NewReader(tt.body)))
			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, rec.Code)
			}
		})
	}

	streamer.mu.Lock()
	streamer.err = errors.New("messages cannot be empty")
	streamer.mu.Unlock()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/invocations", strings.NewReader(`{"messages":[]}`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for rejected messages, got %d", rec.Code)
	}
}

func TestPing(t *testing.T) {
	s, _ := newTestServer(t, &fakeStreamer{})
	s.now = func() time.Time { return time.Unix(1700000000, 0) }

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	want := `{"status":"Healthy","time_of_last_update":1700000000}`
	if got := strings.TrimSpace(rec.Body.String()); got != want {
		t.Fatalf("unexpected ping body %s", got)
	}
}

func TestMetricsEndpointCountsInvocations(t *testing.T) {
	streamer := &fakeStreamer{source: func() agent.Source { return agenttest.Events(protocol.Start{}) }}
	s, _ := newTestServer(t, streamer)

	s.Handler().ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/invocations", strings.NewReader(invocationBody)))

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	if !strings.Contains(body, `agentcore_invocations_total{component="runtime"} 1`) {
		t.Fatalf("invocation counter missing:\n%s", body)
	}
	if !strings.Contains(body, `agentcore_stream_events_total{type="start"} 1`) {
		t.Fatalf("event counter missing:\n%s", body)
	}
}

func TestWebSocketInvocation(t *testing.T) {
	streamer := &fakeStreamer{source: func() agent.Source { return agenttest.Events(replyEvents()...) }}
	_, ts := newTestServer(t, streamer)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer ws.Close()

	if err := ws.WriteMessage(websocket.TextMessage, []byte(invocationBody)); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	var events []protocol.Event
	for len(events) < len(replyEvents()) {
		_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, data, err := ws.ReadMessage()
		if err != nil {
			t.Fatalf("read failed after %d events: %v", len(events), err)
		}
		e, err := protocol.Unmarshal(data)
		if err != nil {
			t.Fatalf("decode frame: %v", err)
		}
		events = append(events, e)
	}
	if got, want := typesOf(events), typesOf(replyEvents()); got != want {
		t.Fatalf("unexpected events\nwant %s\n got %s", want, got)
	}

	if err := ws.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if !bytes.Contains(data, []byte(`"type":"error"`)) {
		t.Fatalf("expected error frame, got %s", data)
	}
}

func TestStartStop(t *testing.T) {
	cfg := config.ServerConfig{Host: "127.0.0.1", Port: 0}
	s := New(cfg, &fakeStreamer{}, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !s.IsRunning() {
		t.Fatal("expected server to be running")
	}
	if err := s.Start(ctx); err == nil {
		t.Fatal("expected error on second Start")
	}

	resp, err := http.Get("http://" + s.Addr() + "/ping")
	if err != nil {
		t.Fatalf("ping failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	if err := s.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if s.IsRunning() {
		t.Fatal("expected server to be stopped")
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("second Stop should be a no-op: %v", err)
	}
}
