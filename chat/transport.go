// Package chat is the terminal chat client: it posts the conversation to the
// gateway, folds the returned event stream into assistant messages and
// renders them.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Kota8102/agentcore-mastra-react-stack/protocol"
	"golang.org/x/oauth2"
)

// ChatPath is the gateway route the client posts to.
const ChatPath = "chat/stream"

// Status 会话状态
type Status string

const (
	StatusReady     Status = "ready"
	StatusSubmitted Status = "submitted"
	StatusStreaming Status = "streaming"
	StatusError     Status = "error"
)

// Busy reports whether a request is in flight.
func (s Status) Busy() bool {
	return s == StatusSubmitted || s == StatusStreaming
}

// Transport sends one chat request and returns the SSE response body.
type Transport interface {
	Send(ctx context.Context, req protocol.ChatRequest) (io.ReadCloser, error)
}

// HTTPError is a non-2xx gateway response.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("gateway returned %d", e.StatusCode)
	}
	return fmt.Sprintf("gateway returned %d: %s", e.StatusCode, e.Body)
}

// Unauthorized reports a rejected or missing identity token.
func (e *HTTPError) Unauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// HTTPTransport posts chat requests to the gateway.
type HTTPTransport struct {
	Endpoint string
	Client   *http.Client
	// Tokens is optional; when set, every request carries the id token.
	Tokens oauth2.TokenSource
}

// NewHTTPTransport builds a transport for the gateway at apiURL.
func NewHTTPTransport(apiURL string, tokens oauth2.TokenSource) *HTTPTransport {
	return &HTTPTransport{
		Endpoint: Endpoint(apiURL),
		Client:   http.DefaultClient,
		Tokens:   tokens,
	}
}

// Endpoint joins the gateway base URL and the chat route.
func Endpoint(apiURL string) string {
	return strings.TrimRight(apiURL, "/") + "/" + ChatPath
}

// Send 发送请求并返回事件流
func (t *HTTPTransport) Send(ctx context.Context, req protocol.ChatRequest) (io.ReadCloser, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	if t.Tokens != nil {
		token, err := IDToken(t.Tokens)
		if err != nil {
			return nil, fmt.Errorf("get id token: %w", err)
		}
		// The API's Cognito authorizer expects the bare id token.
		httpReq.Header.Set("Authorization", token)
	}

	client := t.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		defer resp.Body.Close()
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	return resp.Body, nil
}
