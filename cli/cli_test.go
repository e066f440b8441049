package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Kota8102/agentcore-mastra-react-stack/chat"
	"github.com/Kota8102/agentcore-mastra-react-stack/config"
	"github.com/Kota8102/agentcore-mastra-react-stack/internal/metrics"
	"github.com/Kota8102/agentcore-mastra-react-stack/protocol"
	"github.com/Kota8102/agentcore-mastra-react-stack/server"
	cognitotypes "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
)

func TestLambdaDefaultArgs(t *testing.T) {
	t.Setenv("AWS_LAMBDA_RUNTIME_API", "127.0.0.1:9001")

	got := lambdaDefaultArgs(nil)
	if strings.Join(got, " ") != "gateway lambda" {
		t.Fatalf("expected gateway lambda inside Lambda, got %v", got)
	}
	if got := lambdaDefaultArgs([]string{"serve"}); got != nil {
		t.Fatalf("explicit args must win, got %v", got)
	}

	t.Setenv("AWS_LAMBDA_RUNTIME_API", "")
	if got := lambdaDefaultArgs(nil); got != nil {
		t.Fatalf("expected no default outside Lambda, got %v", got)
	}
}

func TestPingRuntime(t *testing.T) {
	srv := httptest.NewServer(server.New(config.ServerConfig{}, nil, metrics.New(), nil).Handler())
	defer srv.Close()

	status, err := ping(context.Background(), srv.Client(), srv.URL+"/")
	if err != nil {
		t.Fatalf("ping failed: %v", err)
	}
	if status != "Healthy" {
		t.Fatalf("expected Healthy, got %q", status)
	}
}

func TestPingReportsFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	if _, err := ping(context.Background(), srv.Client(), srv.URL); err == nil || !strings.Contains(err.Error(), "503") {
		t.Fatalf("expected 503 error, got %v", err)
	}
}

func TestMarshalConfigMasksSecrets(t *testing.T) {
	cfg := &config.Config{
		Agent:  config.AgentConfig{Provider: "openai", Model: "gpt-4o-mini", APIKey: "sk-test-abcdef1234"},
		Client: config.ClientConfig{Username: "alice", Password: "hunter2"},
	}

	data, err := marshalConfig(cfg)
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	if strings.Contains(out, "sk-test") || !strings.Contains(out, "****1234") {
		t.Fatalf("api key not masked:\n%s", out)
	}
	if strings.Contains(out, "hunter2") {
		t.Fatalf("password must not be printed:\n%s", out)
	}
	if cfg.Agent.APIKey != "sk-test-abcdef1234" {
		t.Fatal("marshalConfig must not modify the loaded config")
	}
}

func TestRenderFinalSkipsToolParts(t *testing.T) {
	msg := protocol.Message{Role: protocol.RoleAssistant, Parts: []protocol.Part{
		{Type: protocol.ToolPartType("weatherTool"), State: protocol.StateOutputAvailable},
		{Type: protocol.PartText, Text: "晴れ"},
	}}
	r, err := newPlainRenderer()
	if err != nil {
		t.Fatal(err)
	}
	if got := renderFinal(r, msg); got != "晴れ" {
		t.Fatalf("unexpected final render %q", got)
	}
}

func newPlainRenderer() (*chat.Renderer, error) {
	return chat.NewRenderer(false, 0)
}

func TestWriteConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agentcore", "config.json")
	cfg := &config.Config{Agent: config.AgentConfig{Provider: "bedrock", Model: "test-model"}}
	cfg.Client.Password = "secret"

	if err := writeConfigFile(cfg, path, false); err != nil {
		t.Fatalf("writeConfigFile failed: %v", err)
	}
	loaded, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Agent.Model != "test-model" {
		t.Fatalf("unexpected model %q", loaded.Agent.Model)
	}
	if loaded.Client.Password != "" {
		t.Fatal("password must not be written")
	}

	if err := writeConfigFile(cfg, path, false); err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("expected refusal to overwrite, got %v", err)
	}
	if err := writeConfigFile(cfg, path, true); err != nil {
		t.Fatalf("forced overwrite failed: %v", err)
	}
}

func TestSignInErrorSignUpHint(t *testing.T) {
	notFound := fmt.Errorf("cognito USER_PASSWORD_AUTH: %w", &cognitotypes.UserNotFoundException{})

	err := signInError(notFound, false)
	if !strings.Contains(err.Error(), "create one in the web app") {
		t.Fatalf("expected sign-up hint, got %v", err)
	}
	var target *cognitotypes.UserNotFoundException
	if !errors.As(err, &target) {
		t.Fatal("cognito error must stay wrapped")
	}

	if err := signInError(notFound, true); strings.Contains(err.Error(), "web app") {
		t.Fatalf("hint must be hidden when sign-up is hidden, got %v", err)
	}
	if err := signInError(errors.New("network down"), false); strings.Contains(err.Error(), "web app") {
		t.Fatalf("hint only applies to account errors, got %v", err)
	}
}
