package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func clearBoundEnv(t *testing.T) {
	t.Helper()
	for _, names := range envBindings {
		for _, name := range names {
			t.Setenv(name, "")
			os.Unsetenv(name)
		}
	}
}

func TestLoadDefaults(t *testing.T) {
	clearBoundEnv(t)
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Agent.Model == "" {
		t.Error("Expected default model to be set")
	}
	if cfg.Agent.MaxSteps != 5 {
		t.Errorf("Expected default max_steps 5, got %d", cfg.Agent.MaxSteps)
	}
	if cfg.Agent.Region != DefaultRegion {
		t.Errorf("Expected agent region %q, got %q", DefaultRegion, cfg.Agent.Region)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Expected server port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Gateway.Port == 0 {
		t.Error("Expected default gateway port to be set")
	}
}

func TestLoadBindsDeploymentEnv(t *testing.T) {
	clearBoundEnv(t)
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	t.Setenv("AGENT_RUNTIME_ARN", "arn:aws:bedrock-agentcore:us-west-2:123456789012:runtime/demo")
	t.Setenv("AWS_REGION", "us-west-2")
	t.Setenv("PORT", "9090")
	t.Setenv("VITE_API_URL", "https://api.example.com/prod/")
	t.Setenv("VITE_USER_POOL_ID", "us-west-2_pool")
	t.Setenv("VITE_USER_POOL_CLIENT_ID", "client123")
	t.Setenv("VITE_HIDE_SIGN_UP", "true")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Gateway.RuntimeARN != "arn:aws:bedrock-agentcore:us-west-2:123456789012:runtime/demo" {
		t.Errorf("runtime arn not bound, got %q", cfg.Gateway.RuntimeARN)
	}
	if cfg.Gateway.Region != "us-west-2" || cfg.Agent.Region != "us-west-2" {
		t.Errorf("AWS_REGION not bound, gateway=%q agent=%q", cfg.Gateway.Region, cfg.Agent.Region)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("PORT not bound, got %d", cfg.Server.Port)
	}
	if cfg.Client.APIURL != "https://api.example.com/prod/" {
		t.Errorf("VITE_API_URL not bound, got %q", cfg.Client.APIURL)
	}
	if !cfg.Client.CognitoConfigured() {
		t.Error("expected cognito settings from VITE_* variables")
	}
	if !cfg.Client.HideSignUp {
		t.Error("VITE_HIDE_SIGN_UP not bound")
	}
}

func TestLoadPrefixedEnvWinsOverPort(t *testing.T) {
	clearBoundEnv(t)
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("AGENTCORE_SERVER_PORT", "7070")
	t.Setenv("PORT", "9090")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Fatalf("expected AGENTCORE_SERVER_PORT to win, got %d", cfg.Server.Port)
	}
}

func TestLoadFromFile(t *testing.T) {
	clearBoundEnv(t)
	tmpDir := t.TempDir()

	configContent := `{
		"agent": {
			"provider": "openai",
			"model": "gpt-4o-mini",
			"api_key": "sk-test-key-12345",
			"temperature": 0.3,
			"max_steps": 3
		},
		"server": {
			"port": 8181,
			"websocket": {"enabled": false}
		},
		"gateway": {
			"runtime_arn": "arn:aws:bedrock-agentcore:us-east-1:123456789012:runtime/x",
			"allowed_origins": ["https://app.example.com"]
		}
	}`

	configPath := filepath.Join(tmpDir, "config.json")
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Agent.Provider != "openai" || cfg.Agent.Model != "gpt-4o-mini" {
		t.Errorf("unexpected agent %s/%s", cfg.Agent.Provider, cfg.Agent.Model)
	}
	if cfg.Agent.Temperature != 0.3 {
		t.Errorf("Expected temperature 0.3, got %f", cfg.Agent.Temperature)
	}
	if cfg.Agent.MaxSteps != 3 {
		t.Errorf("Expected max_steps 3, got %d", cfg.Agent.MaxSteps)
	}
	if cfg.Server.Port != 8181 {
		t.Errorf("Expected port 8181, got %d", cfg.Server.Port)
	}
	if cfg.Server.WebSocket.Enabled {
		t.Error("Expected websocket to be disabled")
	}
	if cfg.Server.WebSocket.Path != "/ws" {
		t.Errorf("Expected default websocket path to survive, got %q", cfg.Server.WebSocket.Path)
	}
	if len(cfg.Gateway.AllowedOrigins) != 1 || cfg.Gateway.AllowedOrigins[0] != "https://app.example.com" {
		t.Errorf("unexpected origins %v", cfg.Gateway.AllowedOrigins)
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("expected loaded config to validate, got %v", err)
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:   "valid bedrock config",
			mutate: func(*Config) {},
		},
		{
			name: "empty model",
			mutate: func(c *Config) {
				c.Agent.Model = " "
			},
			wantErr: true,
		},
		{
			name: "unsupported provider",
			mutate: func(c *Config) {
				c.Agent.Provider = "ollama"
			},
			wantErr: true,
		},
		{
			name: "bedrock without region",
			mutate: func(c *Config) {
				c.Agent.Region = ""
			},
			wantErr: true,
		},
		{
			name: "openai without key",
			mutate: func(c *Config) {
				c.Agent.Provider = "openai"
			},
			wantErr: true,
		},
		{
			name: "openai with key",
			mutate: func(c *Config) {
				c.Agent.Provider = "openai"
				c.Agent.APIKey = "sk-valid-api-key"
			},
		},
		{
			name: "temperature too high",
			mutate: func(c *Config) {
				c.Agent.Temperature = 2.5
			},
			wantErr: true,
		},
		{
			name: "zero max steps",
			mutate: func(c *Config) {
				c.Agent.MaxSteps = 0
			},
			wantErr: true,
		},
		{
			name: "server port out of range",
			mutate: func(c *Config) {
				c.Server.Port = 70000
			},
			wantErr: true,
		},
		{
			name: "websocket path without slash",
			mutate: func(c *Config) {
				c.Server.WebSocket.Path = "ws"
			},
			wantErr: true,
		},
		{
			name: "gateway port zero",
			mutate: func(c *Config) {
				c.Gateway.Port = 0
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := minimalValidConfig()
			tt.mutate(cfg)
			err := Validate(cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSaveConfig(t *testing.T) {
	clearBoundEnv(t)
	tmpDir := t.TempDir()

	cfg := minimalValidConfig()
	cfg.Client.Password = "secret-password"

	configPath := filepath.Join(tmpDir, "nested", "config.json")
	if err := Save(cfg, configPath); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("Failed to read saved config: %v", err)
	}
	if got := string(data); !strings.Contains(got, "runtime_arn") || !strings.Contains(got, "bedrock") {
		t.Errorf("saved config missing fields: %s", got)
	}
	if strings.Contains(string(data), "secret-password") {
		t.Error("password must not be written to disk")
	}

	loaded, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load saved config: %v", err)
	}
	if loaded.Gateway.RuntimeARN != cfg.Gateway.RuntimeARN {
		t.Errorf("Expected runtime arn %q, got %q", cfg.Gateway.RuntimeARN, loaded.Gateway.RuntimeARN)
	}
}

func TestGetDefaultConfigPath(t *testing.T) {
	path, err := GetDefaultConfigPath()
	if err != nil {
		t.Fatalf("Failed to get default config path: %v", err)
	}
	if filepath.Base(path) != "config.json" {
		t.Errorf("Expected config.json, got %s", filepath.Base(path))
	}
	if filepath.Base(filepath.Dir(path)) != ".agentcore" {
		t.Errorf("Expected .agentcore dir, got %s", filepath.Dir(path))
	}
}
