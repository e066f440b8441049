package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	// DefaultInstructions 默认系统提示词
	DefaultInstructions = "あなたはゴスロリAIエージェントです"

	// DefaultRegion is the region the runtime's model calls go to when
	// AWS_REGION is unset.
	DefaultRegion = "ap-northeast-1"

	// DefaultRoutePath is the chat route exposed by the gateway.
	DefaultRoutePath = "/chat/stream"
)

// envBindings maps config keys to the environment variables the deployed
// services and the web build already use.
var envBindings = map[string][]string{
	"gateway.runtime_arn":        {"AGENTCORE_GATEWAY_RUNTIME_ARN", "AGENT_RUNTIME_ARN"},
	"gateway.region":             {"AGENTCORE_GATEWAY_REGION", "AWS_REGION"},
	"agent.region":               {"AGENTCORE_AGENT_REGION", "AWS_REGION"},
	"server.port":                {"AGENTCORE_SERVER_PORT", "PORT"},
	"client.api_url":             {"AGENTCORE_CLIENT_API_URL", "VITE_API_URL"},
	"client.user_pool_id":        {"AGENTCORE_CLIENT_USER_POOL_ID", "VITE_USER_POOL_ID"},
	"client.user_pool_client_id": {"AGENTCORE_CLIENT_USER_POOL_CLIENT_ID", "VITE_USER_POOL_CLIENT_ID"},
	"client.hide_sign_up":        {"AGENTCORE_CLIENT_HIDE_SIGN_UP", "VITE_HIDE_SIGN_UP"},
	"client.region":              {"AGENTCORE_CLIENT_REGION", "AWS_REGION"},
}

// Load 加载配置文件
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(ExpandUserPath(configPath))
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}

		// 1) ./.agentcore/config.*  2) ./config.*  3) ~/.agentcore/config.*
		v.AddConfigPath(filepath.Join(".", DirName))
		v.AddConfigPath(".")
		v.AddConfigPath(dir)
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("AGENTCORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range envBindings {
		args := append([]string{key}, names...)
		if err := v.BindEnv(args...); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// 配置文件不存在，使用默认值和环境变量
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// setDefaults 设置默认配置值
func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")

	v.SetDefault("agent.name", "Mastra Agent")
	v.SetDefault("agent.instructions", DefaultInstructions)
	v.SetDefault("agent.provider", "bedrock")
	v.SetDefault("agent.model", "anthropic.claude-3-5-haiku-20241022-v1:0")
	v.SetDefault("agent.region", DefaultRegion)
	v.SetDefault("agent.temperature", 0.7)
	v.SetDefault("agent.max_tokens", 4096)
	v.SetDefault("agent.max_steps", 5)

	// AgentCore 要求容器监听 0.0.0.0:8080
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	// Use time.Duration defaults; plain integers would become nanoseconds when unmarshaled.
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.enable_metrics", true)
	v.SetDefault("server.keep_alive", 15*time.Second)
	v.SetDefault("server.websocket.enabled", true)
	v.SetDefault("server.websocket.path", "/ws")
	v.SetDefault("server.websocket.ping_interval", 30*time.Second)
	v.SetDefault("server.websocket.pong_timeout", 60*time.Second)
	v.SetDefault("server.websocket.write_timeout", 10*time.Second)
	v.SetDefault("server.websocket.max_message_size", 10*1024*1024)

	v.SetDefault("gateway.region", "us-east-1")
	v.SetDefault("gateway.host", "127.0.0.1")
	v.SetDefault("gateway.port", 3000)
	v.SetDefault("gateway.route_path", DefaultRoutePath)
	v.SetDefault("gateway.allowed_origins", []string{"*"})
	v.SetDefault("gateway.read_timeout", 30*time.Second)
	v.SetDefault("gateway.enable_metrics", true)

	v.SetDefault("client.api_url", "http://127.0.0.1:3000/")
	v.SetDefault("client.region", DefaultRegion)
	v.SetDefault("client.history_file", "~/.agentcore/chat_history")

	v.SetDefault("tools.weather.enabled", true)
	v.SetDefault("tools.weather.geocoding_url", "https://geocoding-api.open-meteo.com/v1/search")
	v.SetDefault("tools.weather.forecast_url", "https://api.open-meteo.com/v1/forecast")
	v.SetDefault("tools.weather.timeout", 10)
}

// Save 保存配置到文件
func Save(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate 验证配置
func Validate(cfg *Config) error {
	if err := ValidateAgent(cfg.Agent); err != nil {
		return fmt.Errorf("agent config invalid: %w", err)
	}
	if err := ValidateServer(cfg.Server); err != nil {
		return fmt.Errorf("server config invalid: %w", err)
	}
	if err := validatePort(cfg.Gateway.Port); err != nil {
		return fmt.Errorf("gateway config invalid: %w", err)
	}
	return nil
}

// ValidateAgent 验证 Agent 配置
func ValidateAgent(cfg AgentConfig) error {
	if strings.TrimSpace(cfg.Model) == "" {
		return fmt.Errorf("model cannot be empty")
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "bedrock":
		if strings.TrimSpace(cfg.Region) == "" {
			return fmt.Errorf("bedrock provider requires a region")
		}
	case "openai", "anthropic", "openrouter":
		if err := validateAPIKey(cfg.APIKey); err != nil {
			return fmt.Errorf("%s: %w", cfg.Provider, err)
		}
	default:
		return fmt.Errorf("unsupported provider %q", cfg.Provider)
	}

	if cfg.Temperature < 0 || cfg.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2")
	}
	if cfg.MaxSteps <= 0 {
		return fmt.Errorf("max_steps must be positive")
	}
	if cfg.MaxTokens < 0 {
		return fmt.Errorf("max_tokens must be non-negative")
	}
	return nil
}

// ValidateServer 验证运行时服务配置
func ValidateServer(cfg ServerConfig) error {
	if err := validatePort(cfg.Port); err != nil {
		return err
	}
	if cfg.WebSocket.Enabled && !strings.HasPrefix(cfg.WebSocket.Path, "/") {
		return fmt.Errorf("websocket path must start with '/'")
	}
	return nil
}

// ValidateGateway checks the settings needed to reach the agent runtime.
func ValidateGateway(cfg GatewayConfig) error {
	if strings.TrimSpace(cfg.RuntimeARN) == "" {
		return fmt.Errorf("runtime_arn is required (set AGENT_RUNTIME_ARN)")
	}
	if !strings.HasPrefix(cfg.RuntimeARN, "arn:") {
		return fmt.Errorf("runtime_arn must be an ARN, got %q", cfg.RuntimeARN)
	}
	if !strings.HasPrefix(cfg.RoutePath, "/") {
		return fmt.Errorf("route_path must start with '/'")
	}
	return nil
}

func validatePort(port int) error {
	if port <= 0 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	return nil
}

// validateAPIKey 验证 API 密钥格式
func validateAPIKey(key string) error {
	key = strings.TrimSpace(key)

	if len(key) < 10 {
		return fmt.Errorf("API key too short (minimum 10 characters)")
	}
	if strings.Contains(key, " ") {
		return fmt.Errorf("API key cannot contain spaces")
	}
	return nil
}
