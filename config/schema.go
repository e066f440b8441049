package config

import (
	"time"
)

// Config 是主配置结构
type Config struct {
	Log     LogConfig     `mapstructure:"log" json:"log" yaml:"log"`
	Agent   AgentConfig   `mapstructure:"agent" json:"agent" yaml:"agent"`
	Server  ServerConfig  `mapstructure:"server" json:"server" yaml:"server"`
	Gateway GatewayConfig `mapstructure:"gateway" json:"gateway" yaml:"gateway"`
	Client  ClientConfig  `mapstructure:"client" json:"client" yaml:"client"`
	Tools   ToolsConfig   `mapstructure:"tools" json:"tools" yaml:"tools"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level    string `mapstructure:"level" json:"level" yaml:"level"`
	Encoding string `mapstructure:"encoding" json:"encoding" yaml:"encoding"`
}

// AgentConfig describes the agent that produces the event stream inside the
// runtime.
type AgentConfig struct {
	Name         string  `mapstructure:"name" json:"name" yaml:"name"`
	Instructions string  `mapstructure:"instructions" json:"instructions" yaml:"instructions"`
	Provider     string  `mapstructure:"provider" json:"provider" yaml:"provider"`
	Model        string  `mapstructure:"model" json:"model" yaml:"model"`
	Region       string  `mapstructure:"region" json:"region" yaml:"region"`
	APIKey       string  `mapstructure:"api_key" json:"api_key,omitempty" yaml:"api_key,omitempty"`
	BaseURL      string  `mapstructure:"base_url" json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Temperature  float64 `mapstructure:"temperature" json:"temperature" yaml:"temperature"`
	MaxTokens    int     `mapstructure:"max_tokens" json:"max_tokens" yaml:"max_tokens"`
	MaxSteps     int     `mapstructure:"max_steps" json:"max_steps" yaml:"max_steps"`
}

// ServerConfig 运行时 HTTP 服务配置（AgentCore 容器契约）。
// KeepAlive 为流式响应中 SSE 注释心跳的间隔，0 表示关闭。
type ServerConfig struct {
	Host          string          `mapstructure:"host" json:"host" yaml:"host"`
	Port          int             `mapstructure:"port" json:"port" yaml:"port"`
	ReadTimeout   time.Duration   `mapstructure:"read_timeout" json:"read_timeout" yaml:"read_timeout"`
	EnableMetrics bool            `mapstructure:"enable_metrics" json:"enable_metrics" yaml:"enable_metrics"`
	KeepAlive     time.Duration   `mapstructure:"keep_alive" json:"keep_alive" yaml:"keep_alive"`
	WebSocket     WebSocketConfig `mapstructure:"websocket" json:"websocket" yaml:"websocket"`
}

// WebSocketConfig WebSocket 配置
type WebSocketConfig struct {
	Enabled        bool          `mapstructure:"enabled" json:"enabled" yaml:"enabled"`
	Path           string        `mapstructure:"path" json:"path" yaml:"path"`
	PingInterval   time.Duration `mapstructure:"ping_interval" json:"ping_interval" yaml:"ping_interval"`
	PongTimeout    time.Duration `mapstructure:"pong_timeout" json:"pong_timeout" yaml:"pong_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout" json:"write_timeout" yaml:"write_timeout"`
	MaxMessageSize int64         `mapstructure:"max_message_size" json:"max_message_size" yaml:"max_message_size"`
}

// GatewayConfig 网关配置
type GatewayConfig struct {
	RuntimeARN     string        `mapstructure:"runtime_arn" json:"runtime_arn" yaml:"runtime_arn"`
	Qualifier      string        `mapstructure:"qualifier" json:"qualifier,omitempty" yaml:"qualifier,omitempty"`
	Region         string        `mapstructure:"region" json:"region" yaml:"region"`
	Host           string        `mapstructure:"host" json:"host" yaml:"host"`
	Port           int           `mapstructure:"port" json:"port" yaml:"port"`
	RoutePath      string        `mapstructure:"route_path" json:"route_path" yaml:"route_path"`
	AllowedOrigins []string      `mapstructure:"allowed_origins" json:"allowed_origins" yaml:"allowed_origins"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout" json:"read_timeout" yaml:"read_timeout"`
	EnableMetrics  bool          `mapstructure:"enable_metrics" json:"enable_metrics" yaml:"enable_metrics"`
}

// ClientConfig mirrors the build-time settings of the web client.
type ClientConfig struct {
	APIURL           string `mapstructure:"api_url" json:"api_url" yaml:"api_url"`
	UserPoolID       string `mapstructure:"user_pool_id" json:"user_pool_id" yaml:"user_pool_id"`
	UserPoolClientID string `mapstructure:"user_pool_client_id" json:"user_pool_client_id" yaml:"user_pool_client_id"`
	HideSignUp       bool   `mapstructure:"hide_sign_up" json:"hide_sign_up" yaml:"hide_sign_up"`
	Region           string `mapstructure:"region" json:"region" yaml:"region"`
	Username         string `mapstructure:"username" json:"username,omitempty" yaml:"username,omitempty"`
	Password         string `mapstructure:"password" json:"-" yaml:"-"`
	HistoryFile      string `mapstructure:"history_file" json:"history_file" yaml:"history_file"`
}

// CognitoConfigured reports whether requests should carry an identity token.
func (c ClientConfig) CognitoConfigured() bool {
	return c.UserPoolID != "" && c.UserPoolClientID != ""
}

// ToolsConfig 工具配置
type ToolsConfig struct {
	Weather WeatherToolConfig `mapstructure:"weather" json:"weather" yaml:"weather"`
}

// WeatherToolConfig 天气工具配置
type WeatherToolConfig struct {
	Enabled      bool   `mapstructure:"enabled" json:"enabled" yaml:"enabled"`
	GeocodingURL string `mapstructure:"geocoding_url" json:"geocoding_url" yaml:"geocoding_url"`
	ForecastURL  string `mapstructure:"forecast_url" json:"forecast_url" yaml:"forecast_url"`
	Timeout      int    `mapstructure:"timeout" json:"timeout" yaml:"timeout"`
}
