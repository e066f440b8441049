// Package gateway is the authenticated entry point between the web client and
// the agent runtime. It forwards a chat request to AgentCore and relays the
// runtime's event stream back without parsing it.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Kota8102/agentcore-mastra-react-stack/config"
	"github.com/Kota8102/agentcore-mastra-react-stack/internal/logger"
	"github.com/Kota8102/agentcore-mastra-react-stack/internal/metrics"
	"github.com/Kota8102/agentcore-mastra-react-stack/session"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentcore"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// Content types exchanged with the runtime.
const (
	payloadContentType = "application/json"
	streamContentType  = "text/event-stream"
)

var (
	// ErrNoResponseStream is returned when the runtime answers without a body.
	ErrNoResponseStream = errors.New("no response stream")

	// ErrInvalidBody is returned for request bodies that are not JSON.
	ErrInvalidBody = errors.New("request body is not valid JSON")
)

// RuntimeInvoker is the part of the bedrockagentcore client the gateway uses.
type RuntimeInvoker interface {
	InvokeAgentRuntime(ctx context.Context, params *bedrockagentcore.InvokeAgentRuntimeInput, optFns ...func(*bedrockagentcore.Options)) (*bedrockagentcore.InvokeAgentRuntimeOutput, error)
}

// Invocation is an accepted runtime call. The caller must close Body.
type Invocation struct {
	SessionID string
	Body      io.ReadCloser
}

// Gateway 调用 AgentCore 运行时
type Gateway struct {
	config  config.GatewayConfig
	client  RuntimeInvoker
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// New 创建网关
func New(cfg config.GatewayConfig, client RuntimeInvoker, m *metrics.Metrics, log *zap.Logger) *Gateway {
	if cfg.RoutePath == "" {
		cfg.RoutePath = config.DefaultRoutePath
	}
	return &Gateway{
		config:  cfg,
		client:  client,
		metrics: m,
		logger:  logger.OrDefault(log).With(zap.String("component", metrics.ComponentGateway)),
	}
}

// NewFromAWS builds the gateway on a real bedrockagentcore client using the
// default credential chain.
func NewFromAWS(ctx context.Context, cfg config.GatewayConfig, m *metrics.Metrics, log *zap.Logger) (*Gateway, error) {
	if err := config.ValidateGateway(cfg); err != nil {
		return nil, err
	}

	region := cfg.Region
	if region == "" {
		region = os.Getenv("AWS_REGION")
	}
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return New(cfg, bedrockagentcore.NewFromConfig(awsCfg), m, log), nil
}

// RoutePath returns the chat route served by the adapters.
func (g *Gateway) RoutePath() string {
	return g.config.RoutePath
}

// Invoke forwards body verbatim to the runtime. The session id is the body's
// sessionId field as sent, or a fresh one when it is absent or empty.
func (g *Gateway) Invoke(ctx context.Context, body []byte) (*Invocation, error) {
	if !gjson.ValidBytes(body) {
		return nil, ErrInvalidBody
	}

	sessionID := session.Resolve(gjson.GetBytes(body, "sessionId").String())
	g.logger.Info("Invoking AgentCore", zap.String("session_id", sessionID))

	input := &bedrockagentcore.InvokeAgentRuntimeInput{
		AgentRuntimeArn:  aws.String(g.config.RuntimeARN),
		RuntimeSessionId: aws.String(sessionID),
		ContentType:      aws.String(payloadContentType),
		Accept:           aws.String(streamContentType),
		Payload:          body,
	}
	if g.config.Qualifier != "" {
		input.Qualifier = aws.String(g.config.Qualifier)
	}

	out, err := g.client.InvokeAgentRuntime(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("invoke agent runtime: %w", err)
	}
	if out == nil || out.Response == nil {
		return nil, ErrNoResponseStream
	}

	return &Invocation{
		SessionID: sessionID,
		Body:      out.Response,
	}, nil
}
