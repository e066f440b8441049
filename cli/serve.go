package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Kota8102/agentcore-mastra-react-stack/agent"
	"github.com/Kota8102/agentcore-mastra-react-stack/agent/tools"
	"github.com/Kota8102/agentcore-mastra-react-stack/config"
	"github.com/Kota8102/agentcore-mastra-react-stack/internal/logger"
	"github.com/Kota8102/agentcore-mastra-react-stack/internal/metrics"
	"github.com/Kota8102/agentcore-mastra-react-stack/providers"
	"github.com/Kota8102/agentcore-mastra-react-stack/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the agent runtime server",
	Long:  `Serve POST /invocations and GET /ping on 0.0.0.0:8080, the AgentCore runtime container contract.`,
	RunE:  runServe,
}

var (
	serveHost string
	servePort int
)

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Bind address (default from config, 0.0.0.0)")
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port (default from config, 8080)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveHost != "" {
		cfg.Server.Host = serveHost
	}
	if servePort != 0 {
		cfg.Server.Port = servePort
	}
	if err := initLogger(cfg.Log, "agentcore-runtime"); err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if err := config.ValidateServer(cfg.Server); err != nil {
		return fmt.Errorf("server config invalid: %w", err)
	}
	if err := config.ValidateAgent(cfg.Agent); err != nil {
		return fmt.Errorf("agent config invalid: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ag, err := buildAgent(ctx, cfg)
	if err != nil {
		return err
	}

	srv := server.New(cfg.Server, ag, metrics.Default(), logger.L())
	if err := srv.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	logger.Info("Shutting down runtime server")
	return srv.Stop()
}

// buildAgent 创建模型、工具和 Agent
func buildAgent(ctx context.Context, cfg *config.Config) (*agent.Agent, error) {
	model, err := providers.New(ctx, cfg.Agent)
	if err != nil {
		return nil, fmt.Errorf("failed to create model: %w", err)
	}

	registry := tools.NewRegistry()
	if cfg.Tools.Weather.Enabled {
		if err := registry.Register(tools.NewWeatherTool(cfg.Tools.Weather)); err != nil {
			return nil, err
		}
	}

	provider := strings.ToLower(strings.TrimSpace(cfg.Agent.Provider))
	disableStreaming := (provider == "" || provider == string(providers.ProviderTypeBedrock)) && registry.Count() > 0
	if disableStreaming {
		logger.Info("Bedrock with tools: model text is emitted per step")
	}

	ag, err := agent.New(agent.Options{
		Name:             cfg.Agent.Name,
		Instructions:     cfg.Agent.Instructions,
		Model:            model,
		Tools:            registry,
		Temperature:      cfg.Agent.Temperature,
		MaxTokens:        cfg.Agent.MaxTokens,
		MaxSteps:         cfg.Agent.MaxSteps,
		DisableStreaming: disableStreaming,
		Logger:           logger.L(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create agent: %w", err)
	}

	logger.Info("Agent ready",
		zap.String("name", cfg.Agent.Name),
		zap.String("provider", cfg.Agent.Provider),
		zap.String("model", cfg.Agent.Model),
		zap.Int("tools", registry.Count()),
	)
	return ag, nil
}
