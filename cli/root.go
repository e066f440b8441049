package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/Kota8102/agentcore-mastra-react-stack/config"
	"github.com/Kota8102/agentcore-mastra-react-stack/internal/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Version 版本号，构建时通过 -ldflags 注入
var Version = "dev"

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "agentcore",
	Short: "Streaming chat agent for Bedrock AgentCore",
	Long: `agentcore runs every piece of the chat stack:

  serve          the agent runtime container (/invocations, /ping)
  gateway        the API in front of the runtime (local HTTP or AWS Lambda)
  chat           an interactive terminal client`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("agentcore " + Version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: ./.agentcore/config.*, ./config.*, ~/.agentcore/config.*)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(gatewayCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(pingCmd)
	rootCmd.AddCommand(configCmd)
}

// Execute 执行根命令
func Execute() error {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	if lambdaArgs := lambdaDefaultArgs(os.Args[1:]); lambdaArgs != nil {
		rootCmd.SetArgs(lambdaArgs)
	}
	return rootCmd.Execute()
}

// lambdaDefaultArgs returns the subcommand to run inside the Lambda runtime
// when the binary is started without arguments.
func lambdaDefaultArgs(args []string) []string {
	if len(args) > 0 || os.Getenv("AWS_LAMBDA_RUNTIME_API") == "" {
		return nil
	}
	return []string{"gateway", "lambda"}
}

// loadConfig 加载配置并应用 --log-level
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	return cfg, nil
}

// initLogger 初始化全局日志
func initLogger(cfg config.LogConfig, service string) error {
	if err := logger.InitWithOptions(logger.Options{
		Level:    cfg.Level,
		Encoding: strings.ToLower(cfg.Encoding),
		Service:  service,
	}); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}
