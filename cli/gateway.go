package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Kota8102/agentcore-mastra-react-stack/gateway"
	"github.com/Kota8102/agentcore-mastra-react-stack/internal/logger"
	"github.com/Kota8102/agentcore-mastra-react-stack/internal/metrics"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/spf13/cobra"
)

var gatewayCmd = &cobra.Command{
	Use:   "gateway",
	Short: "Run the invocation gateway",
	Long:  `Accept chat requests, invoke the AgentCore runtime and relay its event stream to the caller.`,
}

var gatewayServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the gateway as a local HTTP server",
	RunE:  runGatewayServe,
}

var gatewayLambdaCmd = &cobra.Command{
	Use:   "lambda",
	Short: "Run the gateway as a streaming AWS Lambda handler",
	RunE:  runGatewayLambda,
}

var (
	gatewayHost string
	gatewayPort int
)

func init() {
	gatewayServeCmd.Flags().StringVar(&gatewayHost, "host", "", "Bind address (default from config, 127.0.0.1)")
	gatewayServeCmd.Flags().IntVarP(&gatewayPort, "port", "p", 0, "Port (default from config, 3000)")

	gatewayCmd.AddCommand(gatewayServeCmd)
	gatewayCmd.AddCommand(gatewayLambdaCmd)
}

func runGatewayServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if gatewayHost != "" {
		cfg.Gateway.Host = gatewayHost
	}
	if gatewayPort != 0 {
		cfg.Gateway.Port = gatewayPort
	}
	if err := initLogger(cfg.Log, "agentcore-api"); err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, err := gateway.NewFromAWS(ctx, cfg.Gateway, metrics.Default(), logger.L())
	if err != nil {
		return err
	}

	srv := gateway.NewServer(g)
	if err := srv.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	return srv.Stop()
}

func runGatewayLambda(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	// CloudWatch gets one JSON object per line.
	cfg.Log.Encoding = "json"
	if err := initLogger(cfg.Log, "agentcore-api"); err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	// Nothing scrapes a Lambda, so it runs without metrics.
	g, err := gateway.NewFromAWS(context.Background(), cfg.Gateway, nil, logger.L())
	if err != nil {
		return err
	}

	lambda.Start(g.HandleLambda)
	return nil
}
