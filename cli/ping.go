package cli

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check the health of a runtime server",
	RunE:  runPing,
}

var (
	pingURL     string
	pingTimeout time.Duration
)

func init() {
	pingCmd.Flags().StringVar(&pingURL, "url", "", "Runtime base URL (default http://127.0.0.1:<server.port>)")
	pingCmd.Flags().DurationVar(&pingTimeout, "timeout", 5*time.Second, "Request timeout")
}

func runPing(cmd *cobra.Command, args []string) error {
	base := pingURL
	if base == "" {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		base = fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), pingTimeout)
	defer cancel()

	status, err := ping(ctx, http.DefaultClient, base)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), status)
	return nil
}

// ping 请求 /ping 并返回 status 字段
func ping(ctx context.Context, client *http.Client, base string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(base, "/")+"/ping", nil)
	if err != nil {
		return "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("runtime unreachable: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ping returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	status := gjson.GetBytes(body, "status").String()
	if status == "" {
		return "", fmt.Errorf("unexpected ping response: %s", strings.TrimSpace(string(body)))
	}
	return status, nil
}
