package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/Kota8102/agentcore-mastra-react-stack/chat"
	"github.com/Kota8102/agentcore-mastra-react-stack/cli/commands"
	"github.com/Kota8102/agentcore-mastra-react-stack/cli/input"
	"github.com/Kota8102/agentcore-mastra-react-stack/config"
	"github.com/Kota8102/agentcore-mastra-react-stack/internal/logger"
	"github.com/Kota8102/agentcore-mastra-react-stack/protocol"
	cognitotypes "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/chzyer/readline"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"golang.org/x/oauth2"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive chat mode",
	Long:  `Chat with the agent through the gateway, rendering the response as it streams.`,
	RunE:  runChat,
}

var (
	chatAPIURL    string
	chatSessionID string
	chatLogin     bool
	chatMarkdown  bool
	chatUsername  string
)

func init() {
	chatCmd.Flags().StringVar(&chatAPIURL, "api-url", "", "Gateway base URL (default from config / VITE_API_URL)")
	chatCmd.Flags().StringVar(&chatSessionID, "session-id", "", "Session id to use (default: a new session-<uuid>)")
	chatCmd.Flags().BoolVar(&chatLogin, "login", false, "Sign in to the Cognito user pool before chatting")
	chatCmd.Flags().StringVarP(&chatUsername, "username", "u", "", "Cognito username")
	chatCmd.Flags().BoolVar(&chatMarkdown, "markdown", true, "Render replies as markdown once complete")
}

// runChat 交互式聊天
func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if chatAPIURL != "" {
		cfg.Client.APIURL = chatAPIURL
	}
	if chatUsername != "" {
		cfg.Client.Username = chatUsername
	}
	if logLevel == "" {
		// keep the terminal for the conversation
		cfg.Log.Level = "warn"
	}
	if err := initLogger(cfg.Log, ""); err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	var tokens oauth2.TokenSource
	if chatLogin || cfg.Client.CognitoConfigured() {
		tokens, err = signIn(ctx, cfg.Client)
		if err != nil {
			return err
		}
	}

	renderer, err := chat.NewRenderer(chatMarkdown, readline.GetScreenWidth())
	if err != nil {
		return err
	}

	// out is the readline writer, set before the first Submit.
	var out io.Writer = os.Stdout
	conv := chat.NewConversation(
		chat.NewHTTPTransport(cfg.Client.APIURL, tokens),
		chat.WithSessionID(chatSessionID),
		chat.WithLogger(logger.L()),
		chat.WithObserver(func(u chat.Update) {
			if u.Event == nil {
				return
			}
			if _, isText := u.Event.(protocol.TextDelta); isText && chatMarkdown {
				return
			}
			fmt.Fprint(out, renderer.RenderUpdate(u))
		}),
	)

	registry := commands.NewCommandRegistry(conv)

	rl, err := input.NewReadline(input.Options{
		Prompt:      "➜ ",
		HistoryFile: config.ExpandUserPath(cfg.Client.HistoryFile),
		Completer:   input.Completer(registry.Names()...),
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()
	out = rl.Stdout()

	fmt.Fprintln(out, "🤖 agentcore chat")
	fmt.Fprintf(out, "  API:     %s\n", chat.Endpoint(cfg.Client.APIURL))
	fmt.Fprintf(out, "  Session: %s\n\n", conv.SessionID())
	fmt.Fprintln(out, registry.GetCommandPrompt())
	fmt.Fprintln(out)

	var wg sync.WaitGroup
	defer wg.Wait()
	defer conv.Stop()

	for {
		line, err := input.ReadLine(rl)
		if errors.Is(err, input.ErrInterrupted) {
			if conv.Status().Busy() {
				conv.Stop()
			}
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return nil
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "/" {
			selected, err := registry.SelectCommand()
			if err != nil || selected == "" {
				continue
			}
			line = selected
		}

		if result, isCmd, quit := registry.Execute(line); isCmd {
			if result != "" {
				fmt.Fprintln(out, result)
			}
			if quit {
				return nil
			}
			continue
		}

		if conv.Status().Busy() {
			fmt.Fprintln(out, "Still streaming. Use /stop or Ctrl-C to cancel.")
			continue
		}

		files := registry.TakeAttachments()
		wg.Add(1)
		go func() {
			defer wg.Done()
			submit(ctx, conv, renderer, out, line, files)
		}()
	}
}

// submit 发送一条消息并输出结果
func submit(ctx context.Context, conv *chat.Conversation, renderer *chat.Renderer, out io.Writer, text string, files []protocol.Part) {
	err := conv.Submit(ctx, text, files...)

	msgs := conv.Messages()
	if chatMarkdown && len(msgs) > 0 {
		if last := msgs[len(msgs)-1]; last.Role == protocol.RoleAssistant {
			fmt.Fprintln(out, renderFinal(renderer, last))
		}
	} else {
		fmt.Fprintln(out)
	}

	switch {
	case err == nil:
	case errors.Is(err, chat.ErrBusy):
		fmt.Fprintln(out, "Still streaming. Use /stop or Ctrl-C to cancel.")
	default:
		var httpErr *chat.HTTPError
		if errors.As(err, &httpErr) && httpErr.Unauthorized() {
			fmt.Fprintln(out, "Unauthorized. Restart with --login to sign in.")
			return
		}
		fmt.Fprintf(out, "Error: %v\n", err)
	}
}

// renderFinal renders the reply's text and reasoning; tool progress was
// already printed while streaming.
func renderFinal(renderer *chat.Renderer, m protocol.Message) string {
	var blocks []string
	for _, p := range m.Parts {
		if p.Type != protocol.PartText && p.Type != protocol.PartReasoning {
			continue
		}
		if s := renderer.RenderPart(p); s != "" {
			blocks = append(blocks, s)
		}
	}
	return strings.Join(blocks, "\n")
}

// signIn 登录 Cognito 用户池，缺少的用户名和密码通过提示输入
func signIn(ctx context.Context, cfg config.ClientConfig) (oauth2.TokenSource, error) {
	if !cfg.CognitoConfigured() {
		return nil, fmt.Errorf("sign-in needs client.user_pool_id and client.user_pool_client_id (VITE_USER_POOL_ID, VITE_USER_POOL_CLIENT_ID)")
	}

	username := cfg.Username
	if username == "" {
		prompt := promptui.Prompt{Label: "Username"}
		value, err := prompt.Run()
		if err != nil {
			return nil, fmt.Errorf("read username: %w", err)
		}
		username = strings.TrimSpace(value)
	}

	password := cfg.Password
	if password == "" {
		prompt := promptui.Prompt{Label: "Password", Mask: '*'}
		value, err := prompt.Run()
		if err != nil {
			return nil, fmt.Errorf("read password: %w", err)
		}
		password = value
	}

	client, err := chat.NewCognitoClient(ctx, cfg.Region)
	if err != nil {
		return nil, err
	}
	tokens := chat.NewCognitoTokenSource(ctx, client, cfg.UserPoolClientID, username, password)
	if _, err := chat.IDToken(tokens); err != nil {
		return nil, signInError(err, cfg.HideSignUp)
	}
	fmt.Fprintf(os.Stderr, "Signed in as %s\n", username)
	return tokens, nil
}

// signInError 在用户不存在或密码错误时提示去 Web 端注册，除非注册入口被隐藏
func signInError(err error, hideSignUp bool) error {
	var notFound *cognitotypes.UserNotFoundException
	var notAuthorized *cognitotypes.NotAuthorizedException
	if !hideSignUp && (errors.As(err, &notFound) || errors.As(err, &notAuthorized)) {
		return fmt.Errorf("sign-in failed: %w (no account yet? create one in the web app)", err)
	}
	return fmt.Errorf("sign-in failed: %w", err)
}
