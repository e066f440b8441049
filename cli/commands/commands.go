// Package commands 提供可扩展的 slash 命令处理
package commands

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Kota8102/agentcore-mastra-react-stack/chat"
	"github.com/Kota8102/agentcore-mastra-react-stack/protocol"
	"github.com/manifoldco/promptui"
)

// Command 命令定义
type Command struct {
	Name        string
	Usage       string
	Description string
	Handler     func(args []string) (string, bool) // 返回结果和是否应该退出
}

// Conversation is the part of chat.Conversation the commands act on.
type Conversation interface {
	SessionID() string
	Status() chat.Status
	Reset() error
	Stop()
}

// CommandRegistry 命令注册表
type CommandRegistry struct {
	commands    map[string]*Command
	conv        Conversation
	attachments []protocol.Part
	loadFile    func(path string) (protocol.Part, error)
}

// NewCommandRegistry 创建命令注册表
func NewCommandRegistry(conv Conversation) *CommandRegistry {
	registry := &CommandRegistry{
		commands: make(map[string]*Command),
		conv:     conv,
		loadFile: chat.FilePart,
	}
	registry.registerBuiltInCommands()
	return registry
}

// registerBuiltInCommands 注册内置命令
func (r *CommandRegistry) registerBuiltInCommands() {
	quit := func(args []string) (string, bool) {
		r.conv.Stop()
		return "", true
	}
	r.Register(&Command{Name: "quit", Usage: "/quit", Description: "Exit the chat session", Handler: quit})
	r.Register(&Command{Name: "exit", Usage: "/exit", Description: "Exit the chat session", Handler: quit})

	r.Register(&Command{
		Name:        "help",
		Usage:       "/help [command]",
		Description: "Show available commands or command help",
		Handler: func(args []string) (string, bool) {
			return r.buildHelp(args), false
		},
	})

	r.Register(&Command{
		Name:        "new",
		Usage:       "/new",
		Description: "Start a new conversation with a new session id",
		Handler: func(args []string) (string, bool) {
			if err := r.conv.Reset(); err != nil {
				return fmt.Sprintf("Cannot start a new conversation: %v (use /stop first)", err), false
			}
			r.attachments = nil
			return fmt.Sprintf("New session: %s", r.conv.SessionID()), false
		},
	})

	r.Register(&Command{
		Name:        "session",
		Usage:       "/session",
		Description: "Show the current session id and status",
		Handler: func(args []string) (string, bool) {
			return fmt.Sprintf("Session: %s\nStatus:  %s", r.conv.SessionID(), r.conv.Status()), false
		},
	})

	r.Register(&Command{
		Name:        "stop",
		Usage:       "/stop",
		Description: "Stop the response that is streaming",
		Handler: func(args []string) (string, bool) {
			if !r.conv.Status().Busy() {
				return "Nothing is streaming.", false
			}
			r.conv.Stop()
			return "⚙️ Response stopped.", false
		},
	})

	r.Register(&Command{
		Name:        "attach",
		Usage:       "/attach <file>...",
		Description: "Attach files to the next message",
		Handler: func(args []string) (string, bool) {
			if len(args) == 0 {
				return "Usage: /attach <file>...", false
			}
			var sb strings.Builder
			for _, path := range args {
				part, err := r.loadFile(path)
				if err != nil {
					sb.WriteString(fmt.Sprintf("Error attaching %s: %v\n", path, err))
					continue
				}
				r.attachments = append(r.attachments, part)
				sb.WriteString(fmt.Sprintf("Attached %s (%s)\n", part.Filename, part.MediaType))
			}
			return strings.TrimRight(sb.String(), "\n"), false
		},
	})

	r.Register(&Command{
		Name:        "detach",
		Usage:       "/detach",
		Description: "Drop pending attachments",
		Handler: func(args []string) (string, bool) {
			n := len(r.attachments)
			r.attachments = nil
			return fmt.Sprintf("Dropped %d attachment(s).", n), false
		},
	})
}

// Register 注册命令
func (r *CommandRegistry) Register(cmd *Command) {
	r.commands[cmd.Name] = cmd
}

// Execute 执行命令
// 返回 (响应消息, 是否是命令, 是否应该退出)
func (r *CommandRegistry) Execute(input string) (string, bool, bool) {
	input = strings.TrimSpace(input)
	if !strings.HasPrefix(input, "/") {
		return "", false, false
	}

	parts := strings.Fields(input)
	if len(parts) == 0 {
		return "", false, false
	}

	cmdName := strings.TrimPrefix(parts[0], "/")
	cmd, ok := r.commands[cmdName]
	if !ok {
		return fmt.Sprintf("Unknown command: /%s. Type /help for available commands.", cmdName), true, false
	}

	result, shouldExit := cmd.Handler(parts[1:])
	return result, true, shouldExit
}

// TakeAttachments returns the pending attachments and clears them.
func (r *CommandRegistry) TakeAttachments() []protocol.Part {
	files := r.attachments
	r.attachments = nil
	return files
}

// PendingAttachments 待发送附件数量
func (r *CommandRegistry) PendingAttachments() int {
	return len(r.attachments)
}

// List 按名称列出所有命令
func (r *CommandRegistry) List() []*Command {
	cmds := make([]*Command, 0, len(r.commands))
	for _, cmd := range r.commands {
		cmds = append(cmds, cmd)
	}
	sort.Slice(cmds, func(i, j int) bool { return cmds[i].Name < cmds[j].Name })
	return cmds
}

// Names returns "/name" for every command, for completion.
func (r *CommandRegistry) Names() []string {
	var names []string
	for _, cmd := range r.List() {
		names = append(names, "/"+cmd.Name)
	}
	return names
}

// buildHelp 构建帮助信息
func (r *CommandRegistry) buildHelp(args []string) string {
	if len(args) > 0 {
		cmdName := strings.TrimPrefix(args[0], "/")
		cmd, ok := r.commands[cmdName]
		if !ok {
			return fmt.Sprintf("Unknown command: /%s", cmdName)
		}
		return fmt.Sprintf("%s\n\n%s", cmd.Usage, cmd.Description)
	}

	var sb strings.Builder
	sb.WriteString("Available commands:\n\n")
	for _, cmd := range r.List() {
		sb.WriteString(fmt.Sprintf("  %-18s %s\n", cmd.Usage, cmd.Description))
	}
	sb.WriteString("\nCtrl-C stops a streaming response; Ctrl-D exits.")
	return sb.String()
}

// GetCommandPrompt 返回启动时显示的提示
func (r *CommandRegistry) GetCommandPrompt() string {
	return "Type a message and press Enter. Type / for the command menu, /help for all commands."
}

// SelectCommand 显示命令菜单，返回选中的命令（如 "/new"），取消时返回空字符串
func (r *CommandRegistry) SelectCommand() (string, error) {
	cmds := r.List()
	templates := &promptui.SelectTemplates{
		Label:    "{{ . }}",
		Active:   "▸ {{ .Usage | cyan }}  {{ .Description | faint }}",
		Inactive: "  {{ .Usage }}  {{ .Description | faint }}",
		Selected: "{{ .Usage | green }}",
	}
	prompt := promptui.Select{
		Label:     "Commands",
		Items:     cmds,
		Templates: templates,
		Size:      len(cmds),
	}

	idx, _, err := prompt.Run()
	if err != nil {
		if err == promptui.ErrInterrupt || err == promptui.ErrEOF {
			return "", nil
		}
		return "", err
	}
	return "/" + cmds[idx].Name, nil
}
