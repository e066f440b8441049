package input

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/chzyer/readline"
)

// ErrInterrupted 用户按下 Ctrl-C
var ErrInterrupted = errors.New("interrupted")

// Options readline 配置
type Options struct {
	Prompt string
	// HistoryFile 为空时只在内存中保留历史记录
	HistoryFile string
	// Completer 可选的自动补全
	Completer readline.AutoCompleter
}

// NewReadline 创建持久化的 readline 实例
// 用于需要多次读取输入并保持历史记录的场景
func NewReadline(opts Options) (*readline.Instance, error) {
	if opts.HistoryFile != "" {
		// 目录不存在时 readline 会静默放弃历史文件
		_ = os.MkdirAll(filepath.Dir(opts.HistoryFile), 0o755)
	}

	cfg := &readline.Config{
		Prompt:          opts.Prompt,
		HistoryFile:     opts.HistoryFile,
		HistoryLimit:    1000,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete:    opts.Completer,

		HistorySearchFold: true,
	}
	return readline.NewEx(cfg)
}

// ReadLine 读取一行输入，Ctrl-C 返回 ErrInterrupted
func ReadLine(rl *readline.Instance) (string, error) {
	line, err := rl.Readline()
	if err != nil {
		if errors.Is(err, readline.ErrInterrupt) {
			return "", ErrInterrupted
		}
		return "", err
	}
	return line, nil
}

// InitReadlineHistory 初始化 readline 实例的历史记录
func InitReadlineHistory(rl *readline.Instance, history []string) {
	if rl == nil {
		return
	}
	for _, h := range history {
		if h != "" {
			_ = rl.SaveHistory(h)
		}
	}
}

// Completer builds prefix completion for slash commands.
func Completer(commands ...string) readline.AutoCompleter {
	items := make([]readline.PrefixCompleterInterface, 0, len(commands))
	for _, c := range commands {
		items = append(items, readline.PcItem(c))
	}
	return readline.NewPrefixCompleter(items...)
}
