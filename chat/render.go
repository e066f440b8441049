package chat

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Kota8102/agentcore-mastra-react-stack/protocol"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

var (
	reasoningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244")).
			Italic(true).
			BorderStyle(lipgloss.NormalBorder()).
			BorderLeft(true).
			BorderForeground(lipgloss.Color("240")).
			PaddingLeft(1)
	summaryStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	toolStyle    = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1)
	toolNameStyle = lipgloss.NewStyle().Bold(true)
	labelStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	fileStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Underline(true)

	badgeStyles = map[string]lipgloss.Style{
		protocol.StateInputStreaming:  lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
		protocol.StateInputAvailable:  lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		protocol.StateOutputAvailable: lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		protocol.StateOutputError:     lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	}
	badgeLabels = map[string]string{
		protocol.StateInputStreaming:  "Pending",
		protocol.StateInputAvailable:  "Running",
		protocol.StateOutputAvailable: "Completed",
		protocol.StateOutputError:     "Error",
	}
)

// Renderer 把消息片段渲染为终端文本
type Renderer struct {
	markdown *glamour.TermRenderer
}

// NewRenderer creates a renderer. With markdown enabled, text parts go
// through glamour; otherwise they are printed as is.
func NewRenderer(markdown bool, width int) (*Renderer, error) {
	r := &Renderer{}
	if !markdown {
		return r, nil
	}
	if width <= 0 {
		width = 100
	}
	tr, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, fmt.Errorf("create markdown renderer: %w", err)
	}
	r.markdown = tr
	return r, nil
}

// RenderMessage renders every part of m in order.
func (r *Renderer) RenderMessage(m protocol.Message) string {
	var blocks []string
	for _, p := range m.Parts {
		if s := r.RenderPart(p); s != "" {
			blocks = append(blocks, s)
		}
	}
	return strings.Join(blocks, "\n")
}

// RenderPart renders one part by type. Unknown parts render as nothing.
func (r *Renderer) RenderPart(p protocol.Part) string {
	switch {
	case p.Type == protocol.PartText:
		return r.renderText(p.Text)
	case p.Type == protocol.PartReasoning:
		return renderReasoning(p)
	case p.IsToolPart():
		return renderTool(p)
	case p.Type == protocol.PartFile:
		return renderFile(p)
	default:
		return ""
	}
}

func (r *Renderer) renderText(text string) string {
	if text == "" {
		return ""
	}
	if r.markdown == nil {
		return text
	}
	out, err := r.markdown.Render(text)
	if err != nil {
		return text
	}
	return strings.Trim(out, "\n")
}

// renderReasoning shows the text while it streams and a one-line summary
// once it is done.
func renderReasoning(p protocol.Part) string {
	if p.State == protocol.StateDone {
		return summaryStyle.Render(fmt.Sprintf("▸ Reasoning (%d chars)", len([]rune(p.Text))))
	}
	return reasoningStyle.Render("Thinking…\n" + p.Text)
}

func renderTool(p protocol.Part) string {
	var sb strings.Builder
	sb.WriteString(toolNameStyle.Render(p.ToolLabel()))
	if label, ok := badgeLabels[p.State]; ok {
		sb.WriteString(" ")
		sb.WriteString(badgeStyles[p.State].Render("[" + label + "]"))
	}
	if len(p.Input) > 0 {
		sb.WriteString("\n" + labelStyle.Render("Input:") + "\n" + prettyJSON(p.Input))
	}
	switch p.State {
	case protocol.StateOutputAvailable:
		sb.WriteString("\n" + labelStyle.Render("Output:") + "\n" + prettyJSON(p.Output))
	case protocol.StateOutputError:
		sb.WriteString("\n" + errorStyle.Render("Error: "+p.ErrorText))
	}
	return toolStyle.Render(sb.String())
}

func renderFile(p protocol.Part) string {
	name := p.Filename
	if name == "" {
		name = p.URL
		if strings.HasPrefix(name, "data:") {
			name = "attachment"
		}
	}
	line := "📎 " + fileStyle.Render(name)
	if p.MediaType != "" {
		line += " " + labelStyle.Render("("+p.MediaType+")")
	}
	return line
}

// RenderUpdate returns the incremental output for one streamed event: text
// deltas as they arrive plus short status lines for reasoning and tools.
func (r *Renderer) RenderUpdate(u Update) string {
	switch ev := u.Event.(type) {
	case protocol.TextDelta:
		return ev.Delta
	case protocol.ReasoningStart:
		return summaryStyle.Render("Thinking…") + "\n"
	case protocol.ToolInputAvailable:
		return "\n" + toolNameStyle.Render("→ "+ev.ToolName) + " " + labelStyle.Render(compactJSON(ev.Input)) + "\n"
	case protocol.ToolOutputAvailable:
		return badgeStyles[protocol.StateOutputAvailable].Render("✓ "+toolLabel(u.Message, ev.ToolCallID)) + "\n"
	case protocol.ToolOutputError:
		return errorStyle.Render("✗ "+toolLabel(u.Message, ev.ToolCallID)+": "+ev.ErrorText) + "\n"
	case protocol.File:
		return renderFile(protocol.Part{URL: ev.URL, MediaType: ev.MediaType}) + "\n"
	case protocol.Error:
		return "\n" + errorStyle.Render("Error: "+ev.ErrorText) + "\n"
	default:
		return ""
	}
}

func toolLabel(m protocol.Message, toolCallID string) string {
	for _, p := range m.Parts {
		if p.IsToolPart() && p.ToolCallID == toolCallID {
			return p.ToolLabel()
		}
	}
	return toolCallID
}

func prettyJSON(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}

func compactJSON(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}
