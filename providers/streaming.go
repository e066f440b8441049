package providers

import (
	"strings"
	"sync"
)

// ReasoningChunk is a piece of streamed model text classified as reasoning
// or answer text.
type ReasoningChunk struct {
	Text      string
	Reasoning bool
}

// reasoningTags 支持的推理标签（开标签 -> 闭标签）
var reasoningTags = []struct{ open, close string }{
	{"<think>", "</think>"},
	{"<thinking>", "</thinking>"},
	{"<reasoning>", "</reasoning>"},
}

// ReasoningParser splits streamed text into reasoning and answer chunks.
// A tag split across chunks is held back until it can be decided.
type ReasoningParser struct {
	mu       sync.Mutex
	inTag    bool
	closeTag string
	pending  string
}

// NewReasoningParser 创建推理标签解析器
func NewReasoningParser() *ReasoningParser {
	return &ReasoningParser{}
}

// Parse 解析一个流式片段
func (p *ReasoningParser) Parse(content string) []ReasoningChunk {
	p.mu.Lock()
	defer p.mu.Unlock()

	buf := p.pending + content
	p.pending = ""

	var chunks []ReasoningChunk
	emit := func(text string, reasoning bool) {
		if text == "" {
			return
		}
		// 合并相邻同类片段
		if n := len(chunks); n > 0 && chunks[n-1].Reasoning == reasoning {
			chunks[n-1].Text += text
			return
		}
		chunks = append(chunks, ReasoningChunk{Text: text, Reasoning: reasoning})
	}

	for buf != "" {
		if p.inTag {
			if idx := strings.Index(buf, p.closeTag); idx >= 0 {
				emit(buf[:idx], true)
				buf = buf[idx+len(p.closeTag):]
				p.inTag = false
				p.closeTag = ""
				continue
			}
			keep := heldBack(buf, p.closeTag)
			emit(buf[:len(buf)-keep], true)
			p.pending = buf[len(buf)-keep:]
			break
		}

		idx, open, closeTag := nextOpenTag(buf)
		if idx >= 0 {
			emit(buf[:idx], false)
			buf = buf[idx+len(open):]
			p.inTag = true
			p.closeTag = closeTag
			continue
		}

		keep := 0
		for _, tag := range reasoningTags {
			if k := heldBack(buf, tag.open); k > keep {
				keep = k
			}
		}
		emit(buf[:len(buf)-keep], false)
		p.pending = buf[len(buf)-keep:]
		break
	}

	return chunks
}

// Flush returns text held back at the end of the stream.
func (p *ReasoningParser) Flush() []ReasoningChunk {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pending == "" {
		return nil
	}
	chunk := ReasoningChunk{Text: p.pending, Reasoning: p.inTag}
	p.pending = ""
	return []ReasoningChunk{chunk}
}

func nextOpenTag(s string) (int, string, string) {
	best, open, closeTag := -1, "", ""
	for _, tag := range reasoningTags {
		if idx := strings.Index(s, tag.open); idx >= 0 && (best < 0 || idx < best) {
			best, open, closeTag = idx, tag.open, tag.close
		}
	}
	return best, open, closeTag
}

// heldBack returns the length of the longest suffix of s that is a proper
// prefix of tag.
func heldBack(s, tag string) int {
	maxLen := len(tag) - 1
	if len(s) < maxLen {
		maxLen = len(s)
	}
	for k := maxLen; k > 0; k-- {
		if strings.HasPrefix(tag, s[len(s)-k:]) {
			return k
		}
	}
	return 0
}
