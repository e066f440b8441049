package agent

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"

	"github.com/Kota8102/agentcore-mastra-react-stack/protocol"
	"github.com/tmc/langchaingo/llms"
)

// toLLMMessages 转换 UI 消息为模型消息。推理和工具片段不回传给模型。
func toLLMMessages(messages []protocol.Message) []llms.MessageContent {
	result := make([]llms.MessageContent, 0, len(messages))
	for _, msg := range messages {
		var role llms.ChatMessageType
		switch msg.Role {
		case protocol.RoleUser:
			role = llms.ChatMessageTypeHuman
		case protocol.RoleAssistant:
			role = llms.ChatMessageTypeAI
		case protocol.RoleSystem:
			role = llms.ChatMessageTypeSystem
		default:
			role = llms.ChatMessageTypeHuman
		}

		var parts []llms.ContentPart
		for _, part := range msg.Parts {
			switch part.Type {
			case protocol.PartText:
				if part.Text != "" {
					parts = append(parts, llms.TextPart(part.Text))
				}
			case protocol.PartFile:
				parts = append(parts, filePart(part))
			}
		}
		if len(parts) == 0 {
			continue
		}
		result = append(result, llms.MessageContent{Role: role, Parts: parts})
	}
	return result
}

// filePart inlines data: URL images and describes everything else as text.
func filePart(part protocol.Part) llms.ContentPart {
	if strings.HasPrefix(part.URL, "data:") {
		mediaType, data, err := decodeDataURL(part.URL)
		if err == nil {
			if part.MediaType != "" {
				mediaType = part.MediaType
			}
			if strings.HasPrefix(mediaType, "image/") {
				return llms.BinaryPart(mediaType, data)
			}
			if strings.HasPrefix(mediaType, "text/") {
				return llms.TextPart(fmt.Sprintf("[file: %s]\n%s", fileLabel(part), data))
			}
		}
		return llms.TextPart(fmt.Sprintf("[file: %s (%s)]", fileLabel(part), part.MediaType))
	}
	return llms.TextPart(fmt.Sprintf("[file: %s (%s) %s]", fileLabel(part), part.MediaType, part.URL))
}

func fileLabel(part protocol.Part) string {
	if part.Filename != "" {
		return part.Filename
	}
	if u, err := url.Parse(part.URL); err == nil && u.Scheme != "data" && u.Path != "" {
		return u.Path[strings.LastIndex(u.Path, "/")+1:]
	}
	return "attachment"
}

// decodeDataURL parses data:[<mediatype>][;base64],<data>.
func decodeDataURL(raw string) (string, []byte, error) {
	rest := strings.TrimPrefix(raw, "data:")
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, fmt.Errorf("malformed data url")
	}

	mediaType := meta
	isBase64 := false
	if strings.HasSuffix(meta, ";base64") {
		mediaType = strings.TrimSuffix(meta, ";base64")
		isBase64 = true
	}
	if i := strings.Index(mediaType, ";"); i >= 0 {
		mediaType = mediaType[:i]
	}
	if mediaType == "" {
		mediaType = "text/plain"
	}

	if isBase64 {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return "", nil, fmt.Errorf("decode data url: %w", err)
		}
		return mediaType, data, nil
	}
	text, err := url.PathUnescape(payload)
	if err != nil {
		return "", nil, fmt.Errorf("decode data url: %w", err)
	}
	return mediaType, []byte(text), nil
}
