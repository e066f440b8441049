package session

import (
	"github.com/google/uuid"
)

const (
	// IDPrefix 默认会话 ID 前缀
	IDPrefix = "session-"

	// AgentCore runtime session ids must be 33 to 100 characters.
	MinIDLength = 33
	MaxIDLength = 100
)

// New 生成新的会话 ID，例如 session-6f1c...（44 个字符）
func New() string {
	return IDPrefix + uuid.NewString()
}

// Valid reports whether id is accepted as a runtime session id.
func Valid(id string) bool {
	if len(id) < MinIDLength || len(id) > MaxIDLength {
		return false
	}
	for i, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case (r == '-' || r == '_') && i > 0:
		default:
			return false
		}
	}
	return true
}

// Resolve 原样返回调用方提供的会话 ID，为空时生成新的
func Resolve(supplied string) string {
	if supplied != "" {
		return supplied
	}
	return New()
}
