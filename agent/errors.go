package agent

import (
	"context"
	"errors"
	"strings"
)

// ErrorReason 模型调用失败原因
type ErrorReason string

const (
	ErrorReasonAuth            ErrorReason = "auth"
	ErrorReasonRateLimit       ErrorReason = "rate_limit"
	ErrorReasonTimeout         ErrorReason = "timeout"
	ErrorReasonContextOverflow ErrorReason = "context_overflow"
	ErrorReasonInvalidRequest  ErrorReason = "invalid_request"
	ErrorReasonCanceled        ErrorReason = "canceled"
	ErrorReasonUnknown         ErrorReason = "unknown"
)

// maxErrorTextLen bounds the text sent to clients in an error event.
const maxErrorTextLen = 600

var (
	authPatterns = []string{
		"accessdeniedexception",
		"unrecognizedclientexception",
		"expiredtokenexception",
		"invalid api key",
		"incorrect api key",
		"invalid token",
		"unauthorized",
		"forbidden",
		"no ec2 imds role found",
		"failed to retrieve credentials",
		"401",
		"403",
	}
	rateLimitPatterns = []string{
		"throttlingexception",
		"servicequotaexceededexception",
		"too many requests",
		"rate limit",
		"429",
		"quota exceeded",
		"overloaded",
	}
	timeoutPatterns = []string{
		"modeltimeoutexception",
		"timed out",
		"timeout",
		"deadline exceeded",
	}
	contextOverflowPatterns = []string{
		"input is too long",
		"too many input tokens",
		"prompt is too long",
		"maximum context length",
		"context length exceeded",
		"context window",
	}
	invalidRequestPatterns = []string{
		"validationexception",
		"invalid_request_error",
		"400",
	}
)

// ClassifyError 分类模型调用错误，用于日志和指标
func ClassifyError(err error) ErrorReason {
	if err == nil {
		return ErrorReasonUnknown
	}
	if errors.Is(err, context.Canceled) {
		return ErrorReasonCanceled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorReasonTimeout
	}

	msg := strings.ToLower(err.Error())
	// overflow before invalid request: Bedrock reports it as a ValidationException
	switch {
	case matchesAny(msg, contextOverflowPatterns):
		return ErrorReasonContextOverflow
	case matchesAny(msg, authPatterns):
		return ErrorReasonAuth
	case matchesAny(msg, rateLimitPatterns):
		return ErrorReasonRateLimit
	case matchesAny(msg, timeoutPatterns):
		return ErrorReasonTimeout
	case matchesAny(msg, invalidRequestPatterns):
		return ErrorReasonInvalidRequest
	}
	return ErrorReasonUnknown
}

func matchesAny(msg string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// FormatError 格式化错误信息供用户查看
func FormatError(err error) string {
	if err == nil {
		return "An unknown error occurred."
	}

	switch ClassifyError(err) {
	case ErrorReasonContextOverflow:
		return "Context overflow: the conversation is too long for the model. Start a new conversation and try again."
	case ErrorReasonCanceled:
		return "Request canceled."
	}

	text := strings.TrimSpace(err.Error())
	if text == "" {
		return "An unknown error occurred."
	}
	if r := []rune(text); len(r) > maxErrorTextLen {
		return string(r[:maxErrorTextLen]) + "…"
	}
	return text
}
