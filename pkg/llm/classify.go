package llm

import (
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/openai/openai-go"
)

// Substring fallbacks for providers that surface errors as bare text.
// Fragile by nature; structured status codes are consulted first.
var (
	nonRetryableFragments = []string{
		"401", "403", "invalid", "authentication", "authorization",
		"bad request", "not found",
	}
	retryableFragments = []string{
		"429", "500", "502", "503", "504",
		"timeout", "connection", "network", "rate limit",
		"unavailable", "overload", "throttle", "quota",
	}
)

// statusCode extracts a structured HTTP status from the SDK error types
// when the provider attached one.
func statusCode(err error) (int, bool) {
	var anthropicErr *anthropic.Error
	if errors.As(err, &anthropicErr) {
		return anthropicErr.StatusCode, true
	}
	var openaiErr *openai.Error
	if errors.As(err, &openaiErr) {
		return openaiErr.StatusCode, true
	}
	return 0, false
}

// IsRetryable classifies a provider error. Structured status codes win;
// otherwise the error text is matched against the non-retryable fragments
// first, then the retryable ones. Unknown errors default to retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	if code, ok := statusCode(err); ok {
		switch code {
		case 408, 429, 500, 502, 503, 504:
			return true
		case 400, 401, 403, 404:
			return false
		}
	}

	msg := strings.ToLower(err.Error())
	for _, fragment := range nonRetryableFragments {
		if strings.Contains(msg, fragment) {
			return false
		}
	}
	for _, fragment := range retryableFragments {
		if strings.Contains(msg, fragment) {
			return true
		}
	}
	return true
}
