package genclient

import (
	"fmt"
	"strings"
)

// ClientError is the base error type for generation failures.
type ClientError struct {
	Message string
	Cause   error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// ProviderError represents an error returned by an LLM provider.
type ProviderError struct {
	ClientError
	Provider   string
	StatusCode int
	Retryable  bool
	RetryAfter *float64
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("[%s] %s (status=%d, retryable=%v)", e.Provider, e.Message, e.StatusCode, e.Retryable)
}

// Concrete provider error types.

type AuthenticationError struct{ ProviderError }
type RateLimitError struct{ ProviderError }
type ServerError struct{ ProviderError }
type ContextLengthError struct{ ProviderError }
type ContentFilterError struct{ ProviderError }

// Non-provider errors.

type TimeoutError struct{ ClientError }
type AbortError struct{ ClientError }

// MalformedOutputError marks a generation whose output never assembled into
// a complete action. Retrying the same prompt is worthwhile.
type MalformedOutputError struct{ ClientError }

// IsRetryable returns true if the error is safe to retry.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	switch e := err.(type) {
	case *ProviderError:
		return e.Retryable
	case *AuthenticationError:
		return false
	case *ContextLengthError:
		return false
	case *ContentFilterError:
		return false
	case *RateLimitError:
		return true
	case *ServerError:
		return true
	case *TimeoutError:
		return true
	case *MalformedOutputError:
		return true
	case *AbortError:
		return false
	default:
		// Unknown errors default to retryable.
		return true
	}
}

// classifyError converts a raw provider error into the taxonomy. gollm
// surfaces provider failures as opaque strings, so classification goes by
// message content.
func classifyError(provider string, err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	msgLower := strings.ToLower(msg)
	pe := ProviderError{
		ClientError: ClientError{Message: msg, Cause: err},
		Provider:    provider,
	}
	switch {
	case strings.Contains(msgLower, "401") || strings.Contains(msgLower, "unauthorized") || strings.Contains(msgLower, "invalid api key"):
		pe.StatusCode = 401
		return &AuthenticationError{ProviderError: pe}
	case strings.Contains(msgLower, "429") || strings.Contains(msgLower, "rate limit"):
		pe.StatusCode = 429
		pe.Retryable = true
		return &RateLimitError{ProviderError: pe}
	case strings.Contains(msgLower, "context length") || strings.Contains(msgLower, "too many tokens"):
		pe.StatusCode = 413
		return &ContextLengthError{ProviderError: pe}
	case strings.Contains(msgLower, "500") || strings.Contains(msgLower, "internal server"):
		pe.StatusCode = 500
		pe.Retryable = true
		return &ServerError{ProviderError: pe}
	case strings.Contains(msgLower, "timeout") || strings.Contains(msgLower, "deadline exceeded"):
		return &TimeoutError{ClientError: ClientError{Message: msg, Cause: err}}
	case strings.Contains(msgLower, "content filter") || strings.Contains(msgLower, "safety"):
		return &ContentFilterError{ProviderError: pe}
	default:
		pe.Retryable = true
		return &pe
	}
}
