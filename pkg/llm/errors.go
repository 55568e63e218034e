package llm

import "fmt"

// EmptyPromptError reports a generation call with no user prompt.
type EmptyPromptError struct{}

func (e *EmptyPromptError) Error() string {
	return "llm: prompt must not be empty"
}

// EmptyResponseError reports a provider response with no usable content.
type EmptyResponseError struct {
	Detail string
}

func NewEmptyResponseError(detail string) *EmptyResponseError {
	return &EmptyResponseError{Detail: detail}
}

func (e *EmptyResponseError) Error() string {
	return fmt.Sprintf("llm: empty response: %s", e.Detail)
}

// RateLimitError reports exhausted retries against a rate-limited
// provider.
type RateLimitError struct {
	Detail string
}

func NewRateLimitError(detail string) *RateLimitError {
	return &RateLimitError{Detail: detail}
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("llm: rate limited: %s", e.Detail)
}
