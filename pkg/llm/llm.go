package llm

import (
	"context"
	"fmt"
	"strings"
)

// Default generation settings.
const (
	DefaultModel       = "gpt-4o-mini"
	DefaultTemperature = float32(0.0)
	MaxRetries         = 2
)

// Options tunes a single generation call.
type Options struct {
	// Temperature must be in [0, 2]. Nil uses the client default.
	Temperature *float32
	MaxTokens   int
}

// Validate checks option bounds.
func (o Options) Validate() error {
	if o.Temperature != nil && (*o.Temperature < 0 || *o.Temperature > 2) {
		return fmt.Errorf("temperature must be between 0 and 2, got %v", *o.Temperature)
	}
	return nil
}

// TokenUsage reports token accounting from a completion.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is a completed generation.
type Response struct {
	Content      string      `json:"content"`
	Model        string      `json:"model"`
	FinishReason string      `json:"finish_reason"`
	TokensUsed   *TokenUsage `json:"tokens_used,omitempty"`
}

// Client generates text from prompts. Implementations must be safe for
// concurrent use.
type Client interface {
	// GenerateResponse sends systemPrompt and userPrompt as a single
	// exchange and returns the completion. An empty userPrompt is
	// rejected before any network call.
	GenerateResponse(ctx context.Context, systemPrompt, userPrompt string, opts Options) (*Response, error)
	Close() error
}

// cleanInput strips zero-width characters and control characters that
// upset some providers. Newlines, returns, and tabs survive.
func cleanInput(input string) string {
	zeroWidthChars := []string{"\u200b", "\u200c", "\u200d", "\ufeff", "\u2060"}
	cleaned := input
	for _, char := range zeroWidthChars {
		cleaned = strings.ReplaceAll(cleaned, char, "")
	}

	var builder strings.Builder
	for _, r := range cleaned {
		if r >= 32 || r == '\n' || r == '\r' || r == '\t' {
			builder.WriteRune(r)
		}
	}
	return builder.String()
}

// isRetriableError determines if an error should trigger a retry.
func isRetriableError(err error) bool {
	errStr := strings.ToLower(err.Error())
	retriableErrors := []string{
		"timeout",
		"connection",
		"internal server error",
		"service unavailable",
		"bad gateway",
		"gateway timeout",
	}
	for _, retriable := range retriableErrors {
		if strings.Contains(errStr, retriable) {
			return true
		}
	}
	return false
}
