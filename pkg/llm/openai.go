package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

// OpenAIConfig configures an OpenAI-compatible client. BaseURL may point
// at any server speaking the OpenAI chat completion API.
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
}

// OpenAIClient implements Client against the OpenAI chat completion API
// with bounded retry on transient failures.
type OpenAIClient struct {
	client     *openai.Client
	config     OpenAIConfig
	maxRetries int
	logger     *slog.Logger
}

// NewOpenAIClient creates an OpenAI-compatible client.
func NewOpenAIClient(cfg OpenAIConfig, logger *slog.Logger) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if logger == nil {
		logger = slog.Default()
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &OpenAIClient{
		client:     openai.NewClientWithConfig(clientConfig),
		config:     cfg,
		maxRetries: MaxRetries,
		logger:     logger,
	}, nil
}

// GenerateResponse implements Client.
func (c *OpenAIClient) GenerateResponse(ctx context.Context, systemPrompt, userPrompt string, opts Options) (*Response, error) {
	if strings.TrimSpace(userPrompt) == "" {
		return nil, &EmptyPromptError{}
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	temperature := c.config.Temperature
	if opts.Temperature != nil {
		temperature = *opts.Temperature
	}
	maxTokens := c.config.MaxTokens
	if opts.MaxTokens > 0 {
		maxTokens = opts.MaxTokens
	}

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if systemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: cleanInput(systemPrompt),
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: cleanInput(userPrompt),
	})

	req := openai.ChatCompletionRequest{
		Model:       c.config.Model,
		Messages:    messages,
		Temperature: temperature,
		Stream:      false,
	}
	if maxTokens > 0 {
		req.MaxTokens = maxTokens
	}

	var lastError error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt*attempt) * time.Second
			c.logger.Warn("retrying llm request",
				"backoff", backoff,
				"attempt", attempt+1,
				"max_attempts", c.maxRetries+1)

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		resp, err := c.client.CreateChatCompletion(ctx, req)
		if err != nil {
			lastError = err

			if strings.Contains(err.Error(), "rate limit") || strings.Contains(err.Error(), "rate_limit") {
				if attempt == c.maxRetries {
					return nil, NewRateLimitError(err.Error())
				}
				continue
			}
			if isRetriableError(err) && attempt < c.maxRetries {
				continue
			}
			return nil, fmt.Errorf("openai completion failed: %w", err)
		}

		if len(resp.Choices) == 0 {
			return nil, NewEmptyResponseError("no choices returned from API")
		}

		response := &Response{
			Content:      resp.Choices[0].Message.Content,
			Model:        resp.Model,
			FinishReason: string(resp.Choices[0].FinishReason),
		}
		if resp.Usage.TotalTokens > 0 {
			response.TokensUsed = &TokenUsage{
				PromptTokens:     resp.Usage.PromptTokens,
				CompletionTokens: resp.Usage.CompletionTokens,
				TotalTokens:      resp.Usage.TotalTokens,
			}
		}
		return response, nil
	}

	return nil, fmt.Errorf("all retries exhausted, last error: %w", lastError)
}

// Close implements Client.
func (c *OpenAIClient) Close() error {
	return nil
}
