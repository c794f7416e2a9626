package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

const (
	completionTemperature = 0.2
	rateLimiterBurst      = 5
)

type openaiClient struct {
	client      *openai.Client
	model       string
	logger      *zerolog.Logger
	rateLimiter *rate.Limiter
}

// NewOpenAI creates a completion client backed by the OpenAI chat API.
func NewOpenAI(apiKey, model string, rps int, logger *zerolog.Logger) Client {
	if model == "" {
		model = openai.GPT4oMini
	}

	return &openaiClient{
		client:      openai.NewClient(apiKey),
		model:       model,
		logger:      logger,
		rateLimiter: rate.NewLimiter(rate.Limit(float64(rps)), rateLimiterBurst),
	}
}

func (c *openaiClient) Complete(ctx context.Context, prompt string, maxOutputTokens int) (Result, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return Result{}, fmt.Errorf("rate limiter error: %w", err)
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: completionTemperature,
		MaxTokens:   maxOutputTokens,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
	})
	if err != nil {
		return Result{}, fmt.Errorf("openai chat completion error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return Result{}, fmt.Errorf("openai chat completion: empty choices")
	}

	choice := resp.Choices[0]
	text := strings.TrimSpace(choice.Message.Content)

	c.logger.Debug().
		Str("model", c.model).
		Str("finish_reason", string(choice.FinishReason)).
		Int("total_tokens", resp.Usage.TotalTokens).
		Msg("LLM response")

	return Result{
		Text:         text,
		FinishReason: string(choice.FinishReason),
		Usage: Usage{
			Input:  resp.Usage.PromptTokens,
			Output: resp.Usage.CompletionTokens,
			Total:  resp.Usage.TotalTokens,
		},
	}, nil
}
