// Package llm is the model-provider boundary: a single-completion client
// interface plus the OpenAI-backed implementation.
package llm

import (
	"context"
)

// Usage carries token counters for one completion call.
type Usage struct {
	Input  int `json:"input"`
	Output int `json:"output"`
	Total  int `json:"total"`
}

// Add accumulates another call's counters.
func (u *Usage) Add(delta Usage) {
	u.Input += delta.Input
	u.Output += delta.Output
	u.Total += delta.Total
}

// Result is the raw outcome of one completion call.
type Result struct {
	Text         string
	FinishReason string
	Usage        Usage
}

// Client issues a single prompt completion. Retries, validation and prompt
// correction live above this interface.
type Client interface {
	Complete(ctx context.Context, prompt string, maxOutputTokens int) (Result, error)
}
