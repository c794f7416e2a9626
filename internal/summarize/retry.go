package summarize

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/medbrief/pubmed-digest-bot/internal/llm"
)

const (
	maxModelAttempts  = 6
	interAttemptDelay = 100 * time.Millisecond
	maxBackoff        = 60 * time.Second
)

// ExtractFunc pulls the expected sections out of raw model output. A false
// result means the response is malformed and the stage's format instruction
// should be prepended before the next attempt.
type ExtractFunc func(text string) (Sections, bool)

// CheckFunc validates extracted sections. On failure it returns the
// corrective instruction to prepend to the prompt for the next attempt.
type CheckFunc func(sections Sections, finishReason string) (instruction string, ok bool)

// Request describes one model stage driven through the retry loop.
type Request struct {
	ItemID          string
	Stage           string // reason tag prefix, "en" or "ru"
	Prompt          string
	MaxOutputTokens int

	Extract            ExtractFunc
	ExtractInstruction string
	Checks             []CheckFunc
}

// RunResult carries the outcome of a stage. FailReason is empty on success;
// Usage is the token total across every attempt, including failed ones.
type RunResult struct {
	Sections   Sections
	Usage      llm.Usage
	FailReason string
}

// Controller drives model calls with validation and bounded retries.
//
// Each attempt calls the model once and runs Extract plus the ordered
// Checks; the first failure prepends its corrective instruction to the
// prompt and burns an attempt. Rate-limit errors back off exponentially
// with jitter and retry with the prompt unchanged; other errors abort the
// stage immediately. Exhausting the budget fails the stage and dumps the
// last raw response for inspection.
type Controller struct {
	client llm.Client
	diag   *Diagnostics
	logger *zerolog.Logger

	isRateLimited func(error) bool
	sleep         func(time.Duration)
}

func NewController(client llm.Client, diag *Diagnostics, logger *zerolog.Logger) *Controller {
	return &Controller{
		client:        client,
		diag:          diag,
		logger:        logger,
		isRateLimited: IsRateLimitError,
		sleep:         time.Sleep,
	}
}

// SetRateLimitClassifier overrides how provider errors are recognized as
// rate limiting. Useful when swapping model providers with different error
// shapes.
func (c *Controller) SetRateLimitClassifier(f func(error) bool) {
	c.isRateLimited = f
}

// SetSleeper overrides the delay function. Tests use it to run the retry
// loop without real waits.
func (c *Controller) SetSleeper(f func(time.Duration)) {
	c.sleep = f
}

// Run executes one stage until it validates or the attempt budget runs out.
func (c *Controller) Run(ctx context.Context, req Request) RunResult {
	prompt := req.Prompt

	var (
		used                 llm.Usage
		lastText, lastFinish string
	)

	for attempt := 0; attempt < maxModelAttempts; attempt++ {
		res, err := c.client.Complete(ctx, prompt, req.MaxOutputTokens)
		if err != nil {
			if c.isRateLimited(err) {
				delay := backoffDelay(attempt)
				c.logger.Warn().
					Str("item_id", req.ItemID).
					Str("stage", req.Stage).
					Int("attempt", attempt+1).
					Dur("backoff", delay).
					Msg("model rate limited, backing off")
				c.sleep(delay)

				continue
			}

			c.diag.WriteException(req.ItemID, req.Stage, err)

			return RunResult{
				Usage:      used,
				FailReason: fmt.Sprintf("%s_exception:%s", req.Stage, errorKind(err)),
			}
		}

		used.Add(res.Usage)
		lastText, lastFinish = res.Text, res.FinishReason

		instruction := ""

		sections, ok := req.Extract(res.Text)
		if !ok {
			instruction = req.ExtractInstruction
		} else {
			for _, check := range req.Checks {
				if instr, passed := check(sections, res.FinishReason); !passed {
					instruction = instr
					break
				}
			}
		}

		if instruction == "" {
			return RunResult{Sections: sections, Usage: used}
		}

		c.logger.Debug().
			Str("item_id", req.ItemID).
			Str("stage", req.Stage).
			Int("attempt", attempt+1).
			Str("instruction", instruction).
			Msg("model output rejected, reprompting")

		prompt = instruction + "\n\n" + prompt
		c.sleep(interAttemptDelay)
	}

	c.diag.WriteRaw(req.ItemID, req.Stage, lastFinish, lastText)

	reason := lastFinish
	if reason == "" {
		reason = "unknown"
	}

	return RunResult{
		Usage:      used,
		FailReason: fmt.Sprintf("%s_incomplete:%s", req.Stage, reason),
	}
}

// IsRateLimitError is the default classifier: it matches the error text
// against the quota and throttling vocabulary OpenAI-compatible providers
// use.
func IsRateLimitError(err error) bool {
	if err == nil {
		return false
	}

	s := strings.ToLower(err.Error())

	return strings.Contains(s, "resource_exhausted") ||
		strings.Contains(s, "429") ||
		strings.Contains(s, "quota") ||
		(strings.Contains(s, "rate") && strings.Contains(s, "limit"))
}

// backoffDelay is capped exponential growth with uniform jitter up to a
// quarter of the base, so parallel runs do not retry in lockstep.
func backoffDelay(attempt int) time.Duration {
	base := time.Duration(1<<uint(attempt)) * time.Second
	if base > maxBackoff {
		base = maxBackoff
	}

	jitter := time.Duration(rand.Int63n(int64(base)/4 + 1))

	return base + jitter
}

// errorKind names the innermost error's type, stripped of pointer and
// package qualifiers, for compact fail reason tags.
func errorKind(err error) string {
	for {
		inner := errors.Unwrap(err)
		if inner == nil {
			break
		}

		err = inner
	}

	name := strings.TrimPrefix(fmt.Sprintf("%T", err), "*")
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}

	return name
}
