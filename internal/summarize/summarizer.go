package summarize

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/medbrief/pubmed-digest-bot/internal/llm"
	db "github.com/medbrief/pubmed-digest-bot/internal/storage"
)

// Output is the persisted result of summarizing one article.
type Output struct {
	TitleRU     string
	SummaryEN   string
	SummaryRU   string
	MessageHTML string
}

// Summarizer runs the two model stages for an article: condense the
// English abstract, then translate title and summary to Russian, and
// render the final delivery message.
type Summarizer struct {
	ctrl   *Controller
	logger *zerolog.Logger
}

func New(client llm.Client, diag *Diagnostics, logger *zerolog.Logger) *Summarizer {
	return &Summarizer{
		ctrl:   NewController(client, diag, logger),
		logger: logger,
	}
}

// Controller exposes the retry controller for tuning, e.g. swapping the
// rate limit classifier for a different provider.
func (s *Summarizer) Controller() *Controller {
	return s.ctrl
}

// SummarizeArticle produces the Russian digest entry for one article. On
// failure the returned reason tags which stage broke and how; token usage
// is reported either way, covering every attempt of both stages.
func (s *Summarizer) SummarizeArticle(ctx context.Context, article db.Article) (*Output, llm.Usage, string) {
	var used llm.Usage

	if strings.TrimSpace(article.AbstractEN) == "" {
		return nil, used, "missing_abstract"
	}

	enRes := s.ctrl.Run(ctx, Request{
		ItemID:          article.PMID,
		Stage:           "en",
		Prompt:          buildSummaryPrompt(article.AbstractEN),
		MaxOutputTokens: enMaxOutputTokens,

		Extract:            extractSections("EN_SUMMARY"),
		ExtractInstruction: enFormatInstruction,
		Checks: []CheckFunc{
			checkComplete("EN_SUMMARY", enIncompleteInstruction),
			checkMinLength("EN_SUMMARY", summaryMinChars, enTooShortInstruction),
		},
	})

	used.Add(enRes.Usage)

	if enRes.FailReason != "" {
		return nil, used, enRes.FailReason
	}

	summaryEN := enRes.Sections["EN_SUMMARY"]

	ruRes := s.ctrl.Run(ctx, Request{
		ItemID:          article.PMID,
		Stage:           "ru",
		Prompt:          buildTranslatePrompt(article.TitleEN, summaryEN),
		MaxOutputTokens: ruMaxOutputTokens,

		Extract:            extractSections("RU_TITLE", "RU_SUMMARY"),
		ExtractInstruction: ruFormatInstruction,
		Checks: []CheckFunc{
			checkComplete("RU_SUMMARY", ruIncompleteInstruction),
		},
	})

	used.Add(ruRes.Usage)

	if ruRes.FailReason != "" {
		return nil, used, ruRes.FailReason
	}

	out := &Output{
		TitleRU:   ruRes.Sections["RU_TITLE"],
		SummaryEN: summaryEN,
		SummaryRU: ruRes.Sections["RU_SUMMARY"],
	}
	out.MessageHTML = RenderMessageHTML(
		out.TitleRU,
		article.Journal,
		article.PublicationDate,
		article.Authors,
		out.SummaryRU,
		article.Link,
	)

	return out, used, ""
}

// extractSections requires every listed tag to be present and non-empty.
func extractSections(keys ...string) ExtractFunc {
	return func(text string) (Sections, bool) {
		sections := ParseSections(text, keys...)

		for _, k := range keys {
			if sections[k] == "" {
				return sections, false
			}
		}

		return sections, true
	}
}

func checkComplete(key, instruction string) CheckFunc {
	return func(sections Sections, finishReason string) (string, bool) {
		if IsIncomplete(sections[key], finishReason) {
			return instruction, false
		}

		return "", true
	}
}

func checkMinLength(key string, min int, instruction string) CheckFunc {
	return func(sections Sections, _ string) (string, bool) {
		if len([]rune(strings.TrimSpace(sections[key]))) < min {
			return instruction, false
		}

		return "", true
	}
}
