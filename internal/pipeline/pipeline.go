// Package pipeline runs one fetch-and-summarize cycle: pull recent
// articles from PubMed, store the new ones, then summarize each pending
// article through the two model stages and persist the results.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/medbrief/pubmed-digest-bot/internal/llm"
	"github.com/medbrief/pubmed-digest-bot/internal/observability"
	"github.com/medbrief/pubmed-digest-bot/internal/pubmed"
	db "github.com/medbrief/pubmed-digest-bot/internal/storage"
	"github.com/medbrief/pubmed-digest-bot/internal/summarize"
)

// Stats summarizes one pipeline run.
type Stats struct {
	FetchedTotal    int            `json:"fetched_total"`
	Fetched         int            `json:"fetched"`
	SkippedExisting int            `json:"skipped_existing"`
	Pending         int            `json:"pending"`
	Summarized      int            `json:"summarized"`
	Failed          int            `json:"failed"`
	Tokens          llm.Usage      `json:"tokens"`
	FailReasons     map[string]int `json:"fail_reasons"`
	ElapsedSec      float64        `json:"elapsed_sec"`
}

// Fetcher pulls recent articles from PubMed.
type Fetcher interface {
	FetchRecent(ctx context.Context, daysBack int) ([]pubmed.Article, error)
}

// Store is the persistence surface the pipeline needs.
type Store interface {
	ExistingPMIDs(ctx context.Context, pmids []string) (map[string]bool, error)
	UpsertRawArticles(ctx context.Context, articles []db.Article) (int, error)
	UnsummarizedForPMIDs(ctx context.Context, pmids []string, limit int) ([]db.Article, error)
	MarkSummarized(ctx context.Context, pmid, titleRU, summaryEN, summaryRU, messageHTML string) error
}

// Summarizer produces the digest entry for one article.
type Summarizer interface {
	SummarizeArticle(ctx context.Context, article db.Article) (*summarize.Output, llm.Usage, string)
}

type Pipeline struct {
	fetcher    Fetcher
	store      Store
	summarizer Summarizer
	logger     *zerolog.Logger
}

// New wires a pipeline. A nil summarizer is allowed and means no model is
// configured; pending articles are then counted as failed without calls.
func New(fetcher Fetcher, store Store, summarizer Summarizer, logger *zerolog.Logger) *Pipeline {
	return &Pipeline{
		fetcher:    fetcher,
		store:      store,
		summarizer: summarizer,
		logger:     logger,
	}
}

// Run executes one cycle. A fetch failure degrades to an empty fetch so
// previously stored pending articles still get summarized; storage errors
// abort the run.
func (p *Pipeline) Run(ctx context.Context, daysBack, limit int) (*Stats, error) {
	stats := &Stats{FailReasons: map[string]int{}}

	newPMIDs, err := p.fetchAndStore(ctx, daysBack, stats)
	if err != nil {
		observability.PipelineRuns.WithLabelValues("error").Inc()
		return nil, err
	}

	pending, err := p.store.UnsummarizedForPMIDs(ctx, newPMIDs, limit)
	if err != nil {
		observability.PipelineRuns.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("load pending articles: %w", err)
	}

	stats.Pending = len(pending)

	if len(pending) == 0 {
		observability.PipelineRuns.WithLabelValues("ok").Inc()
		return stats, nil
	}

	if p.summarizer == nil {
		p.logger.Warn().Int("pending", len(pending)).Msg("model API key missing, cannot summarize pending articles")

		stats.Failed = len(pending)
		stats.FailReasons["missing_llm_api_key"] = len(pending)

		observability.PipelineRuns.WithLabelValues("ok").Inc()

		return stats, nil
	}

	startedAt := time.Now()

	for i, article := range pending {
		if err = ctx.Err(); err != nil {
			return nil, err
		}

		p.logger.Info().
			Int("index", i+1).
			Int("pending", len(pending)).
			Str("pmid", article.PMID).
			Msg("summarizing article")

		out, used, reason := p.summarizer.SummarizeArticle(ctx, article)
		stats.Tokens.Add(used)

		observability.ModelTokens.WithLabelValues("input").Add(float64(used.Input))
		observability.ModelTokens.WithLabelValues("output").Add(float64(used.Output))

		if out == nil {
			if reason == "" {
				reason = "unknown"
			}

			stats.Failed++
			stats.FailReasons[reason]++
			observability.ArticlesFailed.WithLabelValues(reason).Inc()

			p.logger.Warn().
				Str("pmid", article.PMID).
				Str("reason", reason).
				Msg("article summarization failed")

			continue
		}

		err = p.store.MarkSummarized(ctx, article.PMID, out.TitleRU, out.SummaryEN, out.SummaryRU, out.MessageHTML)
		if err != nil {
			observability.PipelineRuns.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("persist summary: %w", err)
		}

		stats.Summarized++
		observability.ArticlesSummarized.Inc()
	}

	stats.ElapsedSec = time.Since(startedAt).Seconds()

	p.logger.Info().
		Int("summarized", stats.Summarized).
		Int("failed", stats.Failed).
		Int("tokens_total", stats.Tokens.Total).
		Float64("elapsed_sec", stats.ElapsedSec).
		Msg("pipeline run finished")

	observability.PipelineRuns.WithLabelValues("ok").Inc()

	return stats, nil
}

// fetchAndStore pulls recent articles and stores the ones not seen before,
// returning their PMIDs. Fetch errors are logged and swallowed; the rest
// of the run proceeds with whatever is already stored.
func (p *Pipeline) fetchAndStore(ctx context.Context, daysBack int, stats *Stats) ([]string, error) {
	fetched, err := p.fetcher.FetchRecent(ctx, daysBack)
	if err != nil {
		p.logger.Warn().Err(err).Msg("pubmed fetch failed, summarizing already stored articles only")
		return nil, nil
	}

	stats.FetchedTotal = len(fetched)

	pmids := make([]string, 0, len(fetched))
	for _, a := range fetched {
		if a.PMID != "" {
			pmids = append(pmids, a.PMID)
		}
	}

	existing, err := p.store.ExistingPMIDs(ctx, pmids)
	if err != nil {
		return nil, fmt.Errorf("check existing pmids: %w", err)
	}

	var (
		fresh    []db.Article
		newPMIDs []string
	)

	for _, a := range fetched {
		if a.PMID == "" || existing[a.PMID] {
			continue
		}

		fresh = append(fresh, articleFromPubmed(a))
		newPMIDs = append(newPMIDs, a.PMID)
	}

	stats.SkippedExisting = stats.FetchedTotal - len(fresh)

	stored, err := p.store.UpsertRawArticles(ctx, fresh)
	if err != nil {
		return nil, fmt.Errorf("store fetched articles: %w", err)
	}

	stats.Fetched = stored
	observability.ArticlesFetched.Add(float64(stored))

	return newPMIDs, nil
}

func articleFromPubmed(a pubmed.Article) db.Article {
	link := a.DOIURL
	if link == "" {
		link = a.PubMedURL
	}

	return db.Article{
		PMID:            a.PMID,
		TitleEN:         a.TitleEN,
		Journal:         a.Journal,
		PublicationDate: a.PublicationDate,
		AbstractEN:      a.AbstractEN,
		Authors:         a.Authors,
		DOI:             a.DOI,
		Link:            link,
		PubMedURL:       a.PubMedURL,
		DOIURL:          a.DOIURL,
	}
}
