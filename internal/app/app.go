// Package app wires configuration, storage and the domain services into
// runnable modes.
package app

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/medbrief/pubmed-digest-bot/internal/config"
	"github.com/medbrief/pubmed-digest-bot/internal/llm"
	"github.com/medbrief/pubmed-digest-bot/internal/observability"
	"github.com/medbrief/pubmed-digest-bot/internal/pipeline"
	"github.com/medbrief/pubmed-digest-bot/internal/pubmed"
	"github.com/medbrief/pubmed-digest-bot/internal/scheduler"
	db "github.com/medbrief/pubmed-digest-bot/internal/storage"
	"github.com/medbrief/pubmed-digest-bot/internal/summarize"
	"github.com/medbrief/pubmed-digest-bot/internal/telegrambot"
)

// digestInterval is how often standalone digest mode re-runs the pipeline.
const digestInterval = time.Hour

type App struct {
	cfg    *config.Config
	db     *db.DB
	logger *zerolog.Logger
	loc    *time.Location
}

func New(cfg *config.Config, database *db.DB, logger *zerolog.Logger) *App {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Warn().Err(err).Str("timezone", cfg.Timezone).Msg("unknown timezone, falling back to UTC")
		loc = time.UTC
	}

	return &App{
		cfg:    cfg,
		db:     database,
		logger: logger,
		loc:    loc,
	}
}

func (a *App) StartHealthServer(ctx context.Context) error {
	return observability.NewServer(a.db, a.cfg.HealthPort, a.logger).Start(ctx)
}

// RunBot starts the Telegram bot with the digest scheduler attached.
func (a *App) RunBot(ctx context.Context) error {
	bot, err := telegrambot.New(a.cfg.BotToken, a.db, telegrambot.Config{
		Timezone: a.cfg.Timezone,
		Location: a.loc,
		Hour:     a.cfg.DailyHour,
		Minute:   a.cfg.DailyMinute,
	}, a.logger)
	if err != nil {
		return err
	}

	sched := scheduler.New(scheduler.Config{
		Location:       a.loc,
		Hour:           a.cfg.DailyHour,
		Minute:         a.cfg.DailyMinute,
		DailyLimit:     a.cfg.DailyItemLimit,
		BootstrapLimit: a.cfg.BootstrapItemLimit,
	}, a.db, a.newPipeline(), bot, a.logger)

	bot.SetScheduler(sched)

	return bot.Run(ctx)
}

// RunDigest runs the fetch-and-summarize pipeline without the bot: once,
// or periodically when once is false.
func (a *App) RunDigest(ctx context.Context, once bool) error {
	pipe := a.newPipeline()

	if err := a.runPipelineOnce(ctx, pipe); err != nil {
		return err
	}

	if once {
		return nil
	}

	ticker := time.NewTicker(digestInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := a.runPipelineOnce(ctx, pipe); err != nil {
				a.logger.Error().Err(err).Msg("pipeline run failed")
			}
		}
	}
}

func (a *App) runPipelineOnce(ctx context.Context, pipe *pipeline.Pipeline) error {
	stats, err := pipe.Run(ctx, a.cfg.DaysBack, a.cfg.DailyItemLimit)
	if err != nil {
		return err
	}

	statsJSON, _ := json.Marshal(stats)
	a.logger.Info().RawJSON("stats", statsJSON).Msg("pipeline stats")

	return nil
}

func (a *App) newPipeline() *pipeline.Pipeline {
	fetcher := pubmed.New(pubmed.Config{
		APIKey:       a.cfg.PubMedAPIKey,
		Journals:     a.cfg.Journals,
		DateType:     a.cfg.DateType,
		PageSize:     a.cfg.SearchPage,
		BatchSize:    a.cfg.FetchBatch,
		RequestDelay: a.cfg.RequestDelay,
		Location:     a.loc,
	}, a.logger)

	var summarizer pipeline.Summarizer

	if a.cfg.LLMAPIKey != "" {
		client := llm.NewOpenAI(a.cfg.LLMAPIKey, a.cfg.LLMModel, a.cfg.RateLimitRPS, a.logger)
		diag := summarize.NewDiagnostics(a.cfg.DiagDir, a.logger)
		summarizer = summarize.New(client, diag, a.logger)
	} else {
		a.logger.Warn().Msg("LLM_API_KEY not set, articles will not be summarized")
	}

	return pipeline.New(fetcher, a.db, summarizer, a.logger)
}
