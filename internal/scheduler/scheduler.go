// Package scheduler decides when the daily fetch and delivery run and
// keeps both idempotent: the fetch is recorded per target date and the
// delivery per subscriber and date, so restarts never duplicate work.
package scheduler

import (
	"context"
	"fmt"
	"html"
	"time"

	"github.com/rs/zerolog"

	"github.com/medbrief/pubmed-digest-bot/internal/observability"
	"github.com/medbrief/pubmed-digest-bot/internal/pipeline"
	db "github.com/medbrief/pubmed-digest-bot/internal/storage"
)

const (
	bootstrapStateKey = "bootstrap_last7_done"

	fetchModeDaily     = "daily1"
	fetchModeBootstrap = "bootstrap7"

	bootstrapDaysBack = 7

	interSendDelay = 150 * time.Millisecond
)

// PipelineRunner runs one fetch-and-summarize cycle.
type PipelineRunner interface {
	Run(ctx context.Context, daysBack, limit int) (*pipeline.Stats, error)
}

// Store is the persistence surface the scheduler needs.
type Store interface {
	HasFetchRun(ctx context.Context, targetDate string) (bool, error)
	MarkFetchRun(ctx context.Context, targetDate, mode string, fetchedCount int) error
	GetState(ctx context.Context, key string) (string, error)
	SetState(ctx context.Context, key, value string) error
	ActiveSubscribers(ctx context.Context) ([]int64, error)
	WasDelivered(ctx context.Context, chatID int64, targetDate string) (bool, error)
	MarkDelivery(ctx context.Context, chatID int64, targetDate string, articleCount int) error
	SummarizedByDate(ctx context.Context, targetDate string) ([]db.Article, error)
}

// Sender delivers one HTML message to a chat.
type Sender interface {
	SendHTML(chatID int64, text string) error
}

// Config fixes the daily send moment and the pipeline batch limits.
type Config struct {
	Location       *time.Location
	Hour           int
	Minute         int
	DailyLimit     int
	BootstrapLimit int
}

type Scheduler struct {
	cfg    Config
	store  Store
	pipe   PipelineRunner
	sender Sender
	logger *zerolog.Logger

	now   func() time.Time
	sleep func(time.Duration)
}

func New(cfg Config, store Store, pipe PipelineRunner, sender Sender, logger *zerolog.Logger) *Scheduler {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}

	return &Scheduler{
		cfg:    cfg,
		store:  store,
		pipe:   pipe,
		sender: sender,
		logger: logger,
		now:    time.Now,
		sleep:  time.Sleep,
	}
}

// Bootstrap runs the one-time initial backfill: fetch and summarize the
// last week, then mark those dates as fetched so the daily job does not
// redo them. Guarded by a persisted state flag.
func (s *Scheduler) Bootstrap(ctx context.Context) error {
	done, err := s.store.GetState(ctx, bootstrapStateKey)
	if err != nil {
		return fmt.Errorf("read bootstrap state: %w", err)
	}

	if done == "1" {
		return nil
	}

	s.logger.Info().Msg("bootstrap: fetching and summarizing the last 7 days")

	stats, err := s.pipe.Run(ctx, bootstrapDaysBack, s.cfg.BootstrapLimit)
	if err != nil {
		return fmt.Errorf("bootstrap pipeline: %w", err)
	}

	s.logger.Info().
		Int("fetched", stats.Fetched).
		Int("summarized", stats.Summarized).
		Int("failed", stats.Failed).
		Msg("bootstrap pipeline finished")

	today := s.today()
	for i := 1; i <= bootstrapDaysBack; i++ {
		date := today.AddDate(0, 0, -i).Format("2006-01-02")
		if err = s.store.MarkFetchRun(ctx, date, fetchModeBootstrap, stats.Fetched); err != nil {
			return fmt.Errorf("mark bootstrap fetch run: %w", err)
		}
	}

	if err = s.store.SetState(ctx, bootstrapStateKey, "1"); err != nil {
		return fmt.Errorf("persist bootstrap state: %w", err)
	}

	return nil
}

// Tick evaluates the schedule once. Before the configured send time it does
// nothing; after it, it runs the daily fetch and then delivery, each
// skipping work already recorded for the target date.
func (s *Scheduler) Tick(ctx context.Context) error {
	now := s.now().In(s.cfg.Location)
	if now.Hour()*60+now.Minute() < s.cfg.Hour*60+s.cfg.Minute {
		return nil
	}

	target := s.targetDate()

	if err := s.runDailyFetch(ctx, target); err != nil {
		return err
	}

	return s.runDailySend(ctx, target)
}

func (s *Scheduler) runDailyFetch(ctx context.Context, target string) error {
	ran, err := s.store.HasFetchRun(ctx, target)
	if err != nil {
		return fmt.Errorf("check fetch run: %w", err)
	}

	if ran {
		return nil
	}

	s.logger.Info().Str("target_date", target).Msg("daily fetch starting")

	stats, err := s.pipe.Run(ctx, 1, s.cfg.DailyLimit)
	if err != nil {
		return fmt.Errorf("daily pipeline: %w", err)
	}

	if err = s.store.MarkFetchRun(ctx, target, fetchModeDaily, stats.Fetched); err != nil {
		return fmt.Errorf("mark fetch run: %w", err)
	}

	s.logger.Info().
		Str("target_date", target).
		Int("fetched", stats.Fetched).
		Int("summarized", stats.Summarized).
		Int("failed", stats.Failed).
		Msg("daily fetch finished")

	return nil
}

func (s *Scheduler) runDailySend(ctx context.Context, target string) error {
	chatIDs, err := s.store.ActiveSubscribers(ctx)
	if err != nil {
		return fmt.Errorf("load subscribers: %w", err)
	}

	for _, chatID := range chatIDs {
		delivered, err := s.store.WasDelivered(ctx, chatID, target)
		if err != nil {
			return fmt.Errorf("check delivery: %w", err)
		}

		if delivered {
			continue
		}

		sent, err := s.SendDailyDigest(ctx, chatID, target)
		if err != nil {
			observability.DeliveryErrors.Inc()
			s.logger.Error().Err(err).Int64("chat_id", chatID).Msg("digest delivery failed")

			continue
		}

		if err = s.store.MarkDelivery(ctx, chatID, target, sent); err != nil {
			return fmt.Errorf("mark delivery: %w", err)
		}

		observability.DigestsDelivered.Inc()
		s.logger.Info().
			Int64("chat_id", chatID).
			Str("target_date", target).
			Int("articles", sent).
			Msg("digest delivered")
	}

	return nil
}

// SendDailyDigest pushes the digest for one date to one chat: a header with
// the article count, then one message per article. Returns how many article
// messages went out.
func (s *Scheduler) SendDailyDigest(ctx context.Context, chatID int64, target string) (int, error) {
	articles, err := s.store.SummarizedByDate(ctx, target)
	if err != nil {
		return 0, fmt.Errorf("load digest articles: %w", err)
	}

	if len(articles) == 0 {
		if err = s.sender.SendHTML(chatID, fmt.Sprintf("За %s нет обработанных статей.", target)); err != nil {
			return 0, fmt.Errorf("send empty digest notice: %w", err)
		}

		return 0, nil
	}

	header := fmt.Sprintf("<b>Ежедневная подборка за %s</b>\nКоличество: %d", target, len(articles))
	if err = s.sender.SendHTML(chatID, header); err != nil {
		return 0, fmt.Errorf("send digest header: %w", err)
	}

	sent := 0

	for _, a := range articles {
		if err = ctx.Err(); err != nil {
			return sent, err
		}

		if err = s.sender.SendHTML(chatID, articleMessage(a)); err != nil {
			return sent, fmt.Errorf("send article %s: %w", a.PMID, err)
		}

		sent++
		s.sleep(interSendDelay)
	}

	return sent, nil
}

// targetDate is yesterday in the configured timezone, ISO formatted.
func (s *Scheduler) targetDate() string {
	return s.today().AddDate(0, 0, -1).Format("2006-01-02")
}

func (s *Scheduler) today() time.Time {
	now := s.now().In(s.cfg.Location)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.cfg.Location)
}

// articleMessage prefers the prerendered message and falls back to a
// minimal rendering for rows summarized before rendering existed.
func articleMessage(a db.Article) string {
	if a.MessageHTML != "" {
		return a.MessageHTML
	}

	title := a.TitleRU
	if title == "" {
		title = a.TitleEN
	}

	if title == "" {
		title = "Без названия"
	}

	summary := a.SummaryRU
	if summary == "" {
		summary = a.SummaryEN
	}

	msg := fmt.Sprintf("<b>%s</b>\n\n%s", html.EscapeString(title), html.EscapeString(summary))

	link := a.Link
	if link == "" {
		link = a.DOIURL
	}

	if link == "" {
		link = a.PubMedURL
	}

	if link != "" {
		msg += fmt.Sprintf("\n\n<a href=\"%s\">Открыть статью</a>", html.EscapeString(link))
	}

	return msg
}
