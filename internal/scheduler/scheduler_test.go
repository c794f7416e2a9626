package scheduler

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medbrief/pubmed-digest-bot/internal/pipeline"
	db "github.com/medbrief/pubmed-digest-bot/internal/storage"
)

type fakePipe struct {
	runs  []int // daysBack per call
	stats pipeline.Stats
	err   error
}

func (p *fakePipe) Run(_ context.Context, daysBack, _ int) (*pipeline.Stats, error) {
	p.runs = append(p.runs, daysBack)

	if p.err != nil {
		return nil, p.err
	}

	stats := p.stats

	return &stats, nil
}

type fakeSchedStore struct {
	fetchRuns   map[string]string // date -> mode
	state       map[string]string
	subscribers []int64
	delivered   map[string]int // "chatID|date" -> count
	articles    map[string][]db.Article
}

func newFakeSchedStore() *fakeSchedStore {
	return &fakeSchedStore{
		fetchRuns: map[string]string{},
		state:     map[string]string{},
		delivered: map[string]int{},
		articles:  map[string][]db.Article{},
	}
}

func (s *fakeSchedStore) HasFetchRun(_ context.Context, date string) (bool, error) {
	_, ok := s.fetchRuns[date]
	return ok, nil
}

func (s *fakeSchedStore) MarkFetchRun(_ context.Context, date, mode string, _ int) error {
	s.fetchRuns[date] = mode
	return nil
}

func (s *fakeSchedStore) GetState(_ context.Context, key string) (string, error) {
	return s.state[key], nil
}

func (s *fakeSchedStore) SetState(_ context.Context, key, value string) error {
	s.state[key] = value
	return nil
}

func (s *fakeSchedStore) ActiveSubscribers(context.Context) ([]int64, error) {
	return s.subscribers, nil
}

func (s *fakeSchedStore) WasDelivered(_ context.Context, chatID int64, date string) (bool, error) {
	_, ok := s.delivered[deliveryKey(chatID, date)]
	return ok, nil
}

func (s *fakeSchedStore) MarkDelivery(_ context.Context, chatID int64, date string, count int) error {
	s.delivered[deliveryKey(chatID, date)] = count
	return nil
}

func (s *fakeSchedStore) SummarizedByDate(_ context.Context, date string) ([]db.Article, error) {
	return s.articles[date], nil
}

func deliveryKey(chatID int64, date string) string {
	return fmt.Sprintf("%d|%s", chatID, date)
}

type fakeSender struct {
	messages map[int64][]string
	failFor  int64
}

func newFakeSender() *fakeSender {
	return &fakeSender{messages: map[int64][]string{}}
}

func (f *fakeSender) SendHTML(chatID int64, text string) error {
	if f.failFor != 0 && chatID == f.failFor {
		return errors.New("blocked by user")
	}

	f.messages[chatID] = append(f.messages[chatID], text)

	return nil
}

func newTestScheduler(store Store, pipe PipelineRunner, sender Sender, at time.Time) *Scheduler {
	logger := zerolog.Nop()

	s := New(Config{
		Location:       time.UTC,
		Hour:           9,
		Minute:         0,
		DailyLimit:     500,
		BootstrapLimit: 1000,
	}, store, pipe, sender, &logger)

	s.now = func() time.Time { return at }
	s.sleep = func(time.Duration) {}

	return s
}

func TestTick_BeforeSendTimeDoesNothing(t *testing.T) {
	store := newFakeSchedStore()
	pipe := &fakePipe{}

	s := newTestScheduler(store, pipe, newFakeSender(), time.Date(2026, 8, 31, 8, 59, 0, 0, time.UTC))

	require.NoError(t, s.Tick(context.Background()))

	assert.Empty(t, pipe.runs)
	assert.Empty(t, store.fetchRuns)
}

func TestTick_RunsFetchAndDelivery(t *testing.T) {
	store := newFakeSchedStore()
	store.subscribers = []int64{10, 20}
	store.articles["2026-08-30"] = []db.Article{
		{PMID: "1", MessageHTML: "<b>Первая</b>"},
		{PMID: "2", MessageHTML: "<b>Вторая</b>"},
	}

	pipe := &fakePipe{stats: pipeline.Stats{Fetched: 5, Summarized: 2}}
	sender := newFakeSender()

	s := newTestScheduler(store, pipe, sender, time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC))

	require.NoError(t, s.Tick(context.Background()))

	assert.Equal(t, []int{1}, pipe.runs)
	assert.Equal(t, "daily1", store.fetchRuns["2026-08-30"])

	for _, chatID := range []int64{10, 20} {
		msgs := sender.messages[chatID]
		require.Len(t, msgs, 3)
		assert.Equal(t, "<b>Ежедневная подборка за 2026-08-30</b>\nКоличество: 2", msgs[0])
		assert.Equal(t, "<b>Первая</b>", msgs[1])
		assert.Equal(t, "<b>Вторая</b>", msgs[2])

		assert.Equal(t, 2, store.delivered[deliveryKey(chatID, "2026-08-30")])
	}
}

func TestTick_SecondTickIsIdempotent(t *testing.T) {
	store := newFakeSchedStore()
	store.subscribers = []int64{10}
	store.articles["2026-08-30"] = []db.Article{{PMID: "1", MessageHTML: "m"}}

	pipe := &fakePipe{}
	sender := newFakeSender()

	s := newTestScheduler(store, pipe, sender, time.Date(2026, 8, 31, 9, 30, 0, 0, time.UTC))

	require.NoError(t, s.Tick(context.Background()))
	require.NoError(t, s.Tick(context.Background()))

	assert.Len(t, pipe.runs, 1)
	assert.Len(t, sender.messages[10], 2) // header + one article, once
}

func TestTick_NewSubscriberGetsDigestLater(t *testing.T) {
	store := newFakeSchedStore()
	store.subscribers = []int64{10}
	store.articles["2026-08-30"] = []db.Article{{PMID: "1", MessageHTML: "m"}}

	pipe := &fakePipe{}
	sender := newFakeSender()

	s := newTestScheduler(store, pipe, sender, time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC))
	require.NoError(t, s.Tick(context.Background()))

	store.subscribers = append(store.subscribers, 20)
	require.NoError(t, s.Tick(context.Background()))

	assert.Len(t, sender.messages[10], 2)
	assert.Len(t, sender.messages[20], 2)
}

func TestTick_EmptyDigestStillMarksDelivery(t *testing.T) {
	store := newFakeSchedStore()
	store.subscribers = []int64{10}

	sender := newFakeSender()

	s := newTestScheduler(store, &fakePipe{}, sender, time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC))

	require.NoError(t, s.Tick(context.Background()))

	msgs := sender.messages[10]
	require.Len(t, msgs, 1)
	assert.Equal(t, "За 2026-08-30 нет обработанных статей.", msgs[0])

	count, marked := store.delivered[deliveryKey(10, "2026-08-30")]
	assert.True(t, marked)
	assert.Equal(t, 0, count)
}

func TestTick_SendFailureSkipsDeliveryMarker(t *testing.T) {
	store := newFakeSchedStore()
	store.subscribers = []int64{10, 20}
	store.articles["2026-08-30"] = []db.Article{{PMID: "1", MessageHTML: "m"}}

	sender := newFakeSender()
	sender.failFor = 10

	s := newTestScheduler(store, &fakePipe{}, sender, time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC))

	require.NoError(t, s.Tick(context.Background()))

	// chat 10 failed and stays unmarked for a later retry, chat 20 delivered
	_, marked10 := store.delivered[deliveryKey(10, "2026-08-30")]
	assert.False(t, marked10)
	assert.Equal(t, 1, store.delivered[deliveryKey(20, "2026-08-30")])
}

func TestTick_PipelineErrorPropagates(t *testing.T) {
	store := newFakeSchedStore()
	pipe := &fakePipe{err: errors.New("db down")}

	s := newTestScheduler(store, pipe, newFakeSender(), time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC))

	err := s.Tick(context.Background())
	assert.ErrorContains(t, err, "db down")
	assert.Empty(t, store.fetchRuns)
}

func TestBootstrap_RunsOnceAndBackfillsMarkers(t *testing.T) {
	store := newFakeSchedStore()
	pipe := &fakePipe{stats: pipeline.Stats{Fetched: 42}}

	s := newTestScheduler(store, pipe, newFakeSender(), time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC))

	require.NoError(t, s.Bootstrap(context.Background()))

	assert.Equal(t, []int{7}, pipe.runs)
	assert.Equal(t, "1", store.state[bootstrapStateKey])

	require.Len(t, store.fetchRuns, 7)
	for i := 1; i <= 7; i++ {
		date := time.Date(2026, 8, 31-i, 0, 0, 0, 0, time.UTC).Format("2006-01-02")
		assert.Equal(t, "bootstrap7", store.fetchRuns[date])
	}

	// second call is a no-op
	require.NoError(t, s.Bootstrap(context.Background()))
	assert.Len(t, pipe.runs, 1)
}

func TestArticleMessage_FallbackRendering(t *testing.T) {
	msg := articleMessage(db.Article{
		TitleEN:   "Plain title",
		SummaryEN: "Plain summary",
		PubMedURL: "https://pubmed.ncbi.nlm.nih.gov/5/",
	})

	assert.Equal(t,
		"<b>Plain title</b>\n\nPlain summary\n\n<a href=\"https://pubmed.ncbi.nlm.nih.gov/5/\">Открыть статью</a>",
		msg)
}
