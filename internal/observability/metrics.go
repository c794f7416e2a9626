// Package observability exposes Prometheus metrics and the health
// endpoints for the bot process.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ArticlesFetched counts new articles stored per pipeline run.
	ArticlesFetched = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "digest",
		Name:      "articles_fetched_total",
		Help:      "New articles fetched from PubMed and stored.",
	})

	// ArticlesSummarized counts articles that passed both model stages.
	ArticlesSummarized = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "digest",
		Name:      "articles_summarized_total",
		Help:      "Articles successfully summarized and translated.",
	})

	// ArticlesFailed counts summarization failures by reason tag.
	ArticlesFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "digest",
		Name:      "articles_failed_total",
		Help:      "Articles that failed summarization, by reason.",
	}, []string{"reason"})

	// ModelTokens counts tokens spent on model calls by direction.
	ModelTokens = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "digest",
		Name:      "model_tokens_total",
		Help:      "Model tokens consumed, by direction (input or output).",
	}, []string{"direction"})

	// DigestsDelivered counts per subscriber digest deliveries.
	DigestsDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "digest",
		Name:      "digests_delivered_total",
		Help:      "Daily digests delivered to subscribers.",
	})

	// DeliveryErrors counts failed sends to subscribers.
	DeliveryErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "digest",
		Name:      "delivery_errors_total",
		Help:      "Telegram send failures during digest delivery.",
	})

	// PipelineRuns counts pipeline executions by outcome.
	PipelineRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "digest",
		Name:      "pipeline_runs_total",
		Help:      "Pipeline runs, by outcome (ok or error).",
	}, []string{"outcome"})
)
