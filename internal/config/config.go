package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// DefaultJournals is the journal allow-list used when TOP_JOURNALS is not set.
var DefaultJournals = []string{
	"Nature",
	"Science",
	"Cell",
	"Nature Medicine",
	"The Lancet",
	"JAMA",
	"New England Journal of Medicine",
	"BMJ",
}

type Config struct {
	AppEnv      string `env:"APP_ENV" envDefault:"local"`
	PostgresDSN string `env:"POSTGRES_DSN,required"`
	BotToken    string `env:"BOT_TOKEN,required"`

	LLMAPIKey    string `env:"LLM_API_KEY"`
	LLMModel     string `env:"LLM_MODEL" envDefault:"gpt-4o-mini"`
	RateLimitRPS int    `env:"RATE_LIMIT_RPS" envDefault:"1"`

	PubMedAPIKey string        `env:"PUBMED_API_KEY"`
	Journals     []string      `env:"TOP_JOURNALS" envSeparator:","`
	DateType     string        `env:"DATE_TYPE" envDefault:"pdat"`
	DaysBack     int           `env:"DAYS_BACK" envDefault:"1"`
	SearchPage   int           `env:"ESEARCH_PAGE_SIZE" envDefault:"500"`
	FetchBatch   int           `env:"EFETCH_BATCH_SIZE" envDefault:"200"`
	RequestDelay time.Duration `env:"REQUEST_DELAY" envDefault:"120ms"`

	Timezone    string `env:"BOT_TIMEZONE" envDefault:"Europe/Paris"`
	DailyHour   int    `env:"BOT_DAILY_HOUR" envDefault:"9"`
	DailyMinute int    `env:"BOT_DAILY_MINUTE" envDefault:"0"`

	DailyItemLimit     int `env:"DAILY_ITEM_LIMIT" envDefault:"500"`
	BootstrapItemLimit int `env:"BOOTSTRAP_ITEM_LIMIT" envDefault:"1000"`

	DiagDir    string `env:"DIAG_DIR" envDefault:"out/raw_llm"`
	HealthPort int    `env:"HEALTH_PORT" envDefault:"8080"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	if len(cfg.Journals) == 0 {
		cfg.Journals = DefaultJournals
	}

	cfg.DailyHour = clamp(cfg.DailyHour, 0, 23)
	cfg.DailyMinute = clamp(cfg.DailyMinute, 0, 59)

	return cfg, nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}

	if v > hi {
		return hi
	}

	return v
}
