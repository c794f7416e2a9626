package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "postgres://localhost/digest")
	t.Setenv("BOT_TOKEN", "123:abc")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.AppEnv)
	assert.Equal(t, "gpt-4o-mini", cfg.LLMModel)
	assert.Equal(t, "pdat", cfg.DateType)
	assert.Equal(t, 1, cfg.DaysBack)
	assert.Equal(t, 500, cfg.SearchPage)
	assert.Equal(t, 200, cfg.FetchBatch)
	assert.Equal(t, "Europe/Paris", cfg.Timezone)
	assert.Equal(t, 9, cfg.DailyHour)
	assert.Equal(t, 0, cfg.DailyMinute)
	assert.Equal(t, DefaultJournals, cfg.Journals)
}

func TestLoad_JournalsOverride(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "postgres://localhost/digest")
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("TOP_JOURNALS", "Lancet,BMJ")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"Lancet", "BMJ"}, cfg.Journals)
}

func TestLoad_ClampsScheduleValues(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "postgres://localhost/digest")
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("BOT_DAILY_HOUR", "27")
	t.Setenv("BOT_DAILY_MINUTE", "-5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 23, cfg.DailyHour)
	assert.Equal(t, 0, cfg.DailyMinute)
}

func TestLoad_MissingRequired(t *testing.T) {
	// register restores, then drop the variables entirely
	t.Setenv("POSTGRES_DSN", "x")
	t.Setenv("BOT_TOKEN", "x")
	_ = os.Unsetenv("POSTGRES_DSN")
	_ = os.Unsetenv("BOT_TOKEN")

	_, err := Load()
	assert.Error(t, err)
}
