package telegrambot

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	db "github.com/medbrief/pubmed-digest-bot/internal/storage"
)

func TestBuildWeekLines(t *testing.T) {
	lines := buildWeekLines([]db.Article{
		{
			PublicationDate: "2026-08-29",
			TitleRU:         "Русское название",
			Journal:         "Lancet",
			Link:            "https://doi.org/10.1/x",
		},
		{
			PublicationDate: "2026-08",
			TitleEN:         "English only & <tagged>",
			Journal:         "BMJ",
			PubMedURL:       "https://pubmed.ncbi.nlm.nih.gov/2/",
		},
		{
			PublicationDate: "2026-08-27",
			Journal:         "NEJM",
		},
	})

	require.Len(t, lines, 3)
	assert.Equal(t, `2026-08-29 | <i>Lancet</i> | <a href="https://doi.org/10.1/x">Русское название</a>`, lines[0])
	assert.Equal(t, `2026-08 | <i>BMJ</i> | <a href="https://pubmed.ncbi.nlm.nih.gov/2/">English only &amp; &lt;tagged&gt;</a>`, lines[1])
	assert.Equal(t, "2026-08-27 | <i>NEJM</i> | (Без названия)", lines[2])
}

func TestChunkLines_Empty(t *testing.T) {
	chunks := chunkLines("<b>header</b>", nil)

	require.Len(t, chunks, 1)
	assert.Equal(t, "<b>header</b>\nСтатей нет.", chunks[0])
}

func TestChunkLines_SingleChunk(t *testing.T) {
	chunks := chunkLines("<b>header</b>", []string{"one", "two"})

	require.Len(t, chunks, 1)
	assert.Equal(t, "<b>header</b>\none\ntwo", chunks[0])
}

func TestChunkLines_SplitsWithRepeatedHeader(t *testing.T) {
	long := strings.Repeat("x", 1200)
	lines := []string{long, long, long, long}

	chunks := chunkLines("<b>header</b>", lines)

	require.Len(t, chunks, 2)

	for _, chunk := range chunks {
		assert.True(t, strings.HasPrefix(chunk, "<b>header</b>\n"))
		assert.LessOrEqual(t, len(chunk), maxChunkLen)
	}

	total := 0
	for _, chunk := range chunks {
		total += strings.Count(chunk, long)
	}

	assert.Equal(t, len(lines), total)
}
