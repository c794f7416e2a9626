package telegrambot

import (
	"context"
	"fmt"
	"html"
	"strings"

	db "github.com/medbrief/pubmed-digest-bot/internal/storage"
)

// Telegram caps messages at 4096 chars; stay under it with room for the
// trailing line being appended.
const maxChunkLen = 3800

func (b *Bot) sendLastWeek(ctx context.Context, chatID int64) {
	today := b.now().In(b.cfg.Location)
	endDate := today.AddDate(0, 0, -1).Format("2006-01-02")
	startDate := today.AddDate(0, 0, -7).Format("2006-01-02")

	articles, err := b.db.SummarizedBetweenDates(ctx, startDate, endDate)
	if err != nil {
		b.logger.Error().Err(err).Msg("cannot load week listing")
		b.sendWithKeyboard(chatID, "Список временно недоступен.")

		return
	}

	header := fmt.Sprintf("<b>Статьи за период %s - %s</b>", startDate, endDate)

	for _, chunk := range chunkLines(header, buildWeekLines(articles)) {
		if err = b.SendHTML(chatID, chunk); err != nil {
			b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("cannot send week listing")
			return
		}
	}
}

// buildWeekLines renders one compact line per article: day, journal and a
// linked title.
func buildWeekLines(articles []db.Article) []string {
	lines := make([]string, 0, len(articles))

	for _, a := range articles {
		date := a.PublicationDate
		if len(date) > 10 {
			date = date[:10]
		}

		title := a.TitleRU
		if title == "" {
			title = a.TitleEN
		}

		if title == "" {
			title = "(Без названия)"
		}

		journal := html.EscapeString(a.Journal)
		title = html.EscapeString(title)

		link := a.Link
		if link == "" {
			link = a.DOIURL
		}

		if link == "" {
			link = a.PubMedURL
		}

		if link != "" {
			lines = append(lines, fmt.Sprintf("%s | <i>%s</i> | <a href=\"%s\">%s</a>", date, journal, html.EscapeString(link), title))
		} else {
			lines = append(lines, fmt.Sprintf("%s | <i>%s</i> | %s", date, journal, title))
		}
	}

	return lines
}

// chunkLines splits the listing into messages under the Telegram size
// limit, repeating the header on every chunk.
func chunkLines(header string, lines []string) []string {
	if len(lines) == 0 {
		return []string{header + "\nСтатей нет."}
	}

	var chunks []string

	chunk := header + "\n"
	for _, line := range lines {
		candidate := chunk + line + "\n"
		if len(candidate) > maxChunkLen {
			chunks = append(chunks, strings.TrimSpace(chunk))
			chunk = header + "\n" + line + "\n"
		} else {
			chunk = candidate
		}
	}

	if trimmed := strings.TrimSpace(chunk); trimmed != "" {
		chunks = append(chunks, trimmed)
	}

	return chunks
}
