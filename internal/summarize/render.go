package summarize

import (
	"fmt"
	"html"
	"strings"
)

const maxRenderedAuthors = 8

// RenderMessageHTML builds the Telegram message for one article: bold
// Russian title, italic journal with publication date, an author line
// capped at 8 names, the Russian summary, and a link to the original.
// Every dynamic value is HTML escaped; the markup itself is the only
// allowed HTML.
func RenderMessageHTML(titleRU, journal, date string, authors []string, summaryRU, link string) string {
	shown := authors
	if len(shown) > maxRenderedAuthors {
		shown = shown[:maxRenderedAuthors]
	}

	authorsLine := strings.Join(shown, ", ")
	if extra := len(authors) - maxRenderedAuthors; extra > 0 {
		authorsLine += fmt.Sprintf(" (+%d)", extra)
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("<b>%s</b>\n", html.EscapeString(titleRU)))
	b.WriteString(fmt.Sprintf("<i>%s</i> - %s\n", html.EscapeString(journal), html.EscapeString(date)))
	b.WriteString(fmt.Sprintf("Авторы: %s\n", html.EscapeString(authorsLine)))
	b.WriteString("\n<b>Краткое резюме (по аннотации):</b>\n")
	b.WriteString(html.EscapeString(summaryRU))
	b.WriteString(fmt.Sprintf("\n\n<a href=\"%s\">Оригинальная статья</a>", html.EscapeString(link)))

	return b.String()
}
