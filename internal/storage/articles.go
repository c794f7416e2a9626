package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// Article is one literature record tracked through fetch, summarize and
// deliver. The RU fields stay empty until the summarizer completes both
// stages; they are then written together with SummarizedAt in one update.
type Article struct {
	PMID            string
	Journal         string
	PublicationDate string // full or partial: "2026-02-17", "2026-02" or "2026"
	TitleEN         string
	AbstractEN      string
	SummaryEN       string
	Authors         []string
	DOI             string
	Link            string
	PubMedURL       string
	DOIURL          string
	FetchedAt       *time.Time
	TitleRU         string
	SummaryRU       string
	MessageHTML     string
	SummarizedAt    *time.Time
	SentAt          *time.Time
}

// ArticleCounts aggregates backlog numbers for the status command.
type ArticleCounts struct {
	Total      int
	Summarized int
	Pending    int
}

const articleColumns = `pmid, journal, publication_date, title_en, abstract_en, summary_en,
	authors, doi, link, pubmed_url, doi_url, fetched_at,
	title_ru, summary_ru, tg_message_html, summarized_at, sent_at`

// UpsertRawArticles inserts or refreshes fetched articles. Only the English
// and raw-metadata columns are written; summarization columns are never
// touched, so re-ingesting an already-summarized article keeps its RU fields.
// Returns the number of rows written.
func (db *DB) UpsertRawArticles(ctx context.Context, articles []Article) (int, error) {
	if len(articles) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	written := 0

	for _, a := range articles {
		if a.PMID == "" {
			continue
		}

		authorsJSON, err := json.Marshal(a.Authors)
		if err != nil {
			return written, fmt.Errorf("marshal authors for %s: %w", a.PMID, err)
		}

		link := a.DOIURL
		if link == "" {
			link = a.PubMedURL
		}

		if _, err := db.Pool.Exec(ctx, `
			INSERT INTO articles (
				pmid, journal, publication_date, title_en, abstract_en, authors,
				doi, link, pubmed_url, doi_url, fetched_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			ON CONFLICT (pmid) DO UPDATE SET
				journal = excluded.journal,
				publication_date = excluded.publication_date,
				title_en = excluded.title_en,
				abstract_en = excluded.abstract_en,
				authors = excluded.authors,
				doi = excluded.doi,
				link = excluded.link,
				pubmed_url = excluded.pubmed_url,
				doi_url = excluded.doi_url,
				fetched_at = excluded.fetched_at
		`,
			a.PMID,
			toText(a.Journal),
			toText(a.PublicationDate),
			toText(SanitizeUTF8(a.TitleEN)),
			toText(SanitizeUTF8(a.AbstractEN)),
			authorsJSON,
			toText(a.DOI),
			toText(link),
			toText(a.PubMedURL),
			toText(a.DOIURL),
			now,
		); err != nil {
			return written, fmt.Errorf("upsert article %s: %w", a.PMID, err)
		}

		written++
	}

	return written, nil
}

// ExistingPMIDs returns the subset of the given identifiers already present
// in the store.
func (db *DB) ExistingPMIDs(ctx context.Context, pmids []string) (map[string]bool, error) {
	existing := make(map[string]bool)
	if len(pmids) == 0 {
		return existing, nil
	}

	rows, err := db.Pool.Query(ctx, `SELECT pmid FROM articles WHERE pmid = ANY($1)`, pmids)
	if err != nil {
		return nil, fmt.Errorf("query existing pmids: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var pmid string
		if err := rows.Scan(&pmid); err != nil {
			return nil, fmt.Errorf("scan pmid: %w", err)
		}

		existing[pmid] = true
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate existing pmids: %w", err)
	}

	return existing, nil
}

// UnsummarizedForPMIDs returns pending articles restricted to the given
// identifiers: summarized_at unset and a non-empty abstract, newest fetch
// first, capped at limit.
func (db *DB) UnsummarizedForPMIDs(ctx context.Context, pmids []string, limit int) ([]Article, error) {
	if len(pmids) == 0 {
		return nil, nil
	}

	rows, err := db.Pool.Query(ctx, `
		SELECT `+articleColumns+`
		FROM articles
		WHERE summarized_at IS NULL
		  AND abstract_en IS NOT NULL
		  AND LENGTH(TRIM(abstract_en)) > 0
		  AND pmid = ANY($1)
		ORDER BY fetched_at DESC
		LIMIT $2
	`, pmids, limit)
	if err != nil {
		return nil, fmt.Errorf("query unsummarized: %w", err)
	}
	defer rows.Close()

	return scanArticles(rows)
}

// MarkSummarized writes all summarization fields and the summarization
// timestamp in a single atomic update.
func (db *DB) MarkSummarized(ctx context.Context, pmid, titleRU, summaryEN, summaryRU, messageHTML string) error {
	if _, err := db.Pool.Exec(ctx, `
		UPDATE articles
		SET title_ru = $1,
		    summary_en = $2,
		    summary_ru = $3,
		    tg_message_html = $4,
		    summarized_at = $5
		WHERE pmid = $6
	`,
		toText(SanitizeUTF8(titleRU)),
		toText(SanitizeUTF8(summaryEN)),
		toText(SanitizeUTF8(summaryRU)),
		toText(SanitizeUTF8(messageHTML)),
		time.Now().UTC(),
		pmid,
	); err != nil {
		return fmt.Errorf("mark summarized %s: %w", pmid, err)
	}

	return nil
}

// SummarizedByDate returns summarized articles whose publication date starts
// with the given YYYY-MM-DD day, ordered for digest rendering.
func (db *DB) SummarizedByDate(ctx context.Context, targetDate string) ([]Article, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT `+articleColumns+`
		FROM articles
		WHERE summarized_at IS NOT NULL
		  AND substr(COALESCE(publication_date, ''), 1, 10) = $1
		ORDER BY journal ASC, title_en ASC
	`, targetDate)
	if err != nil {
		return nil, fmt.Errorf("query summarized by date: %w", err)
	}
	defer rows.Close()

	return scanArticles(rows)
}

// SummarizedBetweenDates returns summarized articles published within the
// inclusive [from, to] day range.
func (db *DB) SummarizedBetweenDates(ctx context.Context, dateFrom, dateTo string) ([]Article, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT `+articleColumns+`
		FROM articles
		WHERE summarized_at IS NOT NULL
		  AND substr(COALESCE(publication_date, ''), 1, 10) >= $1
		  AND substr(COALESCE(publication_date, ''), 1, 10) <= $2
		ORDER BY publication_date DESC, journal ASC, title_en ASC
	`, dateFrom, dateTo)
	if err != nil {
		return nil, fmt.Errorf("query summarized between dates: %w", err)
	}
	defer rows.Close()

	return scanArticles(rows)
}

// UnsentArticles returns summarized articles that have no per-article sent
// marker yet, oldest summarization first.
func (db *DB) UnsentArticles(ctx context.Context, limit int) ([]Article, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT `+articleColumns+`
		FROM articles
		WHERE summarized_at IS NOT NULL
		  AND sent_at IS NULL
		ORDER BY summarized_at ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query unsent: %w", err)
	}
	defer rows.Close()

	return scanArticles(rows)
}

// MarkSent records the per-article sent timestamp.
func (db *DB) MarkSent(ctx context.Context, pmid string) error {
	if _, err := db.Pool.Exec(ctx, `UPDATE articles SET sent_at = $1 WHERE pmid = $2`, time.Now().UTC(), pmid); err != nil {
		return fmt.Errorf("mark sent %s: %w", pmid, err)
	}

	return nil
}

// GetArticleCounts returns total/summarized/pending counters.
func (db *DB) GetArticleCounts(ctx context.Context) (ArticleCounts, error) {
	var (
		total      int
		summarized int
	)

	err := db.Pool.QueryRow(ctx, `
		SELECT COUNT(*),
		       COUNT(summarized_at)
		FROM articles
	`).Scan(&total, &summarized)
	if err != nil {
		return ArticleCounts{}, fmt.Errorf("query article counts: %w", err)
	}

	pending := total - summarized
	if pending < 0 {
		pending = 0
	}

	return ArticleCounts{Total: total, Summarized: summarized, Pending: pending}, nil
}

func scanArticles(rows pgx.Rows) ([]Article, error) {
	var articles []Article

	for rows.Next() {
		var (
			a            Article
			journal      pgtype.Text
			pubDate      pgtype.Text
			titleEN      pgtype.Text
			abstractEN   pgtype.Text
			summaryEN    pgtype.Text
			authorsJSON  []byte
			doi          pgtype.Text
			link         pgtype.Text
			pubmedURL    pgtype.Text
			doiURL       pgtype.Text
			fetchedAt    pgtype.Timestamptz
			titleRU      pgtype.Text
			summaryRU    pgtype.Text
			messageHTML  pgtype.Text
			summarizedAt pgtype.Timestamptz
			sentAt       pgtype.Timestamptz
		)

		if err := rows.Scan(
			&a.PMID, &journal, &pubDate, &titleEN, &abstractEN, &summaryEN,
			&authorsJSON, &doi, &link, &pubmedURL, &doiURL, &fetchedAt,
			&titleRU, &summaryRU, &messageHTML, &summarizedAt, &sentAt,
		); err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}

		a.Journal = fromText(journal)
		a.PublicationDate = fromText(pubDate)
		a.TitleEN = fromText(titleEN)
		a.AbstractEN = fromText(abstractEN)
		a.SummaryEN = fromText(summaryEN)
		a.DOI = fromText(doi)
		a.Link = fromText(link)
		a.PubMedURL = fromText(pubmedURL)
		a.DOIURL = fromText(doiURL)
		a.FetchedAt = fromTimestamptzPtr(fetchedAt)
		a.TitleRU = fromText(titleRU)
		a.SummaryRU = fromText(summaryRU)
		a.MessageHTML = fromText(messageHTML)
		a.SummarizedAt = fromTimestamptzPtr(summarizedAt)
		a.SentAt = fromTimestamptzPtr(sentAt)

		if len(authorsJSON) > 0 {
			if err := json.Unmarshal(authorsJSON, &a.Authors); err != nil {
				return nil, fmt.Errorf("unmarshal authors for %s: %w", a.PMID, err)
			}
		}

		articles = append(articles, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate articles: %w", err)
	}

	return articles, nil
}
