// Package pubmed talks to the NCBI E-utilities API: esearch to enumerate
// PMIDs for the watched journals over a date window, efetch to pull the
// article records in batches.
package pubmed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const defaultBaseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/"

const (
	esearchTimeout = 40 * time.Second
	efetchTimeout  = 60 * time.Second
)

// Config tunes the fetcher. Zero values get sensible defaults from New.
type Config struct {
	APIKey       string
	Journals     []string
	DateType     string
	PageSize     int
	BatchSize    int
	RequestDelay time.Duration
	Location     *time.Location
}

type Fetcher struct {
	cfg        Config
	baseURL    string
	httpClient *http.Client
	logger     *zerolog.Logger

	now func() time.Time
}

func New(cfg Config, logger *zerolog.Logger) *Fetcher {
	if cfg.DateType == "" {
		cfg.DateType = "pdat"
	}

	if cfg.PageSize <= 0 {
		cfg.PageSize = 500
	}

	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 200
	}

	if cfg.Location == nil {
		cfg.Location = time.UTC
	}

	return &Fetcher{
		cfg:        cfg,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{},
		logger:     logger,
		now:        time.Now,
	}
}

// FetchRecent returns articles from the configured journals published in
// the last daysBack days, today excluded, keeping only records that carry
// an abstract.
func (f *Fetcher) FetchRecent(ctx context.Context, daysBack int) ([]Article, error) {
	minDate, maxDate := f.dateRange(daysBack)
	term := buildJournalQuery(f.cfg.Journals)

	pmids, err := f.searchPMIDs(ctx, term, minDate, maxDate)
	if err != nil {
		return nil, err
	}

	f.logger.Info().
		Int("pmids", len(pmids)).
		Str("min_date", minDate).
		Str("max_date", maxDate).
		Msg("pubmed search finished")

	if len(pmids) == 0 {
		return nil, nil
	}

	articles, err := f.fetchArticles(ctx, pmids)
	if err != nil {
		return nil, err
	}

	withAbstract := articles[:0]
	for _, a := range articles {
		if strings.TrimSpace(a.AbstractEN) != "" {
			withAbstract = append(withAbstract, a)
		}
	}

	return withAbstract, nil
}

// dateRange returns [today-daysBack, yesterday] in the fetcher's timezone,
// formatted the way E-utilities expects (YYYY/MM/DD).
func (f *Fetcher) dateRange(daysBack int) (string, string) {
	today := f.now().In(f.cfg.Location)

	maxDay := today.AddDate(0, 0, -1)
	minDay := today.AddDate(0, 0, -daysBack)

	return minDay.Format("2006/01/02"), maxDay.Format("2006/01/02")
}

func buildJournalQuery(journals []string) string {
	parts := make([]string, 0, len(journals))
	for _, j := range journals {
		parts = append(parts, fmt.Sprintf("%q[jour]", j))
	}

	return "(" + strings.Join(parts, " OR ") + ")"
}

type esearchResponse struct {
	ESearchResult struct {
		Count  string   `json:"count"`
		IDList []string `json:"idlist"`
	} `json:"esearchresult"`
}

func (f *Fetcher) searchPMIDs(ctx context.Context, term, minDate, maxDate string) ([]string, error) {
	var pmids []string
	retstart := 0

	for {
		params := url.Values{}
		params.Set("db", "pubmed")
		params.Set("term", term)
		params.Set("retmode", "json")
		params.Set("retmax", strconv.Itoa(f.cfg.PageSize))
		params.Set("retstart", strconv.Itoa(retstart))
		params.Set("datetype", f.cfg.DateType)
		params.Set("mindate", minDate)
		params.Set("maxdate", maxDate)

		body, err := f.get(ctx, "esearch.fcgi", params, esearchTimeout)
		if err != nil {
			return nil, err
		}

		var parsed esearchResponse
		if err = json.Unmarshal(body, &parsed); err != nil {
			return nil, fmt.Errorf("decode esearch response: %w", err)
		}

		count, _ := strconv.Atoi(parsed.ESearchResult.Count)
		batch := parsed.ESearchResult.IDList

		pmids = append(pmids, batch...)
		retstart += len(batch)

		if err = f.pause(ctx); err != nil {
			return nil, err
		}

		if retstart >= count || len(batch) == 0 {
			break
		}
	}

	return pmids, nil
}

func (f *Fetcher) fetchArticles(ctx context.Context, pmids []string) ([]Article, error) {
	var out []Article

	for start := 0; start < len(pmids); start += f.cfg.BatchSize {
		end := start + f.cfg.BatchSize
		if end > len(pmids) {
			end = len(pmids)
		}

		params := url.Values{}
		params.Set("db", "pubmed")
		params.Set("id", strings.Join(pmids[start:end], ","))
		params.Set("retmode", "xml")

		body, err := f.get(ctx, "efetch.fcgi", params, efetchTimeout)
		if err != nil {
			return nil, err
		}

		articles, err := ParseEfetchResponse(body)
		if err != nil {
			return nil, err
		}

		out = append(out, articles...)

		if err = f.pause(ctx); err != nil {
			return nil, err
		}
	}

	return out, nil
}

func (f *Fetcher) get(ctx context.Context, endpoint string, params url.Values, timeout time.Duration) ([]byte, error) {
	if f.cfg.APIKey != "" {
		params.Set("api_key", f.cfg.APIKey)
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	reqURL := f.baseURL + endpoint + "?" + params.Encode()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", endpoint, err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("call %s: unexpected status %d", endpoint, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", endpoint, err)
	}

	return body, nil
}

// pause spaces out E-utilities requests to stay under the API rate limit.
func (f *Fetcher) pause(ctx context.Context) error {
	if f.cfg.RequestDelay <= 0 {
		return nil
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(f.cfg.RequestDelay):
		return nil
	}
}
