package pubmed

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedNow() time.Time {
	return time.Date(2026, 2, 18, 10, 0, 0, 0, time.UTC)
}

func TestFetcherDateRange(t *testing.T) {
	logger := zerolog.Nop()
	f := New(Config{}, &logger)
	f.now = fixedNow

	minDate, maxDate := f.dateRange(3)

	assert.Equal(t, "2026/02/15", minDate)
	assert.Equal(t, "2026/02/17", maxDate)
}

func TestBuildJournalQuery(t *testing.T) {
	q := buildJournalQuery([]string{"Lancet", "N Engl J Med"})
	assert.Equal(t, `("Lancet"[jour] OR "N Engl J Med"[jour])`, q)
}

func TestFetchRecent(t *testing.T) {
	var (
		esearchCalls []string
		efetchIDs    []string
	)

	mux := http.NewServeMux()

	mux.HandleFunc("/esearch.fcgi", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		require.Equal(t, "pubmed", q.Get("db"))
		require.Equal(t, "pdat", q.Get("datetype"))
		require.Equal(t, "secret", q.Get("api_key"))

		retstart, _ := strconv.Atoi(q.Get("retstart"))
		esearchCalls = append(esearchCalls, q.Get("retstart"))

		// three pmids total, page size two
		ids := []string{`"40000001","40000002"`, `"40000003"`}[min(retstart/2, 1)]
		fmt.Fprintf(w, `{"esearchresult":{"count":"3","idlist":[%s]}}`, ids)
	})

	mux.HandleFunc("/efetch.fcgi", func(w http.ResponseWriter, r *http.Request) {
		efetchIDs = append(efetchIDs, r.URL.Query().Get("id"))
		w.Write([]byte(efetchSample))
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	logger := zerolog.Nop()
	f := New(Config{
		APIKey:   "secret",
		Journals: []string{"Lancet"},
		PageSize: 2,
	}, &logger)
	f.baseURL = srv.URL + "/"
	f.now = fixedNow

	articles, err := f.FetchRecent(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, []string{"0", "2"}, esearchCalls)
	assert.Equal(t, []string{"40000001,40000002,40000003"}, efetchIDs)

	// the abstract-less editorial is filtered out
	require.Len(t, articles, 1)
	assert.Equal(t, "40000001", articles[0].PMID)
}

func TestFetchRecent_NoResults(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/esearch.fcgi", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"esearchresult":{"count":"0","idlist":[]}}`))
	})
	mux.HandleFunc("/efetch.fcgi", func(http.ResponseWriter, *http.Request) {
		t.Fatal("efetch must not be called when esearch finds nothing")
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	logger := zerolog.Nop()
	f := New(Config{Journals: []string{"Lancet"}}, &logger)
	f.baseURL = srv.URL + "/"

	articles, err := f.FetchRecent(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, articles)
}

func TestFetchRecent_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	logger := zerolog.Nop()
	f := New(Config{Journals: []string{"Lancet"}}, &logger)
	f.baseURL = srv.URL + "/"

	_, err := f.FetchRecent(context.Background(), 1)
	assert.ErrorContains(t, err, "unexpected status 502")
}
