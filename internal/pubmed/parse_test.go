package pubmed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const efetchSample = `<?xml version="1.0" ?>
<PubmedArticleSet>
  <PubmedArticle>
    <MedlineCitation>
      <PMID Version="1">40000001</PMID>
      <Article>
        <Journal>
          <JournalIssue>
            <PubDate>
              <Year>2026</Year>
              <Month>Aug</Month>
            </PubDate>
          </JournalIssue>
          <Title>The Lancet</Title>
        </Journal>
        <ArticleTitle>Effect of <i>SGLT2</i> inhibitors on outcomes</ArticleTitle>
        <Abstract>
          <AbstractText Label="BACKGROUND">Heart failure is common.</AbstractText>
          <AbstractText Label="METHODS">Randomized trial with <sup>18</sup>F tracing.</AbstractText>
          <AbstractText Label="RESULTS"></AbstractText>
          <AbstractText Label="CONCLUSIONS">Treatment reduced mortality.</AbstractText>
        </Abstract>
        <AuthorList>
          <Author>
            <LastName>Smith</LastName>
            <ForeName>Jane</ForeName>
          </Author>
          <Author>
            <LastName>Ivanov</LastName>
          </Author>
          <Author>
            <CollectiveName>STUDY Group</CollectiveName>
          </Author>
        </AuthorList>
        <ArticleDate DateType="Electronic">
          <Year>2026</Year>
          <Month>08</Month>
          <Day>29</Day>
        </ArticleDate>
      </Article>
    </MedlineCitation>
    <PubmedData>
      <ArticleIdList>
        <ArticleId IdType="pubmed">40000001</ArticleId>
        <ArticleId IdType="doi">10.1016/S0140-6736(26)01234-5</ArticleId>
      </ArticleIdList>
    </PubmedData>
  </PubmedArticle>
  <PubmedArticle>
    <MedlineCitation>
      <PMID Version="1">40000002</PMID>
      <Article>
        <Journal>
          <JournalIssue>
            <PubDate>
              <MedlineDate>2026 Jul-Aug</MedlineDate>
            </PubDate>
          </JournalIssue>
          <Title>BMJ</Title>
        </Journal>
        <ArticleTitle>Editorial without abstract</ArticleTitle>
      </Article>
    </MedlineCitation>
    <PubmedData>
      <ArticleIdList>
        <ArticleId IdType="pubmed">40000002</ArticleId>
      </ArticleIdList>
    </PubmedData>
  </PubmedArticle>
</PubmedArticleSet>`

func TestParseEfetchResponse(t *testing.T) {
	articles, err := ParseEfetchResponse([]byte(efetchSample))
	require.NoError(t, err)
	require.Len(t, articles, 2)

	first := articles[0]
	assert.Equal(t, "40000001", first.PMID)
	assert.Equal(t, "Effect of SGLT2 inhibitors on outcomes", first.TitleEN)
	assert.Equal(t, "The Lancet", first.Journal)

	// electronic ArticleDate wins over the journal issue PubDate
	assert.Equal(t, "2026-08-29", first.PublicationDate)

	assert.Equal(t,
		"BACKGROUND: Heart failure is common.\n"+
			"METHODS: Randomized trial with 18F tracing.\n"+
			"CONCLUSIONS: Treatment reduced mortality.",
		first.AbstractEN)

	assert.Equal(t, []string{"Jane Smith", "Ivanov"}, first.Authors)
	assert.Equal(t, "10.1016/S0140-6736(26)01234-5", first.DOI)
	assert.Equal(t, "https://pubmed.ncbi.nlm.nih.gov/40000001/", first.PubMedURL)
	assert.Equal(t, "https://doi.org/10.1016/S0140-6736(26)01234-5", first.DOIURL)

	second := articles[1]
	assert.Equal(t, "40000002", second.PMID)
	assert.Empty(t, second.AbstractEN)
	assert.Equal(t, "2026-07", second.PublicationDate)
	assert.Empty(t, second.DOI)
	assert.Empty(t, second.DOIURL)
}

func TestParseEfetchResponse_BadXML(t *testing.T) {
	_, err := ParseEfetchResponse([]byte("not xml at all <"))
	assert.Error(t, err)
}
