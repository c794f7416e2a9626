package pubmed

import (
	"encoding/xml"
	"fmt"
	"html"
	"regexp"
	"strings"
)

// Article is one PubMed record reduced to the fields the digest needs.
type Article struct {
	PMID            string
	TitleEN         string
	Journal         string
	PublicationDate string
	AbstractEN      string
	Authors         []string
	DOI             string
	PubMedURL       string
	DOIURL          string
}

const (
	pubmedURLFormat = "https://pubmed.ncbi.nlm.nih.gov/%s/"
	doiURLFormat    = "https://doi.org/%s"
)

type articleSet struct {
	Articles []pubmedArticle `xml:"PubmedArticle"`
}

type pubmedArticle struct {
	MedlineCitation struct {
		PMID    string `xml:"PMID"`
		Article struct {
			Title   richText `xml:"ArticleTitle"`
			Journal struct {
				Title        string `xml:"Title"`
				JournalIssue struct {
					PubDate struct {
						Year        string `xml:"Year"`
						Month       string `xml:"Month"`
						Day         string `xml:"Day"`
						MedlineDate string `xml:"MedlineDate"`
					} `xml:"PubDate"`
				} `xml:"JournalIssue"`
			} `xml:"Journal"`
			Abstract struct {
				Texts []abstractText `xml:"AbstractText"`
			} `xml:"Abstract"`
			AuthorList struct {
				Authors []struct {
					ForeName string `xml:"ForeName"`
					LastName string `xml:"LastName"`
				} `xml:"Author"`
			} `xml:"AuthorList"`
			ArticleDates []struct {
				Year  string `xml:"Year"`
				Month string `xml:"Month"`
				Day   string `xml:"Day"`
			} `xml:"ArticleDate"`
		} `xml:"Article"`
	} `xml:"MedlineCitation"`
	PubmedData struct {
		ArticleIDs []struct {
			IDType string `xml:"IdType,attr"`
			Value  string `xml:",chardata"`
		} `xml:"ArticleIdList>ArticleId"`
	} `xml:"PubmedData"`
}

type abstractText struct {
	Label string   `xml:"Label,attr"`
	Body  richText `xml:",innerxml"`
}

// richText holds element content that may carry inline markup like <i> or
// <sup>; Flatten strips the tags and keeps all the text.
type richText string

var inlineTagRe = regexp.MustCompile(`<[^>]+>`)

func (r richText) Flatten() string {
	return strings.TrimSpace(html.UnescapeString(inlineTagRe.ReplaceAllString(string(r), "")))
}

// ParseEfetchResponse decodes an efetch XML payload into articles. Records
// are kept even without an abstract; the fetcher filters those later so
// callers can decide.
func ParseEfetchResponse(data []byte) ([]Article, error) {
	var set articleSet
	if err := xml.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("decode efetch response: %w", err)
	}

	out := make([]Article, 0, len(set.Articles))
	for _, raw := range set.Articles {
		out = append(out, parseArticle(raw))
	}

	return out, nil
}

func parseArticle(raw pubmedArticle) Article {
	art := raw.MedlineCitation.Article

	a := Article{
		PMID:            strings.TrimSpace(raw.MedlineCitation.PMID),
		TitleEN:         art.Title.Flatten(),
		Journal:         strings.TrimSpace(art.Journal.Title),
		PublicationDate: extractDate(raw),
		AbstractEN:      flattenAbstract(art.Abstract.Texts),
	}

	for _, au := range art.AuthorList.Authors {
		name := strings.TrimSpace(strings.TrimSpace(au.ForeName) + " " + strings.TrimSpace(au.LastName))
		if name != "" {
			a.Authors = append(a.Authors, name)
		}
	}

	for _, id := range raw.PubmedData.ArticleIDs {
		if id.IDType == "doi" {
			if doi := strings.TrimSpace(id.Value); doi != "" {
				a.DOI = doi
				break
			}
		}
	}

	if a.PMID != "" {
		a.PubMedURL = fmt.Sprintf(pubmedURLFormat, a.PMID)
	}

	if a.DOI != "" {
		a.DOIURL = fmt.Sprintf(doiURLFormat, a.DOI)
	}

	return a
}

// flattenAbstract joins labeled abstract sections, prefixing each with its
// label ("BACKGROUND: ...") when present.
func flattenAbstract(texts []abstractText) string {
	parts := make([]string, 0, len(texts))

	for _, t := range texts {
		body := t.Body.Flatten()
		if body == "" {
			continue
		}

		if label := strings.TrimSpace(t.Label); label != "" {
			parts = append(parts, label+": "+body)
		} else {
			parts = append(parts, body)
		}
	}

	return strings.Join(parts, "\n")
}

// extractDate prefers the electronic ArticleDate, then the journal issue
// PubDate, then a normalized MedlineDate string.
func extractDate(raw pubmedArticle) string {
	for _, ad := range raw.MedlineCitation.Article.ArticleDates {
		if date := formatDateParts(ad.Year, ad.Month, ad.Day); date != "" {
			return date
		}
	}

	pd := raw.MedlineCitation.Article.Journal.JournalIssue.PubDate
	if date := formatDateParts(pd.Year, pd.Month, pd.Day); date != "" {
		return date
	}

	if pd.MedlineDate != "" {
		if date := normalizeMedlineDate(pd.MedlineDate); date != "" {
			return date
		}

		return strings.TrimSpace(pd.MedlineDate)
	}

	return ""
}
