// Package scrape turns a fetched HTML page into clean markdown plus the page
// facts kept as document properties.
package scrape

import (
	"bufio"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
	"github.com/microcosm-cc/bluemonday"
	"github.com/pemistahl/lingua-go"

	"github.com/dtnitsch/notion-corpus/models"
	"github.com/dtnitsch/notion-corpus/pkg/analytics"
	"github.com/dtnitsch/notion-corpus/pkg/detector"
)

// Article is the readable form of one page.
type Article struct {
	URL      string
	Title    string
	Markdown string
	Byline   string
	SiteName string
	Excerpt  string
	Language string   // ISO 639-1, lowercase; empty when undetected
	Links    []string // absolute http(s) links, unique and sorted
	Keywords []string // most frequent non-stopwords of the markdown

	Published string // YYYY-MM-DD; empty when unknown
	Signals   detector.Signals
}

// Quality is the page confidence scaled to 0-1.
func (a Article) Quality() float64 {
	return a.Signals.Confidence(detector.PageFacts{
		Byline:    a.Byline,
		SiteName:  a.SiteName,
		Published: a.Published,
	}) / 10
}

// keywordCount is how many keywords an article keeps.
const keywordCount = 10

// Properties returns the article facts as document properties. Empty facts
// are omitted.
func (a Article) Properties() map[string]models.Property {
	props := map[string]models.Property{
		"link_count": models.NumberProperty(float64(len(a.Links))),
	}
	if a.Language != "" {
		props["language"] = models.SelectProperty(a.Language)
	}
	if a.SiteName != "" {
		props["site_name"] = models.RichTextProperty(a.SiteName)
	}
	if a.Byline != "" {
		props["byline"] = models.RichTextProperty(a.Byline)
	}
	if a.Excerpt != "" {
		props["excerpt"] = models.RichTextProperty(a.Excerpt)
	}
	if a.Published != "" {
		props["published"] = models.DateProperty(a.Published, "")
	}
	if a.Signals.DomainType != "" {
		props["domain_type"] = models.SelectProperty(a.Signals.DomainType)
		props["category"] = models.SelectProperty(a.Signals.Category)
	}
	if a.Signals.DOI != "" {
		props["doi"] = models.RichTextProperty(a.Signals.DOI)
	}
	if a.Signals.ArXivID != "" {
		props["arxiv_id"] = models.RichTextProperty(a.Signals.ArXivID)
	}
	if len(a.Keywords) > 0 {
		props["keywords"] = models.MultiSelectProperty(a.Keywords...)
	}
	return props
}

var (
	policy = bluemonday.UGCPolicy()

	detectorOnce sync.Once
	langDetector lingua.LanguageDetector
)

func languageDetector() lingua.LanguageDetector {
	detectorOnce.Do(func() {
		langDetector = lingua.NewLanguageDetectorBuilder().
			FromLanguages(lingua.English, lingua.French, lingua.German, lingua.Spanish,
				lingua.Portuguese, lingua.Italian, lingua.Dutch).
			Build()
	})
	return langDetector
}

// Parse extracts the main content of html. readability picks the article body;
// pages it cannot read fall back to the whole <body>. Pages with no text at
// all are ErrMalformedResponse.
func Parse(rawURL, html string) (Article, error) {
	base, err := url.Parse(rawURL)
	if err != nil {
		return Article{}, fmt.Errorf("%w: invalid url %q: %v", models.ErrMalformedResponse, rawURL, err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Article{}, fmt.Errorf("%w: failed to parse HTML: %v", models.ErrMalformedResponse, err)
	}

	out := Article{URL: rawURL, Links: extractLinks(doc, base)}

	contentHTML := ""
	parser := readability.NewParser()
	if article, err := parser.Parse(strings.NewReader(html), base); err == nil && strings.TrimSpace(article.TextContent) != "" {
		contentHTML = article.Content
		out.Title = normalizeText(article.Title)
		out.Byline = normalizeText(article.Byline)
		out.SiteName = normalizeText(article.SiteName)
		out.Excerpt = normalizeText(article.Excerpt)
		if article.PublishedTime != nil {
			out.Published = article.PublishedTime.Format("2006-01-02")
		}
	} else {
		contentHTML, _ = doc.Find("body").Html()
	}
	if out.Title == "" {
		out.Title = normalizeText(doc.Find("title").First().Text())
	}

	markdown, err := htmltomarkdown.ConvertString(policy.Sanitize(contentHTML))
	if err != nil {
		return Article{}, fmt.Errorf("%w: converting HTML to markdown: %v", models.ErrMalformedResponse, err)
	}
	out.Markdown = strings.TrimSpace(markdown)
	if out.Markdown == "" {
		return Article{}, fmt.Errorf("%w: no readable content at %s", models.ErrMalformedResponse, rawURL)
	}

	out.Signals = detector.Analyze(rawURL, out.Markdown)
	out.Keywords = analytics.TopWords(analytics.WordFrequency(out.Markdown), keywordCount)
	if lang, ok := languageDetector().DetectLanguageOf(out.Markdown); ok {
		out.Language = strings.ToLower(lang.IsoCode639_1().String())
	}
	return out, nil
}

func extractLinks(doc *goquery.Document, base *url.URL) []string {
	set := map[string]struct{}{}
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return
		}
		abs := base.ResolveReference(ref)
		if abs.Scheme != "http" && abs.Scheme != "https" {
			return
		}
		abs.Fragment = ""
		set[abs.String()] = struct{}{}
	})
	links := make([]string, 0, len(set))
	for l := range set {
		links = append(links, l)
	}
	sort.Strings(links)
	return links
}

// normalizeText trims every line and joins the non-empty ones with a space.
func normalizeText(input string) string {
	var b strings.Builder
	b.Grow(len(input))
	scanner := bufio.NewScanner(strings.NewReader(input))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			b.WriteString(line)
			b.WriteString(" ")
		}
	}
	return strings.TrimSpace(b.String())
}
