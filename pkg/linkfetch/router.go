// Package linkfetch turns one discovered link into a new document. Links to
// Notion pages re-enter the block flattener; anything else is scraped.
package linkfetch

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"github.com/dtnitsch/notion-corpus/internal/common"
	"github.com/dtnitsch/notion-corpus/models"
	"github.com/dtnitsch/notion-corpus/pkg/fetcher"
	"github.com/dtnitsch/notion-corpus/pkg/flattener"
	"github.com/dtnitsch/notion-corpus/pkg/idgen"
	"github.com/dtnitsch/notion-corpus/pkg/scrape"
)

// PageSource returns the metadata of a Notion page.
type PageSource interface {
	GetPage(ctx context.Context, pageID string) (models.DocumentMetadata, error)
}

// Flattener flattens a Notion block tree.
type Flattener interface {
	Flatten(ctx context.Context, rootID string) flattener.Result
}

// Router implements the expander's DocumentFetcher.
type Router struct {
	pages     PageSource
	flattener Flattener
	fetcher   fetcher.PageFetcher
	newID     idgen.Generator
	logger    *slog.Logger
}

// Option configures a Router.
type Option func(*Router)

// WithNotion enables re-entry for Notion page links. Without it, Notion links
// are scraped like any other page.
func WithNotion(pages PageSource, f Flattener) Option {
	return func(r *Router) {
		r.pages = pages
		r.flattener = f
	}
}

// WithIDGenerator overrides the document ID generator.
func WithIDGenerator(gen idgen.Generator) Option {
	return func(r *Router) { r.newID = gen }
}

// NewRouter creates a Router that scrapes generic links with pf.
func NewRouter(pf fetcher.PageFetcher, logger *slog.Logger, opts ...Option) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Router{fetcher: pf, newID: idgen.Default, logger: logger}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// FetchDocument builds the document for link. The result has a fresh ID, the
// link as its URL and parent's metadata as its parent metadata.
func (r *Router) FetchDocument(ctx context.Context, parent models.Document, link string) (models.Document, error) {
	if pageID, ok := NotionPageID(link); ok && r.pages != nil && r.flattener != nil {
		return r.fetchNotion(ctx, parent, link, pageID)
	}
	return r.fetchGeneric(ctx, parent, link)
}

func (r *Router) fetchNotion(ctx context.Context, parent models.Document, link, pageID string) (models.Document, error) {
	page, err := r.pages.GetPage(ctx, pageID)
	if err != nil {
		return models.Document{}, fmt.Errorf("notion page %s: %w", pageID, err)
	}
	res := r.flattener.Flatten(ctx, pageID)
	if res.Content == "" {
		return models.Document{}, fmt.Errorf("%w: notion page %s has no content", models.ErrMalformedResponse, pageID)
	}

	meta := r.metadata(parent, link, page.Title)
	for k, v := range page.Properties {
		meta.Properties[k] = v
	}
	meta.Properties["notion_id"] = models.RichTextProperty(page.ID)
	return models.NewDocument(meta, res.Content, res.URLs), nil
}

func (r *Router) fetchGeneric(ctx context.Context, parent models.Document, link string) (models.Document, error) {
	target, err := common.ValidateURL(link)
	if err != nil {
		return models.Document{}, err
	}
	html, err := r.fetcher.Fetch(ctx, target)
	if err != nil {
		return models.Document{}, fmt.Errorf("fetch %s: %w", link, err)
	}
	article, err := scrape.Parse(link, string(html))
	if err != nil {
		return models.Document{}, fmt.Errorf("scrape %s: %w", link, err)
	}

	meta := r.metadata(parent, link, article.Title)
	for k, v := range article.Properties() {
		meta.Properties[k] = v
	}
	// Generic pages are leaves: their links are not expanded again.
	return models.NewDocument(meta, article.Markdown, nil).WithQualityScore(article.Quality()), nil
}

func (r *Router) metadata(parent models.Document, link, title string) models.DocumentMetadata {
	p := parent.Metadata.Clone()
	return models.DocumentMetadata{
		ID:         r.newID(),
		URL:        link,
		Title:      title,
		Properties: map[string]models.Property{},
		Parent:     &p,
	}
}

var pageIDPattern = regexp.MustCompile(`([0-9a-f]{32}|[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12})/?$`)

// NotionPageID reports whether link addresses a Notion page and returns its
// dash-less page ID.
func NotionPageID(link string) (string, bool) {
	u, err := url.Parse(link)
	if err != nil {
		return "", false
	}
	host := strings.ToLower(u.Hostname())
	if host != "notion.so" && !strings.HasSuffix(host, ".notion.so") && !strings.HasSuffix(host, ".notion.site") {
		return "", false
	}
	m := pageIDPattern.FindStringSubmatch(strings.ToLower(u.Path))
	if m == nil {
		return "", false
	}
	return strings.ReplaceAll(m[1], "-", ""), true
}
