package linkfetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"strings"
	"testing"

	"github.com/dtnitsch/notion-corpus/internal/common"
	"github.com/dtnitsch/notion-corpus/models"
	"github.com/dtnitsch/notion-corpus/pkg/flattener"
)

type fakePages struct {
	pages map[string]models.DocumentMetadata
}

func (f fakePages) GetPage(_ context.Context, id string) (models.DocumentMetadata, error) {
	p, ok := f.pages[id]
	if !ok {
		return models.DocumentMetadata{}, fmt.Errorf("page %s: %w", id, models.ErrSourceUnavailable)
	}
	return p, nil
}

type fakeFlattener map[string]flattener.Result

func (f fakeFlattener) Flatten(_ context.Context, id string) flattener.Result { return f[id] }

type fakeFetcher map[string]string

func (f fakeFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	html, ok := f[url]
	if !ok {
		return nil, fmt.Errorf("%w: status code: 404", models.ErrSourceUnavailable)
	}
	return []byte(html), nil
}

func fixedIDs(ids ...string) func() string {
	i := 0
	return func() string {
		id := ids[i%len(ids)]
		i++
		return id
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func parentDoc() models.Document {
	meta := models.DocumentMetadata{
		ID:         "parent-id",
		URL:        "https://www.notion.so/parent",
		Title:      "Parent",
		Properties: map[string]models.Property{"Tags": models.MultiSelectProperty("go")},
	}
	return models.NewDocument(meta, "parent content", []string{"https://example.com/a/"})
}

const notionPageID = "0123456789abcdef0123456789abcdef"

func TestNotionPageID(t *testing.T) {
	tests := []struct {
		link   string
		wantID string
		wantOK bool
	}{
		{"https://www.notion.so/My-Page-" + notionPageID, notionPageID, true},
		{"https://www.notion.so/workspace/My-Page-" + notionPageID + "/", notionPageID, true},
		{"https://team.notion.site/01234567-89ab-cdef-0123-456789abcdef", notionPageID, true},
		{"https://notion.so/" + strings.ToUpper(notionPageID), notionPageID, true},
		{"https://example.com/" + notionPageID, "", false},
		{"https://www.notion.so/pricing/", "", false},
		{"://bad", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.link, func(t *testing.T) {
			id, ok := NotionPageID(tt.link)
			if id != tt.wantID || ok != tt.wantOK {
				t.Errorf("NotionPageID() = %q, %v, want %q, %v", id, ok, tt.wantID, tt.wantOK)
			}
		})
	}
}

func TestRouter_Generic(t *testing.T) {
	link := "https://example.com/a/"
	html := `<html><head><title>Example A</title></head><body><p>Some readable text about
	the example page, long enough to be worth keeping in the corpus.</p>
	<a href="/b">b</a></body></html>`

	r := NewRouter(fakeFetcher{link: html}, testLogger(), WithIDGenerator(fixedIDs("ffffffffffffffffffffffffffffffff")))
	doc, err := r.FetchDocument(context.Background(), parentDoc(), link)
	if err != nil {
		t.Fatalf("FetchDocument() failed: %v", err)
	}

	if doc.ID != "ffffffffffffffffffffffffffffffff" || doc.Metadata.ID != doc.ID {
		t.Errorf("ID = %q, metadata ID = %q", doc.ID, doc.Metadata.ID)
	}
	if doc.Metadata.URL != link || doc.Metadata.Title != "Example A" {
		t.Errorf("metadata = %+v", doc.Metadata)
	}
	if doc.ParentMetadata == nil || doc.ParentMetadata.ID != "parent-id" {
		t.Errorf("ParentMetadata = %+v", doc.ParentMetadata)
	}
	if len(doc.ChildURLs) != 0 {
		t.Errorf("generic documents should have no child URLs, got %v", doc.ChildURLs)
	}
	if !strings.Contains(doc.Content, "readable text") {
		t.Errorf("Content = %q", doc.Content)
	}
	if p := doc.Metadata.Properties["link_count"]; p.Number == nil || *p.Number != 1 {
		t.Errorf("link_count = %+v", p)
	}
	if p := doc.Metadata.Properties["domain_type"]; p.Text != "commercial" {
		t.Errorf("domain_type = %+v", p)
	}
	if doc.ContentQualityScore == nil || *doc.ContentQualityScore <= 0 || *doc.ContentQualityScore > 1 {
		t.Errorf("ContentQualityScore = %v", doc.ContentQualityScore)
	}
}

func TestRouter_GenericFailures(t *testing.T) {
	r := NewRouter(fakeFetcher{"https://example.com/empty/": "<html><body></body></html>"}, testLogger())

	tests := []struct {
		link    string
		wantErr error
	}{
		{"https://example.com/missing/", models.ErrSourceUnavailable},
		{"https://example.com/empty/", models.ErrMalformedResponse},
		{"mailto:someone@example.com/", common.ErrUnfetchableURL},
	}
	for _, tt := range tests {
		t.Run(tt.link, func(t *testing.T) {
			_, err := r.FetchDocument(context.Background(), parentDoc(), tt.link)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRouter_NotionReentry(t *testing.T) {
	link := "https://www.notion.so/Sub-Page-" + notionPageID + "/"
	pages := fakePages{pages: map[string]models.DocumentMetadata{
		notionPageID: {
			ID:         "01234567-89ab-cdef-0123-456789abcdef",
			Title:      "Sub Page",
			Properties: map[string]models.Property{"Status": models.SelectProperty("Done")},
		},
	}}
	flat := fakeFlattener{notionPageID: {Content: "# Heading\n\nbody", URLs: []string{"https://x.example/"}}}

	r := NewRouter(fakeFetcher{}, testLogger(),
		WithNotion(pages, flat),
		WithIDGenerator(fixedIDs("eeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee")))

	doc, err := r.FetchDocument(context.Background(), parentDoc(), link)
	if err != nil {
		t.Fatalf("FetchDocument() failed: %v", err)
	}
	if doc.ID != "eeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee" {
		t.Errorf("ID = %q, want fresh id", doc.ID)
	}
	if doc.Content != "# Heading\n\nbody" || doc.Metadata.Title != "Sub Page" {
		t.Errorf("doc = %+v", doc)
	}
	if !reflect.DeepEqual(doc.ChildURLs, []string{"https://x.example/"}) {
		t.Errorf("ChildURLs = %v", doc.ChildURLs)
	}
	if got := doc.Metadata.Properties["notion_id"].Text; got != "01234567-89ab-cdef-0123-456789abcdef" {
		t.Errorf("notion_id = %q", got)
	}
	if got := doc.Metadata.Properties["Status"].Text; got != "Done" {
		t.Errorf("Status = %q", got)
	}
	if doc.ParentMetadata == nil || doc.ParentMetadata.Title != "Parent" {
		t.Errorf("ParentMetadata = %+v", doc.ParentMetadata)
	}
}

func TestRouter_NotionFailures(t *testing.T) {
	link := "https://www.notion.so/" + notionPageID
	pages := fakePages{pages: map[string]models.DocumentMetadata{notionPageID: {ID: notionPageID}}}

	t.Run("empty content", func(t *testing.T) {
		r := NewRouter(fakeFetcher{}, testLogger(), WithNotion(pages, fakeFlattener{}))
		_, err := r.FetchDocument(context.Background(), parentDoc(), link)
		if !errors.Is(err, models.ErrMalformedResponse) {
			t.Errorf("error = %v, want ErrMalformedResponse", err)
		}
	})

	t.Run("page unavailable", func(t *testing.T) {
		r := NewRouter(fakeFetcher{}, testLogger(), WithNotion(fakePages{}, fakeFlattener{}))
		_, err := r.FetchDocument(context.Background(), parentDoc(), link)
		if !errors.Is(err, models.ErrSourceUnavailable) {
			t.Errorf("error = %v, want ErrSourceUnavailable", err)
		}
	})
}

func TestRouter_NotionWithoutClientIsScraped(t *testing.T) {
	link := "https://www.notion.so/" + notionPageID
	r := NewRouter(fakeFetcher{}, testLogger())
	_, err := r.FetchDocument(context.Background(), parentDoc(), link)
	if !errors.Is(err, models.ErrSourceUnavailable) {
		t.Errorf("error = %v, want generic fetch failure", err)
	}
}
