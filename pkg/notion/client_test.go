package notion

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dtnitsch/notion-corpus/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(Config{APIKey: "secret", BaseURL: srv.URL}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return c
}

const childrenPage1 = `{
  "object": "list",
  "has_more": true,
  "next_cursor": "cursor-2",
  "results": [
    {"id": "b1", "type": "heading_2", "has_children": false,
     "heading_2": {"rich_text": [{"plain_text": "Intro", "href": null, "annotations": {"bold": true}}]}},
    {"id": "b2", "type": "paragraph", "has_children": true,
     "paragraph": {"rich_text": [
       {"plain_text": "see ", "href": null},
       {"plain_text": "docs", "href": "https://go.dev/doc"}]}},
    {"id": "b3", "type": "image", "has_children": false,
     "image": {"type": "external", "external": {"url": "https://img/x.png"}}},
    {"id": "b4", "type": "child_page", "has_children": true, "child_page": {"title": "Sub"}},
    {"id": "b5", "type": "link_preview", "has_children": false, "link_preview": {"url": "https://github.com/x"}},
    {"id": "b6", "type": "table_of_contents", "has_children": false, "table_of_contents": {}}
  ]
}`

func TestGetChildren(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/blocks/root/children" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("Authorization = %q", got)
		}
		if got := r.Header.Get("Notion-Version"); got != "2022-06-28" {
			t.Errorf("Notion-Version = %q", got)
		}
		if got := r.URL.Query().Get("page_size"); got != "100" {
			t.Errorf("page_size = %q", got)
		}
		w.Write([]byte(childrenPage1))
	})

	page, err := c.GetChildren(context.Background(), "root", 0, "")
	if err != nil {
		t.Fatalf("GetChildren() failed: %v", err)
	}
	if page.NextCursor != "cursor-2" {
		t.Errorf("NextCursor = %q", page.NextCursor)
	}
	if len(page.Blocks) != 6 {
		t.Fatalf("got %d blocks, want 6", len(page.Blocks))
	}

	heading := page.Blocks[0]
	if heading.Type != models.BlockHeading2 || heading.RichText[0].PlainText != "Intro" {
		t.Errorf("heading = %+v", heading)
	}
	para := page.Blocks[1]
	if !para.HasChildren || para.RichText[1].Href != "https://go.dev/doc" {
		t.Errorf("paragraph = %+v", para)
	}
	if page.Blocks[2].ImageURL != "https://img/x.png" {
		t.Errorf("image url = %q", page.Blocks[2].ImageURL)
	}
	if page.Blocks[3].ChildTitle != "Sub" {
		t.Errorf("child title = %q", page.Blocks[3].ChildTitle)
	}
	if page.Blocks[4].LinkURL != "https://github.com/x" {
		t.Errorf("link url = %q", page.Blocks[4].LinkURL)
	}
	if page.Blocks[5].Type != models.BlockUnknown || page.Blocks[5].RawType != "table_of_contents" {
		t.Errorf("unknown block = %+v", page.Blocks[5])
	}
}

func TestGetChildren_Cursor(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("start_cursor"); got != "cursor-2" {
			t.Errorf("start_cursor = %q", got)
		}
		w.Write([]byte(`{"results": [], "has_more": false, "next_cursor": null}`))
	})

	page, err := c.GetChildren(context.Background(), "root", 50, "cursor-2")
	if err != nil {
		t.Fatalf("GetChildren() failed: %v", err)
	}
	if page.NextCursor != "" || len(page.Blocks) != 0 {
		t.Errorf("page = %+v", page)
	}
}

func TestGetChildren_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"unauthorized", http.StatusUnauthorized, `{"code":"unauthorized"}`, models.ErrSourceUnavailable},
		{"server error", http.StatusInternalServerError, `oops`, models.ErrSourceUnavailable},
		{"not json", http.StatusOK, `<html>`, models.ErrMalformedResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})
			_, err := c.GetChildren(context.Background(), "root", 10, "")
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestGetChildren_SkipsBadBlocks(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"has_more": false, "results": [
			{"id": "b1", "type": "paragraph", "paragraph": {"rich_text": [{"plain_text": "first"}]}},
			{"id": "x"},
			{"type": "paragraph"},
			{"id": "b4", "type": "paragraph", "paragraph": {"rich_text": 7}},
			{"id": "b5", "type": "paragraph", "paragraph": {"rich_text": [{"plain_text": "last"}]}}
		]}`))
	})

	page, err := c.GetChildren(context.Background(), "root", 0, "")
	if err != nil {
		t.Fatalf("GetChildren() failed: %v", err)
	}
	var ids []string
	for _, b := range page.Blocks {
		ids = append(ids, b.ID)
	}
	if strings.Join(ids, ",") != "b1,b5" {
		t.Errorf("block ids = %v, want [b1 b5]", ids)
	}
}

func TestRetryOnRateLimit(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"results": []}`))
	})

	if _, err := c.GetChildren(context.Background(), "root", 10, ""); err != nil {
		t.Fatalf("GetChildren() failed: %v", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestQueryDatabase(t *testing.T) {
	var queries int
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/v1/databases/db1":
			w.Write([]byte(`{"id":"db1","url":"https://www.notion.so/db1","title":[{"plain_text":"Reading"}]}`))
		case r.Method == http.MethodPost && r.URL.Path == "/v1/databases/db1/query":
			queries++
			var body map[string]any
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Errorf("decode body: %v", err)
			}
			if _, ok := body["filter"]; !ok {
				t.Error("filter not forwarded")
			}
			if queries == 1 {
				w.Write([]byte(`{"has_more": true, "next_cursor": "c2", "results": [
				  {"id": "p1", "url": "https://www.notion.so/p1", "properties": {
				    "Name": {"type": "title", "title": [{"plain_text": "First"}]},
				    "Tags": {"type": "multi_select", "multi_select": [{"name": "go"}, {"name": "rag"}]},
				    "Score": {"type": "number", "number": 7},
				    "Read": {"type": "checkbox", "checkbox": true},
				    "When": {"type": "date", "date": {"start": "2024-05-01", "end": null}},
				    "Link": {"type": "url", "url": "https://x"}
				  }}]}`))
				return
			}
			if body["start_cursor"] != "c2" {
				t.Errorf("start_cursor = %v", body["start_cursor"])
			}
			w.Write([]byte(`{"has_more": false, "next_cursor": null, "results": [
			  {"id": "p2", "url": "https://www.notion.so/p2", "properties": {
			    "Name": {"type": "title", "title": [{"plain_text": "Second"}]},
			    "Status": {"type": "select", "select": {"name": "Done"}}
			  }}]}`))
		default:
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})

	metas, err := c.QueryDatabase(context.Background(), "db1", json.RawMessage(`{"property":"Read","checkbox":{"equals":true}}`))
	if err != nil {
		t.Fatalf("QueryDatabase() failed: %v", err)
	}
	if len(metas) != 2 {
		t.Fatalf("got %d records, want 2", len(metas))
	}

	first := metas[0]
	if first.Title != "First" || first.Parent == nil || first.Parent.Title != "Reading" {
		t.Errorf("first = %+v", first)
	}
	if got := first.Properties["Tags"]; got.Kind != models.PropertyMultiSelect || len(got.List) != 2 {
		t.Errorf("Tags = %+v", got)
	}
	if got := first.Properties["Score"]; got.Number == nil || *got.Number != 7 {
		t.Errorf("Score = %+v", got)
	}
	if got := first.Properties["When"]; got.Date == nil || got.Date.Start != "2024-05-01" {
		t.Errorf("When = %+v", got)
	}
	if got := first.Properties["Link"]; got.Kind != models.PropertyOpaque {
		t.Errorf("Link kind = %s, want opaque", got.Kind)
	}
	if got := metas[1].Properties["Status"]; got.Text != "Done" {
		t.Errorf("Status = %+v", got)
	}
}

func TestNewRequiresAPIKey(t *testing.T) {
	if _, err := New(Config{}, nil); err == nil {
		t.Error("New() without API key should fail")
	}
}

func TestGetChildren_Timeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.GetChildren(ctx, "root", 0, "")
	if got := models.ErrorType(err); got != "timeout" {
		t.Errorf("ErrorType() = %q, want timeout (err: %v)", got, err)
	}
	if !errors.Is(err, models.ErrSourceUnavailable) {
		t.Errorf("error = %v, want ErrSourceUnavailable", err)
	}
}
