package fetcher

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dtnitsch/notion-corpus/models"
	"github.com/dtnitsch/notion-corpus/pkg/caching"
)

func TestHTTPFetcher_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			if got := r.Header.Get("User-Agent"); got != "test-agent" {
				t.Errorf("User-Agent = %q", got)
			}
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Write([]byte("<html><body>hi</body></html>"))
		case "/missing":
			http.NotFound(w, r)
		case "/pdf":
			w.Header().Set("Content-Type", "application/pdf")
			w.Write([]byte("%PDF"))
		case "/big":
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte(strings.Repeat("a", 64)))
		case "/slow":
			time.Sleep(200 * time.Millisecond)
			w.Write([]byte("late"))
		}
	}))
	defer srv.Close()

	f := NewHTTPFetcher(Options{UserAgent: "test-agent", MaxBytes: 32})

	tests := []struct {
		name    string
		path    string
		want    string
		wantErr error
	}{
		{"html page", "/ok", "<html><body>hi</body></html>", nil},
		{"not found", "/missing", "", models.ErrSourceUnavailable},
		{"non html", "/pdf", "", models.ErrMalformedResponse},
		{"too large", "/big", "", models.ErrMalformedResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.Fetch(context.Background(), srv.URL+tt.path)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Fetch() failed: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("body = %q, want %q", got, tt.want)
			}
		})
	}

	t.Run("context deadline", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		_, err := f.Fetch(ctx, srv.URL+"/slow")
		if models.ErrorType(err) != "timeout" {
			t.Errorf("error = %v, want timeout", err)
		}
	})
}

type countingFetcher struct {
	calls atomic.Int32
	err   error
}

func (c *countingFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return []byte("page " + url), nil
}

func TestCached_Fetch(t *testing.T) {
	cache, err := caching.NewCache(t.TempDir(), time.Hour)
	if err != nil {
		t.Fatalf("NewCache() failed: %v", err)
	}
	inner := &countingFetcher{}
	c := NewCached(inner, cache, slog.New(slog.NewTextHandler(io.Discard, nil)))

	for i := 0; i < 3; i++ {
		got, err := c.Fetch(context.Background(), "https://a.example/")
		if err != nil {
			t.Fatalf("Fetch() failed: %v", err)
		}
		if string(got) != "page https://a.example/" {
			t.Errorf("body = %q", got)
		}
	}
	if n := inner.calls.Load(); n != 1 {
		t.Errorf("inner calls = %d, want 1", n)
	}
}

func TestCached_ErrorsNotCached(t *testing.T) {
	cache, err := caching.NewCache(t.TempDir(), time.Hour)
	if err != nil {
		t.Fatalf("NewCache() failed: %v", err)
	}
	inner := &countingFetcher{err: models.ErrSourceUnavailable}
	c := NewCached(inner, cache, nil)

	for i := 0; i < 2; i++ {
		if _, err := c.Fetch(context.Background(), "https://a.example/"); !errors.Is(err, models.ErrSourceUnavailable) {
			t.Errorf("error = %v", err)
		}
	}
	if n := inner.calls.Load(); n != 2 {
		t.Errorf("inner calls = %d, want 2", n)
	}
}
