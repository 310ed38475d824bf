// Package expander fetches the child URLs of a batch of documents under a
// global concurrency cap and turns each successful fetch into a new document.
package expander

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"runtime/debug"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dtnitsch/notion-corpus/models"
)

// DefaultRequestTimeout bounds a single fetch.
const DefaultRequestTimeout = 30 * time.Second

// ErrFetcherPanic marks a task whose fetcher panicked.
var ErrFetcherPanic = errors.New("fetcher panicked")

// DocumentFetcher produces a document for one child URL of parent.
type DocumentFetcher interface {
	FetchDocument(ctx context.Context, parent models.Document, url string) (models.Document, error)
}

// Stats summarizes one expansion batch.
type Stats struct {
	Attempted int `json:"attempted"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// Expander runs expansion batches.
type Expander struct {
	fetcher        DocumentFetcher
	logger         *slog.Logger
	requestTimeout time.Duration
	metrics        *Metrics
}

// Option configures an Expander.
type Option func(*Expander)

// WithRequestTimeout sets the per-fetch timeout. Non-positive values are ignored.
func WithRequestTimeout(d time.Duration) Option {
	return func(e *Expander) {
		if d > 0 {
			e.requestTimeout = d
		}
	}
}

// WithMetrics records attempts, in-flight fetches and durations in m.
func WithMetrics(m *Metrics) Option {
	return func(e *Expander) { e.metrics = m }
}

// New creates an Expander.
func New(fetcher DocumentFetcher, logger *slog.Logger, opts ...Option) *Expander {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Expander{fetcher: fetcher, logger: logger, requestTimeout: DefaultRequestTimeout}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type task struct {
	parent models.Document
	url    string
}

// Expand fetches every child URL of docs with at most maxConcurrency fetches
// in flight and returns the documents that were produced, in no particular
// order. Individual failures are counted in Stats and never returned; the only
// error is ErrInvalidConcurrency for a cap below 1.
func (e *Expander) Expand(ctx context.Context, docs []models.Document, maxConcurrency int) ([]models.Document, Stats, error) {
	results, stats, err := e.ExpandResults(ctx, docs, maxConcurrency)
	if err != nil {
		return nil, stats, err
	}
	out := make([]models.Document, 0, stats.Succeeded)
	for _, r := range results {
		if r.OK() {
			out = append(out, *r.Document)
		}
	}
	return out, stats, nil
}

// ExpandResults is Expand but returns the terminal state of every task, in
// task order, including failures.
func (e *Expander) ExpandResults(ctx context.Context, docs []models.Document, maxConcurrency int) ([]models.FetchResult, Stats, error) {
	if maxConcurrency <= 0 {
		return nil, Stats{}, fmt.Errorf("expand with cap %d: %w", maxConcurrency, models.ErrInvalidConcurrency)
	}

	var tasks []task
	for _, doc := range docs {
		for _, u := range doc.ChildURLs {
			tasks = append(tasks, task{parent: doc, url: u})
		}
	}

	before := heapAlloc()
	start := time.Now()
	e.logger.Info("Starting link expansion", "documents", len(docs), "tasks", len(tasks), "max_concurrency", maxConcurrency)

	results := make([]models.FetchResult, len(tasks))
	var g errgroup.Group
	g.SetLimit(maxConcurrency)
	for i, t := range tasks {
		g.Go(func() error {
			results[i] = e.run(ctx, t)
			return nil
		})
	}
	_ = g.Wait()

	stats := Stats{Attempted: len(results)}
	for _, r := range results {
		if r.OK() {
			stats.Succeeded++
		} else {
			stats.Failed++
		}
	}

	e.logger.Info("Link expansion finished",
		"attempted", stats.Attempted,
		"succeeded", stats.Succeeded,
		"failed", stats.Failed,
		"duration", time.Since(start))
	e.logger.Debug("Link expansion heap usage", "heap_before_bytes", before, "heap_after_bytes", heapAlloc())

	return results, stats, nil
}

func (e *Expander) run(ctx context.Context, t task) models.FetchResult {
	if e.metrics != nil {
		e.metrics.inFlight.Inc()
		defer e.metrics.inFlight.Dec()
	}

	ctx, cancel := context.WithTimeout(ctx, e.requestTimeout)
	defer cancel()

	start := time.Now()
	doc, err := e.fetch(ctx, t)
	result := models.FetchResult{URL: t.url, ParentID: t.parent.ID, Duration: time.Since(start)}
	if err != nil {
		result.Err = err
		e.logger.Warn("Failed to expand link",
			"url", t.url,
			"parent_id", t.parent.ID,
			"error_type", models.ErrorType(err),
			"error", err)
	} else {
		result.Document = &doc
		e.logger.Debug("Expanded link", "url", t.url, "parent_id", t.parent.ID, "document_id", doc.ID)
	}

	if e.metrics != nil {
		e.metrics.observe(result)
	}
	return result
}

// fetch calls the fetcher, turning a panic into a failure of this task.
func (e *Expander) fetch(ctx context.Context, t task) (doc models.Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Fetcher panicked", "url", t.url, "panic", r, "stack", string(debug.Stack()))
			doc, err = models.Document{}, fmt.Errorf("%w: %v", ErrFetcherPanic, r)
		}
	}()
	return e.fetcher.FetchDocument(ctx, t.parent, t.url)
}

func heapAlloc() uint64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return m.HeapAlloc
}
