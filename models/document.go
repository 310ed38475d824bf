package models

import (
	"sort"
	"time"
)

// Document is a flattened source document. Equality is by ID only.
type Document struct {
	ID                  string            `json:"id"`
	Metadata            DocumentMetadata  `json:"metadata"`
	ParentMetadata      *DocumentMetadata `json:"parent_metadata,omitempty"`
	Content             string            `json:"content"`
	ContentQualityScore *float64          `json:"content_quality_score,omitempty"`
	Summary             *string           `json:"summary,omitempty"`
	ChildURLs           []string          `json:"child_urls"`
}

// NewDocument assembles a Document from flattened content. The document ID is
// the metadata ID, and the metadata's parent moves to ParentMetadata.
func NewDocument(meta DocumentMetadata, content string, urls []string) Document {
	m := meta.Clone()
	parent := m.Parent
	m.Parent = nil
	return Document{
		ID:             m.ID,
		Metadata:       m,
		ParentMetadata: parent,
		Content:        content,
		ChildURLs:      UniqueURLs(urls),
	}
}

// Key is the identity used for hashing and deduplication.
func (d Document) Key() string { return d.ID }

// Equal reports whether both documents have the same ID.
func (d Document) Equal(other Document) bool { return d.ID == other.ID }

// WithSummary returns a copy carrying the given summary.
func (d Document) WithSummary(summary string) Document {
	d.Summary = &summary
	return d
}

// WithQualityScore returns a copy carrying the given quality score.
func (d Document) WithQualityScore(score float64) Document {
	d.ContentQualityScore = &score
	return d
}

// Obfuscate returns a copy whose metadata and parent metadata carry fresh
// identifiers; the document ID follows the new metadata ID.
func (d Document) Obfuscate(gen func() string) Document {
	out := d
	out.Metadata = d.Metadata.Obfuscate(gen)
	if d.ParentMetadata != nil {
		p := d.ParentMetadata.Obfuscate(gen)
		out.ParentMetadata = &p
	}
	out.ChildURLs = append([]string(nil), d.ChildURLs...)
	out.ID = out.Metadata.ID
	return out
}

// UniqueDocuments drops later documents that share an ID with an earlier one.
func UniqueDocuments(docs []Document) []Document {
	seen := make(map[string]struct{}, len(docs))
	out := make([]Document, 0, len(docs))
	for _, d := range docs {
		if _, ok := seen[d.Key()]; ok {
			continue
		}
		seen[d.Key()] = struct{}{}
		out = append(out, d)
	}
	return out
}

// UniqueURLs returns the non-empty URLs of urls, deduplicated and sorted.
func UniqueURLs(urls []string) []string {
	set := make(map[string]struct{}, len(urls))
	for _, u := range urls {
		if u != "" {
			set[u] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for u := range set {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}

// FetchResult is the terminal state of one expansion task: either Document or
// Err is set, never both.
type FetchResult struct {
	URL      string
	ParentID string
	Document *Document
	Err      error
	Duration time.Duration
}

// OK reports whether the fetch produced a document.
func (r FetchResult) OK() bool { return r.Err == nil && r.Document != nil }

// ErrorType classifies the failure; empty on success.
func (r FetchResult) ErrorType() string { return ErrorType(r.Err) }
