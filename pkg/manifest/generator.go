package manifest

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dtnitsch/notion-corpus/models"
	"github.com/dtnitsch/notion-corpus/pkg/analytics"
	"github.com/dtnitsch/notion-corpus/pkg/storage"
)

// Generate builds a summary of an expansion batch. paths maps document IDs to
// the files they were written to; it may be nil.
func Generate(command string, sourceDocs int, results []models.FetchResult, paths map[string]string) SummaryManifest {
	m := SummaryManifest{
		GeneratedAt: time.Now().Format(time.RFC3339),
		Command:     command,
		Documents:   sourceDocs,
		TotalURLs:   len(results),
		Results:     make([]URLSummary, 0, len(results)),
	}
	var counts []map[string]int

	for _, result := range results {
		summary := URLSummary{
			URL:        result.URL,
			ParentID:   result.ParentID,
			DurationMS: result.Duration.Milliseconds(),
		}

		if !result.OK() {
			m.Failed++
			summary.Status = "error"
			summary.ErrorType = result.ErrorType()
			if result.Err != nil {
				summary.ErrorMessage = result.Err.Error()
			}
			if m.ErrorTypes == nil {
				m.ErrorTypes = make(map[string]int)
			}
			m.ErrorTypes[summary.ErrorType]++
		} else {
			m.Successful++
			summary.Status = "success"
			summary.DocumentID = result.Document.ID
			summary.ContentBytes = len(result.Document.Content)
			summary.FilePath = paths[result.Document.ID]

			wordCounts := analytics.WordFrequency(result.Document.Content)
			summary.TopKeywords = analytics.TopKeywords(wordCounts, 10)
			counts = append(counts, wordCounts)
		}

		m.Results = append(m.Results, summary)
	}

	m.AggregateKeywords = analytics.TopKeywords(analytics.Reduce(counts...), 25)
	return m
}

// Write saves the manifest as summary-<command>-<timestamp>.json in the
// storage directory and returns its path.
func (m SummaryManifest) Write(s *storage.Storage) (string, error) {
	name := fmt.Sprintf("summary-%s-%s.json", m.Command, time.Now().Format("20060102-150405"))
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", fmt.Errorf("error marshalling manifest: %w", err)
	}

	path := s.Path(name)
	if err := s.SaveFile(path, data); err != nil {
		return "", fmt.Errorf("error saving manifest: %w", err)
	}
	return path, nil
}
