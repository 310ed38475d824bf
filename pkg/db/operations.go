package db

import (
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"time"
)

// ErrInvalidURL is returned for URLs that cannot be parsed.
var ErrInvalidURL = errors.New("invalid URL")

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	QueryRow(query string, args ...any) *sql.Row
}

// InsertURL parses and inserts a URL, returning the url_id.
// If the URL already exists, returns the existing url_id.
func (db *DB) InsertURL(rawURL string) (int64, error) {
	return insertURL(db.DB, rawURL)
}

func insertURL(q querier, rawURL string) (int64, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	var existingID int64
	err = q.QueryRow("SELECT url_id FROM urls WHERE original_url = ?", rawURL).Scan(&existingID)
	if err == nil {
		return existingID, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("failed to check existing URL: %w", err)
	}

	// Canonical URL is scheme + host + path, no query/fragment
	canonicalURL := fmt.Sprintf("%s://%s%s", parsed.Scheme, parsed.Host, parsed.Path)

	result, err := q.Exec(`
		INSERT INTO urls (original_url, canonical_url, scheme, domain, path)
		VALUES (?, ?, ?, ?, ?)
	`, rawURL, canonicalURL, parsed.Scheme, parsed.Host, parsed.Path)
	if err != nil {
		return 0, fmt.Errorf("failed to insert URL: %w", err)
	}

	urlID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get URL ID: %w", err)
	}
	return urlID, nil
}

// GetURLID returns the url_id for a given original URL.
func (db *DB) GetURLID(originalURL string) (int64, error) {
	var urlID int64
	err := db.QueryRow("SELECT url_id FROM urls WHERE original_url = ?", originalURL).Scan(&urlID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("URL not found: %s", originalURL)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get URL ID: %w", err)
	}
	return urlID, nil
}

// RecordAccess records an expansion fetch attempt in url_accesses. A runID
// of 0 records the access without a run.
func (db *DB) RecordAccess(runID, urlID int64, errorType string, success bool, duration time.Duration) error {
	_, err := db.Exec(`
		INSERT INTO url_accesses (url_id, run_id, duration_ms, error_type, success)
		VALUES (?, ?, ?, ?, ?)
	`, urlID, nullID(runID), duration.Milliseconds(), errorType, success)
	if err != nil {
		return fmt.Errorf("failed to record access: %w", err)
	}
	return nil
}

// AccessRecord represents a URL access attempt.
type AccessRecord struct {
	AccessID   int64
	RunID      sql.NullInt64
	AccessedAt time.Time
	DurationMS int64
	ErrorType  string
	Success    bool
}

// GetLastAccess returns the most recent access record for a URL, or nil
// when the URL was never fetched.
func (db *DB) GetLastAccess(urlID int64) (*AccessRecord, error) {
	var record AccessRecord
	err := db.QueryRow(`
		SELECT access_id, run_id, accessed_at, duration_ms, error_type, success
		FROM url_accesses
		WHERE url_id = ?
		ORDER BY access_id DESC
		LIMIT 1
	`, urlID).Scan(&record.AccessID, &record.RunID, &record.AccessedAt, &record.DurationMS, &record.ErrorType, &record.Success)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get last access: %w", err)
	}
	return &record, nil
}

// AccessSummary counts accesses of a run by error type. Successful accesses
// are counted under the empty error type.
func (db *DB) AccessSummary(runID int64) (map[string]int, error) {
	rows, err := db.Query(`
		SELECT COALESCE(error_type, ''), COUNT(*)
		FROM url_accesses
		WHERE run_id = ?
		GROUP BY error_type
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize accesses: %w", err)
	}
	defer rows.Close()

	out := map[string]int{}
	for rows.Next() {
		var errorType string
		var n int
		if err := rows.Scan(&errorType, &n); err != nil {
			return nil, fmt.Errorf("failed to scan access summary: %w", err)
		}
		out[errorType] = n
	}
	return out, rows.Err()
}

// NewNullString creates a sql.NullString from a string value.
func NewNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id > 0}
}
