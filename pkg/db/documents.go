package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dtnitsch/notion-corpus/internal/common"
	"github.com/dtnitsch/notion-corpus/models"
)

// Document sources.
const (
	SourceNotion   = "notion"
	SourceExpanded = "expanded"
)

// DocumentRecord is the stored metadata of a document.
type DocumentRecord struct {
	DocumentID   string
	Source       string
	URL          string
	Title        string
	ParentID     string
	ParentTitle  string
	ContentHash  string
	ContentBytes int64
	FilePath     string
	RunID        sql.NullInt64
	ChildURLs    int
	UpdatedAt    time.Time
}

// UpsertDocument stores doc's metadata and child URLs. Re-inserting a document
// replaces its row and its child URL set. Unparseable child URLs are skipped.
func (db *DB) UpsertDocument(doc models.Document, source, filePath string, runID int64) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var parentID, parentTitle string
	if doc.ParentMetadata != nil {
		parentID = doc.ParentMetadata.ID
		parentTitle = doc.ParentMetadata.Title
	}

	_, err = tx.Exec(`
		INSERT INTO documents (document_id, source, url, title, parent_id, parent_title,
			content_hash, content_bytes, file_path, run_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(document_id) DO UPDATE SET
			source = excluded.source,
			url = excluded.url,
			title = excluded.title,
			parent_id = excluded.parent_id,
			parent_title = excluded.parent_title,
			content_hash = excluded.content_hash,
			content_bytes = excluded.content_bytes,
			file_path = excluded.file_path,
			run_id = excluded.run_id,
			updated_at = CURRENT_TIMESTAMP
	`, doc.ID, source, doc.Metadata.URL, doc.Metadata.Title, NewNullString(parentID), NewNullString(parentTitle),
		common.ContentHash([]byte(doc.Content)), len(doc.Content), NewNullString(filePath), nullID(runID))
	if err != nil {
		return fmt.Errorf("failed to upsert document %s: %w", doc.ID, err)
	}

	if _, err := tx.Exec(`DELETE FROM document_child_urls WHERE document_id = ?`, doc.ID); err != nil {
		return fmt.Errorf("failed to reset child URLs of %s: %w", doc.ID, err)
	}
	for _, u := range doc.ChildURLs {
		urlID, err := insertURL(tx, u)
		if errors.Is(err, ErrInvalidURL) {
			continue
		}
		if err != nil {
			return err
		}
		if _, err := tx.Exec(`INSERT OR IGNORE INTO document_child_urls (document_id, url_id) VALUES (?, ?)`, doc.ID, urlID); err != nil {
			return fmt.Errorf("failed to link child URL: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit document %s: %w", doc.ID, err)
	}
	return nil
}

const documentColumns = `
	d.document_id, d.source, COALESCE(d.url, ''), COALESCE(d.title, ''),
	COALESCE(d.parent_id, ''), COALESCE(d.parent_title, ''),
	d.content_hash, COALESCE(d.content_bytes, 0), COALESCE(d.file_path, ''),
	d.run_id, d.updated_at,
	(SELECT COUNT(*) FROM document_child_urls c WHERE c.document_id = d.document_id)`

func scanDocument(scan func(dest ...any) error) (DocumentRecord, error) {
	var d DocumentRecord
	err := scan(&d.DocumentID, &d.Source, &d.URL, &d.Title, &d.ParentID, &d.ParentTitle,
		&d.ContentHash, &d.ContentBytes, &d.FilePath, &d.RunID, &d.UpdatedAt, &d.ChildURLs)
	return d, err
}

// GetDocument returns the stored metadata of one document.
func (db *DB) GetDocument(documentID string) (*DocumentRecord, error) {
	d, err := scanDocument(db.QueryRow(`SELECT `+documentColumns+` FROM documents d WHERE d.document_id = ?`, documentID).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("document %s not found", documentID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return &d, nil
}

// ListDocuments returns stored documents, newest first. An empty source lists
// every source; a limit <= 0 returns every document.
func (db *DB) ListDocuments(source string, limit int) ([]DocumentRecord, error) {
	query := `SELECT ` + documentColumns + ` FROM documents d`
	var args []any
	if source != "" {
		query += " WHERE d.source = ?"
		args = append(args, source)
	}
	query += " ORDER BY d.updated_at DESC, d.document_id"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []DocumentRecord
	for rows.Next() {
		d, err := scanDocument(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// ChildURLs returns the child URLs recorded for a document, sorted.
func (db *DB) ChildURLs(documentID string) ([]string, error) {
	rows, err := db.Query(`
		SELECT u.original_url
		FROM document_child_urls c
		JOIN urls u ON c.url_id = u.url_id
		WHERE c.document_id = ?
		ORDER BY u.original_url
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get child URLs: %w", err)
	}
	defer rows.Close()

	var urls []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("failed to scan child URL: %w", err)
		}
		urls = append(urls, u)
	}
	return urls, rows.Err()
}
