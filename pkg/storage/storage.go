// Package storage persists documents and run artifacts on the local disk.
package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/dtnitsch/notion-corpus/models"
	"github.com/dtnitsch/notion-corpus/pkg/idgen"
)

// Storage writes under a root directory.
type Storage struct {
	dir string
}

// FileStats holds metadata about a file without reading its contents.
type FileStats struct {
	SizeBytes int64
	ModTime   time.Time
}

// WriteOptions controls how a document is written.
type WriteOptions struct {
	Obfuscate bool            // replace identifiers before writing
	AlsoText  bool            // write the content to <id>.txt as well
	IDGen     idgen.Generator // used by Obfuscate. Default: idgen.Default
}

// New creates a Storage rooted at dir, creating it if needed.
func New(dir string) (*Storage, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("error creating output directory: %w", err)
	}
	return &Storage{dir: dir}, nil
}

// Dir returns the root directory.
func (s *Storage) Dir() string { return s.dir }

// Path joins name onto the root directory.
func (s *Storage) Path(name string) string { return filepath.Join(s.dir, name) }

// WriteDocument writes doc to <dir>/<id>.json and returns the document as
// written, which differs from doc when obfuscated, plus its path.
func (s *Storage) WriteDocument(doc models.Document, opts WriteOptions) (models.Document, string, error) {
	if opts.Obfuscate {
		gen := opts.IDGen
		if gen == nil {
			gen = idgen.Default
		}
		doc = doc.Obfuscate(gen)
	}
	if doc.ID == "" {
		return doc, "", fmt.Errorf("error writing document: empty id")
	}

	data, err := encodeDocument(doc)
	if err != nil {
		return doc, "", err
	}
	path := s.Path(doc.ID + ".json")
	if err := s.SaveFile(path, data); err != nil {
		return doc, "", err
	}
	if opts.AlsoText {
		if err := s.SaveFile(s.Path(doc.ID+".txt"), []byte(doc.Content)); err != nil {
			return doc, path, err
		}
	}
	return doc, path, nil
}

func encodeDocument(doc models.Document) ([]byte, error) {
	if doc.ChildURLs == nil {
		doc.ChildURLs = []string{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("error marshalling document %s: %w", doc.ID, err)
	}
	return buf.Bytes(), nil
}

// ReadDocument loads a document written by WriteDocument.
func (s *Storage) ReadDocument(path string) (models.Document, error) {
	data, err := s.ReadFile(path)
	if err != nil {
		return models.Document{}, err
	}
	var doc models.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return models.Document{}, fmt.Errorf("error decoding document %s: %w", path, err)
	}
	return doc, nil
}

// ReadDocuments loads every document matching a doublestar pattern relative
// to the root directory, e.g. "**/*.json". Results are ordered by path.
func (s *Storage) ReadDocuments(pattern string) ([]models.Document, error) {
	matches, err := doublestar.FilepathGlob(filepath.Join(s.dir, pattern))
	if err != nil {
		return nil, fmt.Errorf("error matching %q: %w", pattern, err)
	}
	sort.Strings(matches)
	docs := make([]models.Document, 0, len(matches))
	for _, m := range matches {
		doc, err := s.ReadDocument(m)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// SaveFile writes content to filePath, creating parent directories.
func (s *Storage) SaveFile(filePath string, content []byte) error {
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("error saving file: %w", err)
	}
	if err := os.WriteFile(filePath, content, 0644); err != nil {
		return fmt.Errorf("error saving file: %w", err)
	}
	return nil
}

func (s *Storage) ReadFile(filePath string) ([]byte, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("error reading file: %w", err)
	}
	return data, nil
}

// GetFileStats returns metadata about a file using os.Stat.
func (s *Storage) GetFileStats(filePath string) (*FileStats, error) {
	info, err := os.Stat(filePath)
	if err != nil {
		return nil, fmt.Errorf("error getting file stats: %w", err)
	}
	return &FileStats{
		SizeBytes: info.Size(),
		ModTime:   info.ModTime(),
	}, nil
}
