package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/dtnitsch/notion-corpus/models"
)

func sampleDocument() models.Document {
	meta := models.DocumentMetadata{
		ID:         "1234abcd-0000-0000-0000-000000000000",
		URL:        "https://www.notion.so/Page-1234abcd000000000000000000000000",
		Title:      "Page <one>",
		Properties: map[string]models.Property{"Tags": models.MultiSelectProperty("a", "b")},
		Parent:     &models.DocumentMetadata{ID: "db", Title: "Database"},
	}
	return models.NewDocument(meta, "# Page\n\nsee <https://x.example/?a=1&b=2>", []string{"https://x.example/"})
}

func TestWriteReadDocument(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	doc := sampleDocument()

	written, path, err := s.WriteDocument(doc, WriteOptions{AlsoText: true})
	if err != nil {
		t.Fatalf("WriteDocument() failed: %v", err)
	}
	if path != filepath.Join(s.Dir(), doc.ID+".json") {
		t.Errorf("path = %s", path)
	}
	if written.ID != doc.ID {
		t.Errorf("written ID = %s, want %s", written.ID, doc.ID)
	}

	raw, _ := os.ReadFile(path)
	if !strings.Contains(string(raw), "&b=2") || !strings.Contains(string(raw), "<one>") {
		t.Errorf("document JSON should not escape HTML:\n%s", raw)
	}
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(raw, &keys); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, k := range []string{"id", "metadata", "parent_metadata", "content", "child_urls"} {
		if _, ok := keys[k]; !ok {
			t.Errorf("missing key %q", k)
		}
	}

	text, err := os.ReadFile(filepath.Join(s.Dir(), doc.ID+".txt"))
	if err != nil || string(text) != doc.Content {
		t.Errorf("text file = %q, %v", text, err)
	}

	got, err := s.ReadDocument(path)
	if err != nil {
		t.Fatalf("ReadDocument() failed: %v", err)
	}
	if !reflect.DeepEqual(got, doc) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, doc)
	}
}

func TestWriteDocument_Obfuscate(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	doc := sampleDocument()
	ids := []string{"aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"}
	next := 0
	gen := func() string { id := ids[next]; next++; return id }

	written, path, err := s.WriteDocument(doc, WriteOptions{Obfuscate: true, IDGen: gen})
	if err != nil {
		t.Fatalf("WriteDocument() failed: %v", err)
	}
	if written.ID != ids[0] || filepath.Base(path) != ids[0]+".json" {
		t.Errorf("written ID = %s, path = %s", written.ID, path)
	}
	if !strings.HasSuffix(written.Metadata.URL, ids[0]) {
		t.Errorf("URL not rewritten: %s", written.Metadata.URL)
	}
	if written.ParentMetadata.ID != ids[1] {
		t.Errorf("parent ID = %s", written.ParentMetadata.ID)
	}
	if doc.ID != "1234abcd-0000-0000-0000-000000000000" {
		t.Error("WriteDocument mutated its input")
	}
}

func TestReadDocuments(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	for _, id := range []string{"b", "a"} {
		if _, _, err := s.WriteDocument(models.NewDocument(models.DocumentMetadata{ID: id}, id, nil), WriteOptions{}); err != nil {
			t.Fatalf("WriteDocument() failed: %v", err)
		}
	}
	nested := models.NewDocument(models.DocumentMetadata{ID: "c"}, "c", nil)
	sub, _ := New(filepath.Join(s.Dir(), "expanded"))
	if _, _, err := sub.WriteDocument(nested, WriteOptions{AlsoText: true}); err != nil {
		t.Fatalf("WriteDocument() failed: %v", err)
	}

	tests := []struct {
		pattern string
		want    []string
	}{
		{"*.json", []string{"a", "b"}},
		{"**/*.json", []string{"a", "b", "c"}},
		{"expanded/*.json", []string{"c"}},
		{"*.yaml", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			docs, err := s.ReadDocuments(tt.pattern)
			if err != nil {
				t.Fatalf("ReadDocuments() failed: %v", err)
			}
			got := []string{}
			for _, d := range docs {
				got = append(got, d.ID)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ids = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWriteDocument_EmptyID(t *testing.T) {
	s, _ := New(t.TempDir())
	if _, _, err := s.WriteDocument(models.Document{}, WriteOptions{}); err == nil {
		t.Error("expected error for empty id")
	}
}

func TestGetFileStats(t *testing.T) {
	s, _ := New(t.TempDir())
	path := s.Path("summary.json")
	if err := s.SaveFile(path, []byte(`{"ok":true}`)); err != nil {
		t.Fatalf("SaveFile() failed: %v", err)
	}

	stats, err := s.GetFileStats(path)
	if err != nil {
		t.Fatalf("GetFileStats() failed: %v", err)
	}
	if stats.SizeBytes != 11 {
		t.Errorf("SizeBytes = %d, want 11", stats.SizeBytes)
	}
	if stats.ModTime.IsZero() {
		t.Error("ModTime is zero")
	}

	if _, err := s.GetFileStats(filepath.Join(s.Dir(), "missing.json")); err == nil {
		t.Error("GetFileStats() should fail for a missing file")
	}
}
