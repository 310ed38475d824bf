package models

import "strings"

// DocumentMetadata describes a source document.
type DocumentMetadata struct {
	ID         string              `json:"id"`
	URL        string              `json:"url"`
	Title      string              `json:"title"`
	Properties map[string]Property `json:"properties"`
	Parent     *DocumentMetadata   `json:"parent,omitempty"`
}

// Clone returns a deep copy.
func (m DocumentMetadata) Clone() DocumentMetadata {
	out := m
	if m.Properties != nil {
		out.Properties = make(map[string]Property, len(m.Properties))
		for k, v := range m.Properties {
			out.Properties[k] = v.clone()
		}
	}
	if m.Parent != nil {
		p := m.Parent.Clone()
		out.Parent = &p
	}
	return out
}

// Obfuscate returns a copy with the identifier replaced by a fresh one from gen.
// The original identifier, without dashes, is also replaced inside the URL.
// The parent chain is obfuscated the same way. The receiver is not modified.
func (m DocumentMetadata) Obfuscate(gen func() string) DocumentMetadata {
	out := m.Clone()
	originalID := strings.ReplaceAll(m.ID, "-", "")
	fakeID := gen()
	out.ID = fakeID
	if originalID != "" {
		out.URL = strings.ReplaceAll(out.URL, originalID, fakeID)
	}
	if m.Parent != nil {
		p := m.Parent.Obfuscate(gen)
		out.Parent = &p
	}
	return out
}
