// Package richtext renders inline text spans into plain text and extracts
// the links they carry.
package richtext

import (
	"strings"

	"github.com/dtnitsch/notion-corpus/models"
)

// Render concatenates the plain text of spans and collects one normalized URL
// per span that carries a link. Block-level formatting is left to the caller.
func Render(spans []models.InlineSpan) (string, []string) {
	var sb strings.Builder
	var urls []string
	for _, span := range spans {
		sb.WriteString(span.PlainText)
		if u := spanURL(span); u != "" {
			urls = append(urls, NormalizeURL(u))
		}
	}
	return sb.String(), urls
}

// Text is Render without the URLs.
func Text(spans []models.InlineSpan) string {
	text, _ := Render(spans)
	return text
}

func spanURL(span models.InlineSpan) string {
	if span.Href != "" {
		return span.Href
	}
	return span.AnnotationURL
}

// NormalizeURL appends a trailing slash when missing. Nothing else about the
// URL is canonicalized; downstream equality depends on exactly this form.
func NormalizeURL(u string) string {
	if !strings.HasSuffix(u, "/") {
		u += "/"
	}
	return u
}
