// Package detector derives cheap page signals from a URL and its extracted
// text: domain classification, academic markers, and a confidence score.
package detector

import (
	"net/url"
	"regexp"
	"strings"
)

// Signals are the detection results for one page.
type Signals struct {
	DomainType string // gov, edu, academic, mobile, commercial
	Category   string // gov/health, academic/ai, docs/api, blog, news/tech, general
	Country    string // TLD-based guess: us, uk, de, jp, or unknown

	DOI           string
	ArXivID       string
	HasLaTeX      bool
	HasCitations  bool
	HasReferences bool
	HasAbstract   bool
	AcademicScore float64 // 0-10
}

// PageFacts are the extracted metadata that raise confidence when present.
type PageFacts struct {
	Byline    string
	SiteName  string
	Published string
}

var (
	doiPattern   = regexp.MustCompile(`10\.\d{4,}/[^\s)\]]+`)
	arxivPattern = regexp.MustCompile(`arXiv:(\d{4}\.\d{4,5})`)

	academicDomains = []string{
		"arxiv.org", "doi.org", "pubmed.ncbi.nlm.nih.gov",
		"scholar.google.com", "researchgate.net", "academia.edu",
		"biorxiv.org", "medrxiv.org", "ssrn.com",
	}
	newsDomains     = []string{"techcrunch", "wired", "arstechnica", "theverge", "hacker", "news"}
	countryTLDs     = "uk de fr jp cn au ca in br ru it es nl se ch"
	latexMarkers    = []string{"\\begin{", "\\end{", "\\cite{", "\\ref{", "\\label{"}
	citationMarkers = []string{"et al.", "et al ", "[1]", "[2]", "(1)", "(2)"}
)

// Analyze classifies rawURL and scans content for academic markers. An
// unparsable URL yields zero Signals.
func Analyze(rawURL, content string) Signals {
	var s Signals
	u, err := url.Parse(rawURL)
	if err != nil {
		return s
	}
	host := strings.ToLower(u.Hostname())
	path := strings.ToLower(u.Path)

	s.DomainType = domainType(host)
	s.Country = country(host)
	s.Category = category(host, path, s.DomainType)
	s.scanAcademic(content)
	return s
}

func domainType(host string) string {
	switch {
	case strings.HasSuffix(host, ".gov"), strings.HasSuffix(host, ".mil"):
		return "gov"
	case strings.HasSuffix(host, ".edu"):
		return "edu"
	}
	for _, d := range academicDomains {
		if strings.Contains(host, d) {
			return "academic"
		}
	}
	if strings.HasPrefix(host, "m.") || strings.HasPrefix(host, "mobile.") {
		return "mobile"
	}
	return "commercial"
}

func country(host string) string {
	parts := strings.Split(host, ".")
	if len(parts) < 2 {
		return "unknown"
	}
	tld := parts[len(parts)-1]
	for _, c := range strings.Fields(countryTLDs) {
		if tld == c {
			return c
		}
	}
	// US implied for .gov, .edu and .mil
	if tld == "gov" || tld == "edu" || tld == "mil" {
		return "us"
	}
	return "unknown"
}

func category(host, path, domainType string) string {
	switch domainType {
	case "gov":
		for _, k := range []string{"health", "cdc", "nih", "fda"} {
			if strings.Contains(host, k) {
				return "gov/health"
			}
		}
		return "gov/general"
	case "academic", "edu":
		if strings.Contains(path, "/ai/") || strings.Contains(path, "/ml/") || strings.HasPrefix(host, "ai.") {
			return "academic/ai"
		}
		return "academic/general"
	}

	switch {
	case strings.HasPrefix(host, "docs.") || strings.Contains(path, "/docs/") || strings.Contains(path, "/documentation/"),
		strings.HasPrefix(host, "api.") || strings.Contains(path, "/api/"):
		return "docs/api"
	case strings.HasPrefix(host, "blog.") || strings.Contains(path, "/blog/"):
		return "blog"
	}
	for _, d := range newsDomains {
		if strings.Contains(host, d) {
			return "news/tech"
		}
	}
	return "general"
}

func (s *Signals) scanAcademic(content string) {
	lower := strings.ToLower(content)

	s.DOI = doiPattern.FindString(content)
	if m := arxivPattern.FindStringSubmatch(content); len(m) > 1 {
		s.ArXivID = m[1]
	}
	for _, marker := range latexMarkers {
		if strings.Contains(content, marker) {
			s.HasLaTeX = true
			break
		}
	}
	citations := 0
	for _, marker := range citationMarkers {
		if strings.Contains(lower, marker) {
			citations++
		}
	}
	s.HasCitations = citations >= 2
	s.HasReferences = strings.Contains(lower, "references") || strings.Contains(lower, "bibliography")
	s.HasAbstract = strings.Contains(lower, "abstract")

	score := 0.0
	if s.DOI != "" {
		score += 3.0
	}
	if s.ArXivID != "" {
		score += 3.0
	}
	if s.HasLaTeX {
		score += 1.5
	}
	if s.HasCitations {
		score += 1.0
	}
	if s.HasReferences {
		score += 1.0
	}
	if s.HasAbstract {
		score += 0.5
	}
	s.AcademicScore = score
}

// Confidence scores, from 0 to 10, how trustworthy the page looks as a
// corpus source.
func (s Signals) Confidence(facts PageFacts) float64 {
	confidence := 5.0

	switch s.DomainType {
	case "gov", "edu":
		confidence += 2.0
	case "academic":
		confidence += 3.0
	case "mobile":
		confidence += 1.0
	}
	confidence += s.AcademicScore * 0.3

	if facts.Byline != "" {
		confidence += 0.5
	}
	if facts.Published != "" {
		confidence += 0.5
	}
	if facts.SiteName != "" {
		confidence += 0.3
	}

	if confidence > 10.0 {
		confidence = 10.0
	}
	return confidence
}
