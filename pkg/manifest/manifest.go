package manifest

// SummaryManifest represents the structure of the summary JSON file.
// It provides a lightweight overview of one expansion batch: every attempted
// URL, its status, and where the resulting document was written.
type SummaryManifest struct {
	GeneratedAt       string         `json:"generated_at"`
	Command           string         `json:"command"`
	RunID             int64          `json:"run_id,omitempty"`
	Documents         int            `json:"documents"`
	TotalURLs         int            `json:"total_urls"`
	Successful        int            `json:"successful"`
	Failed            int            `json:"failed"`
	ErrorTypes        map[string]int `json:"error_types,omitempty"`
	AggregateKeywords []string       `json:"aggregate_keywords"` // top words across produced documents
	Results           []URLSummary   `json:"results"`
}

// URLSummary represents summary information for a single URL.
type URLSummary struct {
	URL          string   `json:"url"`
	ParentID     string   `json:"parent_id"`
	Status       string   `json:"status"` // "success" or "error"
	DocumentID   string   `json:"document_id,omitempty"`
	FilePath     string   `json:"file_path,omitempty"`
	ContentBytes int      `json:"content_bytes,omitempty"`
	DurationMS   int64    `json:"duration_ms"`
	ErrorType    string   `json:"error_type,omitempty"`
	ErrorMessage string   `json:"error_message,omitempty"`
	TopKeywords  []string `json:"top_keywords,omitempty"`
}
