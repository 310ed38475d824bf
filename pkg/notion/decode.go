package notion

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dtnitsch/notion-corpus/models"
	"github.com/dtnitsch/notion-corpus/pkg/richtext"
)

type listResponse struct {
	Results    []json.RawMessage `json:"results"`
	NextCursor *string           `json:"next_cursor"`
	HasMore    bool              `json:"has_more"`
}

func (l listResponse) cursor() string {
	if !l.HasMore || l.NextCursor == nil {
		return ""
	}
	return *l.NextCursor
}

type wireRichText struct {
	PlainText   string  `json:"plain_text"`
	Href        *string `json:"href"`
	Annotations struct {
		URL string `json:"url"`
	} `json:"annotations"`
	Text *struct {
		Content string `json:"content"`
	} `json:"text"`
}

func (w wireRichText) span() models.InlineSpan {
	s := models.InlineSpan{PlainText: w.PlainText, AnnotationURL: w.Annotations.URL}
	if s.PlainText == "" && w.Text != nil {
		s.PlainText = w.Text.Content
	}
	if w.Href != nil {
		s.Href = *w.Href
	}
	return s
}

func spans(in []wireRichText) []models.InlineSpan {
	if len(in) == 0 {
		return nil
	}
	out := make([]models.InlineSpan, len(in))
	for i, w := range in {
		out[i] = w.span()
	}
	return out
}

type wireFile struct {
	URL string `json:"url"`
}

type wirePayload struct {
	RichText []wireRichText `json:"rich_text"`
	Title    string         `json:"title"`
	URL      string         `json:"url"`
	External *wireFile      `json:"external"`
	File     *wireFile      `json:"file"`
}

type wireBlockHeader struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	HasChildren bool   `json:"has_children"`
}

// decodeBlock maps one raw block object onto models.Block.
func decodeBlock(raw json.RawMessage) (models.Block, error) {
	var header wireBlockHeader
	if err := json.Unmarshal(raw, &header); err != nil {
		return models.Block{}, fmt.Errorf("%w: block: %v", models.ErrMalformedResponse, err)
	}
	if header.ID == "" || header.Type == "" {
		return models.Block{}, fmt.Errorf("%w: block without id or type", models.ErrMalformedResponse)
	}

	block := models.Block{
		ID:          header.ID,
		Type:        models.ParseBlockType(header.Type),
		HasChildren: header.HasChildren,
	}
	if block.Type == models.BlockUnknown {
		block.RawType = header.Type
		return block, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return models.Block{}, fmt.Errorf("%w: block %s: %v", models.ErrMalformedResponse, header.ID, err)
	}
	var payload wirePayload
	if body, ok := fields[header.Type]; ok && len(body) > 0 && string(body) != "null" {
		if err := json.Unmarshal(body, &payload); err != nil {
			return models.Block{}, fmt.Errorf("%w: block %s payload: %v", models.ErrMalformedResponse, header.ID, err)
		}
	}

	switch block.Type {
	case models.BlockImage:
		switch {
		case payload.External != nil && payload.External.URL != "":
			block.ImageURL = payload.External.URL
		case payload.File != nil:
			block.ImageURL = payload.File.URL
		}
	case models.BlockChildPage:
		block.ChildTitle = payload.Title
	case models.BlockLinkPreview:
		block.LinkURL = payload.URL
	case models.BlockDivider:
	default:
		block.RichText = spans(payload.RichText)
	}
	return block, nil
}

// decodeBlockPage decodes one page of block children. A block that cannot be
// decoded is logged and skipped; its siblings are kept.
func decodeBlockPage(data []byte, logger *slog.Logger) (models.BlockPage, error) {
	var list listResponse
	if err := json.Unmarshal(data, &list); err != nil {
		return models.BlockPage{}, fmt.Errorf("%w: block list: %v", models.ErrMalformedResponse, err)
	}
	page := models.BlockPage{
		Blocks:     make([]models.Block, 0, len(list.Results)),
		NextCursor: list.cursor(),
	}
	for _, raw := range list.Results {
		block, err := decodeBlock(raw)
		if err != nil {
			logger.Warn("Skipping undecodable block", "error_type", models.ErrorType(err), "error", err)
			continue
		}
		page.Blocks = append(page.Blocks, block)
	}
	return page, nil
}

type wireProperty struct {
	Type   string `json:"type"`
	Select *struct {
		Name string `json:"name"`
	} `json:"select"`
	Status *struct {
		Name string `json:"name"`
	} `json:"status"`
	MultiSelect []struct {
		Name string `json:"name"`
	} `json:"multi_select"`
	Title    []wireRichText `json:"title"`
	RichText []wireRichText `json:"rich_text"`
	Number   *float64       `json:"number"`
	Checkbox bool           `json:"checkbox"`
	Date     *struct {
		Start string  `json:"start"`
		End   *string `json:"end"`
	} `json:"date"`
	Relation []struct {
		ID string `json:"id"`
	} `json:"relation"`
}

// decodeProperty maps a page property value onto the closed Property set.
// Kinds without a dedicated variant are kept verbatim as opaque values.
func decodeProperty(raw json.RawMessage) (models.Property, error) {
	var w wireProperty
	if err := json.Unmarshal(raw, &w); err != nil {
		return models.Property{}, fmt.Errorf("%w: property: %v", models.ErrMalformedResponse, err)
	}
	switch w.Type {
	case "select":
		if w.Select == nil {
			return models.SelectProperty(""), nil
		}
		return models.SelectProperty(w.Select.Name), nil
	case "status":
		if w.Status == nil {
			return models.SelectProperty(""), nil
		}
		return models.SelectProperty(w.Status.Name), nil
	case "multi_select":
		names := make([]string, 0, len(w.MultiSelect))
		for _, o := range w.MultiSelect {
			names = append(names, o.Name)
		}
		return models.MultiSelectProperty(names...), nil
	case "title":
		return models.TitleProperty(richtext.Text(spans(w.Title))), nil
	case "rich_text":
		return models.RichTextProperty(richtext.Text(spans(w.RichText))), nil
	case "number":
		if w.Number == nil {
			return models.Property{Kind: models.PropertyNumber}, nil
		}
		return models.NumberProperty(*w.Number), nil
	case "checkbox":
		return models.CheckboxProperty(w.Checkbox), nil
	case "date":
		if w.Date == nil {
			return models.Property{Kind: models.PropertyDate}, nil
		}
		end := ""
		if w.Date.End != nil {
			end = *w.Date.End
		}
		return models.DateProperty(w.Date.Start, end), nil
	case "relation":
		ids := make([]string, 0, len(w.Relation))
		for _, r := range w.Relation {
			ids = append(ids, r.ID)
		}
		return models.RelationProperty(ids...), nil
	default:
		return models.OpaqueProperty(raw), nil
	}
}

type wirePage struct {
	ID         string                     `json:"id"`
	URL        string                     `json:"url"`
	Properties map[string]json.RawMessage `json:"properties"`
}

func decodePage(data []byte) (models.DocumentMetadata, error) {
	var w wirePage
	if err := json.Unmarshal(data, &w); err != nil {
		return models.DocumentMetadata{}, fmt.Errorf("%w: page: %v", models.ErrMalformedResponse, err)
	}
	if w.ID == "" {
		return models.DocumentMetadata{}, fmt.Errorf("%w: page without id", models.ErrMalformedResponse)
	}
	meta := models.DocumentMetadata{
		ID:         w.ID,
		URL:        w.URL,
		Properties: make(map[string]models.Property, len(w.Properties)),
	}
	for name, raw := range w.Properties {
		prop, err := decodeProperty(raw)
		if err != nil {
			return models.DocumentMetadata{}, fmt.Errorf("page %s property %q: %w", w.ID, name, err)
		}
		if prop.Kind == models.PropertyTitle && meta.Title == "" {
			meta.Title = prop.Text
		}
		meta.Properties[name] = prop
	}
	return meta, nil
}

type wireDatabase struct {
	ID          string         `json:"id"`
	URL         string         `json:"url"`
	Title       []wireRichText `json:"title"`
	Description []wireRichText `json:"description"`
}

func decodeDatabase(data []byte) (models.DocumentMetadata, error) {
	var w wireDatabase
	if err := json.Unmarshal(data, &w); err != nil {
		return models.DocumentMetadata{}, fmt.Errorf("%w: database: %v", models.ErrMalformedResponse, err)
	}
	if w.ID == "" {
		return models.DocumentMetadata{}, fmt.Errorf("%w: database without id", models.ErrMalformedResponse)
	}
	meta := models.DocumentMetadata{
		ID:         w.ID,
		URL:        w.URL,
		Title:      strings.TrimSpace(richtext.Text(spans(w.Title))),
		Properties: map[string]models.Property{},
	}
	if desc := richtext.Text(spans(w.Description)); desc != "" {
		meta.Properties["description"] = models.RichTextProperty(desc)
	}
	return meta, nil
}
