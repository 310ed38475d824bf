package models

// BlockType is the type tag of a content block.
type BlockType string

const (
	BlockHeading1         BlockType = "heading_1"
	BlockHeading2         BlockType = "heading_2"
	BlockHeading3         BlockType = "heading_3"
	BlockParagraph        BlockType = "paragraph"
	BlockQuote            BlockType = "quote"
	BlockBulletedListItem BlockType = "bulleted_list_item"
	BlockNumberedListItem BlockType = "numbered_list_item"
	BlockToDo             BlockType = "to_do"
	BlockCode             BlockType = "code"
	BlockImage            BlockType = "image"
	BlockDivider          BlockType = "divider"
	BlockChildPage        BlockType = "child_page"
	BlockLinkPreview      BlockType = "link_preview"
	BlockUnknown          BlockType = "unknown"
)

var knownBlockTypes = map[BlockType]struct{}{
	BlockHeading1: {}, BlockHeading2: {}, BlockHeading3: {},
	BlockParagraph: {}, BlockQuote: {},
	BlockBulletedListItem: {}, BlockNumberedListItem: {},
	BlockToDo: {}, BlockCode: {}, BlockImage: {}, BlockDivider: {},
	BlockChildPage: {}, BlockLinkPreview: {},
}

// ParseBlockType maps a raw type tag onto the closed set, returning
// BlockUnknown for anything else.
func ParseBlockType(raw string) BlockType {
	t := BlockType(raw)
	if _, ok := knownBlockTypes[t]; ok {
		return t
	}
	return BlockUnknown
}

// InlineSpan is one fragment of rich text.
type InlineSpan struct {
	PlainText     string `json:"plain_text"`
	Href          string `json:"href,omitempty"`
	AnnotationURL string `json:"annotation_url,omitempty"`
}

// Block is one node of a remote content tree.
type Block struct {
	ID          string    `json:"id"`
	Type        BlockType `json:"type"`
	RawType     string    `json:"raw_type,omitempty"` // original tag when Type is BlockUnknown
	HasChildren bool      `json:"has_children"`

	RichText   []InlineSpan `json:"rich_text,omitempty"` // text-bearing blocks
	ImageURL   string       `json:"image_url,omitempty"`
	ChildTitle string       `json:"child_title,omitempty"`
	LinkURL    string       `json:"link_url,omitempty"` // link_preview
}

// BlockPage is one page of children returned by a block source.
// An empty NextCursor means there are no further pages.
type BlockPage struct {
	Blocks     []Block `json:"blocks"`
	NextCursor string  `json:"next_cursor,omitempty"`
}
