// Package flattener converts a remote tree of typed content blocks into one
// normalized text blob and the set of links found along the way.
package flattener

import (
	"context"
	"log/slog"
	"strings"

	"github.com/dtnitsch/notion-corpus/models"
	"github.com/dtnitsch/notion-corpus/pkg/richtext"
)

// DepthLimit is the recursion depth at which child pages stop being followed.
// Nested has_children blocks share the same counter.
const DepthLimit = 3

// BlockSource serves one page of a block's children per call.
type BlockSource interface {
	GetChildren(ctx context.Context, blockID string, pageSize int, cursor string) (models.BlockPage, error)
}

// Config bounds how much of a single block's children are read.
type Config struct {
	PageSize int // children per request. Default: 100
	MaxPages int // requests per block. Default: 20
}

// Result is the flattened form of one block tree. URLs are unique and sorted.
type Result struct {
	Content string
	URLs    []string
}

// Flattener walks block trees through a BlockSource.
type Flattener struct {
	source BlockSource
	logger *slog.Logger
	cfg    Config
}

// New creates a Flattener.
func New(source BlockSource, logger *slog.Logger, cfg Config) *Flattener {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.PageSize <= 0 || cfg.PageSize > 100 {
		cfg.PageSize = 100
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 20
	}
	return &Flattener{source: source, logger: logger, cfg: cfg}
}

// Flatten renders the tree rooted at rootID. Fetch failures are logged and
// the affected subtree contributes whatever was read before the failure, so
// Flatten itself never fails.
func (f *Flattener) Flatten(ctx context.Context, rootID string) Result {
	content, urls := f.flatten(ctx, rootID, 0)
	return Result{Content: content, URLs: models.UniqueURLs(urls)}
}

// flatten returns owned content and urls for one block's children. Callers
// merge them; nothing is shared across branches.
func (f *Flattener) flatten(ctx context.Context, blockID string, depth int) (string, []string) {
	blocks := f.children(ctx, blockID)

	var sb strings.Builder
	var urls []string
	for _, block := range blocks {
		text, found := f.renderBlock(ctx, block, depth)
		sb.WriteString(text)
		urls = append(urls, found...)

		if block.Type != models.BlockChildPage && block.HasChildren && depth < DepthLimit {
			nested, nestedURLs := f.flatten(ctx, block.ID, depth+1)
			sb.WriteString(indent(nested))
			sb.WriteString("\n\n")
			urls = append(urls, nestedURLs...)
		}
	}
	return strings.Trim(sb.String(), "\n "), models.UniqueURLs(urls)
}

func (f *Flattener) renderBlock(ctx context.Context, block models.Block, depth int) (string, []string) {
	switch block.Type {
	case models.BlockHeading1, models.BlockHeading2, models.BlockHeading3:
		text, urls := richtext.Render(block.RichText)
		return "# " + text + "\n\n", urls
	case models.BlockParagraph, models.BlockQuote:
		text, urls := richtext.Render(block.RichText)
		return text + "\n", urls
	case models.BlockBulletedListItem, models.BlockNumberedListItem:
		text, urls := richtext.Render(block.RichText)
		return "- " + text + "\n", urls
	case models.BlockToDo:
		text, urls := richtext.Render(block.RichText)
		return "[] " + text + "\n", urls
	case models.BlockCode:
		text, urls := richtext.Render(block.RichText)
		return "```\n" + text + "\n```\n", urls
	case models.BlockImage:
		u := block.ImageURL
		if u == "" {
			u = "No URL"
		}
		return "[Image](" + u + ")\n", nil
	case models.BlockDivider:
		return "---\n\n", nil
	case models.BlockLinkPreview:
		var urls []string
		if block.LinkURL != "" {
			urls = []string{richtext.NormalizeURL(block.LinkURL)}
		}
		return "[Link Preview](" + block.LinkURL + ")\n", urls
	case models.BlockChildPage:
		title := block.ChildTitle
		if title == "" {
			title = "Untitled"
		}
		if depth >= DepthLimit {
			return "\n\n<child_page>\n# " + title + "\n</child_page>\n\n", nil
		}
		nested, urls := f.flatten(ctx, block.ID, depth+1)
		return "\n\n<child_page>\n# " + title + "\n\n" + nested + "\n</child_page>\n\n", urls
	default:
		f.logger.Warn("Unknown block type", "block_id", block.ID, "type", block.RawType)
		return "", nil
	}
}

// children reads every page of blockID's children up to MaxPages. A failed
// request ends the read and keeps the blocks gathered so far.
func (f *Flattener) children(ctx context.Context, blockID string) []models.Block {
	var blocks []models.Block
	cursor := ""
	for page := 0; page < f.cfg.MaxPages; page++ {
		res, err := f.source.GetChildren(ctx, blockID, f.cfg.PageSize, cursor)
		if err != nil {
			f.logger.Error("Failed to retrieve block children",
				"block_id", blockID,
				"page", page,
				"error_type", models.ErrorType(err),
				"error", err)
			return blocks
		}
		blocks = append(blocks, res.Blocks...)
		if res.NextCursor == "" {
			return blocks
		}
		cursor = res.NextCursor
	}
	f.logger.Warn("Block children truncated at page limit", "block_id", blockID, "max_pages", f.cfg.MaxPages)
	return blocks
}

func indent(content string) string {
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = "\t" + line
	}
	return strings.Join(lines, "\n")
}
