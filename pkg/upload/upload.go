// Package upload copies run artifacts to object storage or any other
// location afs understands (s3://, file://, mem://).
package upload

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"
	_ "github.com/viant/afsc/s3"
)

// Uploader writes artifacts under a base URL.
type Uploader struct {
	fs      afs.Service
	baseURL string
	logger  *slog.Logger
}

// New creates an Uploader for baseURL, e.g. "s3://bucket/notion".
func New(baseURL string, logger *slog.Logger) (*Uploader, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("upload: empty destination URL")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Uploader{fs: afs.New(), baseURL: strings.TrimSuffix(baseURL, "/"), logger: logger}, nil
}

// URL returns the destination URL for name.
func (u *Uploader) URL(name string) string {
	return url.Join(u.baseURL, filepath.ToSlash(name))
}

// Upload writes data to name under the base URL.
func (u *Uploader) Upload(ctx context.Context, name string, data []byte) error {
	dest := u.URL(name)
	if err := u.fs.Upload(ctx, dest, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("upload %s: %w", dest, err)
	}
	u.logger.Debug("Uploaded artifact", "url", dest, "bytes", len(data))
	return nil
}

// UploadFiles uploads local files, keeping their paths relative to root.
// It stops at the first failure and returns how many files were uploaded.
func (u *Uploader) UploadFiles(ctx context.Context, root string, paths []string) (int, error) {
	for i, p := range paths {
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return i, fmt.Errorf("upload %s: %w", p, err)
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return i, fmt.Errorf("upload %s: %w", p, err)
		}
		if err := u.Upload(ctx, rel, data); err != nil {
			return i, err
		}
	}
	u.logger.Info("Uploaded artifacts", "destination", u.baseURL, "files", len(paths))
	return len(paths), nil
}
