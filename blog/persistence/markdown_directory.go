package persistence

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dfryer1193/postpage/blog/domain"
)

const markdownExt = ".md"

var _ domain.PostSource = (*MarkdownDirectory)(nil)

// MarkdownDirectory serves the *.md files at the top level of a directory.
type MarkdownDirectory struct {
	dir string
}

func NewMarkdownDirectory(dir string) *MarkdownDirectory {
	return &MarkdownDirectory{dir: dir}
}

// Dir returns the directory being served.
func (d *MarkdownDirectory) Dir() string {
	return d.dir
}

// ListDocuments reads every Markdown document in the directory, ordered by name.
func (d *MarkdownDirectory) ListDocuments(ctx context.Context) ([]domain.SourceDocument, error) {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read post directory %s: %w", d.dir, err)
	}

	docs := make([]domain.SourceDocument, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), markdownExt) {
			continue
		}

		doc, err := d.read(strings.TrimSuffix(entry.Name(), markdownExt))
		if err != nil {
			return nil, err
		}
		if doc != nil {
			docs = append(docs, *doc)
		}
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].Name < docs[j].Name })
	return docs, nil
}

// ReadDocument reads <dir>/<name>.md.
func (d *MarkdownDirectory) ReadDocument(ctx context.Context, name string) (*domain.SourceDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return nil, fmt.Errorf("invalid document name %q", name)
	}
	return d.read(name)
}

func (d *MarkdownDirectory) read(name string) (*domain.SourceDocument, error) {
	path := filepath.Join(d.dir, name+markdownExt)

	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, nil
	}

	content, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		// Removed between stat and read.
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	return &domain.SourceDocument{
		Name:       name,
		Path:       path,
		Content:    content,
		ModifiedAt: info.ModTime().UTC(),
	}, nil
}
