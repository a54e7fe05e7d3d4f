package application

import (
	"context"
	"fmt"

	"github.com/dfryer1193/postpage/blog/domain"
)

// BuildPost renders doc into a post. When the document has no created_at field the
// creation time of existing is kept, falling back to the file's modification time.
func BuildPost(markdown MarkdownRenderer, doc *domain.SourceDocument, existing *domain.Post) (*domain.Post, error) {
	id, err := ParseIdentifier(doc.Name)
	if err != nil {
		return nil, fmt.Errorf("document %s: %w", doc.Path, err)
	}

	result, err := markdown.Render(doc.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", doc.Path, err)
	}

	createdAt := result.CreatedAt
	if createdAt.IsZero() && existing != nil {
		createdAt = existing.Metadata.CreatedAt
	}
	if createdAt.IsZero() {
		createdAt = doc.ModifiedAt
	}

	return &domain.Post{
		ID: id,
		Metadata: domain.PostMetadata{
			Title:       result.Title,
			Description: result.Description,
			CreatedAt:   createdAt,
		},
		Content:   string(result.HTMLContent),
		UpdatedAt: doc.ModifiedAt,
	}, nil
}

var _ domain.PostFetcher = (*DocumentFetcher)(nil)

// DocumentFetcher serves posts straight from a PostSource, rendering on every fetch.
type DocumentFetcher struct {
	source   domain.PostSource
	markdown MarkdownRenderer
}

func NewDocumentFetcher(source domain.PostSource, markdown MarkdownRenderer) *DocumentFetcher {
	return &DocumentFetcher{source: source, markdown: markdown}
}

func (f *DocumentFetcher) FetchPost(ctx context.Context, id domain.PostIdentifier) (*domain.Post, error) {
	doc, err := f.source.ReadDocument(ctx, id.String())
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, nil
	}
	return BuildPost(f.markdown, doc, nil)
}
