package domain

import (
	"context"
	"time"
)

// SourceDocument is a Markdown post as held by its source.
type SourceDocument struct {
	// Name is the file name without its .md extension. It becomes the post identifier
	// once validated.
	Name       string
	Path       string
	Content    []byte
	ModifiedAt time.Time
}

// PostSource gives access to the Markdown documents posts are built from.
type PostSource interface {
	ListDocuments(ctx context.Context) ([]SourceDocument, error)
	// ReadDocument returns nil and no error when no document exists for name.
	ReadDocument(ctx context.Context, name string) (*SourceDocument, error)
}
