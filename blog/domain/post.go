package domain

import (
	"context"
	"time"
)

// PostIdentifier names a post. Values are only produced by identifier extraction,
// so a non-empty PostIdentifier has already passed validation.
type PostIdentifier string

func (id PostIdentifier) String() string {
	return string(id)
}

// PostMetadata describes a post. It is immutable once fetched.
type PostMetadata struct {
	Title       string
	Description string
	CreatedAt   time.Time
}

// Post represents a blog post
// Content is rendered HTML and is trusted as-is; the data source is responsible for sanitizing it.
type Post struct {
	ID       PostIdentifier
	Metadata PostMetadata
	Content  string

	// UpdatedAt is when the post's source last changed. Zero when unknown.
	UpdatedAt time.Time
}

// PostFetcher retrieves a single post.
//
// A nil post with a nil error means no post exists for id. Any non-nil error is a
// transport failure and is never shown to readers.
type PostFetcher interface {
	FetchPost(ctx context.Context, id PostIdentifier) (*Post, error)
}

// PostRepository is a PostFetcher that can also be written to by the importer.
type PostRepository interface {
	PostFetcher

	UpsertPost(ctx context.Context, p *Post) error
	DeletePost(ctx context.Context, id PostIdentifier) error
	ListPostIDs(ctx context.Context) ([]PostIdentifier, error)
	// ListPostVersions maps every stored post to its UpdatedAt.
	ListPostVersions(ctx context.Context) (map[PostIdentifier]time.Time, error)
}

// Transactor is implemented by repositories that can group writes atomically.
type Transactor interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
