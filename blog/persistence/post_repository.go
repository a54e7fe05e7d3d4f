package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dfryer1193/postpage/blog/domain"
	"github.com/dfryer1193/postpage/shared/db"
)

var (
	_ domain.PostRepository = (*SQLitePostRepository)(nil)
	_ domain.Transactor     = (*SQLitePostRepository)(nil)
)

// SQLitePostRepository implements domain.PostRepository using SQL database (SQLite)
type SQLitePostRepository struct {
	db *sql.DB
}

// NewPostRepository creates a new SQLitePostRepository from a standard sql.DB
func NewPostRepository(db *sql.DB) *SQLitePostRepository {
	return &SQLitePostRepository{
		db: db,
	}
}

// RunInTransaction runs fn in a transaction; repository calls made with the context
// handed to fn join it.
func (r *SQLitePostRepository) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return db.RunInTransaction(ctx, r.db, fn)
}

const upsertPostQuery = `
	INSERT INTO posts (id, title, description, content, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		title = excluded.title,
		description = excluded.description,
		content = excluded.content,
		created_at = excluded.created_at,
		updated_at = excluded.updated_at
`

// UpsertPost inserts p or replaces the stored post with the same ID.
func (r *SQLitePostRepository) UpsertPost(ctx context.Context, p *domain.Post) error {
	if p == nil {
		return fmt.Errorf("post cannot be nil")
	}

	if p.ID == "" {
		return fmt.Errorf("post ID cannot be empty")
	}

	if p.Metadata.CreatedAt.IsZero() {
		return fmt.Errorf("post %s has no creation time", p.ID)
	}

	var updatedAt any
	if !p.UpdatedAt.IsZero() {
		updatedAt = p.UpdatedAt.UTC()
	}

	_, err := db.GetExecutor(ctx, r.db).ExecContext(ctx, upsertPostQuery,
		p.ID.String(),
		p.Metadata.Title,
		p.Metadata.Description,
		p.Content,
		p.Metadata.CreatedAt.UTC(),
		updatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert post: %w", err)
	}

	return nil
}

const getPostQuery = `
		SELECT id, title, description, content, created_at, updated_at
		FROM posts
		WHERE id = ?
`

// FetchPost retrieves a single post by ID. A missing post is reported as nil with no
// error.
func (r *SQLitePostRepository) FetchPost(ctx context.Context, id domain.PostIdentifier) (*domain.Post, error) {
	if id == "" {
		return nil, fmt.Errorf("post ID cannot be empty")
	}

	var row postRow
	err := db.GetExecutor(ctx, r.db).QueryRowContext(ctx, getPostQuery, id.String()).Scan(
		&row.ID,
		&row.Title,
		&row.Description,
		&row.Content,
		&row.CreatedAt,
		&row.UpdatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get post %s: %w", id, err)
	}

	return row.toDomain(), nil
}

const deletePostQuery = `DELETE FROM posts WHERE id = ?`

// DeletePost removes a post. Deleting a post that does not exist is not an error.
func (r *SQLitePostRepository) DeletePost(ctx context.Context, id domain.PostIdentifier) error {
	if id == "" {
		return fmt.Errorf("post ID cannot be empty")
	}

	if _, err := db.GetExecutor(ctx, r.db).ExecContext(ctx, deletePostQuery, id.String()); err != nil {
		return fmt.Errorf("failed to delete post %s: %w", id, err)
	}

	return nil
}

const listPostIDsQuery = `SELECT id FROM posts ORDER BY id`

// ListPostIDs returns the IDs of all stored posts in ascending order.
func (r *SQLitePostRepository) ListPostIDs(ctx context.Context) ([]domain.PostIdentifier, error) {
	rows, err := db.GetExecutor(ctx, r.db).QueryContext(ctx, listPostIDsQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to list post ids: %w", err)
	}
	defer rows.Close()

	ids := make([]domain.PostIdentifier, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan post id: %w", err)
		}
		ids = append(ids, domain.PostIdentifier(id))
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating post rows: %w", err)
	}

	return ids, nil
}

const listPostVersionsQuery = `SELECT id, updated_at FROM posts`

// ListPostVersions returns the stored updated_at of every post. Posts without one map
// to the zero time.
func (r *SQLitePostRepository) ListPostVersions(ctx context.Context) (map[domain.PostIdentifier]time.Time, error) {
	rows, err := db.GetExecutor(ctx, r.db).QueryContext(ctx, listPostVersionsQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to list post versions: %w", err)
	}
	defer rows.Close()

	versions := make(map[domain.PostIdentifier]time.Time)
	for rows.Next() {
		var (
			id        string
			updatedAt sql.NullTime
		)
		if err := rows.Scan(&id, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan post version: %w", err)
		}
		versions[domain.PostIdentifier(id)] = updatedAt.Time
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating post rows: %w", err)
	}

	return versions, nil
}

// postRow is a private struct used to scan database rows
type postRow struct {
	ID          string       `db:"id"`
	Title       string       `db:"title"`
	Description string       `db:"description"`
	Content     string       `db:"content"`
	CreatedAt   time.Time    `db:"created_at"`
	UpdatedAt   sql.NullTime `db:"updated_at"`
}

func (pr *postRow) toDomain() *domain.Post {
	post := &domain.Post{
		ID: domain.PostIdentifier(pr.ID),
		Metadata: domain.PostMetadata{
			Title:       pr.Title,
			Description: pr.Description,
			CreatedAt:   pr.CreatedAt,
		},
		Content: pr.Content,
	}

	if pr.UpdatedAt.Valid {
		post.UpdatedAt = pr.UpdatedAt.Time
	}

	return post
}
