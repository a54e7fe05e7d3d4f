package application

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/dfryer1193/postpage/blog/domain"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

const watchDebounce = 200 * time.Millisecond

// SyncReport counts what a sync did.
type SyncReport struct {
	Imported  int
	Unchanged int
	Removed   int
	Skipped   int
}

// SyncService keeps a PostRepository in step with a PostSource.
type SyncService struct {
	repo     domain.PostRepository
	source   domain.PostSource
	markdown MarkdownRenderer
}

func NewSyncService(repo domain.PostRepository, source domain.PostSource, markdown MarkdownRenderer) *SyncService {
	return &SyncService{
		repo:     repo,
		source:   source,
		markdown: markdown,
	}
}

// Sync imports every document from the source and removes stored posts whose
// documents are gone. Unless full is set, a document whose modification time matches
// its stored post's UpdatedAt is left alone. Documents that fail to render are skipped
// and logged. The writes happen in one transaction when the repository supports it.
func (s *SyncService) Sync(ctx context.Context, full bool) (SyncReport, error) {
	var report SyncReport

	docs, err := s.source.ListDocuments(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to list documents: %w", err)
	}

	err = s.inTransaction(ctx, func(ctx context.Context) error {
		report = SyncReport{}

		stored, err := s.repo.ListPostVersions(ctx)
		if err != nil {
			return fmt.Errorf("failed to list stored posts: %w", err)
		}

		seen := make(map[domain.PostIdentifier]bool, len(docs))
		for i := range docs {
			doc := &docs[i]
			id, err := ParseIdentifier(doc.Name)
			if err != nil {
				log.Warn().Str("path", doc.Path).Msg("Skipping document with invalid post identifier")
				report.Skipped++
				continue
			}
			seen[id] = true

			if !full && unchanged(doc, stored) {
				report.Unchanged++
				continue
			}

			if err := s.importDocument(ctx, doc); err != nil {
				log.Error().Err(err).Str("path", doc.Path).Msg("Failed to import document")
				report.Skipped++
				continue
			}
			report.Imported++
		}

		for id := range stored {
			if seen[id] {
				continue
			}
			if err := s.repo.DeletePost(ctx, id); err != nil {
				return err
			}
			report.Removed++
		}

		return nil
	})
	if err != nil {
		return SyncReport{}, err
	}

	log.Info().
		Int("imported", report.Imported).
		Int("unchanged", report.Unchanged).
		Int("removed", report.Removed).
		Int("skipped", report.Skipped).
		Msg("Synced posts")
	return report, nil
}

// SyncDocument re-imports a single document by name, deleting the stored post when
// the document no longer exists.
func (s *SyncService) SyncDocument(ctx context.Context, name string) error {
	id, err := ParseIdentifier(name)
	if err != nil {
		return fmt.Errorf("document %q: %w", name, err)
	}

	doc, err := s.source.ReadDocument(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to read document %s: %w", name, err)
	}

	if doc == nil {
		return s.repo.DeletePost(ctx, id)
	}
	return s.importDocument(ctx, doc)
}

// unchanged reports whether doc is already stored at its current version. Documents
// with no known modification time are always re-imported.
func unchanged(doc *domain.SourceDocument, stored map[domain.PostIdentifier]time.Time) bool {
	updatedAt, ok := stored[domain.PostIdentifier(doc.Name)]
	return ok && !doc.ModifiedAt.IsZero() && doc.ModifiedAt.Equal(updatedAt)
}

func (s *SyncService) importDocument(ctx context.Context, doc *domain.SourceDocument) error {
	id, err := ParseIdentifier(doc.Name)
	if err != nil {
		return err
	}

	existing, err := s.repo.FetchPost(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to look up post %s: %w", id, err)
	}

	post, err := BuildPost(s.markdown, doc, existing)
	if err != nil {
		return err
	}

	return s.repo.UpsertPost(ctx, post)
}

func (s *SyncService) inTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if tx, ok := s.repo.(domain.Transactor); ok {
		return tx.RunInTransaction(ctx, fn)
	}
	return fn(ctx)
}

// Watch follows changes to the Markdown files in dir until ctx is cancelled.
// Events for the same file are collapsed over a short debounce window before the
// file is synced.
func (s *SyncService) Watch(ctx context.Context, dir string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	log.Info().Str("dir", dir).Msg("Watching post directory")

	pending := make(map[string]struct{})
	timer := time.NewTimer(watchDebounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("dir", dir).Msg("Stopped watching post directory")
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			name, ok := documentName(ev.Name)
			if !ok || ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			pending[name] = struct{}{}
			timer.Reset(watchDebounce)

		case <-timer.C:
			for name := range pending {
				if err := s.SyncDocument(ctx, name); err != nil {
					log.Error().Err(err).Str("document", name).Msg("Failed to sync document")
					continue
				}
				log.Debug().Str("document", name).Msg("Synced document")
			}
			clear(pending)

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Error().Err(watchErr).Str("dir", dir).Msg("Watcher error")
		}
	}
}

// documentName returns the post name for a Markdown file path.
func documentName(path string) (string, bool) {
	base := filepath.Base(path)
	if !strings.HasSuffix(base, ".md") || strings.HasPrefix(base, ".") {
		return "", false
	}
	return strings.TrimSuffix(base, ".md"), true
}
