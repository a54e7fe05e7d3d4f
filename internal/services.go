package internal

import (
	"errors"
	"fmt"

	"github.com/dfryer1193/postpage/blog/application"
	"github.com/dfryer1193/postpage/blog/domain"
	"github.com/dfryer1193/postpage/blog/persistence"
	"github.com/dfryer1193/postpage/shared/db/sqlite"
	gh "github.com/dfryer1193/postpage/shared/github"
	webhook "github.com/dfryer1193/postpage/webhook/http"
)

var errConfigRequired = errors.New("config is required")

// services holds the post backends selected by the configuration.
type services struct {
	database *sqlite.SQLiteDB
	fetcher  domain.PostFetcher
	// sync is set when the SQLite store is fed from a Markdown directory or a
	// GitHub repository.
	sync    *application.SyncService
	webhook *webhook.WebhookHandler
}

func newServices(cfg *Config) (*services, error) {
	markdown := application.NewMarkdownRenderer(cfg.App.BaseURL)

	if cfg.Source.Kind == SourceFiles {
		source := persistence.NewMarkdownDirectory(cfg.Source.Dir)
		return &services{fetcher: application.NewDocumentFetcher(source, markdown)}, nil
	}

	database := sqlite.NewSQLiteDB(&cfg.SQLite)
	if err := database.Connect(); err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}

	repo := persistence.NewPostRepository(database.DB())
	svc := &services{database: database, fetcher: repo}

	switch {
	case cfg.Source.Kind == SourceGitHub:
		ghCfg := cfg.Source.GitHub
		source := gh.NewSource(gh.NewClient(ghCfg.Token), ghCfg.Owner, ghCfg.Repo, ghCfg.Ref, ghCfg.Path)
		svc.sync = application.NewSyncService(repo, source, markdown)

		if ghCfg.WebhookSecret != "" {
			hook, err := webhook.NewWebhookHandler(ghCfg.WebhookSecret, ghCfg.FullName(), ghCfg.Ref, svc.sync)
			if err != nil {
				database.Close()
				return nil, err
			}
			svc.webhook = hook
		}
	case cfg.Source.Dir != "":
		svc.sync = application.NewSyncService(repo, persistence.NewMarkdownDirectory(cfg.Source.Dir), markdown)
	}

	return svc, nil
}

func (s *services) Close() error {
	if s.database == nil {
		return nil
	}
	return s.database.Close()
}
