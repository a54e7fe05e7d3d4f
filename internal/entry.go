// Package internal wires the post server together and runs it.
package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/dfryer1193/postpage/api"
	"github.com/dfryer1193/postpage/blog/application"
	"github.com/dfryer1193/postpage/blog/domain"
	"github.com/dfryer1193/postpage/blog/render"
	"github.com/dfryer1193/postpage/blog/textmetrics"
	"github.com/dfryer1193/postpage/internal/rest"
	"github.com/dfryer1193/postpage/shared/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

var errSyncUnavailable = errors.New("importing requires the sqlite or github source")

// Run starts the HTTP server and blocks until ctx is cancelled, a shutdown signal
// arrives, or one of the background tasks fails.
func Run(ctx context.Context, opts ...Option) error {
	o, err := newOptions(opts)
	if err != nil {
		return err
	}
	cfg := o.config

	log.Info().
		Str("http_address", cfg.App.HTTP.Address()).
		Str("source", cfg.Source.Kind).
		Str("source_dir", cfg.Source.Dir).
		Str("sqlite_path", cfg.SQLite.Path).
		Msg("Configuration loaded")

	svc, err := newServices(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close database")
		}
	}()

	if svc.sync != nil && cfg.Source.SyncOnStart {
		if _, err := svc.sync.Sync(ctx, false); err != nil {
			log.Warn().Err(err).Msg("Initial sync failed")
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder := metrics.NewPrometheusRecorder(reg)

	handler, err := newPostHandler(cfg, svc.fetcher, recorder)
	if err != nil {
		return err
	}

	router, err := rest.NewRouter(handler, recorder, metrics.HTTPHandler(reg))
	if err != nil {
		return fmt.Errorf("init router: %w", err)
	}
	if svc.webhook != nil {
		svc.webhook.RegisterRoutes(router)
	}

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)

	if svc.sync != nil && cfg.Source.Watch {
		g.Go(func() error {
			return svc.sync.Watch(gCtx, cfg.Source.Dir)
		})
	}
	if svc.webhook != nil {
		g.Go(func() error {
			return svc.webhook.Run(gCtx)
		})
	}

	g.Go(func() error {
		log.Info().Str("address", httpServer.Addr).Msg("Starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		log.Info().Msg("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("HTTP server shutdown error")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	log.Info().Msg("Server stopped")
	return nil
}

func newPostHandler(cfg *Config, fetcher domain.PostFetcher, recorder metrics.Recorder) (*rest.PostHandler, error) {
	renderer, err := render.NewRenderer(cfg.App.SiteName)
	if err != nil {
		return nil, fmt.Errorf("init renderer: %w", err)
	}

	vm := application.NewPostViewModel(fetcher,
		application.WithFetchTimeout(cfg.App.FetchTimeout),
		application.WithRecorder(recorder),
	)
	return rest.NewPostHandler(vm, renderer, textmetrics.NewCalculator(cfg.Reading), recorder), nil
}

// Import syncs posts into the configured SQLite store, from dir or, when dir is
// empty, from the configured source.
func Import(ctx context.Context, dir string, full bool, opts ...Option) (application.SyncReport, error) {
	o, err := newOptions(opts)
	if err != nil {
		return application.SyncReport{}, err
	}
	cfg := *o.config
	if cfg.Source.Kind == SourceFiles {
		return application.SyncReport{}, errSyncUnavailable
	}
	if dir != "" {
		cfg.Source.Kind = SourceSQLite
		cfg.Source.Dir = dir
	}
	if cfg.Source.Kind == SourceSQLite && cfg.Source.Dir == "" {
		return application.SyncReport{}, errors.New("no post directory given")
	}

	svc, err := newServices(&cfg)
	if err != nil {
		return application.SyncReport{}, err
	}
	defer svc.Close()

	return svc.sync.Sync(ctx, full)
}

// RenderPost loads a single post the way the server does and writes the resulting
// page to w as JSON. The returned error is the post's failure, if any.
func RenderPost(ctx context.Context, rawID string, w io.Writer, opts ...Option) error {
	o, err := newOptions(opts)
	if err != nil {
		return err
	}

	svc, err := newServices(o.config)
	if err != nil {
		return err
	}
	defer svc.Close()

	renderer, err := render.NewRenderer(o.config.App.SiteName)
	if err != nil {
		return fmt.Errorf("init renderer: %w", err)
	}
	vm := application.NewPostViewModel(svc.fetcher, application.WithFetchTimeout(o.config.App.FetchTimeout))

	stager := render.NewStager(vm, renderer, textmetrics.NewCalculator(o.config.Reading))
	defer stager.Close()

	id, idErr := application.ParseIdentifier(rawID)
	stager.Navigate(ctx, id, idErr)
	st, err := stager.Wait(ctx)
	if err != nil {
		return err
	}

	page, err := stager.Render()
	if err != nil {
		return fmt.Errorf("failed to render post page: %w", err)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(api.PostPage{
		State: page.State,
		HTML:  string(page.Body),
		Title: page.Title(),
		Meta:  page.Meta,
	}); err != nil {
		return err
	}

	if failed, ok := st.(render.Failed); ok {
		return failed.Err
	}
	return nil
}
