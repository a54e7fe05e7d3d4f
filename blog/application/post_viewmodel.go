package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dfryer1193/postpage/blog/domain"
	"github.com/dfryer1193/postpage/shared/metrics"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// DefaultFetchTimeout bounds a single fetch when no timeout is configured.
const DefaultFetchTimeout = 10 * time.Second

// PostViewModel turns an identifier into a post, flattening every failure into a
// domain.PostError.
type PostViewModel struct {
	fetcher  domain.PostFetcher
	timeout  time.Duration
	logger   zerolog.Logger
	recorder metrics.Recorder
	group    singleflight.Group
}

// ViewModelOption configures a PostViewModel.
type ViewModelOption func(*PostViewModel)

// WithFetchTimeout bounds each fetch. Non-positive values keep the default.
func WithFetchTimeout(d time.Duration) ViewModelOption {
	return func(vm *PostViewModel) {
		if d > 0 {
			vm.timeout = d
		}
	}
}

// WithLogger sets the sink for raw transport errors.
func WithLogger(l zerolog.Logger) ViewModelOption {
	return func(vm *PostViewModel) {
		vm.logger = l
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) ViewModelOption {
	return func(vm *PostViewModel) {
		if r != nil {
			vm.recorder = r
		}
	}
}

func NewPostViewModel(fetcher domain.PostFetcher, opts ...ViewModelOption) *PostViewModel {
	vm := &PostViewModel{
		fetcher:  fetcher,
		timeout:  DefaultFetchTimeout,
		logger:   log.Logger,
		recorder: metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(vm)
	}
	return vm
}

// Load fetches the post named by id. idErr is the result of identifier extraction;
// when it is set no fetch is attempted.
//
// The returned error is always a domain.PostError. Transport errors are logged and
// reported as domain.ErrServerError.
func (vm *PostViewModel) Load(ctx context.Context, id domain.PostIdentifier, idErr error) (*domain.Post, error) {
	if idErr != nil {
		return nil, normalizeIdentifierError(idErr)
	}
	if id == "" {
		return nil, domain.ErrInvalidIdentifier
	}

	// Concurrent loads of the same post share one fetch. The shared fetch is detached
	// from any single caller so one reader navigating away doesn't fail the others.
	ch := vm.group.DoChan(id.String(), func() (any, error) {
		return vm.fetch(context.WithoutCancel(ctx), id)
	})

	select {
	case <-ctx.Done():
		vm.logger.Debug().Err(ctx.Err()).Str("postID", id.String()).Msg("Post load abandoned")
		return nil, domain.ErrServerError
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*domain.Post), nil
	}
}

func (vm *PostViewModel) fetch(ctx context.Context, id domain.PostIdentifier) (*domain.Post, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, vm.timeout)
	defer cancel()

	start := time.Now()
	post, err := vm.fetcher.FetchPost(fetchCtx, id)
	vm.recorder.ObserveFetchDuration(time.Since(start), err == nil)

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("fetch timed out after %s: %w", vm.timeout, err)
		}
		vm.logger.Error().Err(err).Str("postID", id.String()).Msg("Failed to fetch post")
		return nil, domain.ErrServerError
	}
	if post == nil {
		return nil, domain.ErrPostNotFound
	}
	return post, nil
}

func normalizeIdentifierError(err error) domain.PostError {
	var pe domain.PostError
	if errors.As(err, &pe) {
		return domain.Classify(pe)
	}
	return domain.ErrInvalidIdentifier
}
