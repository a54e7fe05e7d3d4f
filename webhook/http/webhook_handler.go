package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/dfryer1193/postpage/blog/application"
	"github.com/gin-gonic/gin"
	"github.com/google/go-github/v75/github"
	"github.com/rs/zerolog/log"
)

// Syncer re-imports posts from their source.
type Syncer interface {
	Sync(ctx context.Context, full bool) (application.SyncReport, error)
}

// WebhookHandler turns GitHub push events for the posts repository into syncs.
// Syncs run on Run's goroutine; pushes arriving while one is pending are folded into it.
type WebhookHandler struct {
	webhookSecret []byte
	repoName      string
	ref           string
	syncer        Syncer
	trigger       chan struct{}
}

// NewWebhookHandler creates a handler for pushes to repoName at ref. An empty ref
// follows the repository's default branch. A full ref such as refs/tags/v1 is matched
// exactly and any other value names a branch, so a commit SHA never matches a push.
func NewWebhookHandler(secret, repoName, ref string, syncer Syncer) (*WebhookHandler, error) {
	if secret == "" {
		return nil, errors.New("webhook secret is not set")
	}

	return &WebhookHandler{
		webhookSecret: []byte(secret),
		repoName:      repoName,
		ref:           ref,
		syncer:        syncer,
		trigger:       make(chan struct{}, 1),
	}, nil
}

func (h *WebhookHandler) RegisterRoutes(r gin.IRoutes) {
	r.POST("/webhook/git", h.HandleGitWebhook)
}

func (h *WebhookHandler) HandleGitWebhook(c *gin.Context) {
	payload, err := github.ValidatePayload(c.Request, h.webhookSecret)
	if err != nil {
		log.Warn().Err(err).Msg("Rejected webhook payload")
		c.String(http.StatusBadRequest, "Invalid payload")
		return
	}

	event, err := github.ParseWebHook(github.WebHookType(c.Request), payload)
	if err != nil {
		c.String(http.StatusBadRequest, "Invalid event")
		return
	}

	switch evt := event.(type) {
	case *github.PingEvent:
		c.JSON(http.StatusOK, gin.H{"status": "pong"})
		return
	case *github.PushEvent:
		if evt.GetRepo().GetFullName() != h.repoName {
			break
		}
		want := h.watchedRef(evt)
		if evt.GetRef() == want {
			h.schedule()
			c.JSON(http.StatusAccepted, gin.H{"status": "sync scheduled"})
			return
		}
		log.Warn().
			Str("repo", h.repoName).
			Str("ref", evt.GetRef()).
			Str("watchedRef", want).
			Msg("Ignoring push to an unwatched ref")
	}

	c.Status(http.StatusNoContent)
}

// watchedRef is the full ref whose pushes trigger a sync. A configured ref that is
// already qualified (refs/tags/v1) is used as is; anything else names a branch.
func (h *WebhookHandler) watchedRef(evt *github.PushEvent) string {
	ref := h.ref
	if ref == "" {
		ref = evt.GetRepo().GetDefaultBranch()
	}
	if strings.HasPrefix(ref, "refs/") {
		return ref
	}
	return "refs/heads/" + ref
}

func (h *WebhookHandler) schedule() {
	select {
	case h.trigger <- struct{}{}:
	default:
	}
}

// Run performs scheduled syncs until ctx is cancelled.
func (h *WebhookHandler) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-h.trigger:
			if _, err := h.syncer.Sync(ctx, false); err != nil {
				log.Error().Err(err).Str("repo", h.repoName).Msg("Webhook sync failed")
			}
		}
	}
}
