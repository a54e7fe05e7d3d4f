package rest

import (
	"net/http"

	"github.com/dfryer1193/postpage/api"
	"github.com/dfryer1193/postpage/blog/application"
	"github.com/dfryer1193/postpage/blog/domain"
	"github.com/dfryer1193/postpage/blog/render"
	"github.com/dfryer1193/postpage/blog/textmetrics"
	"github.com/dfryer1193/postpage/shared/metrics"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const pageTemplate = "page.html"

// PostHandler serves post pages. Each request drives its own stager through one load
// cycle.
type PostHandler struct {
	loader   render.Loader
	renderer *render.Renderer
	calc     *textmetrics.Calculator
	recorder metrics.Recorder
}

func NewPostHandler(loader render.Loader, renderer *render.Renderer, calc *textmetrics.Calculator, recorder metrics.Recorder) *PostHandler {
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	return &PostHandler{
		loader:   loader,
		renderer: renderer,
		calc:     calc,
		recorder: recorder,
	}
}

// GetPostPage serves the full HTML document for /blog/:id.
func (h *PostHandler) GetPostPage(c *gin.Context) {
	id, idErr := application.ExtractIdentifier(c)

	page, status, ok := h.stage(c, id, idErr)
	if !ok {
		return
	}
	c.HTML(status, pageTemplate, page)
}

// GetPost serves the rendered fragment and its metadata as JSON.
func (h *PostHandler) GetPost(c *gin.Context) {
	id, idErr := application.ExtractIdentifier(application.ParamMap{
		application.IDParam: c.Param("postId"),
	})

	page, status, ok := h.stage(c, id, idErr)
	if !ok {
		return
	}
	c.JSON(status, api.PostPage{
		State: page.State,
		HTML:  string(page.Body),
		Title: page.Title(),
		Meta:  page.Meta,
	})
}

// stage loads id and renders the terminal state. It reports false after answering
// the request itself.
func (h *PostHandler) stage(c *gin.Context, id domain.PostIdentifier, idErr error) (render.Page, int, bool) {
	stager := render.NewStager(h.loader, h.renderer, h.calc, render.WithStagerRecorder(h.recorder))
	defer stager.Close()

	ctx := c.Request.Context()
	stager.Navigate(ctx, id, idErr)

	st, err := stager.Wait(ctx)
	if err != nil {
		// The client went away before the post settled.
		log.Debug().Err(err).Str("postID", id.String()).Msg("Request cancelled while loading post")
		c.AbortWithStatus(http.StatusServiceUnavailable)
		return render.Page{}, 0, false
	}

	page, err := stager.Render()
	if err != nil {
		log.Error().Err(err).Str("postID", id.String()).Msg("Failed to render post page")
		c.AbortWithStatusJSON(http.StatusInternalServerError, api.Error{Error: http.StatusText(http.StatusInternalServerError)})
		return render.Page{}, 0, false
	}

	return page, statusFor(st), true
}

func statusFor(st render.State) int {
	failed, ok := st.(render.Failed)
	if !ok {
		return http.StatusOK
	}
	switch failed.Err {
	case domain.ErrInvalidIdentifier:
		return http.StatusBadRequest
	case domain.ErrPostNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
