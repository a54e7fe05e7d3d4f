package rest

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/dfryer1193/postpage/internal/middleware"
	"github.com/dfryer1193/postpage/shared/metrics"
	"github.com/gin-gonic/gin"
)

//go:embed templates/*.html
var templateFS embed.FS

// NewRouter builds the engine with the standard middleware stack and all routes.
// metricsHandler may be nil to leave /metrics unregistered.
func NewRouter(posts *PostHandler, recorder metrics.Recorder, metricsHandler http.Handler) (*gin.Engine, error) {
	router := gin.New()
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.MetricsMiddleware(recorder))
	router.Use(gin.CustomRecovery(middleware.HandlePanics()))

	if err := NewApi(router, posts, metricsHandler); err != nil {
		return nil, err
	}
	return router, nil
}

func NewApi(router *gin.Engine, posts *PostHandler, metricsHandler http.Handler) error {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return fmt.Errorf("failed to parse page templates: %w", err)
	}
	router.SetHTMLTemplate(tmpl)

	router.GET("/health/live", Live)
	if metricsHandler != nil {
		router.GET("/metrics", gin.WrapH(metricsHandler))
	}

	router.GET("/blog/:id", posts.GetPostPage)

	postsV1 := router.Group("posts/v1")
	{
		postsV1.GET("/:postId", posts.GetPost)
	}

	return nil
}

func Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
