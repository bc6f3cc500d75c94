package api

import (
	"embed"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"shift-sync-backend/config"
	"shift-sync-backend/internal/forward"
	"shift-sync-backend/internal/mw"
)

//go:embed templates/*.html
var templateFS embed.FS

// NewRouter creates and configures the Gin router serving the
// forwarding page.
func NewRouter(cfg *config.Config, workflow *forward.Workflow, logger *slog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.SetHTMLTemplate(template.Must(template.ParseFS(templateFS, "templates/*.html")))

	handler := NewHandler(workflow, 30, logger)

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.Server.RateLimitPerSec), cfg.Server.RateLimitBurst)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	page := r.Group("/forward")
	page.Use(rateLimiter)
	{
		page.GET("", handler.GetForward)
		page.POST("", handler.PostForward)
	}

	return r
}
