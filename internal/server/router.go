package server

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/lingopane/lingopane-backend/internal/handlers"
	"github.com/lingopane/lingopane-backend/internal/middleware"
)

type RouterConfig struct {
	AllowOrigins []string

	AuthHandler        *handlers.AuthHandler
	AuthMiddleware     *middleware.AuthMiddleware
	DocumentHandler    *handlers.DocumentHandler
	TranslationHandler *handlers.TranslationHandler
	HighlightHandler   *handlers.HighlightHandler
	CredentialHandler  *handlers.CredentialHandler
	SSEHandler         *handlers.SSEHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()
	router.Use(otelgin.Middleware("lingopane"))

	origins := cfg.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	// ===============
	// || Public    ||
	// ===============
	router.GET("/healthcheck", handlers.HealthCheck)
	router.POST("/api/session", cfg.AuthHandler.CreateSession)

	// ===============
	// || Protected ||
	// ===============
	api := router.Group("/api")
	api.Use(cfg.AuthMiddleware.RequireSession())

	// SSE
	api.GET("/events", cfg.SSEHandler.Stream)

	// Documents
	api.POST("/documents", cfg.DocumentHandler.Create)
	api.GET("/documents", cfg.DocumentHandler.List)
	api.GET("/documents/:id", cfg.DocumentHandler.Get)
	api.DELETE("/documents/:id", cfg.DocumentHandler.Delete)
	api.POST("/documents/:id/export", cfg.DocumentHandler.Export)

	// Translation
	api.POST("/documents/:id/translate", cfg.TranslationHandler.StartRun)
	api.POST("/documents/:id/translate/cancel", cfg.TranslationHandler.CancelRun)
	api.POST("/documents/:id/blocks/:blockId/retranslate", cfg.TranslationHandler.RetranslateBlock)
	api.GET("/runs/:runId", cfg.TranslationHandler.RunStatus)

	// Highlight
	api.POST("/documents/:id/highlight", cfg.HighlightHandler.Event)
	api.GET("/documents/:id/highlight", cfg.HighlightHandler.Active)

	// Credentials
	api.POST("/credentials", cfg.CredentialHandler.Store)
	api.GET("/credentials", cfg.CredentialHandler.List)
	api.DELETE("/credentials/:id", cfg.CredentialHandler.Delete)
	api.GET("/profiles", cfg.CredentialHandler.Profiles)

	return router
}

// SplitOrigins parses a comma-separated origin list from the environment.
func SplitOrigins(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
