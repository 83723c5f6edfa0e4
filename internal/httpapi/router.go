// Package httpapi assembles the gin router: public vocabulary queries,
// the bulk data plane, and the admin management surface.
package httpapi

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/yungbote/bioterms-backend/internal/httpapi/handlers"
	"github.com/yungbote/bioterms-backend/internal/httpapi/middleware"
	"github.com/yungbote/bioterms-backend/internal/platform/logger"
)

type RouterConfig struct {
	Logger *logger.Logger

	AuthHandler    *handlers.AuthHandler
	AuthMiddleware *middleware.AuthMiddleware

	VocabularyHandler   *handlers.VocabularyHandler
	AutoCompleteHandler *handlers.AutoCompleteHandler
	ExpandHandler       *handlers.ExpandHandler
	SimilarityHandler   *handlers.SimilarityHandler
	TranslateHandler    *handlers.TranslateHandler
	DataHandler         *handlers.DataHandler
	ManageHandler       *handlers.ManageHandler
	AssetsHandler       *handlers.AssetsHandler
	HealthHandler       *handlers.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware("bioterms"))
	r.Use(middleware.RequestLogger(cfg.Logger))
	r.Use(middleware.CORS())

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/health", cfg.HealthHandler.HealthCheck)
	}

	// Crawler assets
	if cfg.AssetsHandler != nil {
		r.GET("/sitemap.xml", cfg.AssetsHandler.SiteMap)
		r.GET("/robots.txt", cfg.AssetsHandler.Robots)
	}

	api := r.Group("/api")
	{
		// Auth (public)
		if cfg.AuthHandler != nil {
			api.POST("/auth/login", cfg.AuthHandler.Login)
		}

		// Vocabulary registry
		if cfg.VocabularyHandler != nil {
			api.GET("/vocabularies", cfg.VocabularyHandler.List)
			api.GET("/vocabularies/:prefix", cfg.VocabularyHandler.Status)
			api.GET("/vocabularies/:prefix/license", cfg.VocabularyHandler.License)
		}
	}

	// Management (admin JWT)
	manage := api.Group("/manage")
	{
		if cfg.AuthMiddleware != nil {
			manage.Use(cfg.AuthMiddleware.RequireAdmin())
		}
		if cfg.ManageHandler != nil {
			manage.POST("/vocabularies/:prefix/ingest", cfg.ManageHandler.Ingest)
			manage.POST("/vocabularies/:prefix/download", cfg.ManageHandler.Download)
			manage.POST("/vocabularies/:prefix/load", cfg.ManageHandler.Load)
			manage.POST("/vocabularies/:prefix/embed", cfg.ManageHandler.Embed)
			manage.DELETE("/vocabularies/:prefix", cfg.ManageHandler.Delete)

			manage.POST("/vocabularies/:prefix/similarity", cfg.ManageHandler.CalculateSimilarity)
			manage.GET("/vocabularies/:prefix/similarity", cfg.ManageHandler.SimilarityStatus)

			manage.GET("/annotations", cfg.ManageHandler.AnnotationStatuses)
			manage.POST("/annotations/:prefix/:target/download", cfg.ManageHandler.DownloadAnnotation)
			manage.POST("/annotations/:prefix/:target/load", cfg.ManageHandler.LoadAnnotation)
			manage.DELETE("/annotations/:prefix/:target", cfg.ManageHandler.DeleteAnnotation)
		}
	}

	// Per-vocabulary queries and data plane
	vocab := r.Group("/:prefix")
	{
		if cfg.AutoCompleteHandler != nil {
			vocab.GET("/auto-complete/v1/query/:query", cfg.AutoCompleteHandler.V1)
			vocab.GET("/auto-complete/v2", cfg.AutoCompleteHandler.V2)
			vocab.GET("/auto-complete/v3", cfg.AutoCompleteHandler.V3)
		}
		if cfg.ExpandHandler != nil {
			vocab.POST("/expand/v1", cfg.ExpandHandler.V1)
			vocab.GET("/expand/v2", cfg.ExpandHandler.V2)
		}
		if cfg.SimilarityHandler != nil {
			vocab.POST("/similarity/v1", cfg.SimilarityHandler.V1)
			vocab.GET("/similarity/v2", cfg.SimilarityHandler.V2)
		}
		if cfg.TranslateHandler != nil {
			vocab.POST("/translate/v1", cfg.TranslateHandler.V1)
			vocab.GET("/translate/v2", cfg.TranslateHandler.V2)
		}
		if cfg.DataHandler != nil {
			vocab.GET("/data/documents", cfg.DataHandler.Export)
			if cfg.AuthMiddleware != nil {
				keyed := vocab.Group("/")
				keyed.Use(cfg.AuthMiddleware.RequireAPIKey())
				keyed.POST("/data/documents", cfg.DataHandler.Import)
				keyed.DELETE("/data", cfg.DataHandler.Delete)
			} else {
				vocab.POST("/data/documents", cfg.DataHandler.Import)
				vocab.DELETE("/data", cfg.DataHandler.Delete)
			}
		}
	}

	return r
}
