package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	v1 "github.com/vidinfra/docvault/internal/api/v1"
	"github.com/vidinfra/docvault/internal/config"
	"github.com/vidinfra/docvault/internal/i18n"
	"github.com/vidinfra/docvault/internal/logger"
	"github.com/vidinfra/docvault/internal/metrics"
	"github.com/vidinfra/docvault/internal/rest/middleware"
)

type Handlers struct {
	Health *v1.HealthHandler
	Note   *v1.NoteHandler
	Events *v1.EventsHandler
}

func NewRouter(
	handlers Handlers,
	cfg *config.Configuration,
	log *logger.Logger,
	translator *i18n.Translator,
	m *metrics.Metrics,
) *gin.Engine {
	router := gin.New()

	router.Use(
		gin.Recovery(),
		middleware.RequestIDMiddleware,
		middleware.ActorMiddleware,
		middleware.LocaleMiddleware(translator),
		middleware.CORSMiddleware,
		middleware.SentryMiddleware(cfg),
		middleware.RequestLogger(log),
		middleware.ErrorHandler(translator, log),
	)

	router.GET("/health", handlers.Health.Health)
	router.HEAD("/health", handlers.Health.Health)
	router.GET("/metrics", gin.WrapH(m.Handler()))

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": gin.H{"code": "not_found", "message": "route not found"}})
	})

	v1Group := router.Group("/v1")
	v1Group.Use(middleware.RateLimitMiddleware(cfg))
	registerV1Routes(v1Group, handlers)

	return router
}

func registerV1Routes(router *gin.RouterGroup, handlers Handlers) {
	notes := router.Group("/notes")
	{
		notes.POST("", handlers.Note.CreateNote)
		notes.GET("", handlers.Note.GetNotes)
		notes.GET("/count", handlers.Note.CountNotes)
		notes.GET("/tags", handlers.Note.GetNoteTags)
		notes.GET("/stats/tags", handlers.Note.GetNoteTagStats)
		notes.POST("/bulk/delete", handlers.Note.BulkDeleteNotes)
		notes.POST("/bulk/restore", handlers.Note.BulkRestoreNotes)
		notes.DELETE("/trash", handlers.Note.PurgeDeletedNotes)

		notes.GET("/:id", handlers.Note.GetNote)
		notes.PATCH("/:id", handlers.Note.UpdateNote)
		notes.PUT("/:id", handlers.Note.ReplaceNote)
		notes.DELETE("/:id", handlers.Note.DeleteNote)
		notes.POST("/:id/restore", handlers.Note.RestoreNote)
		notes.DELETE("/:id/purge", handlers.Note.PurgeNote)
		notes.GET("/:id/audit", handlers.Note.GetNoteAudit)
	}

	events := router.Group("/events")
	{
		events.GET("/lag", handlers.Events.GetConsumerLag)
	}
}
