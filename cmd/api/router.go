package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine, h *Handler) {
	api := r.Group("/api")
	{
		// Health check
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		// Service status: vector counts and embedding readiness
		api.GET("/status", func(c *gin.Context) {
			stats := h.store.Stats(c.Request.Context())
			c.JSON(http.StatusOK, gin.H{
				"status":          "ok",
				"ai_ready":        stats.Ready,
				"message_vectors": stats.MessageVectors,
				"wisdom_vectors":  stats.WisdomVectors,
			})
		})

		// Archive routes
		archives := api.Group("/archives")
		{
			archives.GET("", h.archiveHandler.GetArchives)
			archives.POST("", h.archiveHandler.CreateArchive)
			archives.POST("/upload", h.archiveHandler.UploadArchive)
			archives.GET("/:id", h.archiveHandler.GetArchive)
			archives.DELETE("/:id", h.archiveHandler.DeleteArchive)
			archives.POST("/:id/sync", h.archiveHandler.SyncArchive)
		}

		api.GET("/sync-status", h.archiveHandler.SyncStatus)

		// Search and topic routes
		api.POST("/search", h.archiveHandler.Search)
		api.GET("/search/keyword", h.archiveHandler.KeywordSearch)
		api.GET("/topics", h.archiveHandler.Topics)
		api.GET("/messages/:id/similar", h.archiveHandler.SimilarMessages)

		// Vector maintenance
		vectors := api.Group("/vectors")
		{
			vectors.POST("/generate", h.archiveHandler.GenerateVectors)
		}

		// Wisdom routes
		wisdom := api.Group("/wisdom")
		{
			wisdom.GET("", h.wisdomHandler.Latest)
			wisdom.GET("/random", h.wisdomHandler.Random)
			wisdom.POST("/generate", h.wisdomHandler.Generate)
		}
	}
}
