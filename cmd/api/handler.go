package api

import (
	"log"

	archiveDelivery "listwisdom-backend/internal/archive/delivery"
	archiveRepo "listwisdom-backend/internal/archive/repository"
	"listwisdom-backend/internal/archive/scheduler"
	archiveUsecasePkg "listwisdom-backend/internal/archive/usecase"
	wisdomDelivery "listwisdom-backend/internal/wisdom/delivery"
	wisdomRepo "listwisdom-backend/internal/wisdom/repository"
	wisdomUsecasePkg "listwisdom-backend/internal/wisdom/usecase"
	"listwisdom-backend/pkg/ai"
	"listwisdom-backend/pkg/config"
	"listwisdom-backend/pkg/vectors"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	config         *config.Config
	store          *vectors.Store
	archiveUsecase archiveUsecasePkg.ArchiveUsecase
	archiveHandler *archiveDelivery.ArchiveHandler
	wisdomHandler  *wisdomDelivery.WisdomHandler
}

func NewHandler(cfg *config.Config, archiveRepository archiveRepo.ArchiveRepository, messageRepository archiveRepo.MessageRepository, vectorRepository archiveRepo.VectorRepository, wisdomRepository wisdomRepo.WisdomRepository) *Handler {
	// Initialize the AI provider; the service still runs without one, with
	// semantic features reporting unavailable
	provider, err := ai.NewProvider(ai.Config{
		Provider:             ai.ProviderType(cfg.AIProvider),
		OpenAIAPIKey:         cfg.OpenAIAPIKey,
		OpenAIEmbeddingModel: cfg.OpenAIEmbeddingModel,
		OpenAIChatModel:      cfg.OpenAIChatModel,
		OllamaBaseURL:        cfg.OllamaBaseURL,
		OllamaEmbeddingModel: cfg.OllamaEmbeddingModel,
		OllamaChatModel:      cfg.OllamaChatModel,
	})
	if err != nil {
		log.Printf("Warning: Failed to initialize AI provider: %v. Semantic search will not be available.", err)
	} else {
		log.Printf("AI provider initialized: %s", cfg.AIProvider)
	}

	store := vectors.NewStore(provider, vectorRepository, cfg.VectorLoadLimit)

	archiveUsecase := archiveUsecasePkg.NewArchiveUsecase(
		archiveRepository,
		messageRepository,
		vectorRepository,
		store,
		cfg.FetchTimeout,
		cfg.MinVectorContent,
		cfg.BackfillBatchSize,
	)
	archiveHandler := archiveDelivery.NewArchiveHandler(archiveUsecase)

	// Background resync of stale remote archives
	if cfg.ResyncInterval > 0 {
		scheduler.NewResyncScheduler(archiveRepository, archiveUsecase, cfg.ResyncInterval).Start()
	}

	wisdomUsecase := wisdomUsecasePkg.NewWisdomUsecase(wisdomRepository, store, provider)
	wisdomHandler := wisdomDelivery.NewWisdomHandler(wisdomUsecase)

	return &Handler{
		config:         cfg,
		store:          store,
		archiveUsecase: archiveUsecase,
		archiveHandler: archiveHandler,
		wisdomHandler:  wisdomHandler,
	}
}

func (h *Handler) Start(addr string) error {
	r := gin.Default()
	gin.SetMode(gin.ReleaseMode)

	// CORS middleware
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Setup routes
	SetupRoutes(r, h)

	return r.Run(addr)
}
