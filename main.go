package main

import (
	"log"

	api "listwisdom-backend/cmd/api"
	archivedomain "listwisdom-backend/internal/archive/domain"
	archiveRepo "listwisdom-backend/internal/archive/repository"
	wisdomdomain "listwisdom-backend/internal/wisdom/domain"
	wisdomRepo "listwisdom-backend/internal/wisdom/repository"
	"listwisdom-backend/pkg/config"
	"listwisdom-backend/pkg/database"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.NewPostgresConnection(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Auto-migrate database schemas
	if err := db.AutoMigrate(
		&archivedomain.Archive{},
		&archivedomain.Message{},
		&archivedomain.MessageVector{},
		&archivedomain.WisdomVector{},
		&wisdomdomain.Wisdom{},
	); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	// Initialize repositories (dependency injection)
	archiveRepository := archiveRepo.NewGormArchiveRepository(db)
	messageRepository := archiveRepo.NewGormMessageRepository(db)
	vectorRepository := archiveRepo.NewGormVectorRepository(db)
	wisdomRepository := wisdomRepo.NewGormWisdomRepository(db)

	// Initialize HTTP handler
	handler := api.NewHandler(cfg, archiveRepository, messageRepository, vectorRepository, wisdomRepository)

	// Start server
	log.Printf("Server starting on port %s", cfg.Port)
	if err := handler.Start(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
