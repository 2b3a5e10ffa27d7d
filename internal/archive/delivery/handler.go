package delivery

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"listwisdom-backend/internal/archive/dto"
	"listwisdom-backend/internal/archive/usecase"
)

// maxUploadBytes caps uploaded mbox files at 100 MB
const maxUploadBytes = 100 << 20

// ArchiveHandler handles archive-related HTTP requests
type ArchiveHandler struct {
	archiveUsecase usecase.ArchiveUsecase
}

// NewArchiveHandler creates a new ArchiveHandler
func NewArchiveHandler(archiveUsecase usecase.ArchiveUsecase) *ArchiveHandler {
	return &ArchiveHandler{
		archiveUsecase: archiveUsecase,
	}
}

// GetArchives returns every tracked archive
// GET /api/archives
func (h *ArchiveHandler) GetArchives(c *gin.Context) {
	archives, err := h.archiveUsecase.ListArchives()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, dto.ArchivesResponse{
		Archives: archives,
		Total:    len(archives),
	})
}

// CreateArchive registers a remote archive source
// POST /api/archives
func (h *ArchiveHandler) CreateArchive(c *gin.Context) {
	var req dto.CreateArchiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	archive, err := h.archiveUsecase.CreateArchive(req.Name, req.URL, req.Description)
	if err != nil {
		if errors.Is(err, usecase.ErrArchiveExists) {
			c.JSON(http.StatusConflict, gin.H{"error": "Archive with this name already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	// New archives start syncing immediately; progress is polled via
	// /api/sync-status
	if err := h.archiveUsecase.StartSync(archive.ID); err != nil {
		log.Printf("[ArchiveHandler] Could not start initial sync for %s: %v", archive.Name, err)
	}

	c.JSON(http.StatusAccepted, archive)
}

// GetArchive returns one archive with its message count
// GET /api/archives/:id
func (h *ArchiveHandler) GetArchive(c *gin.Context) {
	archive, err := h.archiveUsecase.GetArchive(c.Param("id"))
	if err != nil {
		if errors.Is(err, usecase.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Archive not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, archive)
}

// DeleteArchive removes an archive with its messages and vectors
// DELETE /api/archives/:id
func (h *ArchiveHandler) DeleteArchive(c *gin.Context) {
	if err := h.archiveUsecase.DeleteArchive(c.Param("id")); err != nil {
		if errors.Is(err, usecase.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Archive not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Archive deleted"})
}

// SyncArchive starts a background sync for a remote archive
// POST /api/archives/:id/sync
func (h *ArchiveHandler) SyncArchive(c *gin.Context) {
	err := h.archiveUsecase.StartSync(c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Archive not found"})
		case errors.Is(err, usecase.ErrSyncRunning):
			c.JSON(http.StatusConflict, gin.H{"error": "Sync already in progress for this archive"})
		case errors.Is(err, usecase.ErrNoRemoteURL):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Archive has no remote URL to sync from"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"message": "Sync started"})
}

// UploadArchive registers a new archive from an uploaded mbox file
// POST /api/archives/upload (multipart: name, file)
func (h *ArchiveHandler) UploadArchive(c *gin.Context) {
	name := c.PostForm("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	if fileHeader.Size > maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	archive, err := h.archiveUsecase.UploadArchive(name, data)
	if err != nil {
		if errors.Is(err, usecase.ErrArchiveExists) {
			c.JSON(http.StatusConflict, gin.H{"error": "Archive with this name already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, archive)
}

// SyncStatus reports the progress of running syncs, optionally for a single
// archive
// GET /api/sync-status?archive_id=
func (h *ArchiveHandler) SyncStatus(c *gin.Context) {
	statuses := h.archiveUsecase.SyncStatuses()

	if archiveID := c.Query("archive_id"); archiveID != "" {
		filtered := statuses[:0]
		for _, s := range statuses {
			if s.ArchiveID == archiveID {
				filtered = append(filtered, s)
			}
		}
		statuses = filtered
	}

	c.JSON(http.StatusOK, gin.H{
		"syncs": statuses,
		"total": len(statuses),
	})
}

// Search runs a semantic search over indexed messages
// POST /api/search
func (h *ArchiveHandler) Search(c *gin.Context) {
	var req dto.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	results := h.archiveUsecase.SearchMessages(c.Request.Context(), req.Query, req.Limit, req.ArchiveID)
	c.JSON(http.StatusOK, dto.SearchResponse{
		Results: results,
		Total:   len(results),
	})
}

// KeywordSearch runs a typo-tolerant keyword search over stored messages.
// Unlike semantic search it needs no embedding provider.
// GET /api/search/keyword?q=&archive_id=&limit=
func (h *ArchiveHandler) KeywordSearch(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q is required"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	messages, err := h.archiveUsecase.KeywordSearch(query, limit, c.Query("archive_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"messages": messages,
		"total":    len(messages),
	})
}

// Topics clusters indexed messages under canonical topics
// GET /api/topics?archive_id=&count=
func (h *ArchiveHandler) Topics(c *gin.Context) {
	count, _ := strconv.Atoi(c.DefaultQuery("count", "0"))
	clusters := h.archiveUsecase.ClusterTopics(c.Request.Context(), c.Query("archive_id"), count)

	c.JSON(http.StatusOK, dto.TopicsResponse{
		Topics: clusters,
		Total:  len(clusters),
	})
}

// SimilarMessages finds messages semantically close to a stored one
// GET /api/messages/:id/similar?limit=
func (h *ArchiveHandler) SimilarMessages(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "5"))

	results, err := h.archiveUsecase.SimilarMessages(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		if errors.Is(err, usecase.ErrMessageNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Message not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, dto.SearchResponse{
		Results: results,
		Total:   len(results),
	})
}

// GenerateVectors starts a detached catch-up backfill for stored messages
// that have no vector yet
// POST /api/vectors/generate
func (h *ArchiveHandler) GenerateVectors(c *gin.Context) {
	go func() {
		if _, err := h.archiveUsecase.BackfillVectors(context.Background()); err != nil {
			log.Printf("[ArchiveHandler] Vector backfill failed: %v", err)
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{"message": "Vector generation started"})
}
