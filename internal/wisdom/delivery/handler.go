package delivery

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"listwisdom-backend/internal/wisdom/usecase"
)

// WisdomHandler handles wisdom-related HTTP requests
type WisdomHandler struct {
	wisdomUsecase usecase.WisdomUsecase
}

// NewWisdomHandler creates a new WisdomHandler
func NewWisdomHandler(wisdomUsecase usecase.WisdomUsecase) *WisdomHandler {
	return &WisdomHandler{
		wisdomUsecase: wisdomUsecase,
	}
}

// GenerateWisdomRequest represents the request body for generating wisdom
type GenerateWisdomRequest struct {
	Topic       string `json:"topic" binding:"required"`
	Style       string `json:"style"`
	MaxMessages int    `json:"max_messages"`
}

// Generate distills indexed discussions about a topic into one wisdom item
// POST /api/wisdom/generate
func (h *WisdomHandler) Generate(c *gin.Context) {
	var req GenerateWisdomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	wisdom, err := h.wisdomUsecase.Generate(c.Request.Context(), req.Topic, req.Style, req.MaxMessages)
	if err != nil {
		if errors.Is(err, usecase.ErrProviderNotReady) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "AI provider is not configured"})
			return
		}
		if strings.Contains(err.Error(), "no indexed messages") {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, wisdom)
}

// Random returns one random previously generated wisdom item
// GET /api/wisdom/random
func (h *WisdomHandler) Random(c *gin.Context) {
	wisdom, err := h.wisdomUsecase.Random()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if wisdom == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No wisdom generated yet"})
		return
	}

	c.JSON(http.StatusOK, wisdom)
}

// Latest returns the most recently generated wisdom items
// GET /api/wisdom?limit=20
func (h *WisdomHandler) Latest(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	items, err := h.wisdomUsecase.Latest(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"wisdom": items,
		"total":  len(items),
	})
}
