package dto

import (
	archivedomain "listwisdom-backend/internal/archive/domain"
	"listwisdom-backend/pkg/vectors"
)

type CreateArchiveRequest struct {
	Name        string `json:"name" binding:"required"`
	URL         string `json:"url" binding:"required,url"`
	Description string `json:"description"`
}

type ArchivesResponse struct {
	Archives []*archivedomain.Archive `json:"archives"`
	Total    int                      `json:"total"`
}

type SearchRequest struct {
	Query     string `json:"query" binding:"required"`
	Limit     int    `json:"limit"`
	ArchiveID string `json:"archive_id"`
}

type SearchResponse struct {
	Results []vectors.SearchResult `json:"results"`
	Total   int                    `json:"total"`
}

type TopicsResponse struct {
	Topics []vectors.TopicCluster `json:"topics"`
	Total  int                    `json:"total"`
}
