package handlers

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"secadvisor-backend/models"
	"secadvisor-backend/service"
	"secadvisor-backend/storage"

	"github.com/gin-gonic/gin"
)

// FilingHandler handles HTTP requests for filing parsing, embedding
// storage, and the raw-output archive
type FilingHandler struct {
	filingService *service.FilingService
	ingestService *service.IngestService
	archive       storage.Storage
}

// NewFilingHandler creates a new filing handler. archive may be nil when
// no archive backend is configured.
func NewFilingHandler(filingService *service.FilingService, ingestService *service.IngestService, archive storage.Storage) *FilingHandler {
	return &FilingHandler{
		filingService: filingService,
		ingestService: ingestService,
		archive:       archive,
	}
}

// ParseFilingRequest represents the request body for parsing a filing
type ParseFilingRequest struct {
	Ticker   string `json:"ticker"`
	FormType string `json:"formType"`
	Year     string `json:"year"`
}

// ParseFiling handles POST /api/parse-filing
func (h *FilingHandler) ParseFiling(c *gin.Context) {
	var req ParseFilingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}

	result, err := h.filingService.ParseAndIngest(c.Request.Context(), req.Ticker, req.FormType, req.Year)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		case errors.Is(err, service.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"message": err.Error()})
		case errors.Is(err, service.ErrBufferExceeded):
			c.JSON(http.StatusInternalServerError, gin.H{
				"message": "This filing is very large and complex. Try using a different year or form type.",
				"error":   "Size limit exceeded",
			})
		case errors.Is(err, service.ErrComplexFormat):
			c.JSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		case errors.Is(err, service.ErrEmbeddingStorage):
			c.JSON(http.StatusInternalServerError, gin.H{
				"message": "Failed to store embeddings",
				"details": errorDetails(err),
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"message": "Error processing SEC filing",
				"details": errorDetails(err),
			})
		}
		return
	}

	payload := gin.H{
		"structured": result.Structured,
		"chunked":    result.Chunked,
		"year":       result.Year,
		"embedData": gin.H{
			"upsertedCount": result.Upserted,
			"skippedCount":  result.Skipped,
		},
	}
	if result.ArchivePath != "" {
		payload["archivePath"] = result.ArchivePath
	}
	c.JSON(http.StatusOK, payload)
}

// StoreEmbeddingsRequest represents the request body for bulk embedding
// storage
type StoreEmbeddingsRequest struct {
	Chunks   []models.Chunk        `json:"chunks"`
	Metadata *service.CallMetadata `json:"metadata"`
}

// StoreEmbeddings handles POST /api/store-embeddings
func (h *FilingHandler) StoreEmbeddings(c *gin.Context) {
	var req StoreEmbeddingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if req.Chunks == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": `Missing or invalid "chunks" in request body.`})
		return
	}
	if req.Metadata == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": `Missing or invalid "metadata" in request body.`})
		return
	}

	result, err := h.ingestService.Ingest(c.Request.Context(), req.Chunks, *req.Metadata)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Internal server error while storing embeddings.",
			"details": errorDetails(err),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":       fmt.Sprintf("Stored %d embeddings. Skipped %d chunks.", result.UpsertedCount, result.SkippedCount),
		"upsertedCount": result.UpsertedCount,
		"skippedCount":  result.SkippedCount,
	})
}

// DownloadArchive handles GET /api/filing-archive. The path query
// parameter is the archivePath returned by /api/parse-filing.
func (h *FilingHandler) DownloadArchive(c *gin.Context) {
	if h.archive == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Filing archive is not configured"})
		return
	}

	path := c.Query("path")
	if path == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Path parameter is required"})
		return
	}

	body, err := h.archive.Download(c.Request.Context(), path)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("Archived output not found: %s", path)})
		return
	}
	defer body.Close()

	c.Header("Content-Type", "application/json")
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, body); err != nil {
		log.Printf("Error streaming archived output %s: %v", path, err)
	}
}

// DeleteArchive handles DELETE /api/filing-archive.
func (h *FilingHandler) DeleteArchive(c *gin.Context) {
	if h.archive == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Filing archive is not configured"})
		return
	}

	path := c.Query("path")
	if path == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Path parameter is required"})
		return
	}

	if err := h.archive.Delete(c.Request.Context(), path); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to delete archived output",
			"details": errorDetails(err),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "path": path})
}
