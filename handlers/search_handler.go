package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"secadvisor-backend/gemini"
	"secadvisor-backend/service"
	"secadvisor-backend/vectorstore"

	"github.com/gin-gonic/gin"
)

// Per-endpoint retrieval defaults, kept distinct deliberately: the
// endpoints serve different consumers with different result budgets.
const (
	searchFilingsDefaultTopK   = 5
	queryEmbeddingsDefaultTopK = 10
	queryEmbeddingsMaxTopK     = 10
	searchChunksDefaultTopK    = 100
	searchByVectorDefaultTopK  = 5
	fetchByTickerTopK          = 100

	// defaultQueryNamespace is the partition used by the query family
	// unless the caller targets another one.
	defaultQueryNamespace = "default"

	// searchFilingsNamespace matches the chat path's ingestion target.
	searchFilingsNamespace = "var"
)

// SearchHandler handles HTTP requests for vector-store search and lookup
type SearchHandler struct {
	embedder service.Embedder
	store    vectorstore.Store
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(embedder service.Embedder, store vectorstore.Store) *SearchHandler {
	return &SearchHandler{embedder: embedder, store: store}
}

// clampTopK resolves a caller-supplied result budget against a default
// and a ceiling.
func clampTopK(requested, def, max int) int {
	if requested <= 0 {
		requested = def
	}
	if requested > max {
		return max
	}
	return requested
}

// SearchFilingsRequest represents the request body for semantic filing
// search
type SearchFilingsRequest struct {
	Query     string `json:"query"`
	Ticker    string `json:"ticker"`
	Year      string `json:"year"`
	Section   string `json:"section"`
	TopK      int    `json:"topK"`
	Namespace string `json:"namespace"`
}

// SearchFilings handles POST /api/search-filings
func (h *SearchHandler) SearchFilings(c *gin.Context) {
	var req SearchFilingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}

	if req.Query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Query is required"})
		return
	}

	namespace := req.Namespace
	if namespace == "" {
		namespace = searchFilingsNamespace
	}
	topK := clampTopK(req.TopK, searchFilingsDefaultTopK, vectorstore.MaxTopK)

	vector, err := h.embedder.EmbedText(c.Request.Context(), req.Query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Error searching filings",
			"error":   errorDetails(err),
		})
		return
	}

	filter := vectorstore.Filter{
		Ticker:  strings.ToUpper(req.Ticker),
		Year:    req.Year,
		Section: req.Section,
	}

	matches, err := h.store.Query(c.Request.Context(), namespace, vector, topK, filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Error searching filings",
			"error":   errorDetails(err),
		})
		return
	}

	results := make([]gin.H, len(matches))
	for i, m := range matches {
		results[i] = gin.H{
			"id":        m.ID,
			"score":     m.Score,
			"relevance": fmt.Sprintf("%.1f%%", m.Score*100),
			"ticker":    m.Metadata.Ticker,
			"year":      m.Metadata.Year,
			"section":   m.Metadata.Section,
			"text":      m.Metadata.Text,
			"tokens":    m.Metadata.Tokens,
		}
	}

	appliedFilters := gin.H{}
	if filter.Ticker != "" {
		appliedFilters["ticker"] = filter.Ticker
	}
	if filter.Year != "" {
		appliedFilters["year"] = filter.Year
	}
	if filter.Section != "" {
		appliedFilters["section"] = filter.Section
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"query":        req.Query,
		"resultsCount": len(results),
		"results":      results,
		"filters":      appliedFilters,
	})
}

// QueryEmbeddingsRequest represents the request body for raw embedding
// queries
type QueryEmbeddingsRequest struct {
	Query     string `json:"query"`
	Ticker    string `json:"ticker"`
	Section   string `json:"section"`
	TopK      int    `json:"topK"`
	Namespace string `json:"namespace"`
}

// QueryEmbeddings handles POST /api/query-embeddings
func (h *SearchHandler) QueryEmbeddings(c *gin.Context) {
	var req QueryEmbeddingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if req.Query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing query"})
		return
	}

	namespace := req.Namespace
	if namespace == "" {
		namespace = defaultQueryNamespace
	}
	topK := clampTopK(req.TopK, queryEmbeddingsDefaultTopK, queryEmbeddingsMaxTopK)

	vector, err := h.embedder.EmbedText(c.Request.Context(), req.Query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to query embeddings",
			"details": errorDetails(err),
		})
		return
	}

	matches, err := h.store.Query(c.Request.Context(), namespace, vector, topK, vectorstore.Filter{
		Ticker:  req.Ticker,
		Section: req.Section,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to query embeddings",
			"details": errorDetails(err),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"matches": matches, "namespace": namespace})
}

// SearchChunksRequest represents the request body for metadata-only chunk
// search
type SearchChunksRequest struct {
	Ticker    string `json:"ticker"`
	Section   string `json:"section"`
	Source    string `json:"source"`
	TopK      int    `json:"topK"`
	Namespace string `json:"namespace"`
}

// SearchChunks handles POST /api/search-chunks. Retrieval is by metadata
// filter alone; the zero vector selects the store's metadata-only listing.
func (h *SearchHandler) SearchChunks(c *gin.Context) {
	var req SearchChunksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	filter := vectorstore.Filter{
		Ticker:  req.Ticker,
		Section: req.Section,
		Source:  req.Source,
	}
	if filter.IsZero() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "At least one filter criterion (ticker, section, or source) is required"})
		return
	}

	namespace := req.Namespace
	if namespace == "" {
		namespace = defaultQueryNamespace
	}
	topK := clampTopK(req.TopK, searchChunksDefaultTopK, vectorstore.MaxTopK)

	matches, err := h.store.Query(c.Request.Context(), namespace, zeroVector(), topK, filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to search chunks",
			"details": errorDetails(err),
		})
		return
	}

	chunks := make([]gin.H, len(matches))
	for i, m := range matches {
		chunks[i] = gin.H{
			"id":      m.ID,
			"ticker":  m.Metadata.Ticker,
			"section": m.Metadata.Section,
			"source":  m.Metadata.Source,
			"tokens":  m.Metadata.Tokens,
			"text":    m.Metadata.Text,
		}
	}

	c.JSON(http.StatusOK, gin.H{"chunks": chunks, "namespace": namespace, "total": len(chunks)})
}

// SearchByVectorRequest represents the request body for raw-vector search
type SearchByVectorRequest struct {
	Vector    []float32 `json:"vector"`
	Ticker    string    `json:"ticker"`
	TopK      int       `json:"topK"`
	Namespace string    `json:"namespace"`
}

// SearchByVector handles POST /api/search-by-vector
func (h *SearchHandler) SearchByVector(c *gin.Context) {
	var req SearchByVectorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if len(req.Vector) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing vector"})
		return
	}
	if req.Ticker == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing ticker"})
		return
	}
	if len(req.Vector) != gemini.EmbeddingDimension {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("Vector must be an array of %d numbers", gemini.EmbeddingDimension),
		})
		return
	}

	namespace := req.Namespace
	if namespace == "" {
		namespace = defaultQueryNamespace
	}
	topK := clampTopK(req.TopK, searchByVectorDefaultTopK, vectorstore.MaxTopK)

	matches, err := h.store.Query(c.Request.Context(), namespace, req.Vector, topK, vectorstore.Filter{
		Ticker: req.Ticker,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to search chunks by vector",
			"details": errorDetails(err),
		})
		return
	}

	chunks := make([]gin.H, len(matches))
	for i, m := range matches {
		chunks[i] = gin.H{
			"id":         m.ID,
			"ticker":     m.Metadata.Ticker,
			"section":    m.Metadata.Section,
			"source":     m.Metadata.Source,
			"tokens":     m.Metadata.Tokens,
			"text":       m.Metadata.Text,
			"similarity": m.Score,
		}
	}

	c.JSON(http.StatusOK, gin.H{"chunks": chunks, "namespace": namespace, "total": len(chunks)})
}

// FetchChunkRequest represents the request body for a point lookup
type FetchChunkRequest struct {
	ID        string `json:"id"`
	Namespace string `json:"namespace"`
}

// FetchChunk handles POST /api/fetch-chunk
func (h *SearchHandler) FetchChunk(c *gin.Context) {
	var req FetchChunkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if req.ID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing id"})
		return
	}

	namespace := req.Namespace
	if namespace == "" {
		namespace = defaultQueryNamespace
	}

	records, err := h.store.Fetch(c.Request.Context(), namespace, []string{req.ID})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to fetch chunk",
			"details": errorDetails(err),
		})
		return
	}

	if len(records) == 0 {
		c.JSON(http.StatusNotFound, gin.H{
			"error": fmt.Sprintf("Chunk with id %s not found in namespace %s", req.ID, namespace),
		})
		return
	}

	rec := records[0]
	c.JSON(http.StatusOK, gin.H{
		"chunk": gin.H{
			"id":      rec.ID,
			"ticker":  rec.Metadata.Ticker,
			"section": rec.Metadata.Section,
			"source":  rec.Metadata.Source,
			"tokens":  rec.Metadata.Tokens,
			"text":    rec.Metadata.Text,
		},
		"namespace": namespace,
	})
}

// FetchByTicker handles GET /api/fetch-by-ticker. The ticker names its
// own namespace; an empty namespace short-circuits to 404 without a
// wasted query.
func (h *SearchHandler) FetchByTicker(c *gin.Context) {
	ticker := c.Query("ticker")
	if ticker == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Ticker parameter is required"})
		return
	}

	namespace := strings.ToUpper(ticker)

	counts, err := h.store.Describe(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Internal server error",
			"details": errorDetails(err),
		})
		return
	}

	if counts[namespace] == 0 {
		c.JSON(http.StatusNotFound, gin.H{"message": fmt.Sprintf("No data found for ticker %s", ticker)})
		return
	}

	matches, err := h.store.Query(c.Request.Context(), namespace, zeroVector(), fetchByTickerTopK, vectorstore.Filter{})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Internal server error",
			"details": errorDetails(err),
		})
		return
	}

	data := make([]gin.H, len(matches))
	for i, m := range matches {
		data[i] = gin.H{
			"id":       m.ID,
			"score":    m.Score,
			"metadata": m.Metadata,
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"ticker": namespace,
		"count":  len(data),
		"data":   data,
	})
}

// zeroVector requests the store's metadata-only listing.
func zeroVector() []float32 {
	return make([]float32, gemini.EmbeddingDimension)
}
