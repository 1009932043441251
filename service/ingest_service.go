package service

import (
	"context"
	"errors"
	"log"
	"strings"

	"secadvisor-backend/models"
	"secadvisor-backend/vectorstore"
)

const (
	// embeddingBatchSize keeps embedding calls within upstream rate limits.
	embeddingBatchSize = 10

	// DefaultNamespace receives bulk-ingested vectors unless the caller
	// targets another partition.
	DefaultNamespace = "var"
)

// ErrNoValidVectors is returned when literally every chunk across every
// batch was skipped or failed. Partial failure is a normal, reportable
// outcome, not an error.
var ErrNoValidVectors = errors.New("no valid vectors to upsert: all chunks were skipped or failed")

// Embedder generates embeddings for single texts and for batches. A nil
// entry in the batch result means that text failed without blocking the
// others.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string, batchSize int) [][]float32
}

// CallMetadata carries call-level defaults applied to every chunk that
// does not supply its own value.
type CallMetadata struct {
	Ticker    string `json:"ticker,omitempty"`
	Source    string `json:"source,omitempty"`
	Year      string `json:"year,omitempty"`
	DocType   string `json:"doc_type,omitempty"`
	Section   string `json:"section,omitempty"`
	Version   string `json:"version,omitempty"`
	Namespace string `json:"namespace,omitempty"`
}

// IngestResult reports how many chunks were persisted and how many were
// skipped.
type IngestResult struct {
	UpsertedCount int `json:"upsertedCount"`
	SkippedCount  int `json:"skippedCount"`
}

// IngestService embeds enriched chunks and upserts them into the vector
// store.
type IngestService struct {
	embedder Embedder
	store    vectorstore.Store
}

// IngestServiceOption is a functional option for IngestService.
type IngestServiceOption func(*IngestService)

// IngestWithEmbedder sets the embedding client.
func IngestWithEmbedder(e Embedder) IngestServiceOption {
	return func(s *IngestService) {
		s.embedder = e
	}
}

// IngestWithStore sets the vector store.
func IngestWithStore(store vectorstore.Store) IngestServiceOption {
	return func(s *IngestService) {
		s.store = store
	}
}

// NewIngestService creates a new ingestion service.
func NewIngestService(opts ...IngestServiceOption) *IngestService {
	s := &IngestService{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// enrichedChunk pairs a fully-populated metadata set with its target
// namespace and deterministic identifier.
type enrichedChunk struct {
	id        string
	namespace string
	metadata  models.ChunkMetadata
}

// Enrich back-fills every chunk's metadata: chunk-level values win, then
// call-level metadata, then values parsed from the source label, then
// fixed defaults. The deterministic identifier is derived from the
// result.
func (s *IngestService) Enrich(chunks []models.Chunk, meta CallMetadata) []enrichedChunk {
	sourceStr := meta.Source
	if sourceStr == "" && len(chunks) > 0 {
		sourceStr = chunks[0].Source
	}
	parsedYear, parsedDocType := ParseSource(sourceStr)

	version := meta.Version
	if version == "" {
		version = DefaultVersion
	}

	enriched := make([]enrichedChunk, 0, len(chunks))
	for idx, chunk := range chunks {
		m := models.ChunkMetadata{
			Ticker:  firstNonEmpty(chunk.Ticker, meta.Ticker, DefaultTicker),
			Year:    firstNonEmpty(chunk.Year, meta.Year, parsedYear),
			DocType: firstNonEmpty(chunk.DocType, meta.DocType, parsedDocType),
			Section: firstNonEmpty(chunk.Section, meta.Section, DefaultSection),
			Source:  firstNonEmpty(chunk.Source, meta.Source, DefaultSource),
			Version: firstNonEmpty(chunk.Version, version),
			Tokens:  chunk.Tokens,
			Text:    chunk.Text,
		}

		chunkNum := ChunkNumber(chunk.ChunkID, idx)
		enriched = append(enriched, enrichedChunk{
			id:        BuildChunkID(m.Ticker, m.Year, m.DocType, m.Section, chunkNum, m.Version),
			namespace: firstNonEmpty(chunk.Namespace, meta.Namespace, DefaultNamespace),
			metadata:  m,
		})
	}
	return enriched
}

// Ingest enriches, embeds, and upserts chunks, returning partial success
// counts. It never aborts partway: a bad chunk or a failed embedding
// batch is counted as skipped and processing continues.
func (s *IngestService) Ingest(ctx context.Context, chunks []models.Chunk, meta CallMetadata) (*IngestResult, error) {
	if len(chunks) == 0 {
		return nil, ErrNoValidVectors
	}

	enriched := s.Enrich(chunks, meta)

	// Empty-text chunks are skipped before any embedding call.
	skipped := 0
	valid := make([]enrichedChunk, 0, len(enriched))
	for _, ec := range enriched {
		if strings.TrimSpace(ec.metadata.Text) == "" {
			skipped++
			continue
		}
		valid = append(valid, ec)
	}

	texts := make([]string, len(valid))
	for i, ec := range valid {
		texts[i] = ec.metadata.Text
	}
	vectors := s.embedder.EmbedBatch(ctx, texts, embeddingBatchSize)

	// Group surviving records by target namespace.
	byNamespace := make(map[string][]models.VectorRecord)
	for i, ec := range valid {
		if vectors[i] == nil {
			skipped++
			continue
		}
		byNamespace[ec.namespace] = append(byNamespace[ec.namespace], models.VectorRecord{
			ID:       ec.id,
			Values:   vectors[i],
			Metadata: ec.metadata,
		})
	}

	totalUpserted := 0
	for namespace, records := range byNamespace {
		log.Printf("Upserting %d vectors to namespace %s", len(records), namespace)
		n, err := s.store.Upsert(ctx, namespace, records)
		totalUpserted += n
		if err != nil {
			log.Printf("Warning: upsert to namespace %s failed after %d records: %v", namespace, n, err)
			skipped += len(records) - n
		}
	}

	if totalUpserted == 0 {
		return nil, ErrNoValidVectors
	}

	log.Printf("Upsert complete: %d vectors inserted, %d chunks skipped", totalUpserted, skipped)
	return &IngestResult{UpsertedCount: totalUpserted, SkippedCount: skipped}, nil
}

// firstNonEmpty returns the first non-empty string.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
