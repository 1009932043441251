package models

// Chunk is a unit of source document text submitted for embedding and
// storage. Callers may supply only a subset of the metadata fields; the
// ingestion pipeline back-fills the rest from call-level metadata, from
// values parsed out of the source label, and finally from fixed defaults.
type Chunk struct {
	Text      string `json:"text"`
	ChunkID   any    `json:"chunk_id,omitempty"` // number or string, may embed a numeric suffix
	Ticker    string `json:"ticker,omitempty"`
	Section   string `json:"section,omitempty"`
	Source    string `json:"source,omitempty"` // provenance label, e.g. "ALX_10-K_2023"
	Tokens    int    `json:"tokens,omitempty"`
	DocType   string `json:"doc_type,omitempty"`
	Version   string `json:"version,omitempty"`
	Year      string `json:"year,omitempty"`
	Namespace string `json:"namespace,omitempty"`
}

// ChunkMetadata is the fully-populated metadata set carried by every
// stored vector. Text is included so matches can be displayed without a
// second lookup.
type ChunkMetadata struct {
	Ticker  string `json:"ticker"`
	Year    string `json:"year"`
	Section string `json:"section"`
	Source  string `json:"source"`
	DocType string `json:"doc_type"`
	Version string `json:"version"`
	Tokens  int    `json:"tokens"`
	Text    string `json:"text"`
}

// VectorRecord is the unit persisted to the vector store.
type VectorRecord struct {
	ID       string        `json:"id"`
	Values   []float32     `json:"values"`
	Metadata ChunkMetadata `json:"metadata"`
}

// Match is a single vector-store query result. Score is the
// upstream-computed cosine similarity, higher = more relevant.
type Match struct {
	ID       string        `json:"id"`
	Score    float64       `json:"score"`
	Metadata ChunkMetadata `json:"metadata"`
}
