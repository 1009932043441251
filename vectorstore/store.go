// Package vectorstore provides namespace-scoped vector persistence and
// similarity search over a single logical index.
package vectorstore

import (
	"context"
	"errors"

	"secadvisor-backend/models"
)

const (
	// MaxUpsertBatchSize bounds how many records are written per
	// statement to respect upstream limits.
	MaxUpsertBatchSize = 100

	// MaxTopK is the service-defined ceiling on query result counts.
	MaxTopK = 100
)

// ErrUpstream wraps any transport failure talking to the index. Callers
// decide whether to degrade gracefully or propagate.
var ErrUpstream = errors.New("vector store unavailable")

// Filter is a conjunction of exact-match metadata constraints. Zero-value
// fields are not applied; a zero Filter means no restriction.
type Filter struct {
	Ticker  string
	Section string
	Source  string
	Year    string
}

// IsZero reports whether no constraint is set.
func (f Filter) IsZero() bool {
	return f == Filter{}
}

// Store is the vector-store client. All operations are scoped to a named
// partition (namespace) of the index.
type Store interface {
	// Upsert writes records, overwriting by identifier, and returns
	// the number of records written.
	Upsert(ctx context.Context, namespace string, records []models.VectorRecord) (int, error)

	// Query returns up to topK nearest matches by similarity score,
	// descending. topK is clamped to MaxTopK. Scores are always finite;
	// a zero query vector lists by metadata alone with zero scores.
	Query(ctx context.Context, namespace string, vector []float32, topK int, filter Filter) ([]models.Match, error)

	// Fetch returns the subset of ids found in the namespace. Partial
	// misses are not an error.
	Fetch(ctx context.Context, namespace string, ids []string) ([]models.VectorRecord, error)

	// Describe returns per-namespace vector counts.
	Describe(ctx context.Context) (map[string]int, error)
}
