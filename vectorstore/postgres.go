package vectorstore

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"secadvisor-backend/batch"
	"secadvisor-backend/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store on Postgres with the pgvector
// extension. The filing_chunks table is the single logical index;
// namespaces are rows sharing a namespace column.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore creates a vector store backed by the given pool.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// formatVector formats an embedding as a pgvector literal.
func formatVector(values []float32) string {
	if len(values) == 0 {
		return "[]"
	}
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.FormatFloat(float64(v), 'f', 6, 32)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// Upsert writes records in batches of at most MaxUpsertBatchSize,
// overwriting rows with the same (namespace, id).
func (s *PostgresStore) Upsert(ctx context.Context, namespace string, records []models.VectorRecord) (int, error) {
	total := 0

	for _, group := range batch.Split(records, MaxUpsertBatchSize) {
		for _, rec := range group {
			query := `
				INSERT INTO filing_chunks (
					namespace, id, ticker, year, section, source, doc_type, version, tokens, chunk_text, embedding
				) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11::vector)
				ON CONFLICT (namespace, id) DO UPDATE SET
					ticker = EXCLUDED.ticker,
					year = EXCLUDED.year,
					section = EXCLUDED.section,
					source = EXCLUDED.source,
					doc_type = EXCLUDED.doc_type,
					version = EXCLUDED.version,
					tokens = EXCLUDED.tokens,
					chunk_text = EXCLUDED.chunk_text,
					embedding = EXCLUDED.embedding,
					updated_at = NOW()`

			_, err := s.db.Exec(
				ctx, query,
				namespace,
				rec.ID,
				rec.Metadata.Ticker,
				rec.Metadata.Year,
				rec.Metadata.Section,
				rec.Metadata.Source,
				rec.Metadata.DocType,
				rec.Metadata.Version,
				rec.Metadata.Tokens,
				rec.Metadata.Text,
				formatVector(rec.Values),
			)
			if err != nil {
				return total, fmt.Errorf("%w: upsert failed: %v", ErrUpstream, err)
			}
			total++
		}
	}

	return total, nil
}

// isZeroVector reports whether every component is zero. Cosine distance
// against a zero-norm vector is undefined (NaN in pgvector), so such
// queries must not order by distance.
func isZeroVector(values []float32) bool {
	for _, v := range values {
		if v != 0 {
			return false
		}
	}
	return true
}

// sanitizeScore maps non-finite similarity values to zero so every match
// serializes cleanly.
func sanitizeScore(score float64) float64 {
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return 0
	}
	return score
}

// queryStatement builds the SELECT for a similarity query. A zero query
// vector degrades to a metadata-only listing with a constant zero score,
// ordered by id.
func queryStatement(namespace string, vector []float32, topK int, filter Filter) (string, []any) {
	metadataOnly := isZeroVector(vector)

	var conditions []string
	var args []any
	if metadataOnly {
		args = []any{namespace}
		conditions = []string{"namespace = $1"}
	} else {
		args = []any{formatVector(vector), namespace}
		conditions = []string{"namespace = $2"}
	}

	addFilter := func(column, value string) {
		if value == "" {
			return
		}
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	addFilter("ticker", filter.Ticker)
	addFilter("section", filter.Section)
	addFilter("source", filter.Source)
	addFilter("year", filter.Year)

	args = append(args, topK)

	if metadataOnly {
		return fmt.Sprintf(`
		SELECT
			id, ticker, year, section, source, doc_type, version, tokens, chunk_text,
			0::float8 AS score
		FROM filing_chunks
		WHERE %s
		ORDER BY id
		LIMIT $%d`, strings.Join(conditions, " AND "), len(args)), args
	}

	return fmt.Sprintf(`
		SELECT
			id, ticker, year, section, source, doc_type, version, tokens, chunk_text,
			1 - (embedding <=> $1::vector) AS score
		FROM filing_chunks
		WHERE %s
		ORDER BY embedding <=> $1::vector
		LIMIT $%d`, strings.Join(conditions, " AND "), len(args)), args
}

// Query returns up to topK nearest matches by cosine similarity,
// descending, restricted to the filter conjunction. A zero query vector
// lists by metadata alone with zero scores.
func (s *PostgresStore) Query(ctx context.Context, namespace string, vector []float32, topK int, filter Filter) ([]models.Match, error) {
	if topK > MaxTopK {
		topK = MaxTopK
	}
	if topK <= 0 {
		return nil, nil
	}

	query, args := queryStatement(namespace, vector, topK, filter)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query failed: %v", ErrUpstream, err)
	}
	defer rows.Close()

	var matches []models.Match
	for rows.Next() {
		var m models.Match
		err := rows.Scan(
			&m.ID,
			&m.Metadata.Ticker,
			&m.Metadata.Year,
			&m.Metadata.Section,
			&m.Metadata.Source,
			&m.Metadata.DocType,
			&m.Metadata.Version,
			&m.Metadata.Tokens,
			&m.Metadata.Text,
			&m.Score,
		)
		if err != nil {
			return nil, fmt.Errorf("%w: scan failed: %v", ErrUpstream, err)
		}
		m.Score = sanitizeScore(m.Score)
		matches = append(matches, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iteration failed: %v", ErrUpstream, err)
	}

	return matches, nil
}

// Fetch is a point lookup by identifier; only found records are returned.
func (s *PostgresStore) Fetch(ctx context.Context, namespace string, ids []string) ([]models.VectorRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `
		SELECT id, ticker, year, section, source, doc_type, version, tokens, chunk_text
		FROM filing_chunks
		WHERE namespace = $1 AND id = ANY($2)`

	rows, err := s.db.Query(ctx, query, namespace, ids)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch failed: %v", ErrUpstream, err)
	}
	defer rows.Close()

	var records []models.VectorRecord
	for rows.Next() {
		var rec models.VectorRecord
		err := rows.Scan(
			&rec.ID,
			&rec.Metadata.Ticker,
			&rec.Metadata.Year,
			&rec.Metadata.Section,
			&rec.Metadata.Source,
			&rec.Metadata.DocType,
			&rec.Metadata.Version,
			&rec.Metadata.Tokens,
			&rec.Metadata.Text,
		)
		if err != nil {
			return nil, fmt.Errorf("%w: scan failed: %v", ErrUpstream, err)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// Describe returns per-namespace vector counts. Used as a liveness probe
// and to short-circuit queries against empty namespaces.
func (s *PostgresStore) Describe(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.Query(ctx, "SELECT namespace, COUNT(*) FROM filing_chunks GROUP BY namespace")
	if err != nil {
		return nil, fmt.Errorf("%w: describe failed: %v", ErrUpstream, err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var namespace string
		var count int
		if err := rows.Scan(&namespace, &count); err != nil {
			return nil, fmt.Errorf("%w: scan failed: %v", ErrUpstream, err)
		}
		counts[namespace] = count
	}

	return counts, rows.Err()
}
