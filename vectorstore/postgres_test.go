package vectorstore

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatVector(t *testing.T) {
	assert.Equal(t, "[]", formatVector(nil))
	assert.Equal(t, "[0.000000]", formatVector([]float32{0}))
	assert.Equal(t, "[1.500000,-0.250000]", formatVector([]float32{1.5, -0.25}))

	// 768-dim vectors must stay well-formed.
	big := formatVector(make([]float32, 768))
	assert.True(t, strings.HasPrefix(big, "["))
	assert.True(t, strings.HasSuffix(big, "]"))
	assert.Equal(t, 768, strings.Count(big, "0.000000"))
}

func TestFilterIsZero(t *testing.T) {
	assert.True(t, Filter{}.IsZero())
	assert.False(t, Filter{Ticker: "AAPL"}.IsZero())
	assert.False(t, Filter{Year: "2023"}.IsZero())
}

func TestIsZeroVector(t *testing.T) {
	assert.True(t, isZeroVector(nil))
	assert.True(t, isZeroVector(make([]float32, 768)))
	assert.False(t, isZeroVector([]float32{0, 0, 0.1}))
}

func TestSanitizeScore(t *testing.T) {
	assert.Equal(t, 0.0, sanitizeScore(math.NaN()))
	assert.Equal(t, 0.0, sanitizeScore(math.Inf(1)))
	assert.Equal(t, 0.0, sanitizeScore(math.Inf(-1)))
	assert.Equal(t, 0.87, sanitizeScore(0.87))
}

// A zero query vector has no defined cosine distance, so the statement
// must not compare embeddings at all.
func TestQueryStatementZeroVectorListsByMetadata(t *testing.T) {
	sql, args := queryStatement("ALX", make([]float32, 768), 100, Filter{})

	assert.NotContains(t, sql, "<=>")
	assert.Contains(t, sql, "0::float8 AS score")
	assert.Contains(t, sql, "ORDER BY id")
	require.Len(t, args, 2)
	assert.Equal(t, "ALX", args[0])
	assert.Equal(t, 100, args[1])
}

func TestQueryStatementRanksBySimilarity(t *testing.T) {
	sql, args := queryStatement("var", []float32{0.1, 0.2}, 3, Filter{Ticker: "AAPL"})

	assert.Contains(t, sql, "1 - (embedding <=> $1::vector) AS score")
	assert.Contains(t, sql, "ORDER BY embedding <=> $1::vector")
	assert.Contains(t, sql, "ticker = $3")
	require.Len(t, args, 4)
	assert.Equal(t, "var", args[1])
	assert.Equal(t, "AAPL", args[2])
	assert.Equal(t, 3, args[3])
}
