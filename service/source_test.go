package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSource(t *testing.T) {
	tests := []struct {
		name        string
		source      string
		wantYear    string
		wantDocType string
	}{
		{"standard label", "ALX_10-K_2023", "2023", "10-K"},
		{"quarterly form", "AAPL_10-Q_2021", "2021", "10-Q"},
		{"missing year", "AAPL_10-K", "0000", "unknown"},
		{"missing prefix", "10-K_2023", "2023", "unknown"},
		{"empty", "", "0000", "unknown"},
		{"year only", "2023", "2023", "unknown"},
		{"multiple year runs keeps last", "TSLA_10-K_2019_2021", "2021", "10-K_2019"},
		{"lowercase prefix rejected", "alx_10-K_2023", "2023", "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			year, docType := ParseSource(tt.source)
			assert.Equal(t, tt.wantYear, year)
			assert.Equal(t, tt.wantDocType, docType)
		})
	}
}

func TestChunkNumber(t *testing.T) {
	tests := []struct {
		name     string
		fragment any
		fallback int
		want     int
	}{
		{"float from JSON", float64(235), 7, 235},
		{"int", 12, 7, 12},
		{"plain digit string", "42", 7, 42},
		{"prefixed string", "chunk235", 7, 235},
		{"full id takes first digit run", "ALX_2018_10-K_item_15_chunk235_v1", 7, 2018},
		{"no digits", "chunk", 7, 7},
		{"nil fragment", nil, 3, 3},
		{"unsupported type", []string{"x"}, 5, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ChunkNumber(tt.fragment, tt.fallback))
		})
	}
}

func TestBuildChunkID(t *testing.T) {
	id := BuildChunkID("ALX", "2023", "10-K", "item_1", 5, "1")
	assert.Equal(t, "ALX_2023_10-K_item_1_chunk5_v1", id)

	// Deterministic: same inputs, same identifier.
	assert.Equal(t, id, BuildChunkID("ALX", "2023", "10-K", "item_1", 5, "1"))
}

func TestBuildChunkIDStripsExistingVersionSuffix(t *testing.T) {
	// A fragment like "chunk7_v3" contributes only its first digit run,
	// so the final identifier carries exactly one version suffix equal
	// to the configured version, not 3.
	n := ChunkNumber("chunk7_v3", 0)
	id := BuildChunkID("ALX", "2023", "10-K", "item_1", n, "1")
	assert.Equal(t, "ALX_2023_10-K_item_1_chunk7_v1", id)
	assert.Equal(t, 1, strings.Count(id, "_v"))
}

func TestExtractTickers(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    []string
	}{
		{"ticker with stoplisted acronym", "What about AAPL and the CEO's comments?", []string{"AAPL"}},
		{"only stoplist words", "The SEC and the USA discussed an IPO", nil},
		{"multiple tickers in order", "Compare MSFT with GOOGL please", []string{"MSFT", "GOOGL"}},
		{"lowercase ignored", "what about aapl?", nil},
		{"too short and too long", "A TOOLONGX", nil},
		{"empty message", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractTickers(tt.message))
		})
	}
}

func FuzzParseSource(f *testing.F) {
	f.Add("ALX_10-K_2023")
	f.Add("")
	f.Add("_v3")
	f.Add("TSLA_10-Q_0000")
	f.Add("____2023____")

	f.Fuzz(func(t *testing.T, source string) {
		year, docType := ParseSource(source)
		if len(year) != 4 {
			t.Fatalf("year %q is not 4 characters", year)
		}
		if docType == "" {
			t.Fatal("doc type must never be empty")
		}
	})
}

func FuzzBuildChunkID(f *testing.F) {
	f.Add("ALX", "item_1", 0, "1")
	f.Add("TSLA", "item_15_chunk235_v1", 235, "2")

	f.Fuzz(func(t *testing.T, ticker, section string, chunkNum int, version string) {
		id := BuildChunkID(ticker, "2023", "10-K", section, chunkNum, version)
		if !strings.HasSuffix(id, "_v"+version) {
			t.Fatalf("identifier %q missing version suffix _v%s", id, version)
		}
		// Idempotent re-ingestion depends on determinism.
		if id != BuildChunkID(ticker, "2023", "10-K", section, chunkNum, version) {
			t.Fatal("identifier construction is not deterministic")
		}
	})
}
