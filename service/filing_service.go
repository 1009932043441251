package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"secadvisor-backend/models"
	"secadvisor-backend/storage"

	"github.com/google/uuid"
)

// Output-buffer ceilings for the external parser, scaled by known
// document complexity.
const (
	baseMaxOutput     = 10 * 1024 * 1024
	largeCapMaxOutput = 30 * 1024 * 1024
	specialMaxOutput  = 50 * 1024 * 1024
)

// largeCapTickers produce exceptionally large filings and get an
// elevated output ceiling plus lenient diagnostics handling.
var largeCapTickers = map[string]bool{
	"AAPL": true, "MSFT": true, "AMZN": true, "GOOGL": true, "GOOG": true,
	"META": true, "TSLA": true, "BRK.A": true, "BRK.B": true, "JPM": true,
	"V": true, "PG": true, "UNH": true, "HD": true, "MA": true, "BAC": true,
	"XOM": true, "DIS": true, "NVDA": true, "PYPL": true, "ADBE": true,
	"INTC": true, "CMCSA": true, "PFE": true, "WMT": true, "CRM": true,
	"NFLX": true, "VZ": true, "ABT": true, "KO": true,
}

// specialTicker gets the highest ceiling of all.
const specialTicker = "TSLA"

// validFormTypes enumerates the supported SEC form types.
var validFormTypes = map[string]bool{"10-K": true, "10-Q": true}

// Failure taxonomy surfaced to callers of ParseAndIngest.
var (
	ErrValidation       = errors.New("invalid request")
	ErrNotFound         = errors.New("no filing found")
	ErrComplexFormat    = errors.New("filing has a complex format")
	ErrBufferExceeded   = errors.New("parser output exceeded the allotted buffer")
	ErrEmbeddingStorage = errors.New("failed to store embeddings")
)

// Runner executes the external filing parser and returns its primary
// output and diagnostic stream. Output beyond maxOutput bytes fails with
// an error wrapping ErrBufferExceeded.
type Runner interface {
	Run(ctx context.Context, ticker, formType, year string, maxOutput int64) (stdout, stderr []byte, err error)
}

// ChunkedOutput is the chunk list section of the parser's output.
type ChunkedOutput struct {
	Metadata json.RawMessage `json:"metadata,omitempty"`
	Chunks   []models.Chunk  `json:"chunks"`
}

// parseOutput is the parser's primary output, decoded as a single
// structured result.
type parseOutput struct {
	Error      string          `json:"error,omitempty"`
	Structured json.RawMessage `json:"structured,omitempty"`
	Chunked    *ChunkedOutput  `json:"chunked,omitempty"`
}

// FilingResult is the structured+chunked parse result merged with the
// ingestion outcome counts. ArchivePath locates the archived raw parser
// output, empty when archiving is disabled or failed.
type FilingResult struct {
	Structured  json.RawMessage `json:"structured,omitempty"`
	Chunked     *ChunkedOutput  `json:"chunked,omitempty"`
	Year        string          `json:"year"`
	Upserted    int             `json:"upsertedCount"`
	Skipped     int             `json:"skippedCount"`
	ArchivePath string          `json:"archivePath,omitempty"`
}

// FilingService orchestrates the external parser and forwards parsed
// chunks into the ingestion pipeline.
type FilingService struct {
	runner  Runner
	ingest  *IngestService
	archive storage.Storage
}

// FilingServiceOption is a functional option for FilingService.
type FilingServiceOption func(*FilingService)

// FilingWithRunner sets the parser runner.
func FilingWithRunner(r Runner) FilingServiceOption {
	return func(s *FilingService) {
		s.runner = r
	}
}

// FilingWithIngestService sets the ingestion pipeline.
func FilingWithIngestService(ingest *IngestService) FilingServiceOption {
	return func(s *FilingService) {
		s.ingest = ingest
	}
}

// FilingWithArchive sets the raw-output archive. Optional; archiving is
// best effort.
func FilingWithArchive(archive storage.Storage) FilingServiceOption {
	return func(s *FilingService) {
		s.archive = archive
	}
}

// NewFilingService creates a new filing service.
func NewFilingService(opts ...FilingServiceOption) *FilingService {
	s := &FilingService{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// maxOutputFor returns the output-buffer ceiling for a ticker.
func maxOutputFor(ticker string) int64 {
	switch {
	case ticker == specialTicker:
		return specialMaxOutput
	case largeCapTickers[ticker]:
		return largeCapMaxOutput
	default:
		return baseMaxOutput
	}
}

// ParseAndIngest validates the request, runs the external parser,
// classifies its diagnostics, and forwards parsed chunks into the
// ingestion pipeline.
func (s *FilingService) ParseAndIngest(ctx context.Context, ticker, formType, year string) (*FilingResult, error) {
	if ticker == "" || formType == "" || year == "" {
		return nil, fmt.Errorf("%w: missing required parameters: ticker, formType, year", ErrValidation)
	}

	formType = strings.ToUpper(formType)
	if !validFormTypes[formType] {
		return nil, fmt.Errorf("%w: invalid form type %q, supported types are 10-K, 10-Q", ErrValidation, formType)
	}

	currentYear := time.Now().Year()
	yearInt, err := strconv.Atoi(year)
	if err != nil || yearInt > currentYear {
		return nil, fmt.Errorf("%w: invalid year %q, must be a number not exceeding the current year (%d)", ErrValidation, year, currentYear)
	}

	ticker = strings.ToUpper(ticker)
	isLargeCap := largeCapTickers[ticker]
	isSpecial := ticker == specialTicker

	maxOutput := maxOutputFor(ticker)
	log.Printf("Parsing %s %s %s with output ceiling %dMB", ticker, formType, year, maxOutput/(1024*1024))

	stdout, stderr, err := s.runner.Run(ctx, ticker, formType, year, maxOutput)
	if err != nil {
		if errors.Is(err, ErrBufferExceeded) {
			return nil, fmt.Errorf("%w: this filing is very large, try a different year or form type", ErrBufferExceeded)
		}
		return nil, fmt.Errorf("error executing filing parser: %w (stderr: %s)", err, preview(stderr, 500, 500))
	}

	if err := classifyDiagnostics(stdout, stderr, ticker, isLargeCap, isSpecial); err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(stdout)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty response from filing parser (stderr: %s)", preview(stderr, 500, 500))
	}

	var output parseOutput
	if err := json.Unmarshal(trimmed, &output); err != nil {
		if isLargeCap {
			return nil, fmt.Errorf("%w: this filing is complex and may require special handling, output preview: %s",
				ErrComplexFormat, preview(stdout, 500, 0))
		}
		return nil, fmt.Errorf("error parsing filing parser output: %v, output preview: %s",
			err, preview(stdout, 1000, 1000))
	}

	if output.Error != "" {
		if strings.Contains(output.Error, "Filing could not be processed") {
			return nil, fmt.Errorf("%w for %s %s %s", ErrNotFound, ticker, formType, year)
		}
		if (isSpecial || isLargeCap) && strings.Contains(output.Error, "table of contents") {
			return nil, fmt.Errorf("%w: this company has complex filings with a special structure", ErrComplexFormat)
		}
		return nil, errors.New(output.Error)
	}

	if output.Chunked == nil || len(output.Chunked.Chunks) == 0 {
		return nil, fmt.Errorf("filing parser returned no chunks for %s %s %s", ticker, formType, year)
	}

	archivePath := s.archiveRawOutput(ctx, ticker, formType, year, trimmed)

	ingestRes, err := s.ingest.Ingest(ctx, output.Chunked.Chunks, CallMetadata{Ticker: ticker})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingStorage, err)
	}

	return &FilingResult{
		Structured:  output.Structured,
		Chunked:     output.Chunked,
		Year:        year,
		Upserted:    ingestRes.UpsertedCount,
		Skipped:     ingestRes.SkippedCount,
		ArchivePath: archivePath,
	}, nil
}

// classifyDiagnostics interprets the parser's diagnostic stream. An
// explicit error marker with empty primary output is a hard failure; a
// "No filing found" message maps to not-found; artificial-section
// notices and plain warnings pass through.
func classifyDiagnostics(stdout, stderr []byte, ticker string, isLargeCap, isSpecial bool) error {
	diag := string(stderr)
	if strings.TrimSpace(diag) == "" {
		return nil
	}

	isArtificialSection := strings.Contains(diag, "No sections parsed; sample content:") &&
		(strings.Contains(diag, "Created artificial sections") || isLargeCap)
	containsErrors := strings.Contains(diag, "ERROR:") &&
		!isArtificialSection &&
		len(bytes.TrimSpace(stdout)) == 0

	if (isSpecial || isLargeCap) && strings.Contains(diag, "table of contents") && containsErrors {
		return fmt.Errorf("%w: using a fallback method to parse it (diagnostics: %s)",
			ErrComplexFormat, preview(stderr, 500, 500))
	}

	if containsErrors {
		if strings.Contains(diag, "No filing found") {
			return fmt.Errorf("%w for %s", ErrNotFound, ticker)
		}
		return fmt.Errorf("error processing SEC filing: %s", preview(stderr, 500, 500))
	}

	log.Printf("Parser diagnostics for %s (non-fatal): %s", ticker, preview(stderr, 500, 0))
	return nil
}

// archiveRawOutput stores the raw parser output for audit and debugging
// and returns its storage path. Best effort: failures are logged, never
// propagated, and yield an empty path.
func (s *FilingService) archiveRawOutput(ctx context.Context, ticker, formType, year string, raw []byte) string {
	if s.archive == nil {
		return ""
	}

	filename := fmt.Sprintf("%s_%s_%s.json", ticker, formType, year)
	path, err := s.archive.Upload(ctx, uuid.New(), filename, bytes.NewReader(raw))
	if err != nil {
		log.Printf("Warning: failed to archive parser output for %s: %v", filename, err)
		return ""
	}
	log.Printf("Archived raw parser output to %s", path)
	return path
}

// preview truncates a diagnostic blob to bounded head/tail excerpts so
// error payloads stay readable.
func preview(b []byte, head, tail int) string {
	s := string(b)
	if len(s) <= head+tail {
		return s
	}
	if tail <= 0 {
		return s[:head] + "...[truncated]..."
	}
	return s[:head] + "...[truncated]..." + s[len(s)-tail:]
}
