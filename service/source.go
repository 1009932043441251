package service

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Defaults used to back-fill chunk metadata that could not be resolved
// from the chunk, the call metadata, or the source label.
const (
	DefaultYear    = "0000"
	DefaultDocType = "unknown"
	DefaultTicker  = "unknown"
	DefaultSection = "general"
	DefaultSource  = "manual"
	DefaultVersion = "1"
)

var (
	yearRunPattern      = regexp.MustCompile(`\d{4}`)
	digitRunPattern     = regexp.MustCompile(`\d+`)
	docTypePattern      = regexp.MustCompile(`^[A-Z]+_(.+)$`)
	versionSuffixRegexp = regexp.MustCompile(`_v\d+$`)
	tickerPattern       = regexp.MustCompile(`\b[A-Z]{2,5}\b`)
)

// tickerStoplist holds common acronyms that match the ticker pattern but
// are never tickers in user messages.
var tickerStoplist = map[string]bool{
	"AI": true, "CEO": true, "IPO": true, "ETF": true, "ESG": true,
	"USA": true, "USD": true, "SEC": true, "FAQ": true,
}

// ParseSource extracts the filing year and document type from a source
// label like "ALX_10-K_2023": the last 4-digit run is the year, and the
// text between the leading uppercase ticker prefix and that year is the
// doc type. Unparseable labels yield the fixed defaults.
func ParseSource(source string) (year, docType string) {
	year = DefaultYear
	docType = DefaultDocType
	if source == "" {
		return year, docType
	}

	runs := yearRunPattern.FindAllString(source, -1)
	if len(runs) > 0 {
		year = runs[len(runs)-1]
	}

	withoutYear := source
	if year != DefaultYear {
		withoutYear = strings.Replace(source, "_"+year, "", 1)
	}
	if m := docTypePattern.FindStringSubmatch(withoutYear); m != nil {
		docType = m[1]
	}

	return year, docType
}

// ChunkNumber resolves the numeric chunk identifier from a
// caller-supplied fragment: numbers are used directly, strings
// contribute their first run of digits, and anything else falls back to
// the chunk's position in the input sequence.
func ChunkNumber(fragment any, fallback int) int {
	switch v := fragment.(type) {
	case float64:
		return int(v)
	case int:
		return v
	case string:
		if m := digitRunPattern.FindString(v); m != "" {
			if n, err := strconv.Atoi(m); err == nil {
				return n
			}
		}
	}
	return fallback
}

// BuildChunkID constructs the deterministic vector identifier
// {ticker}_{year}_{docType}_{section}_chunk{N}_v{version}. Any
// pre-existing _v<digits> suffix on the base is stripped so the version
// suffix appears exactly once, keeping re-ingestion idempotent.
func BuildChunkID(ticker, year, docType, section string, chunkNum int, version string) string {
	base := fmt.Sprintf("%s_%s_%s_%s_chunk%d", ticker, year, docType, section, chunkNum)
	base = versionSuffixRegexp.ReplaceAllString(base, "")
	return base + "_v" + version
}

// ExtractTickers finds candidate ticker symbols in a message: runs of
// 2-5 uppercase letters, excluding a stoplist of common acronyms.
func ExtractTickers(message string) []string {
	matches := tickerPattern.FindAllString(message, -1)

	var tickers []string
	for _, m := range matches {
		if !tickerStoplist[m] {
			tickers = append(tickers, m)
		}
	}
	return tickers
}
