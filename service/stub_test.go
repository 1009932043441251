package service

import (
	"context"
	"errors"
	"strings"

	"secadvisor-backend/models"
	"secadvisor-backend/vectorstore"
)

// stubEmbedder returns a fixed vector for every text except those listed
// in failFor (or empty ones), which fail individually.
type stubEmbedder struct {
	failAll bool
	failFor map[string]bool
	calls   []string
}

func (e *stubEmbedder) EmbedText(_ context.Context, text string) ([]float32, error) {
	e.calls = append(e.calls, text)
	if e.failAll || e.failFor[text] {
		return nil, errors.New("embedding unavailable")
	}
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("empty text")
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

func (e *stubEmbedder) EmbedBatch(ctx context.Context, texts []string, _ int) [][]float32 {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := e.EmbedText(ctx, text)
		if err != nil {
			continue
		}
		vectors[i] = vec
	}
	return vectors
}

// stubStore records upserts and serves queued query results.
type stubStore struct {
	upserted    map[string][]models.VectorRecord
	matches     []models.Match
	queryErr    error
	upsertErr   error
	queryFilter vectorstore.Filter
}

func newStubStore() *stubStore {
	return &stubStore{upserted: make(map[string][]models.VectorRecord)}
}

func (s *stubStore) Upsert(_ context.Context, namespace string, records []models.VectorRecord) (int, error) {
	if s.upsertErr != nil {
		return 0, s.upsertErr
	}
	s.upserted[namespace] = append(s.upserted[namespace], records...)
	return len(records), nil
}

func (s *stubStore) Query(_ context.Context, _ string, _ []float32, topK int, filter vectorstore.Filter) ([]models.Match, error) {
	s.queryFilter = filter
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	if len(s.matches) > topK {
		return s.matches[:topK], nil
	}
	return s.matches, nil
}

func (s *stubStore) Fetch(_ context.Context, namespace string, ids []string) ([]models.VectorRecord, error) {
	var found []models.VectorRecord
	for _, rec := range s.upserted[namespace] {
		for _, id := range ids {
			if rec.ID == id {
				found = append(found, rec)
			}
		}
	}
	return found, nil
}

func (s *stubStore) Describe(_ context.Context) (map[string]int, error) {
	counts := make(map[string]int)
	for ns, recs := range s.upserted {
		counts[ns] = len(recs)
	}
	return counts, nil
}

// stubCompleter echoes the prompts it was called with.
type stubCompleter struct {
	reply      string
	err        error
	lastSystem string
	lastUser   string
}

func (c *stubCompleter) Complete(_ context.Context, systemPrompt, userMessage string) (string, error) {
	c.lastSystem = systemPrompt
	c.lastUser = userMessage
	if c.err != nil {
		return "", c.err
	}
	return c.reply, nil
}

// stubRunner plays back canned parser output.
type stubRunner struct {
	stdout    []byte
	stderr    []byte
	err       error
	maxOutput int64
}

func (r *stubRunner) Run(_ context.Context, _, _, _ string, maxOutput int64) ([]byte, []byte, error) {
	r.maxOutput = maxOutput
	return r.stdout, r.stderr, r.err
}
