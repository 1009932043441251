package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"secadvisor-backend/models"
	"secadvisor-backend/vectorstore"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// stubEmbedder returns a fixed vector, or fails when broken.
type stubEmbedder struct {
	broken bool
}

func (e *stubEmbedder) EmbedText(_ context.Context, text string) ([]float32, error) {
	if e.broken {
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

// stubStore serves queued matches and records what it was asked.
type stubStore struct {
	upserted   map[string][]models.VectorRecord
	matches    []models.Match
	counts     map[string]int
	queryErr   error
	lastTopK   int
	lastNS     string
	lastFilter vectorstore.Filter
}

func newStubStore() *stubStore {
	return &stubStore{
		upserted: make(map[string][]models.VectorRecord),
		counts:   make(map[string]int),
	}
}

func (s *stubStore) Upsert(_ context.Context, namespace string, records []models.VectorRecord) (int, error) {
	s.upserted[namespace] = append(s.upserted[namespace], records...)
	return len(records), nil
}

func (s *stubStore) Query(_ context.Context, namespace string, _ []float32, topK int, filter vectorstore.Filter) ([]models.Match, error) {
	s.lastNS = namespace
	s.lastTopK = topK
	s.lastFilter = filter
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
	return s.counts, nil
}

// stubCompleter returns a canned reply.
type stubCompleter struct {
	reply string
	err   error
}

func (c *stubCompleter) Complete(_ context.Context, _, _ string) (string, error) {
	if c.err != nil {
		return "", c.err
	}
	return c.reply, nil
}

// stubRunner plays back canned parser output.
type stubRunner struct {
	stdout []byte
	stderr []byte
	err    error
}

func (r *stubRunner) Run(_ context.Context, _, _, _ string, _ int64) ([]byte, []byte, error) {
	return r.stdout, r.stderr, r.err
}

// stubArchive keeps archived objects in memory, keyed by storage path.
type stubArchive struct {
	objects map[string][]byte
}

func newStubArchive() *stubArchive {
	return &stubArchive{objects: make(map[string][]byte)}
}

func (a *stubArchive) Upload(_ context.Context, objectID uuid.UUID, filename string, data io.Reader) (string, error) {
	raw, err := io.ReadAll(data)
	if err != nil {
		return "", err
	}
	path := objectID.String()[:2] + "/" + objectID.String() + "_" + filename
	a.objects[path] = raw
	return path, nil
}

func (a *stubArchive) Download(_ context.Context, path string) (io.ReadCloser, error) {
	raw, ok := a.objects[path]
	if !ok {
		return nil, errors.New("object not found")
	}
	return io.NopCloser(bytes.NewReader(raw)), nil
}

func (a *stubArchive) Delete(_ context.Context, path string) error {
	delete(a.objects, path)
	return nil
}

// stubPersonaStore keeps persona selections in memory.
type stubPersonaStore struct {
	personas  map[uuid.UUID]*models.Persona
	createErr error
	lastLimit int
}

func newStubPersonaStore() *stubPersonaStore {
	return &stubPersonaStore{personas: make(map[uuid.UUID]*models.Persona)}
}

func (s *stubPersonaStore) Create(_ context.Context, persona *models.Persona) error {
	if s.createErr != nil {
		return s.createErr
	}
	persona.ID = uuid.New()
	persona.CreatedAt = time.Now()
	s.personas[persona.ID] = persona
	return nil
}

func (s *stubPersonaStore) GetByID(_ context.Context, id uuid.UUID) (*models.Persona, error) {
	persona, ok := s.personas[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return persona, nil
}

func (s *stubPersonaStore) ListRecent(_ context.Context, limit int) ([]*models.Persona, error) {
	s.lastLimit = limit

	var personas []*models.Persona
	for _, p := range s.personas {
		personas = append(personas, p)
	}
	sort.Slice(personas, func(i, j int) bool {
		return personas[i].SelectedAt.After(personas[j].SelectedAt)
	})
	if len(personas) > limit {
		personas = personas[:limit]
	}
	return personas, nil
}

// postJSON performs a request against a single-route router and decodes
// the JSON response body.
func postJSON(t *testing.T, router *gin.Engine, path string, body any) (int, map[string]any) {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(http.MethodPost, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decoded))
	return w.Code, decoded
}

func getJSON(t *testing.T, router *gin.Engine, path string) (int, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decoded))
	return w.Code, decoded
}

func deleteJSON(t *testing.T, router *gin.Engine, path string) (int, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(http.MethodDelete, path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decoded))
	return w.Code, decoded
}
