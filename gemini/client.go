// Package gemini wraps the Google Generative AI client for query/chunk
// embedding and grounded chat completion.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"secadvisor-backend/batch"

	"github.com/google/generative-ai-go/genai"
)

const (
	// EmbeddingModelName produces 768-dimension vectors.
	EmbeddingModelName = "text-embedding-004"
	// CompletionModelName is the chat model used for grounded advice.
	CompletionModelName = "gemini-1.5-flash"

	// EmbeddingDimension is the output dimension of EmbeddingModelName.
	EmbeddingDimension = 768
)

var (
	ErrEmptyInput    = errors.New("empty text submitted for embedding")
	ErrEmptyResponse = errors.New("model returned an empty response")
)

// Client is a long-lived handle around a genai.Client, initialized once
// per process and shared by request-scoped handlers.
type Client struct {
	client *genai.Client
}

// NewClient wraps an initialized genai client.
func NewClient(client *genai.Client) *Client {
	return &Client{client: client}
}

// EmbedText generates an embedding for a single text. Empty or
// whitespace-only input fails with ErrEmptyInput before any network call.
func (c *Client) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}

	em := c.client.EmbeddingModel(EmbeddingModelName)
	res, err := em.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	if res.Embedding == nil || len(res.Embedding.Values) == 0 {
		return nil, ErrEmptyResponse
	}

	return res.Embedding.Values, nil
}

// EmbedBatch embeds texts in groups of batchSize. All calls within a
// group are issued concurrently and awaited together; groups run
// sequentially to bound peak upstream load. The returned slice is
// aligned with the input: a nil entry means that text failed (empty
// input or upstream error) without blocking the rest of the batch.
func (c *Client) EmbedBatch(ctx context.Context, texts []string, batchSize int) [][]float32 {
	vectors := make([][]float32, len(texts))

	groups := batch.Split(texts, batchSize)
	offset := 0
	for groupIdx, group := range groups {
		log.Printf("Embedding batch %d/%d (%d texts)", groupIdx+1, len(groups), len(group))

		var wg sync.WaitGroup
		for i, text := range group {
			wg.Add(1)
			go func(slot int, text string) {
				defer wg.Done()
				vec, err := c.EmbedText(ctx, text)
				if err != nil {
					log.Printf("Warning: embedding failed for batch item %d: %v", slot, err)
					return
				}
				vectors[slot] = vec
			}(offset+i, text)
		}
		wg.Wait()

		offset += len(group)
	}

	return vectors
}

// Complete runs a chat completion with a system prompt and a user
// message, returning the completion text.
func (c *Client) Complete(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	gm := c.client.GenerativeModel(CompletionModelName)
	gm.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(systemPrompt)},
	}

	resp, err := gm.GenerateContent(ctx, genai.Text(userMessage))
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}

	text := responseText(resp)
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// responseText flattens the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return b.String()
}
