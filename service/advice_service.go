package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"secadvisor-backend/vectorstore"
)

const (
	// adviceNamespace is the partition queried by the chat path.
	adviceNamespace = "var"
	// adviceTopK bounds retrieved contexts per question.
	adviceTopK = 3
	// adviceScoreThreshold drops low-confidence matches; strictly
	// greater-than, so a score of exactly 0.5 is excluded.
	adviceScoreThreshold = 0.5
)

// fallbackNote is attached whenever a canned reply is substituted.
const fallbackNote = "This is a fallback response since the AI service couldn't be reached."

// fallbackReplies maps each persona to canned advice used when any
// upstream service fails. Unrecognized personas resolve to
// defaultFallbackReply, never to an absent entry.
var fallbackReplies = map[string]string{
	"Innovator":      "Look into emerging technologies like AI, blockchain, and quantum computing. Consider allocating 10-15% of your portfolio to innovation-focused ETFs.",
	"Traditionalist": "A balanced portfolio with 60% in index funds, 30% in bonds, and 10% in cash reserves would be prudent for long-term stability.",
	"Adventurer":     "Consider emerging markets in Southeast Asia where there's high growth potential. A barbell strategy with both safe assets and high-risk ventures could work well.",
	"Athlete":        "Think of your investment strategy like training: consistent contributions to your accounts, regular portfolio reviews, and a disciplined approach to meeting goals.",
	"Artist":         "ESG investments that align with your values can provide both financial returns and social impact. Consider sustainable funds that support creative industries.",
}

const defaultFallbackReply = "I recommend a diversified portfolio based on your financial goals and risk tolerance."

// Completer runs a chat completion against the model API.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userMessage string) (string, error)
}

// AdviceSource identifies a filing context cited in a grounded reply.
type AdviceSource struct {
	Ticker  string `json:"ticker"`
	Year    string `json:"year"`
	Section string `json:"section"`
}

// AdviceResult is the outcome of answering a question. The pipeline
// never fails for a well-formed request: when any upstream call breaks,
// Reply holds canned persona advice and Fallback is set.
type AdviceResult struct {
	Reply       string
	Sources     []AdviceSource
	ContextUsed int
	Fallback    bool
	Note        string
}

// retrievedContext is one thresholded vector-store match, alive for a
// single request.
type retrievedContext struct {
	Text    string
	Ticker  string
	Section string
	Year    string
	Score   float64
}

// AdviceService answers user questions with filing-grounded advice.
type AdviceService struct {
	embedder  Embedder
	completer Completer
	store     vectorstore.Store
}

// AdviceServiceOption is a functional option for AdviceService.
type AdviceServiceOption func(*AdviceService)

// AdviceWithEmbedder sets the embedding client.
func AdviceWithEmbedder(e Embedder) AdviceServiceOption {
	return func(s *AdviceService) {
		s.embedder = e
	}
}

// AdviceWithCompleter sets the chat-completion client.
func AdviceWithCompleter(c Completer) AdviceServiceOption {
	return func(s *AdviceService) {
		s.completer = c
	}
}

// AdviceWithStore sets the vector store.
func AdviceWithStore(store vectorstore.Store) AdviceServiceOption {
	return func(s *AdviceService) {
		s.store = store
	}
}

// NewAdviceService creates a new advice service.
func NewAdviceService(opts ...AdviceServiceOption) *AdviceService {
	s := &AdviceService{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Advise answers a question for a persona, optionally scoped to a
// ticker. Grounded replies cite the filings used; on any upstream
// failure a canned persona reply is substituted instead of an error.
func (s *AdviceService) Advise(ctx context.Context, message, persona, ticker string) *AdviceResult {
	targetTicker := ticker
	if targetTicker == "" {
		if detected := ExtractTickers(message); len(detected) > 0 {
			targetTicker = detected[0]
		}
	}

	contexts, err := s.retrieveContexts(ctx, message, targetTicker)
	if err != nil {
		log.Printf("Warning: context retrieval failed: %v. Using fallback response.", err)
		return s.fallback(persona)
	}

	systemPrompt := buildAdvicePrompt(persona, contexts)
	reply, err := s.completer.Complete(ctx, systemPrompt, message)
	if err != nil {
		log.Printf("Warning: completion failed: %v. Using fallback response.", err)
		return s.fallback(persona)
	}

	sources := make([]AdviceSource, len(contexts))
	for i, c := range contexts {
		sources[i] = AdviceSource{Ticker: c.Ticker, Year: c.Year, Section: c.Section}
	}

	return &AdviceResult{
		Reply:       reply,
		Sources:     sources,
		ContextUsed: len(contexts),
	}
}

// retrieveContexts embeds the question, queries the vector store with an
// optional ticker filter, and keeps matches scoring strictly above the
// acceptance threshold.
func (s *AdviceService) retrieveContexts(ctx context.Context, message, ticker string) ([]retrievedContext, error) {
	vector, err := s.embedder.EmbedText(ctx, message)
	if err != nil {
		return nil, fmt.Errorf("failed to embed question: %w", err)
	}

	filter := vectorstore.Filter{}
	if ticker != "" {
		filter.Ticker = strings.ToUpper(ticker)
	}

	matches, err := s.store.Query(ctx, adviceNamespace, vector, adviceTopK, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query vector store: %w", err)
	}

	var contexts []retrievedContext
	for _, m := range matches {
		if m.Score <= adviceScoreThreshold {
			continue
		}
		contexts = append(contexts, retrievedContext{
			Text:    m.Metadata.Text,
			Ticker:  m.Metadata.Ticker,
			Section: m.Metadata.Section,
			Year:    m.Metadata.Year,
			Score:   m.Score,
		})
	}

	log.Printf("Found %d relevant contexts for ticker %q", len(contexts), ticker)
	return contexts, nil
}

// buildAdvicePrompt assembles the persona preamble, one numbered block
// per context, and a citation instruction.
func buildAdvicePrompt(persona string, contexts []retrievedContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a financial assistant tailored to the %s persona. Provide concise, relevant financial advice.", persona)

	if len(contexts) > 0 {
		b.WriteString("\n\nYou have access to the following relevant information from SEC filings:\n\n")
		for i, c := range contexts {
			fmt.Fprintf(&b, "Context %d (%s - %s, Section: %s, Relevance: %.1f%%):\n%s\n\n",
				i+1, c.Ticker, c.Year, c.Section, c.Score*100, c.Text)
		}
		b.WriteString("Use this information to provide accurate, data-driven advice. Always cite the company and year when referencing this data.")
	}

	return b.String()
}

// fallback resolves the canned reply for a persona.
func (s *AdviceService) fallback(persona string) *AdviceResult {
	reply, ok := fallbackReplies[persona]
	if !ok {
		reply = defaultFallbackReply
	}
	return &AdviceResult{
		Reply:    reply,
		Fallback: true,
		Note:     fallbackNote,
	}
}
