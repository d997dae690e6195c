package chat

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/fabfab/ragchat/embeddings"
	"github.com/fabfab/ragchat/llm"
	"github.com/fabfab/ragchat/search"
	"github.com/fabfab/ragchat/vectorstore"
)

const (
	defaultTopK = 5

	chatTemperature = 0.5
	chatMaxTokens   = 1024

	maxSearchResultsInPrompt = 3
	snippetLimit             = 200
)

type TurnRequest struct {
	Message      string
	Role         string
	SessionID    string
	UseWebSearch bool
}

type TurnResponse struct {
	Response   string
	UsedRAG    bool
	UsedSearch bool
}

type Service struct {
	sessions  *SessionStore
	embedder  embeddings.Embedder
	retriever *vectorstore.HybridRetriever
	gate      vectorstore.RelevanceGate
	llm       llm.Client
	policy    *search.Policy
	searcher  *search.Searcher
	logger    *zap.Logger

	topK        int
	searchCount int
	now         func() time.Time
}

type Options struct {
	TopK        int
	SearchCount int
	Now         func() time.Time
}

func NewService(
	sessions *SessionStore,
	embedder embeddings.Embedder,
	retriever *vectorstore.HybridRetriever,
	gate vectorstore.RelevanceGate,
	llmClient llm.Client,
	policy *search.Policy,
	searcher *search.Searcher,
	logger *zap.Logger,
	opts Options,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.TopK <= 0 {
		opts.TopK = defaultTopK
	}
	if opts.SearchCount <= 0 {
		opts.SearchCount = 5
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Service{
		sessions:    sessions,
		embedder:    embedder,
		retriever:   retriever,
		gate:        gate,
		llm:         llmClient,
		policy:      policy,
		searcher:    searcher,
		logger:      logger,
		topK:        opts.TopK,
		searchCount: opts.SearchCount,
		now:         opts.Now,
	}
}

// Turn runs one chat exchange: retrieve document context if the session has
// documents, fall back to web search when requested, attach at most one of
// the two, and complete. Augmentation failures degrade silently; only a
// completion failure fails the turn.
func (s *Service) Turn(ctx context.Context, req TurnRequest) (TurnResponse, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return TurnResponse{}, fmt.Errorf("message cannot be empty")
	}
	role := req.Role
	if role == "" {
		role = llm.RoleUser
	}

	conv := s.sessions.GetOrCreate(req.SessionID)
	if !conv.Active {
		return TurnResponse{}, ErrSessionClosed
	}

	conv.Append(role, message)

	docContext := s.retrieveDocumentContext(ctx, conv, message)

	var searchResults []search.Result
	if req.UseWebSearch && len(docContext) == 0 {
		searchResults = s.runWebSearch(ctx, conv, message)
	}

	messages := s.assembleMessages(conv, message, docContext, searchResults)

	answer, err := s.llm.Generate(ctx, messages, llm.GenerateOptions{
		Temperature: chatTemperature,
		MaxTokens:   chatMaxTokens,
	})
	if err != nil {
		return TurnResponse{}, fmt.Errorf("generate response: %w", err)
	}

	answer = strings.TrimSpace(answer)
	conv.Append(llm.RoleAssistant, answer)

	return TurnResponse{
		Response:   answer,
		UsedRAG:    len(docContext) > 0,
		UsedSearch: len(searchResults) > 0,
	}, nil
}

// retrieveDocumentContext embeds the message and runs hybrid retrieval when
// the session has attached documents. Anything that goes wrong, including a
// gate rejection, yields no context rather than an error.
func (s *Service) retrieveDocumentContext(ctx context.Context, conv *Conversation, message string) []vectorstore.RetrievalResult {
	if !conv.HasDocuments() || s.retriever == nil || s.embedder == nil {
		return nil
	}

	vector, err := s.embedder.EmbedOne(ctx, message)
	if err != nil {
		s.logger.Warn("query embedding failed, skipping document context", zap.Error(err))
		return nil
	}

	results, err := s.retriever.HybridQuery(ctx, vector, message, s.topK, nil)
	if err != nil {
		s.logger.Warn("document retrieval failed, skipping document context", zap.Error(err))
		return nil
	}

	if !s.gate.Accept(results) {
		if len(results) > 0 {
			s.logger.Info("document context rejected as irrelevant",
				zap.Float64("distance", results[0].Distance),
				zap.Float64("threshold", s.gate.Threshold()))
		}
		return nil
	}

	return results
}

// runWebSearch consults the decision policy for the turn's rationale,
// rewrites the message into a search query, and runs the enriched search.
// The caller opted in explicitly, so a negative verdict is logged but does
// not veto the search.
func (s *Service) runWebSearch(ctx context.Context, conv *Conversation, message string) []search.Result {
	if s.searcher == nil || s.policy == nil {
		return nil
	}

	now := s.now()

	verdict := s.policy.ClassifyNeedSearch(ctx, conv.Messages, message, now)
	s.logger.Info("search decision",
		zap.Bool("needs_search", verdict.NeedsSearch),
		zap.String("reason", verdict.Reason))

	query := s.policy.RewriteQuery(ctx, conv.Messages, message, now)

	results, err := s.searcher.SearchAndEnrich(ctx, query, s.searchCount, now)
	if err != nil {
		s.logger.Warn("web search failed, continuing without search context", zap.Error(err))
		return nil
	}

	return results
}

// assembleMessages builds the outbound message set: a context-specific
// system instruction, the conversation history, a timestamped question
// message, at most one labeled context block, and a closing instruction.
func (s *Service) assembleMessages(conv *Conversation, message string, docContext []vectorstore.RetrievalResult, searchResults []search.Result) []llm.Message {
	var system string
	switch {
	case len(docContext) > 0:
		system = "You are a helpful assistant. Answer the user's question using the document content provided below."
	case len(searchResults) > 0:
		system = "You are a helpful assistant. Answer the user's question using the web search results provided below. Be direct and informative."
	default:
		system = "You are a helpful assistant. Answer the user's question using your knowledge. If you don't know something, say so."
	}

	messages := make([]llm.Message, 0, len(conv.Messages)+4)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: system})

	// Conversation history minus its seed system message: that role is taken
	// by the context-specific instruction above.
	messages = append(messages, conv.Messages[1:]...)

	messages = append(messages, llm.Message{
		Role:    llm.RoleUser,
		Content: fmt.Sprintf("Current time: %s\nUser question: %s", s.now().UTC().Format(time.RFC3339), message),
	})

	if len(docContext) > 0 {
		var sb strings.Builder
		sb.WriteString("Uploaded Document Content:\n")
		for i, result := range docContext {
			sb.WriteString(fmt.Sprintf("\n[Excerpt %d]: %s\n", i+1, result.Content))
		}
		messages = append(messages, llm.Message{Role: llm.RoleAssistant, Content: sb.String()})
	} else if len(searchResults) > 0 {
		var sb strings.Builder
		sb.WriteString("Web Search Results:\n")
		for i, result := range searchResults {
			if i == maxSearchResultsInPrompt {
				break
			}
			sb.WriteString(fmt.Sprintf("\n%d. %s\n   %s\n", i+1, result.Title, truncate(result.Snippet, snippetLimit)))
		}
		messages = append(messages, llm.Message{Role: llm.RoleAssistant, Content: sb.String()})
	}

	messages = append(messages, llm.Message{
		Role:    llm.RoleUser,
		Content: "Answer the question based on the information provided.",
	})

	return messages
}

// truncate cuts text to at most limit bytes, backing up so the cut never
// splits a multi-byte rune.
func truncate(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	for limit > 0 && !utf8.RuneStart(text[limit]) {
		limit--
	}
	return text[:limit]
}
