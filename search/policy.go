package search

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fabfab/ragchat/llm"
)

// heuristicTerms trigger the fallback classifier when the model verdict is
// unusable: questions about fresh, time-bound, or priced information.
var heuristicTerms = []string{
	"today", "now", "current", "price", "rate", "latest", "news",
	"score", "schedule", "when", "who is the president", "who is the ceo",
}

const classifySystemPrompt = "You are an assistant that decides whether a user's question requires a fresh web search.\n" +
	"Return ONLY a JSON object with two keys: 'search' (true or false) and 'reason' (short text).\n" +
	"Use the conversation context and the user message to decide.\n" +
	"If the question asks about recent events, prices, schedules, live data, or contains relative words like 'today'/'yesterday', return search=true.\n" +
	"If the question is general knowledge, conceptual, or can be answered from context, return search=false.\n" +
	"Do not output any extra text."

const rewriteSystemPrompt = "You are a search query optimization assistant.\n" +
	"Convert the user's message into the best possible search query.\n" +
	"Rules:\n" +
	"- Use the provided timestamp to resolve words like today, yesterday, this week, latest. Convert relative dates into YYYY-MM-DD when appropriate.\n" +
	"- Remove filler and stop words.\n" +
	"- Do NOT use a question format.\n" +
	"- Add missing keywords like price, news, result, release, review, comparison when helpful.\n" +
	"- Keep it under 15 words.\n" +
	"- Return ONLY the optimized search query on a single line."

// Verdict is the search-decision outcome with its stated rationale.
type Verdict struct {
	NeedsSearch bool
	Reason      string
}

// Policy delegates the search decision and query rewriting to the completion
// service, with deterministic fallbacks so a model failure never blocks the
// turn.
type Policy struct {
	llm    llm.Client
	logger *zap.Logger
}

func NewPolicy(client llm.Client, logger *zap.Logger) *Policy {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Policy{llm: client, logger: logger}
}

// ClassifyNeedSearch asks the model for a two-field JSON verdict. Malformed
// output falls back to the keyword heuristic, which defaults to no search.
func (p *Policy) ClassifyNeedSearch(ctx context.Context, history []llm.Message, message string, now time.Time) Verdict {
	prompt := fmt.Sprintf("Timestamp: %s\nConversation context: %s\nUser message: %s",
		now.UTC().Format(time.RFC3339), renderHistory(history), message)

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: classifySystemPrompt},
		{Role: llm.RoleUser, Content: prompt},
	}

	raw, err := p.llm.Generate(ctx, messages, llm.GenerateOptions{Temperature: 0, MaxTokens: 200})
	if err != nil {
		p.logger.Warn("search classification failed, using heuristic", zap.Error(err))
		return p.heuristicVerdict(message)
	}

	verdict, ok := parseVerdict(raw)
	if !ok {
		p.logger.Warn("search classification returned malformed verdict, using heuristic",
			zap.String("raw", raw))
		return p.heuristicVerdict(message)
	}
	return verdict
}

// RewriteQuery turns the free-form message into a concise, keyword-dense
// search query with relative dates resolved against now. Any failure or
// empty output falls back to the original message; the search must never be
// blocked by a rewrite failure.
func (p *Policy) RewriteQuery(ctx context.Context, history []llm.Message, message string, now time.Time) string {
	prompt := fmt.Sprintf("Timestamp: %s\nConversation context: %s\nUser message: %s\n\nProvide a single-line search query.",
		now.UTC().Format(time.RFC3339), renderHistory(history), message)

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: rewriteSystemPrompt},
		{Role: llm.RoleUser, Content: prompt},
	}

	raw, err := p.llm.Generate(ctx, messages, llm.GenerateOptions{Temperature: 0, MaxTokens: 80})
	if err != nil {
		p.logger.Warn("query rewrite failed, using original message", zap.Error(err))
		return message
	}

	query := firstLine(raw)
	if query == "" {
		return message
	}
	return query
}

func (p *Policy) heuristicVerdict(message string) Verdict {
	lowered := strings.ToLower(message)
	for _, term := range heuristicTerms {
		if strings.Contains(lowered, term) {
			return Verdict{NeedsSearch: true, Reason: "fallback heuristic used"}
		}
	}
	return Verdict{NeedsSearch: false, Reason: "fallback heuristic used"}
}

// parseVerdict requires both keys to be present; a partial object is treated
// as malformed rather than silently defaulted.
func parseVerdict(raw string) (Verdict, bool) {
	var parsed struct {
		Search *bool   `json:"search"`
		Reason *string `json:"reason"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &parsed); err != nil {
		return Verdict{}, false
	}
	if parsed.Search == nil || parsed.Reason == nil {
		return Verdict{}, false
	}
	return Verdict{NeedsSearch: *parsed.Search, Reason: *parsed.Reason}, true
}

func renderHistory(history []llm.Message) string {
	if len(history) == 0 {
		return "[]"
	}
	type entry struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	entries := make([]entry, len(history))
	for i, msg := range history {
		entries[i] = entry{Role: msg.Role, Content: msg.Content}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return "[]"
	}
	return string(data)
}

func firstLine(raw string) string {
	for _, line := range strings.Split(raw, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
