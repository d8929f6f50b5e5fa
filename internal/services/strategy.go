package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/memodeck/memodeck/internal/config"
	"github.com/memodeck/memodeck/internal/models"
	"github.com/memodeck/memodeck/pkg/logger"
)

// Generation tasks.
const (
	TaskFlashcards = "flashcards"
	TaskQuiz       = "quiz"
)

// FlashcardDTO is one generated study card before persistence.
type FlashcardDTO struct {
	Front string `json:"front"`
	Back  string `json:"back"`
}

// QuizQuestionDTO is one generated quiz question before persistence.
// Choices must hold exactly four entries with AnswerIndex in bounds.
type QuizQuestionDTO struct {
	Question    string   `json:"question"`
	Choices     []string `json:"choices"`
	AnswerIndex int      `json:"answer_index"`
	Explanation string   `json:"explanation,omitempty"`
}

// TokenUsage carries measured or estimated token counts for one call.
// Measured is false when the provider did not report usage and the
// counts were derived from the character heuristic.
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	Measured         bool
}

// GenerationOptions parameterize a single strategy invocation.
type GenerationOptions struct {
	Model     string
	ItemCount int
}

// GenerationStrategy is the uniform provider adapter contract. Adapters
// never propagate malformed-output errors: unparseable responses yield
// empty slices, and only transport/provider failures return an error.
type GenerationStrategy interface {
	GenerateFlashcards(ctx context.Context, text string, opts GenerationOptions) ([]FlashcardDTO, *TokenUsage, error)
	GenerateQuiz(ctx context.Context, text string, opts GenerationOptions) ([]QuizQuestionDTO, *TokenUsage, error)
}

// StrategyFactory resolves the adapter for a catalogue entry, keyed by
// provider name rather than conditional branching at call sites.
type StrategyFactory struct {
	strategies map[string]GenerationStrategy
}

func NewStrategyFactory(cfg *config.ProvidersConfig) *StrategyFactory {
	return &StrategyFactory{
		strategies: map[string]GenerationStrategy{
			"openai":    NewOpenAIStrategy(&cfg.OpenAI, false),
			"azure":     NewOpenAIStrategy(&cfg.OpenAI, true),
			"anthropic": NewAnthropicStrategy(&cfg.Anthropic),
			"gemini":    NewGeminiStrategy(&cfg.Gemini),
			"ollama":    NewOllamaStrategy(&cfg.Ollama),
		},
	}
}

// ForModel returns the strategy serving the given catalogue entry.
func (f *StrategyFactory) ForModel(model *models.LLMModel) (GenerationStrategy, error) {
	s, ok := f.strategies[model.Provider]
	if !ok {
		return nil, fmt.Errorf("no strategy registered for provider %q", model.Provider)
	}
	return s, nil
}

// Register overrides or adds a strategy; used by tests and local setups.
func (f *StrategyFactory) Register(provider string, s GenerationStrategy) {
	f.strategies[provider] = s
}

// --- Prompt construction ---

func buildFlashcardPrompt(text string, itemCount int) string {
	return fmt.Sprintf(`You are an expert tutor creating study flashcards.

Create exactly %d flashcards from the source material below. Each card has a
concise question or term on the front and a precise answer on the back.

Rules:
- Cover the most important concepts first
- Fronts must be answerable without seeing the source
- Keep backs under three sentences
- Respond with ONLY a JSON array, no prose:
[{"front": "...", "back": "..."}]

Source material:
%s`, itemCount, text)
}

func buildQuizPrompt(text string, itemCount int) string {
	return fmt.Sprintf(`You are an expert tutor writing a multiple-choice quiz.

Create exactly %d questions from the source material below. Every question has
exactly 4 answer choices with a single correct one.

Rules:
- Distractors must be plausible but clearly wrong to someone who studied
- Spread correct answers across positions
- Respond with ONLY a JSON array, no prose:
[{"question": "...", "choices": ["...","...","...","..."], "answer_index": 0, "explanation": "..."}]

Source material:
%s`, itemCount, text)
}

// --- Defensive output parsing ---

// stripCodeFences removes a leading/trailing markdown code fence pair,
// tolerating a language tag after the opening fence.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		// Drop the language tag line (e.g. "json")
		first := strings.TrimSpace(s[:idx])
		if len(first) <= 10 && !strings.ContainsAny(first, "[{") {
			s = s[idx+1:]
		}
	}
	if idx := strings.LastIndex(s, "```"); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}

// extractJSONArray finds the first balanced JSON array in s, tolerating
// surrounding prose. A balanced object is wrapped as a single-element
// array. Returns "" when no balanced payload exists.
func extractJSONArray(s string) string {
	s = stripCodeFences(s)

	if arr := extractBalanced(s, '[', ']'); arr != "" {
		return arr
	}
	if obj := extractBalanced(s, '{', '}'); obj != "" {
		return "[" + obj + "]"
	}
	return ""
}

// extractBalanced scans for the first balanced open..close span, skipping
// brackets inside JSON strings.
func extractBalanced(s string, open, close byte) string {
	start := strings.IndexByte(s, open)
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

// parseFlashcards decodes and sanitizes a provider response. Malformed
// individual items are dropped; a wholly malformed response yields an
// empty slice, never an error.
func parseFlashcards(raw string) []FlashcardDTO {
	payload := extractJSONArray(raw)
	if payload == "" {
		logger.Warn().Int("response_chars", len(raw)).Msg("no JSON array found in flashcard response")
		return []FlashcardDTO{}
	}

	var items []FlashcardDTO
	if err := json.Unmarshal([]byte(payload), &items); err != nil {
		logger.Warn().Err(err).Msg("flashcard response failed to decode")
		return []FlashcardDTO{}
	}

	valid := make([]FlashcardDTO, 0, len(items))
	for _, item := range items {
		front := strings.TrimSpace(item.Front)
		back := strings.TrimSpace(item.Back)
		if front == "" || back == "" {
			continue
		}
		valid = append(valid, FlashcardDTO{Front: front, Back: back})
	}
	return valid
}

// parseQuizQuestions decodes and sanitizes a provider response: questions
// must be non-empty with exactly 4 choices and an in-bounds answer index.
func parseQuizQuestions(raw string) []QuizQuestionDTO {
	payload := extractJSONArray(raw)
	if payload == "" {
		logger.Warn().Int("response_chars", len(raw)).Msg("no JSON array found in quiz response")
		return []QuizQuestionDTO{}
	}

	var items []QuizQuestionDTO
	if err := json.Unmarshal([]byte(payload), &items); err != nil {
		logger.Warn().Err(err).Msg("quiz response failed to decode")
		return []QuizQuestionDTO{}
	}

	valid := make([]QuizQuestionDTO, 0, len(items))
	for _, item := range items {
		question := strings.TrimSpace(item.Question)
		if question == "" || len(item.Choices) != 4 {
			continue
		}
		if item.AnswerIndex < 0 || item.AnswerIndex >= len(item.Choices) {
			continue
		}
		choices := make([]string, 4)
		ok := true
		for i, choice := range item.Choices {
			choices[i] = strings.TrimSpace(choice)
			if choices[i] == "" {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}
		valid = append(valid, QuizQuestionDTO{
			Question:    question,
			Choices:     choices,
			AnswerIndex: item.AnswerIndex,
			Explanation: strings.TrimSpace(item.Explanation),
		})
	}
	return valid
}

// heuristicUsage estimates usage from character counts when the provider
// reports none.
func heuristicUsage(prompt, completion string) *TokenUsage {
	return &TokenUsage{
		PromptTokens:     EstimateTokens(prompt),
		CompletionTokens: EstimateTokens(completion),
		Measured:         false,
	}
}
