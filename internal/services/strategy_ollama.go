package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/memodeck/memodeck/internal/config"
	"github.com/memodeck/memodeck/pkg/logger"
	"github.com/ollama/ollama/api"
)

// OllamaStrategy handles local Ollama deployments using the native SDK.
type OllamaStrategy struct {
	cfg *config.ProviderConfig
}

func NewOllamaStrategy(cfg *config.ProviderConfig) *OllamaStrategy {
	return &OllamaStrategy{cfg: cfg}
}

func (s *OllamaStrategy) complete(ctx context.Context, model, prompt string) (string, *TokenUsage, error) {
	baseURL := s.cfg.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return "", nil, fmt.Errorf("invalid Ollama base URL: %w", err)
	}
	client := api.NewClient(u, http.DefaultClient)

	stream := false
	var content strings.Builder
	var promptTokens, completionTokens int
	err = client.Chat(ctx, &api.ChatRequest{
		Model: model,
		Messages: []api.Message{
			{Role: "user", Content: prompt},
		},
		Stream: &stream,
		Options: map[string]interface{}{
			"temperature": 0.3,
		},
	}, func(resp api.ChatResponse) error {
		content.WriteString(resp.Message.Content)
		if resp.Done {
			promptTokens = resp.PromptEvalCount
			completionTokens = resp.EvalCount
		}
		return nil
	})
	if err != nil {
		return "", nil, fmt.Errorf("Ollama API error: %w", err)
	}

	result := content.String()
	logger.Infof("[Strategy] Ollama response length: %d chars", len(result))

	usage := heuristicUsage(prompt, result)
	if promptTokens > 0 || completionTokens > 0 {
		usage = &TokenUsage{
			PromptTokens:     promptTokens,
			CompletionTokens: completionTokens,
			Measured:         true,
		}
	}
	return result, usage, nil
}

func (s *OllamaStrategy) GenerateFlashcards(ctx context.Context, text string, opts GenerationOptions) ([]FlashcardDTO, *TokenUsage, error) {
	content, usage, err := s.complete(ctx, opts.Model, buildFlashcardPrompt(text, opts.ItemCount))
	if err != nil {
		return nil, nil, err
	}
	return parseFlashcards(content), usage, nil
}

func (s *OllamaStrategy) GenerateQuiz(ctx context.Context, text string, opts GenerationOptions) ([]QuizQuestionDTO, *TokenUsage, error) {
	content, usage, err := s.complete(ctx, opts.Model, buildQuizPrompt(text, opts.ItemCount))
	if err != nil {
		return nil, nil, err
	}
	return parseQuizQuestions(content), usage, nil
}
