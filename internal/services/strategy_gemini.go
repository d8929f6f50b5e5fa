package services

import (
	"context"
	"fmt"

	"github.com/memodeck/memodeck/internal/config"
	"github.com/memodeck/memodeck/pkg/logger"
	"google.golang.org/genai"
)

// GeminiStrategy handles the Google Gemini API using the native SDK.
type GeminiStrategy struct {
	cfg *config.ProviderConfig
}

func NewGeminiStrategy(cfg *config.ProviderConfig) *GeminiStrategy {
	return &GeminiStrategy{cfg: cfg}
}

func (s *GeminiStrategy) complete(ctx context.Context, model, prompt string) (string, *TokenUsage, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: s.cfg.APIKey,
	})
	if err != nil {
		return "", nil, fmt.Errorf("Gemini client error: %w", err)
	}

	resp, err := client.Models.GenerateContent(ctx, model, genai.Text(prompt), nil)
	if err != nil {
		return "", nil, fmt.Errorf("Gemini API error: %w", err)
	}

	content := resp.Text()
	logger.Infof("[Strategy] Gemini response length: %d chars", len(content))

	usage := heuristicUsage(prompt, content)
	if resp.UsageMetadata != nil {
		usage = &TokenUsage{
			PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			Measured:         true,
		}
	}
	return content, usage, nil
}

func (s *GeminiStrategy) GenerateFlashcards(ctx context.Context, text string, opts GenerationOptions) ([]FlashcardDTO, *TokenUsage, error) {
	content, usage, err := s.complete(ctx, opts.Model, buildFlashcardPrompt(text, opts.ItemCount))
	if err != nil {
		return nil, nil, err
	}
	return parseFlashcards(content), usage, nil
}

func (s *GeminiStrategy) GenerateQuiz(ctx context.Context, text string, opts GenerationOptions) ([]QuizQuestionDTO, *TokenUsage, error) {
	content, usage, err := s.complete(ctx, opts.Model, buildQuizPrompt(text, opts.ItemCount))
	if err != nil {
		return nil, nil, err
	}
	return parseQuizQuestions(content), usage, nil
}
