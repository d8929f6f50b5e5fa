package services

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/memodeck/memodeck/internal/config"
	"github.com/memodeck/memodeck/pkg/logger"
)

// AnthropicStrategy handles the Anthropic Claude API using the native SDK.
type AnthropicStrategy struct {
	cfg *config.ProviderConfig
}

func NewAnthropicStrategy(cfg *config.ProviderConfig) *AnthropicStrategy {
	return &AnthropicStrategy{cfg: cfg}
}

func (s *AnthropicStrategy) complete(ctx context.Context, model, prompt string) (string, *TokenUsage, error) {
	opts := []option.RequestOption{option.WithAPIKey(s.cfg.APIKey)}
	if s.cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(s.cfg.BaseURL))
	}
	client := anthropic.NewClient(opts...)

	resp, err := client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: 4096,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", nil, fmt.Errorf("Anthropic API error: %w", err)
	}

	var content string
	for _, block := range resp.Content {
		if block.Type == "text" {
			content += block.Text
		}
	}

	logger.Infof("[Strategy] Anthropic response length: %d chars", len(content))

	usage := &TokenUsage{
		PromptTokens:     int(resp.Usage.InputTokens),
		CompletionTokens: int(resp.Usage.OutputTokens),
		Measured:         true,
	}
	if resp.Usage.InputTokens == 0 && resp.Usage.OutputTokens == 0 {
		usage = heuristicUsage(prompt, content)
	}
	return content, usage, nil
}

func (s *AnthropicStrategy) GenerateFlashcards(ctx context.Context, text string, opts GenerationOptions) ([]FlashcardDTO, *TokenUsage, error) {
	content, usage, err := s.complete(ctx, opts.Model, buildFlashcardPrompt(text, opts.ItemCount))
	if err != nil {
		return nil, nil, err
	}
	return parseFlashcards(content), usage, nil
}

func (s *AnthropicStrategy) GenerateQuiz(ctx context.Context, text string, opts GenerationOptions) ([]QuizQuestionDTO, *TokenUsage, error) {
	content, usage, err := s.complete(ctx, opts.Model, buildQuizPrompt(text, opts.ItemCount))
	if err != nil {
		return nil, nil, err
	}
	return parseQuizQuestions(content), usage, nil
}
