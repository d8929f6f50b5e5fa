package services

import (
	"context"
	"fmt"

	"github.com/memodeck/memodeck/internal/config"
	"github.com/memodeck/memodeck/pkg/logger"
	"github.com/sashabaranov/go-openai"
)

// OpenAIStrategy handles OpenAI and OpenAI-compatible APIs. With azure=true
// the BaseURL is treated as an Azure resource endpoint and the model name
// as the deployment name.
type OpenAIStrategy struct {
	cfg   *config.ProviderConfig
	azure bool
}

func NewOpenAIStrategy(cfg *config.ProviderConfig, azure bool) *OpenAIStrategy {
	return &OpenAIStrategy{cfg: cfg, azure: azure}
}

func (s *OpenAIStrategy) client() *openai.Client {
	if s.azure {
		return openai.NewClientWithConfig(openai.DefaultAzureConfig(s.cfg.APIKey, s.cfg.BaseURL))
	}
	clientConfig := openai.DefaultConfig(s.cfg.APIKey)
	if s.cfg.BaseURL != "" {
		clientConfig.BaseURL = s.cfg.BaseURL
	}
	return openai.NewClientWithConfig(clientConfig)
}

func (s *OpenAIStrategy) complete(ctx context.Context, model, prompt string) (string, *TokenUsage, error) {
	resp, err := s.client().CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.3,
	})
	if err != nil {
		return "", nil, fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", nil, fmt.Errorf("no response from OpenAI")
	}

	content := resp.Choices[0].Message.Content
	logger.Infof("[Strategy] OpenAI response length: %d chars", len(content))

	usage := &TokenUsage{
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		Measured:         true,
	}
	if resp.Usage.TotalTokens == 0 {
		usage = heuristicUsage(prompt, content)
	}
	return content, usage, nil
}

func (s *OpenAIStrategy) GenerateFlashcards(ctx context.Context, text string, opts GenerationOptions) ([]FlashcardDTO, *TokenUsage, error) {
	content, usage, err := s.complete(ctx, opts.Model, buildFlashcardPrompt(text, opts.ItemCount))
	if err != nil {
		return nil, nil, err
	}
	return parseFlashcards(content), usage, nil
}

func (s *OpenAIStrategy) GenerateQuiz(ctx context.Context, text string, opts GenerationOptions) ([]QuizQuestionDTO, *TokenUsage, error) {
	content, usage, err := s.complete(ctx, opts.Model, buildQuizPrompt(text, opts.ItemCount))
	if err != nil {
		return nil, nil, err
	}
	return parseQuizQuestions(content), usage, nil
}
