package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/memodeck/memodeck/internal/config"
	"github.com/memodeck/memodeck/internal/models"
	"github.com/memodeck/memodeck/pkg/logger"
	"github.com/memodeck/memodeck/pkg/response"
)

// GenerateRequest is the client payload for one generation call. Exactly
// one of Text and MaterialID must be set.
type GenerateRequest struct {
	Task               string `json:"task" binding:"required"`
	Text               string `json:"text"`
	MaterialID         *uint  `json:"material_id"`
	FolderID           *uint  `json:"folder_id"`
	Save               bool   `json:"save"`
	Replace            bool   `json:"replace"`
	Depth              string `json:"depth"`
	MaxItems           int    `json:"max_items"`
	Model              string `json:"model"`
	RequiredCapability string `json:"required_capability"`
}

// SubscriptionUsage is the quota snapshot echoed with each response.
type SubscriptionUsage struct {
	Tier      string `json:"tier"`
	Used      int    `json:"used"`
	Quota     int    `json:"quota"`
	Remaining int    `json:"remaining"`
}

// GenerateResult is everything the handler needs: the generated items, the
// serving model, the quota and rate-limit snapshots for response headers,
// and the persistence outcome when a save was requested.
type GenerateResult struct {
	RequestID        string            `json:"request_id"`
	Task             string            `json:"task"`
	Flashcards       []FlashcardDTO    `json:"flashcards,omitempty"`
	QuizQuestions    []QuizQuestionDTO `json:"quiz_questions,omitempty"`
	ItemCount        int               `json:"item_count"`
	ModelID          string            `json:"model_id"`
	Provider         string            `json:"provider"`
	Cached           bool              `json:"cached"`
	LatencyMs        int64             `json:"latency_ms"`
	TokenEstimate    int               `json:"token_estimate"`
	PromptTokens     int               `json:"prompt_tokens"`
	CompletionTokens int               `json:"completion_tokens"`
	EstimatedCostUsd float64           `json:"estimated_cost_usd"`
	SaveResult       *SaveResult       `json:"save_result,omitempty"`
	SaveFailed       bool              `json:"save_failed,omitempty"`
	Subscription     SubscriptionUsage `json:"subscription"`

	RateLimit *RateLimitStatus `json:"-"`
}

// cachedGeneration is the payload stored in the semantic cache.
type cachedGeneration struct {
	Flashcards       []FlashcardDTO    `json:"flashcards,omitempty"`
	QuizQuestions    []QuizQuestionDTO `json:"quiz_questions,omitempty"`
	ModelID          string            `json:"model_id"`
	Provider         string            `json:"provider"`
	PromptTokens     int               `json:"prompt_tokens"`
	CompletionTokens int               `json:"completion_tokens"`
	EstimatedCostUsd float64           `json:"estimated_cost_usd"`
}

// generationCache is the slice of SemanticCache the gateway consumes.
type generationCache interface {
	Get(ctx context.Context, text, task string, itemCount int) (string, bool)
	Set(ctx context.Context, text, task, value string, ttl time.Duration, itemCount int)
}

// GatewayService orchestrates the generation pipeline: admission (quota,
// rate limit), validation, source resolution, planning, cache lookup,
// routing, the provider call, persistence, and accounting.
type GatewayService struct {
	cfg         *config.Config
	quota       *QuotaService
	rateLimiter *RateLimiterService
	materials   *MaterialService
	registry    *ModelRegistryService
	router      *ModelRouter
	cache       generationCache
	strategies  *StrategyFactory
	persistence *PersistenceService
	usage       *UsageService
	queue       *TaskQueueService
}

func NewGatewayService(
	cfg *config.Config,
	quota *QuotaService,
	rateLimiter *RateLimiterService,
	materials *MaterialService,
	registry *ModelRegistryService,
	router *ModelRouter,
	cache *SemanticCache,
	strategies *StrategyFactory,
	persistence *PersistenceService,
	usage *UsageService,
	queue *TaskQueueService,
) *GatewayService {
	return &GatewayService{
		cfg:         cfg,
		quota:       quota,
		rateLimiter: rateLimiter,
		materials:   materials,
		registry:    registry,
		router:      router,
		cache:       cache,
		strategies:  strategies,
		persistence: persistence,
		usage:       usage,
		queue:       queue,
	}
}

// Generate runs one request through the pipeline. The quota is charged
// exactly once, after the request was fully serviced; cache hits count.
func (s *GatewayService) Generate(ctx context.Context, userID uint, clientIP, requestID string, req *GenerateRequest) (*GenerateResult, error) {
	// Admission: quota first so an exhausted account gets the 402 with
	// usage detail instead of burning its rate budget.
	sub, err := s.quota.Check(userID)
	if err != nil {
		return nil, err
	}

	rl := s.rateLimiter.Check(ctx, userID, clientIP)
	if !rl.Allowed {
		return nil, response.NewRateLimited("rate limit exceeded", rl.ResetSeconds)
	}

	text, materialID, err := s.resolveSource(userID, req)
	if err != nil {
		return nil, err
	}

	var folderID uint
	if req.Save {
		if req.FolderID == nil {
			return nil, response.NewBadRequest("save requires folder_id")
		}
		if _, err := s.materials.VerifyFolderOwnership(*req.FolderID, userID); err != nil {
			return nil, err
		}
		folderID = *req.FolderID
	}

	tokenEstimate := EstimateTokens(text)
	itemCount := PlanItemCount(tokenEstimate, req.Depth, req.MaxItems)

	result := &GenerateResult{
		RequestID:     requestID,
		Task:          req.Task,
		TokenEstimate: tokenEstimate,
		RateLimit:     rl,
	}

	if payload, ok := s.cache.Get(ctx, text, req.Task, itemCount); ok {
		if done, err := s.serveFromCache(userID, payload, result); err == nil && done {
			// A hit is served as-is: quota is still charged but the
			// persistence step is skipped even when a save was requested.
			s.finish(userID, sub, result, nil)
			return result, nil
		}
		// A corrupt cache entry falls through to a fresh generation.
	}

	candidate, err := s.route(userID, req, text, sub.Tier, tokenEstimate, itemCount)
	if err != nil {
		return nil, err
	}
	result.ModelID = candidate.Model.ModelID
	result.Provider = candidate.Model.Provider

	genErr := s.invoke(ctx, candidate, text, req.Task, itemCount, result)

	// Latency feeds the routing average on every attempt, failed included.
	s.registry.RecordLatency(candidate.Model.ModelID, result.LatencyMs)

	if genErr != nil {
		s.finish(userID, sub, result, genErr)
		return nil, genErr
	}

	if req.Save {
		s.persistOrDefer(folderID, materialID, req.Replace, result)
	}

	s.cacheResult(ctx, text, req.Task, itemCount, result)
	s.finish(userID, sub, result, nil)
	return result, nil
}

// resolveSource validates the task and source and returns the text to
// generate from.
func (s *GatewayService) resolveSource(userID uint, req *GenerateRequest) (string, *uint, error) {
	if req.Task != TaskFlashcards && req.Task != TaskQuiz {
		return "", nil, response.NewBadRequest(fmt.Sprintf("unknown task %q", req.Task))
	}

	switch req.RequiredCapability {
	case "", models.CapabilityText, models.CapabilityMultimodal, models.CapabilityReasoning:
	default:
		return "", nil, response.NewBadRequest(fmt.Sprintf("unknown required_capability %q", req.RequiredCapability))
	}

	hasText := strings.TrimSpace(req.Text) != ""
	hasMaterial := req.MaterialID != nil
	if hasText == hasMaterial {
		return "", nil, response.NewBadRequest("exactly one of text and material_id is required")
	}

	var text string
	var materialID *uint
	if hasMaterial {
		material, err := s.materials.LoadContent(*req.MaterialID, userID)
		if err != nil {
			return "", nil, err
		}
		text = material.Content
		materialID = req.MaterialID
	} else {
		text = req.Text
	}

	if len(text) > s.cfg.Gateway.MaxInputChars {
		return "", nil, response.NewBadRequest(
			fmt.Sprintf("input exceeds %d characters", s.cfg.Gateway.MaxInputChars))
	}
	if strings.TrimSpace(text) == "" {
		return "", nil, response.NewBadRequest("source material is empty")
	}
	return text, materialID, nil
}

// serveFromCache rehydrates a cached payload into the result. Returns
// done=false when the entry does not decode, which demotes the hit to a miss.
func (s *GatewayService) serveFromCache(userID uint, payload string, result *GenerateResult) (bool, error) {
	var cached cachedGeneration
	if err := json.Unmarshal([]byte(payload), &cached); err != nil {
		logger.Warnf("[Gateway] corrupt cache entry, regenerating: %v", err)
		return false, err
	}

	result.Cached = true
	result.Flashcards = cached.Flashcards
	result.QuizQuestions = cached.QuizQuestions
	result.ModelID = cached.ModelID
	result.Provider = cached.Provider
	result.PromptTokens = cached.PromptTokens
	result.CompletionTokens = cached.CompletionTokens
	result.EstimatedCostUsd = 0 // nothing spent on a hit
	result.ItemCount = len(cached.Flashcards) + len(cached.QuizQuestions)
	return true, nil
}

func (s *GatewayService) route(userID uint, req *GenerateRequest, text, tier string, tokenEstimate, itemCount int) (*ScoredCandidate, error) {
	capability := req.RequiredCapability
	if capability == "" {
		capability = models.CapabilityText
	}
	return s.router.SelectBestModel(RoutingContext{
		UserID:               userID,
		Task:                 req.Task,
		InputText:            text,
		RequiredCapability:   capability,
		EstimatedInputTokens: tokenEstimate,
		UserTier:             tier,
		PreferredModelID:     req.Model,
	})
}

// invoke calls the provider with the configured timeout and fills the
// result. Provider failures and timeouts map to a retryable bad-gateway
// error; a client disconnect propagates as-is.
func (s *GatewayService) invoke(ctx context.Context, candidate *ScoredCandidate, text, task string, itemCount int, result *GenerateResult) error {
	strategy, err := s.strategies.ForModel(&candidate.Model)
	if err != nil {
		return response.NewServerError(err.Error())
	}

	callCtx, cancel := context.WithTimeout(ctx, time.Duration(s.cfg.Gateway.ProviderTimeoutSec)*time.Second)
	defer cancel()

	opts := GenerationOptions{Model: candidate.Model.ModelID, ItemCount: itemCount}
	start := time.Now()

	var usage *TokenUsage
	var genErr error
	switch task {
	case TaskQuiz:
		result.QuizQuestions, usage, genErr = strategy.GenerateQuiz(callCtx, text, opts)
		result.ItemCount = len(result.QuizQuestions)
	default:
		result.Flashcards, usage, genErr = strategy.GenerateFlashcards(callCtx, text, opts)
		result.ItemCount = len(result.Flashcards)
	}
	result.LatencyMs = time.Since(start).Milliseconds()

	if genErr != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			// The client went away; nothing useful to return or retry.
			return genErr
		}
		logger.Error().
			Err(genErr).
			Str("model_id", candidate.Model.ModelID).
			Str("provider", candidate.Model.Provider).
			Msg("provider call failed")
		return response.NewGenerationFailure("model generation failed")
	}

	if result.ItemCount == 0 {
		return response.NewGenerationFailure("model returned no usable items")
	}

	if usage != nil {
		result.PromptTokens = usage.PromptTokens
		result.CompletionTokens = usage.CompletionTokens
	}
	result.EstimatedCostUsd = float64(result.PromptTokens)/1e6*candidate.Model.InputCostPer1M +
		float64(result.CompletionTokens)/1e6*candidate.Model.OutputCostPer1M
	return nil
}

// persistOrDefer saves the generated batch. A save failure after a
// successful generation never fails the request: the content is still
// returned to the caller, the failure is logged, the result carries a
// save-failed marker, and a replay task is enqueued.
func (s *GatewayService) persistOrDefer(folderID uint, materialID *uint, replace bool, result *GenerateResult) {
	var saveRes *SaveResult
	var err error
	if result.Task == TaskQuiz {
		saveRes, err = s.persistence.SaveQuizQuestions(folderID, materialID, result.QuizQuestions, replace)
	} else {
		saveRes, err = s.persistence.SaveFlashcards(folderID, materialID, result.Flashcards, replace)
	}
	if err != nil {
		logger.Error().
			Err(err).
			Uint("folder_id", folderID).
			Str("task", result.Task).
			Str("request_id", result.RequestID).
			Msg("save failed after generation, content returned unsaved")
		result.SaveFailed = true
		s.queue.EnqueuePersistRetry(&PersistRetryTask{
			FolderID:      folderID,
			MaterialID:    materialID,
			Task:          result.Task,
			Replace:       replace,
			Flashcards:    result.Flashcards,
			QuizQuestions: result.QuizQuestions,
		})
		return
	}
	result.SaveResult = saveRes
}

func (s *GatewayService) cacheResult(ctx context.Context, text, task string, itemCount int, result *GenerateResult) {
	payload, err := json.Marshal(&cachedGeneration{
		Flashcards:       result.Flashcards,
		QuizQuestions:    result.QuizQuestions,
		ModelID:          result.ModelID,
		Provider:         result.Provider,
		PromptTokens:     result.PromptTokens,
		CompletionTokens: result.CompletionTokens,
		EstimatedCostUsd: result.EstimatedCostUsd,
	})
	if err != nil {
		return
	}
	ttl := time.Duration(s.cfg.Gateway.CacheTTLSeconds) * time.Second
	s.cache.Set(ctx, text, task, string(payload), ttl, itemCount)
}

// finish settles accounting for the request: quota on success, telemetry
// always. Telemetry runs off the request path.
func (s *GatewayService) finish(userID uint, sub *models.Subscription, result *GenerateResult, genErr error) {
	success := genErr == nil
	if success {
		if err := s.quota.Increment(userID); err != nil {
			logger.Errorf("[Gateway] quota increment failed for user %d: %v", userID, err)
		} else {
			sub.GenerationsUsed++
		}
	}
	result.Subscription = SubscriptionUsage{
		Tier:      sub.Tier,
		Used:      sub.GenerationsUsed,
		Quota:     sub.GenerationsQuota,
		Remaining: sub.Remaining(),
	}

	entry := &models.GenerationLog{
		RequestID:        result.RequestID,
		UserID:           userID,
		ModelID:          result.ModelID,
		Provider:         result.Provider,
		Task:             result.Task,
		PromptTokens:     result.PromptTokens,
		CompletionTokens: result.CompletionTokens,
		TotalTokens:      result.PromptTokens + result.CompletionTokens,
		EstimatedCostUsd: result.EstimatedCostUsd,
		LatencyMs:        result.LatencyMs,
		CacheHit:         result.Cached,
		ItemCount:        result.ItemCount,
		Success:          success,
	}
	if genErr != nil {
		entry.ErrorMessage = genErr.Error()
	}
	go s.usage.Record(entry)
}
