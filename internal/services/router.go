package services

import (
	"sort"

	"github.com/memodeck/memodeck/internal/config"
	"github.com/memodeck/memodeck/internal/models"
	"github.com/memodeck/memodeck/pkg/logger"
	"github.com/memodeck/memodeck/pkg/response"
)

// RoutingContext is the per-request input to model selection. Created fresh
// for each request and never mutated.
type RoutingContext struct {
	UserID                uint
	Task                  string
	InputText             string
	RequiredCapability    string
	EstimatedInputTokens  int
	EstimatedOutputTokens int
	UserTier              string
	PreferredModelID      string
}

// ScoredCandidate pairs a model with its routing score. Lower scores win.
type ScoredCandidate struct {
	Model            models.LLMModel
	Score            float64
	EstimatedCostUsd float64
	InputTokens      int
	OutputTokens     int
}

// modelCatalogue is the slice of the registry the router consumes.
type modelCatalogue interface {
	Candidates(requiredCapability string) ([]models.LLMModel, error)
	GetByModelID(modelID string) (*models.LLMModel, error)
}

// ModelRouter scores catalogue candidates against a RoutingContext and
// picks one, or honors an explicit model override.
type ModelRouter struct {
	registry modelCatalogue
	policy   config.RoutingPolicy
}

func NewModelRouter(registry modelCatalogue, policy config.RoutingPolicy) *ModelRouter {
	return &ModelRouter{registry: registry, policy: policy}
}

// SelectBestModel picks the model for a request. An explicit preferred
// model always wins over auto-selection, provided it is enabled and not
// down. Auto-selection scores all healthy/degraded candidates and takes
// the lowest score, with a healthy-over-degraded swap for paying tiers.
func (r *ModelRouter) SelectBestModel(rctx RoutingContext) (*ScoredCandidate, error) {
	if rctx.PreferredModelID != "" {
		if preferred, err := r.registry.GetByModelID(rctx.PreferredModelID); err == nil {
			if preferred.Enabled && preferred.HealthStatus != models.HealthDown {
				candidate := scoreCandidate(*preferred, rctx, r.policy)
				logger.Info().
					Str("model_id", preferred.ModelID).
					Float64("score", candidate.Score).
					Msg("routing: explicit model override")
				return &candidate, nil
			}
			logger.Warnf("[Router] preferred model %s unavailable (enabled=%v health=%s), falling back to auto-selection",
				preferred.ModelID, preferred.Enabled, preferred.HealthStatus)
		} else {
			logger.Warnf("[Router] preferred model %s not found, falling back to auto-selection", rctx.PreferredModelID)
		}
	}

	candidates, err := r.registry.Candidates(rctx.RequiredCapability)
	if err != nil {
		return nil, response.NewRoutingFailure("model catalogue unavailable")
	}

	winner := pickBestCandidate(candidates, rctx, r.policy)
	if winner == nil {
		return nil, response.NewRoutingFailure("no healthy models available")
	}

	logger.Info().
		Str("model_id", winner.Model.ModelID).
		Str("provider", winner.Model.Provider).
		Float64("score", winner.Score).
		Float64("estimated_cost_usd", winner.EstimatedCostUsd).
		Int("candidates", len(candidates)).
		Msg("routing: model selected")
	return winner, nil
}

// scoreCandidate computes the routing score for one model. Scores are not
// clamped at zero: the capability bonus may push a score negative, which
// preserves ranking resolution among cheap models.
func scoreCandidate(m models.LLMModel, rctx RoutingContext, policy config.RoutingPolicy) ScoredCandidate {
	inputTokens := rctx.EstimatedInputTokens
	outputTokens := rctx.EstimatedOutputTokens
	if outputTokens == 0 {
		outputTokens = inputTokens
	}

	baseCost := float64(inputTokens)/1e6*m.InputCostPer1M + float64(outputTokens)/1e6*m.OutputCostPer1M

	latencyOverrun := m.AvgLatencyMs - m.LatencyBudgetMs
	if latencyOverrun < 0 {
		latencyOverrun = 0
	}
	latencyPenalty := latencyOverrun / 1000 * policy.LatencyPenaltyPerSec

	priorityPenalty := float64(m.Priority) * policy.PriorityWeight

	capabilityBonus := 0.0
	if rctx.RequiredCapability != "" && m.HasCapability(rctx.RequiredCapability) {
		capabilityBonus = policy.CapabilityBonus
	}

	healthPenalty := 0.0
	if m.HealthStatus == models.HealthDegraded {
		healthPenalty = policy.DegradedPenalty
	}

	return ScoredCandidate{
		Model:            m,
		Score:            baseCost + latencyPenalty + priorityPenalty - capabilityBonus + healthPenalty,
		EstimatedCostUsd: baseCost,
		InputTokens:      inputTokens,
		OutputTokens:     outputTokens,
	}
}

// pickBestCandidate scores and ranks candidates, applying the
// healthy-over-degraded swap for paying tiers. Returns nil when the
// candidate list is empty.
func pickBestCandidate(candidates []models.LLMModel, rctx RoutingContext, policy config.RoutingPolicy) *ScoredCandidate {
	if len(candidates) == 0 {
		return nil
	}

	scored := make([]ScoredCandidate, 0, len(candidates))
	for _, m := range candidates {
		scored = append(scored, scoreCandidate(m, rctx, policy))
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score < scored[j].Score
	})

	// Paying tiers trade a slightly worse score for a healthy model when
	// the top pick is degraded.
	if rctx.UserTier != models.TierFree && len(scored) >= 2 {
		if scored[0].Model.HealthStatus == models.HealthDegraded &&
			scored[1].Model.HealthStatus == models.HealthHealthy {
			return &scored[1]
		}
	}

	return &scored[0]
}
