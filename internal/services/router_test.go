package services

import (
	"fmt"
	"math"
	"testing"

	"github.com/memodeck/memodeck/internal/config"
	"github.com/memodeck/memodeck/internal/models"
)

// staticCatalogue serves a fixed model list, filtering the way the
// registry's catalogue query does.
type staticCatalogue struct {
	entries []models.LLMModel
}

func (c *staticCatalogue) Candidates(requiredCapability string) ([]models.LLMModel, error) {
	out := make([]models.LLMModel, 0, len(c.entries))
	for _, m := range c.entries {
		if m.Enabled && m.HealthStatus != models.HealthDown && m.HasCapability(requiredCapability) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (c *staticCatalogue) GetByModelID(modelID string) (*models.LLMModel, error) {
	for i := range c.entries {
		if c.entries[i].ModelID == modelID {
			return &c.entries[i], nil
		}
	}
	return nil, fmt.Errorf("model %s not found", modelID)
}

func testRoutingPolicy() config.RoutingPolicy {
	return config.RoutingPolicy{
		LatencyPenaltyPerSec: 0.001,
		PriorityWeight:       0.001,
		CapabilityBonus:      0.005,
		DegradedPenalty:      0.01,
	}
}

func TestScoreCandidate_BaseCost(t *testing.T) {
	m := models.LLMModel{
		ModelID:         "m1",
		InputCostPer1M:  1.0,
		OutputCostPer1M: 2.0,
		LatencyBudgetMs: 10000,
		HealthStatus:    models.HealthHealthy,
	}
	rctx := RoutingContext{EstimatedInputTokens: 1000000, EstimatedOutputTokens: 500000}

	c := scoreCandidate(m, rctx, testRoutingPolicy())
	if math.Abs(c.EstimatedCostUsd-2.0) > 1e-9 {
		t.Errorf("estimated cost = %f, expected 2.0 (1.0 input + 1.0 output)", c.EstimatedCostUsd)
	}
}

func TestScoreCandidate_OutputDefaultsToInput(t *testing.T) {
	m := models.LLMModel{InputCostPer1M: 1.0, OutputCostPer1M: 1.0, HealthStatus: models.HealthHealthy}
	rctx := RoutingContext{EstimatedInputTokens: 1000}

	c := scoreCandidate(m, rctx, testRoutingPolicy())
	if c.OutputTokens != 1000 {
		t.Errorf("output tokens = %d, expected input estimate 1000", c.OutputTokens)
	}
}

func TestScoreCandidate_LatencyPenaltyOnlyOnOverrun(t *testing.T) {
	policy := testRoutingPolicy()
	rctx := RoutingContext{EstimatedInputTokens: 1000}

	within := models.LLMModel{AvgLatencyMs: 5000, LatencyBudgetMs: 10000, HealthStatus: models.HealthHealthy}
	over := models.LLMModel{AvgLatencyMs: 15000, LatencyBudgetMs: 10000, HealthStatus: models.HealthHealthy}

	cWithin := scoreCandidate(within, rctx, policy)
	cOver := scoreCandidate(over, rctx, policy)

	// 5s overrun * 0.001/s = 0.005
	diff := cOver.Score - cWithin.Score
	if math.Abs(diff-0.005) > 1e-9 {
		t.Errorf("latency overrun penalty = %f, expected 0.005", diff)
	}
}

func TestScoreCandidate_CapabilityBonusCanGoNegative(t *testing.T) {
	// A free local model with a matching capability scores below zero;
	// scores are deliberately not clamped.
	m := models.LLMModel{
		Capabilities: "text",
		HealthStatus: models.HealthHealthy,
	}
	rctx := RoutingContext{EstimatedInputTokens: 10, RequiredCapability: "text"}

	c := scoreCandidate(m, rctx, testRoutingPolicy())
	if c.Score >= 0 {
		t.Errorf("score = %f, expected negative from capability bonus", c.Score)
	}
}

func TestScoreCandidate_DegradedPenalty(t *testing.T) {
	policy := testRoutingPolicy()
	rctx := RoutingContext{EstimatedInputTokens: 1000}

	healthy := models.LLMModel{HealthStatus: models.HealthHealthy}
	degraded := models.LLMModel{HealthStatus: models.HealthDegraded}

	diff := scoreCandidate(degraded, rctx, policy).Score - scoreCandidate(healthy, rctx, policy).Score
	if math.Abs(diff-0.01) > 1e-9 {
		t.Errorf("degraded penalty = %f, expected 0.01", diff)
	}
}

func TestPickBestCandidate_EmptyReturnsNil(t *testing.T) {
	if got := pickBestCandidate(nil, RoutingContext{}, testRoutingPolicy()); got != nil {
		t.Errorf("empty candidate list should return nil, got %+v", got)
	}
}

func TestPickBestCandidate_LowestScoreWins(t *testing.T) {
	candidates := []models.LLMModel{
		{ModelID: "expensive", InputCostPer1M: 10, OutputCostPer1M: 30, HealthStatus: models.HealthHealthy},
		{ModelID: "cheap", InputCostPer1M: 0.1, OutputCostPer1M: 0.4, HealthStatus: models.HealthHealthy},
	}
	rctx := RoutingContext{EstimatedInputTokens: 100000, UserTier: models.TierFree}

	winner := pickBestCandidate(candidates, rctx, testRoutingPolicy())
	if winner.Model.ModelID != "cheap" {
		t.Errorf("winner = %s, expected cheap", winner.Model.ModelID)
	}
}

func TestPickBestCandidate_DegradedSwapForPayingTiers(t *testing.T) {
	// The degraded model is cheaper and tops the ranking; paying tiers
	// take the healthy runner-up instead.
	candidates := []models.LLMModel{
		{ModelID: "cheap-degraded", InputCostPer1M: 0.1, OutputCostPer1M: 0.4, HealthStatus: models.HealthDegraded},
		{ModelID: "pricier-healthy", InputCostPer1M: 0.8, OutputCostPer1M: 4.0, HealthStatus: models.HealthHealthy},
	}
	rctx := RoutingContext{EstimatedInputTokens: 10000, UserTier: models.TierPro}

	winner := pickBestCandidate(candidates, rctx, testRoutingPolicy())
	if winner.Model.ModelID != "pricier-healthy" {
		t.Errorf("PRO tier winner = %s, expected the healthy runner-up", winner.Model.ModelID)
	}
}

func TestPickBestCandidate_NoSwapForFreeTier(t *testing.T) {
	candidates := []models.LLMModel{
		{ModelID: "cheap-degraded", InputCostPer1M: 0.1, OutputCostPer1M: 0.4, HealthStatus: models.HealthDegraded},
		{ModelID: "pricier-healthy", InputCostPer1M: 0.8, OutputCostPer1M: 4.0, HealthStatus: models.HealthHealthy},
	}
	rctx := RoutingContext{EstimatedInputTokens: 10000, UserTier: models.TierFree}

	winner := pickBestCandidate(candidates, rctx, testRoutingPolicy())
	if winner.Model.ModelID != "cheap-degraded" {
		t.Errorf("FREE tier winner = %s, expected the cheapest regardless of health", winner.Model.ModelID)
	}
}

func TestSelectBestModel_PreferredOverrideBeatsScore(t *testing.T) {
	router := NewModelRouter(&staticCatalogue{entries: []models.LLMModel{
		{ModelID: "cheap", Provider: "ollama", Capabilities: "text", Enabled: true, HealthStatus: models.HealthHealthy},
		{ModelID: "expensive", Provider: "openai", Capabilities: "text", InputCostPer1M: 10, OutputCostPer1M: 30, Enabled: true, HealthStatus: models.HealthHealthy},
	}}, testRoutingPolicy())

	winner, err := router.SelectBestModel(RoutingContext{
		EstimatedInputTokens: 100000,
		UserTier:             models.TierFree,
		RequiredCapability:   "text",
		PreferredModelID:     "expensive",
	})
	if err != nil {
		t.Fatalf("override selection failed: %v", err)
	}
	if winner.Model.ModelID != "expensive" {
		t.Errorf("winner = %s, an explicit model choice must win regardless of score", winner.Model.ModelID)
	}
}

func TestSelectBestModel_UnavailablePreferredFallsBack(t *testing.T) {
	catalogue := &staticCatalogue{entries: []models.LLMModel{
		{ModelID: "down-model", Capabilities: "text", Enabled: true, HealthStatus: models.HealthDown},
		{ModelID: "disabled-model", Capabilities: "text", Enabled: false, HealthStatus: models.HealthHealthy},
		{ModelID: "fallback", Capabilities: "text", Enabled: true, HealthStatus: models.HealthHealthy},
	}}
	router := NewModelRouter(catalogue, testRoutingPolicy())

	for _, preferred := range []string{"down-model", "disabled-model", "no-such-model"} {
		winner, err := router.SelectBestModel(RoutingContext{
			EstimatedInputTokens: 1000,
			UserTier:             models.TierFree,
			RequiredCapability:   "text",
			PreferredModelID:     preferred,
		})
		if err != nil {
			t.Fatalf("fallback selection for preferred=%s failed: %v", preferred, err)
		}
		if winner.Model.ModelID != "fallback" {
			t.Errorf("preferred=%s: winner = %s, expected auto-selection fallback", preferred, winner.Model.ModelID)
		}
	}
}

func TestSelectBestModel_NoCandidatesFails(t *testing.T) {
	router := NewModelRouter(&staticCatalogue{}, testRoutingPolicy())

	_, err := router.SelectBestModel(RoutingContext{RequiredCapability: "text", UserTier: models.TierFree})
	if err == nil {
		t.Fatal("an empty catalogue must fail selection")
	}
}

func TestSelectBestModel_CapabilityFilter(t *testing.T) {
	router := NewModelRouter(&staticCatalogue{entries: []models.LLMModel{
		{ModelID: "text-only", Capabilities: "text", Enabled: true, HealthStatus: models.HealthHealthy},
		{ModelID: "reasoner", Capabilities: "text,reasoning", InputCostPer1M: 5, OutputCostPer1M: 15, Enabled: true, HealthStatus: models.HealthHealthy},
	}}, testRoutingPolicy())

	winner, err := router.SelectBestModel(RoutingContext{
		EstimatedInputTokens: 1000,
		UserTier:             models.TierFree,
		RequiredCapability:   models.CapabilityReasoning,
	})
	if err != nil {
		t.Fatalf("capability selection failed: %v", err)
	}
	if winner.Model.ModelID != "reasoner" {
		t.Errorf("winner = %s, only the reasoning-capable model qualifies", winner.Model.ModelID)
	}
}

func TestPickBestCandidate_NoSwapWhenTopIsHealthy(t *testing.T) {
	candidates := []models.LLMModel{
		{ModelID: "cheap-healthy", InputCostPer1M: 0.1, OutputCostPer1M: 0.4, HealthStatus: models.HealthHealthy},
		{ModelID: "pricier-degraded", InputCostPer1M: 0.8, OutputCostPer1M: 4.0, HealthStatus: models.HealthDegraded},
	}
	rctx := RoutingContext{EstimatedInputTokens: 10000, UserTier: models.TierEnterprise}

	winner := pickBestCandidate(candidates, rctx, testRoutingPolicy())
	if winner.Model.ModelID != "cheap-healthy" {
		t.Errorf("winner = %s, expected cheap-healthy", winner.Model.ModelID)
	}
}
