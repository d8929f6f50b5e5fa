package services

import "math"

// Token estimation constants. The character ratio approximates mixed
// prose/terminology study material; the safety factor biases estimates
// upward so cost projections and count planning stay conservative.
const (
	charsPerToken     = 3.5
	estimateSafety    = 1.10
	minTokenEstimate  = 10
)

// EstimateTokens converts raw text length to an approximate token count.
// Pure and deterministic; used for routing cost estimation and for
// adaptive item-count planning.
func EstimateTokens(text string) int {
	tokens := math.Ceil(math.Ceil(float64(len(text))/charsPerToken) * estimateSafety)
	if tokens < minTokenEstimate {
		return minTokenEstimate
	}
	return int(tokens)
}
