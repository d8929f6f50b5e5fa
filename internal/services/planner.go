package services

// Generation depth levels. Depth controls item density: deeper runs extract
// more items per token of source material.
const (
	DepthQuick    = "quick"
	DepthBalanced = "balanced"
	DepthDeep     = "deep"
)

const (
	// Inputs below this token estimate produce low-quality filler items,
	// so the planner pins them to a tiny fixed count instead.
	minTokensForFullGeneration = 300
	minItemsForTinyInput       = 2
	minItemsForFullGeneration  = 5
)

var depthTokensPerItem = map[string]int{
	DepthQuick:    3000,
	DepthBalanced: 2000,
	DepthDeep:     1000,
}

var depthMaxItems = map[string]int{
	DepthQuick:    15,
	DepthBalanced: 30,
	DepthDeep:     50,
}

// PlanItemCount derives the target item count from a token estimate and a
// depth preference. maxItemsOverride (>0) replaces the depth's default cap.
// Unknown depth values fall back to balanced.
func PlanItemCount(tokenEstimate int, depth string, maxItemsOverride int) int {
	if _, ok := depthTokensPerItem[depth]; !ok {
		depth = DepthBalanced
	}

	if tokenEstimate < minTokensForFullGeneration {
		return minItemsForTinyInput
	}

	base := tokenEstimate / depthTokensPerItem[depth]
	if base < minItemsForFullGeneration {
		base = minItemsForFullGeneration
	}

	cap := depthMaxItems[depth]
	if maxItemsOverride > 0 {
		cap = maxItemsOverride
	}

	if base > cap {
		return cap
	}
	return base
}
