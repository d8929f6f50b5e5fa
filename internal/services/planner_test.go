package services

import (
	"strings"
	"testing"
)

func TestPlanItemCount_TinyInput(t *testing.T) {
	// A 50-char note is nowhere near 300 tokens; the planner pins it to 2
	// regardless of depth.
	estimate := EstimateTokens(strings.Repeat("a", 50))
	for _, depth := range []string{DepthQuick, DepthBalanced, DepthDeep} {
		if got := PlanItemCount(estimate, depth, 0); got != 2 {
			t.Errorf("depth %s: tiny input planned %d items, expected 2", depth, got)
		}
	}
}

func TestPlanItemCount_MinimumForFullGeneration(t *testing.T) {
	// 400 tokens at balanced density (2000/item) gives base 0, raised to 5.
	if got := PlanItemCount(400, DepthBalanced, 0); got != 5 {
		t.Errorf("400 tokens balanced planned %d items, expected 5", got)
	}
}

func TestPlanItemCount_DepthDensity(t *testing.T) {
	// 30000 tokens: quick 30000/3000=10, balanced 30000/2000=15, deep 30000/1000=30.
	cases := []struct {
		depth string
		want  int
	}{
		{DepthQuick, 10},
		{DepthBalanced, 15},
		{DepthDeep, 30},
	}
	for _, tc := range cases {
		if got := PlanItemCount(30000, tc.depth, 0); got != tc.want {
			t.Errorf("30000 tokens %s planned %d items, expected %d", tc.depth, got, tc.want)
		}
	}
}

func TestPlanItemCount_DepthCaps(t *testing.T) {
	// A huge input hits each depth's cap.
	cases := []struct {
		depth string
		want  int
	}{
		{DepthQuick, 15},
		{DepthBalanced, 30},
		{DepthDeep, 50},
	}
	for _, tc := range cases {
		if got := PlanItemCount(1000000, tc.depth, 0); got != tc.want {
			t.Errorf("huge input %s planned %d items, expected cap %d", tc.depth, got, tc.want)
		}
	}
}

func TestPlanItemCount_Override(t *testing.T) {
	if got := PlanItemCount(1000000, DepthDeep, 8); got != 8 {
		t.Errorf("override cap 8 planned %d items", got)
	}
	// Override below base still caps.
	if got := PlanItemCount(30000, DepthBalanced, 10); got != 10 {
		t.Errorf("override cap 10 planned %d items", got)
	}
	// Zero override keeps the depth default.
	if got := PlanItemCount(1000000, DepthQuick, 0); got != 15 {
		t.Errorf("no override planned %d items, expected 15", got)
	}
}

func TestPlanItemCount_UnknownDepthFallsBackToBalanced(t *testing.T) {
	if got, want := PlanItemCount(30000, "extreme", 0), PlanItemCount(30000, DepthBalanced, 0); got != want {
		t.Errorf("unknown depth planned %d items, expected balanced result %d", got, want)
	}
}

func TestPlanItemCount_MonotonicInTokens(t *testing.T) {
	prev := 0
	for _, tokens := range []int{100, 500, 2000, 10000, 50000, 200000} {
		got := PlanItemCount(tokens, DepthBalanced, 0)
		if got < prev {
			t.Errorf("plan for %d tokens (%d) is below plan for fewer tokens (%d)", tokens, got, prev)
		}
		prev = got
	}
}
