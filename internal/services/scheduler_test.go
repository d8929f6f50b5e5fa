package services

import (
	"math"
	"testing"
	"time"

	"github.com/memodeck/memodeck/internal/config"
)

func testSM2Policy() config.SM2Policy {
	return config.SM2Policy{
		FirstIntervalDays:  1,
		SecondIntervalDays: 6,
		MinEaseFactor:      1.3,
		MaxIntervalDays:    180,
	}
}

func TestCalculateSM2_FirstSuccess(t *testing.T) {
	next := CalculateSM2(NewCardState(), 4, testSM2Policy())

	if next.IntervalDays != 1 {
		t.Errorf("first success interval = %d, expected 1", next.IntervalDays)
	}
	if next.Repetitions != 1 {
		t.Errorf("repetitions = %d, expected 1", next.Repetitions)
	}
	// Grade 4 leaves the ease factor unchanged.
	if math.Abs(next.EaseFactor-2.5) > 1e-9 {
		t.Errorf("ease factor = %f, expected 2.5", next.EaseFactor)
	}
}

func TestCalculateSM2_SecondSuccess(t *testing.T) {
	state := SM2State{EaseFactor: 2.5, IntervalDays: 1, Repetitions: 1}
	next := CalculateSM2(state, 4, testSM2Policy())

	if next.IntervalDays != 6 {
		t.Errorf("second success interval = %d, expected 6", next.IntervalDays)
	}
	if next.Repetitions != 2 {
		t.Errorf("repetitions = %d, expected 2", next.Repetitions)
	}
}

func TestCalculateSM2_LaterSuccessesGrowByEaseFactor(t *testing.T) {
	state := SM2State{EaseFactor: 2.5, IntervalDays: 6, Repetitions: 2}
	next := CalculateSM2(state, 4, testSM2Policy())

	// round(6 * 2.5) = 15
	if next.IntervalDays != 15 {
		t.Errorf("third success interval = %d, expected 15", next.IntervalDays)
	}
}

func TestCalculateSM2_PerfectRecallRaisesEaseFactor(t *testing.T) {
	next := CalculateSM2(NewCardState(), 5, testSM2Policy())
	if math.Abs(next.EaseFactor-2.6) > 1e-9 {
		t.Errorf("grade 5 ease factor = %f, expected 2.6", next.EaseFactor)
	}
}

func TestCalculateSM2_FailureResets(t *testing.T) {
	state := SM2State{EaseFactor: 2.5, IntervalDays: 15, Repetitions: 3}
	next := CalculateSM2(state, 2, testSM2Policy())

	if next.Repetitions != 0 {
		t.Errorf("failure should reset repetitions, got %d", next.Repetitions)
	}
	if next.IntervalDays != 1 {
		t.Errorf("failure should reset interval to 1, got %d", next.IntervalDays)
	}
	// EF drop still applies: 2.5 + 0.1 - 3*(0.08+3*0.02) = 2.18
	if math.Abs(next.EaseFactor-2.18) > 1e-9 {
		t.Errorf("ease factor after grade 2 = %f, expected 2.18", next.EaseFactor)
	}
}

func TestCalculateSM2_EaseFactorFloor(t *testing.T) {
	state := SM2State{EaseFactor: 1.3, IntervalDays: 1, Repetitions: 0}
	next := CalculateSM2(state, 0, testSM2Policy())

	if next.EaseFactor != 1.3 {
		t.Errorf("ease factor must never drop below 1.3, got %f", next.EaseFactor)
	}
}

func TestCalculateSM2_IntervalCap(t *testing.T) {
	state := SM2State{EaseFactor: 2.5, IntervalDays: 150, Repetitions: 5}
	next := CalculateSM2(state, 4, testSM2Policy())

	if next.IntervalDays != 180 {
		t.Errorf("interval should cap at 180 days, got %d", next.IntervalDays)
	}
}

func TestCalculateSM2_GradeClamping(t *testing.T) {
	high := CalculateSM2(NewCardState(), 9, testSM2Policy())
	five := CalculateSM2(NewCardState(), 5, testSM2Policy())
	if high != five {
		t.Errorf("grade 9 should behave like grade 5: got %+v vs %+v", high, five)
	}

	low := CalculateSM2(NewCardState(), -3, testSM2Policy())
	zero := CalculateSM2(NewCardState(), 0, testSM2Policy())
	if low != zero {
		t.Errorf("grade -3 should behave like grade 0: got %+v vs %+v", low, zero)
	}
}

func TestCalculateSM2_Deterministic(t *testing.T) {
	state := SM2State{EaseFactor: 2.1, IntervalDays: 9, Repetitions: 4}
	a := CalculateSM2(state, 3, testSM2Policy())
	b := CalculateSM2(state, 3, testSM2Policy())
	if a != b {
		t.Errorf("identical inputs produced different outputs: %+v vs %+v", a, b)
	}
}

func TestNextReviewDate_PreservesTimeOfDay(t *testing.T) {
	now := time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC)
	next := NextReviewDate(6, now)

	want := time.Date(2026, 3, 16, 14, 30, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("next review = %v, expected %v", next, want)
	}
}
