package services

import (
	"math"
	"time"

	"github.com/memodeck/memodeck/internal/config"
)

// SM2State is the scheduling state of one card before or after grading.
type SM2State struct {
	EaseFactor   float64
	IntervalDays int
	Repetitions  int
}

// NewCardState returns the state assigned on enrollment.
func NewCardState() SM2State {
	return SM2State{EaseFactor: 2.5, IntervalDays: 0, Repetitions: 0}
}

// CalculateSM2 applies one SM-2 grading event to a card's state.
// grade is clamped to [0,5]. Grades >= 3 count as correct and grow the
// interval; lower grades reset repetitions and the interval. The ease
// factor update is applied on every grade, independent of the branch,
// then floored at policy.MinEaseFactor. The resulting interval is capped
// at policy.MaxIntervalDays.
//
// Pure and side-effect free: identical inputs always produce identical
// outputs, so it is safe to run outside any transaction.
func CalculateSM2(current SM2State, grade int, policy config.SM2Policy) SM2State {
	if grade < 0 {
		grade = 0
	}
	if grade > 5 {
		grade = 5
	}

	q := float64(grade)
	ef := current.EaseFactor + (0.1 - (5-q)*(0.08+(5-q)*0.02))
	if ef < policy.MinEaseFactor {
		ef = policy.MinEaseFactor
	}

	next := SM2State{EaseFactor: ef}

	if grade >= 3 {
		next.Repetitions = current.Repetitions + 1
		switch current.Repetitions {
		case 0:
			next.IntervalDays = policy.FirstIntervalDays
		case 1:
			next.IntervalDays = policy.SecondIntervalDays
		default:
			next.IntervalDays = int(math.Round(float64(current.IntervalDays) * ef))
		}
	} else {
		next.Repetitions = 0
		next.IntervalDays = policy.FirstIntervalDays
	}

	if next.IntervalDays > policy.MaxIntervalDays {
		next.IntervalDays = policy.MaxIntervalDays
	}

	return next
}

// NextReviewDate returns now + intervalDays using calendar arithmetic.
// The time of day of now is preserved.
func NextReviewDate(intervalDays int, now time.Time) time.Time {
	return now.AddDate(0, 0, intervalDays)
}
