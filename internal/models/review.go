package models

import (
	"time"

	"gorm.io/gorm"
)

// Review holds the SM-2 scheduling state for one user/flashcard pair.
// It is mutated only by grading events; enrollment creates it with
// EF=2.5, interval=0, repetitions=0.
type Review struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	UserID       uint           `gorm:"index:idx_review_user_card,unique;not null" json:"user_id"`
	FlashcardID  uint           `gorm:"index:idx_review_user_card,unique;not null" json:"flashcard_id"`
	Flashcard    *Flashcard     `gorm:"foreignKey:FlashcardID" json:"flashcard,omitempty"`
	EaseFactor   float64        `gorm:"default:2.5" json:"ease_factor"`
	IntervalDays int            `gorm:"default:0" json:"interval_days"`
	Repetitions  int            `gorm:"default:0" json:"repetitions"`
	NextReviewAt time.Time      `gorm:"index" json:"next_review_at"`
	LastGrade    *int           `json:"last_grade"`
	ReviewedAt   *time.Time     `json:"reviewed_at"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Review) TableName() string { return "reviews" }
