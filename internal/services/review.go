package services

import (
	"fmt"
	"time"

	"github.com/memodeck/memodeck/internal/config"
	"github.com/memodeck/memodeck/internal/models"
	"github.com/memodeck/memodeck/pkg/response"
	"gorm.io/gorm"
)

// ReviewService applies grading events to per-user card scheduling state
// and serves the due queue.
type ReviewService struct {
	db     *gorm.DB
	policy config.SM2Policy
}

func NewReviewService(db *gorm.DB, policy config.SM2Policy) *ReviewService {
	return &ReviewService{db: db, policy: policy}
}

// loadOrEnroll returns the user's review row for the card, creating the
// enrollment state on first contact. The card must live in a folder the
// user owns.
func (s *ReviewService) loadOrEnroll(userID, flashcardID uint) (*models.Review, error) {
	var card models.Flashcard
	err := s.db.
		Joins("JOIN folders ON folders.id = flashcards.folder_id AND folders.deleted_at IS NULL").
		Where("flashcards.id = ? AND folders.user_id = ?", flashcardID, userID).
		First(&card).Error
	if err == gorm.ErrRecordNotFound {
		return nil, response.NewNotFound(fmt.Sprintf("flashcard %d not found", flashcardID))
	}
	if err != nil {
		return nil, err
	}

	var review models.Review
	err = s.db.Where("user_id = ? AND flashcard_id = ?", userID, flashcardID).First(&review).Error
	if err == gorm.ErrRecordNotFound {
		initial := NewCardState()
		review = models.Review{
			UserID:       userID,
			FlashcardID:  flashcardID,
			EaseFactor:   initial.EaseFactor,
			IntervalDays: initial.IntervalDays,
			Repetitions:  initial.Repetitions,
			NextReviewAt: time.Now(),
		}
		if err := s.db.Create(&review).Error; err != nil {
			return nil, fmt.Errorf("failed to enroll card: %w", err)
		}
		return &review, nil
	}
	if err != nil {
		return nil, err
	}
	return &review, nil
}

// Grade applies one recall grade (0..5) to the user's card and returns the
// updated scheduling state.
func (s *ReviewService) Grade(userID, flashcardID uint, grade int) (*models.Review, error) {
	if grade < 0 || grade > 5 {
		return nil, response.NewBadRequest("grade must be between 0 and 5")
	}

	review, err := s.loadOrEnroll(userID, flashcardID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	next := CalculateSM2(SM2State{
		EaseFactor:   review.EaseFactor,
		IntervalDays: review.IntervalDays,
		Repetitions:  review.Repetitions,
	}, grade, s.policy)

	review.EaseFactor = next.EaseFactor
	review.IntervalDays = next.IntervalDays
	review.Repetitions = next.Repetitions
	review.NextReviewAt = NextReviewDate(next.IntervalDays, now)
	review.LastGrade = &grade
	review.ReviewedAt = &now

	if err := s.db.Save(review).Error; err != nil {
		return nil, fmt.Errorf("failed to save review state: %w", err)
	}
	return review, nil
}

// ListDue returns the user's cards due at or before now, oldest due first,
// with the card content preloaded. limit<=0 means no cap.
func (s *ReviewService) ListDue(userID uint, now time.Time, limit int) ([]models.Review, error) {
	q := s.db.
		Preload("Flashcard").
		Where("user_id = ? AND next_review_at <= ?", userID, now).
		Order("next_review_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var due []models.Review
	if err := q.Find(&due).Error; err != nil {
		return nil, err
	}
	return due, nil
}

// Stats summarizes the user's review workload.
type ReviewStats struct {
	TotalCards int64 `json:"total_cards"`
	DueNow     int64 `json:"due_now"`
	Learned    int64 `json:"learned"` // repetitions >= 2
}

func (s *ReviewService) Stats(userID uint, now time.Time) (*ReviewStats, error) {
	stats := &ReviewStats{}
	base := s.db.Model(&models.Review{}).Where("user_id = ?", userID)

	if err := base.Session(&gorm.Session{}).Count(&stats.TotalCards).Error; err != nil {
		return nil, err
	}
	if err := base.Session(&gorm.Session{}).Where("next_review_at <= ?", now).Count(&stats.DueNow).Error; err != nil {
		return nil, err
	}
	if err := base.Session(&gorm.Session{}).Where("repetitions >= ?", 2).Count(&stats.Learned).Error; err != nil {
		return nil, err
	}
	return stats, nil
}
