package services

import (
	"encoding/json"
	"fmt"

	"github.com/memodeck/memodeck/internal/models"
	"github.com/memodeck/memodeck/pkg/logger"
	"gorm.io/gorm"
)

// SaveResult reports what one persistence transaction did.
type SaveResult struct {
	SavedCount          int `json:"saved_count"`
	ReplacedCount       int `json:"replaced_count"`
	OrphanedReviewCount int `json:"orphaned_review_count"`
}

// PersistenceService writes generated content into a folder. By default the
// fresh batch is appended; with replace set, previously generated items
// scoped to the same folder and material are removed first, along with the
// review state hanging off removed flashcards. Either way the whole exchange
// is one transaction and manual content is never touched.
type PersistenceService struct {
	db *gorm.DB
}

func NewPersistenceService(db *gorm.DB) *PersistenceService {
	return &PersistenceService{db: db}
}

// SaveFlashcards writes the generated batch into the folder, replacing the
// prior generated cards of the same scope when replace is set.
func (s *PersistenceService) SaveFlashcards(folderID uint, materialID *uint, cards []FlashcardDTO, replace bool) (*SaveResult, error) {
	result := &SaveResult{}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var stale []models.Flashcard
		if replace {
			if err := scopeGenerated(tx, folderID, materialID).Find(&stale).Error; err != nil {
				return err
			}
		}

		if len(stale) > 0 {
			staleIDs := make([]uint, len(stale))
			for i, c := range stale {
				staleIDs[i] = c.ID
			}

			del := tx.Where("flashcard_id IN ?", staleIDs).Delete(&models.Review{})
			if del.Error != nil {
				return del.Error
			}
			result.OrphanedReviewCount = int(del.RowsAffected)

			if err := tx.Delete(&models.Flashcard{}, staleIDs).Error; err != nil {
				return err
			}
			result.ReplacedCount = len(stale)
		}

		for _, card := range cards {
			row := models.Flashcard{
				FolderID:   folderID,
				MaterialID: materialID,
				Front:      card.Front,
				Back:       card.Back,
				Source:     models.SourceGenerated,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		result.SavedCount = len(cards)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("flashcard persistence failed: %w", err)
	}

	logger.Info().
		Uint("folder_id", folderID).
		Int("saved", result.SavedCount).
		Int("replaced", result.ReplacedCount).
		Int("orphaned_reviews", result.OrphanedReviewCount).
		Msg("persisted generated flashcards")
	return result, nil
}

// SaveQuizQuestions writes the generated batch into the folder, replacing
// the prior generated questions of the same scope when replace is set. Quiz
// questions carry no review state.
func (s *PersistenceService) SaveQuizQuestions(folderID uint, materialID *uint, questions []QuizQuestionDTO, replace bool) (*SaveResult, error) {
	result := &SaveResult{}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if replace {
			del := scopeGenerated(tx, folderID, materialID).Delete(&models.QuizQuestion{})
			if del.Error != nil {
				return del.Error
			}
			result.ReplacedCount = int(del.RowsAffected)
		}

		for _, q := range questions {
			choices, err := json.Marshal(q.Choices)
			if err != nil {
				return err
			}
			row := models.QuizQuestion{
				FolderID:    folderID,
				MaterialID:  materialID,
				Question:    q.Question,
				Choices:     string(choices),
				AnswerIndex: q.AnswerIndex,
				Explanation: q.Explanation,
				Source:      models.SourceGenerated,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		result.SavedCount = len(questions)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("quiz persistence failed: %w", err)
	}

	logger.Info().
		Uint("folder_id", folderID).
		Int("saved", result.SavedCount).
		Int("replaced", result.ReplacedCount).
		Msg("persisted generated quiz questions")
	return result, nil
}

// scopeGenerated narrows to generated rows in the folder, matching the
// material reference: a material-scoped save only replaces that material's
// items, an inline-text save only replaces items with no material link.
func scopeGenerated(tx *gorm.DB, folderID uint, materialID *uint) *gorm.DB {
	q := tx.Where("folder_id = ? AND source = ?", folderID, models.SourceGenerated)
	if materialID != nil {
		return q.Where("material_id = ?", *materialID)
	}
	return q.Where("material_id IS NULL")
}
