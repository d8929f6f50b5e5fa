package services

import (
	"fmt"

	"github.com/memodeck/memodeck/internal/models"
	"github.com/memodeck/memodeck/pkg/response"
	"gorm.io/gorm"
)

// MaterialService manages folders and stored source documents. Folders are
// the ownership root: every ownership question in the pipeline reduces to
// "does this folder belong to this user".
type MaterialService struct {
	db *gorm.DB
}

func NewMaterialService(db *gorm.DB) *MaterialService {
	return &MaterialService{db: db}
}

// VerifyFolderOwnership returns the folder when it exists and belongs to
// the user. A foreign folder reads as not-found rather than forbidden, so
// the API does not leak which folder IDs exist.
func (s *MaterialService) VerifyFolderOwnership(folderID, userID uint) (*models.Folder, error) {
	var folder models.Folder
	err := s.db.Where("id = ? AND user_id = ?", folderID, userID).First(&folder).Error
	if err == gorm.ErrRecordNotFound {
		return nil, response.NewNotFound(fmt.Sprintf("folder %d not found", folderID))
	}
	if err != nil {
		return nil, err
	}
	return &folder, nil
}

// LoadContent resolves a material reference from a generation request,
// enforcing ownership through the containing folder.
func (s *MaterialService) LoadContent(materialID, userID uint) (*models.Material, error) {
	var material models.Material
	err := s.db.Preload("Folder").First(&material, materialID).Error
	if err == gorm.ErrRecordNotFound {
		return nil, response.NewNotFound(fmt.Sprintf("material %d not found", materialID))
	}
	if err != nil {
		return nil, err
	}

	if material.Folder == nil || material.Folder.UserID != userID {
		return nil, response.NewNotFound(fmt.Sprintf("material %d not found", materialID))
	}
	return &material, nil
}

func (s *MaterialService) CreateFolder(userID uint, name string) (*models.Folder, error) {
	folder := models.Folder{UserID: userID, Name: name}
	if err := s.db.Create(&folder).Error; err != nil {
		return nil, fmt.Errorf("failed to create folder: %w", err)
	}
	return &folder, nil
}

func (s *MaterialService) ListFolders(userID uint) ([]models.Folder, error) {
	var folders []models.Folder
	if err := s.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&folders).Error; err != nil {
		return nil, err
	}
	return folders, nil
}

func (s *MaterialService) CreateMaterial(userID, folderID uint, title, content string) (*models.Material, error) {
	if _, err := s.VerifyFolderOwnership(folderID, userID); err != nil {
		return nil, err
	}
	material := models.Material{FolderID: folderID, Title: title, Content: content}
	if err := s.db.Create(&material).Error; err != nil {
		return nil, fmt.Errorf("failed to create material: %w", err)
	}
	return &material, nil
}

func (s *MaterialService) ListMaterials(userID, folderID uint) ([]models.Material, error) {
	if _, err := s.VerifyFolderOwnership(folderID, userID); err != nil {
		return nil, err
	}
	var materials []models.Material
	if err := s.db.Where("folder_id = ?", folderID).Order("created_at DESC").Find(&materials).Error; err != nil {
		return nil, err
	}
	return materials, nil
}
