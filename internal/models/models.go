package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents a platform account.
type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Username  string         `gorm:"uniqueIndex;size:100;not null" json:"username"`
	Password  string         `gorm:"size:255" json:"-"` // bcrypt hash
	Email     string         `gorm:"size:255" json:"email"`
	Role      string         `gorm:"size:50;default:user" json:"role"` // admin, user
	IsActive  bool           `gorm:"default:true" json:"is_active"`
	LastLogin *time.Time     `json:"last_login"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// Folder is the ownership root for study content. Every material, flashcard,
// and quiz question hangs off a folder, and folder.UserID decides who may
// save generated content into it.
type Folder struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	UserID    uint           `gorm:"index;not null" json:"user_id"`
	Name      string         `gorm:"size:200;not null" json:"name"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// Material is a stored source document (lecture notes, article, transcript)
// that generation requests can reference instead of inline text.
type Material struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	FolderID  uint           `gorm:"index;not null" json:"folder_id"`
	Folder    *Folder        `gorm:"foreignKey:FolderID" json:"folder,omitempty"`
	Title     string         `gorm:"size:300;not null" json:"title"`
	Content   string         `gorm:"type:text" json:"content"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// Content source markers.
const (
	SourceManual    = "manual"
	SourceGenerated = "generated"
)

// Flashcard is a front/back study card.
type Flashcard struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	FolderID   uint           `gorm:"index;not null" json:"folder_id"`
	MaterialID *uint          `gorm:"index" json:"material_id"`
	Front      string         `gorm:"type:text;not null" json:"front"`
	Back       string         `gorm:"type:text;not null" json:"back"`
	Source     string         `gorm:"size:20;default:manual" json:"source"` // manual, generated
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

// QuizQuestion is a four-choice question. Choices is a JSON array of exactly
// four strings; AnswerIndex points into it.
type QuizQuestion struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	FolderID    uint           `gorm:"index;not null" json:"folder_id"`
	MaterialID  *uint          `gorm:"index" json:"material_id"`
	Question    string         `gorm:"type:text;not null" json:"question"`
	Choices     string         `gorm:"type:text;not null" json:"choices"`
	AnswerIndex int            `json:"answer_index"`
	Explanation string         `gorm:"type:text" json:"explanation"`
	Source      string         `gorm:"size:20;default:manual" json:"source"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName overrides
func (User) TableName() string         { return "users" }
func (Folder) TableName() string       { return "folders" }
func (Material) TableName() string     { return "materials" }
func (Flashcard) TableName() string    { return "flashcards" }
func (QuizQuestion) TableName() string { return "quiz_questions" }
