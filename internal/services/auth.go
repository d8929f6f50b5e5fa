package services

import (
	"errors"
	"time"

	"github.com/memodeck/memodeck/internal/config"
	"github.com/memodeck/memodeck/internal/models"
	"github.com/memodeck/memodeck/internal/utils"
	"github.com/memodeck/memodeck/pkg/response"
	"gorm.io/gorm"
)

// AuthService handles account lookup and credential verification.
type AuthService struct {
	db        *gorm.DB
	jwtConfig *config.JWTConfig
}

func NewAuthService(db *gorm.DB, jwtCfg *config.JWTConfig) *AuthService {
	return &AuthService{db: db, jwtConfig: jwtCfg}
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token    string       `json:"token"`
	User     *models.User `json:"user"`
	ExpireAt time.Time    `json:"expire_at"`
}

// Login verifies credentials and issues a JWT.
func (s *AuthService) Login(req *LoginRequest) (*LoginResponse, error) {
	var user models.User
	if err := s.db.Where("username = ?", req.Username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewUnauthorized("invalid username or password")
		}
		return nil, err
	}

	if !user.IsActive {
		return nil, response.NewForbidden("account is disabled")
	}
	if !utils.CheckPassword(req.Password, user.Password) {
		return nil, response.NewUnauthorized("invalid username or password")
	}

	token, err := utils.GenerateToken(user.ID, user.Username, user.Role, s.jwtConfig.ExpireHour)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user.LastLogin = &now
	s.db.Save(&user)

	return &LoginResponse{
		Token:    token,
		User:     &user,
		ExpireAt: now.Add(time.Duration(s.jwtConfig.ExpireHour) * time.Hour),
	}, nil
}

type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Password string `json:"password" binding:"required,min=6"`
	Email    string `json:"email"`
}

// Register creates a regular account.
func (s *AuthService) Register(req *RegisterRequest) (*models.User, error) {
	var count int64
	s.db.Model(&models.User{}).Where("username = ?", req.Username).Count(&count)
	if count > 0 {
		return nil, response.NewBadRequest("username already taken")
	}

	hashed, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := models.User{
		Username: req.Username,
		Password: hashed,
		Email:    req.Email,
		Role:     "user",
		IsActive: true,
	}
	if err := s.db.Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByID retrieves a user by ID.
func (s *AuthService) GetUserByID(id uint) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateAdminIfNotExists seeds the default admin account on first boot.
func (s *AuthService) CreateAdminIfNotExists() error {
	var count int64
	s.db.Model(&models.User{}).Where("role = ?", "admin").Count(&count)
	if count > 0 {
		return nil
	}

	hashed, err := utils.HashPassword("admin")
	if err != nil {
		return err
	}
	admin := models.User{
		Username: "admin",
		Password: hashed,
		Role:     "admin",
		IsActive: true,
	}
	return s.db.Create(&admin).Error
}
