package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/hugh/toga/internal/database/models"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidEmailDomain = errors.New("email domain not allowed")
)

type Service struct {
	db            *gorm.DB
	jwt           *JWTService
	allowedDomain string
}

// NewService builds the authentication service. allowedDomain restricts
// registration to one institutional email suffix; empty disables the
// check.
func NewService(db *gorm.DB, jwt *JWTService, allowedDomain string) *Service {
	return &Service{db: db, jwt: jwt, allowedDomain: strings.ToLower(allowedDomain)}
}

type RegisterInput struct {
	Email    string
	Password string
	Username string
	FullName string
}

type LoginInput struct {
	Email    string
	Password string
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func (s *Service) allowedEmail(email string) bool {
	if s.allowedDomain == "" {
		return true
	}
	return strings.HasSuffix(strings.ToLower(email), "@"+s.allowedDomain)
}

func (s *Service) Register(ctx context.Context, input RegisterInput) (*AuthResponse, error) {
	if !s.allowedEmail(input.Email) {
		return nil, ErrInvalidEmailDomain
	}

	// Duplicate email or username both reject, regardless of which
	// collides first.
	var existing models.User
	err := s.db.WithContext(ctx).
		Where("email = ? OR username = ?", input.Email, input.Username).
		First(&existing).Error
	if err == nil {
		return nil, ErrUserExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hash, err := HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	user := models.User{
		Email:        input.Email,
		PasswordHash: hash,
		Username:     input.Username,
		FullName:     input.FullName,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, err
	}

	token, err := s.jwt.GenerateToken(user.ID, user.Email)
	if err != nil {
		return nil, err
	}

	return &AuthResponse{Token: token, User: &user}, nil
}

func (s *Service) Login(ctx context.Context, input LoginInput) (*AuthResponse, error) {
	var user models.User
	if err := s.db.WithContext(ctx).
		Where("email = ?", input.Email).
		First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !CheckPassword(input.Password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	token, err := s.jwt.GenerateToken(user.ID, user.Email)
	if err != nil {
		return nil, err
	}

	return &AuthResponse{Token: token, User: &user}, nil
}

func (s *Service) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}
