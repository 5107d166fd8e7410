package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"canteen-api/apperr"
	"canteen-api/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// TokenIssuer signs an access token for an authenticated user.
type TokenIssuer interface {
	GenerateToken(userID uint, email string, role models.UserRole) (string, error)
}

type AuthService struct {
	db     *gorm.DB
	tokens TokenIssuer
	log    *slog.Logger
}

func NewAuthService(db *gorm.DB, tokens TokenIssuer, log *slog.Logger) *AuthService {
	return &AuthService{db: db, tokens: tokens, log: log}
}

type Session struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Login authenticates by email. Any role may use it.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Internal(err, "load user")
	}
	if err != nil || !checkPassword(user.PasswordHash, password) {
		s.log.Warn("login rejected", "email", email)
		return nil, apperr.New(apperr.KindUnauthorized, "Invalid credentials")
	}
	return s.issue(user)
}

// StaffLogin authenticates kitchen staff and admins by username.
func (s *AuthService) StaffLogin(ctx context.Context, username, password string) (*Session, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	var user models.User
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		s.log.Warn("staff login rejected", "username", username, "reason", "unknown user")
		return nil, apperr.New(apperr.KindUnauthorized, "Invalid username or password")
	}
	if err != nil {
		return nil, apperr.Internal(err, "load user")
	}
	if !user.IsStaff() {
		s.log.Warn("staff login rejected", "username", username, "role", user.Role)
		return nil, apperr.New(apperr.KindForbidden, "Access denied. This login is for admin and staff only.")
	}
	if !checkPassword(user.PasswordHash, password) {
		s.log.Warn("staff login rejected", "username", username, "reason", "bad password")
		return nil, apperr.New(apperr.KindUnauthorized, "Invalid username or password")
	}
	return s.issue(user)
}

func (s *AuthService) Profile(ctx context.Context, userID uint) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).First(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.New(apperr.KindNotFound, "User not found")
	}
	if err != nil {
		return nil, apperr.Internal(err, "load user")
	}
	return &user, nil
}

// ListUsers returns all users, optionally filtered to one role.
func (s *AuthService) ListUsers(ctx context.Context, role string) ([]models.User, error) {
	query := s.db.WithContext(ctx).Order("id")
	if role != "" {
		r := models.UserRole(strings.ToLower(role))
		switch r {
		case models.RoleStudent, models.RoleStaff, models.RoleAdmin:
		default:
			return nil, apperr.New(apperr.KindValidation, "role must be one of student, staff, admin")
		}
		query = query.Where("role = ?", r)
	}
	var users []models.User
	if err := query.Find(&users).Error; err != nil {
		return nil, apperr.Internal(err, "list users")
	}
	return users, nil
}

func (s *AuthService) issue(user models.User) (*Session, error) {
	token, err := s.tokens.GenerateToken(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, apperr.Internal(err, "sign token")
	}
	s.log.Info("user logged in", "user_id", user.ID, "role", user.Role)
	return &Session{Token: token, User: user}, nil
}

func checkPassword(hash, password string) bool {
	return hash != "" && bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
