package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tour-booking-service/config"
	"tour-booking-service/internal/models"
	"tour-booking-service/internal/store"
	"tour-booking-service/internal/util"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// UserStore is the persistence surface for accounts
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// Claims is the JWT payload carried by bearer tokens
type Claims struct {
	UserID  int64 `json:"user_id"`
	IsAdmin bool  `json:"is_admin"`
	jwt.RegisteredClaims
}

// UserService handles registration, login and token verification
type UserService struct {
	store    UserStore
	secret   []byte
	tokenTTL time.Duration
	logger   *zap.Logger
}

// NewUserService creates a new user service
func NewUserService(store UserStore, cfg config.AuthConfig) *UserService {
	return &UserService{
		store:    store,
		secret:   []byte(cfg.JWTSecret),
		tokenTTL: time.Duration(cfg.TokenTTLHour) * time.Hour,
		logger:   util.GetLogger(),
	}
}

// Register creates a non-admin account
func (s *UserService) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	switch {
	case username == "":
		return nil, fmt.Errorf("%w: username is required", ErrValidation)
	case email == "":
		return nil, fmt.Errorf("%w: email is required", ErrValidation)
	case !strings.Contains(email, "@") || !strings.Contains(email, "."):
		return nil, fmt.Errorf("%w: invalid email address", ErrValidation)
	case password == "":
		return nil, fmt.Errorf("%w: password is required", ErrValidation)
	}

	if _, err := s.store.GetUserByUsername(ctx, username); err == nil {
		return nil, ErrUsernameTaken
	} else if !errors.Is(err, store.ErrUserNotFound) {
		return nil, err
	}
	if _, err := s.store.GetUserByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, store.ErrUserNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		IsAdmin:      false,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("User registered", zap.Int64("user_id", user.ID), zap.String("username", username))
	return user, nil
}

// Login verifies credentials and issues a bearer token
func (s *UserService) Login(ctx context.Context, username, password string) (string, *models.User, error) {
	user, err := s.store.GetUserByUsername(ctx, username)
	if errors.Is(err, store.ErrUserNotFound) {
		return "", nil, ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	claims := Claims{
		UserID:  user.ID,
		IsAdmin: user.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return token, user, nil
}

// VerifyToken parses and validates a bearer token
func (s *UserService) VerifyToken(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// GetUser loads the account behind a set of claims
func (s *UserService) GetUser(ctx context.Context, id int64) (*models.User, error) {
	return s.store.GetUserByID(ctx, id)
}
