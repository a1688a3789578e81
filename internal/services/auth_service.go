package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cms/internal/apperrors"
	"cms/internal/models"
	"cms/internal/repositories"

	"github.com/dgrijalva/jwt-go"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
)

// AuthService registers users, verifies credentials and issues the
// session tokens consumed by the authorization gate.
type AuthService struct {
	userRepo      repositories.UserRepository
	jwtSecret     []byte
	tokenDuration time.Duration
}

// NewAuthService creates a new AuthService.
func NewAuthService(userRepo repositories.UserRepository, jwtSecret string) *AuthService {
	return &AuthService{
		userRepo:      userRepo,
		jwtSecret:     []byte(jwtSecret),
		tokenDuration: 24 * time.Hour,
	}
}

// Register hashes the password and stores a new user. A duplicate email
// yields a conflict error.
func (s *AuthService) Register(ctx context.Context, input models.RegisterInput) (*models.AuthUser, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperrors.Internal("could not hash password", err)
	}

	now := time.Now().UTC()
	user := models.User{
		Email:     input.Email,
		Name:      input.Name,
		Password:  string(hashedPassword),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.userRepo.Create(ctx, &user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, apperrors.Conflict(fmt.Sprintf("email '%s' already registered", input.Email))
		}
		return nil, apperrors.Internal("could not register user", err)
	}

	return &models.AuthUser{
		ID:    user.ID.Hex(),
		Name:  user.Name,
		Email: user.Email,
	}, nil
}

// Login authenticates a user by email and password and returns a signed
// JWT. Invalid credentials never reveal whether the email exists.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", apperrors.Unauthorized("invalid credentials")
		}
		return "", apperrors.Internal("could not load user", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", apperrors.Unauthorized("invalid credentials")
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.ID.Hex(),
		"name":    user.Name,
		"email":   user.Email,
		"exp":     time.Now().Add(s.tokenDuration).Unix(),
		"iat":     time.Now().Unix(),
	})

	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", apperrors.Internal("could not sign token", err)
	}
	return tokenString, nil
}

// ValidateToken parses and validates a JWT, returning the caller identity
// it carries.
func (s *AuthService) ValidateToken(tokenString string) (*models.AuthUser, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, apperrors.Unauthorized("invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, apperrors.Unauthorized("invalid token")
	}

	userID, _ := claims["user_id"].(string)
	if _, err := primitive.ObjectIDFromHex(userID); err != nil {
		return nil, apperrors.Unauthorized("invalid token subject")
	}
	name, _ := claims["name"].(string)
	email, _ := claims["email"].(string)

	return &models.AuthUser{ID: userID, Name: name, Email: email}, nil
}

// Profile loads the caller's user record.
func (s *AuthService) Profile(ctx context.Context, callerID string) (*models.AuthUser, error) {
	id, err := primitive.ObjectIDFromHex(callerID)
	if err != nil {
		return nil, apperrors.Unauthorized("invalid session identity")
	}
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.NotFound("user not found")
		}
		return nil, apperrors.Internal("could not load profile", err)
	}
	return &models.AuthUser{
		ID:    user.ID.Hex(),
		Name:  user.Name,
		Email: user.Email,
	}, nil
}
