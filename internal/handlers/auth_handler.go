package handlers

import (
	"log"

	"cms/internal/apperrors"
	"cms/internal/middleware"
	"cms/internal/models"
	"cms/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// AuthHandler handles HTTP requests for registration and sessions.
type AuthHandler struct {
	authService *services.AuthService
	validate    *validator.Validate
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		validate:    validator.New(),
	}
}

// RegisterRoutes registers the authentication routes with the Fiber app.
// The session endpoint resolves the caller when a token is present but
// never rejects anonymous visitors.
func (h *AuthHandler) RegisterRoutes(router fiber.Router) {
	authRoutes := router.Group("/auth")
	authRoutes.Post("/register", h.HandleRegister)
	authRoutes.Post("/login", h.HandleLogin)
	authRoutes.Get("/session", middleware.OptionalAuth(h.authService), h.HandleSession)
}

// RegisterProtectedRoutes registers the auth routes that require a session.
func (h *AuthHandler) RegisterProtectedRoutes(router fiber.Router) {
	router.Get("/auth/profile", h.HandleProfile)
}

// HandleRegister handles new user registration.
func (h *AuthHandler) HandleRegister(c *fiber.Ctx) error {
	var input models.RegisterInput
	if err := c.BodyParser(&input); err != nil {
		return respondError(c, apperrors.Validation("invalid request body"))
	}
	if err := h.validate.Struct(input); err != nil {
		return respondValidationError(c, err)
	}

	user, err := h.authService.Register(c.Context(), input)
	if err != nil {
		if apperrors.IsKind(err, apperrors.KindInternal) {
			log.Printf("Error registering user %s: %v", input.Email, err)
		}
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "User registered successfully",
		"user":    user,
	})
}

// HandleLogin handles user login and issues a JWT token.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	var input models.LoginInput
	if err := c.BodyParser(&input); err != nil {
		return respondError(c, apperrors.Validation("invalid request body"))
	}
	if err := h.validate.Struct(input); err != nil {
		return respondValidationError(c, err)
	}

	token, err := h.authService.Login(c.Context(), input.Email, input.Password)
	if err != nil {
		if apperrors.IsKind(err, apperrors.KindInternal) {
			log.Printf("Error during login for %s: %v", input.Email, err)
		}
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Login successful",
		"token":   token,
	})
}

// HandleSession returns the current caller identity, or null for visitors.
func (h *AuthHandler) HandleSession(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"user": middleware.SessionUser(c)})
}

// HandleProfile returns the caller's user record.
func (h *AuthHandler) HandleProfile(c *fiber.Ctx) error {
	user := middleware.SessionUser(c)
	if user == nil {
		return respondError(c, apperrors.Unauthorized("you must be logged in"))
	}

	profile, err := h.authService.Profile(c.Context(), user.ID)
	if err != nil {
		if apperrors.IsKind(err, apperrors.KindInternal) {
			log.Printf("Error loading profile for %s: %v", user.ID, err)
		}
		return respondError(c, err)
	}
	return c.JSON(profile)
}
