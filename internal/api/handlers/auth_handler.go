package handlers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/rankontop/backend/internal/auth"
	"github.com/rankontop/backend/internal/middleware/validation"
	"github.com/rankontop/backend/internal/storage/models"
	"github.com/rankontop/backend/internal/storage/sqlite"
	"github.com/rankontop/backend/pkg/logger"
)

type UserStore interface {
	CreateUser(ctx context.Context, email, passwordHash string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

type AuthHandler struct {
	users  UserStore
	tokens *auth.Tokens
}

func NewAuthHandler(users UserStore, tokens *auth.Tokens) *AuthHandler {
	return &AuthHandler{
		users:  users,
		tokens: tokens,
	}
}

// Register expects validation.CredentialsBody in front.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	creds, ok := validation.CredentialsFrom(c)
	if !ok {
		return writeError(c, fiber.StatusBadRequest, "Invalid request body")
	}

	hash, err := auth.HashPassword(creds.Password)
	if err != nil {
		logger.Error("Failed to hash password", zap.Error(err))
		return writeError(c, fiber.StatusInternalServerError, "Failed to register user")
	}

	if _, err := h.users.CreateUser(c.UserContext(), creds.Email, hash); err != nil {
		if errors.Is(err, sqlite.ErrDuplicateEmail) {
			return writeError(c, fiber.StatusBadRequest, "Email already registered.")
		}
		logger.Error("Failed to create user", zap.Error(err))
		return writeError(c, fiber.StatusInternalServerError, "Failed to register user")
	}

	return c.JSON(fiber.Map{
		"message": "User registered successfully.",
	})
}

// Login expects validation.CredentialsBody in front.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	creds, ok := validation.CredentialsFrom(c)
	if !ok {
		return writeError(c, fiber.StatusBadRequest, "Invalid request body")
	}

	user, err := h.users.GetUserByEmail(c.UserContext(), creds.Email)
	if err != nil && !errors.Is(err, sqlite.ErrNotFound) {
		logger.Error("Failed to load user", zap.Error(err))
		return writeError(c, fiber.StatusInternalServerError, "Failed to log in")
	}
	if user == nil || auth.CheckPassword(user.PasswordHash, creds.Password) != nil {
		return writeError(c, fiber.StatusUnauthorized, "Invalid email or password.")
	}

	token, err := h.tokens.Issue(user.Email)
	if err != nil {
		logger.Error("Failed to issue token", zap.Error(err))
		return writeError(c, fiber.StatusInternalServerError, "Failed to log in")
	}

	return c.JSON(fiber.Map{
		"access_token": token,
		"token_type":   auth.TokenType,
	})
}
