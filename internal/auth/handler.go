package auth

import (
	"strings"

	"lightmanager-backend/internal/config"
	"lightmanager-backend/internal/database"
	"lightmanager-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
	ClientID string `json:"clientId"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func validRole(role string) bool {
	switch models.UserRole(role) {
	case models.RoleUser, models.RoleAdmin, models.RoleClient:
		return true
	}
	return false
}

// POST /api/auth/register
func RegisterHandler(cfg *config.Config) fiber.Handler {
	encoder := NewLegacyEncoder(cfg.CredentialSecret)

	return func(c *fiber.Ctx) error {
		var body RegisterRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		body.Username = strings.TrimSpace(body.Username)
		if body.Username == "" || body.Password == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Username and password are required")
		}

		if body.Role == "" {
			body.Role = string(models.RoleUser)
		}
		if !validRole(body.Role) {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid role")
		}

		var count int64
		database.DB.Model(&models.User{}).
			Where("username = ?", body.Username).
			Count(&count)
		if count > 0 {
			return fiber.NewError(fiber.StatusBadRequest, "User already exists")
		}

		encoded, err := EnsureEncoded(encoder, body.Password)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not encode password")
		}

		user := models.User{
			Username: body.Username,
			Password: encoded,
			Role:     models.UserRole(body.Role),
		}
		if clientID := strings.TrimSpace(body.ClientID); clientID != "" {
			user.ClientID = &clientID
		}

		if err := database.DB.Create(&user).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not create user")
		}

		token, err := GenerateToken(cfg.JWTSecret, &user)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not generate token")
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"id":       user.ID,
			"username": user.Username,
			"role":     user.Role,
			"clientId": user.ClientID,
			"token":    token,
		})
	}
}

// POST /api/auth/login
func LoginHandler(cfg *config.Config) fiber.Handler {
	encoder := NewLegacyEncoder(cfg.CredentialSecret)

	return func(c *fiber.Ctx) error {
		var body LoginRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		var user models.User
		if err := database.DB.Where("username = ?", strings.TrimSpace(body.Username)).First(&user).Error; err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid username or password")
		}

		if !MatchPassword(encoder, user.Password, body.Password) {
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid username or password")
		}

		token, err := GenerateToken(cfg.JWTSecret, &user)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not generate token")
		}

		return c.JSON(fiber.Map{
			"id":       user.ID,
			"username": user.Username,
			"role":     user.Role,
			"clientId": user.ClientID,
			"token":    token,
		})
	}
}
