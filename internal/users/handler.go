package users

import (
	"strings"
	"time"

	"lightmanager-backend/internal/auth"
	"lightmanager-backend/internal/config"
	"lightmanager-backend/internal/database"
	"lightmanager-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type UserResponse struct {
	ID        string          `json:"id"`
	Username  string          `json:"username"`
	Password  string          `json:"password,omitempty"`
	Role      models.UserRole `json:"role"`
	ClientID  *string         `json:"clientId"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

type UpdateUserRequest struct {
	Username *string `json:"username"`
	Password *string `json:"password"`
	Role     *string `json:"role"`
	ClientID *string `json:"clientId"`
}

// GET /api/users (admin). Legacy-encoded passwords are decoded for display,
// which is the compatibility behavior this listing exists for; bcrypt hashes
// come back as-is.
func ListUsersHandler(cfg *config.Config) fiber.Handler {
	encoder := auth.NewLegacyEncoder(cfg.CredentialSecret)

	return func(c *fiber.Ctx) error {
		var users []models.User
		if err := database.DB.Order("created_at asc").Find(&users).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not list users")
		}

		res := make([]UserResponse, 0, len(users))
		for _, u := range users {
			res = append(res, UserResponse{
				ID:        u.ID,
				Username:  u.Username,
				Password:  encoder.Decode(u.Password),
				Role:      u.Role,
				ClientID:  u.ClientID,
				CreatedAt: u.CreatedAt,
				UpdatedAt: u.UpdatedAt,
			})
		}
		return c.JSON(res)
	}
}

// PUT /api/users/:id
func UpdateUserHandler(cfg *config.Config) fiber.Handler {
	encoder := auth.NewLegacyEncoder(cfg.CredentialSecret)

	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var user models.User
		if err := database.DB.First(&user, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "User not found")
		}

		var body UpdateUserRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		if body.Username != nil {
			username := strings.TrimSpace(*body.Username)
			if username == "" {
				return fiber.NewError(fiber.StatusBadRequest, "Username cannot be empty")
			}
			user.Username = username
		}
		if body.Password != nil && *body.Password != "" {
			encoded, err := auth.EnsureEncoded(encoder, *body.Password)
			if err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "Could not encode password")
			}
			user.Password = encoded
		}
		if body.Role != nil {
			switch models.UserRole(*body.Role) {
			case models.RoleUser, models.RoleAdmin, models.RoleClient:
				user.Role = models.UserRole(*body.Role)
			default:
				return fiber.NewError(fiber.StatusBadRequest, "Invalid role")
			}
		}
		if body.ClientID != nil {
			if *body.ClientID == "" {
				user.ClientID = nil
			} else {
				user.ClientID = body.ClientID
			}
		}

		if err := database.DB.Save(&user).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not update user")
		}

		return c.JSON(fiber.Map{
			"id":       user.ID,
			"username": user.Username,
			"role":     user.Role,
			"clientId": user.ClientID,
		})
	}
}

// DELETE /api/users/:id
func DeleteUserHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var user models.User
		if err := database.DB.First(&user, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "User not found")
		}

		if err := database.DB.Delete(&user).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not delete user")
		}

		return c.JSON(fiber.Map{"message": "User removed"})
	}
}
