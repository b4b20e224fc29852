package clients

import (
	"strings"

	"lightmanager-backend/internal/database"
	"lightmanager-backend/internal/logger"
	"lightmanager-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// GET /api/clients
func ListClientsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var clients []models.Client
		if err := database.DB.
			Preload("Contacts").
			Preload("Contrats").
			Order("reference asc").
			Find(&clients).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not list clients")
		}
		return c.JSON(clients)
	}
}

// POST /api/clients
func CreateClientHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var client models.Client
		if err := c.BodyParser(&client); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		client.Reference = strings.TrimSpace(client.Reference)
		if client.Reference == "" || client.RaisonSociale == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Reference and raisonSociale are required")
		}

		var existing models.Client
		if err := database.DB.Where("reference = ?", client.Reference).First(&existing).Error; err == nil {
			return fiber.NewError(fiber.StatusBadRequest, "Client already exists")
		}

		if err := database.DB.Create(&client).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not create client")
		}

		return c.Status(fiber.StatusCreated).JSON(client)
	}
}

// PUT /api/clients/:id. Fields absent from the body keep their stored value;
// contact and contract lists are replaced when provided.
func UpdateClientHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var client models.Client
		if err := database.DB.
			Preload("Contacts").
			Preload("Contrats").
			First(&client, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Client not found")
		}

		if err := c.BodyParser(&client); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		client.ID = id

		if err := database.DB.Model(&client).Association("Contacts").Replace(client.Contacts); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not update contacts")
		}
		if err := database.DB.Model(&client).Association("Contrats").Replace(client.Contrats); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not update contracts")
		}
		if err := database.DB.Save(&client).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not update client")
		}

		return c.JSON(client)
	}
}

// DELETE /api/clients/:id also removes the user account linked to this
// client, when one exists.
func DeleteClientHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var client models.Client
		if err := database.DB.First(&client, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Client not found")
		}

		if err := database.DB.Where("client_id = ?", client.ID).Delete(&models.User{}).Error; err != nil {
			logger.L().Warn("could not delete linked user account", zap.String("client_id", client.ID), zap.Error(err))
		}

		if err := database.DB.Select("Contacts", "Contrats").Delete(&client).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not delete client")
		}

		return c.JSON(fiber.Map{"message": "Client and associated user account deleted successfully"})
	}
}
