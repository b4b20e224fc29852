package users

import (
	"encoding/xml"
	"strings"

	"lightmanager-backend/internal/auth"
	"lightmanager-backend/internal/config"
	"lightmanager-backend/internal/database"
	"lightmanager-backend/internal/importer"
	"lightmanager-backend/internal/logger"
	"lightmanager-backend/internal/models"
	"lightmanager-backend/internal/xmlutil"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type usersDocument struct {
	XMLName xml.Name  `xml:"users"`
	Users   []userXML `xml:"user"`
}

type userXML struct {
	ID        string  `xml:"_id,omitempty"`
	Username  string  `xml:"username"`
	Password  string  `xml:"password,omitempty"`
	Role      string  `xml:"role"`
	ClientID  *string `xml:"clientId"`
	CreatedAt string  `xml:"createdAt,omitempty"`
	UpdatedAt string  `xml:"updatedAt,omitempty"`
}

// POST /api/users/import (admin)
func ImportUsersHandler(cfg *config.Config) fiber.Handler {
	encoder := auth.NewLegacyEncoder(cfg.CredentialSecret)

	return func(c *fiber.Ctx) error {
		data, err := importer.ReadUploadedXML(c)
		if err != nil {
			return err
		}

		root, err := xmlutil.RootName(data)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Error importing users: "+err.Error())
		}
		if root != "users" {
			return fiber.NewError(fiber.StatusBadRequest, importer.WrongRootMessage)
		}

		var doc usersDocument
		if err := xmlutil.Decode(data, &doc); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Error importing users: "+err.Error())
		}

		report := importer.NewReport()
		for _, record := range doc.Users {
			importUser(record, encoder, report)
		}

		return c.Status(fiber.StatusCreated).JSON(report)
	}
}

func importUser(record userXML, encoder *auth.LegacyEncoder, report *importer.Report) {
	username := strings.TrimSpace(record.Username)
	if username == "" {
		report.Fail("Unknown User", "Missing username")
		return
	}

	var existing models.User
	if err := database.DB.Where("username = ?", username).First(&existing).Error; err == nil {
		report.Fail(username, "User already exists")
		return
	}

	encoded, err := encoder.Encode(record.Password)
	if err != nil {
		report.Fail(username, "Could not encode password")
		return
	}

	role := record.Role
	if role == "" {
		role = string(models.RoleClient)
	}

	user := models.User{
		Username: username,
		Password: encoded,
		Role:     models.UserRole(role),
	}
	if record.ClientID != nil && strings.TrimSpace(*record.ClientID) != "" {
		clientID := strings.TrimSpace(*record.ClientID)
		user.ClientID = &clientID
	}

	if err := database.DB.Create(&user).Error; err != nil {
		reason := err.Error()
		if importer.IsUniqueViolation(err) {
			reason = "User already exists"
		}
		report.Fail(username, reason)
		return
	}

	report.Succeed(username, "User successfully added")
}

// GET /api/users/export (admin). Passwords never leave through the export
// path.
func ExportUsersHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var users []models.User
		if err := database.DB.Order("created_at asc").Find(&users).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not load users")
		}

		doc := usersDocument{Users: make([]userXML, 0, len(users))}
		for _, u := range users {
			doc.Users = append(doc.Users, userXML{
				ID:        u.ID,
				Username:  u.Username,
				Role:      string(u.Role),
				ClientID:  u.ClientID,
				CreatedAt: xmlutil.FormatDate(u.CreatedAt),
				UpdatedAt: xmlutil.FormatDate(u.UpdatedAt),
			})
		}

		xmlText, err := xmlutil.Encode(doc)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not build XML")
		}

		validation := xmlutil.Validate(xmlText, "users", cfg.SchemaDir)
		if !validation.Valid {
			logger.L().Error("XML validation failed", zap.String("schema", "users"), zap.String("details", validation.Message))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"message": "XML validation failed",
				"errors":  validation.Errors,
				"details": validation.Message,
			})
		}

		c.Set(fiber.HeaderContentType, "application/xml")
		c.Set(fiber.HeaderContentDisposition, `attachment; filename="users.xml"`)
		return c.SendString(xmlText)
	}
}
