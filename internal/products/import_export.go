package products

import (
	"encoding/xml"
	"strconv"
	"strings"

	"lightmanager-backend/internal/config"
	"lightmanager-backend/internal/database"
	"lightmanager-backend/internal/importer"
	"lightmanager-backend/internal/logger"
	"lightmanager-backend/internal/models"
	"lightmanager-backend/internal/xmlutil"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type productsDocument struct {
	XMLName  xml.Name     `xml:"products"`
	Products []productXML `xml:"product"`
}

// Numeric fields stay strings here so one record with a bad number fails on
// its own instead of failing the whole document decode.
type productXML struct {
	ID          string `xml:"_id,omitempty"`
	Name        string `xml:"name"`
	Category    string `xml:"category"`
	Price       string `xml:"price"`
	Stock       string `xml:"stock"`
	Description string `xml:"description"`
	CreatedAt   string `xml:"createdAt,omitempty"`
	UpdatedAt   string `xml:"updatedAt,omitempty"`
}

// POST /api/products/import
func ImportProductsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		data, err := importer.ReadUploadedXML(c)
		if err != nil {
			return err
		}

		root, err := xmlutil.RootName(data)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Error importing XML: "+err.Error())
		}
		if root != "products" {
			return fiber.NewError(fiber.StatusBadRequest, importer.WrongRootMessage)
		}

		var doc productsDocument
		if err := xmlutil.Decode(data, &doc); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Error importing XML: "+err.Error())
		}

		report := importer.NewReport()
		for _, record := range doc.Products {
			importProduct(record, report)
		}

		return c.Status(fiber.StatusCreated).JSON(report)
	}
}

func importProduct(record productXML, report *importer.Report) {
	name := strings.TrimSpace(record.Name)
	if name == "" {
		report.Fail("Unknown Product", "Missing product name")
		return
	}

	var existing models.Product
	if err := database.DB.Where("name = ?", name).First(&existing).Error; err == nil {
		report.Fail(name, "Product already exists")
		return
	}

	price, err := strconv.ParseFloat(strings.TrimSpace(record.Price), 64)
	if err != nil || price < 0 {
		report.Fail(name, "Invalid price: "+record.Price)
		return
	}
	stock, err := strconv.Atoi(strings.TrimSpace(record.Stock))
	if err != nil || stock < 0 {
		report.Fail(name, "Invalid stock: "+record.Stock)
		return
	}

	product := models.Product{
		Name:        name,
		Category:    record.Category,
		Price:       price,
		Stock:       stock,
		Description: record.Description,
	}
	if err := database.DB.Create(&product).Error; err != nil {
		reason := err.Error()
		if importer.IsUniqueViolation(err) {
			reason = "Product already exists"
		}
		report.Fail(name, reason)
		return
	}

	report.Succeed(name, "Product successfully added")
}

// GET /api/products/export
func ExportProductsHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var products []models.Product
		if err := database.DB.Order("created_at asc").Find(&products).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not load products")
		}

		doc := productsDocument{Products: make([]productXML, 0, len(products))}
		for _, p := range products {
			doc.Products = append(doc.Products, productXML{
				ID:          p.ID,
				Name:        p.Name,
				Category:    p.Category,
				Price:       strconv.FormatFloat(p.Price, 'f', -1, 64),
				Stock:       strconv.Itoa(p.Stock),
				Description: p.Description,
				CreatedAt:   xmlutil.FormatDate(p.CreatedAt),
				UpdatedAt:   xmlutil.FormatDate(p.UpdatedAt),
			})
		}

		xmlText, err := xmlutil.Encode(doc)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not build XML")
		}

		validation := xmlutil.Validate(xmlText, "products", cfg.SchemaDir)
		if !validation.Valid {
			logger.L().Error("XML validation failed", zap.String("schema", "products"), zap.String("details", validation.Message))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"message": "XML validation failed",
				"errors":  validation.Errors,
				"details": validation.Message,
			})
		}

		c.Set(fiber.HeaderContentType, "application/xml")
		c.Set(fiber.HeaderContentDisposition, `attachment; filename="products.xml"`)
		return c.SendString(xmlText)
	}
}
