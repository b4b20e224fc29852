package orders

import (
	"fmt"
	"strings"

	"lightmanager-backend/internal/database"
	"lightmanager-backend/internal/logger"
	"lightmanager-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Stock moves exactly once per order: deducted when the status enters VALIDE,
// restored when it leaves VALIDE. Everything else is a no-op, including line
// edits on an order that stays VALIDE.

const (
	hintCreate = `Please change the order status to "EN_ATTENTE" instead.`
	hintUpdate = `Please keep the order status as "EN_ATTENTE" or "BROUILLON".`
)

type InsufficientStockError struct {
	ProductName string
	Available   int
	Requested   int
	Hint        string
}

func (e *InsufficientStockError) Error() string {
	msg := fmt.Sprintf("Insufficient stock for product \"%s\". Available: %d, Requested: %d.", e.ProductName, e.Available, e.Requested)
	if e.Hint != "" {
		msg += " " + e.Hint
	}
	return msg
}

// deductStock applies a conditional decrement per line so a concurrent writer
// can never drive stock negative. When a line fails, lines already deducted
// for this order are restored before returning, leaving no partial effect.
func deductStock(lignes []models.OrderLine, hint string) error {
	deducted := make([]models.OrderLine, 0, len(lignes))

	for _, ligne := range lignes {
		if ligne.ProduitID == nil {
			restoreStock(deducted)
			return fiber.NewError(fiber.StatusBadRequest, "Product not found")
		}
		if ligne.Quantite <= 0 {
			continue
		}

		res := database.DB.Model(&models.Product{}).
			Where("id = ? AND stock >= ?", *ligne.ProduitID, ligne.Quantite).
			UpdateColumn("stock", gorm.Expr("stock - ?", ligne.Quantite))
		if res.Error != nil {
			restoreStock(deducted)
			return res.Error
		}
		if res.RowsAffected == 0 {
			restoreStock(deducted)

			var product models.Product
			if err := database.DB.First(&product, "id = ?", *ligne.ProduitID).Error; err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "Product not found: "+*ligne.ProduitID)
			}
			return &InsufficientStockError{
				ProductName: product.Name,
				Available:   product.Stock,
				Requested:   ligne.Quantite,
				Hint:        hint,
			}
		}

		deducted = append(deducted, ligne)
	}

	return nil
}

// restoreStock adds line quantities back. Best-effort: a product deleted
// since the order was validated is skipped.
func restoreStock(lignes []models.OrderLine) {
	for _, ligne := range lignes {
		if ligne.ProduitID == nil || ligne.Quantite <= 0 {
			continue
		}
		res := database.DB.Model(&models.Product{}).
			Where("id = ?", *ligne.ProduitID).
			UpdateColumn("stock", gorm.Expr("stock + ?", ligne.Quantite))
		if res.Error != nil {
			logger.L().Warn("could not restore stock", zap.String("product_id", *ligne.ProduitID), zap.Error(res.Error))
		}
	}
}

// resolveClientReference maps a client natural key to its identifier. A
// string that is already a valid identifier is accepted verbatim; anything
// else leaves the order unlinked, which is non-fatal on the import path.
func resolveClientReference(ref string) *string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil
	}

	var client models.Client
	if err := database.DB.Where("reference = ?", ref).First(&client).Error; err == nil {
		return &client.ID
	}

	if _, err := uuid.Parse(ref); err == nil {
		return &ref
	}

	logger.L().Warn("client not found for reference", zap.String("reference", ref))
	return nil
}

// renderStockError keeps the structured payload the UI relies on to show an
// actionable message, distinct from generic validation failures.
func renderStockError(c *fiber.Ctx, err error) error {
	if stockErr, ok := err.(*InsufficientStockError); ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message":     stockErr.Error(),
			"productName": stockErr.ProductName,
			"available":   stockErr.Available,
			"requested":   stockErr.Requested,
		})
	}
	return err
}
