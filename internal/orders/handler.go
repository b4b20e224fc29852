package orders

import (
	"strings"
	"time"

	"lightmanager-backend/internal/auth"
	"lightmanager-backend/internal/database"
	"lightmanager-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type ClientSummary struct {
	ID            string `json:"id"`
	RaisonSociale string `json:"raisonSociale"`
}

type ProductSummary struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

type OrderResponse struct {
	models.Order
	Client *ClientSummary `json:"client,omitempty"`
}

type LigneResponse struct {
	models.OrderLine
	Produit *ProductSummary `json:"produit,omitempty"`
}

type OrderDetailResponse struct {
	models.Order
	Client *ClientSummary  `json:"client,omitempty"`
	Lignes []LigneResponse `json:"lignes"`
}

// GET /api/orders. A role=client account only sees its own client's orders.
func ListOrdersHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		query := database.DB.Preload("Lignes").Preload("Conditions")

		if role, ok := auth.RoleFromCtx(c); ok && role == models.RoleClient {
			clientID := auth.ClientIDFromCtx(c)
			if clientID == nil {
				return c.JSON([]OrderResponse{})
			}
			query = query.Where("client_id = ?", *clientID)
		}

		var orders []models.Order
		if err := query.Order("date_creation desc").Find(&orders).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not list orders")
		}

		names := clientNames(orders)
		res := make([]OrderResponse, 0, len(orders))
		for _, order := range orders {
			res = append(res, OrderResponse{Order: order, Client: names[order.ID]})
		}
		return c.JSON(res)
	}
}

func clientNames(orders []models.Order) map[string]*ClientSummary {
	ids := make([]string, 0, len(orders))
	for _, order := range orders {
		if order.ClientID != nil {
			ids = append(ids, *order.ClientID)
		}
	}
	byOrder := make(map[string]*ClientSummary, len(orders))
	if len(ids) == 0 {
		return byOrder
	}

	var clients []models.Client
	database.DB.Where("id IN ?", ids).Find(&clients)
	byID := make(map[string]models.Client, len(clients))
	for _, client := range clients {
		byID[client.ID] = client
	}
	for _, order := range orders {
		if order.ClientID == nil {
			continue
		}
		if client, ok := byID[*order.ClientID]; ok {
			byOrder[order.ID] = &ClientSummary{ID: client.ID, RaisonSociale: client.RaisonSociale}
		}
	}
	return byOrder
}

// GET /api/orders/:id with related-record expansion.
func GetOrderHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var order models.Order
		if err := database.DB.Preload("Lignes").Preload("Conditions").First(&order, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Order not found")
		}

		if role, ok := auth.RoleFromCtx(c); ok && role == models.RoleClient {
			clientID := auth.ClientIDFromCtx(c)
			if clientID == nil || order.ClientID == nil || *order.ClientID != *clientID {
				return fiber.NewError(fiber.StatusForbidden, "Access denied")
			}
		}

		res := OrderDetailResponse{Order: order, Lignes: make([]LigneResponse, 0, len(order.Lignes))}

		if order.ClientID != nil {
			var client models.Client
			if err := database.DB.First(&client, "id = ?", *order.ClientID).Error; err == nil {
				res.Client = &ClientSummary{ID: client.ID, RaisonSociale: client.RaisonSociale}
			}
		}

		for _, ligne := range order.Lignes {
			expanded := LigneResponse{OrderLine: ligne}
			if ligne.ProduitID != nil {
				var product models.Product
				if err := database.DB.First(&product, "id = ?", *ligne.ProduitID).Error; err == nil {
					expanded.Produit = &ProductSummary{ID: product.ID, Name: product.Name, Price: product.Price}
				}
			}
			res.Lignes = append(res.Lignes, expanded)
		}

		return c.JSON(res)
	}
}

// POST /api/orders
func CreateOrderHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var order models.Order
		if err := c.BodyParser(&order); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		order.Reference = strings.TrimSpace(order.Reference)
		if order.Reference == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Reference is required")
		}

		var existing models.Order
		if err := database.DB.Where("reference = ?", order.Reference).First(&existing).Error; err == nil {
			return fiber.NewError(fiber.StatusBadRequest, "Order already exists")
		}

		// On the API path an unresolvable client reference is a hard error,
		// unlike on import.
		if order.ClientID != nil && *order.ClientID != "" {
			if _, err := uuid.Parse(*order.ClientID); err != nil {
				var client models.Client
				if err := database.DB.Where("reference = ?", *order.ClientID).First(&client).Error; err != nil {
					return fiber.NewError(fiber.StatusBadRequest, "Client not found with reference: "+*order.ClientID)
				}
				order.ClientID = &client.ID
			}
		}

		deducted := false
		if order.Statut == models.StatutValide && len(order.Lignes) > 0 {
			if err := deductStock(order.Lignes, hintCreate); err != nil {
				return renderStockError(c, err)
			}
			deducted = true
		}

		if err := database.DB.Create(&order).Error; err != nil {
			if deducted {
				restoreStock(order.Lignes)
			}
			return fiber.NewError(fiber.StatusBadRequest, "Could not create order: "+err.Error())
		}

		return c.Status(fiber.StatusCreated).JSON(order)
	}
}

type UpdateOrderRequest struct {
	Reference      *string                 `json:"reference"`
	ClientID       *string                 `json:"clientId"`
	OpportuniteID  *string                 `json:"opportuniteId"`
	Type           *string                 `json:"type"`
	Statut         *string                 `json:"statut"`
	DateCreation   *time.Time              `json:"dateCreation"`
	DateValidation *time.Time              `json:"dateValidation"`
	Lignes         *[]models.OrderLine     `json:"lignes"`
	Totaux         *models.OrderTotals     `json:"totaux"`
	Conditions     *models.OrderConditions `json:"conditions"`
}

// PUT /api/orders/:id. The stock effect is evaluated from the status
// boundary only: entering VALIDE deducts, leaving VALIDE restores, anything
// else moves nothing.
func UpdateOrderHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var order models.Order
		if err := database.DB.Preload("Lignes").Preload("Conditions").First(&order, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Order not found")
		}

		var body UpdateOrderRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		wasValide := order.Statut == models.StatutValide
		newStatut := order.Statut
		if body.Statut != nil {
			newStatut = *body.Statut
		}
		willBeValide := newStatut == models.StatutValide

		if !wasValide && willBeValide {
			// Use the updated line set when provided, else the stored one.
			lignes := order.Lignes
			if body.Lignes != nil {
				lignes = *body.Lignes
			}
			if len(lignes) > 0 {
				if err := deductStock(lignes, hintUpdate); err != nil {
					return renderStockError(c, err)
				}
			}
		}
		if wasValide && !willBeValide {
			restoreStock(order.Lignes)
		}

		if body.Reference != nil && strings.TrimSpace(*body.Reference) != "" {
			order.Reference = strings.TrimSpace(*body.Reference)
		}
		if body.ClientID != nil && *body.ClientID != "" {
			clientID := *body.ClientID
			if _, err := uuid.Parse(clientID); err != nil {
				var client models.Client
				if err := database.DB.Where("reference = ?", clientID).First(&client).Error; err != nil {
					return fiber.NewError(fiber.StatusBadRequest, "Client not found with reference: "+clientID)
				}
				clientID = client.ID
			}
			order.ClientID = &clientID
		}
		if body.OpportuniteID != nil {
			order.OpportuniteID = body.OpportuniteID
		}
		if body.Type != nil {
			order.Type = *body.Type
		}
		if body.DateCreation != nil {
			order.DateCreation = *body.DateCreation
		}
		if body.DateValidation != nil {
			order.DateValidation = body.DateValidation
		}
		if body.Totaux != nil {
			order.Totaux = *body.Totaux
		}
		if body.Lignes != nil {
			if err := database.DB.Where("order_id = ?", order.ID).Delete(&models.OrderLine{}).Error; err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "Could not update order lines")
			}
			lignes := *body.Lignes
			for i := range lignes {
				lignes[i].ID = 0
				lignes[i].OrderID = order.ID
			}
			order.Lignes = lignes
		}
		if body.Conditions != nil {
			if err := database.DB.Where("order_id = ?", order.ID).Delete(&models.OrderConditions{}).Error; err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "Could not update order conditions")
			}
			conditions := *body.Conditions
			conditions.ID = 0
			conditions.OrderID = order.ID
			order.Conditions = &conditions
		}
		order.Statut = newStatut

		if err := database.DB.Save(&order).Error; err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Could not update order: "+err.Error())
		}

		return c.JSON(order)
	}
}

// DELETE /api/orders/:id
func DeleteOrderHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var order models.Order
		if err := database.DB.First(&order, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Order not found")
		}

		if err := database.DB.Select("Lignes", "Conditions").Delete(&order).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not delete order")
		}

		return c.JSON(fiber.Map{"message": "Order deleted successfully"})
	}
}
