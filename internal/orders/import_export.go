package orders

import (
	"encoding/xml"
	"errors"
	"strconv"
	"strings"

	"lightmanager-backend/internal/config"
	"lightmanager-backend/internal/database"
	"lightmanager-backend/internal/importer"
	"lightmanager-backend/internal/logger"
	"lightmanager-backend/internal/models"
	"lightmanager-backend/internal/xmlutil"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// The order envelope keeps the historical French root elements.
type ordersDocument struct {
	XMLName   xml.Name      `xml:"commandes"`
	Commandes []commandeXML `xml:"commande"`
}

type commandeXML struct {
	Reference      string         `xml:"reference"`
	ClientID       string         `xml:"clientId,omitempty"`
	OpportuniteID  *string        `xml:"opportuniteId"`
	Type           string         `xml:"type"`
	Statut         string         `xml:"statut"`
	DateCreation   string         `xml:"dateCreation"`
	DateValidation *string        `xml:"dateValidation"`
	Lignes         *lignesXML     `xml:"lignes"`
	Totaux         *totauxXML     `xml:"totaux"`
	Conditions     *conditionsXML `xml:"conditions"`
}

type lignesXML struct {
	Ligne []ligneXML `xml:"ligne"`
}

type ligneXML struct {
	ProduitID      *string `xml:"produitId"`
	Quantite       string  `xml:"quantite"`
	PrixUnitaireHT string  `xml:"prixUnitaireHT"`
	Remise         *string `xml:"remise"`
	TotalHT        string  `xml:"totalHT"`
}

type totauxXML struct {
	TotalHT  string `xml:"totalHT"`
	TotalTVA string `xml:"totalTVA"`
	TotalTTC string `xml:"totalTTC"`
}

type conditionsXML struct {
	DelaiLivraison    string `xml:"delaiLivraison"`
	ModalitesPaiement string `xml:"modalitesPaiement"`
	ValiditeDevis     string `xml:"validiteDevis"`
}

// POST /api/orders/import. Imported orders are stored with whatever status
// the file carries and never move stock; only API-side status transitions do.
func ImportOrdersHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		data, err := importer.ReadUploadedXML(c)
		if err != nil {
			return err
		}

		root, err := xmlutil.RootName(data)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Error importing XML: "+err.Error())
		}
		if root != "commandes" {
			return fiber.NewError(fiber.StatusBadRequest, importer.WrongRootMessage)
		}

		var doc ordersDocument
		if err := xmlutil.Decode(data, &doc); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Error importing XML: "+err.Error())
		}

		report := importer.NewReport()
		for _, record := range doc.Commandes {
			importOrder(record, report)
		}

		return c.Status(fiber.StatusCreated).JSON(report)
	}
}

func importOrder(record commandeXML, report *importer.Report) {
	reference := strings.TrimSpace(record.Reference)
	if reference == "" {
		report.Fail("Unknown Order", "Missing order reference")
		return
	}

	var existing models.Order
	if err := database.DB.Where("reference = ?", reference).First(&existing).Error; err == nil {
		report.Fail(reference, "Order already exists")
		return
	}

	order, err := mapOrder(reference, record)
	if err != nil {
		report.Fail(reference, err.Error())
		return
	}

	// Cross-reference resolution is non-fatal here: an unresolved client
	// leaves the order unlinked but still imported.
	order.ClientID = resolveClientReference(record.ClientID)
	if record.OpportuniteID != nil {
		opportuniteID := strings.TrimSpace(*record.OpportuniteID)
		if _, err := uuid.Parse(opportuniteID); err == nil {
			order.OpportuniteID = &opportuniteID
		}
	}

	if err := database.DB.Create(order).Error; err != nil {
		reason := err.Error()
		if importer.IsUniqueViolation(err) {
			reason = "Order already exists"
		}
		report.Fail(reference, reason)
		return
	}

	report.Succeed(reference, "Order successfully added")
}

func mapOrder(reference string, record commandeXML) (*models.Order, error) {
	order := &models.Order{
		Reference: reference,
		Type:      record.Type,
		Statut:    record.Statut,
	}

	if strings.TrimSpace(record.DateCreation) == "" {
		return nil, errors.New("Missing dateCreation")
	}
	dateCreation, err := xmlutil.ParseDate(record.DateCreation)
	if err != nil {
		return nil, errors.New("Invalid dateCreation: " + record.DateCreation)
	}
	order.DateCreation = dateCreation

	if record.DateValidation != nil {
		dateValidation, err := xmlutil.ParseDate(*record.DateValidation)
		if err != nil {
			return nil, errors.New("Invalid dateValidation: " + *record.DateValidation)
		}
		order.DateValidation = &dateValidation
	}

	if record.Lignes != nil {
		for _, ligne := range record.Lignes.Ligne {
			mapped, err := mapLigne(ligne)
			if err != nil {
				return nil, err
			}
			order.Lignes = append(order.Lignes, mapped)
		}
	}

	if record.Totaux == nil {
		return nil, errors.New("Missing totaux block")
	}
	totalHT, err1 := strconv.ParseFloat(strings.TrimSpace(record.Totaux.TotalHT), 64)
	totalTVA, err2 := strconv.ParseFloat(strings.TrimSpace(record.Totaux.TotalTVA), 64)
	totalTTC, err3 := strconv.ParseFloat(strings.TrimSpace(record.Totaux.TotalTTC), 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return nil, errors.New("Invalid totaux values")
	}
	order.Totaux = models.OrderTotals{TotalHT: totalHT, TotalTVA: totalTVA, TotalTTC: totalTTC}

	if record.Conditions != nil {
		delai, err := strconv.Atoi(strings.TrimSpace(record.Conditions.DelaiLivraison))
		if err != nil {
			return nil, errors.New("Invalid delaiLivraison: " + record.Conditions.DelaiLivraison)
		}
		validite, err := strconv.Atoi(strings.TrimSpace(record.Conditions.ValiditeDevis))
		if err != nil {
			return nil, errors.New("Invalid validiteDevis: " + record.Conditions.ValiditeDevis)
		}
		order.Conditions = &models.OrderConditions{
			DelaiLivraison:    delai,
			ModalitesPaiement: record.Conditions.ModalitesPaiement,
			ValiditeDevis:     validite,
		}
	}

	return order, nil
}

func mapLigne(ligne ligneXML) (models.OrderLine, error) {
	mapped := models.OrderLine{}

	if ligne.ProduitID != nil {
		produitID := strings.TrimSpace(*ligne.ProduitID)
		if _, err := uuid.Parse(produitID); err != nil {
			return mapped, errors.New("Invalid produitId: " + produitID)
		}
		mapped.ProduitID = &produitID
	}

	quantite, err := strconv.Atoi(strings.TrimSpace(ligne.Quantite))
	if err != nil {
		return mapped, errors.New("Invalid quantite: " + ligne.Quantite)
	}
	mapped.Quantite = quantite

	prix, err := strconv.ParseFloat(strings.TrimSpace(ligne.PrixUnitaireHT), 64)
	if err != nil {
		return mapped, errors.New("Invalid prixUnitaireHT: " + ligne.PrixUnitaireHT)
	}
	mapped.PrixUnitaireHT = prix

	if ligne.Remise != nil {
		remise, err := strconv.ParseFloat(strings.TrimSpace(*ligne.Remise), 64)
		if err != nil {
			return mapped, errors.New("Invalid remise: " + *ligne.Remise)
		}
		mapped.Remise = remise
	}

	totalHT, err := strconv.ParseFloat(strings.TrimSpace(ligne.TotalHT), 64)
	if err != nil {
		return mapped, errors.New("Invalid totalHT: " + ligne.TotalHT)
	}
	mapped.TotalHT = totalHT

	return mapped, nil
}

// GET /api/orders/export
func ExportOrdersHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var orders []models.Order
		if err := database.DB.
			Preload("Lignes").
			Preload("Conditions").
			Order("date_creation asc").
			Find(&orders).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not load orders")
		}

		doc := ordersDocument{Commandes: make([]commandeXML, 0, len(orders))}
		for _, order := range orders {
			doc.Commandes = append(doc.Commandes, assembleOrder(order))
		}

		xmlText, err := xmlutil.Encode(doc)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not build XML")
		}

		validation := xmlutil.Validate(xmlText, "commandes", cfg.SchemaDir)
		if !validation.Valid {
			logger.L().Error("XML validation failed", zap.String("schema", "commandes"), zap.String("details", validation.Message))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"message": "XML validation failed",
				"errors":  validation.Errors,
				"details": validation.Message,
			})
		}

		c.Set(fiber.HeaderContentType, "application/xml")
		c.Set(fiber.HeaderContentDisposition, `attachment; filename="commandes.xml"`)
		return c.SendString(xmlText)
	}
}

func assembleOrder(order models.Order) commandeXML {
	record := commandeXML{
		Reference:     order.Reference,
		OpportuniteID: order.OpportuniteID,
		Type:          order.Type,
		Statut:        order.Statut,
		DateCreation:  xmlutil.FormatDate(order.DateCreation),
		Lignes:        &lignesXML{Ligne: []ligneXML{}},
	}

	if order.ClientID != nil {
		record.ClientID = *order.ClientID
	}
	if order.DateValidation != nil {
		dateValidation := xmlutil.FormatDate(*order.DateValidation)
		record.DateValidation = &dateValidation
	}

	for _, ligne := range order.Lignes {
		remise := strconv.FormatFloat(ligne.Remise, 'f', -1, 64)
		record.Lignes.Ligne = append(record.Lignes.Ligne, ligneXML{
			ProduitID:      ligne.ProduitID,
			Quantite:       strconv.Itoa(ligne.Quantite),
			PrixUnitaireHT: strconv.FormatFloat(ligne.PrixUnitaireHT, 'f', -1, 64),
			Remise:         &remise,
			TotalHT:        strconv.FormatFloat(ligne.TotalHT, 'f', -1, 64),
		})
	}

	record.Totaux = &totauxXML{
		TotalHT:  strconv.FormatFloat(order.Totaux.TotalHT, 'f', -1, 64),
		TotalTVA: strconv.FormatFloat(order.Totaux.TotalTVA, 'f', -1, 64),
		TotalTTC: strconv.FormatFloat(order.Totaux.TotalTTC, 'f', -1, 64),
	}

	if order.Conditions != nil {
		record.Conditions = &conditionsXML{
			DelaiLivraison:    strconv.Itoa(order.Conditions.DelaiLivraison),
			ModalitesPaiement: order.Conditions.ModalitesPaiement,
			ValiditeDevis:     strconv.Itoa(order.Conditions.ValiditeDevis),
		}
	}

	return record
}
