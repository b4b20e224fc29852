package clients

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

type clientsDocument struct {
	XMLName xml.Name    `xml:"clients"`
	Clients []clientXML `xml:"client"`
}

type clientXML struct {
	Reference                string           `xml:"reference"`
	Type                     string           `xml:"type"`
	RaisonSociale            string           `xml:"raisonSociale"`
	Siret                    *string          `xml:"siret"`
	FormeJuridique           *string          `xml:"formeJuridique"`
	Effectif                 *string          `xml:"effectif"`
	SecteurActivite          *string          `xml:"secteurActivite"`
	AdresseFacturation       *adresseXML      `xml:"adresseFacturation"`
	Contacts                 *contactsXML     `xml:"contacts"`
	InformationsCommerciales *commercialesXML `xml:"informationsCommerciales"`
	Contrats                 *contratsXML     `xml:"contrats"`
}

type adresseXML struct {
	Adresse    string `xml:"adresse"`
	CodePostal string `xml:"codePostal"`
	Ville      string `xml:"ville"`
	Pays       string `xml:"pays"`
}

type contactsXML struct {
	Contact []contactXML `xml:"contact"`
}

type contactXML struct {
	Nom       string `xml:"nom"`
	Prenom    string `xml:"prenom"`
	Fonction  string `xml:"fonction"`
	Email     string `xml:"email"`
	Telephone string `xml:"telephone"`
	Statut    string `xml:"statut"`
}

type commercialesXML struct {
	Source                string  `xml:"source"`
	DateAcquisition       *string `xml:"dateAcquisition"`
	CommercialResponsable *string `xml:"commercialResponsable"`
	ChiffreAffaireCumule  *string `xml:"chiffreAffaireCumule"`
	DernierAchat          *string `xml:"dernierAchat"`
}

type contratsXML struct {
	Contrat []contratXML `xml:"contrat"`
}

type contratXML struct {
	Reference string  `xml:"reference"`
	Type      string  `xml:"type"`
	DateDebut *string `xml:"dateDebut"`
	DateFin   *string `xml:"dateFin"`
	Montant   *string `xml:"montant"`
}

// POST /api/clients/import
func ImportClientsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		data, err := importer.ReadUploadedXML(c)
		if err != nil {
			return err
		}

		root, err := xmlutil.RootName(data)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Error importing XML: "+err.Error())
		}
		if root != "clients" {
			return fiber.NewError(fiber.StatusBadRequest, importer.WrongRootMessage)
		}

		var doc clientsDocument
		if err := xmlutil.Decode(data, &doc); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Error importing XML: "+err.Error())
		}

		report := importer.NewReport()
		for _, record := range doc.Clients {
			importClient(record, report)
		}

		return c.Status(fiber.StatusCreated).JSON(report)
	}
}

func importClient(record clientXML, report *importer.Report) {
	reference := strings.TrimSpace(record.Reference)
	if reference == "" {
		report.Fail("Unknown Client", "Missing client reference")
		return
	}

	var existing models.Client
	if err := database.DB.Where("reference = ?", reference).First(&existing).Error; err == nil {
		report.Fail(reference, "Client already exists")
		return
	}

	client, err := mapClient(reference, record)
	if err != nil {
		report.Fail(reference, err.Error())
		return
	}

	if err := database.DB.Create(client).Error; err != nil {
		reason := err.Error()
		if importer.IsUniqueViolation(err) {
			reason = "Client already exists"
		}
		report.Fail(reference, reason)
		return
	}

	report.Succeed(reference, "Client successfully added")
}

func mapClient(reference string, record clientXML) (*models.Client, error) {
	if record.AdresseFacturation == nil {
		return nil, errors.New("Missing adresseFacturation block")
	}
	if record.Contacts == nil || len(record.Contacts.Contact) == 0 {
		return nil, errors.New("Missing contacts block")
	}
	if record.InformationsCommerciales == nil {
		return nil, errors.New("Missing informationsCommerciales block")
	}

	client := &models.Client{
		Reference:       reference,
		Type:            record.Type,
		RaisonSociale:   record.RaisonSociale,
		Siret:           record.Siret,
		FormeJuridique:  record.FormeJuridique,
		SecteurActivite: record.SecteurActivite,
		AdresseFacturation: models.BillingAddress{
			Adresse:    record.AdresseFacturation.Adresse,
			CodePostal: record.AdresseFacturation.CodePostal,
			Ville:      record.AdresseFacturation.Ville,
			Pays:       record.AdresseFacturation.Pays,
		},
	}

	if record.Effectif != nil {
		effectif, err := strconv.Atoi(strings.TrimSpace(*record.Effectif))
		if err != nil {
			return nil, errors.New("Invalid effectif: " + *record.Effectif)
		}
		client.Effectif = &effectif
	}

	for _, contact := range record.Contacts.Contact {
		client.Contacts = append(client.Contacts, models.ClientContact{
			Nom:       contact.Nom,
			Prenom:    contact.Prenom,
			Fonction:  contact.Fonction,
			Email:     contact.Email,
			Telephone: contact.Telephone,
			Statut:    contact.Statut,
		})
	}

	info := record.InformationsCommerciales
	client.InformationsCommerciales.Source = info.Source
	if info.DateAcquisition != nil {
		date, err := xmlutil.ParseDate(*info.DateAcquisition)
		if err != nil {
			return nil, errors.New("Invalid dateAcquisition: " + *info.DateAcquisition)
		}
		client.InformationsCommerciales.DateAcquisition = &date
	}
	if info.ChiffreAffaireCumule != nil {
		amount, err := strconv.ParseFloat(strings.TrimSpace(*info.ChiffreAffaireCumule), 64)
		if err != nil {
			return nil, errors.New("Invalid chiffreAffaireCumule: " + *info.ChiffreAffaireCumule)
		}
		client.InformationsCommerciales.ChiffreAffaireCumule = amount
	}
	if info.DernierAchat != nil {
		date, err := xmlutil.ParseDate(*info.DernierAchat)
		if err != nil {
			return nil, errors.New("Invalid dernierAchat: " + *info.DernierAchat)
		}
		client.InformationsCommerciales.DernierAchat = &date
	}
	if info.CommercialResponsable != nil {
		responsable := strings.TrimSpace(*info.CommercialResponsable)
		if _, err := uuid.Parse(responsable); err == nil {
			client.InformationsCommerciales.CommercialResponsable = &responsable
		} else if responsable != "" {
			logger.L().Warn("skipping invalid commercialResponsable identifier", zap.String("value", responsable))
		}
	}

	if record.Contrats != nil {
		for _, contrat := range record.Contrats.Contrat {
			mapped := models.ClientContract{
				Reference: contrat.Reference,
				Type:      contrat.Type,
			}
			if contrat.DateDebut != nil {
				date, err := xmlutil.ParseDate(*contrat.DateDebut)
				if err != nil {
					return nil, errors.New("Invalid contract dateDebut: " + *contrat.DateDebut)
				}
				mapped.DateDebut = &date
			}
			if contrat.DateFin != nil {
				date, err := xmlutil.ParseDate(*contrat.DateFin)
				if err != nil {
					return nil, errors.New("Invalid contract dateFin: " + *contrat.DateFin)
				}
				mapped.DateFin = &date
			}
			if contrat.Montant != nil {
				amount, err := strconv.ParseFloat(strings.TrimSpace(*contrat.Montant), 64)
				if err != nil {
					return nil, errors.New("Invalid contract montant: " + *contrat.Montant)
				}
				mapped.Montant = amount
			}
			client.Contrats = append(client.Contrats, mapped)
		}
	}

	return client, nil
}

// GET /api/clients/export
func ExportClientsHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var clients []models.Client
		if err := database.DB.
			Preload("Contacts").
			Preload("Contrats").
			Order("reference asc").
			Find(&clients).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not load clients")
		}

		doc := clientsDocument{Clients: make([]clientXML, 0, len(clients))}
		for _, client := range clients {
			doc.Clients = append(doc.Clients, assembleClient(client))
		}

		xmlText, err := xmlutil.Encode(doc)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Could not build XML")
		}

		validation := xmlutil.Validate(xmlText, "clients", cfg.SchemaDir)
		if !validation.Valid {
			logger.L().Error("XML validation failed", zap.String("schema", "clients"), zap.String("details", validation.Message))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"message": "XML validation failed",
				"errors":  validation.Errors,
				"details": validation.Message,
			})
		}

		c.Set(fiber.HeaderContentType, "application/xml")
		c.Set(fiber.HeaderContentDisposition, `attachment; filename="clients.xml"`)
		return c.SendString(xmlText)
	}
}

func assembleClient(client models.Client) clientXML {
	record := clientXML{
		Reference:       client.Reference,
		Type:            client.Type,
		RaisonSociale:   client.RaisonSociale,
		Siret:           client.Siret,
		FormeJuridique:  client.FormeJuridique,
		SecteurActivite: client.SecteurActivite,
		AdresseFacturation: &adresseXML{
			Adresse:    client.AdresseFacturation.Adresse,
			CodePostal: client.AdresseFacturation.CodePostal,
			Ville:      client.AdresseFacturation.Ville,
			Pays:       client.AdresseFacturation.Pays,
		},
		Contacts: &contactsXML{Contact: []contactXML{}},
		Contrats: &contratsXML{Contrat: []contratXML{}},
	}

	if client.Effectif != nil {
		effectif := strconv.Itoa(*client.Effectif)
		record.Effectif = &effectif
	}

	for _, contact := range client.Contacts {
		record.Contacts.Contact = append(record.Contacts.Contact, contactXML{
			Nom:       contact.Nom,
			Prenom:    contact.Prenom,
			Fonction:  contact.Fonction,
			Email:     contact.Email,
			Telephone: contact.Telephone,
			Statut:    contact.Statut,
		})
	}

	info := client.InformationsCommerciales
	commerciales := &commercialesXML{
		Source:                info.Source,
		CommercialResponsable: info.CommercialResponsable,
	}
	if info.DateAcquisition != nil {
		date := xmlutil.FormatDate(*info.DateAcquisition)
		commerciales.DateAcquisition = &date
	}
	if info.DernierAchat != nil {
		date := xmlutil.FormatDate(*info.DernierAchat)
		commerciales.DernierAchat = &date
	}
	amount := strconv.FormatFloat(info.ChiffreAffaireCumule, 'f', -1, 64)
	commerciales.ChiffreAffaireCumule = &amount
	record.InformationsCommerciales = commerciales

	for _, contrat := range client.Contrats {
		mapped := contratXML{
			Reference: contrat.Reference,
			Type:      contrat.Type,
		}
		if contrat.DateDebut != nil {
			date := xmlutil.FormatDate(*contrat.DateDebut)
			mapped.DateDebut = &date
		}
		if contrat.DateFin != nil {
			date := xmlutil.FormatDate(*contrat.DateFin)
			mapped.DateFin = &date
		}
		montant := strconv.FormatFloat(contrat.Montant, 'f', -1, 64)
		mapped.Montant = &montant
		record.Contrats.Contrat = append(record.Contrats.Contrat, mapped)
	}

	return record
}
