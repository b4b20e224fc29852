package clients

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"lightmanager-backend/internal/config"
	"lightmanager-backend/internal/database"
	"lightmanager-backend/internal/importer"
	"lightmanager-backend/internal/models"
	"lightmanager-backend/internal/xmlutil"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + t.Name() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	database.DB = db
	return db
}

func xmlUpload(t *testing.T, target, content string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile("file", "import.xml")
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	if _, err := fw.Write([]byte(content)); err != nil {
		t.Fatalf("write part: %v", err)
	}
	w.Close()

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func newClientApp(cfg *config.Config) *fiber.App {
	app := fiber.New()
	app.Get("/api/clients", ListClientsHandler())
	app.Post("/api/clients", CreateClientHandler())
	app.Post("/api/clients/import", ImportClientsHandler())
	app.Get("/api/clients/export", ExportClientsHandler(cfg))
	app.Put("/api/clients/:id", UpdateClientHandler())
	app.Delete("/api/clients/:id", DeleteClientHandler())
	return app
}

const nestedClientDoc = `<?xml version="1.0"?>
<clients>
  <client>
    <reference>CLI-001</reference>
    <type>entreprise</type>
    <raisonSociale>Acme SARL</raisonSociale>
    <siret>12345678900011</siret>
    <effectif>42</effectif>
    <adresseFacturation>
      <adresse>1 rue de la Paix</adresse>
      <codePostal>75002</codePostal>
      <ville>Paris</ville>
      <pays>France</pays>
    </adresseFacturation>
    <contacts>
      <contact>
        <nom>Martin</nom>
        <prenom>Claire</prenom>
        <fonction>DG</fonction>
        <email>claire@acme.fr</email>
        <telephone>0102030405</telephone>
        <statut>actif</statut>
      </contact>
    </contacts>
    <informationsCommerciales>
      <source>salon</source>
      <dateAcquisition>2023-06-01</dateAcquisition>
      <chiffreAffaireCumule>15000.50</chiffreAffaireCumule>
    </informationsCommerciales>
    <contrats>
      <contrat>
        <reference>CTR-001</reference>
        <type>maintenance</type>
        <dateDebut>2024-01-01</dateDebut>
        <montant>1200</montant>
      </contrat>
    </contrats>
  </client>
</clients>`

func TestImportClientsNestedMapping(t *testing.T) {
	setupDB(t)
	app := newClientApp(&config.Config{SchemaDir: t.TempDir()})

	res, err := app.Test(xmlUpload(t, "/api/clients/import", nestedClientDoc))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 got %d", res.StatusCode)
	}

	var report importer.Report
	if err := json.NewDecoder(res.Body).Decode(&report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if report.Summary.Success != 1 || report.Summary.Failed != 0 {
		t.Fatalf("unexpected summary %+v, results %+v", report.Summary, report.Results)
	}

	var stored models.Client
	if err := database.DB.Preload("Contacts").Preload("Contrats").First(&stored, "reference = ?", "CLI-001").Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if stored.RaisonSociale != "Acme SARL" {
		t.Fatalf("unexpected raisonSociale %q", stored.RaisonSociale)
	}
	if stored.Effectif == nil || *stored.Effectif != 42 {
		t.Fatalf("effectif not mapped: %v", stored.Effectif)
	}
	if stored.AdresseFacturation.Ville != "Paris" {
		t.Fatalf("address not mapped: %+v", stored.AdresseFacturation)
	}
	if len(stored.Contacts) != 1 || stored.Contacts[0].Nom != "Martin" {
		t.Fatalf("contacts not mapped: %+v", stored.Contacts)
	}
	if stored.InformationsCommerciales.ChiffreAffaireCumule != 15000.50 {
		t.Fatalf("commercial info not mapped: %+v", stored.InformationsCommerciales)
	}
	if stored.InformationsCommerciales.DateAcquisition == nil {
		t.Fatal("dateAcquisition not mapped")
	}
	if len(stored.Contrats) != 1 || stored.Contrats[0].Montant != 1200 {
		t.Fatalf("contracts not mapped: %+v", stored.Contrats)
	}
}

func TestImportClientsMissingBlocks(t *testing.T) {
	setupDB(t)
	app := newClientApp(&config.Config{SchemaDir: t.TempDir()})

	doc := `<clients>
  <client>
    <reference>CLI-002</reference>
    <raisonSociale>Globex SA</raisonSociale>
    <adresseFacturation><adresse>2 rue</adresse><codePostal>69001</codePostal><ville>Lyon</ville><pays>France</pays></adresseFacturation>
    <informationsCommerciales><source>web</source></informationsCommerciales>
  </client>
</clients>`

	res, _ := app.Test(xmlUpload(t, "/api/clients/import", doc))
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 got %d", res.StatusCode)
	}
	var report importer.Report
	json.NewDecoder(res.Body).Decode(&report)
	if report.Summary.Failed != 1 {
		t.Fatalf("unexpected summary %+v", report.Summary)
	}
	if report.Results[0].Reason != "Missing contacts block" {
		t.Fatalf("unexpected reason %q", report.Results[0].Reason)
	}
}

func TestImportClientsSkipsInvalidCommercialResponsable(t *testing.T) {
	setupDB(t)
	app := newClientApp(&config.Config{SchemaDir: t.TempDir()})

	id := uuid.NewString()
	doc := `<clients>
  <client>
    <reference>CLI-003</reference>
    <raisonSociale>Initech</raisonSociale>
    <adresseFacturation><adresse>3 rue</adresse><codePostal>33000</codePostal><ville>Bordeaux</ville><pays>France</pays></adresseFacturation>
    <contacts><contact><nom>Durand</nom><prenom>Paul</prenom></contact></contacts>
    <informationsCommerciales><source>web</source><commercialResponsable>Jean Dupont</commercialResponsable></informationsCommerciales>
  </client>
  <client>
    <reference>CLI-004</reference>
    <raisonSociale>Umbrella</raisonSociale>
    <adresseFacturation><adresse>4 rue</adresse><codePostal>59000</codePostal><ville>Lille</ville><pays>France</pays></adresseFacturation>
    <contacts><contact><nom>Petit</nom><prenom>Anne</prenom></contact></contacts>
    <informationsCommerciales><source>web</source><commercialResponsable>` + id + `</commercialResponsable></informationsCommerciales>
  </client>
</clients>`

	res, _ := app.Test(xmlUpload(t, "/api/clients/import", doc))
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 got %d", res.StatusCode)
	}
	var report importer.Report
	json.NewDecoder(res.Body).Decode(&report)
	if report.Summary.Success != 2 {
		t.Fatalf("both records must import, got %+v, results %+v", report.Summary, report.Results)
	}

	var plain, withID models.Client
	database.DB.First(&plain, "reference = ?", "CLI-003")
	database.DB.First(&withID, "reference = ?", "CLI-004")
	if plain.InformationsCommerciales.CommercialResponsable != nil {
		t.Fatal("free-text commercialResponsable must be dropped")
	}
	if withID.InformationsCommerciales.CommercialResponsable == nil || *withID.InformationsCommerciales.CommercialResponsable != id {
		t.Fatal("identifier commercialResponsable must be kept")
	}
}

func TestDeleteClientRemovesLinkedUser(t *testing.T) {
	setupDB(t)
	app := newClientApp(&config.Config{SchemaDir: t.TempDir()})

	client := models.Client{Reference: "CLI-010", RaisonSociale: "Acme SARL"}
	if err := database.DB.Create(&client).Error; err != nil {
		t.Fatalf("seed client: %v", err)
	}
	user := models.User{Username: "acme", Password: "x", Role: models.RoleClient, ClientID: &client.ID}
	if err := database.DB.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}

	res, _ := app.Test(httptest.NewRequest(http.MethodDelete, "/api/clients/"+client.ID, nil))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 got %d", res.StatusCode)
	}
	body, _ := io.ReadAll(res.Body)
	if !strings.Contains(string(body), "Client and associated user account deleted successfully") {
		t.Fatalf("unexpected body %q", body)
	}

	var users, clients int64
	database.DB.Model(&models.User{}).Count(&users)
	database.DB.Model(&models.Client{}).Count(&clients)
	if users != 0 || clients != 0 {
		t.Fatalf("expected empty tables, users=%d clients=%d", users, clients)
	}
}

func TestExportClients(t *testing.T) {
	setupDB(t)
	app := newClientApp(&config.Config{SchemaDir: t.TempDir()})

	// Round-trip through the importer so nested blocks are populated.
	res, _ := app.Test(xmlUpload(t, "/api/clients/import", nestedClientDoc))
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("import: expected 201 got %d", res.StatusCode)
	}

	res, _ = app.Test(httptest.NewRequest(http.MethodGet, "/api/clients/export", nil))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("export: expected 200 got %d", res.StatusCode)
	}
	body, _ := io.ReadAll(res.Body)
	if root, _ := xmlutil.RootName(body); root != "clients" {
		t.Fatalf("unexpected root %q", root)
	}
	text := string(body)
	for _, want := range []string{
		"<reference>CLI-001</reference>",
		"<raisonSociale>Acme SARL</raisonSociale>",
		"<ville>Paris</ville>",
		"<nom>Martin</nom>",
		"<reference>CTR-001</reference>",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("export missing %s in: %s", want, text)
		}
	}
}
