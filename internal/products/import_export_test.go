package products

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

func decodeReport(t *testing.T, res *http.Response) importer.Report {
	t.Helper()
	var report importer.Report
	if err := json.NewDecoder(res.Body).Decode(&report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	return report
}

func newProductApp(cfg *config.Config) *fiber.App {
	app := fiber.New()
	app.Post("/api/products/import", ImportProductsHandler())
	app.Get("/api/products/export", ExportProductsHandler(cfg))
	return app
}

func TestImportProductsMixedBatch(t *testing.T) {
	setupDB(t)
	app := newProductApp(&config.Config{SchemaDir: t.TempDir()})

	// Seed a duplicate target.
	if err := database.DB.Create(&models.Product{Name: "Clavier", Price: 25, Stock: 10}).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	doc := `<?xml version="1.0"?>
<products>
  <product><name>Souris</name><category>peripherique</category><price>12.5</price><stock>40</stock></product>
  <product><name>Clavier</name><price>25</price><stock>10</stock></product>
  <product><name>Ecran</name><price>abc</price><stock>5</stock></product>
  <product><name></name><price>1</price><stock>1</stock></product>
</products>`

	res, err := app.Test(xmlUpload(t, "/api/products/import", doc))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 got %d", res.StatusCode)
	}

	report := decodeReport(t, res)
	if report.Summary.Total != 4 || report.Summary.Success != 1 || report.Summary.Failed != 3 {
		t.Fatalf("unexpected summary %+v", report.Summary)
	}

	if report.Results[0].Message != "Product successfully added" {
		t.Fatalf("unexpected success message %q", report.Results[0].Message)
	}
	if report.Results[1].Reason != "Product already exists" {
		t.Fatalf("unexpected duplicate reason %q", report.Results[1].Reason)
	}
	if !strings.Contains(report.Results[2].Reason, "Invalid price") {
		t.Fatalf("unexpected price reason %q", report.Results[2].Reason)
	}
	if report.Results[3].Item != "Unknown Product" {
		t.Fatalf("unexpected item %q", report.Results[3].Item)
	}

	// The valid record landed even though its neighbors failed.
	var count int64
	database.DB.Model(&models.Product{}).Count(&count)
	if count != 2 {
		t.Fatalf("expected 2 products got %d", count)
	}
}

func TestImportProductsWrongRoot(t *testing.T) {
	setupDB(t)
	app := newProductApp(&config.Config{SchemaDir: t.TempDir()})

	res, err := app.Test(xmlUpload(t, "/api/products/import", `<clients><client/></clients>`))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", res.StatusCode)
	}
	body, _ := io.ReadAll(res.Body)
	if !strings.Contains(string(body), importer.WrongRootMessage) {
		t.Fatalf("unexpected body %q", body)
	}

	var count int64
	database.DB.Model(&models.Product{}).Count(&count)
	if count != 0 {
		t.Fatal("wrong-root import must not touch the database")
	}
}

func TestImportProductsRejectsNonXMLFile(t *testing.T) {
	setupDB(t)
	app := newProductApp(&config.Config{SchemaDir: t.TempDir()})

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, _ := w.CreateFormFile("file", "import.csv")
	fw.Write([]byte("name,price\n"))
	w.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/products/import", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	res, _ := app.Test(req)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", res.StatusCode)
	}
}

func TestExportProductsRoundTrip(t *testing.T) {
	setupDB(t)
	app := newProductApp(&config.Config{SchemaDir: t.TempDir()})

	seed := []models.Product{
		{Name: "Souris", Category: "peripherique", Price: 12.5, Stock: 40},
		{Name: "Ecran", Category: "affichage", Price: 199.99, Stock: 7},
	}
	for i := range seed {
		if err := database.DB.Create(&seed[i]).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	res, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/products/export", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 got %d", res.StatusCode)
	}
	if ct := res.Header.Get("Content-Type"); !strings.Contains(ct, "xml") {
		t.Fatalf("unexpected content type %q", ct)
	}

	body, _ := io.ReadAll(res.Body)
	root, err := xmlutil.RootName(body)
	if err != nil || root != "products" {
		t.Fatalf("unexpected root %q (%v)", root, err)
	}
	if !strings.Contains(string(body), "<name>Souris</name>") {
		t.Fatalf("exported document missing product: %s", body)
	}
	if !strings.Contains(string(body), "<price>199.99</price>") {
		t.Fatalf("exported document missing price: %s", body)
	}
}
