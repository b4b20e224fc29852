package users

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"lightmanager-backend/internal/auth"
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

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		CredentialSecret: "CRM_SECRET_KEY_2024",
		SchemaDir:        t.TempDir(),
	}
}

func newUserApp(cfg *config.Config) *fiber.App {
	app := fiber.New()
	app.Get("/api/users", ListUsersHandler(cfg))
	app.Post("/api/users/import", ImportUsersHandler(cfg))
	app.Get("/api/users/export", ExportUsersHandler(cfg))
	app.Put("/api/users/:id", UpdateUserHandler(cfg))
	app.Delete("/api/users/:id", DeleteUserHandler())
	return app
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

func TestImportUsersEncodesPasswords(t *testing.T) {
	setupDB(t)
	cfg := testConfig(t)
	app := newUserApp(cfg)

	doc := `<users>
  <user><username>marie</username><password>pw123</password><role>admin</role></user>
  <user><username>noel</username><password>pw456</password></user>
</users>`

	res, err := app.Test(xmlUpload(t, "/api/users/import", doc))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 got %d", res.StatusCode)
	}

	var report importer.Report
	json.NewDecoder(res.Body).Decode(&report)
	if report.Summary.Success != 2 {
		t.Fatalf("unexpected summary %+v, results %+v", report.Summary, report.Results)
	}

	var marie, noel models.User
	if err := database.DB.First(&marie, "username = ?", "marie").Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	database.DB.First(&noel, "username = ?", "noel")

	if marie.Password == "pw123" {
		t.Fatal("password stored in plaintext")
	}
	encoder := auth.NewLegacyEncoder(cfg.CredentialSecret)
	if encoder.Decode(marie.Password) != "pw123" {
		t.Fatal("stored password does not decode back")
	}
	if marie.Role != models.RoleAdmin {
		t.Fatalf("unexpected role %q", marie.Role)
	}
	// Records without a role default to client.
	if noel.Role != models.RoleClient {
		t.Fatalf("unexpected default role %q", noel.Role)
	}
}

func TestImportUsersDuplicate(t *testing.T) {
	setupDB(t)
	cfg := testConfig(t)
	app := newUserApp(cfg)

	if err := database.DB.Create(&models.User{Username: "marie", Password: "x", Role: models.RoleUser}).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	res, _ := app.Test(xmlUpload(t, "/api/users/import", `<users><user><username>marie</username><password>pw</password></user></users>`))
	var report importer.Report
	json.NewDecoder(res.Body).Decode(&report)
	if report.Summary.Failed != 1 || report.Results[0].Reason != "User already exists" {
		t.Fatalf("unexpected report %+v", report)
	}
}

func TestListUsersDecodesLegacyPasswords(t *testing.T) {
	setupDB(t)
	cfg := testConfig(t)
	app := newUserApp(cfg)

	encoder := auth.NewLegacyEncoder(cfg.CredentialSecret)
	encoded, err := encoder.Encode("visible-pw")
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := database.DB.Create(&models.User{Username: "marie", Password: encoded, Role: models.RoleUser}).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	res, _ := app.Test(httptest.NewRequest(http.MethodGet, "/api/users", nil))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 got %d", res.StatusCode)
	}
	var listed []UserResponse
	if err := json.NewDecoder(res.Body).Decode(&listed); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(listed) != 1 || listed[0].Password != "visible-pw" {
		t.Fatalf("expected decoded password, got %+v", listed)
	}
}

func TestExportUsersOmitsPasswords(t *testing.T) {
	setupDB(t)
	cfg := testConfig(t)
	app := newUserApp(cfg)

	encoder := auth.NewLegacyEncoder(cfg.CredentialSecret)
	encoded, _ := encoder.Encode("hidden-pw")
	if err := database.DB.Create(&models.User{Username: "marie", Password: encoded, Role: models.RoleUser}).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	res, _ := app.Test(httptest.NewRequest(http.MethodGet, "/api/users/export", nil))
	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 got %d", res.StatusCode)
	}
	body, _ := io.ReadAll(res.Body)
	if root, _ := xmlutil.RootName(body); root != "users" {
		t.Fatalf("unexpected root %q", root)
	}
	text := string(body)
	if strings.Contains(text, "hidden-pw") || strings.Contains(text, "<password>") {
		t.Fatalf("export leaks passwords: %s", text)
	}
	if !strings.Contains(text, "<username>marie</username>") {
		t.Fatalf("export missing user: %s", text)
	}
}

func TestUpdateUserClearsClientLink(t *testing.T) {
	setupDB(t)
	cfg := testConfig(t)
	app := newUserApp(cfg)

	clientID := "0f8fad5b-d9cb-469f-a165-70867728950e"
	user := models.User{Username: "marie", Password: "x", Role: models.RoleClient, ClientID: &clientID}
	if err := database.DB.Create(&user).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	req := httptest.NewRequest(http.MethodPut, "/api/users/"+user.ID, strings.NewReader(`{"clientId":"","role":"user"}`))
	req.Header.Set("Content-Type", "application/json")
	res, _ := app.Test(req)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 got %d", res.StatusCode)
	}

	var reloaded models.User
	database.DB.First(&reloaded, "id = ?", user.ID)
	if reloaded.ClientID != nil {
		t.Fatal("empty clientId must clear the link")
	}
	if reloaded.Role != models.RoleUser {
		t.Fatalf("unexpected role %q", reloaded.Role)
	}
}
