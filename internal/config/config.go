package config

import (
	"log"
	"os"
)

type Config struct {
	HTTPPort         string
	DatabaseDSN      string
	JWTSecret        string
	CORSOrigins      string
	SchemaDir        string // Directory holding the <name>.xsd compatibility schemas
	CredentialSecret string // Key material for the legacy reversible password encoder
}

func Load() *Config {
	cfg := &Config{
		HTTPPort:         getEnv("HTTP_PORT", "8080"),
		DatabaseDSN:      getEnv("DATABASE_DSN", "host=localhost user=postgres password=postgres dbname=lightmanager port=5432 sslmode=disable"),
		JWTSecret:        getEnv("JWT_SECRET", ""),
		CORSOrigins:      getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
		SchemaDir:        getEnv("XSD_SCHEMA_DIR", "./schemas"),
		CredentialSecret: getEnv("LEGACY_CREDENTIAL_KEY", "CRM_SECRET_KEY_2024"),
	}

	if cfg.JWTSecret == "" {
		log.Fatal("[FATAL] JWT_SECRET is not set. It is mandatory in every environment.")
	}
	if len(cfg.JWTSecret) < 32 {
		log.Fatal("[FATAL] JWT_SECRET must be at least 32 characters long.")
	}
	if cfg.DatabaseDSN == "host=localhost user=postgres password=postgres dbname=lightmanager port=5432 sslmode=disable" {
		log.Println("[WARN] DATABASE_DSN uses the default value, set your own Postgres connection string for production.")
	}
	if cfg.CredentialSecret == "CRM_SECRET_KEY_2024" {
		log.Println("[WARN] LEGACY_CREDENTIAL_KEY uses the built-in compatibility key, set your own value for production.")
	}

	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
