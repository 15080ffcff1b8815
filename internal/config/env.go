package config

import (
	"fmt"
	"os"
	"strconv"
)

// parseEnv overlays configuration from environment variables.
//
// Recognized variables:
//
//	DATABASE_DSN              full PostgreSQL DSN; wins over the DB_* group
//	DB_HOST / DB_PORT         store target, combined with POSTGRES_DB,
//	POSTGRES_USER / POSTGRES_PASSWORD into a DSN
//	GAIA_TAP_ENDPOINT         TAP server base URL
//	GAIA_USERNAME / GAIA_PASSWORD   archive credentials
//	GAIA_PARTITION_SIZE       rows per remote query
//	GAIA_EXTRA_SIZE           region size multiplier
//	GAIA_CATALOGUE_FILE       clusters.dat path
func parseEnv(config *Config) {
	if host, ok := os.LookupEnv("DB_HOST"); ok {
		port := getEnvDefault("DB_PORT", "5432")
		name := getEnvDefault("POSTGRES_DB", "gaia")
		user := getEnvDefault("POSTGRES_USER", "gaia")
		password := getEnvDefault("POSTGRES_PASSWORD", "gaia")
		config.DatabaseDSN = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
			user, password, host, port, name)
	}
	if dsn, ok := os.LookupEnv("DATABASE_DSN"); ok {
		config.DatabaseDSN = dsn
	}
	if endpoint, ok := os.LookupEnv("GAIA_TAP_ENDPOINT"); ok {
		config.TAPEndpoint = endpoint
	}
	if username, ok := os.LookupEnv("GAIA_USERNAME"); ok {
		config.Username = username
	}
	if password, ok := os.LookupEnv("GAIA_PASSWORD"); ok {
		config.Password = password
	}
	if file, ok := os.LookupEnv("GAIA_CATALOGUE_FILE"); ok {
		config.CatalogueFile = file
	}
	if raw, ok := os.LookupEnv("GAIA_PARTITION_SIZE"); ok {
		if v, err := strconv.Atoi(raw); err == nil {
			config.PartitionSize = v
		}
	}
	if raw, ok := os.LookupEnv("GAIA_EXTRA_SIZE"); ok {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			config.ExtraSize = v
		}
	}
}

func getEnvDefault(name, fallback string) string {
	if v, ok := os.LookupEnv(name); ok {
		return v
	}
	return fallback
}
