// Package config handles loading of the store connection settings from the
// environment and of the migration options and mapping files.
package config

import (
	"os"

	"github.com/pkg/errors"
)

// Store drivers.
const (
	DriverSQLServer = "sqlserver"
	DriverPostgres  = "postgres"
	DriverSQLite    = "sqlite3"
	DriverMongo     = "mongodb"
)

// Config holds all configuration for the application,
// typically loaded from environment variables.
type Config struct {
	Driver          string
	SQLConnString   string
	MongoConnString string
	MongoDatabase   string
	AWSRegion       string
}

// IsSQL reports whether the configured driver goes through database/sql.
func (c *Config) IsSQL() bool {
	return c.Driver != DriverMongo
}

// LoadConfig loads application settings from environment variables
// (which should be populated by the .env file in main.go).
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Driver:          getEnv("STORE_DRIVER", DriverSQLServer),
		SQLConnString:   os.Getenv("SQL_CONNECTION_STRING"),
		MongoConnString: os.Getenv("MONGO_CONNECTION_STRING"),
		MongoDatabase:   getEnv("MONGO_DATABASE", "mydb"),
		AWSRegion:       getEnv("AWS_REGION", "us-west-1"),
	}

	switch cfg.Driver {
	case DriverSQLServer, DriverPostgres, DriverSQLite:
		if cfg.SQLConnString == "" {
			return nil, errors.New("SQL_CONNECTION_STRING environment variable not set")
		}
	case DriverMongo:
		if cfg.MongoConnString == "" {
			return nil, errors.New("MONGO_CONNECTION_STRING environment variable not set")
		}
	default:
		return nil, errors.Errorf("unsupported STORE_DRIVER %q", cfg.Driver)
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
