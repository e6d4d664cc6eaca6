package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds runtime configuration sourced from environment variables
type Config struct {
	ServerPort   string
	DBDriver     string
	DB           *DBConfig // nil unless DBDriver is postgres
	SQLitePath   string
	JWTSecret    string
	JWTExpHours  int64
	CORSOrigins  []string
	InitialAdmin *AdminBootstrap // nil when no bootstrap admin is configured
}

// AdminBootstrap describes the admin account created at startup
type AdminBootstrap struct {
	Name     string
	Email    string
	Password string
	City     string
}

// Load reads configuration from the environment
func Load() (*Config, error) {
	cfg := &Config{
		ServerPort:  fallback(os.Getenv("SERVER_PORT"), "8080"),
		DBDriver:    strings.ToLower(fallback(os.Getenv("DB_DRIVER"), DriverPostgres)),
		SQLitePath:  fallback(os.Getenv("SQLITE_PATH"), "foodconnect.db"),
		JWTSecret:   strings.TrimSpace(os.Getenv("JWT_SECRET_KEY")),
		CORSOrigins: parseCSV(fallback(os.Getenv("CORS_ALLOWED_ORIGINS"), "*")),
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY not set in environment")
	}

	jwtExpHours, err := strconv.ParseInt(fallback(os.Getenv("JWT_EXPIRATION_HOURS"), "24"), 10, 64)
	if err != nil || jwtExpHours <= 0 {
		log.Printf("Invalid JWT_EXPIRATION_HOURS, defaulting to 24: %v", err)
		jwtExpHours = 24
	}
	cfg.JWTExpHours = jwtExpHours

	if err := cfg.loadStore(); err != nil {
		return nil, err
	}

	if email := strings.TrimSpace(os.Getenv("INITIAL_ADMIN_EMAIL")); email != "" {
		password := os.Getenv("INITIAL_ADMIN_PASSWORD")
		if password == "" {
			return nil, fmt.Errorf("INITIAL_ADMIN_PASSWORD must be set together with INITIAL_ADMIN_EMAIL")
		}
		cfg.InitialAdmin = &AdminBootstrap{
			Name:     fallback(os.Getenv("INITIAL_ADMIN_NAME"), "Admin User"),
			Email:    email,
			Password: password,
			City:     fallback(os.Getenv("INITIAL_ADMIN_CITY"), "New York"),
		}
	}

	return cfg, nil
}

// LoadStore reads only the database settings, for tools that never issue tokens
func LoadStore() (*Config, error) {
	cfg := &Config{
		DBDriver:   strings.ToLower(fallback(os.Getenv("DB_DRIVER"), DriverPostgres)),
		SQLitePath: fallback(os.Getenv("SQLITE_PATH"), "foodconnect.db"),
	}
	if err := cfg.loadStore(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadStore() error {
	switch c.DBDriver {
	case DriverPostgres:
		dbCfg, err := LoadDBConfig()
		if err != nil {
			return err
		}
		c.DB = dbCfg
	case DriverSQLite:
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q (use %s or %s)", c.DBDriver, DriverPostgres, DriverSQLite)
	}
	return nil
}

// HTTPAddress returns the address the HTTP server binds to
func (c *Config) HTTPAddress() string {
	return ":" + c.ServerPort
}

func fallback(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return strings.TrimSpace(value)
}

func parseCSV(input string) []string {
	var out []string
	for _, part := range strings.Split(input, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
