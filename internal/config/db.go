package config

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"foodconnect/internal/repository"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DBConfig holds database connection parameters
type DBConfig struct {
	DSN string
}

// LoadDBConfig loads database configuration from environment variables
func LoadDBConfig() (*DBConfig, error) {
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		return &DBConfig{DSN: dsn}, nil
	}

	dbHost := os.Getenv("DB_HOST")
	dbPort := os.Getenv("DB_PORT")
	dbUser := os.Getenv("DB_USER")
	dbPassword := os.Getenv("DB_PASSWORD")
	dbName := os.Getenv("DB_NAME")

	if dbHost == "" || dbPort == "" || dbUser == "" || dbName == "" {
		return nil, fmt.Errorf("database environment variables not set (DATABASE_URL or DB_HOST, DB_PORT, DB_USER, DB_PASSWORD, DB_NAME)")
	}

	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		dbHost, dbPort, dbUser, dbPassword, dbName)

	return &DBConfig{DSN: dsn}, nil
}

// ConnectDB establishes a connection to the PostgreSQL database
func ConnectDB(ctx context.Context, cfg *DBConfig) (*pgxpool.Pool, error) {
	var pool *pgxpool.Pool
	var err error

	maxRetries := 5
	retryInterval := 5 * time.Second

	for i := 0; i < maxRetries; i++ {
		pool, err = pgxpool.New(ctx, cfg.DSN)
		if err == nil {
			err = pool.Ping(ctx)
			if err == nil {
				log.Println("Successfully connected to PostgreSQL!")
				return pool, nil
			}
			pool.Close()
		}
		log.Printf("Failed to connect to database (attempt %d/%d): %v. Retrying in %v...", i+1, maxRetries, err, retryInterval)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryInterval):
		}
	}
	return nil, fmt.Errorf("unable to connect to database after %d attempts: %w", maxRetries, err)
}

// PostgresSchema creates the tables if they don't exist.
// An existing users table is kept as is, even without the status checks;
// BackfillStatuses repairs rows written before they were enforced.
// The food_posts check keeps claimed_by_ngo_id null exactly while a post is Available.
var PostgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		role TEXT NOT NULL CHECK (role IN ('admin', 'restaurant', 'ngo')),
		status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'approved', 'rejected')),
		city TEXT NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP,
		CHECK (role <> 'admin' OR status = 'approved')
	)`,
	`CREATE TABLE IF NOT EXISTS credentials (
		subject TEXT PRIMARY KEY,
		email TEXT UNIQUE NOT NULL,
		password_hash TEXT NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS food_posts (
		id TEXT PRIMARY KEY,
		restaurant_id TEXT NOT NULL REFERENCES users(id),
		item_name TEXT NOT NULL,
		quantity TEXT NOT NULL,
		expiry_time TIMESTAMP WITH TIME ZONE NOT NULL,
		pickup_time TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'Available' CHECK (status IN ('Available', 'Claimed', 'Picked up')),
		claimed_by_ngo_id TEXT REFERENCES users(id),
		city TEXT NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP,
		CHECK ((status = 'Available') = (claimed_by_ngo_id IS NULL))
	)`,
	`CREATE INDEX IF NOT EXISTS idx_users_role_status ON users(role, status)`,
	`CREATE INDEX IF NOT EXISTS idx_food_posts_city_status ON food_posts(city, status)`,
	`CREATE INDEX IF NOT EXISTS idx_food_posts_restaurant_id ON food_posts(restaurant_id)`,
	`CREATE INDEX IF NOT EXISTS idx_food_posts_claimed_by_ngo_id ON food_posts(claimed_by_ngo_id)`,
}

// AutoMigrate applies PostgresSchema
func AutoMigrate(ctx context.Context, db repository.DB) error {
	for _, stmt := range PostgresSchema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("unable to apply migrations: %w", err)
		}
	}

	log.Println("AutoMigrate applied successfully")
	return nil
}
