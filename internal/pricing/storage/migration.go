package storage

import (
	"database/sql"
	"fmt"
	"log"
)

type MigrationsSchema struct{}

func (m *MigrationsSchema) UpMigration(db *sql.DB) error {
	query :=
		`
		CREATE SCHEMA IF NOT EXISTS migrations;
		CREATE TABLE IF NOT EXISTS migrations.migrations (
		name VARCHAR(255) PRIMARY KEY,
		time TIMESTAMP NOT NULL
		);
		`
	if _, err := db.Exec(query); err != nil {
		return fmt.Errorf("failed to create migrations registry: %w", err)
	}
	return nil
}

type PricesSchema struct{}

func (m *PricesSchema) UpMigration(db *sql.DB) error {
	if _, err := db.Exec(`CREATE SCHEMA IF NOT EXISTS prices;`); err != nil {
		return fmt.Errorf("failed to create prices schema: %w", err)
	}
	return nil
}

type SupermarketsTable struct{}

func (m *SupermarketsTable) UpMigration(db *sql.DB) error {
	var migrationExists bool
	err := db.QueryRow("SELECT EXISTS (SELECT 1 FROM migrations.migrations WHERE name = 'prices.supermarkets')").Scan(&migrationExists)
	if err != nil {
		return fmt.Errorf("failed to check migration status: %w", err)
	}
	if migrationExists {
		log.Println("Migration 'prices.supermarkets' already completed. Skipping.")
		return nil
	}
	query :=
		`
		CREATE TABLE IF NOT EXISTS prices.supermarkets (
		supermarket_id BIGSERIAL PRIMARY KEY,
		provider VARCHAR(255) NOT NULL,
		branch_code VARCHAR(255) NOT NULL,
		name VARCHAR(255),
		city VARCHAR(255),
		address TEXT,
		UNIQUE (provider, branch_code)
		);
		`
	if _, err = db.Exec(query); err != nil {
		return fmt.Errorf("failed to create prices.supermarkets table: %w", err)
	}
	_, err = db.Exec("INSERT INTO migrations.migrations (name, time) VALUES ('prices.supermarkets', current_timestamp)")
	if err != nil {
		return fmt.Errorf("failed to mark prices.supermarkets migration as complete: %w", err)
	}

	log.Println("Migration 'prices.supermarkets' completed successfully.")
	return nil
}

type ProductsTable struct{}

func (m *ProductsTable) UpMigration(db *sql.DB) error {
	var migrationExists bool
	err := db.QueryRow("SELECT EXISTS (SELECT 1 FROM migrations.migrations WHERE name = 'prices.products')").Scan(&migrationExists)
	if err != nil {
		return fmt.Errorf("failed to check migration status: %w", err)
	}
	if migrationExists {
		log.Println("Migration 'prices.products' already completed. Skipping.")
		return nil
	}
	query :=
		`
		CREATE TABLE IF NOT EXISTS prices.products (
		product_id BIGSERIAL PRIMARY KEY,
		supermarket_id BIGINT NOT NULL REFERENCES prices.supermarkets(supermarket_id),
		barcode VARCHAR(32),
		canonical_name TEXT NOT NULL,
		brand VARCHAR(255),
		category VARCHAR(255),
		size_value DOUBLE PRECISION,
		size_unit VARCHAR(32)
		);

		CREATE UNIQUE INDEX IF NOT EXISTS products_barcode_idx
		ON prices.products (supermarket_id, barcode)
		WHERE barcode IS NOT NULL;

		CREATE UNIQUE INDEX IF NOT EXISTS products_name_idx
		ON prices.products (supermarket_id, canonical_name)
		WHERE barcode IS NULL;
		`
	if _, err = db.Exec(query); err != nil {
		return fmt.Errorf("failed to create prices.products table: %w", err)
	}
	_, err = db.Exec("INSERT INTO migrations.migrations (name, time) VALUES ('prices.products', current_timestamp)")
	if err != nil {
		return fmt.Errorf("failed to mark prices.products migration as complete: %w", err)
	}

	log.Println("Migration 'prices.products' completed successfully.")
	return nil
}

type ObservationsTable struct{}

func (m *ObservationsTable) UpMigration(db *sql.DB) error {
	var migrationExists bool
	err := db.QueryRow("SELECT EXISTS (SELECT 1 FROM migrations.migrations WHERE name = 'prices.price_observations')").Scan(&migrationExists)
	if err != nil {
		return fmt.Errorf("failed to check migration status: %w", err)
	}
	if migrationExists {
		log.Println("Migration 'prices.price_observations' already completed. Skipping.")
		return nil
	}
	query :=
		`
		CREATE TABLE IF NOT EXISTS prices.price_observations (
		product_id BIGINT NOT NULL REFERENCES prices.products(product_id),
		branch_id BIGINT NOT NULL REFERENCES prices.supermarkets(supermarket_id),
		price_type VARCHAR(16) NOT NULL,
		price DOUBLE PRECISION NOT NULL,
		promo_price DOUBLE PRECISION,
		promo_text TEXT,
		in_stock BOOLEAN,
		collected_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
		UNIQUE (product_id, branch_id, price_type, collected_at)
		);

		CREATE INDEX IF NOT EXISTS observations_branch_idx
		ON prices.price_observations (branch_id, price_type, collected_at DESC);
		`
	if _, err = db.Exec(query); err != nil {
		return fmt.Errorf("failed to create prices.price_observations table: %w", err)
	}
	_, err = db.Exec("INSERT INTO migrations.migrations (name, time) VALUES ('prices.price_observations', current_timestamp)")
	if err != nil {
		return fmt.Errorf("failed to mark prices.price_observations migration as complete: %w", err)
	}

	log.Println("Migration 'prices.price_observations' completed successfully.")
	return nil
}
