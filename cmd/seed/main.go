// Package main provides a CLI tool that creates the schema and seeds the
// database with an admin user and optional demo data.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"florist/internal/core/id"
	"florist/internal/infrastructure/storage/postgres"
	"florist/pkg/logger"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		shop_id UUID NOT NULL,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'florist',
		enabled BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS warehouse_items (
		id UUID PRIMARY KEY,
		shop_id UUID NOT NULL,
		name TEXT NOT NULL,
		quantity_on_hand BIGINT NOT NULL DEFAULT 0 CHECK (quantity_on_hand >= 0),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_warehouse_items_shop ON warehouse_items (shop_id)`,
	`CREATE TABLE IF NOT EXISTS products (
		id UUID PRIMARY KEY,
		shop_id UUID NOT NULL,
		name TEXT NOT NULL,
		price NUMERIC(12,2) NOT NULL DEFAULT 0,
		enabled BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_products_shop ON products (shop_id)`,
	`CREATE TABLE IF NOT EXISTS recipe_entries (
		product_id UUID NOT NULL REFERENCES products(id) ON DELETE CASCADE,
		warehouse_item_id UUID NOT NULL REFERENCES warehouse_items(id),
		quantity_per_unit BIGINT NOT NULL CHECK (quantity_per_unit > 0),
		is_required BOOLEAN NOT NULL DEFAULT TRUE,
		PRIMARY KEY (product_id, warehouse_item_id)
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id UUID PRIMARY KEY,
		shop_id UUID NOT NULL,
		status TEXT NOT NULL DEFAULT 'new',
		customer_name TEXT NOT NULL,
		phone TEXT NOT NULL DEFAULT '',
		comment TEXT NOT NULL DEFAULT '',
		total NUMERIC(12,2) NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_shop_status ON orders (shop_id, status)`,
	`CREATE TABLE IF NOT EXISTS order_items (
		id UUID PRIMARY KEY,
		order_id UUID NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
		product_id UUID NOT NULL REFERENCES products(id),
		quantity BIGINT NOT NULL CHECK (quantity > 0),
		price NUMERIC(12,2) NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_order_items_order ON order_items (order_id)`,
	`CREATE TABLE IF NOT EXISTS reservations (
		id UUID PRIMARY KEY,
		order_id UUID NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
		warehouse_item_id UUID NOT NULL REFERENCES warehouse_items(id),
		reserved_quantity BIGINT NOT NULL CHECK (reserved_quantity > 0),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_reservations_order ON reservations (order_id)`,
	`CREATE INDEX IF NOT EXISTS idx_reservations_item ON reservations (warehouse_item_id)`,
	`CREATE TABLE IF NOT EXISTS warehouse_operations (
		id UUID PRIMARY KEY,
		warehouse_item_id UUID NOT NULL REFERENCES warehouse_items(id),
		delta BIGINT NOT NULL,
		reason TEXT NOT NULL,
		order_id UUID,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_warehouse_operations_item ON warehouse_operations (warehouse_item_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_warehouse_operations_order ON warehouse_operations (order_id) WHERE order_id IS NOT NULL`,
	`CREATE TABLE IF NOT EXISTS sys_audit (
		id UUID PRIMARY KEY,
		entity_type TEXT NOT NULL,
		entity_id UUID NOT NULL,
		action TEXT NOT NULL,
		user_id TEXT NOT NULL DEFAULT '',
		changes JSONB,
		changes_compressed BYTEA,
		compression_algo TEXT NOT NULL DEFAULT 'none',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sys_audit_entity ON sys_audit (entity_type, entity_id, created_at)`,
}

func main() {
	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(dbURL))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	log.Info("connected to database")

	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			log.Fatalw("failed to apply schema", "error", err)
		}
	}
	log.Info("schema applied")

	shopID, err := seedAdminUser(ctx, pool, log)
	if err != nil {
		log.Fatalw("failed to seed admin user", "error", err)
	}

	if os.Getenv("SEED_DEMO_DATA") == "true" {
		if err := seedDemoData(ctx, pool, log, shopID); err != nil {
			log.Fatalw("failed to seed demo data", "error", err)
		}
	}

	log.Info("seeding completed successfully")
}

// seedAdminUser creates the admin account if absent and returns its shop.
func seedAdminUser(ctx context.Context, pool *postgres.Pool, log *logger.Logger) (id.ID, error) {
	adminEmail := os.Getenv("ADMIN_EMAIL")
	if adminEmail == "" {
		adminEmail = "admin@florist.local"
	}

	adminPassword := os.Getenv("ADMIN_PASSWORD")
	if adminPassword == "" {
		adminPassword = "Admin123!"
	}

	var existingShopID id.ID
	err := pool.QueryRow(ctx,
		`SELECT shop_id FROM users WHERE email = $1`,
		adminEmail,
	).Scan(&existingShopID)
	if err == nil {
		log.Infow("admin user already exists", "email", adminEmail)
		return existingShopID, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return id.Nil(), fmt.Errorf("check admin exists: %w", err)
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
	if err != nil {
		return id.Nil(), fmt.Errorf("hash password: %w", err)
	}

	shopID := id.New()
	if raw := os.Getenv("SHOP_ID"); raw != "" {
		shopID, err = id.Parse(raw)
		if err != nil {
			return id.Nil(), fmt.Errorf("parse SHOP_ID: %w", err)
		}
	}

	_, err = pool.Exec(ctx,
		`INSERT INTO users (id, shop_id, email, password_hash, role, enabled, created_at)
		 VALUES ($1, $2, $3, $4, 'admin', TRUE, $5)`,
		id.New(), shopID, adminEmail, string(passwordHash), time.Now().UTC(),
	)
	if err != nil {
		return id.Nil(), fmt.Errorf("insert admin: %w", err)
	}

	log.Infow("admin user created", "email", adminEmail, "shop_id", shopID)
	return shopID, nil
}

// seedDemoData loads a small florist catalog: loose stems plus a composed
// bouquet whose recipe exercises the reservation engine end to end.
func seedDemoData(ctx context.Context, pool *postgres.Pool, log *logger.Logger, shopID id.ID) error {
	var count int
	if err := pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM products WHERE shop_id = $1`, shopID,
	).Scan(&count); err != nil {
		return fmt.Errorf("check demo data: %w", err)
	}
	if count > 0 {
		log.Info("demo data already present, skipping")
		return nil
	}

	now := time.Now().UTC()

	items := []struct {
		id       id.ID
		name     string
		quantity int64
	}{
		{id.New(), "Red rose stem", 500},
		{id.New(), "White tulip stem", 300},
		{id.New(), "Eucalyptus branch", 200},
		{id.New(), "Satin ribbon (m)", 1000},
		{id.New(), "Kraft wrap sheet", 400},
	}

	for _, item := range items {
		_, err := pool.Exec(ctx,
			`INSERT INTO warehouse_items (id, shop_id, name, quantity_on_hand, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $5)`,
			item.id, shopID, item.name, item.quantity, now,
		)
		if err != nil {
			return fmt.Errorf("insert item %q: %w", item.name, err)
		}
	}

	roseID, tulipID := items[0].id, items[1].id
	eucalyptusID, ribbonID, wrapID := items[2].id, items[3].id, items[4].id

	products := []struct {
		id       id.ID
		name     string
		price    decimal.Decimal
		recipe   map[id.ID]int64
		optional map[id.ID]bool
	}{
		{
			id:     id.New(),
			name:   "Single red rose",
			price:  decimal.NewFromInt(5),
			recipe: map[id.ID]int64{roseID: 1, wrapID: 1},
		},
		{
			id:    id.New(),
			name:  "Classic rose bouquet",
			price: decimal.NewFromInt(45),
			recipe: map[id.ID]int64{
				roseID:       10,
				eucalyptusID: 3,
				ribbonID:     2,
				wrapID:       1,
			},
			optional: map[id.ID]bool{eucalyptusID: true},
		},
		{
			id:    id.New(),
			name:  "Spring tulip mix",
			price: decimal.NewFromInt(30),
			recipe: map[id.ID]int64{
				tulipID:  7,
				ribbonID: 1,
				wrapID:   1,
			},
		},
	}

	for _, p := range products {
		_, err := pool.Exec(ctx,
			`INSERT INTO products (id, shop_id, name, price, enabled, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, TRUE, $5, $5)`,
			p.id, shopID, p.name, p.price, now,
		)
		if err != nil {
			return fmt.Errorf("insert product %q: %w", p.name, err)
		}

		for itemID, quantity := range p.recipe {
			_, err := pool.Exec(ctx,
				`INSERT INTO recipe_entries (product_id, warehouse_item_id, quantity_per_unit, is_required)
				 VALUES ($1, $2, $3, $4)`,
				p.id, itemID, quantity, !p.optional[itemID],
			)
			if err != nil {
				return fmt.Errorf("insert recipe for %q: %w", p.name, err)
			}
		}
	}

	log.Infow("demo data seeded", "items", len(items), "products", len(products))
	return nil
}
