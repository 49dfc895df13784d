package db

import (
	"fmt"

	"gorm.io/gorm"
)

var migrationStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'delivery_status') THEN
			CREATE TYPE delivery_status AS ENUM ('CREATED', 'ASSIGNED', 'PICKED_UP', 'DELIVERED', 'CANCELLED');
		END IF;
		IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'tariff_rule_type') THEN
			CREATE TYPE tariff_rule_type AS ENUM ('BAGS_PRICE', 'ORDER_AMOUNT_TIERS');
		END IF;
		IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'billing_recipient_type') THEN
			CREATE TYPE billing_recipient_type AS ENUM ('COMMUNE', 'HQ', 'SHOP_INDEP', 'INTERNAL');
		END IF;
	END
	$$;`,
	`CREATE TABLE IF NOT EXISTS shops (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		region_id UUID NOT NULL,
		hq_id UUID,
		name TEXT NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_shops_region_id ON shops (region_id);`,
	`CREATE TABLE IF NOT EXISTS clients (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		city_id UUID,
		name TEXT NOT NULL,
		address TEXT NOT NULL DEFAULT ''
	);`,
	`CREATE TABLE IF NOT EXISTS tariff_versions (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		region_id UUID NOT NULL,
		name TEXT NOT NULL,
		rule_type tariff_rule_type NOT NULL,
		price_per_two_bags NUMERIC(18,2) NOT NULL DEFAULT 0,
		cms_discount NUMERIC(18,2) NOT NULL DEFAULT 0,
		tiers JSONB NOT NULL DEFAULT '[]',
		client_pct NUMERIC(5,2) NOT NULL,
		shop_pct NUMERIC(5,2) NOT NULL,
		city_pct NUMERIC(5,2) NOT NULL,
		admin_region_pct NUMERIC(5,2) NOT NULL,
		created_by TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT chk_tariff_shares_sum CHECK (client_pct + shop_pct + city_pct + admin_region_pct = 100)
	);`,
	`CREATE INDEX IF NOT EXISTS idx_tariff_versions_region_id ON tariff_versions (region_id);`,
	`CREATE TABLE IF NOT EXISTS shop_tariffs (
		shop_id UUID NOT NULL REFERENCES shops(id),
		tariff_version_id UUID NOT NULL REFERENCES tariff_versions(id),
		effective_from DATE NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (shop_id, effective_from)
	);`,
	`CREATE TABLE IF NOT EXISTS deliveries (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		shop_id UUID NOT NULL REFERENCES shops(id),
		client_id UUID NOT NULL REFERENCES clients(id),
		delivery_date DATE NOT NULL,
		bags INTEGER NOT NULL DEFAULT 0 CHECK (bags >= 0),
		order_amount NUMERIC(18,2),
		is_cms BOOLEAN NOT NULL DEFAULT FALSE,
		status delivery_status NOT NULL DEFAULT 'CREATED',
		status_updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		delivered_at TIMESTAMPTZ,
		total_price NUMERIC(18,2) NOT NULL DEFAULT 0,
		share_client NUMERIC(18,2) NOT NULL DEFAULT 0,
		share_shop NUMERIC(18,2) NOT NULL DEFAULT 0,
		share_city NUMERIC(18,2) NOT NULL DEFAULT 0,
		share_admin_region NUMERIC(18,2) NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_deliveries_shop_date ON deliveries (shop_id, delivery_date);`,
	`CREATE TABLE IF NOT EXISTS delivery_cancellations (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		delivery_id UUID NOT NULL REFERENCES deliveries(id),
		cancelled_at TIMESTAMPTZ NOT NULL,
		cancelled_by TEXT NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		period_frozen BOOLEAN NOT NULL DEFAULT FALSE
	);`,
	`CREATE TABLE IF NOT EXISTS billing_periods (
		shop_id UUID NOT NULL REFERENCES shops(id),
		period_month DATE NOT NULL,
		frozen_at TIMESTAMPTZ,
		frozen_by TEXT,
		stale_since TIMESTAMPTZ,
		PRIMARY KEY (shop_id, period_month)
	);`,
	`CREATE TABLE IF NOT EXISTS billing_documents (
		id UUID PRIMARY KEY,
		region_id UUID NOT NULL,
		recipient_type billing_recipient_type NOT NULL,
		recipient_id UUID NOT NULL,
		period_month DATE NOT NULL,
		amount_ht NUMERIC(18,2) NOT NULL,
		amount_vat NUMERIC(18,2) NOT NULL,
		amount_ttc NUMERIC(18,2) NOT NULL,
		vat_rate NUMERIC(6,4) NOT NULL,
		deliveries_count INTEGER NOT NULL,
		computed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_billing_documents_recipient
		ON billing_documents (region_id, recipient_type, recipient_id, period_month);`,
	`CREATE TABLE IF NOT EXISTS vat_rate_settings (
		effective_from DATE PRIMARY KEY,
		rate NUMERIC(6,4) NOT NULL CHECK (rate >= 0 AND rate < 1)
	);`,
}

func runMigrations(db *gorm.DB) error {
	for i, stmt := range migrationStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
