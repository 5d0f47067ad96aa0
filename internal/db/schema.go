package db

import (
	"database/sql"
	"fmt"
)

// schema is valid for both Postgres and SQLite.
const schema = `
CREATE TABLE IF NOT EXISTS catalog_items (
    id          TEXT PRIMARY KEY,
    name        TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    price       TEXT NOT NULL,
    full_price  TEXT NOT NULL DEFAULT '',
    inventory   INTEGER NOT NULL CHECK (inventory >= 0),
    type        TEXT NOT NULL CHECK (type IN ('PHYSICAL', 'DIGITAL', 'SERVICE', 'GIFT_CARD')),
    weight      DOUBLE PRECISION NOT NULL DEFAULT 0,
    sku         TEXT NOT NULL DEFAULT '',
    image_id    TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS catalog_variants (
    item_id     TEXT NOT NULL REFERENCES catalog_items(id),
    variant_key TEXT NOT NULL,
    color       TEXT NOT NULL DEFAULT '',
    size        TEXT NOT NULL DEFAULT '',
    material    TEXT NOT NULL DEFAULT '',
    sku         TEXT NOT NULL,
    price       TEXT NOT NULL,
    inventory   INTEGER NOT NULL CHECK (inventory >= 0),
    PRIMARY KEY (item_id, variant_key)
);
`

// EnsureSchema creates all tables if they don't already exist.
func EnsureSchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}
