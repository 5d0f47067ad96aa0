package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"CatalogPlugin/internal/db"
)

const (
	pingTimeout  = 1 * time.Second
	queryTimeout = 3 * time.Second
)

const itemColumns = `id, name, description, price, full_price, inventory, type, weight, sku, image_id`

type SQLStore struct {
	db     *sql.DB
	driver string
}

func NewSQLStore(database *sql.DB, driver string) *SQLStore {
	return &SQLStore{db: database, driver: driver}
}

func (s *SQLStore) q(query string) string { return db.Rebind(s.driver, query) }

func (s *SQLStore) Ping(ctx context.Context) error {
	return withTimeout(ctx, pingTimeout, func(ctx context.Context) error {
		return s.db.PingContext(ctx)
	})
}

// Seed inserts items that are not present yet. Existing rows are left alone so
// restarts never reset inventory.
func (s *SQLStore) Seed(ctx context.Context, items []Item) error {
	return withTimeout(ctx, 10*queryTimeout, func(ctx context.Context) error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("beginning seed transaction: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		for _, it := range items {
			_, err := tx.ExecContext(ctx, s.q(`
				INSERT INTO catalog_items (`+itemColumns+`)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT (id) DO NOTHING
			`), it.ID, it.Name, it.Description, it.Price, it.FullPrice, it.Inventory, string(it.Type), it.Weight, it.SKU, it.ImageID)
			if err != nil {
				return fmt.Errorf("seeding item %s: %w", it.ID, err)
			}

			for key, v := range it.Variants {
				_, err := tx.ExecContext(ctx, s.q(`
					INSERT INTO catalog_variants (item_id, variant_key, color, size, material, sku, price, inventory)
					VALUES (?, ?, ?, ?, ?, ?, ?, ?)
					ON CONFLICT (item_id, variant_key) DO NOTHING
				`), it.ID, key, v.Color, v.Size, v.Material, v.SKU, v.Price, v.Inventory)
				if err != nil {
					return fmt.Errorf("seeding variant %s/%s: %w", it.ID, key, err)
				}
			}
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing seed: %w", err)
		}
		return nil
	})
}

func (s *SQLStore) List(ctx context.Context) ([]Item, error) {
	var out []Item

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		rows, err := s.db.QueryContext(ctx, `SELECT `+itemColumns+` FROM catalog_items ORDER BY id ASC`)
		if err != nil {
			return fmt.Errorf("listing items: %w", err)
		}
		defer rows.Close()

		out = make([]Item, 0, 16)
		byID := make(map[string]int)
		for rows.Next() {
			it, err := scanItem(rows)
			if err != nil {
				return err
			}
			byID[it.ID] = len(out)
			out = append(out, it)
		}
		if err := rows.Err(); err != nil {
			return err
		}

		vrows, err := s.db.QueryContext(ctx, `
			SELECT item_id, variant_key, color, size, material, sku, price, inventory
			FROM catalog_variants
		`)
		if err != nil {
			return fmt.Errorf("listing variants: %w", err)
		}
		defer vrows.Close()

		for vrows.Next() {
			var (
				itemID, key string
				v           Variant
			)
			if err := vrows.Scan(&itemID, &key, &v.Color, &v.Size, &v.Material, &v.SKU, &v.Price, &v.Inventory); err != nil {
				return fmt.Errorf("scanning variant: %w", err)
			}
			i, ok := byID[itemID]
			if !ok {
				continue
			}
			if out[i].Variants == nil {
				out[i].Variants = make(map[string]Variant)
			}
			out[i].Variants[key] = v
		}
		return vrows.Err()
	})

	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SQLStore) Get(ctx context.Context, id string) (Item, bool, error) {
	var it Item

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		row := s.db.QueryRowContext(ctx, s.q(`SELECT `+itemColumns+` FROM catalog_items WHERE id = ?`), id)
		var err error
		if it, err = scanItem(row); err != nil {
			return err
		}

		variants, err := s.variants(ctx, id)
		if err != nil {
			return err
		}
		it.Variants = variants
		return nil
	})

	if errors.Is(err, sql.ErrNoRows) {
		return Item{}, false, nil
	}
	if err != nil {
		return Item{}, false, err
	}
	return it, true, nil
}

func (s *SQLStore) variants(ctx context.Context, itemID string) (map[string]Variant, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`
		SELECT variant_key, color, size, material, sku, price, inventory
		FROM catalog_variants
		WHERE item_id = ?
	`), itemID)
	if err != nil {
		return nil, fmt.Errorf("getting variants: %w", err)
	}
	defer rows.Close()

	var out map[string]Variant
	for rows.Next() {
		var (
			key string
			v   Variant
		)
		if err := rows.Scan(&key, &v.Color, &v.Size, &v.Material, &v.SKU, &v.Price, &v.Inventory); err != nil {
			return nil, fmt.Errorf("scanning variant: %w", err)
		}
		if out == nil {
			out = make(map[string]Variant)
		}
		out[key] = v
	}
	return out, rows.Err()
}

// AdjustInventory applies delta with a single conditional UPDATE so concurrent
// adjustments cannot leave [0, MaxInventory].
func (s *SQLStore) AdjustInventory(ctx context.Context, id string, delta int) (bool, error) {
	var found bool

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		if delta >= -MaxInventory && delta <= MaxInventory {
			res, err := s.db.ExecContext(ctx, s.q(`
				UPDATE catalog_items
				SET inventory = inventory + ?
				WHERE id = ? AND inventory + CAST(? AS BIGINT) BETWEEN 0 AND ?
			`), delta, id, delta, MaxInventory)
			if err != nil {
				return fmt.Errorf("adjusting inventory: %w", err)
			}

			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("adjusting inventory: %w", err)
			}
			if n > 0 {
				found = true
				return nil
			}
		}

		var one int
		err := s.db.QueryRowContext(ctx, s.q(`SELECT 1 FROM catalog_items WHERE id = ?`), id).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("checking item: %w", err)
		}
		found = true

		// A decrement can only miss the lower bound, an increment the upper one.
		if delta < 0 {
			return ErrInsufficientInventory
		}
		return ErrInventoryOverflow
	})

	return found, err
}

func (s *SQLStore) IsInStock(ctx context.Context, id string, quantity int) (bool, error) {
	var inventory int

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		return s.db.QueryRowContext(ctx, s.q(`SELECT inventory FROM catalog_items WHERE id = ?`), id).Scan(&inventory)
	})

	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return inventory >= quantity, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(sc scanner) (Item, error) {
	var (
		it  Item
		typ string
	)
	err := sc.Scan(&it.ID, &it.Name, &it.Description, &it.Price, &it.FullPrice, &it.Inventory, &typ, &it.Weight, &it.SKU, &it.ImageID)
	if errors.Is(err, sql.ErrNoRows) {
		return Item{}, err
	}
	if err != nil {
		return Item{}, fmt.Errorf("scanning item: %w", err)
	}
	it.Type = ItemType(typ)
	return it, nil
}

func withTimeout(parent context.Context, d time.Duration, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(parent, d)
	defer cancel()
	return fn(ctx)
}
