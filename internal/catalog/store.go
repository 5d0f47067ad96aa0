package catalog

import (
	"context"
	"errors"
	"sort"
)

var (
	ErrInsufficientInventory = errors.New("insufficient inventory")
	ErrInventoryOverflow     = errors.New("inventory would exceed maximum")
)

// Store owns the item table. Get never reports a missing item as an error.
type Store interface {
	Ping(ctx context.Context) error
	List(ctx context.Context) ([]Item, error)
	Get(ctx context.Context, id string) (Item, bool, error)
	// AdjustInventory adds delta to the item's top-level inventory. A delta that
	// would take inventory below zero fails with ErrInsufficientInventory, one
	// that would take it above MaxInventory with ErrInventoryOverflow. Either
	// way the inventory is left unchanged.
	AdjustInventory(ctx context.Context, id string, delta int) (bool, error)
	IsInStock(ctx context.Context, id string, quantity int) (bool, error)
}

// checkAdjust classifies applying delta to an inventory in [0, MaxInventory]
// without overflowing int.
func checkAdjust(inventory, delta int) error {
	if delta < 0 && inventory+delta < 0 {
		return ErrInsufficientInventory
	}
	if delta > 0 && delta > MaxInventory-inventory {
		return ErrInventoryOverflow
	}
	return nil
}

func sortByID(items []Item) {
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
}
