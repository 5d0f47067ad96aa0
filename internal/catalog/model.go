package catalog

import (
	"math"
	"strings"
)

type ItemType string

const (
	TypePhysical ItemType = "PHYSICAL"
	TypeDigital  ItemType = "DIGITAL"
	TypeService  ItemType = "SERVICE"
	TypeGiftCard ItemType = "GIFT_CARD"
)

// HasUnlimitedStock reports whether items of type t use the Unlimited sentinel.
func (t ItemType) HasUnlimitedStock() bool {
	return t == TypeDigital || t == TypeGiftCard
}

func (t ItemType) Valid() bool {
	switch t {
	case TypePhysical, TypeDigital, TypeService, TypeGiftCard:
		return true
	}
	return false
}

// Unlimited is the inventory sentinel used by DIGITAL and GIFT_CARD items. A
// seed entry of either type without an inventory gets this value.
const Unlimited = 999

// MaxInventory is the largest inventory any item or variant may hold. It is
// the range of the SQL INTEGER column on Postgres.
const MaxInventory = math.MaxInt32

const DefaultWeight = 0.5

type Variant struct {
	Color     string `json:"color,omitempty" yaml:"color,omitempty"`
	Size      string `json:"size,omitempty" yaml:"size,omitempty"`
	Material  string `json:"material,omitempty" yaml:"material,omitempty"`
	SKU       string `json:"sku" yaml:"sku"`
	Price     string `json:"price" yaml:"price"`
	Inventory int    `json:"inventory" yaml:"inventory"`
}

// Key is the variant's index in Item.Variants.
func (v Variant) Key() string {
	return VariantKey(v.Color, v.Size, v.Material)
}

type Item struct {
	ID          string             `json:"id" yaml:"id"`
	Name        string             `json:"name" yaml:"name"`
	Description string             `json:"description" yaml:"description"`
	Price       string             `json:"price" yaml:"price"`
	FullPrice   string             `json:"fullPrice,omitempty" yaml:"fullPrice,omitempty"`
	Inventory   int                `json:"inventory" yaml:"inventory"`
	Type        ItemType           `json:"type" yaml:"type"`
	Weight      float64            `json:"weight,omitempty" yaml:"weight,omitempty"`
	SKU         string             `json:"sku,omitempty" yaml:"sku,omitempty"`
	ImageID     string             `json:"imageId,omitempty" yaml:"imageId,omitempty"`
	Variants    map[string]Variant `json:"variants,omitempty" yaml:"variants,omitempty"`
}

func (it Item) HasVariants() bool { return len(it.Variants) > 0 }

// ShippingWeight is Weight, or DefaultWeight when unset.
func (it Item) ShippingWeight() float64 {
	if it.Weight > 0 {
		return it.Weight
	}
	return DefaultWeight
}

func (it Item) EffectiveSKU() string {
	if it.SKU != "" {
		return it.SKU
	}
	return it.ID
}

func (it Item) clone() Item {
	if it.Variants == nil {
		return it
	}
	vs := make(map[string]Variant, len(it.Variants))
	for k, v := range it.Variants {
		vs[k] = v
	}
	it.Variants = vs
	return it
}

// Options is the caller-supplied option set of a reference.
type Options struct {
	VariantID string `json:"variantId,omitempty"`
	Color     string `json:"color,omitempty"`
	Size      string `json:"size,omitempty"`
	Material  string `json:"material,omitempty"`
}

// VariantKey joins the present dimensions with "-" in color, size, material order.
func VariantKey(color, size, material string) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{color, size, material} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, "-")
}
