package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

var ErrInvalidSeed = errors.New("invalid catalog seed")

//go:embed seed.yaml
var defaultSeed string

type seedFile struct {
	Items []Item `yaml:"items"`
}

// DefaultSeed returns the built-in sample catalog.
func DefaultSeed() []Item {
	items, err := LoadSeed(strings.NewReader(defaultSeed))
	if err != nil {
		panic(fmt.Sprintf("catalog: built-in seed: %v", err))
	}
	return items
}

func LoadSeedFile(path string) ([]Item, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening seed file: %w", err)
	}
	defer f.Close()

	return LoadSeed(f)
}

// LoadSeed decodes a YAML catalog, validates it and normalises prices to two
// fractional digits. Items come back sorted by ID.
func LoadSeed(r io.Reader) ([]Item, error) {
	var sf seedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&sf); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidSeed, err)
	}

	seen := make(map[string]struct{}, len(sf.Items))
	out := make([]Item, 0, len(sf.Items))
	for _, it := range sf.Items {
		if _, dup := seen[it.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate item id %q", ErrInvalidSeed, it.ID)
		}
		seen[it.ID] = struct{}{}

		norm, err := Validate(it)
		if err != nil {
			return nil, err
		}
		out = append(out, norm)
	}

	sortByID(out)
	return out, nil
}

// Validate checks the item invariants and returns a copy with normalised prices.
func Validate(it Item) (Item, error) {
	it = it.clone()

	if strings.TrimSpace(it.ID) == "" {
		return Item{}, fmt.Errorf("%w: empty item id", ErrInvalidSeed)
	}
	if !it.Type.Valid() {
		return Item{}, fmt.Errorf("%w: item %s: unknown type %q", ErrInvalidSeed, it.ID, it.Type)
	}
	if it.Inventory == 0 && it.Type.HasUnlimitedStock() {
		it.Inventory = Unlimited
	}
	if it.Inventory < 0 || it.Inventory > MaxInventory {
		return Item{}, fmt.Errorf("%w: item %s: inventory %d out of range", ErrInvalidSeed, it.ID, it.Inventory)
	}
	if it.Weight < 0 {
		return Item{}, fmt.Errorf("%w: item %s: negative weight", ErrInvalidSeed, it.ID)
	}

	var err error
	if it.Price, err = NormalizePrice(it.Price); err != nil {
		return Item{}, fmt.Errorf("%w: item %s: price: %v", ErrInvalidSeed, it.ID, err)
	}
	if it.FullPrice != "" {
		if it.FullPrice, err = NormalizePrice(it.FullPrice); err != nil {
			return Item{}, fmt.Errorf("%w: item %s: fullPrice: %v", ErrInvalidSeed, it.ID, err)
		}
	}

	skus := make(map[string]struct{}, len(it.Variants))
	for key, v := range it.Variants {
		if v.Key() == "" {
			return Item{}, fmt.Errorf("%w: item %s: variant %q has no color, size or material", ErrInvalidSeed, it.ID, key)
		}
		if key != v.Key() {
			return Item{}, fmt.Errorf("%w: item %s: variant key %q does not match options %q", ErrInvalidSeed, it.ID, key, v.Key())
		}
		if v.SKU == "" {
			return Item{}, fmt.Errorf("%w: item %s: variant %s: empty sku", ErrInvalidSeed, it.ID, key)
		}
		if _, dup := skus[v.SKU]; dup {
			return Item{}, fmt.Errorf("%w: item %s: duplicate variant sku %q", ErrInvalidSeed, it.ID, v.SKU)
		}
		skus[v.SKU] = struct{}{}
		if v.Inventory < 0 || v.Inventory > MaxInventory {
			return Item{}, fmt.Errorf("%w: item %s: variant %s: inventory %d out of range", ErrInvalidSeed, it.ID, key, v.Inventory)
		}
		if v.Price, err = NormalizePrice(v.Price); err != nil {
			return Item{}, fmt.Errorf("%w: item %s: variant %s: price: %v", ErrInvalidSeed, it.ID, key, err)
		}
		it.Variants[key] = v
	}

	return it, nil
}

// NormalizePrice parses a decimal amount and formats it with two fractional digits.
func NormalizePrice(s string) (string, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return "", err
	}
	if d.IsNegative() {
		return "", errors.New("must be non-negative")
	}
	return d.StringFixed(2), nil
}
