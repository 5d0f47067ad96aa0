package catalog

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/currency"
)

const (
	mediaHeight = 800
	mediaWidth  = 800

	DefaultCurrency = "USD"
)

type Text struct {
	Original   string `json:"original"`
	Translated string `json:"translated"`
}

func untranslated(s string) Text { return Text{Original: s, Translated: s} }

type DescriptionLine struct {
	Name      Text `json:"name"`
	PlainText Text `json:"plainText"`
}

type ItemTypeRef struct {
	Preset ItemType `json:"preset"`
}

type PageURL struct {
	RelativePath string `json:"relativePath"`
	URL          string `json:"url"`
}

type PhysicalProperties struct {
	SKU       string  `json:"sku"`
	Shippable bool    `json:"shippable"`
	Weight    float64 `json:"weight"`
}

type Media struct {
	ID       string `json:"id"`
	Height   int    `json:"height"`
	Width    int    `json:"width"`
	AltText  string `json:"altText"`
	Filename string `json:"filename"`
}

// Record is the priced line item returned to the platform for one reference.
type Record struct {
	ProductName        Text                `json:"productName"`
	ItemType           ItemTypeRef         `json:"itemType"`
	Price              string              `json:"price"`
	FullPrice          string              `json:"fullPrice"`
	DescriptionLines   []DescriptionLine   `json:"descriptionLines"`
	URL                PageURL             `json:"url"`
	QuantityAvailable  int                 `json:"quantityAvailable"`
	PhysicalProperties *PhysicalProperties `json:"physicalProperties,omitempty"`
	Media              *Media              `json:"media,omitempty"`
}

type Reference struct {
	ItemID   string   `json:"itemId"`
	Quantity int      `json:"quantity"`
	Options  *Options `json:"options,omitempty"`
}

type Request struct {
	References []Reference `json:"references"`
	Currency   string      `json:"currency"`
}

type Response struct {
	Items []Record `json:"items"`
}

type Outcome int

const (
	Resolved Outcome = iota
	NotFound
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Resolved:
		return "resolved"
	case NotFound:
		return "not_found"
	default:
		return "failed"
	}
}

// Result is the per-reference outcome. Record is only meaningful when
// Outcome is Resolved.
type Result struct {
	Ref       Reference
	Outcome   Outcome
	Record    Record
	Shortfall bool
	Err       error
}

// ResolveVariant picks the variant addressed by opts. A nil variant with an
// empty key means the item has no variants or no options were given; a nil
// variant with a non-empty key is an unmatched option set.
func ResolveVariant(item Item, opts *Options) (*Variant, string) {
	if !item.HasVariants() || opts == nil {
		return nil, ""
	}

	key := opts.VariantID
	if key == "" {
		key = VariantKey(opts.Color, opts.Size, opts.Material)
	}

	v, ok := item.Variants[key]
	if !ok {
		return nil, key
	}
	return &v, key
}

type Resolver struct {
	Store   Store
	Log     *zap.Logger
	SiteURL string
	Metrics *ResolverMetrics
}

func NewResolver(store Store, log *zap.Logger, siteURL string) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{
		Store:   store,
		Log:     log,
		SiteURL: strings.TrimRight(siteURL, "/"),
	}
}

// BuildRecord shapes item into a Record. A resolved variant's price, sku and
// inventory replace the item's own.
func (r *Resolver) BuildRecord(item Item, opts *Options) Record {
	price := item.Price
	sku := item.EffectiveSKU()
	inventory := item.Inventory

	if v, _ := ResolveVariant(item, opts); v != nil {
		price = v.Price
		sku = v.SKU
		inventory = v.Inventory
	}

	fullPrice := item.FullPrice
	if fullPrice == "" {
		fullPrice = price
	}

	rel := "/product/" + item.ID
	rec := Record{
		ProductName:       untranslated(item.Name),
		ItemType:          ItemTypeRef{Preset: item.Type},
		Price:             price,
		FullPrice:         fullPrice,
		DescriptionLines:  descriptionLines(opts),
		URL:               PageURL{RelativePath: rel, URL: r.SiteURL + rel},
		QuantityAvailable: inventory,
	}

	if item.Type == TypePhysical {
		rec.PhysicalProperties = &PhysicalProperties{
			SKU:       sku,
			Shippable: true,
			Weight:    item.ShippingWeight(),
		}
	}

	if item.ImageID != "" {
		rec.Media = &Media{
			ID:       item.ImageID,
			Height:   mediaHeight,
			Width:    mediaWidth,
			AltText:  item.Name,
			Filename: item.ID + ".jpg",
		}
	}

	return rec
}

func descriptionLines(opts *Options) []DescriptionLine {
	lines := make([]DescriptionLine, 0, 3)
	if opts == nil {
		return lines
	}

	for _, d := range []struct{ label, value string }{
		{"Color", opts.Color},
		{"Size", opts.Size},
		{"Material", opts.Material},
	} {
		if d.value == "" {
			continue
		}
		lines = append(lines, DescriptionLine{
			Name:      untranslated(d.label),
			PlainText: untranslated(d.value),
		})
	}
	return lines
}

// Resolve looks up one reference. It never panics: store errors and panics
// while shaping the record come back as a Failed result.
func (r *Resolver) Resolve(ctx context.Context, ref Reference) (res Result) {
	res.Ref = ref

	defer func() {
		if p := recover(); p != nil {
			res = Result{Ref: ref, Outcome: Failed, Err: fmt.Errorf("resolve %s: panic: %v", ref.ItemID, p)}
		}
	}()

	item, ok, err := r.Store.Get(ctx, ref.ItemID)
	if err != nil {
		res.Outcome = Failed
		res.Err = fmt.Errorf("resolve %s: %w", ref.ItemID, err)
		return res
	}
	if !ok {
		res.Outcome = NotFound
		return res
	}

	res.Outcome = Resolved
	res.Record = r.BuildRecord(item, ref.Options)
	res.Shortfall = ref.Quantity > res.Record.QuantityAvailable
	return res
}

// ResolveBatch resolves every reference in order. Unknown and failed references
// are left out of the response; a short inventory is reported through
// QuantityAvailable only.
func (r *Resolver) ResolveBatch(ctx context.Context, req Request) Response {
	results := r.ResolveAll(ctx, req)

	out := Response{Items: make([]Record, 0, len(results))}
	for _, res := range results {
		if res.Outcome == Resolved {
			out.Items = append(out.Items, res.Record)
		}
	}
	return out
}

// ResolveAll returns one Result per reference, in input order.
func (r *Resolver) ResolveAll(ctx context.Context, req Request) []Result {
	cur := NormalizeCurrency(req.Currency)
	if req.Currency != "" && cur != strings.ToUpper(strings.TrimSpace(req.Currency)) {
		r.Log.Warn("unknown currency, using default",
			zap.String("currency", req.Currency),
			zap.String("default", cur),
		)
	}

	r.Log.Debug("resolving catalog references",
		zap.Int("references", len(req.References)),
		zap.String("currency", cur),
	)

	results := make([]Result, 0, len(req.References))
	for _, ref := range req.References {
		res := r.Resolve(ctx, ref)
		r.observe(res)
		results = append(results, res)
	}
	return results
}

func (r *Resolver) observe(res Result) {
	if r.Metrics != nil {
		r.Metrics.References.WithLabelValues(res.Outcome.String()).Inc()
	}

	switch res.Outcome {
	case NotFound:
		r.Log.Info("catalog item not found", zap.String("item_id", res.Ref.ItemID))
	case Failed:
		r.Log.Error("resolve reference failed", zap.String("item_id", res.Ref.ItemID), zap.Error(res.Err))
	case Resolved:
		if res.Shortfall {
			r.Log.Warn("insufficient inventory",
				zap.String("item_id", res.Ref.ItemID),
				zap.Int("requested", res.Ref.Quantity),
				zap.Int("available", res.Record.QuantityAvailable),
			)
		}
	}
}

// NormalizeCurrency returns the upper-case ISO 4217 code, or DefaultCurrency
// when s is empty or not a known code.
func NormalizeCurrency(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultCurrency
	}
	u, err := currency.ParseISO(s)
	if err != nil {
		return DefaultCurrency
	}
	return u.String()
}
