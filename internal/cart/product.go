package cart

import (
	"encoding/json"
	"sort"

	"github.com/shopspring/decimal"
)

type ExternalProduct struct {
	ID          string
	Name        string
	Price       decimal.Decimal
	Description string
	ImageURL    string
}

type productView struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Price       json.Number `json:"price"`
	Description string      `json:"description,omitempty"`
	ImageURL    string      `json:"imageUrl,omitempty"`
}

func (p ExternalProduct) MarshalJSON() ([]byte, error) {
	return json.Marshal(productView{
		ID:          p.ID,
		Name:        p.Name,
		Price:       json.Number(p.Price.StringFixed(2)),
		Description: p.Description,
		ImageURL:    p.ImageURL,
	})
}

type Text struct {
	Original string `json:"original"`
}

type CustomTextField struct {
	Title string `json:"title"`
	Value string `json:"value"`
}

// LineItem is one entry of the platform cart's lineItems array.
type LineItem struct {
	ProductName      Text              `json:"productName"`
	Quantity         int               `json:"quantity"`
	Price            json.Number       `json:"price"`
	Description      *Text             `json:"description,omitempty"`
	Image            string            `json:"image,omitempty"`
	CustomTextFields []CustomTextField `json:"customTextFields"`
}

const externalIDField = "External Product ID"

// NewLineItem builds the cart line for p. The external product id is always
// the first custom field; custom data follows sorted by key.
func NewLineItem(p ExternalProduct, quantity int, custom map[string]string) LineItem {
	fields := make([]CustomTextField, 0, 1+len(custom))
	fields = append(fields, CustomTextField{Title: externalIDField, Value: p.ID})

	keys := make([]string, 0, len(custom))
	for k := range custom {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fields = append(fields, CustomTextField{Title: k, Value: custom[k]})
	}

	li := LineItem{
		ProductName:      Text{Original: p.Name},
		Quantity:         quantity,
		Price:            json.Number(p.Price.StringFixed(2)),
		Image:            p.ImageURL,
		CustomTextFields: fields,
	}
	if p.Description != "" {
		li.Description = &Text{Original: p.Description}
	}
	return li
}
