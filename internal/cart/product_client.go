package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const DefaultMediaBaseURL = "https://static.wixstatic.com/media"

var (
	ErrProductNotFound    = errors.New("product not found")
	ErrProductBadStatus   = errors.New("catalog bad status")
	ErrProductUnavailable = errors.New("catalog unavailable")
)

type catalogProduct struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	ImageID     string          `json:"imageId"`
}

// ProductClient reads products from the catalog service.
type ProductClient struct {
	BaseURL      string
	MediaBaseURL string
	Client       *http.Client
}

func NewProductClient(baseURL string) *ProductClient {
	if u, err := url.Parse(baseURL); err == nil && u.Scheme != "" && u.Host != "" {
		baseURL = strings.TrimRight(baseURL, "/")
	}
	return &ProductClient{
		BaseURL:      baseURL,
		MediaBaseURL: DefaultMediaBaseURL,
		Client:       &http.Client{Timeout: 3 * time.Second},
	}
}

func (c *ProductClient) Ping(ctx context.Context) error {
	resp, err := c.do(ctx, "/readyz")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status=%d", ErrProductBadStatus, resp.StatusCode)
	}
	return nil
}

func (c *ProductClient) GetProduct(ctx context.Context, id string) (ExternalProduct, error) {
	resp, err := c.do(ctx, "/products/"+url.PathEscape(id))
	if err != nil {
		return ExternalProduct{}, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return ExternalProduct{}, fmt.Errorf("%w: %s", ErrProductNotFound, id)
	default:
		_, _ = io.Copy(io.Discard, resp.Body)
		return ExternalProduct{}, fmt.Errorf("%w: status=%d", ErrProductBadStatus, resp.StatusCode)
	}

	var p catalogProduct
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return ExternalProduct{}, fmt.Errorf("decoding product: %w", err)
	}
	return c.toExternal(p), nil
}

// SearchProducts returns catalog products whose name contains query, ignoring
// case. An empty query matches everything.
func (c *ProductClient) SearchProducts(ctx context.Context, query string) ([]ExternalProduct, error) {
	resp, err := c.do(ctx, "/products")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: status=%d", ErrProductBadStatus, resp.StatusCode)
	}

	var all []catalogProduct
	if err := json.NewDecoder(resp.Body).Decode(&all); err != nil {
		return nil, fmt.Errorf("decoding products: %w", err)
	}

	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]ExternalProduct, 0, len(all))
	for _, p := range all {
		if q != "" && !strings.Contains(strings.ToLower(p.Name), q) {
			continue
		}
		out = append(out, c.toExternal(p))
	}
	return out, nil
}

func (c *ProductClient) do(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProductUnavailable, err)
	}
	return resp, nil
}

func (c *ProductClient) toExternal(p catalogProduct) ExternalProduct {
	ep := ExternalProduct{
		ID:          p.ID,
		Name:        p.Name,
		Price:       p.Price,
		Description: p.Description,
	}
	if p.ImageID != "" {
		ep.ImageURL = strings.TrimRight(c.MediaBaseURL, "/") + "/" + p.ImageID
	}
	return ep
}
