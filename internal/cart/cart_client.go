package cart

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const DefaultCartAPIURL = "https://www.wixapis.com/stores/v1/carts/current/addToCart"

var ErrCartUnavailable = errors.New("cart API unavailable")

// APIError is a non-2xx answer from the platform cart API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("cart API error: %d", e.Status)
}

// PlatformCart posts line items to the platform's add-to-cart endpoint.
// Outbound calls are paced by Limiter.
type PlatformCart struct {
	URL     string
	Token   string
	Client  *http.Client
	Limiter *rate.Limiter
}

func NewPlatformCart(apiURL, token string, rps float64, burst int) *PlatformCart {
	if apiURL == "" {
		apiURL = DefaultCartAPIURL
	}
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	if burst <= 0 {
		burst = 1
	}
	return &PlatformCart{
		URL:     apiURL,
		Token:   token,
		Client:  &http.Client{Timeout: 10 * time.Second},
		Limiter: rate.NewLimiter(limit, burst),
	}
}

type addToCartReq struct {
	LineItems []LineItem `json:"lineItems"`
}

type addToCartResp struct {
	Cart struct {
		ID string `json:"_id"`
	} `json:"cart"`
	CartID string `json:"cartId"`
}

type apiErrorBody struct {
	Message string `json:"message"`
}

// AddToCart returns the id of the cart the items landed in, which may be empty
// if the platform does not report one.
func (c *PlatformCart) AddToCart(ctx context.Context, items []LineItem) (string, error) {
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("%w: %v", ErrCartUnavailable, err)
		}
	}

	body, err := json.Marshal(addToCartReq{LineItems: items})
	if err != nil {
		return "", fmt.Errorf("encoding cart request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", requestID(ctx))
	if c.Token != "" {
		req.Header.Set("Authorization", c.Token)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCartUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var eb apiErrorBody
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		_ = json.Unmarshal(raw, &eb)
		return "", &APIError{Status: resp.StatusCode, Message: eb.Message}
	}

	var out addToCartResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("decoding cart response: %w", err)
	}

	if out.Cart.ID != "" {
		return out.Cart.ID, nil
	}
	return out.CartID, nil
}

func requestID(ctx context.Context) string {
	if id := chimw.GetReqID(ctx); id != "" {
		return id
	}
	return uuid.NewString()
}
