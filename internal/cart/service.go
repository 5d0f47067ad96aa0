package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

var ErrInvalidRequest = errors.New("invalid request")

type ProductSource interface {
	GetProduct(ctx context.Context, id string) (ExternalProduct, error)
	SearchProducts(ctx context.Context, query string) ([]ExternalProduct, error)
}

type CartAPI interface {
	AddToCart(ctx context.Context, items []LineItem) (string, error)
}

type AddRequest struct {
	ExternalProductID string
	Quantity          int
	CustomData        map[string]string
}

// Result is what callers of AddToCart get back; failures are reported here
// rather than as errors.
type Result struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	CartItemID string `json:"cartItemId,omitempty"`
	Error      string `json:"error,omitempty"`

	cause error
}

// Cause is the underlying failure of an unsuccessful Result.
func (r Result) Cause() error { return r.cause }

const (
	msgAdded  = "Product added to cart successfully"
	msgFailed = "Failed to add product to cart"
)

func failed(err error) Result {
	return Result{Success: false, Message: msgFailed, Error: err.Error(), cause: err}
}

type Service struct {
	Products ProductSource
	Cart     CartAPI
	Log      *zap.Logger
	Metrics  *Metrics
}

// AddToCart fetches the external product and adds one line for it to the
// platform cart. It never returns an error; see Result.
func (s *Service) AddToCart(ctx context.Context, req AddRequest) Result {
	res := s.add(ctx, req)

	if s.Metrics != nil {
		s.Metrics.observe(res)
	}
	if res.Success {
		s.log().Info("product added to cart",
			zap.String("product_id", req.ExternalProductID),
			zap.Int("quantity", req.Quantity),
			zap.String("cart_id", res.CartItemID),
		)
	} else {
		s.log().Warn("add to cart failed",
			zap.String("product_id", req.ExternalProductID),
			zap.Int("quantity", req.Quantity),
			zap.Error(res.cause),
		)
	}
	return res
}

func (s *Service) add(ctx context.Context, req AddRequest) (res Result) {
	defer func() {
		if p := recover(); p != nil {
			res = failed(fmt.Errorf("panic: %v", p))
		}
	}()

	id := strings.TrimSpace(req.ExternalProductID)
	if id == "" {
		return failed(fmt.Errorf("%w: externalProductId is required", ErrInvalidRequest))
	}
	if req.Quantity <= 0 {
		return failed(fmt.Errorf("%w: quantity must be positive", ErrInvalidRequest))
	}

	p, err := s.Products.GetProduct(ctx, id)
	if err != nil {
		return failed(err)
	}

	cartID, err := s.Cart.AddToCart(ctx, []LineItem{NewLineItem(p, req.Quantity, req.CustomData)})
	if err != nil {
		return failed(err)
	}
	if cartID == "" {
		cartID = p.ID
	}

	return Result{Success: true, Message: msgAdded, CartItemID: cartID}
}

func (s *Service) Search(ctx context.Context, query string) ([]ExternalProduct, error) {
	return s.Products.SearchProducts(ctx, query)
}

func (s *Service) log() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}
