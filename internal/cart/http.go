package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"CatalogPlugin/pkg/kit"
)

type pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	Service *Service
	Log     *zap.Logger
	// Upstream is probed by /readyz when set.
	Upstream pinger
}

type addReq struct {
	ExternalProductID string         `json:"externalProductId"`
	Quantity          int            `json:"quantity"`
	CustomData        map[string]any `json:"customData,omitempty"`
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", s.ready)

	r.Post("/cart/add", s.add)
	r.Get("/cart/products", s.search)

	return r
}

func (s *Server) ready(w http.ResponseWriter, r *http.Request) {
	if s.Upstream == nil {
		w.WriteHeader(http.StatusOK)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 1*time.Second)
	defer cancel()

	if err := s.Upstream.Ping(ctx); err != nil {
		if s.Log != nil {
			s.Log.Warn("readyz failed", zap.Error(err))
		}
		kit.WriteError(w, r, http.StatusServiceUnavailable, "catalog not ready", nil)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) add(w http.ResponseWriter, r *http.Request) {
	var req addReq
	if err := kit.DecodeJSON(w, r, &req); err != nil {
		kit.WriteJSON(w, http.StatusBadRequest, failed(fmt.Errorf("%w: bad json", ErrInvalidRequest)))
		return
	}

	res := s.Service.AddToCart(r.Context(), AddRequest{
		ExternalProductID: req.ExternalProductID,
		Quantity:          req.Quantity,
		CustomData:        stringifyCustomData(req.CustomData),
	})

	kit.WriteJSON(w, statusFor(res), res)
}

func statusFor(res Result) int {
	if res.Success {
		return http.StatusOK
	}
	switch {
	case errors.Is(res.cause, ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(res.cause, ErrProductNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	products, err := s.Service.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		if s.Log != nil {
			s.Log.Error("search products failed", zap.Error(err))
		}
		if errors.Is(err, ErrProductUnavailable) {
			kit.WriteError(w, r, http.StatusServiceUnavailable, "catalog unavailable", nil)
			return
		}
		kit.WriteError(w, r, http.StatusBadGateway, "catalog error", nil)
		return
	}
	kit.WriteJSON(w, http.StatusOK, products)
}

// stringifyCustomData flattens free-form custom values to strings the way the
// storefront renders them.
func stringifyCustomData(in map[string]any) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		switch t := v.(type) {
		case string:
			out[k] = t
		case nil:
			out[k] = "null"
		case float64, bool:
			out[k] = fmt.Sprint(t)
		default:
			b, err := json.Marshal(t)
			if err != nil {
				out[k] = fmt.Sprint(t)
				continue
			}
			out[k] = string(b)
		}
	}
	return out
}
