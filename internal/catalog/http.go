package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"CatalogPlugin/pkg/kit"
)

type Server struct {
	Store    Store
	Resolver *Resolver
	Log      *zap.Logger
}

func NewServer(store Store, log *zap.Logger, siteURL string) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		Store:    store,
		Resolver: NewResolver(store, log, siteURL),
		Log:      log,
	}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 1*time.Second)
		defer cancel()

		if err := s.Store.Ping(ctx); err != nil {
			s.Log.Warn("readyz failed", zap.Error(err))
			kit.WriteError(w, r, http.StatusServiceUnavailable, "not ready", nil)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	r.Get("/products", s.list)
	r.Get("/products/{id}", s.get)
	r.Get("/products/{id}/stock", s.stock)
	r.Post("/products/{id}/inventory", s.adjust)

	r.Post("/catalog/resolve", s.resolve)
	r.Post("/v1/catalog/items", s.catalogItems)

	return r
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	items, err := s.Store.List(r.Context())
	if err != nil {
		s.Log.Error("list products failed", zap.Error(err))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}
	kit.WriteJSON(w, http.StatusOK, items)
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	it, ok, err := s.Store.Get(r.Context(), id)
	if err != nil {
		s.Log.Error("get product failed", zap.Error(err), zap.String("id", id))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}
	if !ok {
		kit.WriteError(w, r, http.StatusNotFound, "not found", map[string]any{"id": id})
		return
	}
	kit.WriteJSON(w, http.StatusOK, it)
}

type stockResp struct {
	ID       string `json:"id"`
	Quantity int    `json:"quantity"`
	InStock  bool   `json:"in_stock"`
}

func (s *Server) stock(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	qty := 1
	if raw := r.URL.Query().Get("quantity"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			kit.WriteError(w, r, http.StatusBadRequest, "quantity must be a positive integer", nil)
			return
		}
		qty = n
	}

	ok, err := s.Store.IsInStock(r.Context(), id, qty)
	if err != nil {
		s.Log.Error("stock check failed", zap.Error(err), zap.String("id", id))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}
	kit.WriteJSON(w, http.StatusOK, stockResp{ID: id, Quantity: qty, InStock: ok})
}

type adjustReq struct {
	Delta int `json:"delta"`
}

func (s *Server) adjust(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req adjustReq
	if err := kit.DecodeJSONStrict(w, r, &req); err != nil {
		kit.WriteBadJSON(w, r, err)
		return
	}
	if req.Delta == 0 {
		kit.WriteError(w, r, http.StatusBadRequest, "delta must be non-zero", nil)
		return
	}

	found, err := s.Store.AdjustInventory(r.Context(), id, req.Delta)
	switch {
	case errors.Is(err, ErrInsufficientInventory):
		kit.WriteError(w, r, http.StatusConflict, "insufficient inventory", map[string]any{"id": id, "delta": req.Delta})
		return
	case errors.Is(err, ErrInventoryOverflow):
		kit.WriteError(w, r, http.StatusUnprocessableEntity, "inventory out of range", map[string]any{"id": id, "delta": req.Delta, "max": MaxInventory})
		return
	case err != nil:
		s.Log.Error("adjust inventory failed", zap.Error(err), zap.String("id", id))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	case !found:
		kit.WriteError(w, r, http.StatusNotFound, "not found", map[string]any{"id": id})
		return
	}

	s.Log.Info("inventory adjusted", zap.String("id", id), zap.Int("delta", req.Delta))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) resolve(w http.ResponseWriter, r *http.Request) {
	// Options are free-form on the wire; unknown keys are ignored.
	var req Request
	if err := kit.DecodeJSON(w, r, &req); err != nil {
		kit.WriteBadJSON(w, r, err)
		return
	}

	kit.WriteJSON(w, http.StatusOK, s.Resolver.ResolveBatch(r.Context(), req))
}

type platformRef struct {
	CatalogItemID string         `json:"catalogItemId"`
	AppID         string         `json:"appId,omitempty"`
	Options       map[string]any `json:"options,omitempty"`
}

type platformLine struct {
	CatalogReference json.RawMessage `json:"catalogReference"`
	Quantity         int             `json:"quantity"`
}

type platformRequest struct {
	CatalogReferences []platformLine `json:"catalogReferences"`
	Currency          string         `json:"currency"`
	WeightUnit        string         `json:"weightUnit"`
}

type platformItem struct {
	CatalogReference json.RawMessage `json:"catalogReference"`
	Data             Record          `json:"data"`
}

type platformResponse struct {
	CatalogItems []platformItem `json:"catalogItems"`
}

// catalogItems answers the platform's catalog lookup. The response always has
// status 200; anything that goes wrong degrades to fewer (or zero) items.
func (s *Server) catalogItems(w http.ResponseWriter, r *http.Request) {
	resp := platformResponse{CatalogItems: []platformItem{}}

	var req platformRequest
	if err := kit.DecodeJSON(w, r, &req); err != nil {
		s.Log.Warn("catalog items: bad request body", zap.Error(err))
		kit.WriteJSON(w, http.StatusOK, resp)
		return
	}

	s.Log.Info("catalog items requested",
		zap.Int("references", len(req.CatalogReferences)),
		zap.String("currency", req.Currency),
		zap.String("weight_unit", req.WeightUnit),
	)

	refs := make([]Reference, 0, len(req.CatalogReferences))
	raws := make([]json.RawMessage, 0, len(req.CatalogReferences))
	for _, line := range req.CatalogReferences {
		var pr platformRef
		if len(line.CatalogReference) == 0 || json.Unmarshal(line.CatalogReference, &pr) != nil || pr.CatalogItemID == "" {
			continue
		}
		refs = append(refs, Reference{
			ItemID:   pr.CatalogItemID,
			Quantity: line.Quantity,
			Options:  optionsFromMap(pr.Options),
		})
		raws = append(raws, line.CatalogReference)
	}

	results := s.Resolver.ResolveAll(r.Context(), Request{References: refs, Currency: req.Currency})
	for i, res := range results {
		if res.Outcome != Resolved {
			continue
		}
		resp.CatalogItems = append(resp.CatalogItems, platformItem{
			CatalogReference: raws[i],
			Data:             res.Record,
		})
	}

	kit.WriteJSON(w, http.StatusOK, resp)
}

// optionsFromMap reads the known option keys from the platform's free-form
// options object. Falsy values count as absent.
func optionsFromMap(m map[string]any) *Options {
	if m == nil {
		return nil
	}
	return &Options{
		VariantID: optionString(m["variantId"]),
		Color:     optionString(m["color"]),
		Size:      optionString(m["size"]),
		Material:  optionString(m["material"]),
	}
}

func optionString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		if !t {
			return ""
		}
		return "true"
	case float64:
		if t == 0 {
			return ""
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}
