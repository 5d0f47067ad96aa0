package cart_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"

	"CatalogPlugin/internal/cart"
	"CatalogPlugin/internal/catalog"
)

type recordedCart struct {
	mu    sync.Mutex
	lines []cart.LineItem
}

func newCartAPITS(t *testing.T, rec *recordedCart, status int) *httptest.Server {
	t.Helper()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			LineItems []cart.LineItem `json:"lineItems"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)

		rec.mu.Lock()
		rec.lines = append(rec.lines, body.LineItems...)
		rec.mu.Unlock()

		w.WriteHeader(status)
		if status == http.StatusOK {
			_, _ = w.Write([]byte(`{"cart":{"_id":"cart-42"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"message":"platform rejected"}`))
	}))
	t.Cleanup(ts.Close)
	return ts
}

func newCartTS(t *testing.T, cartAPIURL string) *httptest.Server {
	t.Helper()

	catalogTS := httptest.NewServer(catalog.NewHandler(
		catalog.NewServer(catalog.NewStore(), zap.NewNop(), "https://shop.example.com"),
		catalog.HTTPDeps{Log: zap.NewNop(), Service: "catalog"},
	))
	t.Cleanup(catalogTS.Close)

	products := cart.NewProductClient(catalogTS.URL)
	products.MediaBaseURL = "https://media.example.com/"

	s := &cart.Server{
		Service: &cart.Service{
			Products: products,
			Cart:     cart.NewPlatformCart(cartAPIURL, "token", 0, 0),
			Log:      zap.NewNop(),
		},
		Log:      zap.NewNop(),
		Upstream: products,
	}

	ts := httptest.NewServer(cart.NewHandler(s, cart.HTTPDeps{Log: zap.NewNop(), Service: "cart"}))
	t.Cleanup(ts.Close)
	return ts
}

func post(t *testing.T, url, body string) (*http.Response, cart.Result) {
	t.Helper()

	resp, err := http.Post(url, "application/json", bytes.NewBufferString(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	var res cart.Result
	if err := json.Unmarshal(raw, &res); err != nil {
		t.Fatalf("decode: %v body=%s", err, raw)
	}
	return resp, res
}

func TestCartAdd_HappyPath(t *testing.T) {
	rec := &recordedCart{}
	api := newCartAPITS(t, rec, http.StatusOK)
	ts := newCartTS(t, api.URL)

	resp, res := post(t, ts.URL+"/cart/add", `{"externalProductId":"item_001","quantity":2,"customData":{"engraving":"AB","giftWrap":true}}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d res=%+v", resp.StatusCode, res)
	}
	if !res.Success || res.CartItemID != "cart-42" {
		t.Fatalf("res=%+v", res)
	}

	if len(rec.lines) != 1 {
		t.Fatalf("lines=%d", len(rec.lines))
	}
	li := rec.lines[0]
	if li.Price != "29.99" || li.Quantity != 2 || li.ProductName.Original != "Premium Cotton T-Shirt" {
		t.Fatalf("line=%+v", li)
	}
	if !strings.HasPrefix(li.Image, "https://media.example.com/") {
		t.Fatalf("image=%q", li.Image)
	}
	want := []cart.CustomTextField{
		{Title: "External Product ID", Value: "item_001"},
		{Title: "engraving", Value: "AB"},
		{Title: "giftWrap", Value: "true"},
	}
	if len(li.CustomTextFields) != len(want) {
		t.Fatalf("fields=%+v", li.CustomTextFields)
	}
	for i := range want {
		if li.CustomTextFields[i] != want[i] {
			t.Fatalf("field %d=%+v want %+v", i, li.CustomTextFields[i], want[i])
		}
	}
}

func TestCartAdd_StatusMapping(t *testing.T) {
	rec := &recordedCart{}
	okAPI := newCartAPITS(t, rec, http.StatusOK)
	badAPI := newCartAPITS(t, rec, http.StatusBadRequest)

	cases := []struct {
		name   string
		apiURL string
		body   string
		want   int
	}{
		{"bad json", okAPI.URL, `{`, http.StatusBadRequest},
		{"missing id", okAPI.URL, `{"quantity":1}`, http.StatusBadRequest},
		{"bad quantity", okAPI.URL, `{"externalProductId":"item_001","quantity":0}`, http.StatusBadRequest},
		{"unknown product", okAPI.URL, `{"externalProductId":"item_999","quantity":1}`, http.StatusNotFound},
		{"platform rejects", badAPI.URL, `{"externalProductId":"item_001","quantity":1}`, http.StatusInternalServerError},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			ts := newCartTS(t, c.apiURL)

			resp, res := post(t, ts.URL+"/cart/add", c.body)
			if resp.StatusCode != c.want {
				t.Fatalf("status=%d want=%d res=%+v", resp.StatusCode, c.want, res)
			}
			if res.Success || res.Message != "Failed to add product to cart" || res.Error == "" {
				t.Fatalf("res=%+v", res)
			}
		})
	}
}

func TestCartProducts_Search(t *testing.T) {
	ts := newCartTS(t, "http://127.0.0.1:0")

	resp, err := http.Get(ts.URL + "/cart/products?q=HEADPHONES")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	var out []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.StatusCode != http.StatusOK || len(out) != 1 || out[0]["id"] != "item_005" {
		t.Fatalf("status=%d out=%+v", resp.StatusCode, out)
	}
	if out[0]["price"] != 199.99 {
		t.Fatalf("price=%v", out[0]["price"])
	}
}

func TestCartReadyz(t *testing.T) {
	ts := newCartTS(t, "http://127.0.0.1:0")

	resp, err := http.Get(ts.URL + "/readyz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d", resp.StatusCode)
	}

	s := &cart.Server{Upstream: cart.NewProductClient("http://127.0.0.1:1")}
	down := httptest.NewServer(cart.NewHandler(s, cart.HTTPDeps{Log: zap.NewNop(), Service: "cart"}))
	t.Cleanup(down.Close)

	resp, err = http.Get(down.URL + "/readyz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status=%d", resp.StatusCode)
	}
}
